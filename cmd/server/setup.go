package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/linnemanlabs/go-core/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/linnemanlabs/oasis/internal/advisory"
	vc "github.com/linnemanlabs/oasis/internal/cfg"
	"github.com/linnemanlabs/oasis/internal/dataset"
	"github.com/linnemanlabs/oasis/internal/llm/claude"
	"github.com/linnemanlabs/oasis/internal/llm/gemini"
	"github.com/linnemanlabs/oasis/internal/llm/openai"
	"github.com/linnemanlabs/oasis/internal/training"
)

// loadBundle reads the model bundle at ModelPath when it exists, otherwise
// trains from TrainingDataPath and, if ModelPath is set, writes the result there.
func loadBundle(ctx context.Context, c *vc.Config, L log.Logger) (*training.Bundle, error) {
	if c.ModelPath != "" {
		f, err := os.Open(c.ModelPath)
		switch {
		case err == nil:
			defer func() { _ = f.Close() }()
			b, err := training.Load(f)
			if err != nil {
				return nil, fmt.Errorf("load model bundle %s: %w", c.ModelPath, err)
			}
			L.Info(ctx, "loaded model bundle", "path", c.ModelPath, "examples", b.Examples, "trained_at", b.TrainedAt)
			return b, nil
		case !errors.Is(err, os.ErrNotExist) || c.TrainingDataPath == "":
			return nil, fmt.Errorf("open model bundle: %w", err)
		}
	}

	examples, err := dataset.ReadFile(c.TrainingDataPath)
	if err != nil {
		return nil, fmt.Errorf("read training data: %w", err)
	}
	b, err := training.Train(examples, c.TrainOptions())
	if err != nil {
		return nil, fmt.Errorf("train classifier: %w", err)
	}
	L.Info(ctx, "trained classifier",
		"path", c.TrainingDataPath,
		"examples", b.Examples,
		"depth", b.Model.Depth(),
		"leaves", b.Model.Leaves(),
		"holdout_accuracy", b.Report.Accuracy,
	)

	if c.ModelPath != "" {
		if err := saveBundle(c.ModelPath, b); err != nil {
			return nil, err
		}
		L.Info(ctx, "saved model bundle", "path", c.ModelPath)
	}
	return b, nil
}

func saveBundle(path string, b *training.Bundle) error {
	f, err := os.Create(path) //nolint:gosec // G304: path is from trusted config
	if err != nil {
		return fmt.Errorf("create model bundle: %w", err)
	}
	if err := b.Save(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write model bundle: %w", err)
	}
	return f.Close()
}

// newBackend builds the configured provider client wrapped in the retry
// policy. It returns nil when advice is disabled.
func newBackend(ctx context.Context, c *vc.Config, L log.Logger) (advisory.Backend, error) {
	if !c.AdviceEnabled() {
		return nil, nil
	}
	hc := &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}

	var backend advisory.Backend
	switch c.AdvisoryProvider {
	case vc.ProviderClaude:
		opts := []claude.Option{claude.WithHTTPClient(hc)}
		if c.AdvisoryEndpoint != "" {
			opts = append(opts, claude.WithBaseURL(c.AdvisoryEndpoint))
		}
		backend = claude.New(c.ClaudeAPIKey, opts...)
	case vc.ProviderGemini:
		g, err := gemini.New(ctx, gemini.Config{
			APIKey:     c.GeminiAPIKey,
			BaseURL:    c.AdvisoryEndpoint,
			HTTPClient: hc,
		})
		if err != nil {
			return nil, fmt.Errorf("gemini client: %w", err)
		}
		backend = g
	case vc.ProviderOpenAI:
		opts := []openai.Option{openai.WithHTTPClient(hc)}
		if c.AdvisoryEndpoint != "" {
			opts = append(opts, openai.WithBaseURL(c.AdvisoryEndpoint))
		}
		backend = openai.New(c.OpenAIAPIKey, opts...)
	default:
		return nil, fmt.Errorf("unknown advisory provider %q", c.AdvisoryProvider)
	}

	policy := advisory.DefaultRetryPolicy()
	policy.MaxTries = c.AdvisoryRetries
	policy.Logger = L
	return advisory.WithRetry(backend, policy), nil
}
