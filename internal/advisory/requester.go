package advisory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"
)

// SystemRole is the fixed system prompt sent with every request.
const SystemRole = `You are a desert healthcare assistant. You triage heat-related illness for people in extreme heat with limited water and no immediate access to a clinic.

Be concise and practical. Prefer treatments that use little or no water. Never contradict the urgency level you are given downward.`

// Response is the advice for one summary plus the prompt that produced it.
type Response struct {
	Text     string   `json:"text"`
	Prompt   *Request `json:"prompt"`
	Model    string   `json:"model"`
	Usage    Usage    `json:"usage"`
	Duration float64  `json:"duration_seconds"`
}

// Hooks lets callers observe advisory calls without coupling to a metrics library.
type Hooks struct {
	OnCall func(model, kind string, duration float64, usage Usage)
}

// Requester builds prompts and calls a Backend.
type Requester struct {
	backend Backend
	logger  log.Logger
	hooks   Hooks
}

// New creates a Requester. backend is required.
func New(backend Backend, logger log.Logger, hooks Hooks) *Requester {
	if backend == nil {
		panic(xerrors.New("advisory backend is required"))
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Requester{backend: backend, logger: logger, hooks: hooks}
}

// BuildRequest pairs the fixed system role with the symptom summary.
func BuildRequest(summary string, cfg Config) *Request {
	return &Request{
		System:      SystemRole,
		User:        buildUserPrompt(summary),
		ModelName:   cfg.ModelName,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	}
}

func buildUserPrompt(summary string) string {
	return fmt.Sprintf(`A patient reports: %s
They are in a desert with extreme heat and limited water supply.
Give an urgency level, key health risks, and minimal-water treatment advice.`, summary)
}

// RequestAdvice sends summary to the backend and returns the first completion's text.
// The call is bounded by cfg.Timeout; a timeout reports ErrServiceUnavailable.
func (r *Requester) RequestAdvice(ctx context.Context, summary string, cfg Config) (*Response, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(summary) == "" {
		return nil, fmt.Errorf("%w: summary is empty", ErrInvalidConfig)
	}

	req := BuildRequest(summary, cfg)

	cctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	start := time.Now()
	out, err := r.generate(cctx, req)
	dur := time.Since(start).Seconds()

	if err == nil {
		var text string
		text, err = firstText(out)
		if err == nil {
			resp := &Response{
				Text:     text,
				Prompt:   req,
				Model:    out.Model,
				Usage:    out.Usage,
				Duration: dur,
			}
			if resp.Model == "" {
				resp.Model = cfg.ModelName
			}
			r.observe(cfg.ModelName, "", dur, out.Usage)
			return resp, nil
		}
	} else {
		err = classify(err)
	}

	var usage Usage
	if out != nil {
		usage = out.Usage
	}
	r.observe(cfg.ModelName, Kind(err), dur, usage)
	r.logger.Warn(ctx, "advisory request failed",
		"model", cfg.ModelName,
		"kind", Kind(err),
		"duration", dur,
		"error", err,
	)
	return nil, err
}

func (r *Requester) observe(model, kind string, dur float64, usage Usage) {
	if r.hooks.OnCall != nil {
		r.hooks.OnCall(model, kind, dur, usage)
	}
}

func firstText(out *Completions) (string, error) {
	if out == nil || len(out.Items) == 0 {
		return "", ErrEmptyCompletion
	}
	first := out.Items[0]
	if !first.HasText {
		return "", fmt.Errorf("%w: first completion has no text (finish reason %q)", ErrMalformedResponse, first.FinishReason)
	}
	text := strings.TrimSpace(first.Text)
	if text == "" {
		return "", fmt.Errorf("%w: first completion text is blank", ErrEmptyCompletion)
	}
	return text, nil
}

type generated struct {
	out *Completions
	err error
}

// generate runs the backend call and abandons it when ctx expires, so a
// backend that ignores its context still cannot hold the caller past the deadline.
func (r *Requester) generate(ctx context.Context, req *Request) (*Completions, error) {
	ch := make(chan generated, 1)
	go func() {
		out, err := r.backend.Generate(ctx, req)
		ch <- generated{out: out, err: err}
	}()

	select {
	case g := <-ch:
		return g.out, g.err
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: request abandoned: %w", ErrServiceUnavailable, ctx.Err())
	}
}

// classify makes sure every backend error lands in the taxonomy. Errors the
// backend already classified pass through; anything else is a service failure.
func classify(err error) error {
	if errors.Is(err, ErrEmptyCompletion) || errors.Is(err, ErrMalformedResponse) || errors.Is(err, ErrServiceUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
}
