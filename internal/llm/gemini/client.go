// Package gemini implements advisory.Backend on the Google Gen AI SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/linnemanlabs/oasis/internal/advisory"
)

const backendName = "gemini"

// Client wraps a genai.Client.
type Client struct {
	sdk *genai.Client
}

// Config configures New. BaseURL and HTTPClient are optional.
type Config struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// New creates a Gemini API client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	sdk, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{sdk: sdk}, nil
}

// Generate asks for a single candidate.
func (c *Client) Generate(ctx context.Context, req *advisory.Request) (*advisory.Completions, error) {
	temp := float32(req.Temperature)
	gc := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: int32(req.MaxTokens), //nolint:gosec // bounded by config validation
		CandidateCount:  1,
	}
	if req.System != "" {
		gc.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	resp, err := c.sdk.Models.GenerateContent(ctx, req.ModelName, genai.Text(req.User), gc)
	if err != nil {
		return nil, toServiceError(err)
	}
	return fromSDKResponse(resp), nil
}

func toServiceError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return advisory.Unavailable(backendName, apiErr.Code, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return advisory.Unavailable(backendName, apiErrPtr.Code, err)
	}
	return advisory.Unavailable(backendName, 0, fmt.Errorf("send request: %w", err))
}

func fromSDKResponse(resp *genai.GenerateContentResponse) *advisory.Completions {
	out := &advisory.Completions{Model: resp.ModelVersion}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = advisory.Usage{
			InputTokens:  int(u.PromptTokenCount),
			OutputTokens: int(u.CandidatesTokenCount),
		}
	}
	for _, cand := range resp.Candidates {
		if cand == nil {
			continue
		}
		out.Items = append(out.Items, fromCandidate(cand))
	}
	return out
}

// fromCandidate joins the text parts. Function calls, inline data and code
// parts are not text; a candidate of only those has no text.
func fromCandidate(cand *genai.Candidate) advisory.Completion {
	c := advisory.Completion{FinishReason: string(cand.FinishReason)}
	if cand.Content == nil {
		return c
	}
	var sb strings.Builder
	for _, p := range cand.Content.Parts {
		if p == nil || p.FunctionCall != nil || p.InlineData != nil || p.ExecutableCode != nil {
			continue
		}
		c.HasText = true
		sb.WriteString(p.Text)
	}
	c.Text = sb.String()
	return c
}
