// Package openai implements advisory.Backend for OpenAI-compatible chat
// completion endpoints.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/linnemanlabs/oasis/internal/advisory"
)

const backendName = "openai"

// Client implements advisory.Backend on the chat completions API.
type Client struct {
	sdk openai.Client
}

// Option configures a Client.
type Option func(*[]option.RequestOption)

// WithBaseURL points the client at a compatible server or a test double.
func WithBaseURL(u string) Option {
	return func(o *[]option.RequestOption) { *o = append(*o, option.WithBaseURL(u)) }
}

// WithHTTPClient overrides the transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *[]option.RequestOption) { *o = append(*o, option.WithHTTPClient(hc)) }
}

// New creates a client. SDK retries are off; advisory.WithRetry owns retrying.
func New(apiKey string, opts ...Option) *Client {
	ro := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	for _, o := range opts {
		o(&ro)
	}
	return &Client{sdk: openai.NewClient(ro...)}
}

// Generate sends a system and user message and asks for a single choice.
func (c *Client) Generate(ctx context.Context, req *advisory.Request) (*advisory.Completions, error) {
	params := openai.ChatCompletionNewParams{
		Model:       req.ModelName,
		Temperature: openai.Float(req.Temperature),
		MaxTokens:   openai.Int(int64(req.MaxTokens)),
		N:           openai.Int(1),
	}
	if req.System != "" {
		params.Messages = append(params.Messages, openai.SystemMessage(req.System))
	}
	params.Messages = append(params.Messages, openai.UserMessage(req.User))

	resp, err := c.sdk.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, toAdvisoryError(err)
	}
	return fromSDKResponse(resp), nil
}

func toAdvisoryError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return advisory.Unavailable(backendName, apiErr.StatusCode, err)
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %w", advisory.ErrMalformedResponse, err)
	}
	return advisory.Unavailable(backendName, 0, fmt.Errorf("send request: %w", err))
}

// fromSDKResponse keeps one completion per choice. A null or missing
// content field yields a completion without text.
func fromSDKResponse(r *openai.ChatCompletion) *advisory.Completions {
	out := &advisory.Completions{
		Model: r.Model,
		Usage: advisory.Usage{
			InputTokens:  int(r.Usage.PromptTokens),
			OutputTokens: int(r.Usage.CompletionTokens),
		},
	}
	for _, ch := range r.Choices {
		out.Items = append(out.Items, advisory.Completion{
			Text:         ch.Message.Content,
			HasText:      ch.Message.JSON.Content.Valid(),
			FinishReason: ch.FinishReason,
		})
	}
	return out
}
