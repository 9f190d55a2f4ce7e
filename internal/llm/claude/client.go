package claude

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/linnemanlabs/oasis/internal/advisory"
)

const backendName = "claude"

// Client implements advisory.Backend for the Claude Messages API.
type Client struct {
	sdk anthropic.Client
}

// Option configures a Client.
type Option func(*[]option.RequestOption)

// WithBaseURL points the client at a different API root, used in tests.
func WithBaseURL(u string) Option {
	return func(o *[]option.RequestOption) { *o = append(*o, option.WithBaseURL(u)) }
}

// WithHTTPClient overrides the transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *[]option.RequestOption) { *o = append(*o, option.WithHTTPClient(hc)) }
}

// New creates a Claude client. SDK retries are disabled; retrying is
// configured with advisory.WithRetry so every backend behaves the same.
func New(apiKey string, opts ...Option) *Client {
	ro := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	for _, o := range opts {
		o(&ro)
	}
	return &Client{sdk: anthropic.NewClient(ro...)}
}

// Generate sends one user turn and returns the reply as a single completion.
func (c *Client) Generate(ctx context.Context, req *advisory.Request) (*advisory.Completions, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(req.ModelName),
		MaxTokens:   int64(req.MaxTokens),
		Temperature: anthropic.Float(req.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.User)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	msg, err := c.sdk.Messages.New(ctx, params)
	if err != nil {
		return nil, toServiceError(err)
	}
	return fromSDKResponse(msg), nil
}

func toServiceError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return advisory.Unavailable(backendName, apiErr.StatusCode, err)
	}
	return advisory.Unavailable(backendName, 0, fmt.Errorf("send request: %w", err))
}

// fromSDKResponse folds the text blocks of one message into one completion.
// A message made only of non-text blocks yields a completion without text.
func fromSDKResponse(msg *anthropic.Message) *advisory.Completions {
	out := &advisory.Completions{
		Model: string(msg.Model),
		Usage: advisory.Usage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		},
	}
	if len(msg.Content) == 0 {
		return out
	}

	var sb strings.Builder
	hasText := false
	for _, block := range msg.Content {
		if block.Type != "text" {
			continue
		}
		hasText = true
		sb.WriteString(block.Text)
	}
	out.Items = []advisory.Completion{{
		Text:         sb.String(),
		HasText:      hasText,
		FinishReason: string(msg.StopReason),
	}}
	return out
}
