// Package slack sends triage notifications to Slack via incoming webhooks.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/oasis/internal/label"
	"github.com/linnemanlabs/oasis/internal/triage"
	"github.com/linnemanlabs/oasis/internal/vitals"
)

const (
	maxAdviceLen = 3000
	httpTimeout  = 10 * time.Second
)

// Notifier posts triage results to a Slack webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
	logger     log.Logger
}

// New creates a new Slack notifier. If webhookURL is empty, Notify is a no-op.
func New(webhookURL string, logger log.Logger) *Notifier {
	if logger == nil {
		logger = log.Nop()
	}
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: httpTimeout},
		logger:     logger,
	}
}

// Notify posts a triage result to the configured Slack webhook.
// If no webhook URL is configured, it returns nil immediately.
func (n *Notifier) Notify(ctx context.Context, result *triage.Result) error {
	if n.webhookURL == "" {
		return nil
	}

	body, err := json.Marshal(buildMessage(result))
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req) //nolint:gosec // G704: webhookURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}

	n.logger.Info(ctx, "slack notification sent", "triage_id", result.ID, "urgency", result.Outcome.Urgency)
	return nil
}

func buildMessage(r *triage.Result) map[string]any {
	return map[string]any{
		"blocks": []map[string]any{
			headerBlock(r),
			{"type": "divider"},
			fieldsBlock(r),
			{"type": "divider"},
			adviceBlock(r),
			recommendationsBlock(r),
			{"type": "divider"},
			contextBlock(r),
		},
	}
}

func headerBlock(r *triage.Result) map[string]any {
	u := r.Outcome.Urgency
	tier := strings.ToUpper(string(u))
	if tier == "" {
		tier = "UNKNOWN"
	}
	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": fmt.Sprintf("%s Heat illness triage: %s urgency", urgencyEmoji(u), tier),
		},
	}
}

func fieldsBlock(r *triage.Result) map[string]any {
	v := r.Vitals
	dizzy := "no"
	if v.Dizziness {
		dizzy = "yes"
	}
	model := shortModel(r.Outcome.Model)
	if model == "" {
		model = "none"
	}

	fields := []map[string]any{
		mrkdwn(fmt.Sprintf("*Urgency:* %s", r.Outcome.Urgency)),
		mrkdwn(fmt.Sprintf("*Temperature:* %.1f°C", v.Temperature)),
		mrkdwn(fmt.Sprintf("*Hydration:* %d/%d", v.HydrationLevel, vitals.MaxHydration)),
		mrkdwn(fmt.Sprintf("*Skin:* %s", vitals.SkinName(v.SkinCondition))),
		mrkdwn(fmt.Sprintf("*Dizziness:* %s", dizzy)),
		mrkdwn(fmt.Sprintf("*Duration:* %.1fs", r.Duration)),
		mrkdwn(fmt.Sprintf("*Model:* %s", model)),
	}

	return map[string]any{
		"type":   "section",
		"fields": fields,
	}
}

func adviceBlock(r *triage.Result) map[string]any {
	text := truncate(r.Outcome.Advice, maxAdviceLen)
	switch {
	case !r.Outcome.AdviceAvailable && r.Outcome.AdviceError != "":
		text = fmt.Sprintf("_%s (%s)_", triage.AdviceUnavailable, r.Outcome.AdviceError)
	case text == "":
		text = "_No advice available._"
	}

	return map[string]any{
		"type": "section",
		"text": mrkdwn(fmt.Sprintf("*Advice*\n\n%s", text)),
	}
}

func recommendationsBlock(r *triage.Result) map[string]any {
	var b strings.Builder
	b.WriteString("*First aid*\n")
	if len(r.Outcome.Recommendations) == 0 {
		b.WriteString("\n_None._")
	}
	for _, step := range r.Outcome.Recommendations {
		b.WriteString("\n• ")
		b.WriteString(step)
	}

	return map[string]any{
		"type": "section",
		"text": mrkdwn(truncate(b.String(), maxAdviceLen)),
	}
}

func contextBlock(r *triage.Result) map[string]any {
	return map[string]any{
		"type": "context",
		"elements": []map[string]any{
			mrkdwn(fmt.Sprintf("oasis • triage %s • %s", r.ID, r.CreatedAt.UTC().Format("2006-01-02 15:04 UTC"))),
		},
	}
}

func mrkdwn(text string) map[string]any {
	return map[string]any{"type": "mrkdwn", "text": text}
}

func urgencyEmoji(u label.Urgency) string {
	switch u {
	case label.High:
		return "\U0001f534" // red circle
	case label.Medium:
		return "\U0001f7e1" // yellow circle
	default:
		return "\U0001f7e2" // green circle
	}
}

// dateModelRe matches model names ending with a YYYYMMDD date suffix.
var dateModelRe = regexp.MustCompile(`-\d{8}$`)

func shortModel(model string) string {
	return dateModelRe.ReplaceAllString(model, "")
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}
