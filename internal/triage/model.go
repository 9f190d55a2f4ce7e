package triage

import (
	"time"

	"github.com/linnemanlabs/oasis/internal/advisory"
	"github.com/linnemanlabs/oasis/internal/label"
	"github.com/linnemanlabs/oasis/internal/locale"
	"github.com/linnemanlabs/oasis/internal/vitals"
)

// AdviceUnavailable replaces the advice text when the advisory call failed.
const AdviceUnavailable = "advice unavailable"

// AdviceDisabled is reported as the advice error when no advisor is configured.
const AdviceDisabled = "disabled"

// Outcome is the result of triaging one vitals record.
type Outcome struct {
	Urgency         label.Urgency `json:"urgency"`
	Summary         string        `json:"summary"`
	Advice          string        `json:"advice"`
	AdviceAvailable bool          `json:"advice_available"`

	// AdviceError is the advisory error kind when AdviceAvailable is false.
	AdviceError string `json:"advice_error,omitempty"`

	// Recommendations are the static first-aid steps for the urgency tier.
	// They are present whether or not advice was available.
	Recommendations []string    `json:"recommendations"`
	Language        locale.Lang `json:"language,omitempty"`

	Model          string            `json:"model,omitempty"`
	Prompt         *advisory.Request `json:"prompt,omitempty"`
	Usage          advisory.Usage    `json:"usage"`
	AdviceDuration float64           `json:"advice_duration_seconds,omitempty"`
}

// Result is a persisted Outcome.
type Result struct {
	ID        string        `json:"id"`
	Vitals    vitals.Record `json:"vitals"`
	Outcome   Outcome       `json:"outcome"`
	CreatedAt time.Time     `json:"created_at"`
	Duration  float64       `json:"duration_seconds"`
}

// In returns o with its first-aid steps in language l.
func (o Outcome) In(l locale.Lang) Outcome {
	o.Recommendations = RecommendationsIn(o.Urgency, l)
	o.Language = l
	return o
}

// In returns a copy of r whose first-aid steps are in language l. Stored
// results are never modified.
func (r *Result) In(l locale.Lang) *Result {
	cp := *r
	cp.Outcome = r.Outcome.In(l)
	return &cp
}
