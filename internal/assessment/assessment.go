// Package assessment scores the dehydration and heat-exhaustion symptom
// questionnaires. Each answer is worth 0..3 points; the total falls into a
// tier that carries an urgency and first-aid steps.
package assessment

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/linnemanlabs/oasis/internal/label"
	"github.com/linnemanlabs/oasis/internal/locale"
)

// ErrInvalidAnswers is returned when answers do not fit the questionnaire.
var ErrInvalidAnswers = errors.New("invalid answers")

// Option is one selectable answer.
type Option struct {
	Value int
	Text  locale.Text
}

// Question is one questionnaire item.
type Question struct {
	ID      string
	Prompt  locale.Text
	Options []Option
}

// Tier maps an inclusive score range to an outcome.
type Tier struct {
	ID              string
	Min, Max        int
	Title           locale.Text
	Description     locale.Text
	Recommendations []locale.Text
	Urgency         label.Urgency
}

// Questionnaire is a fixed set of questions and the tiers their total falls into.
type Questionnaire struct {
	ID        string
	Title     locale.Text
	Questions []Question
	Tiers     []Tier
}

// Result is a scored questionnaire rendered in one language.
type Result struct {
	Questionnaire   string        `json:"questionnaire"`
	Score           int           `json:"score"`
	MaxScore        int           `json:"max_score"`
	Tier            string        `json:"tier"`
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	Urgency         label.Urgency `json:"urgency"`
	Recommendations []string      `json:"recommendations"`
	Language        locale.Lang   `json:"language"`
}

// MaxScore is the sum of every question's highest option.
func (q *Questionnaire) MaxScore() int {
	total := 0
	for _, qu := range q.Questions {
		best := 0
		for _, o := range qu.Options {
			best = max(best, o.Value)
		}
		total += best
	}
	return total
}

// Score totals answers, keyed by question ID, and renders the matching tier
// in l. Every question must be answered with one of its option values.
func (q *Questionnaire) Score(answers map[string]int, l locale.Lang) (*Result, error) {
	var errs []error
	for id := range answers {
		if !slices.ContainsFunc(q.Questions, func(qu Question) bool { return qu.ID == id }) {
			errs = append(errs, fmt.Errorf("unknown question %q", id))
		}
	}

	total := 0
	for _, qu := range q.Questions {
		v, ok := answers[qu.ID]
		if !ok {
			errs = append(errs, fmt.Errorf("question %q not answered", qu.ID))
			continue
		}
		if !slices.ContainsFunc(qu.Options, func(o Option) bool { return o.Value == v }) {
			errs = append(errs, fmt.Errorf("question %q: %d is not an option", qu.ID, v))
			continue
		}
		total += v
	}
	if len(errs) > 0 {
		// map order is random; keep messages stable
		sort.Slice(errs, func(i, j int) bool { return errs[i].Error() < errs[j].Error() })
		return nil, fmt.Errorf("%w: %w", ErrInvalidAnswers, errors.Join(errs...))
	}

	for _, t := range q.Tiers {
		if total >= t.Min && total <= t.Max {
			return &Result{
				Questionnaire:   q.ID,
				Score:           total,
				MaxScore:        q.MaxScore(),
				Tier:            t.ID,
				Title:           t.Title.In(l),
				Description:     t.Description.In(l),
				Urgency:         t.Urgency,
				Recommendations: locale.All(t.Recommendations, l),
				Language:        l,
			}, nil
		}
	}
	return nil, fmt.Errorf("questionnaire %s: no tier covers score %d", q.ID, total)
}

// View is a questionnaire rendered in one language for clients.
type View struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	MaxScore  int            `json:"max_score"`
	Questions []QuestionView `json:"questions"`
	Language  locale.Lang    `json:"language"`
}

// QuestionView is a Question rendered in one language.
type QuestionView struct {
	ID      string       `json:"id"`
	Prompt  string       `json:"prompt"`
	Options []OptionView `json:"options"`
}

// OptionView is an Option rendered in one language.
type OptionView struct {
	Value int    `json:"value"`
	Text  string `json:"text"`
}

// In renders q in l.
func (q *Questionnaire) In(l locale.Lang) View {
	v := View{
		ID:        q.ID,
		Title:     q.Title.In(l),
		MaxScore:  q.MaxScore(),
		Questions: make([]QuestionView, len(q.Questions)),
		Language:  l,
	}
	for i, qu := range q.Questions {
		qv := QuestionView{ID: qu.ID, Prompt: qu.Prompt.In(l), Options: make([]OptionView, len(qu.Options))}
		for j, o := range qu.Options {
			qv.Options[j] = OptionView{Value: o.Value, Text: o.Text.In(l)}
		}
		v.Questions[i] = qv
	}
	return v
}

// Lookup returns the built-in questionnaire with id.
func Lookup(id string) (*Questionnaire, bool) {
	for _, q := range builtin {
		if q.ID == id {
			return q, true
		}
	}
	return nil, false
}

// All returns the built-in questionnaires in a fixed order.
func All() []*Questionnaire {
	return slices.Clone(builtin)
}
