// Package locale picks the response language for first-aid and
// questionnaire text.
package locale

import (
	"net/http"

	"golang.org/x/text/language"
)

// Lang is a supported response language.
type Lang string

const (
	English Lang = "en"
	Spanish Lang = "es"
)

// order matches the matcher's supported tags.
var (
	order   = []Lang{English, Spanish}
	matcher = language.NewMatcher([]language.Tag{language.English, language.Spanish})
)

// Match resolves an explicit language value or, when that is empty or
// unparsable, an Accept-Language header. Anything unsupported is English.
func Match(explicit, acceptLanguage string) Lang {
	var tags []language.Tag
	if explicit != "" {
		if t, err := language.Parse(explicit); err == nil {
			tags = append(tags, t)
		}
	}
	if len(tags) == 0 && acceptLanguage != "" {
		if ts, _, err := language.ParseAcceptLanguage(acceptLanguage); err == nil {
			tags = ts
		}
	}
	if len(tags) == 0 {
		return English
	}

	_, idx, conf := matcher.Match(tags...)
	if conf == language.No || idx < 0 || idx >= len(order) {
		return English
	}
	return order[idx]
}

// FromRequest reads ?lang= first, then Accept-Language.
func FromRequest(r *http.Request) Lang {
	return Match(r.URL.Query().Get("lang"), r.Header.Get("Accept-Language"))
}

// Text is one string in every supported language.
type Text struct {
	En string `json:"en"`
	Es string `json:"es"`
}

// In returns the text for l, falling back to English when no translation exists.
func (t Text) In(l Lang) string {
	if l == Spanish && t.Es != "" {
		return t.Es
	}
	return t.En
}

// All renders every text in ts for l.
func All(ts []Text, l Lang) []string {
	if ts == nil {
		return nil
	}
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.In(l)
	}
	return out
}
