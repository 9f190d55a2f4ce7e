// Package label maps symbolic urgency tiers to the dense integer codes the
// classifier trains on.
package label

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// Urgency is a triage urgency tier.
type Urgency string

const (
	Low    Urgency = "low"
	Medium Urgency = "medium"
	High   Urgency = "high"
)

var (
	// ErrCodecNotInitialized is returned when a codec is used before it was built from training labels.
	ErrCodecNotInitialized = errors.New("label codec not initialized")

	// ErrUnknownLabel is returned for labels outside the urgency set or unseen at construction.
	ErrUnknownLabel = errors.New("unknown urgency label")

	// ErrUnknownLabelCode is matched by UnknownCodeError.
	ErrUnknownLabelCode = errors.New("unknown label code")
)

// UnknownCodeError reports a code the codec never produced.
type UnknownCodeError struct {
	Code int
}

func (e *UnknownCodeError) Error() string {
	return fmt.Sprintf("unknown label code %d", e.Code)
}

// Is matches ErrUnknownLabelCode.
func (e *UnknownCodeError) Is(target error) bool {
	return target == ErrUnknownLabelCode
}

// Parse validates s against the urgency set.
func Parse(s string) (Urgency, error) {
	switch u := Urgency(s); u {
	case Low, Medium, High:
		return u, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLabel, s)
}

// Codec is a fixed label<->code mapping. Codes are assigned in sorted
// lexicographic order of the distinct labels, so the mapping depends only on
// which labels exist, never on the order they were seen in.
type Codec struct {
	classes []Urgency
	codes   map[Urgency]int
}

// NewCodec builds a codec from the full training label set.
func NewCodec(labels []Urgency) (*Codec, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("%w: no labels", ErrCodecNotInitialized)
	}
	seen := make(map[Urgency]struct{}, 3)
	for _, l := range labels {
		if _, err := Parse(string(l)); err != nil {
			return nil, err
		}
		seen[l] = struct{}{}
	}
	classes := make([]Urgency, 0, len(seen))
	for l := range seen {
		classes = append(classes, l)
	}
	return fromClasses(classes), nil
}

func fromClasses(classes []Urgency) *Codec {
	sort.Slice(classes, func(i, j int) bool { return classes[i] < classes[j] })
	codes := make(map[Urgency]int, len(classes))
	for i, l := range classes {
		codes[l] = i
	}
	return &Codec{classes: classes, codes: codes}
}

func (c *Codec) ready() bool {
	return c != nil && len(c.classes) > 0
}

// Encode maps labels to codes, preserving order.
func (c *Codec) Encode(labels []Urgency) ([]int, error) {
	if !c.ready() {
		return nil, ErrCodecNotInitialized
	}
	out := make([]int, len(labels))
	for i, l := range labels {
		code, ok := c.codes[l]
		if !ok {
			return nil, fmt.Errorf("%w: %q at index %d", ErrUnknownLabel, l, i)
		}
		out[i] = code
	}
	return out, nil
}

// Decode maps a code back to its label.
func (c *Codec) Decode(code int) (Urgency, error) {
	if !c.ready() {
		return "", ErrCodecNotInitialized
	}
	if code < 0 || code >= len(c.classes) {
		return "", &UnknownCodeError{Code: code}
	}
	return c.classes[code], nil
}

// Classes returns the labels in code order.
func (c *Codec) Classes() []Urgency {
	if c == nil {
		return nil
	}
	out := make([]Urgency, len(c.classes))
	copy(out, c.classes)
	return out
}

// Names returns the class names in code order.
func (c *Codec) Names() []string {
	out := make([]string, 0, c.Len())
	for _, l := range c.Classes() {
		out = append(out, string(l))
	}
	return out
}

// Len returns the number of classes.
func (c *Codec) Len() int {
	if c == nil {
		return 0
	}
	return len(c.classes)
}

// MarshalJSON encodes the codec as its class list.
func (c *Codec) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Classes())
}

// UnmarshalJSON restores a codec from its class list.
func (c *Codec) UnmarshalJSON(b []byte) error {
	var classes []Urgency
	if err := json.Unmarshal(b, &classes); err != nil {
		return err
	}
	restored, err := NewCodec(classes)
	if err != nil {
		return err
	}
	if restored.Len() != len(classes) {
		return fmt.Errorf("label codec: duplicate classes in %v", classes)
	}
	*c = *restored
	return nil
}
