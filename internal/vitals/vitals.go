// Package vitals validates raw heat-illness vitals and encodes them into the
// fixed-order feature vector the classifier is trained on.
package vitals

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidVitals is matched by every validation failure returned from Build.
var ErrInvalidVitals = errors.New("invalid vitals")

// Feature positions. The order is frozen: a model trained with one order
// silently mispredicts when fed another.
const (
	FeatureTemperature = iota
	FeatureHydration
	FeatureSkin
	FeatureDizziness

	NumFeatures
)

// FeatureNames lists feature names in vector order.
var FeatureNames = [NumFeatures]string{"temperature", "hydration_level", "skin_condition", "dizziness"}

// Skin condition codes.
const (
	SkinNormal   = 1
	SkinSunburn  = 2
	SkinBlisters = 3
)

// Hydration bounds, 1 = severely dehydrated, 5 = well hydrated.
const (
	MinHydration = 1
	MaxHydration = 5
)

// Record is one set of observed vitals.
type Record struct {
	Temperature    float64 `json:"temperature"`
	HydrationLevel int     `json:"hydration_level"`
	SkinCondition  int     `json:"skin_condition"`
	Dizziness      bool    `json:"dizziness"`
}

// FeatureVector is the numeric encoding of a Record, indexed by the Feature* constants.
type FeatureVector [NumFeatures]float64

// InvalidError reports the field that failed validation and the offending value.
type InvalidError struct {
	Field string
	Value any
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("invalid vitals: %s=%v", e.Field, e.Value)
}

// Is lets errors.Is(err, ErrInvalidVitals) match any InvalidError.
func (e *InvalidError) Is(target error) bool {
	return target == ErrInvalidVitals
}

// Validate checks every field range.
func (r Record) Validate() error {
	if math.IsNaN(r.Temperature) || math.IsInf(r.Temperature, 0) {
		return &InvalidError{Field: "temperature", Value: r.Temperature}
	}
	if r.HydrationLevel < MinHydration || r.HydrationLevel > MaxHydration {
		return &InvalidError{Field: "hydration_level", Value: r.HydrationLevel}
	}
	if r.SkinCondition < SkinNormal || r.SkinCondition > SkinBlisters {
		return &InvalidError{Field: "skin_condition", Value: r.SkinCondition}
	}
	return nil
}

// Build validates r and returns its feature vector.
func Build(r Record) (FeatureVector, error) {
	var fv FeatureVector
	if err := r.Validate(); err != nil {
		return fv, err
	}
	fv[FeatureTemperature] = r.Temperature
	fv[FeatureHydration] = float64(r.HydrationLevel)
	fv[FeatureSkin] = float64(r.SkinCondition)
	if r.Dizziness {
		fv[FeatureDizziness] = 1
	}
	return fv, nil
}

// BuildBatch builds vectors for rs in order. Output index i always corresponds
// to rs[i] so it stays aligned with a parallel label slice.
func BuildBatch(rs []Record) ([]FeatureVector, error) {
	out := make([]FeatureVector, len(rs))
	for i, r := range rs {
		fv, err := Build(r)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out[i] = fv
	}
	return out, nil
}

// SkinName returns the descriptive name of a skin condition code.
func SkinName(code int) string {
	switch code {
	case SkinNormal:
		return "normal skin"
	case SkinSunburn:
		return "sunburn"
	case SkinBlisters:
		return "blistering"
	default:
		return fmt.Sprintf("skin code %d", code)
	}
}

// HydrationBand buckets a hydration level for prose.
func HydrationBand(level int) string {
	switch {
	case level <= 1:
		return "severe dehydration"
	case level == 2:
		return "signs of dehydration"
	case level == 3:
		return "mild dehydration"
	default:
		return "adequately hydrated"
	}
}

// Describe renders r as a short clinical phrase, e.g.
// "sunburn, signs of dehydration, dizziness at 46.0°C (hydration 2/5)".
func Describe(r Record) string {
	parts := []string{SkinName(r.SkinCondition), HydrationBand(r.HydrationLevel)}
	if r.Dizziness {
		parts = append(parts, "dizziness")
	} else {
		parts = append(parts, "no dizziness")
	}
	return fmt.Sprintf("%s at %.1f°C (hydration %d/%d)",
		strings.Join(parts, ", "), r.Temperature, r.HydrationLevel, MaxHydration)
}
