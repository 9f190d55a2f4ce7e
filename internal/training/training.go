// Package training runs the one-time preparatory flow: labeled vitals are
// encoded, a classifier is fit and evaluated on its holdout, and the result is
// packaged as a Bundle that can be persisted and loaded at startup.
package training

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/linnemanlabs/oasis/internal/classifier"
	"github.com/linnemanlabs/oasis/internal/label"
	"github.com/linnemanlabs/oasis/internal/vitals"
)

// Example is one labeled training record.
type Example struct {
	Record  vitals.Record `json:"record"`
	Urgency label.Urgency `json:"urgency"`
}

// Bundle is everything the triage engine needs from training. The model and
// codec are only valid together.
type Bundle struct {
	Model     *classifier.Model  `json:"model"`
	Codec     *label.Codec       `json:"codec"`
	Report    *classifier.Report `json:"report"`
	Examples  int                `json:"examples"`
	TrainedAt time.Time          `json:"trained_at"`
}

// Train encodes examples, fits a model and evaluates it on the holdout partition.
func Train(examples []Example, opts classifier.Options) (*Bundle, error) {
	records := make([]vitals.Record, len(examples))
	urgencies := make([]label.Urgency, len(examples))
	for i, ex := range examples {
		records[i] = ex.Record
		urgencies[i] = ex.Urgency
	}

	features, err := vitals.BuildBatch(records)
	if err != nil {
		return nil, fmt.Errorf("build features: %w", err)
	}

	codec, err := label.NewCodec(urgencies)
	if err != nil {
		return nil, fmt.Errorf("build label codec: %w", err)
	}
	codes, err := codec.Encode(urgencies)
	if err != nil {
		return nil, fmt.Errorf("encode labels: %w", err)
	}

	model, err := classifier.Fit(features, codes, opts)
	if err != nil {
		return nil, fmt.Errorf("fit classifier: %w", err)
	}

	hx, hy := model.Holdout()
	report, err := classifier.Evaluate(model, hx, hy, codec.Names())
	if err != nil {
		return nil, fmt.Errorf("evaluate holdout: %w", err)
	}

	return &Bundle{
		Model:     model,
		Codec:     codec,
		Report:    report,
		Examples:  len(examples),
		TrainedAt: time.Now().UTC(),
	}, nil
}

// Validate checks that the model and codec agree on the label space.
func (b *Bundle) Validate() error {
	if b == nil || !b.Model.Trained() {
		return classifier.ErrModelNotTrained
	}
	if b.Codec.Len() == 0 {
		return label.ErrCodecNotInitialized
	}
	if b.Model.Classes() > b.Codec.Len() {
		return fmt.Errorf("%w: model emits %d classes but codec knows %d",
			label.ErrUnknownLabelCode, b.Model.Classes(), b.Codec.Len())
	}
	return nil
}

// Save writes the bundle as indented JSON.
func (b *Bundle) Save(w io.Writer) error {
	if err := b.Validate(); err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b); err != nil {
		return fmt.Errorf("encode bundle: %w", err)
	}
	return nil
}

// Load reads a bundle written by Save and validates it.
func Load(r io.Reader) (*Bundle, error) {
	var b Bundle
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}
	if b.Model == nil || b.Codec == nil {
		return nil, errors.New("bundle is missing model or codec")
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &b, nil
}
