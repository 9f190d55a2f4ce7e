// Package classifier trains and evaluates a bounded-depth decision tree that
// maps vitals feature vectors to urgency codes.
//
// A Model is immutable once Fit returns it and is safe for concurrent Predict
// calls. The zero Model is untrained.
package classifier

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/linnemanlabs/oasis/internal/vitals"
)

var (
	// ErrInsufficientTrainingData is returned when Fit cannot build a meaningful tree.
	ErrInsufficientTrainingData = errors.New("insufficient training data")

	// ErrModelNotTrained is returned when predicting with a model that was never fit.
	ErrModelNotTrained = errors.New("model not trained")

	// ErrLabelOutOfRange is returned when a label code is negative or not below the example count.
	ErrLabelOutOfRange = errors.New("label code out of range")
)

// Options controls tree growth and the train/holdout partition.
type Options struct {
	MaxDepth        int     `json:"max_depth"`
	MinSamplesSplit int     `json:"min_samples_split"`
	HoldoutRatio    float64 `json:"holdout_ratio"`
	Seed            uint64  `json:"seed"`
}

// DefaultOptions returns depth 3, min split 2, a 30% holdout and seed 42.
func DefaultOptions() Options {
	return Options{
		MaxDepth:        3,
		MinSamplesSplit: 2,
		HoldoutRatio:    0.3,
		Seed:            42,
	}
}

// Validate checks option ranges.
func (o Options) Validate() error {
	var errs []error
	if o.MaxDepth < 1 {
		errs = append(errs, fmt.Errorf("invalid max depth %d (must be >= 1)", o.MaxDepth))
	}
	if o.MinSamplesSplit < 2 {
		errs = append(errs, fmt.Errorf("invalid min samples split %d (must be >= 2)", o.MinSamplesSplit))
	}
	if o.HoldoutRatio < 0 || o.HoldoutRatio >= 1 || math.IsNaN(o.HoldoutRatio) {
		errs = append(errs, fmt.Errorf("invalid holdout ratio %v (must be in [0,1))", o.HoldoutRatio))
	}
	return errors.Join(errs...)
}

// Model is a trained decision tree plus the holdout partition it was not trained on.
type Model struct {
	root      *node
	classes   int
	opts      Options
	trainSize int
	holdoutX  []vitals.FeatureVector
	holdoutY  []int
}

// Fit partitions the examples, grows a tree on the training partition and
// returns a new Model. Identical inputs and options always yield identical models.
func Fit(features []vitals.FeatureVector, labels []int, opts Options) (*Model, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("classifier options: %w", err)
	}
	if len(features) == 0 {
		return nil, fmt.Errorf("%w: no examples", ErrInsufficientTrainingData)
	}
	if len(features) != len(labels) {
		return nil, fmt.Errorf("%w: %d feature vectors but %d labels", ErrInsufficientTrainingData, len(features), len(labels))
	}

	classes := 0
	distinct := make(map[int]struct{})
	for i, y := range labels {
		// codes are dense codec indices, so none can reach len(labels)
		if y < 0 || y >= len(labels) {
			return nil, fmt.Errorf("%w: code %d at index %d, want 0..%d", ErrLabelOutOfRange, y, i, len(labels)-1)
		}
		distinct[y] = struct{}{}
		if y+1 > classes {
			classes = y + 1
		}
	}
	if len(distinct) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 distinct labels, got %d", ErrInsufficientTrainingData, len(distinct))
	}

	train, holdout := partition(len(features), opts.HoldoutRatio, opts.Seed)
	if len(train) == 0 {
		return nil, fmt.Errorf("%w: holdout ratio %v leaves no training examples out of %d",
			ErrInsufficientTrainingData, opts.HoldoutRatio, len(features))
	}

	g := grower{x: features, y: labels, classes: classes, opts: opts}
	m := &Model{
		root:      g.grow(train, 0),
		classes:   classes,
		opts:      opts,
		trainSize: len(train),
		holdoutX:  make([]vitals.FeatureVector, len(holdout)),
		holdoutY:  make([]int, len(holdout)),
	}
	for i, idx := range holdout {
		m.holdoutX[i] = features[idx]
		m.holdoutY[i] = labels[idx]
	}
	return m, nil
}

// partition shuffles example indices with a seeded PCG source and splits off
// the first ceil(n*ratio) as holdout.
func partition(n int, ratio float64, seed uint64) (train, holdout []int) {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) //nolint:gosec // reproducible split, not security
	perm := r.Perm(n)
	nHold := int(math.Ceil(float64(n) * ratio))
	if nHold > n {
		nHold = n
	}
	return perm[nHold:], perm[:nHold]
}

// Trained reports whether m came from Fit or a valid load.
func (m *Model) Trained() bool {
	return m != nil && m.root != nil
}

// Predict walks the tree for fv and returns the leaf's majority label code.
func (m *Model) Predict(fv vitals.FeatureVector) (int, error) {
	if !m.Trained() {
		return 0, ErrModelNotTrained
	}
	n := m.root
	for !n.leaf() {
		if fv[n.Feature] <= n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return n.Label, nil
}

// PredictBatch predicts every vector in order.
func (m *Model) PredictBatch(fvs []vitals.FeatureVector) ([]int, error) {
	out := make([]int, len(fvs))
	for i, fv := range fvs {
		y, err := m.Predict(fv)
		if err != nil {
			return nil, err
		}
		out[i] = y
	}
	return out, nil
}

// Holdout returns copies of the examples Fit held out of training.
func (m *Model) Holdout() ([]vitals.FeatureVector, []int) {
	if m == nil {
		return nil, nil
	}
	x := make([]vitals.FeatureVector, len(m.holdoutX))
	copy(x, m.holdoutX)
	y := make([]int, len(m.holdoutY))
	copy(y, m.holdoutY)
	return x, y
}

// Options returns the options the model was fit with.
func (m *Model) Options() Options {
	if m == nil {
		return Options{}
	}
	return m.opts
}

// Classes returns the number of label codes the model can emit (max code + 1).
func (m *Model) Classes() int {
	if m == nil {
		return 0
	}
	return m.classes
}

// TrainSize returns the number of examples in the training partition.
func (m *Model) TrainSize() int {
	if m == nil {
		return 0
	}
	return m.trainSize
}

// Depth returns the depth of the deepest leaf; a single-leaf tree has depth 0.
func (m *Model) Depth() int {
	if !m.Trained() {
		return 0
	}
	return m.root.depth()
}

// Leaves returns the number of leaves.
func (m *Model) Leaves() int {
	if !m.Trained() {
		return 0
	}
	return m.root.leaves()
}
