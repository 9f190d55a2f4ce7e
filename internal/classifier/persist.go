package classifier

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/linnemanlabs/oasis/internal/vitals"
)

const modelFormatVersion = 1

type modelJSON struct {
	Version   int                    `json:"version"`
	Options   Options                `json:"options"`
	Classes   int                    `json:"classes"`
	TrainSize int                    `json:"train_size"`
	Tree      *node                  `json:"tree"`
	HoldoutX  []vitals.FeatureVector `json:"holdout_features"`
	HoldoutY  []int                  `json:"holdout_labels"`
}

// MarshalJSON encodes the tree, options and holdout partition.
func (m *Model) MarshalJSON() ([]byte, error) {
	if !m.Trained() {
		return nil, ErrModelNotTrained
	}
	return json.Marshal(modelJSON{
		Version:   modelFormatVersion,
		Options:   m.opts,
		Classes:   m.classes,
		TrainSize: m.trainSize,
		Tree:      m.root,
		HoldoutX:  m.holdoutX,
		HoldoutY:  m.holdoutY,
	})
}

// UnmarshalJSON restores a model and checks the tree is structurally sound,
// so a corrupt file fails at load time instead of at the first prediction.
func (m *Model) UnmarshalJSON(b []byte) error {
	var mj modelJSON
	if err := json.Unmarshal(b, &mj); err != nil {
		return err
	}
	if mj.Version != modelFormatVersion {
		return fmt.Errorf("unsupported model format version %d", mj.Version)
	}
	if mj.Tree == nil {
		return errors.New("model has no tree")
	}
	if mj.Classes < 2 {
		return fmt.Errorf("model has %d classes, need at least 2", mj.Classes)
	}
	if len(mj.HoldoutX) != len(mj.HoldoutY) {
		return fmt.Errorf("holdout has %d feature vectors but %d labels", len(mj.HoldoutX), len(mj.HoldoutY))
	}
	if err := checkNode(mj.Tree, mj.Classes, 0, mj.Options.MaxDepth); err != nil {
		return err
	}
	if n := mj.TrainSize + len(mj.HoldoutY); mj.Classes > n {
		return fmt.Errorf("%w: %d classes from %d examples", ErrLabelOutOfRange, mj.Classes, n)
	}
	for _, y := range mj.HoldoutY {
		if y < 0 || y >= mj.Classes {
			return fmt.Errorf("%w: holdout label %d outside [0,%d)", ErrLabelOutOfRange, y, mj.Classes)
		}
	}

	*m = Model{
		root:      mj.Tree,
		classes:   mj.Classes,
		opts:      mj.Options,
		trainSize: mj.TrainSize,
		holdoutX:  mj.HoldoutX,
		holdoutY:  mj.HoldoutY,
	}
	return nil
}

func checkNode(n *node, classes, depth, maxDepth int) error {
	if n.Label < 0 || n.Label >= classes {
		return fmt.Errorf("node at depth %d has label %d outside [0,%d)", depth, n.Label, classes)
	}
	if (n.Left == nil) != (n.Right == nil) {
		return fmt.Errorf("node at depth %d has exactly one child", depth)
	}
	if n.leaf() {
		return nil
	}
	if maxDepth > 0 && depth >= maxDepth {
		return fmt.Errorf("tree deeper than max depth %d", maxDepth)
	}
	if n.Feature < 0 || n.Feature >= vitals.NumFeatures {
		return fmt.Errorf("node at depth %d splits on feature %d", depth, n.Feature)
	}
	if err := checkNode(n.Left, classes, depth+1, maxDepth); err != nil {
		return err
	}
	return checkNode(n.Right, classes, depth+1, maxDepth)
}
