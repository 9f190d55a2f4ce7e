package classifier

import (
	"fmt"
	"strconv"

	"github.com/linnemanlabs/oasis/internal/vitals"
)

// ClassMetrics holds precision, recall and F1 for one class, or an average of them.
type ClassMetrics struct {
	Label     string  `json:"label,omitempty"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Report summarizes predictions against known labels.
type Report struct {
	Classes     []ClassMetrics `json:"classes"`
	Accuracy    float64        `json:"accuracy"`
	MacroAvg    ClassMetrics   `json:"macro_avg"`
	WeightedAvg ClassMetrics   `json:"weighted_avg"`
	Samples     int            `json:"samples"`
}

// Evaluate predicts every example and computes per-class metrics. names maps
// label codes to display names; missing names fall back to the numeric code.
// Ratios with a zero denominator are reported as 0.
func Evaluate(m *Model, features []vitals.FeatureVector, labels []int, names []string) (*Report, error) {
	if !m.Trained() {
		return nil, ErrModelNotTrained
	}
	if len(features) != len(labels) {
		return nil, fmt.Errorf("evaluate: %d feature vectors but %d labels", len(features), len(labels))
	}

	k := max(m.classes, len(names))
	for _, y := range labels {
		if y < 0 || y >= k {
			return nil, fmt.Errorf("evaluate: %w: code %d, want 0..%d", ErrLabelOutOfRange, y, k-1)
		}
	}

	tp := make([]int, k)
	predicted := make([]int, k)
	support := make([]int, k)
	correct := 0

	for i, fv := range features {
		got, err := m.Predict(fv)
		if err != nil {
			return nil, err
		}
		want := labels[i]
		support[want]++
		predicted[got]++
		if got == want {
			tp[want]++
			correct++
		}
	}

	r := &Report{Samples: len(features), Classes: make([]ClassMetrics, k)}
	if r.Samples > 0 {
		r.Accuracy = float64(correct) / float64(r.Samples)
	}

	for c := 0; c < k; c++ {
		cm := ClassMetrics{
			Label:     className(names, c),
			Precision: ratio(tp[c], predicted[c]),
			Recall:    ratio(tp[c], support[c]),
			Support:   support[c],
		}
		if cm.Precision+cm.Recall > 0 {
			cm.F1 = 2 * cm.Precision * cm.Recall / (cm.Precision + cm.Recall)
		}
		r.Classes[c] = cm

		r.MacroAvg.Precision += cm.Precision / float64(k)
		r.MacroAvg.Recall += cm.Recall / float64(k)
		r.MacroAvg.F1 += cm.F1 / float64(k)
		if r.Samples > 0 {
			w := float64(cm.Support) / float64(r.Samples)
			r.WeightedAvg.Precision += cm.Precision * w
			r.WeightedAvg.Recall += cm.Recall * w
			r.WeightedAvg.F1 += cm.F1 * w
		}
	}
	r.MacroAvg.Support = r.Samples
	r.WeightedAvg.Support = r.Samples

	return r, nil
}

func className(names []string, code int) string {
	if code < len(names) && names[code] != "" {
		return names[code]
	}
	return strconv.Itoa(code)
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
