package classifier

import (
	"sort"

	"github.com/linnemanlabs/oasis/internal/vitals"
)

// minGain is the smallest impurity reduction treated as a real improvement.
const minGain = 1e-12

type node struct {
	Feature   int     `json:"feature,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
	Left      *node   `json:"left,omitempty"`
	Right     *node   `json:"right,omitempty"`
	Label     int     `json:"label"`
	Samples   int     `json:"samples"`
	Impurity  float64 `json:"impurity"`
}

func (n *node) leaf() bool {
	return n.Left == nil && n.Right == nil
}

func (n *node) depth() int {
	if n.leaf() {
		return 0
	}
	return 1 + max(n.Left.depth(), n.Right.depth())
}

func (n *node) leaves() int {
	if n.leaf() {
		return 1
	}
	return n.Left.leaves() + n.Right.leaves()
}

type grower struct {
	x       []vitals.FeatureVector
	y       []int
	classes int
	opts    Options
}

type split struct {
	feature   int
	threshold float64
	gain      float64
}

func (g *grower) grow(idx []int, depth int) *node {
	counts := g.counts(idx)
	n := &node{
		Label:    majority(counts),
		Samples:  len(idx),
		Impurity: gini(counts, len(idx)),
	}

	if depth >= g.opts.MaxDepth || len(idx) < g.opts.MinSamplesSplit || n.Impurity == 0 {
		return n
	}

	best, ok := g.bestSplit(idx, counts, n.Impurity)
	if !ok {
		return n
	}

	var left, right []int
	for _, i := range idx {
		if g.x[i][best.feature] <= best.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	n.Feature = best.feature
	n.Threshold = best.threshold
	n.Left = g.grow(left, depth+1)
	n.Right = g.grow(right, depth+1)
	return n
}

// bestSplit scans every feature and midpoint threshold. Only a strictly
// larger gain replaces the incumbent, so ties resolve to the lowest feature
// index and then the lowest threshold.
func (g *grower) bestSplit(idx []int, parent []int, parentImpurity float64) (split, bool) {
	best := split{gain: minGain}
	found := false
	total := float64(len(idx))

	order := make([]int, len(idx))
	left := make([]int, g.classes)

	for f := 0; f < vitals.NumFeatures; f++ {
		copy(order, idx)
		sort.SliceStable(order, func(a, b int) bool { return g.x[order[a]][f] < g.x[order[b]][f] })

		clear(left)
		nLeft := 0
		for k := 0; k < len(order)-1; k++ {
			left[g.y[order[k]]]++
			nLeft++

			cur, next := g.x[order[k]][f], g.x[order[k+1]][f]
			if cur == next {
				continue
			}

			nRight := len(order) - nLeft
			right := make([]int, g.classes)
			for c := range right {
				right[c] = parent[c] - left[c]
			}

			weighted := (float64(nLeft)*gini(left, nLeft) + float64(nRight)*gini(right, nRight)) / total
			gain := parentImpurity - weighted
			if gain > best.gain {
				best = split{feature: f, threshold: cur + (next-cur)/2, gain: gain}
				found = true
			}
		}
	}
	return best, found
}

func (g *grower) counts(idx []int) []int {
	c := make([]int, g.classes)
	for _, i := range idx {
		c[g.y[i]]++
	}
	return c
}

func gini(counts []int, n int) float64 {
	if n == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range counts {
		p := float64(c) / float64(n)
		sum += p * p
	}
	return 1 - sum
}

// majority returns the most frequent code, lowest code on ties.
func majority(counts []int) int {
	best := 0
	for c := 1; c < len(counts); c++ {
		if counts[c] > counts[best] {
			best = c
		}
	}
	return best
}
