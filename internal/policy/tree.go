package policy

import (
	"errors"
	"fmt"
	"sort"

	"pacplan/internal/model"
)

const DefaultMaxDepth = 5

var ErrNoTrainingData = errors.New("no training samples")

// Classifier maps a feature vector to a move code.
type Classifier interface {
	Predict(f Features) int
}

// Tree is a binary CART classifier. Internal nodes send x[feature] <= threshold
// to the left child.
type Tree struct {
	nodes    []model.TreeNode
	maxDepth int
	classes  int
}

// FitTree grows a Gini tree of at most maxDepth levels. Splits are searched
// feature by feature over midpoints of sorted distinct values; the first
// strictly best split wins, so fitting is deterministic.
func FitTree(samples []Sample, classes, maxDepth int) (*Tree, error) {
	if len(samples) == 0 {
		return nil, ErrNoTrainingData
	}
	if classes <= 0 {
		return nil, fmt.Errorf("class count must be > 0")
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	for i, s := range samples {
		if s.Label < 0 || s.Label >= classes {
			return nil, fmt.Errorf("sample %d: label %d outside [0, %d)", i, s.Label, classes)
		}
	}

	t := &Tree{maxDepth: maxDepth, classes: classes}
	idx := make([]int, len(samples))
	for i := range idx {
		idx[i] = i
	}
	t.grow(samples, idx, 0)
	return t, nil
}

func (t *Tree) grow(samples []Sample, idx []int, depth int) int {
	counts := classCounts(samples, idx, t.classes)
	node := model.TreeNode{
		Feature:  -1,
		Left:     -1,
		Right:    -1,
		Class:    argmax(counts),
		Samples:  len(idx),
		Impurity: gini(counts, len(idx)),
		Counts:   counts,
	}
	id := len(t.nodes)
	t.nodes = append(t.nodes, node)

	if depth >= t.maxDepth || len(idx) < 2 || node.Impurity == 0 {
		return id
	}
	feature, threshold, ok := t.bestSplit(samples, idx, node.Impurity)
	if !ok {
		return id
	}

	var left, right []int
	for _, i := range idx {
		if samples[i].Features[feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	t.nodes[id].Feature = feature
	t.nodes[id].Threshold = threshold
	l := t.grow(samples, left, depth+1)
	r := t.grow(samples, right, depth+1)
	t.nodes[id].Left = l
	t.nodes[id].Right = r
	return id
}

func (t *Tree) bestSplit(samples []Sample, idx []int, parentImpurity float64) (int, float64, bool) {
	n := float64(len(idx))
	bestGain := 0.0
	bestFeature := -1
	bestThreshold := 0.0

	sorted := make([]int, len(idx))
	for feature := 0; feature < featureCount; feature++ {
		copy(sorted, idx)
		sort.SliceStable(sorted, func(a, b int) bool {
			return samples[sorted[a]].Features[feature] < samples[sorted[b]].Features[feature]
		})

		left := make([]int, t.classes)
		right := classCounts(samples, sorted, t.classes)
		for k := 0; k < len(sorted)-1; k++ {
			label := samples[sorted[k]].Label
			left[label]++
			right[label]--

			v := samples[sorted[k]].Features[feature]
			next := samples[sorted[k+1]].Features[feature]
			if v == next {
				continue
			}
			nl := float64(k + 1)
			nr := n - nl
			weighted := (nl*gini(left, k+1) + nr*gini(right, len(sorted)-k-1)) / n
			if gain := parentImpurity - weighted; gain > bestGain+1e-12 {
				bestGain = gain
				bestFeature = feature
				bestThreshold = (v + next) / 2
			}
		}
	}
	return bestFeature, bestThreshold, bestFeature >= 0
}

// Predict walks the tree from the root to a leaf.
func (t *Tree) Predict(f Features) int {
	if len(t.nodes) == 0 {
		return -1
	}
	i := 0
	for {
		node := t.nodes[i]
		if node.Feature < 0 || node.Feature >= featureCount {
			return node.Class
		}
		if f[node.Feature] <= node.Threshold {
			i = node.Left
		} else {
			i = node.Right
		}
		if i < 0 || i >= len(t.nodes) {
			return -1
		}
	}
}

func (t *Tree) Nodes() []model.TreeNode {
	out := make([]model.TreeNode, len(t.nodes))
	copy(out, t.nodes)
	return out
}

func (t *Tree) MaxDepth() int { return t.maxDepth }

// Depth is the realized depth of the tree; a lone leaf has depth 0.
func (t *Tree) Depth() int {
	var walk func(i, d int) int
	walk = func(i, d int) int {
		node := t.nodes[i]
		if node.Feature < 0 {
			return d
		}
		return max(walk(node.Left, d+1), walk(node.Right, d+1))
	}
	if len(t.nodes) == 0 {
		return 0
	}
	return walk(0, 0)
}

// Accuracy is the share of samples the tree labels correctly.
func (t *Tree) Accuracy(samples []Sample) float64 {
	if len(samples) == 0 {
		return 0
	}
	hits := 0
	for _, s := range samples {
		if t.Predict(s.Features) == s.Label {
			hits++
		}
	}
	return float64(hits) / float64(len(samples))
}

// TreeFromModel rebuilds a tree from persisted nodes, checking child links.
func TreeFromModel(c model.Classifier) (*Tree, error) {
	if len(c.Nodes) == 0 {
		return nil, fmt.Errorf("classifier %s has no nodes", c.ID)
	}
	if len(c.Features) != featureCount {
		return nil, fmt.Errorf("classifier %s: feature count mismatch: got=%d want=%d", c.ID, len(c.Features), featureCount)
	}
	for i, name := range c.Features {
		if name != FeatureNames[i] {
			return nil, fmt.Errorf("classifier %s: feature %d is %q, want %q", c.ID, i, name, FeatureNames[i])
		}
	}
	for i, node := range c.Nodes {
		if node.Feature < 0 {
			continue
		}
		if node.Feature >= featureCount {
			return nil, fmt.Errorf("classifier %s: node %d splits on unknown feature %d", c.ID, i, node.Feature)
		}
		if node.Left <= i || node.Right <= i || node.Left >= len(c.Nodes) || node.Right >= len(c.Nodes) {
			return nil, fmt.Errorf("classifier %s: node %d has invalid children %d/%d", c.ID, i, node.Left, node.Right)
		}
	}
	nodes := make([]model.TreeNode, len(c.Nodes))
	copy(nodes, c.Nodes)
	classes := len(c.Classes)
	if classes == 0 {
		classes = len(ClassNames)
	}
	return &Tree{nodes: nodes, maxDepth: c.MaxDepth, classes: classes}, nil
}

func classCounts(samples []Sample, idx []int, classes int) []int {
	counts := make([]int, classes)
	for _, i := range idx {
		counts[samples[i].Label]++
	}
	return counts
}

func gini(counts []int, total int) float64 {
	if total == 0 {
		return 0
	}
	impurity := 1.0
	for _, c := range counts {
		p := float64(c) / float64(total)
		impurity -= p * p
	}
	return impurity
}

func argmax(counts []int) int {
	best := 0
	for i, c := range counts {
		if c > counts[best] {
			best = i
		}
	}
	return best
}
