package learn

import (
	"math"
	"math/rand"
	"sort"
)

// TreeNode is one node of a fitted tree. Leaves have Feature -1. Value holds
// class proportions for classification trees and a single output for
// regression trees.
type TreeNode struct {
	Feature   int       `json:"f"`
	Threshold float64   `json:"t,omitempty"`
	Left      int       `json:"l,omitempty"`
	Right     int       `json:"r,omitempty"`
	Value     []float64 `json:"v,omitempty"`
}

// Tree is a binary decision tree stored as a flat node slice with the root
// at index 0.
type Tree struct {
	Nodes []TreeNode `json:"nodes"`
}

func (t *Tree) leaf(x []float64) int {
	i := 0
	for t.Nodes[i].Feature >= 0 {
		n := t.Nodes[i]
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
	return i
}

// Predict returns the value of the leaf x falls into.
func (t *Tree) Predict(x []float64) []float64 {
	return t.Nodes[t.leaf(x)].Value
}

type treeConfig struct {
	maxDepth        int // 0 is unlimited
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int // 0 is every feature
}

// criterion accumulates sufficient statistics for a node and scores them.
// Removing a sample is adding it with a negative weight.
type criterion interface {
	width() int
	add(stats []float64, i int, w float64)
	weight(stats []float64) float64
	impurity(stats []float64) float64
	value(stats []float64) []float64
}

type gini struct {
	y       []int
	classes int
}

func (g *gini) width() int { return g.classes }

func (g *gini) add(stats []float64, i int, w float64) { stats[g.y[i]] += w }

func (g *gini) weight(stats []float64) float64 {
	total := 0.0
	for _, v := range stats {
		total += v
	}
	return total
}

func (g *gini) impurity(stats []float64) float64 {
	total := g.weight(stats)
	if total <= 0 {
		return 0
	}
	sum := 0.0
	for _, v := range stats {
		p := v / total
		sum += p * p
	}
	return 1 - sum
}

func (g *gini) value(stats []float64) []float64 {
	total := g.weight(stats)
	out := make([]float64, len(stats))
	for c, v := range stats {
		if total > 0 {
			out[c] = v / total
		}
	}
	return out
}

// squaredError scores regression targets by weighted variance.
type squaredError struct {
	y []float64
}

func (s *squaredError) width() int { return 3 }

func (s *squaredError) add(stats []float64, i int, w float64) {
	stats[0] += w
	stats[1] += w * s.y[i]
	stats[2] += w * s.y[i] * s.y[i]
}

func (s *squaredError) weight(stats []float64) float64 { return stats[0] }

func (s *squaredError) impurity(stats []float64) float64 {
	if stats[0] <= 0 {
		return 0
	}
	mean := stats[1] / stats[0]
	return math.Max(0, stats[2]/stats[0]-mean*mean)
}

func (s *squaredError) value(stats []float64) []float64 {
	if stats[0] <= 0 {
		return []float64{0}
	}
	return []float64{stats[1] / stats[0]}
}

type treeBuilder struct {
	rows       [][]float64
	weights    []float64
	crit       criterion
	cfg        treeConfig
	rng        *rand.Rand
	nodes      []TreeNode
	importance []float64
	sorted     []int
}

type split struct {
	feature   int
	threshold float64
	score     float64
	pos       int
}

// fitTree grows a tree over the samples with positive weight. It returns the
// tree and the unnormalized weighted impurity decrease per feature.
func fitTree(rows [][]float64, weights []float64, crit criterion, cfg treeConfig, rng *rand.Rand) (*Tree, []float64) {
	d := 0
	if len(rows) > 0 {
		d = len(rows[0])
	}
	if cfg.minSamplesSplit < 2 {
		cfg.minSamplesSplit = 2
	}
	if cfg.minSamplesLeaf < 1 {
		cfg.minSamplesLeaf = 1
	}
	if cfg.maxFeatures <= 0 || cfg.maxFeatures > d {
		cfg.maxFeatures = d
	}
	b := &treeBuilder{
		rows:       rows,
		weights:    weights,
		crit:       crit,
		cfg:        cfg,
		rng:        rng,
		importance: make([]float64, d),
		sorted:     make([]int, len(rows)),
	}
	var idx []int
	for i, w := range weights {
		if w > 0 {
			idx = append(idx, i)
		}
	}
	b.build(idx, 0)
	return &Tree{Nodes: b.nodes}, b.importance
}

func (b *treeBuilder) build(idx []int, depth int) int {
	stats := make([]float64, b.crit.width())
	for _, i := range idx {
		b.crit.add(stats, i, b.weights[i])
	}
	node := len(b.nodes)
	b.nodes = append(b.nodes, TreeNode{Feature: -1, Left: -1, Right: -1, Value: b.crit.value(stats)})

	imp := b.crit.impurity(stats)
	if (b.cfg.maxDepth > 0 && depth >= b.cfg.maxDepth) ||
		len(idx) < b.cfg.minSamplesSplit ||
		len(idx) < 2*b.cfg.minSamplesLeaf ||
		imp <= 1e-12 {
		return node
	}

	best, ok := b.bestSplit(idx, stats)
	if !ok {
		return node
	}

	left := make([]int, 0, best.pos)
	right := make([]int, 0, len(idx)-best.pos)
	for _, i := range idx {
		if b.rows[i][best.feature] <= best.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	b.importance[best.feature] += b.crit.weight(stats)*imp - best.score

	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	b.nodes[node] = TreeNode{
		Feature:   best.feature,
		Threshold: best.threshold,
		Left:      l,
		Right:     r,
		Value:     b.crit.value(stats),
	}
	return node
}

func (b *treeBuilder) candidates() []int {
	d := len(b.importance)
	if b.cfg.maxFeatures >= d {
		all := make([]int, d)
		for j := range all {
			all[j] = j
		}
		return all
	}
	return b.rng.Perm(d)[:b.cfg.maxFeatures]
}

// bestSplit scans every candidate feature for the threshold minimizing the
// weighted child impurity.
func (b *treeBuilder) bestSplit(idx []int, stats []float64) (split, bool) {
	n := len(idx)
	sorted := b.sorted[:n]
	left := make([]float64, len(stats))
	right := make([]float64, len(stats))
	best := split{score: math.Inf(1)}
	found := false

	for _, f := range b.candidates() {
		copy(sorted, idx)
		sort.Slice(sorted, func(a, c int) bool {
			return b.rows[sorted[a]][f] < b.rows[sorted[c]][f]
		})
		if b.rows[sorted[0]][f] >= b.rows[sorted[n-1]][f] {
			continue
		}
		for c := range left {
			left[c] = 0
		}
		copy(right, stats)
		for k := 0; k < n-1; k++ {
			i := sorted[k]
			b.crit.add(left, i, b.weights[i])
			b.crit.add(right, i, -b.weights[i])
			cur, next := b.rows[i][f], b.rows[sorted[k+1]][f]
			if next <= cur {
				continue
			}
			if k+1 < b.cfg.minSamplesLeaf || n-k-1 < b.cfg.minSamplesLeaf {
				continue
			}
			wl, wr := b.crit.weight(left), b.crit.weight(right)
			if wl <= 0 || wr <= 0 {
				continue
			}
			score := wl*b.crit.impurity(left) + wr*b.crit.impurity(right)
			if score < best.score {
				threshold := cur + (next-cur)/2
				if threshold >= next {
					threshold = cur
				}
				best = split{feature: f, threshold: threshold, score: score, pos: k + 1}
				found = true
			}
		}
	}
	return best, found
}
