package learn

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// FClassif computes the one-way ANOVA F statistic of every column against
// the class labels, with its p-value. A column that is constant within every
// class scores +Inf, or NaN when it is constant overall.
func FClassif(X *mat.Dense, y []int) (scores, pvalues []float64, err error) {
	n, d, err := checkXY(X, y)
	if err != nil {
		return nil, nil, err
	}
	k := numClasses(y)
	counts := make([]float64, k)
	for _, label := range y {
		counts[label]++
	}
	groups := 0
	for _, c := range counts {
		if c > 0 {
			groups++
		}
	}
	dfBetween := float64(groups - 1)
	dfWithin := float64(n - groups)
	if dfBetween <= 0 || dfWithin <= 0 {
		return nil, nil, fmt.Errorf("f-test needs at least 2 classes and more samples than classes")
	}
	dist := distuv.F{D1: dfBetween, D2: dfWithin}

	scores = make([]float64, d)
	pvalues = make([]float64, d)
	sums := make([]float64, k)
	for j := 0; j < d; j++ {
		for c := range sums {
			sums[c] = 0
		}
		total := 0.0
		for i := 0; i < n; i++ {
			v := X.At(i, j)
			sums[y[i]] += v
			total += v
		}
		mean := total / float64(n)
		var ssb, ssw float64
		for c := range sums {
			if counts[c] == 0 {
				continue
			}
			diff := sums[c]/counts[c] - mean
			ssb += counts[c] * diff * diff
		}
		for i := 0; i < n; i++ {
			diff := X.At(i, j) - sums[y[i]]/counts[y[i]]
			ssw += diff * diff
		}
		switch {
		case ssw == 0 && ssb == 0:
			scores[j], pvalues[j] = math.NaN(), math.NaN()
		case ssw == 0:
			scores[j], pvalues[j] = math.Inf(1), 0
		default:
			f := (ssb / dfBetween) / (ssw / dfWithin)
			scores[j], pvalues[j] = f, dist.Survival(f)
		}
	}
	return scores, pvalues, nil
}

// SelectKBest keeps the K columns with the highest F scores. NaN scores rank
// below every finite score. Among equal scores the later column wins.
type SelectKBest struct {
	K       int       `json:"k"`
	Support []bool    `json:"support"`
	Scores  []float64 `json:"-"`
	PValues []float64 `json:"-"`
}

// Fit scores every column and records which ones are kept. When K is at
// least the column count every column is kept.
func (s *SelectKBest) Fit(X *mat.Dense, y []int) error {
	if s.K <= 0 {
		return fmt.Errorf("k must be positive, got %d", s.K)
	}
	scores, pvalues, err := FClassif(X, y)
	if err != nil {
		return err
	}
	s.Scores, s.PValues = scores, pvalues
	d := len(scores)
	s.Support = make([]bool, d)
	if s.K >= d {
		for j := range s.Support {
			s.Support[j] = true
		}
		return nil
	}
	order := make([]int, d)
	for j := range order {
		order[j] = j
	}
	clean := func(v float64) float64 {
		if math.IsNaN(v) {
			return -math.MaxFloat64
		}
		return v
	}
	sort.SliceStable(order, func(a, b int) bool {
		return clean(scores[order[a]]) < clean(scores[order[b]])
	})
	for _, j := range order[d-s.K:] {
		s.Support[j] = true
	}
	return nil
}

// Indices returns the kept column positions in ascending order.
func (s *SelectKBest) Indices() []int {
	var idx []int
	for j, keep := range s.Support {
		if keep {
			idx = append(idx, j)
		}
	}
	return idx
}

// Transform returns the kept columns of X.
func (s *SelectKBest) Transform(X *mat.Dense) (*mat.Dense, error) {
	if s.Support == nil {
		return nil, ErrNotFitted
	}
	n, d := X.Dims()
	if d != len(s.Support) {
		return nil, fmt.Errorf("%w: selector fitted on %d columns, got %d", ErrShape, len(s.Support), d)
	}
	idx := s.Indices()
	out := mat.NewDense(n, len(idx), nil)
	for i := 0; i < n; i++ {
		row := X.RawRowView(i)
		dst := out.RawRowView(i)
		for c, j := range idx {
			dst[c] = row[j]
		}
	}
	return out, nil
}

// FitTransform fits on X and returns the kept columns.
func (s *SelectKBest) FitTransform(X *mat.Dense, y []int) (*mat.Dense, error) {
	if err := s.Fit(X, y); err != nil {
		return nil, err
	}
	return s.Transform(X)
}
