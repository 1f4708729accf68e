// Package numeric holds the small order-statistic helpers shared by the
// feature pipeline and the estimators.
package numeric

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Quantile returns the p-quantile of values using linear interpolation
// at rank (n-1)p (the "linear" method of most dataframe libraries).
// stat.Quantile has no such mode, so the interpolation is done here.
// NaN entries are ignored. ok is false when no finite value remains.
func Quantile(values []float64, p float64) (q float64, ok bool) {
	sorted := DropNaN(values)
	if len(sorted) == 0 {
		return math.NaN(), false
	}
	sort.Float64s(sorted)
	return SortedQuantile(sorted, p), true
}

// SortedQuantile is Quantile for an already sorted, NaN-free slice.
func SortedQuantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	switch {
	case p <= 0:
		return sorted[0]
	case p >= 1:
		return sorted[n-1]
	}
	h := float64(n-1) * p
	lo := int(math.Floor(h))
	hi := lo + 1
	if hi >= n {
		return sorted[lo]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[hi]-sorted[lo])
}

// Median is Quantile(values, 0.5).
func Median(values []float64) (float64, bool) {
	return Quantile(values, 0.5)
}

// DropNaN returns a copy of values without NaN entries.
func DropNaN(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// ArgMax returns the index of the largest value. Ties resolve to the lowest
// index, and an empty slice returns -1.
func ArgMax(values []float64) int {
	if len(values) == 0 {
		return -1
	}
	return floats.MaxIdx(values)
}
