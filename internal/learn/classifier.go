// Package learn implements the estimators used by model selection: a robust
// scaler, a univariate feature selector and four classifier families, all
// operating on gonum dense matrices with integer class labels 0..k-1.
package learn

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/cornerstats/fight-predictor/internal/numeric"
)

var (
	// ErrNotFitted is returned when a model is used before Fit.
	ErrNotFitted = errors.New("model is not fitted")
	// ErrShape is returned for mismatched input dimensions.
	ErrShape = errors.New("dimension mismatch")
)

// Classifier is a probabilistic classifier. PredictProba returns one row per
// sample and one column per class.
type Classifier interface {
	Fit(X *mat.Dense, y []int) error
	PredictProba(X *mat.Dense) (*mat.Dense, error)
}

// LabelPredictor is implemented by classifiers whose hard decision is not
// the arg-max of their probabilities, such as a margin classifier.
type LabelPredictor interface {
	Predict(X *mat.Dense) ([]int, error)
}

// Factory builds an unfitted classifier from hyper-parameters.
type Factory func(params Params, seed int64) (Classifier, error)

// Predict returns hard labels for X.
func Predict(c Classifier, X *mat.Dense) ([]int, error) {
	if lp, ok := c.(LabelPredictor); ok {
		return lp.Predict(X)
	}
	proba, err := c.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return ArgMaxRows(proba), nil
}

// ArgMaxRows returns the arg-max column of each row. Ties resolve to the
// lowest class index.
func ArgMaxRows(m *mat.Dense) []int {
	r, _ := m.Dims()
	out := make([]int, r)
	for i := 0; i < r; i++ {
		out[i] = numeric.ArgMax(m.RawRowView(i))
	}
	return out
}

func checkXY(X *mat.Dense, y []int) (n, d int, err error) {
	if X == nil {
		return 0, 0, fmt.Errorf("%w: nil input", ErrShape)
	}
	n, d = X.Dims()
	if n != len(y) {
		return 0, 0, fmt.Errorf("%w: %d rows, %d labels", ErrShape, n, len(y))
	}
	for _, label := range y {
		if label < 0 {
			return 0, 0, fmt.Errorf("negative class label %d", label)
		}
	}
	return n, d, nil
}

func numClasses(y []int) int {
	k := 2
	for _, label := range y {
		if label+1 > k {
			k = label + 1
		}
	}
	return k
}

func rowsOf(X *mat.Dense) [][]float64 {
	n, _ := X.Dims()
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = X.RawRowView(i)
	}
	return rows
}

// balancedWeights returns n / (k * count_c) per class, the inverse class
// frequency weighting.
func balancedWeights(y []int, k int) []float64 {
	counts := make([]float64, k)
	for _, label := range y {
		counts[label]++
	}
	weights := make([]float64, k)
	present := 0
	for _, c := range counts {
		if c > 0 {
			present++
		}
	}
	for c := range weights {
		if counts[c] > 0 {
			weights[c] = float64(len(y)) / (float64(present) * counts[c])
		}
	}
	return weights
}

// SubsetRows copies the given rows of X into a new matrix.
func SubsetRows(X *mat.Dense, idx []int) *mat.Dense {
	_, d := X.Dims()
	out := mat.NewDense(len(idx), d, nil)
	for i, src := range idx {
		out.SetRow(i, X.RawRowView(src))
	}
	return out
}

// SubsetLabels returns y at the given positions.
func SubsetLabels(y []int, idx []int) []int {
	out := make([]int, len(idx))
	for i, src := range idx {
		out[i] = y[src]
	}
	return out
}
