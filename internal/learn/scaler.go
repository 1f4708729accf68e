package learn

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/cornerstats/fight-predictor/internal/numeric"
)

// RobustScaler centers each column on its median and divides by its
// interquartile range. A column with zero spread keeps a scale of 1.
type RobustScaler struct {
	Center []float64 `json:"center"`
	Scale  []float64 `json:"scale"`
}

// Fit learns per-column medians and IQRs.
func (s *RobustScaler) Fit(X *mat.Dense) error {
	if X == nil {
		return fmt.Errorf("%w: nil input", ErrShape)
	}
	n, d := X.Dims()
	if n == 0 {
		return fmt.Errorf("%w: no rows", ErrShape)
	}
	s.Center = make([]float64, d)
	s.Scale = make([]float64, d)
	col := make([]float64, n)
	for j := 0; j < d; j++ {
		mat.Col(col, j, X)
		med, ok := numeric.Quantile(col, 0.5)
		if !ok {
			return fmt.Errorf("column %d has no finite values", j)
		}
		q1, _ := numeric.Quantile(col, 0.25)
		q3, _ := numeric.Quantile(col, 0.75)
		s.Center[j] = med
		s.Scale[j] = q3 - q1
		if s.Scale[j] == 0 {
			s.Scale[j] = 1
		}
	}
	return nil
}

// Transform returns a scaled copy of X.
func (s *RobustScaler) Transform(X *mat.Dense) (*mat.Dense, error) {
	if s.Center == nil {
		return nil, ErrNotFitted
	}
	n, d := X.Dims()
	if d != len(s.Center) {
		return nil, fmt.Errorf("%w: scaler fitted on %d columns, got %d", ErrShape, len(s.Center), d)
	}
	out := mat.NewDense(n, d, nil)
	out.Apply(func(_, j int, v float64) float64 {
		return (v - s.Center[j]) / s.Scale[j]
	}, X)
	return out, nil
}

// FitTransform fits on X and returns it scaled.
func (s *RobustScaler) FitTransform(X *mat.Dense) (*mat.Dense, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}
