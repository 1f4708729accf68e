package learn

import (
	"fmt"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const defaultKernelCacheRows = 512

// SVC is a binary support vector classifier trained with sequential minimal
// optimization. Probabilities come from a sigmoid fitted to cross-validated
// decision values, so PredictProba is only available when Probability is
// set before Fit. Hard labels use the sign of the decision value.
type SVC struct {
	C           float64 `json:"c"`
	Kernel      string  `json:"kernel"`
	GammaSpec   string  `json:"gamma_spec"`
	Degree      int     `json:"degree"`
	Coef0       float64 `json:"coef0"`
	ClassWeight string  `json:"class_weight,omitempty"`
	Tol         float64 `json:"tol"`
	MaxIter     int     `json:"max_iter"`
	Probability bool    `json:"probability"`
	CacheRows   int     `json:"-"`
	Seed        int64   `json:"seed"`

	Gamma          float64     `json:"gamma"`
	SupportVectors [][]float64 `json:"support_vectors"`
	DualCoef       []float64   `json:"dual_coef"`
	Rho            float64     `json:"rho"`
	PlattA         float64     `json:"platt_a"`
	PlattB         float64     `json:"platt_b"`
	Fitted         bool        `json:"fitted"`
}

// NewSVC reads C, kernel, gamma, degree, coef0 and class_weight. gamma is
// "scale", "auto" or a positive number.
func NewSVC(p Params, seed int64) (*SVC, error) {
	s := &SVC{Seed: seed, Tol: 1e-3, CacheRows: defaultKernelCacheRows}
	var err error
	if s.C, err = p.Float("C", 1); err != nil {
		return nil, err
	}
	if s.Kernel, err = p.Text("kernel", "rbf"); err != nil {
		return nil, err
	}
	if s.Degree, err = p.Int("degree", 3); err != nil {
		return nil, err
	}
	if s.Coef0, err = p.Float("coef0", 0); err != nil {
		return nil, err
	}
	if s.ClassWeight, err = p.Text("class_weight", ""); err != nil {
		return nil, err
	}
	if s.MaxIter, err = p.Int("max_iter", 0); err != nil {
		return nil, err
	}
	if s.Probability, err = p.Bool("probability", false); err != nil {
		return nil, err
	}
	switch g := p["gamma"].(type) {
	case nil:
		s.GammaSpec = "scale"
	case string:
		if g != "scale" && g != "auto" {
			return nil, fmt.Errorf("unsupported gamma %q", g)
		}
		s.GammaSpec = g
	default:
		if s.Gamma, err = p.Float("gamma", 0); err != nil {
			return nil, err
		}
		if s.Gamma <= 0 {
			return nil, fmt.Errorf("gamma must be positive, got %v", s.Gamma)
		}
	}
	if s.C <= 0 {
		return nil, fmt.Errorf("C must be positive, got %v", s.C)
	}
	switch s.Kernel {
	case "rbf", "poly", "linear":
	default:
		return nil, fmt.Errorf("unsupported kernel %q", s.Kernel)
	}
	switch s.ClassWeight {
	case "", "balanced":
	default:
		return nil, fmt.Errorf("unsupported class_weight %q", s.ClassWeight)
	}
	return s, nil
}

func (s *SVC) kernel(a, b []float64) float64 {
	switch s.Kernel {
	case "rbf":
		d := floats.Distance(a, b, 2)
		return math.Exp(-s.Gamma * d * d)
	case "poly":
		return math.Pow(s.Gamma*floats.Dot(a, b)+s.Coef0, float64(s.Degree))
	default:
		return floats.Dot(a, b)
	}
}

func (s *SVC) resolveGamma(X *mat.Dense) {
	_, d := X.Dims()
	switch s.GammaSpec {
	case "scale":
		v := stat.Variance(X.RawMatrix().Data, nil)
		// population variance over every element
		n := float64(len(X.RawMatrix().Data))
		if n > 1 {
			v *= (n - 1) / n
		}
		if v == 0 {
			s.Gamma = 1
		} else {
			s.Gamma = 1 / (float64(d) * v)
		}
	case "auto":
		s.Gamma = 1 / float64(d)
	}
}

// kernelRows serves rows of the training kernel matrix from an LRU cache.
type kernelRows struct {
	svc   *SVC
	rows  [][]float64
	cache *lru.Cache[int, []float64]
}

func (k *kernelRows) row(i int) []float64 {
	if r, ok := k.cache.Get(i); ok {
		return r
	}
	r := make([]float64, len(k.rows))
	for j := range k.rows {
		r[j] = k.svc.kernel(k.rows[i], k.rows[j])
	}
	k.cache.Add(i, r)
	return r
}

// Fit solves the dual problem and, when Probability is set, fits the
// probability sigmoid. Labels must be 0 or 1.
func (s *SVC) Fit(X *mat.Dense, y []int) error {
	n, _, err := checkXY(X, y)
	if err != nil {
		return err
	}
	if n < 2 {
		return fmt.Errorf("%w: svc needs at least 2 samples", ErrShape)
	}
	for _, label := range y {
		if label > 1 {
			return fmt.Errorf("svc is binary, got class %d", label)
		}
	}
	s.resolveGamma(X)
	rows := rowsOf(X)

	if s.Probability {
		dec, err := s.crossValDecisions(X, y)
		if err != nil {
			return err
		}
		s.PlattA, s.PlattB = plattFit(dec, y)
	}
	if err := s.train(rows, y); err != nil {
		return err
	}
	s.Fitted = true
	return nil
}

// crossValDecisions returns out-of-fold decision values for every sample.
func (s *SVC) crossValDecisions(X *mat.Dense, y []int) ([]float64, error) {
	dec := make([]float64, len(y))
	folds, err := StratifiedKFold(y, 5)
	if err != nil {
		// too few samples per class for cross-validation; fall back to
		// in-sample decision values
		rows := rowsOf(X)
		if err := s.train(rows, y); err != nil {
			return nil, err
		}
		for i, x := range rows {
			dec[i] = s.decision(x)
		}
		return dec, nil
	}
	for _, fold := range folds {
		inner := *s
		inner.Probability = false
		if err := inner.train(rowsOf(SubsetRows(X, fold.Train)), SubsetLabels(y, fold.Train)); err != nil {
			return nil, err
		}
		for _, i := range fold.Test {
			dec[i] = inner.decision(X.RawRowView(i))
		}
	}
	return dec, nil
}

func (s *SVC) train(rows [][]float64, y []int) error {
	n := len(rows)
	signs := make([]float64, n)
	for i, label := range y {
		signs[i] = -1
		if label == 1 {
			signs[i] = 1
		}
	}
	classWeight := []float64{1, 1}
	if s.ClassWeight == "balanced" {
		classWeight = balancedWeights(y, 2)
	}
	bound := make([]float64, n)
	for i, label := range y {
		bound[i] = s.C * classWeight[label]
	}

	cacheRows := s.CacheRows
	if cacheRows <= 0 {
		cacheRows = defaultKernelCacheRows
	}
	cache, err := lru.New[int, []float64](cacheRows)
	if err != nil {
		return fmt.Errorf("kernel cache: %w", err)
	}
	k := &kernelRows{svc: s, rows: rows, cache: cache}
	diag := make([]float64, n)
	for i := range diag {
		diag[i] = s.kernel(rows[i], rows[i])
	}

	alpha := make([]float64, n)
	grad := make([]float64, n)
	for i := range grad {
		grad[i] = -1
	}
	maxIter := s.MaxIter
	if maxIter <= 0 {
		maxIter = 100 * n
		if maxIter < 10000000 {
			maxIter = 10000000
		}
	}

	for iter := 0; iter < maxIter; iter++ {
		i, j := -1, -1
		gmax, gmin := math.Inf(-1), math.Inf(1)
		for t := 0; t < n; t++ {
			v := -signs[t] * grad[t]
			up := (signs[t] > 0 && alpha[t] < bound[t]) || (signs[t] < 0 && alpha[t] > 0)
			low := (signs[t] > 0 && alpha[t] > 0) || (signs[t] < 0 && alpha[t] < bound[t])
			if up && v >= gmax {
				gmax, i = v, t
			}
			if low && v <= gmin {
				gmin, j = v, t
			}
		}
		if i < 0 || j < 0 || gmax-gmin < s.Tol {
			break
		}

		ki, kj := k.row(i), k.row(j)
		oldI, oldJ := alpha[i], alpha[j]
		if signs[i] != signs[j] {
			quad := diag[i] + diag[j] - 2*ki[j]
			if quad <= 0 {
				quad = 1e-12
			}
			delta := (-grad[i] - grad[j]) / quad
			diff := alpha[i] - alpha[j]
			alpha[i] += delta
			alpha[j] += delta
			if diff > 0 {
				if alpha[j] < 0 {
					alpha[j] = 0
					alpha[i] = diff
				}
			} else if alpha[i] < 0 {
				alpha[i] = 0
				alpha[j] = -diff
			}
			if diff > bound[i]-bound[j] {
				if alpha[i] > bound[i] {
					alpha[i] = bound[i]
					alpha[j] = bound[i] - diff
				}
			} else if alpha[j] > bound[j] {
				alpha[j] = bound[j]
				alpha[i] = bound[j] + diff
			}
		} else {
			quad := diag[i] + diag[j] - 2*ki[j]
			if quad <= 0 {
				quad = 1e-12
			}
			delta := (grad[i] - grad[j]) / quad
			sum := alpha[i] + alpha[j]
			alpha[i] -= delta
			alpha[j] += delta
			if sum > bound[i] {
				if alpha[i] > bound[i] {
					alpha[i] = bound[i]
					alpha[j] = sum - bound[i]
				}
			} else if alpha[j] < 0 {
				alpha[j] = 0
				alpha[i] = sum
			}
			if sum > bound[j] {
				if alpha[j] > bound[j] {
					alpha[j] = bound[j]
					alpha[i] = sum - bound[j]
				}
			} else if alpha[i] < 0 {
				alpha[i] = 0
				alpha[j] = sum
			}
		}

		dI, dJ := alpha[i]-oldI, alpha[j]-oldJ
		for t := 0; t < n; t++ {
			grad[t] += signs[t] * (signs[i]*ki[t]*dI + signs[j]*kj[t]*dJ)
		}
	}

	s.Rho = computeRho(signs, alpha, grad, bound)
	s.SupportVectors, s.DualCoef = nil, nil
	for t := 0; t < n; t++ {
		if alpha[t] > 0 {
			s.SupportVectors = append(s.SupportVectors, append([]float64(nil), rows[t]...))
			s.DualCoef = append(s.DualCoef, alpha[t]*signs[t])
		}
	}
	return nil
}

func computeRho(signs, alpha, grad, bound []float64) float64 {
	ub, lb := math.Inf(1), math.Inf(-1)
	free, sum := 0, 0.0
	for t := range alpha {
		yg := signs[t] * grad[t]
		switch {
		case alpha[t] >= bound[t]:
			if signs[t] < 0 {
				ub = math.Min(ub, yg)
			} else {
				lb = math.Max(lb, yg)
			}
		case alpha[t] <= 0:
			if signs[t] > 0 {
				ub = math.Min(ub, yg)
			} else {
				lb = math.Max(lb, yg)
			}
		default:
			free++
			sum += yg
		}
	}
	if free > 0 {
		return sum / float64(free)
	}
	return (ub + lb) / 2
}

func (s *SVC) decision(x []float64) float64 {
	sum := -s.Rho
	for k, sv := range s.SupportVectors {
		sum += s.DualCoef[k] * s.kernel(sv, x)
	}
	return sum
}

// DecisionFunction returns the signed distance to the separating surface;
// positive values favour class 1.
func (s *SVC) DecisionFunction(X *mat.Dense) ([]float64, error) {
	if !s.Fitted {
		return nil, ErrNotFitted
	}
	n, _ := X.Dims()
	out := make([]float64, n)
	for i := range out {
		out[i] = s.decision(X.RawRowView(i))
	}
	return out, nil
}

// Predict labels by the sign of the decision value.
func (s *SVC) Predict(X *mat.Dense) ([]int, error) {
	dec, err := s.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(dec))
	for i, v := range dec {
		if v > 0 {
			out[i] = 1
		}
	}
	return out, nil
}

// PredictProba maps decision values through the fitted sigmoid.
func (s *SVC) PredictProba(X *mat.Dense) (*mat.Dense, error) {
	if s.Fitted && !s.Probability {
		return nil, fmt.Errorf("svc was fitted without probability estimates")
	}
	dec, err := s.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(len(dec), 2, nil)
	for i, v := range dec {
		p := sigmoid(-(v*s.PlattA + s.PlattB))
		out.Set(i, 0, 1-p)
		out.Set(i, 1, p)
	}
	return out, nil
}

// plattFit fits P(y=1|f) = 1 / (1 + exp(A*f + B)) by Newton's method with
// backtracking, using regularized targets.
func plattFit(dec []float64, y []int) (a, b float64) {
	const (
		maxIter = 100
		minStep = 1e-10
		sigma   = 1e-12
		eps     = 1e-5
	)
	var prior1, prior0 float64
	for _, label := range y {
		if label == 1 {
			prior1++
		} else {
			prior0++
		}
	}
	hi := (prior1 + 1) / (prior1 + 2)
	lo := 1 / (prior0 + 2)
	target := make([]float64, len(y))
	for i, label := range y {
		target[i] = lo
		if label == 1 {
			target[i] = hi
		}
	}

	objective := func(a, b float64) float64 {
		f := 0.0
		for i, d := range dec {
			z := d*a + b
			if z >= 0 {
				f += target[i]*z + math.Log1p(math.Exp(-z))
			} else {
				f += (target[i]-1)*z + math.Log1p(math.Exp(z))
			}
		}
		return f
	}

	a, b = 0, math.Log((prior0+1)/(prior1+1))
	fval := objective(a, b)
	for iter := 0; iter < maxIter; iter++ {
		h11, h22, h21, g1, g2 := sigma, sigma, 0.0, 0.0, 0.0
		for i, d := range dec {
			z := d*a + b
			var p, q float64
			if z >= 0 {
				e := math.Exp(-z)
				p, q = e/(1+e), 1/(1+e)
			} else {
				e := math.Exp(z)
				p, q = 1/(1+e), e/(1+e)
			}
			d2 := p * q
			h11 += d * d * d2
			h22 += d2
			h21 += d * d2
			d1 := target[i] - p
			g1 += d * d1
			g2 += d1
		}
		if math.Abs(g1) < eps && math.Abs(g2) < eps {
			break
		}
		det := h11*h22 - h21*h21
		dA := -(h22*g1 - h21*g2) / det
		dB := -(-h21*g1 + h11*g2) / det
		gd := g1*dA + g2*dB

		step := 1.0
		for step >= minStep {
			na, nb := a+step*dA, b+step*dB
			nf := objective(na, nb)
			if nf < fval+1e-4*step*gd {
				a, b, fval = na, nb, nf
				break
			}
			step /= 2
		}
		if step < minStep {
			break
		}
	}
	return a, b
}
