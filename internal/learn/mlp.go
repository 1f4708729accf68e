package learn

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Layer is one fully connected layer; Weights is In x Out, row-major.
type Layer struct {
	In      int       `json:"in"`
	Out     int       `json:"out"`
	Weights []float64 `json:"weights"`
	Bias    []float64 `json:"bias"`
}

func (l *Layer) matrix() *mat.Dense { return mat.NewDense(l.In, l.Out, l.Weights) }

// MLP is a feed-forward network with ReLU hidden layers and a softmax
// output, trained by mini-batch Adam on cross-entropy with an L2 penalty.
type MLP struct {
	HiddenLayers     []int   `json:"hidden_layer_sizes"`
	Alpha            float64 `json:"alpha"`
	LearningRateInit float64 `json:"learning_rate_init"`
	MaxIter          int     `json:"max_iter"`
	BatchSize        int     `json:"batch_size"`
	EarlyStopping    bool    `json:"early_stopping"`
	ValidationFrac   float64 `json:"validation_fraction"`
	NIterNoChange    int     `json:"n_iter_no_change"`
	Tol              float64 `json:"tol"`
	Seed             int64   `json:"seed"`

	NumClasses int     `json:"num_classes"`
	Layers     []Layer `json:"layers"`
	Epochs     int     `json:"epochs"`
}

// NewMLP reads hidden_layer_sizes, alpha, learning_rate_init, max_iter,
// batch_size and early_stopping.
func NewMLP(p Params, seed int64) (*MLP, error) {
	m := &MLP{Seed: seed, ValidationFrac: 0.1, NIterNoChange: 10, Tol: 1e-4}
	var err error
	if m.HiddenLayers, err = p.Ints("hidden_layer_sizes", []int{100}); err != nil {
		return nil, err
	}
	if m.Alpha, err = p.Float("alpha", 1e-4); err != nil {
		return nil, err
	}
	if m.LearningRateInit, err = p.Float("learning_rate_init", 1e-3); err != nil {
		return nil, err
	}
	if m.MaxIter, err = p.Int("max_iter", 200); err != nil {
		return nil, err
	}
	if m.BatchSize, err = p.Int("batch_size", 200); err != nil {
		return nil, err
	}
	if m.EarlyStopping, err = p.Bool("early_stopping", false); err != nil {
		return nil, err
	}
	for _, h := range m.HiddenLayers {
		if h < 1 {
			return nil, fmt.Errorf("hidden layer sizes must be positive, got %v", m.HiddenLayers)
		}
	}
	if m.MaxIter < 1 || m.BatchSize < 1 {
		return nil, fmt.Errorf("max_iter and batch_size must be positive")
	}
	if m.LearningRateInit <= 0 || m.Alpha < 0 {
		return nil, fmt.Errorf("invalid learning_rate_init %v or alpha %v", m.LearningRateInit, m.Alpha)
	}
	return m, nil
}

type adam struct {
	lr, beta1, beta2, eps float64
	t                     int
	m, v                  [][]float64
}

func newAdam(lr float64, params [][]float64) *adam {
	a := &adam{lr: lr, beta1: 0.9, beta2: 0.999, eps: 1e-8}
	for _, p := range params {
		a.m = append(a.m, make([]float64, len(p)))
		a.v = append(a.v, make([]float64, len(p)))
	}
	return a
}

func (a *adam) step(params, grads [][]float64) {
	a.t++
	lr := a.lr * math.Sqrt(1-math.Pow(a.beta2, float64(a.t))) / (1 - math.Pow(a.beta1, float64(a.t)))
	for k, p := range params {
		g := grads[k]
		m, v := a.m[k], a.v[k]
		for i := range p {
			m[i] = a.beta1*m[i] + (1-a.beta1)*g[i]
			v[i] = a.beta2*v[i] + (1-a.beta2)*g[i]*g[i]
			p[i] -= lr * m[i] / (math.Sqrt(v[i]) + a.eps)
		}
	}
}

// Fit trains the network. With early stopping a held-out share of the
// samples scores every epoch and the best weights are kept.
func (m *MLP) Fit(X *mat.Dense, y []int) error {
	n, d, err := checkXY(X, y)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: no samples", ErrShape)
	}
	m.NumClasses = numClasses(y)
	rng := rand.New(rand.NewSource(m.Seed))

	sizes := append([]int{d}, m.HiddenLayers...)
	sizes = append(sizes, m.NumClasses)
	m.Layers = make([]Layer, len(sizes)-1)
	for l := range m.Layers {
		in, out := sizes[l], sizes[l+1]
		bound := math.Sqrt(6 / float64(in+out))
		layer := Layer{In: in, Out: out, Weights: make([]float64, in*out), Bias: make([]float64, out)}
		for i := range layer.Weights {
			layer.Weights[i] = (rng.Float64()*2 - 1) * bound
		}
		for i := range layer.Bias {
			layer.Bias[i] = (rng.Float64()*2 - 1) * bound
		}
		m.Layers[l] = layer
	}

	trainIdx := make([]int, n)
	for i := range trainIdx {
		trainIdx[i] = i
	}
	var valIdx []int
	early := m.EarlyStopping && n >= 10
	if early {
		perm := rng.Perm(n)
		nVal := int(math.Ceil(m.ValidationFrac * float64(n)))
		valIdx, trainIdx = perm[:nVal], perm[nVal:]
	}
	Xtrain, ytrain := SubsetRows(X, trainIdx), SubsetLabels(y, trainIdx)
	var Xval *mat.Dense
	var yval []int
	if early {
		Xval, yval = SubsetRows(X, valIdx), SubsetLabels(y, valIdx)
	}

	var params [][]float64
	for l := range m.Layers {
		params = append(params, m.Layers[l].Weights, m.Layers[l].Bias)
	}
	opt := newAdam(m.LearningRateInit, params)
	grads := make([][]float64, len(params))
	for k, p := range params {
		grads[k] = make([]float64, len(p))
	}

	nTrain := len(trainIdx)
	batch := m.BatchSize
	if batch > nTrain {
		batch = nTrain
	}
	best := math.Inf(-1)
	bestLoss := math.Inf(1)
	var bestLayers []Layer
	stale := 0

	for epoch := 0; epoch < m.MaxIter; epoch++ {
		m.Epochs = epoch + 1
		perm := rng.Perm(nTrain)
		loss := 0.0
		for start := 0; start < nTrain; start += batch {
			end := start + batch
			if end > nTrain {
				end = nTrain
			}
			idx := perm[start:end]
			loss += m.backprop(SubsetRows(Xtrain, idx), SubsetLabels(ytrain, idx), grads) * float64(len(idx))
			opt.step(params, grads)
		}
		loss /= float64(nTrain)

		if early {
			proba, err := m.PredictProba(Xval)
			if err != nil {
				return err
			}
			score := Accuracy(yval, ArgMaxRows(proba))
			if score < best+m.Tol {
				stale++
			} else {
				stale = 0
			}
			if score > best {
				best = score
				bestLayers = cloneLayers(m.Layers)
			}
		} else {
			if loss > bestLoss-m.Tol {
				stale++
			} else {
				stale = 0
			}
			if loss < bestLoss {
				bestLoss = loss
			}
		}
		if stale > m.NIterNoChange {
			break
		}
	}
	if early && bestLayers != nil {
		m.Layers = bestLayers
	}
	return nil
}

func cloneLayers(layers []Layer) []Layer {
	out := make([]Layer, len(layers))
	for i, l := range layers {
		out[i] = Layer{
			In:      l.In,
			Out:     l.Out,
			Weights: append([]float64(nil), l.Weights...),
			Bias:    append([]float64(nil), l.Bias...),
		}
	}
	return out
}

// forward returns the activations of every layer, input first.
func (m *MLP) forward(X *mat.Dense) []*mat.Dense {
	acts := []*mat.Dense{X}
	for l := range m.Layers {
		layer := &m.Layers[l]
		var z mat.Dense
		z.Mul(acts[l], layer.matrix())
		r, _ := z.Dims()
		for i := 0; i < r; i++ {
			floats.Add(z.RawRowView(i), layer.Bias)
		}
		if l < len(m.Layers)-1 {
			z.Apply(func(_, _ int, v float64) float64 { return math.Max(0, v) }, &z)
		} else {
			for i := 0; i < r; i++ {
				softmax(z.RawRowView(i))
			}
		}
		acts = append(acts, &z)
	}
	return acts
}

func softmax(row []float64) {
	peak := floats.Max(row)
	sum := 0.0
	for k, v := range row {
		row[k] = math.Exp(v - peak)
		sum += row[k]
	}
	floats.Scale(1/sum, row)
}

// backprop fills grads for one batch and returns its penalized loss.
func (m *MLP) backprop(X *mat.Dense, y []int, grads [][]float64) float64 {
	acts := m.forward(X)
	n, _ := X.Dims()
	out := acts[len(acts)-1]

	loss := 0.0
	delta := mat.NewDense(n, m.NumClasses, nil)
	delta.Copy(out)
	for i, label := range y {
		loss -= math.Log(math.Max(out.At(i, label), 1e-10))
		delta.Set(i, label, delta.At(i, label)-1)
	}
	delta.Scale(1/float64(n), delta)
	loss /= float64(n)
	penalty := 0.0
	for _, layer := range m.Layers {
		penalty += floats.Dot(layer.Weights, layer.Weights)
	}
	loss += 0.5 * m.Alpha * penalty / float64(n)

	for l := len(m.Layers) - 1; l >= 0; l-- {
		layer := &m.Layers[l]
		var gw mat.Dense
		gw.Mul(acts[l].T(), delta)
		gwData := grads[2*l]
		copy(gwData, gw.RawMatrix().Data)
		floats.AddScaled(gwData, m.Alpha/float64(n), layer.Weights)

		gb := grads[2*l+1]
		for k := range gb {
			gb[k] = 0
		}
		for i := 0; i < n; i++ {
			floats.Add(gb, delta.RawRowView(i))
		}

		if l > 0 {
			var prev mat.Dense
			prev.Mul(delta, layer.matrix().T())
			act := acts[l]
			prev.Apply(func(i, j int, v float64) float64 {
				if act.At(i, j) <= 0 {
					return 0
				}
				return v
			}, &prev)
			delta = &prev
		}
	}
	return loss
}

// PredictProba returns the softmax output per row.
func (m *MLP) PredictProba(X *mat.Dense) (*mat.Dense, error) {
	if len(m.Layers) == 0 {
		return nil, ErrNotFitted
	}
	_, d := X.Dims()
	if d != m.Layers[0].In {
		return nil, fmt.Errorf("%w: network expects %d features, got %d", ErrShape, m.Layers[0].In, d)
	}
	acts := m.forward(X)
	return acts[len(acts)-1], nil
}
