package learn

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// GradientBoosting is a binary classifier built from regression trees fitted
// to the log-loss gradient, with Newton-step leaf values.
type GradientBoosting struct {
	NEstimators     int     `json:"n_estimators"`
	LearningRate    float64 `json:"learning_rate"`
	MaxDepth        int     `json:"max_depth"`
	MinSamplesSplit int     `json:"min_samples_split"`
	MinSamplesLeaf  int     `json:"min_samples_leaf"`
	Subsample       float64 `json:"subsample"`
	Seed            int64   `json:"seed"`

	NumFeatures int     `json:"num_features"`
	Init        float64 `json:"init"`
	Trees       []*Tree `json:"trees"`
}

// NewGradientBoosting reads n_estimators, learning_rate, max_depth,
// min_samples_split, min_samples_leaf and subsample.
func NewGradientBoosting(p Params, seed int64) (*GradientBoosting, error) {
	gb := &GradientBoosting{Seed: seed}
	var err error
	if gb.NEstimators, err = p.Int("n_estimators", 100); err != nil {
		return nil, err
	}
	if gb.LearningRate, err = p.Float("learning_rate", 0.1); err != nil {
		return nil, err
	}
	if gb.MaxDepth, err = p.Int("max_depth", 3); err != nil {
		return nil, err
	}
	if gb.MinSamplesSplit, err = p.Int("min_samples_split", 2); err != nil {
		return nil, err
	}
	if gb.MinSamplesLeaf, err = p.Int("min_samples_leaf", 1); err != nil {
		return nil, err
	}
	if gb.Subsample, err = p.Float("subsample", 1); err != nil {
		return nil, err
	}
	if gb.NEstimators < 1 {
		return nil, fmt.Errorf("n_estimators must be positive, got %d", gb.NEstimators)
	}
	if gb.LearningRate <= 0 {
		return nil, fmt.Errorf("learning_rate must be positive, got %v", gb.LearningRate)
	}
	if gb.Subsample <= 0 || gb.Subsample > 1 {
		return nil, fmt.Errorf("subsample must be in (0, 1], got %v", gb.Subsample)
	}
	return gb, nil
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// Fit boosts NEstimators trees. Labels must be 0 or 1.
func (gb *GradientBoosting) Fit(X *mat.Dense, y []int) error {
	n, d, err := checkXY(X, y)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: no samples", ErrShape)
	}
	positives := 0.0
	for _, label := range y {
		if label > 1 {
			return fmt.Errorf("gradient boosting is binary, got class %d", label)
		}
		positives += float64(label)
	}
	p := math.Min(math.Max(positives/float64(n), 1e-15), 1-1e-15)
	gb.Init = math.Log(p / (1 - p))
	gb.NumFeatures = d

	rows := rowsOf(X)
	rng := rand.New(rand.NewSource(gb.Seed))
	raw := make([]float64, n)
	for i := range raw {
		raw[i] = gb.Init
	}
	residual := make([]float64, n)
	weights := make([]float64, n)
	cfg := treeConfig{
		maxDepth:        gb.MaxDepth,
		minSamplesSplit: gb.MinSamplesSplit,
		minSamplesLeaf:  gb.MinSamplesLeaf,
	}
	inBag := int(gb.Subsample * float64(n))
	if inBag < 1 {
		inBag = 1
	}

	gb.Trees = make([]*Tree, gb.NEstimators)
	for m := range gb.Trees {
		for i := range residual {
			residual[i] = float64(y[i]) - sigmoid(raw[i])
		}
		if inBag == n {
			for i := range weights {
				weights[i] = 1
			}
		} else {
			for i := range weights {
				weights[i] = 0
			}
			for _, i := range rng.Perm(n)[:inBag] {
				weights[i] = 1
			}
		}
		tree, _ := fitTree(rows, weights, &squaredError{y: residual}, cfg, rng)

		num := make([]float64, len(tree.Nodes))
		den := make([]float64, len(tree.Nodes))
		for i := 0; i < n; i++ {
			if weights[i] == 0 {
				continue
			}
			leaf := tree.leaf(rows[i])
			prob := sigmoid(raw[i])
			num[leaf] += residual[i]
			den[leaf] += prob * (1 - prob)
		}
		for k := range tree.Nodes {
			if tree.Nodes[k].Feature >= 0 {
				continue
			}
			v := 0.0
			if math.Abs(den[k]) > 1e-150 {
				v = num[k] / den[k]
			}
			tree.Nodes[k].Value = []float64{v}
		}
		for i := 0; i < n; i++ {
			raw[i] += gb.LearningRate * tree.Predict(rows[i])[0]
		}
		gb.Trees[m] = tree
	}
	return nil
}

// DecisionFunction returns the raw log-odds of class 1 per row.
func (gb *GradientBoosting) DecisionFunction(X *mat.Dense) ([]float64, error) {
	if len(gb.Trees) == 0 {
		return nil, ErrNotFitted
	}
	n, d := X.Dims()
	if d != gb.NumFeatures {
		return nil, fmt.Errorf("%w: boosting fitted on %d features, got %d", ErrShape, gb.NumFeatures, d)
	}
	out := make([]float64, n)
	for i := range out {
		x := X.RawRowView(i)
		raw := gb.Init
		for _, tree := range gb.Trees {
			raw += gb.LearningRate * tree.Predict(x)[0]
		}
		out[i] = raw
	}
	return out, nil
}

// PredictProba returns [P(0), P(1)] per row.
func (gb *GradientBoosting) PredictProba(X *mat.Dense) (*mat.Dense, error) {
	raw, err := gb.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(len(raw), 2, nil)
	for i, r := range raw {
		p := sigmoid(r)
		out.Set(i, 0, 1-p)
		out.Set(i, 1, p)
	}
	return out, nil
}
