package learn

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// RandomForest is a bagged ensemble of gini trees. Each tree sees a
// bootstrap sample and a random feature subset at every split.
type RandomForest struct {
	NEstimators     int    `json:"n_estimators"`
	MaxDepth        int    `json:"max_depth"`
	MinSamplesSplit int    `json:"min_samples_split"`
	MinSamplesLeaf  int    `json:"min_samples_leaf"`
	MaxFeatures     string `json:"max_features"`
	ClassWeight     string `json:"class_weight,omitempty"`
	Seed            int64  `json:"seed"`

	NumClasses  int       `json:"num_classes"`
	NumFeatures int       `json:"num_features"`
	Trees       []*Tree   `json:"trees"`
	Importances []float64 `json:"feature_importances"`
}

// NewRandomForest reads n_estimators, max_depth, min_samples_split,
// min_samples_leaf, max_features and class_weight.
func NewRandomForest(p Params, seed int64) (*RandomForest, error) {
	rf := &RandomForest{Seed: seed}
	var err error
	if rf.NEstimators, err = p.Int("n_estimators", 100); err != nil {
		return nil, err
	}
	if rf.MaxDepth, err = p.Int("max_depth", 0); err != nil {
		return nil, err
	}
	if rf.MinSamplesSplit, err = p.Int("min_samples_split", 2); err != nil {
		return nil, err
	}
	if rf.MinSamplesLeaf, err = p.Int("min_samples_leaf", 1); err != nil {
		return nil, err
	}
	if rf.MaxFeatures, err = p.Text("max_features", "sqrt"); err != nil {
		return nil, err
	}
	if rf.ClassWeight, err = p.Text("class_weight", ""); err != nil {
		return nil, err
	}
	if rf.NEstimators < 1 {
		return nil, fmt.Errorf("n_estimators must be positive, got %d", rf.NEstimators)
	}
	switch rf.MaxFeatures {
	case "sqrt", "log2", "", "all":
	default:
		return nil, fmt.Errorf("unsupported max_features %q", rf.MaxFeatures)
	}
	switch rf.ClassWeight {
	case "", "balanced":
	default:
		return nil, fmt.Errorf("unsupported class_weight %q", rf.ClassWeight)
	}
	return rf, nil
}

func (rf *RandomForest) featuresPerSplit(d int) int {
	var m int
	switch rf.MaxFeatures {
	case "sqrt":
		m = int(math.Sqrt(float64(d)))
	case "log2":
		m = int(math.Log2(float64(d)))
	default:
		m = d
	}
	if m < 1 {
		m = 1
	}
	return m
}

// Fit grows the forest.
func (rf *RandomForest) Fit(X *mat.Dense, y []int) error {
	n, d, err := checkXY(X, y)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: no samples", ErrShape)
	}
	rf.NumClasses = numClasses(y)
	rf.NumFeatures = d
	classWeight := make([]float64, rf.NumClasses)
	for c := range classWeight {
		classWeight[c] = 1
	}
	if rf.ClassWeight == "balanced" {
		classWeight = balancedWeights(y, rf.NumClasses)
	}

	rows := rowsOf(X)
	crit := &gini{y: y, classes: rf.NumClasses}
	cfg := treeConfig{
		maxDepth:        rf.MaxDepth,
		minSamplesSplit: rf.MinSamplesSplit,
		minSamplesLeaf:  rf.MinSamplesLeaf,
		maxFeatures:     rf.featuresPerSplit(d),
	}
	master := rand.New(rand.NewSource(rf.Seed))
	rf.Trees = make([]*Tree, rf.NEstimators)
	total := make([]float64, d)
	weights := make([]float64, n)
	for t := range rf.Trees {
		rng := rand.New(rand.NewSource(master.Int63()))
		for i := range weights {
			weights[i] = 0
		}
		for i := 0; i < n; i++ {
			weights[rng.Intn(n)]++
		}
		for i := range weights {
			weights[i] *= classWeight[y[i]]
		}
		tree, imp := fitTree(rows, weights, crit, cfg, rng)
		rf.Trees[t] = tree
		normalizeInto(total, imp)
	}
	rf.Importances = normalize(total)
	return nil
}

// normalizeInto adds imp scaled to unit sum into acc. All-zero input adds
// nothing.
func normalizeInto(acc, imp []float64) {
	sum := 0.0
	for _, v := range imp {
		sum += v
	}
	if sum <= 0 {
		return
	}
	for j, v := range imp {
		acc[j] += v / sum
	}
}

func normalize(v []float64) []float64 {
	out := make([]float64, len(v))
	normalizeInto(out, v)
	return out
}

// PredictProba averages the leaf class distributions of every tree.
func (rf *RandomForest) PredictProba(X *mat.Dense) (*mat.Dense, error) {
	if len(rf.Trees) == 0 {
		return nil, ErrNotFitted
	}
	n, d := X.Dims()
	if d != rf.NumFeatures {
		return nil, fmt.Errorf("%w: forest fitted on %d features, got %d", ErrShape, rf.NumFeatures, d)
	}
	out := mat.NewDense(n, rf.NumClasses, nil)
	scale := 1 / float64(len(rf.Trees))
	for i := 0; i < n; i++ {
		x := X.RawRowView(i)
		dst := out.RawRowView(i)
		for _, tree := range rf.Trees {
			for c, p := range tree.Predict(x) {
				dst[c] += p * scale
			}
		}
	}
	return out, nil
}

// FeatureImportances returns the mean impurity decrease per feature,
// normalized to sum to one.
func (rf *RandomForest) FeatureImportances() []float64 {
	return append([]float64(nil), rf.Importances...)
}
