package training

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/cornerstats/fight-predictor/internal/learn"
)

// Family names, in the order the ensemble lists its members.
const (
	FamilyRandomForest     = "random_forest"
	FamilyGradientBoosting = "gradient_boosting"
	FamilySVM              = "svm"
	FamilyMLP              = "mlp"
)

var familyOrder = []string{FamilyRandomForest, FamilyGradientBoosting, FamilySVM, FamilyMLP}

// ParamGrid maps a hyper-parameter name to the values to try.
type ParamGrid map[string][]any

// Expand enumerates every combination. Keys are visited in sorted order and
// the last key varies fastest, so enumeration order is stable.
func (g ParamGrid) Expand() []learn.Params {
	keys := make([]string, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := []learn.Params{{}}
	for _, k := range keys {
		next := make([]learn.Params, 0, len(out)*len(g[k]))
		for _, p := range out {
			for _, v := range g[k] {
				q := p.Clone()
				q[k] = v
				next = append(next, q)
			}
		}
		out = next
	}
	return out
}

// Family is one classifier family taking part in model selection.
type Family struct {
	Name string
	Grid ParamGrid
	New  learn.Factory
	// Final builds the model refit on the whole training split. Nil means New.
	Final learn.Factory
}

// DefaultGrids returns the search space of every family.
func DefaultGrids() map[string]ParamGrid {
	return map[string]ParamGrid{
		FamilyRandomForest: {
			"n_estimators":      {300, 500, 700},
			"max_depth":         {15, 20, 25},
			"min_samples_split": {2, 5},
			"min_samples_leaf":  {1, 2},
			"max_features":      {"sqrt", "log2"},
			"class_weight":      {"balanced"},
		},
		FamilyGradientBoosting: {
			"n_estimators":      {200, 300, 400},
			"learning_rate":     {0.05, 0.1, 0.15},
			"max_depth":         {6, 8, 10},
			"subsample":         {0.8, 0.9, 1.0},
			"min_samples_split": {2, 5},
		},
		FamilySVM: {
			"C":            {0.1, 1.0, 10.0, 100.0},
			"gamma":        {"scale", "auto", 0.001, 0.01},
			"kernel":       {"rbf", "poly"},
			"class_weight": {"balanced"},
		},
		FamilyMLP: {
			"hidden_layer_sizes": {[]int{100}, []int{100, 50}, []int{100, 50, 25}},
			"alpha":              {0.0001, 0.001, 0.01},
			"learning_rate_init": {0.001, 0.01},
			"max_iter":           {500},
			"early_stopping":     {true},
		},
	}
}

func factory(name string) (learn.Factory, learn.Factory, error) {
	switch name {
	case FamilyRandomForest:
		return func(p learn.Params, seed int64) (learn.Classifier, error) {
			return learn.NewRandomForest(p, seed)
		}, nil, nil
	case FamilyGradientBoosting:
		return func(p learn.Params, seed int64) (learn.Classifier, error) {
			return learn.NewGradientBoosting(p, seed)
		}, nil, nil
	case FamilySVM:
		newSVC := func(p learn.Params, seed int64) (learn.Classifier, error) {
			return learn.NewSVC(p, seed)
		}
		withProbability := func(p learn.Params, seed int64) (learn.Classifier, error) {
			q := p.Clone()
			q["probability"] = true
			return learn.NewSVC(q, seed)
		}
		return newSVC, withProbability, nil
	case FamilyMLP:
		return func(p learn.Params, seed int64) (learn.Classifier, error) {
			return learn.NewMLP(p, seed)
		}, nil, nil
	}
	return nil, nil, fmt.Errorf("unknown model family %q", name)
}

// Families turns grids into families in ensemble order. Every family must
// have a grid.
func Families(grids map[string]ParamGrid) ([]Family, error) {
	for name := range grids {
		if _, _, err := factory(name); err != nil {
			return nil, err
		}
	}
	out := make([]Family, 0, len(familyOrder))
	for _, name := range familyOrder {
		grid, ok := grids[name]
		if !ok {
			return nil, fmt.Errorf("no search grid for %s", name)
		}
		newFn, final, _ := factory(name)
		out = append(out, Family{Name: name, Grid: grid, New: newFn, Final: final})
	}
	return out, nil
}

type gridSpec struct {
	Family string           `validate:"required,oneof=random_forest gradient_boosting svm mlp"`
	Params map[string][]any `validate:"required,min=1,dive,min=1"`
}

var validate = validator.New()

// ReadGrids decodes a YAML search-grid document. Families absent from the
// document keep their default grid.
func ReadGrids(r io.Reader) (map[string]ParamGrid, error) {
	var doc map[string]map[string][]any
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode grid file: %w", err)
	}
	grids := DefaultGrids()
	for name, params := range doc {
		if err := validate.Struct(gridSpec{Family: name, Params: params}); err != nil {
			return nil, fmt.Errorf("grid %q: %w", name, err)
		}
		grids[name] = ParamGrid(params)
	}
	return grids, nil
}

// LoadGrids reads a YAML grid file.
func LoadGrids(path string) (map[string]ParamGrid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadGrids(f)
}
