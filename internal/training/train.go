// Package training selects, tunes and combines the classifiers that make up
// a predictor artifact.
package training

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/cornerstats/fight-predictor/internal/features"
	"github.com/cornerstats/fight-predictor/internal/learn"
	"github.com/cornerstats/fight-predictor/internal/predictor"
)

// Config controls a training run.
type Config struct {
	K       int
	Folds   int
	Seed    int64
	Workers int
	Grids   map[string]ParamGrid
	Logger  *zap.Logger
}

// DefaultConfig returns the standard search settings.
func DefaultConfig() Config {
	return Config{
		K:       20,
		Folds:   5,
		Seed:    42,
		Workers: runtime.NumCPU(),
		Grids:   DefaultGrids(),
	}
}

// Dataset is a labeled feature matrix in chronological order together with
// the imputation medians the features were built with.
type Dataset struct {
	Features features.Matrix
	Labels   []string
	Medians  features.Medians
}

// SplitSizes returns the chronological train, validation and test sizes for
// n rows: the first 70%, the next 15% and the remainder.
func SplitSizes(n int) (train, validation, test int) {
	train = int(0.7 * float64(n))
	validation = int(0.15 * float64(n))
	return train, validation, n - train - validation
}

// EncodeLabels maps labels to class indices in sorted class order.
func EncodeLabels(labels []string) ([]string, []int, error) {
	seen := map[string]bool{}
	for i, l := range labels {
		if l == "" {
			return nil, nil, fmt.Errorf("%w: empty label at row %d", ErrTraining, i)
		}
		seen[l] = true
	}
	classes := make([]string, 0, len(seen))
	for l := range seen {
		classes = append(classes, l)
	}
	sort.Strings(classes)
	if len(classes) != 2 {
		return nil, nil, fmt.Errorf("%w: need exactly 2 classes, got %v", ErrTraining, classes)
	}
	index := make(map[string]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	y := make([]int, len(labels))
	for i, l := range labels {
		y[i] = index[l]
	}
	return classes, y, nil
}

type split struct {
	X *mat.Dense
	y []int
}

func rowRange(X *mat.Dense, y []int, from, to int) split {
	idx := make([]int, to-from)
	for i := range idx {
		idx[i] = from + i
	}
	return split{X: learn.SubsetRows(X, idx), y: learn.SubsetLabels(y, idx)}
}

// Train fits the scaler and selector on the training split, grid-searches
// every family, combines the winners into a soft-voting ensemble and scores
// everything on the validation and test splits.
func Train(ctx context.Context, cfg Config, ds Dataset) (*predictor.Artifact, error) {
	log := zap.NewNop().Sugar()
	if cfg.Logger != nil {
		log = cfg.Logger.Sugar()
	}
	n := ds.Features.Rows()
	if n != len(ds.Labels) {
		return nil, fmt.Errorf("%w: %d feature rows, %d labels", ErrTraining, n, len(ds.Labels))
	}
	nTrain, nVal, nTest := SplitSizes(n)
	if nTrain < cfg.Folds || nVal == 0 || nTest == 0 {
		return nil, fmt.Errorf("%w: %d rows is too few to split", ErrTraining, n)
	}
	if _, err := features.NewFitted(ds.Medians); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTraining, err)
	}
	classes, y, err := EncodeLabels(ds.Labels)
	if err != nil {
		return nil, err
	}
	families, err := Families(cfg.Grids)
	if err != nil {
		return nil, err
	}

	train := rowRange(ds.Features.Data, y, 0, nTrain)
	val := rowRange(ds.Features.Data, y, nTrain, nTrain+nVal)
	test := rowRange(ds.Features.Data, y, nTrain+nVal, n)
	log.Infow("Chronological split", "train", nTrain, "validation", nVal, "test", nTest)

	scaler := &learn.RobustScaler{}
	if err := scaler.Fit(train.X); err != nil {
		return nil, fmt.Errorf("fit scaler: %w", err)
	}
	selector := &learn.SelectKBest{K: cfg.K}
	prepare := func(s split) (split, error) {
		scaled, err := scaler.Transform(s.X)
		if err != nil {
			return s, err
		}
		if selector.Support == nil {
			if err := selector.Fit(scaled, s.y); err != nil {
				return s, fmt.Errorf("fit selector: %w", err)
			}
		}
		selected, err := selector.Transform(scaled)
		return split{X: selected, y: s.y}, err
	}
	if train, err = prepare(train); err != nil {
		return nil, err
	}
	if val, err = prepare(val); err != nil {
		return nil, err
	}
	if test, err = prepare(test); err != nil {
		return nil, err
	}
	selected := make([]string, 0, cfg.K)
	for _, j := range selector.Indices() {
		selected = append(selected, ds.Features.Columns[j])
	}
	log.Infow("Selected features", "count", len(selected), "features", selected)

	searcher := &Searcher{Folds: cfg.Folds, Seed: cfg.Seed, Workers: cfg.Workers, Logger: cfg.Logger}
	metrics := &predictor.Metrics{TrainRows: nTrain, ValidationRows: nVal, TestRows: nTest}
	members := make([]learn.Member, 0, len(families))
	for _, fam := range families {
		res, err := searcher.Search(ctx, fam, train.X, train.y)
		if err != nil {
			return nil, err
		}
		mm := predictor.ModelMetrics{Name: fam.Name, Params: res.BestParams, CVScore: res.BestScore}
		if mm.ValidationAccuracy, err = score(res.Best, val); err != nil {
			return nil, fmt.Errorf("score %s: %w", fam.Name, err)
		}
		if mm.TestAccuracy, err = score(res.Best, test); err != nil {
			return nil, fmt.Errorf("score %s: %w", fam.Name, err)
		}
		metrics.Models = append(metrics.Models, mm)
		members = append(members, learn.Member{Name: fam.Name, Model: res.Best})
		log.Infow("Model scored", "model", fam.Name, "validation_accuracy", mm.ValidationAccuracy, "test_accuracy", mm.TestAccuracy)
	}

	ensemble := learn.NewSoftVoting(members...)
	metrics.Ensemble = predictor.ModelMetrics{Name: "ensemble"}
	if metrics.Ensemble.ValidationAccuracy, err = score(ensemble, val); err != nil {
		return nil, fmt.Errorf("score ensemble: %w", err)
	}
	testPred, err := ensemble.Predict(test.X)
	if err != nil {
		return nil, fmt.Errorf("score ensemble: %w", err)
	}
	metrics.Ensemble.TestAccuracy = learn.Accuracy(test.y, testPred)
	metrics.Confusion = learn.ConfusionMatrix(test.y, testPred, len(classes))
	metrics.Report = make(map[string]predictor.ClassScore, len(classes))
	for c, s := range learn.ClassificationReport(metrics.Confusion) {
		metrics.Report[classes[c]] = s
	}
	if model, ok := ensemble.Member(FamilyRandomForest); ok {
		if rf, ok := model.(*learn.RandomForest); ok {
			metrics.Importances = rankImportances(selected, rf.FeatureImportances())
		}
	}
	log.Infow("Ensemble scored",
		"validation_accuracy", metrics.Ensemble.ValidationAccuracy,
		"test_accuracy", metrics.Ensemble.TestAccuracy,
	)

	return &predictor.Artifact{
		Version:          predictor.FormatVersion,
		ID:               uuid.NewString(),
		CreatedAt:        time.Now().UTC(),
		FeatureColumns:   append([]string(nil), ds.Features.Columns...),
		SelectedFeatures: selected,
		Medians:          ds.Medians,
		Classes:          classes,
		Scaler:           scaler,
		Selector:         selector,
		Ensemble:         ensemble,
		Metrics:          metrics,
	}, nil
}

func score(c learn.Classifier, s split) (float64, error) {
	pred, err := learn.Predict(c, s.X)
	if err != nil {
		return 0, err
	}
	return learn.Accuracy(s.y, pred), nil
}

// rankImportances pairs names with importances, highest first. Equal
// importances keep column order.
func rankImportances(names []string, values []float64) []predictor.FeatureImportance {
	out := make([]predictor.FeatureImportance, len(names))
	for i, name := range names {
		out[i] = predictor.FeatureImportance{Feature: name, Importance: values[i]}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Importance > out[b].Importance })
	return out
}
