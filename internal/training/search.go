package training

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/cornerstats/fight-predictor/internal/learn"
)

// ErrTraining matches every *TrainingError.
var ErrTraining = errors.New("training failed")

// TrainingError reports a model that failed to fit. Fold is -1 for the
// final refit on the whole training split.
type TrainingError struct {
	Model  string
	Params learn.Params
	Fold   int
	Err    error
}

func (e *TrainingError) Error() string {
	if e.Fold < 0 {
		return fmt.Sprintf("%s refit with %s: %v", e.Model, e.Params.Canonical(), e.Err)
	}
	return fmt.Sprintf("%s fold %d with %s: %v", e.Model, e.Fold, e.Params.Canonical(), e.Err)
}

func (e *TrainingError) Unwrap() error { return e.Err }

func (e *TrainingError) Is(target error) bool { return target == ErrTraining }

// Prometheus metrics
var (
	foldFits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "predictor_search_fold_fits_total",
		Help: "Cross-validation fits by family and outcome",
	}, []string{"family", "status"})

	foldFitDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "predictor_search_fold_fit_duration_seconds",
		Help:    "Duration of a single cross-validation fit",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
	}, []string{"family"})
)

// Candidate is one evaluated hyper-parameter combination.
type Candidate struct {
	Params     learn.Params `json:"params"`
	FoldScores []float64    `json:"fold_scores"`
	MeanScore  float64      `json:"mean_score"`
}

// SearchResult is the outcome of a grid search over one family.
type SearchResult struct {
	Family     string
	Best       learn.Classifier
	BestParams learn.Params
	BestScore  float64
	Candidates []Candidate
}

// Searcher runs exhaustive cross-validated grid searches.
type Searcher struct {
	Folds   int
	Seed    int64
	Workers int
	Logger  *zap.Logger
}

// Search scores every combination of the family's grid by mean fold
// accuracy, picks the highest (the first enumerated on ties) and refits it
// on all of X. Any failed fit aborts the search.
func (s *Searcher) Search(ctx context.Context, fam Family, X *mat.Dense, y []int) (*SearchResult, error) {
	log := s.logger()
	folds, err := learn.StratifiedKFold(y, s.Folds)
	if err != nil {
		return nil, &TrainingError{Model: fam.Name, Params: learn.Params{}, Fold: 0, Err: err}
	}
	configs := fam.Grid.Expand()
	scores := make([][]float64, len(configs))
	for c := range scores {
		scores[c] = make([]float64, len(folds))
	}

	splits := make([]struct {
		Xtr, Xte *mat.Dense
		ytr, yte []int
	}, len(folds))
	for f, fold := range folds {
		splits[f].Xtr, splits[f].ytr = learn.SubsetRows(X, fold.Train), learn.SubsetLabels(y, fold.Train)
		splits[f].Xte, splits[f].yte = learn.SubsetRows(X, fold.Test), learn.SubsetLabels(y, fold.Test)
	}

	log.Infow("Grid search started", "family", fam.Name, "candidates", len(configs), "folds", len(folds))
	g, gctx := errgroup.WithContext(ctx)
	workers := s.Workers
	if workers <= 0 {
		workers = 1
	}
	g.SetLimit(workers)
	for c, params := range configs {
		c, params := c, params
		for f := range folds {
			f := f
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				start := time.Now()
				acc, err := s.fitFold(fam, params, splits[f].Xtr, splits[f].ytr, splits[f].Xte, splits[f].yte)
				foldFitDuration.WithLabelValues(fam.Name).Observe(time.Since(start).Seconds())
				if err != nil {
					foldFits.WithLabelValues(fam.Name, "failed").Inc()
					return &TrainingError{Model: fam.Name, Params: params, Fold: f, Err: err}
				}
				foldFits.WithLabelValues(fam.Name, "ok").Inc()
				scores[c][f] = acc
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		log.Errorw("Grid search aborted", "family", fam.Name, "error", err)
		return nil, err
	}

	result := &SearchResult{Family: fam.Name, BestScore: -1, Candidates: make([]Candidate, len(configs))}
	for c, params := range configs {
		mean := 0.0
		for _, v := range scores[c] {
			mean += v
		}
		mean /= float64(len(scores[c]))
		result.Candidates[c] = Candidate{Params: params, FoldScores: scores[c], MeanScore: mean}
		if mean > result.BestScore {
			result.BestScore = mean
			result.BestParams = params
		}
	}

	final := fam.Final
	if final == nil {
		final = fam.New
	}
	model, err := final(result.BestParams, s.Seed)
	if err == nil {
		err = model.Fit(X, y)
	}
	if err != nil {
		return nil, &TrainingError{Model: fam.Name, Params: result.BestParams, Fold: -1, Err: err}
	}
	result.Best = model
	log.Infow("Grid search finished",
		"family", fam.Name,
		"best_params", result.BestParams.Canonical(),
		"cv_accuracy", result.BestScore,
	)
	return result, nil
}

func (s *Searcher) fitFold(fam Family, params learn.Params, Xtr *mat.Dense, ytr []int, Xte *mat.Dense, yte []int) (float64, error) {
	model, err := fam.New(params, s.Seed)
	if err != nil {
		return 0, err
	}
	if err := model.Fit(Xtr, ytr); err != nil {
		return 0, err
	}
	pred, err := learn.Predict(model, Xte)
	if err != nil {
		return 0, err
	}
	return learn.Accuracy(yte, pred), nil
}

func (s *Searcher) logger() *zap.SugaredLogger {
	if s.Logger == nil {
		return zap.NewNop().Sugar()
	}
	return s.Logger.Sugar()
}
