// Command train fits the fight predictor on the historical dataset and writes
// the artifact the server loads.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/cornerstats/fight-predictor/internal/dataset"
	"github.com/cornerstats/fight-predictor/internal/features"
	"github.com/cornerstats/fight-predictor/internal/logging"
	"github.com/cornerstats/fight-predictor/internal/predictor"
	"github.com/cornerstats/fight-predictor/internal/store"
	"github.com/cornerstats/fight-predictor/internal/training"
)

type options struct {
	Data      string
	Out       string
	Grid      string
	Seed      int64
	Workers   int
	K         int
	Folds     int
	Postgres  string
	SortDate  bool
	LogLevel  string
	LogFormat string
}

func main() {
	var opts options
	flag.StringVar(&opts.Data, "data", "data/ufc-master.csv", "historical fights CSV")
	flag.StringVar(&opts.Out, "out", "models/artifact.json", "artifact output path")
	flag.StringVar(&opts.Grid, "grid", "", "optional YAML file overriding search grids")
	flag.Int64Var(&opts.Seed, "seed", 42, "random seed for every estimator")
	flag.IntVar(&opts.Workers, "workers", runtime.NumCPU(), "concurrent grid-search fits")
	flag.IntVar(&opts.K, "k", 20, "number of features kept by univariate selection")
	flag.IntVar(&opts.Folds, "folds", 5, "cross-validation folds")
	flag.StringVar(&opts.Postgres, "postgres", os.Getenv("POSTGRES_URL"), "optional Postgres URL; the artifact is also registered there")
	flag.BoolVar(&opts.SortDate, "sort-date", true, "sort records oldest first before splitting")
	flag.StringVar(&opts.LogLevel, "log-level", "info", "log level")
	flag.StringVar(&opts.LogFormat, "env", "development", "development or production log output")
	flag.Parse()

	logger, err := logging.New(logging.Options{Env: opts.LogFormat, Level: opts.LogLevel})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, logger); err != nil {
		logger.Sugar().Errorw("Training failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, logger *zap.Logger) error {
	log := logger.Sugar()
	start := time.Now()

	df, err := dataset.LoadFile(opts.Data)
	if err != nil {
		return err
	}
	if opts.SortDate {
		if df, err = dataset.SortByDate(df); err != nil {
			return fmt.Errorf("sort by date: %w", err)
		}
	}
	labels, err := dataset.Labels(df)
	if err != nil {
		return err
	}
	log.Infow("Loaded dataset", "path", opts.Data, "rows", df.Nrow(), "columns", df.Ncol())

	// Imputation medians come from the training rows only so validation and
	// test rows are imputed the way unseen fights will be.
	trainRows, _, _ := training.SplitSizes(df.Nrow())
	if trainRows == 0 {
		return fmt.Errorf("dataset too small: %d rows", df.Nrow())
	}
	pipeline := features.New()
	medians, err := pipeline.Fit(head(df, trainRows))
	if err != nil {
		return fmt.Errorf("fit pipeline: %w", err)
	}
	out, err := pipeline.Transform(df)
	if err != nil {
		return fmt.Errorf("transform: %w", err)
	}
	log.Infow("Built feature matrix", "features", len(out.Features.Columns), "medians", medians)

	cfg := training.DefaultConfig()
	cfg.Seed = opts.Seed
	cfg.Workers = opts.Workers
	cfg.K = opts.K
	cfg.Folds = opts.Folds
	cfg.Logger = logger
	if opts.Grid != "" {
		if cfg.Grids, err = training.LoadGrids(opts.Grid); err != nil {
			return err
		}
	}

	art, err := training.Train(ctx, cfg, training.Dataset{
		Features: out.Features,
		Labels:   labels,
		Medians:  medians,
	})
	if err != nil {
		return err
	}
	logSummary(log, art)

	if err := store.NewFileStore(opts.Out).Save(ctx, art); err != nil {
		return fmt.Errorf("save artifact: %w", err)
	}
	log.Infow("Artifact written", "path", opts.Out, "id", art.ID)

	if opts.Postgres != "" {
		pg, err := pgxpool.New(ctx, opts.Postgres)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pg.Close()
		reg := store.NewPostgresStore(pg)
		if err := reg.EnsureSchema(ctx); err != nil {
			return err
		}
		if err := reg.Save(ctx, art); err != nil {
			return err
		}
		log.Infow("Artifact registered", "id", art.ID)
	}

	log.Infow("Training complete", "duration", time.Since(start))
	return nil
}

func head(df dataframe.DataFrame, n int) dataframe.DataFrame {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return df.Subset(idx)
}

func logSummary(log *zap.SugaredLogger, art *predictor.Artifact) {
	m := art.Metrics
	if m == nil {
		return
	}
	log.Infow("Split", "train", m.TrainRows, "validation", m.ValidationRows, "test", m.TestRows)
	for _, mm := range m.Models {
		log.Infow("Model",
			"name", mm.Name,
			"params", mm.Params.Canonical(),
			"cvScore", mm.CVScore,
			"validationAccuracy", mm.ValidationAccuracy,
			"testAccuracy", mm.TestAccuracy,
		)
	}
	log.Infow("Ensemble", "validationAccuracy", m.Ensemble.ValidationAccuracy, "testAccuracy", m.Ensemble.TestAccuracy)
	for class, s := range m.Report {
		log.Infow("Class report", "class", class, "precision", s.Precision, "recall", s.Recall, "f1", s.F1, "support", s.Support)
	}
	log.Infow("Confusion matrix", "classes", art.Classes, "matrix", m.Confusion)
	for i, fi := range m.Importances {
		if i == 10 {
			break
		}
		log.Infow("Feature importance", "rank", i+1, "feature", fi.Feature, "importance", fi.Importance)
	}
}
