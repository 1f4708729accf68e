// Command server serves fight predictions and dataset statistics over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/cornerstats/fight-predictor/internal/config"
	"github.com/cornerstats/fight-predictor/internal/handlers"
	"github.com/cornerstats/fight-predictor/internal/logging"
	"github.com/cornerstats/fight-predictor/internal/logic"
	"github.com/cornerstats/fight-predictor/internal/predictor"
	"github.com/cornerstats/fight-predictor/internal/store"
	"github.com/cornerstats/fight-predictor/internal/worker"
)

// @title Fight Predictor API
// @version 1.0
// @description Fight winner predictions and historical dataset statistics.
// @BasePath /api
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger, err := logging.New(logging.Options{Env: cfg.Env, Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Sugar().Fatalw("Server failed", "error", err)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	log := logger.Sugar()
	checks := map[string]handlers.Check{}

	var pg *pgxpool.Pool
	if cfg.PostgresURL != "" {
		var err error
		if pg, err = pgxpool.New(ctx, cfg.PostgresURL); err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pg.Close()
		checks["postgres"] = pg.Ping
	}

	art, err := loadArtifact(ctx, cfg, pg, log)
	if err != nil {
		return err
	}
	log.Infow("Artifact loaded", "id", art.ID, "createdAt", art.CreatedAt, "features", len(art.FeatureColumns))

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}
		rdb = redis.NewClient(opt)
		defer rdb.Close()
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	var pool *worker.Pool
	if cfg.ClickHouseURL != "" {
		opt, err := clickhouse.ParseDSN(cfg.ClickHouseURL)
		if err != nil {
			return fmt.Errorf("parse clickhouse dsn: %w", err)
		}
		ch, err := clickhouse.Open(opt)
		if err != nil {
			return fmt.Errorf("open clickhouse: %w", err)
		}
		defer ch.Close()
		checks["clickhouse"] = ch.Ping

		pool = worker.NewPool(worker.PoolConfig{
			WorkerCount:   cfg.WorkerCount,
			QueueSize:     cfg.QueueSize,
			BatchSize:     cfg.BatchSize,
			FlushInterval: cfg.FlushInterval,
			ClickHouse:    ch,
			Logger:        logger,
		})
		if err := pool.EnsureSchema(ctx); err != nil {
			log.Warnw("Could not create audit table", "error", err)
		}
		pool.Start(ctx)
		defer pool.Stop()
	}

	predCfg := logic.PredictionConfig{
		Artifact:     art,
		UpcomingPath: cfg.UpcomingDataset,
		CacheSize:    cfg.CacheSize,
		Logger:       logger,
	}
	if pool != nil {
		predCfg.Audit = pool
	}
	prediction, err := logic.NewPredictionService(predCfg)
	if err != nil {
		return err
	}
	statsCfg := logic.StatsConfig{
		MasterPath: cfg.MasterDataset,
		TTL:        cfg.StatsCacheTTL,
		Logger:     logger,
	}
	if rdb != nil {
		statsCfg.Redis = rdb
	}
	stats := logic.NewStatsService(statsCfg)

	upcoming, _ := filepath.Abs(cfg.UpcomingDataset)
	go func() {
		err := logic.WatchFiles(ctx, logger, []string{cfg.UpcomingDataset, cfg.MasterDataset}, func(path string) {
			if path == upcoming {
				prediction.Invalidate()
				return
			}
			stats.Invalidate()
		})
		if err != nil {
			log.Warnw("Dataset watcher stopped", "error", err)
		}
	}()

	hcfg := handlers.Config{
		Checks:     checks,
		Logger:     logger,
		Prediction: prediction,
		Stats:      stats,
	}
	if pool != nil {
		hcfg.AuditQueue = pool
	}
	h := handlers.New(hcfg)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           h.Router(cfg.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Infow("Server listening", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// loadArtifact prefers the newest artifact registered in Postgres and falls
// back to the artifact file.
func loadArtifact(ctx context.Context, cfg *config.Config, pg *pgxpool.Pool, log *zap.SugaredLogger) (*predictor.Artifact, error) {
	if pg != nil {
		art, err := store.NewPostgresStore(pg).Latest(ctx)
		if err == nil {
			return art, nil
		}
		log.Warnw("No artifact from Postgres, using file", "error", err, "path", cfg.ArtifactPath)
	}
	art, err := store.NewFileStore(cfg.ArtifactPath).Latest(ctx)
	if err != nil {
		return nil, fmt.Errorf("load artifact: %w", err)
	}
	return art, nil
}
