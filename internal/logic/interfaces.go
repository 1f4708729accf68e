package logic

import (
	"context"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/redis/go-redis/v9"

	"github.com/cornerstats/fight-predictor/internal/models"
)

// PredictionService serves the ensemble's calls for upcoming fights
type PredictionService interface {
	GetPredictions(ctx context.Context) (*models.PredictionsResponse, error)
	GetModelInfo(ctx context.Context) (*models.ModelInfo, error)
	Invalidate()
}

// StatsService serves descriptive statistics of the historical dataset
type StatsService interface {
	GetStats(ctx context.Context) (*models.DatasetStats, error)
	GetReport(ctx context.Context) (*models.DatasetReport, error)
	Invalidate()
}

// RedisClient defines the interface for Redis client
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// AuditQueue accepts served predictions for the audit log
type AuditQueue interface {
	Enqueue(event *models.PredictionEvent) bool
}

// Loader reads a record set from a path
type Loader func(path string) (dataframe.DataFrame, error)
