package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	// Server
	Port int    `validate:"min=1,max=65535"`
	Env  string `validate:"oneof=development production test"`

	// CORS
	AllowedOrigins []string

	// Datasets
	DataDir         string
	MasterDataset   string `validate:"required"`
	UpcomingDataset string `validate:"required"`

	// Model
	ArtifactPath string `validate:"required"`

	// Optional backing services. Empty disables the feature that uses them.
	PostgresURL   string
	ClickHouseURL string
	RedisURL      string

	// Audit worker pool
	WorkerCount   int `validate:"min=1"`
	QueueSize     int `validate:"min=1"`
	BatchSize     int `validate:"min=1"`
	FlushInterval time.Duration

	// Caching
	StatsCacheTTL time.Duration
	CacheSize     int `validate:"min=1"`

	// Logging
	LogLevel string
	LogFile  string
}

// Load loads configuration from environment variables.
// It returns an error if critical configuration is missing.
func Load() (*Config, error) {
	cfg := &Config{
		Port: getEnvInt("PORT", 5000),
		Env:  getEnv("ENV", "development"),

		DataDir: getEnv("DATA_DIR", "data"),

		PostgresURL:   os.Getenv("POSTGRES_URL"),
		ClickHouseURL: os.Getenv("CLICKHOUSE_URL"),
		RedisURL:      os.Getenv("REDIS_URL"),

		WorkerCount:   getEnvInt("WORKER_COUNT", 2),
		QueueSize:     getEnvInt("QUEUE_SIZE", 10000),
		BatchSize:     getEnvInt("BATCH_SIZE", 500),
		FlushInterval: getEnvDuration("FLUSH_INTERVAL", 1*time.Second),

		StatsCacheTTL: getEnvDuration("STATS_CACHE_TTL", 10*time.Minute),
		CacheSize:     getEnvInt("CACHE_SIZE", 128),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  os.Getenv("LOG_FILE"),
	}
	cfg.MasterDataset = getEnv("MASTER_DATASET", filepath.Join(cfg.DataDir, "ufc-master.csv"))
	cfg.UpcomingDataset = getEnv("UPCOMING_DATASET", filepath.Join(cfg.DataDir, "upcoming.csv"))

	// CORS
	origins := getEnv("ALLOWED_ORIGINS", "http://localhost:3000")
	rawOrigins := strings.Split(origins, ",")
	for _, o := range rawOrigins {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
		}
	}

	// Critical configuration - fail if missing
	var err error
	if cfg.ArtifactPath, err = getEnvRequired("ARTIFACT_PATH"); err != nil {
		return nil, err
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvRequired(key string) (string, error) {
	if value := os.Getenv(key); value != "" {
		return value, nil
	}
	return "", fmt.Errorf("missing required environment variable: %s", key)
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
