package handlers

import (
	"context"

	"go.uber.org/zap"

	"github.com/cornerstats/fight-predictor/internal/logic"
)

// AuditQueue reports the depth of the prediction audit worker pool
type AuditQueue interface {
	QueueDepth() int
}

// Check probes one backing service for readiness
type Check func(ctx context.Context) error

type Config struct {
	AuditQueue AuditQueue
	// Checks are run by Ready. Only configured services are listed.
	Checks map[string]Check
	Logger *zap.Logger
	// Services
	Prediction logic.PredictionService
	Stats      logic.StatsService
}

type Handler struct {
	audit      AuditQueue
	checks     map[string]Check
	logger     *zap.SugaredLogger
	prediction logic.PredictionService
	stats      logic.StatsService
}

func New(cfg Config) *Handler {
	return &Handler{
		audit:      cfg.AuditQueue,
		checks:     cfg.Checks,
		logger:     cfg.Logger.Sugar(),
		prediction: cfg.Prediction,
		stats:      cfg.Stats,
	}
}
