package logic

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/cornerstats/fight-predictor/internal/dataset"
	"github.com/cornerstats/fight-predictor/internal/features"
	"github.com/cornerstats/fight-predictor/internal/models"
	"github.com/cornerstats/fight-predictor/internal/predictor"
)

// Prometheus metrics
var (
	predictionsServed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predictor_fight_predictions_served_total",
		Help: "Total number of fight predictions returned to clients",
	})

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "predictor_cache_lookups_total",
		Help: "Cache lookups by cache and result",
	}, []string{"cache", "result"})

	inferenceDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "predictor_inference_duration_seconds",
		Help:    "Duration of feature extraction plus ensemble inference for a batch",
		Buckets: prometheus.DefBuckets,
	})
)

const unknownWeightClass = "Unknown"

// PredictionConfig configures the prediction service
type PredictionConfig struct {
	Artifact     *predictor.Artifact
	UpcomingPath string
	Load         Loader
	Audit        AuditQueue
	CacheSize    int
	Logger       *zap.Logger
}

type predictionService struct {
	artifact *predictor.Artifact
	pipeline *features.Pipeline
	path     string
	load     Loader
	audit    AuditQueue
	cache    *lru.Cache[string, *models.PredictionsResponse]
	logger   *zap.SugaredLogger
}

// NewPredictionService builds the service around a loaded artifact. The
// pipeline imputes with the medians frozen in the artifact.
func NewPredictionService(cfg PredictionConfig) (PredictionService, error) {
	if cfg.Artifact == nil {
		return nil, fmt.Errorf("prediction service needs an artifact")
	}
	pipeline, err := cfg.Artifact.Pipeline()
	if err != nil {
		return nil, err
	}
	if cfg.Load == nil {
		cfg.Load = dataset.LoadFile
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 16
	}
	cache, err := lru.New[string, *models.PredictionsResponse](cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	return &predictionService{
		artifact: cfg.Artifact,
		pipeline: pipeline,
		path:     cfg.UpcomingPath,
		load:     cfg.Load,
		audit:    cfg.Audit,
		cache:    cache,
		logger:   cfg.Logger.Sugar(),
	}, nil
}

func (s *predictionService) cacheKey() string {
	return s.artifact.ID + ":" + s.path
}

func (s *predictionService) GetPredictions(ctx context.Context) (*models.PredictionsResponse, error) {
	key := s.cacheKey()
	resp, ok := s.cache.Get(key)
	if ok {
		cacheLookups.WithLabelValues("predictions", "hit").Inc()
	} else {
		cacheLookups.WithLabelValues("predictions", "miss").Inc()
		var err error
		if resp, err = s.predict(ctx); err != nil {
			return nil, err
		}
		s.cache.Add(key, resp)
	}

	predictionsServed.Add(float64(len(resp.Predictions)))
	s.enqueueAudit(resp)
	return resp, nil
}

func (s *predictionService) predict(ctx context.Context) (*models.PredictionsResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	df, err := s.load(s.path)
	if err != nil {
		return nil, fmt.Errorf("load upcoming fights: %w", err)
	}

	start := time.Now()
	out, err := s.pipeline.Transform(df)
	if err != nil {
		return nil, fmt.Errorf("extract features: %w", err)
	}
	preds, err := s.artifact.Predict(out.Features)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	inferenceDuration.Observe(time.Since(start).Seconds())

	var weightClasses []string
	for _, name := range df.Names() {
		if name == features.ColWeightClass {
			weightClasses = df.Col(name).Records()
			break
		}
	}

	resp := &models.PredictionsResponse{
		Success:     true,
		ArtifactID:  s.artifact.ID,
		Predictions: make([]models.FightPrediction, len(preds)),
	}
	for i, p := range preds {
		wc := unknownWeightClass
		if i < len(weightClasses) && weightClasses[i] != "" && weightClasses[i] != "NaN" {
			wc = weightClasses[i]
		}
		resp.Predictions[i] = models.FightPrediction{
			Red:         out.RedNames[i],
			Blue:        out.BlueNames[i],
			Prediction:  p.Winner,
			Confidence:  p.Confidence,
			WeightClass: wc,
		}
	}
	s.logger.Infow("Predicted upcoming fights", "fights", len(preds), "artifact", s.artifact.ID, "duration", time.Since(start))
	return resp, nil
}

func (s *predictionService) enqueueAudit(resp *models.PredictionsResponse) {
	if s.audit == nil {
		return
	}
	batch := uuid.New()
	now := time.Now().UTC()
	for _, p := range resp.Predictions {
		probRed, probBlue := p.Confidence, 1-p.Confidence
		if p.Prediction == "Blue" {
			probRed, probBlue = probBlue, probRed
		}
		ok := s.audit.Enqueue(&models.PredictionEvent{
			BatchID:     batch,
			ArtifactID:  resp.ArtifactID,
			RedFighter:  p.Red,
			BlueFighter: p.Blue,
			WeightClass: p.WeightClass,
			Winner:      p.Prediction,
			Confidence:  p.Confidence,
			ProbRed:     probRed,
			ProbBlue:    probBlue,
			ServedAt:    now,
		})
		if !ok {
			s.logger.Warnw("Audit queue rejected prediction event", "batch", batch)
			return
		}
	}
}

func (s *predictionService) GetModelInfo(ctx context.Context) (*models.ModelInfo, error) {
	a := s.artifact
	info := &models.ModelInfo{
		ID:               a.ID,
		CreatedAt:        a.CreatedAt,
		Classes:          a.Classes,
		FeatureCount:     len(a.FeatureColumns),
		SelectedFeatures: a.SelectedFeatures,
		Medians:          a.Medians,
		Metrics:          a.Metrics,
	}
	for _, m := range a.Ensemble.Members {
		info.Members = append(info.Members, m.Name)
	}
	return info, nil
}

// Invalidate drops cached predictions, for example after the upcoming card
// file changed.
func (s *predictionService) Invalidate() {
	s.cache.Purge()
	s.logger.Infow("Prediction cache invalidated", "path", s.path)
}
