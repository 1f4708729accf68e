package logic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/cornerstats/fight-predictor/internal/dataset"
	"github.com/cornerstats/fight-predictor/internal/models"
)

const (
	statsKey  = "predictor:stats"
	reportKey = "predictor:stats:report"
)

// StatsConfig configures the stats service
type StatsConfig struct {
	MasterPath string
	Load       Loader
	// Redis is optional. When set, computed payloads are shared between
	// replicas for TTL.
	Redis  RedisClient
	TTL    time.Duration
	Logger *zap.Logger
}

type statsService struct {
	path   string
	load   Loader
	redis  RedisClient
	ttl    time.Duration
	local  *expirable.LRU[string, []byte]
	logger *zap.SugaredLogger
}

func NewStatsService(cfg StatsConfig) StatsService {
	if cfg.Load == nil {
		cfg.Load = dataset.LoadFile
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	return &statsService{
		path:   cfg.MasterPath,
		load:   cfg.Load,
		redis:  cfg.Redis,
		ttl:    cfg.TTL,
		local:  expirable.NewLRU[string, []byte](8, nil, cfg.TTL),
		logger: cfg.Logger.Sugar(),
	}
}

func (s *statsService) GetStats(ctx context.Context) (*models.DatasetStats, error) {
	var out models.DatasetStats
	err := s.cached(ctx, statsKey, &out, func() (any, error) {
		df, err := s.load(s.path)
		if err != nil {
			return nil, fmt.Errorf("load master dataset: %w", err)
		}
		st := dataset.ComputeStats(df)
		return &models.DatasetStats{
			Success: true,
			Stats: models.StatsSummary{
				TotalFights:    st.TotalFights,
				UniqueFighters: st.UniqueFighters,
				RedWins:        st.RedWins,
				BlueWins:       st.BlueWins,
				WeightClasses:  labeled(st.WeightClasses),
				FinishTypes:    labeled(st.FinishTypes),
			},
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *statsService) GetReport(ctx context.Context) (*models.DatasetReport, error) {
	var out models.DatasetReport
	err := s.cached(ctx, reportKey, &out, func() (any, error) {
		df, err := s.load(s.path)
		if err != nil {
			return nil, fmt.Errorf("load master dataset: %w", err)
		}
		r := dataset.Describe(df)
		return &models.DatasetReport{
			Success:            true,
			TotalFights:        r.TotalFights,
			FirstDate:          r.FirstDate,
			LastDate:           r.LastDate,
			FightsWithOdds:     r.FightsWithOdds,
			UpsetRate:          r.UpsetRate,
			MostActiveFighters: labeled(r.MostActiveFighters),
			FightsPerYear:      labeled(r.FightsPerYear),
			TopLocations:       labeled(r.TopLocations),
			TitleFights:        r.TitleFights,
			TitleFightRate:     r.TitleFightRate,
			DurationMinutes: models.RangeSummary{
				Count: r.DurationMinutes.Count,
				Mean:  r.DurationMinutes.Mean,
				Min:   r.DurationMinutes.Min,
				Max:   r.DurationMinutes.Max,
			},
			AvgHeightCms:    r.AvgHeightCms,
			AvgReachCms:     r.AvgReachCms,
			AvgWeightLbs:    r.AvgWeightLbs,
			AvgSigStrLanded: r.AvgSigStrLanded,
			AvgTDLanded:     r.AvgTDLanded,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// cached resolves key from the local cache, then Redis, then compute. The
// payload travels as JSON so both tiers hold the same bytes.
func (s *statsService) cached(ctx context.Context, key string, dst any, compute func() (any, error)) error {
	if data, ok := s.local.Get(key); ok {
		cacheLookups.WithLabelValues("stats_local", "hit").Inc()
		return json.Unmarshal(data, dst)
	}
	cacheLookups.WithLabelValues("stats_local", "miss").Inc()

	if s.redis != nil {
		data, err := s.redis.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			cacheLookups.WithLabelValues("stats_redis", "hit").Inc()
			s.local.Add(key, data)
			return json.Unmarshal(data, dst)
		case errors.Is(err, redis.Nil):
			cacheLookups.WithLabelValues("stats_redis", "miss").Inc()
		default:
			s.logger.Warnw("Redis stats lookup failed", "key", key, "error", err)
		}
	}

	v, err := compute()
	if err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.local.Add(key, data)
	if s.redis != nil {
		if err := s.redis.Set(ctx, key, data, s.ttl).Err(); err != nil {
			s.logger.Warnw("Redis stats store failed", "key", key, "error", err)
		}
	}
	return json.Unmarshal(data, dst)
}

// Invalidate drops both cache tiers, for example after the master dataset
// changed.
func (s *statsService) Invalidate() {
	s.local.Purge()
	if s.redis != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.redis.Del(ctx, statsKey, reportKey).Err(); err != nil {
			s.logger.Warnw("Redis stats invalidation failed", "error", err)
		}
	}
	s.logger.Infow("Stats cache invalidated", "path", s.path)
}

func labeled(counts []dataset.Count) models.LabeledValues {
	lv := models.LabeledValues{Labels: make([]string, len(counts)), Values: make([]int, len(counts))}
	for i, c := range counts {
		lv.Labels[i] = c.Label
		lv.Values[i] = c.Value
	}
	return lv
}
