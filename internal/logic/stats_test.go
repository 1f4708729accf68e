package logic

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/cornerstats/fight-predictor/internal/testutils"
)

func history() []testutils.Row {
	return []testutils.Row{
		{"Winner": "Red", "WeightClass": "Flyweight", "Finish": "KO/TKO"},
		{"Winner": "Blue", "WeightClass": "Flyweight", "Finish": "SUB"},
		{"Winner": "Red", "WeightClass": "Heavyweight", "Finish": "SUB"},
	}
}

func TestGetStatsComputesAndCaches(t *testing.T) {
	loader := &countingLoader{rows: history()}
	stored := map[string]string{}
	rdb := &MockRedisClient{
		SetFunc: func(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
			if expiration != time.Minute {
				t.Errorf("ttl = %v", expiration)
			}
			stored[key] = string(value.([]byte))
			return redis.NewStatusResult("OK", nil)
		},
	}
	svc := NewStatsService(StatsConfig{Load: loader.Load, Redis: rdb, TTL: time.Minute, Logger: zap.NewNop()})

	st, err := svc.GetStats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !st.Success || st.Stats.TotalFights != 3 || st.Stats.UniqueFighters != 6 || st.Stats.RedWins != 2 || st.Stats.BlueWins != 1 {
		t.Errorf("stats = %+v", st)
	}
	if st.Stats.WeightClasses.Labels[0] != "Flyweight" || st.Stats.WeightClasses.Values[0] != 2 {
		t.Errorf("weight classes = %+v", st.Stats.WeightClasses)
	}
	if st.Stats.FinishTypes.Labels[0] != "SUB" {
		t.Errorf("finish types = %+v", st.Stats.FinishTypes)
	}
	if _, ok := stored[statsKey]; !ok {
		t.Error("stats not written to redis")
	}

	if _, err := svc.GetStats(context.Background()); err != nil {
		t.Fatal(err)
	}
	if loader.Calls() != 1 {
		t.Errorf("loader calls = %d, want 1", loader.Calls())
	}
}

func TestGetStatsFromRedis(t *testing.T) {
	loader := &countingLoader{rows: history()}
	rdb := &MockRedisClient{
		GetFunc: func(ctx context.Context, key string) *redis.StringCmd {
			return redis.NewStringResult(`{"success":true,"stats":{"totalFights":4242}}`, nil)
		},
	}
	svc := NewStatsService(StatsConfig{Load: loader.Load, Redis: rdb, Logger: zap.NewNop()})
	st, err := svc.GetStats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if st.Stats.TotalFights != 4242 || loader.Calls() != 0 {
		t.Errorf("total = %d, loader calls = %d", st.Stats.TotalFights, loader.Calls())
	}
}

func TestGetStatsRedisDown(t *testing.T) {
	loader := &countingLoader{rows: history()}
	down := errors.New("dial tcp: connection refused")
	rdb := &MockRedisClient{
		GetFunc: func(ctx context.Context, key string) *redis.StringCmd {
			return redis.NewStringResult("", down)
		},
		SetFunc: func(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
			return redis.NewStatusResult("", down)
		},
	}
	svc := NewStatsService(StatsConfig{Load: loader.Load, Redis: rdb, Logger: zap.NewNop()})
	st, err := svc.GetStats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if st.Stats.TotalFights != 3 {
		t.Errorf("total = %d", st.Stats.TotalFights)
	}
}

func TestStatsInvalidate(t *testing.T) {
	loader := &countingLoader{rows: history()}
	var deleted []string
	rdb := &MockRedisClient{
		DelFunc: func(ctx context.Context, keys ...string) *redis.IntCmd {
			deleted = keys
			return redis.NewIntResult(int64(len(keys)), nil)
		},
	}
	svc := NewStatsService(StatsConfig{Load: loader.Load, Redis: rdb, Logger: zap.NewNop()})
	if _, err := svc.GetReport(context.Background()); err != nil {
		t.Fatal(err)
	}
	svc.Invalidate()
	if len(deleted) != 2 {
		t.Errorf("deleted keys = %v", deleted)
	}
	if _, err := svc.GetReport(context.Background()); err != nil {
		t.Fatal(err)
	}
	if loader.Calls() != 2 {
		t.Errorf("loader calls = %d, want 2", loader.Calls())
	}
}

func TestGetReport(t *testing.T) {
	loader := &countingLoader{rows: history()}
	svc := NewStatsService(StatsConfig{Load: loader.Load, Logger: zap.NewNop()})
	r, err := svc.GetReport(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if r.TotalFights != 3 || len(r.FightsPerYear.Labels) != 1 || r.FightsPerYear.Labels[0] != "2024" {
		t.Errorf("report = %+v", r)
	}
	if r.TopLocations.Labels[0] != "Las Vegas" || r.TopLocations.Values[0] != 3 {
		t.Errorf("locations = %+v", r.TopLocations)
	}
}
