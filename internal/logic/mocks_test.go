package logic

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/cornerstats/fight-predictor/internal/features"
	"github.com/cornerstats/fight-predictor/internal/models"
	"github.com/cornerstats/fight-predictor/internal/predictor"
	"github.com/cornerstats/fight-predictor/internal/testutils"
	"github.com/cornerstats/fight-predictor/internal/training"
)

// MockRedisClient implements RedisClient for testing
type MockRedisClient struct {
	GetFunc func(ctx context.Context, key string) *redis.StringCmd
	SetFunc func(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	DelFunc func(ctx context.Context, keys ...string) *redis.IntCmd
}

func (m *MockRedisClient) Get(ctx context.Context, key string) *redis.StringCmd {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	return redis.NewStringResult("", redis.Nil)
}

func (m *MockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value, expiration)
	}
	return redis.NewStatusResult("OK", nil)
}

func (m *MockRedisClient) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	if m.DelFunc != nil {
		return m.DelFunc(ctx, keys...)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

// MockAuditQueue records enqueued events
type MockAuditQueue struct {
	mu     sync.Mutex
	Events []*models.PredictionEvent
	Reject bool
}

func (m *MockAuditQueue) Enqueue(event *models.PredictionEvent) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Reject {
		return false
	}
	m.Events = append(m.Events, event)
	return true
}

// countingLoader serves fixed rows and counts how often it was called
type countingLoader struct {
	mu    sync.Mutex
	rows  []testutils.Row
	omit  []string
	calls int
}

func (l *countingLoader) Load(path string) (dataframe.DataFrame, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	return testutils.Frame(l.rows, l.omit...), nil
}

func (l *countingLoader) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

var (
	artifactOnce sync.Once
	sharedArt    *predictor.Artifact
	artifactErr  error
)

// testArtifact trains one small artifact shared by the package's tests.
func testArtifact(t *testing.T) *predictor.Artifact {
	t.Helper()
	artifactOnce.Do(func() {
		df := testutils.Frame(testutils.Synthetic(200, 5))
		p := features.New()
		out, err := p.FitTransform(df)
		if err != nil {
			artifactErr = err
			return
		}
		cfg := training.DefaultConfig()
		cfg.Workers = 4
		cfg.Logger = zap.NewNop()
		cfg.Grids = map[string]training.ParamGrid{
			training.FamilyRandomForest:     {"n_estimators": {10}, "max_depth": {4}},
			training.FamilyGradientBoosting: {"n_estimators": {15}, "max_depth": {2}},
			training.FamilySVM:              {"C": {1.0}},
			training.FamilyMLP:              {"hidden_layer_sizes": {[]int{8}}, "max_iter": {60}, "learning_rate_init": {0.01}},
		}
		sharedArt, artifactErr = training.Train(context.Background(), cfg, training.Dataset{
			Features: out.Features,
			Labels:   df.Col(features.ColWinner).Records(),
			Medians:  p.Medians(),
		})
	})
	if artifactErr != nil {
		t.Fatal(artifactErr)
	}
	return sharedArt
}
