package handlers

import (
	"context"

	"github.com/cornerstats/fight-predictor/internal/models"
)

// MockPredictionService
type MockPredictionService struct {
	GetPredictionsFunc func(ctx context.Context) (*models.PredictionsResponse, error)
	GetModelInfoFunc   func(ctx context.Context) (*models.ModelInfo, error)
	Invalidated        int
}

func (m *MockPredictionService) GetPredictions(ctx context.Context) (*models.PredictionsResponse, error) {
	if m.GetPredictionsFunc != nil {
		return m.GetPredictionsFunc(ctx)
	}
	return &models.PredictionsResponse{Success: true}, nil
}

func (m *MockPredictionService) GetModelInfo(ctx context.Context) (*models.ModelInfo, error) {
	if m.GetModelInfoFunc != nil {
		return m.GetModelInfoFunc(ctx)
	}
	return &models.ModelInfo{ID: "mock"}, nil
}

func (m *MockPredictionService) Invalidate() { m.Invalidated++ }

// MockStatsService
type MockStatsService struct {
	GetStatsFunc  func(ctx context.Context) (*models.DatasetStats, error)
	GetReportFunc func(ctx context.Context) (*models.DatasetReport, error)
}

func (m *MockStatsService) GetStats(ctx context.Context) (*models.DatasetStats, error) {
	if m.GetStatsFunc != nil {
		return m.GetStatsFunc(ctx)
	}
	return &models.DatasetStats{Success: true}, nil
}

func (m *MockStatsService) GetReport(ctx context.Context) (*models.DatasetReport, error) {
	if m.GetReportFunc != nil {
		return m.GetReportFunc(ctx)
	}
	return &models.DatasetReport{Success: true}, nil
}

func (m *MockStatsService) Invalidate() {}

type MockAuditQueue struct {
	Depth int
}

func (m *MockAuditQueue) QueueDepth() int { return m.Depth }
