package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/cornerstats/fight-predictor/internal/features"
	"github.com/cornerstats/fight-predictor/internal/models"
)

func newTestHandler(pred *MockPredictionService, stats *MockStatsService, checks map[string]Check) *Handler {
	return New(Config{
		AuditQueue: &MockAuditQueue{Depth: 3},
		Checks:     checks,
		Logger:     zap.NewNop(),
		Prediction: pred,
		Stats:      stats,
	})
}

func TestGetPredictions_TableDriven(t *testing.T) {
	tests := []struct {
		name           string
		mockFunc       func(ctx context.Context) (*models.PredictionsResponse, error)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "Success",
			mockFunc: func(ctx context.Context) (*models.PredictionsResponse, error) {
				return &models.PredictionsResponse{
					Success: true,
					Predictions: []models.FightPrediction{
						{Red: "A", Blue: "B", Prediction: "Red", Confidence: 0.62, WeightClass: "Flyweight"},
					},
				}, nil
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"predictions":[{"red":"A","blue":"B","prediction":"Red","confidence":0.62,"weightClass":"Flyweight"}]`,
		},
		{
			name: "Bad Upcoming Card",
			mockFunc: func(ctx context.Context) (*models.PredictionsResponse, error) {
				return nil, &features.SchemaError{Missing: []string{"RedOdds"}}
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   `"success":false`,
		},
		{
			name: "Service Error",
			mockFunc: func(ctx context.Context) (*models.PredictionsResponse, error) {
				return nil, errors.New("disk on fire")
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"success":false,"error":"disk on fire"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(&MockPredictionService{GetPredictionsFunc: tt.mockFunc}, &MockStatsService{}, nil)
			req := httptest.NewRequest("GET", "/api/predictions", nil)
			w := httptest.NewRecorder()

			h.Router(nil).ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.expectedStatus)
			}
			if !strings.Contains(w.Body.String(), tt.expectedBody) {
				t.Errorf("body = %s, want it to contain %s", w.Body.String(), tt.expectedBody)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("content type = %q", ct)
			}
		})
	}
}

func TestGetStats(t *testing.T) {
	stats := &MockStatsService{
		GetStatsFunc: func(ctx context.Context) (*models.DatasetStats, error) {
			return &models.DatasetStats{
				Success: true,
				Stats: models.StatsSummary{
					TotalFights:    10,
					UniqueFighters: 18,
					RedWins:        6,
					BlueWins:       4,
					WeightClasses:  models.LabeledValues{Labels: []string{"Lightweight"}, Values: []int{10}},
					FinishTypes:    models.LabeledValues{Labels: []string{"U-DEC"}, Values: []int{10}},
				},
			}, nil
		},
	}
	h := newTestHandler(&MockPredictionService{}, stats, nil)
	w := httptest.NewRecorder()
	h.Router(nil).ServeHTTP(w, httptest.NewRequest("GET", "/api/stats", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["success"] != true {
		t.Errorf("success = %v", body["success"])
	}
	// the dashboard reads everything under "stats"
	inner, ok := body["stats"].(map[string]interface{})
	if !ok {
		t.Fatalf("missing stats envelope in %s", w.Body.String())
	}
	for _, key := range []string{"totalFights", "uniqueFighters", "redWins", "blueWins", "weightClasses", "finishTypes"} {
		if _, ok := inner[key]; !ok {
			t.Errorf("missing key %q in %s", key, w.Body.String())
		}
	}
	wc := inner["weightClasses"].(map[string]interface{})
	if _, ok := wc["labels"]; !ok {
		t.Errorf("weightClasses = %v", wc)
	}
}

func TestGetStatsError(t *testing.T) {
	stats := &MockStatsService{
		GetReportFunc: func(ctx context.Context) (*models.DatasetReport, error) {
			return nil, errors.New("load master dataset: missing")
		},
	}
	h := newTestHandler(&MockPredictionService{}, stats, nil)
	w := httptest.NewRecorder()
	h.Router(nil).ServeHTTP(w, httptest.NewRequest("GET", "/api/stats/report", nil))
	if w.Code != http.StatusInternalServerError || !strings.Contains(w.Body.String(), `"success":false`) {
		t.Errorf("status = %d body = %s", w.Code, w.Body.String())
	}
}

func TestGetModel(t *testing.T) {
	h := newTestHandler(&MockPredictionService{}, &MockStatsService{}, nil)
	w := httptest.NewRecorder()
	h.Router(nil).ServeHTTP(w, httptest.NewRequest("GET", "/api/model", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"id":"mock"`) {
		t.Errorf("status = %d body = %s", w.Code, w.Body.String())
	}
}

func TestReady_TableDriven(t *testing.T) {
	ok := func(ctx context.Context) error { return nil }
	down := func(ctx context.Context) error { return errors.New("down") }

	tests := []struct {
		name           string
		checks         map[string]Check
		expectedStatus int
	}{
		{"No Dependencies", nil, http.StatusOK},
		{"All Healthy", map[string]Check{"redis": ok, "postgres": ok}, http.StatusOK},
		{"Redis Down", map[string]Check{"redis": down, "postgres": ok}, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(&MockPredictionService{}, &MockStatsService{}, tt.checks)
			w := httptest.NewRecorder()
			h.Ready(w, httptest.NewRequest("GET", "/ready", nil))

			if w.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.expectedStatus)
			}
			var body struct {
				Ready      bool            `json:"ready"`
				Checks     map[string]bool `json:"checks"`
				QueueDepth int             `json:"queueDepth"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if len(body.Checks) != len(tt.checks) || body.QueueDepth != 3 {
				t.Errorf("body = %+v", body)
			}
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestHandler(&MockPredictionService{}, &MockStatsService{}, nil)
	router := h.Router([]string{"http://localhost:3000"})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Errorf("health: %d %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "predictor_http_requests_total") {
		t.Errorf("metrics: %d", w.Code)
	}
}

func TestCORS(t *testing.T) {
	h := newTestHandler(&MockPredictionService{}, &MockStatsService{}, nil)
	req := httptest.NewRequest("GET", "/api/stats", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	h.Router([]string{"http://localhost:3000"}).ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("allow origin = %q", got)
	}
}
