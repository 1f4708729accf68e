package models

import (
	"time"

	"github.com/cornerstats/fight-predictor/internal/predictor"
)

// FightPrediction is the model's call for one upcoming fight
type FightPrediction struct {
	Red         string  `json:"red"`
	Blue        string  `json:"blue"`
	Prediction  string  `json:"prediction"`
	Confidence  float64 `json:"confidence"`
	WeightClass string  `json:"weightClass"`
}

// PredictionsResponse wraps the upcoming-fight predictions
type PredictionsResponse struct {
	Success     bool              `json:"success"`
	ArtifactID  string            `json:"artifactId"`
	Predictions []FightPrediction `json:"predictions"`
}

// ErrorResponse is returned for any failed request
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// ModelInfo describes the artifact currently serving predictions
type ModelInfo struct {
	ID               string             `json:"id"`
	CreatedAt        time.Time          `json:"createdAt"`
	Classes          []string           `json:"classes"`
	FeatureCount     int                `json:"featureCount"`
	SelectedFeatures []string           `json:"selectedFeatures"`
	Members          []string           `json:"members"`
	Medians          map[string]float64 `json:"medians"`
	Metrics          *predictor.Metrics `json:"metrics,omitempty"`
}
