package models

import (
	"time"

	"github.com/google/uuid"
)

// PredictionEvent is one served prediction, written to the audit log
type PredictionEvent struct {
	BatchID     uuid.UUID
	ArtifactID  string
	RedFighter  string
	BlueFighter string
	WeightClass string
	Winner      string
	Confidence  float64
	ProbRed     float64
	ProbBlue    float64
	ServedAt    time.Time
}
