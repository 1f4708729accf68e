// Package predictor holds the trained artifact: the fitted preprocessing,
// the soft-voting ensemble and the metrics recorded when it was built. An
// artifact is immutable once built and safe for concurrent use.
package predictor

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/cornerstats/fight-predictor/internal/features"
	"github.com/cornerstats/fight-predictor/internal/learn"
)

// FormatVersion is the serialized artifact layout version.
const FormatVersion = 1

// ErrInvalidArtifact is returned for artifacts that cannot serve predictions.
var ErrInvalidArtifact = errors.New("invalid artifact")

// Artifact is a trained predictor.
type Artifact struct {
	Version          int                 `json:"version"`
	ID               string              `json:"id"`
	CreatedAt        time.Time           `json:"created_at"`
	FeatureColumns   []string            `json:"feature_columns"`
	SelectedFeatures []string            `json:"selected_features"`
	Medians          features.Medians    `json:"medians"`
	Classes          []string            `json:"classes"`
	Scaler           *learn.RobustScaler `json:"scaler"`
	Selector         *learn.SelectKBest  `json:"selector"`
	Ensemble         *learn.SoftVoting   `json:"ensemble"`
	Metrics          *Metrics            `json:"metrics,omitempty"`
}

// Prediction is the ensemble's decision for one fight.
type Prediction struct {
	Winner        string             `json:"winner"`
	Confidence    float64            `json:"confidence"`
	Probabilities map[string]float64 `json:"probabilities"`
}

// Validate checks that every component needed for inference is present and
// consistent.
func (a *Artifact) Validate() error {
	switch {
	case a.Version != FormatVersion:
		return fmt.Errorf("%w: format version %d, want %d", ErrInvalidArtifact, a.Version, FormatVersion)
	case len(a.FeatureColumns) == 0:
		return fmt.Errorf("%w: no feature columns", ErrInvalidArtifact)
	case len(a.Classes) < 2:
		return fmt.Errorf("%w: %d classes", ErrInvalidArtifact, len(a.Classes))
	case a.Scaler == nil || a.Selector == nil || a.Ensemble == nil || len(a.Ensemble.Members) == 0:
		return fmt.Errorf("%w: missing scaler, selector or ensemble", ErrInvalidArtifact)
	case len(a.Scaler.Center) != len(a.FeatureColumns) || len(a.Selector.Support) != len(a.FeatureColumns):
		return fmt.Errorf("%w: preprocessing fitted on a different column count", ErrInvalidArtifact)
	}
	if _, err := features.NewFitted(a.Medians); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}
	return nil
}

// Pipeline returns a feature pipeline that imputes with the medians frozen
// at training time.
func (a *Artifact) Pipeline() (*features.Pipeline, error) {
	return features.NewFitted(a.Medians)
}

// PredictProba aligns m to the training columns, applies the fitted scaler
// and selector and returns the ensemble's class probabilities, one column per
// entry of Classes.
func (a *Artifact) PredictProba(m features.Matrix) (*mat.Dense, error) {
	aligned, err := m.Select(a.FeatureColumns)
	if err != nil {
		return nil, err
	}
	if aligned.Rows() == 0 {
		return nil, fmt.Errorf("%w: no rows to predict", learn.ErrShape)
	}
	scaled, err := a.Scaler.Transform(aligned.Data)
	if err != nil {
		return nil, fmt.Errorf("scale: %w", err)
	}
	selected, err := a.Selector.Transform(scaled)
	if err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}
	proba, err := a.Ensemble.PredictProba(selected)
	if err != nil {
		return nil, fmt.Errorf("ensemble: %w", err)
	}
	return proba, nil
}

// Predict returns the winning class per row. Equal probabilities resolve to
// the first class in Classes.
func (a *Artifact) Predict(m features.Matrix) ([]Prediction, error) {
	proba, err := a.PredictProba(m)
	if err != nil {
		return nil, err
	}
	labels := learn.ArgMaxRows(proba)
	out := make([]Prediction, len(labels))
	for i, label := range labels {
		row := proba.RawRowView(i)
		probs := make(map[string]float64, len(a.Classes))
		for c, name := range a.Classes {
			probs[name] = row[c]
		}
		out[i] = Prediction{Winner: a.Classes[label], Confidence: row[label], Probabilities: probs}
	}
	return out, nil
}

// Encode writes the artifact as JSON.
func Encode(w io.Writer, a *Artifact) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", " ")
	return enc.Encode(a)
}

// Decode reads and validates a JSON artifact.
func Decode(r io.Reader) (*Artifact, error) {
	var a Artifact
	if err := json.NewDecoder(r).Decode(&a); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}
