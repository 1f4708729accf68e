package logic

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"go.uber.org/zap"

	"github.com/cornerstats/fight-predictor/internal/features"
	"github.com/cornerstats/fight-predictor/internal/testutils"
)

func upcoming() []testutils.Row {
	rows := testutils.Synthetic(3, 77)
	rows[0]["WeightClass"] = "Flyweight"
	rows[1]["WeightClass"] = ""
	for i := range rows {
		delete(rows[i], "Winner")
	}
	rows[0]["RedFighter"], rows[0]["BlueFighter"] = "Alexa Grasso", "Valentina Shevchenko"
	return rows
}

func TestGetPredictions(t *testing.T) {
	loader := &countingLoader{rows: upcoming(), omit: []string{"Winner"}}
	audit := &MockAuditQueue{}
	svc, err := NewPredictionService(PredictionConfig{
		Artifact:     testArtifact(t),
		UpcomingPath: "upcoming.csv",
		Load:         loader.Load,
		Audit:        audit,
		Logger:       zap.NewNop(),
	})
	if err != nil {
		t.Fatal(err)
	}

	resp, err := svc.GetPredictions(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !resp.Success || len(resp.Predictions) != 3 {
		t.Fatalf("resp = %+v", resp)
	}
	first := resp.Predictions[0]
	if first.Red != "Alexa Grasso" || first.Blue != "Valentina Shevchenko" || first.WeightClass != "Flyweight" {
		t.Errorf("first = %+v", first)
	}
	if resp.Predictions[1].WeightClass != unknownWeightClass {
		t.Errorf("empty weight class = %q", resp.Predictions[1].WeightClass)
	}
	for _, p := range resp.Predictions {
		if p.Prediction != "Red" && p.Prediction != "Blue" {
			t.Errorf("prediction = %q", p.Prediction)
		}
		if p.Confidence < 0.5 || p.Confidence > 1 {
			t.Errorf("confidence = %v", p.Confidence)
		}
	}

	if len(audit.Events) != 3 {
		t.Fatalf("audit events = %d", len(audit.Events))
	}
	ev := audit.Events[0]
	if math.Abs(ev.ProbRed+ev.ProbBlue-1) > 1e-9 || ev.BatchID != audit.Events[2].BatchID {
		t.Errorf("audit event = %+v", ev)
	}

	// second call is served from the cache, still audited
	if _, err := svc.GetPredictions(context.Background()); err != nil {
		t.Fatal(err)
	}
	if loader.Calls() != 1 {
		t.Errorf("loader calls = %d, want 1", loader.Calls())
	}
	if len(audit.Events) != 6 {
		t.Errorf("audit events = %d, want 6", len(audit.Events))
	}

	svc.Invalidate()
	if _, err := svc.GetPredictions(context.Background()); err != nil {
		t.Fatal(err)
	}
	if loader.Calls() != 2 {
		t.Errorf("loader calls after invalidate = %d, want 2", loader.Calls())
	}
}

func TestGetPredictionsSchemaError(t *testing.T) {
	loader := &countingLoader{rows: upcoming(), omit: []string{"Winner", "RedOdds"}}
	svc, err := NewPredictionService(PredictionConfig{
		Artifact: testArtifact(t),
		Load:     loader.Load,
		Logger:   zap.NewNop(),
	})
	if err != nil {
		t.Fatal(err)
	}
	_, err = svc.GetPredictions(context.Background())
	var se *features.SchemaError
	if !errors.As(err, &se) || len(se.Missing) != 1 || se.Missing[0] != "RedOdds" {
		t.Errorf("err = %v, want schema error naming RedOdds", err)
	}
}

func TestGetPredictionsLoadError(t *testing.T) {
	boom := errors.New("no such file")
	svc, err := NewPredictionService(PredictionConfig{
		Artifact: testArtifact(t),
		Load:     func(string) (dataframe.DataFrame, error) { return dataframe.DataFrame{}, boom },
		Logger:   zap.NewNop(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.GetPredictions(context.Background()); !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
}

func TestGetModelInfo(t *testing.T) {
	art := testArtifact(t)
	svc, err := NewPredictionService(PredictionConfig{Artifact: art, Logger: zap.NewNop()})
	if err != nil {
		t.Fatal(err)
	}
	info, err := svc.GetModelInfo(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if info.ID != art.ID || len(info.Members) != 4 || info.FeatureCount != len(art.FeatureColumns) {
		t.Errorf("info = %+v", info)
	}
}

func TestNewPredictionServiceNeedsArtifact(t *testing.T) {
	if _, err := NewPredictionService(PredictionConfig{Logger: zap.NewNop()}); err == nil {
		t.Error("expected error without artifact")
	}
}
