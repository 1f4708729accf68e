package predictor

import "github.com/cornerstats/fight-predictor/internal/learn"

// Metrics records how the artifact performed when it was built.
type Metrics struct {
	TrainRows      int                   `json:"train_rows"`
	ValidationRows int                   `json:"validation_rows"`
	TestRows       int                   `json:"test_rows"`
	Models         []ModelMetrics        `json:"models"`
	Ensemble       ModelMetrics          `json:"ensemble"`
	Importances    []FeatureImportance   `json:"feature_importances"`
	Confusion      [][]int               `json:"confusion_matrix"`
	Report         map[string]ClassScore `json:"classification_report"`
}

// ModelMetrics holds accuracies of one model. CVScore and Params are empty
// for the ensemble.
type ModelMetrics struct {
	Name               string       `json:"name"`
	Params             learn.Params `json:"params,omitempty"`
	CVScore            float64      `json:"cv_score,omitempty"`
	ValidationAccuracy float64      `json:"validation_accuracy"`
	TestAccuracy       float64      `json:"test_accuracy"`
}

// FeatureImportance is one ranked random-forest importance.
type FeatureImportance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// ClassScore is the per-class slice of the classification report.
type ClassScore = learn.ClassScore
