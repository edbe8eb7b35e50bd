// Package engine defines the contracts for the external inference and
// training engines. The classification internals live behind these
// interfaces; the orchestration core only sees labels, confidences, and
// trained artifacts.
package engine

import "context"

// Prediction is one classification outcome for a comment text.
type Prediction struct {
	IsGambling bool
	Confidence float64 // in [0,1]
}

// Predictor classifies comment texts with the currently served model.
type Predictor interface {
	Predict(ctx context.Context, text string) (Prediction, error)
	PredictBatch(ctx context.Context, texts []string) ([]Prediction, error)
}

// Example is one labeled training sample.
type Example struct {
	Comment  string
	Gambling bool
}

// Dataset is a labeled training corpus.
type Dataset []Example

// Metrics holds the evaluation scores of a trained model.
type Metrics struct {
	Accuracy  float64
	Precision float64
	Recall    float64
	F1        float64
}

// Trainer turns a labeled dataset into a model artifact plus its metrics.
// Implementations are external; a failure aborts the retraining run without
// touching the serving model.
type Trainer interface {
	Train(ctx context.Context, data Dataset) (artifactPath string, metrics Metrics, err error)
}
