package engine

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aldirahman/judolscan/internal/errors"
)

// WordlistModel is a bundled baseline classifier: per-token log-odds learned
// from the training corpus. It stands in wherever a heavier inference engine
// is not wired up, and gives the training pipeline a real end-to-end target.
type WordlistModel struct {
	// Weights maps a lowercased token to its gambling log-odds contribution.
	Weights map[string]float64 `json:"weights"`
	// Bias is the prior log-odds of the gambling class.
	Bias float64 `json:"bias"`
}

// score returns the gambling probability for a text.
func (m *WordlistModel) score(text string) float64 {
	sum := m.Bias
	for _, token := range tokenize(text) {
		sum += m.Weights[token]
	}
	return 1 / (1 + math.Exp(-sum))
}

// Predict classifies one comment text.
func (m *WordlistModel) Predict(_ context.Context, text string) (Prediction, error) {
	p := m.score(text)
	return Prediction{IsGambling: p >= 0.5, Confidence: p}, nil
}

// PredictBatch classifies a batch of comment texts.
func (m *WordlistModel) PredictBatch(ctx context.Context, texts []string) ([]Prediction, error) {
	predictions := make([]Prediction, len(texts))
	for i, text := range texts {
		p, err := m.Predict(ctx, text)
		if err != nil {
			return nil, err
		}
		predictions[i] = p
	}
	return predictions, nil
}

// LoadWordlistModel reads a trained model artifact from disk.
func LoadWordlistModel(path string) (*WordlistModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(err).
			Component("engine").
			Category(errors.CategoryModelLoad).
			Context("model_path", path).
			Build()
	}
	var m WordlistModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.New(err).
			Component("engine").
			Category(errors.CategoryModelLoad).
			Context("model_path", path).
			Build()
	}
	if m.Weights == nil {
		m.Weights = map[string]float64{}
	}
	return &m, nil
}

// WordlistTrainer trains WordlistModel artifacts into ModelDir and evaluates
// them on the training set.
type WordlistTrainer struct {
	ModelDir string
}

// Train fits per-token log-odds with add-one smoothing, writes the artifact
// as JSON, and reports metrics measured on the training data.
func (t *WordlistTrainer) Train(ctx context.Context, data Dataset) (string, Metrics, error) {
	if len(data) == 0 {
		return "", Metrics{}, errors.Newf("empty training set").
			Component("engine").
			Category(errors.CategoryTrainingEngine).
			Build()
	}

	gamblingCounts := map[string]float64{}
	cleanCounts := map[string]float64{}
	gamblingDocs, cleanDocs := 0.0, 0.0
	for i := range data {
		if err := ctx.Err(); err != nil {
			return "", Metrics{}, err
		}
		counts := cleanCounts
		if data[i].Gambling {
			counts = gamblingCounts
			gamblingDocs++
		} else {
			cleanDocs++
		}
		for _, token := range tokenize(data[i].Comment) {
			counts[token]++
		}
	}

	model := &WordlistModel{
		Weights: make(map[string]float64, len(gamblingCounts)+len(cleanCounts)),
		Bias:    math.Log((gamblingDocs + 1) / (cleanDocs + 1)),
	}
	for token := range gamblingCounts {
		model.Weights[token] = math.Log((gamblingCounts[token] + 1) / (cleanCounts[token] + 1))
	}
	for token := range cleanCounts {
		if _, done := model.Weights[token]; !done {
			model.Weights[token] = math.Log(1 / (cleanCounts[token] + 1))
		}
	}

	metrics := evaluate(model, data)

	if err := os.MkdirAll(t.ModelDir, 0o755); err != nil {
		return "", Metrics{}, errors.New(err).
			Component("engine").
			Category(errors.CategoryFileIO).
			Context("model_dir", t.ModelDir).
			Build()
	}
	artifactPath := filepath.Join(t.ModelDir, "wordlist_"+time.Now().UTC().Format("20060102_150405")+".json")
	encoded, err := json.Marshal(model)
	if err != nil {
		return "", Metrics{}, errors.New(err).
			Component("engine").
			Category(errors.CategoryTrainingEngine).
			Build()
	}
	if err := os.WriteFile(artifactPath, encoded, 0o644); err != nil {
		return "", Metrics{}, errors.New(err).
			Component("engine").
			Category(errors.CategoryFileIO).
			Context("artifact_path", artifactPath).
			Build()
	}

	return artifactPath, metrics, nil
}

// evaluate scores the model against labeled examples.
func evaluate(model *WordlistModel, data Dataset) Metrics {
	var tp, fp, tn, fn float64
	for i := range data {
		predicted := model.score(data[i].Comment) >= 0.5
		switch {
		case predicted && data[i].Gambling:
			tp++
		case predicted && !data[i].Gambling:
			fp++
		case !predicted && !data[i].Gambling:
			tn++
		default:
			fn++
		}
	}

	m := Metrics{}
	if total := tp + fp + tn + fn; total > 0 {
		m.Accuracy = (tp + tn) / total
	}
	if tp+fp > 0 {
		m.Precision = tp / (tp + fp)
	}
	if tp+fn > 0 {
		m.Recall = tp / (tp + fn)
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m
}

// tokenize lowercases and splits on non-alphanumeric runes. Digits are kept,
// gambling spam leans heavily on them ("gacor77").
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
}
