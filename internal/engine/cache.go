package engine

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// CachedPredictor wraps a Predictor with a TTL cache keyed on comment text.
// Repeated comments (spam rarely varies) skip the inference engine entirely.
type CachedPredictor struct {
	inner Predictor
	cache *gocache.Cache
}

// NewCachedPredictor creates a caching decorator around the given predictor.
func NewCachedPredictor(inner Predictor, ttl time.Duration) *CachedPredictor {
	return &CachedPredictor{
		inner: inner,
		cache: gocache.New(ttl, 2*ttl),
	}
}

// Predict returns a cached prediction when available, otherwise delegates.
func (p *CachedPredictor) Predict(ctx context.Context, text string) (Prediction, error) {
	if cached, found := p.cache.Get(text); found {
		return cached.(Prediction), nil
	}

	prediction, err := p.inner.Predict(ctx, text)
	if err != nil {
		return Prediction{}, err
	}
	p.cache.SetDefault(text, prediction)
	return prediction, nil
}

// PredictBatch serves cache hits locally and delegates only the misses, then
// stitches results back into input order.
func (p *CachedPredictor) PredictBatch(ctx context.Context, texts []string) ([]Prediction, error) {
	predictions := make([]Prediction, len(texts))
	var missTexts []string
	var missIdx []int

	for i, text := range texts {
		if cached, found := p.cache.Get(text); found {
			predictions[i] = cached.(Prediction)
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) == 0 {
		return predictions, nil
	}

	fetched, err := p.inner.PredictBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, prediction := range fetched {
		predictions[missIdx[j]] = prediction
		p.cache.SetDefault(missTexts[j], prediction)
	}
	return predictions, nil
}
