package predict

import (
	"fmt"
	"strconv"

	"github.com/couchcryptid/storm-windspeed-predictor/internal/domain"
	"github.com/couchcryptid/storm-windspeed-predictor/internal/observability"
	lru "github.com/hashicorp/golang-lru"
)

// CachedPredictor wraps a Predictor with an LRU cache keyed on the canonical
// feature vector. Predictions are deterministic, so hits are exact.
type CachedPredictor struct {
	inner   Predictor
	cache   *lru.Cache
	metrics *observability.Metrics
	workers int
}

// NewCachedPredictor creates a cache decorator holding up to size results.
func NewCachedPredictor(inner Predictor, size, workers int, metrics *observability.Metrics) (*CachedPredictor, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create prediction cache: %w", err)
	}
	return &CachedPredictor{inner: inner, cache: cache, metrics: metrics, workers: workers}, nil
}

func (c *CachedPredictor) Predict(r domain.Reading) (domain.PredictionResult, error) {
	key := vectorKey(domain.MapToVector(r))
	if v, ok := c.cache.Get(key); ok {
		c.metrics.CacheLookups.WithLabelValues("hit").Inc()
		return copyResult(v.(domain.PredictionResult)), nil
	}
	c.metrics.CacheLookups.WithLabelValues("miss").Inc()

	result, err := c.inner.Predict(r)
	if err != nil {
		return result, err
	}
	c.cache.Add(key, copyResult(result))
	return result, nil
}

// PredictBatch predicts every reading through the cache, preserving order.
func (c *CachedPredictor) PredictBatch(readings []domain.Reading) ([]domain.PredictionResult, error) {
	c.metrics.BatchRequestSize.Observe(float64(len(readings)))
	return predictBatch(c, readings, c.workers)
}

// Len returns the number of cached results.
func (c *CachedPredictor) Len() int { return c.cache.Len() }

func vectorKey(v []float64) string {
	b := make([]byte, 0, len(v)*8)
	for i, x := range v {
		if i > 0 {
			b = append(b, ',')
		}
		b = strconv.AppendFloat(b, x, 'g', -1, 64)
	}
	return string(b)
}

// copyResult keeps callers from mutating the cached FeaturesUsed slice.
func copyResult(r domain.PredictionResult) domain.PredictionResult {
	r.FeaturesUsed = append([]string(nil), r.FeaturesUsed...)
	return r
}
