// Package predict turns keyed atmospheric readings into enriched windspeed
// predictions using a loaded model artifact.
package predict

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"time"

	"github.com/couchcryptid/storm-windspeed-predictor/internal/domain"
	"github.com/couchcryptid/storm-windspeed-predictor/internal/model"
	"github.com/couchcryptid/storm-windspeed-predictor/internal/observability"
)

// Predictor produces an enriched prediction for one reading.
type Predictor interface {
	Predict(r domain.Reading) (domain.PredictionResult, error)
}

// Service maps, scales, runs, clamps, and enriches predictions for a single
// artifact. The artifact is injected at construction and never mutated, so a
// Service is safe for concurrent use.
type Service struct {
	artifact *model.Artifact
	logger   *slog.Logger
	metrics  *observability.Metrics
	workers  int
}

// Option configures a Service.
type Option func(*Service)

// WithWorkers sets the number of goroutines PredictBatch fans out to.
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// New creates a Service for a loaded artifact.
func New(artifact *model.Artifact, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Service {
	s := &Service{
		artifact: artifact,
		logger:   logger,
		metrics:  metrics,
		workers:  runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(s)
	}
	info := artifact.Info()
	metrics.ModelLoaded.WithLabelValues(string(artifact.Family()), info.ModelName).Set(1)
	return s
}

// Artifact returns the loaded model.
func (s *Service) Artifact() *model.Artifact { return s.artifact }

// Workers returns the PredictBatch parallelism.
func (s *Service) Workers() int { return s.workers }

// CheckReadiness always succeeds: a Service only exists once its artifact
// has loaded.
func (s *Service) CheckReadiness(_ context.Context) error {
	return nil
}

// Predict maps the reading to the canonical vector and predicts it.
func (s *Service) Predict(r domain.Reading) (domain.PredictionResult, error) {
	return s.PredictVector(domain.MapToVector(r))
}

// PredictVector predicts an already ordered, unscaled feature vector.
func (s *Service) PredictVector(v []float64) (domain.PredictionResult, error) {
	start := time.Now()

	raw, err := s.artifact.Infer(v)
	if err == nil && math.IsNaN(raw) {
		err = fmt.Errorf("%w: model produced NaN", domain.ErrCorruptArtifact)
	}
	if err != nil {
		s.metrics.PredictionErrors.WithLabelValues(errorReason(err)).Inc()
		return domain.PredictionResult{}, fmt.Errorf("predict: %w", err)
	}

	mph, clamped := domain.Clamp(raw)
	if clamped {
		bound := "upper"
		if raw < domain.MinWindspeedMPH {
			bound = "lower"
		}
		s.metrics.PredictionsClamped.WithLabelValues(bound).Inc()
	}

	info := s.artifact.Info()
	result := domain.PredictionResult{
		WindspeedMPH:    domain.RoundTenth(mph),
		RawWindspeedMPH: raw,
		Clamped:         clamped,
		ModelName:       info.ModelName,
		ModelR2:         info.TestR2,
		ModelRMSE:       info.TestRMSE,
		ModelMAE:        info.TestMAE,
		Confidence:      domain.ConfidenceLabel(info.TestR2),
		FeaturesUsed:    append([]string(nil), domain.FeatureNames...),
	}

	s.metrics.Predictions.WithLabelValues(string(s.artifact.Family())).Inc()
	s.metrics.PredictionDuration.Observe(time.Since(start).Seconds())
	s.logger.Debug("prediction",
		"model_name", info.ModelName,
		"raw_mph", raw,
		"mph", result.WindspeedMPH,
		"clamped", clamped,
	)
	return result, nil
}

// PredictBatch predicts every reading, preserving input order. If any reading
// fails, the error for the lowest failing index is returned and no results are.
func (s *Service) PredictBatch(readings []domain.Reading) ([]domain.PredictionResult, error) {
	s.metrics.BatchRequestSize.Observe(float64(len(readings)))
	return predictBatch(s, readings, s.workers)
}

func errorReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrShapeMismatch):
		return "shape_mismatch"
	case errors.Is(err, domain.ErrCorruptArtifact):
		return "corrupt_artifact"
	default:
		return "other"
	}
}
