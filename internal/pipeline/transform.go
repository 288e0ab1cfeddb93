package pipeline

import (
	"context"

	"github.com/couchcryptid/storm-windspeed-predictor/internal/domain"
	"github.com/couchcryptid/storm-windspeed-predictor/internal/predict"
)

// PredictionTransformer decodes a keyed reading and predicts its windspeed.
type PredictionTransformer struct {
	predictor predict.Predictor
}

// NewTransformer creates a PredictionTransformer backed by p.
func NewTransformer(p predict.Predictor) *PredictionTransformer {
	return &PredictionTransformer{predictor: p}
}

func (t *PredictionTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.PredictionEvent, error) {
	id, reading, err := domain.ParseReading(raw)
	if err != nil {
		return domain.PredictionEvent{}, err
	}
	result, err := t.predictor.Predict(reading)
	if err != nil {
		return domain.PredictionEvent{}, err
	}
	return domain.NewPredictionEvent(id, result), nil
}
