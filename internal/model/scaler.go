package model

import (
	"fmt"
	"math"

	"github.com/couchcryptid/storm-windspeed-predictor/internal/domain"
	"gonum.org/v1/gonum/floats"
)

// Scaler applies the training-time z-score normalization, per feature.
type Scaler struct {
	mean  []float64
	scale []float64
}

// NewScaler copies mean and scale. Both must have one entry per feature,
// every mean must be finite, and every scale finite and strictly positive.
func NewScaler(mean, scale []float64) (*Scaler, error) {
	if len(mean) != domain.FeatureCount || len(scale) != domain.FeatureCount {
		return nil, fmt.Errorf("%w: scaler has %d means and %d scales, want %d",
			domain.ErrLoad, len(mean), len(scale), domain.FeatureCount)
	}
	for i, m := range mean {
		if math.IsNaN(m) || math.IsInf(m, 0) {
			return nil, fmt.Errorf("%w: scaler_mean[%d] (%s) is %v, must be finite",
				domain.ErrLoad, i, domain.FeatureNames[i], m)
		}
	}
	for i, s := range scale {
		if !(s > 0) || math.IsInf(s, 0) {
			return nil, fmt.Errorf("%w: scaler_scale[%d] (%s) is %v, must be finite and > 0",
				domain.ErrLoad, i, domain.FeatureNames[i], s)
		}
	}
	return &Scaler{
		mean:  append([]float64(nil), mean...),
		scale: append([]float64(nil), scale...),
	}, nil
}

// Normalize returns (v[i] - mean[i]) / scale[i] as a new slice.
func (s *Scaler) Normalize(v []float64) ([]float64, error) {
	if err := domain.CheckVector(v); err != nil {
		return nil, err
	}
	out := floats.SubTo(make([]float64, len(v)), v, s.mean)
	floats.Div(out, s.scale)
	return out, nil
}

// Denormalize inverts Normalize.
func (s *Scaler) Denormalize(v []float64) ([]float64, error) {
	if err := domain.CheckVector(v); err != nil {
		return nil, err
	}
	out := floats.MulTo(make([]float64, len(v)), v, s.scale)
	floats.Add(out, s.mean)
	return out, nil
}
