package domain

import (
	"strconv"
	"time"
)

// Physically plausible windspeed bounds in mph.
const (
	MinWindspeedMPH = 50.0
	MaxWindspeedMPH = 400.0
)

// ExcellentR2 is the test R² above which a model is labelled EXCELLENT.
const ExcellentR2 = 0.95

// Confidence labels attached to every prediction.
const (
	ConfidenceExcellent = "EXCELLENT"
	ConfidenceGood      = "GOOD"
)

// PredictionResult is the enriched output of a single prediction.
type PredictionResult struct {
	WindspeedMPH    float64  `json:"predicted_windspeed_mph"`
	RawWindspeedMPH float64  `json:"raw_windspeed_mph"`
	Clamped         bool     `json:"clamped"`
	ModelName       string   `json:"model_name"`
	ModelR2         float64  `json:"model_r2_score"`
	ModelRMSE       float64  `json:"model_rmse"`
	ModelMAE        float64  `json:"model_mae"`
	Confidence      string   `json:"confidence"`
	FeaturesUsed    []string `json:"features_used"`
}

// PredictionEvent is a prediction for a streamed reading, keyed by storm ID.
type PredictionEvent struct {
	ID          string    `json:"id"`
	PredictedAt time.Time `json:"predicted_at"`
	PredictionResult
}

// Clamp forces mph into [MinWindspeedMPH, MaxWindspeedMPH] and reports
// whether the value was changed.
func Clamp(mph float64) (float64, bool) {
	switch {
	case mph < MinWindspeedMPH:
		return MinWindspeedMPH, true
	case mph > MaxWindspeedMPH:
		return MaxWindspeedMPH, true
	default:
		return mph, false
	}
}

// ConfidenceLabel maps a reported test R² to a label. There are only two
// tiers: anything at or below ExcellentR2 is GOOD, including poor models.
func ConfidenceLabel(r2 float64) string {
	if r2 > ExcellentR2 {
		return ConfidenceExcellent
	}
	return ConfidenceGood
}

// RoundTenth rounds to one decimal place. The exact binary value is rounded
// half-to-even, so 0.25 becomes 0.2 and 2.675 stays below the tie.
func RoundTenth(v float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 1, 64), 64)
	if err != nil {
		return v
	}
	return r
}

// NewPredictionEvent stamps a result with the storm ID and the current time.
func NewPredictionEvent(id string, result PredictionResult) PredictionEvent {
	return PredictionEvent{
		ID:               id,
		PredictedAt:      clock.Now().UTC(),
		PredictionResult: result,
	}
}
