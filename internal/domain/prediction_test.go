package domain

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClamp(t *testing.T) {
	tests := []struct {
		name    string
		in      float64
		want    float64
		clamped bool
	}{
		{"below range", 10, 50, true},
		{"lower bound", 50, 50, false},
		{"in range", 187.3, 187.3, false},
		{"upper bound", 400, 400, false},
		{"above range", 1000, 400, true},
		{"negative", -20, 50, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, clamped := Clamp(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.clamped, clamped)
		})
	}
}

func TestConfidenceLabel(t *testing.T) {
	assert.Equal(t, ConfidenceExcellent, ConfidenceLabel(0.9852))
	assert.Equal(t, ConfidenceGood, ConfidenceLabel(0.90))
	assert.Equal(t, ConfidenceGood, ConfidenceLabel(0.95), "threshold is strict")
	assert.Equal(t, ConfidenceGood, ConfidenceLabel(0.45), "no lower tier")
}

func TestRoundTenth(t *testing.T) {
	assert.Equal(t, 187.3, RoundTenth(187.26))
	assert.Equal(t, 187.2, RoundTenth(187.24))
	assert.Equal(t, 0.2, RoundTenth(0.25))
	assert.Equal(t, 50.0, RoundTenth(50))
	assert.Equal(t, 400.0, RoundTenth(399.97))
}

func TestNewPredictionEvent(t *testing.T) {
	fixed := time.Date(2024, time.April, 26, 15, 10, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(fixed))
	t.Cleanup(func() { SetClock(nil) })

	evt := NewPredictionEvent("storm-1", PredictionResult{WindspeedMPH: 142.5, ModelName: "SVM"})

	assert.Equal(t, "storm-1", evt.ID)
	assert.Equal(t, fixed, evt.PredictedAt)
	assert.Equal(t, 142.5, evt.WindspeedMPH)
	assert.Equal(t, "SVM", evt.ModelName)
}

func TestParseReading(t *testing.T) {
	id, r, err := ParseReading(RawEvent{Key: []byte("storm-7"), Value: []byte(`{"CAPE":3500,"SRH":300}`)})
	require.NoError(t, err)
	assert.Equal(t, "storm-7", id)
	assert.Equal(t, Reading{"CAPE": 3500, "SRH": 300}, r)
}

func TestParseReading_IgnoresNonCanonicalKeys(t *testing.T) {
	payload := `{"CAPE":3500,"storm_id":"OK-1","observed_at":"2024-05-20T22:05:00Z",
		"radar":{"site":"KTLX"},"notes":null,"tags":["supercell"],"SRH":null,"extra_num":7}`

	id, r, err := ParseReading(RawEvent{Key: []byte("OK-1"), Value: []byte(payload)})
	require.NoError(t, err)
	assert.Equal(t, "OK-1", id)
	assert.Equal(t, Reading{"CAPE": 3500}, r)
	assert.Equal(t, 0.0, MapToVector(r)[1], "null canonical value is treated as absent")
}

func TestParseReading_EmptyObject(t *testing.T) {
	_, r, err := ParseReading(RawEvent{Value: []byte(`{}`)})
	require.NoError(t, err)
	assert.Equal(t, make([]float64, FeatureCount), MapToVector(r))
}

func TestParseReading_Invalid(t *testing.T) {
	for _, payload := range []string{"not json", "null", `{"CAPE":"high"}`, `{"SRH":"300"}`, `{"PWAT":[1.5]}`, `[1,2,3]`} {
		_, _, err := ParseReading(RawEvent{Value: []byte(payload)})
		assert.Error(t, err, payload)
	}
}
