package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FeatureCount is the length of every feature vector.
const FeatureCount = 12

// FeatureNames is the canonical feature order. Scaler and model parameters are
// indexed positionally against this list.
var FeatureNames = []string{
	"CAPE",
	"SRH",
	"Lapse_0_3km",
	"PWAT",
	"Temperature",
	"Dewpoint",
	"CAPE_3km",
	"Lapse_3_6km",
	"Surface_RH",
	"RH_700_500",
	"Storm_Motion",
	"Total_TVS_Peaks",
}

// Reading is a keyed set of atmospheric observations for one storm.
type Reading map[string]float64

// UnmarshalJSON decodes a reading object. Canonical features must be JSON
// numbers or null (null counts as absent). Every other key is ignored
// whatever its type, so payloads may carry IDs, timestamps, or nested data.
func (r *Reading) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	out := make(Reading, FeatureCount)
	for _, name := range FeatureNames {
		raw, ok := fields[name]
		if !ok {
			continue
		}
		var v *float64
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("feature %s: value %s is not a number", name, raw)
		}
		if v != nil {
			out[name] = *v
		}
	}
	*r = out
	return nil
}

// MapToVector returns the reading in canonical feature order. Absent keys are
// filled with 0 and unknown keys are ignored.
func MapToVector(r Reading) []float64 {
	v := make([]float64, FeatureCount)
	for i, name := range FeatureNames {
		v[i] = r[name]
	}
	return v
}

// CheckVector returns ErrShapeMismatch unless v has exactly FeatureCount values.
func CheckVector(v []float64) error {
	if len(v) != FeatureCount {
		return shapeError(len(v), FeatureCount)
	}
	return nil
}

// SameFeatureOrder reports whether names matches FeatureNames exactly.
func SameFeatureOrder(names []string) bool {
	if len(names) != len(FeatureNames) {
		return false
	}
	for i, n := range names {
		if n != FeatureNames[i] {
			return false
		}
	}
	return true
}
