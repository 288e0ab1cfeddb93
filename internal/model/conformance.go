package model

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/couchcryptid/storm-windspeed-predictor/internal/domain"
)

// DefaultTolerance is the relative tolerance applied by Verify.
const DefaultTolerance = 1e-6

// Fixture is a reading and the raw (unclamped, unrounded) output a reference
// implementation produced for it.
type Fixture struct {
	Name     string         `json:"name"`
	Reading  domain.Reading `json:"reading"`
	Expected float64        `json:"expected"`
}

// Mismatch describes a fixture the artifact failed to reproduce.
type Mismatch struct {
	Fixture Fixture
	Got     float64
	Err     error
}

func (m Mismatch) String() string {
	if m.Err != nil {
		return fmt.Sprintf("%s: %v", m.Fixture.Name, m.Err)
	}
	return fmt.Sprintf("%s: got %.9g, want %.9g", m.Fixture.Name, m.Got, m.Fixture.Expected)
}

// LoadFixtures reads a JSON array of fixtures.
func LoadFixtures(path string) ([]Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	var fixtures []Fixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}
	return fixtures, nil
}

// Within reports whether got matches want to tol relative to max(1, |want|).
func Within(got, want, tol float64) bool {
	return math.Abs(got-want) <= tol*math.Max(1, math.Abs(want))
}

// Verify runs every fixture through the artifact and returns the ones that
// fail or fall outside tol. A non-positive tol selects DefaultTolerance.
func Verify(a *Artifact, fixtures []Fixture, tol float64) []Mismatch {
	if tol <= 0 {
		tol = DefaultTolerance
	}
	var mismatches []Mismatch
	for _, fx := range fixtures {
		got, err := a.Infer(domain.MapToVector(fx.Reading))
		if err != nil {
			mismatches = append(mismatches, Mismatch{Fixture: fx, Err: err})
			continue
		}
		if !Within(got, fx.Expected, tol) {
			mismatches = append(mismatches, Mismatch{Fixture: fx, Got: got})
		}
	}
	return mismatches
}

// GenerateFixtures fills Expected for each input from the artifact's raw
// output. Only generate fixtures from an artifact already known to be correct.
func GenerateFixtures(a *Artifact, inputs []Fixture) ([]Fixture, error) {
	fixtures := make([]Fixture, len(inputs))
	for i, fx := range inputs {
		got, err := a.Infer(domain.MapToVector(fx.Reading))
		if err != nil {
			return nil, fmt.Errorf("fixture %q: %w", fx.Name, err)
		}
		fx.Expected = got
		fixtures[i] = fx
	}
	return fixtures, nil
}
