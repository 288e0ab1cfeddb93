package model

import (
	"testing"

	"github.com/couchcryptid/storm-windspeed-predictor/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerify_ReferenceFixtures(t *testing.T) {
	tests := []struct {
		name     string
		model    string
		info     string
		fixtures string
	}{
		{"svr rbf", svrRBFPath, modelInfoPath, "testdata/fixtures_svr_rbf.json"},
		{"svr poly", svrPolyPath, modelInfoPath, "testdata/fixtures_svr_poly.json"},
		{"random forest", randomForestPath, "", "testdata/fixtures_random_forest.json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := Load(tt.model, tt.info)
			require.NoError(t, err)
			fixtures, err := LoadFixtures(tt.fixtures)
			require.NoError(t, err)
			require.NotEmpty(t, fixtures)

			mismatches := Verify(a, fixtures, DefaultTolerance)
			assert.Empty(t, mismatches)
		})
	}
}

func TestVerify_ReportsDeviation(t *testing.T) {
	a, err := Load(randomForestPath, "")
	require.NoError(t, err)

	fixtures := []Fixture{
		{Name: "exact", Reading: domain.Reading{}, Expected: mustInfer(t, a, domain.Reading{})},
		{Name: "off", Reading: domain.Reading{}, Expected: 999},
	}

	mismatches := Verify(a, fixtures, 0)
	require.Len(t, mismatches, 1)
	assert.Equal(t, "off", mismatches[0].Fixture.Name)
	assert.NoError(t, mismatches[0].Err)
	assert.Contains(t, mismatches[0].String(), "want 999")
}

func TestWithin(t *testing.T) {
	assert.True(t, Within(301.7986196, 301.79861963273873, 1e-6))
	assert.False(t, Within(301.79, 301.79861963273873, 1e-6))
	assert.True(t, Within(1e-7, 0, 1e-6), "absolute near zero")
	assert.False(t, Within(1e-5, 0, 1e-6))
}

func TestGenerateFixtures(t *testing.T) {
	a, err := Load(svrRBFPath, modelInfoPath)
	require.NoError(t, err)

	inputs := []Fixture{
		{Name: "moderate", Reading: domain.Reading{"CAPE": 3500, "SRH": 300, "Storm_Motion": 45}},
		{Name: "empty", Reading: domain.Reading{}},
	}
	fixtures, err := GenerateFixtures(a, inputs)
	require.NoError(t, err)
	require.Len(t, fixtures, 2)
	assert.Zero(t, inputs[0].Expected, "inputs are not modified")
	assert.Empty(t, Verify(a, fixtures, DefaultTolerance))
}

func mustInfer(t *testing.T, a *Artifact, r domain.Reading) float64 {
	t.Helper()
	v, err := a.Infer(domain.MapToVector(r))
	require.NoError(t, err)
	return v
}
