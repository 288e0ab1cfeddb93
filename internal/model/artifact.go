package model

import (
	"fmt"

	"github.com/couchcryptid/storm-windspeed-predictor/internal/domain"
)

// Family is the model_type discriminator of an artifact file.
type Family string

const (
	FamilySVR          Family = "SVR"
	FamilyRandomForest Family = "RandomForestRegressor"
)

// Artifact is a loaded, immutable model: exactly one of the kernel or
// ensemble regressors, its scaler, and training metadata. It is safe for
// concurrent use.
type Artifact struct {
	family          Family
	kernel          *KernelRegressor
	ensemble        *EnsembleRegressor
	scaler          *Scaler
	scalingRequired bool
	info            Info
}

// NewKernelArtifact wraps a kernel regressor.
func NewKernelArtifact(k *KernelRegressor, s *Scaler, scalingRequired bool, info Info) *Artifact {
	return &Artifact{family: FamilySVR, kernel: k, scaler: s, scalingRequired: scalingRequired, info: info}
}

// NewEnsembleArtifact wraps a tree-ensemble regressor.
func NewEnsembleArtifact(e *EnsembleRegressor, s *Scaler, scalingRequired bool, info Info) *Artifact {
	return &Artifact{family: FamilyRandomForest, ensemble: e, scaler: s, scalingRequired: scalingRequired, info: info}
}

func (a *Artifact) Family() Family        { return a.family }
func (a *Artifact) Info() Info            { return a.info }
func (a *Artifact) ScalingRequired() bool { return a.scalingRequired }

// Predict runs the model on an already prepared vector.
func (a *Artifact) Predict(x []float64) (float64, error) {
	switch a.family {
	case FamilySVR:
		return a.kernel.Predict(x)
	case FamilyRandomForest:
		return a.ensemble.Predict(x)
	default:
		return 0, fmt.Errorf("%w: unknown model family %q", domain.ErrCorruptArtifact, a.family)
	}
}

// Infer normalizes v when the artifact requires it and returns the raw,
// unclamped model output.
func (a *Artifact) Infer(v []float64) (float64, error) {
	if err := domain.CheckVector(v); err != nil {
		return 0, err
	}
	x := v
	if a.scalingRequired {
		if a.scaler == nil {
			return 0, fmt.Errorf("%w: scaling required but no scaler loaded", domain.ErrCorruptArtifact)
		}
		var err error
		if x, err = a.scaler.Normalize(v); err != nil {
			return 0, err
		}
	}
	return a.Predict(x)
}

// Summary describes an artifact for inspection endpoints.
type Summary struct {
	ModelType       Family `json:"model_type"`
	ModelName       string `json:"model_name"`
	Kernel          Kernel `json:"kernel,omitempty"`
	SupportVectors  int    `json:"support_vectors,omitempty"`
	Trees           int    `json:"trees,omitempty"`
	ScalingRequired bool   `json:"scaling_required"`
	Info            Info   `json:"info"`
}

// Summary returns a description of the loaded model.
func (a *Artifact) Summary() Summary {
	s := Summary{
		ModelType:       a.family,
		ModelName:       a.info.ModelName,
		ScalingRequired: a.scalingRequired,
		Info:            a.info,
	}
	if a.kernel != nil {
		s.Kernel = a.kernel.Params().Kind
		s.SupportVectors = a.kernel.NumSupportVectors()
	}
	if a.ensemble != nil {
		s.Trees = a.ensemble.NumTrees()
	}
	return s
}
