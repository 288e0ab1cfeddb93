package model

import (
	"fmt"
	"math"

	"github.com/couchcryptid/storm-windspeed-predictor/internal/domain"
	"gonum.org/v1/gonum/floats"
)

// Kernel names a support-vector kernel function.
type Kernel string

const (
	KernelRBF    Kernel = "rbf"
	KernelPoly   Kernel = "poly"
	KernelLinear Kernel = "linear"
)

// Defaults used by the training library when poly parameters are omitted.
const (
	DefaultDegree = 3
	DefaultCoef0  = 0.0
)

// KernelParams holds the resolved kernel hyperparameters. Degree and Coef0
// only apply to KernelPoly; Gamma is ignored by KernelLinear.
type KernelParams struct {
	Kind   Kernel
	Gamma  float64
	Degree int
	Coef0  float64
}

// KernelRegressor evaluates an epsilon-SVR decision function:
//
//	f(x) = sum_j dual[j] * K(sv_j, x) + intercept
type KernelRegressor struct {
	params         KernelParams
	supportVectors [][]float64
	dualCoef       []float64
	intercept      float64
}

// NewKernelRegressor validates and copies the kernel model parameters.
func NewKernelRegressor(p KernelParams, supportVectors [][]float64, dualCoef []float64, intercept float64) (*KernelRegressor, error) {
	switch p.Kind {
	case KernelLinear:
	case KernelRBF, KernelPoly:
		if !(p.Gamma > 0) || math.IsInf(p.Gamma, 0) {
			return nil, fmt.Errorf("%w: %s kernel gamma %v must be a positive number", domain.ErrLoad, p.Kind, p.Gamma)
		}
		if p.Kind == KernelPoly && p.Degree < 0 {
			return nil, fmt.Errorf("%w: poly kernel degree %d must be >= 0", domain.ErrLoad, p.Degree)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported kernel %q", domain.ErrLoad, p.Kind)
	}
	if len(dualCoef) != len(supportVectors) {
		return nil, fmt.Errorf("%w: %d dual coefficients for %d support vectors",
			domain.ErrLoad, len(dualCoef), len(supportVectors))
	}
	if math.IsNaN(intercept) || math.IsInf(intercept, 0) {
		return nil, fmt.Errorf("%w: intercept %v is not finite", domain.ErrLoad, intercept)
	}

	svs := make([][]float64, len(supportVectors))
	for j, row := range supportVectors {
		if len(row) != domain.FeatureCount {
			return nil, fmt.Errorf("%w: support vector %d has %d columns, want %d",
				domain.ErrLoad, j, len(row), domain.FeatureCount)
		}
		svs[j] = append([]float64(nil), row...)
	}

	return &KernelRegressor{
		params:         p,
		supportVectors: svs,
		dualCoef:       append([]float64(nil), dualCoef...),
		intercept:      intercept,
	}, nil
}

// Params returns the kernel hyperparameters.
func (k *KernelRegressor) Params() KernelParams { return k.params }

// NumSupportVectors returns the number of retained support vectors.
func (k *KernelRegressor) NumSupportVectors() int { return len(k.supportVectors) }

// Predict returns the raw regression output for a scaled feature vector.
// Support vectors always have domain.FeatureCount columns, so a single length
// check covers both the schema and the model shape.
func (k *KernelRegressor) Predict(x []float64) (float64, error) {
	if err := domain.CheckVector(x); err != nil {
		return 0, err
	}

	values := make([]float64, len(k.supportVectors))
	var diff []float64
	if k.params.Kind == KernelRBF {
		diff = make([]float64, len(x))
	}
	for j, sv := range k.supportVectors {
		values[j] = k.eval(sv, x, diff)
	}
	return floats.Dot(k.dualCoef, values) + k.intercept, nil
}

// eval computes K(sv, x). diff is scratch space for the rbf kernel.
func (k *KernelRegressor) eval(sv, x, diff []float64) float64 {
	switch k.params.Kind {
	case KernelRBF:
		floats.SubTo(diff, sv, x)
		return math.Exp(-k.params.Gamma * floats.Dot(diff, diff))
	case KernelPoly:
		return math.Pow(k.params.Gamma*floats.Dot(sv, x)+k.params.Coef0, float64(k.params.Degree))
	default:
		return floats.Dot(sv, x)
	}
}
