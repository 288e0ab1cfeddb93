package model

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/couchcryptid/storm-windspeed-predictor/internal/domain"
)

// header holds the fields shared by both artifact shapes.
type header struct {
	ModelType       Family    `json:"model_type"`
	FeatureNames    []string  `json:"feature_names"`
	ScalerMean      []float64 `json:"scaler_mean"`
	ScalerScale     []float64 `json:"scaler_scale"`
	ScalingRequired *bool     `json:"scaling_required"`

	// Metadata some exporters embed directly in the artifact.
	ModelName    string          `json:"model_name"`
	TestR2       *float64        `json:"test_r2_score"`
	TestRMSE     *float64        `json:"test_rmse"`
	TestMAE      *float64        `json:"test_mae"`
	ModelVersion json.RawMessage `json:"model_version"`
}

type kernelFile struct {
	header
	Kernel           Kernel         `json:"kernel"`
	C                *float64       `json:"C"`
	Gamma            *resolvedFloat `json:"gamma"`
	Epsilon          *float64       `json:"epsilon"`
	Degree           *int           `json:"degree"`
	Coef0            *float64       `json:"coef0"`
	Intercept        *float64       `json:"intercept"`
	SupportVectors   [][]float64    `json:"support_vectors"`
	DualCoefficients []float64      `json:"dual_coefficients"`
}

type ensembleFile struct {
	header
	NTrees            *int               `json:"n_trees"`
	NFeatures         *int               `json:"n_features"`
	FeatureImportance map[string]float64 `json:"feature_importance"`
	Trees             []treeFile         `json:"trees"`
}

type treeFile struct {
	Feature       []int     `json:"feature"`
	Threshold     []float64 `json:"threshold"`
	Value         []float64 `json:"value"`
	ChildrenLeft  []int     `json:"children_left"`
	ChildrenRight []int     `json:"children_right"`
}

// resolvedFloat accepts a JSON number or a numeric string. Unresolved
// heuristics such as "scale" or "auto" are rejected.
type resolvedFloat float64

func (f *resolvedFloat) UnmarshalJSON(b []byte) error {
	var n float64
	if err := json.Unmarshal(b, &n); err == nil {
		*f = resolvedFloat(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("gamma must be a number: %w", err)
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fmt.Errorf("gamma %q is not a resolved numeric value", s)
	}
	*f = resolvedFloat(n)
	return nil
}

// Load reads an artifact file and, when infoPath is non-empty, its
// model_info.json companion. With no companion the metadata embedded in the
// artifact is used.
func Load(modelPath, infoPath string) (*Artifact, error) {
	data, err := os.ReadFile(modelPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read artifact: %w", domain.ErrLoad, err)
	}

	var info *Info
	if infoPath != "" {
		i, err := LoadInfo(infoPath)
		if err != nil {
			return nil, err
		}
		info = &i
	}

	a, err := Parse(data, info)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", modelPath, err)
	}
	return a, nil
}

// Parse decodes an artifact, dispatching on model_type. A nil info means the
// metadata must be embedded in data.
func Parse(data []byte, info *Info) (*Artifact, error) {
	var h header
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("%w: decode artifact: %w", domain.ErrLoad, err)
	}

	var (
		a   *Artifact
		err error
	)
	switch h.ModelType {
	case FamilySVR:
		a, err = parseKernel(data)
	case FamilyRandomForest:
		a, err = parseEnsemble(data)
	case "":
		return nil, fmt.Errorf("%w: model_type is required", domain.ErrLoad)
	default:
		return nil, fmt.Errorf("%w: unsupported model_type %q", domain.ErrLoad, h.ModelType)
	}
	if err != nil {
		return nil, err
	}

	if info == nil {
		embedded, err := h.embeddedInfo()
		if err != nil {
			return nil, fmt.Errorf("%w: artifact metadata: %w", domain.ErrLoad, err)
		}
		info = &embedded
	}
	if info.ModelType != "" && info.ModelType != string(h.ModelType) {
		return nil, fmt.Errorf("%w: model info describes %q but artifact is %q", domain.ErrLoad, info.ModelType, h.ModelType)
	}
	a.info = *info
	return a, nil
}

func (h header) embeddedInfo() (Info, error) {
	return infoFields{
		ModelName:    h.ModelName,
		ModelType:    string(h.ModelType),
		TestR2:       h.TestR2,
		TestRMSE:     h.TestRMSE,
		TestMAE:      h.TestMAE,
		FeatureNames: h.FeatureNames,
		ModelVersion: h.ModelVersion,
	}.info()
}

// common validates the feature order and builds the scaler.
func (h header) common() (*Scaler, bool, error) {
	if !domain.SameFeatureOrder(h.FeatureNames) {
		return nil, false, fmt.Errorf("%w: feature_names %v do not match the canonical order", domain.ErrLoad, h.FeatureNames)
	}
	s, err := NewScaler(h.ScalerMean, h.ScalerScale)
	if err != nil {
		return nil, false, err
	}
	scalingRequired := true
	if h.ScalingRequired != nil {
		scalingRequired = *h.ScalingRequired
	}
	return s, scalingRequired, nil
}

func parseKernel(data []byte) (*Artifact, error) {
	var f kernelFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: decode SVR artifact: %w", domain.ErrLoad, err)
	}

	var missing []string
	for name, present := range map[string]bool{
		"kernel":            f.Kernel != "",
		"C":                 f.C != nil,
		"gamma":             f.Gamma != nil,
		"epsilon":           f.Epsilon != nil,
		"intercept":         f.Intercept != nil,
		"support_vectors":   f.SupportVectors != nil,
		"dual_coefficients": f.DualCoefficients != nil,
	} {
		if !present {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return nil, fmt.Errorf("%w: SVR artifact missing %s", domain.ErrLoad, strings.Join(missing, ", "))
	}

	scaler, scalingRequired, err := f.common()
	if err != nil {
		return nil, err
	}

	params := KernelParams{
		Kind:   f.Kernel,
		Gamma:  float64(*f.Gamma),
		Degree: DefaultDegree,
		Coef0:  DefaultCoef0,
	}
	if f.Degree != nil {
		params.Degree = *f.Degree
	}
	if f.Coef0 != nil {
		params.Coef0 = *f.Coef0
	}
	if math.IsNaN(params.Coef0) || math.IsInf(params.Coef0, 0) {
		return nil, fmt.Errorf("%w: coef0 %v is not finite", domain.ErrLoad, params.Coef0)
	}

	k, err := NewKernelRegressor(params, f.SupportVectors, f.DualCoefficients, *f.Intercept)
	if err != nil {
		return nil, err
	}
	return NewKernelArtifact(k, scaler, scalingRequired, Info{}), nil
}

func parseEnsemble(data []byte) (*Artifact, error) {
	var f ensembleFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: decode RandomForestRegressor artifact: %w", domain.ErrLoad, err)
	}
	if f.NFeatures == nil || *f.NFeatures != domain.FeatureCount {
		return nil, fmt.Errorf("%w: n_features must be %d", domain.ErrLoad, domain.FeatureCount)
	}
	if f.NTrees == nil || *f.NTrees != len(f.Trees) {
		return nil, fmt.Errorf("%w: n_trees does not match %d serialized trees", domain.ErrLoad, len(f.Trees))
	}

	scaler, scalingRequired, err := f.common()
	if err != nil {
		return nil, err
	}

	trees := make([]Tree, len(f.Trees))
	for i, t := range f.Trees {
		trees[i] = Tree{
			Feature:       t.Feature,
			Threshold:     t.Threshold,
			Value:         t.Value,
			ChildrenLeft:  t.ChildrenLeft,
			ChildrenRight: t.ChildrenRight,
		}
	}
	e, err := NewEnsembleRegressor(trees)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrLoad, err)
	}
	return NewEnsembleArtifact(e, scaler, scalingRequired, Info{}), nil
}
