package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/couchcryptid/storm-windspeed-predictor/internal/domain"
)

// Info is the training-time metadata reported alongside every prediction.
// It is copied verbatim, never recomputed.
type Info struct {
	ModelName         string             `json:"model_name"`
	ModelType         string             `json:"model_type,omitempty"`
	TestR2            float64            `json:"test_r2_score"`
	TestRMSE          float64            `json:"test_rmse"`
	TestMAE           float64            `json:"test_mae"`
	CVMeanR2          float64            `json:"cv_mean_r2,omitempty"`
	CVStdR2           float64            `json:"cv_std_r2,omitempty"`
	FeatureImportance map[string]float64 `json:"feature_importance,omitempty"`
	FeatureNames      []string           `json:"feature_names,omitempty"`
	ModelVersion      string             `json:"model_version,omitempty"`
	TrainingDate      string             `json:"training_date,omitempty"`
	AllModelsTested   []string           `json:"all_models_tested,omitempty"`
	AllModelsR2       map[string]float64 `json:"all_models_r2_scores,omitempty"`
}

// infoFields is the wire form; pointer fields distinguish absent from zero.
type infoFields struct {
	ModelName         string             `json:"model_name"`
	ModelType         string             `json:"model_type"`
	TestR2            *float64           `json:"test_r2_score"`
	TestRMSE          *float64           `json:"test_rmse"`
	TestMAE           *float64           `json:"test_mae"`
	CVMeanR2          *float64           `json:"cv_mean_r2"`
	CVStdR2           *float64           `json:"cv_std_r2"`
	FeatureImportance map[string]float64 `json:"feature_importance"`
	FeatureNames      []string           `json:"feature_names"`
	ModelVersion      json.RawMessage    `json:"model_version"`
	TrainingDate      string             `json:"training_date"`
	AllModelsTested   []string           `json:"all_models_tested"`
	AllModelsR2       map[string]float64 `json:"all_models_r2_scores"`
}

// info converts the wire form. model_name, test_r2_score and test_rmse are
// required; the remaining figures default to zero.
func (f infoFields) info() (Info, error) {
	if f.ModelName == "" {
		return Info{}, errors.New("model_name is required")
	}
	if f.TestR2 == nil {
		return Info{}, errors.New("test_r2_score is required")
	}
	if f.TestRMSE == nil {
		return Info{}, errors.New("test_rmse is required")
	}
	if f.FeatureNames != nil && !domain.SameFeatureOrder(f.FeatureNames) {
		return Info{}, fmt.Errorf("feature_names %v do not match the canonical order", f.FeatureNames)
	}
	return Info{
		ModelName:         f.ModelName,
		ModelType:         f.ModelType,
		TestR2:            *f.TestR2,
		TestRMSE:          *f.TestRMSE,
		TestMAE:           deref(f.TestMAE),
		CVMeanR2:          deref(f.CVMeanR2),
		CVStdR2:           deref(f.CVStdR2),
		FeatureImportance: f.FeatureImportance,
		FeatureNames:      f.FeatureNames,
		ModelVersion:      rawScalar(f.ModelVersion),
		TrainingDate:      f.TrainingDate,
		AllModelsTested:   f.AllModelsTested,
		AllModelsR2:       f.AllModelsR2,
	}, nil
}

// LoadInfo reads a model_info.json companion file.
func LoadInfo(path string) (Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Info{}, fmt.Errorf("%w: read model info: %w", domain.ErrLoad, err)
	}
	return ParseInfo(data)
}

// ParseInfo decodes model_info.json content.
func ParseInfo(data []byte) (Info, error) {
	var f infoFields
	if err := json.Unmarshal(data, &f); err != nil {
		return Info{}, fmt.Errorf("%w: decode model info: %w", domain.ErrLoad, err)
	}
	info, err := f.info()
	if err != nil {
		return Info{}, fmt.Errorf("%w: model info: %w", domain.ErrLoad, err)
	}
	return info, nil
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// rawScalar renders a JSON string or number as plain text ("4.0" or 4.0 -> "4.0").
func rawScalar(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
