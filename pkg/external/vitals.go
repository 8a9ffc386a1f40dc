package external

import (
	"fmt"
	"math"

	"github.com/health-risk-server/internal/domain"
)

// DiabetesVitals are the inputs of the remote diabetes model. BMI is derived
// from weight and height when left at zero.
type DiabetesVitals struct {
	HbA1c       float64 `json:"hba1c"`
	Glucose     float64 `json:"glucose"`
	BMI         float64 `json:"bmi"`
	Weight      float64 `json:"weight"`
	Height      float64 `json:"height"`
	SystolicBP  float64 `json:"systolic_bp"`
	DiastolicBP float64 `json:"diastolic_bp"`
	Cholesterol float64 `json:"cholesterol"`
	LDL         float64 `json:"ldl"`
	EGFR        float64 `json:"egfr"`
	Age         float64 `json:"age"`
}

// KidneyVitals are the inputs of the remote chronic kidney disease model.
type KidneyVitals struct {
	Age               float64 `json:"age"`
	EGFR              float64 `json:"egfr"`
	AlbuminCreatinine float64 `json:"albumin_creatinine"`
	Glucose           float64 `json:"glucose"`
	HbA1c             float64 `json:"hba1c"`
	BMI               float64 `json:"bmi"`
	SystolicBP        float64 `json:"systolic_bp"`
	DiastolicBP       float64 `json:"diastolic_bp"`
	EncounterCount    float64 `json:"encounter_count"`
}

type field struct {
	key   string
	value float64
}

// WithDerivedBMI returns a copy with BMI computed from weight (kg) and height (cm)
// when BMI is unset and height is positive.
func (v DiabetesVitals) WithDerivedBMI() DiabetesVitals {
	if v.BMI <= 0 && v.Height > 0 {
		m := v.Height / 100
		v.BMI = v.Weight / (m * m)
	}
	return v
}

func (v DiabetesVitals) fields() []field {
	return []field{
		{"hba1c", v.HbA1c},
		{"glucose", v.Glucose},
		{"bmi", v.BMI},
		{"weight", v.Weight},
		{"height", v.Height},
		{"systolic_bp", v.SystolicBP},
		{"diastolic_bp", v.DiastolicBP},
		{"cholesterol", v.Cholesterol},
		{"ldl", v.LDL},
		{"egfr", v.EGFR},
		{"age", v.Age},
	}
}

func (v KidneyVitals) fields() []field {
	return []field{
		{"age", v.Age},
		{"egfr", v.EGFR},
		{"albumin_creatinine", v.AlbuminCreatinine},
		{"glucose", v.Glucose},
		{"hba1c", v.HbA1c},
		{"bmi", v.BMI},
		{"systolic_bp", v.SystolicBP},
		{"diastolic_bp", v.DiastolicBP},
		{"encounter_count", v.EncounterCount},
	}
}

// Validate requires every vital to be a positive number.
func (v DiabetesVitals) Validate() error { return validatePositive(v.fields()) }

// Validate requires every vital to be a positive number.
func (v KidneyVitals) Validate() error { return validatePositive(v.fields()) }

// Map returns the vitals keyed by their wire names.
func (v DiabetesVitals) Map() map[string]float64 { return toMap(v.fields()) }

// Map returns the vitals keyed by their wire names.
func (v KidneyVitals) Map() map[string]float64 { return toMap(v.fields()) }

func validatePositive(fields []field) error {
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return domain.NewValidationError(f.key, "Please provide valid numeric values for all fields.", f.value)
		}
		if f.value <= 0 {
			return domain.NewValidationError(f.key, fmt.Sprintf("Please provide a valid positive value for %s", f.key), f.value)
		}
	}
	return nil
}

func toMap(fields []field) map[string]float64 {
	m := make(map[string]float64, len(fields))
	for _, f := range fields {
		m[f.key] = f.value
	}
	return m
}

// RecommendationRequest asks the service for advice on a scored assessment.
// Vitals are flattened into the request body next to disease and risk_score.
type RecommendationRequest struct {
	Disease   domain.DiseaseType
	RiskScore float64
	Vitals    map[string]float64
}

func (r RecommendationRequest) body() map[string]any {
	body := make(map[string]any, len(r.Vitals)+2)
	for k, v := range r.Vitals {
		body[k] = v
	}
	body["disease"] = string(r.Disease)
	body["risk_score"] = r.RiskScore
	return body
}

// newPrediction maps a remote percentage onto the local risk levels.
func newPrediction(pct float64) *Prediction {
	return &Prediction{
		RiskPercentage: pct,
		RiskScore:      int(math.Round(pct)),
		RiskLevel:      domain.ClassifyPercentage(pct),
	}
}
