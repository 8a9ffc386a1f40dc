package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/spf13/cast"
)

// Categorical answer values shared by the questionnaires.
const (
	AnswerYes     = "yes"
	AnswerNo      = "no"
	AnswerUnknown = "unknown"

	DietHealthy   = "healthy"
	DietModerate  = "moderate"
	DietUnhealthy = "unhealthy"

	WaterLessThan4 = "less-than-4"
	Water4To8      = "4-8"
	WaterMoreThan8 = "more-than-8"

	ActivitySedentary = "sedentary"
	ActivityLight     = "light"
	ActivityModerate  = "moderate"
	ActivityHigh      = "high"

	StressLow      = "low"
	StressModerate = "moderate"
	StressHigh     = "high"
)

// Question identifiers as submitted by the questionnaire forms.
const (
	QuestionDiabetesAge           = "d1"
	QuestionDiabetesFamilyHistory = "d2"
	QuestionDiabetesWeight        = "d3"
	QuestionDiabetesHeight        = "d4"
	QuestionDiabetesDiet          = "d5"

	QuestionKidneyHypertension  = "kd1"
	QuestionKidneyDiabetes      = "kd2"
	QuestionKidneyFamilyHistory = "kd3"
	QuestionKidneyWater         = "kd4"
	QuestionKidneyNSAID         = "kd5"

	QuestionHeartHypertension  = "hd1"
	QuestionHeartCholesterol   = "hd2"
	QuestionHeartFamilyHistory = "hd3"
	QuestionHeartActivity      = "hd4"
	QuestionHeartStress        = "hd5"
)

// DiabetesAnswers holds the diabetes questionnaire. Zero numeric values mean
// the answer was absent or not a number.
type DiabetesAnswers struct {
	Age           float64 `json:"d1,omitempty"`
	FamilyHistory string  `json:"d2,omitempty"`
	WeightKg      float64 `json:"d3,omitempty"`
	HeightCm      float64 `json:"d4,omitempty"`
	DietQuality   string  `json:"d5,omitempty"`
}

// BMI returns weight / height(m)^2 and false when either input is missing.
func (a DiabetesAnswers) BMI() (float64, bool) {
	if a.WeightKg <= 0 || a.HeightCm <= 0 {
		return 0, false
	}
	h := a.HeightCm / 100
	return a.WeightKg / (h * h), true
}

// KidneyAnswers holds the kidney disease questionnaire.
type KidneyAnswers struct {
	Hypertension    string `json:"kd1,omitempty"`
	DiabetesPresent string `json:"kd2,omitempty"`
	FamilyHistory   string `json:"kd3,omitempty"`
	WaterIntakeBand string `json:"kd4,omitempty"`
	NSAIDUse        string `json:"kd5,omitempty"`
}

// HeartAnswers holds the heart disease questionnaire.
type HeartAnswers struct {
	Hypertension    string `json:"hd1,omitempty"`
	HighCholesterol string `json:"hd2,omitempty"`
	FamilyHistory   string `json:"hd3,omitempty"`
	ActivityLevel   string `json:"hd4,omitempty"`
	StressLevel     string `json:"hd5,omitempty"`
}

// Answers is a tagged union of the per-disease questionnaires. Exactly one
// variant pointer is set and it matches Disease.
type Answers struct {
	Disease  DiseaseType
	Diabetes *DiabetesAnswers
	Kidney   *KidneyAnswers
	Heart    *HeartAnswers
}

// NewDiabetesAnswers wraps a diabetes questionnaire.
func NewDiabetesAnswers(a DiabetesAnswers) Answers {
	return Answers{Disease: DiseaseDiabetes, Diabetes: &a}
}

// NewKidneyAnswers wraps a kidney disease questionnaire.
func NewKidneyAnswers(a KidneyAnswers) Answers {
	return Answers{Disease: DiseaseKidney, Kidney: &a}
}

// NewHeartAnswers wraps a heart disease questionnaire.
func NewHeartAnswers(a HeartAnswers) Answers {
	return Answers{Disease: DiseaseHeart, Heart: &a}
}

// DecodeAnswers converts a raw question-id keyed map into the typed variant
// for disease. Unknown keys are ignored and values that do not convert are
// left at their zero value. Only an unsupported disease is an error.
func DecodeAnswers(disease DiseaseType, raw map[string]any) (Answers, error) {
	switch disease {
	case DiseaseDiabetes:
		return NewDiabetesAnswers(DiabetesAnswers{
			Age:           number(raw[QuestionDiabetesAge]),
			FamilyHistory: choice(raw[QuestionDiabetesFamilyHistory]),
			WeightKg:      number(raw[QuestionDiabetesWeight]),
			HeightCm:      number(raw[QuestionDiabetesHeight]),
			DietQuality:   choice(raw[QuestionDiabetesDiet]),
		}), nil
	case DiseaseKidney:
		return NewKidneyAnswers(KidneyAnswers{
			Hypertension:    choice(raw[QuestionKidneyHypertension]),
			DiabetesPresent: choice(raw[QuestionKidneyDiabetes]),
			FamilyHistory:   choice(raw[QuestionKidneyFamilyHistory]),
			WaterIntakeBand: choice(raw[QuestionKidneyWater]),
			NSAIDUse:        choice(raw[QuestionKidneyNSAID]),
		}), nil
	case DiseaseHeart:
		return NewHeartAnswers(HeartAnswers{
			Hypertension:    choice(raw[QuestionHeartHypertension]),
			HighCholesterol: choice(raw[QuestionHeartCholesterol]),
			FamilyHistory:   choice(raw[QuestionHeartFamilyHistory]),
			ActivityLevel:   choice(raw[QuestionHeartActivity]),
			StressLevel:     choice(raw[QuestionHeartStress]),
		}), nil
	default:
		return Answers{}, fmt.Errorf("%w: %q", ErrInvalidDisease, disease)
	}
}

// Map flattens the answers back to question-id keys, omitting absent values.
func (a Answers) Map() map[string]any {
	out := make(map[string]any)
	put := func(k string, v any) {
		switch x := v.(type) {
		case string:
			if x != "" {
				out[k] = x
			}
		case float64:
			if x != 0 {
				out[k] = x
			}
		}
	}
	switch {
	case a.Diabetes != nil:
		put(QuestionDiabetesAge, a.Diabetes.Age)
		put(QuestionDiabetesFamilyHistory, a.Diabetes.FamilyHistory)
		put(QuestionDiabetesWeight, a.Diabetes.WeightKg)
		put(QuestionDiabetesHeight, a.Diabetes.HeightCm)
		put(QuestionDiabetesDiet, a.Diabetes.DietQuality)
	case a.Kidney != nil:
		put(QuestionKidneyHypertension, a.Kidney.Hypertension)
		put(QuestionKidneyDiabetes, a.Kidney.DiabetesPresent)
		put(QuestionKidneyFamilyHistory, a.Kidney.FamilyHistory)
		put(QuestionKidneyWater, a.Kidney.WaterIntakeBand)
		put(QuestionKidneyNSAID, a.Kidney.NSAIDUse)
	case a.Heart != nil:
		put(QuestionHeartHypertension, a.Heart.Hypertension)
		put(QuestionHeartCholesterol, a.Heart.HighCholesterol)
		put(QuestionHeartFamilyHistory, a.Heart.FamilyHistory)
		put(QuestionHeartActivity, a.Heart.ActivityLevel)
		put(QuestionHeartStress, a.Heart.StressLevel)
	}
	return out
}

// MarshalJSON encodes the answers as a flat question-id map.
func (a Answers) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Map())
}

func number(v any) float64 {
	if s, ok := v.(string); ok {
		v = strings.TrimSpace(s)
	}
	f := cast.ToFloat64(v)
	if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func choice(v any) string {
	return strings.ToLower(strings.TrimSpace(cast.ToString(v)))
}

// Clone returns a copy that shares no memory with a.
func (a Answers) Clone() Answers {
	out := Answers{Disease: a.Disease}
	if a.Diabetes != nil {
		d := *a.Diabetes
		out.Diabetes = &d
	}
	if a.Kidney != nil {
		k := *a.Kidney
		out.Kidney = &k
	}
	if a.Heart != nil {
		h := *a.Heart
		out.Heart = &h
	}
	return out
}
