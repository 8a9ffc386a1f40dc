package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyScore(t *testing.T) {
	tests := []struct {
		score int
		want  RiskLevel
	}{
		{0, RiskLow},
		{29, RiskLow},
		{30, RiskModerate},
		{59, RiskModerate},
		{60, RiskHigh},
		{100, RiskHigh},
		{135, RiskHigh},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyScore(tt.score), "score %d", tt.score)
	}
}

func TestClassifyPercentage(t *testing.T) {
	assert.Equal(t, RiskLow, ClassifyPercentage(32.99))
	assert.Equal(t, RiskModerate, ClassifyPercentage(33))
	assert.Equal(t, RiskModerate, ClassifyPercentage(65.5))
	assert.Equal(t, RiskHigh, ClassifyPercentage(66))
}

func TestParseDiseaseType(t *testing.T) {
	tests := []struct {
		in   string
		want DiseaseType
	}{
		{"diabetes", DiseaseDiabetes},
		{"kidneyDisease", DiseaseKidney},
		{"kidney", DiseaseKidney},
		{"HEART", DiseaseHeart},
		{"heart_disease", DiseaseHeart},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDiseaseType(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseDiseaseType("asthma")
	assert.True(t, errors.Is(err, ErrInvalidDisease))
}

func TestParseRiskLevel(t *testing.T) {
	got, err := ParseRiskLevel(" High ")
	require.NoError(t, err)
	assert.Equal(t, RiskHigh, got)

	_, err = ParseRiskLevel("severe")
	assert.ErrorIs(t, err, ErrInvalidRiskLevel)
}

func TestDiseaseDisplayName(t *testing.T) {
	assert.Equal(t, "Diabetes", DiseaseDiabetes.DisplayName())
	assert.Equal(t, "Kidney Disease", DiseaseKidney.DisplayName())
	assert.Equal(t, "Heart Disease", DiseaseHeart.DisplayName())
}

func TestDecodeAnswers(t *testing.T) {
	t.Run("diabetes with mixed value types", func(t *testing.T) {
		a, err := DecodeAnswers(DiseaseDiabetes, map[string]any{
			"d1": "50",
			"d2": "Yes",
			"d3": 90,
			"d4": 170.0,
			"d5": " unhealthy ",
			"zz": "ignored",
		})
		require.NoError(t, err)
		require.NotNil(t, a.Diabetes)
		assert.Nil(t, a.Kidney)
		assert.Nil(t, a.Heart)
		assert.Equal(t, 50.0, a.Diabetes.Age)
		assert.Equal(t, AnswerYes, a.Diabetes.FamilyHistory)
		assert.Equal(t, 90.0, a.Diabetes.WeightKg)
		assert.Equal(t, 170.0, a.Diabetes.HeightCm)
		assert.Equal(t, DietUnhealthy, a.Diabetes.DietQuality)
	})

	t.Run("non numeric values degrade to zero", func(t *testing.T) {
		a, err := DecodeAnswers(DiseaseDiabetes, map[string]any{"d1": "fifty", "d3": -4})
		require.NoError(t, err)
		assert.Zero(t, a.Diabetes.Age)
		assert.Zero(t, a.Diabetes.WeightKg)
	})

	t.Run("nil map", func(t *testing.T) {
		a, err := DecodeAnswers(DiseaseHeart, nil)
		require.NoError(t, err)
		require.NotNil(t, a.Heart)
		assert.Empty(t, a.Map())
	})

	t.Run("unsupported disease", func(t *testing.T) {
		_, err := DecodeAnswers("asthma", map[string]any{})
		assert.ErrorIs(t, err, ErrInvalidDisease)
	})
}

func TestDiabetesBMI(t *testing.T) {
	bmi, ok := DiabetesAnswers{WeightKg: 90, HeightCm: 170}.BMI()
	require.True(t, ok)
	assert.InDelta(t, 31.14, bmi, 0.01)

	_, ok = DiabetesAnswers{WeightKg: 90}.BMI()
	assert.False(t, ok)
}

func TestAssessmentJSONRoundTripKeepsQuestionIDs(t *testing.T) {
	in := Assessment{
		ID:          "a-1",
		UserID:      "u-1",
		DiseaseType: DiseaseKidney,
		Answers: NewKidneyAnswers(KidneyAnswers{
			Hypertension:    AnswerYes,
			WaterIntakeBand: Water4To8,
		}),
		RiskScore: 30,
		RiskLevel: RiskModerate,
		Region:    "Austin, Texas",
	}

	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"kd1":"yes"`)
	assert.Contains(t, string(data), `"kd4":"4-8"`)

	var out Assessment
	require.NoError(t, json.Unmarshal(data, &out))
	require.NotNil(t, out.Answers.Kidney)
	assert.Equal(t, in.Answers.Kidney, out.Answers.Kidney)
	assert.Equal(t, DiseaseKidney, out.Answers.Disease)
	assert.Equal(t, in.Region, out.Region)
}

func TestAssessmentUnmarshalToleratesUnknownDisease(t *testing.T) {
	var a Assessment
	err := json.Unmarshal([]byte(`{"id":"x","diseaseType":"asthma","answers":{"q":1},"riskLevel":"low"}`), &a)
	require.NoError(t, err)
	assert.Nil(t, a.Answers.Diabetes)
	assert.Nil(t, a.Answers.Kidney)
	assert.Nil(t, a.Answers.Heart)
}
