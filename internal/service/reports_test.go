package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/health-risk-server/internal/domain"
)

func TestGenerateReport(t *testing.T) {
	submitted := time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC)
	a := &domain.Assessment{
		ID:          "a-1",
		UserID:      "u-1",
		DiseaseType: domain.DiseaseKidney,
		SubmittedAt: submitted,
		RiskScore:   50,
		RiskLevel:   domain.RiskModerate,
	}

	r, err := GenerateReport(a, submitted.Add(time.Minute))
	require.NoError(t, err)

	assert.NotEmpty(t, r.ID)
	assert.Equal(t, "a-1", r.AssessmentID)
	assert.Equal(t, "u-1", r.UserID)
	assert.Equal(t, "Kidney Disease Risk Assessment", r.Title)
	assert.Equal(t, "2026-03-14", r.Date)
	assert.Equal(t, 50, r.RiskScore)
	assert.Equal(t, "Your assessment indicates a moderate risk of kidney disease. Some preventive measures may be beneficial.", r.Summary)
	assert.Equal(t, []string{
		"Monitor your blood pressure regularly",
		"Consider getting your kidney function tested",
		"Limit NSAIDs use",
		"Stay well-hydrated",
		"Follow a kidney-friendly diet if recommended by your doctor",
	}, r.Recommendations)
}

func TestGenerateReportCoversEveryDiseaseAndLevel(t *testing.T) {
	for _, d := range domain.AllDiseases {
		for _, level := range []domain.RiskLevel{domain.RiskLow, domain.RiskModerate, domain.RiskHigh} {
			r, err := GenerateReport(&domain.Assessment{DiseaseType: d, RiskLevel: level}, time.Now())
			require.NoError(t, err, "%s/%s", d, level)
			assert.NotEmpty(t, r.Summary)
			assert.GreaterOrEqual(t, len(r.Recommendations), 3)
			assert.Contains(t, r.Title, d.DisplayName())
		}
	}
}

func TestGenerateReportCopiesRecommendations(t *testing.T) {
	a := &domain.Assessment{DiseaseType: domain.DiseaseHeart, RiskLevel: domain.RiskLow}
	r1, err := GenerateReport(a, time.Now())
	require.NoError(t, err)
	r1.Recommendations[0] = "changed"

	r2, err := GenerateReport(a, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "Maintain a heart-healthy diet", r2.Recommendations[0])
}

func TestGenerateReportRejectsUnknownLevel(t *testing.T) {
	_, err := GenerateReport(&domain.Assessment{DiseaseType: domain.DiseaseHeart}, time.Now())
	assert.ErrorIs(t, err, domain.ErrInvalidRiskLevel)

	_, err = GenerateReport(&domain.Assessment{DiseaseType: "asthma", RiskLevel: domain.RiskLow}, time.Now())
	assert.ErrorIs(t, err, domain.ErrInvalidDisease)
}
