package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/health-risk-server/internal/domain"
)

func assessment(d domain.DiseaseType, level domain.RiskLevel, score int, region string, answers domain.Answers) domain.Assessment {
	return domain.Assessment{
		DiseaseType: d,
		RiskLevel:   level,
		RiskScore:   score,
		Region:      region,
		Answers:     answers,
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)

	assert.Equal(t, 0, s.TotalAssessments)
	assert.Empty(t, s.AssessmentsByRiskLevel)
	assert.Empty(t, s.AssessmentsByDisease)
	assert.Empty(t, s.AssessmentsByRegion)
	assert.Equal(t, []domain.RiskFactorCount{{Factor: "No data available", Count: 0}}, s.TopRiskFactors)
}

func TestSummarizeCountsByRiskLevel(t *testing.T) {
	in := []domain.Assessment{
		{RiskLevel: domain.RiskHigh, DiseaseType: domain.DiseaseHeart},
		{RiskLevel: domain.RiskHigh, DiseaseType: domain.DiseaseHeart},
		{RiskLevel: domain.RiskLow, DiseaseType: domain.DiseaseKidney},
	}

	s := Summarize(in)

	assert.Equal(t, 3, s.TotalAssessments)
	assert.Equal(t, map[string]int{"high": 2, "low": 1}, s.AssessmentsByRiskLevel)
	assert.Equal(t, map[string]int{"heartDisease": 2, "kidneyDisease": 1}, s.AssessmentsByDisease)
}

func TestSummarizeUnknownBuckets(t *testing.T) {
	in := []domain.Assessment{
		{DiseaseType: domain.DiseaseDiabetes},
		{DiseaseType: domain.DiseaseDiabetes, RiskLevel: domain.RiskModerate, Region: "Austin, Texas"},
	}

	s := Summarize(in)

	assert.Equal(t, map[string]int{"unknown": 1, "moderate": 1}, s.AssessmentsByRiskLevel)
	assert.Equal(t, map[string]int{"unknown": 1, "Austin, Texas": 1}, s.AssessmentsByRegion)
	// empty variants contribute no factors
	assert.Equal(t, domain.NoDataFactor, s.TopRiskFactors[0].Factor)
}

func TestSummarizeTotalsInvariant(t *testing.T) {
	in := []domain.Assessment{
		assessment(domain.DiseaseDiabetes, domain.RiskHigh, 80, "Austin, Texas", domain.NewDiabetesAnswers(domain.DiabetesAnswers{FamilyHistory: "yes"})),
		assessment(domain.DiseaseKidney, domain.RiskModerate, 40, "Boston, Massachusetts", domain.NewKidneyAnswers(domain.KidneyAnswers{})),
		assessment(domain.DiseaseHeart, "", 0, "", domain.Answers{}),
		assessment("", domain.RiskLow, 10, "Boston, Massachusetts", domain.Answers{}),
	}

	s := Summarize(in)

	sum := func(m map[string]int) int {
		n := 0
		for _, v := range m {
			n += v
		}
		return n
	}
	assert.Equal(t, s.TotalAssessments, sum(s.AssessmentsByRiskLevel))
	assert.Equal(t, s.TotalAssessments, sum(s.AssessmentsByDisease))
	assert.Equal(t, s.TotalAssessments, sum(s.AssessmentsByRegion))
}

func TestSummarizeTopRiskFactorsMergeAcrossDiseases(t *testing.T) {
	in := []domain.Assessment{
		assessment(domain.DiseaseDiabetes, domain.RiskHigh, 100, "Austin, Texas", domain.NewDiabetesAnswers(domain.DiabetesAnswers{
			Age: 50, FamilyHistory: "yes", WeightKg: 90, HeightCm: 170, DietQuality: "unhealthy",
		})),
		assessment(domain.DiseaseHeart, domain.RiskHigh, 90, "Austin, Texas", domain.NewHeartAnswers(domain.HeartAnswers{
			Hypertension: "yes", HighCholesterol: "yes", FamilyHistory: "yes", ActivityLevel: "sedentary",
		})),
		assessment(domain.DiseaseKidney, domain.RiskHigh, 80, "Austin, Texas", domain.NewKidneyAnswers(domain.KidneyAnswers{
			Hypertension: "yes", DiabetesPresent: "yes", FamilyHistory: "yes",
		})),
	}

	s := Summarize(in)

	require.Len(t, s.TopRiskFactors, 5)
	assert.Equal(t, domain.RiskFactorCount{Factor: "Family History", Count: 3}, s.TopRiskFactors[0])
	assert.Equal(t, domain.RiskFactorCount{Factor: "Hypertension", Count: 2}, s.TopRiskFactors[1])
	for i := 1; i < len(s.TopRiskFactors); i++ {
		assert.GreaterOrEqual(t, s.TopRiskFactors[i-1].Count, s.TopRiskFactors[i].Count)
	}
	// ties at count 1 are ordered by name
	assert.Equal(t, "Diabetes", s.TopRiskFactors[2].Factor)
	assert.Equal(t, "High Cholesterol", s.TopRiskFactors[3].Factor)
	assert.Equal(t, "Obesity", s.TopRiskFactors[4].Factor)
}

func TestRiskFactorsSkipsAbsentInputs(t *testing.T) {
	assert.Empty(t, RiskFactors(domain.NewDiabetesAnswers(domain.DiabetesAnswers{WeightKg: 150})))
	assert.Equal(t, []string{"Obesity"}, RiskFactors(domain.NewDiabetesAnswers(domain.DiabetesAnswers{WeightKg: 100, HeightCm: 170})))
	assert.Empty(t, RiskFactors(domain.Answers{Disease: domain.DiseaseKidney}))
	assert.Empty(t, RiskFactors(domain.NewHeartAnswers(domain.HeartAnswers{ActivityLevel: "light"})))
}

func TestRegionalBreakdown(t *testing.T) {
	in := []domain.Assessment{
		assessment(domain.DiseaseHeart, domain.RiskHigh, 70, "Austin, Texas", domain.Answers{}),
		assessment(domain.DiseaseHeart, domain.RiskLow, 10, "Austin, Texas", domain.Answers{}),
		assessment(domain.DiseaseHeart, domain.RiskLow, 15, "Austin, Texas", domain.Answers{}),
		assessment(domain.DiseaseHeart, domain.RiskHigh, 90, "Reno, Nevada", domain.Answers{}),
		assessment(domain.DiseaseHeart, domain.RiskModerate, 45, "", domain.Answers{}),
	}

	t.Run("by count", func(t *testing.T) {
		stats := RegionalBreakdown(in, SortByCount, 0)
		require.Len(t, stats, 3)
		assert.Equal(t, domain.RegionStat{
			Region:             "Austin, Texas",
			AssessmentCount:    3,
			AverageRisk:        32,
			HighRiskCount:      1,
			HighRiskPercentage: 33,
		}, stats[0])
	})

	t.Run("by average risk", func(t *testing.T) {
		stats := RegionalBreakdown(in, SortByRisk, 0)
		assert.Equal(t, "Reno, Nevada", stats[0].Region)
		assert.Equal(t, domain.UnknownBucket, stats[1].Region)
		assert.Equal(t, 45, stats[1].AverageRisk)
	})

	t.Run("by high risk percentage", func(t *testing.T) {
		stats := RegionalBreakdown(in, SortByHighRisk, 2)
		require.Len(t, stats, 2)
		assert.Equal(t, "Reno, Nevada", stats[0].Region)
		assert.Equal(t, 100, stats[0].HighRiskPercentage)
		assert.Equal(t, "Austin, Texas", stats[1].Region)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, RegionalBreakdown(nil, SortByCount, 5))
	})
}

func TestDiseaseBreakdown(t *testing.T) {
	in := []domain.Assessment{
		{DiseaseType: domain.DiseaseDiabetes, RiskLevel: domain.RiskHigh},
		{DiseaseType: domain.DiseaseDiabetes, RiskLevel: domain.RiskLow},
		{DiseaseType: domain.DiseaseDiabetes, RiskLevel: domain.RiskLow},
		{DiseaseType: domain.DiseaseKidney, RiskLevel: domain.RiskModerate},
	}

	out := DiseaseBreakdown(in)
	require.Len(t, out, 3)

	assert.Equal(t, domain.DiseaseRiskBreakdown{
		DiseaseType:        domain.DiseaseDiabetes,
		Total:              3,
		HighCount:          1,
		LowCount:           2,
		HighPercentage:     33,
		ModeratePercentage: 0,
		LowPercentage:      67,
	}, out[0])
	assert.Equal(t, 100, out[1].ModeratePercentage)
	assert.Equal(t, domain.DiseaseRiskBreakdown{DiseaseType: domain.DiseaseHeart}, out[2])
}

func TestParseRegionSort(t *testing.T) {
	for in, want := range map[string]RegionSort{
		"":          SortByCount,
		"count":     SortByCount,
		"risk":      SortByRisk,
		"high-risk": SortByHighRisk,
	} {
		got, err := ParseRegionSort(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseRegionSort("name")
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestMissingRegionLabelMatchesSummary(t *testing.T) {
	in := []domain.Assessment{
		assessment(domain.DiseaseHeart, domain.RiskHigh, 70, "", domain.Answers{}),
	}

	summary := Summarize(in)
	regions := RegionalBreakdown(in, SortByCount, 0)

	require.Len(t, regions, 1)
	assert.Equal(t, map[string]int{regions[0].Region: 1}, summary.AssessmentsByRegion)
	assert.Equal(t, domain.UnknownBucket, regions[0].Region)
}
