package service

import (
	"math"
	"sort"

	"github.com/health-risk-server/internal/domain"
)

const (
	// MaxTopRiskFactors bounds the top risk factor ranking.
	MaxTopRiskFactors = 5
	// DefaultRegionLimit is the number of regions returned by RegionalBreakdown.
	DefaultRegionLimit = 10
)

// Risk factor names reported by the aggregator. Names shared between
// diseases are counted together.
const (
	FactorFamilyHistory      = "Family History"
	FactorPoorDiet           = "Poor Diet"
	FactorObesity            = "Obesity"
	FactorHypertension       = "Hypertension"
	FactorHighCholesterol    = "High Cholesterol"
	FactorPhysicalInactivity = "Physical Inactivity"
	FactorDiabetes           = "Diabetes"
)

// RiskFactors returns the named risk factors present in one set of answers.
// Rules whose inputs are absent are skipped.
func RiskFactors(a domain.Answers) []string {
	var out []string
	add := func(cond bool, name string) {
		if cond {
			out = append(out, name)
		}
	}

	switch a.Disease {
	case domain.DiseaseDiabetes:
		if d := a.Diabetes; d != nil {
			add(d.FamilyHistory == domain.AnswerYes, FactorFamilyHistory)
			add(d.DietQuality == domain.DietUnhealthy, FactorPoorDiet)
			bmi, ok := d.BMI()
			add(ok && bmi > 30, FactorObesity)
		}
	case domain.DiseaseHeart:
		if h := a.Heart; h != nil {
			add(h.Hypertension == domain.AnswerYes, FactorHypertension)
			add(h.HighCholesterol == domain.AnswerYes, FactorHighCholesterol)
			add(h.FamilyHistory == domain.AnswerYes, FactorFamilyHistory)
			add(h.ActivityLevel == domain.ActivitySedentary, FactorPhysicalInactivity)
		}
	case domain.DiseaseKidney:
		if k := a.Kidney; k != nil {
			add(k.Hypertension == domain.AnswerYes, FactorHypertension)
			add(k.DiabetesPresent == domain.AnswerYes, FactorDiabetes)
			add(k.FamilyHistory == domain.AnswerYes, FactorFamilyHistory)
		}
	}
	return out
}

// Summarize rolls a snapshot of assessments up into an AnalyticsSummary.
// It is recomputed from scratch on every call and is safe for concurrent use.
func Summarize(assessments []domain.Assessment) domain.AnalyticsSummary {
	summary := domain.AnalyticsSummary{
		TotalAssessments:       len(assessments),
		AssessmentsByRiskLevel: make(map[string]int),
		AssessmentsByDisease:   make(map[string]int),
		AssessmentsByRegion:    make(map[string]int),
	}

	factors := make(map[string]int)
	for i := range assessments {
		a := &assessments[i]

		level := domain.UnknownBucket
		if a.RiskLevel.IsValid() {
			level = string(a.RiskLevel)
		}
		summary.AssessmentsByRiskLevel[level]++

		disease := string(a.DiseaseType)
		if disease == "" {
			disease = domain.UnknownBucket
		}
		summary.AssessmentsByDisease[disease]++

		region := a.Region
		if region == "" {
			region = domain.UnknownBucket
		}
		summary.AssessmentsByRegion[region]++

		for _, f := range RiskFactors(a.Answers) {
			factors[f]++
		}
	}

	summary.TopRiskFactors = topFactors(factors, MaxTopRiskFactors)
	return summary
}

func topFactors(counts map[string]int, limit int) []domain.RiskFactorCount {
	if len(counts) == 0 {
		return []domain.RiskFactorCount{{Factor: domain.NoDataFactor, Count: 0}}
	}

	ranked := make([]domain.RiskFactorCount, 0, len(counts))
	for name, n := range counts {
		ranked = append(ranked, domain.RiskFactorCount{Factor: name, Count: n})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Factor < ranked[j].Factor
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// RegionSort selects the ordering of RegionalBreakdown.
type RegionSort string

const (
	SortByCount    RegionSort = "count"
	SortByRisk     RegionSort = "risk"
	SortByHighRisk RegionSort = "high-risk"
)

// ParseRegionSort validates a regional ordering name. Empty means
// SortByCount.
func ParseRegionSort(s string) (RegionSort, error) {
	switch by := RegionSort(s); by {
	case "":
		return SortByCount, nil
	case SortByCount, SortByRisk, SortByHighRisk:
		return by, nil
	default:
		return "", domain.NewValidationError("sortBy", "must be one of count, risk, high-risk", s)
	}
}

// RegionalBreakdown computes per-region statistics, ordered descending by
// the chosen measure and truncated to limit (DefaultRegionLimit when <= 0).
func RegionalBreakdown(assessments []domain.Assessment, by RegionSort, limit int) []domain.RegionStat {
	if limit <= 0 {
		limit = DefaultRegionLimit
	}

	type acc struct {
		count, scoreSum, high int
	}
	byRegion := make(map[string]*acc)
	for i := range assessments {
		region := assessments[i].Region
		if region == "" {
			region = domain.UnknownBucket
		}
		r, ok := byRegion[region]
		if !ok {
			r = &acc{}
			byRegion[region] = r
		}
		r.count++
		r.scoreSum += assessments[i].RiskScore
		if assessments[i].RiskLevel == domain.RiskHigh {
			r.high++
		}
	}

	stats := make([]domain.RegionStat, 0, len(byRegion))
	for region, r := range byRegion {
		stats = append(stats, domain.RegionStat{
			Region:             region,
			AssessmentCount:    r.count,
			AverageRisk:        roundDiv(r.scoreSum, r.count),
			HighRiskCount:      r.high,
			HighRiskPercentage: percentage(r.high, r.count),
		})
	}

	measure := func(s domain.RegionStat) int {
		switch by {
		case SortByRisk:
			return s.AverageRisk
		case SortByHighRisk:
			return s.HighRiskPercentage
		default:
			return s.AssessmentCount
		}
	}
	sort.Slice(stats, func(i, j int) bool {
		mi, mj := measure(stats[i]), measure(stats[j])
		if mi != mj {
			return mi > mj
		}
		return stats[i].Region < stats[j].Region
	})
	if len(stats) > limit {
		stats = stats[:limit]
	}
	return stats
}

// DiseaseBreakdown reports the risk level distribution for every supported
// disease, including diseases with no assessments.
func DiseaseBreakdown(assessments []domain.Assessment) []domain.DiseaseRiskBreakdown {
	index := make(map[domain.DiseaseType]*domain.DiseaseRiskBreakdown, len(domain.AllDiseases))
	out := make([]domain.DiseaseRiskBreakdown, len(domain.AllDiseases))
	for i, d := range domain.AllDiseases {
		out[i].DiseaseType = d
		index[d] = &out[i]
	}

	for i := range assessments {
		b, ok := index[assessments[i].DiseaseType]
		if !ok {
			continue
		}
		b.Total++
		switch assessments[i].RiskLevel {
		case domain.RiskHigh:
			b.HighCount++
		case domain.RiskModerate:
			b.ModerateCount++
		case domain.RiskLow:
			b.LowCount++
		}
	}

	for i := range out {
		out[i].HighPercentage = percentage(out[i].HighCount, out[i].Total)
		out[i].ModeratePercentage = percentage(out[i].ModerateCount, out[i].Total)
		out[i].LowPercentage = percentage(out[i].LowCount, out[i].Total)
	}
	return out
}

func percentage(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(part) * 100 / float64(total)))
}

func roundDiv(sum, n int) int {
	if n == 0 {
		return 0
	}
	return int(math.Round(float64(sum) / float64(n)))
}
