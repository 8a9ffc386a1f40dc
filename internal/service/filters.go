package service

import (
	"strings"

	"github.com/health-risk-server/internal/domain"
)

// FilterAll is the wildcard value accepted by every Filter field.
const FilterAll = "all"

// Age groups offered by the admin dashboard.
const (
	AgeGroup18To30 = "18-30"
	AgeGroup31To45 = "31-45"
	AgeGroup46To60 = "46-60"
	AgeGroup60Plus = "60+"
)

// Filter narrows an assessment collection before it is summarized. Empty
// fields and FilterAll impose no constraint.
type Filter struct {
	AgeGroup    string `form:"ageGroup" json:"ageGroup,omitempty"`
	Gender      string `form:"gender" json:"gender,omitempty"`
	Region      string `form:"region" json:"region,omitempty"`
	RiskLevel   string `form:"riskLevel" json:"riskLevel,omitempty"`
	DiseaseType string `form:"diseaseType" json:"diseaseType,omitempty"`
}

// IsZero reports whether the filter keeps every assessment.
func (f Filter) IsZero() bool {
	return isWildcard(f.AgeGroup) && isWildcard(f.Gender) && isWildcard(f.Region) &&
		isWildcard(f.RiskLevel) && isWildcard(f.DiseaseType)
}

// Match reports whether a single assessment passes the filter.
func (f Filter) Match(a *domain.Assessment) bool {
	if !isWildcard(f.AgeGroup) && !inAgeGroup(a.Demographics.Age, f.AgeGroup) {
		return false
	}
	if !isWildcard(f.Gender) && !strings.EqualFold(a.Demographics.Gender, f.Gender) {
		return false
	}
	if !isWildcard(f.Region) && !strings.EqualFold(strings.TrimSpace(a.Region), strings.TrimSpace(f.Region)) {
		return false
	}
	if !isWildcard(f.RiskLevel) && !strings.EqualFold(string(a.RiskLevel), f.RiskLevel) {
		return false
	}
	if !isWildcard(f.DiseaseType) {
		want, err := domain.ParseDiseaseType(f.DiseaseType)
		if err != nil || a.DiseaseType != want {
			return false
		}
	}
	return true
}

// Apply returns the assessments that pass the filter. The input slice is
// not modified.
func (f Filter) Apply(assessments []domain.Assessment) []domain.Assessment {
	if f.IsZero() {
		return assessments
	}
	out := make([]domain.Assessment, 0, len(assessments))
	for i := range assessments {
		if f.Match(&assessments[i]) {
			out = append(out, assessments[i])
		}
	}
	return out
}

// inAgeGroup treats an unknown age (zero) as matching no group.
func inAgeGroup(age int, group string) bool {
	if age <= 0 {
		return false
	}
	switch group {
	case AgeGroup18To30:
		return age >= 18 && age <= 30
	case AgeGroup31To45:
		return age >= 31 && age <= 45
	case AgeGroup46To60:
		return age >= 46 && age <= 60
	case AgeGroup60Plus:
		return age > 60
	default:
		return false
	}
}

func isWildcard(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.EqualFold(v, FilterAll)
}
