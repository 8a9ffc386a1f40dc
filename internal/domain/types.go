// Package domain contains the core entities of the health risk assessment
// service: diseases, risk levels, questionnaire answers, assessments and the
// analytics views derived from them.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// DiseaseType identifies the questionnaire an assessment was taken against.
type DiseaseType string

const (
	DiseaseDiabetes DiseaseType = "diabetes"
	DiseaseKidney   DiseaseType = "kidneyDisease"
	DiseaseHeart    DiseaseType = "heartDisease"
)

// AllDiseases lists every supported disease in display order.
var AllDiseases = []DiseaseType{DiseaseDiabetes, DiseaseKidney, DiseaseHeart}

// RiskLevel is the three-bucket classification derived from a risk score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
)

// Score thresholds for the additive point scorer.
const (
	ModerateRiskThreshold = 30
	HighRiskThreshold     = 60
)

// Percentage thresholds used for scores returned by the remote prediction service.
const (
	RemoteModerateThreshold = 33.0
	RemoteHighThreshold     = 66.0
)

// Role is the caller role carried in access tokens.
type Role string

const (
	RolePatient Role = "patient"
	RoleAdmin   Role = "admin"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidDisease     = errors.New("invalid disease type")
	ErrInvalidRiskLevel   = errors.New("invalid risk level")
	ErrServiceUnavailable = errors.New("service unavailable")
)

// IsValid reports whether d is one of the supported diseases.
func (d DiseaseType) IsValid() bool {
	switch d {
	case DiseaseDiabetes, DiseaseKidney, DiseaseHeart:
		return true
	default:
		return false
	}
}

func (d DiseaseType) String() string {
	return string(d)
}

// DisplayName returns the human readable disease name used in reports.
func (d DiseaseType) DisplayName() string {
	switch d {
	case DiseaseDiabetes:
		return "Diabetes"
	case DiseaseKidney:
		return "Kidney Disease"
	case DiseaseHeart:
		return "Heart Disease"
	default:
		return string(d)
	}
}

// ParseDiseaseType accepts the canonical identifiers and a few common
// aliases ("kidney", "heart", "kidney_disease").
func ParseDiseaseType(s string) (DiseaseType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "diabetes":
		return DiseaseDiabetes, nil
	case "kidneydisease", "kidney", "kidney_disease", "kidney-disease":
		return DiseaseKidney, nil
	case "heartdisease", "heart", "heart_disease", "heart-disease":
		return DiseaseHeart, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDisease, s)
	}
}

// IsValid reports whether r is one of the three risk levels.
func (r RiskLevel) IsValid() bool {
	switch r {
	case RiskLow, RiskModerate, RiskHigh:
		return true
	default:
		return false
	}
}

func (r RiskLevel) String() string {
	return string(r)
}

// ParseRiskLevel parses a case-insensitive risk level.
func ParseRiskLevel(s string) (RiskLevel, error) {
	r := RiskLevel(strings.ToLower(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRiskLevel, s)
	}
	return r, nil
}

// ClassifyScore maps an additive risk score onto a risk level.
func ClassifyScore(score int) RiskLevel {
	switch {
	case score < ModerateRiskThreshold:
		return RiskLow
	case score < HighRiskThreshold:
		return RiskModerate
	default:
		return RiskHigh
	}
}

// ClassifyPercentage maps a remote risk percentage onto a risk level.
func ClassifyPercentage(pct float64) RiskLevel {
	switch {
	case pct < RemoteModerateThreshold:
		return RiskLow
	case pct < RemoteHighThreshold:
		return RiskModerate
	default:
		return RiskHigh
	}
}

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	return r == RolePatient || r == RoleAdmin
}
