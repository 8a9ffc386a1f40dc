package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// UnknownBucket labels assessments with a missing level or region in analytics.
const UnknownBucket = "unknown"

// NoDataFactor is the placeholder risk factor reported when nothing was detected.
const NoDataFactor = "No data available"

// Demographics are the optional patient attributes used for admin filtering.
type Demographics struct {
	Age        int    `json:"age,omitempty"`
	Gender     string `json:"gender,omitempty"`
	ZipCode    string `json:"zipCode,omitempty"`
	UrbanRural string `json:"urbanRural,omitempty"`
}

// RiskResult is the output of the risk scorer.
type RiskResult struct {
	Score int       `json:"riskScore"`
	Level RiskLevel `json:"riskLevel"`
}

// Assessment is one patient's questionnaire submission plus its computed
// risk outcome. Records are immutable once stored.
type Assessment struct {
	ID           string       `json:"id"`
	UserID       string       `json:"userId"`
	DiseaseType  DiseaseType  `json:"diseaseType"`
	SubmittedAt  time.Time    `json:"submittedAt"`
	Answers      Answers      `json:"answers"`
	RiskScore    int          `json:"riskScore"`
	RiskLevel    RiskLevel    `json:"riskLevel"`
	Region       string       `json:"region"`
	Demographics Demographics `json:"demographics,omitempty"`
}

type assessmentJSON struct {
	ID           string         `json:"id"`
	UserID       string         `json:"userId"`
	DiseaseType  DiseaseType    `json:"diseaseType"`
	SubmittedAt  time.Time      `json:"submittedAt"`
	Answers      map[string]any `json:"answers"`
	RiskScore    int            `json:"riskScore"`
	RiskLevel    RiskLevel      `json:"riskLevel"`
	Region       string         `json:"region"`
	Demographics Demographics   `json:"demographics,omitempty"`
}

// UnmarshalJSON decodes the flat answer map into the variant selected by
// diseaseType. Records with an unsupported disease keep empty answers so
// that analytics over imported data never fails on content.
func (a *Assessment) UnmarshalJSON(data []byte) error {
	var raw assessmentJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding assessment: %w", err)
	}
	answers, err := DecodeAnswers(raw.DiseaseType, raw.Answers)
	if err != nil {
		answers = Answers{Disease: raw.DiseaseType}
	}
	*a = Assessment{
		ID:           raw.ID,
		UserID:       raw.UserID,
		DiseaseType:  raw.DiseaseType,
		SubmittedAt:  raw.SubmittedAt,
		Answers:      answers,
		RiskScore:    raw.RiskScore,
		RiskLevel:    raw.RiskLevel,
		Region:       raw.Region,
		Demographics: raw.Demographics,
	}
	return nil
}

// LogFields returns structured logging fields for the assessment.
func (a *Assessment) LogFields() logrus.Fields {
	return logrus.Fields{
		"assessment_id": a.ID,
		"user_id":       a.UserID,
		"disease_type":  a.DiseaseType,
		"risk_score":    a.RiskScore,
		"risk_level":    a.RiskLevel,
		"region":        a.Region,
	}
}

// RiskFactorCount is one entry of the top risk factor ranking.
type RiskFactorCount struct {
	Factor string `json:"factor"`
	Count  int    `json:"count"`
}

// AnalyticsSummary is the aggregate view over a collection of assessments.
// It is recomputed on every request and never stored.
type AnalyticsSummary struct {
	TotalAssessments       int               `json:"totalAssessments"`
	AssessmentsByRiskLevel map[string]int    `json:"assessmentsByRiskLevel"`
	AssessmentsByDisease   map[string]int    `json:"assessmentsByDisease"`
	AssessmentsByRegion    map[string]int    `json:"assessmentsByRegion"`
	TopRiskFactors         []RiskFactorCount `json:"topRiskFactors"`
}

// RegionStat is the per-region roll-up shown on the regional analysis chart.
type RegionStat struct {
	Region             string `json:"region"`
	AssessmentCount    int    `json:"assessmentCount"`
	AverageRisk        int    `json:"averageRisk"`
	HighRiskCount      int    `json:"highRiskCount"`
	HighRiskPercentage int    `json:"highRiskPercentage"`
}

// DiseaseRiskBreakdown is the per-disease distribution of risk levels.
type DiseaseRiskBreakdown struct {
	DiseaseType        DiseaseType `json:"diseaseType"`
	Total              int         `json:"total"`
	HighCount          int         `json:"highCount"`
	ModerateCount      int         `json:"moderateCount"`
	LowCount           int         `json:"lowCount"`
	HighPercentage     int         `json:"highPercentage"`
	ModeratePercentage int         `json:"moderatePercentage"`
	LowPercentage      int         `json:"lowPercentage"`
}

// Report is the patient facing write-up of one assessment.
type Report struct {
	ID              string      `json:"id"`
	AssessmentID    string      `json:"assessmentId"`
	UserID          string      `json:"userId"`
	DiseaseType     DiseaseType `json:"diseaseType"`
	Title           string      `json:"title"`
	Date            string      `json:"date"`
	RiskScore       int         `json:"riskScore"`
	RiskLevel       RiskLevel   `json:"riskLevel"`
	Summary         string      `json:"summary"`
	Recommendations []string    `json:"recommendations"`
	CreatedAt       time.Time   `json:"createdAt"`
}
