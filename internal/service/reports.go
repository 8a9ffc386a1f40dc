package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/health-risk-server/internal/domain"
)

type reportTemplate struct {
	summary         string
	recommendations []string
}

var reportTemplates = map[domain.DiseaseType]map[domain.RiskLevel]reportTemplate{
	domain.DiseaseDiabetes: {
		domain.RiskLow: {
			summary: "Your assessment indicates a low risk of developing type 2 diabetes. Continue maintaining a healthy lifestyle.",
			recommendations: []string{
				"Maintain a healthy diet",
				"Stay physically active",
				"Have your blood sugar checked during regular health exams",
			},
		},
		domain.RiskModerate: {
			summary: "Based on your responses, you have a moderate risk of developing type 2 diabetes. Some lifestyle modifications may be beneficial.",
			recommendations: []string{
				"Consider getting regular blood sugar tests",
				"Maintain a healthy diet low in processed sugars",
				"Engage in regular physical activity",
				"Monitor your weight and aim to maintain a healthy BMI",
			},
		},
		domain.RiskHigh: {
			summary: "Your assessment indicates a high risk of developing type 2 diabetes. We recommend consulting with a healthcare provider soon.",
			recommendations: []string{
				"Consult with a healthcare provider as soon as possible",
				"Get your blood sugar levels tested",
				"Consider working with a dietitian to create a diabetes prevention meal plan",
				"Implement a regular exercise routine",
				"Monitor your weight and work towards a healthy BMI",
			},
		},
	},
	domain.DiseaseKidney: {
		domain.RiskLow: {
			summary: "Your kidney disease risk appears to be low. Maintain good hydration and a healthy lifestyle.",
			recommendations: []string{
				"Stay hydrated",
				"Maintain a healthy diet",
				"Exercise regularly",
			},
		},
		domain.RiskModerate: {
			summary: "Your assessment indicates a moderate risk of kidney disease. Some preventive measures may be beneficial.",
			recommendations: []string{
				"Monitor your blood pressure regularly",
				"Consider getting your kidney function tested",
				"Limit NSAIDs use",
				"Stay well-hydrated",
				"Follow a kidney-friendly diet if recommended by your doctor",
			},
		},
		domain.RiskHigh: {
			summary: "Your responses indicate a high risk of kidney disease. We recommend seeking medical advice for evaluation.",
			recommendations: []string{
				"Consult with a nephrologist (kidney specialist)",
				"Get comprehensive kidney function tests",
				"Carefully manage blood pressure and diabetes if present",
				"Follow a kidney-friendly diet",
				"Stay hydrated but consult your doctor about fluid intake",
			},
		},
	},
	domain.DiseaseHeart: {
		domain.RiskLow: {
			summary: "Your heart disease risk appears to be low based on the information provided. Continue maintaining heart-healthy habits.",
			recommendations: []string{
				"Maintain a heart-healthy diet",
				"Exercise regularly",
				"Avoid smoking",
			},
		},
		domain.RiskModerate: {
			summary: "Your assessment indicates a moderate risk of heart disease based on several factors. Some lifestyle modifications could reduce your risk.",
			recommendations: []string{
				"Get your cholesterol levels checked regularly",
				"Consider a heart-healthy diet rich in vegetables and whole grains",
				"Increase physical activity to at least 150 minutes per week",
				"Monitor blood pressure regularly",
				"Avoid smoking and limit alcohol consumption",
			},
		},
		domain.RiskHigh: {
			summary: "Based on your responses, you have a high risk of heart disease. We strongly recommend consulting with a healthcare provider soon.",
			recommendations: []string{
				"Consult with a cardiologist as soon as possible",
				"Get a comprehensive cardiovascular evaluation",
				"Carefully manage blood pressure, cholesterol, and blood sugar",
				"Follow a heart-healthy diet under medical guidance",
				"Implement a supervised exercise program",
				"Consider stress management techniques",
			},
		},
	},
}

// GenerateReport builds the patient report for an assessment. The returned
// recommendation slice is a fresh copy.
func GenerateReport(a *domain.Assessment, now time.Time) (*domain.Report, error) {
	byLevel, ok := reportTemplates[a.DiseaseType]
	if !ok {
		return nil, fmt.Errorf("generating report: %w: %q", domain.ErrInvalidDisease, a.DiseaseType)
	}
	tmpl, ok := byLevel[a.RiskLevel]
	if !ok {
		return nil, fmt.Errorf("generating report: %w: %q", domain.ErrInvalidRiskLevel, a.RiskLevel)
	}

	recs := make([]string, len(tmpl.recommendations))
	copy(recs, tmpl.recommendations)

	return &domain.Report{
		ID:              uuid.New().String(),
		AssessmentID:    a.ID,
		UserID:          a.UserID,
		DiseaseType:     a.DiseaseType,
		Title:           a.DiseaseType.DisplayName() + " Risk Assessment",
		Date:            a.SubmittedAt.UTC().Format("2006-01-02"),
		RiskScore:       a.RiskScore,
		RiskLevel:       a.RiskLevel,
		Summary:         tmpl.summary,
		Recommendations: recs,
		CreatedAt:       now.UTC(),
	}, nil
}
