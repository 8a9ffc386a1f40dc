package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/health-risk-server/internal/domain"
	"github.com/health-risk-server/internal/service"
	"github.com/health-risk-server/pkg/external"
)

// ScoreAssessmentParams defines parameters for score_assessment tool
type ScoreAssessmentParams struct {
	DiseaseType string         `json:"disease_type" jsonschema:"diabetes, kidneyDisease or heartDisease"`
	Answers     map[string]any `json:"answers" jsonschema:"questionnaire answers keyed by question id (d1..d5, kd1..kd5, hd1..hd5)"`
}

// ScoreAssessmentResult defines the result structure for score_assessment tool
type ScoreAssessmentResult struct {
	DiseaseType   string                     `json:"disease_type"`
	RiskScore     int                        `json:"risk_score"`
	RiskLevel     string                     `json:"risk_level"`
	Contributions []service.RuleContribution `json:"contributions"`
}

// AssessmentRecord is one stored assessment as passed to summarize_assessments.
// The stored score is never recomputed. A missing level is derived from the
// stored score, and without either the record counts as unknown.
type AssessmentRecord struct {
	ID           string              `json:"id,omitempty"`
	DiseaseType  string              `json:"disease_type"`
	Answers      map[string]any      `json:"answers,omitempty"`
	RiskScore    *int                `json:"risk_score,omitempty"`
	RiskLevel    string              `json:"risk_level,omitempty"`
	Region       string              `json:"region,omitempty"`
	Demographics domain.Demographics `json:"demographics,omitempty"`
}

// SummarizeAssessmentsParams defines parameters for summarize_assessments tool
type SummarizeAssessmentsParams struct {
	Assessments []AssessmentRecord `json:"assessments"`
	Filter      service.Filter     `json:"filter,omitempty"`
	SortBy      string             `json:"sort_by,omitempty" jsonschema:"regional ordering: count, risk or high-risk"`
	Limit       int                `json:"limit,omitempty" jsonschema:"maximum number of regions, default 10"`
}

// SummarizeAssessmentsResult defines the result structure for summarize_assessments tool
type SummarizeAssessmentsResult struct {
	Summary  domain.AnalyticsSummary       `json:"summary"`
	Regions  []domain.RegionStat           `json:"regions"`
	Diseases []domain.DiseaseRiskBreakdown `json:"diseases"`
	Skipped  int                           `json:"skipped"`
}

// ParseRecommendationsParams defines parameters for parse_recommendations tool
type ParseRecommendationsParams struct {
	Text string `json:"text" jsonschema:"numbered recommendation text"`
}

// ParseRecommendationsResult defines the result structure for parse_recommendations tool
type ParseRecommendationsResult struct {
	Recommendations []string `json:"recommendations"`
}

// GenerateReportParams defines parameters for generate_report tool
type GenerateReportParams struct {
	UserID      string         `json:"user_id"`
	DiseaseType string         `json:"disease_type"`
	Answers     map[string]any `json:"answers"`
	Save        bool           `json:"save,omitempty" jsonschema:"store the report in the local report database"`
}

// GenerateReportResult defines the result structure for generate_report tool
type GenerateReportResult struct {
	ReportID        string   `json:"report_id"`
	AssessmentID    string   `json:"assessment_id"`
	Title           string   `json:"title"`
	Date            string   `json:"date"`
	RiskScore       int      `json:"risk_score"`
	RiskLevel       string   `json:"risk_level"`
	Summary         string   `json:"summary"`
	Recommendations []string `json:"recommendations"`
	Saved           bool     `json:"saved"`
}

// PredictRiskParams defines parameters for predict_risk tool
type PredictRiskParams struct {
	DiseaseType string             `json:"disease_type" jsonschema:"diabetes or kidneyDisease"`
	Vitals      map[string]float64 `json:"vitals" jsonschema:"lab values keyed like the remote model inputs, e.g. hba1c, egfr"`
}

// PredictRiskResult defines the result structure for predict_risk tool
type PredictRiskResult struct {
	RiskPercentage float64 `json:"risk_percentage"`
	RiskScore      int     `json:"risk_score"`
	RiskLevel      string  `json:"risk_level"`
	Cached         bool    `json:"cached"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "score_assessment",
		Description: "Score a disease questionnaire with the additive rule tables and explain each rule's points",
	}, s.handleScoreAssessment)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "summarize_assessments",
		Description: "Aggregate assessments into totals by risk level, disease and region, top risk factors and breakdowns",
	}, s.handleSummarizeAssessments)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "parse_recommendations",
		Description: "Turn numbered recommendation text into a list of at most seven items",
	}, s.handleParseRecommendations)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "generate_report",
		Description: "Score a questionnaire and write the patient report, optionally storing it",
	}, s.handleGenerateReport)

	count := 4
	if s.predictor != nil {
		mcp.AddTool(s.mcpServer, &mcp.Tool{
			Name:        "predict_risk",
			Description: "Ask the remote machine-learning service for a diabetes or kidney disease risk percentage",
		}, s.handlePredictRisk)
		count++
	}
	s.logger.WithField("tool_count", count).Info("Registered MCP tools")
}

func (s *Server) handleScoreAssessment(ctx context.Context, req *mcp.CallToolRequest, in ScoreAssessmentParams) (*mcp.CallToolResult, ScoreAssessmentResult, error) {
	s.logger.WithField("tool", "score_assessment").Info("Tool invoked")

	answers, err := decodeAnswers(in.DiseaseType, in.Answers)
	if err != nil {
		return nil, ScoreAssessmentResult{}, err
	}
	result := service.Score(answers)
	out := ScoreAssessmentResult{
		DiseaseType:   string(answers.Disease),
		RiskScore:     result.Score,
		RiskLevel:     string(result.Level),
		Contributions: service.Explain(answers),
	}
	return textResult(out), out, nil
}

func (s *Server) handleSummarizeAssessments(ctx context.Context, req *mcp.CallToolRequest, in SummarizeAssessmentsParams) (*mcp.CallToolResult, SummarizeAssessmentsResult, error) {
	s.logger.WithFields(logrus.Fields{
		"tool":  "summarize_assessments",
		"count": len(in.Assessments),
	}).Info("Tool invoked")

	by, err := service.ParseRegionSort(in.SortBy)
	if err != nil {
		return nil, SummarizeAssessmentsResult{}, err
	}

	assessments := make([]domain.Assessment, 0, len(in.Assessments))
	skipped := 0
	for _, rec := range in.Assessments {
		a, ok := rec.toAssessment()
		if !ok {
			skipped++
			continue
		}
		assessments = append(assessments, a)
	}
	filtered := in.Filter.Apply(assessments)

	out := SummarizeAssessmentsResult{
		Summary:  service.Summarize(filtered),
		Regions:  service.RegionalBreakdown(filtered, by, in.Limit),
		Diseases: service.DiseaseBreakdown(filtered),
		Skipped:  skipped,
	}
	return textResult(out), out, nil
}

func (s *Server) handleParseRecommendations(ctx context.Context, req *mcp.CallToolRequest, in ParseRecommendationsParams) (*mcp.CallToolResult, ParseRecommendationsResult, error) {
	s.logger.WithField("tool", "parse_recommendations").Info("Tool invoked")

	out := ParseRecommendationsResult{Recommendations: service.ParseRecommendations(in.Text)}
	return textResult(out), out, nil
}

func (s *Server) handleGenerateReport(ctx context.Context, req *mcp.CallToolRequest, in GenerateReportParams) (*mcp.CallToolResult, GenerateReportResult, error) {
	s.logger.WithFields(logrus.Fields{
		"tool":    "generate_report",
		"user_id": in.UserID,
	}).Info("Tool invoked")

	if in.UserID == "" {
		return nil, GenerateReportResult{}, fmt.Errorf("user_id is required")
	}
	answers, err := decodeAnswers(in.DiseaseType, in.Answers)
	if err != nil {
		return nil, GenerateReportResult{}, err
	}

	now := s.now()
	result := service.Score(answers)
	a := &domain.Assessment{
		ID:          uuid.New().String(),
		UserID:      in.UserID,
		DiseaseType: answers.Disease,
		SubmittedAt: now.UTC(),
		Answers:     answers,
		RiskScore:   result.Score,
		RiskLevel:   result.Level,
	}
	report, err := service.GenerateReport(a, now)
	if err != nil {
		return nil, GenerateReportResult{}, err
	}

	if in.Save {
		if err := s.reports.Save(ctx, report); err != nil {
			return nil, GenerateReportResult{}, fmt.Errorf("storing report: %w", err)
		}
		s.logger.WithFields(logrus.Fields{
			"report_id":    report.ID,
			"disease_type": report.DiseaseType,
			"risk_level":   report.RiskLevel,
		}).Info("Report stored")
	}

	out := GenerateReportResult{
		ReportID:        report.ID,
		AssessmentID:    report.AssessmentID,
		Title:           report.Title,
		Date:            report.Date,
		RiskScore:       report.RiskScore,
		RiskLevel:       string(report.RiskLevel),
		Summary:         report.Summary,
		Recommendations: report.Recommendations,
		Saved:           in.Save,
	}
	return textResult(out), out, nil
}

func (s *Server) handlePredictRisk(ctx context.Context, req *mcp.CallToolRequest, in PredictRiskParams) (*mcp.CallToolResult, PredictRiskResult, error) {
	s.logger.WithField("tool", "predict_risk").Info("Tool invoked")

	disease, err := domain.ParseDiseaseType(in.DiseaseType)
	if err != nil {
		return nil, PredictRiskResult{}, err
	}

	// Round-trip through JSON so the vitals map onto the model field names.
	raw, err := json.Marshal(in.Vitals)
	if err != nil {
		return nil, PredictRiskResult{}, err
	}

	var pred *external.Prediction
	switch disease {
	case domain.DiseaseDiabetes:
		var v external.DiabetesVitals
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, PredictRiskResult{}, err
		}
		pred, err = s.predictor.PredictDiabetes(ctx, v)
	case domain.DiseaseKidney:
		var v external.KidneyVitals
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, PredictRiskResult{}, err
		}
		pred, err = s.predictor.PredictKidney(ctx, v)
	default:
		return nil, PredictRiskResult{}, fmt.Errorf("remote prediction is not available for %s", disease.DisplayName())
	}
	if err != nil {
		return nil, PredictRiskResult{}, err
	}

	out := PredictRiskResult{
		RiskPercentage: pred.RiskPercentage,
		RiskScore:      pred.RiskScore,
		RiskLevel:      string(pred.RiskLevel),
		Cached:         pred.Cached,
	}
	return textResult(out), out, nil
}

func (r AssessmentRecord) toAssessment() (domain.Assessment, bool) {
	disease, err := domain.ParseDiseaseType(r.DiseaseType)
	if err != nil {
		return domain.Assessment{}, false
	}
	answers, _ := domain.DecodeAnswers(disease, r.Answers)

	a := domain.Assessment{
		ID:           r.ID,
		DiseaseType:  disease,
		Answers:      answers,
		Region:       r.Region,
		Demographics: r.Demographics,
	}
	if r.RiskScore != nil {
		a.RiskScore = *r.RiskScore
	}
	if level, err := domain.ParseRiskLevel(r.RiskLevel); err == nil {
		a.RiskLevel = level
	} else if r.RiskScore != nil {
		a.RiskLevel = domain.ClassifyScore(*r.RiskScore)
	}
	return a, true
}

func decodeAnswers(diseaseType string, raw map[string]any) (domain.Answers, error) {
	disease, err := domain.ParseDiseaseType(diseaseType)
	if err != nil {
		return domain.Answers{}, err
	}
	return domain.DecodeAnswers(disease, raw)
}

func textResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		data = []byte(fmt.Sprintf("%v", v))
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}
}
