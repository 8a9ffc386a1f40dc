package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/health-risk-server/internal/domain"
	"github.com/health-risk-server/internal/middleware"
	"github.com/health-risk-server/internal/service"
	"github.com/health-risk-server/pkg/external"
)

// tokenRequest is the mock login body.
type tokenRequest struct {
	UserID string      `json:"userId"`
	Role   domain.Role `json:"role"`
}

type scoreRequest struct {
	DiseaseType string         `json:"diseaseType"`
	Answers     map[string]any `json:"answers"`
}

type scoreResponse struct {
	DiseaseType   domain.DiseaseType         `json:"diseaseType"`
	RiskScore     int                        `json:"riskScore"`
	RiskLevel     domain.RiskLevel           `json:"riskLevel"`
	Contributions []service.RuleContribution `json:"contributions"`
}

type recommendationsRequest struct {
	DiseaseType string             `json:"diseaseType"`
	RiskScore   float64            `json:"riskScore"`
	Vitals      map[string]float64 `json:"vitals"`
}

func (s *Server) handleIssueToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, bindError(err))
		return
	}
	tok, expires, err := s.auth.IssueToken(req.UserID, req.Role)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":     tok,
		"expiresAt": expires.UTC(),
		"userId":    req.UserID,
		"role":      req.Role,
	})
}

func (s *Server) handleSubmitAssessment(c *gin.Context) {
	var req service.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, bindError(err))
		return
	}
	res, err := s.assessments.Submit(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.metrics.ObserveAssessment(string(res.Assessment.DiseaseType), string(res.Assessment.RiskLevel))
	c.JSON(http.StatusCreated, res)
}

func (s *Server) handleGetAssessment(c *gin.Context) {
	a, err := s.assessments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (s *Server) handleListUserAssessments(c *gin.Context) {
	list, err := s.assessments.ListByUser(c.Request.Context(), c.Param("userId"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assessments": list, "count": len(list)})
}

// handleScore scores answers without storing them.
func (s *Server) handleScore(c *gin.Context) {
	var req scoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, bindError(err))
		return
	}
	disease, err := domain.ParseDiseaseType(req.DiseaseType)
	if err != nil {
		s.respondError(c, domain.NewValidationError("diseaseType", "must be one of diabetes, kidneyDisease, heartDisease", req.DiseaseType))
		return
	}
	answers, err := domain.DecodeAnswers(disease, req.Answers)
	if err != nil {
		s.respondError(c, domain.NewValidationError("diseaseType", err.Error(), req.DiseaseType))
		return
	}
	result := service.Score(answers)
	c.JSON(http.StatusOK, scoreResponse{
		DiseaseType:   disease,
		RiskScore:     result.Score,
		RiskLevel:     result.Level,
		Contributions: service.Explain(answers),
	})
}

func (s *Server) handleGetReport(c *gin.Context) {
	r, err := s.assessments.GetReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (s *Server) handleListUserReports(c *gin.Context) {
	list, err := s.assessments.ListReportsByUser(c.Request.Context(), c.Param("userId"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": list, "count": len(list)})
}

// handlePredict forwards vitals to the remote model for diabetes and kidney
// disease. The heart model has no remote counterpart.
func (s *Server) handlePredict(c *gin.Context) {
	if s.predictor == nil {
		s.respondError(c, domain.ErrServiceUnavailable)
		return
	}
	disease, err := domain.ParseDiseaseType(c.Param("disease"))
	if err != nil {
		s.respondError(c, domain.NewValidationError("disease", "must be diabetes or kidneyDisease", c.Param("disease")))
		return
	}

	ctx := c.Request.Context()
	var pred *external.Prediction
	switch disease {
	case domain.DiseaseDiabetes:
		var v external.DiabetesVitals
		if err := c.ShouldBindJSON(&v); err != nil {
			s.respondError(c, bindError(err))
			return
		}
		pred, err = s.predictor.PredictDiabetes(ctx, v)
	case domain.DiseaseKidney:
		var v external.KidneyVitals
		if err := c.ShouldBindJSON(&v); err != nil {
			s.respondError(c, bindError(err))
			return
		}
		pred, err = s.predictor.PredictKidney(ctx, v)
	default:
		s.respondError(c, domain.NewValidationError("disease", "remote prediction is not available for "+disease.DisplayName(), string(disease)))
		return
	}

	s.metrics.ObservePrediction(string(disease), predictionOutcome(err))
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.logger.WithFields(logrus.Fields{
		"correlation_id": c.GetString(middleware.CorrelationIDKey),
		"disease_type":   disease,
		"risk_score":     pred.RiskScore,
		"cached":         pred.Cached,
	}).Info("Remote prediction served")
	c.JSON(http.StatusOK, gin.H{"diseaseType": disease, "prediction": pred})
}

// handleRecommendations asks the remote service for advice and returns the
// parsed list.
func (s *Server) handleRecommendations(c *gin.Context) {
	if s.predictor == nil {
		s.respondError(c, domain.ErrServiceUnavailable)
		return
	}
	var req recommendationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, bindError(err))
		return
	}
	disease, err := domain.ParseDiseaseType(req.DiseaseType)
	if err != nil {
		s.respondError(c, domain.NewValidationError("diseaseType", "must be one of diabetes, kidneyDisease, heartDisease", req.DiseaseType))
		return
	}

	raw, err := s.predictor.Recommendations(c.Request.Context(), external.RecommendationRequest{
		Disease:   disease,
		RiskScore: req.RiskScore,
		Vitals:    req.Vitals,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}

	text := ""
	if len(raw) > 0 {
		text = raw[0]
	}
	c.JSON(http.StatusOK, gin.H{
		"diseaseType":     disease,
		"recommendations": service.ParseRecommendations(text),
	})
}

func (s *Server) handleAnalytics(c *gin.Context) {
	f, ok := s.bindFilter(c)
	if !ok {
		return
	}
	summary, err := s.assessments.Summary(c.Request.Context(), f)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary, "filter": f})
}

func (s *Server) handleRegionalAnalytics(c *gin.Context) {
	f, ok := s.bindFilter(c)
	if !ok {
		return
	}

	by, err := service.ParseRegionSort(c.Query("sortBy"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	limit := service.DefaultRegionLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.respondError(c, domain.NewValidationError("limit", "must be a positive integer", v))
			return
		}
		limit = n
	}

	regions, err := s.assessments.Regional(c.Request.Context(), f, by, limit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"regions": regions, "sortBy": by})
}

func (s *Server) handleDiseaseAnalytics(c *gin.Context) {
	f, ok := s.bindFilter(c)
	if !ok {
		return
	}
	diseases, err := s.assessments.Diseases(c.Request.Context(), f)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"diseases": diseases})
}

func (s *Server) bindFilter(c *gin.Context) (service.Filter, bool) {
	var f service.Filter
	if err := c.ShouldBindQuery(&f); err != nil {
		s.respondError(c, domain.NewValidationError("filter", err.Error(), nil))
		return f, false
	}
	return f, true
}

func predictionOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrServiceUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
