// Package api exposes the assessment, analytics and prediction services over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/health-risk-server/internal/domain"
	"github.com/health-risk-server/internal/middleware"
	"github.com/health-risk-server/internal/service"
	"github.com/health-risk-server/pkg/external"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

const shutdownTimeout = 30 * time.Second

// HealthChecker reports the state of a backing store.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Dependencies are the collaborators of the HTTP server. Predictor and
// Health are optional.
type Dependencies struct {
	Assessments *service.AssessmentService
	Predictor   external.PredictionService
	Health      HealthChecker
	Registry    *prometheus.Registry
	Logger      *logrus.Logger
}

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	assessments   *service.AssessmentService
	predictor     external.PredictionService
	health        HealthChecker
	auth          *middleware.Authenticator
	metrics       *middleware.Metrics
	registry      *prometheus.Registry
	logger        *logrus.Logger
	router        *gin.Engine
	server        *http.Server
}

// NewServer creates a new HTTP server instance
func NewServer(configManager domain.ConfigManager, deps Dependencies) *Server {
	cfg := configManager.GetConfig()

	// Tests pin gin to test mode; leave it alone there.
	if gin.Mode() != gin.TestMode {
		if cfg.Logging.Level == "debug" {
			gin.SetMode(gin.DebugMode)
		} else {
			gin.SetMode(gin.ReleaseMode)
		}
	}

	logger := deps.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	registry := deps.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	s := &Server{
		configManager: configManager,
		assessments:   deps.Assessments,
		predictor:     deps.Predictor,
		health:        deps.Health,
		auth:          middleware.NewAuthenticator(cfg.Auth),
		metrics:       middleware.NewMetrics(registry),
		registry:      registry,
		logger:        logger,
		router:        gin.New(),
	}

	s.router.Use(
		gin.Recovery(),
		middleware.CorrelationID(),
		middleware.SecurityHeaders(),
		middleware.AuditLogger(),
		s.metrics.Handler(),
		cors.New(corsConfig(cfg.CORS)),
	)

	s.setupRoutes()
	return s
}

// corsConfig allows every origin when none is configured.
func corsConfig(c domain.CORSConfig) cors.Config {
	cfg := cors.Config{
		AllowOrigins:  c.AllowedOrigins,
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Correlation-ID"},
		ExposeHeaders: []string{"X-Correlation-ID"},
		MaxAge:        c.MaxAge,
	}
	if len(c.AllowedOrigins) == 0 {
		cfg.AllowOrigins = nil
		cfg.AllowAllOrigins = true
	}
	return cfg
}

// Router returns the HTTP handler, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	srvCfg := s.configManager.GetServerConfig()

	s.router.GET("/health", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	v1 := s.router.Group("/api/v1")

	// The stream outlives any request timeout.
	v1.GET("/admin/stream", s.auth.RequireAuth(), middleware.RequireRole(domain.RoleAdmin), s.handleStream)

	api := v1.Group("", middleware.RequestTimeout(srvCfg.RequestTimeout), middleware.BodyLimit(srvCfg.MaxBodyBytes))
	{
		api.POST("/auth/token", s.handleIssueToken)

		api.POST("/assessments", s.handleSubmitAssessment)
		api.GET("/assessments/:id", s.handleGetAssessment)
		api.GET("/users/:userId/assessments", s.handleListUserAssessments)
		api.POST("/score", s.handleScore)

		api.GET("/reports/:id", s.handleGetReport)
		api.GET("/users/:userId/reports", s.handleListUserReports)

		api.POST("/predict/:disease", s.handlePredict)
		api.POST("/recommendations", s.handleRecommendations)
	}

	admin := api.Group("/admin", s.auth.RequireAuth(), middleware.RequireRole(domain.RoleAdmin))
	{
		admin.GET("/analytics", s.handleAnalytics)
		admin.GET("/analytics/regions", s.handleRegionalAnalytics)
		admin.GET("/analytics/diseases", s.handleDiseaseAnalytics)
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   Version,
		"storage":   "ok",
	}
	if s.health != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.health.Health(ctx); err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
			body["storage"] = err.Error()
		}
	}
	if s.assessments != nil && status == http.StatusOK {
		n, err := s.assessments.Count(c.Request.Context())
		if err != nil {
			s.logger.WithError(err).Warn("Failed to count assessments")
		} else {
			body["assessments"] = n
		}
	}
	c.JSON(status, body)
}
