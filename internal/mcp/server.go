// Package mcp exposes the risk scorer, the analytics aggregator and the
// report generator as Model Context Protocol tools over stdio.
package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/health-risk-server/internal/config"
	"github.com/health-risk-server/internal/domain"
	"github.com/health-risk-server/internal/reports"
	"github.com/health-risk-server/pkg/external"
)

const (
	serverName    = "health-risk-mcp-server"
	serverVersion = "v1.0.0"
)

// Server is a standalone MCP server. It needs no external database: reports
// live in a SQLite file under the data directory.
type Server struct {
	config    *config.LiteConfig
	mcpServer *mcp.Server
	reports   reports.Store
	predictor external.PredictionService
	logger    *logrus.Logger
	now       func() time.Time
}

// Option is a functional option for Server.
type Option func(*Server) error

// WithReportStore sets a custom report store.
func WithReportStore(store reports.Store) Option {
	return func(s *Server) error {
		s.reports = store
		return nil
	}
}

// WithPredictor sets the remote prediction client.
func WithPredictor(p external.PredictionService) Option {
	return func(s *Server) error {
		s.predictor = p
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logrus.Logger) Option {
	return func(s *Server) error {
		s.logger = logger
		return nil
	}
}

// NewServer creates the MCP server and registers its tools.
func NewServer(cfg *config.LiteConfig, opts ...Option) (*Server, error) {
	s := &Server{
		config: cfg,
		logger: logrus.New(),
		now:    time.Now,
	}

	if cfg.LogFormat == "text" {
		s.logger.SetFormatter(&logrus.TextFormatter{})
	} else {
		s.logger.SetFormatter(&logrus.JSONFormatter{})
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		s.logger.SetLevel(level)
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if s.reports == nil {
		if err := cfg.EnsureDataDir(); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		store, err := reports.NewSQLiteStore(cfg.ReportsDBPath())
		if err != nil {
			return nil, fmt.Errorf("failed to create report store: %w", err)
		}
		s.reports = store
	}

	if s.predictor == nil && cfg.RemoteScoringURL != "" {
		cache, err := external.NewTieredCache(cfg.CacheMaxItems, cfg.CacheTTL, nil, s.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create prediction cache: %w", err)
		}
		s.predictor = external.NewPredictionClient(domain.RemoteScoringConfig{
			Enabled:    true,
			BaseURL:    cfg.RemoteScoringURL,
			Timeout:    10 * time.Second,
			RateLimit:  5,
			RetryCount: 2,
		}, cache, s.logger)
	}

	s.mcpServer = mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: serverVersion,
	}, nil)
	s.registerTools()

	s.logger.WithField("data_dir", cfg.DataDir).Info("MCP server initialized")
	return s, nil
}

// Run serves MCP over stdin/stdout until ctx is cancelled or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("Starting health risk MCP server on stdio")
	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

// Close cleans up server resources.
func (s *Server) Close() error {
	if s.reports != nil {
		if err := s.reports.Close(); err != nil {
			s.logger.WithError(err).Error("Failed to close report store")
			return err
		}
	}
	return nil
}
