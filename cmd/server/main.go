package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/health-risk-server/internal/api"
	"github.com/health-risk-server/internal/config"
	"github.com/health-risk-server/internal/database"
	"github.com/health-risk-server/internal/domain"
	"github.com/health-risk-server/internal/reports"
	"github.com/health-risk-server/internal/repository"
	"github.com/health-risk-server/internal/service"
	"github.com/health-risk-server/internal/store"
	"github.com/health-risk-server/pkg/external"
)

func main() {
	configManager, err := config.NewManager(os.Getenv("HRA_CONFIG_FILE"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := config.NewLogger(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, configManager, logger); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}
	logger.Info("Server stopped")
}

func run(ctx context.Context, configManager *config.Manager, logger *logrus.Logger) error {
	cfg := configManager.GetConfig()
	logger.WithFields(logrus.Fields{
		"host":        cfg.Server.Host,
		"port":        cfg.Server.Port,
		"environment": cfg.Environment,
		"storage":     cfg.Storage.Backend,
		"reports":     cfg.Reports.Backend,
	}).Info("Starting health risk server")

	deps := api.Dependencies{Logger: logger}

	var repo domain.AssessmentRepository
	switch cfg.Storage.Backend {
	case domain.StoragePostgres:
		db, err := database.NewConnection(ctx, database.ConfigFromDomain(cfg.Database), logger)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := migrate(configManager.GetDatabaseURL(), cfg.Database.MigrationsPath, logger); err != nil {
			return err
		}
		repo = repository.NewAssessmentRepository(db.Pool, logger)
		deps.Health = db
	default:
		repo = store.NewMemoryStore(logger)
	}

	reportStore, err := reports.Open(cfg.Reports, configManager.GetReportsDatabaseURL())
	if err != nil {
		return err
	}
	defer reportStore.Close()

	deps.Assessments = service.NewAssessmentService(repo, logger, service.WithReportRepository(reportStore))

	if cfg.RemoteScoring.Enabled {
		predictor, closeCache, err := newPredictor(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer closeCache()
		deps.Predictor = predictor
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	deps.Registry = registry

	return api.NewServer(configManager, deps).Start(ctx)
}

func migrate(url, path string, logger *logrus.Logger) error {
	runner, err := database.NewMigrationRunner(url, path, logger)
	if err != nil {
		return err
	}
	defer runner.Close()
	return runner.Up()
}

// newPredictor wires the prediction client over an in-process LRU and, when
// configured, a shared Redis tier.
func newPredictor(ctx context.Context, cfg *domain.Config, logger *logrus.Logger) (external.PredictionService, func(), error) {
	var shared external.Cache
	closeFn := func() {}

	if cfg.Cache.RedisURL != "" {
		redisCache, err := external.NewRedisCache(cfg.Cache)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create redis cache: %w", err)
		}
		if err := redisCache.Ping(ctx); err != nil {
			logger.WithError(err).Warn("Redis unavailable, prediction cache is local only")
			redisCache.Close()
		} else {
			shared = redisCache
			closeFn = func() { redisCache.Close() }
		}
	}

	cache, err := external.NewTieredCache(cfg.Cache.MemorySize, cfg.Cache.DefaultTTL, shared, logger)
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("failed to create prediction cache: %w", err)
	}
	return external.NewPredictionClient(cfg.RemoteScoring, cache, logger), closeFn, nil
}
