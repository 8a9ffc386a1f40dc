package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/health-risk-server/internal/database"
	"github.com/health-risk-server/internal/domain"
)

// EnvPrefix prefixes every environment override, e.g. HRA_SERVER_PORT.
const EnvPrefix = "HRA"

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	configFile string
	config     *domain.Config
}

// NewManager creates a new configuration manager. An empty configFile
// searches the default locations for config.yaml.
func NewManager(configFile string) (*Manager, error) {
	m := &Manager{configFile: configFile}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	// A missing .env file is fine; the environment may already be populated.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()
	if m.configFile != "" {
		v.SetConfigFile(m.configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/health-risk-server/")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using defaults and environment variables
	}

	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "30s")
	v.SetDefault("server.max_body_bytes", 1<<20)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "health_risk")
	v.SetDefault("database.username", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")
	v.SetDefault("database.migrations_path", database.DefaultMigrationsPath)

	// Storage defaults
	v.SetDefault("storage.backend", domain.StorageMemory)
	v.SetDefault("reports.backend", domain.StorageSQLite)
	v.SetDefault("reports.sqlite_path", "./data/reports.db")
	v.SetDefault("reports.postgres_url", "")

	// Remote scoring defaults
	v.SetDefault("remote_scoring.enabled", false)
	v.SetDefault("remote_scoring.base_url", "http://localhost:8000")
	v.SetDefault("remote_scoring.timeout", "10s")
	v.SetDefault("remote_scoring.rate_limit", 10)
	v.SetDefault("remote_scoring.retry_count", 2)
	v.SetDefault("remote_scoring.breaker.max_requests", 5)
	v.SetDefault("remote_scoring.breaker.interval", "30s")
	v.SetDefault("remote_scoring.breaker.timeout", "60s")
	v.SetDefault("remote_scoring.breaker.failure_ratio", 0.6)
	v.SetDefault("remote_scoring.breaker.min_requests", 3)

	// Cache defaults
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.default_ttl", "1h")
	v.SetDefault("cache.max_retries", 3)
	v.SetDefault("cache.pool_size", 10)
	v.SetDefault("cache.pool_timeout", "4s")
	v.SetDefault("cache.memory_size", 1024)

	// Auth defaults
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "health-risk-server")
	v.SetDefault("auth.token_ttl", "24h")

	// CORS defaults
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("cors.max_age", "12h")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetDatabaseConfig returns database configuration
func (m *Manager) GetDatabaseConfig() *domain.DatabaseConfig {
	return &m.config.Database
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetRemoteScoringConfig returns the prediction service configuration
func (m *Manager) GetRemoteScoringConfig() *domain.RemoteScoringConfig {
	return &m.config.RemoteScoring
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}
	if config.Server.MaxBodyBytes < 0 {
		return fmt.Errorf("invalid max body size: %d", config.Server.MaxBodyBytes)
	}

	switch config.Storage.Backend {
	case domain.StorageMemory:
	case domain.StoragePostgres:
		if err := validateDatabase(config.Database); err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid storage backend: %q", config.Storage.Backend)
	}

	switch config.Reports.Backend {
	case domain.StorageSQLite:
		if config.Reports.SQLitePath == "" {
			return fmt.Errorf("reports sqlite path is required")
		}
	case domain.StoragePostgres:
		if config.Reports.PostgresURL == "" {
			if err := validateDatabase(config.Database); err != nil {
				return fmt.Errorf("reports postgres backend: %w", err)
			}
		}
	default:
		return fmt.Errorf("invalid reports backend: %q", config.Reports.Backend)
	}

	if config.RemoteScoring.Enabled {
		if config.RemoteScoring.BaseURL == "" {
			return fmt.Errorf("remote scoring base URL is required")
		}
		if config.RemoteScoring.RateLimit < 0 {
			return fmt.Errorf("invalid remote scoring rate limit: %d", config.RemoteScoring.RateLimit)
		}
		if r := config.RemoteScoring.Breaker.FailureRatio; r < 0 || r > 1 {
			return fmt.Errorf("invalid breaker failure ratio: %v", r)
		}
	}

	if m.IsProduction() && config.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required in production")
	}

	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

func validateDatabase(db domain.DatabaseConfig) error {
	if db.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if db.Database == "" {
		return fmt.Errorf("database name is required")
	}
	if db.Username == "" {
		return fmt.Errorf("database username is required")
	}
	return nil
}

// GetDatabaseConnectionString returns a formatted database connection string
func (m *Manager) GetDatabaseConnectionString() string {
	return database.ConfigFromDomain(m.config.Database).DSN()
}

// GetDatabaseURL returns the postgres:// URL for the configured database
func (m *Manager) GetDatabaseURL() string {
	return database.ConfigFromDomain(m.config.Database).URL()
}

// GetReportsDatabaseURL returns the reports store URL, defaulting to the
// assessment database.
func (m *Manager) GetReportsDatabaseURL() string {
	if m.config.Reports.PostgresURL != "" {
		return m.config.Reports.PostgresURL
	}
	return m.GetDatabaseURL()
}

// GetRedisConnectionString returns the Redis connection string
func (m *Manager) GetRedisConnectionString() string {
	return m.config.Cache.RedisURL
}

// IsProduction returns true if running in production mode
func (m *Manager) IsProduction() bool {
	return strings.ToLower(m.config.Environment) == "production"
}

// IsDevelopment returns true if running in development mode
func (m *Manager) IsDevelopment() bool {
	env := strings.ToLower(m.config.Environment)
	return env == "development" || env == "dev" || env == ""
}

var _ domain.ConfigManager = (*Manager)(nil)
