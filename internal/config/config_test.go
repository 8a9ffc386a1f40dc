package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/health-risk-server/internal/domain"
)

func TestNewManager_Defaults(t *testing.T) {
	m, err := NewManager("")
	require.NoError(t, err)
	cfg := m.GetConfig()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, int64(1<<20), cfg.Server.MaxBodyBytes)
	assert.Equal(t, domain.StorageMemory, cfg.Storage.Backend)
	assert.Equal(t, domain.StorageSQLite, cfg.Reports.Backend)
	assert.False(t, cfg.RemoteScoring.Enabled)
	assert.Equal(t, 0.6, cfg.RemoteScoring.Breaker.FailureRatio)
	assert.Equal(t, uint32(3), cfg.RemoteScoring.Breaker.MinRequests)
	assert.Equal(t, time.Hour, cfg.Cache.DefaultTTL)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORS.AllowedOrigins)
	assert.True(t, m.IsDevelopment())
	assert.False(t, m.IsProduction())
	assert.NoError(t, m.Validate())
}

func TestNewManager_EnvironmentOverrides(t *testing.T) {
	t.Setenv("HRA_SERVER_PORT", "9191")
	t.Setenv("HRA_STORAGE_BACKEND", "postgres")
	t.Setenv("HRA_REMOTE_SCORING_ENABLED", "true")
	t.Setenv("HRA_REMOTE_SCORING_TIMEOUT", "3s")
	t.Setenv("HRA_LOGGING_LEVEL", "debug")
	t.Setenv("HRA_CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	m, err := NewManager("")
	require.NoError(t, err)
	cfg := m.GetConfig()

	assert.Equal(t, 9191, m.GetServerConfig().Port)
	assert.Equal(t, domain.StoragePostgres, cfg.Storage.Backend)
	assert.True(t, m.GetRemoteScoringConfig().Enabled)
	assert.Equal(t, 3*time.Second, m.GetRemoteScoringConfig().Timeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestNewManager_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
environment: production
server:
  port: 7000
auth:
  jwt_secret: file-secret
reports:
  backend: postgres
  postgres_url: postgres://reports@db/reports
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	m, err := NewManager(path)
	require.NoError(t, err)

	assert.Equal(t, 7000, m.GetServerConfig().Port)
	assert.True(t, m.IsProduction())
	assert.Equal(t, "postgres://reports@db/reports", m.GetReportsDatabaseURL())
	assert.NoError(t, m.Validate())
}

func TestNewManager_MissingExplicitFile(t *testing.T) {
	_, err := NewManager(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestManager_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *domain.Config)
		wantErr string
	}{
		{"bad port", func(c *domain.Config) { c.Server.Port = 70000 }, "invalid server port"},
		{"bad storage", func(c *domain.Config) { c.Storage.Backend = "mongo" }, "invalid storage backend"},
		{"postgres needs host", func(c *domain.Config) {
			c.Storage.Backend = domain.StoragePostgres
			c.Database.Host = ""
		}, "database host is required"},
		{"bad reports", func(c *domain.Config) { c.Reports.Backend = "csv" }, "invalid reports backend"},
		{"sqlite needs path", func(c *domain.Config) { c.Reports.SQLitePath = "" }, "sqlite path"},
		{"remote needs url", func(c *domain.Config) {
			c.RemoteScoring.Enabled = true
			c.RemoteScoring.BaseURL = ""
		}, "base URL"},
		{"breaker ratio", func(c *domain.Config) {
			c.RemoteScoring.Enabled = true
			c.RemoteScoring.Breaker.FailureRatio = 1.5
		}, "failure ratio"},
		{"production secret", func(c *domain.Config) {
			c.Environment = "production"
			c.Auth.JWTSecret = ""
		}, "JWT secret"},
		{"log level", func(c *domain.Config) { c.Logging.Level = "verbose" }, "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewManager("")
			require.NoError(t, err)
			tt.mutate(m.GetConfig())

			err = m.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestManager_DatabaseStrings(t *testing.T) {
	m, err := NewManager("")
	require.NoError(t, err)
	db := m.GetDatabaseConfig()
	db.Host = "db"
	db.Password = "secret"

	assert.Equal(t, "host=db port=5432 dbname=health_risk user=postgres password=secret sslmode=disable", m.GetDatabaseConnectionString())
	assert.Equal(t, "postgres://postgres:secret@db:5432/health_risk?sslmode=disable", m.GetDatabaseURL())
	assert.Equal(t, m.GetDatabaseURL(), m.GetReportsDatabaseURL())
	assert.Empty(t, m.GetRedisConnectionString())
}
