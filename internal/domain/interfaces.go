package domain

import (
	"context"
)

// AssessmentRepository persists assessments. Snapshot returns a copy of the
// full collection that callers may read without further coordination.
type AssessmentRepository interface {
	Add(ctx context.Context, a *Assessment) error
	Get(ctx context.Context, id string) (*Assessment, error)
	ListByUser(ctx context.Context, userID string) ([]Assessment, error)
	Snapshot(ctx context.Context) ([]Assessment, error)
	Count(ctx context.Context) (int, error)
}

// ReportRepository persists generated reports.
type ReportRepository interface {
	Save(ctx context.Context, r *Report) error
	Get(ctx context.Context, id string) (*Report, error)
	ListByUser(ctx context.Context, userID string) ([]Report, error)
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetDatabaseConfig() *DatabaseConfig
	GetServerConfig() *ServerConfig
	GetRemoteScoringConfig() *RemoteScoringConfig
	Reload() error
	Validate() error
	GetDatabaseConnectionString() string
	GetDatabaseURL() string
	GetRedisConnectionString() string
	IsProduction() bool
	IsDevelopment() bool
}
