package reports

import (
	"fmt"

	"github.com/health-risk-server/internal/domain"
)

// Open returns the store selected by cfg. fallbackURL is used by the
// postgres backend when cfg carries no URL of its own.
func Open(cfg domain.ReportsConfig, fallbackURL string) (Store, error) {
	switch cfg.Backend {
	case domain.StorageSQLite:
		return NewSQLiteStore(cfg.SQLitePath)
	case domain.StoragePostgres:
		url := cfg.PostgresURL
		if url == "" {
			url = fallbackURL
		}
		return NewPostgresStoreFromURL(url)
	default:
		return nil, fmt.Errorf("unknown reports backend: %q", cfg.Backend)
	}
}
