// Package reports stores generated patient reports. Reports are written once
// per assessment and can be exported to and imported from JSON.
package reports

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/health-risk-server/internal/domain"
)

// ExportVersion is the version tag written into JSON exports.
const ExportVersion = "1.0"

// ErrReportExists is returned when saving a report whose id is already stored.
var ErrReportExists = errors.New("report already exists")

// maxExportLimit is the maximum number of reports exported at once.
const maxExportLimit = 1000000

// Store defines the interface for report storage operations.
type Store interface {
	domain.ReportRepository

	// List returns reports newest first with pagination.
	List(ctx context.Context, limit, offset int) ([]domain.Report, error)

	// Count returns the total number of stored reports.
	Count(ctx context.Context) (int64, error)

	// ExportJSON writes every report to writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON reads an export and stores reports whose id is not yet
	// present. Returns the number of imported and skipped reports.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	// Close closes the store and releases resources.
	Close() error
}

// Export represents the JSON export format.
type Export struct {
	Version    string          `json:"version"`
	ExportedAt time.Time       `json:"exported_at"`
	Count      int             `json:"count"`
	Reports    []domain.Report `json:"reports"`
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

const reportColumns = `id, assessment_id, user_id, disease_type, title, report_date,
	risk_score, risk_level, summary, recommendations, created_at`

func scanReport(s scanner) (*domain.Report, error) {
	r := &domain.Report{}
	var disease, level, recs string

	err := s.Scan(
		&r.ID, &r.AssessmentID, &r.UserID, &disease, &r.Title, &r.Date,
		&r.RiskScore, &level, &r.Summary, &recs, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.DiseaseType = domain.DiseaseType(disease)
	r.RiskLevel = domain.RiskLevel(level)
	if recs != "" {
		if err := json.Unmarshal([]byte(recs), &r.Recommendations); err != nil {
			return nil, fmt.Errorf("decoding recommendations: %w", err)
		}
	}
	if r.Recommendations == nil {
		r.Recommendations = []string{}
	}
	return r, nil
}

func encodeRecommendations(recs []string) (string, error) {
	if recs == nil {
		recs = []string{}
	}
	b, err := json.Marshal(recs)
	if err != nil {
		return "", fmt.Errorf("encoding recommendations: %w", err)
	}
	return string(b), nil
}

func exportJSON(ctx context.Context, s Store, writer io.Writer) error {
	all, err := s.List(ctx, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("listing reports: %w", err)
	}

	export := &Export{
		Version:    ExportVersion,
		ExportedAt: time.Now().UTC(),
		Count:      len(all),
		Reports:    all,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}

func checkInserted(result sql.Result, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", id, ErrReportExists)
	}
	return nil
}

func notFound(id string) error {
	return fmt.Errorf("report not found: %s: %w", id, domain.ErrNotFound)
}

func importJSON(ctx context.Context, s Store, reader io.Reader) (imported int, skipped int, err error) {
	var export Export
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("decoding export: %w", err)
	}

	for i := range export.Reports {
		r := &export.Reports[i]
		if r.ID == "" {
			skipped++
			continue
		}
		_, err := s.Get(ctx, r.ID)
		if err == nil {
			skipped++
			continue
		}
		if !isNotFound(err) {
			return imported, skipped, fmt.Errorf("checking existing report: %w", err)
		}
		if err := s.Save(ctx, r); err != nil {
			return imported, skipped, fmt.Errorf("saving report: %w", err)
		}
		imported++
	}
	return imported, skipped, nil
}
