// Package repository implements PostgreSQL persistence for assessments.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/health-risk-server/internal/domain"
)

const assessmentColumns = `id, user_id, disease_type, submitted_at, answers, risk_score, risk_level,
	region, age, gender, zip_code, urban_rural`

// AssessmentRepository handles assessment persistence
type AssessmentRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewAssessmentRepository creates a new assessment repository
func NewAssessmentRepository(db *pgxpool.Pool, logger *logrus.Logger) *AssessmentRepository {
	return &AssessmentRepository{
		db:  db,
		log: logger,
	}
}

// Add inserts a new assessment. Records are never updated afterwards.
func (r *AssessmentRepository) Add(ctx context.Context, a *domain.Assessment) error {
	if a.Region == "" {
		return domain.NewValidationError("region", "Location data is missing", a.Region)
	}

	answers, err := json.Marshal(a.Answers)
	if err != nil {
		return fmt.Errorf("encoding answers: %w", err)
	}

	query := `
		INSERT INTO assessments (` + assessmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err = r.db.Exec(ctx, query,
		a.ID,
		a.UserID,
		string(a.DiseaseType),
		a.SubmittedAt,
		answers,
		a.RiskScore,
		string(a.RiskLevel),
		a.Region,
		nullInt(a.Demographics.Age),
		nullString(a.Demographics.Gender),
		nullString(a.Demographics.ZipCode),
		nullString(a.Demographics.UrbanRural),
	)
	if err != nil {
		r.log.WithFields(a.LogFields()).WithError(err).Error("Failed to create assessment")
		return fmt.Errorf("creating assessment: %w", err)
	}

	r.log.WithFields(a.LogFields()).Debug("Assessment created successfully")
	return nil
}

// Get retrieves an assessment by its ID
func (r *AssessmentRepository) Get(ctx context.Context, id string) (*domain.Assessment, error) {
	query := `SELECT ` + assessmentColumns + ` FROM assessments WHERE id::text = $1`

	a, err := scanAssessment(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("assessment not found: %w", domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"assessment_id": id,
			"error":         err,
		}).Error("Failed to get assessment")
		return nil, fmt.Errorf("getting assessment: %w", err)
	}
	return a, nil
}

// ListByUser returns a user's assessments, newest first.
func (r *AssessmentRepository) ListByUser(ctx context.Context, userID string) ([]domain.Assessment, error) {
	query := `SELECT ` + assessmentColumns + `
		FROM assessments
		WHERE user_id = $1
		ORDER BY submitted_at DESC`
	return r.list(ctx, query, userID)
}

// Snapshot returns every stored assessment ordered by submission time.
func (r *AssessmentRepository) Snapshot(ctx context.Context) ([]domain.Assessment, error) {
	query := `SELECT ` + assessmentColumns + ` FROM assessments ORDER BY submitted_at, id`
	return r.list(ctx, query)
}

// Count returns the number of stored assessments.
func (r *AssessmentRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM assessments`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting assessments: %w", err)
	}
	return n, nil
}

func (r *AssessmentRepository) list(ctx context.Context, query string, args ...any) ([]domain.Assessment, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.WithError(err).Error("Failed to query assessments")
		return nil, fmt.Errorf("querying assessments: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Assessment, 0)
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning assessment: %w", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating assessments: %w", err)
	}
	return out, nil
}

func scanAssessment(row pgx.Row) (*domain.Assessment, error) {
	var (
		a                 domain.Assessment
		disease, level    string
		answers           []byte
		age               *int
		gender, zip, area *string
	)
	err := row.Scan(
		&a.ID,
		&a.UserID,
		&disease,
		&a.SubmittedAt,
		&answers,
		&a.RiskScore,
		&level,
		&a.Region,
		&age,
		&gender,
		&zip,
		&area,
	)
	if err != nil {
		return nil, err
	}

	a.DiseaseType = domain.DiseaseType(disease)
	a.RiskLevel = domain.RiskLevel(level)

	var raw map[string]any
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &raw); err != nil {
			return nil, fmt.Errorf("decoding answers: %w", err)
		}
	}
	if decoded, err := domain.DecodeAnswers(a.DiseaseType, raw); err == nil {
		a.Answers = decoded
	}

	if age != nil {
		a.Demographics.Age = *age
	}
	a.Demographics.Gender = deref(gender)
	a.Demographics.ZipCode = deref(zip)
	a.Demographics.UrbanRural = deref(area)
	return &a, nil
}

func nullInt(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}

func nullString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var _ domain.AssessmentRepository = (*AssessmentRepository)(nil)
