package reports

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/health-risk-server/internal/domain"
)

var pgColumns = []string{
	"id", "assessment_id", "user_id", "disease_type", "title", "report_date",
	"risk_score", "risk_level", "summary", "recommendations", "created_at",
}

func setupMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewPostgresStore(db)
	require.NoError(t, err)
	return store, mock
}

func TestNewPostgresStore_RequiresDB(t *testing.T) {
	_, err := NewPostgresStore(nil)
	assert.Error(t, err)
}

func TestPostgresStore_Save(t *testing.T) {
	store, mock := setupMockStore(t)
	created := time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC)
	r := sampleReport("r-1", "user-1", created)

	mock.ExpectExec("INSERT INTO reports").
		WithArgs("r-1", "assessment-r-1", "user-1", "heartDisease", r.Title, "2026-03-04",
			65, "high", r.Summary, `["Schedule a cardiovascular check-up","Increase weekly physical activity"]`, created).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Save(context.Background(), r))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveDuplicate(t *testing.T) {
	store, mock := setupMockStore(t)

	mock.ExpectExec("INSERT INTO reports").WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Save(context.Background(), sampleReport("r-1", "user-1", time.Now()))
	assert.ErrorIs(t, err, ErrReportExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveError(t *testing.T) {
	store, mock := setupMockStore(t)

	mock.ExpectExec("INSERT INTO reports").WillReturnError(errors.New("connection reset"))

	err := store.Save(context.Background(), sampleReport("r-1", "user-1", time.Now()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestPostgresStore_Get(t *testing.T) {
	store, mock := setupMockStore(t)
	created := time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC)

	rows := sqlmock.NewRows(pgColumns).
		AddRow("r-1", "a-1", "user-1", "diabetes", "Diabetes Risk Assessment", "2026-03-04",
			20, "low", "Low risk.", `["Keep it up"]`, created)
	mock.ExpectQuery("SELECT (.+) FROM reports WHERE id = \\$1").
		WithArgs("r-1").
		WillReturnRows(rows)

	got, err := store.Get(context.Background(), "r-1")
	require.NoError(t, err)
	assert.Equal(t, domain.DiseaseDiabetes, got.DiseaseType)
	assert.Equal(t, domain.RiskLow, got.RiskLevel)
	assert.Equal(t, []string{"Keep it up"}, got.Recommendations)
	assert.Equal(t, created, got.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetNotFound(t *testing.T) {
	store, mock := setupMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM reports").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPostgresStore_ListByUser(t *testing.T) {
	store, mock := setupMockStore(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows(pgColumns).
		AddRow("r-2", "a-2", "user-1", "kidneyDisease", "Kidney Disease Risk Assessment", "2026-03-05",
			45, "moderate", "Moderate risk.", `[]`, now).
		AddRow("r-1", "a-1", "user-1", "diabetes", "Diabetes Risk Assessment", "2026-03-04",
			20, "low", "Low risk.", `["Keep it up"]`, now.Add(-time.Hour))
	mock.ExpectQuery("SELECT (.+) FROM reports WHERE user_id = \\$1").
		WithArgs("user-1").
		WillReturnRows(rows)

	got, err := store.ListByUser(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "r-2", got[0].ID)
	assert.Equal(t, domain.DiseaseKidney, got[0].DiseaseType)
	assert.Equal(t, []string{}, got[0].Recommendations)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Count(t *testing.T) {
	store, mock := setupMockStore(t)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM reports").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
}
