package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/health-risk-server/internal/domain"
	"github.com/health-risk-server/internal/reports"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(bytes.NewBufferString(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestScoreCommand(t *testing.T) {
	out, err := execute(t, "", "score", "--disease", "diabetes",
		"--answers", `{"d1":50,"d2":"yes","d3":90,"d4":170,"d5":"unhealthy"}`)
	require.NoError(t, err)

	var got scoreOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, domain.DiseaseDiabetes, got.DiseaseType)
	assert.Equal(t, 100, got.RiskScore)
	assert.Equal(t, domain.RiskHigh, got.RiskLevel)
	assert.Len(t, got.Contributions, 4)

	t.Run("yaml from stdin", func(t *testing.T) {
		out, err := execute(t, `{"hd1":"no","hd2":"no","hd3":"no","hd4":"moderate","hd5":"low"}`,
			"score", "-d", "heart", "-f", "-", "-o", "yaml")
		require.NoError(t, err)

		var got map[string]any
		require.NoError(t, yaml.Unmarshal([]byte(out), &got))
		assert.Equal(t, "heartDisease", got["diseaseType"])
		assert.Equal(t, "low", got["riskLevel"])
	})

	t.Run("unknown disease", func(t *testing.T) {
		_, err := execute(t, "", "score", "--disease", "flu")
		assert.ErrorIs(t, err, domain.ErrInvalidDisease)
	})

	t.Run("bad answers", func(t *testing.T) {
		_, err := execute(t, "", "score", "--disease", "kidney", "--answers", "[1,2]")
		assert.Error(t, err)
	})

	t.Run("bad output format", func(t *testing.T) {
		_, err := execute(t, "", "score", "--disease", "kidney", "-o", "xml")
		assert.Error(t, err)
	})
}

func TestSummarizeCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assessments.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
  {"diseaseType":"diabetes","riskScore":80,"riskLevel":"high","region":"Austin, Texas"},
  {"diseaseType":"heartDisease","riskScore":70,"riskLevel":"high","region":"Austin, Texas"},
  {"diseaseType":"kidneyDisease","answers":{},"region":"Reno, Nevada"},
  {"diseaseType":"diabetes","riskScore":85,"region":"Reno, Nevada"},
  {"diseaseType":"flu","riskLevel":"low"}
]`), 0o644))

	out, err := execute(t, "", "summarize", path)
	require.NoError(t, err)

	var got summaryOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 4, got.Summary.TotalAssessments)
	assert.Equal(t, map[string]int{"high": 3, domain.UnknownBucket: 1}, got.Summary.AssessmentsByRiskLevel)
	assert.Equal(t, 1, got.Skipped)
	require.NotEmpty(t, got.Regions)
	assert.Equal(t, "Austin, Texas", got.Regions[0].Region)

	t.Run("filter", func(t *testing.T) {
		out, err := execute(t, "", "summarize", path, "--risk-level", "high")
		require.NoError(t, err)
		var got summaryOutput
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.Equal(t, 3, got.Summary.TotalAssessments)
	})

	t.Run("bad sort", func(t *testing.T) {
		_, err := execute(t, "", "summarize", path, "--sort-by", "name")
		assert.Error(t, err)
	})

	t.Run("not an array", func(t *testing.T) {
		_, err := execute(t, `{"diseaseType":"diabetes"}`, "summarize", "-")
		assert.Error(t, err)
	})
}

func TestReportsExportImport(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "source.db")
	target := filepath.Join(dir, "target.db")

	store, err := reports.NewSQLiteStore(source)
	require.NoError(t, err)
	created := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	for i := 1; i <= 2; i++ {
		require.NoError(t, store.Save(context.Background(), &domain.Report{
			ID:              fmt.Sprintf("report-%d", i),
			AssessmentID:    fmt.Sprintf("assessment-%d", i),
			UserID:          "patient-1",
			DiseaseType:     domain.DiseaseKidney,
			Title:           "Kidney Disease Risk Assessment",
			Date:            "2026-03-14",
			RiskScore:       20,
			RiskLevel:       domain.RiskLow,
			Summary:         "Low risk.",
			Recommendations: []string{"Stay hydrated"},
			CreatedAt:       created,
		}))
	}
	require.NoError(t, store.Close())

	sourceCfg := writeConfig(t, dir, "source.yaml", source)
	targetCfg := writeConfig(t, dir, "target.yaml", target)
	exportFile := filepath.Join(dir, "export.json")

	_, err = execute(t, "", "reports", "export", "--config", sourceCfg, "-f", exportFile)
	require.NoError(t, err)
	assert.FileExists(t, exportFile)

	out, err := execute(t, "", "reports", "import", exportFile, "--config", targetCfg)
	require.NoError(t, err)
	var got map[string]int
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, map[string]int{"imported": 2, "skipped": 0, "total": 2}, got)

	out, err = execute(t, "", "reports", "import", exportFile, "--config", targetCfg)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, map[string]int{"imported": 0, "skipped": 2, "total": 2}, got)
}

func TestMigrateDownRejectsBadSteps(t *testing.T) {
	_, err := execute(t, "", "migrate", "down", "zero")
	assert.Error(t, err)
}

func TestMCPCommands(t *testing.T) {
	clientConfig := filepath.Join(t.TempDir(), "client.json")

	out, err := execute(t, "", "mcp", "install", "--client-config", clientConfig,
		"--binary", "/opt/hra/health-risk-mcp-server", "--data-dir", "/var/lib/hra")
	require.NoError(t, err)

	var status map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.Equal(t, true, status["registered"])
	assert.Equal(t, "/var/lib/hra", status["dataDir"])

	out, err = execute(t, "", "mcp", "uninstall", "--client-config", clientConfig)
	require.NoError(t, err)
	assert.JSONEq(t, `{"removed": true}`, out)

	out, err = execute(t, "", "mcp", "status", "--client-config", clientConfig)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.Equal(t, false, status["registered"])
}

func writeConfig(t *testing.T, dir, name, sqlitePath string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	content := fmt.Sprintf("reports:\n  backend: sqlite\n  sqlite_path: %s\nlogging:\n  level: warn\n", sqlitePath)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
