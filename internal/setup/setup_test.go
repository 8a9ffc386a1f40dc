package setup

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Empty(t, cfg.MCPServers)
}

func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestInstall_PreservesOtherEntries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(`{
  "theme": "dark",
  "mcpServers": {"other": {"command": "/bin/other"}}
}`), 0o644))

	bin := filepath.Join(dir, BinaryName)
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755))

	entry, err := Install(Options{
		ConfigPath:       path,
		BinaryPath:       bin,
		DataDir:          "/data/hra",
		RemoteScoringURL: "http://localhost:8000",
	})
	require.NoError(t, err)
	assert.Equal(t, bin, entry.Command)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "dark", raw["theme"])

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Contains(t, cfg.MCPServers, "other")
	got := cfg.MCPServers[ServerName]
	assert.Equal(t, "/data/hra", got.Env["HRA_DATA_DIR"])
	assert.Equal(t, "http://localhost:8000", got.Env["HRA_REMOTE_SCORING_URL"])

	status, err := GetStatus(path)
	require.NoError(t, err)
	assert.True(t, status.Registered)
	assert.Equal(t, "/data/hra", status.DataDir)
	assert.Empty(t, status.Issues)
}

func TestGetStatus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	status, err := GetStatus(path)
	require.NoError(t, err)
	assert.False(t, status.Registered)
	assert.Len(t, status.Issues, 1)

	_, err = Install(Options{ConfigPath: path, BinaryPath: "/does/not/exist"})
	require.NoError(t, err)

	status, err = GetStatus(path)
	require.NoError(t, err)
	assert.True(t, status.Registered)
	require.Len(t, status.Issues, 1)
	assert.Contains(t, status.Issues[0], "not found")
}

func TestUninstall(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	removed, err := Uninstall(path)
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = Install(Options{ConfigPath: path, BinaryPath: "/usr/bin/true"})
	require.NoError(t, err)

	removed, err = Uninstall(path)
	require.NoError(t, err)
	assert.True(t, removed)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.NotContains(t, cfg.MCPServers, ServerName)
}
