package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cfg := Default("Family Portfolio")
	cfg.Preferences.Currency = "SGD"
	cfg.Storage.Backend = BackendSQLite
	cfg.Storage.RemarksTags = false

	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Family Portfolio", got.Project.Name)
	assert.Equal(t, "SGD", got.Preferences.Currency)
	assert.Equal(t, 10, got.Preferences.PageSize)
	assert.Equal(t, BackendSQLite, got.Storage.Backend)
	assert.False(t, got.Storage.RemarksTags)
	assert.Equal(t, cfg.Server, got.Server)
	assert.Equal(t, cfg.Git, got.Git)
	assert.Equal(t, cfg.Assistant.Model, got.Assistant.Model)
}

func TestDefaults(t *testing.T) {
	cfg := Default("Mine")

	assert.Equal(t, "Mine", cfg.Project.Name)
	assert.Equal(t, "MYR", cfg.Preferences.Currency)
	assert.Equal(t, 10, cfg.Preferences.PageSize)
	assert.Equal(t, BackendCSV, cfg.Storage.Backend)
	assert.True(t, cfg.Storage.RemarksTags)
	assert.True(t, cfg.Git.AutoCommit)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("project:\n  name: Solo\npreferences:\n  currency: usd\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Solo", cfg.Project.Name)
	assert.Equal(t, "USD", cfg.Preferences.Currency)
	assert.Equal(t, 10, cfg.Preferences.PageSize)
	assert.Equal(t, BackendCSV, cfg.Storage.Backend)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"backend", "storage:\n  backend: postgres\n"},
		{"page size", "preferences:\n  page_size: 0\n"},
		{"yaml", "project: [unterminated\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), FileName)
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestYAMLFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, Default("Test")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "name: Test")
	assert.Contains(t, contents, "currency: MYR")
	assert.Contains(t, contents, "backend: csv")
	assert.Contains(t, contents, "remarks_tags: true")
	assert.NotContains(t, contents, "apikey")
}

func TestLoadProject_EnvOverlay(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, Save(filepath.Join(root, FileName), Default("Env")))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"), []byte("GEMINI_API_KEY=from-dotenv\n"), 0o600))

	t.Setenv(EnvAddr, ":9999")
	t.Setenv(EnvLogLevel, "debug")
	// godotenv does not override variables that are already set; clear it
	// first so the .env value is picked up.
	t.Setenv(EnvAPIKey, "")
	os.Unsetenv(EnvAPIKey)

	cfg, err := LoadProject(root)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "from-dotenv", cfg.Assistant.APIKey)
}

func TestSQLiteFile(t *testing.T) {
	cfg := Default("x")
	assert.Equal(t, filepath.Join("/proj", "data/myasset.db"), cfg.SQLiteFile("/proj"))
	cfg.Storage.SQLitePath = "/abs/db.sqlite"
	assert.Equal(t, "/abs/db.sqlite", cfg.SQLiteFile("/proj"))
}
