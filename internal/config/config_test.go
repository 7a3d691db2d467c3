package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig_MissingImplicitFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"), false)
	require.NoError(t, err)

	assert.Equal(t, BackendMemory, cfg.Catalog.Backend)
	assert.Equal(t, 2000, cfg.Import.MaxRows)
	assert.Equal(t, 60*time.Second, cfg.Import.CommitTimeout)
	assert.Equal(t, 1, cfg.Import.HeaderRow)
	assert.Equal(t, "xlsx", cfg.Output.ReportFormat)
	assert.Equal(t, "/metrics", cfg.Server.MetricsPath)
	assert.Equal(t, 30*time.Minute, cfg.Server.SessionTTL)
}

func TestLoadConfig_MissingExplicitFileFails(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"), true)
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestLoadConfig_YAML(t *testing.T) {
	path := writeConfig(t, `
catalog:
  backend: postgres
  postgres_dsn: postgres://localhost/academics
import:
  max_rows: 500
  commit_timeout: 2m
log:
  level: debug
  format: json
`)
	cfg, err := LoadConfig(path, true)
	require.NoError(t, err)

	assert.Equal(t, BackendPostgres, cfg.Catalog.Backend)
	assert.Equal(t, 500, cfg.Import.MaxRows)
	assert.Equal(t, 2*time.Minute, cfg.Import.CommitTimeout)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadConfig_EnvOverridesYAML(t *testing.T) {
	path := writeConfig(t, "import:\n  max_rows: 500\n")
	t.Setenv("IMPORTER_IMPORT_MAX_ROWS", "50")
	t.Setenv("IMPORTER_CATALOG_BACKEND", "http")
	t.Setenv("IMPORTER_CATALOG_HTTP_BASE_URL", "http://catalog.local")
	t.Setenv("IMPORTER_SERVER_SESSION_TTL", "5m")

	cfg, err := LoadConfig(path, true)
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Import.MaxRows)
	assert.Equal(t, BackendHTTP, cfg.Catalog.Backend)
	assert.Equal(t, "http://catalog.local", cfg.Catalog.HTTPBaseURL)
	assert.Equal(t, 5*time.Minute, cfg.Server.SessionTTL)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown backend", "catalog:\n  backend: sqlite\n", "Backend"},
		{"postgres without dsn", "catalog:\n  backend: postgres\n", "PostgresDSN"},
		{"mongo without uri", "catalog:\n  backend: mongo\n", "MongoURI"},
		{"bad report format", "output:\n  report_format: pdf\n", "ReportFormat"},
		{"bad log level", "log:\n  level: loud\n", "Level"},
		{"negative max rows", "import:\n  max_rows: -1\n", "MaxRows"},
		{"malformed yaml", "catalog: [\n", "failed to parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body), true)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("IMPORTER_TEST_LOADENV=from-file\n"), 0o644))
	t.Setenv("IMPORTER_TEST_LOADENV", "")
	require.NoError(t, os.Unsetenv("IMPORTER_TEST_LOADENV"))

	n, err := LoadEnv([]string{envFile, filepath.Join(dir, ".env.local")})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "from-file", os.Getenv("IMPORTER_TEST_LOADENV"))
}

func TestDefault_IsValid(t *testing.T) {
	assert.NoError(t, Validate(Default()))
}
