package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CALTRACK_CONFIG_PATH", "CALTRACK_SERVER_URL", "CALTRACK_TOKEN_PAGE", "CALTRACK_TIMEOUT",
		"CALTRACK_DB_PATH", "CALTRACK_LOG_LEVEL", "CALTRACK_LOG_PATH",
	} {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "caltrack.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8080", cfg.Server.URL)
	require.Equal(t, "/", cfg.Server.TokenPage)
	require.Equal(t, 15*time.Second, cfg.Server.Timeout)
	require.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
server:
  url: https://calories.example.com
  timeout: 3s
db:
  path: /tmp/cal.db
log:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "https://calories.example.com", cfg.Server.URL)
	require.Equal(t, 3*time.Second, cfg.Server.Timeout)
	require.Equal(t, "/", cfg.Server.TokenPage, "unset keys keep their default")
	require.Equal(t, "/tmp/cal.db", cfg.DB.Path)
	require.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadPathFromEnv(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "server:\n  token_page: /dashboard\n")
	t.Setenv("CALTRACK_CONFIG_PATH", path)

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "/dashboard", cfg.Server.TokenPage)
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "server:\n  url: http://from-file\nlog:\n  level: warn\n")
	t.Setenv("CALTRACK_SERVER_URL", "http://from-env")
	t.Setenv("CALTRACK_TIMEOUT", "500ms")
	t.Setenv("CALTRACK_DB_PATH", "/var/cal.db")
	t.Setenv("CALTRACK_LOG_PATH", "/var/cal.log")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "http://from-env", cfg.Server.URL)
	require.Equal(t, 500*time.Millisecond, cfg.Server.Timeout)
	require.Equal(t, "/var/cal.db", cfg.DB.Path)
	require.Equal(t, "/var/cal.log", cfg.Log.Path)
	require.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadInvalidTimeout(t *testing.T) {
	clearEnv(t)
	t.Setenv("CALTRACK_TIMEOUT", "soon")

	_, err := Load("")
	require.ErrorContains(t, err, "invalid CALTRACK_TIMEOUT")
}

func TestLoadRejectsNonPositiveTimeout(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "server:\n  timeout: 0s\n")

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "read config file")
}

func TestLoadBadYAML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "server: [unterminated\n")

	_, err := Load(path)
	require.ErrorContains(t, err, "parse config file")
}
