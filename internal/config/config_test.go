package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points HOME at an empty directory and clears the TALLY_*
// variables so the host environment does not leak into a test.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, k := range []string{
		"TALLY_CONFIG", "TALLY_API_URL", "TALLY_WS_URL", "TALLY_TOKEN", "TALLY_DB",
		"TALLY_LOG_LEVEL", "TALLY_LOG_FORMAT", "TALLY_STALE_TIME", "TALLY_GC_TIME",
		"TALLY_HTTP_TIMEOUT", "TALLY_WS_RECONNECT_ATTEMPTS", "TALLY_WS_RECONNECT_DELAY",
	} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	return home
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3001/api", cfg.API.URL)
	assert.Equal(t, "ws://localhost:3001", cfg.Notifications.URL)
	assert.Equal(t, 5, cfg.Notifications.ReconnectAttempts)
	assert.Equal(t, time.Second, cfg.Notifications.ReconnectDelay)
	assert.Equal(t, 15*time.Second, cfg.API.Timeout)
	assert.Equal(t, 30*time.Second, cfg.Cache.StaleTime)
	assert.Equal(t, 5*time.Minute, cfg.Cache.GCTime)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, filepath.Join(home, ".tally", "tally.db"), cfg.DBPath)
	assert.Empty(t, cfg.File)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	home := isolate(t)
	writeConfig(t, filepath.Join(home, ".tally"), `
api:
  url: "https://yaml.example.com/api"
  timeout: 5s
log:
  level: info
cache:
  stale_time: 10s
  resources:
    users:
      stale_time: 10m
    dashboard:
      gc_time: 1m
`)
	t.Setenv("TALLY_API_URL", "https://env.example.com/api")
	t.Setenv("TALLY_TOKEN", "tok")
	t.Setenv("TALLY_WS_RECONNECT_ATTEMPTS", "3")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".tally", "config.yaml"), cfg.File)
	assert.Equal(t, "https://env.example.com/api", cfg.API.URL)
	assert.Equal(t, "tok", cfg.API.Token)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 3, cfg.Notifications.ReconnectAttempts)

	defaults := cfg.CacheDefaults()
	assert.Equal(t, 10*time.Second, defaults.StaleTime)
	overrides := cfg.CacheOverrides()
	assert.Equal(t, 10*time.Minute, overrides["users"].StaleTime)
	assert.Equal(t, defaults.GCTime, overrides["users"].GCTime)
	assert.Equal(t, 10*time.Second, overrides["dashboard"].StaleTime)
	assert.Equal(t, time.Minute, overrides["dashboard"].GCTime)
}

func TestCacheOverrides_ZeroStaleTimeIsKept(t *testing.T) {
	home := isolate(t)
	writeConfig(t, filepath.Join(home, ".tally"), `
cache:
  stale_time: 45s
  resources:
    notifications:
      stale_time: 0s
`)

	cfg, err := Load("")
	require.NoError(t, err)
	overrides := cfg.CacheOverrides()
	assert.Equal(t, time.Duration(0), overrides["notifications"].StaleTime)
	assert.Equal(t, cfg.CacheDefaults().GCTime, overrides["notifications"].GCTime)
}

func TestLoad_RejectsNegativeResourceStaleTime(t *testing.T) {
	home := isolate(t)
	writeConfig(t, filepath.Join(home, ".tally"), `
cache:
  resources:
    tasks:
      stale_time: -1s
`)

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `cache resource "tasks"`)
}

func TestLoad_ExplicitPath(t *testing.T) {
	isolate(t)
	path := writeConfig(t, t.TempDir(), "db: /tmp/custom.db\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom.db", cfg.DBPath)

	t.Setenv("TALLY_CONFIG", path)
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, path, cfg.File)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	isolate(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	isolate(t)
	t.Setenv("TALLY_LOG_FORMAT", "xml")
	t.Setenv("TALLY_API_URL", "not a url")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log format")
	assert.Contains(t, err.Error(), "api url")
}
