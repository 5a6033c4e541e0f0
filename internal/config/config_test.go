package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFrom(t *testing.T, yaml string) *Config {
	t.Helper()
	dir := t.TempDir()
	if yaml != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))
	}
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load()
	require.NoError(t, err)
	return cfg
}

func TestLoad_Defaults(t *testing.T) {
	cfg := loadFrom(t, "")

	assert.Equal(t, int32(10), cfg.Store.MaxConns)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "cli", cfg.AI.Backend)
	assert.Equal(t, "scrape", cfg.Search.Backend)
	assert.Equal(t, 5, cfg.Search.MaxResults)
	assert.Equal(t, 8, cfg.Crawl.MaxPages)
	assert.Equal(t, 100, cfg.Batch.Size)
	assert.Equal(t, 5, cfg.Batch.StaggerSecs)
	assert.Equal(t, 24, cfg.Scheduler.IntervalHours)
	assert.Equal(t, 1, cfg.Queue.AIWorkers)
	assert.Equal(t, "en", cfg.Translate.SourceLang)
	assert.Equal(t, 300, cfg.Monitor.CheckIntervalSecs)
	assert.InDelta(t, 0.5, cfg.Enrich.CategoryFitThreshold, 0.001)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	cfg := loadFrom(t, `
store:
  database_url: postgres://localhost/listings
  max_conns: 25
batch:
  size: 10
  stagger_secs: 2
crawl:
  exclude_paths: ["/admin/*"]
`)

	assert.Equal(t, "postgres://localhost/listings", cfg.Store.DatabaseURL)
	assert.Equal(t, int32(25), cfg.Store.MaxConns)
	assert.Equal(t, 10, cfg.Batch.Size)
	assert.Equal(t, 2, cfg.Batch.StaggerSecs)
	assert.Equal(t, []string{"/admin/*"}, cfg.Crawl.ExcludePaths)
	// Untouched keys keep defaults.
	assert.Equal(t, 24, cfg.Scheduler.IntervalHours)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LISTING_STORE_DATABASE_URL", "postgres://env/db")
	t.Setenv("LISTING_LOG_LEVEL", "debug")

	cfg := loadFrom(t, "")
	assert.Equal(t, "postgres://env/db", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestInitLogger_BadLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "shout", Format: "json"})
	require.Error(t, err)
}

func TestInitLogger_Console(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "warn", Format: "console"}))
}
