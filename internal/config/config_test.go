package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_DefaultsWithoutFile(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "sequential", cfg.Reconcile.Strategy)
	assert.Equal(t, 50, cfg.Reconcile.BatchSize)
	assert.Equal(t, 50*time.Millisecond, cfg.Reconcile.CallDelay)
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".citysync"), 0755))
	yamlDoc := `
database:
  driver: sqlite
  path: /tmp/store.db
reconcile:
  strategy: parallel
  concurrency: 3
  call_delay: 120ms
  batch_size: 100
`
	require.NoError(t, os.WriteFile(FilePath(dir), []byte(yamlDoc), 0600))

	t.Setenv("CITYSYNC_BATCH_SIZE", "25")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "/tmp/store.db", cfg.Database.Path)
	assert.Equal(t, "parallel", cfg.Reconcile.Strategy)
	assert.Equal(t, 3, cfg.Reconcile.Concurrency)
	assert.Equal(t, 120*time.Millisecond, cfg.Reconcile.CallDelay)
	assert.Equal(t, 25, cfg.Reconcile.BatchSize, "environment overrides the file")
	assert.Equal(t, "123:abc", cfg.Telegram.BotToken)
	// Untouched keys keep their defaults.
	assert.Equal(t, 50, cfg.Reconcile.ProgressEvery)
}

func TestLoadConfig_BadEnvValue(t *testing.T) {
	t.Setenv("CITYSYNC_CONCURRENCY", "many")
	t.Setenv("CITYSYNC_CALL_DELAY", "soon")

	_, err := LoadConfig(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CITYSYNC_CONCURRENCY")
	assert.Contains(t, err.Error(), "CITYSYNC_CALL_DELAY")
}

func TestLoadConfig_BadYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".citysync"), 0755))
	require.NoError(t, os.WriteFile(FilePath(dir), []byte("reconcile: [unclosed"), 0600))

	_, err := LoadConfig(dir)
	assert.Error(t, err)
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Reconcile.Strategy = "parallel"
	cfg.Database.Driver = DriverSQLite

	require.NoError(t, SaveConfig(dir, cfg))

	loaded, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "parallel", loaded.Reconcile.Strategy)
	assert.Equal(t, DriverSQLite, loaded.Database.Driver)
}
