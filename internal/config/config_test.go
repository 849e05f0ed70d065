package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "CHECKPOINT_BACKEND", "DEFAULT_RATE_LIMIT", "DEFAULT_BATCH_SIZE",
		"CHECKPOINT_EVERY", "COMMIT_TIMEZONE", "GITHUB_API_URL", "GITHUB_TIMEOUT_SECONDS",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, BackendFile, cfg.CheckpointBackend)
	assert.Equal(t, "https://api.github.com", cfg.GitHub.APIBaseURL)
	assert.Equal(t, 120*time.Second, cfg.GitHub.Timeout)
	assert.Equal(t, DefaultBatchSize, cfg.Scheduler.BatchSize)
	assert.Equal(t, DefaultRateLimit, cfg.Scheduler.RateLimit)
	assert.Equal(t, DefaultCheckpointN, cfg.Scheduler.CheckpointEvery)
	assert.Equal(t, time.UTC, cfg.Scheduler.Location)
}

func TestLoad_ClampsSchedulerValues(t *testing.T) {
	t.Setenv("DEFAULT_RATE_LIMIT", "3000")
	t.Setenv("DEFAULT_BATCH_SIZE", "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, MaxRateLimit, cfg.Scheduler.RateLimit)
	assert.Equal(t, MinBatchSize, cfg.Scheduler.BatchSize)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Run("non numeric rate", func(t *testing.T) {
		t.Setenv("DEFAULT_RATE_LIMIT", "fast")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("postgres without connection string", func(t *testing.T) {
		t.Setenv("CHECKPOINT_BACKEND", BackendPostgres)
		t.Setenv("DB_CONNECTION_STRING", "")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("unknown backend", func(t *testing.T) {
		t.Setenv("CHECKPOINT_BACKEND", "redis")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("bad timezone", func(t *testing.T) {
		t.Setenv("COMMIT_TIMEZONE", "Mars/Olympus")
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 1, ClampRateLimit(-5))
	assert.Equal(t, 500, ClampRateLimit(500))
	assert.Equal(t, 1000, ClampRateLimit(3000))
	assert.Equal(t, 1, ClampBatchSize(0))
	assert.Equal(t, 100, ClampBatchSize(250))
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "painter.env")
	require.NoError(t, os.WriteFile(path, []byte("PAINTER_TEST_VALUE=from-file\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("PAINTER_TEST_VALUE") })

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv("PAINTER_TEST_VALUE"))

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env")))
}
