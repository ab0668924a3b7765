package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Hub.Addr)
	assert.Equal(t, int64(10), cfg.Hub.MaxWindowsPerTop)
	assert.Equal(t, 5*time.Minute, cfg.Hub.ClosedRetention)
	assert.Equal(t, 500*time.Millisecond, cfg.Child.PollInterval)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.RateLimit.Enabled)
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("HUB_ADDR", ":9999")
	t.Setenv("CLOSE_POLL_INTERVAL", "2s")
	t.Setenv("LOG_DEV", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Hub.Addr)
	assert.Equal(t, 2*time.Second, cfg.Child.PollInterval)
	assert.True(t, cfg.Logging.Development)
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("HUB_URL=http://hub.internal:9000\nHUB_RETRY_MAX=7\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("HUB_URL")
		os.Unsetenv("HUB_RETRY_MAX")
	})

	cfg, err := Load(path, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "http://hub.internal:9000", cfg.Child.HubURL)
	assert.Equal(t, 7, cfg.Child.RetryMax)
}

func TestLoadInvalid(t *testing.T) {
	t.Setenv("HUB_REAP_INTERVAL", "soon")

	_, err := Load()
	assert.Error(t, err)
}
