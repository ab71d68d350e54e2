package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"POWERCURVE_API_URL", "POWERCURVE_CONFIG_FILE", "HTTP_TIMEOUT",
		"REFRESH_INTERVAL", "PORT", "LOG_LEVEL", "LOG_OUTPUT",
		"BREAKER_MAX_REQUESTS", "BREAKER_TIMEOUT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.APIBaseURL)
	assert.Zero(t, cfg.HTTPTimeout)
	assert.Zero(t, cfg.RefreshInterval)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, uint32(3), cfg.BreakerMaxRequests)
	assert.Equal(t, 10*time.Second, cfg.BreakerTimeout)
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("POWERCURVE_API_URL", "http://analytics.internal:9000")
	t.Setenv("HTTP_TIMEOUT", "15s")
	t.Setenv("REFRESH_INTERVAL", "1m")
	t.Setenv("BREAKER_MAX_REQUESTS", "5")
	t.Setenv("BREAKER_TIMEOUT", "2s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, uint32(5), cfg.BreakerMaxRequests)
	assert.Equal(t, 2*time.Second, cfg.BreakerTimeout)

	assert.Equal(t, "http://analytics.internal:9000", cfg.APIBaseURL)
	assert.Equal(t, 15*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, time.Minute, cfg.RefreshInterval)
}

func TestLoadFileThenEnvironment(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "powercurve.yaml")
	content := `
api_base_url: http://from-file:8000
refresh_interval: 30s
breaker_timeout: 5s
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("POWERCURVE_CONFIG_FILE", path)
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://from-file:8000", cfg.APIBaseURL)
	assert.Equal(t, 30*time.Second, cfg.RefreshInterval)
	assert.Equal(t, 5*time.Second, cfg.BreakerTimeout)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "bad url", key: "POWERCURVE_API_URL", val: "localhost"},
		{name: "bad timeout", key: "HTTP_TIMEOUT", val: "soon"},
		{name: "negative interval", key: "REFRESH_INTERVAL", val: "-1s"},
		{name: "zero breaker requests", key: "BREAKER_MAX_REQUESTS", val: "0"},
		{name: "bad breaker requests", key: "BREAKER_MAX_REQUESTS", val: "many"},
		{name: "zero breaker timeout", key: "BREAKER_TIMEOUT", val: "0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
