package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 10*time.Second, cfg.StepTimeout)
	assert.Equal(t, time.Second, cfg.ProbeTimeout)
	assert.Equal(t, uint(3), cfg.RowRetryAttempts)
	assert.Equal(t, time.Second, cfg.RowRetryDelay)
	assert.Equal(t, 15*time.Minute, cfg.SessionIdleTimeout)
	assert.True(t, cfg.HeadlessMode)
	assert.Equal(t, "https://hcservices.ecourts.gov.in/hcservices/", cfg.PortalBaseURL())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STEP_TIMEOUT", "5")
	t.Setenv("PROBE_TIMEOUT", "250")
	t.Setenv("ROW_RETRY_ATTEMPTS", "5")
	t.Setenv("HEADLESS_MODE", "false")
	t.Setenv("PORTAL_URL", "http://localhost:9000/portal/main.php")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.StepTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.ProbeTimeout)
	assert.Equal(t, uint(5), cfg.RowRetryAttempts)
	assert.False(t, cfg.HeadlessMode)
	assert.Equal(t, "http://localhost:9000/portal/", cfg.PortalBaseURL())
}

func TestLoadRejectsInvalidNumbers(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{name: "step timeout", key: "STEP_TIMEOUT"},
		{name: "cache size", key: "CACHE_SIZE"},
		{name: "row attempts", key: "ROW_RETRY_ATTEMPTS"},
		{name: "idle timeout", key: "SESSION_IDLE_TIMEOUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, "not-a-number")

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}
