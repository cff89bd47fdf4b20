package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func setupTestEnv(t *testing.T) func() {
	keys := []string{
		"PORT", "ALLOWED_ORIGINS", "GO_ENV", "LOG_LEVEL",
		"INVITE_TIMEOUT_SECONDS", "RATE_LIMIT_WINDOW_SECONDS",
		"RATE_LIMIT_MAX_MESSAGES", "SWEEP_INTERVAL_SECONDS", "WS_CONNECT_RATE",
	}
	orig := make(map[string]string, len(keys))
	for _, k := range keys {
		orig[k] = os.Getenv(k)
		os.Unsetenv(k)
	}
	return func() {
		for _, k := range keys {
			if v := orig[k]; v != "" {
				os.Setenv(k, v)
			} else {
				os.Unsetenv(k)
			}
		}
	}
}

func TestValidateEnv_Defaults(t *testing.T) {
	defer setupTestEnv(t)()

	cfg, err := ValidateEnv()
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, "http://localhost:3000", cfg.AllowedOrigins)
	require.Equal(t, 20, cfg.InviteTimeoutSeconds)
	require.Equal(t, 10, cfg.RateLimitWindowSeconds)
	require.Equal(t, 60, cfg.RateLimitMaxMessages)
	require.Equal(t, 60, cfg.SweepIntervalSeconds)
}

func TestValidateEnv_InvalidPort(t *testing.T) {
	defer setupTestEnv(t)()
	os.Setenv("PORT", "not-a-port")

	_, err := ValidateEnv()
	require.Error(t, err)
	require.Contains(t, err.Error(), "PORT")
}

func TestValidateEnv_PortOutOfRange(t *testing.T) {
	defer setupTestEnv(t)()
	os.Setenv("PORT", "99999")

	_, err := ValidateEnv()
	require.Error(t, err)
}

func TestValidateEnv_OverridesInviteTimeout(t *testing.T) {
	defer setupTestEnv(t)()
	os.Setenv("INVITE_TIMEOUT_SECONDS", "5")

	cfg, err := ValidateEnv()
	require.NoError(t, err)
	require.Equal(t, 5, cfg.InviteTimeoutSeconds)
}

func TestValidateEnv_NonPositiveRejected(t *testing.T) {
	defer setupTestEnv(t)()
	os.Setenv("RATE_LIMIT_MAX_MESSAGES", "0")

	_, err := ValidateEnv()
	require.Error(t, err)
}
