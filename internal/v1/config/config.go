// Package config validates and exposes process environment configuration for the broker.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Config holds validated environment configuration.
type Config struct {
	Port           string
	AllowedOrigins string
	GoEnv          string
	LogLevel       string

	InviteTimeoutSeconds   int
	RateLimitWindowSeconds int
	RateLimitMaxMessages   int
	SweepIntervalSeconds   int
	WsConnectRate          string
}

// ValidateEnv validates environment variables and returns a Config, or a joined error
// describing every problem found.
func ValidateEnv() (*Config, error) {
	cfg := &Config{}
	var errs []string

	cfg.Port = getEnvOrDefault("PORT", "8080")
	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("PORT must be a valid port number between 1 and 65535 (got %q)", cfg.Port))
	}

	cfg.AllowedOrigins = getEnvOrDefault("ALLOWED_ORIGINS", "http://localhost:3000")
	cfg.GoEnv = getEnvOrDefault("GO_ENV", "production")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	cfg.InviteTimeoutSeconds = mustPositiveInt(&errs, "INVITE_TIMEOUT_SECONDS", 20)
	cfg.RateLimitWindowSeconds = mustPositiveInt(&errs, "RATE_LIMIT_WINDOW_SECONDS", 10)
	cfg.RateLimitMaxMessages = mustPositiveInt(&errs, "RATE_LIMIT_MAX_MESSAGES", 60)
	cfg.SweepIntervalSeconds = mustPositiveInt(&errs, "SWEEP_INTERVAL_SECONDS", 60)
	cfg.WsConnectRate = getEnvOrDefault("WS_CONNECT_RATE", "20-M")

	if len(errs) > 0 {
		return nil, fmt.Errorf("environment validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	logValidatedConfig(cfg)
	return cfg, nil
}

func mustPositiveInt(errs *[]string, key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		*errs = append(*errs, fmt.Sprintf("%s must be a positive integer (got %q)", key, raw))
		return def
	}
	return v
}

func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func logValidatedConfig(cfg *Config) {
	slog.Info("environment configuration validated",
		"port", cfg.Port,
		"allowed_origins", cfg.AllowedOrigins,
		"go_env", cfg.GoEnv,
		"log_level", cfg.LogLevel,
		"invite_timeout_seconds", cfg.InviteTimeoutSeconds,
		"rate_limit_window_seconds", cfg.RateLimitWindowSeconds,
		"rate_limit_max_messages", cfg.RateLimitMaxMessages,
		"sweep_interval_seconds", cfg.SweepIntervalSeconds,
		"ws_connect_rate", cfg.WsConnectRate,
	)
}
