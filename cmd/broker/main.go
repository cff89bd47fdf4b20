package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/soundstage/broker/internal/v1/broker"
	"github.com/soundstage/broker/internal/v1/config"
	"github.com/soundstage/broker/internal/v1/health"
	"github.com/soundstage/broker/internal/v1/logging"
	"github.com/soundstage/broker/internal/v1/middleware"
	"github.com/soundstage/broker/internal/v1/ratelimit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Load .env file for local development.
	envPaths := []string{".env", "../../.env", "../.env"}
	var envLoaded bool
	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			slog.Info("loaded environment from", "path", path)
			envLoaded = true
			break
		}
	}
	if !envLoaded {
		slog.Warn("no .env file found in any expected location, relying on environment variables")
	}

	cfg, err := config.ValidateEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	development := cfg.GoEnv != "production"
	if err := logging.Initialize(development); err != nil {
		slog.Error("failed to initialize logger", "error", err)
		os.Exit(1)
	}

	connLimiter, err := ratelimit.NewConnectionLimiter(cfg.WsConnectRate)
	if err != nil {
		slog.Error("invalid ws connect rate", "error", err)
		os.Exit(1)
	}

	allowedOrigins := splitOrigins(cfg.AllowedOrigins)
	hub := broker.NewHub(broker.Config{
		AllowedOrigins:  allowedOrigins,
		InviteTimeout:   time.Duration(cfg.InviteTimeoutSeconds) * time.Second,
		RateLimitWindow: time.Duration(cfg.RateLimitWindowSeconds) * time.Second,
		RateLimitMax:    cfg.RateLimitMaxMessages,
		SweepInterval:   time.Duration(cfg.SweepIntervalSeconds) * time.Second,
	}, connLimiter)
	hub.StartSweep()

	healthHandler := health.NewHandler(hub)

	router := gin.Default()
	router.Use(middleware.CorrelationID())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = allowedOrigins
	router.Use(cors.New(corsConfig))

	router.GET("/ws/:roomId", hub.ServeWs)
	router.GET("/health", healthHandler.Liveness)
	router.GET("/health/ready", healthHandler.Readiness)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		slog.Info("broker listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down broker...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := hub.Shutdown(ctx); err != nil {
		slog.Error("hub shutdown error", "error", err)
	}
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("broker exited")
}

// splitOrigins turns a comma-separated ALLOWED_ORIGINS value into a slice, trimming
// whitespace around each entry.
func splitOrigins(raw string) []string {
	var out []string
	for _, origin := range strings.Split(raw, ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			out = append(out, origin)
		}
	}
	return out
}
