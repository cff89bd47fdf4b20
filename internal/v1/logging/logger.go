// Package logging provides the broker's structured logger and context-scoped field helpers.
package logging

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger *zap.Logger
	once   sync.Once
)

type contextKey string

// CorrelationIDKey carries the per-connection correlation id, assigned once by
// middleware.CorrelationID at the WebSocket upgrade and threaded through every log line
// for that connection's lifetime. Unlike a room or client id, it exists before a Session
// binds to either, which is why it is the one value carried on the context rather than
// passed as an explicit field at each call site (room_id/client_id are known session-side
// and passed directly, e.g. zap.String("room_id", ...)).
const CorrelationIDKey contextKey = "correlation_id"

// Initialize sets up the global logger based on the environment. Safe to call more than
// once; only the first call takes effect.
func Initialize(development bool) error {
	var err error
	once.Do(func() {
		var cfg zap.Config
		if development {
			cfg = zap.NewDevelopmentConfig()
			cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		} else {
			cfg = zap.NewProductionConfig()
			cfg.EncoderConfig.TimeKey = "timestamp"
			cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		}

		cfg.OutputPaths = []string{"stdout"}
		cfg.ErrorOutputPaths = []string{"stderr"}

		logger, err = cfg.Build(zap.AddCallerSkip(1))
	})
	return err
}

// GetLogger returns the global logger instance, falling back to a development logger
// if Initialize was never called (tests, early startup).
func GetLogger() *zap.Logger {
	if logger == nil {
		l, _ := zap.NewDevelopment()
		return l
	}
	return logger
}

// Info logs at InfoLevel with fields pulled from ctx appended.
func Info(ctx context.Context, msg string, fields ...zap.Field) {
	GetLogger().Info(msg, appendContextFields(ctx, fields)...)
}

// Warn logs at WarnLevel with fields pulled from ctx appended.
func Warn(ctx context.Context, msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, appendContextFields(ctx, fields)...)
}

// Error logs at ErrorLevel with fields pulled from ctx appended.
func Error(ctx context.Context, msg string, fields ...zap.Field) {
	GetLogger().Error(msg, appendContextFields(ctx, fields)...)
}

func appendContextFields(ctx context.Context, fields []zap.Field) []zap.Field {
	if ctx == nil {
		return fields
	}
	if cid, ok := ctx.Value(CorrelationIDKey).(string); ok {
		fields = append(fields, zap.String("correlation_id", cid))
	}
	fields = append(fields, zap.String("service", "broker"))
	return fields
}
