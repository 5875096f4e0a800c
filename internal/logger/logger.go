// Package logger provides structured logging via zap, with trace-ID
// propagation through context.Context. Kept at the same API shape as the
// teacher's internal/logger (Init, WithTraceID/TraceID, GenerateTraceID),
// rebased onto go.uber.org/zap instead of log/slog.
package logger

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ctxKey string

const traceIDKey ctxKey = "trace_id"

// Init builds a JSON-encoded zap.Logger tagged with service, at the given
// level.
func Init(service string, level zapcore.Level) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	log, err := cfg.Build()
	if err != nil {
		// Build only fails on a malformed config; ours is static, so fall
		// back to a no-op logger rather than panicking a caller that
		// merely wants logging, not a hard dependency.
		log = zap.NewNop()
	}
	return log.With(zap.String("service", service))
}

// WithTraceID stores a trace ID in the context for downstream propagation.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// TraceID extracts the trace ID from context. Returns "" if not set.
func TraceID(ctx context.Context) string {
	if v, ok := ctx.Value(traceIDKey).(string); ok {
		return v
	}
	return ""
}

// GenerateTraceID creates a trace ID from a key and timestamp.
// Format: "{key}-{unixNano}" — lightweight, no UUID dependency.
func GenerateTraceID(key string, ts time.Time) string {
	return fmt.Sprintf("%s-%d", key, ts.UnixNano())
}

// WithTrace returns a zap field carrying the trace ID from ctx, or nil
// fields if none is set. Usage: log.Info("msg", logger.WithTrace(ctx)...)
func WithTrace(ctx context.Context) []zap.Field {
	tid := TraceID(ctx)
	if tid == "" {
		return nil
	}
	return []zap.Field{zap.String("trace_id", tid)}
}
