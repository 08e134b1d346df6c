// Package logger configures the process-wide slog logger and provides
// helpers for attaching component and request-scoped attributes.
package logger

import (
	"context"
	"log/slog"
	"os"
)

type requestIDKey struct{}

// Setup installs the default slog logger with the given level and output
// format ("json" or "text").
func Setup(level string, format string) {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// WithRequestID stores a request ID in the context for FromContext to pick up.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFromContext returns the request ID stored in ctx, if any.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// FromContext returns the default logger, annotated with the request ID from
// ctx when present.
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()
	if id := RequestIDFromContext(ctx); id != "" {
		logger = logger.With("request_id", id)
	}
	return logger
}

// WithComponent returns the default logger tagged with a component name.
func WithComponent(component string) *slog.Logger {
	return slog.Default().With("component", component)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
