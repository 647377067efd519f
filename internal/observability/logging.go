package observability

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/sitepipe/internal/logfields"
)

// LogContext holds structured logging context for one engine execution.
type LogContext struct {
	ExecutionID string
	Pipeline    string
	Module      string
}

type logContextKeyType string

const logContextKey logContextKeyType = "log-context"

// WithExecutionID adds an engine execution ID to the context.
func WithExecutionID(ctx context.Context, id string) context.Context {
	lc := extractLogContext(ctx)
	lc.ExecutionID = id
	return context.WithValue(ctx, logContextKey, lc)
}

// WithPipeline adds a pipeline name to the context.
func WithPipeline(ctx context.Context, name string) context.Context {
	lc := extractLogContext(ctx)
	lc.Pipeline = name
	return context.WithValue(ctx, logContextKey, lc)
}

// WithModule adds a module name to the context.
func WithModule(ctx context.Context, name string) context.Context {
	lc := extractLogContext(ctx)
	lc.Module = name
	return context.WithValue(ctx, logContextKey, lc)
}

func extractLogContext(ctx context.Context) LogContext {
	if lc, ok := ctx.Value(logContextKey).(LogContext); ok {
		return lc
	}
	return LogContext{}
}

// GetContext returns the structured log context carried by ctx.
func GetContext(ctx context.Context) LogContext {
	return extractLogContext(ctx)
}

// Attrs returns the slog attributes for the context's LogContext.
func Attrs(ctx context.Context) []slog.Attr {
	lc := extractLogContext(ctx)
	attrs := make([]slog.Attr, 0, 3)
	if lc.ExecutionID != "" {
		attrs = append(attrs, logfields.ExecutionID(lc.ExecutionID))
	}
	if lc.Pipeline != "" {
		attrs = append(attrs, logfields.Pipeline(lc.Pipeline))
	}
	if lc.Module != "" {
		attrs = append(attrs, logfields.Module(lc.Module))
	}
	return attrs
}

// Logger returns base enriched with the context's attributes.
func Logger(ctx context.Context, base *slog.Logger) *slog.Logger {
	if base == nil {
		base = slog.Default()
	}
	attrs := Attrs(ctx)
	if len(attrs) == 0 {
		return base
	}
	args := make([]any, len(attrs))
	for i, a := range attrs {
		args[i] = a
	}
	return base.With(args...)
}

// InfoContext logs an info message with context information.
func InfoContext(ctx context.Context, logger *slog.Logger, msg string, attrs ...slog.Attr) {
	logAttrs(ctx, logger, slog.LevelInfo, msg, attrs)
}

// WarnContext logs a warning message with context information.
func WarnContext(ctx context.Context, logger *slog.Logger, msg string, attrs ...slog.Attr) {
	logAttrs(ctx, logger, slog.LevelWarn, msg, attrs)
}

// ErrorContext logs an error message with context information.
func ErrorContext(ctx context.Context, logger *slog.Logger, msg string, attrs ...slog.Attr) {
	logAttrs(ctx, logger, slog.LevelError, msg, attrs)
}

// DebugContext logs a debug message with context information.
func DebugContext(ctx context.Context, logger *slog.Logger, msg string, attrs ...slog.Attr) {
	logAttrs(ctx, logger, slog.LevelDebug, msg, attrs)
}

func logAttrs(ctx context.Context, logger *slog.Logger, level slog.Level, msg string, attrs []slog.Attr) {
	if logger == nil {
		logger = slog.Default()
	}
	all := append(Attrs(ctx), attrs...)
	logger.LogAttrs(ctx, level, msg, all...)
}
