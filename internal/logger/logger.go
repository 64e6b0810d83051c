package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

// New returns a JSON slog logger. The level is taken from LOG_LEVEL
// (debug/info/warn/error), defaulting to info.
func New() *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}

// WithTrace appends the active trace and span ids to the log args.
func WithTrace(ctx context.Context, args []any) []any {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		args = append(args,
			"trace_id", spanCtx.TraceID().String(),
			"span_id", spanCtx.SpanID().String(),
		)
	}
	return args
}

// Info logs at info level with trace ids from the context.
func Info(ctx context.Context, logger *slog.Logger, msg string, args ...any) {
	logger.Info(msg, WithTrace(ctx, args)...)
}

// Warn logs at warn level with trace ids from the context.
func Warn(ctx context.Context, logger *slog.Logger, msg string, args ...any) {
	logger.Warn(msg, WithTrace(ctx, args)...)
}

// Error logs at error level with trace ids from the context.
func Error(ctx context.Context, logger *slog.Logger, msg string, args ...any) {
	logger.Error(msg, WithTrace(ctx, args)...)
}
