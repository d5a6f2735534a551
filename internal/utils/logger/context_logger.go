package logger

import (
	"context"
	"log/slog"
)

type contextKey string

const (
	UserIDKey    contextKey = "user_id"
	RequestIDKey contextKey = "request_id"
	CommandKey   contextKey = "command"
)

// WithUserID stores the authenticated user's id for log enrichment.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, UserIDKey, id)
}

// WithRequestID stores the console request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// WithCommand stores the CLI command being run.
func WithCommand(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, CommandKey, name)
}

// ContextLogger enriches log records with values stored in the context.
type ContextLogger struct {
	logger *slog.Logger
}

func NewContextLogger(logger *slog.Logger) *ContextLogger {
	return &ContextLogger{logger: logger}
}

// WithContext returns a logger carrying the context's known keys.
func (cl *ContextLogger) WithContext(ctx context.Context) *slog.Logger {
	var args []any
	for _, key := range []contextKey{UserIDKey, RequestIDKey, CommandKey} {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			args = append(args, string(key), v)
		}
	}
	if len(args) == 0 {
		return cl.logger
	}
	return cl.logger.With(args...)
}

// LogError logs a failed operation at error level.
func (cl *ContextLogger) LogError(ctx context.Context, operation string, err error) {
	cl.WithContext(ctx).ErrorContext(ctx, "operation failed", "operation", operation, "error", err)
}
