package logger

import (
	"context"
	"log/slog"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog/v2"
)

type ContextKey string

const (
	LoggerKey ContextKey = "logger"
)

// New builds the service wide logger and installs it as the slog default.
func New(service string, level slog.Level, json bool) *httplog.Logger {
	l := httplog.NewLogger(service, httplog.Options{
		LogLevel:         level,
		JSON:             json,
		Concise:          true,
		RequestHeaders:   false,
		MessageFieldName: "message",
		Tags: map[string]string{
			"service": service,
		},
	})
	slog.SetDefault(l.Logger)
	return l
}

// FromContext returns the request scoped logger when httplog or WithLogger
// attached one, otherwise the default logger.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(LoggerKey).(*slog.Logger); ok {
		return l
	}
	if ctx.Value(middleware.LogEntryCtxKey) != nil {
		return httplog.LogEntry(ctx)
	}
	return slog.Default()
}

func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, l)
}

// WithUserID adds the caller's id to the logger in the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return WithLogger(ctx, FromContext(ctx).With("user_id", userID))
}
