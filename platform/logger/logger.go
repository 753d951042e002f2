// Package logger builds the slog-based structured logger shared by every
// layer. Request-scoped identifiers travel through context and are folded
// into log attributes by WithContext.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

type contextKey string

// Context keys carrying request-scoped identifiers.
const (
	RequestIDKey contextKey = "request_id"
	ChatIDKey    contextKey = "chat_id"
)

// Logger wraps slog.Logger with domain-aware helpers.
type Logger struct {
	*slog.Logger
}

// New picks the handler for the environment: readable text at debug level in
// development, JSON at info level everywhere else.
func New(env string) *Logger {
	dev := strings.EqualFold(env, "development")

	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if dev {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	if dev {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return &Logger{Logger: slog.New(handler)}
}

// WithContext folds the request id and chat id from the context, when
// present, into the logger's attributes.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}
	attrs := make([]any, 0, 4)
	for _, key := range []contextKey{RequestIDKey, ChatIDKey} {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			attrs = append(attrs, slog.String(string(key), v))
		}
	}
	if len(attrs) == 0 {
		return l
	}
	return &Logger{Logger: l.With(attrs...)}
}

// WithChatID tags every subsequent record with the conversation id.
func (l *Logger) WithChatID(chatID string) *Logger {
	return &Logger{Logger: l.With(slog.String(string(ChatIDKey), chatID))}
}

// HTTPRequest records one served request.
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// OracleCall records one language-model round trip. Failures log at warn so
// flaky upstream models are visible without drowning info output.
func (l *Logger) OracleCall(operation string, latencyMs float64, err error) {
	if err != nil {
		l.Warn("oracle_call",
			slog.String("operation", operation),
			slog.Float64("latency_ms", latencyMs),
			slog.String("error", err.Error()),
		)
		return
	}
	l.Debug("oracle_call",
		slog.String("operation", operation),
		slog.Float64("latency_ms", latencyMs),
	)
}

// DatabaseError records a failed catalog query.
func (l *Logger) DatabaseError(operation string, err error) {
	l.Error("database_error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// RateLimitExceeded records a throttled client.
func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("path", path),
	)
}
