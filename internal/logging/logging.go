// Package logging provides structured logging with request-scoped context.
package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	// TraceIDKey carries the request trace id through contexts.
	TraceIDKey contextKey = "trace_id"
	// UserIDKey carries the authenticated user id through contexts.
	UserIDKey contextKey = "user_id"
	// RoleKey carries the authenticated role through contexts.
	RoleKey contextKey = "role"
)

// Logger wraps a zerolog logger with context helpers.
type Logger struct {
	zl zerolog.Logger
}

// New creates a logger for the named service. Level is one of
// debug|info|warn|error; format is json or console.
func New(service, level, format string) *Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	var out io.Writer = os.Stdout
	if format == "console" {
		out = zerolog.ConsoleWriter{Out: os.Stdout}
	}

	zl := zerolog.New(out).Level(lvl).With().
		Timestamp().
		Str("service", service).
		Logger()

	return &Logger{zl: zl}
}

// Default returns a json info-level logger.
func Default() *Logger {
	return New("backend", "info", "json")
}

// WithContext returns a logger annotated with trace/user/role fields
// found in ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	zctx := l.zl.With()
	if traceID := GetTraceID(ctx); traceID != "" {
		zctx = zctx.Str("trace_id", traceID)
	}
	if userID := GetUserID(ctx); userID != "" {
		zctx = zctx.Str("user_id", userID)
	}
	if role := GetRole(ctx); role != "" {
		zctx = zctx.Str("role", role)
	}
	return &Logger{zl: zctx.Logger()}
}

// WithError returns a logger annotated with err.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{zl: l.zl.With().Err(err).Logger()}
}

// WithField returns a logger annotated with a single field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{zl: l.zl.With().Interface(key, value).Logger()}
}

// WithFields returns a logger annotated with the given fields.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	zctx := l.zl.With()
	for k, v := range fields {
		zctx = zctx.Interface(k, v)
	}
	return &Logger{zl: zctx.Logger()}
}

func (l *Logger) Debug(msg string) { l.zl.Debug().Msg(msg) }
func (l *Logger) Info(msg string)  { l.zl.Info().Msg(msg) }
func (l *Logger) Warn(msg string)  { l.zl.Warn().Msg(msg) }
func (l *Logger) Error(msg string) { l.zl.Error().Msg(msg) }

// LogRequest records one completed HTTP request.
func (l *Logger) LogRequest(ctx context.Context, method, path string, status int, duration time.Duration) {
	l.WithContext(ctx).zl.Info().
		Str("method", method).
		Str("path", path).
		Int("status", status).
		Dur("duration", duration).
		Msg("http request")
}

// LogSecurityEvent records a security-relevant event such as a rejected
// credential or an exceeded rate limit.
func (l *Logger) LogSecurityEvent(ctx context.Context, event string, fields map[string]interface{}) {
	evt := l.WithContext(ctx).zl.Warn().Str("event", event)
	for k, v := range fields {
		evt = evt.Interface(k, v)
	}
	evt.Msg("security event")
}

// NewTraceID generates a fresh trace id.
func NewTraceID() string {
	return uuid.New().String()
}

// WithTraceID stores a trace id in ctx.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID returns the trace id stored in ctx, or "".
func GetTraceID(ctx context.Context) string {
	if v, ok := ctx.Value(TraceIDKey).(string); ok {
		return v
	}
	return ""
}

// WithUserID stores the authenticated user id in ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// GetUserID returns the authenticated user id stored in ctx, or "".
func GetUserID(ctx context.Context) string {
	if v, ok := ctx.Value(UserIDKey).(string); ok {
		return v
	}
	return ""
}

// GetRole returns the role stored in ctx, or "".
func GetRole(ctx context.Context) string {
	if v, ok := ctx.Value(RoleKey).(string); ok {
		return v
	}
	return ""
}
