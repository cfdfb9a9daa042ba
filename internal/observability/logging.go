// Package observability carries request correlation fields through a context so
// that every log line written while handling one failure report can be joined.
package observability

import (
	"context"
	"log/slog"
)

// Attribute keys added by Attrs.
const (
	KeyRequestID = "request.id"
	KeySource    = "source"
	KeyAttempt   = "attempt"
)

// LogContext holds structured logging context information.
type LogContext struct {
	RequestID string
	Source    string
	Attempt   int
}

type logContextKeyType string

const logContextKey logContextKeyType = "log-context"

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	lc := extractLogContext(ctx)
	lc.RequestID = requestID
	return context.WithValue(ctx, logContextKey, lc)
}

// WithSource records which client reported the failure.
func WithSource(ctx context.Context, source string) context.Context {
	lc := extractLogContext(ctx)
	lc.Source = source
	return context.WithValue(ctx, logContextKey, lc)
}

// WithAttempt records the caller's 1-based attempt number.
func WithAttempt(ctx context.Context, attempt int) context.Context {
	lc := extractLogContext(ctx)
	lc.Attempt = attempt
	return context.WithValue(ctx, logContextKey, lc)
}

func extractLogContext(ctx context.Context) LogContext {
	if ctx == nil {
		return LogContext{}
	}
	if lc, ok := ctx.Value(logContextKey).(LogContext); ok {
		return lc
	}
	return LogContext{}
}

// Attrs returns the slog attributes for every field set on ctx.
func Attrs(ctx context.Context) []slog.Attr {
	lc := extractLogContext(ctx)
	var attrs []slog.Attr

	if lc.RequestID != "" {
		attrs = append(attrs, slog.String(KeyRequestID, lc.RequestID))
	}
	if lc.Source != "" {
		attrs = append(attrs, slog.String(KeySource, lc.Source))
	}
	if lc.Attempt > 0 {
		attrs = append(attrs, slog.Int(KeyAttempt, lc.Attempt))
	}
	return attrs
}

// GetContext returns the structured log context from the provided context.
func GetContext(ctx context.Context) LogContext {
	return extractLogContext(ctx)
}

// RequestID returns the request ID stored on ctx, if any.
func RequestID(ctx context.Context) string {
	return extractLogContext(ctx).RequestID
}
