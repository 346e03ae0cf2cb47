package logger

import (
	"context"
	"log/slog"
)

// contextKey is a private type for the context keys defined in this package.
// Using a private type prevents collisions with keys defined elsewhere.
type contextKey int

const (
	// loggerKey is the context key under which a request-scoped logger is stored.
	loggerKey contextKey = iota

	// requestIDKey is the context key under which the request ID is stored.
	requestIDKey
)

// WithLogger returns a copy of ctx that carries the provided logger.
// Downstream code retrieves it with FromContext or FromContextOrDefault so
// every log line emitted while handling a request shares the same attributes.
//
// It panics if log is nil, since storing a nil logger would silently break
// every downstream FromContext call.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	if log == nil {
		panic("logger: WithLogger called with nil logger")
	}
	return context.WithValue(ctx, loggerKey, log)
}

// FromContext returns the logger stored in ctx, or the process-wide default
// logger when ctx carries none. It never returns nil, so callers can use the
// result without checking.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return slog.Default()
	}
	if log, ok := ctx.Value(loggerKey).(*slog.Logger); ok && log != nil {
		return log
	}
	return slog.Default()
}

// FromContextOrDefault returns the logger stored in ctx if one is present,
// or the provided fallback otherwise. Components that hold their own
// configured logger use this to prefer the request-scoped logger while still
// working outside a request (startup, background jobs).
//
// A nil fallback degrades to the process-wide default logger.
func FromContextOrDefault(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if ctx != nil {
		if log, ok := ctx.Value(loggerKey).(*slog.Logger); ok && log != nil {
			return log
		}
	}
	if fallback != nil {
		return fallback
	}
	return slog.Default()
}

// WithRequestID returns a copy of ctx that carries the request ID and a
// logger enriched with a request_id attribute. Every log line written through
// the context logger after this call can be correlated back to the request.
//
// An empty requestID leaves ctx unchanged.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	ctx = context.WithValue(ctx, requestIDKey, requestID)
	enriched := FromContext(ctx).With(slog.String("request_id", requestID))
	return context.WithValue(ctx, loggerKey, enriched)
}

// RequestIDFromContext returns the request ID stored in ctx, or the empty
// string when ctx carries none.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}
