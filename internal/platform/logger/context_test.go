package logger_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/readquest/xp-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
)

func TestFromContext(t *testing.T) {
	t.Run("context_with_logger_returns_stored_logger", func(t *testing.T) {
		customLogger := slog.New(slog.NewTextHandler(io.Discard, nil))
		ctx := logger.WithLogger(context.Background(), customLogger)

		assert.Equal(t, customLogger, logger.FromContext(ctx))
	})

	t.Run("context_without_logger_returns_process_default", func(t *testing.T) {
		assert.Equal(t, slog.Default(), logger.FromContext(context.Background()))
	})

	t.Run("nil_context_returns_process_default", func(t *testing.T) {
		//nolint:staticcheck // Passing nil deliberately to exercise the guard
		assert.Equal(t, slog.Default(), logger.FromContext(nil))
	})
}

func TestFromContextOrDefault(t *testing.T) {
	defaultLogger := slog.Default()
	customLogger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name     string
		ctx      context.Context
		expected *slog.Logger
	}{
		{
			name:     "nil_context_returns_default",
			ctx:      nil,
			expected: defaultLogger,
		},
		{
			name:     "context_without_logger_returns_default",
			ctx:      context.Background(),
			expected: defaultLogger,
		},
		{
			name:     "context_with_logger_returns_context_logger",
			ctx:      logger.WithLogger(context.Background(), customLogger),
			expected: customLogger,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := logger.FromContextOrDefault(tt.ctx, defaultLogger)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestFromContextOrDefaultNilFallback(t *testing.T) {
	// A nil fallback must degrade to the process default rather than nil
	result := logger.FromContextOrDefault(context.Background(), nil)
	assert.Equal(t, slog.Default(), result)
}

func TestWithLogger(t *testing.T) {
	t.Run("valid_logger", func(t *testing.T) {
		customLogger := slog.New(slog.NewTextHandler(io.Discard, nil))
		ctx := logger.WithLogger(context.Background(), customLogger)

		// Verify the logger was stored in the context
		retrievedLogger := logger.FromContext(ctx)
		assert.Equal(t, customLogger, retrievedLogger)
	})

	t.Run("nil_logger_panics", func(t *testing.T) {
		assert.Panics(t, func() {
			logger.WithLogger(context.Background(), nil)
		})
	})
}

func TestWithRequestID(t *testing.T) {
	t.Run("stores_id_and_enriches_logger", func(t *testing.T) {
		var buf bytes.Buffer
		baseLogger := slog.New(slog.NewJSONHandler(&buf, nil))
		ctx := logger.WithLogger(context.Background(), baseLogger)

		ctx = logger.WithRequestID(ctx, "req-abc123")

		assert.Equal(t, "req-abc123", logger.RequestIDFromContext(ctx))

		// Every line logged through the context logger carries the request ID
		logger.FromContext(ctx).Info("balance updated")
		if !strings.Contains(buf.String(), `"request_id":"req-abc123"`) {
			t.Errorf("Expected log output to include the request ID, got: %s", buf.String())
		}
	})

	t.Run("empty_id_leaves_context_unchanged", func(t *testing.T) {
		ctx := context.Background()
		assert.Equal(t, ctx, logger.WithRequestID(ctx, ""))
		assert.Equal(t, "", logger.RequestIDFromContext(ctx))
	})

	t.Run("missing_id_returns_empty_string", func(t *testing.T) {
		assert.Equal(t, "", logger.RequestIDFromContext(context.Background()))
	})
}
