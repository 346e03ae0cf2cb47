package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/readquest/xp-api/internal/domain"
	"github.com/readquest/xp-api/internal/platform/logger"
	"github.com/readquest/xp-api/internal/store"
)

// PostgresContentMetricsStore implements the store.ContentMetricsStore
// interface over the content subsystem's metrics table. The economy engine
// only ever reads these rows.
type PostgresContentMetricsStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresContentMetricsStore creates a new PostgreSQL implementation of
// the ContentMetricsStore interface. It accepts a database connection that
// should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresContentMetricsStore(db store.DBTX, logger *slog.Logger) *PostgresContentMetricsStore {
	// Validate inputs
	if db == nil {
		panic("db cannot be nil")
	}

	// Use provided logger or create default
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresContentMetricsStore{
		db:     db,
		logger: logger.With(slog.String("component", "content_store")),
	}
}

// Ensure PostgresContentMetricsStore implements store.ContentMetricsStore interface
var _ store.ContentMetricsStore = (*PostgresContentMetricsStore)(nil)

// GetByContentID implements store.ContentMetricsStore.GetByContentID
// It retrieves the word count and reading level for a piece of content.
// Returns store.ErrContentMetricsNotFound if the content is unknown.
func (s *PostgresContentMetricsStore) GetByContentID(
	ctx context.Context,
	contentID uuid.UUID,
) (*domain.ContentMetrics, error) {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT content_id, word_count, reading_level
		FROM content_metrics
		WHERE content_id = $1
	`

	var metrics domain.ContentMetrics
	err := s.db.QueryRowContext(ctx, query, contentID).Scan(
		&metrics.ContentID,
		&metrics.WordCount,
		&metrics.ReadingLevel,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("content metrics not found",
				slog.String("content_id", contentID.String()))
			return nil, store.ErrContentMetricsNotFound
		}
		log.Error("failed to get content metrics",
			slog.String("error", err.Error()),
			slog.String("content_id", contentID.String()))
		return nil, fmt.Errorf("failed to get content metrics: %w", err)
	}

	return &metrics, nil
}
