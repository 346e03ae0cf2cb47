package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/readquest/xp-api/internal/domain"
)

// ContentMetricsStore defines the read-only interface over the content
// subsystem's metrics table. The economy engine only ever reads these rows;
// the content pipeline owns writing them.
type ContentMetricsStore interface {
	// GetByContentID retrieves the length metric and reading level for a
	// piece of content.
	// Returns ErrContentMetricsNotFound if the content is unknown.
	GetByContentID(ctx context.Context, contentID uuid.UUID) (*domain.ContentMetrics, error)
}
