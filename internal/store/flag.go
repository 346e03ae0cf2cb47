package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/readquest/xp-api/internal/domain"
)

// AccountFlagStore defines the interface for persisting the monitoring
// layer's detective findings. Flags are append-only; resolving them is a
// manual operator action outside this system.
type AccountFlagStore interface {
	// Create saves a new account flag.
	// Returns validation errors from the domain AccountFlag if data is invalid.
	Create(ctx context.Context, flag *domain.AccountFlag) error

	// List returns a page of flags ordered newest first, for the operator
	// review surface. Returns an empty slice when the page is past the end.
	List(ctx context.Context, limit, offset int) ([]*domain.AccountFlag, error)

	// ListByAccount returns all flags raised against one account, newest
	// first. Returns an empty slice if there are none.
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*domain.AccountFlag, error)

	// WithTx returns a new AccountFlagStore instance that uses the provided transaction.
	// This allows for multiple operations to be executed within a single transaction.
	// The transaction should be created and managed by the caller (typically a service).
	WithTx(tx *sql.Tx) AccountFlagStore
}
