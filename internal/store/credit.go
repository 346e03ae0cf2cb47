package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/readquest/xp-api/internal/domain"
)

// CommentCreditStore defines the interface for free-comment credit
// persistence, keyed by (account, content).
type CommentCreditStore interface {
	// Grant adds one free-comment credit for the account on the content,
	// creating the credit row if it does not exist yet. Called once per
	// perfect score.
	Grant(ctx context.Context, accountID, contentID uuid.UUID) error

	// Consume atomically decrements one credit if any remain and reports
	// whether a credit was consumed. A false result with a nil error means
	// the account held no credit for the content and must pay the normal
	// comment cost.
	//
	// IMPORTANT: When the comment is charged in the same request, run
	// Consume within that transaction (WithTx) so the credit cannot be
	// double-spent by concurrent comments.
	Consume(ctx context.Context, accountID, contentID uuid.UUID) (bool, error)

	// Get retrieves the credit row for the account and content. Returns a
	// zero-credit row rather than an error when none exists.
	Get(ctx context.Context, accountID, contentID uuid.UUID) (*domain.CommentCredit, error)

	// WithTx returns a new CommentCreditStore instance that uses the provided transaction.
	// This allows for multiple operations to be executed within a single transaction.
	// The transaction should be created and managed by the caller (typically a service).
	WithTx(tx *sql.Tx) CommentCreditStore
}
