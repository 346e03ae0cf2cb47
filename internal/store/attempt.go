package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/readquest/xp-api/internal/domain"
)

// QuizAttemptStore defines the interface for quiz attempt persistence.
// Attempts are retained indefinitely: they drive diminishing-return
// economics, comment unlocking, and speed progression.
type QuizAttemptStore interface {
	// Create saves a new quiz attempt to the store.
	// Returns validation errors from the domain QuizAttempt if data is invalid.
	Create(ctx context.Context, attempt *domain.QuizAttempt) error

	// GetByID retrieves an attempt by its unique ID.
	// Returns ErrAttemptNotFound if the attempt does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.QuizAttempt, error)

	// CountByAccountContent returns how many attempts the account has made
	// on the content. The next attempt number is this count plus one.
	CountByAccountContent(ctx context.Context, accountID, contentID uuid.UUID) (int, error)

	// HasPassingAttempt reports whether the account has at least one
	// attempt on the content with a score at or above passingScore. This
	// is the comment-unlock check; it is independent of whether the
	// attempt's XP award had diminished to zero. The threshold is supplied
	// by the caller so the reward parameters stay its single source.
	HasPassingAttempt(ctx context.Context, accountID, contentID uuid.UUID, passingScore float64) (bool, error)

	// ListByAccountContent returns the account's attempts on the content
	// ordered by attempt number. Returns an empty slice if there are none.
	ListByAccountContent(ctx context.Context, accountID, contentID uuid.UUID) ([]*domain.QuizAttempt, error)

	// WithTx returns a new QuizAttemptStore instance that uses the provided transaction.
	// This allows for multiple operations to be executed within a single transaction.
	// The transaction should be created and managed by the caller (typically a service).
	WithTx(tx *sql.Tx) QuizAttemptStore
}
