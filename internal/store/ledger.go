package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/readquest/xp-api/internal/domain"
)

// LedgerSums is the result of re-deriving an account's balances from its
// transaction rows: the sum of all signed amounts (which must equal the
// stored spendable balance) and the sum of EARN amounts (which must equal
// the stored accumulated balance).
type LedgerSums struct {
	TotalAmount int64
	EarnedTotal int64
}

// TransactionStore defines the interface for the append-only transaction
// audit trail. Rows are inserted and read, never updated or deleted: the
// trail is the system's source of truth for every balance an account has
// ever had.
type TransactionStore interface {
	// Create appends a transaction to the audit trail.
	// IMPORTANT: This method MUST be run within the same transaction that
	// updates the account's balances (use WithTx with store.RunInTransaction)
	// so the trail and the stored balances can never diverge.
	//
	// Returns ErrDuplicateRequest if a transaction with the same account
	// and request ID already exists; the caller should fetch the existing
	// row with GetByRequestID and treat the operation as already applied.
	// Returns validation errors from the domain Transaction if data is invalid.
	Create(ctx context.Context, transaction *domain.Transaction) error

	// GetByID retrieves a transaction by its unique ID.
	// Returns ErrTransactionNotFound if the transaction does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)

	// GetByRequestID retrieves the transaction written for a given account
	// and idempotency request ID.
	// Returns ErrTransactionNotFound if no such transaction exists.
	GetByRequestID(ctx context.Context, accountID uuid.UUID, requestID string) (*domain.Transaction, error)

	// ListByAccount returns a page of the account's transactions ordered
	// newest first. Returns an empty slice when the page is past the end.
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*domain.Transaction, error)

	// SumByAccount re-derives the account's balances from the audit trail.
	// The monitoring layer compares the sums against the stored balances;
	// a mismatch is an invariant violation.
	SumByAccount(ctx context.Context, accountID uuid.UUID) (LedgerSums, error)

	// SumEarnedSince totals the account's EARN amounts recorded at or after
	// the given time, for the XP-velocity check.
	SumEarnedSince(ctx context.Context, accountID uuid.UUID, since time.Time) (int64, error)

	// WithTx returns a new TransactionStore instance that uses the provided transaction.
	// This allows for multiple operations to be executed within a single transaction.
	// The transaction should be created and managed by the caller (typically a service).
	WithTx(tx *sql.Tx) TransactionStore
}
