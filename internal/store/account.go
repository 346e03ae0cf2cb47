package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/readquest/xp-api/internal/domain"
)

// AccountStore defines the interface for account data persistence.
type AccountStore interface {
	// Create saves a new account to the store.
	// Returns ErrEmailExists if the email is already taken.
	// Returns validation errors from the domain Account if data is invalid.
	Create(ctx context.Context, account *domain.Account) error

	// GetByID retrieves an account by its unique ID.
	// Returns ErrAccountNotFound if the account does not exist.
	// The returned account contains all fields except the plaintext password.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)

	// GetByEmail retrieves an account by its email address.
	// Returns ErrAccountNotFound if the account does not exist.
	// The returned account contains all fields except the plaintext password.
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)

	// GetForUpdate retrieves an account by ID while taking a row-level lock
	// that serializes concurrent balance mutations on the same account.
	// It MUST be called on a store bound to a transaction via WithTx; the
	// lock is held until that transaction commits or rolls back. Mutations
	// on different accounts proceed concurrently.
	// Returns ErrAccountNotFound if the account does not exist.
	// Returns ErrSerialization if the database reports lock contention.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Account, error)

	// UpdateBalances writes the account's XP balances after a ledger
	// mutation. The caller must hold the account's row lock (GetForUpdate)
	// in the same transaction so the new values cannot be based on a stale
	// read. Returns ErrAccountNotFound if the account does not exist.
	UpdateBalances(ctx context.Context, id uuid.UUID, accumulatedXP, spendableXP int64) error

	// UpdateReadingSpeed writes the account's current and maximum reading
	// speeds. Used for both the free manual adjustment of current wpm and
	// the automatic max-wpm ratchet.
	// Returns ErrAccountNotFound if the account does not exist.
	UpdateReadingSpeed(ctx context.Context, id uuid.UUID, currentWPM, maxWPM int) error

	// SetSpendingFrozen flips the account's spending freeze. Only the
	// monitoring layer sets this; the ledger refuses spends on frozen
	// accounts until an operator clears the flag.
	// Returns ErrAccountNotFound if the account does not exist.
	SetSpendingFrozen(ctx context.Context, id uuid.UUID, frozen bool) error

	// List returns a page of accounts ordered by creation time, for the
	// monitoring layer's reconciliation sweep. Returns an empty slice when
	// the page is past the end.
	List(ctx context.Context, limit, offset int) ([]*domain.Account, error)

	// WithTx returns a new AccountStore instance that uses the provided transaction.
	// This allows for multiple operations to be executed within a single transaction.
	// The transaction should be created and managed by the caller (typically a service).
	WithTx(tx *sql.Tx) AccountStore
}
