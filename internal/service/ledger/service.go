package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/readquest/xp-api/internal/domain"
)

// EarnRequest describes an XP credit to apply to an account.
type EarnRequest struct {
	// AccountID is the account receiving the XP.
	AccountID uuid.UUID
	// Amount is the XP to credit. Must be positive.
	Amount int64
	// Source is the earning category (e.g. quiz_reward, speed_progression).
	Source string
	// Description is the human-readable audit trail line.
	Description string
	// Refs carries optional links back to the triggering action. When
	// Refs.RequestID is set the earn is idempotent: replaying the same
	// account and request ID returns the original transaction instead of
	// crediting twice.
	Refs domain.TransactionRefs
}

// SpendRequest describes an XP debit to apply to an account.
type SpendRequest struct {
	// AccountID is the account being charged.
	AccountID uuid.UUID
	// Amount is the XP to charge. Must be positive; the ledger stores the
	// row's amount negative.
	Amount int64
	// Purpose is the spending category (e.g. comment, feature_purchase).
	Purpose string
	// Description is the human-readable audit trail line.
	Description string
	// Refs carries optional links and the idempotency request ID, as on
	// EarnRequest.
	Refs domain.TransactionRefs
}

// Tx is a handle on one serialized ledger transaction. Mutations applied
// through it take the account's row lock, so all balance changes for one
// account are linearized while different accounts proceed concurrently.
// Events and metrics for the applied mutations are recorded only after the
// transaction commits.
//
// A Tx is only valid inside the function passed to RunSerialized and must
// not be retained after it returns.
type Tx interface {
	// Earn applies an XP credit inside this transaction. Both the
	// accumulated and the spendable balance increase by the amount.
	Earn(ctx context.Context, req EarnRequest) (*domain.Transaction, error)

	// Spend applies an XP debit inside this transaction. Only the
	// spendable balance decreases; the lifetime accumulated balance never
	// goes down.
	//
	// Returns domain.ErrSpendingFrozen when the account's spending is
	// frozen, and a *domain.InsufficientXPError when the spendable
	// balance does not cover the amount. In both cases nothing is
	// mutated.
	Spend(ctx context.Context, req SpendRequest) (*domain.Transaction, error)

	// LockAccount takes the account's row lock and returns its current
	// state. Callers that derive values from account state (attempt
	// counts, the reading speed ratchet) lock first so concurrent
	// requests for the same account serialize before reading.
	LockAccount(ctx context.Context, accountID uuid.UUID) (*domain.Account, error)

	// SQL exposes the underlying database transaction so callers can bind
	// their own stores into the same atomic unit via WithTx.
	SQL() *sql.Tx
}

// LedgerService is the transaction manager for the XP economy: the only
// component that mutates account balances. Every mutation appends an
// immutable row to the audit trail in the same database transaction that
// updates the stored balances, so the two can never diverge.
type LedgerService interface {
	// Earn credits XP to an account as a single serialized mutation.
	//
	// Returns the transaction as written. When req.Refs.RequestID names a
	// request that was already applied, the original transaction is
	// returned and no second credit happens.
	//
	// Error handling:
	//   - store.ErrAccountNotFound when the account does not exist
	//   - domain.ErrTransientConflict when lock contention persisted past
	//     the retry budget; the mutation was not applied
	//   - validation errors from the domain Transaction for bad input
	Earn(ctx context.Context, req EarnRequest) (*domain.Transaction, error)

	// Spend charges XP from an account as a single serialized mutation.
	//
	// Returns the transaction as written, with its amount stored
	// negative. Replays by request ID behave as on Earn.
	//
	// Error handling:
	//   - *domain.InsufficientXPError (matches domain.ErrInsufficientXP)
	//     when the spendable balance is too low; nothing is charged
	//   - domain.ErrSpendingFrozen when the account is frozen
	//   - store.ErrAccountNotFound when the account does not exist
	//   - domain.ErrTransientConflict when the retry budget ran out
	Spend(ctx context.Context, req SpendRequest) (*domain.Transaction, error)

	// GetBalance reports the account's current XP balances.
	GetBalance(ctx context.Context, accountID uuid.UUID) (domain.Balance, error)

	// GetByRequestID retrieves the transaction previously written for an
	// account and idempotency request ID. Returns
	// store.ErrTransactionNotFound if no such transaction exists.
	GetByRequestID(ctx context.Context, accountID uuid.UUID, requestID string) (*domain.Transaction, error)

	// ListTransactions returns a page of the account's audit trail,
	// newest first.
	ListTransactions(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*domain.Transaction, error)

	// RunSerialized executes fn inside one database transaction with the
	// ledger's bounded retry on serialization conflicts. Services that
	// combine a balance mutation with their own writes (recording a quiz
	// attempt, granting a feature) use this to make the whole unit
	// atomic: on any error every write in fn is rolled back.
	//
	// Events for mutations applied through the Tx are emitted only after
	// the commit succeeds. When the retry budget runs out the error is
	// domain.ErrTransientConflict.
	RunSerialized(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// ServiceError wraps errors from the ledger service with the operation
// that failed, so consumers can differentiate error sites with errors.As
// instead of string matching.
type ServiceError struct {
	// Operation is the operation that failed (e.g. "earn", "spend")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ledger %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("ledger %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError for the given operation.
func NewServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
