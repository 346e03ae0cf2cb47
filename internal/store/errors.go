package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	// This is a generic version of the entity-specific not found errors
	// (e.g., ErrAccountNotFound, ErrFeatureNotFound).
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity (e.g., an account with the same email).
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored. Check the wrapped error for specific validation details.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrUpdateFailed is returned when an update operation fails, for example
	// because the entity does not exist or the update violates constraints.
	ErrUpdateFailed = errors.New("update failed")

	// ErrTransactionFailed is returned when a database transaction fails
	// to commit or when an operation within a transaction fails.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrSerialization is returned when the database aborts an operation
	// because of lock contention or a serialization conflict. Callers are
	// expected to retry a bounded number of times before surfacing the
	// failure.
	ErrSerialization = errors.New("serialization conflict")

	// Entity-specific "not found" errors

	// ErrAccountNotFound indicates that the requested account does not exist in the store.
	ErrAccountNotFound = fmt.Errorf("%w: account", ErrNotFound)

	// ErrTransactionNotFound indicates that the requested ledger transaction does not exist in the store.
	ErrTransactionNotFound = fmt.Errorf("%w: transaction", ErrNotFound)

	// ErrAttemptNotFound indicates that the requested quiz attempt does not exist in the store.
	ErrAttemptNotFound = fmt.Errorf("%w: quiz attempt", ErrNotFound)

	// ErrFeatureNotFound indicates that the requested catalog feature does not exist in the store.
	ErrFeatureNotFound = fmt.Errorf("%w: feature", ErrNotFound)

	// ErrBundleNotFound indicates that the requested feature bundle does not exist in the store.
	ErrBundleNotFound = fmt.Errorf("%w: bundle", ErrNotFound)

	// ErrContentMetricsNotFound indicates that no metrics exist for the requested content.
	ErrContentMetricsNotFound = fmt.Errorf("%w: content metrics", ErrNotFound)

	// Entity-specific "duplicate" errors

	// ErrEmailExists indicates that an account with the given email already exists.
	// This is returned when attempting to register an email that's already in use.
	ErrEmailExists = fmt.Errorf("%w: email", ErrDuplicate)

	// ErrDuplicateRequest indicates that a ledger transaction with the same
	// account and request ID has already been written. The caller should
	// fetch and return the existing transaction instead of retrying.
	ErrDuplicateRequest = fmt.Errorf("%w: request", ErrDuplicate)

	// ErrFeatureOwned indicates that the account has already purchased the feature.
	ErrFeatureOwned = fmt.Errorf("%w: feature purchase", ErrDuplicate)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
// This includes the generic ErrNotFound and all entity-specific not found errors.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError checks if the error is any kind of "duplicate" error.
// This includes the generic ErrDuplicate and all entity-specific duplicate errors.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// IsSerializationError checks if the error reports lock contention or a
// serialization conflict that is safe to retry.
func IsSerializationError(err error) bool {
	return errors.Is(err, ErrSerialization)
}

// StoreError is a custom error type for store-specific errors with additional context.
type StoreError struct {
	Entity    string // The entity type (e.g., "account", "transaction")
	Operation string // The operation that failed (e.g., "create", "update")
	Message   string // Error message
	Err       error  // Original error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf(
			"%s operation on %s failed: %s: %v",
			e.Operation,
			e.Entity,
			e.Message,
			e.Err,
		)
	}
	return fmt.Sprintf("%s operation on %s failed: %s", e.Operation, e.Entity, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError with the given entity, operation, message, and wrapped error.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{
		Entity:    entity,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
