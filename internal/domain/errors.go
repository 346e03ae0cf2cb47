// Package domain defines the core business entities and errors.
package domain

import (
	"errors"
	"fmt"
)

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidFormat is returned when data is not in the expected format.
	ErrInvalidFormat = errors.New("invalid format")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrInvalidEmail is returned when an email address is malformed.
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrInvalidPassword is returned when a password doesn't meet requirements.
	ErrInvalidPassword = errors.New("invalid password")

	// ErrInvalidAmount is returned when an XP amount is zero or negative
	// where a positive amount is required.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrUnauthorized is returned when an operation is not permitted.
	ErrUnauthorized = errors.New("unauthorized operation")
)

// Economy errors surfaced by the ledger and the services built on it.
var (
	// ErrInsufficientXP is returned when a spend exceeds the account's
	// spendable balance. Use errors.As with *InsufficientXPError to read
	// the required and available amounts.
	ErrInsufficientXP = errors.New("insufficient XP")

	// ErrSpendingFrozen is returned when a spend is attempted on an
	// account whose spending has been frozen by the economy monitor.
	// Earning is unaffected; only an operator clears the freeze.
	ErrSpendingFrozen = errors.New("account spending is frozen")

	// ErrTransientConflict is returned when a balance mutation kept
	// colliding with concurrent mutations after the retry budget was
	// spent. The operation was not applied and is safe to retry.
	ErrTransientConflict = errors.New("transient conflict, retry the operation")

	// ErrAlreadyOwned is returned when an account attempts to purchase a
	// feature it already owns, or a bundle containing one. The balance is
	// untouched.
	ErrAlreadyOwned = errors.New("feature already owned")

	// ErrCommentLocked is returned when an account tries to comment on
	// content it has never passed a quiz for.
	ErrCommentLocked = errors.New("comments locked until a passing quiz attempt")

	// ErrSelfInteraction is returned when an account reacts to or reports
	// its own comment.
	ErrSelfInteraction = errors.New("cannot interact with your own comment")
)

// InsufficientXPError reports a spend that exceeded the account's
// spendable balance. It unwraps to ErrInsufficientXP so callers can use
// errors.Is for the category and errors.As for the amounts.
type InsufficientXPError struct {
	Required  int64
	Available int64
}

// NewInsufficientXPError creates an InsufficientXPError for a spend of
// required XP against an available spendable balance.
func NewInsufficientXPError(required, available int64) *InsufficientXPError {
	return &InsufficientXPError{
		Required:  required,
		Available: available,
	}
}

// Error implements the error interface for InsufficientXPError.
func (e *InsufficientXPError) Error() string {
	return fmt.Sprintf(
		"insufficient XP: required %d, available %d (short %d)",
		e.Required,
		e.Available,
		e.Shortfall(),
	)
}

// Unwrap returns ErrInsufficientXP so errors.Is matches the category.
func (e *InsufficientXPError) Unwrap() error {
	return ErrInsufficientXP
}

// Shortfall returns how much XP the account was missing.
func (e *InsufficientXPError) Shortfall() int64 {
	return e.Required - e.Available
}
