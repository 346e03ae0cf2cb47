package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// AccountFlag-specific validation errors
var (
	ErrEmptyFlagID     = errors.New("flag ID cannot be empty")
	ErrFlagNoAccount   = errors.New("flag account ID cannot be empty")
	ErrInvalidFlagKind = errors.New("invalid flag kind")
	ErrEmptyFlagDetail = errors.New("flag detail cannot be empty")
)

// FlagKind identifies the invariant check that raised an account flag.
type FlagKind string

// Valid flag kinds.
const (
	FlagNegativeBalance     FlagKind = "negative_balance"
	FlagBalanceMismatch     FlagKind = "balance_mismatch"
	FlagAccumulatedMismatch FlagKind = "accumulated_mismatch"
	FlagXPVelocity          FlagKind = "xp_velocity"
)

// IsValid checks if the flag kind is one of the defined constants.
func (k FlagKind) IsValid() bool {
	switch k {
	case FlagNegativeBalance, FlagBalanceMismatch,
		FlagAccumulatedMismatch, FlagXPVelocity:
		return true
	}
	return false
}

// AccountFlag records a detective finding from the monitoring layer about
// one account: a balance that fails reconciliation, a negative spendable
// balance, or an earning velocity above the review threshold. Flags are
// advisory and append-only; they are resolved by operators, never by the
// system itself.
type AccountFlag struct {
	ID        uuid.UUID `json:"id"`
	AccountID uuid.UUID `json:"account_id"`
	Kind      FlagKind  `json:"kind"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}

// NewAccountFlag creates a new AccountFlag for the given account with the
// detecting check's kind and human-readable detail.
// Returns an error if validation fails.
func NewAccountFlag(accountID uuid.UUID, kind FlagKind, detail string) (*AccountFlag, error) {
	flag := &AccountFlag{
		ID:        uuid.New(),
		AccountID: accountID,
		Kind:      kind,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	}

	if err := flag.Validate(); err != nil {
		return nil, err
	}

	return flag, nil
}

// Validate checks if the AccountFlag has valid data.
// Returns an error if any field fails validation.
func (f *AccountFlag) Validate() error {
	if f.ID == uuid.Nil {
		return ErrEmptyFlagID
	}

	if f.AccountID == uuid.Nil {
		return ErrFlagNoAccount
	}

	if !f.Kind.IsValid() {
		return ErrInvalidFlagKind
	}

	if f.Detail == "" {
		return ErrEmptyFlagDetail
	}

	return nil
}
