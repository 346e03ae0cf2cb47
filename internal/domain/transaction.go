package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Transaction-specific validation errors
var (
	ErrEmptyTransactionID     = errors.New("transaction ID cannot be empty")
	ErrTransactionNoAccount   = errors.New("transaction account ID cannot be empty")
	ErrInvalidTransactionType = errors.New("invalid transaction type")
	ErrZeroTransactionAmount  = errors.New("transaction amount cannot be zero")
	ErrEarnAmountNotPositive  = errors.New("earn transaction amount must be positive")
	ErrSpendAmountNotNegative = errors.New("spend transaction amount must be stored negative")
	ErrEmptyTransactionSource = errors.New("transaction source cannot be empty")
	ErrNegativeBalanceAfter   = errors.New("balance after transaction cannot be negative")
)

// TransactionType identifies the direction of a ledger entry.
type TransactionType string

// Valid transaction types.
const (
	TransactionTypeEarn  TransactionType = "EARN"
	TransactionTypeSpend TransactionType = "SPEND"
)

// IsValid checks if the transaction type is one of the defined constants.
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeEarn, TransactionTypeSpend:
		return true
	}
	return false
}

// Well-known source/purpose categories written by the economy services.
// The ledger accepts any non-empty category string; these are the ones the
// platform itself produces.
const (
	SourceQuizReward          = "quiz_reward"
	SourceSpeedProgression    = "speed_progression"
	SourceInteractionReceived = "interaction_received"

	PurposeComment         = "comment"
	PurposeReply           = "reply"
	PurposeInteraction     = "interaction"
	PurposeReport          = "report"
	PurposeFeaturePurchase = "feature_purchase"
	PurposeBundlePurchase  = "bundle_purchase"
)

// TransactionRefs carries the optional references a ledger entry may point
// at, linking the audit trail back to the action that caused it. RequestID,
// when set, makes the mutation idempotent: a second transaction with the
// same account and request ID is never written.
type TransactionRefs struct {
	AttemptID *uuid.UUID `json:"attempt_id,omitempty"`
	CommentID *uuid.UUID `json:"comment_id,omitempty"`
	FeatureID *string    `json:"feature_id,omitempty"`
	RequestID string     `json:"request_id,omitempty"`
}

// Transaction is one immutable entry in an account's append-only audit
// trail. Amount is signed: EARN entries store the amount as written,
// SPEND entries store it negative. BalanceAfter records the spendable
// balance immediately after the mutation, so the trail alone reconstructs
// every balance the account has ever had.
//
// A Transaction is never updated or deleted once written.
type Transaction struct {
	ID           uuid.UUID       `json:"id"`
	AccountID    uuid.UUID       `json:"account_id"`
	Type         TransactionType `json:"type"`
	Amount       int64           `json:"amount"`
	Source       string          `json:"source"`
	Description  string          `json:"description"`
	BalanceAfter int64           `json:"balance_after"`
	AttemptID    *uuid.UUID      `json:"attempt_id,omitempty"`
	CommentID    *uuid.UUID      `json:"comment_id,omitempty"`
	FeatureID    *string         `json:"feature_id,omitempty"`
	RequestID    string          `json:"request_id,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// NewEarnTransaction creates an EARN ledger entry for the given positive
// amount. balanceAfter must be the spendable balance after applying the
// earn. Returns an error if validation fails.
func NewEarnTransaction(
	accountID uuid.UUID,
	amount int64,
	source string,
	description string,
	balanceAfter int64,
	refs TransactionRefs,
) (*Transaction, error) {
	tx := &Transaction{
		ID:           uuid.New(),
		AccountID:    accountID,
		Type:         TransactionTypeEarn,
		Amount:       amount,
		Source:       source,
		Description:  description,
		BalanceAfter: balanceAfter,
		AttemptID:    refs.AttemptID,
		CommentID:    refs.CommentID,
		FeatureID:    refs.FeatureID,
		RequestID:    refs.RequestID,
		CreatedAt:    time.Now().UTC(),
	}

	if err := tx.Validate(); err != nil {
		return nil, err
	}

	return tx, nil
}

// NewSpendTransaction creates a SPEND ledger entry for the given positive
// cost. The amount is stored negative, per the audit-trail convention.
// balanceAfter must be the spendable balance after applying the spend.
// Returns an error if validation fails.
func NewSpendTransaction(
	accountID uuid.UUID,
	cost int64,
	purpose string,
	description string,
	balanceAfter int64,
	refs TransactionRefs,
) (*Transaction, error) {
	if cost <= 0 {
		return nil, ErrZeroTransactionAmount
	}

	tx := &Transaction{
		ID:           uuid.New(),
		AccountID:    accountID,
		Type:         TransactionTypeSpend,
		Amount:       -cost,
		Source:       purpose,
		Description:  description,
		BalanceAfter: balanceAfter,
		AttemptID:    refs.AttemptID,
		CommentID:    refs.CommentID,
		FeatureID:    refs.FeatureID,
		RequestID:    refs.RequestID,
		CreatedAt:    time.Now().UTC(),
	}

	if err := tx.Validate(); err != nil {
		return nil, err
	}

	return tx, nil
}

// Validate checks if the Transaction has valid data, including the sign
// convention for its type. Returns an error if any field fails validation.
func (t *Transaction) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTransactionID
	}

	if t.AccountID == uuid.Nil {
		return ErrTransactionNoAccount
	}

	if !t.Type.IsValid() {
		return ErrInvalidTransactionType
	}

	if t.Amount == 0 {
		return ErrZeroTransactionAmount
	}

	if t.Type == TransactionTypeEarn && t.Amount < 0 {
		return ErrEarnAmountNotPositive
	}

	if t.Type == TransactionTypeSpend && t.Amount > 0 {
		return ErrSpendAmountNotNegative
	}

	if t.Source == "" {
		return ErrEmptyTransactionSource
	}

	if t.BalanceAfter < 0 {
		return ErrNegativeBalanceAfter
	}

	return nil
}

// IsEarn reports whether the entry credited the account.
func (t *Transaction) IsEarn() bool {
	return t.Type == TransactionTypeEarn
}

// IsSpend reports whether the entry debited the account.
func (t *Transaction) IsSpend() bool {
	return t.Type == TransactionTypeSpend
}
