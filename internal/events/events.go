package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/readquest/xp-api/internal/domain"
)

// Event types emitted by the economy services.
const (
	// EventTransactionCommitted is emitted after a balance mutation and its
	// ledger entry have been committed to the database.
	EventTransactionCommitted = "ledger.transaction_committed"

	// EventAccountFlagged is emitted when the monitoring layer records a
	// flag against an account.
	EventAccountFlagged = "monitor.account_flagged"
)

// LedgerEvent represents a fact about the economy that already happened.
// Events are emitted only after the underlying database transaction commits,
// so a handler never observes a mutation that later rolled back. The payload
// is serialized JSON so handlers have no direct dependency on the emitting
// service's types.
type LedgerEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type names the kind of fact this event carries
	Type string `json:"type"`

	// Payload contains the event-specific data serialized as JSON
	Payload json.RawMessage `json:"payload"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *LedgerEvent) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// NewLedgerEvent creates a new LedgerEvent with the specified type and payload.
func NewLedgerEvent(eventType string, payload interface{}) (*LedgerEvent, error) {
	// Serialize the payload to JSON
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &LedgerEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   payloadBytes,
		CreatedAt: time.Now(),
	}, nil
}

// TransactionCommittedPayload is the payload of an EventTransactionCommitted
// event: one committed ledger entry together with the balance it produced.
type TransactionCommittedPayload struct {
	AccountID     uuid.UUID              `json:"account_id"`
	TransactionID uuid.UUID              `json:"transaction_id"`
	Type          domain.TransactionType `json:"type"`
	Amount        int64                  `json:"amount"`
	Source        string                 `json:"source"`
	BalanceAfter  int64                  `json:"balance_after"`
	AccumulatedXP int64                  `json:"accumulated_xp"`
	OccurredAt    time.Time              `json:"occurred_at"`
}

// NewTransactionCommittedEvent builds the event emitted after a ledger entry
// commits. accumulatedXP is the account's lifetime total after the mutation.
func NewTransactionCommittedEvent(
	transaction *domain.Transaction,
	accumulatedXP int64,
) (*LedgerEvent, error) {
	return NewLedgerEvent(EventTransactionCommitted, TransactionCommittedPayload{
		AccountID:     transaction.AccountID,
		TransactionID: transaction.ID,
		Type:          transaction.Type,
		Amount:        transaction.Amount,
		Source:        transaction.Source,
		BalanceAfter:  transaction.BalanceAfter,
		AccumulatedXP: accumulatedXP,
		OccurredAt:    transaction.CreatedAt,
	})
}

// AccountFlaggedPayload is the payload of an EventAccountFlagged event: one
// detective finding the monitoring layer recorded against an account.
type AccountFlaggedPayload struct {
	AccountID uuid.UUID       `json:"account_id"`
	FlagID    uuid.UUID       `json:"flag_id"`
	Kind      domain.FlagKind `json:"kind"`
	Detail    string          `json:"detail"`
	FlaggedAt time.Time       `json:"flagged_at"`
}

// NewAccountFlaggedEvent builds the event emitted after the monitoring layer
// persists an account flag.
func NewAccountFlaggedEvent(flag *domain.AccountFlag) (*LedgerEvent, error) {
	return NewLedgerEvent(EventAccountFlagged, AccountFlaggedPayload{
		AccountID: flag.AccountID,
		FlagID:    flag.ID,
		Kind:      flag.Kind,
		Detail:    flag.Detail,
		FlaggedAt: flag.CreatedAt,
	})
}

// EventHandler defines an interface for components that can handle events.
// Handlers are responsible for processing events and taking appropriate actions.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *LedgerEvent) error
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	// Returns an error if the event cannot be emitted.
	EmitEvent(ctx context.Context, event *LedgerEvent) error
}
