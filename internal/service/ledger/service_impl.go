package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/readquest/xp-api/internal/domain"
	"github.com/readquest/xp-api/internal/events"
	"github.com/readquest/xp-api/internal/platform/logger"
	"github.com/readquest/xp-api/internal/platform/metrics"
	"github.com/readquest/xp-api/internal/store"
)

// Verify interface compliance at compile time
var (
	_ LedgerService = (*ledgerServiceImpl)(nil)
	_ Tx            = (*serialTx)(nil)
)

const (
	// defaultMaxRetries bounds how often a mutation is retried after a
	// serialization conflict when no budget is configured.
	defaultMaxRetries = 3

	// baseRetryDelay is the first backoff step; it doubles per retry.
	baseRetryDelay = 10 * time.Millisecond
)

// ledgerServiceImpl implements the LedgerService interface.
type ledgerServiceImpl struct {
	db           *sql.DB
	accountStore store.AccountStore
	txStore      store.TransactionStore
	eventEmitter events.EventEmitter
	maxRetries   int
	logger       *slog.Logger
}

// NewLedgerService creates a new LedgerService implementation. maxRetries
// bounds the internal retries on serialization conflicts; a value below 1
// selects the default budget.
func NewLedgerService(
	db *sql.DB,
	accountStore store.AccountStore,
	txStore store.TransactionStore,
	eventEmitter events.EventEmitter,
	maxRetries int,
	logger *slog.Logger,
) LedgerService {
	// Validate inputs
	if db == nil {
		panic("db cannot be nil")
	}
	if accountStore == nil {
		panic("accountStore cannot be nil")
	}
	if txStore == nil {
		panic("txStore cannot be nil")
	}
	if eventEmitter == nil {
		panic("eventEmitter cannot be nil")
	}

	if maxRetries < 1 {
		maxRetries = defaultMaxRetries
	}

	// Use provided logger or create default
	if logger == nil {
		logger = slog.Default()
	}

	return &ledgerServiceImpl{
		db:           db,
		accountStore: accountStore,
		txStore:      txStore,
		eventEmitter: eventEmitter,
		maxRetries:   maxRetries,
		logger:       logger.With(slog.String("component", "ledger_service")),
	}
}

// pendingEvent is a mutation applied inside a transaction whose event and
// metrics are held back until the commit succeeds.
type pendingEvent struct {
	txn           *domain.Transaction
	accumulatedXP int64
}

// serialTx implements the Tx interface on top of one *sql.Tx.
type serialTx struct {
	tx      *sql.Tx
	svc     *ledgerServiceImpl
	pending []pendingEvent
}

// SQL implements Tx.SQL.
func (t *serialTx) SQL() *sql.Tx {
	return t.tx
}

// LockAccount implements Tx.LockAccount.
func (t *serialTx) LockAccount(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	return t.svc.accountStore.WithTx(t.tx).GetForUpdate(ctx, accountID)
}

// Earn implements Tx.Earn. It locks the account row, computes the new
// balances, appends the audit trail row, and writes the balances back, all
// inside the surrounding transaction.
func (t *serialTx) Earn(ctx context.Context, req EarnRequest) (*domain.Transaction, error) {
	if req.AccountID == uuid.Nil {
		return nil, domain.ErrInvalidID
	}
	if req.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if req.Source == "" {
		return nil, domain.ErrEmptyTransactionSource
	}

	accounts := t.svc.accountStore.WithTx(t.tx)
	transactions := t.svc.txStore.WithTx(t.tx)

	account, err := accounts.GetForUpdate(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}

	newAccumulated := account.AccumulatedXP + req.Amount
	newSpendable := account.SpendableXP + req.Amount

	txn, err := domain.NewEarnTransaction(
		req.AccountID,
		req.Amount,
		req.Source,
		req.Description,
		newSpendable,
		req.Refs,
	)
	if err != nil {
		return nil, err
	}

	// Insert before updating balances so an idempotent replay aborts on
	// the duplicate request ID without touching the account.
	if err := transactions.Create(ctx, txn); err != nil {
		return nil, err
	}

	if err := accounts.UpdateBalances(ctx, req.AccountID, newAccumulated, newSpendable); err != nil {
		return nil, err
	}

	t.pending = append(t.pending, pendingEvent{txn: txn, accumulatedXP: newAccumulated})
	return txn, nil
}

// Spend implements Tx.Spend. The accumulated balance is the permanent
// lifetime record and is never reduced; only the spendable balance pays.
func (t *serialTx) Spend(ctx context.Context, req SpendRequest) (*domain.Transaction, error) {
	if req.AccountID == uuid.Nil {
		return nil, domain.ErrInvalidID
	}
	if req.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if req.Purpose == "" {
		return nil, domain.ErrEmptyTransactionSource
	}

	accounts := t.svc.accountStore.WithTx(t.tx)
	transactions := t.svc.txStore.WithTx(t.tx)

	account, err := accounts.GetForUpdate(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}

	if account.SpendingFrozen {
		return nil, domain.ErrSpendingFrozen
	}

	if account.SpendableXP < req.Amount {
		metrics.RecordInsufficientSpend()
		return nil, domain.NewInsufficientXPError(req.Amount, account.SpendableXP)
	}

	newSpendable := account.SpendableXP - req.Amount

	txn, err := domain.NewSpendTransaction(
		req.AccountID,
		req.Amount,
		req.Purpose,
		req.Description,
		newSpendable,
		req.Refs,
	)
	if err != nil {
		return nil, err
	}

	if err := transactions.Create(ctx, txn); err != nil {
		return nil, err
	}

	if err := accounts.UpdateBalances(ctx, req.AccountID, account.AccumulatedXP, newSpendable); err != nil {
		return nil, err
	}

	t.pending = append(t.pending, pendingEvent{txn: txn, accumulatedXP: account.AccumulatedXP})
	return txn, nil
}

// RunSerialized implements LedgerService.RunSerialized.
func (s *ledgerServiceImpl) RunSerialized(
	ctx context.Context,
	fn func(ctx context.Context, tx Tx) error,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	for attempt := 0; ; attempt++ {
		ltx := &serialTx{svc: s}

		err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
			ltx.tx = tx
			return fn(ctx, ltx)
		})
		if err == nil {
			s.publish(ctx, ltx.pending)
			return nil
		}

		if !store.IsSerializationError(err) {
			return err
		}

		if attempt >= s.maxRetries {
			log.Warn("balance mutation exhausted its retry budget",
				"attempts", attempt+1,
				"error", err.Error())
			return fmt.Errorf("%w after %d attempts: %v", domain.ErrTransientConflict, attempt+1, err)
		}

		metrics.RecordSerializationRetry()
		log.Debug("retrying balance mutation after serialization conflict",
			"attempt", attempt+1,
			"max_retries", s.maxRetries)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(baseRetryDelay * (1 << attempt)):
		}
	}
}

// publish records metrics and emits events for mutations whose transaction
// has committed. Emission failures are logged, never propagated: the
// ledger write already succeeded and must not look failed to the caller.
func (s *ledgerServiceImpl) publish(ctx context.Context, pending []pendingEvent) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	for _, p := range pending {
		metrics.RecordTransaction(string(p.txn.Type), p.txn.Source, p.txn.Amount)

		event, err := events.NewTransactionCommittedEvent(p.txn, p.accumulatedXP)
		if err != nil {
			log.Error("failed to build transaction committed event",
				"error", err.Error(),
				"transaction_id", p.txn.ID.String())
			continue
		}

		if err := s.eventEmitter.EmitEvent(ctx, event); err != nil {
			log.Error("failed to emit transaction committed event",
				"error", err.Error(),
				"transaction_id", p.txn.ID.String())
		}
	}
}

// Earn implements LedgerService.Earn.
func (s *ledgerServiceImpl) Earn(ctx context.Context, req EarnRequest) (*domain.Transaction, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var txn *domain.Transaction
	err := s.RunSerialized(ctx, func(ctx context.Context, tx Tx) error {
		var txErr error
		txn, txErr = tx.Earn(ctx, req)
		return txErr
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateRequest) && req.Refs.RequestID != "" {
			log.Debug("earn already applied, returning original transaction",
				"account_id", req.AccountID.String(),
				"request_id", req.Refs.RequestID)
			return s.GetByRequestID(ctx, req.AccountID, req.Refs.RequestID)
		}

		log.Error("failed to apply earn",
			"error", err.Error(),
			"account_id", req.AccountID.String(),
			"source", req.Source)
		return nil, s.wrap("earn", err)
	}

	log.Info("xp earned",
		"account_id", req.AccountID.String(),
		"amount", req.Amount,
		"source", req.Source,
		"transaction_id", txn.ID.String())
	return txn, nil
}

// Spend implements LedgerService.Spend.
func (s *ledgerServiceImpl) Spend(ctx context.Context, req SpendRequest) (*domain.Transaction, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var txn *domain.Transaction
	err := s.RunSerialized(ctx, func(ctx context.Context, tx Tx) error {
		var txErr error
		txn, txErr = tx.Spend(ctx, req)
		return txErr
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateRequest) && req.Refs.RequestID != "" {
			log.Debug("spend already applied, returning original transaction",
				"account_id", req.AccountID.String(),
				"request_id", req.Refs.RequestID)
			return s.GetByRequestID(ctx, req.AccountID, req.Refs.RequestID)
		}

		log.Error("failed to apply spend",
			"error", err.Error(),
			"account_id", req.AccountID.String(),
			"purpose", req.Purpose)
		return nil, s.wrap("spend", err)
	}

	log.Info("xp spent",
		"account_id", req.AccountID.String(),
		"amount", req.Amount,
		"purpose", req.Purpose,
		"transaction_id", txn.ID.String())
	return txn, nil
}

// GetBalance implements LedgerService.GetBalance.
func (s *ledgerServiceImpl) GetBalance(ctx context.Context, accountID uuid.UUID) (domain.Balance, error) {
	account, err := s.accountStore.GetByID(ctx, accountID)
	if err != nil {
		return domain.Balance{}, s.wrap("get_balance", err)
	}
	return account.Balance(), nil
}

// GetByRequestID implements LedgerService.GetByRequestID.
func (s *ledgerServiceImpl) GetByRequestID(
	ctx context.Context,
	accountID uuid.UUID,
	requestID string,
) (*domain.Transaction, error) {
	txn, err := s.txStore.GetByRequestID(ctx, accountID, requestID)
	if err != nil {
		return nil, s.wrap("get_by_request_id", err)
	}
	return txn, nil
}

// ListTransactions implements LedgerService.ListTransactions.
func (s *ledgerServiceImpl) ListTransactions(
	ctx context.Context,
	accountID uuid.UUID,
	limit, offset int,
) ([]*domain.Transaction, error) {
	transactions, err := s.txStore.ListByAccount(ctx, accountID, limit, offset)
	if err != nil {
		return nil, s.wrap("list_transactions", err)
	}
	return transactions, nil
}

// wrap packages an unexpected error as a ServiceError while letting the
// errors the API layer maps directly pass through untouched.
func (s *ledgerServiceImpl) wrap(operation string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, domain.ErrInsufficientXP),
		errors.Is(err, domain.ErrSpendingFrozen),
		errors.Is(err, domain.ErrTransientConflict),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		store.IsNotFoundError(err):
		return err
	}

	return NewServiceError(operation, "ledger operation failed", err)
}
