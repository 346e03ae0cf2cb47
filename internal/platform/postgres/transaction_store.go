package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/readquest/xp-api/internal/domain"
	"github.com/readquest/xp-api/internal/platform/logger"
	"github.com/readquest/xp-api/internal/store"
)

// transactionColumns is the column list shared by every transaction SELECT.
const transactionColumns = `id, account_id, type, amount, source, description, balance_after,
		attempt_id, comment_id, feature_id, request_id, created_at`

// rowScanner abstracts sql.Row and sql.Rows so one scan routine serves both.
type rowScanner interface {
	Scan(dest ...any) error
}

// PostgresTransactionStore implements the store.TransactionStore interface
// using a PostgreSQL database as the storage backend. The transactions
// table is append-only: this store never issues UPDATE or DELETE.
type PostgresTransactionStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTransactionStore creates a new PostgreSQL implementation of the
// TransactionStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresTransactionStore(db store.DBTX, logger *slog.Logger) *PostgresTransactionStore {
	// Validate inputs
	if db == nil {
		panic("db cannot be nil")
	}

	// Use provided logger or create default
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTransactionStore{
		db:     db,
		logger: logger.With(slog.String("component", "transaction_store")),
	}
}

// Ensure PostgresTransactionStore implements store.TransactionStore interface
var _ store.TransactionStore = (*PostgresTransactionStore)(nil)

// Create implements store.TransactionStore.Create
// It appends a transaction to the audit trail. Optional references are
// stored as NULL when absent so the idempotency index only covers entries
// that actually carry a request ID.
// Returns store.ErrDuplicateRequest if the (account, request ID) pair has
// already been written.
// Returns validation errors from the domain Transaction if data is invalid.
func (s *PostgresTransactionStore) Create(ctx context.Context, transaction *domain.Transaction) error {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	// Validate transaction data
	if err := transaction.Validate(); err != nil {
		log.Warn("transaction validation failed during create",
			slog.String("error", err.Error()),
			slog.String("transaction_id", transaction.ID.String()))
		return err
	}

	query := `
		INSERT INTO transactions (id, account_id, type, amount, source, description, balance_after,
			attempt_id, comment_id, feature_id, request_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		transaction.ID,
		transaction.AccountID,
		string(transaction.Type),
		transaction.Amount,
		transaction.Source,
		transaction.Description,
		transaction.BalanceAfter,
		nullUUID(transaction.AttemptID),
		nullUUID(transaction.CommentID),
		nullString(transaction.FeatureID),
		nullStringValue(transaction.RequestID),
		transaction.CreatedAt,
	)

	if err != nil {
		if IsUniqueViolation(err) {
			// The only unique constraint beyond the primary key is the
			// (account_id, request_id) idempotency index
			log.Info("duplicate request ID, transaction already recorded",
				slog.String("account_id", transaction.AccountID.String()),
				slog.String("request_id", transaction.RequestID))
			return MapUniqueViolation(err, "", "", store.ErrDuplicateRequest)
		}

		log.Error("failed to create transaction",
			slog.String("error", err.Error()),
			slog.String("transaction_id", transaction.ID.String()),
			slog.String("account_id", transaction.AccountID.String()))
		return MapError(err)
	}

	log.Info("transaction recorded",
		slog.String("transaction_id", transaction.ID.String()),
		slog.String("account_id", transaction.AccountID.String()),
		slog.String("type", string(transaction.Type)),
		slog.Int64("amount", transaction.Amount),
		slog.Int64("balance_after", transaction.BalanceAfter))
	return nil
}

// GetByID implements store.TransactionStore.GetByID
// It retrieves a transaction by its unique ID.
// Returns store.ErrTransactionNotFound if the transaction does not exist.
func (s *PostgresTransactionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	log.Debug("retrieving transaction by ID", slog.String("transaction_id", id.String()))

	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE id = $1
	`

	transaction, err := scanTransaction(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("transaction not found", slog.String("transaction_id", id.String()))
			return nil, store.ErrTransactionNotFound
		}
		log.Error("failed to get transaction by ID",
			slog.String("error", err.Error()),
			slog.String("transaction_id", id.String()))
		return nil, err
	}

	return transaction, nil
}

// GetByRequestID implements store.TransactionStore.GetByRequestID
// It retrieves the transaction previously written for the account and
// idempotency request ID, so a replayed request can return the original
// outcome.
// Returns store.ErrTransactionNotFound if no such transaction exists.
func (s *PostgresTransactionStore) GetByRequestID(
	ctx context.Context,
	accountID uuid.UUID,
	requestID string,
) (*domain.Transaction, error) {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	log.Debug("retrieving transaction by request ID",
		slog.String("account_id", accountID.String()),
		slog.String("request_id", requestID))

	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE account_id = $1 AND request_id = $2
	`

	transaction, err := scanTransaction(s.db.QueryRowContext(ctx, query, accountID, requestID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("transaction not found by request ID",
				slog.String("account_id", accountID.String()),
				slog.String("request_id", requestID))
			return nil, store.ErrTransactionNotFound
		}
		log.Error("failed to get transaction by request ID",
			slog.String("error", err.Error()),
			slog.String("account_id", accountID.String()))
		return nil, err
	}

	return transaction, nil
}

// ListByAccount implements store.TransactionStore.ListByAccount
// It returns a page of the account's transactions ordered newest first.
// Returns an empty slice if the page is past the end.
func (s *PostgresTransactionStore) ListByAccount(
	ctx context.Context,
	accountID uuid.UUID,
	limit, offset int,
) ([]*domain.Transaction, error) {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	// Validate limit and offset
	if limit <= 0 {
		limit = 20 // Default limit
	}
	if offset < 0 {
		offset = 0
	}

	log.Debug("listing transactions",
		slog.String("account_id", accountID.String()),
		slog.Int("limit", limit),
		slog.Int("offset", offset))

	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := s.db.QueryContext(ctx, query, accountID, limit, offset)
	if err != nil {
		log.Error("failed to query transactions",
			slog.String("error", err.Error()),
			slog.String("account_id", accountID.String()))
		return nil, err
	}
	defer func() {
		err := rows.Close()
		if err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	var transactions []*domain.Transaction
	for rows.Next() {
		transaction, err := scanTransaction(rows)
		if err != nil {
			log.Error("failed to scan transaction row",
				slog.String("error", err.Error()))
			return nil, err
		}
		transactions = append(transactions, transaction)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows",
			slog.String("error", err.Error()))
		return nil, err
	}

	// Return empty slice instead of nil if no transactions found
	if transactions == nil {
		transactions = []*domain.Transaction{}
	}

	log.Debug("listed transactions",
		slog.String("account_id", accountID.String()),
		slog.Int("count", len(transactions)))
	return transactions, nil
}

// SumByAccount implements store.TransactionStore.SumByAccount
// It re-derives the account's balances from the audit trail: the sum of
// all signed amounts and the sum of EARN amounts.
func (s *PostgresTransactionStore) SumByAccount(
	ctx context.Context,
	accountID uuid.UUID,
) (store.LedgerSums, error) {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT
			COALESCE(SUM(amount), 0),
			COALESCE(SUM(CASE WHEN type = 'EARN' THEN amount ELSE 0 END), 0)
		FROM transactions
		WHERE account_id = $1
	`

	var sums store.LedgerSums
	err := s.db.QueryRowContext(ctx, query, accountID).Scan(&sums.TotalAmount, &sums.EarnedTotal)
	if err != nil {
		log.Error("failed to sum transactions",
			slog.String("error", err.Error()),
			slog.String("account_id", accountID.String()))
		return store.LedgerSums{}, err
	}

	log.Debug("summed transactions",
		slog.String("account_id", accountID.String()),
		slog.Int64("total_amount", sums.TotalAmount),
		slog.Int64("earned_total", sums.EarnedTotal))
	return sums, nil
}

// SumEarnedSince implements store.TransactionStore.SumEarnedSince
// It totals the account's EARN amounts recorded at or after the given time.
func (s *PostgresTransactionStore) SumEarnedSince(
	ctx context.Context,
	accountID uuid.UUID,
	since time.Time,
) (int64, error) {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE account_id = $1 AND type = 'EARN' AND created_at >= $2
	`

	var total int64
	err := s.db.QueryRowContext(ctx, query, accountID, since).Scan(&total)
	if err != nil {
		log.Error("failed to sum earned transactions",
			slog.String("error", err.Error()),
			slog.String("account_id", accountID.String()))
		return 0, err
	}

	return total, nil
}

// WithTx implements store.TransactionStore.WithTx
// It returns a new TransactionStore bound to the provided transaction.
func (s *PostgresTransactionStore) WithTx(tx *sql.Tx) store.TransactionStore {
	return &PostgresTransactionStore{
		db:     tx,
		logger: s.logger,
	}
}

// scanTransaction scans a single transaction row in the transactionColumns
// order, converting nullable columns back to their domain representations.
func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var (
		transaction domain.Transaction
		typeStr     string
		attemptID   uuid.NullUUID
		commentID   uuid.NullUUID
		featureID   sql.NullString
		requestID   sql.NullString
	)

	err := row.Scan(
		&transaction.ID,
		&transaction.AccountID,
		&typeStr,
		&transaction.Amount,
		&transaction.Source,
		&transaction.Description,
		&transaction.BalanceAfter,
		&attemptID,
		&commentID,
		&featureID,
		&requestID,
		&transaction.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	transaction.Type = domain.TransactionType(typeStr)
	if attemptID.Valid {
		id := attemptID.UUID
		transaction.AttemptID = &id
	}
	if commentID.Valid {
		id := commentID.UUID
		transaction.CommentID = &id
	}
	if featureID.Valid {
		f := featureID.String
		transaction.FeatureID = &f
	}
	if requestID.Valid {
		transaction.RequestID = requestID.String
	}

	return &transaction, nil
}

// nullUUID converts an optional UUID reference to its nullable column form.
func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

// nullString converts an optional string reference to its nullable column form.
func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// nullStringValue converts a string to its nullable column form, storing
// NULL for the empty string. Used for request IDs so the partial unique
// index only applies to entries that carry one.
func nullStringValue(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
