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
	"golang.org/x/crypto/bcrypt"
)

// accountColumns is the column list shared by every account SELECT.
const accountColumns = `id, email, hashed_password, accumulated_xp, spendable_xp,
		current_wpm, max_wpm, spending_frozen, created_at, updated_at`

// PostgresAccountStore implements the store.AccountStore interface
// using a PostgreSQL database as the storage backend.
type PostgresAccountStore struct {
	db         store.DBTX
	bcryptCost int
	logger     *slog.Logger
}

// NewPostgresAccountStore creates a new PostgreSQL implementation of the
// AccountStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller, and the bcrypt cost
// used when hashing account passwords. A cost outside the valid bcrypt
// range falls back to bcrypt.DefaultCost.
// If logger is nil, a default logger will be used.
func NewPostgresAccountStore(db store.DBTX, bcryptCost int, logger *slog.Logger) *PostgresAccountStore {
	// Validate inputs
	if db == nil {
		panic("db cannot be nil")
	}

	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}

	// Use provided logger or create default
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresAccountStore{
		db:         db,
		bcryptCost: bcryptCost,
		logger:     logger.With(slog.String("component", "account_store")),
	}
}

// Ensure PostgresAccountStore implements store.AccountStore interface
var _ store.AccountStore = (*PostgresAccountStore)(nil)

// Create implements store.AccountStore.Create
// It saves a new account to the database, hashing the plaintext password
// before it is written. The plaintext is cleared from the struct once the
// hash exists.
// Returns store.ErrEmailExists if the email is already registered.
// Returns validation errors from the domain Account if data is invalid.
func (s *PostgresAccountStore) Create(ctx context.Context, account *domain.Account) error {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	// Validate account data
	if err := account.Validate(); err != nil {
		log.Warn("account validation failed during create",
			slog.String("error", err.Error()),
			slog.String("account_id", account.ID.String()))
		return err
	}

	// Hash the password unless the caller already supplied a hash
	if account.HashedPassword == "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(account.Password), s.bcryptCost)
		if err != nil {
			log.Error("failed to hash password",
				slog.String("error", err.Error()),
				slog.String("account_id", account.ID.String()))
			return err
		}
		account.HashedPassword = string(hashed)
		account.Password = ""
	}

	query := `
		INSERT INTO accounts (id, email, hashed_password, accumulated_xp, spendable_xp,
			current_wpm, max_wpm, spending_frozen, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		account.ID,
		account.Email,
		account.HashedPassword,
		account.AccumulatedXP,
		account.SpendableXP,
		account.CurrentWPM,
		account.MaxWPM,
		account.SpendingFrozen,
		account.CreatedAt,
		account.UpdatedAt,
	)

	if err != nil {
		if IsUniqueViolation(err) {
			log.Warn("duplicate email during account creation",
				slog.String("account_id", account.ID.String()))
			return MapUniqueViolation(err, "", "", store.ErrEmailExists)
		}

		log.Error("failed to create account",
			slog.String("error", err.Error()),
			slog.String("account_id", account.ID.String()))
		return MapError(err)
	}

	log.Info("account created successfully",
		slog.String("account_id", account.ID.String()))
	return nil
}

// GetByID implements store.AccountStore.GetByID
// It retrieves an account by its unique ID.
// Returns store.ErrAccountNotFound if the account does not exist.
func (s *PostgresAccountStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	log.Debug("retrieving account by ID", slog.String("account_id", id.String()))

	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE id = $1
	`

	account, err := s.scanAccountRow(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("account not found", slog.String("account_id", id.String()))
			return nil, store.ErrAccountNotFound
		}
		log.Error("failed to get account by ID",
			slog.String("error", err.Error()),
			slog.String("account_id", id.String()))
		return nil, err
	}

	return account, nil
}

// GetByEmail implements store.AccountStore.GetByEmail
// It retrieves an account by its email address. Matching is
// case-insensitive so logins are not sensitive to email capitalization.
// Returns store.ErrAccountNotFound if the account does not exist.
func (s *PostgresAccountStore) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	log.Debug("retrieving account by email")

	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE LOWER(email) = LOWER($1)
	`

	account, err := s.scanAccountRow(s.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("account not found by email")
			return nil, store.ErrAccountNotFound
		}
		log.Error("failed to get account by email",
			slog.String("error", err.Error()))
		return nil, err
	}

	return account, nil
}

// GetForUpdate implements store.AccountStore.GetForUpdate
// It retrieves an account by ID while taking a row-level lock. The lock
// serializes balance mutations on this account until the surrounding
// transaction finishes; mutations on other accounts are unaffected.
// Returns store.ErrAccountNotFound if the account does not exist.
// Returns store.ErrSerialization if the database reports lock contention.
func (s *PostgresAccountStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	log.Debug("locking account row", slog.String("account_id", id.String()))

	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE id = $1
		FOR UPDATE
	`

	account, err := s.scanAccountRow(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("account not found for locking", slog.String("account_id", id.String()))
			return nil, store.ErrAccountNotFound
		}
		if IsSerializationFailure(err) {
			log.Warn("lock contention on account row",
				slog.String("account_id", id.String()))
			return nil, MapError(err)
		}
		log.Error("failed to lock account row",
			slog.String("error", err.Error()),
			slog.String("account_id", id.String()))
		return nil, err
	}

	return account, nil
}

// UpdateBalances implements store.AccountStore.UpdateBalances
// It writes both XP balances in a single statement. The caller must hold
// the account's row lock in the same transaction.
// Returns store.ErrAccountNotFound if the account does not exist.
func (s *PostgresAccountStore) UpdateBalances(
	ctx context.Context,
	id uuid.UUID,
	accumulatedXP, spendableXP int64,
) error {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE accounts
		SET accumulated_xp = $1, spendable_xp = $2, updated_at = $3
		WHERE id = $4
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		accumulatedXP,
		spendableXP,
		time.Now().UTC(),
		id,
	)

	if err != nil {
		log.Error("failed to update account balances",
			slog.String("error", err.Error()),
			slog.String("account_id", id.String()))
		return MapError(err)
	}

	// Check if a row was actually updated
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Error("failed to get rows affected",
			slog.String("error", err.Error()),
			slog.String("account_id", id.String()))
		return err
	}

	// If no rows were affected, the account didn't exist
	if rowsAffected == 0 {
		log.Debug("account not found for balance update",
			slog.String("account_id", id.String()))
		return store.ErrAccountNotFound
	}

	log.Debug("account balances updated",
		slog.String("account_id", id.String()),
		slog.Int64("accumulated_xp", accumulatedXP),
		slog.Int64("spendable_xp", spendableXP))
	return nil
}

// UpdateReadingSpeed implements store.AccountStore.UpdateReadingSpeed
// It writes the account's current and maximum reading speeds.
// Returns store.ErrAccountNotFound if the account does not exist.
func (s *PostgresAccountStore) UpdateReadingSpeed(
	ctx context.Context,
	id uuid.UUID,
	currentWPM, maxWPM int,
) error {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE accounts
		SET current_wpm = $1, max_wpm = $2, updated_at = $3
		WHERE id = $4
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		currentWPM,
		maxWPM,
		time.Now().UTC(),
		id,
	)

	if err != nil {
		log.Error("failed to update reading speed",
			slog.String("error", err.Error()),
			slog.String("account_id", id.String()))
		return MapError(err)
	}

	// Check if a row was actually updated
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Error("failed to get rows affected",
			slog.String("error", err.Error()),
			slog.String("account_id", id.String()))
		return err
	}

	// If no rows were affected, the account didn't exist
	if rowsAffected == 0 {
		log.Debug("account not found for reading speed update",
			slog.String("account_id", id.String()))
		return store.ErrAccountNotFound
	}

	log.Info("reading speed updated",
		slog.String("account_id", id.String()),
		slog.Int("current_wpm", currentWPM),
		slog.Int("max_wpm", maxWPM))
	return nil
}

// SetSpendingFrozen implements store.AccountStore.SetSpendingFrozen
// It flips the account's spending freeze flag.
// Returns store.ErrAccountNotFound if the account does not exist.
func (s *PostgresAccountStore) SetSpendingFrozen(ctx context.Context, id uuid.UUID, frozen bool) error {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE accounts
		SET spending_frozen = $1, updated_at = $2
		WHERE id = $3
	`

	result, err := s.db.ExecContext(ctx, query, frozen, time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to set spending freeze",
			slog.String("error", err.Error()),
			slog.String("account_id", id.String()))
		return MapError(err)
	}

	// Check if a row was actually updated
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Error("failed to get rows affected",
			slog.String("error", err.Error()),
			slog.String("account_id", id.String()))
		return err
	}

	// If no rows were affected, the account didn't exist
	if rowsAffected == 0 {
		log.Debug("account not found for spending freeze",
			slog.String("account_id", id.String()))
		return store.ErrAccountNotFound
	}

	log.Warn("spending freeze changed",
		slog.String("account_id", id.String()),
		slog.Bool("frozen", frozen))
	return nil
}

// List implements store.AccountStore.List
// It returns a page of accounts ordered by creation time, oldest first,
// so the reconciliation sweep visits every account in a stable order.
// Returns an empty slice if the page is past the end.
func (s *PostgresAccountStore) List(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	// Validate limit and offset
	if limit <= 0 {
		limit = 50 // Default limit
	}
	if offset < 0 {
		offset = 0
	}

	log.Debug("listing accounts",
		slog.Int("limit", limit),
		slog.Int("offset", offset))

	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		ORDER BY created_at ASC, id ASC
		LIMIT $1 OFFSET $2
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		log.Error("failed to query accounts",
			slog.String("error", err.Error()))
		return nil, err
	}
	defer func() {
		err := rows.Close()
		if err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	var accounts []*domain.Account
	for rows.Next() {
		var account domain.Account
		err := rows.Scan(
			&account.ID,
			&account.Email,
			&account.HashedPassword,
			&account.AccumulatedXP,
			&account.SpendableXP,
			&account.CurrentWPM,
			&account.MaxWPM,
			&account.SpendingFrozen,
			&account.CreatedAt,
			&account.UpdatedAt,
		)
		if err != nil {
			log.Error("failed to scan account row",
				slog.String("error", err.Error()))
			return nil, err
		}
		accounts = append(accounts, &account)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows",
			slog.String("error", err.Error()))
		return nil, err
	}

	// Return empty slice instead of nil if no accounts found
	if accounts == nil {
		accounts = []*domain.Account{}
	}

	log.Debug("listed accounts", slog.Int("count", len(accounts)))
	return accounts, nil
}

// WithTx implements store.AccountStore.WithTx
// It returns a new AccountStore bound to the provided transaction.
func (s *PostgresAccountStore) WithTx(tx *sql.Tx) store.AccountStore {
	return &PostgresAccountStore{
		db:         tx,
		bcryptCost: s.bcryptCost,
		logger:     s.logger,
	}
}

// scanAccountRow scans a single account row in the accountColumns order.
func (s *PostgresAccountStore) scanAccountRow(row *sql.Row) (*domain.Account, error) {
	var account domain.Account
	err := row.Scan(
		&account.ID,
		&account.Email,
		&account.HashedPassword,
		&account.AccumulatedXP,
		&account.SpendableXP,
		&account.CurrentWPM,
		&account.MaxWPM,
		&account.SpendingFrozen,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &account, nil
}
