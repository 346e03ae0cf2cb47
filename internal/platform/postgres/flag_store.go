package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"
	"github.com/readquest/xp-api/internal/domain"
	"github.com/readquest/xp-api/internal/platform/logger"
	"github.com/readquest/xp-api/internal/store"
)

// flagColumns is the column list shared by every account flag SELECT.
const flagColumns = `id, account_id, kind, detail, created_at`

// PostgresAccountFlagStore implements the store.AccountFlagStore interface
// using a PostgreSQL database as the storage backend.
type PostgresAccountFlagStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresAccountFlagStore creates a new PostgreSQL implementation of the
// AccountFlagStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresAccountFlagStore(db store.DBTX, logger *slog.Logger) *PostgresAccountFlagStore {
	// Validate inputs
	if db == nil {
		panic("db cannot be nil")
	}

	// Use provided logger or create default
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresAccountFlagStore{
		db:     db,
		logger: logger.With(slog.String("component", "flag_store")),
	}
}

// Ensure PostgresAccountFlagStore implements store.AccountFlagStore interface
var _ store.AccountFlagStore = (*PostgresAccountFlagStore)(nil)

// Create implements store.AccountFlagStore.Create
// It saves a new account flag raised by the monitoring layer.
// Returns validation errors from the domain AccountFlag if data is invalid.
func (s *PostgresAccountFlagStore) Create(ctx context.Context, flag *domain.AccountFlag) error {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	// Validate flag data
	if err := flag.Validate(); err != nil {
		log.Warn("account flag validation failed during create",
			slog.String("error", err.Error()),
			slog.String("flag_id", flag.ID.String()))
		return err
	}

	query := `
		INSERT INTO account_flags (id, account_id, kind, detail, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		flag.ID,
		flag.AccountID,
		string(flag.Kind),
		flag.Detail,
		flag.CreatedAt,
	)

	if err != nil {
		log.Error("failed to create account flag",
			slog.String("error", err.Error()),
			slog.String("flag_id", flag.ID.String()),
			slog.String("account_id", flag.AccountID.String()))
		return MapError(err)
	}

	log.Warn("account flagged",
		slog.String("flag_id", flag.ID.String()),
		slog.String("account_id", flag.AccountID.String()),
		slog.String("kind", string(flag.Kind)),
		slog.String("detail", flag.Detail))
	return nil
}

// List implements store.AccountFlagStore.List
// It returns a page of flags ordered newest first.
// Returns an empty slice when the page is past the end.
func (s *PostgresAccountFlagStore) List(ctx context.Context, limit, offset int) ([]*domain.AccountFlag, error) {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	// Validate limit and offset
	if limit <= 0 {
		limit = 50 // Default limit
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT ` + flagColumns + `
		FROM account_flags
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		log.Error("failed to query account flags",
			slog.String("error", err.Error()))
		return nil, err
	}
	defer func() {
		err := rows.Close()
		if err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	flags, err := collectFlags(rows)
	if err != nil {
		log.Error("failed to scan account flags",
			slog.String("error", err.Error()))
		return nil, err
	}

	return flags, nil
}

// ListByAccount implements store.AccountFlagStore.ListByAccount
// It returns all flags raised against one account, newest first.
// Returns an empty slice if there are none.
func (s *PostgresAccountFlagStore) ListByAccount(
	ctx context.Context,
	accountID uuid.UUID,
) ([]*domain.AccountFlag, error) {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + flagColumns + `
		FROM account_flags
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
	`

	rows, err := s.db.QueryContext(ctx, query, accountID)
	if err != nil {
		log.Error("failed to query account flags",
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

	flags, err := collectFlags(rows)
	if err != nil {
		log.Error("failed to scan account flags",
			slog.String("error", err.Error()),
			slog.String("account_id", accountID.String()))
		return nil, err
	}

	return flags, nil
}

// WithTx implements store.AccountFlagStore.WithTx
// It returns a new AccountFlagStore bound to the provided transaction.
func (s *PostgresAccountFlagStore) WithTx(tx *sql.Tx) store.AccountFlagStore {
	return &PostgresAccountFlagStore{
		db:     tx,
		logger: s.logger,
	}
}

// collectFlags drains a flag result set into a slice, returning an empty
// slice rather than nil for no rows.
func collectFlags(rows *sql.Rows) ([]*domain.AccountFlag, error) {
	var flags []*domain.AccountFlag
	for rows.Next() {
		var (
			flag domain.AccountFlag
			kind string
		)
		err := rows.Scan(
			&flag.ID,
			&flag.AccountID,
			&kind,
			&flag.Detail,
			&flag.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		flag.Kind = domain.FlagKind(kind)
		flags = append(flags, &flag)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if flags == nil {
		flags = []*domain.AccountFlag{}
	}
	return flags, nil
}
