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

// PostgresCommentCreditStore implements the store.CommentCreditStore
// interface using a PostgreSQL database as the storage backend.
type PostgresCommentCreditStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresCommentCreditStore creates a new PostgreSQL implementation of
// the CommentCreditStore interface. It accepts a database connection or
// transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresCommentCreditStore(db store.DBTX, logger *slog.Logger) *PostgresCommentCreditStore {
	// Validate inputs
	if db == nil {
		panic("db cannot be nil")
	}

	// Use provided logger or create default
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresCommentCreditStore{
		db:     db,
		logger: logger.With(slog.String("component", "credit_store")),
	}
}

// Ensure PostgresCommentCreditStore implements store.CommentCreditStore interface
var _ store.CommentCreditStore = (*PostgresCommentCreditStore)(nil)

// Grant implements store.CommentCreditStore.Grant
// It adds one free-comment credit for the account on the content, creating
// the credit row on first grant. The upsert keeps concurrent grants from
// losing increments.
func (s *PostgresCommentCreditStore) Grant(ctx context.Context, accountID, contentID uuid.UUID) error {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	now := time.Now().UTC()

	query := `
		INSERT INTO comment_credits (account_id, content_id, credits, created_at, updated_at)
		VALUES ($1, $2, 1, $3, $3)
		ON CONFLICT (account_id, content_id)
		DO UPDATE SET credits = comment_credits.credits + 1, updated_at = $3
	`

	_, err := s.db.ExecContext(ctx, query, accountID, contentID, now)
	if err != nil {
		log.Error("failed to grant comment credit",
			slog.String("error", err.Error()),
			slog.String("account_id", accountID.String()),
			slog.String("content_id", contentID.String()))
		return MapError(err)
	}

	log.Info("comment credit granted",
		slog.String("account_id", accountID.String()),
		slog.String("content_id", contentID.String()))
	return nil
}

// Consume implements store.CommentCreditStore.Consume
// It atomically decrements one credit if any remain. The credits > 0 guard
// in the statement itself means two concurrent consumers of a single credit
// cannot both succeed.
func (s *PostgresCommentCreditStore) Consume(
	ctx context.Context,
	accountID, contentID uuid.UUID,
) (bool, error) {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE comment_credits
		SET credits = credits - 1, updated_at = $3
		WHERE account_id = $1 AND content_id = $2 AND credits > 0
	`

	result, err := s.db.ExecContext(ctx, query, accountID, contentID, time.Now().UTC())
	if err != nil {
		log.Error("failed to consume comment credit",
			slog.String("error", err.Error()),
			slog.String("account_id", accountID.String()),
			slog.String("content_id", contentID.String()))
		return false, MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Error("failed to get rows affected",
			slog.String("error", err.Error()),
			slog.String("account_id", accountID.String()))
		return false, err
	}

	consumed := rowsAffected > 0
	if consumed {
		log.Info("comment credit consumed",
			slog.String("account_id", accountID.String()),
			slog.String("content_id", contentID.String()))
	} else {
		log.Debug("no comment credit to consume",
			slog.String("account_id", accountID.String()),
			slog.String("content_id", contentID.String()))
	}

	return consumed, nil
}

// Get implements store.CommentCreditStore.Get
// It retrieves the credit row for the account and content. A missing row
// is reported as a zero-credit row, since "no credits" is an ordinary
// state rather than an error.
func (s *PostgresCommentCreditStore) Get(
	ctx context.Context,
	accountID, contentID uuid.UUID,
) (*domain.CommentCredit, error) {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT account_id, content_id, credits, created_at, updated_at
		FROM comment_credits
		WHERE account_id = $1 AND content_id = $2
	`

	var credit domain.CommentCredit
	err := s.db.QueryRowContext(ctx, query, accountID, contentID).Scan(
		&credit.AccountID,
		&credit.ContentID,
		&credit.Credits,
		&credit.CreatedAt,
		&credit.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &domain.CommentCredit{
				AccountID: accountID,
				ContentID: contentID,
				Credits:   0,
			}, nil
		}
		log.Error("failed to get comment credit",
			slog.String("error", err.Error()),
			slog.String("account_id", accountID.String()),
			slog.String("content_id", contentID.String()))
		return nil, err
	}

	return &credit, nil
}

// WithTx implements store.CommentCreditStore.WithTx
// It returns a new CommentCreditStore bound to the provided transaction.
func (s *PostgresCommentCreditStore) WithTx(tx *sql.Tx) store.CommentCreditStore {
	return &PostgresCommentCreditStore{
		db:     tx,
		logger: s.logger,
	}
}
