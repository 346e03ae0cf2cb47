package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/readquest/xp-api/internal/domain"
	"github.com/readquest/xp-api/internal/platform/logger"
	"github.com/readquest/xp-api/internal/store"
)

// attemptColumns is the column list shared by every quiz attempt SELECT.
const attemptColumns = `id, account_id, content_id, attempt_number, score_pct,
		wpm_used, xp_awarded, is_perfect, created_at`

// PostgresQuizAttemptStore implements the store.QuizAttemptStore interface
// using a PostgreSQL database as the storage backend.
type PostgresQuizAttemptStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresQuizAttemptStore creates a new PostgreSQL implementation of the
// QuizAttemptStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresQuizAttemptStore(db store.DBTX, logger *slog.Logger) *PostgresQuizAttemptStore {
	// Validate inputs
	if db == nil {
		panic("db cannot be nil")
	}

	// Use provided logger or create default
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresQuizAttemptStore{
		db:     db,
		logger: logger.With(slog.String("component", "attempt_store")),
	}
}

// Ensure PostgresQuizAttemptStore implements store.QuizAttemptStore interface
var _ store.QuizAttemptStore = (*PostgresQuizAttemptStore)(nil)

// Create implements store.QuizAttemptStore.Create
// It saves a new quiz attempt. The (account, content, attempt number)
// uniqueness constraint turns a concurrent double-submit of the same
// attempt into a duplicate error instead of two rows.
// Returns validation errors from the domain QuizAttempt if data is invalid.
func (s *PostgresQuizAttemptStore) Create(ctx context.Context, attempt *domain.QuizAttempt) error {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	// Validate attempt data
	if err := attempt.Validate(); err != nil {
		log.Warn("quiz attempt validation failed during create",
			slog.String("error", err.Error()),
			slog.String("attempt_id", attempt.ID.String()))
		return err
	}

	query := `
		INSERT INTO quiz_attempts (id, account_id, content_id, attempt_number, score_pct,
			wpm_used, xp_awarded, is_perfect, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		attempt.ID,
		attempt.AccountID,
		attempt.ContentID,
		attempt.AttemptNumber,
		attempt.ScorePct,
		attempt.WPMUsed,
		attempt.XPAwarded,
		attempt.IsPerfect,
		attempt.CreatedAt,
	)

	if err != nil {
		if IsUniqueViolation(err) {
			log.Warn("duplicate attempt number during create",
				slog.String("account_id", attempt.AccountID.String()),
				slog.String("content_id", attempt.ContentID.String()),
				slog.Int("attempt_number", attempt.AttemptNumber))
			return MapUniqueViolation(err, "quiz attempt", "", nil)
		}

		log.Error("failed to create quiz attempt",
			slog.String("error", err.Error()),
			slog.String("attempt_id", attempt.ID.String()))
		return MapError(err)
	}

	log.Info("quiz attempt recorded",
		slog.String("attempt_id", attempt.ID.String()),
		slog.String("account_id", attempt.AccountID.String()),
		slog.String("content_id", attempt.ContentID.String()),
		slog.Int("attempt_number", attempt.AttemptNumber),
		slog.Int64("xp_awarded", attempt.XPAwarded))
	return nil
}

// GetByID implements store.QuizAttemptStore.GetByID
// It retrieves an attempt by its unique ID.
// Returns store.ErrAttemptNotFound if the attempt does not exist.
func (s *PostgresQuizAttemptStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.QuizAttempt, error) {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	log.Debug("retrieving quiz attempt by ID", slog.String("attempt_id", id.String()))

	query := `
		SELECT ` + attemptColumns + `
		FROM quiz_attempts
		WHERE id = $1
	`

	attempt, err := scanAttempt(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("quiz attempt not found", slog.String("attempt_id", id.String()))
			return nil, store.ErrAttemptNotFound
		}
		log.Error("failed to get quiz attempt by ID",
			slog.String("error", err.Error()),
			slog.String("attempt_id", id.String()))
		return nil, err
	}

	return attempt, nil
}

// CountByAccountContent implements store.QuizAttemptStore.CountByAccountContent
// It returns how many attempts the account has made on the content.
func (s *PostgresQuizAttemptStore) CountByAccountContent(
	ctx context.Context,
	accountID, contentID uuid.UUID,
) (int, error) {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT COUNT(*)
		FROM quiz_attempts
		WHERE account_id = $1 AND content_id = $2
	`

	var count int
	err := s.db.QueryRowContext(ctx, query, accountID, contentID).Scan(&count)
	if err != nil {
		log.Error("failed to count quiz attempts",
			slog.String("error", err.Error()),
			slog.String("account_id", accountID.String()),
			slog.String("content_id", contentID.String()))
		return 0, err
	}

	return count, nil
}

// HasPassingAttempt implements store.QuizAttemptStore.HasPassingAttempt
// It reports whether the account has any attempt on the content at or above
// the passing score, regardless of how much XP that attempt awarded.
func (s *PostgresQuizAttemptStore) HasPassingAttempt(
	ctx context.Context,
	accountID, contentID uuid.UUID,
	passingScore float64,
) (bool, error) {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT EXISTS (
			SELECT 1
			FROM quiz_attempts
			WHERE account_id = $1 AND content_id = $2 AND score_pct >= $3
		)
	`

	var passed bool
	err := s.db.QueryRowContext(ctx, query, accountID, contentID, passingScore).Scan(&passed)
	if err != nil {
		log.Error("failed to check for passing attempt",
			slog.String("error", err.Error()),
			slog.String("account_id", accountID.String()),
			slog.String("content_id", contentID.String()))
		return false, err
	}

	return passed, nil
}

// ListByAccountContent implements store.QuizAttemptStore.ListByAccountContent
// It returns the account's attempts on the content ordered by attempt number.
// Returns an empty slice if there are none.
func (s *PostgresQuizAttemptStore) ListByAccountContent(
	ctx context.Context,
	accountID, contentID uuid.UUID,
) ([]*domain.QuizAttempt, error) {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + attemptColumns + `
		FROM quiz_attempts
		WHERE account_id = $1 AND content_id = $2
		ORDER BY attempt_number ASC
	`

	rows, err := s.db.QueryContext(ctx, query, accountID, contentID)
	if err != nil {
		log.Error("failed to query quiz attempts",
			slog.String("error", err.Error()),
			slog.String("account_id", accountID.String()),
			slog.String("content_id", contentID.String()))
		return nil, err
	}
	defer func() {
		err := rows.Close()
		if err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	var attempts []*domain.QuizAttempt
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			log.Error("failed to scan quiz attempt row",
				slog.String("error", err.Error()))
			return nil, err
		}
		attempts = append(attempts, attempt)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows",
			slog.String("error", err.Error()))
		return nil, err
	}

	// Return empty slice instead of nil if no attempts found
	if attempts == nil {
		attempts = []*domain.QuizAttempt{}
	}

	return attempts, nil
}

// WithTx implements store.QuizAttemptStore.WithTx
// It returns a new QuizAttemptStore bound to the provided transaction.
func (s *PostgresQuizAttemptStore) WithTx(tx *sql.Tx) store.QuizAttemptStore {
	return &PostgresQuizAttemptStore{
		db:     tx,
		logger: s.logger,
	}
}

// scanAttempt scans a single quiz attempt row in the attemptColumns order.
func scanAttempt(row rowScanner) (*domain.QuizAttempt, error) {
	var attempt domain.QuizAttempt
	err := row.Scan(
		&attempt.ID,
		&attempt.AccountID,
		&attempt.ContentID,
		&attempt.AttemptNumber,
		&attempt.ScorePct,
		&attempt.WPMUsed,
		&attempt.XPAwarded,
		&attempt.IsPerfect,
		&attempt.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}
