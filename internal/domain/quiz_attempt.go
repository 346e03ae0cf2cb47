package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// QuizAttempt-specific validation errors
var (
	ErrEmptyAttemptID        = errors.New("attempt ID cannot be empty")
	ErrAttemptNoAccount      = errors.New("attempt account ID cannot be empty")
	ErrAttemptNoContent      = errors.New("attempt content ID cannot be empty")
	ErrInvalidAttemptNumber  = errors.New("attempt number must be at least 1")
	ErrScoreOutOfRange       = errors.New("score must be between 0 and 100")
	ErrInvalidAttemptWPM     = errors.New("wpm used must be positive")
	ErrNegativeAttemptReward = errors.New("awarded XP cannot be negative")
)

// QuizAttempt records one graded quiz submission for an account on a piece
// of content. AttemptNumber is 1-based per (account, content) pair and
// drives the diminishing-return halving on retries. Attempts are retained
// indefinitely: they are the inputs for retry economics, comment unlocking,
// and speed progression.
type QuizAttempt struct {
	ID            uuid.UUID `json:"id"`
	AccountID     uuid.UUID `json:"account_id"`
	ContentID     uuid.UUID `json:"content_id"`
	AttemptNumber int       `json:"attempt_number"`
	ScorePct      float64   `json:"score_pct"`
	WPMUsed       int       `json:"wpm_used"`
	XPAwarded     int64     `json:"xp_awarded"`
	IsPerfect     bool      `json:"is_perfect"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewQuizAttempt creates a new QuizAttempt with the given grading results.
// It generates a new UUID for the attempt ID and sets the creation
// timestamp. Returns an error if validation fails.
func NewQuizAttempt(
	accountID uuid.UUID,
	contentID uuid.UUID,
	attemptNumber int,
	scorePct float64,
	wpmUsed int,
	xpAwarded int64,
	isPerfect bool,
) (*QuizAttempt, error) {
	attempt := &QuizAttempt{
		ID:            uuid.New(),
		AccountID:     accountID,
		ContentID:     contentID,
		AttemptNumber: attemptNumber,
		ScorePct:      scorePct,
		WPMUsed:       wpmUsed,
		XPAwarded:     xpAwarded,
		IsPerfect:     isPerfect,
		CreatedAt:     time.Now().UTC(),
	}

	if err := attempt.Validate(); err != nil {
		return nil, err
	}

	return attempt, nil
}

// Validate checks if the QuizAttempt has valid data.
// Returns an error if any field fails validation.
func (q *QuizAttempt) Validate() error {
	if q.ID == uuid.Nil {
		return ErrEmptyAttemptID
	}

	if q.AccountID == uuid.Nil {
		return ErrAttemptNoAccount
	}

	if q.ContentID == uuid.Nil {
		return ErrAttemptNoContent
	}

	if q.AttemptNumber < 1 {
		return ErrInvalidAttemptNumber
	}

	if q.ScorePct < 0 || q.ScorePct > 100 {
		return ErrScoreOutOfRange
	}

	if q.WPMUsed < 1 {
		return ErrInvalidAttemptWPM
	}

	if q.XPAwarded < 0 {
		return ErrNegativeAttemptReward
	}

	return nil
}
