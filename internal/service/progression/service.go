package progression

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/readquest/xp-api/internal/domain"
)

// ContentDirectory resolves the metrics the content subsystem maintains
// for a piece of content. The economy engine only reads these values; it
// never writes them.
type ContentDirectory interface {
	// GetByContentID retrieves the length metric and reading level for a
	// piece of content. Returns store.ErrContentMetricsNotFound if the
	// content is unknown.
	GetByContentID(ctx context.Context, contentID uuid.UUID) (*domain.ContentMetrics, error)
}

// RecordAttemptRequest carries one graded quiz submission. Grading happens
// upstream; this service only consumes the result.
type RecordAttemptRequest struct {
	// AccountID is the account that took the quiz.
	AccountID uuid.UUID
	// ContentID is the content the quiz belongs to.
	ContentID uuid.UUID
	// ScorePct is the graded score, 0 to 100.
	ScorePct float64
	// WPMUsed is the reading speed of the session, at most the account's
	// maximum.
	WPMUsed int
	// RequestID, when set, makes the attempt's reward idempotent: a
	// retried submission with the same request ID returns the original
	// outcome instead of paying twice.
	RequestID string
}

// AttemptResult is the recorded outcome of a quiz submission.
type AttemptResult struct {
	// Attempt is the attempt row as persisted.
	Attempt *domain.QuizAttempt `json:"attempt"`
	// XPAwarded is the reward earned, zero on a failed score or a retry
	// diminished to nothing.
	XPAwarded int64 `json:"xp_awarded"`
	// Passed reports whether the score met the passing threshold,
	// independent of the award size.
	Passed bool `json:"passed"`
	// Perfect reports a 100% score.
	Perfect bool `json:"perfect"`
	// CreditGranted reports that a free-comment credit was granted for
	// this content.
	CreditGranted bool `json:"credit_granted"`
	// SpeedProgressed reports that the reading speed ceiling was raised.
	SpeedProgressed bool `json:"speed_progressed"`
	// NewMaxWPM is the account's speed ceiling after the attempt.
	NewMaxWPM int `json:"new_max_wpm"`
	// BonusXP is the progression bonus earned when the ceiling rose.
	BonusXP int64 `json:"bonus_xp"`
}

// ProgressionService records graded quiz attempts and manages reading
// speed: the free manual adjustment of the current speed and the automatic
// ratchet that raises the ceiling on a first-attempt perfect score read at
// the ceiling.
type ProgressionService interface {
	// RecordQuizAttempt derives the attempt number from the account's own
	// history on the content, computes the reward, persists the attempt,
	// and credits the XP, all in one atomic unit. On a perfect score it
	// grants a free-comment credit; on a qualifying first attempt it also
	// raises the speed ceiling and pays the progression bonus.
	//
	// Error handling:
	//   - ErrContentUnavailable when the content lookup timed out; no
	//     ledger state was touched
	//   - store.ErrContentMetricsNotFound for unknown content
	//   - ErrWPMAboveMax when the reported speed exceeds the ceiling
	//   - store.ErrAccountNotFound when the account does not exist
	//   - domain.ErrTransientConflict when lock contention persisted
	RecordQuizAttempt(ctx context.Context, req RecordAttemptRequest) (*AttemptResult, error)

	// SetReadingSpeed changes the account's current reading speed. The
	// change is free and allowed any time up to the account's ceiling.
	// Returns the account with the new speed applied.
	SetReadingSpeed(ctx context.Context, accountID uuid.UUID, wpm int) (*domain.Account, error)

	// ListAttempts returns the account's attempts on one piece of
	// content, ordered by attempt number.
	ListAttempts(ctx context.Context, accountID, contentID uuid.UUID) ([]*domain.QuizAttempt, error)
}

// Common error types for ProgressionService
var (
	// ErrContentUnavailable indicates the content collaborator did not
	// answer within the bounded wait. The attempt was not recorded.
	ErrContentUnavailable = errors.New("content metrics unavailable")

	// ErrWPMAboveMax indicates a reported reading speed above the
	// account's current ceiling.
	ErrWPMAboveMax = errors.New("wpm used exceeds the account's maximum")
)

// ServiceError wraps errors from the progression service with the
// operation that failed.
type ServiceError struct {
	// Operation is the operation that failed (e.g. "record_attempt")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("progression %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("progression %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError for the given operation.
func NewServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
