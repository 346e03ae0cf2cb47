package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// CommentCredit-specific validation errors
var (
	ErrCreditNoAccount = errors.New("comment credit account ID cannot be empty")
	ErrCreditNoContent = errors.New("comment credit content ID cannot be empty")
	ErrNegativeCredits = errors.New("comment credits cannot be negative")
)

// CommentCredit tracks the free-comment credits an account holds for one
// piece of content, keyed by the (account, content) pair. A credit is
// granted for each perfect quiz score on the content and consumed by the
// first comment it pays for; with no credit remaining, comments are charged
// at the normal rate.
type CommentCredit struct {
	AccountID uuid.UUID `json:"account_id"`
	ContentID uuid.UUID `json:"content_id"`
	Credits   int       `json:"credits"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewCommentCredit creates a CommentCredit for the given account and
// content with a single credit, as granted on a perfect score.
// Returns an error if validation fails.
func NewCommentCredit(accountID, contentID uuid.UUID) (*CommentCredit, error) {
	credit := &CommentCredit{
		AccountID: accountID,
		ContentID: contentID,
		Credits:   1,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := credit.Validate(); err != nil {
		return nil, err
	}

	return credit, nil
}

// Validate checks if the CommentCredit has valid data.
// Returns an error if any field fails validation.
func (c *CommentCredit) Validate() error {
	if c.AccountID == uuid.Nil {
		return ErrCreditNoAccount
	}

	if c.ContentID == uuid.Nil {
		return ErrCreditNoContent
	}

	if c.Credits < 0 {
		return ErrNegativeCredits
	}

	return nil
}
