package social

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/readquest/xp-api/internal/domain"
)

// Costs holds the XP prices of the social actions. All values are in
// spendable XP; the author's share of an interaction is always half the
// interaction's cost, rounded down.
type Costs struct {
	Comment int64 `json:"comment"`
	Reply   int64 `json:"reply"`
	Bronze  int64 `json:"bronze"`
	Silver  int64 `json:"silver"`
	Gold    int64 `json:"gold"`
}

// DefaultCosts returns the standard pricing: comments 100, replies 50,
// bronze/silver/gold interactions 5/15/30. Reports are priced at the same
// tiers as the matching interaction.
func DefaultCosts() Costs {
	return Costs{
		Comment: 100,
		Reply:   50,
		Bronze:  5,
		Silver:  15,
		Gold:    30,
	}
}

// ForInteraction returns the cost of the given interaction kind. Report
// kinds are priced at their severity's tier.
func (c Costs) ForInteraction(kind domain.InteractionKind) (int64, error) {
	switch kind {
	case domain.InteractionBronze, domain.InteractionReportMinor:
		return c.Bronze, nil
	case domain.InteractionSilver, domain.InteractionReportModerate:
		return c.Silver, nil
	case domain.InteractionGold, domain.InteractionReportSevere:
		return c.Gold, nil
	default:
		return 0, domain.ErrInvalidInteractionKind
	}
}

// withDefaults fills non-positive prices from DefaultCosts.
func (c Costs) withDefaults() Costs {
	def := DefaultCosts()
	if c.Comment < 1 {
		c.Comment = def.Comment
	}
	if c.Reply < 1 {
		c.Reply = def.Reply
	}
	if c.Bronze < 1 {
		c.Bronze = def.Bronze
	}
	if c.Silver < 1 {
		c.Silver = def.Silver
	}
	if c.Gold < 1 {
		c.Gold = def.Gold
	}
	return c
}

// AuthorizeCommentRequest asks to charge an account for posting a comment
// or reply on a piece of content.
type AuthorizeCommentRequest struct {
	// AccountID is the account posting the comment.
	AccountID uuid.UUID
	// ContentID is the content being commented on.
	ContentID uuid.UUID
	// IsReply selects the reply price instead of the top-level comment
	// price.
	IsReply bool
	// CommentID optionally links the charge to the comment entity managed
	// by the content subsystem.
	CommentID *uuid.UUID
	// RequestID makes the charge idempotent when set. A free-credit
	// authorization writes no ledger row and is not covered by replay.
	RequestID string
}

// CommentAuthorization is the outcome of a comment charge. When a free
// comment credit covered the post, Charged is zero, CreditUsed is true and
// Transaction is nil.
type CommentAuthorization struct {
	Charged     int64               `json:"charged"`
	CreditUsed  bool                `json:"credit_used"`
	Transaction *domain.Transaction `json:"transaction,omitempty"`
}

// RecordInteractionRequest asks to charge an actor for an interaction on
// another account's comment, crediting the comment's author their share.
type RecordInteractionRequest struct {
	// ActorID is the account giving the interaction and paying its cost.
	ActorID uuid.UUID
	// AuthorID is the account that wrote the comment. It receives half
	// the cost for bronze/silver/gold interactions and nothing for
	// reports.
	AuthorID uuid.UUID
	// Kind is the interaction kind (bronze/silver/gold or a report tier).
	Kind domain.InteractionKind
	// CommentID optionally links both ledger legs to the comment.
	CommentID *uuid.UUID
	// RequestID makes the charge idempotent when set. The author's leg
	// derives its own key from it, so a replay restores both legs.
	RequestID string
}

// InteractionResult reports both ledger legs of a recorded interaction.
// AuthorTransaction is nil for reports, which award the author nothing.
type InteractionResult struct {
	Kind              domain.InteractionKind `json:"kind"`
	Cost              int64                  `json:"cost"`
	AuthorShare       int64                  `json:"author_share"`
	ActorTransaction  *domain.Transaction    `json:"actor_transaction"`
	AuthorTransaction *domain.Transaction    `json:"author_transaction,omitempty"`
}

// SocialService prices the social surface of the platform: comments,
// replies, bronze/silver/gold interactions and reports. It owns no social
// content; it only authorizes and records the XP movements those actions
// cause.
type SocialService interface {
	// AuthorizeComment charges the account for posting a comment or reply
	// on the content. A free comment credit for that content is consumed
	// in preference to charging XP; credit and charge are decided inside
	// one serialized transaction so a credit cannot be double-spent.
	//
	// Error handling:
	//   - domain.ErrCommentLocked when the account has no passing quiz
	//     attempt on the content
	//   - *domain.InsufficientXPError (matches domain.ErrInsufficientXP)
	//     when no credit is available and the balance is too low
	//   - domain.ErrSpendingFrozen when the account is frozen
	//   - store.ErrAccountNotFound when the account does not exist
	//   - domain.ErrTransientConflict when the retry budget ran out
	AuthorizeComment(ctx context.Context, req AuthorizeCommentRequest) (*CommentAuthorization, error)

	// RecordInteraction charges the actor for an interaction on the
	// author's comment and credits the author half the cost. Reports
	// charge the actor at the matching tier but award the author nothing.
	// The two ledger legs are independent serialized transactions; when
	// RequestID is set a retry replays the actor's charge instead of
	// charging twice and then completes the author's leg.
	//
	// Error handling:
	//   - domain.ErrSelfInteraction when actor and author are the same
	//   - domain.ErrInvalidInteractionKind for an unknown kind
	//   - *domain.InsufficientXPError / domain.ErrSpendingFrozen /
	//     store.ErrAccountNotFound / domain.ErrTransientConflict as on
	//     AuthorizeComment
	RecordInteraction(ctx context.Context, req RecordInteractionRequest) (*InteractionResult, error)

	// GetCredits reports the account's free comment credits on the
	// content. Accounts with no credit row get a zero-credit result.
	GetCredits(ctx context.Context, accountID, contentID uuid.UUID) (*domain.CommentCredit, error)
}

// ServiceError wraps errors from the social service with the operation
// that failed, so consumers can differentiate error sites with errors.As
// instead of string matching.
type ServiceError struct {
	// Operation is the operation that failed (e.g. "authorize_comment")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("social %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("social %s failed: %s", e.Operation, e.Message)
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
