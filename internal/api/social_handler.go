package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/readquest/xp-api/internal/api/shared"
	"github.com/readquest/xp-api/internal/domain"
	"github.com/readquest/xp-api/internal/platform/logger"
	"github.com/readquest/xp-api/internal/service/social"
)

// AuthorizeCommentRequest is the payload for charging a comment or reply.
type AuthorizeCommentRequest struct {
	ContentID string  `json:"content_id" validate:"required,uuid"`
	IsReply   bool    `json:"is_reply"`
	CommentID *string `json:"comment_id" validate:"omitempty,uuid"`
	RequestID string  `json:"request_id" validate:"required,max=64"`
}

// CommentAuthorizationResponse is the outcome of a comment charge. When a
// free credit covered the post, Charged is zero and Transaction is absent.
type CommentAuthorizationResponse struct {
	Charged     int64                `json:"charged"`
	CreditUsed  bool                 `json:"credit_used"`
	Transaction *TransactionResponse `json:"transaction,omitempty"`
}

// RecordInteractionRequest is the payload for charging an interaction or
// report on another account's comment.
type RecordInteractionRequest struct {
	AuthorID  string  `json:"author_id"  validate:"required,uuid"`
	Kind      string  `json:"kind"       validate:"required"`
	CommentID *string `json:"comment_id" validate:"omitempty,uuid"`
	RequestID string  `json:"request_id" validate:"required,max=64"`
}

// InteractionResponse reports both ledger legs of a recorded interaction.
// AuthorTransaction is absent for reports.
type InteractionResponse struct {
	Kind              string               `json:"kind"`
	Cost              int64                `json:"cost"`
	AuthorShare       int64                `json:"author_share"`
	ActorTransaction  *TransactionResponse `json:"actor_transaction"`
	AuthorTransaction *TransactionResponse `json:"author_transaction,omitempty"`
}

// CommentCreditResponse reports an account's free comment credits on one
// piece of content.
type CommentCreditResponse struct {
	AccountID string    `json:"account_id"`
	ContentID string    `json:"content_id"`
	Credits   int       `json:"credits"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SocialHandler handles comment charge, interaction, and credit HTTP
// requests.
type SocialHandler struct {
	socialService social.SocialService
	logger        *slog.Logger
}

// NewSocialHandler creates a new SocialHandler.
func NewSocialHandler(socialService social.SocialService, logger *slog.Logger) *SocialHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for SocialHandler")
	}

	return &SocialHandler{
		socialService: socialService,
		logger:        logger.With(slog.String("component", "social_handler")),
	}
}

// AuthorizeComment handles POST /comments/authorize requests.
// A free comment credit for the content is consumed before any XP is
// charged.
func (h *SocialHandler) AuthorizeComment(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	accountID, ok := requireAccountID(w, r)
	if !ok {
		return
	}

	var req AuthorizeCommentRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	contentID, err := uuid.Parse(req.ContentID)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid content ID format")
		return
	}

	commentID, err := parseOptionalUUID(req.CommentID)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid comment ID format")
		return
	}

	auth, err := h.socialService.AuthorizeComment(r.Context(), social.AuthorizeCommentRequest{
		AccountID: accountID,
		ContentID: contentID,
		IsReply:   req.IsReply,
		CommentID: commentID,
		RequestID: req.RequestID,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to authorize comment")
		return
	}

	log.Debug("comment authorized",
		slog.String("account_id", accountID.String()),
		slog.String("content_id", contentID.String()),
		slog.Int64("charged", auth.Charged),
		slog.Bool("credit_used", auth.CreditUsed))
	shared.RespondWithJSON(w, r, http.StatusOK, CommentAuthorizationResponse{
		Charged:     auth.Charged,
		CreditUsed:  auth.CreditUsed,
		Transaction: optionalTransaction(auth.Transaction),
	})
}

// RecordInteraction handles POST /interactions requests.
// The actor pays the interaction's cost; the comment's author receives
// half of it, except for reports.
func (h *SocialHandler) RecordInteraction(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	actorID, ok := requireAccountID(w, r)
	if !ok {
		return
	}

	var req RecordInteractionRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	authorID, err := uuid.Parse(req.AuthorID)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid author ID format")
		return
	}

	commentID, err := parseOptionalUUID(req.CommentID)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid comment ID format")
		return
	}

	result, err := h.socialService.RecordInteraction(r.Context(), social.RecordInteractionRequest{
		ActorID:   actorID,
		AuthorID:  authorID,
		Kind:      domain.InteractionKind(req.Kind),
		CommentID: commentID,
		RequestID: req.RequestID,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to record interaction")
		return
	}

	log.Debug("interaction recorded",
		slog.String("actor_id", actorID.String()),
		slog.String("author_id", authorID.String()),
		slog.String("kind", string(result.Kind)),
		slog.Int64("cost", result.Cost))
	shared.RespondWithJSON(w, r, http.StatusOK, InteractionResponse{
		Kind:              string(result.Kind),
		Cost:              result.Cost,
		AuthorShare:       result.AuthorShare,
		ActorTransaction:  optionalTransaction(result.ActorTransaction),
		AuthorTransaction: optionalTransaction(result.AuthorTransaction),
	})
}

// GetCredits handles GET /credits requests.
// It reports the authenticated account's free comment credits on the
// content named by the content_id query parameter.
func (h *SocialHandler) GetCredits(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccountID(w, r)
	if !ok {
		return
	}

	contentID, err := getQueryUUID(r, "content_id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	credit, err := h.socialService.GetCredits(r.Context(), accountID, contentID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get comment credits")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, CommentCreditResponse{
		AccountID: credit.AccountID.String(),
		ContentID: credit.ContentID.String(),
		Credits:   credit.Credits,
		UpdatedAt: credit.UpdatedAt,
	})
}

// parseOptionalUUID parses a UUID from an optional string field, returning
// nil when the field is absent or empty.
func parseOptionalUUID(s *string) (*uuid.UUID, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// optionalTransaction converts an optional domain transaction to its
// response form, preserving absence.
func optionalTransaction(txn *domain.Transaction) *TransactionResponse {
	if txn == nil {
		return nil
	}
	resp := transactionToResponse(txn)
	return &resp
}
