package social

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/readquest/xp-api/internal/domain"
	"github.com/readquest/xp-api/internal/domain/reward"
	"github.com/readquest/xp-api/internal/platform/logger"
	"github.com/readquest/xp-api/internal/service/ledger"
	"github.com/readquest/xp-api/internal/store"
)

// Verify interface compliance at compile time
var _ SocialService = (*socialServiceImpl)(nil)

// authorRequestSuffix derives the author leg's idempotency key from the
// actor's request ID, so a replay restores both legs of an interaction.
const authorRequestSuffix = ":author"

// socialServiceImpl implements the SocialService interface.
type socialServiceImpl struct {
	ledgerSvc    ledger.LedgerService
	attemptStore store.QuizAttemptStore
	creditStore  store.CommentCreditStore
	costs        Costs
	passingScore float64
	logger       *slog.Logger
}

// NewSocialService creates a new SocialService implementation. Zero or
// negative prices in costs fall back to DefaultCosts; a non-positive
// passingScore falls back to the reward engine's default threshold.
func NewSocialService(
	ledgerSvc ledger.LedgerService,
	attemptStore store.QuizAttemptStore,
	creditStore store.CommentCreditStore,
	costs Costs,
	passingScore float64,
	logger *slog.Logger,
) SocialService {
	// Validate inputs
	if ledgerSvc == nil {
		panic("ledgerSvc cannot be nil")
	}
	if attemptStore == nil {
		panic("attemptStore cannot be nil")
	}
	if creditStore == nil {
		panic("creditStore cannot be nil")
	}

	if passingScore <= 0 {
		passingScore = reward.NewDefaultParams().PassingScorePct
	}

	// Use provided logger or create default
	if logger == nil {
		logger = slog.Default()
	}

	return &socialServiceImpl{
		ledgerSvc:    ledgerSvc,
		attemptStore: attemptStore,
		creditStore:  creditStore,
		costs:        costs.withDefaults(),
		passingScore: passingScore,
		logger:       logger.With(slog.String("component", "social_service")),
	}
}

// AuthorizeComment implements SocialService.AuthorizeComment.
func (s *socialServiceImpl) AuthorizeComment(
	ctx context.Context,
	req AuthorizeCommentRequest,
) (*CommentAuthorization, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if req.AccountID == uuid.Nil || req.ContentID == uuid.Nil {
		return nil, domain.ErrInvalidID
	}

	passed, err := s.attemptStore.HasPassingAttempt(ctx, req.AccountID, req.ContentID, s.passingScore)
	if err != nil {
		log.Error("failed to check comment unlock",
			slog.String("error", err.Error()),
			slog.String("account_id", req.AccountID.String()),
			slog.String("content_id", req.ContentID.String()))
		return nil, NewServiceError("authorize_comment", "failed to check comment unlock", err)
	}
	if !passed {
		return nil, domain.ErrCommentLocked
	}

	cost := s.costs.Comment
	purpose := domain.PurposeComment
	description := "comment posted"
	if req.IsReply {
		cost = s.costs.Reply
		purpose = domain.PurposeReply
		description = "reply posted"
	}

	var auth *CommentAuthorization
	err = s.ledgerSvc.RunSerialized(ctx, func(ctx context.Context, tx ledger.Tx) error {
		// Try the free credit first, inside the same transaction as the
		// fallback charge, so concurrent comments cannot both consume one
		// credit or both skip the charge.
		used, err := s.creditStore.WithTx(tx.SQL()).Consume(ctx, req.AccountID, req.ContentID)
		if err != nil {
			return err
		}
		if used {
			auth = &CommentAuthorization{CreditUsed: true}
			return nil
		}

		txn, err := tx.Spend(ctx, ledger.SpendRequest{
			AccountID:   req.AccountID,
			Amount:      cost,
			Purpose:     purpose,
			Description: description,
			Refs: domain.TransactionRefs{
				CommentID: req.CommentID,
				RequestID: req.RequestID,
			},
		})
		if err != nil {
			return err
		}

		auth = &CommentAuthorization{Charged: cost, Transaction: txn}
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateRequest) && req.RequestID != "" {
			txn, gerr := s.ledgerSvc.GetByRequestID(ctx, req.AccountID, req.RequestID)
			if gerr != nil {
				return nil, NewServiceError("authorize_comment", "failed to load replayed charge", gerr)
			}
			log.Debug("comment already charged, returning original transaction",
				slog.String("account_id", req.AccountID.String()),
				slog.String("request_id", req.RequestID))
			return &CommentAuthorization{Charged: -txn.Amount, Transaction: txn}, nil
		}

		if passthrough(err) {
			return nil, err
		}

		log.Error("failed to authorize comment",
			slog.String("error", err.Error()),
			slog.String("account_id", req.AccountID.String()),
			slog.String("content_id", req.ContentID.String()))
		return nil, NewServiceError("authorize_comment", "failed to authorize comment", err)
	}

	log.Info("comment authorized",
		slog.String("account_id", req.AccountID.String()),
		slog.String("content_id", req.ContentID.String()),
		slog.Bool("is_reply", req.IsReply),
		slog.Bool("credit_used", auth.CreditUsed),
		slog.Int64("charged", auth.Charged))

	return auth, nil
}

// RecordInteraction implements SocialService.RecordInteraction.
func (s *socialServiceImpl) RecordInteraction(
	ctx context.Context,
	req RecordInteractionRequest,
) (*InteractionResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if req.ActorID == uuid.Nil || req.AuthorID == uuid.Nil {
		return nil, domain.ErrInvalidID
	}
	if !req.Kind.IsValid() {
		return nil, domain.ErrInvalidInteractionKind
	}
	if req.ActorID == req.AuthorID {
		return nil, domain.ErrSelfInteraction
	}

	cost, err := s.costs.ForInteraction(req.Kind)
	if err != nil {
		return nil, err
	}

	purpose := domain.PurposeInteraction
	description := fmt.Sprintf("%s interaction given", req.Kind)
	if req.Kind.IsReport() {
		purpose = domain.PurposeReport
		description = fmt.Sprintf("%s filed", req.Kind)
	}

	// The two legs touch different accounts, so they run as independent
	// serialized transactions rather than competing for two row locks in
	// one. The actor's charge replays by request ID, which keeps a retry
	// after a mid-operation failure from charging twice.
	actorTxn, err := s.ledgerSvc.Spend(ctx, ledger.SpendRequest{
		AccountID:   req.ActorID,
		Amount:      cost,
		Purpose:     purpose,
		Description: description,
		Refs: domain.TransactionRefs{
			CommentID: req.CommentID,
			RequestID: req.RequestID,
		},
	})
	if err != nil {
		if passthrough(err) {
			return nil, err
		}
		log.Error("failed to charge interaction",
			slog.String("error", err.Error()),
			slog.String("actor_id", req.ActorID.String()),
			slog.String("kind", string(req.Kind)))
		return nil, NewServiceError("record_interaction", "failed to charge the interaction", err)
	}

	result := &InteractionResult{
		Kind:             req.Kind,
		Cost:             cost,
		ActorTransaction: actorTxn,
	}

	if !req.Kind.IsReport() {
		if share := cost / 2; share > 0 {
			refs := domain.TransactionRefs{CommentID: req.CommentID}
			if req.RequestID != "" {
				refs.RequestID = req.RequestID + authorRequestSuffix
			}

			authorTxn, err := s.ledgerSvc.Earn(ctx, ledger.EarnRequest{
				AccountID:   req.AuthorID,
				Amount:      share,
				Source:      domain.SourceInteractionReceived,
				Description: fmt.Sprintf("%s interaction received", req.Kind),
				Refs:        refs,
			})
			if err != nil {
				// The actor's charge has committed. Surfacing the failure
				// lets a retry with the same request ID replay the charge
				// and finish this leg.
				log.Error("failed to credit author share after actor charge",
					slog.String("error", err.Error()),
					slog.String("actor_id", req.ActorID.String()),
					slog.String("author_id", req.AuthorID.String()),
					slog.String("kind", string(req.Kind)))
				if passthrough(err) {
					return nil, err
				}
				return nil, NewServiceError("record_interaction", "failed to credit the author's share", err)
			}

			result.AuthorShare = share
			result.AuthorTransaction = authorTxn
		}
	}

	log.Info("interaction recorded",
		slog.String("actor_id", req.ActorID.String()),
		slog.String("author_id", req.AuthorID.String()),
		slog.String("kind", string(req.Kind)),
		slog.Int64("cost", cost),
		slog.Int64("author_share", result.AuthorShare))

	return result, nil
}

// GetCredits implements SocialService.GetCredits.
func (s *socialServiceImpl) GetCredits(
	ctx context.Context,
	accountID, contentID uuid.UUID,
) (*domain.CommentCredit, error) {
	if accountID == uuid.Nil || contentID == uuid.Nil {
		return nil, domain.ErrInvalidID
	}

	credit, err := s.creditStore.Get(ctx, accountID, contentID)
	if err != nil {
		return nil, NewServiceError("get_credits", "failed to load comment credits", err)
	}
	return credit, nil
}

// passthrough reports whether err is part of the operation's contract and
// must reach the caller unwrapped.
func passthrough(err error) bool {
	return errors.Is(err, domain.ErrInsufficientXP) ||
		errors.Is(err, domain.ErrSpendingFrozen) ||
		errors.Is(err, domain.ErrTransientConflict) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		store.IsNotFoundError(err)
}
