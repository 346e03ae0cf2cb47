package progression

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/readquest/xp-api/internal/domain"
	"github.com/readquest/xp-api/internal/domain/reward"
	"github.com/readquest/xp-api/internal/platform/logger"
	"github.com/readquest/xp-api/internal/service/ledger"
	"github.com/readquest/xp-api/internal/store"
)

// Verify interface compliance at compile time
var _ ProgressionService = (*progressionServiceImpl)(nil)

const (
	// defaultBonusXP is the progression bonus paid when the speed ceiling
	// rises, absent configuration.
	defaultBonusXP = 50

	// defaultContentTimeout bounds the wait on the content collaborator.
	defaultContentTimeout = 3 * time.Second

	// progressionRequestSuffix derives the bonus leg's idempotency key
	// from the attempt's request ID, so both legs replay together.
	progressionRequestSuffix = ":progression"
)

// progressionServiceImpl implements the ProgressionService interface.
type progressionServiceImpl struct {
	ledgerSvc      ledger.LedgerService
	accountStore   store.AccountStore
	attemptStore   store.QuizAttemptStore
	creditStore    store.CommentCreditStore
	content        ContentDirectory
	rewardSvc      reward.Service
	bonusXP        int64
	contentTimeout time.Duration
	logger         *slog.Logger
}

// NewProgressionService creates a new ProgressionService implementation.
// bonusXP and contentTimeout fall back to defaults when not positive.
func NewProgressionService(
	ledgerSvc ledger.LedgerService,
	accountStore store.AccountStore,
	attemptStore store.QuizAttemptStore,
	creditStore store.CommentCreditStore,
	content ContentDirectory,
	rewardSvc reward.Service,
	bonusXP int64,
	contentTimeout time.Duration,
	logger *slog.Logger,
) ProgressionService {
	// Validate inputs
	if ledgerSvc == nil {
		panic("ledgerSvc cannot be nil")
	}
	if accountStore == nil {
		panic("accountStore cannot be nil")
	}
	if attemptStore == nil {
		panic("attemptStore cannot be nil")
	}
	if creditStore == nil {
		panic("creditStore cannot be nil")
	}
	if content == nil {
		panic("content cannot be nil")
	}
	if rewardSvc == nil {
		panic("rewardSvc cannot be nil")
	}

	if bonusXP < 1 {
		bonusXP = defaultBonusXP
	}
	if contentTimeout <= 0 {
		contentTimeout = defaultContentTimeout
	}

	// Use provided logger or create default
	if logger == nil {
		logger = slog.Default()
	}

	return &progressionServiceImpl{
		ledgerSvc:      ledgerSvc,
		accountStore:   accountStore,
		attemptStore:   attemptStore,
		creditStore:    creditStore,
		content:        content,
		rewardSvc:      rewardSvc,
		bonusXP:        bonusXP,
		contentTimeout: contentTimeout,
		logger:         logger.With(slog.String("component", "progression_service")),
	}
}

// RecordQuizAttempt implements ProgressionService.RecordQuizAttempt.
func (s *progressionServiceImpl) RecordQuizAttempt(
	ctx context.Context,
	req RecordAttemptRequest,
) (*AttemptResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if req.AccountID == uuid.Nil || req.ContentID == uuid.Nil {
		return nil, domain.ErrInvalidID
	}
	if req.ScorePct < 0 || req.ScorePct > 100 {
		return nil, domain.ErrScoreOutOfRange
	}
	if req.WPMUsed < 1 {
		return nil, domain.ErrInvalidAttemptWPM
	}

	// Bounded wait on the content collaborator, before any ledger state
	// is touched. A slow directory must not hold an account lock.
	cctx, cancel := context.WithTimeout(ctx, s.contentTimeout)
	defer cancel()

	contentMetrics, err := s.content.GetByContentID(cctx, req.ContentID)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.Warn("content metrics lookup timed out",
				slog.String("content_id", req.ContentID.String()),
				slog.Duration("timeout", s.contentTimeout))
			return nil, fmt.Errorf("%w: %v", ErrContentUnavailable, err)
		}
		if store.IsNotFoundError(err) {
			return nil, err
		}
		log.Error("failed to fetch content metrics",
			slog.String("error", err.Error()),
			slog.String("content_id", req.ContentID.String()))
		return nil, NewServiceError("record_attempt", "content metrics lookup failed", err)
	}

	var result *AttemptResult
	err = s.ledgerSvc.RunSerialized(ctx, func(ctx context.Context, tx ledger.Tx) error {
		// Lock the account first so concurrent submissions for the same
		// account serialize before the attempt number is derived.
		account, err := tx.LockAccount(ctx, req.AccountID)
		if err != nil {
			return err
		}

		if req.WPMUsed > account.MaxWPM {
			return ErrWPMAboveMax
		}

		attempts := s.attemptStore.WithTx(tx.SQL())

		count, err := attempts.CountByAccountContent(ctx, req.AccountID, req.ContentID)
		if err != nil {
			return err
		}
		attemptNumber := count + 1

		calc, err := s.rewardSvc.CalculateReward(reward.Input{
			LengthMetric:  contentMetrics.WordCount,
			ReadingLevel:  contentMetrics.ReadingLevel,
			ScorePct:      req.ScorePct,
			WPMUsed:       req.WPMUsed,
			AttemptNumber: attemptNumber,
		})
		if err != nil {
			return err
		}

		attempt, err := domain.NewQuizAttempt(
			req.AccountID,
			req.ContentID,
			attemptNumber,
			req.ScorePct,
			req.WPMUsed,
			calc.XPAwarded,
			calc.Perfect,
		)
		if err != nil {
			return err
		}

		if err := attempts.Create(ctx, attempt); err != nil {
			return err
		}

		result = &AttemptResult{
			Attempt:   attempt,
			XPAwarded: calc.XPAwarded,
			Passed:    calc.Passed,
			Perfect:   calc.Perfect,
			NewMaxWPM: account.MaxWPM,
		}

		// Failed scores and fully diminished retries record the attempt
		// but move no XP.
		if calc.XPAwarded > 0 {
			if _, err := tx.Earn(ctx, ledger.EarnRequest{
				AccountID:   req.AccountID,
				Amount:      calc.XPAwarded,
				Source:      domain.SourceQuizReward,
				Description: fmt.Sprintf("reward for quiz attempt %d", attemptNumber),
				Refs: domain.TransactionRefs{
					AttemptID: &attempt.ID,
					RequestID: req.RequestID,
				},
			}); err != nil {
				return err
			}
		}

		if calc.Perfect {
			if err := s.creditStore.WithTx(tx.SQL()).Grant(ctx, req.AccountID, req.ContentID); err != nil {
				return err
			}
			result.CreditGranted = true
		}

		// The ratchet fires only on a fresh attempt read exactly at the
		// ceiling with a perfect score. Retries never progress.
		if attemptNumber == 1 && calc.Perfect && req.WPMUsed == account.MaxWPM {
			newMax := account.MaxWPM + domain.ProgressionWPMStep

			accountsTx := s.accountStore.WithTx(tx.SQL())
			if err := accountsTx.UpdateReadingSpeed(ctx, req.AccountID, account.CurrentWPM, newMax); err != nil {
				return err
			}

			bonusRefs := domain.TransactionRefs{AttemptID: &attempt.ID}
			if req.RequestID != "" {
				bonusRefs.RequestID = req.RequestID + progressionRequestSuffix
			}

			if _, err := tx.Earn(ctx, ledger.EarnRequest{
				AccountID:   req.AccountID,
				Amount:      s.bonusXP,
				Source:      domain.SourceSpeedProgression,
				Description: fmt.Sprintf("reading speed ceiling raised to %d wpm", newMax),
				Refs:        bonusRefs,
			}); err != nil {
				return err
			}

			result.SpeedProgressed = true
			result.NewMaxWPM = newMax
			result.BonusXP = s.bonusXP
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateRequest) && req.RequestID != "" {
			log.Debug("attempt already recorded, rebuilding original outcome",
				slog.String("account_id", req.AccountID.String()),
				slog.String("request_id", req.RequestID))
			return s.replayAttempt(ctx, req)
		}

		if errors.Is(err, ErrWPMAboveMax) ||
			errors.Is(err, domain.ErrTransientConflict) ||
			store.IsNotFoundError(err) {
			return nil, err
		}

		log.Error("failed to record quiz attempt",
			slog.String("error", err.Error()),
			slog.String("account_id", req.AccountID.String()),
			slog.String("content_id", req.ContentID.String()))
		return nil, NewServiceError("record_attempt", "failed to record quiz attempt", err)
	}

	log.Info("quiz attempt recorded",
		slog.String("account_id", req.AccountID.String()),
		slog.String("content_id", req.ContentID.String()),
		slog.Int("attempt_number", result.Attempt.AttemptNumber),
		slog.Float64("score_pct", req.ScorePct),
		slog.Int64("xp_awarded", result.XPAwarded),
		slog.Bool("perfect", result.Perfect),
		slog.Bool("speed_progressed", result.SpeedProgressed))

	return result, nil
}

// replayAttempt rebuilds the outcome of an attempt that was already
// recorded under the same request ID. The reward transaction's attempt
// reference leads back to the attempt row; the presence of the bonus leg
// tells whether the ceiling rose.
func (s *progressionServiceImpl) replayAttempt(
	ctx context.Context,
	req RecordAttemptRequest,
) (*AttemptResult, error) {
	txn, err := s.ledgerSvc.GetByRequestID(ctx, req.AccountID, req.RequestID)
	if err != nil {
		return nil, NewServiceError("record_attempt", "failed to load replayed transaction", err)
	}
	if txn.AttemptID == nil {
		return nil, NewServiceError(
			"record_attempt",
			"replayed transaction carries no attempt reference",
			nil,
		)
	}

	attempt, err := s.attemptStore.GetByID(ctx, *txn.AttemptID)
	if err != nil {
		return nil, NewServiceError("record_attempt", "failed to load replayed attempt", err)
	}

	account, err := s.accountStore.GetByID(ctx, req.AccountID)
	if err != nil {
		return nil, NewServiceError("record_attempt", "failed to load account", err)
	}

	result := &AttemptResult{
		Attempt:   attempt,
		XPAwarded: attempt.XPAwarded,
		// A reward transaction exists, so the score passed.
		Passed:        true,
		Perfect:       attempt.IsPerfect,
		CreditGranted: attempt.IsPerfect,
		NewMaxWPM:     account.MaxWPM,
	}

	bonus, err := s.ledgerSvc.GetByRequestID(ctx, req.AccountID, req.RequestID+progressionRequestSuffix)
	if err == nil {
		result.SpeedProgressed = true
		result.BonusXP = bonus.Amount
	} else if !store.IsNotFoundError(err) {
		return nil, NewServiceError("record_attempt", "failed to load progression bonus", err)
	}

	return result, nil
}

// SetReadingSpeed implements ProgressionService.SetReadingSpeed. The
// update runs under the account's row lock so it cannot clobber a ceiling
// raise committing concurrently.
func (s *progressionServiceImpl) SetReadingSpeed(
	ctx context.Context,
	accountID uuid.UUID,
	wpm int,
) (*domain.Account, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if accountID == uuid.Nil {
		return nil, domain.ErrInvalidID
	}
	if wpm < 1 {
		return nil, domain.ErrInvalidReadingSpeed
	}

	var account *domain.Account
	err := s.ledgerSvc.RunSerialized(ctx, func(ctx context.Context, tx ledger.Tx) error {
		var err error
		account, err = tx.LockAccount(ctx, accountID)
		if err != nil {
			return err
		}

		if wpm > account.MaxWPM {
			return domain.ErrSpeedAboveMax
		}

		return s.accountStore.WithTx(tx.SQL()).
			UpdateReadingSpeed(ctx, accountID, wpm, account.MaxWPM)
	})
	if err != nil {
		if errors.Is(err, domain.ErrSpeedAboveMax) ||
			errors.Is(err, domain.ErrTransientConflict) ||
			store.IsNotFoundError(err) {
			return nil, err
		}

		log.Error("failed to set reading speed",
			slog.String("error", err.Error()),
			slog.String("account_id", accountID.String()),
			slog.Int("wpm", wpm))
		return nil, NewServiceError("set_reading_speed", "failed to update reading speed", err)
	}

	account.CurrentWPM = wpm

	log.Info("reading speed updated",
		slog.String("account_id", accountID.String()),
		slog.Int("current_wpm", wpm),
		slog.Int("max_wpm", account.MaxWPM))

	return account, nil
}

// ListAttempts implements ProgressionService.ListAttempts.
func (s *progressionServiceImpl) ListAttempts(
	ctx context.Context,
	accountID, contentID uuid.UUID,
) ([]*domain.QuizAttempt, error) {
	attempts, err := s.attemptStore.ListByAccountContent(ctx, accountID, contentID)
	if err != nil {
		return nil, NewServiceError("list_attempts", "failed to list attempts", err)
	}
	return attempts, nil
}
