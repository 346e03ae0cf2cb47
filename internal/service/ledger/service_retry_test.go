package ledger_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/readquest/xp-api/internal/domain"
	"github.com/readquest/xp-api/internal/service/ledger"
	"github.com/readquest/xp-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSerializationRetry(t *testing.T) {
	t.Parallel()

	t.Run("retries_then_succeeds", func(t *testing.T) {
		svc, dbMock, accounts, transactions, emitter := newTestService(t, 3)

		accountID := uuid.New()
		account := testAccount(accountID)

		// First attempt aborts on lock contention, second commits
		dbMock.ExpectBegin()
		dbMock.ExpectRollback()
		dbMock.ExpectBegin()
		dbMock.ExpectCommit()

		accounts.On("GetForUpdate", mock.Anything, accountID).
			Return(nil, store.ErrSerialization).Once()
		accounts.On("GetForUpdate", mock.Anything, accountID).
			Return(account, nil).Once()

		transactions.On("Create", mock.Anything, mock.AnythingOfType("*domain.Transaction")).
			Return(nil)
		accounts.On("UpdateBalances", mock.Anything, accountID, int64(2100), int64(1300)).
			Return(nil)
		emitter.On("EmitEvent", mock.Anything, mock.Anything).Return(nil)

		txn, err := svc.Earn(context.Background(), ledger.EarnRequest{
			AccountID: accountID,
			Amount:    100,
			Source:    domain.SourceQuizReward,
		})

		require.NoError(t, err, "mutation should succeed after the conflict clears")
		assert.Equal(t, int64(100), txn.Amount)
		assert.NoError(t, dbMock.ExpectationsWereMet())
		accounts.AssertExpectations(t)

		// Exactly one event for the single committed mutation
		emitter.AssertNumberOfCalls(t, "EmitEvent", 1)
	})

	t.Run("budget_exhausted", func(t *testing.T) {
		svc, dbMock, accounts, transactions, emitter := newTestService(t, 2)

		accountID := uuid.New()

		// maxRetries 2 allows three attempts in total
		for i := 0; i < 3; i++ {
			dbMock.ExpectBegin()
			dbMock.ExpectRollback()
		}

		accounts.On("GetForUpdate", mock.Anything, accountID).
			Return(nil, store.ErrSerialization)

		_, err := svc.Earn(context.Background(), ledger.EarnRequest{
			AccountID: accountID,
			Amount:    100,
			Source:    domain.SourceQuizReward,
		})

		assert.ErrorIs(t, err, domain.ErrTransientConflict)
		assert.NoError(t, dbMock.ExpectationsWereMet())
		transactions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		emitter.AssertNotCalled(t, "EmitEvent", mock.Anything, mock.Anything)
	})
}

func TestIdempotentReplay(t *testing.T) {
	t.Parallel()

	t.Run("spend_returns_original_transaction", func(t *testing.T) {
		svc, dbMock, accounts, transactions, emitter := newTestService(t, 3)

		accountID := uuid.New()
		account := testAccount(accountID)

		original := &domain.Transaction{
			ID:           uuid.New(),
			AccountID:    accountID,
			Type:         domain.TransactionTypeSpend,
			Amount:       -100,
			Source:       domain.PurposeComment,
			BalanceAfter: 1100,
			RequestID:    "req-42",
		}

		dbMock.ExpectBegin()
		dbMock.ExpectRollback()

		accounts.On("GetForUpdate", mock.Anything, accountID).Return(account, nil)
		transactions.On("Create", mock.Anything, mock.AnythingOfType("*domain.Transaction")).
			Return(store.ErrDuplicateRequest)
		transactions.On("GetByRequestID", mock.Anything, accountID, "req-42").
			Return(original, nil)

		txn, err := svc.Spend(context.Background(), ledger.SpendRequest{
			AccountID: accountID,
			Amount:    100,
			Purpose:   domain.PurposeComment,
			Refs:      domain.TransactionRefs{RequestID: "req-42"},
		})

		require.NoError(t, err, "a replayed request is not an error")
		assert.Same(t, original, txn, "the original transaction should be returned")

		// Nothing was mutated and nothing re-announced
		accounts.AssertNotCalled(
			t,
			"UpdateBalances",
			mock.Anything,
			mock.Anything,
			mock.Anything,
			mock.Anything,
		)
		emitter.AssertNotCalled(t, "EmitEvent", mock.Anything, mock.Anything)
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("duplicate_without_request_id_is_an_error", func(t *testing.T) {
		svc, dbMock, accounts, transactions, _ := newTestService(t, 3)

		accountID := uuid.New()
		account := testAccount(accountID)

		dbMock.ExpectBegin()
		dbMock.ExpectRollback()

		accounts.On("GetForUpdate", mock.Anything, accountID).Return(account, nil)
		transactions.On("Create", mock.Anything, mock.AnythingOfType("*domain.Transaction")).
			Return(store.ErrDuplicateRequest)

		_, err := svc.Earn(context.Background(), ledger.EarnRequest{
			AccountID: accountID,
			Amount:    100,
			Source:    domain.SourceQuizReward,
		})

		assert.Error(t, err)
		assert.True(t, store.IsDuplicateError(err))
		transactions.AssertNotCalled(t, "GetByRequestID", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestRunSerialized(t *testing.T) {
	t.Parallel()

	t.Run("composite_mutations_commit_together", func(t *testing.T) {
		svc, dbMock, accounts, transactions, emitter := newTestService(t, 3)

		accountID := uuid.New()
		account := testAccount(accountID)

		dbMock.ExpectBegin()
		dbMock.ExpectCommit()

		accounts.On("GetForUpdate", mock.Anything, accountID).Return(account, nil)
		transactions.On("Create", mock.Anything, mock.AnythingOfType("*domain.Transaction")).
			Return(nil)
		accounts.On("UpdateBalances", mock.Anything, accountID, mock.Anything, mock.Anything).
			Return(nil)
		emitter.On("EmitEvent", mock.Anything, mock.Anything).Return(nil)

		err := svc.RunSerialized(context.Background(), func(ctx context.Context, tx ledger.Tx) error {
			require.NotNil(t, tx.SQL(), "callers can bind their own stores to the transaction")

			if _, err := tx.Earn(ctx, ledger.EarnRequest{
				AccountID: accountID,
				Amount:    1000,
				Source:    domain.SourceQuizReward,
			}); err != nil {
				return err
			}

			_, err := tx.Earn(ctx, ledger.EarnRequest{
				AccountID: accountID,
				Amount:    50,
				Source:    domain.SourceSpeedProgression,
			})
			return err
		})

		require.NoError(t, err)
		assert.NoError(t, dbMock.ExpectationsWereMet())

		// Both mutations announce only after the shared commit
		emitter.AssertNumberOfCalls(t, "EmitEvent", 2)
	})

	t.Run("error_rolls_back_everything", func(t *testing.T) {
		svc, dbMock, accounts, transactions, emitter := newTestService(t, 3)

		accountID := uuid.New()
		account := testAccount(accountID)

		dbMock.ExpectBegin()
		dbMock.ExpectRollback()

		accounts.On("GetForUpdate", mock.Anything, accountID).Return(account, nil)
		transactions.On("Create", mock.Anything, mock.AnythingOfType("*domain.Transaction")).
			Return(nil)
		accounts.On("UpdateBalances", mock.Anything, accountID, mock.Anything, mock.Anything).
			Return(nil)

		failure := errors.New("attempt insert failed")
		err := svc.RunSerialized(context.Background(), func(ctx context.Context, tx ledger.Tx) error {
			if _, err := tx.Earn(ctx, ledger.EarnRequest{
				AccountID: accountID,
				Amount:    1000,
				Source:    domain.SourceQuizReward,
			}); err != nil {
				return err
			}
			return failure
		})

		assert.ErrorIs(t, err, failure)
		assert.NoError(t, dbMock.ExpectationsWereMet())

		// The earn inside the failed transaction must not announce
		emitter.AssertNotCalled(t, "EmitEvent", mock.Anything, mock.Anything)
	})

	t.Run("lock_account_reads_current_state", func(t *testing.T) {
		svc, dbMock, accounts, _, _ := newTestService(t, 3)

		accountID := uuid.New()
		account := testAccount(accountID)

		dbMock.ExpectBegin()
		dbMock.ExpectCommit()

		accounts.On("GetForUpdate", mock.Anything, accountID).Return(account, nil)

		err := svc.RunSerialized(context.Background(), func(ctx context.Context, tx ledger.Tx) error {
			locked, err := tx.LockAccount(ctx, accountID)
			if err != nil {
				return err
			}
			assert.Equal(t, account.MaxWPM, locked.MaxWPM)
			return nil
		})

		require.NoError(t, err)
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})
}
