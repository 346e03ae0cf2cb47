//go:build integration

package ledger_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/readquest/xp-api/internal/domain"
	"github.com/readquest/xp-api/internal/events"
	"github.com/readquest/xp-api/internal/platform/postgres"
	"github.com/readquest/xp-api/internal/service/ledger"
	"github.com/readquest/xp-api/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// TestSpendUnderContention drives concurrent spends against one account on
// real Postgres and checks the economy's core guarantee: with balance B and
// N concurrent spends of A where N*A > B, exactly floor(B/A) succeed, the
// rest fail with insufficient XP, and the audit trail re-derives the final
// balances exactly.
//
// The test commits real rows (the row lock only serializes across
// transactions that commit or roll back independently), so it cleans up
// after itself instead of using the rollback harness.
func TestSpendUnderContention(t *testing.T) {
	db := testdb.Connect(t)
	testdb.MigrateUp(t, db)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	accountStore := postgres.NewPostgresAccountStore(db, bcrypt.MinCost, logger)
	txStore := postgres.NewPostgresTransactionStore(db, logger)
	emitter := events.NewInMemoryEventEmitter(logger)
	svc := ledger.NewLedgerService(db, accountStore, txStore, emitter, 3, logger)

	ctx := context.Background()

	email := fmt.Sprintf("contention-%s@example.com", uuid.New().String()[:8])
	account, err := domain.NewAccount(email, "integration-test-password")
	require.NoError(t, err)
	require.NoError(t, accountStore.Create(ctx, account))
	t.Cleanup(func() {
		if _, err := db.Exec("DELETE FROM transactions WHERE account_id = $1", account.ID); err != nil {
			t.Logf("warning: failed to clean up transactions: %v", err)
		}
		if _, err := db.Exec("DELETE FROM accounts WHERE id = $1", account.ID); err != nil {
			t.Logf("warning: failed to clean up account: %v", err)
		}
	})

	// Fund through the service so the trail covers every balance change.
	_, err = svc.Earn(ctx, ledger.EarnRequest{
		AccountID:   account.ID,
		Amount:      100,
		Source:      domain.SourceQuizReward,
		Description: "initial funding",
	})
	require.NoError(t, err)

	const (
		workers     = 8
		spendAmount = 30
		wantWinners = 3 // floor(100 / 30)
	)

	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := svc.Spend(ctx, ledger.SpendRequest{
				AccountID:   account.ID,
				Amount:      spendAmount,
				Purpose:     domain.PurposeComment,
				Description: "contended spend",
				Refs:        domain.TransactionRefs{RequestID: fmt.Sprintf("contended-%d", n)},
			})
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	var succeeded, insufficient int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, domain.ErrInsufficientXP):
			insufficient++
		default:
			t.Fatalf("unexpected spend error: %v", err)
		}
	}

	assert.Equal(t, wantWinners, succeeded, "exactly floor(balance/amount) spends should win")
	assert.Equal(t, workers-wantWinners, insufficient, "every other spend should report insufficient XP")

	balance, err := svc.GetBalance(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100-wantWinners*spendAmount), balance.SpendableXP)
	assert.Equal(t, int64(100), balance.AccumulatedXP, "spends never touch the accumulated balance")

	sums, err := txStore.SumByAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, balance.SpendableXP, sums.TotalAmount, "signed trail sum should equal the spendable balance")
	assert.Equal(t, balance.AccumulatedXP, sums.EarnedTotal, "earn trail sum should equal the accumulated balance")

	// Replaying a request ID returns the original transaction and moves
	// nothing.
	first, err := svc.Spend(ctx, ledger.SpendRequest{
		AccountID:   account.ID,
		Amount:      5,
		Purpose:     domain.PurposeInteraction,
		Description: "replay check",
		Refs:        domain.TransactionRefs{RequestID: "replay-check"},
	})
	require.NoError(t, err)

	replayed, err := svc.Spend(ctx, ledger.SpendRequest{
		AccountID:   account.ID,
		Amount:      5,
		Purpose:     domain.PurposeInteraction,
		Description: "replay check",
		Refs:        domain.TransactionRefs{RequestID: "replay-check"},
	})
	require.NoError(t, err, "replaying a committed request should not fail")
	assert.Equal(t, first.ID, replayed.ID, "replay should return the original transaction")

	balance, err = svc.GetBalance(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100-wantWinners*spendAmount-5), balance.SpendableXP, "replay should not charge twice")
}
