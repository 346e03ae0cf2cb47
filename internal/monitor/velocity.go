package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/readquest/xp-api/internal/domain"
	"github.com/readquest/xp-api/internal/events"
)

// velocityEntry is one earn amount inside the rolling window.
type velocityEntry struct {
	amount int64
	at     time.Time
}

// velocityTracker keeps a per-account rolling window of earned XP, fed by
// committed-transaction events. The window is an in-memory hint: it resets on
// restart and may miss events, so a breach is always re-derived from the
// audit trail before an account is flagged.
type velocityTracker struct {
	mu      sync.Mutex
	window  time.Duration
	entries map[uuid.UUID][]velocityEntry
}

func newVelocityTracker(window time.Duration) *velocityTracker {
	return &velocityTracker{
		window:  window,
		entries: make(map[uuid.UUID][]velocityEntry),
	}
}

// Record adds an earn amount to the account's window, drops entries older
// than the window, and returns the new rolling total.
func (t *velocityTracker) Record(accountID uuid.UUID, amount int64, at, now time.Time) int64 {
	cutoff := now.Add(-t.window)

	t.mu.Lock()
	defer t.mu.Unlock()

	old := t.entries[accountID]
	kept := old[:0]
	for _, e := range old {
		if e.at.After(cutoff) {
			kept = append(kept, e)
		}
	}
	kept = append(kept, velocityEntry{amount: amount, at: at})
	t.entries[accountID] = kept

	var total int64
	for _, e := range kept {
		total += e.amount
	}
	return total
}

// Prune drops accounts whose entries have all aged out of the window, so
// quiet accounts do not pin memory between sweeps.
func (t *velocityTracker) Prune(now time.Time) {
	cutoff := now.Add(-t.window)

	t.mu.Lock()
	defer t.mu.Unlock()

	for id, list := range t.entries {
		kept := list[:0]
		for _, e := range list {
			if e.at.After(cutoff) {
				kept = append(kept, e)
			}
		}
		if len(kept) == 0 {
			delete(t.entries, id)
		} else {
			t.entries[id] = kept
		}
	}
}

// HandleEvent feeds committed earn transactions into the velocity window.
// When the window total passes the limit, the total is re-derived from the
// transaction trail and the account is flagged only if the trail confirms
// the breach. Other event types are ignored.
func (m *Monitor) HandleEvent(ctx context.Context, event *events.LedgerEvent) error {
	if event == nil || event.Type != events.EventTransactionCommitted {
		return nil
	}

	var payload events.TransactionCommittedPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		return fmt.Errorf("failed to decode transaction payload: %w", err)
	}
	if payload.Type != domain.TransactionTypeEarn {
		return nil
	}

	now := m.timeFunc()
	total := m.velocity.Record(payload.AccountID, payload.Amount, payload.OccurredAt, now)
	if total <= m.cfg.VelocityLimitXP {
		return nil
	}

	exceeded, earned, err := m.velocityExceeded(ctx, payload.AccountID)
	if err != nil {
		return fmt.Errorf("failed to confirm earn velocity: %w", err)
	}
	if exceeded {
		m.flag(ctx, payload.AccountID, domain.FlagXPVelocity,
			fmt.Sprintf("earned %d xp within %s, limit is %d",
				earned, m.cfg.VelocityWindow, m.cfg.VelocityLimitXP))
	}

	return nil
}
