// Package monitor runs the economy's detective checks: a periodic sweep that
// re-derives every account's balances from the transaction trail, and an
// event-fed velocity tracker that watches for implausible earning rates.
// Findings are logged, flagged, and counted, never auto-corrected.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/readquest/xp-api/internal/domain"
	"github.com/readquest/xp-api/internal/events"
	"github.com/readquest/xp-api/internal/platform/logger"
	"github.com/readquest/xp-api/internal/platform/metrics"
	"github.com/readquest/xp-api/internal/store"
)

// Config holds configuration for the economy monitor.
type Config struct {
	// ReconcileInterval determines how often the reconciliation sweep runs.
	ReconcileInterval time.Duration

	// VelocityWindow is the rolling window over which earned XP is summed
	// for the velocity check.
	VelocityWindow time.Duration

	// VelocityLimitXP is the earned-XP total within the window above which
	// an account is flagged for review.
	VelocityLimitXP int64

	// FreezeOnAnomaly freezes an account's spending when a reconciliation
	// check fails. Velocity findings never freeze; they are review-only.
	FreezeOnAnomaly bool

	// PageSize determines how many accounts one sweep iteration loads.
	PageSize int
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		ReconcileInterval: 5 * time.Minute,
		VelocityWindow:    10 * time.Minute,
		VelocityLimitXP:   10000,
		FreezeOnAnomaly:   false,
		PageSize:          100,
	}
}

// Monitor owns the background reconciliation sweep and the velocity tracker.
// It implements events.EventHandler so it can be registered on the emitter
// that carries committed-transaction events.
type Monitor struct {
	accountStore store.AccountStore
	txStore      store.TransactionStore
	flagStore    store.AccountFlagStore
	emitter      events.EventEmitter
	cfg          Config
	velocity     *velocityTracker
	logger       *slog.Logger
	timeFunc     func() time.Time // Injectable for testing

	// flagged tracks (account, kind) pairs already flagged by this process
	// so a persistent mismatch does not append a new row on every sweep.
	// A restart re-arms all checks.
	mu      sync.Mutex
	flagged map[string]struct{}

	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// Ensure Monitor can be registered on the event emitter
var _ events.EventHandler = (*Monitor)(nil)

// NewMonitor creates a new Monitor. The emitter may be nil, in which case
// flag events are not published. Panics if any store is nil.
func NewMonitor(
	accountStore store.AccountStore,
	txStore store.TransactionStore,
	flagStore store.AccountFlagStore,
	emitter events.EventEmitter,
	cfg Config,
	log *slog.Logger,
) *Monitor {
	if accountStore == nil {
		panic("accountStore cannot be nil")
	}
	if txStore == nil {
		panic("txStore cannot be nil")
	}
	if flagStore == nil {
		panic("flagStore cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	defaults := DefaultConfig()
	if cfg.ReconcileInterval <= 0 {
		cfg.ReconcileInterval = defaults.ReconcileInterval
	}
	if cfg.VelocityWindow <= 0 {
		cfg.VelocityWindow = defaults.VelocityWindow
	}
	if cfg.VelocityLimitXP <= 0 {
		cfg.VelocityLimitXP = defaults.VelocityLimitXP
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaults.PageSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Monitor{
		accountStore: accountStore,
		txStore:      txStore,
		flagStore:    flagStore,
		emitter:      emitter,
		cfg:          cfg,
		velocity:     newVelocityTracker(cfg.VelocityWindow),
		logger:       log.With(slog.String("component", "economy_monitor")),
		timeFunc:     time.Now,
		flagged:      make(map[string]struct{}),
		ctx:          ctx,
		cancelFunc:   cancel,
	}
}

// Start begins the periodic reconciliation sweep.
func (m *Monitor) Start() {
	m.wg.Add(1)
	go m.sweepLoop()
}

// Stop cancels the background loop and waits for it to finish.
func (m *Monitor) Stop() {
	m.cancelFunc()
	m.wg.Wait()
}

// sweepLoop runs the reconciliation sweep on a ticker until Stop is called.
func (m *Monitor) sweepLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.ReconcileInterval)
	defer ticker.Stop()

	m.logger.Info("economy monitor started",
		"reconcile_interval", m.cfg.ReconcileInterval,
		"velocity_window", m.cfg.VelocityWindow,
		"velocity_limit_xp", m.cfg.VelocityLimitXP,
		"freeze_on_anomaly", m.cfg.FreezeOnAnomaly)

	for {
		select {
		case <-m.ctx.Done():
			m.logger.Debug("economy monitor stopping")
			return

		case <-ticker.C:
			m.velocity.Prune(m.timeFunc())
			if err := m.RunSweep(m.ctx); err != nil {
				m.logger.Error("reconciliation sweep failed", "error", err)
			}
		}
	}
}

// RunSweep reconciles every account's stored balances against its transaction
// trail, one page at a time. Per-account failures are logged and skipped so
// one bad row cannot stall the sweep; only infrastructure failures abort it.
func (m *Monitor) RunSweep(ctx context.Context) error {
	start := m.timeFunc()
	checked := 0
	findings := 0

	for offset := 0; ; offset += m.cfg.PageSize {
		accounts, err := m.accountStore.List(ctx, m.cfg.PageSize, offset)
		if err != nil {
			return fmt.Errorf("failed to list accounts: %w", err)
		}
		if len(accounts) == 0 {
			break
		}

		for _, account := range accounts {
			if err := ctx.Err(); err != nil {
				return err
			}

			n, err := m.checkAccount(ctx, account)
			if err != nil {
				m.logger.Error("account reconciliation failed",
					"account_id", account.ID,
					"error", err)
				continue
			}
			checked++
			findings += n
		}

		if len(accounts) < m.cfg.PageSize {
			break
		}
	}

	elapsed := m.timeFunc().Sub(start)
	metrics.ObserveReconcileSweep(elapsed.Seconds())

	m.logger.Info("reconciliation sweep finished",
		"accounts_checked", checked,
		"findings", findings,
		"elapsed", elapsed)

	return nil
}

// checkAccount runs every detective check against one account and returns the
// number of findings.
func (m *Monitor) checkAccount(ctx context.Context, account *domain.Account) (int, error) {
	sums, err := m.txStore.SumByAccount(ctx, account.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to sum transactions: %w", err)
	}

	findings := 0

	if account.SpendableXP < 0 {
		findings++
		m.flag(ctx, account.ID, domain.FlagNegativeBalance,
			fmt.Sprintf("spendable balance is %d", account.SpendableXP))
	}

	if sums.TotalAmount != account.SpendableXP {
		findings++
		m.flag(ctx, account.ID, domain.FlagBalanceMismatch,
			fmt.Sprintf("stored spendable %d does not match ledger sum %d",
				account.SpendableXP, sums.TotalAmount))
	}

	if sums.EarnedTotal != account.AccumulatedXP {
		findings++
		m.flag(ctx, account.ID, domain.FlagAccumulatedMismatch,
			fmt.Sprintf("stored accumulated %d does not match ledger earn sum %d",
				account.AccumulatedXP, sums.EarnedTotal))
	}

	exceeded, earned, err := m.velocityExceeded(ctx, account.ID)
	if err != nil {
		m.logger.Warn("velocity re-check failed",
			"account_id", account.ID,
			"error", err)
	} else if exceeded {
		findings++
		m.flag(ctx, account.ID, domain.FlagXPVelocity,
			fmt.Sprintf("earned %d xp within %s, limit is %d",
				earned, m.cfg.VelocityWindow, m.cfg.VelocityLimitXP))
	}

	return findings, nil
}

// velocityExceeded re-derives the account's earned total over the rolling
// window from the audit trail.
func (m *Monitor) velocityExceeded(ctx context.Context, accountID uuid.UUID) (bool, int64, error) {
	since := m.timeFunc().Add(-m.cfg.VelocityWindow)
	earned, err := m.txStore.SumEarnedSince(ctx, accountID, since)
	if err != nil {
		return false, 0, err
	}
	return earned > m.cfg.VelocityLimitXP, earned, nil
}

// flag records one detective finding: structured error log, account_flags
// row, Prometheus counter, optional spending freeze, and a flagged event.
// Repeat findings for the same (account, kind) are suppressed for the life
// of the process; the first detection is the operator's signal.
func (m *Monitor) flag(ctx context.Context, accountID uuid.UUID, kind domain.FlagKind, detail string) {
	key := accountID.String() + "/" + string(kind)

	m.mu.Lock()
	if _, seen := m.flagged[key]; seen {
		m.mu.Unlock()
		m.logger.Debug("suppressing repeat flag",
			"account_id", accountID,
			"kind", kind)
		return
	}
	m.flagged[key] = struct{}{}
	m.mu.Unlock()

	log := logger.FromContextOrDefault(ctx, m.logger)
	log.Error("economy invariant violated",
		"account_id", accountID,
		"kind", kind,
		"detail", detail)

	f, err := domain.NewAccountFlag(accountID, kind, detail)
	if err != nil {
		log.Error("failed to build account flag",
			"account_id", accountID,
			"kind", kind,
			"error", err)
		return
	}

	if err := m.flagStore.Create(ctx, f); err != nil {
		log.Error("failed to persist account flag",
			"account_id", accountID,
			"kind", kind,
			"error", err)
	}
	metrics.RecordAccountFlag(string(kind))

	if m.cfg.FreezeOnAnomaly && kind != domain.FlagXPVelocity {
		if err := m.accountStore.SetSpendingFrozen(ctx, accountID, true); err != nil {
			log.Error("failed to freeze account spending",
				"account_id", accountID,
				"error", err)
		} else {
			log.Warn("account spending frozen",
				"account_id", accountID,
				"kind", kind)
		}
	}

	if m.emitter != nil {
		event, err := events.NewAccountFlaggedEvent(f)
		if err != nil {
			log.Warn("failed to build flag event",
				"account_id", accountID,
				"error", err)
			return
		}
		if err := m.emitter.EmitEvent(ctx, event); err != nil {
			log.Warn("failed to emit flag event",
				"account_id", accountID,
				"error", err)
		}
	}
}
