package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/readquest/xp-api/internal/config"
	"github.com/readquest/xp-api/internal/domain/reward"
	"github.com/readquest/xp-api/internal/events"
	"github.com/readquest/xp-api/internal/monitor"
	"github.com/readquest/xp-api/internal/platform/postgres"
	"github.com/readquest/xp-api/internal/service/auth"
	"github.com/readquest/xp-api/internal/service/feature"
	"github.com/readquest/xp-api/internal/service/ledger"
	"github.com/readquest/xp-api/internal/service/progression"
	"github.com/readquest/xp-api/internal/service/social"
	"github.com/readquest/xp-api/internal/store"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	// Configuration
	config *config.Config

	// Core services
	logger *slog.Logger
	db     *sql.DB

	// Stores (using interfaces for proper abstraction)
	accountStore store.AccountStore
	txStore      store.TransactionStore
	attemptStore store.QuizAttemptStore
	creditStore  store.CommentCreditStore
	featureStore store.FeatureStore
	flagStore    store.AccountFlagStore
	contentStore store.ContentMetricsStore

	// Service interfaces
	jwtService         auth.JWTService
	passwordVerifier   auth.PasswordVerifier
	rewardService      reward.Service
	ledgerService      ledger.LedgerService
	progressionService progression.ProgressionService
	socialService      social.SocialService
	featureService     feature.FeatureService

	// Event system
	eventEmitter events.EventEmitter

	// Background economy monitor
	monitor *monitor.Monitor
}

// newApplication creates a new application instance with all dependencies initialized.
// It accepts core dependencies like configuration, logger, and database connection that
// must be established before application initialization.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	// Initialize JWT service
	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	// Initialize password verifier
	app.passwordVerifier = auth.NewBcryptVerifier()

	// Initialize stores
	app.accountStore = postgres.NewPostgresAccountStore(db, cfg.Auth.BCryptCost, logger)
	app.txStore = postgres.NewPostgresTransactionStore(db, logger)
	app.attemptStore = postgres.NewPostgresQuizAttemptStore(db, logger)
	app.creditStore = postgres.NewPostgresCommentCreditStore(db, logger)
	app.featureStore = postgres.NewPostgresFeatureStore(db, logger)
	app.flagStore = postgres.NewPostgresAccountFlagStore(db, logger)
	app.contentStore = postgres.NewPostgresContentMetricsStore(db, logger)

	// Initialize event emitter
	emitter := events.NewInMemoryEventEmitter(logger)
	app.eventEmitter = emitter

	// Initialize the reward calculator with configured overrides
	rewardParams := reward.NewParams(reward.ParamsConfig{
		PassingScorePct:    cfg.Reward.PassingScorePct,
		BaselineWPM:        cfg.Reward.BaselineWPM,
		ComplexityDivisor:  cfg.Reward.ComplexityDivisor,
		PerfectBonusFactor: cfg.Reward.PerfectBonusFactor,
	})
	app.rewardService = reward.NewServiceWithParams(rewardParams)

	// Initialize ledger service
	app.ledgerService = ledger.NewLedgerService(
		db,
		app.accountStore,
		app.txStore,
		app.eventEmitter,
		cfg.Ledger.MaxRetries,
		logger,
	)

	// Initialize progression service
	app.progressionService = progression.NewProgressionService(
		app.ledgerService,
		app.accountStore,
		app.attemptStore,
		app.creditStore,
		app.contentStore,
		app.rewardService,
		cfg.Progression.BonusXP,
		time.Duration(cfg.Progression.ContentTimeoutSeconds)*time.Second,
		logger,
	)

	// Initialize social service with the configured action costs. Comment
	// authorization shares the passing threshold with the reward formula.
	app.socialService = social.NewSocialService(
		app.ledgerService,
		app.attemptStore,
		app.creditStore,
		socialCosts(cfg.Social),
		rewardParams.PassingScorePct,
		logger,
	)

	// Initialize feature shop service
	app.featureService = feature.NewFeatureService(app.ledgerService, app.featureStore, logger)

	// Create the economy monitor and register it with the event emitter so
	// the velocity check sees earn transactions as they commit.
	app.monitor = monitor.NewMonitor(
		app.accountStore,
		app.txStore,
		app.flagStore,
		app.eventEmitter,
		monitorConfig(cfg.Monitor),
		logger,
	)
	emitter.RegisterHandler(app.monitor)
	app.monitor.Start()

	logger.Info("Application initialized successfully")
	return app, nil
}

// Run starts the application server, handling lifecycle and cleanup.
// It returns an error if the server fails to start or encounters problems.
func (app *application) Run(ctx context.Context) error {
	// Set up router using the application dependencies
	router := app.setupRouter()

	// Start the HTTP server
	err := app.startHTTPServer(ctx, router)
	if err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// socialCosts maps the configured action costs onto the service's price
// table, keeping the built-in default for any unset value.
func socialCosts(cfg config.SocialConfig) social.Costs {
	costs := social.DefaultCosts()
	if cfg.CommentCostXP > 0 {
		costs.Comment = cfg.CommentCostXP
	}
	if cfg.ReplyCostXP > 0 {
		costs.Reply = cfg.ReplyCostXP
	}
	if cfg.BronzeCostXP > 0 {
		costs.Bronze = cfg.BronzeCostXP
	}
	if cfg.SilverCostXP > 0 {
		costs.Silver = cfg.SilverCostXP
	}
	if cfg.GoldCostXP > 0 {
		costs.Gold = cfg.GoldCostXP
	}
	return costs
}

// monitorConfig maps the monitor settings from application configuration,
// leaving zero values to the monitor's own defaults.
func monitorConfig(cfg config.MonitorConfig) monitor.Config {
	return monitor.Config{
		ReconcileInterval: time.Duration(cfg.ReconcileIntervalSeconds) * time.Second,
		VelocityWindow:    time.Duration(cfg.VelocityWindowMinutes) * time.Minute,
		VelocityLimitXP:   cfg.VelocityLimitXP,
		FreezeOnAnomaly:   cfg.FreezeOnAnomaly,
	}
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	// Stop the economy monitor
	if app.monitor != nil {
		app.monitor.Stop()
	}

	// Close database connection
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
