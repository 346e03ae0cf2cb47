// Package main implements the entry point for the ReadQuest XP API server,
// which keeps the dual-currency XP ledger for readers and prices the
// platform's social actions and customization features.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/readquest/xp-api/internal/config"
	"github.com/readquest/xp-api/internal/platform/logger"
)

// main is the entry point for the xp-api server.
// It initializes configuration and logging, then either runs a migration
// command (when -migrate is set) or establishes the database connection,
// injects dependencies, and starts the HTTP server.
func main() {
	migrateCmd := flag.String(
		"migrate",
		"",
		"Run a migration command and exit (up, down, reset, status, version, create)",
	)
	migrationName := flag.String(
		"migration-name",
		"",
		"Name of the new migration when using -migrate create",
	)
	verbose := flag.Bool("verbose", false, "Enable verbose migration logging")
	flag.Parse()

	fmt.Println("ReadQuest XP API Server Starting...")

	// Call the core initialization logic
	cfg, appLogger, err := initializeApp()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	// Migration commands run to completion and exit without serving traffic.
	if *migrateCmd != "" {
		if err := handleMigrations(cfg, *migrateCmd, *migrationName, *verbose); err != nil {
			appLogger.Error("Migration failed", "command", *migrateCmd, "error", err)
			os.Exit(1)
		}
		return
	}

	db, err := setupAppDatabase(cfg, appLogger)
	if err != nil {
		appLogger.Error("Failed to establish database connection", "error", err)
		os.Exit(1)
	}

	app, err := newApplication(cfg, appLogger, db)
	if err != nil {
		appLogger.Error("Failed to initialize application services", "error", err)
		os.Exit(1)
	}

	if err := app.Run(context.Background()); err != nil {
		appLogger.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

// initializeApp loads configuration and sets up application components.
// Returns the loaded config, the configured logger, and any initialization
// error.
func initializeApp() (*config.Config, *slog.Logger, error) {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Set up structured logging using the configured log level
	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	// Log configuration details using structured logging
	slog.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel)

	// Log additional configuration details at debug level if available
	if cfg.Database.URL != "" {
		slog.Debug("Database configuration", "url_present", true)
	}
	if cfg.Auth.JWTSecret != "" {
		slog.Debug("Auth configuration", "jwt_secret_present", true)
	}

	return cfg, appLogger, nil
}
