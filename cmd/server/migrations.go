package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"

	"github.com/readquest/xp-api/internal/config"
)

// migrationsDir is the location of the goose migration files relative to
// the project root.
const migrationsDir = "internal/platform/postgres/migrations"

// migrationTableName is the name of the table used by goose to track
// applied migrations.
const migrationTableName = "schema_migrations"

// slogGooseLogger adapts the goose logger interface to use slog.
type slogGooseLogger struct{}

// Printf implements the goose.Logger Printf method by forwarding messages to slog.Info
func (l *slogGooseLogger) Printf(format string, v ...interface{}) {
	slog.Info(fmt.Sprintf(format, v...))
}

// Fatalf implements the goose.Logger Fatalf method by forwarding error messages to slog.Error
// Note: Unlike the standard Fatalf behavior, this does NOT call os.Exit
// to allow main.go to handle application exit consistently
func (l *slogGooseLogger) Fatalf(format string, v ...interface{}) {
	slog.Error(fmt.Sprintf(format, v...))
}

// handleMigrations handles the execution of database migrations.
// It's called from main() when the -migrate flag is set.
// Returns an error if the migration command fails.
func handleMigrations(cfg *config.Config, command, migrationName string, verbose bool) error {
	slog.Info("Executing migrations",
		"command", command,
		"verbose", verbose)

	// For the create command, the migration name is passed through as an
	// argument so goose can stamp the new file.
	var args []string
	if command == "create" && migrationName != "" {
		args = append(args, migrationName)
	}

	return executeMigration(cfg, command, verbose, args...)
}

// executeMigration executes database migrations using goose
func executeMigration(cfg *config.Config, command string, verbose bool, args ...string) error {
	// Use a correlation ID for all migration logs to allow tracing the entire operation
	correlationID := uuid.New().String()
	migrationLogger := slog.Default().With(
		"correlation_id", correlationID,
		"component", "migrations",
		"command", command,
	)

	startTime := time.Now()
	migrationLogger.Info("Starting migration operation",
		"operation", fmt.Sprintf("goose %s", command),
		"verbose", verbose)

	// Configure goose to use the custom slog logger adapter
	goose.SetLogger(&slogGooseLogger{})
	goose.SetVerbose(verbose)

	dbURL := cfg.Database.URL
	if dbURL == "" {
		migrationLogger.Error("Database URL is empty",
			"resolution", "check READQUEST_DATABASE_URL or the config file")
		return fmt.Errorf("database URL is empty: check your configuration")
	}

	// Mask the password in the URL for safe logging
	migrationLogger.Info("Using database URL", "url", maskDatabaseURL(dbURL))

	// Open a database connection using the database URL
	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		migrationLogger.Error("Failed to open database connection", "error", err)
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	// Ensure the database connection is closed when the function returns
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			migrationLogger.Error("Error closing database connection", "error", closeErr)
		}
		migrationLogger.Info("Migration operation completed",
			"operation", fmt.Sprintf("goose %s", command),
			"duration_ms", time.Since(startTime).Milliseconds())
	}()

	// Verify database connectivity with a ping
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		migrationLogger.Error("Database ping failed", "error", err)
		return fmt.Errorf(
			"failed to connect to database: %w (check connection string, credentials, and database availability)",
			err,
		)
	}

	// Locate the migration files
	migrationsDirPath, err := findMigrationsDir()
	if err != nil {
		migrationLogger.Error("Failed to locate migrations directory", "error", err)
		return fmt.Errorf("failed to locate migrations directory: %w", err)
	}
	migrationLogger.Info("Using migrations directory", "path", migrationsDirPath)

	// Set the dialect
	if err := goose.SetDialect("postgres"); err != nil {
		migrationLogger.Error("Failed to set dialect", "error", err)
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	// Set the migration table name
	goose.SetTableName(migrationTableName)

	// Execute the requested migration command
	commandStartTime := time.Now()

	switch command {
	case "up":
		migrationLogger.Info("Applying pending migrations")
		err = goose.Up(db, migrationsDirPath)
	case "down":
		migrationLogger.Info("Rolling back one migration version")
		err = goose.Down(db, migrationsDirPath)
	case "reset":
		migrationLogger.Info("Resetting all migrations (roll back to zero)")
		err = goose.Reset(db, migrationsDirPath)
	case "status":
		migrationLogger.Info("Checking migration status")
		err = goose.Status(db, migrationsDirPath)
	case "version":
		migrationLogger.Info("Retrieving current migration version")
		err = goose.Version(db, migrationsDirPath)
	case "create":
		// The migration name is required when creating a new migration
		if len(args) == 0 || args[0] == "" {
			migrationLogger.Error("Migration create command requires a name parameter")
			return fmt.Errorf("migration name is required for 'create' command")
		}
		migrationLogger.Info("Creating new migration",
			"name", args[0],
			"type", "sql",
			"directory", migrationsDirPath)
		err = goose.Create(db, migrationsDirPath, args[0], "sql")
	default:
		migrationLogger.Error("Unknown migration command",
			"command", command,
			"valid_commands", []string{"up", "down", "reset", "status", "version", "create"})
		return fmt.Errorf(
			"unknown migration command: %s (expected up, down, reset, status, version, or create)",
			command,
		)
	}

	if err != nil {
		migrationLogger.Error("Migration command failed",
			"command", command,
			"error", err,
			"duration_ms", time.Since(commandStartTime).Milliseconds())
		return fmt.Errorf("migration command '%s' failed: %w", command, err)
	}

	migrationLogger.Info("Migration command executed successfully",
		"command", command,
		"duration_ms", time.Since(commandStartTime).Milliseconds())
	return nil
}

// maskDatabaseURL masks the password in a database URL for safe logging.
func maskDatabaseURL(dbURL string) string {
	parsedURL, err := url.Parse(dbURL)
	if err != nil {
		return "invalid-url"
	}

	if parsedURL.User != nil {
		username := parsedURL.User.Username()
		parsedURL.User = url.UserPassword(username, "****")
		return parsedURL.String()
	}

	return dbURL
}

// findMigrationsDir locates the migration files by walking up from the
// working directory to the module root. Running from the repository root or
// from cmd/server both resolve to the same directory.
func findMigrationsDir() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %w", err)
	}

	dir := cwd
	for {
		// The module root carries go.mod
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			migPath := filepath.Join(dir, migrationsDir)
			if directoryExists(migPath) {
				return migPath, nil
			}
			return "", fmt.Errorf("migrations directory not found at %s", migPath)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("project root not found (no go.mod found in directory tree)")
}

// directoryExists checks if a directory exists at the given path
func directoryExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
