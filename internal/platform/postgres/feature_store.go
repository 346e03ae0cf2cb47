package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/readquest/xp-api/internal/domain"
	"github.com/readquest/xp-api/internal/platform/logger"
	"github.com/readquest/xp-api/internal/store"
)

// catalogColumns is the column list shared by every feature catalog SELECT.
const catalogColumns = `id, name, category, price_xp, bundle_id, created_at`

// PostgresFeatureStore implements the store.FeatureStore interface
// using a PostgreSQL database as the storage backend. The catalog and
// bundle tables are seeded by migration and treated as read-only here;
// only purchase rows are written at runtime.
type PostgresFeatureStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresFeatureStore creates a new PostgreSQL implementation of the
// FeatureStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresFeatureStore(db store.DBTX, logger *slog.Logger) *PostgresFeatureStore {
	// Validate inputs
	if db == nil {
		panic("db cannot be nil")
	}

	// Use provided logger or create default
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresFeatureStore{
		db:     db,
		logger: logger.With(slog.String("component", "feature_store")),
	}
}

// Ensure PostgresFeatureStore implements store.FeatureStore interface
var _ store.FeatureStore = (*PostgresFeatureStore)(nil)

// GetCatalogEntry implements store.FeatureStore.GetCatalogEntry
// It retrieves one catalog feature by its slug.
// Returns store.ErrFeatureNotFound if the feature does not exist.
func (s *PostgresFeatureStore) GetCatalogEntry(
	ctx context.Context,
	featureID string,
) (*domain.FeatureCatalogEntry, error) {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	log.Debug("retrieving catalog entry", slog.String("feature_id", featureID))

	query := `
		SELECT ` + catalogColumns + `
		FROM feature_catalog
		WHERE id = $1
	`

	entry, err := scanCatalogEntry(s.db.QueryRowContext(ctx, query, featureID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("catalog entry not found", slog.String("feature_id", featureID))
			return nil, store.ErrFeatureNotFound
		}
		log.Error("failed to get catalog entry",
			slog.String("error", err.Error()),
			slog.String("feature_id", featureID))
		return nil, err
	}

	return entry, nil
}

// ListCatalog implements store.FeatureStore.ListCatalog
// It returns the full feature catalog ordered by category and price.
// Returns an empty slice if the catalog is empty.
func (s *PostgresFeatureStore) ListCatalog(ctx context.Context) ([]*domain.FeatureCatalogEntry, error) {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + catalogColumns + `
		FROM feature_catalog
		ORDER BY category ASC, price_xp ASC, id ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		log.Error("failed to query feature catalog",
			slog.String("error", err.Error()))
		return nil, err
	}
	defer func() {
		err := rows.Close()
		if err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	entries, err := collectCatalogEntries(rows)
	if err != nil {
		log.Error("failed to scan feature catalog",
			slog.String("error", err.Error()))
		return nil, err
	}

	log.Debug("listed feature catalog", slog.Int("count", len(entries)))
	return entries, nil
}

// GetBundle implements store.FeatureStore.GetBundle
// It retrieves one discount bundle by its slug.
// Returns store.ErrBundleNotFound if the bundle does not exist.
func (s *PostgresFeatureStore) GetBundle(ctx context.Context, bundleID string) (*domain.FeatureBundle, error) {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	log.Debug("retrieving bundle", slog.String("bundle_id", bundleID))

	query := `
		SELECT id, name, price_xp, created_at
		FROM feature_bundles
		WHERE id = $1
	`

	var bundle domain.FeatureBundle
	err := s.db.QueryRowContext(ctx, query, bundleID).Scan(
		&bundle.ID,
		&bundle.Name,
		&bundle.PriceXP,
		&bundle.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("bundle not found", slog.String("bundle_id", bundleID))
			return nil, store.ErrBundleNotFound
		}
		log.Error("failed to get bundle",
			slog.String("error", err.Error()),
			slog.String("bundle_id", bundleID))
		return nil, err
	}

	return &bundle, nil
}

// ListBundleFeatures implements store.FeatureStore.ListBundleFeatures
// It returns the catalog entries belonging to a bundle.
// Returns store.ErrBundleNotFound if the bundle does not exist.
func (s *PostgresFeatureStore) ListBundleFeatures(
	ctx context.Context,
	bundleID string,
) ([]*domain.FeatureCatalogEntry, error) {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	// Distinguish a missing bundle from an empty one
	var exists bool
	existsQuery := `SELECT EXISTS (SELECT 1 FROM feature_bundles WHERE id = $1)`
	if err := s.db.QueryRowContext(ctx, existsQuery, bundleID).Scan(&exists); err != nil {
		log.Error("failed to check bundle existence",
			slog.String("error", err.Error()),
			slog.String("bundle_id", bundleID))
		return nil, err
	}
	if !exists {
		log.Debug("bundle not found", slog.String("bundle_id", bundleID))
		return nil, store.ErrBundleNotFound
	}

	query := `
		SELECT ` + catalogColumns + `
		FROM feature_catalog
		WHERE bundle_id = $1
		ORDER BY price_xp ASC, id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, bundleID)
	if err != nil {
		log.Error("failed to query bundle features",
			slog.String("error", err.Error()),
			slog.String("bundle_id", bundleID))
		return nil, err
	}
	defer func() {
		err := rows.Close()
		if err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	entries, err := collectCatalogEntries(rows)
	if err != nil {
		log.Error("failed to scan bundle features",
			slog.String("error", err.Error()),
			slog.String("bundle_id", bundleID))
		return nil, err
	}

	return entries, nil
}

// CreatePurchase implements store.FeatureStore.CreatePurchase
// It records a permanent feature unlock. Must run in the same transaction
// as the spend that pays for it.
// Returns store.ErrFeatureOwned if the account already owns the feature.
// Returns validation errors from the domain FeaturePurchase if data is invalid.
func (s *PostgresFeatureStore) CreatePurchase(ctx context.Context, purchase *domain.FeaturePurchase) error {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	// Validate purchase data
	if err := purchase.Validate(); err != nil {
		log.Warn("feature purchase validation failed during create",
			slog.String("error", err.Error()),
			slog.String("purchase_id", purchase.ID.String()))
		return err
	}

	query := `
		INSERT INTO feature_purchases (id, account_id, feature_id, price_paid, transaction_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		purchase.ID,
		purchase.AccountID,
		purchase.FeatureID,
		purchase.PricePaid,
		purchase.TransactionID,
		purchase.CreatedAt,
	)

	if err != nil {
		if IsUniqueViolation(err) {
			// The (account_id, feature_id) uniqueness constraint makes a
			// purchase permanent and unrepeatable
			log.Warn("feature already owned",
				slog.String("account_id", purchase.AccountID.String()),
				slog.String("feature_id", purchase.FeatureID))
			return MapUniqueViolation(err, "", "", store.ErrFeatureOwned)
		}

		log.Error("failed to create feature purchase",
			slog.String("error", err.Error()),
			slog.String("purchase_id", purchase.ID.String()),
			slog.String("feature_id", purchase.FeatureID))
		return MapError(err)
	}

	log.Info("feature purchase recorded",
		slog.String("purchase_id", purchase.ID.String()),
		slog.String("account_id", purchase.AccountID.String()),
		slog.String("feature_id", purchase.FeatureID),
		slog.Int64("price_paid", purchase.PricePaid))
	return nil
}

// HasPurchase implements store.FeatureStore.HasPurchase
// It reports whether the account owns the feature.
func (s *PostgresFeatureStore) HasPurchase(
	ctx context.Context,
	accountID uuid.UUID,
	featureID string,
) (bool, error) {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT EXISTS (
			SELECT 1
			FROM feature_purchases
			WHERE account_id = $1 AND feature_id = $2
		)
	`

	var owned bool
	err := s.db.QueryRowContext(ctx, query, accountID, featureID).Scan(&owned)
	if err != nil {
		log.Error("failed to check feature ownership",
			slog.String("error", err.Error()),
			slog.String("account_id", accountID.String()),
			slog.String("feature_id", featureID))
		return false, err
	}

	return owned, nil
}

// ListPurchases implements store.FeatureStore.ListPurchases
// It returns all of the account's feature unlocks ordered by purchase time.
// Returns an empty slice if there are none.
func (s *PostgresFeatureStore) ListPurchases(
	ctx context.Context,
	accountID uuid.UUID,
) ([]*domain.FeaturePurchase, error) {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, account_id, feature_id, price_paid, transaction_id, created_at
		FROM feature_purchases
		WHERE account_id = $1
		ORDER BY created_at ASC, feature_id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, accountID)
	if err != nil {
		log.Error("failed to query feature purchases",
			slog.String("error", err.Error()),
			slog.String("account_id", accountID.String()))
		return nil, err
	}
	defer func() {
		err := rows.Close()
		if err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	var purchases []*domain.FeaturePurchase
	for rows.Next() {
		var purchase domain.FeaturePurchase
		err := rows.Scan(
			&purchase.ID,
			&purchase.AccountID,
			&purchase.FeatureID,
			&purchase.PricePaid,
			&purchase.TransactionID,
			&purchase.CreatedAt,
		)
		if err != nil {
			log.Error("failed to scan feature purchase row",
				slog.String("error", err.Error()))
			return nil, err
		}
		purchases = append(purchases, &purchase)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows",
			slog.String("error", err.Error()))
		return nil, err
	}

	// Return empty slice instead of nil if no purchases found
	if purchases == nil {
		purchases = []*domain.FeaturePurchase{}
	}

	return purchases, nil
}

// WithTx implements store.FeatureStore.WithTx
// It returns a new FeatureStore bound to the provided transaction.
func (s *PostgresFeatureStore) WithTx(tx *sql.Tx) store.FeatureStore {
	return &PostgresFeatureStore{
		db:     tx,
		logger: s.logger,
	}
}

// scanCatalogEntry scans a single catalog row in the catalogColumns order.
func scanCatalogEntry(row rowScanner) (*domain.FeatureCatalogEntry, error) {
	var (
		entry    domain.FeatureCatalogEntry
		category string
		bundleID sql.NullString
	)

	err := row.Scan(
		&entry.ID,
		&entry.Name,
		&category,
		&entry.PriceXP,
		&bundleID,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	entry.Category = domain.FeatureCategory(category)
	if bundleID.Valid {
		b := bundleID.String
		entry.BundleID = &b
	}

	return &entry, nil
}

// collectCatalogEntries drains a catalog result set into a slice,
// returning an empty slice rather than nil for no rows.
func collectCatalogEntries(rows *sql.Rows) ([]*domain.FeatureCatalogEntry, error) {
	var entries []*domain.FeatureCatalogEntry
	for rows.Next() {
		entry, err := scanCatalogEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if entries == nil {
		entries = []*domain.FeatureCatalogEntry{}
	}
	return entries, nil
}
