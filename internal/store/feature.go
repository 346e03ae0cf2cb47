package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/readquest/xp-api/internal/domain"
)

// FeatureStore defines the interface for the premium feature catalog and
// the ownership relation. The catalog is seeded by migration and read-only
// at runtime; ownership rows are written once per unlock and never removed.
type FeatureStore interface {
	// GetCatalogEntry retrieves one catalog feature by its slug.
	// Returns ErrFeatureNotFound if the feature does not exist.
	GetCatalogEntry(ctx context.Context, featureID string) (*domain.FeatureCatalogEntry, error)

	// ListCatalog returns the full feature catalog ordered by category and
	// price. Returns an empty slice if the catalog is empty.
	ListCatalog(ctx context.Context) ([]*domain.FeatureCatalogEntry, error)

	// GetBundle retrieves one discount bundle by its slug.
	// Returns ErrBundleNotFound if the bundle does not exist.
	GetBundle(ctx context.Context, bundleID string) (*domain.FeatureBundle, error)

	// ListBundleFeatures returns the catalog entries belonging to a bundle.
	// Returns ErrBundleNotFound if the bundle does not exist.
	ListBundleFeatures(ctx context.Context, bundleID string) ([]*domain.FeatureCatalogEntry, error)

	// CreatePurchase records a permanent feature unlock.
	// IMPORTANT: This method MUST be run within the same transaction as the
	// spend that pays for it (use WithTx with store.RunInTransaction) so a
	// failed spend can never leave a granted feature behind.
	//
	// Returns ErrFeatureOwned if the account already owns the feature.
	// Returns validation errors from the domain FeaturePurchase if data is invalid.
	CreatePurchase(ctx context.Context, purchase *domain.FeaturePurchase) error

	// HasPurchase reports whether the account owns the feature.
	HasPurchase(ctx context.Context, accountID uuid.UUID, featureID string) (bool, error)

	// ListPurchases returns all of the account's feature unlocks ordered by
	// purchase time. Returns an empty slice if there are none.
	ListPurchases(ctx context.Context, accountID uuid.UUID) ([]*domain.FeaturePurchase, error)

	// WithTx returns a new FeatureStore instance that uses the provided transaction.
	// This allows for multiple operations to be executed within a single transaction.
	// The transaction should be created and managed by the caller (typically a service).
	WithTx(tx *sql.Tx) FeatureStore
}
