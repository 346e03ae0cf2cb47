package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Feature-specific validation errors
var (
	ErrEmptyFeatureID         = errors.New("feature ID cannot be empty")
	ErrEmptyFeatureName       = errors.New("feature name cannot be empty")
	ErrInvalidFeatureCategory = errors.New("invalid feature category")
	ErrInvalidFeaturePrice    = errors.New("feature price must be positive")
	ErrEmptyBundleID          = errors.New("bundle ID cannot be empty")
	ErrEmptyBundleName        = errors.New("bundle name cannot be empty")
	ErrInvalidBundlePrice     = errors.New("bundle price must be positive")
	ErrEmptyPurchaseID        = errors.New("purchase ID cannot be empty")
	ErrPurchaseNoAccount      = errors.New("purchase account ID cannot be empty")
	ErrPurchaseNoFeature      = errors.New("purchase feature ID cannot be empty")
	ErrNegativePricePaid      = errors.New("price paid cannot be negative")
	ErrPurchaseNoTransaction  = errors.New("purchase transaction ID cannot be empty")
)

// FeatureCategory groups catalog entries by the reading capability they
// unlock.
type FeatureCategory string

// Valid feature categories.
const (
	FeatureCategoryFont     FeatureCategory = "font"
	FeatureCategoryChunking FeatureCategory = "chunking"
	FeatureCategorySymbols  FeatureCategory = "symbols"
	FeatureCategoryTheme    FeatureCategory = "theme"
)

// IsValid checks if the feature category is one of the defined constants.
func (c FeatureCategory) IsValid() bool {
	switch c {
	case FeatureCategoryFont, FeatureCategoryChunking,
		FeatureCategorySymbols, FeatureCategoryTheme:
		return true
	}
	return false
}

// FeatureCatalogEntry is one purchasable capability in the premium catalog.
// IDs are stable string slugs (e.g. "font.dyslexic") so collaborating
// subsystems can reference features without a lookup. BundleID, when set,
// marks the entry as part of a discount bundle.
type FeatureCatalogEntry struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Category  FeatureCategory `json:"category"`
	PriceXP   int64           `json:"price_xp"`
	BundleID  *string         `json:"bundle_id,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Validate checks if the FeatureCatalogEntry has valid data.
// Returns an error if any field fails validation.
func (f *FeatureCatalogEntry) Validate() error {
	if f.ID == "" {
		return ErrEmptyFeatureID
	}

	if f.Name == "" {
		return ErrEmptyFeatureName
	}

	if !f.Category.IsValid() {
		return ErrInvalidFeatureCategory
	}

	if f.PriceXP <= 0 {
		return ErrInvalidFeaturePrice
	}

	return nil
}

// FeatureBundle groups catalog entries sold together at a discounted price.
// Bundle purchases are all-or-nothing: every member feature is granted in a
// single transaction or none are.
type FeatureBundle struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	PriceXP   int64     `json:"price_xp"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks if the FeatureBundle has valid data.
// Returns an error if any field fails validation.
func (b *FeatureBundle) Validate() error {
	if b.ID == "" {
		return ErrEmptyBundleID
	}

	if b.Name == "" {
		return ErrEmptyBundleName
	}

	if b.PriceXP <= 0 {
		return ErrInvalidBundlePrice
	}

	return nil
}

// FeaturePurchase records a permanent feature unlock. Its existence is the
// ownership relation: an account owns exactly the features its purchase
// rows name, and a purchase is never revoked. TransactionID links the
// unlock back to the SPEND entry that paid for it.
type FeaturePurchase struct {
	ID            uuid.UUID `json:"id"`
	AccountID     uuid.UUID `json:"account_id"`
	FeatureID     string    `json:"feature_id"`
	PricePaid     int64     `json:"price_paid"`
	TransactionID uuid.UUID `json:"transaction_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewFeaturePurchase creates a new FeaturePurchase linking an account, a
// catalog feature, and the ledger transaction that paid for it. PricePaid
// is zero for features granted as part of a bundle: the single spend
// transaction every member row references carries the bundle cost.
// Returns an error if validation fails.
func NewFeaturePurchase(
	accountID uuid.UUID,
	featureID string,
	pricePaid int64,
	transactionID uuid.UUID,
) (*FeaturePurchase, error) {
	purchase := &FeaturePurchase{
		ID:            uuid.New(),
		AccountID:     accountID,
		FeatureID:     featureID,
		PricePaid:     pricePaid,
		TransactionID: transactionID,
		CreatedAt:     time.Now().UTC(),
	}

	if err := purchase.Validate(); err != nil {
		return nil, err
	}

	return purchase, nil
}

// Validate checks if the FeaturePurchase has valid data.
// Returns an error if any field fails validation.
func (p *FeaturePurchase) Validate() error {
	if p.ID == uuid.Nil {
		return ErrEmptyPurchaseID
	}

	if p.AccountID == uuid.Nil {
		return ErrPurchaseNoAccount
	}

	if p.FeatureID == "" {
		return ErrPurchaseNoFeature
	}

	if p.PricePaid < 0 {
		return ErrNegativePricePaid
	}

	if p.TransactionID == uuid.Nil {
		return ErrPurchaseNoTransaction
	}

	return nil
}
