package feature

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/readquest/xp-api/internal/domain"
)

// PurchaseRequest asks to unlock one catalog feature for an account.
type PurchaseRequest struct {
	// AccountID is the account paying for and receiving the feature.
	AccountID uuid.UUID
	// FeatureID is the catalog slug of the feature (e.g. "font.dyslexic").
	FeatureID string
	// RequestID makes the purchase idempotent when set: replaying the
	// same account and request ID returns the original purchase instead
	// of charging twice.
	RequestID string
}

// PurchaseResult reports a completed feature purchase: the catalog entry,
// the ownership row, and the ledger transaction that paid for it.
type PurchaseResult struct {
	Feature     *domain.FeatureCatalogEntry `json:"feature"`
	Purchase    *domain.FeaturePurchase     `json:"purchase"`
	Transaction *domain.Transaction         `json:"transaction"`
}

// BundlePurchaseRequest asks to unlock every feature in a discount bundle
// with a single charge.
type BundlePurchaseRequest struct {
	// AccountID is the account paying for and receiving the features.
	AccountID uuid.UUID
	// BundleID is the bundle's slug (e.g. "fonts.all").
	BundleID string
	// RequestID makes the purchase idempotent, as on PurchaseRequest.
	RequestID string
}

// BundlePurchaseResult reports a completed bundle purchase. Every member
// feature gets its own ownership row with a zero price; the single
// Transaction carries the bundle cost and all rows reference it.
type BundlePurchaseResult struct {
	Bundle      *domain.FeatureBundle     `json:"bundle"`
	Purchases   []*domain.FeaturePurchase `json:"purchases"`
	Transaction *domain.Transaction       `json:"transaction"`
}

// FeatureService sells the premium feature catalog: fonts, chunking modes,
// symbol packs and themes, individually or in discount bundles. Unlocks
// are permanent; the spend and the ownership row are written in one
// serialized transaction so a failed charge can never leave a granted
// feature behind.
type FeatureService interface {
	// ListCatalog returns the purchasable feature catalog.
	ListCatalog(ctx context.Context) ([]*domain.FeatureCatalogEntry, error)

	// ListOwned returns the account's feature unlocks, oldest first.
	ListOwned(ctx context.Context, accountID uuid.UUID) ([]*domain.FeaturePurchase, error)

	// Purchase charges the account the feature's catalog price and
	// records the unlock.
	//
	// Error handling:
	//   - store.ErrFeatureNotFound when the feature is not in the catalog
	//   - domain.ErrAlreadyOwned when the account owns the feature
	//   - *domain.InsufficientXPError (matches domain.ErrInsufficientXP)
	//     when the spendable balance is too low; nothing is charged
	//   - domain.ErrSpendingFrozen when the account is frozen
	//   - domain.ErrTransientConflict when the retry budget ran out
	Purchase(ctx context.Context, req PurchaseRequest) (*PurchaseResult, error)

	// PurchaseBundle charges the bundle's discounted price once and
	// records an unlock for every member feature. The purchase is
	// all-or-nothing: owning any member already rejects the whole bundle.
	//
	// Error handling:
	//   - store.ErrBundleNotFound when the bundle does not exist
	//   - domain.ErrAlreadyOwned when any member feature is already owned
	//   - spend errors as on Purchase
	PurchaseBundle(ctx context.Context, req BundlePurchaseRequest) (*BundlePurchaseResult, error)
}

// ServiceError wraps errors from the feature service with the operation
// that failed, so consumers can differentiate error sites with errors.As
// instead of string matching.
type ServiceError struct {
	// Operation is the operation that failed (e.g. "purchase")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("feature %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("feature %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError for the given operation.
func NewServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
