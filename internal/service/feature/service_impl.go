package feature

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/readquest/xp-api/internal/domain"
	"github.com/readquest/xp-api/internal/platform/logger"
	"github.com/readquest/xp-api/internal/service/ledger"
	"github.com/readquest/xp-api/internal/store"
)

// Verify interface compliance at compile time
var _ FeatureService = (*featureServiceImpl)(nil)

// featureServiceImpl implements the FeatureService interface.
type featureServiceImpl struct {
	ledgerSvc    ledger.LedgerService
	featureStore store.FeatureStore
	logger       *slog.Logger
}

// NewFeatureService creates a new FeatureService implementation.
func NewFeatureService(
	ledgerSvc ledger.LedgerService,
	featureStore store.FeatureStore,
	logger *slog.Logger,
) FeatureService {
	// Validate inputs
	if ledgerSvc == nil {
		panic("ledgerSvc cannot be nil")
	}
	if featureStore == nil {
		panic("featureStore cannot be nil")
	}

	// Use provided logger or create default
	if logger == nil {
		logger = slog.Default()
	}

	return &featureServiceImpl{
		ledgerSvc:    ledgerSvc,
		featureStore: featureStore,
		logger:       logger.With(slog.String("component", "feature_service")),
	}
}

// ListCatalog implements FeatureService.ListCatalog.
func (s *featureServiceImpl) ListCatalog(ctx context.Context) ([]*domain.FeatureCatalogEntry, error) {
	catalog, err := s.featureStore.ListCatalog(ctx)
	if err != nil {
		return nil, NewServiceError("list_catalog", "failed to load the feature catalog", err)
	}
	return catalog, nil
}

// ListOwned implements FeatureService.ListOwned.
func (s *featureServiceImpl) ListOwned(ctx context.Context, accountID uuid.UUID) ([]*domain.FeaturePurchase, error) {
	if accountID == uuid.Nil {
		return nil, domain.ErrInvalidID
	}

	purchases, err := s.featureStore.ListPurchases(ctx, accountID)
	if err != nil {
		return nil, NewServiceError("list_owned", "failed to load feature purchases", err)
	}
	return purchases, nil
}

// Purchase implements FeatureService.Purchase.
func (s *featureServiceImpl) Purchase(ctx context.Context, req PurchaseRequest) (*PurchaseResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if req.AccountID == uuid.Nil {
		return nil, domain.ErrInvalidID
	}
	if req.FeatureID == "" {
		return nil, domain.ErrEmptyFeatureID
	}

	entry, err := s.featureStore.GetCatalogEntry(ctx, req.FeatureID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, err
		}
		return nil, NewServiceError("purchase", "failed to load catalog entry", err)
	}

	// Cheap pre-check; the unique ownership constraint inside the
	// transaction is the authoritative one.
	owned, err := s.featureStore.HasPurchase(ctx, req.AccountID, req.FeatureID)
	if err != nil {
		return nil, NewServiceError("purchase", "failed to check ownership", err)
	}
	if owned {
		return nil, domain.ErrAlreadyOwned
	}

	var result *PurchaseResult
	err = s.ledgerSvc.RunSerialized(ctx, func(ctx context.Context, tx ledger.Tx) error {
		featureID := entry.ID
		txn, err := tx.Spend(ctx, ledger.SpendRequest{
			AccountID:   req.AccountID,
			Amount:      entry.PriceXP,
			Purpose:     domain.PurposeFeaturePurchase,
			Description: fmt.Sprintf("unlocked %s", entry.Name),
			Refs: domain.TransactionRefs{
				FeatureID: &featureID,
				RequestID: req.RequestID,
			},
		})
		if err != nil {
			return err
		}

		purchase, err := domain.NewFeaturePurchase(req.AccountID, entry.ID, entry.PriceXP, txn.ID)
		if err != nil {
			return err
		}

		if err := s.featureStore.WithTx(tx.SQL()).CreatePurchase(ctx, purchase); err != nil {
			return err
		}

		result = &PurchaseResult{Feature: entry, Purchase: purchase, Transaction: txn}
		return nil
	})
	if err != nil {
		return s.resolvePurchaseError(ctx, log, req, entry, err)
	}

	log.Info("feature purchased",
		"account_id", req.AccountID.String(),
		"feature_id", entry.ID,
		"price_xp", entry.PriceXP)

	return result, nil
}

// resolvePurchaseError maps a failed purchase transaction onto the
// operation's error contract, replaying an already-applied request from
// the ledger.
func (s *featureServiceImpl) resolvePurchaseError(
	ctx context.Context,
	log *slog.Logger,
	req PurchaseRequest,
	entry *domain.FeatureCatalogEntry,
	err error,
) (*PurchaseResult, error) {
	if errors.Is(err, store.ErrDuplicateRequest) && req.RequestID != "" {
		txn, gerr := s.ledgerSvc.GetByRequestID(ctx, req.AccountID, req.RequestID)
		if gerr != nil {
			return nil, NewServiceError("purchase", "failed to load replayed charge", gerr)
		}
		purchase, gerr := s.findPurchaseByTransaction(ctx, req.AccountID, txn.ID)
		if gerr != nil {
			return nil, gerr
		}
		log.Debug("feature already purchased under this request, returning original",
			"account_id", req.AccountID.String(),
			"request_id", req.RequestID)
		return &PurchaseResult{Feature: entry, Purchase: purchase, Transaction: txn}, nil
	}

	// A concurrent purchase can slip past the pre-check and surface as
	// the ownership constraint firing inside the transaction.
	if errors.Is(err, store.ErrFeatureOwned) {
		return nil, domain.ErrAlreadyOwned
	}

	if passthrough(err) {
		return nil, err
	}

	log.Error("failed to purchase feature",
		"error", err.Error(),
		"account_id", req.AccountID.String(),
		"feature_id", req.FeatureID)
	return nil, NewServiceError("purchase", "failed to purchase feature", err)
}

// PurchaseBundle implements FeatureService.PurchaseBundle.
func (s *featureServiceImpl) PurchaseBundle(ctx context.Context, req BundlePurchaseRequest) (*BundlePurchaseResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if req.AccountID == uuid.Nil {
		return nil, domain.ErrInvalidID
	}
	if req.BundleID == "" {
		return nil, domain.ErrEmptyBundleID
	}

	bundle, err := s.featureStore.GetBundle(ctx, req.BundleID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, err
		}
		return nil, NewServiceError("purchase_bundle", "failed to load bundle", err)
	}

	members, err := s.featureStore.ListBundleFeatures(ctx, req.BundleID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, err
		}
		return nil, NewServiceError("purchase_bundle", "failed to load bundle members", err)
	}
	if len(members) == 0 {
		return nil, store.ErrBundleNotFound
	}

	for _, member := range members {
		owned, err := s.featureStore.HasPurchase(ctx, req.AccountID, member.ID)
		if err != nil {
			return nil, NewServiceError("purchase_bundle", "failed to check ownership", err)
		}
		if owned {
			return nil, domain.ErrAlreadyOwned
		}
	}

	var result *BundlePurchaseResult
	err = s.ledgerSvc.RunSerialized(ctx, func(ctx context.Context, tx ledger.Tx) error {
		bundleID := bundle.ID
		txn, err := tx.Spend(ctx, ledger.SpendRequest{
			AccountID:   req.AccountID,
			Amount:      bundle.PriceXP,
			Purpose:     domain.PurposeBundlePurchase,
			Description: fmt.Sprintf("unlocked bundle %s", bundle.Name),
			Refs: domain.TransactionRefs{
				FeatureID: &bundleID,
				RequestID: req.RequestID,
			},
		})
		if err != nil {
			return err
		}

		features := s.featureStore.WithTx(tx.SQL())
		purchases := make([]*domain.FeaturePurchase, 0, len(members))
		for _, member := range members {
			// Member rows carry a zero price; the single spend above is
			// the bundle's cost and every row references it.
			purchase, err := domain.NewFeaturePurchase(req.AccountID, member.ID, 0, txn.ID)
			if err != nil {
				return err
			}
			if err := features.CreatePurchase(ctx, purchase); err != nil {
				return err
			}
			purchases = append(purchases, purchase)
		}

		result = &BundlePurchaseResult{Bundle: bundle, Purchases: purchases, Transaction: txn}
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateRequest) && req.RequestID != "" {
			txn, gerr := s.ledgerSvc.GetByRequestID(ctx, req.AccountID, req.RequestID)
			if gerr != nil {
				return nil, NewServiceError("purchase_bundle", "failed to load replayed charge", gerr)
			}
			purchases, gerr := s.findPurchasesByTransaction(ctx, req.AccountID, txn.ID)
			if gerr != nil {
				return nil, gerr
			}
			log.Debug("bundle already purchased under this request, returning original",
				"account_id", req.AccountID.String(),
				"request_id", req.RequestID)
			return &BundlePurchaseResult{Bundle: bundle, Purchases: purchases, Transaction: txn}, nil
		}

		if errors.Is(err, store.ErrFeatureOwned) {
			return nil, domain.ErrAlreadyOwned
		}

		if passthrough(err) {
			return nil, err
		}

		log.Error("failed to purchase bundle",
			"error", err.Error(),
			"account_id", req.AccountID.String(),
			"bundle_id", req.BundleID)
		return nil, NewServiceError("purchase_bundle", "failed to purchase bundle", err)
	}

	log.Info("bundle purchased",
		"account_id", req.AccountID.String(),
		"bundle_id", bundle.ID,
		"price_xp", bundle.PriceXP,
		"features", len(result.Purchases))

	return result, nil
}

// findPurchaseByTransaction locates the single ownership row written with
// the given ledger transaction.
func (s *featureServiceImpl) findPurchaseByTransaction(
	ctx context.Context,
	accountID uuid.UUID,
	transactionID uuid.UUID,
) (*domain.FeaturePurchase, error) {
	purchases, err := s.findPurchasesByTransaction(ctx, accountID, transactionID)
	if err != nil {
		return nil, err
	}
	return purchases[0], nil
}

// findPurchasesByTransaction locates the ownership rows written with the
// given ledger transaction, for rebuilding a replayed purchase result.
func (s *featureServiceImpl) findPurchasesByTransaction(
	ctx context.Context,
	accountID uuid.UUID,
	transactionID uuid.UUID,
) ([]*domain.FeaturePurchase, error) {
	all, err := s.featureStore.ListPurchases(ctx, accountID)
	if err != nil {
		return nil, NewServiceError("purchase", "failed to load replayed purchases", err)
	}

	var matched []*domain.FeaturePurchase
	for _, p := range all {
		if p.TransactionID == transactionID {
			matched = append(matched, p)
		}
	}
	if len(matched) == 0 {
		return nil, NewServiceError("purchase", "replayed charge has no matching purchase", nil)
	}
	return matched, nil
}

// passthrough reports whether err is part of the operation's contract and
// must reach the caller unwrapped.
func passthrough(err error) bool {
	return errors.Is(err, domain.ErrAlreadyOwned) ||
		errors.Is(err, domain.ErrInsufficientXP) ||
		errors.Is(err, domain.ErrSpendingFrozen) ||
		errors.Is(err, domain.ErrTransientConflict) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		store.IsNotFoundError(err)
}
