package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/readquest/xp-api/internal/api/shared"
	"github.com/readquest/xp-api/internal/domain"
	"github.com/readquest/xp-api/internal/platform/logger"
	"github.com/readquest/xp-api/internal/service/feature"
)

// FeatureResponse represents one purchasable catalog entry.
type FeatureResponse struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	PriceXP  int64   `json:"price_xp"`
	BundleID *string `json:"bundle_id,omitempty"`
}

// FeatureCatalogResponse is the purchasable feature catalog.
type FeatureCatalogResponse struct {
	Features []FeatureResponse `json:"features"`
}

// OwnedFeatureResponse represents one feature unlock held by an account.
type OwnedFeatureResponse struct {
	ID            string    `json:"id"`
	FeatureID     string    `json:"feature_id"`
	PricePaid     int64     `json:"price_paid"`
	TransactionID string    `json:"transaction_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// OwnedFeatureListResponse is the account's feature unlocks, oldest first.
type OwnedFeatureListResponse struct {
	Features []OwnedFeatureResponse `json:"features"`
}

// PurchaseFeatureRequest is the payload for a single-feature purchase.
type PurchaseFeatureRequest struct {
	RequestID string `json:"request_id" validate:"required,max=64"`
}

// PurchaseResultResponse reports a completed feature purchase.
type PurchaseResultResponse struct {
	Feature     FeatureResponse      `json:"feature"`
	Purchase    OwnedFeatureResponse `json:"purchase"`
	Transaction TransactionResponse  `json:"transaction"`
}

// BundlePurchaseResultResponse reports a completed bundle purchase: one
// transaction pays for every member feature's unlock.
type BundlePurchaseResultResponse struct {
	BundleID    string                 `json:"bundle_id"`
	BundleName  string                 `json:"bundle_name"`
	PriceXP     int64                  `json:"price_xp"`
	Purchases   []OwnedFeatureResponse `json:"purchases"`
	Transaction TransactionResponse    `json:"transaction"`
}

// FeatureHandler handles feature catalog and purchase HTTP requests.
type FeatureHandler struct {
	featureService feature.FeatureService
	logger         *slog.Logger
}

// NewFeatureHandler creates a new FeatureHandler.
func NewFeatureHandler(featureService feature.FeatureService, logger *slog.Logger) *FeatureHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for FeatureHandler")
	}

	return &FeatureHandler{
		featureService: featureService,
		logger:         logger.With(slog.String("component", "feature_handler")),
	}
}

// ListCatalog handles GET /features requests.
func (h *FeatureHandler) ListCatalog(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAccountID(w, r); !ok {
		return
	}

	entries, err := h.featureService.ListCatalog(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list feature catalog")
		return
	}

	features := make([]FeatureResponse, 0, len(entries))
	for _, entry := range entries {
		features = append(features, featureToResponse(entry))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, FeatureCatalogResponse{Features: features})
}

// ListOwned handles GET /features/owned requests.
func (h *FeatureHandler) ListOwned(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccountID(w, r)
	if !ok {
		return
	}

	purchases, err := h.featureService.ListOwned(r.Context(), accountID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list owned features")
		return
	}

	features := make([]OwnedFeatureResponse, 0, len(purchases))
	for _, purchase := range purchases {
		features = append(features, purchaseToResponse(purchase))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, OwnedFeatureListResponse{Features: features})
}

// Purchase handles POST /features/{featureID}/purchase requests.
// The feature is identified by its catalog slug.
func (h *FeatureHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	accountID, ok := requireAccountID(w, r)
	if !ok {
		return
	}

	featureID := chi.URLParam(r, "featureID")
	if featureID == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Feature ID is required")
		return
	}

	var req PurchaseFeatureRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	result, err := h.featureService.Purchase(r.Context(), feature.PurchaseRequest{
		AccountID: accountID,
		FeatureID: featureID,
		RequestID: req.RequestID,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to purchase feature")
		return
	}

	log.Debug("feature purchased",
		slog.String("account_id", accountID.String()),
		slog.String("feature_id", featureID),
		slog.Int64("price_paid", result.Purchase.PricePaid))
	shared.RespondWithJSON(w, r, http.StatusCreated, PurchaseResultResponse{
		Feature:     featureToResponse(result.Feature),
		Purchase:    purchaseToResponse(result.Purchase),
		Transaction: transactionToResponse(result.Transaction),
	})
}

// PurchaseBundle handles POST /bundles/{bundleID}/purchase requests.
// The bundle is all-or-nothing: owning any member feature rejects it.
func (h *FeatureHandler) PurchaseBundle(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	accountID, ok := requireAccountID(w, r)
	if !ok {
		return
	}

	bundleID := chi.URLParam(r, "bundleID")
	if bundleID == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Bundle ID is required")
		return
	}

	var req PurchaseFeatureRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	result, err := h.featureService.PurchaseBundle(r.Context(), feature.BundlePurchaseRequest{
		AccountID: accountID,
		BundleID:  bundleID,
		RequestID: req.RequestID,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to purchase bundle")
		return
	}

	purchases := make([]OwnedFeatureResponse, 0, len(result.Purchases))
	for _, purchase := range result.Purchases {
		purchases = append(purchases, purchaseToResponse(purchase))
	}

	log.Debug("bundle purchased",
		slog.String("account_id", accountID.String()),
		slog.String("bundle_id", bundleID),
		slog.Int("features", len(purchases)))
	shared.RespondWithJSON(w, r, http.StatusCreated, BundlePurchaseResultResponse{
		BundleID:    result.Bundle.ID,
		BundleName:  result.Bundle.Name,
		PriceXP:     result.Bundle.PriceXP,
		Purchases:   purchases,
		Transaction: transactionToResponse(result.Transaction),
	})
}

// featureToResponse converts a domain.FeatureCatalogEntry to a
// FeatureResponse.
func featureToResponse(entry *domain.FeatureCatalogEntry) FeatureResponse {
	return FeatureResponse{
		ID:       entry.ID,
		Name:     entry.Name,
		Category: string(entry.Category),
		PriceXP:  entry.PriceXP,
		BundleID: entry.BundleID,
	}
}

// purchaseToResponse converts a domain.FeaturePurchase to an
// OwnedFeatureResponse.
func purchaseToResponse(purchase *domain.FeaturePurchase) OwnedFeatureResponse {
	return OwnedFeatureResponse{
		ID:            purchase.ID.String(),
		FeatureID:     purchase.FeatureID,
		PricePaid:     purchase.PricePaid,
		TransactionID: purchase.TransactionID.String(),
		CreatedAt:     purchase.CreatedAt,
	}
}
