package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/readquest/xp-api/internal/api/shared"
	"github.com/readquest/xp-api/internal/config"
	"github.com/readquest/xp-api/internal/domain"
	"github.com/readquest/xp-api/internal/redact"
	"github.com/readquest/xp-api/internal/service/auth"
	"github.com/readquest/xp-api/internal/store"
)

// AuthHandler handles authentication-related API requests.
type AuthHandler struct {
	accountStore     store.AccountStore
	jwtService       auth.JWTService
	passwordVerifier auth.PasswordVerifier
	authConfig       *config.AuthConfig
	validator        *validator.Validate
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
func NewAuthHandler(
	accountStore store.AccountStore,
	jwtService auth.JWTService,
	passwordVerifier auth.PasswordVerifier,
	authConfig *config.AuthConfig,
) *AuthHandler {
	return &AuthHandler{
		accountStore:     accountStore,
		jwtService:       jwtService,
		passwordVerifier: passwordVerifier,
		authConfig:       authConfig,
		validator:        validator.New(),
	}
}

// accessTokenExpiry returns the ISO 8601 expiry timestamp for an access
// token generated now.
func (h *AuthHandler) accessTokenExpiry() string {
	lifetime := time.Duration(h.authConfig.TokenLifetimeMinutes) * time.Minute
	return time.Now().UTC().Add(lifetime).Format(time.RFC3339)
}

// Register handles the /auth/register endpoint.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest

	// Parse request
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	// Validate request
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	// Create account with the starting balances and reading speeds
	account, err := domain.NewAccount(req.Email, req.Password)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid account data: "+err.Error())
		return
	}

	// Store account; the store hashes the plaintext password
	if err := h.accountStore.Create(r.Context(), account); err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			shared.RespondWithError(w, r, http.StatusConflict, "Email already exists")
			return
		}
		slog.Error("failed to create account", "error", redact.Error(err))
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to create account")
		return
	}

	// Generate token pair
	accessToken, err := h.jwtService.GenerateToken(r.Context(), account.ID)
	if err != nil {
		slog.Error("failed to generate token", "error", redact.Error(err), "account_id", account.ID)
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to generate authentication token")
		return
	}

	refreshToken, err := h.jwtService.GenerateRefreshToken(r.Context(), account.ID)
	if err != nil {
		slog.Error("failed to generate refresh token", "error", redact.Error(err), "account_id", account.ID)
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to generate authentication token")
		return
	}

	// Return success response
	shared.RespondWithJSON(w, r, http.StatusCreated, AuthResponse{
		AccountID:    account.ID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    h.accessTokenExpiry(),
	})
}

// Login handles the /auth/login endpoint.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	// Parse request
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	// Validate request
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	// Get account by email
	account, err := h.accountStore.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		slog.Error("failed to get account by email", "error", redact.Error(err))
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to authenticate account")
		return
	}

	// Verify password using the injected verifier
	if err := h.passwordVerifier.Compare(account.HashedPassword, req.Password); err != nil {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	// Generate token pair
	accessToken, err := h.jwtService.GenerateToken(r.Context(), account.ID)
	if err != nil {
		slog.Error("failed to generate token", "error", redact.Error(err), "account_id", account.ID)
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to generate authentication token")
		return
	}

	refreshToken, err := h.jwtService.GenerateRefreshToken(r.Context(), account.ID)
	if err != nil {
		slog.Error("failed to generate refresh token", "error", redact.Error(err), "account_id", account.ID)
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to generate authentication token")
		return
	}

	// Return success response
	shared.RespondWithJSON(w, r, http.StatusOK, AuthResponse{
		AccountID:    account.ID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    h.accessTokenExpiry(),
	})
}

// RefreshToken handles the /auth/refresh endpoint. It validates the refresh
// token and issues a fresh token pair.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest

	// Parse request
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	// Validate request
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	// Validate the refresh token
	claims, err := h.jwtService.ValidateRefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to refresh token")
		return
	}

	// Issue a fresh pair
	accessToken, err := h.jwtService.GenerateToken(r.Context(), claims.AccountID)
	if err != nil {
		slog.Error("failed to generate token", "error", redact.Error(err), "account_id", claims.AccountID)
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to generate authentication token")
		return
	}

	refreshToken, err := h.jwtService.GenerateRefreshToken(r.Context(), claims.AccountID)
	if err != nil {
		slog.Error("failed to generate refresh token", "error", redact.Error(err), "account_id", claims.AccountID)
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to generate authentication token")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, RefreshTokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    h.accessTokenExpiry(),
	})
}
