package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/readquest/xp-api/internal/api/shared"
	"github.com/readquest/xp-api/internal/domain"
	"github.com/readquest/xp-api/internal/service/auth"
	"github.com/readquest/xp-api/internal/service/feature"
	"github.com/readquest/xp-api/internal/service/ledger"
	"github.com/readquest/xp-api/internal/service/progression"
	"github.com/readquest/xp-api/internal/service/social"
	"github.com/readquest/xp-api/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestMapErrorToStatusCode(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{
			name:           "nil error",
			err:            nil,
			expectedStatus: http.StatusInternalServerError, // Default to 500 for nil error
		},
		{
			name:           "authentication error",
			err:            auth.ErrInvalidToken,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "wrapped authentication error",
			err:            fmt.Errorf("failed to authenticate: %w", auth.ErrInvalidToken),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "refresh token error",
			err:            auth.ErrExpiredRefreshToken,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "unauthorized sentinel",
			err:            domain.ErrUnauthorized,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "insufficient XP sentinel",
			err:            domain.ErrInsufficientXP,
			expectedStatus: http.StatusPaymentRequired,
		},
		{
			name:           "insufficient XP with amounts",
			err:            domain.NewInsufficientXPError(100, 40),
			expectedStatus: http.StatusPaymentRequired,
		},
		{
			name:           "insufficient XP wrapped in service error",
			err:            social.NewServiceError("authorize_comment", "balance too low", domain.NewInsufficientXPError(100, 40)),
			expectedStatus: http.StatusPaymentRequired,
		},
		{
			name:           "spending frozen",
			err:            domain.ErrSpendingFrozen,
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "comment locked",
			err:            domain.ErrCommentLocked,
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "not found error",
			err:            store.ErrAccountNotFound,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "not found wrapped in service error",
			err:            ledger.NewServiceError("get_balance", "account lookup failed", store.ErrAccountNotFound),
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "feature not found",
			err:            feature.NewServiceError("purchase", "feature not in catalog", store.ErrFeatureNotFound),
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "conflict error",
			err:            store.ErrEmailExists,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "already owned",
			err:            domain.ErrAlreadyOwned,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "transient conflict",
			err:            domain.ErrTransientConflict,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "content unavailable",
			err:            progression.ErrContentUnavailable,
			expectedStatus: http.StatusServiceUnavailable,
		},
		{
			name:           "wpm above maximum",
			err:            progression.ErrWPMAboveMax,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "self interaction",
			err:            domain.ErrSelfInteraction,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid interaction kind",
			err:            domain.ErrInvalidInteractionKind,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad request error",
			err:            store.ErrInvalidEntity,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unknown error",
			err:            errors.New("unknown error"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := MapErrorToStatusCode(tt.err)
			assert.Equal(t, tt.expectedStatus, status)
		})
	}
}

func TestGetSafeErrorMessage(t *testing.T) {
	tests := []struct {
		name            string
		err             error
		expectedMessage string
	}{
		{
			name:            "nil error",
			err:             nil,
			expectedMessage: "An unexpected error occurred",
		},
		{
			name:            "authentication error",
			err:             auth.ErrInvalidToken,
			expectedMessage: "Invalid token",
		},
		{
			name:            "wrapped authentication error",
			err:             fmt.Errorf("failed due to: %w", auth.ErrInvalidToken),
			expectedMessage: "Invalid token",
		},
		{
			name:            "refresh token error",
			err:             auth.ErrExpiredRefreshToken,
			expectedMessage: "Invalid refresh token",
		},
		{
			name:            "insufficient XP with amounts",
			err:             domain.NewInsufficientXPError(100, 40),
			expectedMessage: "Insufficient XP: requires 100, available 40",
		},
		{
			name:            "insufficient XP wrapped in service error",
			err:             social.NewServiceError("authorize_comment", "balance too low", domain.NewInsufficientXPError(250, 30)),
			expectedMessage: "Insufficient XP: requires 250, available 30",
		},
		{
			name:            "bare insufficient XP sentinel",
			err:             fmt.Errorf("spend rejected: %w", domain.ErrInsufficientXP),
			expectedMessage: "Insufficient XP",
		},
		{
			name:            "spending frozen",
			err:             domain.ErrSpendingFrozen,
			expectedMessage: "Account spending is frozen",
		},
		{
			name:            "comment locked",
			err:             domain.ErrCommentLocked,
			expectedMessage: "Comments are locked until a passing quiz attempt on this content",
		},
		{
			name:            "already owned",
			err:             domain.ErrAlreadyOwned,
			expectedMessage: "Feature already owned",
		},
		{
			name:            "transient conflict",
			err:             domain.ErrTransientConflict,
			expectedMessage: "Operation conflicted with concurrent activity, please retry",
		},
		{
			name:            "self interaction",
			err:             domain.ErrSelfInteraction,
			expectedMessage: "Cannot interact with your own comment",
		},
		{
			name:            "account not found",
			err:             store.ErrAccountNotFound,
			expectedMessage: "Account not found",
		},
		{
			name:            "feature not found",
			err:             store.ErrFeatureNotFound,
			expectedMessage: "Feature not found",
		},
		{
			name:            "bundle not found",
			err:             store.ErrBundleNotFound,
			expectedMessage: "Bundle not found",
		},
		{
			name:            "content metrics not found",
			err:             store.ErrContentMetricsNotFound,
			expectedMessage: "Content not found",
		},
		{
			name:            "generic not found",
			err:             store.ErrNotFound,
			expectedMessage: "Not found",
		},
		{
			name:            "email exists",
			err:             store.ErrEmailExists,
			expectedMessage: "Email already exists",
		},
		{
			name:            "content unavailable",
			err:             progression.ErrContentUnavailable,
			expectedMessage: "Content metrics unavailable, please try again",
		},
		{
			name:            "wpm above maximum",
			err:             progression.NewServiceError("record_attempt", "wpm above maximum", progression.ErrWPMAboveMax),
			expectedMessage: "Reading speed exceeds your current maximum",
		},
		{
			name:            "validation sentinel",
			err:             domain.ErrValidation,
			expectedMessage: "Invalid request data",
		},
		{
			name:            "unknown error",
			err:             errors.New("pq: connection to 10.0.0.5 refused"),
			expectedMessage: "An unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			message := GetSafeErrorMessage(tt.err)
			assert.Equal(t, tt.expectedMessage, message)
		})
	}
}

func TestHandleAPIError(t *testing.T) {
	tests := []struct {
		name            string
		err             error
		fallbackMessage string
		expectedStatus  int
		expectedError   string
	}{
		{
			name:            "unknown error uses fallback",
			err:             errors.New("pg: deadlock detected"),
			fallbackMessage: "Failed to record quiz attempt",
			expectedStatus:  http.StatusInternalServerError,
			expectedError:   "Failed to record quiz attempt",
		},
		{
			name:            "unknown error without fallback",
			err:             errors.New("pg: deadlock detected"),
			fallbackMessage: "",
			expectedStatus:  http.StatusInternalServerError,
			expectedError:   "An unexpected error occurred",
		},
		{
			name:            "recognized error ignores fallback",
			err:             ledger.NewServiceError("get_balance", "account lookup failed", store.ErrAccountNotFound),
			fallbackMessage: "Failed to get balance",
			expectedStatus:  http.StatusNotFound,
			expectedError:   "Account not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, "/test", nil)
			if err != nil {
				t.Fatal(err)
			}

			rr := httptest.NewRecorder()
			HandleAPIError(rr, req, tt.err, tt.fallbackMessage)

			assert.Equal(t, tt.expectedStatus, rr.Code)

			var errResp shared.ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
				t.Fatalf("failed to decode response body: %v", err)
			}
			assert.Equal(t, tt.expectedError, errResp.Error)
			// Raw error detail must never reach the client.
			assert.NotContains(t, errResp.Error, "pg:")
			assert.NotContains(t, errResp.Error, "deadlock")
		})
	}
}

func TestSanitizeValidationError(t *testing.T) {
	type probe struct {
		Email string `validate:"required,email"`
	}
	v := validator.New()

	t.Run("required field", func(t *testing.T) {
		err := v.Struct(probe{})
		assert.Equal(t, "Invalid Email: required field", SanitizeValidationError(err))
	})

	t.Run("email format", func(t *testing.T) {
		err := v.Struct(probe{Email: "not-an-email"})
		assert.Equal(t, "Invalid Email: invalid email format", SanitizeValidationError(err))
	})

	t.Run("non validation error", func(t *testing.T) {
		err := errors.New("some other failure")
		assert.Equal(t, "Validation error", SanitizeValidationError(err))
	})
}
