package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/readquest/xp-api/internal/api/shared"
	"github.com/readquest/xp-api/internal/domain"
	"github.com/readquest/xp-api/internal/service/auth"
	"github.com/readquest/xp-api/internal/service/progression"
	"github.com/readquest/xp-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized

	// The spendable balance does not cover the cost
	case errors.Is(err, domain.ErrInsufficientXP):
		return http.StatusPaymentRequired

	// Forbidden by economy policy
	case errors.Is(err, domain.ErrSpendingFrozen),
		errors.Is(err, domain.ErrCommentLocked):
		return http.StatusForbidden

	// Not found errors
	case store.IsNotFoundError(err):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, store.ErrEmailExists),
		errors.Is(err, domain.ErrAlreadyOwned),
		errors.Is(err, domain.ErrTransientConflict):
		return http.StatusConflict

	// Collaborator did not answer in time
	case errors.Is(err, progression.ErrContentUnavailable):
		return http.StatusServiceUnavailable

	// Bad request errors
	case errors.Is(err, progression.ErrWPMAboveMax),
		errors.Is(err, domain.ErrSpeedAboveMax),
		errors.Is(err, domain.ErrScoreOutOfRange),
		errors.Is(err, domain.ErrInvalidAttemptWPM),
		errors.Is(err, domain.ErrInvalidReadingSpeed),
		errors.Is(err, domain.ErrSelfInteraction),
		errors.Is(err, domain.ErrInvalidInteractionKind),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	// Handle nil error
	if err == nil {
		return "An unexpected error occurred"
	}

	// Insufficient balance carries the amounts; they are part of the
	// contract, not a leak.
	var insufficientErr *domain.InsufficientXPError
	if errors.As(err, &insufficientErr) {
		return fmt.Sprintf(
			"Insufficient XP: requires %d, available %d",
			insufficientErr.Required,
			insufficientErr.Available,
		)
	}

	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken):
		return "Invalid token"

	case errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType):
		return "Invalid refresh token"

	case errors.Is(err, domain.ErrUnauthorized):
		return "Unauthorized"

	// Economy policy errors
	case errors.Is(err, domain.ErrInsufficientXP):
		return "Insufficient XP"

	case errors.Is(err, domain.ErrSpendingFrozen):
		return "Account spending is frozen"

	case errors.Is(err, domain.ErrCommentLocked):
		return "Comments are locked until a passing quiz attempt on this content"

	case errors.Is(err, domain.ErrAlreadyOwned):
		return "Feature already owned"

	case errors.Is(err, domain.ErrTransientConflict):
		return "Operation conflicted with concurrent activity, please retry"

	case errors.Is(err, domain.ErrSelfInteraction):
		return "Cannot interact with your own comment"

	case errors.Is(err, domain.ErrInvalidInteractionKind):
		return "Invalid interaction kind"

	// Not found errors
	case errors.Is(err, store.ErrAccountNotFound):
		return "Account not found"

	case errors.Is(err, store.ErrFeatureNotFound):
		return "Feature not found"

	case errors.Is(err, store.ErrBundleNotFound):
		return "Bundle not found"

	case errors.Is(err, store.ErrContentMetricsNotFound):
		return "Content not found"

	case errors.Is(err, store.ErrAttemptNotFound):
		return "Quiz attempt not found"

	case errors.Is(err, store.ErrTransactionNotFound):
		return "Transaction not found"

	case store.IsNotFoundError(err):
		return "Not found"

	// Conflict errors
	case errors.Is(err, store.ErrEmailExists):
		return "Email already exists"

	// Collaborator errors
	case errors.Is(err, progression.ErrContentUnavailable):
		return "Content metrics unavailable, please try again"

	// Bad request errors
	case errors.Is(err, progression.ErrWPMAboveMax):
		return "Reading speed exceeds your current maximum"

	case errors.Is(err, domain.ErrSpeedAboveMax):
		return "Reading speed exceeds your current maximum"

	case errors.Is(err, domain.ErrScoreOutOfRange):
		return "Score must be between 0 and 100"

	case errors.Is(err, domain.ErrInvalidAttemptWPM),
		errors.Is(err, domain.ErrInvalidReadingSpeed):
		return "Invalid reading speed"

	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid ID"

	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity):
		return "Invalid request data"

	// Default case for unknown errors
	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError maps the error to a status code and safe message, logs the
// full error, and writes the sanitized response. fallbackMessage replaces
// the generic message for unrecognized errors so each endpoint can name the
// operation that failed.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallbackMessage string) {
	statusCode := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)

	if statusCode == http.StatusInternalServerError && fallbackMessage != "" {
		message = fallbackMessage
	}

	shared.RespondWithErrorAndLog(w, r, statusCode, message, err)
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	// Check if this is likely a validation error message
	if strings.Contains(errMsg, "Field validation") {
		// Extract the field name and validation tag
		// Example format: "Key: 'LoginRequest.Email' Error:Field validation for 'Email' failed on the 'required' tag"
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}

				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	// Fall back to a generic validation error message
	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "email":
		return "invalid email format"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	case "uuid":
		return "must be a valid UUID"
	default:
		return "validation failed"
	}
}
