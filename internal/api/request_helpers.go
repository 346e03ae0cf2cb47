package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/readquest/xp-api/internal/api/shared"
	"github.com/readquest/xp-api/internal/domain"
)

// Paging defaults for list endpoints.
const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// getAccountIDFromContext extracts the authenticated account's UUID from the
// request context, where the authentication middleware placed it.
// Returns a zero UUID and false if the account ID is missing or invalid.
func getAccountIDFromContext(r *http.Request) (uuid.UUID, bool) {
	accountID, ok := r.Context().Value(shared.AccountIDContextKey).(uuid.UUID)
	if !ok || accountID == uuid.Nil {
		return uuid.Nil, false
	}
	return accountID, true
}

// requireAccountID extracts the authenticated account ID or writes a 401
// response. Returns false when the response has been written.
func requireAccountID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	accountID, ok := getAccountIDFromContext(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Account ID not found or invalid")
		return uuid.Nil, false
	}
	return accountID, true
}

// getPathUUID extracts a UUID from the named URL path parameter.
// Returns a zero UUID and an error wrapping domain.ErrValidation or
// domain.ErrInvalidID if the parameter is missing or malformed.
func getPathUUID(r *http.Request, paramName string) (uuid.UUID, error) {
	pathParam := chi.URLParam(r, paramName)
	if pathParam == "" {
		return uuid.Nil, fmt.Errorf("%s is required: %w", paramName, domain.ErrValidation)
	}

	id, err := uuid.Parse(pathParam)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s has invalid format: %w", paramName, domain.ErrInvalidID)
	}

	return id, nil
}

// getQueryUUID extracts a UUID from the named query parameter.
// Returns the same wrapped errors as getPathUUID for missing or malformed
// values.
func getQueryUUID(r *http.Request, paramName string) (uuid.UUID, error) {
	raw := r.URL.Query().Get(paramName)
	if raw == "" {
		return uuid.Nil, fmt.Errorf("%s query parameter is required: %w", paramName, domain.ErrValidation)
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s has invalid format: %w", paramName, domain.ErrInvalidID)
	}

	return id, nil
}

// getPagination parses the limit and offset query parameters, applying the
// default page size and clamping the limit to its maximum. Malformed or
// negative values fall back to the defaults.
func getPagination(r *http.Request) (limit, offset int) {
	limit = defaultPageLimit
	offset = 0

	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	if raw := r.URL.Query().Get("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	return limit, offset
}
