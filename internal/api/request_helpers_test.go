package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/readquest/xp-api/internal/api/shared"
	"github.com/readquest/xp-api/internal/domain"
)

func TestGetAccountIDFromContext(t *testing.T) {
	tests := []struct {
		name              string
		setupContext      func() context.Context
		expectedAccountID uuid.UUID
		expectedOK        bool
	}{
		{
			name: "valid account ID in context",
			setupContext: func() context.Context {
				accountID := uuid.New()
				return context.WithValue(context.Background(), shared.AccountIDContextKey, accountID)
			},
			expectedOK: true,
		},
		{
			name: "missing account ID in context",
			setupContext: func() context.Context {
				return context.Background()
			},
			expectedAccountID: uuid.Nil,
			expectedOK:        false,
		},
		{
			name: "nil account ID in context",
			setupContext: func() context.Context {
				return context.WithValue(context.Background(), shared.AccountIDContextKey, uuid.Nil)
			},
			expectedAccountID: uuid.Nil,
			expectedOK:        false,
		},
		{
			name: "wrong type in context",
			setupContext: func() context.Context {
				return context.WithValue(context.Background(), shared.AccountIDContextKey, "not-a-uuid")
			},
			expectedAccountID: uuid.Nil,
			expectedOK:        false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, "/test", nil)
			if err != nil {
				t.Fatal(err)
			}
			req = req.WithContext(tt.setupContext())

			accountID, ok := getAccountIDFromContext(req)

			assert.Equal(t, tt.expectedOK, ok)
			if !tt.expectedOK {
				assert.Equal(t, tt.expectedAccountID, accountID)
			} else {
				assert.NotEqual(t, uuid.Nil, accountID)
			}
		})
	}
}

func TestRequireAccountID(t *testing.T) {
	t.Run("present", func(t *testing.T) {
		accountID := uuid.New()
		req, err := http.NewRequest(http.MethodGet, "/test", nil)
		if err != nil {
			t.Fatal(err)
		}
		req = req.WithContext(
			context.WithValue(req.Context(), shared.AccountIDContextKey, accountID),
		)
		rr := httptest.NewRecorder()

		got, ok := requireAccountID(rr, req)

		assert.True(t, ok)
		assert.Equal(t, accountID, got)
		assert.Equal(t, 0, rr.Body.Len())
	})

	t.Run("absent writes 401", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, "/test", nil)
		if err != nil {
			t.Fatal(err)
		}
		rr := httptest.NewRecorder()

		_, ok := requireAccountID(rr, req)

		assert.False(t, ok)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Contains(t, rr.Body.String(), "Account ID")
	})
}

func TestGetPathUUID(t *testing.T) {
	validID := uuid.New()

	tests := []struct {
		name        string
		paramValue  string
		expectedID  uuid.UUID
		expectedErr error
	}{
		{
			name:       "valid UUID",
			paramValue: validID.String(),
			expectedID: validID,
		},
		{
			name:        "missing parameter",
			paramValue:  "",
			expectedErr: domain.ErrValidation,
		},
		{
			name:        "malformed UUID",
			paramValue:  "not-a-uuid",
			expectedErr: domain.ErrInvalidID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, "/test/"+tt.paramValue, nil)
			if err != nil {
				t.Fatal(err)
			}

			rctx := chi.NewRouteContext()
			if tt.paramValue != "" {
				rctx.URLParams.Add("id", tt.paramValue)
			}
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

			id, err := getPathUUID(req, "id")

			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				assert.Equal(t, uuid.Nil, id)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedID, id)
			}
		})
	}
}

func TestGetQueryUUID(t *testing.T) {
	validID := uuid.New()

	tests := []struct {
		name        string
		query       string
		expectedID  uuid.UUID
		expectedErr error
	}{
		{
			name:       "valid UUID",
			query:      "?content_id=" + validID.String(),
			expectedID: validID,
		},
		{
			name:        "missing parameter",
			query:       "",
			expectedErr: domain.ErrValidation,
		},
		{
			name:        "malformed UUID",
			query:       "?content_id=not-a-uuid",
			expectedErr: domain.ErrInvalidID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, "/test"+tt.query, nil)
			if err != nil {
				t.Fatal(err)
			}

			id, err := getQueryUUID(req, "content_id")

			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				assert.Equal(t, uuid.Nil, id)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedID, id)
			}
		})
	}
}

func TestGetPagination(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		expectedLimit  int
		expectedOffset int
	}{
		{
			name:           "defaults",
			query:          "",
			expectedLimit:  20,
			expectedOffset: 0,
		},
		{
			name:           "explicit values",
			query:          "?limit=50&offset=5",
			expectedLimit:  50,
			expectedOffset: 5,
		},
		{
			name:           "limit clamped to maximum",
			query:          "?limit=500",
			expectedLimit:  100,
			expectedOffset: 0,
		},
		{
			name:           "zero limit falls back to default",
			query:          "?limit=0",
			expectedLimit:  20,
			expectedOffset: 0,
		},
		{
			name:           "negative values fall back to defaults",
			query:          "?limit=-5&offset=-3",
			expectedLimit:  20,
			expectedOffset: 0,
		},
		{
			name:           "malformed values fall back to defaults",
			query:          "?limit=abc&offset=xyz",
			expectedLimit:  20,
			expectedOffset: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, "/test"+tt.query, nil)
			if err != nil {
				t.Fatal(err)
			}

			limit, offset := getPagination(req)

			assert.Equal(t, tt.expectedLimit, limit)
			assert.Equal(t, tt.expectedOffset, offset)
		})
	}
}
