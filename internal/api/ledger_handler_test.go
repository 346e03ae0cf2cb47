package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/readquest/xp-api/internal/api/shared"
	"github.com/readquest/xp-api/internal/domain"
	"github.com/readquest/xp-api/internal/service/ledger"
	"github.com/readquest/xp-api/internal/store"
	"github.com/stretchr/testify/assert"
)

// mockLedgerService is a mock implementation of the LedgerService interface
type mockLedgerService struct {
	earnFn             func(ctx context.Context, req ledger.EarnRequest) (*domain.Transaction, error)
	spendFn            func(ctx context.Context, req ledger.SpendRequest) (*domain.Transaction, error)
	getBalanceFn       func(ctx context.Context, accountID uuid.UUID) (domain.Balance, error)
	getByRequestIDFn   func(ctx context.Context, accountID uuid.UUID, requestID string) (*domain.Transaction, error)
	listTransactionsFn func(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*domain.Transaction, error)
	runSerializedFn    func(ctx context.Context, fn func(ctx context.Context, tx ledger.Tx) error) error
}

func (m *mockLedgerService) Earn(ctx context.Context, req ledger.EarnRequest) (*domain.Transaction, error) {
	return m.earnFn(ctx, req)
}

func (m *mockLedgerService) Spend(ctx context.Context, req ledger.SpendRequest) (*domain.Transaction, error) {
	return m.spendFn(ctx, req)
}

func (m *mockLedgerService) GetBalance(ctx context.Context, accountID uuid.UUID) (domain.Balance, error) {
	return m.getBalanceFn(ctx, accountID)
}

func (m *mockLedgerService) GetByRequestID(
	ctx context.Context,
	accountID uuid.UUID,
	requestID string,
) (*domain.Transaction, error) {
	return m.getByRequestIDFn(ctx, accountID, requestID)
}

func (m *mockLedgerService) ListTransactions(
	ctx context.Context,
	accountID uuid.UUID,
	limit, offset int,
) ([]*domain.Transaction, error) {
	return m.listTransactionsFn(ctx, accountID, limit, offset)
}

func (m *mockLedgerService) RunSerialized(
	ctx context.Context,
	fn func(ctx context.Context, tx ledger.Tx) error,
) error {
	return m.runSerializedFn(ctx, fn)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGetBalance(t *testing.T) {
	accountID := uuid.New()

	tests := []struct {
		name                string
		accountIDInCtx      uuid.UUID
		balance             domain.Balance
		serviceError        error
		expectedStatusCode  int
		expectedErrContains string
	}{
		{
			name:               "Success",
			accountIDInCtx:     accountID,
			balance:            domain.Balance{AccumulatedXP: 1200, SpendableXP: 450},
			expectedStatusCode: http.StatusOK,
		},
		{
			name:                "Account Not Found",
			accountIDInCtx:      accountID,
			serviceError:        ledger.NewServiceError("get_balance", "account lookup failed", store.ErrAccountNotFound),
			expectedStatusCode:  http.StatusNotFound,
			expectedErrContains: "Account not found",
		},
		{
			name:                "Internal Server Error",
			accountIDInCtx:      accountID,
			serviceError:        errors.New("database error"),
			expectedStatusCode:  http.StatusInternalServerError,
			expectedErrContains: "Failed to get balance",
		},
		{
			name:                "Missing Account ID",
			accountIDInCtx:      uuid.Nil,
			expectedStatusCode:  http.StatusUnauthorized,
			expectedErrContains: "Account ID",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &mockLedgerService{
				getBalanceFn: func(ctx context.Context, id uuid.UUID) (domain.Balance, error) {
					return tt.balance, tt.serviceError
				},
			}

			handler := NewLedgerHandler(mockService, newTestLogger())

			req, err := http.NewRequest(http.MethodGet, "/balance", nil)
			if err != nil {
				t.Fatal(err)
			}
			if tt.accountIDInCtx != uuid.Nil {
				req = req.WithContext(
					context.WithValue(req.Context(), shared.AccountIDContextKey, tt.accountIDInCtx),
				)
			}

			rr := httptest.NewRecorder()
			handler.GetBalance(rr, req)

			assert.Equal(t, tt.expectedStatusCode, rr.Code)

			if tt.expectedErrContains != "" {
				var errResp shared.ErrorResponse
				if err := json.NewDecoder(rr.Body).Decode(&errResp); err == nil {
					assert.Contains(t, errResp.Error, tt.expectedErrContains)
				}
			}

			if tt.expectedStatusCode == http.StatusOK {
				var response BalanceResponse
				if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
					t.Errorf("failed to decode response body: %v", err)
					return
				}
				assert.Equal(t, accountID.String(), response.AccountID)
				assert.Equal(t, int64(1200), response.AccumulatedXP)
				assert.Equal(t, int64(450), response.SpendableXP)
			}
		})
	}
}

func TestListTransactions(t *testing.T) {
	accountID := uuid.New()
	now := time.Now().UTC()

	sampleTransactions := []*domain.Transaction{
		{
			ID:           uuid.New(),
			AccountID:    accountID,
			Type:         domain.TransactionTypeEarn,
			Amount:       150,
			Source:       domain.SourceQuizReward,
			BalanceAfter: 450,
			RequestID:    "attempt-1",
			CreatedAt:    now,
		},
		{
			ID:           uuid.New(),
			AccountID:    accountID,
			Type:         domain.TransactionTypeSpend,
			Amount:       -100,
			Source:       domain.PurposeComment,
			BalanceAfter: 300,
			CreatedAt:    now.Add(-time.Hour),
		},
	}

	tests := []struct {
		name                string
		accountIDInCtx      uuid.UUID
		query               string
		transactions        []*domain.Transaction
		serviceError        error
		expectedLimit       int
		expectedOffset      int
		expectedStatusCode  int
		expectedErrContains string
	}{
		{
			name:               "Success With Defaults",
			accountIDInCtx:     accountID,
			transactions:       sampleTransactions,
			expectedLimit:      20,
			expectedOffset:     0,
			expectedStatusCode: http.StatusOK,
		},
		{
			name:               "Explicit Pagination",
			accountIDInCtx:     accountID,
			query:              "?limit=5&offset=10",
			transactions:       sampleTransactions[:1],
			expectedLimit:      5,
			expectedOffset:     10,
			expectedStatusCode: http.StatusOK,
		},
		{
			name:               "Limit Clamped To Maximum",
			accountIDInCtx:     accountID,
			query:              "?limit=500",
			transactions:       nil,
			expectedLimit:      100,
			expectedOffset:     0,
			expectedStatusCode: http.StatusOK,
		},
		{
			name:               "Malformed Pagination Falls Back To Defaults",
			accountIDInCtx:     accountID,
			query:              "?limit=abc&offset=-3",
			transactions:       nil,
			expectedLimit:      20,
			expectedOffset:     0,
			expectedStatusCode: http.StatusOK,
		},
		{
			name:                "Internal Server Error",
			accountIDInCtx:      accountID,
			serviceError:        errors.New("database error"),
			expectedLimit:       20,
			expectedOffset:      0,
			expectedStatusCode:  http.StatusInternalServerError,
			expectedErrContains: "Failed to list transactions",
		},
		{
			name:                "Missing Account ID",
			accountIDInCtx:      uuid.Nil,
			expectedStatusCode:  http.StatusUnauthorized,
			expectedErrContains: "Account ID",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotLimit, gotOffset int
			mockService := &mockLedgerService{
				listTransactionsFn: func(
					ctx context.Context,
					id uuid.UUID,
					limit, offset int,
				) ([]*domain.Transaction, error) {
					gotLimit = limit
					gotOffset = offset
					return tt.transactions, tt.serviceError
				},
			}

			handler := NewLedgerHandler(mockService, newTestLogger())

			req, err := http.NewRequest(http.MethodGet, "/transactions"+tt.query, nil)
			if err != nil {
				t.Fatal(err)
			}
			if tt.accountIDInCtx != uuid.Nil {
				req = req.WithContext(
					context.WithValue(req.Context(), shared.AccountIDContextKey, tt.accountIDInCtx),
				)
			}

			rr := httptest.NewRecorder()
			handler.ListTransactions(rr, req)

			assert.Equal(t, tt.expectedStatusCode, rr.Code)

			if tt.accountIDInCtx != uuid.Nil {
				assert.Equal(t, tt.expectedLimit, gotLimit)
				assert.Equal(t, tt.expectedOffset, gotOffset)
			}

			if tt.expectedErrContains != "" {
				var errResp shared.ErrorResponse
				if err := json.NewDecoder(rr.Body).Decode(&errResp); err == nil {
					assert.Contains(t, errResp.Error, tt.expectedErrContains)
				}
			}

			if tt.expectedStatusCode == http.StatusOK {
				var response TransactionListResponse
				if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
					t.Errorf("failed to decode response body: %v", err)
					return
				}
				assert.Equal(t, len(tt.transactions), len(response.Transactions))
				assert.Equal(t, tt.expectedLimit, response.Limit)
				assert.Equal(t, tt.expectedOffset, response.Offset)
				if len(response.Transactions) > 0 {
					assert.Equal(t, sampleTransactions[0].ID.String(), response.Transactions[0].ID)
					assert.Equal(t, "EARN", response.Transactions[0].Type)
					assert.Equal(t, int64(150), response.Transactions[0].Amount)
				}
			}
		})
	}
}
