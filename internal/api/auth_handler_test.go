package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/readquest/xp-api/internal/api/shared"
	"github.com/readquest/xp-api/internal/config"
	"github.com/readquest/xp-api/internal/domain"
	"github.com/readquest/xp-api/internal/service/auth"
	"github.com/readquest/xp-api/internal/store"
	"github.com/stretchr/testify/assert"
)

// mockAccountStore is a mock implementation of the AccountStore interface.
// Only the methods the auth handler touches are configurable.
type mockAccountStore struct {
	createFn     func(ctx context.Context, account *domain.Account) error
	getByIDFn    func(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	getByEmailFn func(ctx context.Context, email string) (*domain.Account, error)
}

func (m *mockAccountStore) Create(ctx context.Context, account *domain.Account) error {
	return m.createFn(ctx, account)
}

func (m *mockAccountStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return m.getByIDFn(ctx, id)
}

func (m *mockAccountStore) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return m.getByEmailFn(ctx, email)
}

func (m *mockAccountStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return nil, store.ErrAccountNotFound
}

func (m *mockAccountStore) UpdateBalances(
	ctx context.Context,
	id uuid.UUID,
	accumulatedXP, spendableXP int64,
) error {
	return nil
}

func (m *mockAccountStore) UpdateReadingSpeed(
	ctx context.Context,
	id uuid.UUID,
	currentWPM, maxWPM int,
) error {
	return nil
}

func (m *mockAccountStore) SetSpendingFrozen(ctx context.Context, id uuid.UUID, frozen bool) error {
	return nil
}

func (m *mockAccountStore) List(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	return nil, nil
}

func (m *mockAccountStore) WithTx(tx *sql.Tx) store.AccountStore {
	return m
}

// mockJWTService is a mock implementation of the JWTService interface
type mockJWTService struct {
	generateTokenFn        func(ctx context.Context, accountID uuid.UUID) (string, error)
	validateTokenFn        func(ctx context.Context, tokenString string) (*auth.Claims, error)
	generateRefreshTokenFn func(ctx context.Context, accountID uuid.UUID) (string, error)
	validateRefreshTokenFn func(ctx context.Context, tokenString string) (*auth.Claims, error)
}

func (m *mockJWTService) GenerateToken(ctx context.Context, accountID uuid.UUID) (string, error) {
	return m.generateTokenFn(ctx, accountID)
}

func (m *mockJWTService) ValidateToken(ctx context.Context, tokenString string) (*auth.Claims, error) {
	return m.validateTokenFn(ctx, tokenString)
}

func (m *mockJWTService) GenerateRefreshToken(
	ctx context.Context,
	accountID uuid.UUID,
) (string, error) {
	return m.generateRefreshTokenFn(ctx, accountID)
}

func (m *mockJWTService) ValidateRefreshToken(
	ctx context.Context,
	tokenString string,
) (*auth.Claims, error) {
	return m.validateRefreshTokenFn(ctx, tokenString)
}

// mockPasswordVerifier is a mock implementation of the PasswordVerifier interface
type mockPasswordVerifier struct {
	compareFn func(hashedPassword, password string) error
}

func (m *mockPasswordVerifier) Compare(hashedPassword, password string) error {
	return m.compareFn(hashedPassword, password)
}

func testAuthConfig() *config.AuthConfig {
	return &config.AuthConfig{
		JWTSecret:                   "test-secret-key-thats-32-chars-long",
		BCryptCost:                  10,
		TokenLifetimeMinutes:        60,
		RefreshTokenLifetimeMinutes: 10080,
	}
}

func happyJWTService() *mockJWTService {
	return &mockJWTService{
		generateTokenFn: func(ctx context.Context, accountID uuid.UUID) (string, error) {
			return "access-token", nil
		},
		generateRefreshTokenFn: func(ctx context.Context, accountID uuid.UUID) (string, error) {
			return "refresh-token", nil
		},
	}
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name                string
		requestBody         string
		createErr           error
		jwtService          *mockJWTService
		expectedStatusCode  int
		expectedErrContains string
	}{
		{
			name:               "Success",
			requestBody:        `{"email": "reader@example.com", "password": "long-enough-password"}`,
			jwtService:         happyJWTService(),
			expectedStatusCode: http.StatusCreated,
		},
		{
			name:                "Email Already Exists",
			requestBody:         `{"email": "reader@example.com", "password": "long-enough-password"}`,
			createErr:           store.ErrEmailExists,
			jwtService:          happyJWTService(),
			expectedStatusCode:  http.StatusConflict,
			expectedErrContains: "Email already exists",
		},
		{
			name:                "Invalid Email",
			requestBody:         `{"email": "not-an-email", "password": "long-enough-password"}`,
			jwtService:          happyJWTService(),
			expectedStatusCode:  http.StatusBadRequest,
			expectedErrContains: "Email",
		},
		{
			name:                "Password Too Short",
			requestBody:         `{"email": "reader@example.com", "password": "short"}`,
			jwtService:          happyJWTService(),
			expectedStatusCode:  http.StatusBadRequest,
			expectedErrContains: "Password",
		},
		{
			name:                "Invalid Request Body",
			requestBody:         `{invalid json`,
			jwtService:          happyJWTService(),
			expectedStatusCode:  http.StatusBadRequest,
			expectedErrContains: "Invalid request format",
		},
		{
			name:                "Store Failure",
			requestBody:         `{"email": "reader@example.com", "password": "long-enough-password"}`,
			createErr:           errors.New("database error"),
			jwtService:          happyJWTService(),
			expectedStatusCode:  http.StatusInternalServerError,
			expectedErrContains: "Failed to create account",
		},
		{
			name:        "Token Generation Failure",
			requestBody: `{"email": "reader@example.com", "password": "long-enough-password"}`,
			jwtService: &mockJWTService{
				generateTokenFn: func(ctx context.Context, accountID uuid.UUID) (string, error) {
					return "", errors.New("signing failed")
				},
			},
			expectedStatusCode:  http.StatusInternalServerError,
			expectedErrContains: "Failed to generate authentication token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accountStore := &mockAccountStore{
				createFn: func(ctx context.Context, account *domain.Account) error {
					return tt.createErr
				},
			}
			verifier := &mockPasswordVerifier{
				compareFn: func(hashedPassword, password string) error { return nil },
			}

			handler := NewAuthHandler(accountStore, tt.jwtService, verifier, testAuthConfig())

			req, err := http.NewRequest(
				http.MethodPost,
				"/auth/register",
				bytes.NewBufferString(tt.requestBody),
			)
			if err != nil {
				t.Fatal(err)
			}
			req.Header.Set("Content-Type", "application/json")

			rr := httptest.NewRecorder()
			handler.Register(rr, req)

			assert.Equal(t, tt.expectedStatusCode, rr.Code)

			if tt.expectedErrContains != "" {
				var errResp shared.ErrorResponse
				if err := json.NewDecoder(rr.Body).Decode(&errResp); err == nil {
					assert.Contains(t, errResp.Error, tt.expectedErrContains)
				}
			}

			if tt.expectedStatusCode == http.StatusCreated {
				var response AuthResponse
				if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
					t.Errorf("failed to decode response body: %v", err)
					return
				}
				assert.NotEqual(t, uuid.Nil, response.AccountID)
				assert.Equal(t, "access-token", response.AccessToken)
				assert.Equal(t, "refresh-token", response.RefreshToken)
				assert.NotEmpty(t, response.ExpiresAt)
			}
		})
	}
}

func TestLogin(t *testing.T) {
	accountID := uuid.New()
	account := &domain.Account{
		ID:             accountID,
		Email:          "reader@example.com",
		HashedPassword: "$2a$10$fakefakefakefakefakefake",
		CurrentWPM:     domain.StartingWPM,
		MaxWPM:         domain.StartingMaxWPM,
	}

	tests := []struct {
		name                string
		requestBody         string
		getByEmailResult    *domain.Account
		getByEmailErr       error
		compareErr          error
		expectedStatusCode  int
		expectedErrContains string
	}{
		{
			name:               "Success",
			requestBody:        `{"email": "reader@example.com", "password": "long-enough-password"}`,
			getByEmailResult:   account,
			expectedStatusCode: http.StatusOK,
		},
		{
			name:                "Unknown Email",
			requestBody:         `{"email": "stranger@example.com", "password": "long-enough-password"}`,
			getByEmailErr:       store.ErrAccountNotFound,
			expectedStatusCode:  http.StatusUnauthorized,
			expectedErrContains: "Invalid credentials",
		},
		{
			name:                "Wrong Password",
			requestBody:         `{"email": "reader@example.com", "password": "wrong-password-guess"}`,
			getByEmailResult:    account,
			compareErr:          errors.New("hash mismatch"),
			expectedStatusCode:  http.StatusUnauthorized,
			expectedErrContains: "Invalid credentials",
		},
		{
			name:                "Missing Password",
			requestBody:         `{"email": "reader@example.com"}`,
			expectedStatusCode:  http.StatusBadRequest,
			expectedErrContains: "Password",
		},
		{
			name:                "Store Failure",
			requestBody:         `{"email": "reader@example.com", "password": "long-enough-password"}`,
			getByEmailErr:       errors.New("database error"),
			expectedStatusCode:  http.StatusInternalServerError,
			expectedErrContains: "Failed to authenticate account",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accountStore := &mockAccountStore{
				getByEmailFn: func(ctx context.Context, email string) (*domain.Account, error) {
					return tt.getByEmailResult, tt.getByEmailErr
				},
			}
			verifier := &mockPasswordVerifier{
				compareFn: func(hashedPassword, password string) error {
					return tt.compareErr
				},
			}

			handler := NewAuthHandler(accountStore, happyJWTService(), verifier, testAuthConfig())

			req, err := http.NewRequest(
				http.MethodPost,
				"/auth/login",
				bytes.NewBufferString(tt.requestBody),
			)
			if err != nil {
				t.Fatal(err)
			}
			req.Header.Set("Content-Type", "application/json")

			rr := httptest.NewRecorder()
			handler.Login(rr, req)

			assert.Equal(t, tt.expectedStatusCode, rr.Code)

			if tt.expectedErrContains != "" {
				var errResp shared.ErrorResponse
				if err := json.NewDecoder(rr.Body).Decode(&errResp); err == nil {
					assert.Contains(t, errResp.Error, tt.expectedErrContains)
				}
			}

			if tt.expectedStatusCode == http.StatusOK {
				var response AuthResponse
				if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
					t.Errorf("failed to decode response body: %v", err)
					return
				}
				assert.Equal(t, accountID, response.AccountID)
				assert.Equal(t, "access-token", response.AccessToken)
				assert.Equal(t, "refresh-token", response.RefreshToken)
				assert.NotEmpty(t, response.ExpiresAt)
			}
		})
	}
}

func TestRefreshToken(t *testing.T) {
	accountID := uuid.New()

	tests := []struct {
		name                string
		requestBody         string
		validateResult      *auth.Claims
		validateErr         error
		generateErr         error
		expectedStatusCode  int
		expectedErrContains string
	}{
		{
			name:        "Success",
			requestBody: `{"refresh_token": "valid-refresh-token"}`,
			validateResult: &auth.Claims{
				AccountID: accountID,
				TokenType: "refresh",
			},
			expectedStatusCode: http.StatusOK,
		},
		{
			name:                "Missing Refresh Token",
			requestBody:         `{}`,
			expectedStatusCode:  http.StatusBadRequest,
			expectedErrContains: "RefreshToken",
		},
		{
			name:                "Invalid Request Body",
			requestBody:         `{invalid json`,
			expectedStatusCode:  http.StatusBadRequest,
			expectedErrContains: "Invalid request format",
		},
		{
			name:                "Invalid Refresh Token",
			requestBody:         `{"refresh_token": "garbage"}`,
			validateErr:         auth.ErrInvalidRefreshToken,
			expectedStatusCode:  http.StatusUnauthorized,
			expectedErrContains: "Invalid refresh token",
		},
		{
			name:                "Expired Refresh Token",
			requestBody:         `{"refresh_token": "expired-token"}`,
			validateErr:         auth.ErrExpiredRefreshToken,
			expectedStatusCode:  http.StatusUnauthorized,
			expectedErrContains: "Invalid refresh token",
		},
		{
			name:                "Access Token Used As Refresh Token",
			requestBody:         `{"refresh_token": "access-token"}`,
			validateErr:         auth.ErrWrongTokenType,
			expectedStatusCode:  http.StatusUnauthorized,
			expectedErrContains: "Invalid refresh token",
		},
		{
			name:        "Token Generation Failure",
			requestBody: `{"refresh_token": "valid-refresh-token"}`,
			validateResult: &auth.Claims{
				AccountID: accountID,
				TokenType: "refresh",
			},
			generateErr:         errors.New("signing failed"),
			expectedStatusCode:  http.StatusInternalServerError,
			expectedErrContains: "Failed to generate authentication token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jwtService := &mockJWTService{
				validateRefreshTokenFn: func(ctx context.Context, tokenString string) (*auth.Claims, error) {
					return tt.validateResult, tt.validateErr
				},
				generateTokenFn: func(ctx context.Context, id uuid.UUID) (string, error) {
					assert.Equal(t, accountID, id)
					if tt.generateErr != nil {
						return "", tt.generateErr
					}
					return "new-access-token", nil
				},
				generateRefreshTokenFn: func(ctx context.Context, id uuid.UUID) (string, error) {
					return "new-refresh-token", nil
				},
			}
			accountStore := &mockAccountStore{}
			verifier := &mockPasswordVerifier{
				compareFn: func(hashedPassword, password string) error { return nil },
			}

			handler := NewAuthHandler(accountStore, jwtService, verifier, testAuthConfig())

			req, err := http.NewRequest(
				http.MethodPost,
				"/auth/refresh",
				bytes.NewBufferString(tt.requestBody),
			)
			if err != nil {
				t.Fatal(err)
			}
			req.Header.Set("Content-Type", "application/json")

			rr := httptest.NewRecorder()
			handler.RefreshToken(rr, req)

			assert.Equal(t, tt.expectedStatusCode, rr.Code)

			if tt.expectedErrContains != "" {
				var errResp shared.ErrorResponse
				if err := json.NewDecoder(rr.Body).Decode(&errResp); err == nil {
					assert.Contains(t, errResp.Error, tt.expectedErrContains)
				}
			}

			if tt.expectedStatusCode == http.StatusOK {
				var response RefreshTokenResponse
				if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
					t.Errorf("failed to decode response body: %v", err)
					return
				}
				assert.Equal(t, "new-access-token", response.AccessToken)
				assert.Equal(t, "new-refresh-token", response.RefreshToken)
				assert.NotEmpty(t, response.ExpiresAt)
			}
		})
	}
}
