package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/readquest/xp-api/internal/config"
	"github.com/readquest/xp-api/internal/platform/logger"
)

// Token type claim values. Access tokens authenticate API requests; refresh
// tokens may only be exchanged for a new token pair.
const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// hmacJWTService is an implementation of JWTService using HMAC-SHA signing.
type hmacJWTService struct {
	signingKey           []byte
	tokenLifetime        time.Duration    // Access token lifetime
	refreshTokenLifetime time.Duration    // Refresh token lifetime
	timeFunc             func() time.Time // Injectable for testing
	clockSkew            time.Duration    // Allowed time difference for validation to handle clock drift
}

// jwtCustomClaims defines the structure of JWT claims we use
type jwtCustomClaims struct {
	AccountID uuid.UUID `json:"aid"`
	TokenType string    `json:"type"`
	jwt.RegisteredClaims
}

// Ensure hmacJWTService implements JWTService interface
var _ JWTService = (*hmacJWTService)(nil)

// NewJWTService creates a new JWT service using HMAC-SHA signing.
func NewJWTService(cfg config.AuthConfig) (JWTService, error) {
	// Convert token lifetimes from minutes to duration
	accessTokenLifetime := time.Duration(cfg.TokenLifetimeMinutes) * time.Minute
	refreshTokenLifetime := time.Duration(cfg.RefreshTokenLifetimeMinutes) * time.Minute

	// Validate that the secret meets minimum length requirements
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("jwt secret must be at least 32 characters")
	}

	return &hmacJWTService{
		signingKey:           []byte(cfg.JWTSecret),
		tokenLifetime:        accessTokenLifetime,
		refreshTokenLifetime: refreshTokenLifetime,
		timeFunc:             time.Now,
		clockSkew:            2 * time.Minute, // Tolerate minor clock drift between issuer and validator
	}, nil
}

// GenerateToken creates a signed JWT access token for the account.
func (s *hmacJWTService) GenerateToken(ctx context.Context, accountID uuid.UUID) (string, error) {
	now := s.timeFunc()
	return s.signToken(ctx, accountID, tokenTypeAccess, now.Add(s.tokenLifetime))
}

// GenerateRefreshToken creates a signed JWT refresh token for the account.
// Refresh tokens have a longer lifetime than access tokens and are used to
// obtain new token pairs.
func (s *hmacJWTService) GenerateRefreshToken(
	ctx context.Context,
	accountID uuid.UUID,
) (string, error) {
	now := s.timeFunc()
	return s.signToken(ctx, accountID, tokenTypeRefresh, now.Add(s.refreshTokenLifetime))
}

// signToken builds the claims for the given account and token type and signs
// them with HMAC-SHA256.
func (s *hmacJWTService) signToken(
	ctx context.Context,
	accountID uuid.UUID,
	tokenType string,
	expiresAt time.Time,
) (string, error) {
	log := logger.FromContext(ctx)
	now := s.timeFunc()

	claims := jwtCustomClaims{
		AccountID: accountID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.New().String(), // Unique token ID
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(s.signingKey)
	if err != nil {
		log.Error("failed to sign JWT token",
			"error", err,
			"account_id", accountID,
			"token_type", tokenType,
			"signing_method", jwt.SigningMethodHS256.Name)
		return "", fmt.Errorf("failed to sign %s token with HMAC-SHA256: %w", tokenType, err)
	}

	return signedToken, nil
}

// ValidateToken validates a JWT access token and returns the claims if valid.
// It verifies the token has type "access" and returns ErrWrongTokenType if not.
func (s *hmacJWTService) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	return s.parseToken(ctx, tokenString, tokenTypeAccess)
}

// ValidateRefreshToken validates a JWT refresh token and returns the claims if
// valid. It verifies the token has type "refresh" and returns ErrWrongTokenType
// if not. Returns appropriate errors for expiration and invalid signatures.
func (s *hmacJWTService) ValidateRefreshToken(
	ctx context.Context,
	tokenString string,
) (*Claims, error) {
	return s.parseToken(ctx, tokenString, tokenTypeRefresh)
}

// parseToken parses and validates a signed token, enforcing the expected token
// type. Validation failures map to the package sentinel errors so callers can
// branch on the cause without inspecting jwt library internals.
func (s *hmacJWTService) parseToken(
	ctx context.Context,
	tokenString string,
	wantType string,
) (*Claims, error) {
	log := logger.FromContext(ctx)
	now := s.timeFunc()

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithLeeway(s.clockSkew), // Allow for clock skew when validating time claims
		jwt.WithTimeFunc(func() time.Time {
			return now // Use our injected time function for validation
		}),
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&jwtCustomClaims{},
		func(token *jwt.Token) (interface{}, error) {
			// Validate the signing method is what we expect
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.signingKey, nil
		},
		parserOpts...)

	if err != nil {
		var cause string
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			cause = "token expired"
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			cause = "token not yet valid"
		case errors.Is(err, jwt.ErrTokenMalformed):
			cause = "malformed token"
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			cause = "invalid signature"
		default:
			cause = "other validation error"
		}
		log.Debug("token validation failed: "+cause,
			"error", err,
			"token_type", wantType)
		return nil, s.validationError(wantType, err)
	}

	// Extract claims from valid token
	claims, ok := token.Claims.(*jwtCustomClaims)
	if !ok || !token.Valid {
		log.Debug("token validation failed: invalid claims", "token_type", wantType)
		return nil, s.validationError(wantType, nil)
	}

	if claims.TokenType != wantType {
		log.Debug("token validation failed: wrong token type",
			"expected", wantType,
			"actual", claims.TokenType)
		return nil, ErrWrongTokenType
	}

	log.Debug("token validated successfully",
		"account_id", claims.AccountID,
		"token_id", claims.ID,
		"token_type", claims.TokenType,
		"expiry", claims.ExpiresAt.Time)

	return &Claims{
		AccountID: claims.AccountID,
		TokenType: claims.TokenType,
		Subject:   claims.Subject,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
		ID:        claims.ID,
	}, nil
}

// validationError maps a jwt parse failure onto the sentinel error for the
// expected token type. Only expiry and not-yet-valid get distinct sentinels;
// every other failure collapses into the generic invalid-token error.
func (s *hmacJWTService) validationError(wantType string, err error) error {
	if wantType == tokenTypeRefresh {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrExpiredRefreshToken
		}
		return ErrInvalidRefreshToken
	}
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpiredToken
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return ErrTokenNotYetValid
	default:
		return ErrInvalidToken
	}
}
