// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, JWT Signing) from
// the domain logic. It acts as an Infrastructure service injected into the
// Application layer via the [TokenProvider] interface.
package sec

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/taibuivan/feedbackhub/internal/platform/apperr"
	"github.com/taibuivan/feedbackhub/pkg/uuid"
)

// # Token Errors

var (
	// ErrInvalidToken covers malformed tokens, signature mismatches and bad claims.
	ErrInvalidToken = apperr.New(http.StatusUnauthorized, "INVALID_TOKEN", "Invalid token",
		apperr.WithField("token", "Invalid or expired token"))

	// ErrMissingToken is returned when a protected call carries no token at all.
	ErrMissingToken = apperr.New(http.StatusUnauthorized, "MISSING_TOKEN", "Authentication token is required",
		apperr.WithField("token", "Token is required"))

	// ErrExpiredToken is returned when the signature is valid but exp has passed.
	ErrExpiredToken = apperr.New(http.StatusUnauthorized, "EXPIRED_TOKEN", "Token has expired",
		apperr.WithField("token", "Invalid or expired token"))
)

// TokenKind selects the secret and TTL a token is signed or verified with.
type TokenKind int

const (
	// AccessToken authorizes API calls. Short-lived.
	AccessToken TokenKind = iota
	// RefreshToken is ledgered server-side and only mints access tokens.
	RefreshToken
)

// String implements [fmt.Stringer].
func (kind TokenKind) String() string {
	if kind == RefreshToken {
		return "refresh"
	}
	return "access"
}

// Identity is the fixed claim set carried by both token kinds.
type Identity struct {
	UserID string
	Email  string
	Role   UserRole
}

// AuthClaims represents the payload embedded inside a JWT.
//
// By embedding the user id, email and role directly inside the JWT, the
// [middleware.Authenticate] can reconstruct the active user context WITHOUT
// querying the database on every request.
type AuthClaims struct {
	jwt.RegisteredClaims

	UserID string   `json:"id"`
	Email  string   `json:"email"`
	Role   UserRole `json:"role"`
}

// Identity projects the claims back onto an [Identity].
func (claims *AuthClaims) Identity() Identity {
	return Identity{UserID: claims.UserID, Email: claims.Email, Role: claims.Role}
}

// TokenConfig holds the secret and TTL policy for both token kinds.
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

// TokenService handles generation and verification of HS256 JWTs.
//
// Access and refresh tokens are signed with distinct secrets so a leaked
// access secret cannot forge refresh tokens.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	now           func() time.Time
}

// NewTokenService validates the policy and creates a new TokenService.
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("auth: access and refresh secrets are required")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, errors.New("auth: access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("auth: token TTLs must be positive")
	}

	return &TokenService{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		issuer:        cfg.Issuer,
		now:           time.Now,
	}, nil
}

// AccessTTL reports the configured access token lifetime.
func (service *TokenService) AccessTTL() time.Duration { return service.accessTTL }

// RefreshTTL reports the configured refresh token lifetime.
func (service *TokenService) RefreshTTL() time.Duration { return service.refreshTTL }

// IssueAccessToken signs a short-lived access token for identity.
func (service *TokenService) IssueAccessToken(identity Identity) (string, error) {
	return service.issue(identity, AccessToken)
}

// IssueRefreshToken signs a long-lived refresh token for identity.
func (service *TokenService) IssueRefreshToken(identity Identity) (string, error) {
	return service.issue(identity, RefreshToken)
}

func (service *TokenService) issue(identity Identity, kind TokenKind) (string, error) {
	if identity.UserID == "" || !identity.Role.Valid() {
		return "", fmt.Errorf("auth: refusing to sign %s token for incomplete identity", kind)
	}

	secret, ttl := service.policy(kind)
	currentTime := service.now()

	claims := AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New(),
			Subject:   identity.UserID,
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(ttl)),
		},
		UserID: identity.UserID,
		Email:  identity.Email,
		Role:   identity.Role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("auth: failed to sign %s token: %w", kind, err)
	}

	return signedToken, nil
}

// Verify checks the signature, expiry and claim shape of a token of the given kind.
//
// It returns [ErrExpiredToken] when only the expiry check failed and
// [ErrInvalidToken] for everything else.
func (service *TokenService) Verify(tokenString string, kind TokenKind) (*AuthClaims, error) {
	secret, _ := service.policy(kind)

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(service.issuer),
		jwt.WithTimeFunc(service.now),
	)

	claims := &AuthClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	// Claims are a closed structure: reject anything we would not have signed.
	if !token.Valid || claims.UserID == "" || claims.Subject != claims.UserID || !claims.Role.Valid() {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// VerifyToken verifies an access token. It satisfies the middleware's TokenVerifier.
func (service *TokenService) VerifyToken(tokenString string) (*AuthClaims, error) {
	return service.Verify(tokenString, AccessToken)
}

func (service *TokenService) policy(kind TokenKind) ([]byte, time.Duration) {
	if kind == RefreshToken {
		return service.refreshSecret, service.refreshTTL
	}
	return service.accessSecret, service.accessTTL
}
