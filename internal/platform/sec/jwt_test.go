// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	service, err := NewTokenService(TokenConfig{
		AccessSecret:  "access-secret-for-tests",
		RefreshSecret: "refresh-secret-for-tests",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		Issuer:        "feedbackhub.test",
	})
	require.NoError(t, err)
	return service
}

var annIdentity = Identity{UserID: "0190a0b4-user", Email: "ann@x.com", Role: RoleUser}

/*
TestNewTokenService_RejectsBadPolicy covers the fail-fast configuration checks.
*/
func TestNewTokenService_RejectsBadPolicy(t *testing.T) {
	tests := []struct {
		name string
		cfg  TokenConfig
	}{
		{"missing_access_secret", TokenConfig{RefreshSecret: "r", AccessTTL: time.Minute, RefreshTTL: time.Hour}},
		{"missing_refresh_secret", TokenConfig{AccessSecret: "a", AccessTTL: time.Minute, RefreshTTL: time.Hour}},
		{"shared_secret", TokenConfig{AccessSecret: "same", RefreshSecret: "same", AccessTTL: time.Minute, RefreshTTL: time.Hour}},
		{"zero_ttl", TokenConfig{AccessSecret: "a", RefreshSecret: "r", RefreshTTL: time.Hour}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTokenService(tt.cfg)
			assert.Error(t, err)
		})
	}
}

/*
TestTokenService_RoundTrip verifies both kinds decode to the signed identity.
*/
func TestTokenService_RoundTrip(t *testing.T) {
	service := newTestTokenService(t)

	access, err := service.IssueAccessToken(annIdentity)
	require.NoError(t, err)
	refresh, err := service.IssueRefreshToken(annIdentity)
	require.NoError(t, err)

	accessClaims, err := service.Verify(access, AccessToken)
	require.NoError(t, err)
	assert.Equal(t, annIdentity, accessClaims.Identity())
	assert.NotEmpty(t, accessClaims.ID)

	refreshClaims, err := service.Verify(refresh, RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, annIdentity, refreshClaims.Identity())

	// Refresh lives for days, access for minutes.
	assert.True(t, refreshClaims.ExpiresAt.After(accessClaims.ExpiresAt.Time.Add(24*time.Hour)))
}

/*
TestTokenService_SecretsAreNotInterchangeable ensures each kind only verifies with its own secret.
*/
func TestTokenService_SecretsAreNotInterchangeable(t *testing.T) {
	service := newTestTokenService(t)

	access, err := service.IssueAccessToken(annIdentity)
	require.NoError(t, err)
	refresh, err := service.IssueRefreshToken(annIdentity)
	require.NoError(t, err)

	_, err = service.Verify(access, RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = service.Verify(refresh, AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

/*
TestTokenService_UniquePerIssue guards the ledger's uniqueness invariant.
*/
func TestTokenService_UniquePerIssue(t *testing.T) {
	service := newTestTokenService(t)

	first, err := service.IssueRefreshToken(annIdentity)
	require.NoError(t, err)
	second, err := service.IssueRefreshToken(annIdentity)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

/*
TestTokenService_Expired distinguishes expiry from other failures.
*/
func TestTokenService_Expired(t *testing.T) {
	issuer := newTestTokenService(t)
	issuer.now = func() time.Time { return time.Now().Add(-time.Hour) }

	token, err := issuer.IssueAccessToken(annIdentity)
	require.NoError(t, err)

	verifier := newTestTokenService(t)
	_, err = verifier.Verify(token, AccessToken)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

/*
TestTokenService_RejectsTampering covers malformed input and forged claims.
*/
func TestTokenService_RejectsTampering(t *testing.T) {
	service := newTestTokenService(t)

	token, err := service.IssueAccessToken(annIdentity)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)

	forgedRole := jwt.NewWithClaims(jwt.SigningMethodHS256, AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			Issuer:    "feedbackhub.test",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
		UserID: "u1",
		Role:   "SUPERUSER",
	})
	forgedRoleToken, err := forgedRole.SignedString([]byte("access-secret-for-tests"))
	require.NoError(t, err)

	noneAlg := jwt.NewWithClaims(jwt.SigningMethodNone, AuthClaims{UserID: "u1", Role: RoleAdmin})
	noneToken, err := noneAlg.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-jwt"},
		{"bad_signature", parts[0] + "." + parts[1] + ".c2lnbmF0dXJl"},
		{"unknown_role", forgedRoleToken},
		{"none_algorithm", noneToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Verify(tt.token, AccessToken)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

/*
TestTokenService_RefusesIncompleteIdentity ensures we never sign a claim set we would reject.
*/
func TestTokenService_RefusesIncompleteIdentity(t *testing.T) {
	service := newTestTokenService(t)

	_, err := service.IssueAccessToken(Identity{Email: "ann@x.com", Role: RoleUser})
	assert.Error(t, err)

	_, err = service.IssueRefreshToken(Identity{UserID: "u1", Role: "root"})
	assert.Error(t, err)
}
