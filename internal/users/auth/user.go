// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements the authentication and session lifecycle engine.

It covers registration, credential login, the refresh token ledger, OTP-based
email verification and the HTTP surface under /auth.

# Architecture

  - Entities (this file): User and the ledgered RefreshToken.
  - Contracts (store.go): repositories, the OTP store and outbound ports.
  - Service (service.go, otp.go): the state machines.
  - Delivery (http.go): JSON endpoints and the refresh cookie.
*/
package auth

import (
	"time"

	"github.com/taibuivan/feedbackhub/internal/platform/sec"
)

// # Domain Entities

// User is a registered account. Accounts are never hard-deleted.
type User struct {
	ID           string       `json:"id"`
	Email        string       `json:"email"`
	Name         string       `json:"name"`
	PasswordHash string       `json:"-"` // Explicitly omitted from JSON for security.
	Role         sec.UserRole `json:"role"`
	IsVerified   bool         `json:"isVerified"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// Identity returns the claim set signed into this user's tokens.
func (user *User) Identity() sec.Identity {
	return sec.Identity{UserID: user.ID, Email: user.Email, Role: user.Role}
}

// Profile is the safe projection returned by register and login.
type Profile struct {
	ID    string       `json:"id"`
	Email string       `json:"email"`
	Name  string       `json:"name"`
	Role  sec.UserRole `json:"role"`
}

// Profile projects the user onto its public fields.
func (user *User) Profile() Profile {
	return Profile{ID: user.ID, Email: user.Email, Name: user.Name, Role: user.Role}
}

// RefreshToken is one ledger row. The row is the source of truth for
// validity: a JWT-valid token without a row is rejected.
type RefreshToken struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// Expired reports whether the row is past its expiry at the given instant.
func (token *RefreshToken) Expired(now time.Time) bool {
	return !now.Before(token.ExpiresAt)
}

// # Field Identifiers

// Field names for validation details and request payloads.
const (
	FieldName         = "name"
	FieldEmail        = "email"
	FieldPassword     = "password"
	FieldOTP          = "otp"
	FieldRefreshToken = "refreshToken"
	FieldToken        = "token"
)

// # Input Constraints

const (
	NameMinLength     = 3
	NameMaxLength     = 100
	PasswordMinLength = 6
	PasswordMaxLength = 72 // bcrypt ignores bytes past 72
	EmailMaxLength    = 254
)
