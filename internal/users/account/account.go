// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account handles the authenticated user's own profile, their active
sessions, and admin role assignment.

# Architecture

  - Entities: SessionInfo (DTO over a ledger row).
  - Domain: This package depends on the auth package for the User entity,
    the credential store and the refresh token ledger.
  - Security: Role changes revoke every session of the target user so a
    stale role claim cannot be refreshed.
*/
package account

import (
	"time"

	"github.com/taibuivan/feedbackhub/internal/platform/sec"
	"github.com/taibuivan/feedbackhub/internal/users/auth"
)

// # Domain Entities

// SessionInfo is a safe view of one ledger row. The token itself is never exposed.
type SessionInfo struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func sessionFromToken(token auth.RefreshToken) SessionInfo {
	return SessionInfo{ID: token.ID, CreatedAt: token.CreatedAt, ExpiresAt: token.ExpiresAt}
}

// Me is the private profile returned to the account owner.
type Me struct {
	ID         string       `json:"id"`
	Email      string       `json:"email"`
	Name       string       `json:"name"`
	Role       sec.UserRole `json:"role"`
	IsVerified bool         `json:"isVerified"`
	CreatedAt  time.Time    `json:"createdAt"`
}

func meFromUser(user *auth.User) Me {
	return Me{
		ID:         user.ID,
		Email:      user.Email,
		Name:       user.Name,
		Role:       user.Role,
		IsVerified: user.IsVerified,
		CreatedAt:  user.CreatedAt,
	}
}

// Field names for validation details.
const (
	FieldRole = "role"
	FieldID   = "id"
)
