// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"time"

	"github.com/taibuivan/feedbackhub/internal/platform/sec"
)

// # User Data Access

// UserRepository defines the data access contract for the credential store.
type UserRepository interface {

	/*
		FindByID returns the account with the given ID.

		Returns:
		  - *User: Hydrated entity
		  - error: apperr NOT_FOUND or retrieval failures
	*/
	FindByID(ctx context.Context, id string) (*User, error)

	/*
		FindByEmail returns the account with the given email. Matching is
		case-insensitive.

		Returns:
		  - *User: Hydrated entity
		  - error: apperr NOT_FOUND or retrieval failures
	*/
	FindByEmail(ctx context.Context, email string) (*User, error)

	/*
		Create persists a brand-new account.

		Returns:
		  - error: [ErrEmailTaken] when the address is already registered
	*/
	Create(ctx context.Context, user *User) error

	// MarkVerified sets is_verified. Idempotent.
	MarkVerified(ctx context.Context, userID string) error

	// UpdateRole changes the user's role.
	UpdateRole(ctx context.Context, userID string, role sec.UserRole) error
}

// # Refresh Token Ledger

// RefreshTokenLedger is the durable, revocation-aware record of issued
// refresh tokens.
type RefreshTokenLedger interface {

	/*
		Record stores a freshly issued refresh token.

		Returns:
		  - error: [ErrDuplicateToken] on a unique violation
	*/
	Record(ctx context.Context, userID, token string, expiresAt time.Time) error

	/*
		FindByToken returns the ledger row for token.

		Returns:
		  - error: apperr NOT_FOUND when the token was never recorded or was revoked
	*/
	FindByToken(ctx context.Context, token string) (*RefreshToken, error)

	// Revoke deletes the row for token. Revoking an absent token is not an error.
	Revoke(ctx context.Context, token string) error

	// Consume deletes the row for token and reports whether this call removed
	// it. Of several concurrent callers at most one sees true.
	Consume(ctx context.Context, token string) (bool, error)

	// RevokeByID deletes one row owned by userID. Returns NOT_FOUND when no
	// such row belongs to the user.
	RevokeByID(ctx context.Context, userID, id string) error

	// RevokeAllForUser deletes every row of the user.
	RevokeAllForUser(ctx context.Context, userID string) error

	// ListForUser returns the user's live rows, newest first.
	ListForUser(ctx context.Context, userID string) ([]RefreshToken, error)

	// DeleteExpired purges rows past expires_at and reports how many went.
	DeleteExpired(ctx context.Context) (int64, error)
}

// # Volatile Data Access

// OTPVerdict is the outcome of one atomic verification step.
type OTPVerdict int

const (
	// OTPMatched means the code matched; code and counter are gone.
	OTPMatched OTPVerdict = iota
	// OTPMismatch means a wrong code with attempts left.
	OTPMismatch
	// OTPMissing means no code is pending (never issued, expired or purged).
	OTPMissing
	// OTPExhausted means the attempt budget is spent; the code is gone.
	OTPExhausted
)

// OTPStore holds one pending code per email.
type OTPStore interface {

	// Save stores code under email and resets its attempt counter, both with ttl.
	Save(ctx context.Context, email, code string, ttl time.Duration) error

	// Discard removes the code and its counter.
	Discard(ctx context.Context, email string) error

	// Verify compares code against the pending one in a single atomic step,
	// counting the attempt before comparing.
	Verify(ctx context.Context, email, code string, maxAttempts int) (OTPVerdict, error)
}

// # Outbound Ports

// CodeMailer delivers a verification code by email.
type CodeMailer interface {
	SendOTP(ctx context.Context, to, code string) error
}

// Notifier pushes realtime events. Calls are best-effort.
type Notifier interface {
	OTPVerified(ctx context.Context, userID, email string)
}
