// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/taibuivan/feedbackhub/internal/platform/apperr"
	"github.com/taibuivan/feedbackhub/internal/platform/constants"
	"github.com/taibuivan/feedbackhub/internal/platform/ctxutil"
	"github.com/taibuivan/feedbackhub/internal/platform/sec"
	"github.com/taibuivan/feedbackhub/internal/platform/validate"
	"github.com/taibuivan/feedbackhub/pkg/emailaddr"
	"github.com/taibuivan/feedbackhub/pkg/uuid"
)

// # Contracts & Types

// TokenIssuer is the subset of [sec.TokenService] the session engine needs.
type TokenIssuer interface {
	IssueAccessToken(identity sec.Identity) (string, error)
	IssueRefreshToken(identity sec.Identity) (string, error)
	Verify(token string, kind sec.TokenKind) (*sec.AuthClaims, error)
	RefreshTTL() time.Duration
}

// Options toggles optional session policies.
type Options struct {
	// RotateRefreshTokens replaces the refresh token on every refresh.
	RotateRefreshTokens bool
}

// Service orchestrates the per-user lifecycle:
// UNREGISTERED → REGISTERED_UNVERIFIED → VERIFIED → (LOGGED_IN)*.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing, registration,
// or login logic must be reviewed by the security team.
type Service struct {
	users    UserRepository
	ledger   RefreshTokenLedger
	tokens   TokenIssuer
	otp      *OTPService
	notifier Notifier
	options  Options
	now      func() time.Time
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(
	users UserRepository,
	ledger RefreshTokenLedger,
	tokens TokenIssuer,
	otp *OTPService,
	notifier Notifier,
	options Options,
) *Service {
	return &Service{
		users:    users,
		ledger:   ledger,
		tokens:   tokens,
		otp:      otp,
		notifier: notifier,
		options:  options,
		now:      time.Now,
	}
}

func isNotFound(err error) bool {
	appErr := apperr.As(err)
	return appErr != nil && appErr.HTTPStatus == http.StatusNotFound
}

// # Registration Flow

// RegisterInput holds the data required to enroll a new member.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

func (input RegisterInput) validate() error {
	validator := &validate.Validator{}
	validator.Required(FieldName, input.Name).
		MinLen(FieldName, input.Name, NameMinLength).
		MaxLen(FieldName, input.Name, NameMaxLength).
		Required(FieldEmail, input.Email).
		MaxLen(FieldEmail, input.Email, EmailMaxLength).
		Email(FieldEmail, input.Email).
		Required(FieldPassword, input.Password).
		MinLen(FieldPassword, input.Password, PasswordMinLength).
		Custom(FieldPassword, len(input.Password) > PasswordMaxLength, fmt.Sprintf("Maximum %d bytes", PasswordMaxLength))
	return validator.Err()
}

/*
Register validates, hashes, and persists a brand new unverified account.

Validation runs before storage is touched.

Returns:
  - *User: Created entity (role USER, unverified)
  - error: VALIDATION_ERROR, [ErrEmailTaken] or storage errors
*/
func (service *Service) Register(ctx context.Context, input RegisterInput) (*User, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	email := emailaddr.Normalize(input.Email)

	_, err := service.users.FindByEmail(ctx, email)
	if err == nil {
		return nil, ErrEmailTaken
	}
	if !isNotFound(err) {
		return nil, err
	}

	hashedPassword, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	user := &User{
		ID:           uuid.New(),
		Email:        email,
		Name:         input.Name,
		PasswordHash: hashedPassword,
		Role:         sec.RoleUser,
		IsVerified:   false,
	}

	// A concurrent registration surfaces here as ErrEmailTaken.
	if err := service.users.Create(ctx, user); err != nil {
		return nil, err
	}

	ctxutil.GetLogger(ctx).InfoContext(ctx, "user_registered", slog.String("user_id", user.ID))
	return user, nil
}

// # Authentication Flow

// LoginInput defines credentials for an authentication attempt.
type LoginInput struct {
	Email    string
	Password string
}

// TokenPair is the credential bundle returned by login and rotating refresh.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// LoginResult is a successfully established session.
type LoginResult struct {
	TokenPair
	User *User
}

/*
Login validates credentials and issues a ledgered token pair.

Credentials are checked before verification status, so an unverified
account with a wrong password still reads as [ErrInvalidCredentials].

Returns:
  - *LoginResult: Token pair and the account
  - error: [ErrInvalidCredentials], [ErrNotVerified] or internal failures
*/
func (service *Service) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).Required(FieldPassword, input.Password)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	user, err := service.users.FindByEmail(ctx, emailaddr.Normalize(input.Email))
	if err != nil {
		if !isNotFound(err) {
			return nil, err
		}
		// Unknown accounts cost one bcrypt comparison too.
		sec.BurnPasswordCheck(input.Password)
		return nil, ErrInvalidCredentials
	}

	if !sec.CheckPasswordHash(input.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	if !user.IsVerified {
		return nil, ErrNotVerified
	}

	pair, err := service.issuePair(ctx, user.Identity())
	if err != nil {
		return nil, err
	}

	ctxutil.GetLogger(ctx).InfoContext(ctx, "user_logged_in", slog.String("user_id", user.ID))
	return &LoginResult{TokenPair: *pair, User: user}, nil
}

// issuePair signs both tokens and records the refresh token in the ledger.
func (service *Service) issuePair(ctx context.Context, identity sec.Identity) (*TokenPair, error) {
	accessToken, err := service.tokens.IssueAccessToken(identity)
	if err != nil {
		return nil, fmt.Errorf("auth_service_access_token_failed: %w", err)
	}

	refreshToken, err := service.tokens.IssueRefreshToken(identity)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_token_failed: %w", err)
	}

	expiresAt := service.now().Add(service.tokens.RefreshTTL())
	if err := service.ledger.Record(ctx, identity.UserID, refreshToken, expiresAt); err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken, RefreshExpiresAt: expiresAt}, nil
}

// # Session Management

/*
Refresh mints a new access token from a ledgered refresh token.

The ledger is consulted first: a JWT-valid token without a row is rejected.
A row whose JWT no longer verifies, or which is past expires_at, is revoked
before the failure is reported.

With [Options.RotateRefreshTokens] the presented token is consumed and a new
one is issued; a concurrent refresh that loses the consume gets
[ErrInvalidRefreshToken]. Otherwise RefreshToken in the result is empty.

Returns:
  - *TokenPair: New access token (and refresh token when rotating)
  - error: [ErrMissingToken], [ErrInvalidRefreshToken], [ErrExpiredOrInvalidToken]
*/
func (service *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, ErrMissingToken
	}

	row, err := service.ledger.FindByToken(ctx, refreshToken)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}

	claims, verifyErr := service.tokens.Verify(refreshToken, sec.RefreshToken)
	if verifyErr != nil || row.Expired(service.now()) || claims.UserID != row.UserID {
		if err := service.ledger.Revoke(ctx, refreshToken); err != nil {
			ctxutil.GetLogger(ctx).ErrorContext(ctx, "refresh_token_revoke_failed", slog.Any("error", err))
		}
		return nil, ErrExpiredOrInvalidToken
	}

	if service.options.RotateRefreshTokens {
		consumed, err := service.ledger.Consume(ctx, refreshToken)
		if err != nil {
			return nil, err
		}
		if !consumed {
			// Another refresh rotated this token first.
			return nil, ErrInvalidRefreshToken
		}
		return service.issuePair(ctx, claims.Identity())
	}

	accessToken, err := service.tokens.IssueAccessToken(claims.Identity())
	if err != nil {
		return nil, fmt.Errorf("auth_service_access_token_failed: %w", err)
	}

	return &TokenPair{AccessToken: accessToken}, nil
}

/*
Logout revokes the refresh token. Unknown tokens are not an error.

Returns:
  - error: [ErrMissingToken] or storage failures
*/
func (service *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return ErrMissingToken
	}
	return service.ledger.Revoke(ctx, refreshToken)
}

// # Email Verification

/*
SendOTP issues a verification code for a registered, unverified address.

Unknown and already-verified addresses get the same success response
without a code being sent.

Returns:
  - string: The code when echo is enabled and one was sent
  - error: VALIDATION_ERROR, [ErrDeliveryFailed] or storage failures
*/
func (service *Service) SendOTP(ctx context.Context, email string) (string, error) {
	validator := &validate.Validator{}
	validator.Required(FieldEmail, email).Email(FieldEmail, email)
	if err := validator.Err(); err != nil {
		return "", err
	}

	user, err := service.users.FindByEmail(ctx, emailaddr.Normalize(email))
	if err != nil {
		if isNotFound(err) {
			return "", nil
		}
		return "", err
	}

	if user.IsVerified {
		return "", nil
	}

	return service.otp.GenerateAndSend(ctx, user.Email)
}

/*
VerifyEmail checks the code, marks the account verified and pushes an
otp-verified event to the user's room.

Returns:
  - error: VALIDATION_ERROR, OTP errors or storage failures
*/
func (service *Service) VerifyEmail(ctx context.Context, email, code string) error {
	validator := &validate.Validator{}
	validator.Required(FieldEmail, email).
		Email(FieldEmail, email).
		Required(FieldOTP, code).
		Digits(FieldOTP, code, constants.OTPLength)
	if err := validator.Err(); err != nil {
		return err
	}

	email = emailaddr.Normalize(email)

	if err := service.otp.Verify(ctx, email, code); err != nil {
		return err
	}

	user, err := service.users.FindByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			return ErrOTPExpiredOrInvalid
		}
		return err
	}

	if err := service.users.MarkVerified(ctx, user.ID); err != nil {
		return err
	}

	ctxutil.GetLogger(ctx).InfoContext(ctx, "email_verified", slog.String("user_id", user.ID))
	service.notifier.OTPVerified(ctxutil.Detach(ctx), user.ID, user.Email)

	return nil
}
