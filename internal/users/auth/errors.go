// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"

	"github.com/taibuivan/feedbackhub/internal/platform/apperr"
	"github.com/taibuivan/feedbackhub/internal/platform/sec"
)

// # Domain Errors

var (
	// ErrEmailTaken is returned when registering an address that already has an account.
	ErrEmailTaken = apperr.New(http.StatusBadRequest, "EMAIL_TAKEN", "Email already registered",
		apperr.WithField(FieldEmail, "Email already registered"))

	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = apperr.New(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")

	// ErrNotVerified is returned on login before the email was verified.
	ErrNotVerified = apperr.New(http.StatusUnauthorized, "NOT_VERIFIED", "Email not verified",
		apperr.WithField(FieldEmail, "Verify your email before logging in"))

	// ErrMissingToken is returned when refresh or logout is called without a token.
	ErrMissingToken = sec.ErrMissingToken

	// ErrInvalidRefreshToken is returned when the token is not in the ledger.
	ErrInvalidRefreshToken = apperr.New(http.StatusUnauthorized, "INVALID_TOKEN", "Invalid refresh token",
		apperr.WithField(FieldRefreshToken, "Invalid refresh token"))

	// ErrExpiredOrInvalidToken is returned when a ledgered token fails JWT
	// verification or is past its expiry. The ledger row is revoked first.
	ErrExpiredOrInvalidToken = apperr.New(http.StatusUnauthorized, "EXPIRED_TOKEN", "Expired or invalid refresh token",
		apperr.WithField(FieldRefreshToken, "Expired or invalid refresh token"))

	// ErrDuplicateToken is returned when the ledger already holds the token.
	ErrDuplicateToken = apperr.New(http.StatusConflict, "DUPLICATE_TOKEN", "Refresh token already recorded")

	// ErrTooManyAttempts is returned once the OTP attempt budget is spent.
	ErrTooManyAttempts = apperr.New(http.StatusTooManyRequests, "TOO_MANY_ATTEMPTS", "Too many attempts. Please request a new OTP.",
		apperr.WithField(FieldOTP, "Too many attempts"))

	// ErrInvalidOTP is returned for a mismatched code with attempts left.
	ErrInvalidOTP = apperr.New(http.StatusBadRequest, "INVALID_OTP", "Invalid OTP",
		apperr.WithField(FieldOTP, "Invalid OTP"))

	// ErrOTPExpiredOrInvalid is returned when no code is pending for the address.
	ErrOTPExpiredOrInvalid = apperr.New(http.StatusBadRequest, "OTP_EXPIRED", "OTP expired or invalid",
		apperr.WithField(FieldOTP, "OTP expired or invalid"))

	// ErrDeliveryFailed is returned when the code could not be mailed.
	ErrDeliveryFailed = apperr.New(http.StatusInternalServerError, "DELIVERY_FAILED", "Failed to send OTP")
)
