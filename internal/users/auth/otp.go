// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/taibuivan/feedbackhub/internal/platform/constants"
	"github.com/taibuivan/feedbackhub/internal/platform/ctxutil"
	"github.com/taibuivan/feedbackhub/pkg/emailaddr"
)

// Codes are uniform over [otpMin, otpMin+otpSpan).
const (
	otpMin  = 100000
	otpSpan = 900000
)

// OTPConfig tunes the verification code policy.
type OTPConfig struct {
	TTL         time.Duration
	MaxAttempts int
	// Echo returns the plaintext code from GenerateAndSend.
	Echo bool
}

// OTPService issues and checks one-time email verification codes.
//
// Per email the state moves NONE → ISSUED → VERIFIED | EXHAUSTED | EXPIRED.
// A new code always returns the state to ISSUED with a fresh attempt budget.
type OTPService struct {
	store  OTPStore
	mailer CodeMailer
	config OTPConfig
	random func() (string, error)
}

// NewOTPService creates an [OTPService]. Zero config values fall back to the
// platform defaults.
func NewOTPService(store OTPStore, mailer CodeMailer, config OTPConfig) *OTPService {
	if config.TTL <= 0 {
		config.TTL = constants.OTPTTL
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = constants.OTPMaxAttempts
	}
	return &OTPService{store: store, mailer: mailer, config: config, random: randomCode}
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpSpan))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+otpMin), nil
}

/*
GenerateAndSend stores a new code for email and mails it.

A failed delivery rolls the stored code back so that no valid code exists
which its owner never received.

Returns:
  - string: The plaintext code when echo is enabled, otherwise ""
  - error: [ErrDeliveryFailed] or storage failures
*/
func (service *OTPService) GenerateAndSend(ctx context.Context, email string) (string, error) {
	email = emailaddr.Normalize(email)

	code, err := service.random()
	if err != nil {
		return "", fmt.Errorf("otp_generate_failed: %w", err)
	}

	if err := service.store.Save(ctx, email, code, service.config.TTL); err != nil {
		return "", err
	}

	if err := service.mailer.SendOTP(ctx, email, code); err != nil {
		logger := ctxutil.GetLogger(ctx)
		logger.ErrorContext(ctx, "otp_delivery_failed", slog.String("email", email), slog.Any("error", err))

		if discardErr := service.store.Discard(ctxutil.Detach(ctx), email); discardErr != nil {
			logger.ErrorContext(ctx, "otp_rollback_failed", slog.String("email", email), slog.Any("error", discardErr))
		}
		return "", ErrDeliveryFailed
	}

	if service.config.Echo {
		return code, nil
	}
	return "", nil
}

/*
Verify checks code against the pending one for email.

The attempt is counted before the comparison. The attempt that spends the
budget already reports [ErrTooManyAttempts] and purges the code, so a later
call with the right code still fails.

Returns:
  - error: nil, [ErrInvalidOTP], [ErrOTPExpiredOrInvalid] or [ErrTooManyAttempts]
*/
func (service *OTPService) Verify(ctx context.Context, email, code string) error {
	verdict, err := service.store.Verify(ctx, emailaddr.Normalize(email), code, service.config.MaxAttempts)
	if err != nil {
		return err
	}

	switch verdict {
	case OTPMatched:
		return nil
	case OTPMismatch:
		return ErrInvalidOTP
	case OTPExhausted:
		return ErrTooManyAttempts
	default:
		return ErrOTPExpiredOrInvalid
	}
}
