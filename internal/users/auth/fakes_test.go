// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/feedbackhub/internal/platform/apperr"
	"github.com/taibuivan/feedbackhub/internal/platform/sec"
	"github.com/taibuivan/feedbackhub/pkg/uuid"
)

// # In-memory Credential Store

type memoryUsers struct {
	mu    sync.Mutex
	byID  map[string]*User
	calls int
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{byID: map[string]*User{}}
}

func (repo *memoryUsers) FindByID(_ context.Context, id string) (*User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.calls++
	if user, ok := repo.byID[id]; ok {
		copied := *user
		return &copied, nil
	}
	return nil, apperr.NotFound("User")
}

func (repo *memoryUsers) FindByEmail(_ context.Context, email string) (*User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.calls++
	for _, user := range repo.byID {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (repo *memoryUsers) Create(_ context.Context, user *User) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.calls++
	for _, existing := range repo.byID {
		if existing.Email == user.Email {
			return ErrEmailTaken
		}
	}
	copied := *user
	repo.byID[user.ID] = &copied
	return nil
}

func (repo *memoryUsers) MarkVerified(_ context.Context, userID string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	user, ok := repo.byID[userID]
	if !ok {
		return apperr.NotFound("User")
	}
	user.IsVerified = true
	return nil
}

func (repo *memoryUsers) UpdateRole(_ context.Context, userID string, role sec.UserRole) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	user, ok := repo.byID[userID]
	if !ok {
		return apperr.NotFound("User")
	}
	user.Role = role
	return nil
}

func (repo *memoryUsers) callCount() int {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	return repo.calls
}

func (repo *memoryUsers) count() int {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	return len(repo.byID)
}

// # In-memory Ledger

type memoryLedger struct {
	mu   sync.Mutex
	rows map[string]*RefreshToken
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{rows: map[string]*RefreshToken{}}
}

func (ledger *memoryLedger) Record(_ context.Context, userID, token string, expiresAt time.Time) error {
	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	if _, ok := ledger.rows[token]; ok {
		return ErrDuplicateToken
	}
	ledger.rows[token] = &RefreshToken{ID: uuid.New(), UserID: userID, Token: token, ExpiresAt: expiresAt, CreatedAt: time.Now()}
	return nil
}

func (ledger *memoryLedger) FindByToken(_ context.Context, token string) (*RefreshToken, error) {
	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	if row, ok := ledger.rows[token]; ok {
		copied := *row
		return &copied, nil
	}
	return nil, apperr.NotFound("Refresh token")
}

func (ledger *memoryLedger) Revoke(_ context.Context, token string) error {
	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	delete(ledger.rows, token)
	return nil
}

func (ledger *memoryLedger) Consume(_ context.Context, token string) (bool, error) {
	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	if _, ok := ledger.rows[token]; !ok {
		return false, nil
	}
	delete(ledger.rows, token)
	return true, nil
}

func (ledger *memoryLedger) RevokeByID(_ context.Context, userID, id string) error {
	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	for token, row := range ledger.rows {
		if row.ID == id && row.UserID == userID {
			delete(ledger.rows, token)
			return nil
		}
	}
	return apperr.NotFound("Session")
}

func (ledger *memoryLedger) RevokeAllForUser(_ context.Context, userID string) error {
	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	for token, row := range ledger.rows {
		if row.UserID == userID {
			delete(ledger.rows, token)
		}
	}
	return nil
}

func (ledger *memoryLedger) ListForUser(_ context.Context, userID string) ([]RefreshToken, error) {
	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	var rows []RefreshToken
	for _, row := range ledger.rows {
		if row.UserID == userID {
			rows = append(rows, *row)
		}
	}
	return rows, nil
}

func (ledger *memoryLedger) DeleteExpired(context.Context) (int64, error) {
	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	var deleted int64
	for token, row := range ledger.rows {
		if row.Expired(time.Now()) {
			delete(ledger.rows, token)
			deleted++
		}
	}
	return deleted, nil
}

func (ledger *memoryLedger) has(token string) bool {
	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	_, ok := ledger.rows[token]
	return ok
}

// # Outbound Fakes

type capturingMailer struct {
	mu    sync.Mutex
	codes map[string]string
	err   error
}

func newCapturingMailer() *capturingMailer {
	return &capturingMailer{codes: map[string]string{}}
}

func (mailer *capturingMailer) SendOTP(_ context.Context, to, code string) error {
	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	if mailer.err != nil {
		return mailer.err
	}
	mailer.codes[to] = code
	return nil
}

func (mailer *capturingMailer) last(to string) string {
	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	return mailer.codes[to]
}

type verifiedEvent struct {
	userID string
	email  string
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []verifiedEvent
}

func (notifier *recordingNotifier) OTPVerified(_ context.Context, userID, email string) {
	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	notifier.events = append(notifier.events, verifiedEvent{userID: userID, email: email})
}

func (notifier *recordingNotifier) recorded() []verifiedEvent {
	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	return append([]verifiedEvent(nil), notifier.events...)
}

// # Fixture

type fixture struct {
	service  *Service
	users    *memoryUsers
	ledger   *memoryLedger
	mailer   *capturingMailer
	notifier *recordingNotifier
	tokens   *sec.TokenService
	redis    *miniredis.Miniredis
}

func newFixture(t *testing.T, options Options) *fixture {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	tokens, err := sec.NewTokenService(sec.TokenConfig{
		AccessSecret:  "access-secret-for-tests",
		RefreshSecret: "refresh-secret-for-tests",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		Issuer:        "feedbackhub.test",
	})
	require.NoError(t, err)

	f := &fixture{
		users:    newMemoryUsers(),
		ledger:   newMemoryLedger(),
		mailer:   newCapturingMailer(),
		notifier: &recordingNotifier{},
		tokens:   tokens,
		redis:    server,
	}

	otp := NewOTPService(NewOTPStore(client), f.mailer, OTPConfig{Echo: true})
	f.service = NewService(f.users, f.ledger, tokens, otp, f.notifier, options)
	return f
}

// verifiedUser registers and verifies an account through the public flow.
func (f *fixture) verifiedUser(t *testing.T, email, password string) *User {
	t.Helper()
	ctx := context.Background()

	user, err := f.service.Register(ctx, RegisterInput{Name: "Ann", Email: email, Password: password})
	require.NoError(t, err)

	_, err = f.service.SendOTP(ctx, email)
	require.NoError(t, err)
	require.NoError(t, f.service.VerifyEmail(ctx, email, f.mailer.last(user.Email)))

	return user
}

var errBoom = errors.New("boom")
