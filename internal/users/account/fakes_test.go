// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/taibuivan/feedbackhub/internal/platform/apperr"
	"github.com/taibuivan/feedbackhub/internal/platform/sec"
	"github.com/taibuivan/feedbackhub/internal/users/auth"
)

type stubUsers struct {
	mu   sync.Mutex
	byID map[string]*auth.User
}

func newStubUsers(users ...*auth.User) *stubUsers {
	stub := &stubUsers{byID: map[string]*auth.User{}}
	for _, user := range users {
		stub.byID[user.ID] = user
	}
	return stub
}

func (stub *stubUsers) FindByID(_ context.Context, id string) (*auth.User, error) {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	if user, ok := stub.byID[id]; ok {
		copied := *user
		return &copied, nil
	}
	return nil, apperr.NotFound("User")
}

func (stub *stubUsers) FindByEmail(context.Context, string) (*auth.User, error) {
	return nil, apperr.NotFound("User")
}

func (stub *stubUsers) Create(context.Context, *auth.User) error { return nil }

func (stub *stubUsers) MarkVerified(context.Context, string) error { return nil }

func (stub *stubUsers) UpdateRole(_ context.Context, userID string, role sec.UserRole) error {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	user, ok := stub.byID[userID]
	if !ok {
		return apperr.NotFound("User")
	}
	user.Role = role
	return nil
}

type notice struct {
	userID  string
	content string
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []notice
}

func (notifier *recordingNotifier) Notify(_ context.Context, userID, content string) {
	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	notifier.notices = append(notifier.notices, notice{userID: userID, content: content})
}

func (notifier *recordingNotifier) recorded() []notice {
	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	return append([]notice(nil), notifier.notices...)
}

type stubLedger struct {
	mu   sync.Mutex
	rows []auth.RefreshToken
}

func (stub *stubLedger) Record(_ context.Context, userID, token string, expiresAt time.Time) error {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	stub.rows = append(stub.rows, auth.RefreshToken{ID: token, UserID: userID, Token: token, ExpiresAt: expiresAt, CreatedAt: time.Now()})
	return nil
}

func (stub *stubLedger) FindByToken(context.Context, string) (*auth.RefreshToken, error) {
	return nil, apperr.NotFound("Refresh token")
}

func (stub *stubLedger) Revoke(context.Context, string) error { return nil }

func (stub *stubLedger) Consume(context.Context, string) (bool, error) { return false, nil }

func (stub *stubLedger) RevokeByID(_ context.Context, userID, id string) error {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	for i, row := range stub.rows {
		if row.ID == id && row.UserID == userID {
			stub.rows = append(stub.rows[:i], stub.rows[i+1:]...)
			return nil
		}
	}
	return apperr.NotFound("Session")
}

func (stub *stubLedger) RevokeAllForUser(_ context.Context, userID string) error {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	kept := stub.rows[:0]
	for _, row := range stub.rows {
		if row.UserID != userID {
			kept = append(kept, row)
		}
	}
	stub.rows = kept
	return nil
}

func (stub *stubLedger) ListForUser(_ context.Context, userID string) ([]auth.RefreshToken, error) {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	var rows []auth.RefreshToken
	for _, row := range stub.rows {
		if row.UserID == userID {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedAt.After(rows[j].CreatedAt) })
	return rows, nil
}

func (stub *stubLedger) DeleteExpired(context.Context) (int64, error) { return 0, nil }

func (stub *stubLedger) countFor(userID string) int {
	rows, _ := stub.ListForUser(context.Background(), userID)
	return len(rows)
}
