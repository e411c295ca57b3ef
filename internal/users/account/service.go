// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/taibuivan/feedbackhub/internal/platform/ctxutil"
	"github.com/taibuivan/feedbackhub/internal/platform/sec"
	"github.com/taibuivan/feedbackhub/internal/platform/validate"
	"github.com/taibuivan/feedbackhub/internal/users/auth"
)

// # Service Layer

// Service orchestrates account self-service and role administration.
type Service struct {
	users    auth.UserRepository
	ledger   auth.RefreshTokenLedger
	notifier Notifier
}

// Notifier pushes a best-effort message to one user's live sockets.
type Notifier interface {
	Notify(ctx context.Context, userID, content string)
}

// NewService constructs a new [Service] over the auth stores.
func NewService(users auth.UserRepository, ledger auth.RefreshTokenLedger, notifier Notifier) *Service {
	return &Service{users: users, ledger: ledger, notifier: notifier}
}

// # Profile Management

/*
GetProfile retrieves the private profile of a user.

Returns:
  - Me: The profile
  - error: NOT_FOUND or storage failures
*/
func (service *Service) GetProfile(ctx context.Context, userID string) (Me, error) {
	user, err := service.users.FindByID(ctx, userID)
	if err != nil {
		return Me{}, fmt.Errorf("account_service_get_profile_failed: %w", err)
	}
	return meFromUser(user), nil
}

// # Session Security

/*
ListSessions returns the user's live refresh tokens, newest first.
*/
func (service *Service) ListSessions(ctx context.Context, userID string) ([]SessionInfo, error) {
	tokens, err := service.ledger.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("account_service_list_sessions_failed: %w", err)
	}

	sessions := make([]SessionInfo, 0, len(tokens))
	for _, token := range tokens {
		sessions = append(sessions, sessionFromToken(token))
	}
	return sessions, nil
}

/*
RevokeSession terminates one session owned by the user.

Returns:
  - error: NOT_FOUND when the session does not exist or belongs to someone else
*/
func (service *Service) RevokeSession(ctx context.Context, userID, sessionID string) error {
	validator := &validate.Validator{}
	if err := validator.UUID(FieldID, sessionID).Err(); err != nil {
		return err
	}

	if err := service.ledger.RevokeByID(ctx, userID, sessionID); err != nil {
		return fmt.Errorf("account_service_revoke_session_failed: %w", err)
	}

	ctxutil.GetLogger(ctx).InfoContext(ctx, "user_session_revoked",
		slog.String("user_id", userID),
		slog.String("session_id", sessionID),
	)
	return nil
}

// RevokeAllSessions signs the user out everywhere.
func (service *Service) RevokeAllSessions(ctx context.Context, userID string) error {
	if err := service.ledger.RevokeAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("account_service_revoke_all_failed: %w", err)
	}

	ctxutil.GetLogger(ctx).InfoContext(ctx, "user_sessions_revoked", slog.String("user_id", userID))
	return nil
}

// # Role Administration

/*
AssignRole changes a user's role and revokes all of their sessions.

Access tokens already issued keep their old role until they expire; no new
one can be minted from a pre-change refresh token.

Returns:
  - Me: The updated profile
  - error: VALIDATION_ERROR, NOT_FOUND or storage failures
*/
func (service *Service) AssignRole(ctx context.Context, userID, rawRole string) (Me, error) {
	role, ok := sec.ParseRole(rawRole)

	validator := &validate.Validator{}
	validator.UUID(FieldID, userID).
		Custom(FieldRole, !ok, fmt.Sprintf("Must be one of: %s, %s", sec.RoleUser, sec.RoleAdmin))
	if err := validator.Err(); err != nil {
		return Me{}, err
	}

	if err := service.users.UpdateRole(ctx, userID, role); err != nil {
		return Me{}, fmt.Errorf("account_service_assign_role_failed: %w", err)
	}

	if err := service.ledger.RevokeAllForUser(ctx, userID); err != nil {
		return Me{}, fmt.Errorf("account_service_assign_role_revoke_failed: %w", err)
	}

	ctxutil.GetLogger(ctx).WarnContext(ctx, "user_role_assigned",
		slog.String("target_user_id", userID),
		slog.String("role", string(role)),
		slog.String("by", ctxutil.GetUserID(ctx)),
	)

	service.notifier.Notify(ctx, userID,
		fmt.Sprintf("Your role was changed to %s. Please sign in again.", role))

	return service.GetProfile(ctx, userID)
}
