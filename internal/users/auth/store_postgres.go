// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/taibuivan/feedbackhub/internal/platform/apperr"
	"github.com/taibuivan/feedbackhub/internal/platform/dberr"
	"github.com/taibuivan/feedbackhub/internal/platform/postgres"
	"github.com/taibuivan/feedbackhub/internal/platform/sec"
	"github.com/taibuivan/feedbackhub/pkg/uuid"
)

// # User Repository

// PostgresUserRepository implements [UserRepository] using pgx.
type PostgresUserRepository struct {
	db postgres.DBTX
}

// NewUserRepository creates a new PostgreSQL implementation of the UserRepository.
func NewUserRepository(db postgres.DBTX) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

const userColumns = `id, email, name, password_hash, role, is_verified, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var (
		user User
		role string
	)

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&role,
		&user.IsVerified,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	user.Role = sec.UserRole(role)
	return &user, nil
}

/*
Create persists a new user record.

The unique index on lower(email) is the final arbiter: a concurrent
registration that slips past the service's lookup lands here as 23505.

Returns:
  - error: [ErrEmailTaken] or database errors
*/
func (repository *PostgresUserRepository) Create(ctx context.Context, user *User) error {
	const query = `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := repository.db.Exec(ctx, query,
		user.ID,
		user.Email,
		user.Name,
		user.PasswordHash,
		string(user.Role),
		user.IsVerified,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		if dberr.IsUniqueViolation(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("postgres_user_repo_create_failed: %w", err)
	}

	return nil
}

// FindByEmail retrieves a user by address, ignoring case.
func (repository *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`

	user, err := scanUser(repository.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("postgres_user_repo_find_by_email_failed: %w", err)
	}

	return user, nil
}

// FindByID retrieves a user by primary key.
func (repository *PostgresUserRepository) FindByID(ctx context.Context, id string) (*User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(repository.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("postgres_user_repo_find_by_id_failed: %w", err)
	}

	return user, nil
}

// MarkVerified sets is_verified = true.
func (repository *PostgresUserRepository) MarkVerified(ctx context.Context, userID string) error {
	const query = `UPDATE users SET is_verified = TRUE, updated_at = NOW() WHERE id = $1`

	tag, err := repository.db.Exec(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("postgres_user_repo_mark_verified_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("User")
	}

	return nil
}

// UpdateRole changes the user's role.
func (repository *PostgresUserRepository) UpdateRole(ctx context.Context, userID string, role sec.UserRole) error {
	const query = `UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1`

	tag, err := repository.db.Exec(ctx, query, userID, string(role))
	if err != nil {
		return fmt.Errorf("postgres_user_repo_update_role_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("User")
	}

	return nil
}

// # Refresh Token Ledger

// PostgresRefreshTokenLedger implements [RefreshTokenLedger] using pgx.
type PostgresRefreshTokenLedger struct {
	db postgres.DBTX
}

// NewRefreshTokenLedger creates a new PostgreSQL implementation of the ledger.
func NewRefreshTokenLedger(db postgres.DBTX) *PostgresRefreshTokenLedger {
	return &PostgresRefreshTokenLedger{db: db}
}

// Record inserts a ledger row.
func (ledger *PostgresRefreshTokenLedger) Record(ctx context.Context, userID, token string, expiresAt time.Time) error {
	const query = `
		INSERT INTO refresh_tokens (id, user_id, token, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := ledger.db.Exec(ctx, query, uuid.New(), userID, token, expiresAt.UTC(), time.Now().UTC())
	if err != nil {
		if dberr.IsUniqueViolation(err) {
			return ErrDuplicateToken
		}
		return fmt.Errorf("postgres_ledger_record_failed: %w", err)
	}

	return nil
}

// FindByToken looks up a row by its exact token string.
func (ledger *PostgresRefreshTokenLedger) FindByToken(ctx context.Context, token string) (*RefreshToken, error) {
	const query = `
		SELECT id, user_id, token, expires_at, created_at
		FROM refresh_tokens
		WHERE token = $1`

	row := &RefreshToken{}
	err := ledger.db.QueryRow(ctx, query, token).Scan(
		&row.ID,
		&row.UserID,
		&row.Token,
		&row.ExpiresAt,
		&row.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Refresh token")
		}
		return nil, fmt.Errorf("postgres_ledger_find_failed: %w", err)
	}

	return row, nil
}

// Revoke deletes the row for token, if any.
func (ledger *PostgresRefreshTokenLedger) Revoke(ctx context.Context, token string) error {
	if _, err := ledger.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE token = $1`, token); err != nil {
		return fmt.Errorf("postgres_ledger_revoke_failed: %w", err)
	}
	return nil
}

// Consume deletes the row for token. The single DELETE decides which caller
// wins when the same token is presented concurrently.
func (ledger *PostgresRefreshTokenLedger) Consume(ctx context.Context, token string) (bool, error) {
	tag, err := ledger.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE token = $1`, token)
	if err != nil {
		return false, fmt.Errorf("postgres_ledger_consume_failed: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// RevokeByID deletes one row owned by userID.
func (ledger *PostgresRefreshTokenLedger) RevokeByID(ctx context.Context, userID, id string) error {
	tag, err := ledger.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("postgres_ledger_revoke_by_id_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Session")
	}
	return nil
}

// RevokeAllForUser deletes every row of the user.
func (ledger *PostgresRefreshTokenLedger) RevokeAllForUser(ctx context.Context, userID string) error {
	if _, err := ledger.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("postgres_ledger_revoke_all_failed: %w", err)
	}
	return nil
}

// ListForUser returns the user's unexpired rows, newest first.
func (ledger *PostgresRefreshTokenLedger) ListForUser(ctx context.Context, userID string) ([]RefreshToken, error) {
	const query = `
		SELECT id, user_id, token, expires_at, created_at
		FROM refresh_tokens
		WHERE user_id = $1 AND expires_at > NOW()
		ORDER BY created_at DESC`

	rows, err := ledger.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres_ledger_list_failed: %w", err)
	}
	defer rows.Close()

	tokens := make([]RefreshToken, 0)
	for rows.Next() {
		var token RefreshToken
		if err := rows.Scan(&token.ID, &token.UserID, &token.Token, &token.ExpiresAt, &token.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres_ledger_list_scan_failed: %w", err)
		}
		tokens = append(tokens, token)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_ledger_list_rows_failed: %w", err)
	}

	return tokens, nil
}

// DeleteExpired purges rows past expires_at.
func (ledger *PostgresRefreshTokenLedger) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := ledger.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("postgres_ledger_delete_expired_failed: %w", err)
	}
	return tag.RowsAffected(), nil
}
