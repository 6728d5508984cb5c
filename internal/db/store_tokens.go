package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MacJediWizard/dealbook/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrTokenReused is returned when a revoked refresh token is presented again.
// Every token of the owning user has been revoked by the time it is returned.
var ErrTokenReused = errors.New("refresh token reuse detected")

// CreateRefreshToken stores a refresh token hash.
func (db *DB) CreateRefreshToken(ctx context.Context, t *models.RefreshToken) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, revoked, created_at)
		VALUES ($1, $2, $3, $4, false, $5)
	`, t.ID, t.UserID, t.TokenHash, t.ExpiresAt, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("create refresh token: %w", mapError(err))
	}
	return nil
}

// RotateRefreshToken revokes the presented token and stores its replacement
// atomically. It returns the owner of the presented token.
func (db *DB) RotateRefreshToken(ctx context.Context, presentedHash string, next *models.RefreshToken) (uuid.UUID, error) {
	var owner uuid.UUID
	var reused bool
	err := db.ExecTx(ctx, func(tx pgx.Tx) error {
		var cur models.RefreshToken
		err := tx.QueryRow(ctx, `
			SELECT id, user_id, token_hash, expires_at, revoked, created_at
			FROM refresh_tokens WHERE token_hash = $1 FOR UPDATE
		`, presentedHash).Scan(&cur.ID, &cur.UserID, &cur.TokenHash, &cur.ExpiresAt, &cur.Revoked, &cur.CreatedAt)
		if err != nil {
			return fmt.Errorf("find refresh token: %w", mapError(err))
		}
		owner = cur.UserID

		if cur.Revoked {
			if _, err := tx.Exec(ctx, "UPDATE refresh_tokens SET revoked = true WHERE user_id = $1", cur.UserID); err != nil {
				return fmt.Errorf("revoke token family: %w", err)
			}
			reused = true
			return nil
		}
		if !cur.Usable(time.Now()) {
			return fmt.Errorf("refresh token expired: %w", ErrNotFound)
		}

		if _, err := tx.Exec(ctx, "UPDATE refresh_tokens SET revoked = true WHERE id = $1", cur.ID); err != nil {
			return fmt.Errorf("revoke refresh token: %w", err)
		}
		next.UserID = cur.UserID
		_, err = tx.Exec(ctx, `
			INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, revoked, created_at)
			VALUES ($1, $2, $3, $4, false, $5)
		`, next.ID, next.UserID, next.TokenHash, next.ExpiresAt, next.CreatedAt)
		if err != nil {
			return fmt.Errorf("store rotated token: %w", mapError(err))
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	if reused {
		return owner, ErrTokenReused
	}
	return owner, nil
}

// RevokeRefreshToken revokes one token. Unknown tokens are ignored.
func (db *DB) RevokeRefreshToken(ctx context.Context, hash string) error {
	if _, err := db.Pool.Exec(ctx, "UPDATE refresh_tokens SET revoked = true WHERE token_hash = $1", hash); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// CleanupExpiredRefreshTokens deletes tokens that are expired or were revoked
// before the cutoff.
func (db *DB) CleanupExpiredRefreshTokens(ctx context.Context, revokedBefore time.Time) (int64, error) {
	tag, err := db.Pool.Exec(ctx, `
		DELETE FROM refresh_tokens WHERE expires_at < NOW() OR (revoked AND created_at < $1)
	`, revokedBefore)
	if err != nil {
		return 0, fmt.Errorf("cleanup refresh tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
