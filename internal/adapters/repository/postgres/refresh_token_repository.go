package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/drouple/gatekeeper/internal/core/domain"
	"github.com/drouple/gatekeeper/internal/core/ports"
)

type RefreshTokenRepository struct {
	db *sql.DB
}

func NewRefreshTokenRepository(db *sql.DB) ports.RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

func (r *RefreshTokenRepository) Store(ctx context.Context, token *domain.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (rotation_id, user_id, tenant_id, device_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		token.RotationID, token.UserID, token.TenantID, token.DeviceID, token.CreatedAt, token.ExpiresAt)
	return err
}

func (r *RefreshTokenRepository) Find(ctx context.Context, rotationID uuid.UUID) (*domain.RefreshToken, error) {
	query := `
		SELECT rotation_id, user_id, tenant_id, device_id, created_at, expires_at, revoked_at, revoked_reason
		FROM refresh_tokens
		WHERE rotation_id = $1
	`
	token := &domain.RefreshToken{}
	var reason sql.NullString
	err := r.db.QueryRowContext(ctx, query, rotationID).Scan(
		&token.RotationID,
		&token.UserID,
		&token.TenantID,
		&token.DeviceID,
		&token.CreatedAt,
		&token.ExpiresAt,
		&token.RevokedAt,
		&reason,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	token.RevokedReason = reason.String
	return token, nil
}

// Rotate revokes the old chain link and inserts the next one in a single
// transaction. The UPDATE is conditional on the link still being live, so of
// two concurrent rotations of the same link exactly one commits; the loser
// sees domain.ErrRefreshTokenNotFound.
func (r *RefreshTokenRepository) Rotate(ctx context.Context, oldRotationID uuid.UUID, next *domain.RefreshToken) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin rotation transaction: %w", err)
	}
	defer tx.Rollback()

	revoke := `
		UPDATE refresh_tokens
		SET revoked_at = now(), revoked_reason = $2
		WHERE rotation_id = $1 AND revoked_at IS NULL
	`
	result, err := tx.ExecContext(ctx, revoke, oldRotationID, domain.RevokeReasonRotated)
	if err != nil {
		return fmt.Errorf("failed to revoke old refresh token: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrRefreshTokenNotFound
	}

	insert := `
		INSERT INTO refresh_tokens (rotation_id, user_id, tenant_id, device_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := tx.ExecContext(ctx, insert,
		next.RotationID, next.UserID, next.TenantID, next.DeviceID, next.CreatedAt, next.ExpiresAt); err != nil {
		return fmt.Errorf("failed to store new refresh token: %w", err)
	}

	return tx.Commit()
}

func (r *RefreshTokenRepository) Revoke(ctx context.Context, rotationID uuid.UUID, reason string) error {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = now(), revoked_reason = $2
		WHERE rotation_id = $1 AND revoked_at IS NULL
	`
	_, err := r.db.ExecContext(ctx, query, rotationID, reason)
	return err
}

func (r *RefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID uuid.UUID, reason string) error {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = now(), revoked_reason = $2
		WHERE user_id = $1 AND revoked_at IS NULL
	`
	_, err := r.db.ExecContext(ctx, query, userID, reason)
	return err
}

func (r *RefreshTokenRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM refresh_tokens WHERE expires_at < $1 OR revoked_at < $1`
	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
