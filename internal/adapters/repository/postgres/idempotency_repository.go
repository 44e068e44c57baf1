package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/drouple/gatekeeper/internal/core/domain"
	"github.com/drouple/gatekeeper/internal/core/ports"
)

type IdempotencyRepository struct {
	db *sql.DB
}

func NewIdempotencyRepository(db *sql.DB) ports.IdempotencyRepository {
	return &IdempotencyRepository{db: db}
}

func (r *IdempotencyRepository) Get(ctx context.Context, key string) (*domain.IdempotencyRecord, error) {
	query := `
		SELECT key, user_id, route, response_status, response_body, created_at
		FROM idempotency_records
		WHERE key = $1
	`
	record := &domain.IdempotencyRecord{}
	err := r.db.QueryRowContext(ctx, query, key).Scan(
		&record.Key,
		&record.UserID,
		&record.Route,
		&record.ResponseStatus,
		&record.ResponseBody,
		&record.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}

func (r *IdempotencyRepository) Create(ctx context.Context, record *domain.IdempotencyRecord) error {
	// First writer wins; a concurrent duplicate insert is not an error.
	query := `
		INSERT INTO idempotency_records (key, user_id, route, response_status, response_body, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (key) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query,
		record.Key, record.UserID, record.Route, record.ResponseStatus, record.ResponseBody, record.CreatedAt)
	return err
}

func (r *IdempotencyRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM idempotency_records WHERE created_at < $1`
	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
