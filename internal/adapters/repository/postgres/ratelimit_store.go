package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/drouple/gatekeeper/internal/core/ports"
)

// RateLimitStore keeps sliding-window counters in postgres so the budget is
// shared across processes. The whole check-reset-increment step is a single
// upsert, which keeps concurrent increments atomic without advisory locks.
type RateLimitStore struct {
	db *sql.DB
}

func NewRateLimitStore(db *sql.DB) ports.RateLimitStore {
	return &RateLimitStore{db: db}
}

func (s *RateLimitStore) Increment(ctx context.Context, key string, window time.Duration) (int, time.Time, error) {
	// When the stored window started at or before the boundary the counter
	// restarts at 1; otherwise it increments in place.
	query := `
		INSERT INTO rate_limit_buckets (key, window_start, count)
		VALUES ($1, now(), 1)
		ON CONFLICT (key) DO UPDATE SET
			count = CASE
				WHEN rate_limit_buckets.window_start <= $2 THEN 1
				ELSE rate_limit_buckets.count + 1
			END,
			window_start = CASE
				WHEN rate_limit_buckets.window_start <= $2 THEN now()
				ELSE rate_limit_buckets.window_start
			END
		RETURNING count, window_start
	`
	boundary := time.Now().Add(-window)

	var count int
	var windowStart time.Time
	if err := s.db.QueryRowContext(ctx, query, key, boundary).Scan(&count, &windowStart); err != nil {
		return 0, time.Time{}, err
	}
	return count, windowStart, nil
}
