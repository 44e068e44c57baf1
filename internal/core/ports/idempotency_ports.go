package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/drouple/gatekeeper/internal/core/domain"
)

// IdempotencyRepository persists first-execution responses.
type IdempotencyRepository interface {
	// Get returns (nil, nil) when the key is unknown.
	Get(ctx context.Context, key string) (*domain.IdempotencyRecord, error)

	// Create stores the record unless the key already exists; a concurrent
	// duplicate insert is not an error (first writer wins).
	Create(ctx context.Context, record *domain.IdempotencyRecord) error

	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// IdempotencyCheck is the outcome of a pre-execution lookup.
type IdempotencyCheck struct {
	IsDuplicate bool
	Cached      *domain.IdempotencyRecord
}

type IdempotencyService interface {
	// Check looks the key up before executing a mutation. A key owned by a
	// different (user, route) pair yields domain.ErrIdempotencyKeyConflict;
	// a store read failure is treated as a first execution (dedup degrades
	// to best-effort, the mutation itself never fails on it).
	Check(ctx context.Context, key string, userID uuid.UUID, route string) (*IdempotencyCheck, error)

	// Store caches the response of a successful first execution. Failures
	// are logged and swallowed.
	Store(ctx context.Context, key string, userID uuid.UUID, route string, status int, body []byte)
}
