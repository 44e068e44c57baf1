package ports

import (
	"context"
	"time"

	"github.com/drouple/gatekeeper/internal/core/domain"
)

// RateLimitStore holds sliding-window counters. Increment must be atomic:
// when the stored window started at or before the reset boundary the counter
// restarts at 1 with a fresh window, otherwise it increments in place. It
// returns the post-increment count and the window start.
type RateLimitStore interface {
	Increment(ctx context.Context, key string, window time.Duration) (count int, windowStart time.Time, err error)
}

// RateLimitRequest carries the dimensions a policy key can be built from.
type RateLimitRequest struct {
	Method    string
	Path      string
	ClientIP  string
	Secondary string
}

type RateLimitService interface {
	// Check admits or rejects the request. A store failure rejects
	// (admission control fails closed).
	Check(ctx context.Context, req RateLimitRequest) (*domain.RateLimitDecision, error)

	// Policy resolves the admission rule for an endpoint, falling back to
	// the path-prefix default.
	Policy(method, path string) domain.RateLimitPolicy
}
