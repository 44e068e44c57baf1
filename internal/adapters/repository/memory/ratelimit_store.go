// Package memory provides mutex-guarded in-memory implementations of the
// persistence ports. The rate-limit store is the production default for a
// single-process deployment; the rest double as test fixtures.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/drouple/gatekeeper/internal/core/ports"
)

var _ ports.RateLimitStore = (*RateLimitStore)(nil)

type bucket struct {
	windowStart time.Time
	count       int
}

type RateLimitStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket
}

func NewRateLimitStore() *RateLimitStore {
	return &RateLimitStore{buckets: make(map[string]*bucket)}
}

// Increment advances the counter for key, restarting the window when it has
// elapsed. The read-modify-write runs under one lock so two concurrent
// requests can never both observe the same pre-increment count.
func (s *RateLimitStore) Increment(_ context.Context, key string, window time.Duration) (int, time.Time, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[key]
	if !ok || now.Sub(b.windowStart) >= window {
		b = &bucket{windowStart: now}
		s.buckets[key] = b
	}
	b.count++
	return b.count, b.windowStart, nil
}
