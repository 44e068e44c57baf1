package memory

import (
	"context"
	"sync"
	"time"

	"github.com/drouple/gatekeeper/internal/core/domain"
	"github.com/drouple/gatekeeper/internal/core/ports"
)

var _ ports.IdempotencyRepository = (*IdempotencyRepository)(nil)

type IdempotencyRepository struct {
	mu      sync.Mutex
	records map[string]*domain.IdempotencyRecord
}

func NewIdempotencyRepository() *IdempotencyRepository {
	return &IdempotencyRepository{records: make(map[string]*domain.IdempotencyRecord)}
}

func (r *IdempotencyRepository) Get(_ context.Context, key string) (*domain.IdempotencyRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[key]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (r *IdempotencyRepository) Create(_ context.Context, record *domain.IdempotencyRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	// First writer wins; a concurrent duplicate is not an error.
	if _, ok := r.records[record.Key]; ok {
		return nil
	}
	cp := *record
	r.records[record.Key] = &cp
	return nil
}

func (r *IdempotencyRepository) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for key, rec := range r.records {
		if rec.CreatedAt.Before(cutoff) {
			delete(r.records, key)
			n++
		}
	}
	return n, nil
}
