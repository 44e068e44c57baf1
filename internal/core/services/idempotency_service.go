package services

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/drouple/gatekeeper/internal/core/domain"
	"github.com/drouple/gatekeeper/internal/core/ports"
)

type idempotencyService struct {
	repo ports.IdempotencyRepository
}

func NewIdempotencyService(repo ports.IdempotencyRepository) ports.IdempotencyService {
	return &idempotencyService{repo: repo}
}

func (s *idempotencyService) Check(ctx context.Context, key string, userID uuid.UUID, route string) (*ports.IdempotencyCheck, error) {
	if !domain.ValidIdempotencyKey(key) {
		return nil, domain.ErrIdempotencyKeyInvalid
	}

	record, err := s.repo.Get(ctx, key)
	if err != nil {
		// Dedup degrades to best-effort; the mutation itself must not
		// fail because the store is unreachable.
		log.Printf("idempotency lookup failed for key %q: %v", key, err)
		return &ports.IdempotencyCheck{}, nil
	}
	if record == nil {
		return &ports.IdempotencyCheck{}, nil
	}
	if !record.Matches(userID, route) {
		return nil, domain.ErrIdempotencyKeyConflict
	}
	return &ports.IdempotencyCheck{IsDuplicate: true, Cached: record}, nil
}

func (s *idempotencyService) Store(ctx context.Context, key string, userID uuid.UUID, route string, status int, body []byte) {
	record := &domain.IdempotencyRecord{
		Key:            key,
		UserID:         userID,
		Route:          route,
		ResponseStatus: status,
		ResponseBody:   body,
		CreatedAt:      time.Now(),
	}
	if err := s.repo.Create(ctx, record); err != nil {
		// The operation already succeeded; losing the cache entry only
		// weakens dedup for this key.
		log.Printf("failed to store idempotency record for key %q: %v", key, err)
	}
}
