package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/drouple/gatekeeper/internal/core/domain"
	"github.com/drouple/gatekeeper/internal/core/ports"
)

var _ ports.RefreshTokenRepository = (*RefreshTokenRepository)(nil)

type RefreshTokenRepository struct {
	mu     sync.Mutex
	tokens map[uuid.UUID]*domain.RefreshToken
}

func NewRefreshTokenRepository() *RefreshTokenRepository {
	return &RefreshTokenRepository{tokens: make(map[uuid.UUID]*domain.RefreshToken)}
}

func (r *RefreshTokenRepository) Store(_ context.Context, token *domain.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *token
	r.tokens[token.RotationID] = &cp
	return nil
}

func (r *RefreshTokenRepository) Find(_ context.Context, rotationID uuid.UUID) (*domain.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[rotationID]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (r *RefreshTokenRepository) Rotate(_ context.Context, oldRotationID uuid.UUID, next *domain.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.tokens[oldRotationID]
	if !ok || old.RevokedAt != nil {
		return domain.ErrRefreshTokenNotFound
	}
	now := time.Now()
	old.RevokedAt = &now
	old.RevokedReason = domain.RevokeReasonRotated

	cp := *next
	r.tokens[next.RotationID] = &cp
	return nil
}

func (r *RefreshTokenRepository) Revoke(_ context.Context, rotationID uuid.UUID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[rotationID]
	if !ok || t.RevokedAt != nil {
		return nil
	}
	now := time.Now()
	t.RevokedAt = &now
	t.RevokedReason = reason
	return nil
}

func (r *RefreshTokenRepository) RevokeAllForUser(_ context.Context, userID uuid.UUID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for _, t := range r.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			t.RevokedAt = &now
			t.RevokedReason = reason
		}
	}
	return nil
}

func (r *RefreshTokenRepository) DeleteExpiredBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, t := range r.tokens {
		if t.ExpiresAt.Before(cutoff) || (t.RevokedAt != nil && t.RevokedAt.Before(cutoff)) {
			delete(r.tokens, id)
			n++
		}
	}
	return n, nil
}
