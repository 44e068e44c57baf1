package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/drouple/gatekeeper/internal/core/domain"
	"github.com/drouple/gatekeeper/internal/core/ports"
)

// SweepService purges rows the request path no longer needs: refresh-token
// chain links past expiry or revocation, and idempotency records past
// retention. It runs out of band and takes no locks request handling uses.
type SweepService struct {
	refreshRepo ports.RefreshTokenRepository
	idemRepo    ports.IdempotencyRepository
}

func NewSweepService(refreshRepo ports.RefreshTokenRepository, idemRepo ports.IdempotencyRepository) *SweepService {
	return &SweepService{refreshRepo: refreshRepo, idemRepo: idemRepo}
}

func (s *SweepService) Run(ctx context.Context) error {
	now := time.Now()

	tokens, err := s.refreshRepo.DeleteExpiredBefore(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to sweep refresh tokens: %w", err)
	}

	records, err := s.idemRepo.DeleteOlderThan(ctx, now.Add(-domain.IdempotencyRetention))
	if err != nil {
		return fmt.Errorf("failed to sweep idempotency records: %w", err)
	}

	log.Printf("sweep removed %d refresh tokens and %d idempotency records", tokens, records)
	return nil
}
