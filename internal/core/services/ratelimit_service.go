package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/drouple/gatekeeper/internal/core/domain"
	"github.com/drouple/gatekeeper/internal/core/ports"
)

// PolicyTable maps "METHOD /path" to the admission rules for that endpoint.
// An endpoint may carry more than one rule (login stacks an hourly ceiling
// on top of the per-minute one); a request is admitted only when every rule
// admits it.
type PolicyTable map[string][]domain.RateLimitPolicy

// DefaultPolicyTable is the admission policy for the mobile API surface.
func DefaultPolicyTable() PolicyTable {
	return PolicyTable{
		"POST /api/v1/auth/login": {
			{Name: "login-minute", Limit: 5, Window: time.Minute, Strategy: domain.KeyByIPAndSecondary},
			{Name: "login-hour", Limit: 20, Window: time.Hour, Strategy: domain.KeyByIPAndSecondary},
		},
		"POST /api/v1/auth/google": {
			{Name: "google-login", Limit: 10, Window: time.Minute, Strategy: domain.KeyByIP},
		},
		"POST /api/v1/auth/refresh": {
			{Name: "refresh", Limit: 60, Window: time.Minute, Strategy: domain.KeyByIP},
		},
		"POST /api/v1/auth/logout": {
			{Name: "logout", Limit: 60, Window: time.Minute, Strategy: domain.KeyByIP},
		},
	}
}

type rateLimitService struct {
	store      ports.RateLimitStore
	table      PolicyTable
	apiDefault domain.RateLimitPolicy
}

// NewRateLimitService builds the admission controller. Endpoints missing
// from the table fall back to a general per-path ceiling under /api/ and to
// no limit elsewhere.
func NewRateLimitService(store ports.RateLimitStore, table PolicyTable) ports.RateLimitService {
	return &rateLimitService{
		store: store,
		table: table,
		apiDefault: domain.RateLimitPolicy{
			Name:     "api-default",
			Limit:    100,
			Window:   time.Minute,
			Strategy: domain.KeyByIPAndPath,
		},
	}
}

func (s *rateLimitService) Policy(method, path string) domain.RateLimitPolicy {
	if policies, ok := s.table[method+" "+path]; ok && len(policies) > 0 {
		return policies[0]
	}
	if strings.HasPrefix(path, "/api/") {
		return s.apiDefault
	}
	return domain.RateLimitPolicy{Name: "unlimited"}
}

func (s *rateLimitService) policies(method, path string) []domain.RateLimitPolicy {
	if policies, ok := s.table[method+" "+path]; ok {
		return policies
	}
	if strings.HasPrefix(path, "/api/") {
		return []domain.RateLimitPolicy{s.apiDefault}
	}
	return nil
}

// Check runs the request through every rule on its endpoint. On rejection
// the reported metadata comes from whichever exceeded rule resets last, so
// the client's backoff is honest.
func (s *rateLimitService) Check(ctx context.Context, req ports.RateLimitRequest) (*domain.RateLimitDecision, error) {
	policies := s.policies(req.Method, req.Path)
	if len(policies) == 0 {
		return &domain.RateLimitDecision{Allowed: true}, nil
	}

	now := time.Now()
	var admitted *domain.RateLimitDecision
	var rejected *domain.RateLimitDecision

	for _, policy := range policies {
		count, windowStart, err := s.store.Increment(ctx, s.bucketKey(policy, req), policy.Window)
		if err != nil {
			// Admission control fails closed.
			return nil, fmt.Errorf("rate limit store failure: %w", err)
		}

		remaining := policy.Limit - count
		if remaining < 0 {
			remaining = 0
		}
		decision := &domain.RateLimitDecision{
			Allowed:   count <= policy.Limit,
			Limit:     policy.Limit,
			Remaining: remaining,
			ResetAt:   windowStart.Add(policy.Window),
		}

		if !decision.Allowed {
			decision.RetryAfter = retryAfter(decision.ResetAt, now, policy.Window)
			if rejected == nil || decision.ResetAt.After(rejected.ResetAt) {
				rejected = decision
			}
			continue
		}
		// Surface the tightest budget to the client.
		if admitted == nil || decision.Remaining < admitted.Remaining {
			admitted = decision
		}
	}

	if rejected != nil {
		return rejected, nil
	}
	return admitted, nil
}

func (s *rateLimitService) bucketKey(policy domain.RateLimitPolicy, req ports.RateLimitRequest) string {
	switch policy.Strategy {
	case domain.KeyByIPAndSecondary:
		return policy.Name + "|" + req.ClientIP + "|" + strings.ToLower(req.Secondary)
	case domain.KeyByIPAndPath:
		return policy.Name + "|" + req.ClientIP + "|" + req.Path
	default:
		return policy.Name + "|" + req.ClientIP
	}
}

// retryAfter is the whole-second wait until the window resets, always
// positive and never longer than the window itself.
func retryAfter(resetAt, now time.Time, window time.Duration) time.Duration {
	wait := resetAt.Sub(now)
	if wait <= 0 {
		return time.Second
	}
	if rounded := wait.Truncate(time.Second); rounded < wait {
		wait = rounded + time.Second
	}
	if wait > window {
		wait = window
	}
	return wait
}
