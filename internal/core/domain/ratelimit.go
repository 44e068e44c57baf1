package domain

import "time"

// KeyStrategy selects which request dimensions form a bucket key.
type KeyStrategy string

const (
	// KeyByIP buckets on the client address alone.
	KeyByIP KeyStrategy = "ip"
	// KeyByIPAndSecondary adds a caller-supplied dimension (e.g. the email
	// field on login) so different users behind one NAT do not share a budget.
	KeyByIPAndSecondary KeyStrategy = "ip+secondary"
	// KeyByIPAndPath buckets per client address and request path.
	KeyByIPAndPath KeyStrategy = "ip+path"
)

// RateLimitPolicy is one admission rule for an endpoint.
type RateLimitPolicy struct {
	Name     string
	Limit    int
	Window   time.Duration
	Strategy KeyStrategy
}

// Unlimited marks endpoints with no admission ceiling.
func (p RateLimitPolicy) Unlimited() bool {
	return p.Limit <= 0
}

// RateLimitDecision is the outcome of one admission check. The four metadata
// fields are surfaced verbatim to the caller so clients can implement backoff.
type RateLimitDecision struct {
	Allowed    bool          `json:"allowed"`
	Limit      int           `json:"limit"`
	Remaining  int           `json:"remaining"`
	ResetAt    time.Time     `json:"reset_at"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`
}
