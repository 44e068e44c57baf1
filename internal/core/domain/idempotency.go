package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	idempotencyKeyMinLen = 8
	idempotencyKeyMaxLen = 128

	// IdempotencyRetention is how long a cached response stays replayable.
	IdempotencyRetention = 24 * time.Hour
)

// IdempotencyRecord caches the first successful response for a client-declared
// operation. It is written once and read-only afterward; the sweeper purges it
// past retention.
type IdempotencyRecord struct {
	Key            string    `json:"key"`
	UserID         uuid.UUID `json:"user_id"`
	Route          string    `json:"route"`
	ResponseStatus int       `json:"response_status"`
	ResponseBody   []byte    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

// Matches reports whether a lookup hit belongs to the same operation. A key
// reused under a different user or route is a client bug, never a replay.
func (r *IdempotencyRecord) Matches(userID uuid.UUID, route string) bool {
	return r.UserID == userID && r.Route == route
}

// ValidIdempotencyKey checks length and charset: 8-128 characters of
// [A-Za-z0-9_-].
func ValidIdempotencyKey(key string) bool {
	if len(key) < idempotencyKeyMinLen || len(key) > idempotencyKeyMaxLen {
		return false
	}
	for _, c := range key {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return false
		}
	}
	return true
}
