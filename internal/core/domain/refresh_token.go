package domain

import (
	"time"

	"github.com/google/uuid"
)

// Revocation reasons recorded on a chain link. Kept as data so the theft
// policy can be narrowed later without a schema change.
const (
	RevokeReasonRotated       = "rotated"
	RevokeReasonLogout        = "logout"
	RevokeReasonReuseDetected = "reuse_detected"
	RevokeReasonAdmin         = "admin"
)

// RefreshToken is one link of a rotation chain. A link moves Active→Revoked
// exactly once (rotation, logout, or theft detection) or expires in place;
// no transition ever makes it active again. Rows are revoked, never deleted,
// until the sweeper purges them past retention.
type RefreshToken struct {
	RotationID    uuid.UUID  `json:"rotation_id"`
	UserID        uuid.UUID  `json:"user_id"`
	TenantID      string     `json:"tenant_id"`
	DeviceID      string     `json:"device_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	ExpiresAt     time.Time  `json:"expires_at"`
	RevokedAt     *time.Time `json:"revoked_at,omitempty"`
	RevokedReason string     `json:"revoked_reason,omitempty"`
}

func (t *RefreshToken) Revoked() bool {
	return t.RevokedAt != nil
}

func (t *RefreshToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}

// Active reports whether this link can still be exchanged.
func (t *RefreshToken) Active(now time.Time) bool {
	return !t.Revoked() && !t.Expired(now)
}
