package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRefreshTokenStates(t *testing.T) {
	now := time.Now()
	token := &RefreshToken{
		RotationID: uuid.New(),
		UserID:     uuid.New(),
		TenantID:   "T1",
		CreatedAt:  now,
		ExpiresAt:  now.Add(time.Hour),
	}

	assert.True(t, token.Active(now))

	revokedAt := now
	token.RevokedAt = &revokedAt
	token.RevokedReason = RevokeReasonLogout
	assert.False(t, token.Active(now), "revoked is terminal")

	expired := &RefreshToken{ExpiresAt: now.Add(-time.Minute)}
	assert.True(t, expired.Expired(now))
	assert.False(t, expired.Active(now))
}
