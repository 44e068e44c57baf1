package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/drouple/gatekeeper/internal/core/domain"
)

// RefreshTokenRepository persists rotation-chain links.
type RefreshTokenRepository interface {
	Store(ctx context.Context, token *domain.RefreshToken) error

	// Find returns (nil, nil) when no link exists for the rotation id.
	Find(ctx context.Context, rotationID uuid.UUID) (*domain.RefreshToken, error)

	// Rotate atomically revokes the old link and stores the next one.
	// When the old link is already revoked or gone, it returns
	// domain.ErrRefreshTokenNotFound without storing anything; of two
	// concurrent rotations of the same link exactly one succeeds.
	Rotate(ctx context.Context, oldRotationID uuid.UUID, next *domain.RefreshToken) error

	Revoke(ctx context.Context, rotationID uuid.UUID, reason string) error
	RevokeAllForUser(ctx context.Context, userID uuid.UUID, reason string) error

	// DeleteExpiredBefore purges links that expired or were revoked
	// before the cutoff.
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// TokenPair bundles the two credentials returned by every issuance path.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// TokenService mints, verifies and rotates mobile credentials.
type TokenService interface {
	Login(ctx context.Context, email, password, deviceID string) (*TokenPair, error)
	LoginWithGoogle(ctx context.Context, idToken, deviceID string) (*TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	RevokeAll(ctx context.Context, userID uuid.UUID, reason string) error
	VerifyAccessToken(token string) (*domain.AccessClaims, error)
}

// TokenPayload is the identity asserted by an external sign-in provider.
type TokenPayload struct {
	Email string
	Name  string
}

// TokenVerifier validates an external provider's ID token.
type TokenVerifier interface {
	Verify(ctx context.Context, token string, clientID string) (*TokenPayload, error)
}
