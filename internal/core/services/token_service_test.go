package services

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/drouple/gatekeeper/internal/adapters/repository/memory"
	"github.com/drouple/gatekeeper/internal/core/domain"
	"github.com/drouple/gatekeeper/internal/core/ports"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type stubVerifier struct {
	email string
}

func (v *stubVerifier) Verify(_ context.Context, token string, _ string) (*ports.TokenPayload, error) {
	if token == "valid-google-token" {
		return &ports.TokenPayload{Email: v.email, Name: "Stub User"}, nil
	}
	return nil, assert.AnError
}

func newTestUser(t *testing.T, roles ...domain.Role) *domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	return &domain.User{
		ID:           uuid.New(),
		Email:        "member1@example.com",
		Name:         "Member One",
		Roles:        roles,
		TenantID:     "T1",
		ChurchID:     "C1",
		PasswordHash: string(hash),
		IsActive:     true,
		CreatedAt:    time.Now(),
	}
}

func newTestTokenService(t *testing.T, user *domain.User) (ports.TokenService, *memory.UserRepository, *memory.RefreshTokenRepository) {
	t.Helper()
	userRepo := memory.NewUserRepository(user)
	refreshRepo := memory.NewRefreshTokenRepository()
	svc := NewTokenService(userRepo, refreshRepo, &stubVerifier{email: user.Email}, "client-id",
		[]byte(testSecret), 15*time.Minute, 7*24*time.Hour)
	return svc, userRepo, refreshRepo
}

func TestLoginAndAccessTokenRoundTrip(t *testing.T) {
	user := newTestUser(t, domain.RoleMember, domain.RoleLeader)
	svc, _, _ := newTestTokenService(t, user)

	pair, err := svc.Login(context.Background(), user.Email, "password123", "device-1")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	claims, err := svc.VerifyAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.Subject)
	assert.Equal(t, user.Email, claims.Email)
	assert.Equal(t, user.Roles, claims.Roles)
	assert.Equal(t, "T1", claims.TenantID)
	assert.Equal(t, "C1", claims.ChurchID)
	assert.Equal(t, "device-1", claims.DeviceID)
}

func TestLoginFailures(t *testing.T) {
	user := newTestUser(t, domain.RoleMember)
	svc, userRepo, _ := newTestTokenService(t, user)

	_, err := svc.Login(context.Background(), user.Email, "wrong-password", "")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), "nobody@example.com", "password123", "")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	user.IsActive = false
	userRepo.Put(user)
	_, err = svc.Login(context.Background(), user.Email, "password123", "")
	assert.ErrorIs(t, err, domain.ErrUserInactive)
}

func TestLoginWithGoogle(t *testing.T) {
	user := newTestUser(t, domain.RoleMember)
	svc, _, _ := newTestTokenService(t, user)

	pair, err := svc.LoginWithGoogle(context.Background(), "valid-google-token", "device-1")
	require.NoError(t, err)

	claims, err := svc.VerifyAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.Subject)

	_, err = svc.LoginWithGoogle(context.Background(), "bad-token", "device-1")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestVerifyAccessTokenTaxonomy(t *testing.T) {
	user := newTestUser(t, domain.RoleMember)
	svc, _, _ := newTestTokenService(t, user)

	t.Run("expired always reports expiry", func(t *testing.T) {
		token := signToken(t, testSecret, domain.AccessClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    domain.TokenIssuer,
				Audience:  jwt.ClaimStrings{domain.AudienceAccess},
				Subject:   user.ID.String(),
				IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Hour)),
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-30 * time.Minute)),
			},
			Email:    user.Email,
			Roles:    user.Roles,
			TenantID: "T1",
			ChurchID: "C1",
		})
		_, err := svc.VerifyAccessToken(token)
		assert.ErrorIs(t, err, domain.ErrTokenExpired)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token := signToken(t, "another-secret-another-secret-xx", domain.AccessClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    domain.TokenIssuer,
				Audience:  jwt.ClaimStrings{domain.AudienceAccess},
				Subject:   user.ID.String(),
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
			Email:    user.Email,
			Roles:    user.Roles,
			TenantID: "T1",
			ChurchID: "C1",
		})
		_, err := svc.VerifyAccessToken(token)
		assert.ErrorIs(t, err, domain.ErrTokenSignatureInvalid)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.VerifyAccessToken("not.a.token")
		assert.ErrorIs(t, err, domain.ErrTokenMalformed)
	})

	t.Run("missing claims", func(t *testing.T) {
		token := signToken(t, testSecret, domain.AccessClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    domain.TokenIssuer,
				Audience:  jwt.ClaimStrings{domain.AudienceAccess},
				Subject:   user.ID.String(),
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
			// No email, roles, tenant or church.
		})
		_, err := svc.VerifyAccessToken(token)
		assert.ErrorIs(t, err, domain.ErrMissingClaims)
	})

	t.Run("refresh token rejected on access surface", func(t *testing.T) {
		pair, err := svc.Login(context.Background(), user.Email, "password123", "")
		require.NoError(t, err)
		_, err = svc.VerifyAccessToken(pair.RefreshToken)
		assert.ErrorIs(t, err, domain.ErrTokenMalformed)
	})
}

func TestRotationIsSingleUse(t *testing.T) {
	user := newTestUser(t, domain.RoleMember)
	svc, _, _ := newTestTokenService(t, user)
	ctx := context.Background()

	pair, err := svc.Login(ctx, user.Email, "password123", "device-1")
	require.NoError(t, err)

	rotated, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	// Replaying the original token is theft: the call fails and every
	// refresh token of the user dies with it.
	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrTokenReuseDetected)

	_, err = svc.Refresh(ctx, rotated.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrTokenReuseDetected)
}

func TestRefreshPicksUpRoleChange(t *testing.T) {
	user := newTestUser(t, domain.RoleMember)
	svc, userRepo, _ := newTestTokenService(t, user)
	ctx := context.Background()

	pair, err := svc.Login(ctx, user.Email, "password123", "")
	require.NoError(t, err)

	user.Roles = []domain.Role{domain.RoleLeader}
	userRepo.Put(user)

	rotated, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)

	claims, err := svc.VerifyAccessToken(rotated.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, []domain.Role{domain.RoleLeader}, claims.Roles)
}

func TestRefreshForDeactivatedUserRevokesChain(t *testing.T) {
	user := newTestUser(t, domain.RoleMember)
	svc, userRepo, _ := newTestTokenService(t, user)
	ctx := context.Background()

	pair, err := svc.Login(ctx, user.Email, "password123", "")
	require.NoError(t, err)

	user.IsActive = false
	userRepo.Put(user)

	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrUserInactive)

	user.IsActive = true
	userRepo.Put(user)
	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrTokenReuseDetected,
		"the chain stays dead after reactivation")
}

func TestLogoutRevokesChainLink(t *testing.T) {
	user := newTestUser(t, domain.RoleMember)
	svc, _, _ := newTestTokenService(t, user)
	ctx := context.Background()

	pair, err := svc.Login(ctx, user.Email, "password123", "")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, pair.RefreshToken))

	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrTokenReuseDetected)
}

func TestRevokeAllKillsEveryDevice(t *testing.T) {
	user := newTestUser(t, domain.RoleMember)
	svc, _, _ := newTestTokenService(t, user)
	ctx := context.Background()

	phone, err := svc.Login(ctx, user.Email, "password123", "phone")
	require.NoError(t, err)
	tablet, err := svc.Login(ctx, user.Email, "password123", "tablet")
	require.NoError(t, err)

	require.NoError(t, svc.RevokeAll(ctx, user.ID, domain.RevokeReasonAdmin))

	_, err = svc.Refresh(ctx, phone.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrTokenReuseDetected)
	_, err = svc.Refresh(ctx, tablet.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrTokenReuseDetected)
}

func signToken(t *testing.T, secret string, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}
