package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/drouple/gatekeeper/internal/core/domain"
	"github.com/drouple/gatekeeper/internal/core/ports"
)

type tokenService struct {
	userRepo       ports.UserRepository
	refreshRepo    ports.RefreshTokenRepository
	googleVerifier ports.TokenVerifier
	googleClientID string
	secret         []byte
	accessTTL      time.Duration
	refreshTTL     time.Duration
}

// NewTokenService builds the token service. The signing secret is injected
// by the caller and is expected to be validated at startup already.
func NewTokenService(
	userRepo ports.UserRepository,
	refreshRepo ports.RefreshTokenRepository,
	googleVerifier ports.TokenVerifier,
	googleClientID string,
	secret []byte,
	accessTTL, refreshTTL time.Duration,
) ports.TokenService {
	return &tokenService{
		userRepo:       userRepo,
		refreshRepo:    refreshRepo,
		googleVerifier: googleVerifier,
		googleClientID: googleClientID,
		secret:         secret,
		accessTTL:      accessTTL,
		refreshTTL:     refreshTTL,
	}
}

func (s *tokenService) Login(ctx context.Context, email, password, deviceID string) (*ports.TokenPair, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		// Burn a comparison anyway so absent and wrong-password logins
		// take comparable time.
		_ = bcrypt.CompareHashAndPassword([]byte("$2a$10$0000000000000000000000"), []byte(password))
		return nil, domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if !user.IsActive || user.DeletedAt != nil {
		return nil, domain.ErrUserInactive
	}
	return s.issuePair(ctx, user, deviceID)
}

func (s *tokenService) LoginWithGoogle(ctx context.Context, idToken, deviceID string) (*ports.TokenPair, error) {
	payload, err := s.googleVerifier.Verify(ctx, idToken, s.googleClientID)
	if err != nil {
		log.Printf("google token verification failed: %v", err)
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.userRepo.GetByEmail(ctx, payload.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	// Sign-in with Google never provisions accounts; membership is created
	// through the directory, not the mobile client.
	if user == nil {
		return nil, domain.ErrInvalidCredentials
	}
	if !user.IsActive || user.DeletedAt != nil {
		return nil, domain.ErrUserInactive
	}
	return s.issuePair(ctx, user, deviceID)
}

// Refresh exchanges a refresh token for a fresh access+refresh pair,
// advancing the rotation chain. Presenting a token whose chain link is
// missing, expired or already revoked is treated as theft: every refresh
// token of that user is revoked before the call fails.
func (s *tokenService) Refresh(ctx context.Context, refreshToken string) (*ports.TokenPair, error) {
	claims, err := s.verifyRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}
	rotationID, err := claims.RotationID()
	if err != nil {
		return nil, domain.ErrTokenMalformed
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, domain.ErrTokenMalformed
	}

	record, err := s.refreshRepo.Find(ctx, rotationID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up refresh token: %w", err)
	}
	if record == nil || !record.Active(time.Now()) {
		s.revokeAllOnReuse(ctx, userID)
		return nil, domain.ErrTokenReuseDetected
	}

	// Roles, tenant and church come from the directory, not from the old
	// token, so a role change takes effect on the next rotation.
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || !user.IsActive || user.DeletedAt != nil {
		if err := s.refreshRepo.RevokeAllForUser(ctx, userID, domain.RevokeReasonAdmin); err != nil {
			log.Printf("failed to revoke tokens for inactive user %s: %v", userID, err)
		}
		return nil, domain.ErrUserInactive
	}

	accessToken, err := s.mintAccessToken(user, record.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	newRefreshToken, next, err := s.mintRefreshToken(user, record.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	if err := s.refreshRepo.Rotate(ctx, rotationID, next); err != nil {
		if errors.Is(err, domain.ErrRefreshTokenNotFound) {
			// Lost a race against a concurrent rotation of the same
			// link; the token was effectively replayed.
			s.revokeAllOnReuse(ctx, userID)
			return nil, domain.ErrTokenReuseDetected
		}
		return nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}

	return &ports.TokenPair{AccessToken: accessToken, RefreshToken: newRefreshToken}, nil
}

func (s *tokenService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.verifyRefreshToken(refreshToken)
	if err != nil {
		return err
	}
	rotationID, err := claims.RotationID()
	if err != nil {
		return domain.ErrTokenMalformed
	}
	if err := s.refreshRepo.Revoke(ctx, rotationID, domain.RevokeReasonLogout); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

func (s *tokenService) RevokeAll(ctx context.Context, userID uuid.UUID, reason string) error {
	if err := s.refreshRepo.RevokeAllForUser(ctx, userID, reason); err != nil {
		return fmt.Errorf("failed to revoke refresh tokens: %w", err)
	}
	return nil
}

func (s *tokenService) VerifyAccessToken(token string) (*domain.AccessClaims, error) {
	claims := &domain.AccessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(domain.TokenIssuer),
		jwt.WithAudience(domain.AudienceAccess),
	)
	if err != nil {
		return nil, mapJWTError(err)
	}
	if !parsed.Valid {
		return nil, domain.ErrTokenMalformed
	}
	if err := claims.Validate(); err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *tokenService) verifyRefreshToken(token string) (*domain.RefreshClaims, error) {
	claims := &domain.RefreshClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(domain.TokenIssuer),
		jwt.WithAudience(domain.AudienceRefresh),
	)
	if err != nil {
		return nil, mapJWTError(err)
	}
	if !parsed.Valid {
		return nil, domain.ErrTokenMalformed
	}
	if err := claims.Validate(); err != nil {
		return nil, err
	}
	return claims, nil
}

// --- helpers below ---

func (s *tokenService) issuePair(ctx context.Context, user *domain.User, deviceID string) (*ports.TokenPair, error) {
	accessToken, err := s.mintAccessToken(user, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refreshToken, record, err := s.mintRefreshToken(user, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	if err := s.refreshRepo.Store(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}
	return &ports.TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (s *tokenService) mintAccessToken(user *domain.User, deviceID string) (string, error) {
	now := time.Now()
	claims := domain.AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    domain.TokenIssuer,
			Audience:  jwt.ClaimStrings{domain.AudienceAccess},
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
		Email:    user.Email,
		Roles:    user.Roles,
		TenantID: user.TenantID,
		ChurchID: user.ChurchID,
		DeviceID: deviceID,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// mintRefreshToken builds a signed refresh token and its chain-link record.
// The record is not persisted here; Store and Rotate decide how it lands.
func (s *tokenService) mintRefreshToken(user *domain.User, deviceID string) (string, *domain.RefreshToken, error) {
	now := time.Now()
	rotationID := uuid.New()

	record := &domain.RefreshToken{
		RotationID: rotationID,
		UserID:     user.ID,
		TenantID:   user.TenantID,
		DeviceID:   deviceID,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.refreshTTL),
	}

	claims := domain.RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        rotationID.String(),
			Issuer:    domain.TokenIssuer,
			Audience:  jwt.ClaimStrings{domain.AudienceRefresh},
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(record.ExpiresAt),
		},
		TenantID: user.TenantID,
		DeviceID: deviceID,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, err
	}
	return token, record, nil
}

func (s *tokenService) keyFunc(t *jwt.Token) (any, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
	}
	return s.secret, nil
}

func (s *tokenService) revokeAllOnReuse(ctx context.Context, userID uuid.UUID) {
	if err := s.refreshRepo.RevokeAllForUser(ctx, userID, domain.RevokeReasonReuseDetected); err != nil {
		log.Printf("failed to revoke tokens after reuse for user %s: %v", userID, err)
	}
}

// mapJWTError folds golang-jwt parse failures into the token error taxonomy.
// Expiry wins over everything else so an expired token never reports a
// different failure kind.
func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return domain.ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return domain.ErrTokenSignatureInvalid
	case errors.Is(err, jwt.ErrTokenMalformed):
		return domain.ErrTokenMalformed
	default:
		// Wrong audience or issuer means the token was not minted for
		// this surface; the caller only needs to know it is unusable.
		return domain.ErrTokenMalformed
	}
}
