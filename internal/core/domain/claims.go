package domain

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TokenIssuer     = "drouple-gatekeeper"
	AudienceAccess  = "mobile-access"
	AudienceRefresh = "mobile-refresh"
)

// AccessClaims is the payload of a short-lived access token. It is never
// persisted; validity is proven by signature and expiry alone.
type AccessClaims struct {
	jwt.RegisteredClaims
	Email    string `json:"email"`
	Roles    []Role `json:"roles"`
	TenantID string `json:"tenant_id"`
	ChurchID string `json:"church_id"`
	DeviceID string `json:"device_id,omitempty"`
}

// Validate fails closed on any missing required field. Parsing alone does
// not guarantee the token was minted with a full claim set.
func (c *AccessClaims) Validate() error {
	if c.Subject == "" || c.Email == "" || c.TenantID == "" || c.ChurchID == "" || len(c.Roles) == 0 {
		return ErrMissingClaims
	}
	return nil
}

// UserID parses the subject claim.
func (c *AccessClaims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// HasRole reports whether the subject's highest role satisfies required.
func (c *AccessClaims) HasRole(required Role) bool {
	return MaxRoleLevel(c.Roles) >= required.Level()
}

// RequireRole fails with ErrInsufficientRole when HasRole is false.
func (c *AccessClaims) RequireRole(required Role) error {
	if !c.HasRole(required) {
		return ErrInsufficientRole
	}
	return nil
}

// CanAccessTenant reports whether the subject may touch a resource owned by
// the given tenant. SUPER_ADMIN crosses tenant boundaries.
func (c *AccessClaims) CanAccessTenant(tenantID string) bool {
	if c.HasRole(RoleSuperAdmin) {
		return true
	}
	return c.TenantID == tenantID
}

func (c *AccessClaims) RequireTenantAccess(tenantID string) error {
	if !c.CanAccessTenant(tenantID) {
		return ErrTenantAccessDenied
	}
	return nil
}

// CanAccessChurch reports whether the subject may touch a resource scoped to
// the given church. PASTOR and above have church-wide oversight.
func (c *AccessClaims) CanAccessChurch(churchID string) bool {
	if c.HasRole(RolePastor) {
		return true
	}
	return c.ChurchID == churchID
}

func (c *AccessClaims) RequireChurchAccess(churchID string) error {
	if !c.CanAccessChurch(churchID) {
		return ErrChurchAccessDenied
	}
	return nil
}

// RefreshClaims is the payload of a rotating refresh token. The jti claim is
// the rotation id of the chain link backing this token.
type RefreshClaims struct {
	jwt.RegisteredClaims
	TenantID string `json:"tenant_id"`
	DeviceID string `json:"device_id,omitempty"`
}

func (c *RefreshClaims) Validate() error {
	if c.Subject == "" || c.ID == "" || c.TenantID == "" {
		return ErrMissingClaims
	}
	return nil
}

// RotationID parses the jti claim.
func (c *RefreshClaims) RotationID() (uuid.UUID, error) {
	return uuid.Parse(c.ID)
}
