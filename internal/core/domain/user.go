package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is the slice of the member directory this layer needs to admit a
// request. The rest of the member record lives outside the trust layer.
type User struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	Roles        []Role     `json:"roles"`
	TenantID     string     `json:"tenant_id"`
	ChurchID     string     `json:"church_id"`
	PasswordHash string     `json:"-"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}
