package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/drouple/gatekeeper/internal/core/domain"
)

// UserRepository is the user-lookup collaborator. Implementations return
// (nil, nil) when no user exists.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateName(ctx context.Context, id uuid.UUID, name string) error
}

type UserService interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	UpdateName(ctx context.Context, id uuid.UUID, name string) (*domain.User, error)
}
