package auth

import (
	"context"

	"codeberg.org/gatekeep/server/gatekeep/users"
	"codeberg.org/gatekeep/server/internal/token"
)

// the persistence operations the service needs; *users.Repository satisfies it
type Store interface {
	FindByEmail(ctx context.Context, email string) (*users.User, error)
	FindByID(ctx context.Context, id string) (*users.User, error)
	Create(ctx context.Context, email, name string, passwordHash *string) (*users.User, error)
	FindOrCreateByEmail(ctx context.Context, email, name string) (*users.User, error)
	UpdateRefreshToken(ctx context.Context, id, refreshToken string) error
	RotateRefreshToken(ctx context.Context, id, current, next string) (bool, error)
	ClearRefreshToken(ctx context.Context, id string) error
}

// verifies credentials and manages the token lifecycle against the store
type Service struct {
	store Store
	codec *token.Codec
}

// creates the auth service
func NewService(store Store, codec *token.Codec) *Service {
	return &Service{store: store, codec: codec}
}
