package users

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type UserRepository interface {
	// CreateUser returns ErrUsernameTaken when the username is in use
	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
}

// RevocationStore remembers logged out sessions until they would have expired
type RevocationStore interface {
	Revoke(ctx context.Context, sessionID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
}
