package ports

import (
	"context"
	"errors"

	"journalflow/internal/domain/editorial"
)

var ErrUserNotFound = errors.New("user not found")

type UserProfile struct {
	UserID       uint64
	Name         string
	Email        string
	Capabilities []editorial.Capability
}

// Authorizer answers capability checks for the engine.
type Authorizer interface {
	HasCapability(ctx context.Context, userID uint64, capability editorial.Capability) (bool, error)
	UsersWithCapability(ctx context.Context, capabilities ...editorial.Capability) ([]uint64, error)
}

// UserDirectory resolves display data for notification payloads and delivery.
type UserDirectory interface {
	GetUser(ctx context.Context, userID uint64) (UserProfile, error)
}

type DirectoryRepository interface {
	Authorizer
	UserDirectory
	CreateUser(ctx context.Context, name string, email string) (UserProfile, error)
	GrantCapability(ctx context.Context, userID uint64, capability editorial.Capability) error
	RevokeCapability(ctx context.Context, userID uint64, capability editorial.Capability) error
	ListUsers(ctx context.Context) ([]UserProfile, error)
}

// FileStore reports whether an uploaded manuscript file exists.
type FileStore interface {
	Exists(ctx context.Context, ref string) (bool, error)
}

// Metrics receives operation outcomes; a nil Metrics is never called.
type Metrics interface {
	ObserveTransition(operation string, result string)
	ObserveDispatch(template string, result string)
}
