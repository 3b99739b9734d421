package storage

import (
	"context"

	"github.com/freethub/groups-service/internal/domain"
)

// Storage defines the interface for the storage layer.
// Implementations must be safe for concurrent use, and reads must never
// observe a partially applied group mutation.
type Storage interface {
	// Close closes the storage connection.
	Close() error

	// Users
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]*domain.User, error)
	UserExists(ctx context.Context, id string) (bool, error)
	TouchUserActivity(ctx context.Context, id string) error

	// Sessions
	CreateSession(ctx context.Context, session *domain.Session) error
	GetSessionByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error)
	DeleteSession(ctx context.Context, id string) error

	// Groups. Group rows carry their member, moderator and freet sets;
	// UpdateGroup replaces all of them as one unit.
	CreateGroup(ctx context.Context, group *domain.Group) error
	GetGroup(ctx context.Context, id string) (*domain.Group, error)
	GetGroupByName(ctx context.Context, name string) (*domain.Group, error)
	ListGroups(ctx context.Context) ([]*domain.Group, error)
	ListGroupsForUser(ctx context.Context, userID string) ([]*domain.Group, error)
	UpdateGroup(ctx context.Context, group *domain.Group) error
	DeleteGroup(ctx context.Context, id string) error

	// Freets (read-mostly; creation exists for the content collaborator
	// and test fixtures, not for the HTTP surface).
	CreateFreet(ctx context.Context, freet *domain.Freet) error
	GetFreet(ctx context.Context, id string) (*domain.Freet, error)
	FreetExists(ctx context.Context, id string) (bool, error)
	ListFreets(ctx context.Context, ids []string) ([]*domain.Freet, error)

	// Transaction support
	BeginTx(ctx context.Context) (Transaction, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Storage
	Commit() error
	Rollback() error
}
