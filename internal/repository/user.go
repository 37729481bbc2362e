package repository

import (
	"context"
	"errors"

	"tally/internal/domain"
)

var (
	// ErrNotFound indicates the requested user does not exist.
	ErrNotFound = errors.New("repository: user not found")
	// ErrDuplicateUsername is returned when the username uniqueness constraint rejects an insert.
	ErrDuplicateUsername = errors.New("repository: username already exists")
)

// UserRepository defines persistence operations for User entities.
type UserRepository interface {
	Init(ctx context.Context) error
	Ping(ctx context.Context) error
	Create(ctx context.Context, user *domain.User) (string, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// IncrementCounter adds one to the user's counter in a single store operation.
	IncrementCounter(ctx context.Context, id string) error
}
