package service

import (
	"context"
	"errors"
	"fmt"

	"tally/internal/domain"
	"tally/internal/repository"
)

// ErrStaleSession indicates the session refers to a user that no longer exists.
var ErrStaleSession = errors.New("session user no longer exists")

// CounterService reads and advances a user's personal counter.
type CounterService interface {
	View(ctx context.Context, identity domain.Identity) (*domain.User, error)
	Increment(ctx context.Context, identity domain.Identity) error
}

type counterService struct {
	users repository.UserRepository
}

func NewCounterService(users repository.UserRepository) CounterService {
	return &counterService{users: users}
}

func (s *counterService) View(ctx context.Context, identity domain.Identity) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrStaleSession
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return sanitizeUser(user), nil
}

// Increment delegates to the store's atomic increment; there is no
// read-modify-write at this layer.
func (s *counterService) Increment(ctx context.Context, identity domain.Identity) error {
	if err := s.users.IncrementCounter(ctx, identity.UserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrStaleSession
		}
		return fmt.Errorf("increment counter: %w", err)
	}
	return nil
}
