package service

import (
	"context"
	"fmt"
	"sync"

	"tally/internal/domain"
	"tally/internal/repository"
)

type userRepositoryStub struct {
	mu     sync.Mutex
	byID   map[string]*domain.User
	nextID int

	createErr error
	getErr    error
}

func newUserRepositoryStub() *userRepositoryStub {
	return &userRepositoryStub{byID: make(map[string]*domain.User)}
}

func (r *userRepositoryStub) Init(context.Context) error { return nil }

func (r *userRepositoryStub) Ping(context.Context) error { return nil }

func (r *userRepositoryStub) Create(_ context.Context, user *domain.User) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.createErr != nil {
		return "", r.createErr
	}
	for _, existing := range r.byID {
		if existing.Username == user.Username {
			return "", repository.ErrDuplicateUsername
		}
	}
	r.nextID++
	user.ID = fmt.Sprintf("u-%d", r.nextID)
	user.Counter = 1
	stored := *user
	r.byID[user.ID] = &stored
	return user.ID, nil
}

func (r *userRepositoryStub) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.getErr != nil {
		return nil, r.getErr
	}
	for _, u := range r.byID {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepositoryStub) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.getErr != nil {
		return nil, r.getErr
	}
	u, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *userRepositoryStub) IncrementCounter(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Counter++
	return nil
}

func (r *userRepositoryStub) stored(id string) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *r.byID[id]
	return &copied
}
