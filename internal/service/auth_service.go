package service

import (
	"context"
	"errors"
	"fmt"

	"tally/internal/domain"
	"tally/internal/repository"
)

var (
	// ErrMissingFields indicates an empty username or password on registration.
	ErrMissingFields = errors.New("missing fields")
	// ErrDuplicateUsername is returned when attempting to register with an existing username.
	ErrDuplicateUsername = errors.New("user already exists")
	// ErrInvalidCredentials indicates that provided login credentials are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// SessionManager is the part of the session layer the auth flow needs.
type SessionManager interface {
	Create(ctx context.Context, identity domain.Identity) (string, error)
	Destroy(ctx context.Context, token string) error
}

// AuthResult is the outcome of a successful registration or login.
type AuthResult struct {
	User  *domain.User
	Token string
}

// AuthService describes the registration and login flows.
type AuthService interface {
	Register(ctx context.Context, username, password string) (*AuthResult, error)
	Login(ctx context.Context, username, password string) (*AuthResult, error)
	Logout(ctx context.Context, token string) error
}

// timingBurner is implemented by hashers that can equalize the cost of a
// lookup miss with that of a password mismatch.
type timingBurner interface {
	Burn(password string)
}

type authService struct {
	users    repository.UserRepository
	hasher   PasswordHasher
	sessions SessionManager
}

func NewAuthService(users repository.UserRepository, hasher PasswordHasher, sessions SessionManager) AuthService {
	return &authService{
		users:    users,
		hasher:   hasher,
		sessions: sessions,
	}
}

// Register stores a new user and opens a session for it. Usernames and
// passwords are taken verbatim; only emptiness is rejected.
func (s *authService) Register(ctx context.Context, username, password string) (*AuthResult, error) {
	if username == "" || password == "" {
		return nil, ErrMissingFields
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: hash,
	}
	if _, err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUsername) {
			return nil, ErrDuplicateUsername
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return s.openSession(ctx, user)
}

func (s *authService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			if b, ok := s.hasher.(timingBurner); ok {
				b.Burn(password)
			}
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return s.openSession(ctx, user)
}

func (s *authService) Logout(ctx context.Context, token string) error {
	return s.sessions.Destroy(ctx, token)
}

func (s *authService) openSession(ctx context.Context, user *domain.User) (*AuthResult, error) {
	token, err := s.sessions.Create(ctx, user.Identity())
	if err != nil {
		// user row is already persisted
		return nil, fmt.Errorf("create session for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: sanitizeUser(user), Token: token}, nil
}

func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	return &domain.User{
		ID:        user.ID,
		Username:  user.Username,
		Counter:   user.Counter,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}
