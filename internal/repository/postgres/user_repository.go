package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"tally/internal/domain"
	"tally/internal/repository"
)

const uniqueViolation = "23505"

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	counter BIGINT NOT NULL DEFAULT 1 CHECK (counter >= 1),
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`

// pgExecutor is the subset of pgxpool.Pool used by the repository.
type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	db pgExecutor
}

// NewUserRepository wires a PostgreSQL-backed user repository.
func NewUserRepository(db pgExecutor) repository.UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Init(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, createUsersTable); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	return nil
}

func (r *UserRepository) Ping(ctx context.Context) error {
	if err := r.db.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (string, error) {
	now := time.Now().UTC()
	id := uuid.NewString()

	_, err := r.db.Exec(ctx, `
INSERT INTO users (id, username, password_hash, counter, created_at, updated_at)
VALUES ($1, $2, $3, 1, $4, $5)`,
		id,
		user.Username,
		user.PasswordHash,
		now,
		now,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return "", repository.ErrDuplicateUsername
		}
		return "", fmt.Errorf("insert user: %w", err)
	}

	user.ID = id
	user.Counter = 1
	user.CreatedAt = now
	user.UpdatedAt = now
	return id, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	row := r.db.QueryRow(ctx, `
SELECT id, username, password_hash, counter, created_at, updated_at
FROM users
WHERE username = $1`,
		username,
	)
	return scanUser(row)
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRow(ctx, `
SELECT id, username, password_hash, counter, created_at, updated_at
FROM users
WHERE id = $1`,
		id,
	)
	return scanUser(row)
}

func (r *UserRepository) IncrementCounter(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `
UPDATE users
SET counter = counter + 1, updated_at = $2
WHERE id = $1`,
		id,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("increment counter: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.Counter,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &user, nil
}
