package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tally/internal/domain"
	"tally/internal/repository"
)

func newMockRepository(t *testing.T) (repository.UserRepository, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return NewUserRepository(mock), mock
}

var userColumns = []string{"id", "username", "password_hash", "counter", "created_at", "updated_at"}

func TestUserRepository_Init(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS users`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	require.NoError(t, repo.Init(context.Background()))
}

func TestUserRepository_Create(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs(pgxmock.AnyArg(), "alice", "hash", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	user := &domain.User{Username: "alice", PasswordHash: "hash"}
	id, err := repo.Create(context.Background(), user)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, user.ID)
	assert.EqualValues(t, 1, user.Counter)
}

func TestUserRepository_CreateDuplicate(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs(pgxmock.AnyArg(), "alice", "hash", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"})

	_, err := repo.Create(context.Background(), &domain.User{Username: "alice", PasswordHash: "hash"})
	require.ErrorIs(t, err, repository.ErrDuplicateUsername)
}

func TestUserRepository_CreateDBError(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs(pgxmock.AnyArg(), "alice", "hash", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))

	_, err := repo.Create(context.Background(), &domain.User{Username: "alice", PasswordHash: "hash"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, repository.ErrDuplicateUsername)
	assert.Contains(t, err.Error(), "insert user")
}

func TestUserRepository_GetByUsername(t *testing.T) {
	repo, mock := newMockRepository(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT .*FROM users\s+WHERE username = \$1`).
		WithArgs("alice").
		WillReturnRows(pgxmock.NewRows(userColumns).AddRow("u-1", "alice", "hash", int64(4), now, now))

	user, err := repo.GetByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "u-1", user.ID)
	assert.EqualValues(t, 4, user.Counter)
}

func TestUserRepository_GetByIDMissing(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(`SELECT .*FROM users\s+WHERE id = \$1`).
		WithArgs("u-404").
		WillReturnRows(pgxmock.NewRows(userColumns))

	_, err := repo.GetByID(context.Background(), "u-404")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUserRepository_IncrementCounter(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(`UPDATE users\s+SET counter = counter \+ 1`).
		WithArgs("u-1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.IncrementCounter(context.Background(), "u-1"))
}

func TestUserRepository_IncrementCounterMissing(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(`UPDATE users\s+SET counter = counter \+ 1`).
		WithArgs("u-404", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.IncrementCounter(context.Background(), "u-404")
	require.ErrorIs(t, err, repository.ErrNotFound)
}
