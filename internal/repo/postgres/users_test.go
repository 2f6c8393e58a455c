package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/geocoder89/ledgerauth/internal/domain/user"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUsersRepoWithMock(t *testing.T) (*UsersRepo, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	return NewUsersRepo(mock, nil), mock
}

func TestUsersRepo_CountByName(t *testing.T) {
	repo, mock := newUsersRepoWithMock(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users WHERE name = \$1`).
		WithArgs("alice").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))

	n, err := repo.CountByName(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUsersRepo_GetByName(t *testing.T) {
	repo, mock := newUsersRepoWithMock(t)
	now := time.Now().UTC()
	id := uuid.NewString()

	mock.ExpectQuery(`SELECT id, name, password_hash, type, organization, created_at\s+FROM users\s+WHERE name = \$1`).
		WithArgs("alice").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "password_hash", "type", "organization", "created_at"}).
			AddRow(id, "alice", "$2a$12$hash", "T", "O1", now))

	u, err := repo.GetByName(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.Equal(t, "alice", u.Name)
	assert.Equal(t, "O1", u.Organization)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUsersRepo_GetByName_NotFound(t *testing.T) {
	repo, mock := newUsersRepoWithMock(t)

	mock.ExpectQuery(`FROM users\s+WHERE name = \$1`).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByName(context.Background(), "ghost")
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestUsersRepo_GetByID_RejectsMalformedID(t *testing.T) {
	repo, mock := newUsersRepoWithMock(t)

	_, err := repo.GetByID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, user.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet(), "no query for malformed ids")
}

func TestUsersRepo_Create(t *testing.T) {
	repo, mock := newUsersRepoWithMock(t)

	mock.ExpectExec(`INSERT INTO users \(id, name, password_hash, type, organization, created_at\)`).
		WithArgs(pgxmock.AnyArg(), "alice", "hash", "T", "O1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	u, err := repo.Create(context.Background(), user.CreateRequest{
		Name: "alice", PasswordHash: "hash", Type: "T", Organization: "O1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "alice", u.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUsersRepo_Create_UniqueViolation(t *testing.T) {
	repo, mock := newUsersRepoWithMock(t)

	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_name_key"})

	_, err := repo.Create(context.Background(), user.CreateRequest{Name: "alice"})
	assert.ErrorIs(t, err, user.ErrNameTaken)
}

func TestUsersRepo_Create_OtherErrorPassesThrough(t *testing.T) {
	repo, mock := newUsersRepoWithMock(t)
	boom := errors.New("connection reset")

	mock.ExpectExec(`INSERT INTO users`).WillReturnError(boom)

	_, err := repo.Create(context.Background(), user.CreateRequest{Name: "alice"})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, user.ErrNameTaken)
}
