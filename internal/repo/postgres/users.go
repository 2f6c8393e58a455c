package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/ledgerauth/internal/domain/user"
	"github.com/geocoder89/ledgerauth/internal/observability"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type UsersRepo struct {
	db   DBTX
	prom *observability.Prom
}

func NewUsersRepo(db DBTX, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{db: db, prom: prom}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

// CountByName returns how many rows carry name. The users_name_key constraint
// keeps this at 0 or 1.
func (r *UsersRepo) CountByName(ctx context.Context, name string) (int, error) {
	var n int
	err := r.observe("users.count_by_name", func() error {
		return r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE name = $1`, name).Scan(&n)
	})
	return n, err
}

func (r *UsersRepo) GetByName(ctx context.Context, name string) (user.User, error) {
	return r.getOne(ctx, "users.get_by_name",
		`SELECT id, name, password_hash, type, organization, created_at
		 FROM users
		 WHERE name = $1`, name)
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return user.User{}, user.ErrNotFound
	}

	return r.getOne(ctx, "users.get_by_id",
		`SELECT id, name, password_hash, type, organization, created_at
		 FROM users
		 WHERE id = $1`, id)
}

func (r *UsersRepo) getOne(ctx context.Context, op, q string, arg any) (user.User, error) {
	var u user.User

	err := r.observe(op, func() error {
		return r.db.QueryRow(ctx, q, arg).Scan(
			&u.ID,
			&u.Name,
			&u.PasswordHash,
			&u.Type,
			&u.Organization,
			&u.CreatedAt,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}
	return u, nil
}

// Create inserts a new user. A concurrent insert of the same name loses on the
// users_name_key constraint and surfaces as user.ErrNameTaken.
func (r *UsersRepo) Create(ctx context.Context, req user.CreateRequest) (user.User, error) {
	u := user.User{
		ID:           uuid.NewString(),
		Name:         req.Name,
		PasswordHash: req.PasswordHash,
		Type:         req.Type,
		Organization: req.Organization,
		CreatedAt:    time.Now().UTC(),
	}

	err := r.observe("users.create", func() error {
		_, e := r.db.Exec(ctx,
			`INSERT INTO users (id, name, password_hash, type, organization, created_at)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			u.ID, u.Name, u.PasswordHash, u.Type, u.Organization, u.CreatedAt,
		)
		return e
	})

	if err != nil {
		if IsUniqueViolation(err) {
			return user.User{}, user.ErrNameTaken
		}
		return user.User{}, err
	}

	return u, nil
}
