package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/ledgerauth/internal/domain/record"
	"github.com/geocoder89/ledgerauth/internal/observability"
	"github.com/jackc/pgx/v5"
)

type RecordsRepo struct {
	db   DBTX
	prom *observability.Prom
}

func NewRecordsRepo(db DBTX, prom *observability.Prom) *RecordsRepo {
	return &RecordsRepo{db: db, prom: prom}
}

func (r *RecordsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *RecordsRepo) Insert(ctx context.Context, name, data string) (record.Record, error) {
	rec := record.Record{Name: name, Data: data}

	err := r.observe("record.insert", func() error {
		return r.db.QueryRow(ctx,
			`INSERT INTO record (name, data)
			VALUES ($1, $2)
			RETURNING id, created_at`,
			name, data,
		).Scan(&rec.ID, &rec.CreatedAt)
	})
	if err != nil {
		return record.Record{}, err
	}

	return rec, nil
}

// Latest returns the most recent record written under name.
func (r *RecordsRepo) Latest(ctx context.Context, name string) (record.Record, error) {
	var rec record.Record

	err := r.observe("record.latest", func() error {
		return r.db.QueryRow(ctx,
			`SELECT id, name, data, created_at
			FROM record
			WHERE name = $1
			ORDER BY created_at DESC, id DESC
			LIMIT 1`,
			name,
		).Scan(&rec.ID, &rec.Name, &rec.Data, &rec.CreatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return record.Record{}, record.ErrNotFound
		}
		return record.Record{}, err
	}

	return rec, nil
}
