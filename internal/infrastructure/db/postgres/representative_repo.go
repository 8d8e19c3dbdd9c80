package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/baechuer/member-portal/internal/domain"
)

const representativeColumns = `id, name, phone, email, is_active, created_at, updated_at`

type RepresentativeRepo struct {
	db *sql.DB
}

func NewRepresentativeRepo(db *sql.DB) *RepresentativeRepo {
	return &RepresentativeRepo{db: db}
}

func scanRepresentative(s scanner) (domain.Representative, error) {
	var rep domain.Representative
	err := s.Scan(&rep.ID, &rep.Name, &rep.Phone, &rep.Email, &rep.IsActive, &rep.CreatedAt, &rep.UpdatedAt)
	return rep, err
}

func (r *RepresentativeRepo) GetByID(ctx context.Context, id string) (domain.Representative, error) {
	rep, err := scanRepresentative(r.db.QueryRowContext(ctx,
		`SELECT `+representativeColumns+` FROM representatives WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Representative{}, domain.ErrRepresentativeNotFound()
		}
		return domain.Representative{}, domain.ErrDBUnavailable(err)
	}
	return rep, nil
}

func (r *RepresentativeRepo) list(ctx context.Context, q string, args ...any) ([]domain.Representative, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, domain.ErrDBUnavailable(err)
	}
	defer rows.Close()

	var out []domain.Representative
	for rows.Next() {
		rep, err := scanRepresentative(rows)
		if err != nil {
			return nil, domain.ErrDBUnavailable(err)
		}
		out = append(out, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrDBUnavailable(err)
	}
	return out, nil
}

func (r *RepresentativeRepo) ListActive(ctx context.Context) ([]domain.Representative, error) {
	return r.list(ctx, `SELECT `+representativeColumns+` FROM representatives WHERE is_active ORDER BY name`)
}

func (r *RepresentativeRepo) ListByIDs(ctx context.Context, ids []string) ([]domain.Representative, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.list(ctx, `SELECT `+representativeColumns+` FROM representatives WHERE id = ANY($1) ORDER BY name`, ids)
}

func (r *RepresentativeRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM representatives`).Scan(&n); err != nil {
		return 0, domain.ErrDBUnavailable(err)
	}
	return n, nil
}

// InsertMany writes the whole roster in one transaction.
func (r *RepresentativeRepo) InsertMany(ctx context.Context, reps []domain.Representative) ([]domain.Representative, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, domain.ErrDBUnavailable(err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	const q = `
INSERT INTO representatives (id, name, phone, email, is_active, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)`

	out := make([]domain.Representative, 0, len(reps))
	for _, rep := range reps {
		if rep.ID == "" {
			rep.ID = uuid.NewString()
		}
		rep.Email = domain.NormalizeEmail(rep.Email)
		if _, err := tx.ExecContext(ctx, q, rep.ID, rep.Name, rep.Phone, rep.Email, rep.IsActive, rep.CreatedAt, rep.UpdatedAt); err != nil {
			_ = tx.Rollback()
			if isUniqueViolation(err) {
				return nil, domain.New(domain.KindConflict, "representative_exists", "representative email already exists")
			}
			return nil, domain.ErrDBUnavailable(err)
		}
		out = append(out, rep)
	}
	if err := tx.Commit(); err != nil {
		return nil, domain.ErrDBUnavailable(fmt.Errorf("commit tx: %w", err))
	}
	return out, nil
}
