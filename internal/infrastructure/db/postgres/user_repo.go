package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/baechuer/member-portal/internal/domain"
)

type UserRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db, now: time.Now}
}

func (r *UserRepo) queryOne(ctx context.Context, notFound func() *domain.Error, q string, args ...any) (domain.User, error) {
	ur, err := scanUser(r.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, notFound()
		}
		return domain.User{}, domain.ErrDBUnavailable(err)
	}
	return ur.toDomain(), nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return domain.User{}, domain.ErrMissingField("email")
	}
	return r.queryOne(ctx, domain.ErrUserNotFound,
		`SELECT `+userColumns+` FROM users WHERE email = $1 LIMIT 1`, email)
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (domain.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return r.queryOne(ctx, domain.ErrUserNotFound,
		`SELECT `+userColumns+` FROM users WHERE id = $1 LIMIT 1`, id)
}

func (r *UserRepo) GetByVerificationToken(ctx context.Context, token string) (domain.User, error) {
	if token == "" {
		return domain.User{}, domain.ErrVerifyTokenNotFound()
	}
	return r.queryOne(ctx, domain.ErrVerifyTokenNotFound,
		`SELECT `+userColumns+` FROM users WHERE verification_token = $1 LIMIT 1`, token)
}

func (r *UserRepo) GetByResetToken(ctx context.Context, token string, now time.Time) (domain.User, error) {
	if token == "" {
		return domain.User{}, domain.ErrResetTokenInvalid()
	}
	return r.queryOne(ctx, domain.ErrResetTokenInvalid,
		`SELECT `+userColumns+` FROM users WHERE password_reset_token = $1 AND password_reset_expires > $2 LIMIT 1`,
		token, now.UTC())
}

func (r *UserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	u.Email = domain.NormalizeEmail(u.Email)
	if u.Email == "" {
		return domain.User{}, domain.ErrMissingField("email")
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.VerificationStatus == "" {
		u.VerificationStatus = domain.StatusPending
	}
	if u.Timezone == "" {
		u.Timezone = domain.DefaultTimezone
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = r.now().UTC()
	}
	u.UpdatedAt = u.CreatedAt

	const q = `
INSERT INTO users (id, first_name, last_name, email, password_hash, phone, company, timezone,
    verification_status, email_verified, is_admin, verified_by, verified_at, verification_token,
    representative_id, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
RETURNING ` + userColumns

	ur, err := scanUser(r.db.QueryRowContext(ctx, q,
		u.ID, u.FirstName, u.LastName, u.Email, u.PasswordHash, u.Phone, u.Company, u.Timezone,
		string(u.VerificationStatus), u.EmailVerified, u.IsAdmin, u.VerifiedBy, nullTime(u.VerifiedAt),
		nullString(u.VerificationToken), nullString(u.Representative.ID()), u.CreatedAt, u.UpdatedAt,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.User{}, domain.ErrEmailAlreadyExists()
		}
		return domain.User{}, domain.ErrDBUnavailable(err)
	}
	return ur.toDomain(), nil
}

func (r *UserRepo) list(ctx context.Context, q string, args ...any) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, domain.ErrDBUnavailable(err)
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		ur, err := scanUser(rows)
		if err != nil {
			return nil, domain.ErrDBUnavailable(err)
		}
		out = append(out, ur.toDomain())
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrDBUnavailable(err)
	}
	return out, nil
}

func (r *UserRepo) List(ctx context.Context) ([]domain.User, error) {
	return r.list(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
}

func (r *UserRepo) ListByStatus(ctx context.Context, status domain.VerificationStatus) ([]domain.User, error) {
	return r.list(ctx, `SELECT `+userColumns+` FROM users WHERE verification_status = $1 ORDER BY created_at DESC`, string(status))
}

// Resolve only updates rows still pending; the WHERE clause is the guard
// against concurrent decisions.
func (r *UserRepo) Resolve(ctx context.Context, userID string, res domain.Resolution) (domain.User, error) {
	const q = `
UPDATE users
SET verification_status = $2,
    email_verified = $3,
    verified_by = $4,
    verified_at = $5,
    verification_token = NULL,
    representative_id = COALESCE($6, representative_id),
    updated_at = $7
WHERE id = $1 AND verification_status = 'pending'
RETURNING ` + userColumns

	u, err := r.queryOne(ctx, domain.ErrUserNotFound, q,
		userID, string(res.Status), res.EmailVerified, res.VerifiedBy, res.VerifiedAt.UTC(),
		nullString(res.Representative.ID()), r.now().UTC(),
	)
	if domain.Is(err, "user_not_found") {
		cur, gerr := r.GetByID(ctx, userID)
		if gerr != nil {
			return domain.User{}, gerr
		}
		return domain.User{}, domain.ErrAlreadyResolved(cur.VerificationStatus)
	}
	return u, err
}

func (r *UserRepo) SetRepresentative(ctx context.Context, userID string, ref domain.RepresentativeRef) (domain.User, error) {
	return r.queryOne(ctx, domain.ErrUserNotFound,
		`UPDATE users SET representative_id = $2, updated_at = $3 WHERE id = $1 RETURNING `+userColumns,
		userID, nullString(ref.ID()), r.now().UTC())
}

func optional(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func (r *UserRepo) UpdateProfile(ctx context.Context, userID string, patch domain.ProfilePatch) (domain.User, error) {
	const q = `
UPDATE users
SET first_name = COALESCE($2, first_name),
    last_name = COALESCE($3, last_name),
    phone = COALESCE($4, phone),
    timezone = COALESCE($5, timezone),
    updated_at = $6
WHERE id = $1
RETURNING ` + userColumns

	return r.queryOne(ctx, domain.ErrUserNotFound, q,
		userID, optional(patch.FirstName), optional(patch.LastName), optional(patch.Phone), optional(patch.Timezone),
		r.now().UTC())
}

func (r *UserRepo) exec(ctx context.Context, q string, args ...any) error {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrUserNotFound()
	}
	return nil
}

func (r *UserRepo) SetPasswordReset(ctx context.Context, userID, token string, expires time.Time) error {
	return r.exec(ctx,
		`UPDATE users SET password_reset_token = $2, password_reset_expires = $3, updated_at = $4 WHERE id = $1`,
		userID, token, expires.UTC(), r.now().UTC())
}

func (r *UserRepo) ClearPasswordReset(ctx context.Context, userID string) error {
	return r.exec(ctx,
		`UPDATE users SET password_reset_token = NULL, password_reset_expires = NULL, updated_at = $2 WHERE id = $1`,
		userID, r.now().UTC())
}

func (r *UserRepo) UpdatePassword(ctx context.Context, userID, hash string) error {
	if hash == "" {
		return domain.ErrMissingField("password_hash")
	}
	return r.exec(ctx, `
UPDATE users
SET password_hash = $2,
    password_reset_token = NULL,
    password_reset_expires = NULL,
    updated_at = $3
WHERE id = $1`, userID, hash, r.now().UTC())
}

func (r *UserRepo) UpdatePasswordHash(ctx context.Context, userID, hash string) error {
	if hash == "" {
		return domain.ErrMissingField("password_hash")
	}
	return r.exec(ctx,
		`UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`,
		userID, hash, r.now().UTC())
}

func (r *UserRepo) SetAdmin(ctx context.Context, email string, isAdmin bool) (domain.User, error) {
	return r.queryOne(ctx, domain.ErrUserNotFound,
		`UPDATE users SET is_admin = $2, updated_at = $3 WHERE email = $1 RETURNING `+userColumns,
		domain.NormalizeEmail(email), isAdmin, r.now().UTC())
}

func (r *UserRepo) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return domain.ErrDBUnavailable(err)
	}
	return nil
}
