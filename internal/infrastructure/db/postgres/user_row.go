package postgres

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/baechuer/member-portal/internal/domain"
)

const userColumns = `id, first_name, last_name, email, password_hash, phone, company, timezone,
verification_status, email_verified, is_admin, verified_by, verified_at, verification_token,
representative_id, password_reset_token, password_reset_expires, created_at, updated_at`

type userRow struct {
	ID                   string
	FirstName            string
	LastName             string
	Email                string
	PasswordHash         string
	Phone                string
	Company              string
	Timezone             string
	VerificationStatus   string
	EmailVerified        bool
	IsAdmin              bool
	VerifiedBy           string
	VerifiedAt           sql.NullTime
	VerificationToken    sql.NullString
	RepresentativeID     sql.NullString
	PasswordResetToken   sql.NullString
	PasswordResetExpires sql.NullTime
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (userRow, error) {
	var ur userRow
	err := s.Scan(
		&ur.ID, &ur.FirstName, &ur.LastName, &ur.Email, &ur.PasswordHash, &ur.Phone, &ur.Company, &ur.Timezone,
		&ur.VerificationStatus, &ur.EmailVerified, &ur.IsAdmin, &ur.VerifiedBy, &ur.VerifiedAt, &ur.VerificationToken,
		&ur.RepresentativeID, &ur.PasswordResetToken, &ur.PasswordResetExpires, &ur.CreatedAt, &ur.UpdatedAt,
	)
	return ur, err
}

func (ur userRow) toDomain() domain.User {
	u := domain.User{
		ID:                 ur.ID,
		FirstName:          ur.FirstName,
		LastName:           ur.LastName,
		Email:              ur.Email,
		PasswordHash:       ur.PasswordHash,
		Phone:              ur.Phone,
		Company:            ur.Company,
		Timezone:           ur.Timezone,
		VerificationStatus: domain.VerificationStatus(ur.VerificationStatus),
		EmailVerified:      ur.EmailVerified,
		IsAdmin:            ur.IsAdmin,
		VerifiedBy:         ur.VerifiedBy,
		VerificationToken:  ur.VerificationToken.String,
		PasswordResetToken: ur.PasswordResetToken.String,
		CreatedAt:          ur.CreatedAt,
		UpdatedAt:          ur.UpdatedAt,
	}
	if ur.VerifiedAt.Valid {
		t := ur.VerifiedAt.Time
		u.VerifiedAt = &t
	}
	if ur.PasswordResetExpires.Valid {
		t := ur.PasswordResetExpires.Time
		u.PasswordResetExpires = &t
	}
	if ur.RepresentativeID.Valid {
		u.Representative = domain.RestoreRepresentativeRef(ur.RepresentativeID.String)
	}
	return u
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// isUniqueViolation reports a postgres 23505 error.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
