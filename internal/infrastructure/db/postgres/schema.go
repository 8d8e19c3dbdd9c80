package postgres

import (
	"context"
	"database/sql"
)

const schema = `
CREATE TABLE IF NOT EXISTS representatives (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    phone      TEXT NOT NULL DEFAULT '',
    email      TEXT NOT NULL UNIQUE,
    is_active  BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS users (
    id                     TEXT PRIMARY KEY,
    first_name             TEXT NOT NULL,
    last_name              TEXT NOT NULL,
    email                  TEXT NOT NULL UNIQUE,
    password_hash          TEXT NOT NULL,
    phone                  TEXT NOT NULL DEFAULT '',
    company                TEXT NOT NULL DEFAULT '',
    timezone               TEXT NOT NULL DEFAULT 'America/New_York',
    verification_status    TEXT NOT NULL DEFAULT 'pending',
    email_verified         BOOLEAN NOT NULL DEFAULT FALSE,
    is_admin               BOOLEAN NOT NULL DEFAULT FALSE,
    verified_by            TEXT NOT NULL DEFAULT '',
    verified_at            TIMESTAMPTZ NULL,
    verification_token     TEXT NULL,
    representative_id      TEXT NULL,
    password_reset_token   TEXT NULL,
    password_reset_expires TIMESTAMPTZ NULL,
    created_at             TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at             TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS users_status_created_idx ON users (verification_status, created_at DESC);
CREATE UNIQUE INDEX IF NOT EXISTS users_verification_token_idx ON users (verification_token) WHERE verification_token IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS users_reset_token_idx ON users (password_reset_token) WHERE password_reset_token IS NOT NULL;
`

// EnsureSchema creates the tables if they do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}
