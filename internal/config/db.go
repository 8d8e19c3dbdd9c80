package config

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"

	"github.com/baechuer/member-portal/internal/logger"
)

// PostgresPool sizes the database/sql connection pool.
type PostgresPool struct {
	MaxOpen     int
	MaxIdle     int
	MaxIdleTime time.Duration
	MaxLifetime time.Duration
}

// DefaultPostgresPool suits a single API replica.
var DefaultPostgresPool = PostgresPool{
	MaxOpen:     20,
	MaxIdle:     10,
	MaxIdleTime: 5 * time.Minute,
	MaxLifetime: time.Hour,
}

const postgresPingTimeout = 3 * time.Second

var errEmptyDSN = errors.New("empty DB DSN")

// OpenPostgres opens a pgx-backed pool and fails fast when the server is
// unreachable. Zero pool fields fall back to DefaultPostgresPool.
func OpenPostgres(ctx context.Context, dsn string, pool PostgresPool, debug bool) (*sql.DB, error) {
	if dsn == "" {
		return nil, errEmptyDSN
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	pool.withDefaults().apply(db)

	pctx, cancel := context.WithTimeout(ctx, postgresPingTimeout)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if debug {
		logServerIdentity(pctx, db, logger.Component("postgres"))
	}
	return db, nil
}

func (p PostgresPool) withDefaults() PostgresPool {
	if p.MaxOpen <= 0 {
		p.MaxOpen = DefaultPostgresPool.MaxOpen
	}
	if p.MaxIdle <= 0 {
		p.MaxIdle = DefaultPostgresPool.MaxIdle
	}
	if p.MaxIdle > p.MaxOpen {
		p.MaxIdle = p.MaxOpen
	}
	if p.MaxIdleTime <= 0 {
		p.MaxIdleTime = DefaultPostgresPool.MaxIdleTime
	}
	if p.MaxLifetime <= 0 {
		p.MaxLifetime = DefaultPostgresPool.MaxLifetime
	}
	return p
}

func (p PostgresPool) apply(db *sql.DB) {
	db.SetMaxOpenConns(p.MaxOpen)
	db.SetMaxIdleConns(p.MaxIdle)
	db.SetConnMaxIdleTime(p.MaxIdleTime)
	db.SetConnMaxLifetime(p.MaxLifetime)
}

// logServerIdentity records who and where we connected to. No secrets.
func logServerIdentity(ctx context.Context, db *sql.DB, lg zerolog.Logger) {
	var user, database, version string
	err := db.QueryRowContext(ctx,
		"SELECT current_user, current_database(), current_setting('server_version')",
	).Scan(&user, &database, &version)
	if err != nil {
		lg.Warn().Err(err).Msg("postgres identity query failed")
		return
	}
	lg.Info().
		Str("user", user).
		Str("db", database).
		Str("version", version).
		Msg("postgres connected")
}
