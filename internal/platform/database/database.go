// Package database opens the PostgreSQL pool that stores stage progress and
// notification history, and applies the embedded schema.
package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrEmptyURL = errors.New("database URL is empty")

// DB wraps a pgx connection pool.
type DB struct {
	Pool *pgxpool.Pool
}

type poolSettings struct {
	maxConns, minConns int32
	maxLifetime        time.Duration
	maxIdle            time.Duration
}

// Option tunes the pool before it connects.
type Option func(*poolSettings)

// WithPoolSize bounds the pool. Non-positive max keeps the driver default.
func WithPoolSize(maxConns, minConns int) Option {
	return func(s *poolSettings) {
		if maxConns > 0 {
			s.maxConns = int32(maxConns)
		}
		if minConns >= 0 {
			s.minConns = int32(minConns)
		}
	}
}

// WithConnLifetime caps how long a connection lives and idles.
func WithConnLifetime(lifetime, idle time.Duration) Option {
	return func(s *poolSettings) {
		s.maxLifetime = lifetime
		s.maxIdle = idle
	}
}

// ParseURL validates a PostgreSQL connection URL.
func ParseURL(url string) (*pgxpool.Config, error) {
	if url == "" {
		return nil, ErrEmptyURL
	}
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("invalid database URL: %w", err)
	}
	return cfg, nil
}

// New connects and pings. The pool is closed again if the ping fails.
func New(ctx context.Context, url string, opts ...Option) (*DB, error) {
	cfg, err := ParseURL(url)
	if err != nil {
		return nil, err
	}

	s := poolSettings{
		maxConns:    cfg.MaxConns,
		minConns:    cfg.MinConns,
		maxLifetime: 30 * time.Minute,
		maxIdle:     5 * time.Minute,
	}
	for _, o := range opts {
		o(&s)
	}
	cfg.MaxConns = s.maxConns
	cfg.MinConns = min(s.minConns, s.maxConns)
	cfg.MaxConnLifetime = s.maxLifetime
	cfg.MaxConnIdleTime = s.maxIdle

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

func (db *DB) Close() {
	db.Pool.Close()
}

// HealthCheck pings the pool; it is registered with /readyz.
func (db *DB) HealthCheck(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

//go:embed migrations/*.sql
var migrations embed.FS

// Migrations lists the embedded schema files in the order Migrate applies them.
func Migrations() ([]string, error) {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return nil, fmt.Errorf("listing migrations: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// Migrate applies the embedded schema files in name order. Every statement
// is idempotent, so Migrate is safe to run on each startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	names, err := Migrations()
	if err != nil {
		return err
	}

	for _, name := range names {
		ddl, err := migrations.ReadFile(name)
		if err != nil {
			return fmt.Errorf("reading %s: %w", name, err)
		}
		if _, err := pool.Exec(ctx, string(ddl)); err != nil {
			return fmt.Errorf("applying %s: %w", path.Base(name), err)
		}
		slog.Debug("migration applied", "file", path.Base(name))
	}
	return nil
}
