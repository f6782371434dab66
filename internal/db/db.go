// Package db provides PostgreSQL database access for generated songs, users
// and genre preferences.
package db

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema string

// DB wraps a PostgreSQL connection pool.
type DB struct {
	pool     *pgxpool.Pool
	location *time.Location
	now      func() time.Time
}

// Option configures a DB.
type Option func(*DB)

// WithLocation sets the location used for calendar-day queries.
func WithLocation(loc *time.Location) Option {
	return func(db *DB) { db.location = loc }
}

// WithClock overrides the clock used for created_at and updated_at.
func WithClock(now func() time.Time) Option {
	return func(db *DB) { db.now = now }
}

// New creates a new database connection pool.
func New(ctx context.Context, databaseURL string, opts ...Option) (*DB, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	db := &DB{pool: pool, location: time.Local, now: time.Now}
	for _, opt := range opts {
		opt(db)
	}
	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() {
	db.pool.Close()
}

// Ping checks connectivity.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.pool.Ping(ctx); err != nil {
		return StorageError("pinging database", err)
	}
	return nil
}

// Migrate applies the embedded schema. It is safe to run repeatedly.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return StorageError("applying schema", err)
	}
	return nil
}

// Users returns a UserRepository.
func (db *DB) Users() UserStore {
	return &UserRepository{pool: db.pool, now: db.now}
}

// Genres returns a GenreRepository.
func (db *DB) Genres() GenreStore {
	return &GenreRepository{pool: db.pool}
}

// Songs returns a SongRepository.
func (db *DB) Songs() SongStore {
	return &SongRepository{pool: db.pool, location: db.location, now: db.now}
}

var _ Store = (*DB)(nil)
