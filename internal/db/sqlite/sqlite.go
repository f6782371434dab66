// Package sqlite implements the db.Store contract on SQLite for local
// development and single-node deployments.
package sqlite

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/justestif/daily-song/internal/db"
)

//go:embed schema.sql
var schema string

// DB wraps a SQLite handle.
type DB struct {
	conn     *sqlx.DB
	location *time.Location
	now      func() time.Time
}

// Option configures a DB.
type Option func(*DB)

// WithLocation sets the location used for calendar-day queries.
func WithLocation(loc *time.Location) Option {
	return func(d *DB) { d.location = loc }
}

// WithClock overrides the clock used for created_at and updated_at.
func WithClock(now func() time.Time) Option {
	return func(d *DB) { d.now = now }
}

// Open connects to the database file at path. ":memory:" opens a private
// in-memory database.
func Open(ctx context.Context, path string, opts ...Option) (*DB, error) {
	dsn := path
	if strings.Contains(dsn, "?") {
		dsn += "&_foreign_keys=on"
	} else {
		dsn += "?_foreign_keys=on"
	}

	conn, err := sqlx.ConnectContext(ctx, "sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	// Every connection to :memory: is a separate database, and SQLite
	// serializes writers anyway.
	conn.SetMaxOpenConns(1)

	d := &DB{conn: conn, location: time.Local, now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Close releases the handle.
func (d *DB) Close() {
	_ = d.conn.Close()
}

// Ping checks connectivity.
func (d *DB) Ping(ctx context.Context) error {
	if err := d.conn.PingContext(ctx); err != nil {
		return db.StorageError("pinging database", err)
	}
	return nil
}

// Migrate applies the embedded schema. It is safe to run repeatedly.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.conn.ExecContext(ctx, schema); err != nil {
		return db.StorageError("applying schema", err)
	}
	return nil
}

func (d *DB) Users() db.UserStore {
	return &userRepository{conn: d.conn, now: d.now}
}

func (d *DB) Genres() db.GenreStore {
	return &genreRepository{conn: d.conn}
}

func (d *DB) Songs() db.SongStore {
	return &songRepository{conn: d.conn, location: d.location, now: d.now}
}

var _ db.Store = (*DB)(nil)
