package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/justestif/daily-song/internal/db"
)

type userRow struct {
	ID           int64          `db:"id"`
	AccessToken  string         `db:"access_token"`
	ExpiresIn    int            `db:"expires_in"`
	ExpiresAt    sql.NullInt64  `db:"expires_at"`
	RefreshToken sql.NullString `db:"refresh_token"`
	CreatedAt    int64          `db:"created_at"`
	UpdatedAt    int64          `db:"updated_at"`
}

func (r userRow) user() *db.User {
	u := &db.User{
		ID:          r.ID,
		AccessToken: r.AccessToken,
		ExpiresIn:   r.ExpiresIn,
		CreatedAt:   time.Unix(0, r.CreatedAt),
		UpdatedAt:   time.Unix(0, r.UpdatedAt),
	}
	if r.ExpiresAt.Valid {
		t := time.Unix(0, r.ExpiresAt.Int64)
		u.ExpiresAt = &t
	}
	if r.RefreshToken.Valid {
		rt := r.RefreshToken.String
		u.RefreshToken = &rt
	}
	return u
}

func nullableTime(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

type userRepository struct {
	conn *sqlx.DB
	now  func() time.Time
}

func (r *userRepository) Create(ctx context.Context, user *db.User) error {
	query := `
		INSERT INTO users (access_token, expires_in, expires_at, refresh_token, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	now := r.now()
	result, err := r.conn.ExecContext(ctx, query,
		user.AccessToken,
		user.ExpiresIn,
		nullableTime(user.ExpiresAt),
		nullableString(user.RefreshToken),
		now.UnixNano(),
		now.UnixNano(),
	)
	if err != nil {
		return db.StorageError("inserting user", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return db.StorageError("reading user id", err)
	}
	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

func (r *userRepository) Get(ctx context.Context, id int64) (*db.User, error) {
	query := `
		SELECT id, access_token, expires_in, expires_at, refresh_token, created_at, updated_at
		FROM users
		WHERE id = ?
	`
	var row userRow
	err := r.conn.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, db.StorageError("querying user", err)
	}
	return row.user(), nil
}

func (r *userRepository) UpdateToken(ctx context.Context, user *db.User) error {
	query := `
		UPDATE users
		SET access_token = ?, expires_in = ?, expires_at = ?, refresh_token = ?, updated_at = ?
		WHERE id = ?
	`
	now := r.now()
	result, err := r.conn.ExecContext(ctx, query,
		user.AccessToken,
		user.ExpiresIn,
		nullableTime(user.ExpiresAt),
		nullableString(user.RefreshToken),
		now.UnixNano(),
		user.ID,
	)
	if err != nil {
		return db.StorageError("updating user token", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return db.StorageError("updating user token", err)
	}
	if n == 0 {
		return db.ErrNotFound
	}
	user.UpdatedAt = now
	return nil
}
