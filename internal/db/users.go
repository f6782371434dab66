package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository handles user database operations.
type UserRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// Create inserts a new user and fills in its ID and timestamps.
func (r *UserRepository) Create(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (access_token, expires_in, expires_at, refresh_token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING id
	`
	now := r.now()
	err := r.pool.QueryRow(ctx, query,
		user.AccessToken,
		user.ExpiresIn,
		user.ExpiresAt,
		user.RefreshToken,
		now,
	).Scan(&user.ID)
	if err != nil {
		return StorageError("inserting user", err)
	}
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

// Get retrieves a user by ID.
func (r *UserRepository) Get(ctx context.Context, id int64) (*User, error) {
	query := `
		SELECT id, access_token, expires_in, expires_at, refresh_token, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	var user User
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.AccessToken,
		&user.ExpiresIn,
		&user.ExpiresAt,
		&user.RefreshToken,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, StorageError("querying user", err)
	}
	return &user, nil
}

// UpdateToken replaces the stored token fields of user.ID.
func (r *UserRepository) UpdateToken(ctx context.Context, user *User) error {
	query := `
		UPDATE users
		SET access_token = $2, expires_in = $3, expires_at = $4, refresh_token = $5, updated_at = $6
		WHERE id = $1
	`
	now := r.now()
	result, err := r.pool.Exec(ctx, query,
		user.ID,
		user.AccessToken,
		user.ExpiresIn,
		user.ExpiresAt,
		user.RefreshToken,
		now,
	)
	if err != nil {
		return StorageError("updating user token", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	user.UpdatedAt = now
	return nil
}
