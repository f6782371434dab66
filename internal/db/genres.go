package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/justestif/daily-song/internal/genre"
)

// GenreRepository handles user genre preference operations.
type GenreRepository struct {
	pool *pgxpool.Pool
}

// AddForUser appends one user_genres row per genre in a single transaction.
func (r *GenreRepository) AddForUser(ctx context.Context, userID int64, genres []genre.Genre) error {
	if len(genres) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return StorageError("beginning transaction", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO user_genres (user_id, genre_id)
		SELECT $1, id FROM genres WHERE name = $2
	`
	for _, g := range genres {
		if !g.Valid() {
			return fmt.Errorf("%w: %d", genre.ErrUnknown, int(g))
		}
		tag, err := tx.Exec(ctx, query, userID, g.String())
		if err != nil {
			return StorageError("inserting user genre", err)
		}
		if tag.RowsAffected() == 0 {
			return StorageError("inserting user genre", fmt.Errorf("genre %q missing from lookup table", g))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return StorageError("committing transaction", err)
	}
	return nil
}

// ListForUser returns the user's genres in insertion order.
func (r *GenreRepository) ListForUser(ctx context.Context, userID int64) ([]genre.Genre, error) {
	query := `
		SELECT g.name
		FROM user_genres ug
		JOIN genres g ON g.id = ug.genre_id
		WHERE ug.user_id = $1
		ORDER BY ug.id
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, StorageError("querying user genres", err)
	}
	defer rows.Close()

	var genres []genre.Genre
	for rows.Next() {
		var g genre.Genre
		if err := rows.Scan(&g); err != nil {
			return nil, StorageError("scanning user genre", err)
		}
		genres = append(genres, g)
	}
	if err := rows.Err(); err != nil {
		return nil, StorageError("iterating user genres", err)
	}
	return genres, nil
}
