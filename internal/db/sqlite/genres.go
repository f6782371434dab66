package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/justestif/daily-song/internal/db"
	"github.com/justestif/daily-song/internal/genre"
)

type genreRepository struct {
	conn *sqlx.DB
}

func (r *genreRepository) AddForUser(ctx context.Context, userID int64, genres []genre.Genre) error {
	if len(genres) == 0 {
		return nil
	}

	tx, err := r.conn.BeginTxx(ctx, nil)
	if err != nil {
		return db.StorageError("beginning transaction", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO user_genres (user_id, genre_id)
		SELECT ?, id FROM genres WHERE name = ?
	`
	for _, g := range genres {
		if !g.Valid() {
			return fmt.Errorf("%w: %d", genre.ErrUnknown, int(g))
		}
		result, err := tx.ExecContext(ctx, query, userID, g.String())
		if err != nil {
			return db.StorageError("inserting user genre", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return db.StorageError("inserting user genre", fmt.Errorf("genre %q missing from lookup table", g))
		}
	}

	if err := tx.Commit(); err != nil {
		return db.StorageError("committing transaction", err)
	}
	return nil
}

func (r *genreRepository) ListForUser(ctx context.Context, userID int64) ([]genre.Genre, error) {
	query := `
		SELECT g.name
		FROM user_genres ug
		JOIN genres g ON g.id = ug.genre_id
		WHERE ug.user_id = ?
		ORDER BY ug.id
	`
	var genres []genre.Genre
	if err := r.conn.SelectContext(ctx, &genres, query, userID); err != nil {
		return nil, db.StorageError("querying user genres", err)
	}
	return genres, nil
}
