package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const songColumns = `id, user_id, title, artist, link, description, overview, genre, album_cover, created_at`

// SongRepository handles song database operations.
type SongRepository struct {
	pool     *pgxpool.Pool
	location *time.Location
	now      func() time.Time
}

// Create inserts song and fills in its ID and CreatedAt.
func (r *SongRepository) Create(ctx context.Context, song *Song) error {
	if err := ValidateSong(song); err != nil {
		return err
	}

	query := `
		INSERT INTO songs (user_id, title, artist, link, description, overview, genre, album_cover, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	now := r.now()
	err := r.pool.QueryRow(ctx, query,
		song.UserID,
		song.Title,
		song.Artist,
		song.Link,
		song.Description,
		song.Summary,
		song.Genre.String(),
		song.AlbumCover,
		now,
	).Scan(&song.ID)
	if err != nil {
		return StorageError("inserting song", err)
	}
	song.CreatedAt = now.In(r.location)
	return nil
}

// ListForDay returns every song created on day, oldest first.
func (r *SongRepository) ListForDay(ctx context.Context, day time.Time) ([]Song, error) {
	start, end := DayBounds(day, r.location)
	query := `
		SELECT ` + songColumns + `
		FROM songs
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at, id
	`
	return r.collect(ctx, "querying songs for day", query, start, end)
}

// ListForUserAndDay returns the user's songs created on day, oldest first.
func (r *SongRepository) ListForUserAndDay(ctx context.Context, userID int64, day time.Time) ([]Song, error) {
	start, end := DayBounds(day, r.location)
	query := `
		SELECT ` + songColumns + `
		FROM songs
		WHERE user_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at, id
	`
	return r.collect(ctx, "querying user songs for day", query, userID, start, end)
}

// StreamForUser iterates the user's history row by row.
func (r *SongRepository) StreamForUser(ctx context.Context, userID int64, fn func(Song) error) error {
	query := `
		SELECT ` + songColumns + `
		FROM songs
		WHERE user_id = $1
		ORDER BY created_at, id
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return StorageError("querying user songs", err)
	}
	defer rows.Close()

	for rows.Next() {
		song, err := r.scan(rows)
		if err != nil {
			return err
		}
		if err := fn(song); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return StorageError("iterating user songs", err)
	}
	return nil
}

func (r *SongRepository) collect(ctx context.Context, op, query string, args ...any) ([]Song, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, StorageError(op, err)
	}
	defer rows.Close()

	songs := []Song{}
	for rows.Next() {
		song, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		songs = append(songs, song)
	}
	if err := rows.Err(); err != nil {
		return nil, StorageError(op, err)
	}
	return songs, nil
}

func (r *SongRepository) scan(rows pgx.Rows) (Song, error) {
	var song Song
	if err := rows.Scan(
		&song.ID,
		&song.UserID,
		&song.Title,
		&song.Artist,
		&song.Link,
		&song.Description,
		&song.Summary,
		&song.Genre,
		&song.AlbumCover,
		&song.CreatedAt,
	); err != nil {
		return Song{}, StorageError("scanning song", err)
	}
	song.CreatedAt = song.CreatedAt.In(r.location)
	return song, nil
}
