package sqlite

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/justestif/daily-song/internal/db"
	"github.com/justestif/daily-song/internal/genre"
)

const songColumns = `id, user_id, title, artist, link, description, overview, genre, album_cover, created_at`

type songRow struct {
	ID          int64       `db:"id"`
	UserID      int64       `db:"user_id"`
	Title       string      `db:"title"`
	Artist      string      `db:"artist"`
	Link        string      `db:"link"`
	Description string      `db:"description"`
	Overview    string      `db:"overview"`
	Genre       genre.Genre `db:"genre"`
	AlbumCover  string      `db:"album_cover"`
	CreatedAt   int64       `db:"created_at"`
}

func (r songRow) song(loc *time.Location) db.Song {
	return db.Song{
		ID:          r.ID,
		UserID:      r.UserID,
		Title:       r.Title,
		Artist:      r.Artist,
		Link:        r.Link,
		Genre:       r.Genre,
		Description: r.Description,
		Summary:     r.Overview,
		AlbumCover:  r.AlbumCover,
		CreatedAt:   time.Unix(0, r.CreatedAt).In(loc),
	}
}

type songRepository struct {
	conn     *sqlx.DB
	location *time.Location
	now      func() time.Time
}

func (r *songRepository) Create(ctx context.Context, song *db.Song) error {
	if err := db.ValidateSong(song); err != nil {
		return err
	}

	query := `
		INSERT INTO songs (user_id, title, artist, link, description, overview, genre, album_cover, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := r.now()
	result, err := r.conn.ExecContext(ctx, query,
		song.UserID,
		song.Title,
		song.Artist,
		song.Link,
		song.Description,
		song.Summary,
		song.Genre.String(),
		song.AlbumCover,
		now.UnixNano(),
	)
	if err != nil {
		return db.StorageError("inserting song", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return db.StorageError("reading song id", err)
	}
	song.ID = id
	song.CreatedAt = now.In(r.location)
	return nil
}

func (r *songRepository) ListForDay(ctx context.Context, day time.Time) ([]db.Song, error) {
	start, end := db.DayBounds(day, r.location)
	query := `
		SELECT ` + songColumns + `
		FROM songs
		WHERE created_at >= ? AND created_at < ?
		ORDER BY created_at, id
	`
	return r.collect(ctx, "querying songs for day", query, start.UnixNano(), end.UnixNano())
}

func (r *songRepository) ListForUserAndDay(ctx context.Context, userID int64, day time.Time) ([]db.Song, error) {
	start, end := db.DayBounds(day, r.location)
	query := `
		SELECT ` + songColumns + `
		FROM songs
		WHERE user_id = ? AND created_at >= ? AND created_at < ?
		ORDER BY created_at, id
	`
	return r.collect(ctx, "querying user songs for day", query, userID, start.UnixNano(), end.UnixNano())
}

func (r *songRepository) StreamForUser(ctx context.Context, userID int64, fn func(db.Song) error) error {
	query := `
		SELECT ` + songColumns + `
		FROM songs
		WHERE user_id = ?
		ORDER BY created_at, id
	`
	rows, err := r.conn.QueryxContext(ctx, query, userID)
	if err != nil {
		return db.StorageError("querying user songs", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row songRow
		if err := rows.StructScan(&row); err != nil {
			return db.StorageError("scanning song", err)
		}
		if err := fn(row.song(r.location)); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return db.StorageError("iterating user songs", err)
	}
	return nil
}

func (r *songRepository) collect(ctx context.Context, op, query string, args ...any) ([]db.Song, error) {
	var rows []songRow
	if err := r.conn.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, db.StorageError(op, err)
	}
	songs := make([]db.Song, 0, len(rows))
	for _, row := range rows {
		songs = append(songs, row.song(r.location))
	}
	return songs, nil
}
