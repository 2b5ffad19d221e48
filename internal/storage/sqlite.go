package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"image_ratings/internal/models"
)

// SQLiteStorage is the local development backend. created_at is stored as
// RFC3339 text with millisecond precision.
type SQLiteStorage struct {
	db *sql.DB
}

func NewSQLiteStorage(ctx context.Context, dsn string) (*SQLiteStorage, error) {
	const op = "storage.NewSQLiteStorage"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	// In-memory databases exist per connection.
	db.SetMaxOpenConns(1)

	s := &SQLiteStorage{db: db}
	if err := s.createSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s, nil
}

func (s *SQLiteStorage) createSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS image_ratings (
		id                  INTEGER PRIMARY KEY AUTOINCREMENT,
		image_url           TEXT NOT NULL CHECK (image_url <> ''),
		watermark_severity  REAL NOT NULL CHECK (watermark_severity BETWEEN 0 AND 1),
		pose_quality        REAL NOT NULL CHECK (pose_quality BETWEEN 0 AND 1),
		clarity_score       REAL NOT NULL CHECK (clarity_score BETWEEN 0 AND 1),
		color_harmony       REAL NOT NULL CHECK (color_harmony BETWEEN 0 AND 1),
		composition_balance REAL NOT NULL CHECK (composition_balance BETWEEN 0 AND 1),
		background_quality  REAL NOT NULL CHECK (background_quality BETWEEN 0 AND 1),
		distraction_level   REAL NOT NULL CHECK (distraction_level BETWEEN 0 AND 1),
		created_at          TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
	)`)
	return err
}

func (s *SQLiteStorage) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

func (s *SQLiteStorage) InsertRating(ctx context.Context, r models.NewImageRating) (models.ImageRating, error) {
	const op = "storage.InsertRating"

	row := s.db.QueryRowContext(ctx,
		`INSERT INTO image_ratings (image_url, watermark_severity, pose_quality, clarity_score,
			color_harmony, composition_balance, background_quality, distraction_level)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING `+ratingColumns+`, created_at`,
		insertArgs(r)...)
	out, err := scanSQLiteRating(row)
	if err != nil {
		return models.ImageRating{}, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (s *SQLiteStorage) ListRatings(ctx context.Context) ([]models.ImageRating, error) {
	const op = "storage.ListRatings"

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+ratingColumns+`, created_at FROM image_ratings ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	ratings := make([]models.ImageRating, 0)
	for rows.Next() {
		r, err := scanSQLiteRating(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ratings = append(ratings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ratings, nil
}

func (s *SQLiteStorage) DeleteRating(ctx context.Context, id int64) error {
	const op = "storage.DeleteRating"
	if _, err := s.db.ExecContext(ctx, "DELETE FROM image_ratings WHERE id = ?", id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func scanSQLiteRating(row rowScanner) (models.ImageRating, error) {
	var (
		r         models.ImageRating
		createdAt string
	)
	if err := scanRatingInto(row, &r, &createdAt); err != nil {
		return models.ImageRating{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return models.ImageRating{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	r.CreatedAt = t
	return r, nil
}
