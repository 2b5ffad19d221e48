package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"image_ratings/internal/models"
)

//go:embed migrations/*.sql
var migrations embed.FS

const migrationPath = "migrations"

type PostgresStorage struct {
	pool *pgxpool.Pool
	db   *sql.DB // For migrations
}

func NewPostgresStorage(ctx context.Context, dsn string) (*PostgresStorage, error) {
	const op = "storage.NewPostgresStorage"

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	db := stdlib.OpenDBFromPool(pool)
	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		pool.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &PostgresStorage{pool: pool, db: db}, nil
}

// Migrate applies pending migrations without keeping the connection open.
func Migrate(ctx context.Context, dsn string) error {
	s, err := NewPostgresStorage(ctx, dsn)
	if err != nil {
		return err
	}
	s.Close()
	return nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	const op = "storage.migrations"

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err := goose.UpContext(ctx, db, migrationPath)
	if err != nil {
		if errors.Is(err, goose.ErrNoNextVersion) {
			slog.Info("no migrations to apply")
			return nil
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	slog.Info("database migrations applied")
	return nil
}

func (s *PostgresStorage) Close() {
	s.db.Close()
	s.pool.Close()
}

func (s *PostgresStorage) InsertRating(ctx context.Context, r models.NewImageRating) (models.ImageRating, error) {
	const op = "storage.InsertRating"

	var out models.ImageRating
	row := s.pool.QueryRow(ctx,
		`INSERT INTO image_ratings (image_url, watermark_severity, pose_quality, clarity_score,
			color_harmony, composition_balance, background_quality, distraction_level)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+ratingColumns+`, created_at`,
		insertArgs(r)...)
	if err := scanRatingInto(row, &out, &out.CreatedAt); err != nil {
		return models.ImageRating{}, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (s *PostgresStorage) ListRatings(ctx context.Context) ([]models.ImageRating, error) {
	const op = "storage.ListRatings"

	rows, err := s.pool.Query(ctx,
		`SELECT `+ratingColumns+`, created_at FROM image_ratings ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	ratings := make([]models.ImageRating, 0)
	for rows.Next() {
		var r models.ImageRating
		if err := scanRatingInto(rows, &r, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ratings = append(ratings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ratings, nil
}

func (s *PostgresStorage) DeleteRating(ctx context.Context, id int64) error {
	const op = "storage.DeleteRating"
	_, err := s.pool.Exec(ctx, `DELETE FROM image_ratings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
