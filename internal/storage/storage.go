// internal/storage/storage.go
package storage

import (
	"context"
	"fmt"

	"image_ratings/internal/models"
)

// Repository persists image ratings. Implementations are safe for concurrent use.
type Repository interface {
	InsertRating(ctx context.Context, r models.NewImageRating) (models.ImageRating, error)
	ListRatings(ctx context.Context) ([]models.ImageRating, error)
	DeleteRating(ctx context.Context, id int64) error
	Close()
}

func NewRepository(ctx context.Context, cfg models.DatabaseConfig) (Repository, error) {
	const op = "storage.NewRepository"

	switch cfg.Type {
	case "postgres":
		s, err := NewPostgresStorage(ctx, cfg.URL)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "sqlite":
		s, err := NewSQLiteStorage(ctx, cfg.URL)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%s: unsupported database type %q", op, cfg.Type)
	}
}

const ratingColumns = `id, image_url, watermark_severity, pose_quality, clarity_score,
	color_harmony, composition_balance, background_quality, distraction_level`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRatingInto(row rowScanner, r *models.ImageRating, createdAt any) error {
	return row.Scan(&r.ID, &r.ImageURL,
		&r.WatermarkSeverity, &r.PoseQuality, &r.ClarityScore, &r.ColorHarmony,
		&r.CompositionBalance, &r.BackgroundQuality, &r.DistractionLevel,
		createdAt)
}

func insertArgs(r models.NewImageRating) []any {
	return []any{r.ImageURL,
		r.WatermarkSeverity, r.PoseQuality, r.ClarityScore, r.ColorHarmony,
		r.CompositionBalance, r.BackgroundQuality, r.DistractionLevel}
}
