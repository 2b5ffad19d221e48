// Package scoring rates the aesthetic quality of an image along seven dimensions.
package scoring

import (
	"context"
	"errors"
	"fmt"

	"image_ratings/internal/models"
)

var ErrInvalidScores = errors.New("invalid scores")

// Scorer returns the seven quality dimensions of an encoded image.
type Scorer interface {
	Score(ctx context.Context, image []byte) (models.Scores, error)
}

func NewScorer(cfg models.ScoringConfig) (Scorer, error) {
	switch cfg.Provider {
	case "stub":
		return NewStubScorer(cfg.Delay, nil), nil
	case "openai":
		return NewOpenAIScorer(OpenAIConfig{
			APIKey:  cfg.OpenAIKey,
			BaseURL: cfg.OpenAIURL,
			Model:   cfg.Model,
			MaxEdge: cfg.MaxEdge,
			Timeout: cfg.Timeout,
		}), nil
	default:
		return nil, fmt.Errorf("scoring.NewScorer: unsupported provider %q", cfg.Provider)
	}
}
