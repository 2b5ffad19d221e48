// internal/models/models.go
package models

import (
	"fmt"
	"time"
)

// Scores holds the seven quality dimensions of a rated image, each in [0,1].
type Scores struct {
	WatermarkSeverity  float64 `json:"watermark_severity" db:"watermark_severity"`
	PoseQuality        float64 `json:"pose_quality" db:"pose_quality"`
	ClarityScore       float64 `json:"clarity_score" db:"clarity_score"`
	ColorHarmony       float64 `json:"color_harmony" db:"color_harmony"`
	CompositionBalance float64 `json:"composition_balance" db:"composition_balance"`
	BackgroundQuality  float64 `json:"background_quality" db:"background_quality"`
	DistractionLevel   float64 `json:"distraction_level" db:"distraction_level"`
}

// Fields returns the dimensions in column order.
func (s Scores) Fields() []ScoreField {
	return []ScoreField{
		{"watermark_severity", s.WatermarkSeverity},
		{"pose_quality", s.PoseQuality},
		{"clarity_score", s.ClarityScore},
		{"color_harmony", s.ColorHarmony},
		{"composition_balance", s.CompositionBalance},
		{"background_quality", s.BackgroundQuality},
		{"distraction_level", s.DistractionLevel},
	}
}

type ScoreField struct {
	Name  string
	Value float64
}

func (s Scores) Validate() error {
	for _, f := range s.Fields() {
		if f.Value < 0 || f.Value > 1 {
			return fmt.Errorf("%s out of range [0,1]: %v", f.Name, f.Value)
		}
	}
	return nil
}

// ImageRating is one row of the image_ratings table.
type ImageRating struct {
	ID       int64  `json:"id" db:"id"`
	ImageURL string `json:"image_url" db:"image_url"`
	Scores
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NewImageRating is the insert payload; id and created_at are assigned by the database.
type NewImageRating struct {
	ImageURL string
	Scores
}

func (n NewImageRating) Validate() error {
	if n.ImageURL == "" {
		return fmt.Errorf("image_url is empty")
	}
	return n.Scores.Validate()
}
