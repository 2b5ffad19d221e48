package scoring

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	openai "github.com/sashabaranov/go-openai"

	"image_ratings/internal/models"
)

const scoringPrompt = `You rate photographs used to train an image aesthetics model.
Return a JSON object with exactly these numeric fields, each between 0 and 1:

- watermark_severity: how little the image is affected by watermarks or overlaid text (1 = none)
- pose_quality: how natural and flattering the subject's pose is
- clarity_score: sharpness and absence of noise or blur
- color_harmony: how well the colors work together
- composition_balance: balance and framing of the composition
- background_quality: how clean and fitting the background is
- distraction_level: how free the image is of distracting elements (1 = none)

Respond with the JSON object only.`

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	MaxEdge int
	Timeout time.Duration
}

// OpenAIScorer asks a vision model for the scores. Images are downscaled to
// MaxEdge on their longest side and re-encoded as JPEG before upload.
type OpenAIScorer struct {
	client  *openai.Client
	model   string
	maxEdge int
}

func NewOpenAIScorer(cfg OpenAIConfig) *OpenAIScorer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &OpenAIScorer{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		maxEdge: cfg.MaxEdge,
	}
}

func (s *OpenAIScorer) Score(ctx context.Context, image []byte) (models.Scores, error) {
	const op = "scoring.OpenAIScorer.Score"

	dataURL, err := s.prepare(image)
	if err != nil {
		return models.Scores{}, fmt.Errorf("%s: %w", op, err)
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: scoringPrompt,
			},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    dataURL,
							Detail: openai.ImageURLDetailLow,
						},
					},
				},
			},
		},
	})
	if err != nil {
		return models.Scores{}, fmt.Errorf("%s: %w", op, err)
	}
	if len(resp.Choices) == 0 {
		return models.Scores{}, fmt.Errorf("%s: empty completion: %w", op, ErrInvalidScores)
	}

	scores, err := parseScores(resp.Choices[0].Message.Content)
	if err != nil {
		return models.Scores{}, fmt.Errorf("%s: %w", op, err)
	}
	return scores, nil
}

func (s *OpenAIScorer) prepare(image []byte) (string, error) {
	img, err := imaging.Decode(bytes.NewReader(image), imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	if s.maxEdge > 0 {
		img = imaging.Fit(img, s.maxEdge, s.maxEdge, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return "", fmt.Errorf("encode image: %w", err)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

type scoreResponse struct {
	WatermarkSeverity  *float64 `json:"watermark_severity"`
	PoseQuality        *float64 `json:"pose_quality"`
	ClarityScore       *float64 `json:"clarity_score"`
	ColorHarmony       *float64 `json:"color_harmony"`
	CompositionBalance *float64 `json:"composition_balance"`
	BackgroundQuality  *float64 `json:"background_quality"`
	DistractionLevel   *float64 `json:"distraction_level"`
}

func parseScores(content string) (models.Scores, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var r scoreResponse
	if err := json.Unmarshal([]byte(content), &r); err != nil {
		return models.Scores{}, fmt.Errorf("%w: %v", ErrInvalidScores, err)
	}

	fields := []struct {
		name string
		v    *float64
	}{
		{"watermark_severity", r.WatermarkSeverity},
		{"pose_quality", r.PoseQuality},
		{"clarity_score", r.ClarityScore},
		{"color_harmony", r.ColorHarmony},
		{"composition_balance", r.CompositionBalance},
		{"background_quality", r.BackgroundQuality},
		{"distraction_level", r.DistractionLevel},
	}
	for _, f := range fields {
		if f.v == nil {
			return models.Scores{}, fmt.Errorf("%w: missing %s", ErrInvalidScores, f.name)
		}
	}

	scores := models.Scores{
		WatermarkSeverity:  *r.WatermarkSeverity,
		PoseQuality:        *r.PoseQuality,
		ClarityScore:       *r.ClarityScore,
		ColorHarmony:       *r.ColorHarmony,
		CompositionBalance: *r.CompositionBalance,
		BackgroundQuality:  *r.BackgroundQuality,
		DistractionLevel:   *r.DistractionLevel,
	}
	if err := scores.Validate(); err != nil {
		return models.Scores{}, fmt.Errorf("%w: %v", ErrInvalidScores, err)
	}
	return scores, nil
}
