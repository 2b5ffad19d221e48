package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"image_ratings/internal/blobstore"
	"image_ratings/internal/models"
)

const uploadField = "images"

type uploadResponse struct {
	Success bool                 `json:"success"`
	Message string               `json:"message"`
	Data    []models.ImageRating `json:"data"`
}

// handleUpload stores, scores and records every file of the images field,
// one after another. The first failure aborts the batch.
func (s *Server) handleUpload(c *gin.Context) {
	const op = "server.handleUpload"
	ctx := c.Request.Context()

	form, err := c.MultipartForm()
	if err != nil {
		fail(c, op, http.StatusInternalServerError, fmt.Errorf("parse upload: %w", err))
		return
	}
	// Drops temporary files spilled to disk by the multipart reader.
	defer func() {
		if err := form.RemoveAll(); err != nil {
			slog.Warn("failed to remove temporary upload files", "error", err)
		}
	}()

	files := form.File[uploadField]
	if len(files) == 0 {
		fail(c, op, http.StatusInternalServerError, fmt.Errorf("parse upload: no files in field %q", uploadField))
		return
	}

	var undo rollback
	results := make([]models.ImageRating, 0, len(files))
	for _, fh := range files {
		row, err := s.processFile(ctx, fh, &undo)
		if err != nil {
			if s.cfg.Upload.Rollback() {
				undo.run(context.WithoutCancel(ctx))
			}
			fail(c, op, http.StatusInternalServerError, err)
			return
		}
		results = append(results, row)
		if !s.cfg.Upload.Rollback() {
			s.publish(ctx, row)
		}
	}

	// A rolled-back row must never be announced, so events wait for the batch.
	if s.cfg.Upload.Rollback() {
		for _, row := range results {
			s.publish(ctx, row)
		}
	}

	c.JSON(http.StatusOK, uploadResponse{
		Success: true,
		Message: fmt.Sprintf("%d processed", len(results)),
		Data:    results,
	})
}

func (s *Server) processFile(ctx context.Context, fh *multipart.FileHeader, undo *rollback) (models.ImageRating, error) {
	data, err := readUpload(fh)
	if err != nil {
		return models.ImageRating{}, fmt.Errorf("read %s: %w", fh.Filename, err)
	}

	key := blobstore.NewObjectKey(fh.Filename, s.now())
	if err := s.blobs.Put(ctx, key, data, fh.Header.Get("Content-Type")); err != nil {
		return models.ImageRating{}, fmt.Errorf("file upload failed: %w", err)
	}
	undo.add("delete object "+key, func(ctx context.Context) error {
		return s.blobs.Delete(ctx, key)
	})

	scores, err := s.scorer.Score(ctx, data)
	if err != nil {
		return models.ImageRating{}, fmt.Errorf("scoring failed: %w", err)
	}

	rating := models.NewImageRating{ImageURL: s.blobs.PublicURL(key), Scores: scores}
	if err := rating.Validate(); err != nil {
		return models.ImageRating{}, fmt.Errorf("scoring failed: %w", err)
	}

	row, err := s.db.InsertRating(ctx, rating)
	if err != nil {
		return models.ImageRating{}, fmt.Errorf("saving rating failed: %w", err)
	}
	undo.add(fmt.Sprintf("delete rating %d", row.ID), func(ctx context.Context) error {
		return s.db.DeleteRating(ctx, row.ID)
	})

	slog.Debug("image rated", "key", key, "id", row.ID)
	return row, nil
}

// publish is best effort; the stored row is the source of truth.
func (s *Server) publish(ctx context.Context, row models.ImageRating) {
	if err := s.publisher.Publish(ctx, row); err != nil {
		slog.Warn("failed to publish rating", "id", row.ID, "error", err)
	}
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(f)
}

// rollback holds compensating actions for side effects of the current batch.
type rollback struct {
	steps []rollbackStep
}

type rollbackStep struct {
	name string
	fn   func(ctx context.Context) error
}

func (r *rollback) add(name string, fn func(ctx context.Context) error) {
	r.steps = append(r.steps, rollbackStep{name: name, fn: fn})
}

// run undoes the recorded steps newest first. Failures are logged only.
func (r *rollback) run(ctx context.Context) {
	for i := len(r.steps) - 1; i >= 0; i-- {
		step := r.steps[i]
		if err := step.fn(ctx); err != nil {
			slog.Error("rollback step failed", "step", step.name, "error", err)
			continue
		}
		slog.Info("rolled back", "step", step.name)
	}
	r.steps = nil
}
