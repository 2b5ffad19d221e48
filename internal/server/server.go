package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"image_ratings/internal/blobstore"
	"image_ratings/internal/events"
	"image_ratings/internal/models"
	"image_ratings/internal/scoring"
	"image_ratings/internal/storage"
)

const genericError = "internal server error"

type Server struct {
	cfg       *models.Config
	router    *gin.Engine
	srv       *http.Server
	db        storage.Repository
	blobs     blobstore.Store
	scorer    scoring.Scorer
	publisher events.Publisher
	now       func() time.Time
}

func NewServer(cfg *models.Config, db storage.Repository, blobs blobstore.Store, scorer scoring.Scorer, publisher events.Publisher) *Server {
	r := gin.New()
	r.Use(requestLogger("/healthz"), gin.Recovery())
	r.MaxMultipartMemory = cfg.Upload.MaxMemoryMB << 20

	if local, ok := blobs.(*blobstore.LocalStore); ok {
		r.Static("/files", local.Dir())
	}

	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	s := &Server{
		cfg:       cfg,
		router:    r,
		db:        db,
		blobs:     blobs,
		scorer:    scorer,
		publisher: publisher,
		now:       time.Now,
	}
	s.srv = &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	api := r.Group("/api")
	api.Any("/upload", cors(http.MethodPost), allowMethod(http.MethodPost), s.handleUpload)
	api.Any("/list", cors(http.MethodGet), allowMethod(http.MethodGet), s.handleList)

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	slog.Info("starting server", "addr", s.cfg.ServerAddr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type listResponse struct {
	Success bool                 `json:"success"`
	Data    []models.ImageRating `json:"data"`
}

func (s *Server) handleList(c *gin.Context) {
	const op = "server.handleList"

	ratings, err := s.db.ListRatings(c.Request.Context())
	if err != nil {
		fail(c, op, http.StatusInternalServerError, fmt.Errorf("query failed: %w", err))
		return
	}
	if ratings == nil {
		ratings = []models.ImageRating{}
	}

	c.JSON(http.StatusOK, listResponse{Success: true, Data: ratings})
}

// fail logs err and writes the error envelope.
func fail(c *gin.Context, op string, status int, err error) {
	msg := genericError
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	slog.Error("request failed", "op", op, "status", status, "error", msg)
	c.AbortWithStatusJSON(status, errorResponse{Success: false, Error: msg})
}
