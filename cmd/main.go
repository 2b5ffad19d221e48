package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"image_ratings/internal/blobstore"
	"image_ratings/internal/events"
	"image_ratings/internal/logging"
	"image_ratings/internal/models"
	"image_ratings/internal/scoring"
	"image_ratings/internal/server"
	"image_ratings/internal/storage"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "image-ratings",
	Short:         "Uploads training images, scores them and lists the stored ratings",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := models.LoadConfig(configPath)
		if err != nil {
			return err
		}
		if cfg.Database.Type != "postgres" {
			return fmt.Errorf("migrations are only used with postgres, got %q", cfg.Database.Type)
		}
		return storage.Migrate(cmd.Context(), cfg.Database.URL)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", envOr("CONFIG_PATH", "config.yaml"), "path to the YAML config file")
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	slog.SetDefault(logging.CreateLogger(os.Stderr, logging.LevelFromEnv()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("failed to execute command", "error", err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := models.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := storage.NewRepository(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to init storage: %w", err)
	}
	defer db.Close()

	blobs, err := blobstore.NewStore(cfg.Blob, cfg.PublicBaseURL)
	if err != nil {
		return fmt.Errorf("failed to init blob store: %w", err)
	}

	scorer, err := scoring.NewScorer(cfg.Scoring)
	if err != nil {
		return fmt.Errorf("failed to init scorer: %w", err)
	}

	publisher := events.NewPublisher(cfg.Kafka)
	defer func() {
		if err := publisher.Close(); err != nil {
			slog.Warn("failed to close publisher", "error", err)
		}
	}()

	srv := server.NewServer(cfg, db, blobs, scorer, publisher)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
