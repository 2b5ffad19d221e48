package models

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const (
	DefaultServerAddr = ":8080"
	DefaultBucket     = "training-images"
	DefaultTable      = "image_ratings"
)

type Config struct {
	ServerAddr    string         `yaml:"server_addr"`
	PublicBaseURL string         `yaml:"public_base_url"`
	Database      DatabaseConfig `yaml:"database"`
	Blob          BlobConfig     `yaml:"blob"`
	Scoring       ScoringConfig  `yaml:"scoring"`
	Kafka         KafkaConfig    `yaml:"kafka"`
	Upload        UploadConfig   `yaml:"upload"`
}

type DatabaseConfig struct {
	Type string `yaml:"type"` // postgres, sqlite
	URL  string `yaml:"url"`
}

type BlobConfig struct {
	Type        string `yaml:"type"` // supabase, local
	SupabaseURL string `yaml:"supabase_url"`
	SupabaseKey string `yaml:"supabase_key"`
	Bucket      string `yaml:"bucket"`
	StoragePath string `yaml:"storage_path"`
}

type ScoringConfig struct {
	Provider  string        `yaml:"provider"` // stub, openai
	Delay     time.Duration `yaml:"delay"`
	OpenAIKey string        `yaml:"openai_key"`
	OpenAIURL string        `yaml:"openai_url"`
	Model     string        `yaml:"model"`
	MaxEdge   int           `yaml:"max_edge"`
	Timeout   time.Duration `yaml:"timeout"`
}

type KafkaConfig struct {
	Broker string `yaml:"broker"`
	Topic  string `yaml:"topic"`
}

type UploadConfig struct {
	MaxMemoryMB       int64 `yaml:"max_memory_mb"`
	RollbackOnFailure *bool `yaml:"rollback_on_failure"`
}

// Rollback reports whether earlier side effects of a failed batch are undone.
func (u UploadConfig) Rollback() bool {
	return u.RollbackOnFailure == nil || *u.RollbackOnFailure
}

// LoadConfig reads the YAML file at path (a missing file is not an error),
// applies .env and process environment overrides and fills defaults.
func LoadConfig(path string) (*Config, error) {
	const op = "models.LoadConfig"

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("%s: parse %s: %w", op, path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// .env is optional; variables already set in the environment win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: load .env: %w", op, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	setFromEnv(&c.ServerAddr, "SERVER_ADDR")
	setFromEnv(&c.PublicBaseURL, "PUBLIC_BASE_URL")
	setFromEnv(&c.Database.URL, "DATABASE_URL")
	setFromEnv(&c.Blob.SupabaseURL, "SUPABASE_URL")
	setFromEnv(&c.Blob.SupabaseKey, "SUPABASE_KEY")
	setFromEnv(&c.Scoring.OpenAIKey, "OPENAI_KEY")
	setFromEnv(&c.Kafka.Broker, "KAFKA_BROKER")
}

func setFromEnv(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func (c *Config) applyDefaults() {
	if c.ServerAddr == "" {
		c.ServerAddr = DefaultServerAddr
	}
	if c.PublicBaseURL == "" {
		c.PublicBaseURL = "http://localhost" + c.ServerAddr
	}
	if c.Database.Type == "" {
		c.Database.Type = "postgres"
	}
	if c.Blob.Type == "" {
		c.Blob.Type = "supabase"
	}
	if c.Blob.Bucket == "" {
		c.Blob.Bucket = DefaultBucket
	}
	if c.Blob.StoragePath == "" {
		c.Blob.StoragePath = "data/blobs"
	}
	if c.Scoring.Provider == "" {
		c.Scoring.Provider = "stub"
	}
	if c.Scoring.Delay == 0 {
		c.Scoring.Delay = 300 * time.Millisecond
	}
	if c.Scoring.Model == "" {
		c.Scoring.Model = "gpt-4o-mini"
	}
	if c.Scoring.MaxEdge == 0 {
		c.Scoring.MaxEdge = 768
	}
	if c.Scoring.Timeout == 0 {
		c.Scoring.Timeout = 30 * time.Second
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "image-ratings"
	}
	if c.Upload.MaxMemoryMB == 0 {
		c.Upload.MaxMemoryMB = 32
	}
}

func (c *Config) Validate() error {
	switch c.Database.Type {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database type %q", c.Database.Type)
	}
	if c.Database.URL == "" {
		return errors.New("database url is required")
	}
	switch c.Blob.Type {
	case "supabase":
		if c.Blob.SupabaseURL == "" || c.Blob.SupabaseKey == "" {
			return errors.New("supabase url and key are required for the supabase blob store")
		}
	case "local":
	default:
		return fmt.Errorf("unsupported blob store type %q", c.Blob.Type)
	}
	switch c.Scoring.Provider {
	case "stub":
	case "openai":
		if c.Scoring.OpenAIKey == "" {
			return errors.New("openai key is required for the openai scorer")
		}
	default:
		return fmt.Errorf("unsupported scoring provider %q", c.Scoring.Provider)
	}
	return nil
}
