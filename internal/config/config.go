package config

import (
	"fmt"
	"os"
	"strconv"
)

const (
	// DefaultConcurrency is the batch size when none is configured.
	DefaultConcurrency = 3
	// MaxConcurrency is a hard ceiling; exceeding it is a startup
	// error, never a clamp.
	MaxConcurrency = 10
)

// Config holds application configuration, populated from the
// environment (a .env file is loaded by main before this runs).
type Config struct {
	Token            string // Raindrop bearer token
	ProjectID        string // cloud project for the summarizer
	OutputDir        string
	SummarizerScript string
	Collection       int64
	TagFilter        string
	Concurrency      int
	MaxItems         int
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		Token:            os.Getenv("RAINDROP_TOKEN"),
		ProjectID:        os.Getenv("GOOGLE_CLOUD_PROJECT_ID"),
		OutputDir:        envOr("DROPSUM_OUTPUT_DIR", "./summaries"),
		SummarizerScript: envOr("DROPSUM_SUMMARIZER", "video_summarizer.py"),
		TagFilter:        os.Getenv("DROPSUM_TAG_FILTER"),
		Concurrency:      DefaultConcurrency,
		MaxItems:         0,
	}

	var err error
	if cfg.Collection, err = envInt64("DROPSUM_COLLECTION", 0); err != nil {
		return nil, err
	}
	if cfg.Concurrency, err = envInt("DROPSUM_CONCURRENCY", DefaultConcurrency); err != nil {
		return nil, err
	}
	if cfg.MaxItems, err = envInt("DROPSUM_MAX_ITEMS", 0); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks configured values against their allowed ranges.
func (c *Config) Validate() error {
	if c.Concurrency < 1 || c.Concurrency > MaxConcurrency {
		return fmt.Errorf("concurrency must be between 1 and %d, got %d", MaxConcurrency, c.Concurrency)
	}
	if c.MaxItems < 0 {
		return fmt.Errorf("max items must not be negative, got %d", c.MaxItems)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number, got %q", key, v)
	}
	return n, nil
}

func envInt64(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number, got %q", key, v)
	}
	return n, nil
}
