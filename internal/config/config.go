// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrTryonAPIKeyRequired is returned when TRYON_API_KEY is not set.
	ErrTryonAPIKeyRequired = errors.New("config: TRYON_API_KEY is required")
	// ErrTryonEndpointIDRequired is returned when TRYON_ENDPOINT_ID is not set.
	ErrTryonEndpointIDRequired = errors.New("config: TRYON_ENDPOINT_ID is required")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port int `env:"PORT, default=8080" json:"port"`

	// Generation backend settings
	TryonAPIKey     string        `env:"TRYON_API_KEY, required" json:"-"` // Masked in JSON
	TryonEndpointID string        `env:"TRYON_ENDPOINT_ID, required" json:"tryon_endpoint_id"`
	TryonBaseURL    string        `env:"TRYON_BASE_URL, default=https://api.runpod.ai/v2" json:"tryon_base_url"`
	SubmitTimeout   time.Duration `env:"SUBMIT_TIMEOUT, default=60s" json:"submit_timeout"`
	Premium         bool          `env:"TRYON_PREMIUM, default=false" json:"premium"`
	DefaultSwapType string        `env:"DEFAULT_SWAP_TYPE, default=full_outfit" json:"default_swap_type"`

	// Poll loop settings
	PollBudget          time.Duration `env:"POLL_BUDGET, default=420s" json:"poll_budget"`
	PollInitialInterval time.Duration `env:"POLL_INITIAL_INTERVAL, default=10s" json:"poll_initial_interval"`
	PollMaxInterval     time.Duration `env:"POLL_MAX_INTERVAL, default=30s" json:"poll_max_interval"`

	// Image hosting settings
	ImageHostAPIKey      string        `env:"IMAGE_HOST_API_KEY" json:"-"` // Masked in JSON
	ImageHostEndpoint    string        `env:"IMAGE_HOST_ENDPOINT, default=https://api.imgbb.com/1/upload" json:"image_host_endpoint"`
	FallbackHostAPIKey   string        `env:"FALLBACK_HOST_API_KEY" json:"-"` // Masked in JSON
	FallbackHostEndpoint string        `env:"FALLBACK_HOST_ENDPOINT, default=https://freeimage.host/api/1/upload" json:"fallback_host_endpoint"`
	UploadTimeout        time.Duration `env:"UPLOAD_TIMEOUT, default=30s" json:"upload_timeout"`

	// Optional S3 staging settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Request limits
	MaxUploadBytes  int64         `env:"MAX_UPLOAD_BYTES, default=8388608" json:"max_upload_bytes"`
	RateLimit       int           `env:"RATE_LIMIT, default=8" json:"rate_limit"`
	RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW, default=60s" json:"rate_limit_window"`

	// Debug mode echoes internal diagnostic detail in error responses.
	Debug bool `env:"DEBUG, default=false" json:"debug"`

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 staging configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// Load reads configuration from environment variables using go-envconfig.
// It returns an error if required variables are not set.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		// Map envconfig errors to our domain errors for required fields
		if strings.Contains(err.Error(), "TRYON_API_KEY") {
			return nil, ErrTryonAPIKeyRequired
		}
		if strings.Contains(err.Error(), "TRYON_ENDPOINT_ID") {
			return nil, ErrTryonEndpointIDRequired
		}
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration is present.
func (c *Config) Validate() error {
	if c.TryonAPIKey == "" {
		return ErrTryonAPIKeyRequired
	}
	if c.TryonEndpointID == "" {
		return ErrTryonEndpointIDRequired
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, TryonEndpointID: %s, TryonBaseURL: %s, SubmitTimeout: %s, PollBudget: %s, ImageHostEndpoint: %s, FallbackHostEndpoint: %s, S3Bucket: %s, S3Region: %s, MaxUploadBytes: %d, RateLimit: %d, RateLimitWindow: %s, Debug: %t, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.TryonEndpointID,
		c.TryonBaseURL,
		c.SubmitTimeout,
		c.PollBudget,
		c.ImageHostEndpoint,
		c.FallbackHostEndpoint,
		c.S3Bucket,
		c.S3Region,
		c.MaxUploadBytes,
		c.RateLimit,
		c.RateLimitWindow,
		c.Debug,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
