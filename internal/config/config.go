// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/mbd888/fraudwatch/internal/validation"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port      string
	Env       string // "development", "staging", "production"
	LogLevel  string
	LogFormat string // "text" or "json"

	// Observability
	OTLPEndpoint string // OTLP gRPC collector; tracing is disabled when empty

	// Rate limiting
	RateLimitRPM   int
	RateLimitBurst int

	// Scoring
	FraudThreshold float64
	RecentAnalyses int // size of the in-memory analysis history

	// Live feed
	FeedEnabled     bool
	FeedSource      string // "sample" or "generator"
	FeedMinInterval time.Duration
	FeedMaxInterval time.Duration

	// RandomSeed makes generator, feed and simulated metrics reproducible.
	// Zero means seed from the runtime.
	RandomSeed uint64

	// FrontendDir holds the dashboard's static files (optional)
	FrontendDir string
}

// Defaults
const (
	DefaultPort            = "8000"
	DefaultEnv             = "development"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
	DefaultRateLimitRPM    = 120
	DefaultRateLimitBurst  = 20
	DefaultFraudThreshold  = 0.6
	DefaultRecentAnalyses  = 500
	DefaultFeedSource      = "sample"
	DefaultFeedMinInterval = time.Second
	DefaultFeedMaxInterval = 3 * time.Second
	DefaultFrontendDir     = "frontend"
)

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv("PORT", DefaultPort),
		Env:             getEnv("ENV", DefaultEnv),
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", DefaultLogLevel)),
		LogFormat:       strings.ToLower(getEnv("LOG_FORMAT", DefaultLogFormat)),
		OTLPEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		RateLimitRPM:    int(getEnvInt64("RATE_LIMIT_RPM", DefaultRateLimitRPM)),
		RateLimitBurst:  int(getEnvInt64("RATE_LIMIT_BURST", DefaultRateLimitBurst)),
		FraudThreshold:  getEnvFloat("FRAUD_THRESHOLD", DefaultFraudThreshold),
		RecentAnalyses:  int(getEnvInt64("RECENT_ANALYSES", DefaultRecentAnalyses)),
		FeedEnabled:     getEnvBool("FEED_ENABLED", true),
		FeedSource:      strings.ToLower(getEnv("FEED_SOURCE", DefaultFeedSource)),
		FeedMinInterval: getEnvDuration("FEED_MIN_INTERVAL", DefaultFeedMinInterval),
		FeedMaxInterval: getEnvDuration("FEED_MAX_INTERVAL", DefaultFeedMaxInterval),
		RandomSeed:      uint64(getEnvInt64("RANDOM_SEED", 0)),
		FrontendDir:     getEnv("FRONTEND_DIR", DefaultFrontendDir),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if n, err := strconv.Atoi(c.Port); err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("PORT must be a number between 1 and 65535, got %q", c.Port)
	}

	if err := oneOf("LOG_FORMAT", c.LogFormat, "text", "json"); err != nil {
		return err
	}

	if c.FraudThreshold < 0 || c.FraudThreshold > 1 {
		return fmt.Errorf("FRAUD_THRESHOLD must be within [0, 1], got %v", c.FraudThreshold)
	}

	if c.RateLimitRPM < 1 || c.RateLimitBurst < 1 {
		return fmt.Errorf("RATE_LIMIT_RPM and RATE_LIMIT_BURST must be positive")
	}

	if c.RecentAnalyses < 1 {
		return fmt.Errorf("RECENT_ANALYSES must be positive")
	}

	if err := oneOf("FEED_SOURCE", c.FeedSource, "sample", "generator"); err != nil {
		return err
	}

	if c.FeedMinInterval <= 0 || c.FeedMaxInterval < c.FeedMinInterval {
		return fmt.Errorf("FEED_MIN_INTERVAL must be positive and not exceed FEED_MAX_INTERVAL")
	}

	return nil
}

// oneOf requires an exact lowercase match; Load lowercases enumerated settings.
func oneOf(key, value string, allowed ...string) error {
	if value == "" || value != strings.ToLower(value) {
		return fmt.Errorf("%s must be one of %s, got %q", key, strings.Join(allowed, ", "), value)
	}
	if verr := validation.OneOf(key, value, allowed...)(); verr != nil {
		return fmt.Errorf("%s %s, got %q", key, verr.Message, value)
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("1500ms") or plain seconds ("2").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return defaultValue
}
