// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - All functions accept context.Context as the first parameter.
// - Errors are wrapped with this package's sentinel kinds.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okian/speedcube/internal/domain/advancement"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// DatabaseDSN is the SQLite data source, a file path or a file: URI.
	DatabaseDSN string `koanf:"database_dsn"`

	// AutoMigrate creates or updates the schema on start.
	AutoMigrate bool `koanf:"auto_migrate"`

	// AdvancementTiePolicy resolves ties at the advancement boundary:
	// slice (split by position) or admit_ties.
	AdvancementTiePolicy string `koanf:"advancement_tie_policy"`

	// FeedBufferSize bounds pending round feed messages per subscriber.
	FeedBufferSize int `koanf:"feed_buffer_size"`

	// RequestTimeoutMS bounds each HTTP request.
	RequestTimeoutMS int `koanf:"request_timeout_ms"`
}

// New creates a Config with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		Addr:                 ":9080",
		DatabaseDSN:          "file:speedcube.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)",
		AutoMigrate:          true,
		AdvancementTiePolicy: "slice",
		FeedBufferSize:       64,
		RequestTimeoutMS:     5000,
	}
}

// TiePolicy returns the parsed advancement tie policy.
func (c *Config) TiePolicy() advancement.TiePolicy {
	p, err := advancement.ParseTiePolicy(c.AdvancementTiePolicy)
	if err != nil {
		return advancement.SliceByPosition
	}
	return p
}

// RequestTimeout returns RequestTimeoutMS as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate(_ context.Context) error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.DatabaseDSN) == "" {
		return fmt.Errorf("%w: database_dsn must not be empty", ErrInvalidConfig)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	if _, err := advancement.ParseTiePolicy(c.AdvancementTiePolicy); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.FeedBufferSize <= 0 {
		return fmt.Errorf("%w: feed_buffer_size must be positive", ErrInvalidConfig)
	}
	if c.RequestTimeoutMS <= 0 {
		return fmt.Errorf("%w: request_timeout_ms must be positive", ErrInvalidConfig)
	}
	return nil
}
