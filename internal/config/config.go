// Package config handles application configuration from environment variables
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
)

// Config holds all application configuration
type Config struct {
	Port            string        `env:"PORT" envDefault:"8080"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	SessionLifetime time.Duration `env:"SESSION_LIFETIME" envDefault:"12h"`

	RAWG  RAWGConfig  `envPrefix:"RAWG_"`
	Cache CacheConfig `envPrefix:"CACHE_"`
	OTel  OTelConfig  `envPrefix:"OTEL_"`
}

// RAWGConfig holds RAWG API access settings
type RAWGConfig struct {
	APIKey  string        `env:"API_KEY"`
	BaseURL string        `env:"BASE_URL" envDefault:"https://api.rawg.io/api"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"15s"`
}

// CacheConfig tunes the query cache. A zero TTL keeps entries until they
// are invalidated; a zero RetryFailedAfter keeps failures the same way.
type CacheConfig struct {
	TTL              time.Duration `env:"TTL" envDefault:"0s"`
	FetchTimeout     time.Duration `env:"FETCH_TIMEOUT" envDefault:"20s"`
	RetryFailedAfter time.Duration `env:"RETRY_FAILED_AFTER" envDefault:"30s"`
}

// OTelConfig enables trace export. Tracing stays off while Endpoint is empty.
type OTelConfig struct {
	Endpoint    string `env:"ENDPOINT"`
	Enabled     bool   `env:"ENABLED" envDefault:"true"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"rawg-game-hub"`
}

// TracingEnabled reports whether spans should be exported
func (c *Config) TracingEnabled() bool {
	return c.OTel.Enabled && c.OTel.Endpoint != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings every entry point needs
func (c *Config) Validate() error {
	if c.RAWG.APIKey == "" {
		return errors.New("RAWG_API_KEY is required - get one at https://rawg.io/apidocs")
	}
	if c.RAWG.Timeout < 0 || c.Cache.TTL < 0 || c.Cache.FetchTimeout < 0 || c.Cache.RetryFailedAfter < 0 || c.SessionLifetime < 0 {
		return errors.New("durations must not be negative")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LOG_LEVEL
func (c *Config) Level() (zerolog.Level, error) {
	if c.LogLevel == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}
