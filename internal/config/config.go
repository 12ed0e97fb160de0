package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host         string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port         int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout  time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	IdleTimeout  time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"60s"`
}

// DatasetConfig locates the city dataset. URL takes precedence over Path
// when both are set.
type DatasetConfig struct {
	URL  string `envconfig:"DATASET_URL"`
	Path string `envconfig:"DATASET_PATH" default:"./data/daily.csv"`

	// AnchorDate is the first day of the dataset's known range, used only
	// when the source lacks a date column and dates must be synthesized.
	AnchorDate string `envconfig:"DATASET_ANCHOR_DATE" default:"1990-01-01"`

	// FetchTimeout bounds the HTTP fetch. Hardening, not source behavior.
	FetchTimeout time.Duration `envconfig:"DATASET_FETCH_TIMEOUT" default:"30s"`

	City string `envconfig:"CITY_NAME" default:"city"`
}

// BoundaryConfig locates the GeoJSON boundary file for the choropleth layer
type BoundaryConfig struct {
	Path string `envconfig:"BOUNDARY_PATH" default:"./data/regions.geojson"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
}

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Dataset  DatasetConfig
	Boundary BoundaryConfig
	Logging  LoggingConfig
}

// LoadConfig reads configuration from environment variables, applying
// defaults where unset
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for correctness
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}

	if c.Dataset.URL == "" && c.Dataset.Path == "" {
		return fmt.Errorf("either DATASET_URL or DATASET_PATH must be set")
	}

	if c.Dataset.FetchTimeout <= 0 {
		return fmt.Errorf("DATASET_FETCH_TIMEOUT must be positive")
	}

	if _, err := c.Dataset.Anchor(); err != nil {
		return fmt.Errorf("invalid DATASET_ANCHOR_DATE %q: %w", c.Dataset.AnchorDate, err)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid LOG_LEVEL %q", c.Logging.Level)
	}

	return nil
}

// Anchor parses the configured anchor date
func (d *DatasetConfig) Anchor() (time.Time, error) {
	return time.Parse("2006-01-02", d.AnchorDate)
}
