// Scene Plus Engine - Loyalty Analytics and Personalized Offers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/NandaKumar8776/scene-plus-engine

// Package config provides layered configuration loading via Koanf v2.
//
// Precedence, lowest to highest: struct defaults, optional YAML config file,
// SCENEPLUS_-prefixed environment variables.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the service.
type Config struct {
	Server       ServerConfig       `koanf:"server"`
	Logging      LoggingConfig      `koanf:"logging"`
	Segmentation SegmentationConfig `koanf:"segmentation"`
	Offers       OffersConfig       `koanf:"offers"`
	Events       EventsConfig       `koanf:"events"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`

	// RateLimitReqs requests per RateLimitWindow per client IP.
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`

	// CORSOrigins lists allowed origins. Default: ["*"].
	CORSOrigins []string `koanf:"cors_origins"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// SegmentationConfig configures the customer segmentation model.
type SegmentationConfig struct {
	// Clusters is k, the number of customer segments.
	Clusters int `koanf:"clusters"`

	// Seed drives centroid initialization for deterministic training.
	Seed int64 `koanf:"seed"`

	// MaxIterations bounds the clustering refinement loop.
	MaxIterations int `koanf:"max_iterations"`

	// ModelDir is where trained model state is persisted.
	ModelDir string `koanf:"model_dir"`

	// KeepVersions is how many persisted model versions to retain.
	KeepVersions int `koanf:"keep_versions"`
}

// OffersConfig configures the offer rule engine.
type OffersConfig struct {
	// DefaultCount is the number of offers returned when unspecified.
	DefaultCount int `koanf:"default_count"`

	// MaxCount caps the per-request offer count.
	MaxCount int `koanf:"max_count"`
}

// EventsConfig configures offer event tracking.
type EventsConfig struct {
	// DatabasePath is the DuckDB file for the offer event store.
	// ":memory:" keeps events in process memory.
	DatabasePath string `koanf:"database_path"`

	// BatchSize triggers a flush when the event buffer reaches this size.
	BatchSize int `koanf:"batch_size"`

	// FlushInterval triggers a flush on a timer regardless of buffer size.
	FlushInterval time.Duration `koanf:"flush_interval"`

	// DedupPath is the badger directory for event-ID deduplication.
	// Empty selects the in-memory dedup store.
	DedupPath string `koanf:"dedup_path"`

	// DedupTTL is how long event IDs are remembered.
	DedupTTL time.Duration `koanf:"dedup_ttl"`

	// LookbackDays bounds the funnel analytics window.
	LookbackDays int `koanf:"lookback_days"`
}

// defaultConfig returns the built-in defaults, applied before file and env
// layers.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8420,
			Timeout:         30 * time.Second,
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Segmentation: SegmentationConfig{
			Clusters:      5,
			Seed:          42,
			MaxIterations: 300,
			ModelDir:      "/data/models",
			KeepVersions:  3,
		},
		Offers: OffersConfig{
			DefaultCount: 3,
			MaxCount:     10,
		},
		Events: EventsConfig{
			DatabasePath:  "/data/events.duckdb",
			BatchSize:     500,
			FlushInterval: 5 * time.Second,
			DedupPath:     "/data/dedup",
			DedupTTL:      30 * 24 * time.Hour,
			LookbackDays:  30,
		},
	}
}

// Validate checks the configuration for values the engines cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %s", c.Server.Timeout)
	}
	if c.Segmentation.Clusters < 2 {
		return fmt.Errorf("segmentation.clusters must be >= 2, got %d", c.Segmentation.Clusters)
	}
	if c.Segmentation.MaxIterations < 1 {
		return fmt.Errorf("segmentation.max_iterations must be >= 1, got %d", c.Segmentation.MaxIterations)
	}
	if c.Segmentation.ModelDir == "" {
		return fmt.Errorf("segmentation.model_dir must not be empty")
	}
	if c.Offers.DefaultCount < 1 {
		return fmt.Errorf("offers.default_count must be >= 1, got %d", c.Offers.DefaultCount)
	}
	if c.Offers.MaxCount < c.Offers.DefaultCount {
		return fmt.Errorf("offers.max_count (%d) must be >= offers.default_count (%d)",
			c.Offers.MaxCount, c.Offers.DefaultCount)
	}
	if c.Events.BatchSize < 1 {
		return fmt.Errorf("events.batch_size must be >= 1, got %d", c.Events.BatchSize)
	}
	if c.Events.FlushInterval <= 0 {
		return fmt.Errorf("events.flush_interval must be positive, got %s", c.Events.FlushInterval)
	}
	if c.Events.LookbackDays < 1 {
		return fmt.Errorf("events.lookback_days must be >= 1, got %d", c.Events.LookbackDays)
	}
	return nil
}
