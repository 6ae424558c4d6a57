// Scene Plus Engine - Loyalty Analytics and Personalized Offers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/NandaKumar8776/scene-plus-engine

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigValidates(t *testing.T) {
	if err := defaultConfig().Validate(); err != nil {
		t.Fatalf("defaultConfig().Validate() = %v, want nil", err)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }},
		{"negative timeout", func(c *Config) { c.Server.Timeout = -time.Second }},
		{"one cluster", func(c *Config) { c.Segmentation.Clusters = 1 }},
		{"zero iterations", func(c *Config) { c.Segmentation.MaxIterations = 0 }},
		{"empty model dir", func(c *Config) { c.Segmentation.ModelDir = "" }},
		{"zero offer count", func(c *Config) { c.Offers.DefaultCount = 0 }},
		{"max below default", func(c *Config) { c.Offers.MaxCount = 1; c.Offers.DefaultCount = 3 }},
		{"zero batch size", func(c *Config) { c.Events.BatchSize = 0 }},
		{"zero flush interval", func(c *Config) { c.Events.FlushInterval = 0 }},
		{"zero lookback", func(c *Config) { c.Events.LookbackDays = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestLoadLayering(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("server:\n  port: 9001\nsegmentation:\n  clusters: 4\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("SCENEPLUS_SERVER_PORT", "9002")
	t.Setenv("SCENEPLUS_OFFERS_DEFAULT_COUNT", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// env beats file beats defaults
	if cfg.Server.Port != 9002 {
		t.Errorf("Server.Port = %d, want 9002 (env override)", cfg.Server.Port)
	}
	if cfg.Segmentation.Clusters != 4 {
		t.Errorf("Segmentation.Clusters = %d, want 4 (file override)", cfg.Segmentation.Clusters)
	}
	if cfg.Offers.DefaultCount != 5 {
		t.Errorf("Offers.DefaultCount = %d, want 5 (env override)", cfg.Offers.DefaultCount)
	}
	if cfg.Events.BatchSize != 500 {
		t.Errorf("Events.BatchSize = %d, want default 500", cfg.Events.BatchSize)
	}
}

func TestLoadInvalidFileValue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("segmentation:\n  clusters: 1\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	if _, err := Load(); err == nil {
		t.Error("Load() = nil error for clusters=1, want validation failure")
	}
}
