package config

import (
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.BenchTime != time.Second {
		t.Errorf("expected BenchTime 1s, got %v", cfg.BenchTime)
	}
	if cfg.Warmup != 2 {
		t.Errorf("expected Warmup 2, got %d", cfg.Warmup)
	}
	if cfg.Seed != 42 {
		t.Errorf("expected Seed 42, got %d", cfg.Seed)
	}
	if cfg.Threads != 0 {
		t.Errorf("expected Threads 0 (all CPUs), got %d", cfg.Threads)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "console" {
		t.Errorf("expected info/console logging, got %s/%s", cfg.LogLevel, cfg.LogFormat)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	valid := Default()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid config", func(*Config) {}, false},
		{"zero bench time", func(c *Config) { c.BenchTime = 0 }, true},
		{"negative bench time", func(c *Config) { c.BenchTime = -time.Second }, true},
		{"negative warmup", func(c *Config) { c.Warmup = -1 }, true},
		{"zero warmup ok", func(c *Config) { c.Warmup = 0 }, false},
		{"negative threads", func(c *Config) { c.Threads = -2 }, true},
		{"json log format", func(c *Config) { c.LogFormat = "json" }, false},
		{"empty log format", func(c *Config) { c.LogFormat = "" }, false},
		{"bogus log format", func(c *Config) { c.LogFormat = "xml" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
