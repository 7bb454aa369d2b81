package config

import (
	"fmt"
	"time"
)

// Config is the harness-level configuration assembled from CLI flags. The
// measurement knobs are forwarded to entries through bench.Config; the sink
// and observability fields are consumed by the CLI itself.
type Config struct {
	ForwardOnly bool
	OnlyRun     string

	BenchTime time.Duration
	Warmup    int
	Verify    bool
	Seed      int64
	Threads   int

	JSONPath    string
	ArrowPath   string
	FlightAddr  string
	MetricsAddr string

	LogLevel  string
	LogFormat string

	FailNonzero bool
}

func (c *Config) Validate() error {
	if c.BenchTime <= 0 {
		return fmt.Errorf("invalid bench_time: %v (must be positive)", c.BenchTime)
	}
	if c.Warmup < 0 {
		return fmt.Errorf("invalid warmup: %d (must be non-negative)", c.Warmup)
	}
	if c.Threads < 0 {
		return fmt.Errorf("invalid threads: %d (must be non-negative)", c.Threads)
	}
	switch c.LogFormat {
	case "", "console", "json":
	default:
		return fmt.Errorf("invalid log_format: %q (must be console or json)", c.LogFormat)
	}
	return nil
}

func Default() Config {
	return Config{
		BenchTime: time.Second,
		Warmup:    2,
		Seed:      42,
		Threads:   0, // 0 means all CPUs
		LogLevel:  "info",
		LogFormat: "console",
	}
}
