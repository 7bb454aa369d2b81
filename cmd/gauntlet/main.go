package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/23skdu/longbow-gauntlet/internal/bench"
	"github.com/23skdu/longbow-gauntlet/internal/config"
	"github.com/23skdu/longbow-gauntlet/internal/logger"
	"github.com/23skdu/longbow-gauntlet/internal/measure"
	"github.com/23skdu/longbow-gauntlet/internal/metrics"
	"github.com/23skdu/longbow-gauntlet/internal/registry"
	"github.com/23skdu/longbow-gauntlet/internal/sink"
)

var (
	forwardOnly = flag.Bool("forward-only", false, "Only benchmark forward ops")
	onlyRun     = flag.String("only-run", "", "Only run the ops that contain this string")
	listOps     = flag.Bool("list", false, "List registered ops and exit")
	benchTime   = flag.Duration("bench-time", time.Second, "Minimum measured time per op")
	warmup      = flag.Int("warmup", 2, "Warmup iterations per op")
	verifyOut   = flag.Bool("verify", false, "Check optimized kernels against references")
	seed        = flag.Int64("seed", 42, "RNG seed for benchmark inputs")
	threads     = flag.Int("threads", 0, "Worker count for parallel kernels (0 = all CPUs)")
	jsonPath    = flag.String("json", "", "Write results to a JSON file")
	arrowPath   = flag.String("arrow", "", "Write results to an Arrow IPC file")
	flightAddr  = flag.String("flight", "", "Publish results to an Arrow Flight endpoint")
	metricsAddr = flag.String("metrics-addr", "", "Serve Prometheus metrics on this address")
	logLevel    = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	logFormat   = flag.String("log-format", "console", "Log format (console or json)")
	failNonzero = flag.Bool("fail-nonzero", false, "Exit non-zero when any entry fails")
)

func main() {
	flag.Parse()

	cfg := config.Default()
	cfg.ForwardOnly = *forwardOnly
	cfg.OnlyRun = *onlyRun
	cfg.BenchTime = *benchTime
	cfg.Warmup = *warmup
	cfg.Verify = *verifyOut
	cfg.Seed = *seed
	cfg.Threads = *threads
	cfg.JSONPath = *jsonPath
	cfg.ArrowPath = *arrowPath
	cfg.FlightAddr = *flightAddr
	cfg.MetricsAddr = *metricsAddr
	cfg.LogLevel = *logLevel
	cfg.LogFormat = *logFormat
	cfg.FailNonzero = *failNonzero

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	logger.Setup(cfg.LogLevel, cfg.LogFormat)

	if *listOps {
		for _, name := range registry.Names() {
			fmt.Println(name)
		}
		return
	}

	if cfg.MetricsAddr != "" {
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			logger.Log.Info("metrics serving", "addr", cfg.MetricsAddr)
			if err := http.ListenAndServe(cfg.MetricsAddr, nil); err != nil {
				logger.Log.Error("metrics server error", "error", err)
			}
		}()
	}

	collector := measure.NewCollector()
	measure.SetRecorder(measure.Multi{
		measure.LogRecorder{},
		measure.PromRecorder{},
		collector,
	})

	runCfg := bench.Config{
		ForwardOnly: cfg.ForwardOnly,
		OnlyRun:     cfg.OnlyRun,
		MinTime:     cfg.BenchTime,
		Warmup:      cfg.Warmup,
		Verify:      cfg.Verify,
		Seed:        cfg.Seed,
		Threads:     cfg.Threads,
	}

	start := time.Now()
	report := bench.Run(registry.Entries(runCfg), runCfg)
	metrics.RecordSweepDuration(time.Since(start))
	logger.Log.Info("sweep complete",
		"selected", report.Selected,
		"total", report.Total,
		"failed", report.Failed(),
		"duration", time.Since(start).String(),
	)

	writeSinks(cfg, collector.Snapshot())

	if cfg.FailNonzero && report.Failed() > 0 {
		os.Exit(1)
	}
}

// writeSinks ships the collected measurements to every configured sink.
// Sink errors are logged, never fatal: the sweep already ran.
func writeSinks(cfg config.Config, ms []measure.Measurement) {
	var sinks []sink.Sink
	if cfg.JSONPath != "" {
		sinks = append(sinks, &sink.JSON{Path: cfg.JSONPath})
	}
	if cfg.ArrowPath != "" {
		sinks = append(sinks, &sink.Arrow{Path: cfg.ArrowPath})
	}
	if cfg.FlightAddr != "" {
		sinks = append(sinks, &sink.Flight{Addr: cfg.FlightAddr})
	}

	for _, s := range sinks {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := s.Write(ctx, ms); err != nil {
			logger.Log.Error("sink write failed", "sink", s.Name(), "error", err)
		} else {
			logger.Log.Info("results written", "sink", s.Name(), "measurements", len(ms))
		}
		cancel()
	}
}
