package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EntriesSelected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gauntlet_entries_selected_total",
		Help: "Benchmark entries selected by the name filter",
	})

	EntriesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gauntlet_entries_skipped_total",
		Help: "Benchmark entries skipped by the name filter",
	})

	EntriesFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gauntlet_entries_failed_total",
		Help: "Benchmark entries that ended in an error or panic",
	}, []string{"op"})

	OpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gauntlet_op_duration_seconds",
		Help:    "Per-iteration duration of benchmarked operations",
		Buckets: prometheus.ExponentialBuckets(1e-6, 4, 12),
	}, []string{"op"})

	OpNsPerOp = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gauntlet_op_ns_per_op",
		Help: "Latest ns/op measured for an operation",
	}, []string{"op"})

	OpGFLOPS = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gauntlet_op_gflops",
		Help: "Latest GFLOPS measured for an operation (0 when flop count is unknown)",
	}, []string{"op"})

	VerifyFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gauntlet_verify_failures_total",
		Help: "Kernel verification failures against the reference implementation",
	}, []string{"op"})

	SweepDuration = promauto.NewSummary(prometheus.SummaryOpts{
		Name: "gauntlet_sweep_duration_seconds",
		Help: "Wall time of a full benchmark sweep",
	})
)

func RecordSelection(selected, skipped int) {
	EntriesSelected.Add(float64(selected))
	EntriesSkipped.Add(float64(skipped))
}

func RecordEntryFailure(op string) {
	EntriesFailed.WithLabelValues(op).Inc()
}

// RecordMeasurement publishes one finished measurement. nsPerOp drives both
// the histogram (converted to seconds) and the gauge.
func RecordMeasurement(op string, nsPerOp, gflops float64) {
	OpDuration.WithLabelValues(op).Observe(nsPerOp / 1e9)
	OpNsPerOp.WithLabelValues(op).Set(nsPerOp)
	OpGFLOPS.WithLabelValues(op).Set(gflops)
}

func RecordVerifyFailure(op string) {
	VerifyFailures.WithLabelValues(op).Inc()
}

func RecordSweepDuration(d time.Duration) {
	SweepDuration.Observe(d.Seconds())
}
