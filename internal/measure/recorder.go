package measure

import (
	"sync"

	"github.com/23skdu/longbow-gauntlet/internal/logger"
	"github.com/23skdu/longbow-gauntlet/internal/metrics"
)

// Recorder receives finished measurements. Implementations must be safe for
// use from a single sweep goroutine; nothing here is called concurrently.
type Recorder interface {
	Record(Measurement)
}

var (
	recMu  sync.Mutex
	active Recorder = Multi{LogRecorder{}, PromRecorder{}}
)

// SetRecorder replaces the process-wide recorder set.
func SetRecorder(r Recorder) {
	recMu.Lock()
	active = r
	recMu.Unlock()
}

// Record hands m to the active recorder.
func Record(m Measurement) {
	recMu.Lock()
	r := active
	recMu.Unlock()
	if r != nil {
		r.Record(m)
	}
}

// LogRecorder writes each measurement to the structured log.
type LogRecorder struct{}

func (LogRecorder) Record(m Measurement) {
	logger.Log.Info("benchmark result",
		"op", m.Op,
		"iterations", m.Iterations,
		"ns_per_op", m.NsPerOp,
		"ops_per_sec", m.OpsPerSec,
		"gflops", m.GFLOPS,
		"alloc_bytes", m.AllocBytes,
	)
}

// PromRecorder publishes each measurement to the prometheus collectors.
type PromRecorder struct{}

func (PromRecorder) Record(m Measurement) {
	metrics.RecordMeasurement(m.Op, m.NsPerOp, m.GFLOPS)
}

// Collector keeps measurements in memory for the result sinks.
type Collector struct {
	mu sync.Mutex
	ms []Measurement
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Record(m Measurement) {
	c.mu.Lock()
	c.ms = append(c.ms, m)
	c.mu.Unlock()
}

// Snapshot returns a copy of everything recorded so far.
func (c *Collector) Snapshot() []Measurement {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Measurement, len(c.ms))
	copy(out, c.ms)
	return out
}

// Multi fans a measurement out to every recorder in order.
type Multi []Recorder

func (m Multi) Record(meas Measurement) {
	for _, r := range m {
		r.Record(meas)
	}
}
