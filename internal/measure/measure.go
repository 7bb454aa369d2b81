// Package measure times benchmark closures and hands the results to the
// process-wide recorder set. Entries call Run and stay ignorant of where
// the numbers end up.
package measure

import (
	"runtime"
	"time"

	"github.com/23skdu/longbow-gauntlet/internal/bench"
)

// Measurement is one finished timing of a named operation.
type Measurement struct {
	Op         string    `json:"op"`
	Iterations int       `json:"iterations"`
	TotalNs    int64     `json:"total_ns"`
	NsPerOp    float64   `json:"ns_per_op"`
	MinNs      int64     `json:"min_ns"`
	MaxNs      int64     `json:"max_ns"`
	OpsPerSec  float64   `json:"ops_per_sec"`
	GFLOPS     float64   `json:"gflops,omitempty"`
	AllocBytes int64     `json:"alloc_bytes"`
	NumGC      uint32    `json:"num_gc"`
	Timestamp  time.Time `json:"timestamp"`
}

// Run times fn: warmup iterations first, then repeated batches (doubling up
// to a cap) until cfg.MinTime of measured work has accumulated. flops is
// the per-iteration floating point work, 0 when unknown. The measurement is
// recorded through the active recorder and returned.
func Run(op string, flops float64, cfg bench.Config, fn func()) Measurement {
	for i := 0; i < cfg.Warmup; i++ {
		fn()
	}

	minTime := cfg.MinTime
	if minTime <= 0 {
		minTime = time.Second
	}

	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)

	var total time.Duration
	iters := 0
	minNs := int64(1<<63 - 1)
	maxNs := int64(0)
	batch := 1
	for total < minTime {
		for i := 0; i < batch; i++ {
			start := time.Now()
			fn()
			d := time.Since(start)
			total += d
			iters++
			ns := d.Nanoseconds()
			if ns < minNs {
				minNs = ns
			}
			if ns > maxNs {
				maxNs = ns
			}
		}
		if batch < 1024 {
			batch *= 2
		}
	}

	runtime.ReadMemStats(&after)

	nsPerOp := float64(total.Nanoseconds()) / float64(iters)
	m := Measurement{
		Op:         op,
		Iterations: iters,
		TotalNs:    total.Nanoseconds(),
		NsPerOp:    nsPerOp,
		MinNs:      minNs,
		MaxNs:      maxNs,
		OpsPerSec:  1e9 / nsPerOp,
		AllocBytes: int64(after.TotalAlloc - before.TotalAlloc),
		NumGC:      after.NumGC - before.NumGC,
		Timestamp:  time.Now(),
	}
	if flops > 0 {
		m.GFLOPS = flops / nsPerOp
	}
	Record(m)
	return m
}
