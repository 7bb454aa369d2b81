// Package bench is the registry runner: it takes an ordered list of named
// benchmark entries, filters them by name substring, executes the surviving
// plan one entry at a time, and isolates each entry's failure from the rest
// of the sweep.
package bench

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/23skdu/longbow-gauntlet/internal/metrics"
)

// Entry is a named, independently executable benchmark unit. Entries come
// from the registry; the runner never constructs them and never looks inside
// Run beyond invoking it.
type Entry struct {
	Name string
	Run  func(Config) error
}

// Config is handed verbatim to every entry. The runner itself only reads
// OnlyRun and Progress; ForwardOnly is interpreted at discovery time by the
// registry and the measurement knobs by the entries.
type Config struct {
	ForwardOnly bool
	OnlyRun     string

	MinTime time.Duration
	Warmup  int
	Verify  bool
	Seed    int64
	Threads int

	// Progress receives the selection and progress lines. Defaults to stdout.
	Progress io.Writer
}

func (c Config) progress() io.Writer {
	if c.Progress != nil {
		return c.Progress
	}
	return os.Stdout
}

// Outcome is the per-entry disposition after a run.
type Outcome struct {
	Name string
	Err  error
}

func (o Outcome) Failed() bool { return o.Err != nil }

// Report summarizes one sweep. Callers decide how to render it; the runner
// only prints human-readable progress while building it.
type Report struct {
	Selected int
	Total    int
	Outcomes []Outcome
}

// Failed counts the entries that ended in an error.
func (r *Report) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Failed() {
			n++
		}
	}
	return n
}

// Plan walks entries in registration order and keeps the ones whose name
// contains cfg.OnlyRun (every entry when the filter is empty). The match is a
// plain case-sensitive substring, no glob or regex. One line per entry is
// printed so selection decisions are observable without running anything,
// then the selected/total summary.
func Plan(entries []Entry, cfg Config) []Entry {
	w := cfg.progress()
	plan := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if cfg.OnlyRun == "" || strings.Contains(e.Name, cfg.OnlyRun) {
			fmt.Fprintf(w, "Selected %s\n", e.Name)
			plan = append(plan, e)
		} else {
			fmt.Fprintf(w, "Skipped %s\n", e.Name)
		}
	}
	fmt.Fprintf(w, "Running selected %d/%d ops\n", len(plan), len(entries))
	metrics.RecordSelection(len(plan), len(entries)-len(plan))
	return plan
}

// Run plans and then executes the sweep sequentially. A failing entry is
// reported and recorded but never aborts the remaining plan; there are no
// retries and no timeouts, so a hung entry blocks the sweep.
func Run(entries []Entry, cfg Config) *Report {
	w := cfg.progress()
	plan := Plan(entries, cfg)

	rep := &Report{
		Selected: len(plan),
		Total:    len(entries),
		Outcomes: make([]Outcome, 0, len(plan)),
	}
	for i, e := range plan {
		fmt.Fprintf(w, "[%d/%d] Benchmarking %s\n", i+1, len(plan), e.Name)
		err := invoke(e, cfg, w)
		if err != nil {
			fmt.Fprintf(w, "Failed to benchmark %s: %v\n", e.Name, err)
			metrics.RecordEntryFailure(e.Name)
		}
		rep.Outcomes = append(rep.Outcomes, Outcome{Name: e.Name, Err: err})
	}
	return rep
}

// invoke runs one entry with a recover barrier so a panicking benchmark is
// downgraded to an error at the entry boundary.
func invoke(e Entry, cfg Config, w io.Writer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			w.Write(debug.Stack())
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return e.Run(cfg)
}
