package registry

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/23skdu/longbow-gauntlet/internal/bench"
	"github.com/23skdu/longbow-gauntlet/internal/measure"
)

// quickCfg keeps entries fast enough for unit tests.
func quickCfg() bench.Config {
	return bench.Config{
		MinTime:  time.Microsecond,
		Warmup:   0,
		Seed:     1,
		Threads:  2,
		Progress: io.Discard,
	}
}

func TestEntriesOrderStable(t *testing.T) {
	a := Entries(bench.Config{})
	b := Entries(bench.Config{})

	if len(a) != len(ops) {
		t.Fatalf("got %d entries, want %d", len(a), len(ops))
	}
	for i := range a {
		if a[i].Name != ops[i].name {
			t.Errorf("entry[%d] = %q, want %q (registration order)", i, a[i].Name, ops[i].name)
		}
		if a[i].Name != b[i].Name {
			t.Errorf("entry order not deterministic at %d: %q vs %q", i, a[i].Name, b[i].Name)
		}
	}
}

func TestEntriesForwardOnly(t *testing.T) {
	entries := Entries(bench.Config{ForwardOnly: true})

	backward := 0
	for _, o := range ops {
		if o.backward {
			backward++
		}
	}
	if len(entries) != len(ops)-backward {
		t.Errorf("got %d entries, want %d", len(entries), len(ops)-backward)
	}
	for _, e := range entries {
		if strings.Contains(e.Name, "_bwd") {
			t.Errorf("backward entry %q survived forward-only discovery", e.Name)
		}
	}
}

func TestNamesUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, name := range Names() {
		if seen[name] {
			t.Errorf("duplicate op name %q", name)
		}
		seen[name] = true
	}
}

func TestBackwardFlagsMatchNames(t *testing.T) {
	for _, o := range ops {
		if strings.HasSuffix(o.name, "_bwd") != o.backward {
			t.Errorf("op %q backward flag %v does not match its name", o.name, o.backward)
		}
	}
}

// TestEntriesRun executes the cheap entries end to end with verification on.
func TestEntriesRun(t *testing.T) {
	prev := measure.NewCollector()
	measure.SetRecorder(prev)
	defer measure.SetRecorder(measure.Multi{measure.LogRecorder{}, measure.PromRecorder{}})

	cfg := quickCfg()
	cfg.Verify = true

	cheap := map[string]bool{
		"softmax_fwd":        true,
		"softmax_bwd":        true,
		"online_softmax_fwd": true,
		"layernorm_fwd":      true,
		"rmsnorm_fwd":        true,
		"rope_fwd":           true,
		"swiglu_fwd":         true,
		"gelu_fwd":           true,
		"gelu_bwd":           true,
	}

	for _, e := range Entries(cfg) {
		if !cheap[e.Name] {
			continue
		}
		t.Run(e.Name, func(t *testing.T) {
			if err := e.Run(cfg); err != nil {
				t.Errorf("entry failed: %v", err)
			}
		})
	}

	if len(prev.Snapshot()) == 0 {
		t.Error("entries recorded no measurements")
	}
}

func TestAttentionKernelsEntryVerifies(t *testing.T) {
	measure.SetRecorder(nil)
	defer measure.SetRecorder(measure.Multi{measure.LogRecorder{}, measure.PromRecorder{}})

	cfg := quickCfg()
	cfg.Verify = true

	for _, e := range Entries(cfg) {
		if e.Name != "attention_kernels_fwd" {
			continue
		}
		if err := e.Run(cfg); err != nil {
			t.Errorf("kernel sweep failed verification: %v", err)
		}
		return
	}
	t.Fatal("attention_kernels_fwd not registered")
}

func TestVerifyHelper(t *testing.T) {
	if err := verify("op", []float32{1, 2}, []float32{1, 2}); err != nil {
		t.Errorf("identical slices should verify: %v", err)
	}
	if err := verify("op", []float32{1, 2}, []float32{1, 3}); err == nil {
		t.Error("divergent slices should fail verification")
	}
	if err := verify("op", []float32{1}, []float32{1, 2}); err == nil {
		t.Error("length mismatch should fail verification")
	}
}
