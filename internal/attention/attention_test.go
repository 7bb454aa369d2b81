package attention

import (
	"strings"
	"testing"

	"github.com/23skdu/longbow-gauntlet/internal/device"
)

func TestKernelByName(t *testing.T) {
	for _, name := range []string{"reference", "blocked", "flash"} {
		t.Run(name, func(t *testing.T) {
			kernel, err := KernelByName(name)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if kernel == nil {
				t.Fatal("nil kernel")
			}
		})
	}

	_, err := KernelByName("cutlass")
	if err == nil {
		t.Fatal("expected error for unknown kernel")
	}
	if !strings.Contains(err.Error(), "cutlass") {
		t.Errorf("error should name the bad kernel: %v", err)
	}
}

func TestNewSelfValidation(t *testing.T) {
	ctx := device.NewContext(1, 1)

	tests := []struct {
		name    string
		hidden  int
		heads   int
		kernel  string
		wantErr bool
	}{
		{"valid", 64, 8, "reference", false},
		{"valid fused", 64, 8, "flash", false},
		{"indivisible", 65, 8, "reference", true},
		{"zero heads", 64, 0, "reference", true},
		{"negative heads", 64, -1, "reference", true},
		{"bad kernel", 64, 8, "triton", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSelf(ctx, tt.hidden, tt.heads, tt.kernel, false)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewSelf error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLayoutMask(t *testing.T) {
	const batch, seq, heads = 2, 3, 2
	mask := []float32{
		0, 0, -1e9, // batch 0: key 2 padded
		0, -1e9, -1e9, // batch 1: keys 1,2 padded
	}

	out := LayoutMask(mask, batch, seq, heads)

	if len(out) != batch*heads*seq*seq {
		t.Fatalf("len = %d, want %d", len(out), batch*heads*seq*seq)
	}

	// Block (h*batch + b) holds batch b's key mask on every query row.
	for h := 0; h < heads; h++ {
		for b := 0; b < batch; b++ {
			base := (h*batch + b) * seq * seq
			for i := 0; i < seq; i++ {
				for j := 0; j < seq; j++ {
					want := mask[b*seq+j]
					if out[base+i*seq+j] != want {
						t.Fatalf("block(h=%d,b=%d) row %d col %d = %v, want %v",
							h, b, i, j, out[base+i*seq+j], want)
					}
				}
			}
		}
	}
}

func TestSelfForwardShapes(t *testing.T) {
	const batch, seq, hidden, heads = 2, 8, 32, 4
	ctx := device.NewContext(1, 5)
	self, err := NewSelf(ctx, hidden, heads, "reference", false)
	if err != nil {
		t.Fatal(err)
	}

	x := ctx.RandSlice(batch*seq*hidden, 1.0)
	out, err := self.Forward(x, batch, seq, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != batch*seq*hidden {
		t.Errorf("output length %d, want %d", len(out), batch*seq*hidden)
	}
	if device.HasNaNOrInf(out) {
		t.Error("non-finite values in output")
	}

	if _, err := self.Forward(x[:10], batch, seq, nil); err == nil {
		t.Error("expected error for short input")
	}
	if _, err := self.Forward(x, batch, seq, make([]float32, 3)); err == nil {
		t.Error("expected error for wrong mask shape")
	}
}

func TestSelfKernelsAgree(t *testing.T) {
	const batch, seq, hidden, heads = 1, 8, 32, 4
	x := device.NewContext(1, 13).RandSlice(batch*seq*hidden, 1.0)
	mask := make([]float32, batch*seq)
	mask[seq-1] = -1e9 // pad the last key

	outputs := map[string][]float32{}
	for _, kernel := range []string{"reference", "blocked", "flash"} {
		// Same seed each time so every module draws identical weights.
		ctx := device.NewContext(1, 99)
		self, err := NewSelf(ctx, hidden, heads, kernel, false)
		if err != nil {
			t.Fatal(err)
		}
		out, err := self.Forward(x, batch, seq, mask)
		if err != nil {
			t.Fatal(err)
		}
		outputs[kernel] = out
	}

	for _, kernel := range []string{"blocked", "flash"} {
		if diff := device.MaxAbsDiff(outputs[kernel], outputs["reference"]); diff > 1e-3 {
			t.Errorf("%s kernel diverges from reference by %v", kernel, diff)
		}
	}
}

func TestSelfFusedMatchesShapes(t *testing.T) {
	const batch, seq, hidden, heads = 1, 4, 16, 2
	ctx := device.NewContext(1, 23)
	self, err := NewSelf(ctx, hidden, heads, "flash", true)
	if err != nil {
		t.Fatal(err)
	}

	x := ctx.RandSlice(batch*seq*hidden, 1.0)
	out, err := self.Forward(x, batch, seq, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != batch*seq*hidden {
		t.Errorf("output length %d, want %d", len(out), batch*seq*hidden)
	}
	if device.HasNaNOrInf(out) {
		t.Error("non-finite values in output")
	}
}

func TestSelfPaddedKeyIgnored(t *testing.T) {
	const batch, seq, hidden, heads = 1, 6, 16, 2
	x := device.NewContext(1, 31).RandSlice(batch*seq*hidden, 1.0)

	mask := make([]float32, batch*seq)
	mask[seq-1] = -1e9

	run := func(input []float32) []float32 {
		ctx := device.NewContext(1, 77)
		self, err := NewSelf(ctx, hidden, heads, "reference", false)
		if err != nil {
			t.Fatal(err)
		}
		out, err := self.Forward(input, batch, seq, mask)
		if err != nil {
			t.Fatal(err)
		}
		return out
	}

	base := run(x)

	// Change the padded position's input; all other positions' outputs must
	// stay put since the padded key carries ~zero attention weight.
	x2 := append([]float32(nil), x...)
	for d := 0; d < hidden; d++ {
		x2[(seq-1)*hidden+d] += 3
	}
	perturbed := run(x2)

	if diff := device.MaxAbsDiff(base[:(seq-1)*hidden], perturbed[:(seq-1)*hidden]); diff > 1e-4 {
		t.Errorf("padded key leaked into other positions, diff %v", diff)
	}
}

func TestNewCausalValidation(t *testing.T) {
	ctx := device.NewContext(1, 1)

	if _, err := NewCausal(ctx, 65, 8, "reference"); err == nil {
		t.Error("expected error for indivisible hidden size")
	}
	if _, err := NewCausal(ctx, 64, 8, "vanilla"); err == nil {
		t.Error("expected error for unknown kernel")
	}
	if _, err := NewCausal(ctx, 64, 8, "flash"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestCausalForwardIgnoresFuture(t *testing.T) {
	const batch, seq, hidden, heads = 1, 6, 16, 2
	x := device.NewContext(1, 41).RandSlice(batch*seq*hidden, 1.0)

	run := func(input []float32) []float32 {
		ctx := device.NewContext(1, 88)
		causal, err := NewCausal(ctx, hidden, heads, "reference")
		if err != nil {
			t.Fatal(err)
		}
		out, err := causal.Forward(input, batch, seq)
		if err != nil {
			t.Fatal(err)
		}
		return out
	}

	base := run(x)

	x2 := append([]float32(nil), x...)
	for d := 0; d < hidden; d++ {
		x2[(seq-1)*hidden+d] += 3
	}
	perturbed := run(x2)

	if diff := device.MaxAbsDiff(base[:(seq-1)*hidden], perturbed[:(seq-1)*hidden]); diff > 1e-5 {
		t.Errorf("future position leaked backwards, diff %v", diff)
	}
	if device.MaxAbsDiff(base[(seq-1)*hidden:], perturbed[(seq-1)*hidden:]) == 0 {
		t.Error("last position should change with its own input")
	}
}

func TestCausalKernelsAgree(t *testing.T) {
	const batch, seq, hidden, heads = 1, 8, 32, 4
	x := device.NewContext(1, 47).RandSlice(batch*seq*hidden, 1.0)

	outputs := map[string][]float32{}
	for _, kernel := range []string{"reference", "blocked", "flash"} {
		ctx := device.NewContext(1, 55)
		causal, err := NewCausal(ctx, hidden, heads, kernel)
		if err != nil {
			t.Fatal(err)
		}
		out, err := causal.Forward(x, batch, seq)
		if err != nil {
			t.Fatal(err)
		}
		outputs[kernel] = out
	}

	for _, kernel := range []string{"blocked", "flash"} {
		if diff := device.MaxAbsDiff(outputs[kernel], outputs["reference"]); diff > 1e-3 {
			t.Errorf("%s kernel diverges from reference by %v", kernel, diff)
		}
	}
}

func TestHeadDims(t *testing.T) {
	ctx := device.NewContext(1, 1)
	self, err := NewSelf(ctx, 96, 12, "reference", false)
	if err != nil {
		t.Fatal(err)
	}
	if self.Heads() != 12 || self.HeadDim() != 8 {
		t.Errorf("heads/headDim = %d/%d, want 12/8", self.Heads(), self.HeadDim())
	}
}
