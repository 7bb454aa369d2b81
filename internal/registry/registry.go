// Package registry is the explicit registration table of operator
// benchmarks. Entries are plain data built at startup and handed to the
// runner in declaration order; there is no runtime discovery.
package registry

import (
	"fmt"
	"math"

	"github.com/23skdu/longbow-gauntlet/internal/attention"
	"github.com/23skdu/longbow-gauntlet/internal/bench"
	"github.com/23skdu/longbow-gauntlet/internal/device"
	"github.com/23skdu/longbow-gauntlet/internal/measure"
	"github.com/23skdu/longbow-gauntlet/internal/metrics"
)

// Benchmark shapes follow a small transformer block: big enough to exercise
// the cache hierarchy, small enough that a full sweep stays in minutes.
const (
	batchSize = 2
	seqLen    = 128
	hidden    = 256
	heads     = 8
	headDim   = hidden / heads
	ffnDim    = 4 * hidden
	matmulDim = 256
	ropeTheta = 10000.0
	normEps   = 1e-5
)

// verifyTol is the agreement bound between an optimized kernel and its
// float32 reference.
const verifyTol = 1e-3

type op struct {
	name     string
	backward bool
	run      func(bench.Config) error
}

// ops is the registration table. Order is significant: it is the order the
// runner sees and must never be sorted.
var ops = []op{
	{"softmax_fwd", false, benchSoftmaxFwd},
	{"softmax_bwd", true, benchSoftmaxBwd},
	{"online_softmax_fwd", false, benchOnlineSoftmaxFwd},
	{"matmul_naive_fwd", false, benchMatMulNaiveFwd},
	{"matmul_blocked_fwd", false, benchMatMulBlockedFwd},
	{"matmul_parallel_fwd", false, benchMatMulParallelFwd},
	{"matmul_bwd", true, benchMatMulBwd},
	{"layernorm_fwd", false, benchLayerNormFwd},
	{"layernorm_bwd", true, benchLayerNormBwd},
	{"rmsnorm_fwd", false, benchRMSNormFwd},
	{"rope_fwd", false, benchRoPEFwd},
	{"swiglu_fwd", false, benchSwiGLUFwd},
	{"gelu_fwd", false, benchGELUFwd},
	{"gelu_bwd", true, benchGELUBwd},
	{"qkv_split_fwd", false, benchQKVSplitFwd},
	{"qkv_fused_fwd", false, benchQKVFusedFwd},
	{"attention_self_fwd", false, benchAttentionSelfFwd},
	{"attention_self_bwd", true, benchAttentionSelfBwd},
	{"attention_causal_fwd", false, benchAttentionCausalFwd},
	{"attention_kernels_fwd", false, benchAttentionKernelsFwd},
}

// Entries returns the ordered entry snapshot for one run. With ForwardOnly
// set, backward-pass entries are dropped here so the runner never sees them.
func Entries(cfg bench.Config) []bench.Entry {
	out := make([]bench.Entry, 0, len(ops))
	for _, o := range ops {
		if cfg.ForwardOnly && o.backward {
			continue
		}
		out = append(out, bench.Entry{Name: o.name, Run: o.run})
	}
	return out
}

// Names lists every registered op in registration order, ignoring filters.
func Names() []string {
	names := make([]string, len(ops))
	for i, o := range ops {
		names[i] = o.name
	}
	return names
}

func newCtx(cfg bench.Config) *device.Context {
	return device.NewContext(cfg.Threads, cfg.Seed)
}

// verify compares got against a reference and fails the entry on breach.
func verify(opName string, got, want []float32) error {
	if diff := device.MaxAbsDiff(got, want); diff > verifyTol {
		metrics.RecordVerifyFailure(opName)
		return fmt.Errorf("%s verification failed: max abs diff %g exceeds %g", opName, diff, verifyTol)
	}
	if device.HasNaNOrInf(got) {
		metrics.RecordVerifyFailure(opName)
		return fmt.Errorf("%s verification failed: non-finite values in output", opName)
	}
	return nil
}

func matmulFlops(m, k, n int) float64 {
	return 2 * float64(m) * float64(k) * float64(n)
}

func attentionFlops(b, h, s, d int) float64 {
	// Q@K^T and P@V, 2*s*s*d each per head.
	return 4 * float64(b) * float64(h) * float64(s) * float64(s) * float64(d)
}

func benchSoftmaxFwd(cfg bench.Config) error {
	ctx := newCtx(cfg)
	rows := batchSize * heads * seqLen
	x := ctx.Rand(rows, seqLen)
	work := ctx.NewTensor(rows, seqLen)

	measure.Run("softmax_fwd", 0, cfg, func() {
		work.CopyFrom(x)
		device.Softmax(work)
	})

	if cfg.Verify && device.HasNaNOrInf(work.Data) {
		metrics.RecordVerifyFailure("softmax_fwd")
		return fmt.Errorf("softmax_fwd verification failed: non-finite values in output")
	}
	return nil
}

func benchSoftmaxBwd(cfg bench.Config) error {
	ctx := newCtx(cfg)
	rows := batchSize * heads * seqLen
	y := ctx.Rand(rows, seqLen)
	device.Softmax(y)
	gradY := ctx.Rand(rows, seqLen)
	gradX := ctx.NewTensor(rows, seqLen)

	measure.Run("softmax_bwd", 0, cfg, func() {
		device.SoftmaxBackward(y, gradY, gradX)
	})
	return nil
}

func benchOnlineSoftmaxFwd(cfg bench.Config) error {
	ctx := newCtx(cfg)
	rows := batchSize * heads * seqLen
	x := ctx.Rand(rows, seqLen)
	out := ctx.NewTensor(rows, seqLen)

	measure.Run("online_softmax_fwd", 0, cfg, func() {
		device.OnlineSoftmax(x, out)
	})

	if cfg.Verify {
		want := ctx.NewTensor(rows, seqLen)
		want.CopyFrom(x)
		device.Softmax(want)
		return verify("online_softmax_fwd", out.Data, want.Data)
	}
	return nil
}

func benchMatMulNaiveFwd(cfg bench.Config) error {
	ctx := newCtx(cfg)
	a := ctx.Rand(matmulDim, matmulDim)
	b := ctx.Rand(matmulDim, matmulDim)
	out := ctx.NewTensor(matmulDim, matmulDim)

	measure.Run("matmul_naive_fwd", matmulFlops(matmulDim, matmulDim, matmulDim), cfg, func() {
		device.MatMulNaive(a, b, out)
	})
	return nil
}

func benchMatMulBlockedFwd(cfg bench.Config) error {
	ctx := newCtx(cfg)
	a := ctx.Rand(matmulDim, matmulDim)
	b := ctx.Rand(matmulDim, matmulDim)
	out := ctx.NewTensor(matmulDim, matmulDim)

	measure.Run("matmul_blocked_fwd", matmulFlops(matmulDim, matmulDim, matmulDim), cfg, func() {
		device.MatMulBlocked(a, b, out)
	})

	if cfg.Verify {
		want := ctx.NewTensor(matmulDim, matmulDim)
		device.MatMulNaive(a, b, want)
		return verify("matmul_blocked_fwd", out.Data, want.Data)
	}
	return nil
}

func benchMatMulParallelFwd(cfg bench.Config) error {
	ctx := newCtx(cfg)
	a := ctx.Rand(matmulDim, matmulDim)
	b := ctx.Rand(matmulDim, matmulDim)
	out := ctx.NewTensor(matmulDim, matmulDim)

	measure.Run("matmul_parallel_fwd", matmulFlops(matmulDim, matmulDim, matmulDim), cfg, func() {
		ctx.MatMul(a, b, out)
	})

	if cfg.Verify {
		want := ctx.NewTensor(matmulDim, matmulDim)
		device.MatMulNaive(a, b, want)
		return verify("matmul_parallel_fwd", out.Data, want.Data)
	}
	return nil
}

func benchMatMulBwd(cfg bench.Config) error {
	ctx := newCtx(cfg)
	a := ctx.Rand(matmulDim, matmulDim)
	b := ctx.Rand(matmulDim, matmulDim)
	gradOut := ctx.Rand(matmulDim, matmulDim)
	gradA := ctx.NewTensor(matmulDim, matmulDim)
	gradB := ctx.NewTensor(matmulDim, matmulDim)

	// Two matmuls' worth of work per iteration.
	measure.Run("matmul_bwd", 2*matmulFlops(matmulDim, matmulDim, matmulDim), cfg, func() {
		device.MatMulBackward(a, b, gradOut, gradA, gradB)
	})
	return nil
}

func benchLayerNormFwd(cfg bench.Config) error {
	ctx := newCtx(cfg)
	rows := batchSize * seqLen
	x := ctx.Rand(rows, hidden)
	gamma := ctx.Rand(hidden)
	beta := ctx.Rand(hidden)
	out := ctx.NewTensor(rows, hidden)

	measure.Run("layernorm_fwd", 0, cfg, func() {
		device.LayerNorm(x, gamma, beta, out, normEps)
	})
	return nil
}

func benchLayerNormBwd(cfg bench.Config) error {
	ctx := newCtx(cfg)
	rows := batchSize * seqLen
	x := ctx.Rand(rows, hidden)
	gamma := ctx.Rand(hidden)
	gradY := ctx.Rand(rows, hidden)
	gradX := ctx.NewTensor(rows, hidden)
	gradGamma := ctx.NewTensor(hidden)
	gradBeta := ctx.NewTensor(hidden)

	measure.Run("layernorm_bwd", 0, cfg, func() {
		for i := range gradGamma.Data {
			gradGamma.Data[i] = 0
			gradBeta.Data[i] = 0
		}
		device.LayerNormBackward(x, gamma, gradY, gradX, gradGamma, gradBeta, normEps)
	})
	return nil
}

func benchRMSNormFwd(cfg bench.Config) error {
	ctx := newCtx(cfg)
	rows := batchSize * seqLen
	x := ctx.Rand(rows, hidden)
	w := ctx.Rand(hidden)
	out := ctx.NewTensor(rows, hidden)

	measure.Run("rmsnorm_fwd", 0, cfg, func() {
		ctx.RMSNorm(x, w, out, normEps)
	})
	return nil
}

func benchRoPEFwd(cfg bench.Config) error {
	ctx := newCtx(cfg)
	q := ctx.Rand(seqLen, hidden)
	work := ctx.NewTensor(seqLen, hidden)

	measure.Run("rope_fwd", 0, cfg, func() {
		work.CopyFrom(q)
		device.RoPE(work, heads, headDim, ropeTheta)
	})
	return nil
}

func benchSwiGLUFwd(cfg bench.Config) error {
	ctx := newCtx(cfg)
	rows := batchSize * seqLen
	gate := ctx.Rand(rows, ffnDim)
	up := ctx.Rand(rows, ffnDim)
	out := ctx.NewTensor(rows, ffnDim)

	measure.Run("swiglu_fwd", 0, cfg, func() {
		device.SwiGLU(gate, up, out)
	})
	return nil
}

func benchGELUFwd(cfg bench.Config) error {
	ctx := newCtx(cfg)
	rows := batchSize * seqLen
	x := ctx.Rand(rows, ffnDim)
	out := ctx.NewTensor(rows, ffnDim)

	measure.Run("gelu_fwd", 0, cfg, func() {
		device.GELU(x, out)
	})
	return nil
}

func benchGELUBwd(cfg bench.Config) error {
	ctx := newCtx(cfg)
	rows := batchSize * seqLen
	x := ctx.Rand(rows, ffnDim)
	gradY := ctx.Rand(rows, ffnDim)
	gradX := ctx.NewTensor(rows, ffnDim)

	measure.Run("gelu_bwd", 0, cfg, func() {
		device.GELUBackward(x, gradY, gradX)
	})
	return nil
}

func benchQKVSplitFwd(cfg bench.Config) error {
	return benchQKV(cfg, "qkv_split_fwd", false)
}

func benchQKVFusedFwd(cfg bench.Config) error {
	return benchQKV(cfg, "qkv_fused_fwd", true)
}

// benchQKV times just the projection half of the encoder block: three
// separate hidden x hidden matmuls versus one fused hidden x 3*hidden.
func benchQKV(cfg bench.Config, name string, fused bool) error {
	ctx := newCtx(cfg)
	rows := batchSize * seqLen
	x := ctx.Rand(rows, hidden)

	if fused {
		w := ctx.Rand(hidden, 3*hidden)
		out := ctx.NewTensor(rows, 3*hidden)
		measure.Run(name, matmulFlops(rows, hidden, 3*hidden), cfg, func() {
			ctx.MatMul(x, w, out)
		})
		return nil
	}

	wq := ctx.Rand(hidden, hidden)
	wk := ctx.Rand(hidden, hidden)
	wv := ctx.Rand(hidden, hidden)
	q := ctx.NewTensor(rows, hidden)
	k := ctx.NewTensor(rows, hidden)
	v := ctx.NewTensor(rows, hidden)
	measure.Run(name, 3*matmulFlops(rows, hidden, hidden), cfg, func() {
		ctx.MatMul(x, wq, q)
		ctx.MatMul(x, wk, k)
		ctx.MatMul(x, wv, v)
	})
	return nil
}

func benchAttentionSelfFwd(cfg bench.Config) error {
	ctx := newCtx(cfg)
	self, err := attention.NewSelf(ctx, hidden, heads, "flash", true)
	if err != nil {
		return err
	}
	x := ctx.RandSlice(batchSize*seqLen*hidden, 1.0)
	mask := make([]float32, batchSize*seqLen) // no padding

	var out []float32
	measure.Run("attention_self_fwd", attentionFlops(batchSize, heads, seqLen, headDim), cfg, func() {
		out, err = self.Forward(x, batchSize, seqLen, mask)
	})
	if err != nil {
		return err
	}

	if cfg.Verify {
		ref, refErr := attention.NewSelf(newCtx(cfg), hidden, heads, "reference", true)
		if refErr != nil {
			return refErr
		}
		want, refErr := ref.Forward(x, batchSize, seqLen, mask)
		if refErr != nil {
			return refErr
		}
		return verify("attention_self_fwd", out, want)
	}
	return nil
}

func benchAttentionSelfBwd(cfg bench.Config) error {
	ctx := newCtx(cfg)
	q := ctx.RandSlice(seqLen*headDim, 1.0)
	k := ctx.RandSlice(seqLen*headDim, 1.0)
	v := ctx.RandSlice(seqLen*headDim, 1.0)
	gradOut := ctx.RandSlice(seqLen*headDim, 1.0)
	gradQ := make([]float32, seqLen*headDim)
	gradK := make([]float32, seqLen*headDim)
	gradV := make([]float32, seqLen*headDim)
	scale := float32(1.0 / math.Sqrt(float64(headDim)))

	measure.Run("attention_self_bwd", 2*attentionFlops(1, 1, seqLen, headDim), cfg, func() {
		for i := range gradQ {
			gradQ[i] = 0
			gradK[i] = 0
			gradV[i] = 0
		}
		device.AttentionBackward(q, k, v, nil, gradOut, gradQ, gradK, gradV, seqLen, seqLen, headDim, scale, false)
	})
	return nil
}

func benchAttentionCausalFwd(cfg bench.Config) error {
	ctx := newCtx(cfg)
	causal, err := attention.NewCausal(ctx, hidden, heads, "flash")
	if err != nil {
		return err
	}
	x := ctx.RandSlice(batchSize*seqLen*hidden, 1.0)

	measure.Run("attention_causal_fwd", attentionFlops(batchSize, heads, seqLen, headDim), cfg, func() {
		_, err = causal.Forward(x, batchSize, seqLen)
	})
	return err
}

// benchAttentionKernelsFwd sweeps the raw single-head kernels against each
// other on identical inputs, one sub-measurement per kernel.
func benchAttentionKernelsFwd(cfg bench.Config) error {
	ctx := newCtx(cfg)
	q := ctx.RandSlice(seqLen*headDim, 1.0)
	k := ctx.RandSlice(seqLen*headDim, 1.0)
	v := ctx.RandSlice(seqLen*headDim, 1.0)
	scores := make([]float32, seqLen*seqLen)
	scale := float32(1.0 / math.Sqrt(float64(headDim)))

	kernels := []struct {
		name   string
		kernel device.AttentionKernel
	}{
		{"reference", device.AttentionReference},
		{"blocked", device.AttentionBlocked},
		{"flash", device.AttentionFlash},
	}

	var want []float32
	for _, kk := range kernels {
		out := make([]float32, seqLen*headDim)
		kernel := kk.kernel
		measure.Run("attention_kernels_fwd/"+kk.name, attentionFlops(1, 1, seqLen, headDim), cfg, func() {
			kernel(q, k, v, nil, scores, out, seqLen, seqLen, headDim, scale, false)
		})

		if kk.name == "reference" {
			want = out
			continue
		}
		if cfg.Verify {
			if err := verify("attention_kernels_fwd/"+kk.name, out, want); err != nil {
				return err
			}
		}
	}
	return nil
}
