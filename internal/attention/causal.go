package attention

import (
	"fmt"
	"math"

	"github.com/23skdu/longbow-gauntlet/internal/device"
)

// Causal is a decoder self-attention block: fused QKV projection, implicit
// lower-triangular mask inside the kernel, and an output projection. The
// residual dropout slot is identity here, matching inference-only kernels.
type Causal struct {
	ctx     *device.Context
	hidden  int
	heads   int
	headDim int
	kernel  device.AttentionKernel

	wqkv  *device.Tensor // [hidden, 3*hidden]
	wproj *device.Tensor // [hidden, hidden]
}

func NewCausal(ctx *device.Context, hidden, heads int, kernelName string) (*Causal, error) {
	if heads <= 0 {
		return nil, fmt.Errorf("invalid heads: %d (must be positive)", heads)
	}
	if hidden%heads != 0 {
		return nil, fmt.Errorf("hidden size %d is not a multiple of the number of attention heads %d", hidden, heads)
	}
	kernel, err := KernelByName(kernelName)
	if err != nil {
		return nil, err
	}

	scale := float32(1.0 / math.Sqrt(float64(hidden)))
	return &Causal{
		ctx:     ctx,
		hidden:  hidden,
		heads:   heads,
		headDim: hidden / heads,
		kernel:  kernel,
		wqkv:    device.FromSlice(ctx.RandSlice(hidden*3*hidden, scale), hidden, 3*hidden),
		wproj:   device.FromSlice(ctx.RandSlice(hidden*hidden, scale), hidden, hidden),
	}, nil
}

// Forward runs the block over x of shape [batch*seq, hidden]. Position i
// attends only to positions <= i. External attention masks are not
// supported; the causal structure is built into the kernel call.
func (c *Causal) Forward(x []float32, batch, seq int) ([]float32, error) {
	if len(x) != batch*seq*c.hidden {
		return nil, fmt.Errorf("input length %d does not match batch %d x seq %d x hidden %d", len(x), batch, seq, c.hidden)
	}

	rows := batch * seq
	qkv := make([]float32, rows*3*c.hidden)
	c.ctx.MatMul(device.FromSlice(x, rows, c.hidden), c.wqkv, device.FromSlice(qkv, rows, 3*c.hidden))

	q := make([]float32, rows*c.hidden)
	k := make([]float32, rows*c.hidden)
	v := make([]float32, rows*c.hidden)
	for r := 0; r < rows; r++ {
		row := qkv[r*3*c.hidden : (r+1)*3*c.hidden]
		copy(q[r*c.hidden:], row[:c.hidden])
		copy(k[r*c.hidden:], row[c.hidden:2*c.hidden])
		copy(v[r*c.hidden:], row[2*c.hidden:])
	}

	ctxOut := make([]float32, rows*c.hidden)
	scores := make([]float32, seq*seq)
	qh := make([]float32, seq*c.headDim)
	kh := make([]float32, seq*c.headDim)
	vh := make([]float32, seq*c.headDim)
	oh := make([]float32, seq*c.headDim)
	scale := float32(1.0 / math.Sqrt(float64(c.headDim)))

	for b := 0; b < batch; b++ {
		for h := 0; h < c.heads; h++ {
			gatherHead(q, qh, b, h, seq, c.heads, c.headDim)
			gatherHead(k, kh, b, h, seq, c.heads, c.headDim)
			gatherHead(v, vh, b, h, seq, c.heads, c.headDim)
			c.kernel(qh, kh, vh, nil, scores, oh, seq, seq, c.headDim, scale, true)
			scatterHead(oh, ctxOut, b, h, seq, c.heads, c.headDim)
		}
	}

	out := make([]float32, rows*c.hidden)
	c.ctx.MatMul(device.FromSlice(ctxOut, rows, c.hidden), c.wproj, device.FromSlice(out, rows, c.hidden))
	return out, nil
}
