// Package attention provides transformer self-attention modules with a
// pluggable single-head kernel chosen by name. The modules own their
// (seeded random) projection weights and do the head bookkeeping; the math
// lives in internal/device.
package attention

import (
	"fmt"
	"math"

	"github.com/23skdu/longbow-gauntlet/internal/device"
)

// KernelByName resolves an attention kernel. Valid names are "reference",
// "blocked" and "flash".
func KernelByName(name string) (device.AttentionKernel, error) {
	switch name {
	case "reference":
		return device.AttentionReference, nil
	case "blocked":
		return device.AttentionBlocked, nil
	case "flash":
		return device.AttentionFlash, nil
	default:
		return nil, fmt.Errorf("unknown attention kernel %q", name)
	}
}

// Self is an encoder self-attention block: Q/K/V projections (split or
// fused), per-head kernel invocation with an optional additive key padding
// mask, and the head merge back to hidden size. Cross-attention and head
// masks are not supported.
type Self struct {
	ctx     *device.Context
	hidden  int
	heads   int
	headDim int
	fused   bool
	kernel  device.AttentionKernel

	// split weights, each [hidden, hidden]
	wq, wk, wv *device.Tensor
	// fused weight [hidden, 3*hidden], used instead of the three above
	wqkv *device.Tensor
}

// NewSelf builds an encoder block. hidden must divide evenly by heads.
func NewSelf(ctx *device.Context, hidden, heads int, kernelName string, fusedQKV bool) (*Self, error) {
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

	s := &Self{
		ctx:     ctx,
		hidden:  hidden,
		heads:   heads,
		headDim: hidden / heads,
		fused:   fusedQKV,
		kernel:  kernel,
	}
	scale := float32(1.0 / math.Sqrt(float64(hidden)))
	if fusedQKV {
		s.wqkv = device.FromSlice(ctx.RandSlice(hidden*3*hidden, scale), hidden, 3*hidden)
	} else {
		s.wq = device.FromSlice(ctx.RandSlice(hidden*hidden, scale), hidden, hidden)
		s.wk = device.FromSlice(ctx.RandSlice(hidden*hidden, scale), hidden, hidden)
		s.wv = device.FromSlice(ctx.RandSlice(hidden*hidden, scale), hidden, hidden)
	}
	return s, nil
}

func (s *Self) Heads() int   { return s.heads }
func (s *Self) HeadDim() int { return s.headDim }

// Forward runs the block over x of shape [batch*seq, hidden]. keyMask is an
// additive per-key mask of shape [batch, seq] (nil for none); it is expanded
// to the [batch*heads, seq, seq] kernel layout by LayoutMask. The result has
// the same shape as x.
func (s *Self) Forward(x []float32, batch, seq int, keyMask []float32) ([]float32, error) {
	if len(x) != batch*seq*s.hidden {
		return nil, fmt.Errorf("input length %d does not match batch %d x seq %d x hidden %d", len(x), batch, seq, s.hidden)
	}
	if keyMask != nil && len(keyMask) != batch*seq {
		return nil, fmt.Errorf("key mask length %d does not match batch %d x seq %d", len(keyMask), batch, seq)
	}

	q, k, v := s.project(x, batch*seq)

	var mask []float32
	if keyMask != nil {
		mask = LayoutMask(keyMask, batch, seq, s.heads)
	}

	out := make([]float32, batch*seq*s.hidden)
	scores := make([]float32, seq*seq)
	qh := make([]float32, seq*s.headDim)
	kh := make([]float32, seq*s.headDim)
	vh := make([]float32, seq*s.headDim)
	oh := make([]float32, seq*s.headDim)
	scale := float32(1.0 / math.Sqrt(float64(s.headDim)))

	for b := 0; b < batch; b++ {
		for h := 0; h < s.heads; h++ {
			gatherHead(q, qh, b, h, seq, s.heads, s.headDim)
			gatherHead(k, kh, b, h, seq, s.heads, s.headDim)
			gatherHead(v, vh, b, h, seq, s.heads, s.headDim)

			var maskBH []float32
			if mask != nil {
				off := (h*batch + b) * seq * seq
				maskBH = mask[off : off+seq*seq]
			}

			s.kernel(qh, kh, vh, maskBH, scores, oh, seq, seq, s.headDim, scale, false)
			scatterHead(oh, out, b, h, seq, s.heads, s.headDim)
		}
	}
	return out, nil
}

// project computes the Q/K/V projections for rows of x. Each result has
// shape [rows, hidden] with heads interleaved along the column axis.
func (s *Self) project(x []float32, rows int) (q, k, v []float32) {
	xt := device.FromSlice(x, rows, s.hidden)
	if s.fused {
		qkv := make([]float32, rows*3*s.hidden)
		s.ctx.MatMul(xt, s.wqkv, device.FromSlice(qkv, rows, 3*s.hidden))
		q = make([]float32, rows*s.hidden)
		k = make([]float32, rows*s.hidden)
		v = make([]float32, rows*s.hidden)
		for r := 0; r < rows; r++ {
			row := qkv[r*3*s.hidden : (r+1)*3*s.hidden]
			copy(q[r*s.hidden:], row[:s.hidden])
			copy(k[r*s.hidden:], row[s.hidden:2*s.hidden])
			copy(v[r*s.hidden:], row[2*s.hidden:])
		}
		return q, k, v
	}

	q = make([]float32, rows*s.hidden)
	k = make([]float32, rows*s.hidden)
	v = make([]float32, rows*s.hidden)
	s.ctx.MatMul(xt, s.wq, device.FromSlice(q, rows, s.hidden))
	s.ctx.MatMul(xt, s.wk, device.FromSlice(k, rows, s.hidden))
	s.ctx.MatMul(xt, s.wv, device.FromSlice(v, rows, s.hidden))
	return q, k, v
}

// gatherHead copies head h of batch b from the [batch*seq, heads*headDim]
// projection into a contiguous [seq, headDim] buffer.
func gatherHead(src, dst []float32, b, h, seq, heads, headDim int) {
	hidden := heads * headDim
	for s := 0; s < seq; s++ {
		off := (b*seq+s)*hidden + h*headDim
		copy(dst[s*headDim:(s+1)*headDim], src[off:off+headDim])
	}
}

// scatterHead is the inverse of gatherHead.
func scatterHead(src, dst []float32, b, h, seq, heads, headDim int) {
	hidden := heads * headDim
	for s := 0; s < seq; s++ {
		off := (b*seq+s)*hidden + h*headDim
		copy(dst[off:off+headDim], src[s*headDim:(s+1)*headDim])
	}
}
