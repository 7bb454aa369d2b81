// Package device holds the CPU tensor kernels the benchmark entries
// exercise: matmul strategies, normalization, activations, rotary
// embeddings and the scaled dot-product attention variants, forward and
// backward.
package device

import (
	"math/rand"
	"runtime"
)

// Context owns the execution parameters shared by every kernel call: the
// worker count for the parallel kernels and a seeded RNG so benchmark
// inputs are reproducible across runs.
type Context struct {
	Threads int
	rng     *rand.Rand
}

func NewContext(threads int, seed int64) *Context {
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	return &Context{
		Threads: threads,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

// Tensor is a dense row-major float32 buffer.
type Tensor struct {
	Data []float32
	dims []int
}

func (c *Context) NewTensor(dims ...int) *Tensor {
	n := 1
	for _, d := range dims {
		n *= d
	}
	return &Tensor{
		Data: make([]float32, n),
		dims: append([]int(nil), dims...),
	}
}

// Rand returns a new tensor filled with uniform values in [-1, 1).
func (c *Context) Rand(dims ...int) *Tensor {
	t := c.NewTensor(dims...)
	for i := range t.Data {
		t.Data[i] = c.rng.Float32()*2 - 1
	}
	return t
}

// RandSlice fills a bare slice the same way, for modules that manage their
// own flat buffers.
func (c *Context) RandSlice(n int, scale float32) []float32 {
	s := make([]float32, n)
	for i := range s {
		s[i] = (c.rng.Float32()*2 - 1) * scale
	}
	return s
}

// FromSlice wraps an existing flat buffer without copying.
func FromSlice(data []float32, dims ...int) *Tensor {
	return &Tensor{Data: data, dims: append([]int(nil), dims...)}
}

func (t *Tensor) Dims() []int { return t.dims }

func (t *Tensor) Rows() int { return t.dims[0] }

func (t *Tensor) Cols() int {
	n := 1
	for _, d := range t.dims[1:] {
		n *= d
	}
	return n
}

func (t *Tensor) Len() int { return len(t.Data) }

// Row returns the i-th row as a subslice, valid for 2D tensors.
func (t *Tensor) Row(i int) []float32 {
	c := t.Cols()
	return t.Data[i*c : (i+1)*c]
}

// CopyFrom replaces the tensor's contents. Lengths must match.
func (t *Tensor) CopyFrom(src *Tensor) {
	copy(t.Data, src.Data)
}

// shard splits [0, n) into roughly equal chunks and runs fn on each chunk
// from its own goroutine. Used by the parallel kernels.
func (c *Context) shard(n int, fn func(start, end int)) {
	workers := c.Threads
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		fn(0, n)
		return
	}
	chunk := (n + workers - 1) / workers
	done := make(chan struct{}, workers)
	count := 0
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		count++
		go func(s, e int) {
			fn(s, e)
			done <- struct{}{}
		}(start, end)
	}
	for i := 0; i < count; i++ {
		<-done
	}
}
