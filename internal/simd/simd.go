// Package simd holds the float32 hot loops behind function-pointer dispatch.
// The defaults are scalar; the per-arch init files swap in wider variants
// when the CPU supports them.
package simd

import "math"

// Variable initializers run before any init function, so the per-arch
// dispatch init files always see the fallbacks already in place.
var (
	dotImpl     = dotFallback
	axpyImpl    = axpyFallback
	siluImpl    = siluFallback
	softmaxImpl = softmaxFallback
)

// Dot returns the inner product of a and b. Lengths must match.
func Dot(a, b []float32) float32 {
	return dotImpl(a, b)
}

// Axpy computes y += alpha * x in place.
func Axpy(alpha float32, x, y []float32) {
	axpyImpl(alpha, x, y)
}

// Silu writes x * sigmoid(x) into out.
func Silu(x, out []float32) {
	siluImpl(x, out)
}

// Softmax normalizes x in place with the usual max-subtraction trick.
func Softmax(x []float32) {
	softmaxImpl(x)
}

func dotFallback(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func axpyFallback(alpha float32, x, y []float32) {
	for i := range x {
		y[i] += alpha * x[i]
	}
}

func siluFallback(x, out []float32) {
	for i := range x {
		out[i] = x[i] / (1.0 + float32(math.Exp(float64(-x[i]))))
	}
}

func softmaxFallback(x []float32) {
	if len(x) == 0 {
		return
	}
	max := x[0]
	for _, v := range x {
		if v > max {
			max = v
		}
	}

	sum := 0.0
	for i := range x {
		e := math.Exp(float64(x[i] - max))
		x[i] = float32(e)
		sum += e
	}

	inv := float32(1.0 / sum)
	for i := range x {
		x[i] *= inv
	}
}
