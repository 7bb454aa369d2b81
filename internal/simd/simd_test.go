package simd

import (
	"math"
	"math/rand"
	"testing"
)

func TestDot(t *testing.T) {
	tests := []struct {
		name string
		n    int
	}{
		{"empty", 0},
		{"one", 1},
		{"unroll boundary", 4},
		{"with tail", 7},
		{"long", 1024},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng := rand.New(rand.NewSource(1))
			a := make([]float32, tt.n)
			b := make([]float32, tt.n)
			for i := range a {
				a[i] = rng.Float32()*2 - 1
				b[i] = rng.Float32()*2 - 1
			}

			want := 0.0
			for i := range a {
				want += float64(a[i]) * float64(b[i])
			}

			got := Dot(a, b)
			if math.Abs(float64(got)-want) > 1e-3 {
				t.Errorf("Dot = %v, want %v", got, want)
			}
		})
	}
}

func TestAxpy(t *testing.T) {
	x := []float32{1, 2, 3, 4, 5}
	y := []float32{10, 20, 30, 40, 50}
	Axpy(2, x, y)

	want := []float32{12, 24, 36, 48, 60}
	for i := range want {
		if y[i] != want[i] {
			t.Errorf("y[%d] = %v, want %v", i, y[i], want[i])
		}
	}
}

func TestSilu(t *testing.T) {
	x := []float32{-2, -1, 0, 1, 2}
	out := make([]float32, len(x))
	Silu(x, out)

	for i, v := range x {
		want := float64(v) / (1.0 + math.Exp(-float64(v)))
		if math.Abs(float64(out[i])-want) > 1e-5 {
			t.Errorf("Silu(%v) = %v, want %v", v, out[i], want)
		}
	}
	if out[2] != 0 {
		t.Errorf("Silu(0) = %v, want 0", out[2])
	}
}

func TestSoftmax(t *testing.T) {
	tests := []struct {
		name string
		in   []float32
	}{
		{"small", []float32{1, 2, 3}},
		{"uniform", []float32{5, 5, 5, 5}},
		{"large values", []float32{1000, 1001, 1002}},
		{"negative", []float32{-50, -51, -52}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := append([]float32(nil), tt.in...)
			Softmax(x)

			sum := 0.0
			for i, v := range x {
				if v < 0 || v > 1 {
					t.Errorf("x[%d] = %v outside [0,1]", i, v)
				}
				sum += float64(v)
			}
			if math.Abs(sum-1.0) > 1e-5 {
				t.Errorf("sum = %v, want 1", sum)
			}
		})
	}
}

func TestSoftmaxOrdering(t *testing.T) {
	x := []float32{1, 3, 2}
	Softmax(x)
	if !(x[1] > x[2] && x[2] > x[0]) {
		t.Errorf("softmax did not preserve ordering: %v", x)
	}
}

func TestSoftmaxEmpty(t *testing.T) {
	// Must not panic.
	Softmax(nil)
}

func BenchmarkDot_1024(b *testing.B) {
	x := make([]float32, 1024)
	y := make([]float32, 1024)
	for i := range x {
		x[i] = rand.Float32()
		y[i] = rand.Float32()
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Dot(x, y)
	}
}

func BenchmarkSoftmax_1024(b *testing.B) {
	x := make([]float32, 1024)
	work := make([]float32, 1024)
	for i := range x {
		x[i] = rand.Float32() * 10
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		copy(work, x)
		Softmax(work)
	}
}
