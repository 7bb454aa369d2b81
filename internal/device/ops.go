package device

import (
	"math"

	"github.com/23skdu/longbow-gauntlet/internal/simd"
)

// Softmax normalizes each row of x in place.
func Softmax(x *Tensor) {
	cols := x.Cols()
	for i := 0; i < x.Rows(); i++ {
		simd.Softmax(x.Data[i*cols : (i+1)*cols])
	}
}

// OnlineSoftmax writes softmax(x) row by row using the one-pass streaming
// formulation: a running max with rescaled partial sums, so each element is
// read once. Same result as Softmax up to float rounding.
func OnlineSoftmax(x, out *Tensor) {
	cols := x.Cols()
	for i := 0; i < x.Rows(); i++ {
		row := x.Data[i*cols : (i+1)*cols]
		o := out.Data[i*cols : (i+1)*cols]

		m := float32(math.Inf(-1))
		l := 0.0
		for _, v := range row {
			if v > m {
				l = l*math.Exp(float64(m-v)) + 1.0
				m = v
			} else {
				l += math.Exp(float64(v - m))
			}
		}
		inv := 1.0 / l
		for j, v := range row {
			o[j] = float32(math.Exp(float64(v-m)) * inv)
		}
	}
}

// SoftmaxBackward computes gradX = y * (gradY - sum(y * gradY)) per row,
// where y is the softmax output.
func SoftmaxBackward(y, gradY, gradX *Tensor) {
	cols := y.Cols()
	for i := 0; i < y.Rows(); i++ {
		yr := y.Data[i*cols : (i+1)*cols]
		gy := gradY.Data[i*cols : (i+1)*cols]
		gx := gradX.Data[i*cols : (i+1)*cols]

		dot := simd.Dot(yr, gy)
		for j := range yr {
			gx[j] = yr[j] * (gy[j] - dot)
		}
	}
}

// LayerNorm normalizes each row of x to zero mean and unit variance, then
// applies the gamma/beta affine. gamma and beta have length Cols().
func LayerNorm(x, gamma, beta, out *Tensor, eps float32) {
	cols := x.Cols()
	for i := 0; i < x.Rows(); i++ {
		row := x.Data[i*cols : (i+1)*cols]
		o := out.Data[i*cols : (i+1)*cols]

		mean := 0.0
		for _, v := range row {
			mean += float64(v)
		}
		mean /= float64(cols)

		variance := 0.0
		for _, v := range row {
			d := float64(v) - mean
			variance += d * d
		}
		variance /= float64(cols)

		inv := float32(1.0 / math.Sqrt(variance+float64(eps)))
		for j, v := range row {
			o[j] = (v-float32(mean))*inv*gamma.Data[j] + beta.Data[j]
		}
	}
}

// LayerNormBackward fills gradX, gradGamma and gradBeta for LayerNorm.
// gradGamma and gradBeta accumulate across rows and must be zeroed by the
// caller if reused.
func LayerNormBackward(x, gamma, gradY, gradX, gradGamma, gradBeta *Tensor, eps float32) {
	cols := x.Cols()
	for i := 0; i < x.Rows(); i++ {
		row := x.Data[i*cols : (i+1)*cols]
		gy := gradY.Data[i*cols : (i+1)*cols]
		gx := gradX.Data[i*cols : (i+1)*cols]

		mean := 0.0
		for _, v := range row {
			mean += float64(v)
		}
		mean /= float64(cols)

		variance := 0.0
		for _, v := range row {
			d := float64(v) - mean
			variance += d * d
		}
		variance /= float64(cols)
		invStd := 1.0 / math.Sqrt(variance+float64(eps))

		// xhat = (x - mean) * invStd; dxhat = gy * gamma
		var sumDxhat, sumDxhatXhat float64
		for j := range row {
			xhat := (float64(row[j]) - mean) * invStd
			dxhat := float64(gy[j]) * float64(gamma.Data[j])
			sumDxhat += dxhat
			sumDxhatXhat += dxhat * xhat

			gradGamma.Data[j] += float32(float64(gy[j]) * xhat)
			gradBeta.Data[j] += gy[j]
		}

		n := float64(cols)
		for j := range row {
			xhat := (float64(row[j]) - mean) * invStd
			dxhat := float64(gy[j]) * float64(gamma.Data[j])
			gx[j] = float32(invStd / n * (n*dxhat - sumDxhat - xhat*sumDxhatXhat))
		}
	}
}

// RMSNorm scales each row by 1/rms(row) and the per-column weight, sharded
// across the context's workers.
func (c *Context) RMSNorm(x, weight, out *Tensor, eps float32) {
	cols := x.Cols()
	c.shard(x.Rows(), func(start, end int) {
		for i := start; i < end; i++ {
			row := x.Data[i*cols : (i+1)*cols]
			o := out.Data[i*cols : (i+1)*cols]

			sum := 0.0
			for _, v := range row {
				sum += float64(v) * float64(v)
			}
			inv := float32(1.0 / math.Sqrt(sum/float64(cols)+float64(eps)))
			for j, v := range row {
				o[j] = v * inv * weight.Data[j]
			}
		}
	})
}

// RoPE rotates consecutive float pairs of q in place. q is laid out
// [seq, heads*headDim]; position index is the row, rotation frequency
// follows theta^(-2i/headDim).
func RoPE(q *Tensor, heads, headDim int, theta float32) {
	cols := heads * headDim
	for pos := 0; pos < q.Rows(); pos++ {
		row := q.Data[pos*cols : (pos+1)*cols]
		for h := 0; h < heads; h++ {
			for i := 0; i < headDim; i += 2 {
				freq := math.Pow(float64(theta), -float64(i)/float64(headDim))
				angle := float64(pos) * freq
				cos := float32(math.Cos(angle))
				sin := float32(math.Sin(angle))

				idx := h*headDim + i
				x0, x1 := row[idx], row[idx+1]
				row[idx] = x0*cos - x1*sin
				row[idx+1] = x0*sin + x1*cos
			}
		}
	}
}

// SwiGLU computes out = silu(gate) * up elementwise.
func SwiGLU(gate, up, out *Tensor) {
	simd.Silu(gate.Data, out.Data)
	for i, v := range up.Data {
		out.Data[i] *= v
	}
}

const (
	geluSqrt2OverPi = 0.7978845608028654
	geluCoeff       = 0.044715
)

// GELU applies the tanh approximation elementwise.
func GELU(x, out *Tensor) {
	for i, v := range x.Data {
		u := float64(v)
		inner := geluSqrt2OverPi * (u + geluCoeff*u*u*u)
		out.Data[i] = float32(0.5 * u * (1.0 + math.Tanh(inner)))
	}
}

// GELUBackward computes gradX = gelu'(x) * gradY using the derivative of
// the tanh approximation.
func GELUBackward(x, gradY, gradX *Tensor) {
	for i, v := range x.Data {
		u := float64(v)
		inner := geluSqrt2OverPi * (u + geluCoeff*u*u*u)
		tanhInner := math.Tanh(inner)
		sech2 := 1.0 - tanhInner*tanhInner
		dInner := geluSqrt2OverPi * (1.0 + 3.0*geluCoeff*u*u)
		deriv := 0.5*(1.0+tanhInner) + 0.5*u*sech2*dInner
		gradX.Data[i] = float32(deriv * float64(gradY.Data[i]))
	}
}
