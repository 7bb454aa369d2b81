package device

import (
	"math"

	"github.com/23skdu/longbow-gauntlet/internal/simd"
)

// AttentionKernel computes out = softmax(q @ k^T * scale + mask) @ v for a
// single head over flat row-major slices:
//
//   - q:      [seqLen, headDim]
//   - k, v:   [kvLen, headDim]
//   - mask:   [seqLen, kvLen] additive, nil for none
//   - scores: [seqLen, kvLen] scratch; the flash kernel ignores it (nil ok)
//   - out:    [seqLen, headDim]
//
// When causal is set, position i attends only to keys j <= i + (kvLen -
// seqLen); the mask still applies on top. All kernels share this signature
// so the attention modules can swap them by name.
type AttentionKernel func(q, k, v, mask, scores, out []float32, seqLen, kvLen, headDim int, scale float32, causal bool)

// causalLimit returns one past the last attendable key for query row i.
func causalLimit(i, seqLen, kvLen int, causal bool) int {
	if !causal {
		return kvLen
	}
	limit := i + (kvLen - seqLen) + 1
	if limit > kvLen {
		limit = kvLen
	}
	return limit
}

// AttentionReference is the naive full-matrix kernel the others are checked
// against: materialize all scores, softmax per row, then weight the values.
func AttentionReference(q, k, v, mask, scores, out []float32, seqLen, kvLen, headDim int, scale float32, causal bool) {
	negInf := float32(math.Inf(-1))
	for i := 0; i < seqLen; i++ {
		qRow := q[i*headDim : (i+1)*headDim]
		sRow := scores[i*kvLen : (i+1)*kvLen]
		limit := causalLimit(i, seqLen, kvLen, causal)

		for j := 0; j < limit; j++ {
			s := simd.Dot(qRow, k[j*headDim:(j+1)*headDim]) * scale
			if mask != nil {
				s += mask[i*kvLen+j]
			}
			sRow[j] = s
		}
		for j := limit; j < kvLen; j++ {
			sRow[j] = negInf
		}

		simd.Softmax(sRow[:limit])
		for j := limit; j < kvLen; j++ {
			sRow[j] = 0
		}

		oRow := out[i*headDim : (i+1)*headDim]
		for d := range oRow {
			oRow[d] = 0
		}
		for j := 0; j < limit; j++ {
			simd.Axpy(sRow[j], v[j*headDim:(j+1)*headDim], oRow)
		}
	}
}

const sdpaBlock = 32

// AttentionBlocked computes the same result with the key loop tiled so each
// block of k rows is reused across a block of queries before eviction.
func AttentionBlocked(q, k, v, mask, scores, out []float32, seqLen, kvLen, headDim int, scale float32, causal bool) {
	negInf := float32(math.Inf(-1))
	for i0 := 0; i0 < seqLen; i0 += sdpaBlock {
		iMax := min(i0+sdpaBlock, seqLen)
		for j0 := 0; j0 < kvLen; j0 += sdpaBlock {
			jMax := min(j0+sdpaBlock, kvLen)
			for i := i0; i < iMax; i++ {
				qRow := q[i*headDim : (i+1)*headDim]
				limit := causalLimit(i, seqLen, kvLen, causal)
				for j := j0; j < jMax; j++ {
					if j >= limit {
						scores[i*kvLen+j] = negInf
						continue
					}
					s := simd.Dot(qRow, k[j*headDim:(j+1)*headDim]) * scale
					if mask != nil {
						s += mask[i*kvLen+j]
					}
					scores[i*kvLen+j] = s
				}
			}
		}
	}

	for i := 0; i < seqLen; i++ {
		sRow := scores[i*kvLen : (i+1)*kvLen]
		limit := causalLimit(i, seqLen, kvLen, causal)
		simd.Softmax(sRow[:limit])
		for j := limit; j < kvLen; j++ {
			sRow[j] = 0
		}

		oRow := out[i*headDim : (i+1)*headDim]
		for d := range oRow {
			oRow[d] = 0
		}
		for j := 0; j < limit; j++ {
			simd.Axpy(sRow[j], v[j*headDim:(j+1)*headDim], oRow)
		}
	}
}

// AttentionFlash streams keys with an online softmax: a running row max and
// rescaled partial sum, accumulating directly into the output row. No
// seqLen x kvLen buffer is materialized.
func AttentionFlash(q, k, v, mask, _, out []float32, seqLen, kvLen, headDim int, scale float32, causal bool) {
	for i := 0; i < seqLen; i++ {
		qRow := q[i*headDim : (i+1)*headDim]
		oRow := out[i*headDim : (i+1)*headDim]
		for d := range oRow {
			oRow[d] = 0
		}

		m := math.Inf(-1)
		l := 0.0
		limit := causalLimit(i, seqLen, kvLen, causal)
		for j := 0; j < limit; j++ {
			s := float64(simd.Dot(qRow, k[j*headDim:(j+1)*headDim]) * scale)
			if mask != nil {
				s += float64(mask[i*kvLen+j])
			}

			vRow := v[j*headDim : (j+1)*headDim]
			if s > m {
				corr := float32(math.Exp(m - s))
				l = l*float64(corr) + 1.0
				for d := range oRow {
					oRow[d] = oRow[d]*corr + vRow[d]
				}
				m = s
			} else {
				p := math.Exp(s - m)
				l += p
				simd.Axpy(float32(p), vRow, oRow)
			}
		}

		inv := float32(1.0 / l)
		for d := range oRow {
			oRow[d] *= inv
		}
	}
}

// AttentionBackward recomputes the probabilities with the reference kernel
// and fills gradQ, gradK and gradV for the given upstream gradient. The
// gradient slices must be zeroed by the caller.
func AttentionBackward(q, k, v, mask, gradOut, gradQ, gradK, gradV []float32, seqLen, kvLen, headDim int, scale float32, causal bool) {
	probs := make([]float32, kvLen)
	dp := make([]float32, kvLen)

	for i := 0; i < seqLen; i++ {
		qRow := q[i*headDim : (i+1)*headDim]
		gRow := gradOut[i*headDim : (i+1)*headDim]
		gqRow := gradQ[i*headDim : (i+1)*headDim]
		limit := causalLimit(i, seqLen, kvLen, causal)

		for j := 0; j < limit; j++ {
			s := simd.Dot(qRow, k[j*headDim:(j+1)*headDim]) * scale
			if mask != nil {
				s += mask[i*kvLen+j]
			}
			probs[j] = s
		}
		simd.Softmax(probs[:limit])

		// dV += P^T gradOut; dP = gradOut @ V^T
		for j := 0; j < limit; j++ {
			vRow := v[j*headDim : (j+1)*headDim]
			simd.Axpy(probs[j], gRow, gradV[j*headDim:(j+1)*headDim])
			dp[j] = simd.Dot(gRow, vRow)
		}

		// dS = P * (dP - sum(P * dP)); dQ += scale * dS @ K; dK += scale * dS^T @ Q
		dsum := simd.Dot(probs[:limit], dp[:limit])
		for j := 0; j < limit; j++ {
			ds := probs[j] * (dp[j] - dsum) * scale
			simd.Axpy(ds, k[j*headDim:(j+1)*headDim], gqRow)
			simd.Axpy(ds, qRow, gradK[j*headDim:(j+1)*headDim])
		}
	}
}
