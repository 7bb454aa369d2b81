package device

import "github.com/23skdu/longbow-gauntlet/internal/simd"

// The three forward strategies compute out = a @ b for a [M,K] and b [K,N].
// They exist to be compared against each other; all three must agree with
// MatMulNaive to a small float tolerance.

func MatMulNaive(a, b, out *Tensor) {
	m, k, n := a.Rows(), a.Cols(), b.Cols()
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			var sum float32
			for p := 0; p < k; p++ {
				sum += a.Data[i*k+p] * b.Data[p*n+j]
			}
			out.Data[i*n+j] = sum
		}
	}
}

const matmulBlock = 64

// MatMulBlocked tiles the loop nest so the working set of each inner block
// stays inside L1/L2.
func MatMulBlocked(a, b, out *Tensor) {
	m, k, n := a.Rows(), a.Cols(), b.Cols()
	for i := range out.Data {
		out.Data[i] = 0
	}
	for i0 := 0; i0 < m; i0 += matmulBlock {
		iMax := min(i0+matmulBlock, m)
		for p0 := 0; p0 < k; p0 += matmulBlock {
			pMax := min(p0+matmulBlock, k)
			for j0 := 0; j0 < n; j0 += matmulBlock {
				jMax := min(j0+matmulBlock, n)
				for i := i0; i < iMax; i++ {
					for p := p0; p < pMax; p++ {
						simd.Axpy(a.Data[i*k+p], b.Data[p*n+j0:p*n+jMax], out.Data[i*n+j0:i*n+jMax])
					}
				}
			}
		}
	}
}

// MatMul row-shards the naive kernel across the context's worker count.
func (c *Context) MatMul(a, b, out *Tensor) {
	k, n := a.Cols(), b.Cols()
	c.shard(a.Rows(), func(start, end int) {
		for i := start; i < end; i++ {
			for j := 0; j < n; j++ {
				var sum float32
				for p := 0; p < k; p++ {
					sum += a.Data[i*k+p] * b.Data[p*n+j]
				}
				out.Data[i*n+j] = sum
			}
		}
	})
}

// MatMulBackward fills the input gradients for out = a @ b:
// gradA = gradOut @ b^T and gradB = a^T @ gradOut.
func MatMulBackward(a, b, gradOut, gradA, gradB *Tensor) {
	m, k, n := a.Rows(), a.Cols(), b.Cols()

	for i := 0; i < m; i++ {
		for p := 0; p < k; p++ {
			gradA.Data[i*k+p] = simd.Dot(gradOut.Data[i*n:(i+1)*n], b.Data[p*n:(p+1)*n])
		}
	}

	for i := range gradB.Data {
		gradB.Data[i] = 0
	}
	for i := 0; i < m; i++ {
		for p := 0; p < k; p++ {
			simd.Axpy(a.Data[i*k+p], gradOut.Data[i*n:(i+1)*n], gradB.Data[p*n:(p+1)*n])
		}
	}
}
