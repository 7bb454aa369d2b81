package attention

// LayoutMask expands an additive per-key padding mask of shape [batch, seq]
// into the [batch*heads, seq, seq] layout the kernels consume: every query
// row of every head of batch b gets batch b's key mask. The head axis is
// tiled outermost, so block (h*batch + b) belongs to head h of batch b.
func LayoutMask(mask []float32, batch, seq, heads int) []float32 {
	out := make([]float32, batch*heads*seq*seq)
	for h := 0; h < heads; h++ {
		for b := 0; b < batch; b++ {
			keyRow := mask[b*seq : (b+1)*seq]
			base := (h*batch + b) * seq * seq
			for i := 0; i < seq; i++ {
				copy(out[base+i*seq:base+(i+1)*seq], keyRow)
			}
		}
	}
	return out
}
