//go:build amd64 && !noasm

package simd

import "golang.org/x/sys/cpu"

func init() {
	if cpu.X86.HasAVX2 {
		dotImpl = dotUnroll4
		axpyImpl = axpyUnroll4
	}
}
