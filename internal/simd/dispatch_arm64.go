//go:build arm64 && !noasm

package simd

func init() {
	// NEON is baseline on arm64.
	dotImpl = dotUnroll4
	axpyImpl = axpyUnroll4
}
