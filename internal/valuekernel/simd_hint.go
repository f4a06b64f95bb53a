package valuekernel

import (
	"fmt"

	"github.com/klauspost/cpuid/v2"
	"golang.org/x/sys/cpu"
)

// SIMDHint describes, informationally only, which vector instruction set
// the host CPU offers for v128 lane-wise equality/size computations. It
// never changes the kernel's result -- every v128 operation here is
// implemented in portable Go -- it only lets a host log which fast path
// an interpreter embedding this kernel could choose to JIT for v128
// comparisons, probing ISA extensions before emitting arch-specific
// opcodes.
func SIMDHint() string {
	switch {
	case cpu.X86.HasAVX2:
		return fmt.Sprintf("%s: avx2", cpuid.CPU.BrandName)
	case cpu.X86.HasSSE42:
		return fmt.Sprintf("%s: sse4.2", cpuid.CPU.BrandName)
	case cpu.X86.HasSSE2:
		return fmt.Sprintf("%s: sse2", cpuid.CPU.BrandName)
	default:
		return fmt.Sprintf("%s: portable", cpuid.CPU.BrandName)
	}
}
