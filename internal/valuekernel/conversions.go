package valuekernel

import (
	"math"

	"github.com/flightwasm/core/internal/werr"
)

// ---- Integer arithmetic (wrap on overflow, trap on bad divisor) ----

func I32Add(a, b int32) int32 { return a + b }
func I32Sub(a, b int32) int32 { return a - b }
func I32Mul(a, b int32) int32 { return a * b }

func I32DivS(a, b int32) (int32, error) {
	if b == 0 {
		return 0, werr.New(werr.CodeConversionTrap, "integer divide by zero")
	}
	if a == math.MinInt32 && b == -1 {
		return 0, werr.New(werr.CodeConversionTrap, "integer overflow")
	}
	return a / b, nil
}

func I32DivU(a, b uint32) (uint32, error) {
	if b == 0 {
		return 0, werr.New(werr.CodeConversionTrap, "integer divide by zero")
	}
	return a / b, nil
}

func I32RemS(a, b int32) (int32, error) {
	if b == 0 {
		return 0, werr.New(werr.CodeConversionTrap, "integer divide by zero")
	}
	if a == math.MinInt32 && b == -1 {
		return 0, nil // rem by -1 never overflows: result is always 0.
	}
	return a % b, nil
}

func I32RemU(a, b uint32) (uint32, error) {
	if b == 0 {
		return 0, werr.New(werr.CodeConversionTrap, "integer divide by zero")
	}
	return a % b, nil
}

func I64Add(a, b int64) int64 { return a + b }
func I64Sub(a, b int64) int64 { return a - b }
func I64Mul(a, b int64) int64 { return a * b }

func I64DivS(a, b int64) (int64, error) {
	if b == 0 {
		return 0, werr.New(werr.CodeConversionTrap, "integer divide by zero")
	}
	if a == math.MinInt64 && b == -1 {
		return 0, werr.New(werr.CodeConversionTrap, "integer overflow")
	}
	return a / b, nil
}

func I64DivU(a, b uint64) (uint64, error) {
	if b == 0 {
		return 0, werr.New(werr.CodeConversionTrap, "integer divide by zero")
	}
	return a / b, nil
}

func I64RemS(a, b int64) (int64, error) {
	if b == 0 {
		return 0, werr.New(werr.CodeConversionTrap, "integer divide by zero")
	}
	if a == math.MinInt64 && b == -1 {
		return 0, nil
	}
	return a % b, nil
}

func I64RemU(a, b uint64) (uint64, error) {
	if b == 0 {
		return 0, werr.New(werr.CodeConversionTrap, "integer divide by zero")
	}
	return a % b, nil
}

// ---- Float arithmetic (IEEE-754 round-to-nearest-ties-to-even via Go's
// native float ops, which already implement that rounding mode on every
// platform Go supports) ----

func F32Add(a, b float32) float32 { return a + b }
func F32Sub(a, b float32) float32 { return a - b }
func F32Mul(a, b float32) float32 { return a * b }
func F32Div(a, b float32) float32 { return a / b }

func F64Add(a, b float64) float64 { return a + b }
func F64Sub(a, b float64) float64 { return a - b }
func F64Mul(a, b float64) float64 { return a * b }
func F64Div(a, b float64) float64 { return a / b }

// ---- Integer <-> integer conversions ----

// I32WrapI64 truncates the high 32 bits off a 64-bit integer. Never traps.
func I32WrapI64(v int64) int32 { return int32(uint32(uint64(v))) }

// I64ExtendI32S sign-extends a 32-bit integer to 64 bits. Never traps.
func I64ExtendI32S(v int32) int64 { return int64(v) }

// I64ExtendI32U zero-extends a 32-bit integer to 64 bits. Never traps.
func I64ExtendI32U(v int32) int64 { return int64(uint32(v)) }

// ---- Float <-> float conversions ----

// F32DemoteF64 rounds a 64-bit float to 32 bits, round-to-nearest-even.
// Infinities and NaNs pass through; finite values that overflow f32's
// range become +/-Inf. Go's float64->float32 conversion already implements
// this.
func F32DemoteF64(v float64) float32 { return float32(v) }

// F64PromoteF32 widens a 32-bit float to 64 bits exactly.
func F64PromoteF32(v float32) float64 { return float64(v) }

// ---- Integer -> float conversions ----

func F32ConvertI32S(v int32) float32   { return float32(v) }
func F32ConvertI32U(v uint32) float32  { return float32(v) }
func F32ConvertI64S(v int64) float32   { return float32(v) }
func F32ConvertI64U(v uint64) float32  { return float32(v) }
func F64ConvertI32S(v int32) float64   { return float64(v) }
func F64ConvertI32U(v uint32) float64  { return float64(v) }
func F64ConvertI64S(v int64) float64   { return float64(v) }
func F64ConvertI64U(v uint64) float64  { return float64(v) }

// ---- Float -> integer conversions (trapping) ----
//
// Range bounds are the largest/smallest integer EXACTLY representable in
// the source float type, per spec.md §4.C.3: for i32-from-f32 the lower
// bound is -2^31 exactly and the upper bound is 2^31-128 (the largest
// float32 strictly less than 2^31), not 2^31-1.

// Bounds are compared in float64, since widening a float32 to float64 is
// exact: this lets every bound below be stated once instead of twice.
const (
	i32LowerBound = -2147483648.0               // -2^31, inclusive.
	i32UpperBound = 2147483648.0                // 2^31, exclusive.
	u32UpperBound = 4294967296.0                // 2^32, exclusive.
	i64LowerBound = -9223372036854775808.0      // -2^63, inclusive.
	i64UpperBound = 9223372036854775808.0       // 2^63, exclusive.
	u64UpperBound = 18446744073709551616.0      // 2^64, exclusive.
)

func truncTrap(kind string) error {
	return werr.New(werr.CodeConversionTrap, "cannot convert "+kind+" to integer: out of range or NaN")
}

func I32TruncF32S(v float32) (int32, error) {
	z := float64(v)
	if math.IsNaN(z) || z < i32LowerBound || z >= i32UpperBound {
		return 0, truncTrap("f32")
	}
	return int32(math.Trunc(z)), nil
}

func I32TruncF32U(v float32) (uint32, error) {
	z := float64(v)
	if math.IsNaN(z) || z <= -1 || z >= u32UpperBound {
		return 0, truncTrap("f32")
	}
	return uint32(math.Trunc(z)), nil
}

func I32TruncF64S(v float64) (int32, error) {
	if math.IsNaN(v) || v < i32LowerBound || v >= i32UpperBound {
		return 0, truncTrap("f64")
	}
	return int32(math.Trunc(v)), nil
}

func I32TruncF64U(v float64) (uint32, error) {
	if math.IsNaN(v) || v <= -1 || v >= u32UpperBound {
		return 0, truncTrap("f64")
	}
	return uint32(math.Trunc(v)), nil
}

func I64TruncF32S(v float32) (int64, error) {
	z := float64(v)
	if math.IsNaN(z) || z < i64LowerBound || z >= i64UpperBound {
		return 0, truncTrap("f32")
	}
	return int64(math.Trunc(z)), nil
}

func I64TruncF32U(v float32) (uint64, error) {
	z := float64(v)
	if math.IsNaN(z) || z <= -1 || z >= u64UpperBound {
		return 0, truncTrap("f32")
	}
	return uint64(math.Trunc(z)), nil
}

func I64TruncF64S(v float64) (int64, error) {
	if math.IsNaN(v) || v < i64LowerBound || v >= i64UpperBound {
		return 0, truncTrap("f64")
	}
	return int64(math.Trunc(v)), nil
}

func I64TruncF64U(v float64) (uint64, error) {
	if math.IsNaN(v) || v <= -1 || v >= u64UpperBound {
		return 0, truncTrap("f64")
	}
	return uint64(math.Trunc(v)), nil
}

// ---- Saturating variants (non-trapping float-to-int, §6.2) ----
//
// These never trap: NaN becomes 0, out-of-range values saturate to the
// destination type's min/max.

func I32TruncSatF32S(v float32) int32 {
	z := float64(v)
	if math.IsNaN(z) {
		return 0
	}
	if z < i32LowerBound {
		return math.MinInt32
	}
	if z >= i32UpperBound {
		return math.MaxInt32
	}
	return int32(math.Trunc(z))
}

func I32TruncSatF32U(v float32) uint32 {
	z := float64(v)
	if math.IsNaN(z) || z <= -1 {
		return 0
	}
	if z >= u32UpperBound {
		return math.MaxUint32
	}
	return uint32(math.Trunc(z))
}

func I64TruncSatF64S(v float64) int64 {
	if math.IsNaN(v) {
		return 0
	}
	if v < i64LowerBound {
		return math.MinInt64
	}
	if v >= i64UpperBound {
		return math.MaxInt64
	}
	return int64(math.Trunc(v))
}

func I64TruncSatF64U(v float64) uint64 {
	if math.IsNaN(v) || v <= -1 {
		return 0
	}
	if v >= u64UpperBound {
		return math.MaxUint64
	}
	return uint64(math.Trunc(v))
}

// ---- Reinterpretation: bit copy through the matching-width integer path.
// Never traps, never goes through a numeric cast, so NaN payloads and
// signalling bits survive exactly. ----

func I32ReinterpretF32(bits uint32) int32   { return int32(bits) }
func F32ReinterpretI32(v int32) uint32      { return uint32(v) }
func I64ReinterpretF64(bits uint64) int64   { return int64(bits) }
func F64ReinterpretI64(v int64) uint64      { return uint64(v) }

// ---- Sign-extension ops (§6.2) ----

func I32Extend8S(v int32) int32   { return int32(int8(v)) }
func I32Extend16S(v int32) int32  { return int32(int16(v)) }
func I64Extend8S(v int64) int64   { return int64(int8(v)) }
func I64Extend16S(v int64) int64  { return int64(int16(v)) }
func I64Extend32S(v int64) int64  { return int64(int32(v)) }
