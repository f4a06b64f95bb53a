// Package valuekernel implements the value and type kernel: predicates and
// sizes over the seven Wasm value kinds, IEEE-754-compliant arithmetic
// primitives, and the exhaustive, bit-exact conversion table (wrap/extend,
// demote/promote, convert, trunc, reinterpret) required by the Wasm Core
// Specification. It has no dependency on the decoder or validator: it is a
// leaf, usable standalone by an embedding interpreter.
package valuekernel

import (
	"fmt"
	"unsafe"

	"github.com/flightwasm/core/api"
)

// SizeInBytes returns the storage width of a value kind. Reference kinds
// report host-pointer width, treating funcref/externref as opaque handles
// rather than a fixed wire size.
func SizeInBytes(kind api.ValueType) int {
	switch kind {
	case api.ValueTypeI32, api.ValueTypeF32:
		return 4
	case api.ValueTypeI64, api.ValueTypeF64:
		return 8
	case api.ValueTypeV128:
		return 16
	case api.ValueTypeFuncref, api.ValueTypeExternref:
		return int(unsafe.Sizeof(uintptr(0))) // host-pointer width.
	default:
		return 0
	}
}

// AlignmentInBytes returns the natural alignment of a value kind, which
// equals its storage width.
func AlignmentInBytes(kind api.ValueType) int {
	return SizeInBytes(kind)
}

// DisplayName is an alias of api.ValueTypeName kept in this package so
// kernel-only callers need not import api directly for diagnostics.
func DisplayName(kind api.ValueType) string { return api.ValueTypeName(kind) }

// Value is a tagged union of a value kind and its payload. Numbers and
// vectors are stored bit-exactly in Lo (and Hi for v128); references are
// stored as an opaque handle in Lo, with the null reference marked by
// RefIsNull rather than by bit pattern, so it stays distinguishable from a
// real zero-valued externref.
type Value struct {
	Kind api.ValueType
	// Lo holds i32/i64/f32(as 32 bit pattern)/f64(as 64 bit pattern)/
	// funcref-index/externref-handle payloads. For v128, Lo/Hi hold the
	// low/high 64 bits of the 128-bit lane vector.
	Lo uint64
	Hi uint64
	// RefIsNull is meaningful only when Kind is a reference kind.
	RefIsNull bool
}

// Equal implements the bit-exact equality spec.md §3 requires: integers
// and vectors compare by bit pattern (so two differently-signalling NaNs
// with the same bits are equal, but a quiet and a signalling NaN with
// otherwise identical bits compare unequal only if their bit patterns
// differ), references compare structurally.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	if api.IsRefType(v.Kind) {
		return v.RefIsNull == other.RefIsNull && v.Lo == other.Lo
	}
	return v.Lo == other.Lo && v.Hi == other.Hi
}

func (v Value) String() string {
	return fmt.Sprintf("%s(0x%016x)", api.ValueTypeName(v.Kind), v.Lo)
}

// I32 constructs an i32 Value.
func I32(v int32) Value { return Value{Kind: api.ValueTypeI32, Lo: uint64(uint32(v))} }

// I64 constructs an i64 Value.
func I64(v int64) Value { return Value{Kind: api.ValueTypeI64, Lo: uint64(v)} }

// F32Bits constructs an f32 Value from its raw bit pattern (never from a cast,
// so signalling NaNs survive construction intact).
func F32Bits(bits uint32) Value { return Value{Kind: api.ValueTypeF32, Lo: uint64(bits)} }

// F64Bits constructs an f64 Value from its raw bit pattern.
func F64Bits(bits uint64) Value { return Value{Kind: api.ValueTypeF64, Lo: bits} }
