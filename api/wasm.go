// Package api includes constants shared between the core decoder/validator
// and any host embedding it.
package api

import "fmt"

// ExternType classifies imports and exports with their respective types.
//
// See https://webassembly.github.io/spec/core/syntax/types.html#external-types
type ExternType = byte

const (
	ExternTypeFunc   ExternType = 0x00
	ExternTypeTable  ExternType = 0x01
	ExternTypeMemory ExternType = 0x02
	ExternTypeGlobal ExternType = 0x03
)

const (
	ExternTypeFuncName   = "func"
	ExternTypeTableName  = "table"
	ExternTypeMemoryName = "memory"
	ExternTypeGlobalName = "global"
)

// ExternTypeName returns the text-format field name of the given ExternType.
func ExternTypeName(et ExternType) string {
	switch et {
	case ExternTypeFunc:
		return ExternTypeFuncName
	case ExternTypeTable:
		return ExternTypeTableName
	case ExternTypeMemory:
		return ExternTypeMemoryName
	case ExternTypeGlobal:
		return ExternTypeGlobalName
	}
	return fmt.Sprintf("%#x", et)
}

// ValueType is one of the value kinds recognised by the Wasm Core
// Specification's binary value-type encoding, plus the 0x40 "empty block
// type" sentinel used only in control-instruction signatures.
//
// This is a type alias (not a defined type) so it can be encoded/decoded
// directly as a byte in the binary format without a conversion at every
// call site.
type ValueType = byte

const (
	ValueTypeI32       ValueType = 0x7f
	ValueTypeI64       ValueType = 0x7e
	ValueTypeF32       ValueType = 0x7d
	ValueTypeF64       ValueType = 0x7c
	ValueTypeV128      ValueType = 0x7b
	ValueTypeFuncref   ValueType = 0x70
	ValueTypeExternref ValueType = 0x6f

	// ValueTypeNone is the 0x40 "empty block type" sentinel: it never
	// appears in a FunctionType's Params/Results, only as a block-type
	// immediate meaning "this block has no result".
	ValueTypeNone ValueType = 0x40
)

// ValueTypeName returns the Wasm text-format name of the given ValueType,
// or "unknown" if t is not one of the constants above.
func ValueTypeName(t ValueType) string {
	switch t {
	case ValueTypeI32:
		return "i32"
	case ValueTypeI64:
		return "i64"
	case ValueTypeF32:
		return "f32"
	case ValueTypeF64:
		return "f64"
	case ValueTypeV128:
		return "v128"
	case ValueTypeFuncref:
		return "funcref"
	case ValueTypeExternref:
		return "externref"
	case ValueTypeNone:
		return "none"
	}
	return "unknown"
}

// IsNumType reports whether t is one of i32/i64/f32/f64.
func IsNumType(t ValueType) bool {
	switch t {
	case ValueTypeI32, ValueTypeI64, ValueTypeF32, ValueTypeF64:
		return true
	}
	return false
}

// IsVecType reports whether t is v128.
func IsVecType(t ValueType) bool { return t == ValueTypeV128 }

// IsRefType reports whether t is funcref or externref.
func IsRefType(t ValueType) bool {
	return t == ValueTypeFuncref || t == ValueTypeExternref
}
