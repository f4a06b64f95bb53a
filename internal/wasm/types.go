// Package wasm holds the in-memory representation of a parsed Wasm module,
// its section and instruction-level types, and the validator that checks a
// decoded Module against the Core Specification's static rules. It has no
// knowledge of the wire format: that lives in the sibling binary package.
package wasm

import (
	"fmt"
	"strings"

	"github.com/flightwasm/core/api"
)

// ValueType and ExternType are the same representation the public api
// package uses: a validator that worked in different types from its
// decoder would need a conversion at every call site for no benefit.
type ValueType = api.ValueType
type ExternType = api.ExternType

const (
	ValueTypeI32       = api.ValueTypeI32
	ValueTypeI64       = api.ValueTypeI64
	ValueTypeF32       = api.ValueTypeF32
	ValueTypeF64       = api.ValueTypeF64
	ValueTypeV128      = api.ValueTypeV128
	ValueTypeFuncref   = api.ValueTypeFuncref
	ValueTypeExternref = api.ValueTypeExternref
	ValueTypeNone      = api.ValueTypeNone
)

// valueTypeUnknown stands for an operand of unknown type: the validator
// yields it when popping from an unreachable (polymorphic) stack, and
// expectType treats it as matching any type.
const valueTypeUnknown ValueType = 0x00

const (
	ExternTypeFunc   = api.ExternTypeFunc
	ExternTypeTable  = api.ExternTypeTable
	ExternTypeMemory = api.ExternTypeMemory
	ExternTypeGlobal = api.ExternTypeGlobal
)

func ValueTypeName(t ValueType) string { return api.ValueTypeName(t) }
func ExternTypeName(t ExternType) string { return api.ExternTypeName(t) }

// Index is a zero-based index into one of a module's index spaces
// (functions, tables, memories, globals, types, locals, labels, data,
// elements).
type Index = uint32

// SectionID identifies one of the eleven known sections (plus custom and
// data-count) by its wire ID. The IDs are not the required section order:
// data-count (12) comes between element and code; the decoder enforces
// the order.
type SectionID = byte

const (
	SectionIDCustom SectionID = iota
	SectionIDType
	SectionIDImport
	SectionIDFunction
	SectionIDTable
	SectionIDMemory
	SectionIDGlobal
	SectionIDExport
	SectionIDStart
	SectionIDElement
	SectionIDCode
	SectionIDData
	SectionIDDataCount
)

// SectionIDName returns the text-format name of a section, or "unknown".
func SectionIDName(id SectionID) string {
	switch id {
	case SectionIDCustom:
		return "custom"
	case SectionIDType:
		return "type"
	case SectionIDImport:
		return "import"
	case SectionIDFunction:
		return "function"
	case SectionIDTable:
		return "table"
	case SectionIDMemory:
		return "memory"
	case SectionIDGlobal:
		return "global"
	case SectionIDExport:
		return "export"
	case SectionIDStart:
		return "start"
	case SectionIDElement:
		return "element"
	case SectionIDCode:
		return "code"
	case SectionIDData:
		return "data"
	case SectionIDDataCount:
		return "data count"
	}
	return "unknown"
}

// FunctionType is a function signature: zero or more parameter types
// mapped to zero or more result types.
type FunctionType struct {
	Params  []ValueType
	Results []ValueType
}

// String renders a FunctionType the way the validator's error messages and
// test names reference it: "<params>_<results>", each side "null" if empty.
func (f *FunctionType) String() string {
	ps := shortNames(f.Params)
	rs := shortNames(f.Results)
	if ps == "" {
		ps = "null"
	}
	if rs == "" {
		rs = "null"
	}
	return ps + "_" + rs
}

func shortNames(types []ValueType) string {
	var b strings.Builder
	for _, t := range types {
		b.WriteString(ValueTypeName(t))
	}
	return b.String()
}

// LimitsType bounds the size of a table or memory in units that type
// defines (pages for memory, elements for table).
type LimitsType struct {
	Min uint32
	Max *uint32
}

// MemoryType is a type alias of LimitsType: memory limits carry no extra
// fields beyond min/max, so the module format reuses the same shape.
type MemoryType = LimitsType

// TableType describes a table's element type and size limits. ElemType is
// always Funcref or Externref (reference-types feature).
type TableType struct {
	ElemType ValueType
	Limit    *LimitsType
}

// GlobalType describes a global's value type and mutability.
type GlobalType struct {
	ValType ValueType
	Mutable bool
}

// Global pairs a GlobalType with its constant initializer expression.
type Global struct {
	Type *GlobalType
	Init *ConstantExpression
}

// ConstantExpression is the restricted instruction sequence permitted in
// initializers: a single const, global.get, ref.null or ref.func
// instruction followed by end, captured here as opcode plus its raw
// immediate bytes. Multi-instruction expressions are not decoded.
type ConstantExpression struct {
	Opcode Opcode
	Data   []byte
}

// Import describes one imported external: Type selects which of
// DescFunc/DescTable/DescMem/DescGlobal is populated.
type Import struct {
	Module, Name string
	Type         ExternType
	DescFunc     Index
	DescTable    *TableType
	DescMem      *MemoryType
	DescGlobal   *GlobalType
}

// Export describes one exported external.
type Export struct {
	Name  string
	Type  ExternType
	Index Index
}

// Code is one function body: its locals (expanded to one ValueType per
// local slot, across all local-declaration groups) and raw instruction
// bytes up to and including the terminating End.
type Code struct {
	LocalTypes []ValueType
	Body       []byte
}

// DataSegment initializes a region of linear memory. An active segment
// (OffsetExpression non-nil) is applied at instantiation; a passive one
// is only reachable via memory.init.
type DataSegment struct {
	MemoryIndex      Index
	OffsetExpression *ConstantExpression
	Init             []byte
}

// ElementSegment initializes a region of a table, or stands passive/
// declarative for later table.init. Mode distinguishes the three per the
// eight binary encodings §4 describes; Active is the common case this
// validator requires OffsetExpr/TableIndex for.
type ElementSegment struct {
	TableIndex Index
	OffsetExpr *ConstantExpression
	Type       ValueType
	Init       []Index // function indices, for the common funcref-by-index encoding.
	Mode       ElementMode
}

// ElementMode distinguishes active/passive/declarative element segments.
type ElementMode byte

const (
	ElementModeActive ElementMode = iota
	ElementModePassive
	ElementModeDeclarative
)

// NameSection holds the decoded contents of the custom "name" section.
type NameSection struct {
	ModuleName    string
	FunctionNames map[Index]string
	LocalNames    map[Index]map[Index]string
}

func typeMismatchError(expected, actual ValueType) error {
	return fmt.Errorf("type mismatch: expected %s, but got %s", ValueTypeName(expected), ValueTypeName(actual))
}
