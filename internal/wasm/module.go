package wasm

import (
	"fmt"

	"github.com/flightwasm/core/internal/leb128"
)

// Module is the fully decoded form of a binary Wasm module: one slice or
// map per section, all using the declaration order the section appeared
// in. A zero-value Module is the empty module.
type Module struct {
	TypeSection     []*FunctionType
	ImportSection   []*Import
	FunctionSection []Index // type indices, one per locally defined function.
	TableSection    []*TableType
	MemorySection   []*MemoryType
	GlobalSection   []*Global
	ExportSection   map[string]*Export
	StartSection    *Index
	ElementSection  []*ElementSegment
	CodeSection     []*Code
	DataSection     []*DataSegment
	DataCountSection *uint32

	NameSection *NameSection
}

// SectionElementCount returns the number of elements decoded for a given
// section, used for size reporting and introspection; it does not count
// raw bytes, only declarations.
func (m *Module) SectionElementCount(id SectionID) uint32 {
	switch id {
	case SectionIDCustom:
		if m.NameSection != nil {
			return 1
		}
		return 0
	case SectionIDType:
		return uint32(len(m.TypeSection))
	case SectionIDImport:
		return uint32(len(m.ImportSection))
	case SectionIDFunction:
		return uint32(len(m.FunctionSection))
	case SectionIDTable:
		return uint32(len(m.TableSection))
	case SectionIDMemory:
		return uint32(len(m.MemorySection))
	case SectionIDGlobal:
		return uint32(len(m.GlobalSection))
	case SectionIDExport:
		return uint32(len(m.ExportSection))
	case SectionIDStart:
		if m.StartSection != nil {
			return 1
		}
		return 0
	case SectionIDElement:
		return uint32(len(m.ElementSection))
	case SectionIDCode:
		return uint32(len(m.CodeSection))
	case SectionIDData:
		return uint32(len(m.DataSection))
	case SectionIDDataCount:
		if m.DataCountSection != nil {
			return 1
		}
		return 0
	}
	return 0
}

// allFunctions returns, in index-space order, the type index of every
// function: first imported functions, then locally defined ones.
func (m *Module) allFunctions() []Index {
	var ret []Index
	for _, i := range m.ImportSection {
		if i.Type == ExternTypeFunc {
			ret = append(ret, i.DescFunc)
		}
	}
	return append(ret, m.FunctionSection...)
}

// allGlobals returns, in index-space order, the type of every global:
// imported first, then module-defined.
func (m *Module) allGlobals() []*GlobalType {
	var ret []*GlobalType
	for _, i := range m.ImportSection {
		if i.Type == ExternTypeGlobal {
			ret = append(ret, i.DescGlobal)
		}
	}
	for _, g := range m.GlobalSection {
		ret = append(ret, g.Type)
	}
	return ret
}

// allMemories returns, in index-space order, every memory's limits.
func (m *Module) allMemories() []*MemoryType {
	var ret []*MemoryType
	for _, i := range m.ImportSection {
		if i.Type == ExternTypeMemory {
			ret = append(ret, i.DescMem)
		}
	}
	return append(ret, m.MemorySection...)
}

// allTables returns, in index-space order, every table's type.
func (m *Module) allTables() []*TableType {
	var ret []*TableType
	for _, i := range m.ImportSection {
		if i.Type == ExternTypeTable {
			ret = append(ret, i.DescTable)
		}
	}
	return append(ret, m.TableSection...)
}

// allDeclarations is a convenience bundle of the four index spaces built
// from import + module-defined declarations, in index-assignment order
// (imports first, then module-defined entries).
func (m *Module) allDeclarations() (functions []Index, globals []*GlobalType, memories []*MemoryType, tables []*TableType) {
	return m.allFunctions(), m.allGlobals(), m.allMemories(), m.allTables()
}

// Validate runs every module-level static check required before a Module
// may be instantiated: function bodies, globals, the start function's
// signature, table/memory cardinality, and export index validity.
func (m *Module) Validate(enabledFeatures Features) error {
	functions, globals, memories, tables := m.allDeclarations()

	if err := m.validateGlobals(globals, maxGlobals); err != nil {
		return err
	}
	if err := m.validateFunctions(m.TypeSection, functions, globals, memories); err != nil {
		return err
	}
	if err := m.validateTables(tables, enabledFeatures); err != nil {
		return err
	}
	if err := m.validateMemories(memories, enabledFeatures); err != nil {
		return err
	}
	if err := m.validateExports(functions, globals, memories, tables); err != nil {
		return err
	}
	if err := m.validateDataCount(); err != nil {
		return err
	}
	return m.validateStartSection()
}

// validateDataCount checks that a present data-count section agrees with
// the actual number of data segments decoded; the two are redundant on
// the wire precisely so a streaming validator can size memory.init/
// data.drop checks before reaching the data section itself.
func (m *Module) validateDataCount() error {
	if m.DataCountSection == nil {
		return nil
	}
	if got, want := uint32(len(m.DataSection)), *m.DataCountSection; got != want {
		return fmt.Errorf("data count section (%d) does not match data section (%d)", want, got)
	}
	return nil
}

const maxGlobals = 1 << 27 // arbitrary high ceiling; spec only forbids unbounded growth.

// validateStartSection checks that, if present, the start function index
// is in range and has type [] -> [].
func (m *Module) validateStartSection() error {
	if m.StartSection == nil {
		return nil
	}
	idx := *m.StartSection
	functions := m.allFunctions()
	if int(idx) >= len(functions) {
		return fmt.Errorf("invalid start function index: %d", idx)
	}
	typeIdx := functions[idx]
	if int(typeIdx) >= len(m.TypeSection) {
		return fmt.Errorf("invalid start function type index: %d", typeIdx)
	}
	ft := m.TypeSection[typeIdx]
	if len(ft.Params) != 0 || len(ft.Results) != 0 {
		return fmt.Errorf("invalid signature for start function: %s", ft.String())
	}
	return nil
}

// importedGlobalTypes returns the prefix of globals (in index-space order)
// that came from imports, which is the only subset a constant expression's
// global.get may legally reference: a module-defined global is always
// initialized before it is assignable to any index space, so it can never
// be its own (or an earlier local global's) initializer.
func (m *Module) importedGlobalTypes(globals []*GlobalType) []*GlobalType {
	imported := len(globals) - len(m.GlobalSection)
	if imported < 0 {
		imported = 0
	}
	return globals[:imported]
}

// validateGlobals checks the total global count (imported plus
// module-defined) against maxGlobals and each module-defined global's
// initializer against its declared type.
func (m *Module) validateGlobals(globals []*GlobalType, maxGlobalsParam int) error {
	if len(globals) > maxGlobalsParam {
		return fmt.Errorf("too many globals: %d exceeds limit %d", len(globals), maxGlobalsParam)
	}
	importedGlobals := m.importedGlobalTypes(globals)
	for _, g := range m.GlobalSection {
		if err := validateConstExpression(importedGlobals, g.Init, g.Type.ValType); err != nil {
			return err
		}
	}
	return nil
}

// validateFunctions checks every module-defined function's type index,
// presence of a matching code-section entry, and runs the stack validator
// over its body.
func (m *Module) validateFunctions(types []*FunctionType, functions []Index, globals []*GlobalType, memories []*MemoryType) error {
	tables := m.allTables()
	numImportedFunctions := len(functions) - len(m.FunctionSection)
	if numImportedFunctions < 0 {
		numImportedFunctions = 0
	}
	for codeIdx, typeIdx := range m.FunctionSection {
		if int(typeIdx) >= len(types) {
			return fmt.Errorf("invalid function: function type index out of range: %d", typeIdx)
		}
		if codeIdx >= len(m.CodeSection) {
			return fmt.Errorf("invalid function: code index out of range: %d", codeIdx)
		}
		ft := types[typeIdx]
		code := m.CodeSection[codeIdx]
		funcIdx := numImportedFunctions + codeIdx
		if err := validateFunction(ft, code.Body, code.LocalTypes, types, functions, globals, memories, tables, maxStackValues); err != nil {
			return fmt.Errorf("invalid function (%d/%d): %w", codeIdx, funcIdx, err)
		}
	}
	return nil
}

const maxStackValues = 1 << 16

// validateTables enforces that at most one table is declared and that
// every element segment references a valid table with a well-typed
// offset expression.
func (m *Module) validateTables(tables []*TableType, features Features) error {
	if len(tables) > 1 {
		return fmt.Errorf("multiple tables are not supported")
	}
	importedGlobals := m.importedGlobalTypes(m.allGlobals())
	for _, e := range m.ElementSection {
		if e.Mode != ElementModeActive {
			continue
		}
		if int(e.TableIndex) >= len(tables) {
			return fmt.Errorf("table index out of range: %d", e.TableIndex)
		}
		if err := validateConstExpression(importedGlobals, e.OffsetExpr, ValueTypeI32); err != nil {
			return err
		}
	}
	return nil
}

// validateMemories enforces at most one memory and that every active data
// segment references memory zero with a well-typed offset expression.
func (m *Module) validateMemories(memories []*MemoryType, features Features) error {
	if len(memories) > 1 {
		return fmt.Errorf("multiple memories are not supported")
	}
	importedGlobals := m.importedGlobalTypes(m.allGlobals())
	for _, d := range m.DataSection {
		if d.OffsetExpression == nil {
			continue // passive segment.
		}
		if len(memories) == 0 {
			return fmt.Errorf("unknown memory: data segment declared but no memory exists")
		}
		if d.MemoryIndex != 0 {
			return fmt.Errorf("memory index must be zero: got %d", d.MemoryIndex)
		}
		if err := validateConstExpression(importedGlobals, d.OffsetExpression, ValueTypeI32); err != nil {
			return err
		}
	}
	return nil
}

// validateExports checks that every exported index is within the
// corresponding index space.
func (m *Module) validateExports(functions []Index, globals []*GlobalType, memories []*MemoryType, tables []*TableType) error {
	for name, e := range m.ExportSection {
		var count int
		switch e.Type {
		case ExternTypeFunc:
			count = len(functions)
		case ExternTypeGlobal:
			count = len(globals)
		case ExternTypeMemory:
			count = len(memories)
		case ExternTypeTable:
			count = len(tables)
		default:
			return fmt.Errorf("export %q: unknown extern type %#x", name, e.Type)
		}
		if int(e.Index) >= count {
			return fmt.Errorf("export %q: %s index out of range: %d", name, ExternTypeName(e.Type), e.Index)
		}
	}
	return nil
}

// validateConstExpression checks that a constant expression is one of the
// four plain const opcodes, a global.get of an immutable global, a ref.null
// of its declared reference type, or a ref.func (a funcref), and that the
// value it produces matches expectedType. globals must already be restricted
// to the imported prefix of the global index space: a constant expression
// may only reference an imported global, never a module-defined one.
func validateConstExpression(globals []*GlobalType, expr *ConstantExpression, expectedType ValueType) error {
	if expr == nil {
		return fmt.Errorf("missing constant expression")
	}
	switch expr.Opcode {
	case OpcodeI32Const:
		if _, _, err := leb128.LoadInt32(expr.Data); err != nil {
			return fmt.Errorf("invalid i32 const expression: %w", err)
		}
		return expectType(ValueTypeI32, expectedType)
	case OpcodeI64Const:
		if _, _, err := leb128.LoadInt64(expr.Data); err != nil {
			return fmt.Errorf("invalid i64 const expression: %w", err)
		}
		return expectType(ValueTypeI64, expectedType)
	case OpcodeF32Const:
		if len(expr.Data) < 4 {
			return fmt.Errorf("invalid f32 const expression: not enough data")
		}
		return expectType(ValueTypeF32, expectedType)
	case OpcodeF64Const:
		if len(expr.Data) < 8 {
			return fmt.Errorf("invalid f64 const expression: not enough data")
		}
		return expectType(ValueTypeF64, expectedType)
	case OpcodeGlobalGet:
		idx, _, err := leb128.LoadUint32(expr.Data)
		if err != nil {
			return fmt.Errorf("failed to read global index: %w", err)
		}
		if int(idx) >= len(globals) {
			return fmt.Errorf("global index out of range: %d", idx)
		}
		if globals[idx].Mutable {
			return fmt.Errorf("constant expression cannot reference mutable global %d", idx)
		}
		return expectType(globals[idx].ValType, expectedType)
	case OpcodeRefNull:
		if len(expr.Data) < 1 {
			return fmt.Errorf("invalid ref.null const expression: not enough data")
		}
		return expectType(expr.Data[0], expectedType)
	case OpcodeRefFunc:
		return expectType(ValueTypeFuncref, expectedType)
	default:
		return fmt.Errorf("invalid opcode for const expression: %#x", expr.Opcode)
	}
}

func expectType(actual, expected ValueType) error {
	if expected == valueTypeUnknown {
		return nil
	}
	if actual != expected {
		return typeMismatchError(expected, actual)
	}
	return nil
}
