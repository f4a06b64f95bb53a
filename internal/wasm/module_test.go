package wasm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFunctionType_String(t *testing.T) {
	for _, tc := range []struct {
		functype *FunctionType
		exp      string
	}{
		{functype: &FunctionType{}, exp: "null_null"},
		{functype: &FunctionType{Params: []ValueType{ValueTypeI32}}, exp: "i32_null"},
		{functype: &FunctionType{Params: []ValueType{ValueTypeI32, ValueTypeF64}}, exp: "i32f64_null"},
		{functype: &FunctionType{Results: []ValueType{ValueTypeI64}}, exp: "null_i64"},
		{functype: &FunctionType{Params: []ValueType{ValueTypeI32}, Results: []ValueType{ValueTypeI64}}, exp: "i32_i64"},
	} {
		tc := tc
		t.Run(tc.exp, func(t *testing.T) {
			require.Equal(t, tc.exp, tc.functype.String())
		})
	}
}

func TestSectionIDName(t *testing.T) {
	tests := []struct {
		input    SectionID
		expected string
	}{
		{SectionIDCustom, "custom"},
		{SectionIDType, "type"},
		{SectionIDImport, "import"},
		{SectionIDFunction, "function"},
		{SectionIDTable, "table"},
		{SectionIDMemory, "memory"},
		{SectionIDGlobal, "global"},
		{SectionIDExport, "export"},
		{SectionIDStart, "start"},
		{SectionIDElement, "element"},
		{SectionIDCode, "code"},
		{SectionIDData, "data"},
		{100, "unknown"},
	}
	for _, tc := range tests {
		require.Equal(t, tc.expected, SectionIDName(tc.input))
	}
}

func TestModule_allDeclarations(t *testing.T) {
	for _, tc := range []struct {
		name              string
		module            *Module
		expectedFunctions []Index
		expectedGlobals   []*GlobalType
		expectedMemories  []*MemoryType
		expectedTables    []*TableType
	}{
		{
			name: "imported and local functions",
			module: &Module{
				ImportSection:   []*Import{{Type: ExternTypeFunc, DescFunc: 10000}},
				FunctionSection: []Index{10, 20, 30},
			},
			expectedFunctions: []Index{10000, 10, 20, 30},
		},
		{
			name: "local functions only",
			module: &Module{
				FunctionSection: []Index{10, 20, 30},
			},
			expectedFunctions: []Index{10, 20, 30},
		},
		{
			name: "imported globals before local",
			module: &Module{
				ImportSection: []*Import{{Type: ExternTypeGlobal, DescGlobal: &GlobalType{Mutable: false}}},
				GlobalSection: []*Global{{Type: &GlobalType{Mutable: true}}},
			},
			expectedGlobals: []*GlobalType{{Mutable: false}, {Mutable: true}},
		},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			functions, globals, memories, tables := tc.module.allDeclarations()
			if tc.expectedFunctions != nil {
				require.Equal(t, tc.expectedFunctions, functions)
			}
			if tc.expectedGlobals != nil {
				require.Equal(t, tc.expectedGlobals, globals)
			}
			if tc.expectedMemories != nil {
				require.Equal(t, tc.expectedMemories, memories)
			}
			if tc.expectedTables != nil {
				require.Equal(t, tc.expectedTables, tables)
			}
		})
	}
}

func TestModule_validateGlobals(t *testing.T) {
	t.Run("ok with imported global", func(t *testing.T) {
		m := &Module{
			GlobalSection: []*Global{
				{Type: &GlobalType{ValType: ValueTypeI32}, Init: &ConstantExpression{Opcode: OpcodeGlobalGet, Data: []byte{0x00}}},
			},
		}
		globals := []*GlobalType{{ValType: ValueTypeI32, Mutable: false}, {ValType: ValueTypeI32}}
		require.NoError(t, m.validateGlobals(globals, maxGlobals))
	})
	t.Run("global index out of range", func(t *testing.T) {
		m := &Module{
			GlobalSection: []*Global{
				{Type: &GlobalType{ValType: ValueTypeI32}, Init: &ConstantExpression{Opcode: OpcodeGlobalGet, Data: []byte{0x05}}},
			},
		}
		globals := []*GlobalType{{ValType: ValueTypeI32}}
		require.Error(t, m.validateGlobals(globals, maxGlobals))
	})
	t.Run("too many globals", func(t *testing.T) {
		m := &Module{GlobalSection: make([]*Global, 2)}
		require.Error(t, m.validateGlobals(make([]*GlobalType, 2), 1))
	})
	t.Run("global.get references a local (not imported) global", func(t *testing.T) {
		// globals[0] is imported; globals[1] belongs to GlobalSection itself
		// (the second declared global), so it is not yet in scope for any
		// initializer, even though it is immutable and in range overall.
		m := &Module{
			GlobalSection: []*Global{
				{Type: &GlobalType{ValType: ValueTypeI32}, Init: &ConstantExpression{Opcode: OpcodeGlobalGet, Data: []byte{0x01}}},
				{Type: &GlobalType{ValType: ValueTypeI32, Mutable: false}},
			},
		}
		globals := []*GlobalType{{ValType: ValueTypeI32, Mutable: false}, {ValType: ValueTypeI32, Mutable: false}, {ValType: ValueTypeI32, Mutable: false}}
		require.Error(t, m.validateGlobals(globals, maxGlobals))
	})
}

func TestModule_validateExports(t *testing.T) {
	m := &Module{
		ExportSection: map[string]*Export{
			"f": {Name: "f", Type: ExternTypeFunc, Index: 0},
		},
	}
	t.Run("ok", func(t *testing.T) {
		require.NoError(t, m.validateExports([]Index{0}, nil, nil, nil))
	})
	t.Run("func index out of range", func(t *testing.T) {
		require.Error(t, m.validateExports(nil, nil, nil, nil))
	})
}

func TestModule_validateStartSection(t *testing.T) {
	zero := Index(0)
	t.Run("ok", func(t *testing.T) {
		m := &Module{
			TypeSection:     []*FunctionType{{}},
			FunctionSection: []Index{0},
			StartSection:    &zero,
		}
		require.NoError(t, m.validateStartSection())
	})
	t.Run("invalid signature", func(t *testing.T) {
		m := &Module{
			TypeSection:     []*FunctionType{{Params: []ValueType{ValueTypeI32}}},
			FunctionSection: []Index{0},
			StartSection:    &zero,
		}
		require.Error(t, m.validateStartSection())
	})
}

func TestModule_validateDataCount(t *testing.T) {
	count := uint32(1)
	t.Run("ok matching count", func(t *testing.T) {
		m := &Module{DataCountSection: &count, DataSection: []*DataSegment{{}}}
		require.NoError(t, m.validateDataCount())
	})
	t.Run("mismatched count", func(t *testing.T) {
		m := &Module{DataCountSection: &count}
		require.Error(t, m.validateDataCount())
	})
	t.Run("absent section skips check", func(t *testing.T) {
		m := &Module{}
		require.NoError(t, m.validateDataCount())
	})
}

func TestValidateConstExpression_rejectsMutableGlobal(t *testing.T) {
	globals := []*GlobalType{{ValType: ValueTypeI32, Mutable: true}}
	err := validateConstExpression(globals, &ConstantExpression{Opcode: OpcodeGlobalGet, Data: []byte{0x00}}, ValueTypeI32)
	require.Error(t, err)
}

func TestValidateConstExpression(t *testing.T) {
	globals := []*GlobalType{{ValType: ValueTypeI32}}
	t.Run("i32.const ok", func(t *testing.T) {
		require.NoError(t, validateConstExpression(globals, &ConstantExpression{Opcode: OpcodeI32Const, Data: []byte{0x00}}, ValueTypeI32))
	})
	t.Run("type mismatch", func(t *testing.T) {
		require.Error(t, validateConstExpression(globals, &ConstantExpression{Opcode: OpcodeI32Const, Data: []byte{0x00}}, ValueTypeF64))
	})
	t.Run("invalid opcode", func(t *testing.T) {
		require.Error(t, validateConstExpression(globals, &ConstantExpression{Opcode: OpcodeNop}, ValueTypeI32))
	})
}
