package binary

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flightwasm/core/internal/reader"
	"github.com/flightwasm/core/internal/wasm"
	"github.com/flightwasm/core/internal/werr"
)

func header() []byte {
	return append(append([]byte{}, Magic...), 0x01, 0x00, 0x00, 0x00)
}

func section(id wasm.SectionID, body []byte) []byte {
	out := []byte{id}
	out = append(out, encodeVarUint32(uint32(len(body)))...)
	return append(out, body...)
}

// encodeVarUint32 is a minimal unsigned-LEB128 encoder good enough for the
// small counts and indices used in these fixtures.
func encodeVarUint32(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			break
		}
	}
	return out
}

func TestDecodeModule_empty(t *testing.T) {
	m, err := DecodeModule(header())
	require.NoError(t, err)
	require.Empty(t, m.TypeSection)
	require.Empty(t, m.FunctionSection)
}

func TestDecodeModule_tooShort(t *testing.T) {
	_, err := DecodeModule([]byte{0x00, 'a', 's'})
	require.Error(t, err)
}

func TestDecodeModule_badMagic(t *testing.T) {
	_, err := DecodeModule([]byte("wasm\x01\x00\x00\x00"))
	require.Error(t, err)
}

func TestDecodeModule_badVersion(t *testing.T) {
	data := append(append([]byte{}, Magic...), 0x02, 0x00, 0x00, 0x00)
	_, err := DecodeModule(data)
	require.Error(t, err)
}

func TestDecodeModule_typeAndFunctionAndCode(t *testing.T) {
	// type[0] = (i32, i32) -> i32
	typeBody := append(encodeVarUint32(1),
		append([]byte{0x60}, append(encodeVarUint32(2), wasm.ValueTypeI32, wasm.ValueTypeI32)...)...)
	typeBody = append(typeBody, encodeVarUint32(1)...)
	typeBody = append(typeBody, wasm.ValueTypeI32)

	funcBody := append(encodeVarUint32(1), 0x00) // function[0] uses type 0

	code := []byte{
		0x00, // zero local-decl groups
		wasm.OpcodeLocalGet, 0x00,
		wasm.OpcodeLocalGet, 0x01,
		wasm.OpcodeI32Add,
		wasm.OpcodeEnd,
	}
	codeEntry := append(encodeVarUint32(uint32(len(code))), code...)
	codeBody := append(encodeVarUint32(1), codeEntry...)

	data := header()
	data = append(data, section(wasm.SectionIDType, typeBody)...)
	data = append(data, section(wasm.SectionIDFunction, funcBody)...)
	data = append(data, section(wasm.SectionIDCode, codeBody)...)

	m, err := DecodeModule(data)
	require.NoError(t, err)
	require.Len(t, m.TypeSection, 1)
	require.Equal(t, []wasm.ValueType{wasm.ValueTypeI32, wasm.ValueTypeI32}, m.TypeSection[0].Params)
	require.Equal(t, []wasm.ValueType{wasm.ValueTypeI32}, m.TypeSection[0].Results)
	require.Equal(t, []wasm.Index{0}, m.FunctionSection)
	require.Len(t, m.CodeSection, 1)
	require.Equal(t, code[1:], m.CodeSection[0].Body)
}

func TestDecodeModule_sectionsOutOfOrder(t *testing.T) {
	data := header()
	data = append(data, section(wasm.SectionIDFunction, []byte{0x00})...)
	data = append(data, section(wasm.SectionIDType, []byte{0x00})...)
	_, err := DecodeModule(data)
	require.Error(t, err)

	var werrErr *werr.Error
	require.True(t, errors.As(err, &werrErr))
	require.Equal(t, werr.CodeInvalidSectionOrder, werrErr.Code)
}

func TestDecodeModule_duplicateSection(t *testing.T) {
	data := header()
	data = append(data, section(wasm.SectionIDType, []byte{0x00})...)
	data = append(data, section(wasm.SectionIDType, []byte{0x00})...)
	_, err := DecodeModule(data)
	require.Error(t, err)

	var werrErr *werr.Error
	require.True(t, errors.As(err, &werrErr))
	require.Equal(t, werr.CodeDuplicateSection, werrErr.Code)
}

func TestDecodeModule_dataCountBetweenElementAndCode(t *testing.T) {
	typeBody := append(encodeVarUint32(1), 0x60, 0x00, 0x00)
	funcBody := append(encodeVarUint32(1), 0x00)
	tableBody := append(encodeVarUint32(1), wasm.ValueTypeFuncref, 0x00, 0x01)

	offsetExpr := []byte{wasm.OpcodeI32Const, 0x00, wasm.OpcodeEnd}
	elemBody := append(encodeVarUint32(1), 0x00)
	elemBody = append(elemBody, offsetExpr...)
	elemBody = append(elemBody, encodeVarUint32(1)...)
	elemBody = append(elemBody, 0x00)

	dataCountBody := encodeVarUint32(0)

	code := []byte{0x00, wasm.OpcodeEnd}
	codeEntry := append(encodeVarUint32(uint32(len(code))), code...)
	codeBody := append(encodeVarUint32(1), codeEntry...)

	data := header()
	data = append(data, section(wasm.SectionIDType, typeBody)...)
	data = append(data, section(wasm.SectionIDFunction, funcBody)...)
	data = append(data, section(wasm.SectionIDTable, tableBody)...)
	data = append(data, section(wasm.SectionIDElement, elemBody)...)
	data = append(data, section(wasm.SectionIDDataCount, dataCountBody)...)
	data = append(data, section(wasm.SectionIDCode, codeBody)...)

	m, err := DecodeModule(data)
	require.NoError(t, err)
	require.NotNil(t, m.DataCountSection)
	require.Equal(t, uint32(0), *m.DataCountSection)
	require.Len(t, m.CodeSection, 1)
}

func TestDecodeModule_rejectsTrailingBytesInSection(t *testing.T) {
	typeBody := append(encodeVarUint32(1), 0x60, 0x00, 0x00)
	typeBody = append(typeBody, 0xff) // garbage past the declared vector.

	data := header()
	data = append(data, section(wasm.SectionIDType, typeBody)...)
	_, err := DecodeModule(data)
	require.Error(t, err)

	var werrErr *werr.Error
	require.True(t, errors.As(err, &werrErr))
	require.Equal(t, werr.CodeSectionTooLarge, werrErr.Code)
}

func TestDecodeModule_customSectionsAnywhere(t *testing.T) {
	custom := append(encodeVarUint32(5), []byte("hello")...)
	data := header()
	data = append(data, section(wasm.SectionIDCustom, custom)...)
	data = append(data, section(wasm.SectionIDType, []byte{0x00})...)
	data = append(data, section(wasm.SectionIDCustom, custom)...)
	_, err := DecodeModule(data)
	require.NoError(t, err)
}

func TestDecodeModule_redundantNameSection(t *testing.T) {
	name := append(encodeVarUint32(4), []byte("name")...)
	data := header()
	data = append(data, section(wasm.SectionIDCustom, name)...)
	data = append(data, section(wasm.SectionIDCustom, name)...)
	_, err := DecodeModule(data)
	require.Error(t, err)
}

func TestDecodeModule_importTableMemoryGlobalExportStart(t *testing.T) {
	// one imported function, one local table, one local memory, one local
	// global, one export of the global, a start section pointing at a
	// zero-arg zero-result function.
	typeBody := append(encodeVarUint32(1), 0x60, 0x00, 0x00)

	moduleName := append(encodeVarUint32(3), []byte("env")...)
	fieldName := append(encodeVarUint32(3), []byte("log")...)
	imp := append(moduleName, fieldName...)
	imp = append(imp, wasm.ExternTypeFunc, 0x00)
	importBody := append(encodeVarUint32(1), imp...)

	funcBody := append(encodeVarUint32(1), 0x00)

	tableBody := append(encodeVarUint32(1), wasm.ValueTypeFuncref, 0x00, 0x01)

	memBody := append(encodeVarUint32(1), 0x00, 0x01)

	globalInit := []byte{wasm.OpcodeI32Const, 0x00, wasm.OpcodeEnd}
	globalBody := append(encodeVarUint32(1), wasm.ValueTypeI32, 0x01)
	globalBody = append(globalBody, globalInit...)

	expName := append(encodeVarUint32(1), []byte("g")...)
	exp := append(expName, wasm.ExternTypeGlobal)
	exp = append(exp, 0x00)
	exportBody := append(encodeVarUint32(1), exp...)

	code := []byte{0x00, wasm.OpcodeEnd}
	codeEntry := append(encodeVarUint32(uint32(len(code))), code...)
	codeBody := append(encodeVarUint32(1), codeEntry...)

	startBody := []byte{0x00}

	data := header()
	data = append(data, section(wasm.SectionIDType, typeBody)...)
	data = append(data, section(wasm.SectionIDImport, importBody)...)
	data = append(data, section(wasm.SectionIDFunction, funcBody)...)
	data = append(data, section(wasm.SectionIDTable, tableBody)...)
	data = append(data, section(wasm.SectionIDMemory, memBody)...)
	data = append(data, section(wasm.SectionIDGlobal, globalBody)...)
	data = append(data, section(wasm.SectionIDExport, exportBody)...)
	data = append(data, section(wasm.SectionIDStart, startBody)...)
	data = append(data, section(wasm.SectionIDCode, codeBody)...)

	m, err := DecodeModule(data)
	require.NoError(t, err)
	require.Len(t, m.ImportSection, 1)
	require.Equal(t, "env", m.ImportSection[0].Module)
	require.Equal(t, "log", m.ImportSection[0].Name)
	require.Len(t, m.TableSection, 1)
	require.Len(t, m.MemorySection, 1)
	require.Len(t, m.GlobalSection, 1)
	require.Len(t, m.ExportSection, 1)
	require.NotNil(t, m.ExportSection["g"])
	require.NotNil(t, m.StartSection)
	require.Equal(t, wasm.Index(0), *m.StartSection)
}

func TestDecodeModule_elementAndDataSegments(t *testing.T) {
	typeBody := append(encodeVarUint32(1), 0x60, 0x00, 0x00)
	funcBody := append(encodeVarUint32(1), 0x00)
	tableBody := append(encodeVarUint32(1), wasm.ValueTypeFuncref, 0x00, 0x01)
	memBody := append(encodeVarUint32(1), 0x00, 0x01)

	offsetExpr := []byte{wasm.OpcodeI32Const, 0x00, wasm.OpcodeEnd}
	elemBody := append(encodeVarUint32(1), 0x00) // flag 0: active, table 0 implied
	elemBody = append(elemBody, offsetExpr...)
	elemBody = append(elemBody, encodeVarUint32(1)...)
	elemBody = append(elemBody, 0x00) // function index 0

	dataBody := append(encodeVarUint32(1), 0x00)
	dataBody = append(dataBody, offsetExpr...)
	dataBody = append(dataBody, encodeVarUint32(3)...)
	dataBody = append(dataBody, []byte("abc")...)

	code := []byte{0x00, wasm.OpcodeEnd}
	codeEntry := append(encodeVarUint32(uint32(len(code))), code...)
	codeBody := append(encodeVarUint32(1), codeEntry...)

	data := header()
	data = append(data, section(wasm.SectionIDType, typeBody)...)
	data = append(data, section(wasm.SectionIDFunction, funcBody)...)
	data = append(data, section(wasm.SectionIDTable, tableBody)...)
	data = append(data, section(wasm.SectionIDMemory, memBody)...)
	data = append(data, section(wasm.SectionIDElement, elemBody)...)
	data = append(data, section(wasm.SectionIDCode, codeBody)...)
	data = append(data, section(wasm.SectionIDData, dataBody)...)

	m, err := DecodeModule(data)
	require.NoError(t, err)
	require.Len(t, m.ElementSection, 1)
	require.Equal(t, wasm.ElementModeActive, m.ElementSection[0].Mode)
	require.Equal(t, []wasm.Index{0}, m.ElementSection[0].Init)
	require.Len(t, m.DataSection, 1)
	require.Equal(t, []byte("abc"), m.DataSection[0].Init)
}

func TestDecodeModule_nameSection(t *testing.T) {
	moduleNameSub := append([]byte{subsectionIDModuleName}, encodeVarUint32(4)...)
	moduleNameSub = append(moduleNameSub, encodeVarUint32(3)...)
	moduleNameSub = append(moduleNameSub, []byte("mod")...)

	nameBody := append(encodeVarUint32(4), []byte("name")...)
	nameBody = append(nameBody, moduleNameSub...)

	data := header()
	data = append(data, section(wasm.SectionIDCustom, nameBody)...)

	m, err := DecodeModule(data)
	require.NoError(t, err)
	require.NotNil(t, m.NameSection)
	require.Equal(t, "mod", m.NameSection.ModuleName)
}

func TestDecodeFunctionType_rejectsBadTag(t *testing.T) {
	r := reader.New([]byte{0x61, 0x00, 0x00})
	_, err := decodeFunctionType(r)
	require.Error(t, err)
}

func TestDecodeLimits_minOnly(t *testing.T) {
	r := reader.New([]byte{0x00, 0x05})
	lim, err := decodeLimits(r)
	require.NoError(t, err)
	require.Equal(t, uint32(5), lim.Min)
	require.Nil(t, lim.Max)
}

func TestDecodeLimits_minAndMax(t *testing.T) {
	r := reader.New([]byte{0x01, 0x01, 0x02})
	lim, err := decodeLimits(r)
	require.NoError(t, err)
	require.Equal(t, uint32(1), lim.Min)
	require.NotNil(t, lim.Max)
	require.Equal(t, uint32(2), *lim.Max)
}

func TestDecodeTableSection_rejectsMultiple(t *testing.T) {
	body := append(encodeVarUint32(2),
		wasm.ValueTypeFuncref, 0x00, 0x01,
		wasm.ValueTypeFuncref, 0x00, 0x01)
	_, err := decodeTableSection(reader.New(body))
	require.Error(t, err)
}

func TestDecodeMemorySection_rejectsMultiple(t *testing.T) {
	body := append(encodeVarUint32(2), 0x00, 0x01, 0x00, 0x01)
	_, err := decodeMemorySection(reader.New(body))
	require.Error(t, err)
}

func TestDecodeExportSection_rejectsDuplicateName(t *testing.T) {
	name := append(encodeVarUint32(1), []byte("f")...)
	one := append(append([]byte{}, name...), wasm.ExternTypeFunc, 0x00)
	two := append(append([]byte{}, name...), wasm.ExternTypeFunc, 0x01)
	body := append(encodeVarUint32(2), one...)
	body = append(body, two...)
	_, err := decodeExportSection(reader.New(body))
	require.Error(t, err)
}

func TestDecodeConstantExpression_rejectsTrailingInstruction(t *testing.T) {
	body := []byte{wasm.OpcodeI32Const, 0x01, wasm.OpcodeI32Const, 0x01, wasm.OpcodeEnd}
	_, err := decodeConstantExpression(reader.New(body))
	require.Error(t, err)
}

func TestDecodeConstantExpression_refFunc(t *testing.T) {
	body := []byte{wasm.OpcodeRefFunc, 0x02, wasm.OpcodeEnd}
	expr, err := decodeConstantExpression(reader.New(body))
	require.NoError(t, err)
	require.Equal(t, wasm.Opcode(wasm.OpcodeRefFunc), expr.Opcode)
	idx, _, err := decodeInlineVarUint32(expr.Data)
	require.NoError(t, err)
	require.Equal(t, wasm.Index(2), idx)
}
