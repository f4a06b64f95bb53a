package wasm

import (
	"fmt"

	"github.com/flightwasm/core/internal/leb128"
	"github.com/flightwasm/core/internal/werr"
)

// ctrlFrame tracks one nested block/loop/if/else/function-body scope during
// validation: its signature, the height of the value stack at entry (so an
// implicit branch to the end can verify exactly the result arity remains),
// and whether code following this point is unreachable.
type ctrlFrame struct {
	opcode      Opcode
	startTypes  []ValueType
	endTypes    []ValueType
	height      int // value stack height when this frame was pushed.
	unreachable bool
	sawElse     bool
}

// funcValidator carries the mutable state threaded through one function
// body's validation pass: the value-type stack, control-frame stack, and
// the module context needed to resolve indices.
type funcValidator struct {
	valueStack []ValueType
	ctrlStack  []ctrlFrame

	localTypes []ValueType // params followed by declared locals.
	types      []*FunctionType
	functions  []Index
	globals    []*GlobalType
	memories   []*MemoryType
	tables     []*TableType

	maxStackValues int
	maxStackSeen   int
}

// validateFunction runs the stack-polymorphic type-checking algorithm over
// one function body. localTypes holds only the function's own declared
// locals (not its parameters, which come from functype.Params).
func validateFunction(
	functype *FunctionType,
	body []byte,
	localTypes []ValueType,
	types []*FunctionType,
	functions []Index,
	globals []*GlobalType,
	memories []*MemoryType,
	tables []*TableType,
	maxStackValues int,
) error {
	allLocals := append(append([]ValueType{}, functype.Params...), localTypes...)
	v := &funcValidator{
		localTypes:     allLocals,
		types:          types,
		functions:      functions,
		globals:        globals,
		memories:       memories,
		tables:         tables,
		maxStackValues: maxStackValues,
	}
	v.pushCtrl(OpcodeBlock, nil, functype.Results)

	r := &codeReader{data: body}
	for !r.done() {
		if err := v.step(r); err != nil {
			return err
		}
		if len(v.ctrlStack) == 0 {
			break // End of the implicit function-body block popped the frame.
		}
	}
	if len(v.ctrlStack) != 0 {
		return fmt.Errorf("missing end for function body")
	}
	if v.maxStackSeen > v.maxStackValues {
		return fmt.Errorf("function may have %d stack values, which exceeds limit %d", v.maxStackSeen, v.maxStackValues)
	}
	return nil
}

// codeReader is a tiny cursor over a function body's raw bytes, handling
// opcodes, LEB128 immediates, and the 0xFC/0xFD extended-opcode prefixes.
type codeReader struct {
	data []byte
	pos  int
}

func (r *codeReader) done() bool { return r.pos >= len(r.data) }

func (r *codeReader) readByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, fmt.Errorf("unexpected end of function body")
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *codeReader) ReadByte() (byte, error) { return r.readByte() }

func (r *codeReader) readVarUint32() (uint32, error) {
	v, n, err := leb128.LoadUint32(r.data[r.pos:])
	if err != nil {
		return 0, err
	}
	r.pos += int(n)
	return v, nil
}

func (r *codeReader) readVarInt32() (int32, error) {
	v, n, err := leb128.LoadInt32(r.data[r.pos:])
	if err != nil {
		return 0, err
	}
	r.pos += int(n)
	return v, nil
}

func (r *codeReader) readVarInt64() (int64, error) {
	v, n, err := leb128.LoadInt64(r.data[r.pos:])
	if err != nil {
		return 0, err
	}
	r.pos += int(n)
	return v, nil
}

func (r *codeReader) readBlockType() (int64, error) {
	v, _, err := leb128.DecodeInt33AsInt64(r)
	return v, err
}

func (r *codeReader) readBytes(n int) ([]byte, error) {
	if r.pos+n > len(r.data) {
		return nil, fmt.Errorf("unexpected end of function body")
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// blockTypeCode returns the s33 value a block-type byte decodes to: its
// low 7 bits sign-extended from bit 6, matching how the binary format
// folds the 0x40 empty sentinel and each single-byte valtype into the
// same signed LEB128 space as a type-section index.
func blockTypeCode(t ValueType) int64 { return int64(t) - 128 }

// blockTypeToSignature resolves a block-type immediate (either the 0x40
// empty sentinel, a single ValueType, or an s33 type-section index) into
// a FunctionType.
func (v *funcValidator) blockTypeToSignature(bt int64) (*FunctionType, error) {
	switch bt {
	case blockTypeCode(ValueTypeNone):
		return &FunctionType{}, nil
	case blockTypeCode(ValueTypeI32), blockTypeCode(ValueTypeI64),
		blockTypeCode(ValueTypeF32), blockTypeCode(ValueTypeF64),
		blockTypeCode(ValueTypeV128), blockTypeCode(ValueTypeFuncref),
		blockTypeCode(ValueTypeExternref):
		return &FunctionType{Results: []ValueType{ValueType(bt + 128)}}, nil
	}
	if bt < 0 {
		return nil, fmt.Errorf("invalid block type: %d", bt)
	}
	if int(bt) >= len(v.types) {
		return nil, fmt.Errorf("invalid block type: type index out of range: %d", bt)
	}
	return v.types[bt], nil
}

func (v *funcValidator) pushCtrl(op Opcode, start, end []ValueType) {
	v.ctrlStack = append(v.ctrlStack, ctrlFrame{
		opcode: op, startTypes: start, endTypes: end, height: len(v.valueStack),
	})
	for _, t := range start {
		v.pushValue(t)
	}
}

func (v *funcValidator) pushValue(t ValueType) {
	v.valueStack = append(v.valueStack, t)
	if len(v.valueStack) > v.maxStackSeen {
		v.maxStackSeen = len(v.valueStack)
	}
}

// popValue pops a value of the given type (or valueTypeUnknown for a
// polymorphic "any" pop, e.g. under unreachable code), returning the
// actual popped type, or an error identifying which operand position
// failed (1-indexed, matching the ordinal phrasing used throughout).
func (v *funcValidator) popValue(expected ValueType, ordinal int) (ValueType, error) {
	top := &v.ctrlStack[len(v.ctrlStack)-1]
	if len(v.valueStack) == top.height {
		if top.unreachable {
			return valueTypeUnknown, nil
		}
		return 0, fmt.Errorf("cannot pop the %s operand: stack underflow", ordinalName(ordinal))
	}
	actual := v.valueStack[len(v.valueStack)-1]
	v.valueStack = v.valueStack[:len(v.valueStack)-1]
	if expected != valueTypeUnknown && actual != valueTypeUnknown && actual != expected {
		return 0, fmt.Errorf("cannot pop the %s operand", ordinalName(ordinal)+" "+ValueTypeName(expected)+", have "+ValueTypeName(actual))
	}
	return actual, nil
}

func ordinalName(n int) string {
	switch n {
	case 1:
		return "1st"
	case 2:
		return "2nd"
	case 3:
		return "3rd"
	default:
		return fmt.Sprintf("%dth", n)
	}
}

// popOperand pops one value expected to be exactly `t`, reporting a
// message like "cannot pop the 1st f32 operand" on mismatch.
func (v *funcValidator) popOperand(t ValueType, ordinal int) error {
	top := &v.ctrlStack[len(v.ctrlStack)-1]
	if len(v.valueStack) == top.height {
		if top.unreachable {
			return nil
		}
		return fmt.Errorf("cannot pop the %s %s operand", ordinalName(ordinal), ValueTypeName(t))
	}
	actual := v.valueStack[len(v.valueStack)-1]
	v.valueStack = v.valueStack[:len(v.valueStack)-1]
	if actual != t {
		return fmt.Errorf("cannot pop the %s %s operand, but was %s", ordinalName(ordinal), ValueTypeName(t), ValueTypeName(actual))
	}
	return nil
}

func (v *funcValidator) popAny() (ValueType, error) {
	top := &v.ctrlStack[len(v.ctrlStack)-1]
	if len(v.valueStack) == top.height {
		if top.unreachable {
			return valueTypeUnknown, nil
		}
		return 0, fmt.Errorf("cannot pop operand: stack underflow")
	}
	actual := v.valueStack[len(v.valueStack)-1]
	v.valueStack = v.valueStack[:len(v.valueStack)-1]
	return actual, nil
}

func (v *funcValidator) setUnreachable() {
	top := &v.ctrlStack[len(v.ctrlStack)-1]
	v.valueStack = v.valueStack[:top.height]
	top.unreachable = true
}

// popCtrl pops the current control frame, checking that exactly its
// result types remain on the value stack, and returns it; the caller pushes
// the frame's results onto the enclosing frame.
func (v *funcValidator) popCtrl() (ctrlFrame, error) {
	top := v.ctrlStack[len(v.ctrlStack)-1]
	for i := len(top.endTypes) - 1; i >= 0; i-- {
		if err := v.popOperand(top.endTypes[i], len(top.endTypes)-i); err != nil {
			return ctrlFrame{}, err
		}
	}
	if len(v.valueStack) != top.height {
		return ctrlFrame{}, fmt.Errorf("mismatched value stack height at end of block: have %d, want %d", len(v.valueStack), top.height)
	}
	v.ctrlStack = v.ctrlStack[:len(v.ctrlStack)-1]
	return top, nil
}

// labelTypes returns the types a branch to the given relative depth's
// label must supply: a loop's label type is its start types (the types
// needed to branch back to the top), every other construct's is its end
// types.
func labelTypes(f *ctrlFrame) []ValueType {
	if f.opcode == OpcodeLoop {
		return f.startTypes
	}
	return f.endTypes
}

// step validates a single instruction (or nested block/loop/if) at the
// reader's current position.
func (v *funcValidator) step(r *codeReader) error {
	op, err := r.readByte()
	if err != nil {
		return err
	}

	switch op {
	case OpcodeUnreachable:
		v.setUnreachable()
	case OpcodeNop:
	case OpcodeBlock, OpcodeLoop, OpcodeIf:
		bt, err := r.readBlockType()
		if err != nil {
			return err
		}
		ft, err := v.blockTypeToSignature(bt)
		if err != nil {
			return err
		}
		if op == OpcodeIf {
			if err := v.popOperand(ValueTypeI32, 1); err != nil {
				return err
			}
		}
		for i := len(ft.Params) - 1; i >= 0; i-- {
			if err := v.popOperand(ft.Params[i], len(ft.Params)-i); err != nil {
				return err
			}
		}
		v.pushCtrl(op, ft.Params, ft.Results)
	case OpcodeElse:
		if len(v.ctrlStack) == 0 || v.ctrlStack[len(v.ctrlStack)-1].opcode != OpcodeIf {
			return fmt.Errorf("else without matching if")
		}
		frame, err := v.popCtrl()
		if err != nil {
			return err
		}
		v.pushCtrl(OpcodeElse, frame.startTypes, frame.endTypes)
	case OpcodeEnd:
		frame, err := v.popCtrl()
		if err != nil {
			return err
		}
		if len(v.ctrlStack) == 0 {
			return nil // function body's implicit block just ended.
		}
		// The popped block's result types become values of the enclosing
		// frame (popCtrl already verified they're present and well-typed).
		for _, t := range frame.endTypes {
			v.pushValue(t)
		}
	case OpcodeBr:
		depth, err := r.readVarUint32()
		if err != nil {
			return err
		}
		if err := v.checkBranch(depth); err != nil {
			return err
		}
		v.setUnreachable()
	case OpcodeBrIf:
		depth, err := r.readVarUint32()
		if err != nil {
			return err
		}
		if err := v.popOperand(ValueTypeI32, 1); err != nil {
			return err
		}
		if err := v.checkBranch(depth); err != nil {
			return err
		}
	case OpcodeBrTable:
		count, err := r.readVarUint32()
		if err != nil {
			return err
		}
		for i := uint32(0); i < count; i++ {
			d, err := r.readVarUint32()
			if err != nil {
				return err
			}
			if err := v.checkBranch(d); err != nil {
				return err
			}
		}
		defaultDepth, err := r.readVarUint32()
		if err != nil {
			return err
		}
		if err := v.popOperand(ValueTypeI32, 1); err != nil {
			return err
		}
		if err := v.checkBranch(defaultDepth); err != nil {
			return err
		}
		v.setUnreachable()
	case OpcodeReturn:
		if err := v.checkBranch(uint32(len(v.ctrlStack) - 1)); err != nil {
			return err
		}
		v.setUnreachable()
	case OpcodeCall:
		idx, err := r.readVarUint32()
		if err != nil {
			return err
		}
		if int(idx) >= len(v.functions) {
			return fmt.Errorf("invalid call: function index out of range: %d", idx)
		}
		typeIdx := v.functions[idx]
		if int(typeIdx) >= len(v.types) {
			return fmt.Errorf("invalid call: function type index out of range: %d", typeIdx)
		}
		return v.applySignature(v.types[typeIdx])
	case OpcodeCallIndirect:
		typeIdx, err := r.readVarUint32()
		if err != nil {
			return err
		}
		tableIdx, err := r.readVarUint32()
		if err != nil {
			return err
		}
		if int(tableIdx) >= len(v.tables) {
			return fmt.Errorf("invalid call_indirect: table index out of range: %d", tableIdx)
		}
		if int(typeIdx) >= len(v.types) {
			return fmt.Errorf("invalid call_indirect: type index out of range: %d", typeIdx)
		}
		if err := v.popOperand(ValueTypeI32, 1); err != nil {
			return err
		}
		return v.applySignature(v.types[typeIdx])
	case OpcodeDrop:
		if _, err := v.popAny(); err != nil {
			return err
		}
	case OpcodeSelect:
		if err := v.popOperand(ValueTypeI32, 1); err != nil {
			return err
		}
		t2, err := v.popAny()
		if err != nil {
			return err
		}
		t1, err := v.popAny()
		if err != nil {
			return err
		}
		if t1 != valueTypeUnknown && t2 != valueTypeUnknown && t1 != t2 {
			return fmt.Errorf("type mismatch on select: %s vs %s", ValueTypeName(t1), ValueTypeName(t2))
		}
		if t1 != valueTypeUnknown {
			v.pushValue(t1)
		} else {
			v.pushValue(t2)
		}
	case OpcodeSelectWithType:
		n, err := r.readVarUint32()
		if err != nil {
			return err
		}
		types, err := r.readBytes(int(n))
		if err != nil {
			return err
		}
		if err := v.popOperand(ValueTypeI32, 1); err != nil {
			return err
		}
		if n != 1 {
			return fmt.Errorf("select with type must declare exactly one type")
		}
		t := types[0]
		if err := v.popOperand(t, 1); err != nil {
			return err
		}
		if err := v.popOperand(t, 2); err != nil {
			return err
		}
		v.pushValue(t)
	case OpcodeLocalGet, OpcodeLocalSet, OpcodeLocalTee:
		idx, err := r.readVarUint32()
		if err != nil {
			return err
		}
		if int(idx) >= len(v.localTypes) {
			return fmt.Errorf("invalid local index: %d", idx)
		}
		t := v.localTypes[idx]
		switch op {
		case OpcodeLocalGet:
			v.pushValue(t)
		case OpcodeLocalSet:
			if err := v.popOperand(t, 1); err != nil {
				return err
			}
		case OpcodeLocalTee:
			if err := v.popOperand(t, 1); err != nil {
				return err
			}
			v.pushValue(t)
		}
	case OpcodeGlobalGet, OpcodeGlobalSet:
		idx, err := r.readVarUint32()
		if err != nil {
			return err
		}
		if int(idx) >= len(v.globals) {
			return fmt.Errorf("invalid global index: %d", idx)
		}
		g := v.globals[idx]
		if op == OpcodeGlobalGet {
			v.pushValue(g.ValType)
		} else {
			if !g.Mutable {
				return fmt.Errorf("global %d is immutable", idx)
			}
			if err := v.popOperand(g.ValType, 1); err != nil {
				return err
			}
		}
	case OpcodeTableGet, OpcodeTableSet:
		idx, err := r.readVarUint32()
		if err != nil {
			return err
		}
		if int(idx) >= len(v.tables) {
			return fmt.Errorf("invalid table index: %d", idx)
		}
		et := v.tables[idx].ElemType
		if op == OpcodeTableGet {
			if err := v.popOperand(ValueTypeI32, 1); err != nil {
				return err
			}
			v.pushValue(et)
		} else {
			if err := v.popOperand(et, 1); err != nil {
				return err
			}
			if err := v.popOperand(ValueTypeI32, 2); err != nil {
				return err
			}
		}
	case OpcodeMemorySize, OpcodeMemoryGrow:
		if _, err := r.readVarUint32(); err != nil { // reserved memory index byte.
			return err
		}
		if len(v.memories) == 0 {
			return fmt.Errorf("memory instruction requires a memory, but module has none")
		}
		if op == OpcodeMemoryGrow {
			if err := v.popOperand(ValueTypeI32, 1); err != nil {
				return err
			}
		}
		v.pushValue(ValueTypeI32)
	case OpcodeI32Const:
		if _, err := r.readVarInt32(); err != nil {
			return err
		}
		v.pushValue(ValueTypeI32)
	case OpcodeI64Const:
		if _, err := r.readVarInt64(); err != nil {
			return err
		}
		v.pushValue(ValueTypeI64)
	case OpcodeF32Const:
		if _, err := r.readBytes(4); err != nil {
			return err
		}
		v.pushValue(ValueTypeF32)
	case OpcodeF64Const:
		if _, err := r.readBytes(8); err != nil {
			return err
		}
		v.pushValue(ValueTypeF64)
	case OpcodeRefNull:
		t, err := r.readByte()
		if err != nil {
			return err
		}
		v.pushValue(t)
	case OpcodeRefIsNull:
		if _, err := v.popAny(); err != nil {
			return err
		}
		v.pushValue(ValueTypeI32)
	case OpcodeRefFunc:
		idx, err := r.readVarUint32()
		if err != nil {
			return err
		}
		if int(idx) >= len(v.functions) {
			return fmt.Errorf("invalid function index for ref.func: %d", idx)
		}
		v.pushValue(ValueTypeFuncref)
	case OpcodeMiscPrefix:
		sub, err := r.readVarUint32()
		if err != nil {
			return err
		}
		return v.stepMisc(r, Opcode(sub))
	default:
		if sig, ok := numericSignatures[op]; ok {
			return v.applyMemoryOrSignature(r, op, sig)
		}
		return werr.Newf(werr.CodeUnsupportedInstruction, "unsupported opcode: %#x", op)
	}
	return nil
}

// applySignature pops a function signature's params (in reverse) and
// pushes its results.
func (v *funcValidator) applySignature(ft *FunctionType) error {
	for i := len(ft.Params) - 1; i >= 0; i-- {
		if err := v.popOperand(ft.Params[i], len(ft.Params)-i); err != nil {
			return err
		}
	}
	for _, t := range ft.Results {
		v.pushValue(t)
	}
	return nil
}

// applyMemoryOrSignature handles every plain numeric/comparison opcode and
// the memory load/store family, both of which are driven by a static
// signature table plus (for memory ops) an alignment/offset immediate.
func (v *funcValidator) applyMemoryOrSignature(r *codeReader, op Opcode, sig opSignature) error {
	if sig.isMemory {
		align, err := r.readVarUint32()
		if err != nil {
			return err
		}
		if _, err := r.readVarUint32(); err != nil { // offset
			return err
		}
		maxAlign := uint32(2) // log2 of the access width in bytes
		switch op {
		case OpcodeI32Load8S, OpcodeI32Load8U, OpcodeI64Load8S, OpcodeI64Load8U, OpcodeI32Store8, OpcodeI64Store8:
			maxAlign = 0
		case OpcodeI32Load16S, OpcodeI32Load16U, OpcodeI64Load16S, OpcodeI64Load16U, OpcodeI32Store16, OpcodeI64Store16:
			maxAlign = 1
		case OpcodeI64Load, OpcodeF64Load, OpcodeI64Store, OpcodeF64Store:
			maxAlign = 3
		}
		if align > maxAlign {
			return fmt.Errorf("invalid memory alignment: %d exceeds natural alignment %d", align, maxAlign)
		}
		if len(v.memories) == 0 {
			return fmt.Errorf("memory instruction requires a memory, but module has none")
		}
	}
	return v.applySignature(&FunctionType{Params: sig.params, Results: sig.results})
}

// stepMisc handles the 0xFC-prefixed extended opcodes: saturating
// conversions (take one float, produce one integer) and the bulk-memory
// family (memory.init/copy/fill, table.init/copy/grow/size/fill).
func (v *funcValidator) stepMisc(r *codeReader, sub Opcode) error {
	switch sub {
	case MiscOpcodeI32TruncSatF32S, MiscOpcodeI32TruncSatF32U:
		return v.applySignature(&FunctionType{Params: []ValueType{ValueTypeF32}, Results: []ValueType{ValueTypeI32}})
	case MiscOpcodeI32TruncSatF64S, MiscOpcodeI32TruncSatF64U:
		return v.applySignature(&FunctionType{Params: []ValueType{ValueTypeF64}, Results: []ValueType{ValueTypeI32}})
	case MiscOpcodeI64TruncSatF32S, MiscOpcodeI64TruncSatF32U:
		return v.applySignature(&FunctionType{Params: []ValueType{ValueTypeF32}, Results: []ValueType{ValueTypeI64}})
	case MiscOpcodeI64TruncSatF64S, MiscOpcodeI64TruncSatF64U:
		return v.applySignature(&FunctionType{Params: []ValueType{ValueTypeF64}, Results: []ValueType{ValueTypeI64}})
	case MiscOpcodeMemoryInit:
		if _, err := r.readVarUint32(); err != nil { // data index
			return err
		}
		if _, err := r.readVarUint32(); err != nil { // reserved memory index
			return err
		}
		return v.applySignature(&FunctionType{Params: []ValueType{ValueTypeI32, ValueTypeI32, ValueTypeI32}})
	case MiscOpcodeDataDrop:
		if _, err := r.readVarUint32(); err != nil {
			return err
		}
		return nil
	case MiscOpcodeMemoryCopy:
		if _, err := r.readVarUint32(); err != nil { // dst memory index
			return err
		}
		if _, err := r.readVarUint32(); err != nil { // src memory index
			return err
		}
		return v.applySignature(&FunctionType{Params: []ValueType{ValueTypeI32, ValueTypeI32, ValueTypeI32}})
	case MiscOpcodeMemoryFill:
		if _, err := r.readVarUint32(); err != nil {
			return err
		}
		return v.applySignature(&FunctionType{Params: []ValueType{ValueTypeI32, ValueTypeI32, ValueTypeI32}})
	case MiscOpcodeTableInit:
		if _, err := r.readVarUint32(); err != nil { // elem index
			return err
		}
		if _, err := r.readVarUint32(); err != nil { // table index
			return err
		}
		return v.applySignature(&FunctionType{Params: []ValueType{ValueTypeI32, ValueTypeI32, ValueTypeI32}})
	case MiscOpcodeElemDrop:
		if _, err := r.readVarUint32(); err != nil {
			return err
		}
		return nil
	case MiscOpcodeTableCopy:
		if _, err := r.readVarUint32(); err != nil { // dst table
			return err
		}
		if _, err := r.readVarUint32(); err != nil { // src table
			return err
		}
		return v.applySignature(&FunctionType{Params: []ValueType{ValueTypeI32, ValueTypeI32, ValueTypeI32}})
	case MiscOpcodeTableGrow:
		idx, err := r.readVarUint32()
		if err != nil {
			return err
		}
		if int(idx) >= len(v.tables) {
			return fmt.Errorf("invalid table index: %d", idx)
		}
		et := v.tables[idx].ElemType
		return v.applySignature(&FunctionType{Params: []ValueType{et, ValueTypeI32}, Results: []ValueType{ValueTypeI32}})
	case MiscOpcodeTableSize:
		idx, err := r.readVarUint32()
		if err != nil {
			return err
		}
		if int(idx) >= len(v.tables) {
			return fmt.Errorf("invalid table index: %d", idx)
		}
		return v.applySignature(&FunctionType{Results: []ValueType{ValueTypeI32}})
	case MiscOpcodeTableFill:
		idx, err := r.readVarUint32()
		if err != nil {
			return err
		}
		if int(idx) >= len(v.tables) {
			return fmt.Errorf("invalid table index: %d", idx)
		}
		et := v.tables[idx].ElemType
		return v.applySignature(&FunctionType{Params: []ValueType{ValueTypeI32, et, ValueTypeI32}})
	}
	return fmt.Errorf("unsupported misc opcode: %#x", sub)
}

// checkBranch validates that a branch to the label `depth` frames up the
// control stack finds that label's expected types on top of the value
// stack. Under unreachable code the check is polymorphic: any stack shape
// is accepted.
func (v *funcValidator) checkBranch(depth uint32) error {
	if int(depth) >= len(v.ctrlStack) {
		return fmt.Errorf("invalid branch depth: %d", depth)
	}
	target := &v.ctrlStack[len(v.ctrlStack)-1-int(depth)]
	types := labelTypes(target)
	// Validate by popping and immediately conceptually re-pushing: walk in
	// reverse without mutating the stack for any frame but the current one.
	saved := append([]ValueType{}, v.valueStack...)
	for i := len(types) - 1; i >= 0; i-- {
		if err := v.popOperand(types[i], len(types)-i); err != nil {
			v.valueStack = saved
			return err
		}
	}
	v.valueStack = saved
	return nil
}

// opSignature is a plain (non-block) instruction's static type signature:
// a fixed list of parameter types popped (in order) and result types
// pushed. isMemory marks the load/store family, whose encoding carries an
// align/offset pair after the opcode and which requires a declared memory.
type opSignature struct {
	params   []ValueType
	results  []ValueType
	isMemory bool
}

func sig(params, results []ValueType) opSignature { return opSignature{params: params, results: results} }
func memSig(params, results []ValueType) opSignature {
	return opSignature{params: params, results: results, isMemory: true}
}

var (
	i32 = []ValueType{ValueTypeI32}
	i64 = []ValueType{ValueTypeI64}
	f32 = []ValueType{ValueTypeF32}
	f64 = []ValueType{ValueTypeF64}

	i32i32 = []ValueType{ValueTypeI32, ValueTypeI32}
	i64i64 = []ValueType{ValueTypeI64, ValueTypeI64}
	f32f32 = []ValueType{ValueTypeF32, ValueTypeF32}
	f64f64 = []ValueType{ValueTypeF64, ValueTypeF64}
)

// numericSignatures maps every plain numeric, comparison, conversion, and
// memory-access opcode to its static signature. Built once at init from
// the Core Specification's instruction typing rules (§4.F.5-7).
var numericSignatures = map[Opcode]opSignature{
	OpcodeI32Load:    memSig(i32, i32), OpcodeI64Load: memSig(i32, i64),
	OpcodeF32Load: memSig(i32, f32), OpcodeF64Load: memSig(i32, f64),
	OpcodeI32Load8S: memSig(i32, i32), OpcodeI32Load8U: memSig(i32, i32),
	OpcodeI32Load16S: memSig(i32, i32), OpcodeI32Load16U: memSig(i32, i32),
	OpcodeI64Load8S: memSig(i32, i64), OpcodeI64Load8U: memSig(i32, i64),
	OpcodeI64Load16S: memSig(i32, i64), OpcodeI64Load16U: memSig(i32, i64),
	OpcodeI64Load32S: memSig(i32, i64), OpcodeI64Load32U: memSig(i32, i64),
	OpcodeI32Store: memSig(i32i32, nil), OpcodeI64Store: memSig([]ValueType{ValueTypeI32, ValueTypeI64}, nil),
	OpcodeF32Store: memSig([]ValueType{ValueTypeI32, ValueTypeF32}, nil),
	OpcodeF64Store: memSig([]ValueType{ValueTypeI32, ValueTypeF64}, nil),
	OpcodeI32Store8: memSig(i32i32, nil), OpcodeI32Store16: memSig(i32i32, nil),
	OpcodeI64Store8: memSig([]ValueType{ValueTypeI32, ValueTypeI64}, nil),
	OpcodeI64Store16: memSig([]ValueType{ValueTypeI32, ValueTypeI64}, nil),
	OpcodeI64Store32: memSig([]ValueType{ValueTypeI32, ValueTypeI64}, nil),

	OpcodeI32Eqz: sig(i32, i32), OpcodeI64Eqz: sig(i64, i32),
	OpcodeI32Eq: sig(i32i32, i32), OpcodeI32Ne: sig(i32i32, i32),
	OpcodeI32LtS: sig(i32i32, i32), OpcodeI32LtU: sig(i32i32, i32),
	OpcodeI32GtS: sig(i32i32, i32), OpcodeI32GtU: sig(i32i32, i32),
	OpcodeI32LeS: sig(i32i32, i32), OpcodeI32LeU: sig(i32i32, i32),
	OpcodeI32GeS: sig(i32i32, i32), OpcodeI32GeU: sig(i32i32, i32),
	OpcodeI64Eq: sig(i64i64, i32), OpcodeI64Ne: sig(i64i64, i32),
	OpcodeI64LtS: sig(i64i64, i32), OpcodeI64LtU: sig(i64i64, i32),
	OpcodeI64GtS: sig(i64i64, i32), OpcodeI64GtU: sig(i64i64, i32),
	OpcodeI64LeS: sig(i64i64, i32), OpcodeI64LeU: sig(i64i64, i32),
	OpcodeI64GeS: sig(i64i64, i32), OpcodeI64GeU: sig(i64i64, i32),
	OpcodeF32Eq: sig(f32f32, i32), OpcodeF32Ne: sig(f32f32, i32),
	OpcodeF32Lt: sig(f32f32, i32), OpcodeF32Gt: sig(f32f32, i32),
	OpcodeF32Le: sig(f32f32, i32), OpcodeF32Ge: sig(f32f32, i32),
	OpcodeF64Eq: sig(f64f64, i32), OpcodeF64Ne: sig(f64f64, i32),
	OpcodeF64Lt: sig(f64f64, i32), OpcodeF64Gt: sig(f64f64, i32),
	OpcodeF64Le: sig(f64f64, i32), OpcodeF64Ge: sig(f64f64, i32),

	OpcodeI32Clz: sig(i32, i32), OpcodeI32Ctz: sig(i32, i32), OpcodeI32Popcnt: sig(i32, i32),
	OpcodeI32Add: sig(i32i32, i32), OpcodeI32Sub: sig(i32i32, i32), OpcodeI32Mul: sig(i32i32, i32),
	OpcodeI32DivS: sig(i32i32, i32), OpcodeI32DivU: sig(i32i32, i32),
	OpcodeI32RemS: sig(i32i32, i32), OpcodeI32RemU: sig(i32i32, i32),
	OpcodeI32And: sig(i32i32, i32), OpcodeI32Or: sig(i32i32, i32), OpcodeI32Xor: sig(i32i32, i32),
	OpcodeI32Shl: sig(i32i32, i32), OpcodeI32ShrS: sig(i32i32, i32), OpcodeI32ShrU: sig(i32i32, i32),
	OpcodeI32Rotl: sig(i32i32, i32), OpcodeI32Rotr: sig(i32i32, i32),

	OpcodeI64Clz: sig(i64, i64), OpcodeI64Ctz: sig(i64, i64), OpcodeI64Popcnt: sig(i64, i64),
	OpcodeI64Add: sig(i64i64, i64), OpcodeI64Sub: sig(i64i64, i64), OpcodeI64Mul: sig(i64i64, i64),
	OpcodeI64DivS: sig(i64i64, i64), OpcodeI64DivU: sig(i64i64, i64),
	OpcodeI64RemS: sig(i64i64, i64), OpcodeI64RemU: sig(i64i64, i64),
	OpcodeI64And: sig(i64i64, i64), OpcodeI64Or: sig(i64i64, i64), OpcodeI64Xor: sig(i64i64, i64),
	OpcodeI64Shl: sig([]ValueType{ValueTypeI64, ValueTypeI64}, i64),
	OpcodeI64ShrS: sig(i64i64, i64), OpcodeI64ShrU: sig(i64i64, i64),
	OpcodeI64Rotl: sig(i64i64, i64), OpcodeI64Rotr: sig(i64i64, i64),

	OpcodeF32Abs: sig(f32, f32), OpcodeF32Neg: sig(f32, f32), OpcodeF32Ceil: sig(f32, f32),
	OpcodeF32Floor: sig(f32, f32), OpcodeF32Trunc: sig(f32, f32), OpcodeF32Nearest: sig(f32, f32),
	OpcodeF32Sqrt: sig(f32, f32),
	OpcodeF32Add: sig(f32f32, f32), OpcodeF32Sub: sig(f32f32, f32), OpcodeF32Mul: sig(f32f32, f32),
	OpcodeF32Div: sig(f32f32, f32), OpcodeF32Min: sig(f32f32, f32), OpcodeF32Max: sig(f32f32, f32),
	OpcodeF32Copysign: sig(f32f32, f32),

	OpcodeF64Abs: sig(f64, f64), OpcodeF64Neg: sig(f64, f64), OpcodeF64Ceil: sig(f64, f64),
	OpcodeF64Floor: sig(f64, f64), OpcodeF64Trunc: sig(f64, f64), OpcodeF64Nearest: sig(f64, f64),
	OpcodeF64Sqrt: sig(f64, f64),
	OpcodeF64Add: sig(f64f64, f64), OpcodeF64Sub: sig(f64f64, f64), OpcodeF64Mul: sig(f64f64, f64),
	OpcodeF64Div: sig(f64f64, f64), OpcodeF64Min: sig(f64f64, f64), OpcodeF64Max: sig(f64f64, f64),
	OpcodeF64Copysign: sig(f64f64, f64),

	OpcodeI32WrapI64: sig(i64, i32),
	OpcodeI32TruncF32S: sig(f32, i32), OpcodeI32TruncF32U: sig(f32, i32),
	OpcodeI32TruncF64S: sig(f64, i32), OpcodeI32TruncF64U: sig(f64, i32),
	OpcodeI64ExtendI32S: sig(i32, i64), OpcodeI64ExtendI32U: sig(i32, i64),
	OpcodeI64TruncF32S: sig(f32, i64), OpcodeI64TruncF32U: sig(f32, i64),
	OpcodeI64TruncF64S: sig(f64, i64), OpcodeI64TruncF64U: sig(f64, i64),
	OpcodeF32ConvertI32S: sig(i32, f32), OpcodeF32ConvertI32U: sig(i32, f32),
	OpcodeF32ConvertI64S: sig(i64, f32), OpcodeF32ConvertI64U: sig(i64, f32),
	OpcodeF32DemoteF64: sig(f64, f32),
	OpcodeF64ConvertI32S: sig(i32, f64), OpcodeF64ConvertI32U: sig(i32, f64),
	OpcodeF64ConvertI64S: sig(i64, f64), OpcodeF64ConvertI64U: sig(i64, f64),
	OpcodeF64PromoteF32: sig(f32, f64),
	OpcodeI32ReinterpretF32: sig(f32, i32), OpcodeI64ReinterpretF64: sig(f64, i64),
	OpcodeF32ReinterpretI32: sig(i32, f32), OpcodeF64ReinterpretI64: sig(i64, f64),

	OpcodeI32Extend8S: sig(i32, i32), OpcodeI32Extend16S: sig(i32, i32),
	OpcodeI64Extend8S: sig(i64, i64), OpcodeI64Extend16S: sig(i64, i64), OpcodeI64Extend32S: sig(i64, i64),
}
