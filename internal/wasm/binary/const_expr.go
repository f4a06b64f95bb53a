package binary

import (
	"fmt"

	"github.com/flightwasm/core/internal/reader"
	"github.com/flightwasm/core/internal/wasm"
)

// decodeConstantExpression reads one of the restricted const-expression
// opcodes (i32.const, i64.const, f32.const, f64.const, global.get,
// ref.null, ref.func) followed by its immediate and the terminating end
// opcode, capturing the opcode and raw immediate bytes for later
// re-validation/evaluation without needing the reader again.
func decodeConstantExpression(r *reader.Reader) (*wasm.ConstantExpression, error) {
	op, err := r.ReadU8()
	if err != nil {
		return nil, fmt.Errorf("could not read opcode: %w", err)
	}

	start := r.Offset()
	switch op {
	case wasm.OpcodeI32Const:
		if _, err := r.ReadVarInt32(); err != nil {
			return nil, fmt.Errorf("read i32: %w", err)
		}
	case wasm.OpcodeI64Const:
		if _, err := r.ReadVarInt64(); err != nil {
			return nil, fmt.Errorf("read i64: %w", err)
		}
	case wasm.OpcodeF32Const:
		if _, err := r.ReadBytes(4); err != nil {
			return nil, fmt.Errorf("read f32: %w", err)
		}
	case wasm.OpcodeF64Const:
		if _, err := r.ReadBytes(8); err != nil {
			return nil, fmt.Errorf("read f64: %w", err)
		}
	case wasm.OpcodeGlobalGet:
		if _, err := r.ReadVarUint32(); err != nil {
			return nil, fmt.Errorf("read global index: %w", err)
		}
	case wasm.OpcodeRefNull:
		if _, err := r.ReadU8(); err != nil {
			return nil, fmt.Errorf("read ref.null type: %w", err)
		}
	case wasm.OpcodeRefFunc:
		if _, err := r.ReadVarUint32(); err != nil {
			return nil, fmt.Errorf("read ref.func index: %w", err)
		}
	default:
		return nil, fmt.Errorf("invalid opcode for const expression: %#x", op)
	}
	immediate := append([]byte{}, r.Since(start)...)

	terminator, err := r.ReadU8()
	if err != nil {
		return nil, fmt.Errorf("could not read end opcode: %w", err)
	}
	if terminator != wasm.OpcodeEnd {
		return nil, fmt.Errorf("constant expression has multiple instructions")
	}
	return &wasm.ConstantExpression{Opcode: op, Data: immediate}, nil
}
