package binary

import (
	"fmt"

	"github.com/flightwasm/core/internal/reader"
	"github.com/flightwasm/core/internal/wasm"
)

func decodeGlobalType(r *reader.Reader) (*wasm.GlobalType, error) {
	vt, err := r.ReadU8()
	if err != nil {
		return nil, err
	}
	mutByte, err := r.ReadU8()
	if err != nil {
		return nil, err
	}
	if mutByte > 1 {
		return nil, fmt.Errorf("invalid mutability: %#x", mutByte)
	}
	return &wasm.GlobalType{ValType: vt, Mutable: mutByte == 1}, nil
}

func decodeGlobalSection(r *reader.Reader) ([]*wasm.Global, error) {
	n, err := r.ReadVarUint32()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]*wasm.Global, n)
	for i := range out {
		gt, err := decodeGlobalType(r)
		if err != nil {
			return nil, fmt.Errorf("global[%d]: %w", i, err)
		}
		init, err := decodeConstantExpression(r)
		if err != nil {
			return nil, fmt.Errorf("global[%d]: %w", i, err)
		}
		out[i] = &wasm.Global{Type: gt, Init: init}
	}
	return out, nil
}
