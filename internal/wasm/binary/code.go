package binary

import (
	"fmt"

	"github.com/flightwasm/core/internal/reader"
	"github.com/flightwasm/core/internal/wasm"
)

const maxLocals = 1 << 27

func decodeCodeSection(r *reader.Reader) ([]*wasm.Code, error) {
	n, err := r.ReadVarUint32()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]*wasm.Code, n)
	for i := range out {
		size, err := r.ReadVarUint32()
		if err != nil {
			return nil, fmt.Errorf("code[%d]: could not read size: %w", i, err)
		}
		body, err := r.ReadBytes(int(size))
		if err != nil {
			return nil, fmt.Errorf("code[%d]: %w", i, err)
		}
		c, err := decodeCode(reader.New(body))
		if err != nil {
			return nil, fmt.Errorf("code[%d]: %w", i, err)
		}
		out[i] = c
	}
	return out, nil
}

func decodeCode(r *reader.Reader) (*wasm.Code, error) {
	localGroups, err := r.ReadVarUint32()
	if err != nil {
		return nil, fmt.Errorf("could not read local group count: %w", err)
	}
	var locals []wasm.ValueType
	var total uint64
	for i := uint32(0); i < localGroups; i++ {
		count, err := r.ReadVarUint32()
		if err != nil {
			return nil, fmt.Errorf("could not read local count: %w", err)
		}
		total += uint64(count)
		if total > maxLocals {
			return nil, fmt.Errorf("too many locals: %d", total)
		}
		vt, err := r.ReadU8()
		if err != nil {
			return nil, fmt.Errorf("could not read local type: %w", err)
		}
		for j := uint32(0); j < count; j++ {
			locals = append(locals, vt)
		}
	}
	body := append([]byte{}, r.Remaining()...)
	if len(body) == 0 || body[len(body)-1] != wasm.OpcodeEnd {
		return nil, fmt.Errorf("function body missing terminating end opcode")
	}
	return &wasm.Code{LocalTypes: locals, Body: body}, nil
}
