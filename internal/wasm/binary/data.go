package binary

import (
	"fmt"

	"github.com/flightwasm/core/internal/leb128"
	"github.com/flightwasm/core/internal/reader"
	"github.com/flightwasm/core/internal/wasm"
)

func decodeInlineVarUint32(data []byte) (wasm.Index, uint64, error) {
	v, n, err := leb128.LoadUint32(data)
	return v, n, err
}

func decodeDataSection(r *reader.Reader) ([]*wasm.DataSegment, error) {
	n, err := r.ReadVarUint32()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]*wasm.DataSegment, n)
	for i := range out {
		d, err := decodeDataSegment(r)
		if err != nil {
			return nil, fmt.Errorf("data[%d]: %w", i, err)
		}
		out[i] = d
	}
	return out, nil
}

func decodeDataSegment(r *reader.Reader) (*wasm.DataSegment, error) {
	flag, err := r.ReadVarUint32()
	if err != nil {
		return nil, fmt.Errorf("could not read flag: %w", err)
	}

	seg := &wasm.DataSegment{}
	switch flag {
	case 0:
		seg.OffsetExpression, err = decodeConstantExpression(r)
	case 1:
		// passive: no memory index, no offset.
	case 2:
		seg.MemoryIndex, err = r.ReadVarUint32()
		if err == nil {
			seg.OffsetExpression, err = decodeConstantExpression(r)
		}
	default:
		return nil, fmt.Errorf("invalid data segment flag: %d", flag)
	}
	if err != nil {
		return nil, err
	}

	size, err := r.ReadVarUint32()
	if err != nil {
		return nil, fmt.Errorf("could not read size: %w", err)
	}
	init, err := r.ReadBytes(int(size))
	if err != nil {
		return nil, fmt.Errorf("could not read init: %w", err)
	}
	seg.Init = append([]byte{}, init...)
	return seg, nil
}
