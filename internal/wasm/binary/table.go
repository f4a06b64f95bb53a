package binary

import (
	"fmt"

	"github.com/flightwasm/core/internal/reader"
	"github.com/flightwasm/core/internal/wasm"
)

func decodeTableType(r *reader.Reader) (*wasm.TableType, error) {
	elem, err := r.ReadU8()
	if err != nil {
		return nil, err
	}
	if elem != wasm.ValueTypeFuncref && elem != wasm.ValueTypeExternref {
		return nil, fmt.Errorf("invalid table element type: %#x", elem)
	}
	lim, err := decodeLimits(r)
	if err != nil {
		return nil, err
	}
	return &wasm.TableType{ElemType: elem, Limit: lim}, nil
}

func decodeTableSection(r *reader.Reader) ([]*wasm.TableType, error) {
	n, err := r.ReadVarUint32()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	if n > 1 {
		return nil, fmt.Errorf("at most one table allowed in module, but read %d", n)
	}
	out := make([]*wasm.TableType, n)
	for i := range out {
		out[i], err = decodeTableType(r)
		if err != nil {
			return nil, fmt.Errorf("table[%d]: %w", i, err)
		}
	}
	return out, nil
}
