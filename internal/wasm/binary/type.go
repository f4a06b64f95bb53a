package binary

import (
	"fmt"

	"github.com/flightwasm/core/internal/reader"
	"github.com/flightwasm/core/internal/wasm"
)

func decodeTypeSection(r *reader.Reader) ([]*wasm.FunctionType, error) {
	n, err := r.ReadVarUint32()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]*wasm.FunctionType, n)
	for i := range out {
		ft, err := decodeFunctionType(r)
		if err != nil {
			return nil, fmt.Errorf("type[%d]: %w", i, err)
		}
		out[i] = ft
	}
	return out, nil
}
