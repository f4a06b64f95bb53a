package binary

import (
	"github.com/flightwasm/core/internal/reader"
	"github.com/flightwasm/core/internal/wasm"
)

func decodeFunctionSection(r *reader.Reader) ([]wasm.Index, error) {
	n, err := r.ReadVarUint32()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]wasm.Index, n)
	for i := range out {
		out[i], err = r.ReadVarUint32()
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
