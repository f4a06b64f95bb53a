package binary

import (
	"fmt"

	"github.com/flightwasm/core/internal/reader"
	"github.com/flightwasm/core/internal/wasm"
)

func decodeMemorySection(r *reader.Reader) ([]*wasm.MemoryType, error) {
	n, err := r.ReadVarUint32()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	if n > 1 {
		return nil, fmt.Errorf("at most one memory allowed in module, but read %d", n)
	}
	out := make([]*wasm.MemoryType, n)
	for i := range out {
		out[i], err = decodeLimits(r)
		if err != nil {
			return nil, fmt.Errorf("memory[%d]: %w", i, err)
		}
	}
	return out, nil
}
