package binary

import (
	"fmt"

	"github.com/flightwasm/core/internal/reader"
	"github.com/flightwasm/core/internal/wasm"
)

func decodeExportSection(r *reader.Reader) (map[string]*wasm.Export, error) {
	n, err := r.ReadVarUint32()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	out := make(map[string]*wasm.Export, n)
	for i := uint32(0); i < n; i++ {
		name, err := r.ReadName()
		if err != nil {
			return nil, fmt.Errorf("export[%d]: could not read name: %w", i, err)
		}
		kind, err := r.ReadU8()
		if err != nil {
			return nil, fmt.Errorf("export[%d]: could not read type: %w", i, err)
		}
		idx, err := r.ReadVarUint32()
		if err != nil {
			return nil, fmt.Errorf("export[%d]: could not read index: %w", i, err)
		}
		if _, ok := out[name]; ok {
			return nil, fmt.Errorf("export[%d] duplicates name %q", i, name)
		}
		out[name] = &wasm.Export{Name: name, Type: kind, Index: idx}
	}
	return out, nil
}
