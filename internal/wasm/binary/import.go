package binary

import (
	"fmt"

	"github.com/flightwasm/core/internal/reader"
	"github.com/flightwasm/core/internal/wasm"
)

func decodeImportSection(r *reader.Reader) ([]*wasm.Import, error) {
	n, err := r.ReadVarUint32()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]*wasm.Import, n)
	for i := range out {
		imp, err := decodeImport(r)
		if err != nil {
			return nil, fmt.Errorf("import[%d]: %w", i, err)
		}
		out[i] = imp
	}
	return out, nil
}

func decodeImport(r *reader.Reader) (*wasm.Import, error) {
	module, err := r.ReadName()
	if err != nil {
		return nil, fmt.Errorf("could not read module: %w", err)
	}
	name, err := r.ReadName()
	if err != nil {
		return nil, fmt.Errorf("could not read name: %w", err)
	}
	kind, err := r.ReadU8()
	if err != nil {
		return nil, fmt.Errorf("could not read description kind: %w", err)
	}

	imp := &wasm.Import{Module: module, Name: name, Type: kind}
	switch kind {
	case wasm.ExternTypeFunc:
		imp.DescFunc, err = r.ReadVarUint32()
	case wasm.ExternTypeTable:
		imp.DescTable, err = decodeTableType(r)
	case wasm.ExternTypeMemory:
		imp.DescMem, err = decodeLimits(r)
	case wasm.ExternTypeGlobal:
		imp.DescGlobal, err = decodeGlobalType(r)
	default:
		return nil, fmt.Errorf("invalid import kind: %#x", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("could not read import description: %w", err)
	}
	return imp, nil
}
