package binary

import (
	"fmt"

	"github.com/flightwasm/core/internal/reader"
	"github.com/flightwasm/core/internal/wasm"
)

// decodeValueTypes reads a vector of single-byte value types.
func decodeValueTypes(r *reader.Reader) ([]wasm.ValueType, error) {
	n, err := r.ReadVarUint32()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]wasm.ValueType, n)
	for i := range out {
		b, err := r.ReadU8()
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

// decodeFunctionType reads one (params)->(results) signature.
func decodeFunctionType(r *reader.Reader) (*wasm.FunctionType, error) {
	tag, err := r.ReadU8()
	if err != nil {
		return nil, err
	}
	if tag != 0x60 {
		return nil, fmt.Errorf("invalid function type tag: %#x", tag)
	}
	params, err := decodeValueTypes(r)
	if err != nil {
		return nil, fmt.Errorf("could not read parameter types: %w", err)
	}
	results, err := decodeValueTypes(r)
	if err != nil {
		return nil, fmt.Errorf("could not read result types: %w", err)
	}
	return &wasm.FunctionType{Params: params, Results: results}, nil
}

// decodeLimits reads a (min) or (min, max) limits pair.
func decodeLimits(r *reader.Reader) (*wasm.LimitsType, error) {
	flag, err := r.ReadU8()
	if err != nil {
		return nil, err
	}
	min, err := r.ReadVarUint32()
	if err != nil {
		return nil, fmt.Errorf("could not read min: %w", err)
	}
	lim := &wasm.LimitsType{Min: min}
	if flag == 1 {
		max, err := r.ReadVarUint32()
		if err != nil {
			return nil, fmt.Errorf("could not read max: %w", err)
		}
		lim.Max = &max
	} else if flag != 0 {
		return nil, fmt.Errorf("invalid limits flag: %#x", flag)
	}
	return lim, nil
}
