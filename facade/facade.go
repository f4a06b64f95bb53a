// Package facade is the narrow public entry point over the decoder and
// validator: two or three functions wrapping the internal packages,
// hiding the decode/validate pipeline behind a thin interface a host
// never needs to reach past.
package facade

import (
	"github.com/flightwasm/core/internal/wasm"
	"github.com/flightwasm/core/internal/wasm/binary"
)

// DecodeConfig controls optional decode behavior. The zero value is the
// strictest, most conformant configuration.
type DecodeConfig struct {
	// EnabledFeatures gates which post-MVP proposals Validate accepts.
	EnabledFeatures wasm.Features
}

// Option configures a DecodeConfig using the functional-options pattern.
type Option func(*DecodeConfig)

// WithFeatures overrides the feature set Validate checks against.
func WithFeatures(f wasm.Features) Option {
	return func(c *DecodeConfig) { c.EnabledFeatures = f }
}

func newConfig(opts []Option) *DecodeConfig {
	c := &DecodeConfig{EnabledFeatures: wasm.Features20220419}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Parse decodes a binary Wasm module without running any static
// validation. Callers that only need structural introspection (for
// example a disassembler) can skip Validate's cost entirely.
func Parse(data []byte) (*wasm.Module, error) {
	return binary.DecodeModule(data)
}

// Validate runs every static well-formedness and type check against an
// already-decoded Module: index bounds, global/start initializer typing,
// and per-function stack validation. Section ordering is checked by Parse.
func Validate(m *wasm.Module, opts ...Option) error {
	c := newConfig(opts)
	return m.Validate(c.EnabledFeatures)
}

// ParseAndValidate decodes and validates a binary module in one call,
// the common case for a host that only wants a yes/no answer plus the
// decoded Module on success.
func ParseAndValidate(data []byte, opts ...Option) (*wasm.Module, error) {
	m, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if err := Validate(m, opts...); err != nil {
		return nil, err
	}
	return m, nil
}
