package binary

import (
	"fmt"

	"github.com/flightwasm/core/internal/reader"
	"github.com/flightwasm/core/internal/wasm"
)

// decodeElementSection reads the element section, covering all eight
// binary encodings the bulk-memory proposal introduced (flags 0-7):
// active/passive/declarative crossed with function-index-vector vs.
// expression-vector element lists.
func decodeElementSection(r *reader.Reader) ([]*wasm.ElementSegment, error) {
	n, err := r.ReadVarUint32()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]*wasm.ElementSegment, n)
	for i := range out {
		e, err := decodeElementSegment(r)
		if err != nil {
			return nil, fmt.Errorf("element[%d]: %w", i, err)
		}
		out[i] = e
	}
	return out, nil
}

func decodeElementSegment(r *reader.Reader) (*wasm.ElementSegment, error) {
	flag, err := r.ReadVarUint32()
	if err != nil {
		return nil, fmt.Errorf("could not read flag: %w", err)
	}

	seg := &wasm.ElementSegment{Type: wasm.ValueTypeFuncref}
	usesExprs := flag == 4 || flag == 5 || flag == 6 || flag == 7

	switch flag {
	case 0:
		seg.Mode = wasm.ElementModeActive
		seg.OffsetExpr, err = decodeConstantExpression(r)
	case 1:
		seg.Mode = wasm.ElementModePassive
		_, err = readElemKind(r)
	case 2:
		seg.Mode = wasm.ElementModeActive
		seg.TableIndex, err = r.ReadVarUint32()
		if err == nil {
			seg.OffsetExpr, err = decodeConstantExpression(r)
		}
		if err == nil {
			_, err = readElemKind(r)
		}
	case 3:
		seg.Mode = wasm.ElementModeDeclarative
		_, err = readElemKind(r)
	case 4:
		seg.Mode = wasm.ElementModeActive
		seg.OffsetExpr, err = decodeConstantExpression(r)
	case 5:
		seg.Mode = wasm.ElementModePassive
		seg.Type, err = r.ReadU8()
	case 6:
		seg.Mode = wasm.ElementModeActive
		seg.TableIndex, err = r.ReadVarUint32()
		if err == nil {
			seg.OffsetExpr, err = decodeConstantExpression(r)
		}
		if err == nil {
			seg.Type, err = r.ReadU8()
		}
	case 7:
		seg.Mode = wasm.ElementModeDeclarative
		seg.Type, err = r.ReadU8()
	default:
		return nil, fmt.Errorf("invalid element segment flag: %d", flag)
	}
	if err != nil {
		return nil, err
	}

	count, err := r.ReadVarUint32()
	if err != nil {
		return nil, fmt.Errorf("could not read element count: %w", err)
	}
	seg.Init = make([]wasm.Index, count)
	for i := uint32(0); i < count; i++ {
		if usesExprs {
			expr, err := decodeConstantExpression(r)
			if err != nil {
				return nil, fmt.Errorf("element expr[%d]: %w", i, err)
			}
			if expr.Opcode == wasm.OpcodeRefFunc {
				idx, _, lerr := decodeInlineVarUint32(expr.Data)
				if lerr != nil {
					return nil, fmt.Errorf("element expr[%d]: %w", i, lerr)
				}
				seg.Init[i] = idx
			}
		} else {
			idx, err := r.ReadVarUint32()
			if err != nil {
				return nil, fmt.Errorf("element func index[%d]: %w", i, err)
			}
			seg.Init[i] = idx
		}
	}
	return seg, nil
}

// readElemKind reads the single-byte elemkind tag (always 0x00, meaning
// funcref) used by the function-index-vector element encodings.
func readElemKind(r *reader.Reader) (byte, error) {
	kind, err := r.ReadU8()
	if err != nil {
		return 0, fmt.Errorf("could not read elemkind: %w", err)
	}
	if kind != 0x00 {
		return 0, fmt.Errorf("invalid elemkind: %#x", kind)
	}
	return kind, nil
}
