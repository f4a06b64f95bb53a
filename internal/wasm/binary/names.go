package binary

import (
	"github.com/flightwasm/core/internal/reader"
	"github.com/flightwasm/core/internal/wasm"
)

// decodeNameSection reads the well-known custom "name" section. Failures
// inside a subsection are swallowed -- names are informational, never
// grounds to reject an otherwise valid module -- so this returns
// whatever it decoded successfully before the first parse error.
func decodeNameSection(r *reader.Reader) (*wasm.NameSection, error) {
	ns := &wasm.NameSection{}
	for r.Len() > 0 {
		subID, err := r.ReadU8()
		if err != nil {
			break
		}
		size, err := r.ReadVarUint32()
		if err != nil {
			break
		}
		body, err := r.ReadBytes(int(size))
		if err != nil {
			break
		}
		sr := reader.New(body)
		switch subID {
		case subsectionIDModuleName:
			if name, err := sr.ReadName(); err == nil {
				ns.ModuleName = name
			}
		case subsectionIDFunctionNames:
			ns.FunctionNames = decodeNameMap(sr)
		case subsectionIDLocalNames:
			ns.LocalNames = decodeIndirectNameMap(sr)
		}
	}
	return ns, nil
}

func decodeNameMap(r *reader.Reader) map[wasm.Index]string {
	count, err := r.ReadVarUint32()
	if err != nil {
		return nil
	}
	out := make(map[wasm.Index]string, count)
	for i := uint32(0); i < count; i++ {
		idx, err := r.ReadVarUint32()
		if err != nil {
			return out
		}
		name, err := r.ReadName()
		if err != nil {
			return out
		}
		out[idx] = name
	}
	return out
}

func decodeIndirectNameMap(r *reader.Reader) map[wasm.Index]map[wasm.Index]string {
	count, err := r.ReadVarUint32()
	if err != nil {
		return nil
	}
	out := make(map[wasm.Index]map[wasm.Index]string, count)
	for i := uint32(0); i < count; i++ {
		idx, err := r.ReadVarUint32()
		if err != nil {
			return out
		}
		size, err := r.ReadVarUint32()
		if err != nil {
			return out
		}
		body, err := r.ReadBytes(int(size))
		if err != nil {
			return out
		}
		out[idx] = decodeNameMap(reader.New(body))
	}
	return out
}
