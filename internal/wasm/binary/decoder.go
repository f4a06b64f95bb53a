// Package binary implements the Wasm Core Specification's binary module
// format: the header, the ordered section sequence, and a decoder for
// each section into the in-memory types the sibling wasm package defines.
package binary

import (
	"bytes"
	"fmt"

	"github.com/flightwasm/core/internal/reader"
	"github.com/flightwasm/core/internal/wasm"
	"github.com/flightwasm/core/internal/werr"
)

// Magic is the four-byte value every Wasm binary module starts with.
var Magic = []byte{0x00, 'a', 's', 'm'}

// version is the only binary format version this decoder accepts.
var version = []byte{0x01, 0x00, 0x00, 0x00}

const (
	subsectionIDModuleName   = 0
	subsectionIDFunctionNames = 1
	subsectionIDLocalNames   = 2
)

// sectionOrder maps each non-custom section ID to its position in the
// canonical sequence. Every ID but DataCount sorts by its own numeric
// value; DataCount (12) is the one section whose wire ID is out of step
// with where it is legal to appear: it sits between Element and Code.
var sectionOrder = map[wasm.SectionID]int{
	wasm.SectionIDType:      0,
	wasm.SectionIDImport:    1,
	wasm.SectionIDFunction:  2,
	wasm.SectionIDTable:     3,
	wasm.SectionIDMemory:    4,
	wasm.SectionIDGlobal:    5,
	wasm.SectionIDExport:    6,
	wasm.SectionIDStart:     7,
	wasm.SectionIDElement:   8,
	wasm.SectionIDDataCount: 9,
	wasm.SectionIDCode:      10,
	wasm.SectionIDData:      11,
}

// DecodeModule parses a complete binary-encoded module. Sections must
// appear in the canonical sequence given by sectionOrder (custom sections
// may appear anywhere, any number of times) and each ID but custom may
// appear at most once. The data-count section is the one exception to a
// plain ascending-ID check: it is ordered between element and code despite
// carrying the numerically highest section ID.
func DecodeModule(data []byte) (*wasm.Module, error) {
	if len(data) < 8 {
		return nil, werr.New(werr.CodeUnexpectedEOF, "unexpected end of file reading magic number")
	}
	if !bytes.Equal(data[:4], Magic) {
		return nil, werr.New(werr.CodeInvalidMagicNumber, "invalid magic number")
	}
	if !bytes.Equal(data[4:8], version) {
		return nil, werr.New(werr.CodeInvalidVersion, "invalid version header")
	}

	r := reader.New(data[8:])
	m := &wasm.Module{}
	sawName := false
	lastOrder := -1

	for r.Len() > 0 {
		sectionStart := r.Offset()
		idByte, err := r.ReadU8()
		if err != nil {
			return nil, err
		}
		id := wasm.SectionID(idByte)

		size, err := r.ReadVarUint32()
		if err != nil {
			return nil, fmt.Errorf("section %s: %w", wasm.SectionIDName(id), err)
		}
		body, err := r.ReadBytes(int(size))
		if err != nil {
			return nil, fmt.Errorf("section %s: %w", wasm.SectionIDName(id), err)
		}

		if id != wasm.SectionIDCustom {
			order, ok := sectionOrder[id]
			if !ok {
				return nil, fmt.Errorf("invalid section id: %d", id)
			}
			if order == lastOrder {
				return nil, werr.New(werr.CodeDuplicateSection,
					fmt.Sprintf("section %s: duplicate section", wasm.SectionIDName(id))).WithOffset(sectionStart)
			}
			if order < lastOrder {
				return nil, werr.New(werr.CodeInvalidSectionOrder,
					fmt.Sprintf("section %s: out of order", wasm.SectionIDName(id))).WithOffset(sectionStart)
			}
			lastOrder = order
		}

		sr := reader.New(body)
		switch id {
		case wasm.SectionIDCustom:
			name, err := sr.ReadName()
			if err != nil {
				return nil, fmt.Errorf("section custom: %w", err)
			}
			if name == "name" {
				if sawName {
					return nil, fmt.Errorf("section custom: redundant custom section name")
				}
				sawName = true
				ns, err := decodeNameSection(sr)
				if err != nil {
					return nil, fmt.Errorf("section custom: %w", err)
				}
				m.NameSection = ns
			}
			// Every other custom section is skipped; a second "name"
			// section is rejected by the redundancy check above.
		case wasm.SectionIDType:
			m.TypeSection, err = decodeTypeSection(sr)
		case wasm.SectionIDImport:
			m.ImportSection, err = decodeImportSection(sr)
		case wasm.SectionIDFunction:
			m.FunctionSection, err = decodeFunctionSection(sr)
		case wasm.SectionIDTable:
			m.TableSection, err = decodeTableSection(sr)
		case wasm.SectionIDMemory:
			m.MemorySection, err = decodeMemorySection(sr)
		case wasm.SectionIDGlobal:
			m.GlobalSection, err = decodeGlobalSection(sr)
		case wasm.SectionIDExport:
			m.ExportSection, err = decodeExportSection(sr)
		case wasm.SectionIDStart:
			var idx wasm.Index
			idx, err = sr.ReadVarUint32()
			m.StartSection = &idx
		case wasm.SectionIDElement:
			m.ElementSection, err = decodeElementSection(sr)
		case wasm.SectionIDCode:
			m.CodeSection, err = decodeCodeSection(sr)
		case wasm.SectionIDData:
			m.DataSection, err = decodeDataSection(sr)
		case wasm.SectionIDDataCount:
			var count uint32
			count, err = sr.ReadVarUint32()
			m.DataCountSection = &count
		default:
			return nil, fmt.Errorf("invalid section id: %d", id)
		}
		if err != nil {
			return nil, fmt.Errorf("section %s: %w", wasm.SectionIDName(id), err)
		}
		// A well-formed section's declared size exactly covers its entry
		// vector; leftover bytes mean the size field overstated how much
		// the vector actually consumes. The custom section is exempt: its
		// non-"name" payload is never decoded, and the name subsection
		// decoder is deliberately best-effort past the name itself.
		if id != wasm.SectionIDCustom && sr.Len() != 0 {
			return nil, werr.New(werr.CodeSectionTooLarge,
				fmt.Sprintf("section %s: %d unconsumed byte(s) after decoding", wasm.SectionIDName(id), sr.Len())).
				WithOffset(sectionStart)
		}
	}
	return m, nil
}
