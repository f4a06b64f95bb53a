// Package leb128 implements LEB128 variable-length integer encoding and
// decoding, both in a slice-based "Load" flavor for the hot decode path
// (zero allocation, matching inkeliz's low-alloc fork idiom) and an
// io.ByteReader-based "Decode" flavor for streaming call sites.
package leb128

import (
	"io"

	"github.com/flightwasm/core/internal/werr"
)

// EncodeInt32 encodes a signed 32-bit integer as signed LEB128.
func EncodeInt32(v int32) []byte { return encodeSigned(int64(v)) }

// EncodeInt64 encodes a signed 64-bit integer as signed LEB128.
func EncodeInt64(v int64) []byte { return encodeSigned(v) }

// EncodeUint32 encodes an unsigned 32-bit integer as unsigned LEB128.
func EncodeUint32(v uint32) []byte { return encodeUnsigned(uint64(v)) }

// EncodeUint64 encodes an unsigned 64-bit integer as unsigned LEB128.
func EncodeUint64(v uint64) []byte { return encodeUnsigned(v) }

func encodeUnsigned(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
		} else {
			out = append(out, b)
			return out
		}
	}
}

func encodeSigned(v int64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		signBitSet := b&0x40 != 0
		if (v == 0 && !signBitSet) || (v == -1 && signBitSet) {
			out = append(out, b)
			return out
		}
		out = append(out, b|0x80)
	}
}

// maxBytes returns ceil(bits/7), the hard cap spec.md §4.D requires.
func maxBytes(bits int) int {
	return (bits + 6) / 7
}

// LoadUint32 decodes an unsigned LEB128 value from the front of data,
// returning the value and the number of bytes consumed.
func LoadUint32(data []byte) (uint32, uint64, error) {
	v, n, err := loadUnsigned(data, 32)
	return uint32(v), n, err
}

// LoadUint64 decodes an unsigned LEB128 value from the front of data.
func LoadUint64(data []byte) (uint64, uint64, error) {
	return loadUnsigned(data, 64)
}

func loadUnsigned(data []byte, bits int) (uint64, uint64, error) {
	var result uint64
	var shift uint
	limit := maxBytes(bits)
	for i := 0; ; i++ {
		if i >= limit {
			return 0, 0, werr.New(werr.CodeInvalidLEB128Encoding, "leb128 overlong encoding")
		}
		if i >= len(data) {
			return 0, 0, werr.New(werr.CodeUnexpectedEOF, "unexpected end of file reading leb128")
		}
		b := data[i]
		chunk := uint64(b & 0x7f)

		if b&0x80 == 0 {
			// Final byte: unused high bits above `bits` must be zero.
			usedBits := shift + 7
			if usedBits > uint(bits) {
				overflowBits := usedBits - uint(bits)
				mask := uint64((1 << overflowBits) - 1)
				if (chunk>>(7-overflowBits))&mask != 0 {
					return 0, 0, werr.New(werr.CodeInvalidLEB128Encoding, "leb128 invalid high bits")
				}
			}
			result |= chunk << shift
			return result, uint64(i + 1), nil
		}
		result |= chunk << shift
		shift += 7
	}
}

// LoadInt32 decodes a signed LEB128 value as a 32-bit integer.
func LoadInt32(data []byte) (int32, uint64, error) {
	v, n, err := loadSigned(data, 32)
	return int32(v), n, err
}

// LoadInt64 decodes a signed LEB128 value as a 64-bit integer.
func LoadInt64(data []byte) (int64, uint64, error) {
	return loadSigned(data, 64)
}

func loadSigned(data []byte, bits int) (int64, uint64, error) {
	var result int64
	var shift uint
	limit := maxBytes(bits)
	var b byte
	i := 0
	for ; ; i++ {
		if i >= limit {
			return 0, 0, werr.New(werr.CodeInvalidLEB128Encoding, "leb128 overlong encoding")
		}
		if i >= len(data) {
			return 0, 0, werr.New(werr.CodeUnexpectedEOF, "unexpected end of file reading leb128")
		}
		b = data[i]
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
	}
	// Only the final byte of a maximal-length encoding can carry bits beyond
	// the target width; validate those before applying sign extension.
	if i+1 == limit && !validSignExtensionByte(b, bits, (limit-1)*7) {
		return 0, 0, werr.New(werr.CodeInvalidLEB128Encoding, "leb128 invalid sign extension")
	}
	// Sign-extend if the terminating byte's sign bit is set and there are
	// unused high bits remaining above what was read.
	if shift < 64 && shift < uint(bits) && b&0x40 != 0 {
		result |= -1 << shift
	}
	return result, uint64(i + 1), nil
}

// validSignExtensionByte checks, for a final byte read at the maximum
// allowed byte count, that the bits of that byte's 7-bit payload above the
// target value's true sign-bit position all equal that sign bit -- i.e.
// that the encoding is a correct, non-overlong sign extension, per
// spec.md §4.D.
func validSignExtensionByte(b byte, bits, prevShift int) bool {
	localSignPos := bits - 1 - prevShift // position of the target's sign bit within this 7-bit chunk.
	if localSignPos < 0 || localSignPos > 6 {
		return true // the sign bit falls entirely within earlier bytes; nothing to check here.
	}
	chunk := b & 0x7f
	signBit := (chunk >> uint(localSignPos)) & 1
	overflowCount := 6 - localSignPos
	if overflowCount == 0 {
		return true
	}
	mask := byte((1 << uint(overflowCount)) - 1)
	top := (chunk >> uint(localSignPos+1)) & mask
	if signBit == 1 {
		return top == mask
	}
	return top == 0
}

// DecodeUint32 reads an unsigned LEB128 value from an io.ByteReader,
// returning the value and the number of bytes consumed.
func DecodeUint32(r io.ByteReader) (uint32, uint64, error) {
	v, n, err := decodeUnsigned(r, 32)
	return uint32(v), n, err
}

// DecodeUint64 reads an unsigned LEB128 value from an io.ByteReader.
func DecodeUint64(r io.ByteReader) (uint64, uint64, error) {
	return decodeUnsigned(r, 64)
}

func decodeUnsigned(r io.ByteReader, bits int) (uint64, uint64, error) {
	var result uint64
	var shift uint
	limit := maxBytes(bits)
	for i := 0; ; i++ {
		if i >= limit {
			return 0, 0, werr.New(werr.CodeInvalidLEB128Encoding, "leb128 overlong encoding")
		}
		b, err := r.ReadByte()
		if err != nil {
			return 0, 0, werr.Wrap(werr.CodeUnexpectedEOF, -1, err)
		}
		chunk := uint64(b & 0x7f)
		if b&0x80 == 0 {
			usedBits := shift + 7
			if usedBits > uint(bits) {
				overflowBits := usedBits - uint(bits)
				mask := uint64((1 << overflowBits) - 1)
				if (chunk>>(7-overflowBits))&mask != 0 {
					return 0, 0, werr.New(werr.CodeInvalidLEB128Encoding, "leb128 invalid high bits")
				}
			}
			result |= chunk << shift
			return result, uint64(i + 1), nil
		}
		result |= chunk << shift
		shift += 7
	}
}

// DecodeInt32 reads a signed LEB128 value as a 32-bit integer.
func DecodeInt32(r io.ByteReader) (int32, uint64, error) {
	v, n, err := decodeSigned(r, 32)
	return int32(v), n, err
}

// DecodeInt64 reads a signed LEB128 value as a 64-bit integer.
func DecodeInt64(r io.ByteReader) (int64, uint64, error) {
	return decodeSigned(r, 64)
}

// DecodeInt33AsInt64 decodes a signed 33-bit LEB128 value (used only for
// block-type indices, per spec.md §4.D) into an int64.
func DecodeInt33AsInt64(r io.ByteReader) (int64, uint64, error) {
	return decodeSigned(r, 33)
}

func decodeSigned(r io.ByteReader, bits int) (int64, uint64, error) {
	var result int64
	var shift uint
	limit := maxBytes(bits)
	var b byte
	i := 0
	for ; ; i++ {
		if i >= limit {
			return 0, 0, werr.New(werr.CodeInvalidLEB128Encoding, "leb128 overlong encoding")
		}
		var err error
		b, err = r.ReadByte()
		if err != nil {
			return 0, 0, werr.Wrap(werr.CodeUnexpectedEOF, -1, err)
		}
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
	}
	if i+1 == limit && !validSignExtensionByte(b, bits, (limit-1)*7) {
		return 0, 0, werr.New(werr.CodeInvalidLEB128Encoding, "leb128 invalid sign extension")
	}
	if shift < 64 && shift < uint(bits) && b&0x40 != 0 {
		result |= -1 << shift
	}
	return result, uint64(i + 1), nil
}
