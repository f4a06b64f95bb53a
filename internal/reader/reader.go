// Package reader implements the bounds-checked binary cursor the decoder
// reads every module through. Every failure mode reports the byte offset it
// occurred at, matching the location-bearing contract of werr.Error.
package reader

import (
	"math"
	"unicode/utf8"

	"github.com/flightwasm/core/internal/leb128"
	"github.com/flightwasm/core/internal/werr"
)

// Reader is a forward-only cursor over an in-memory byte slice.
type Reader struct {
	data []byte
	pos  int
}

// New wraps data in a Reader starting at offset zero.
func New(data []byte) *Reader {
	return &Reader{data: data}
}

// Offset returns the current byte offset.
func (r *Reader) Offset() int64 { return int64(r.pos) }

// Len returns the number of unread bytes remaining.
func (r *Reader) Len() int { return len(r.data) - r.pos }

// Remaining returns the unread tail of the underlying buffer, unconsumed.
func (r *Reader) Remaining() []byte { return r.data[r.pos:] }

// Since returns the bytes consumed between a previously recorded Offset()
// and the reader's current position, without allocating a new copy.
func (r *Reader) Since(start int64) []byte { return r.data[start:r.pos] }

func (r *Reader) eofErr() error {
	return werr.New(werr.CodeUnexpectedEOF, "unexpected end of input").WithOffset(r.Offset())
}

// ReadByte implements io.ByteReader so the leb128 Decode* helpers can read
// directly off a Reader.
func (r *Reader) ReadByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, r.eofErr()
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// ReadU8 reads one raw byte.
func (r *Reader) ReadU8() (byte, error) {
	return r.ReadByte()
}

// PeekU8 reads one byte without advancing the cursor.
func (r *Reader) PeekU8() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, r.eofErr()
	}
	return r.data[r.pos], nil
}

// ReadBytes reads n raw bytes.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.data) {
		return nil, r.eofErr()
	}
	out := r.data[r.pos : r.pos+n]
	r.pos += n
	return out, nil
}

// Skip advances the cursor by n bytes without returning them.
func (r *Reader) Skip(n int) error {
	if n < 0 || r.pos+n > len(r.data) {
		return r.eofErr()
	}
	r.pos += n
	return nil
}

// Seek moves the cursor to an absolute offset.
func (r *Reader) Seek(offset int64) error {
	if offset < 0 || int(offset) > len(r.data) {
		return werr.New(werr.CodeUnexpectedEOF, "seek out of bounds").WithOffset(offset)
	}
	r.pos = int(offset)
	return nil
}

// ReadU32LE reads a little-endian fixed-width 32-bit unsigned integer, used
// only by fields the binary format stores fixed-width rather than LEB128
// (none in the module format itself, but kept for callers decoding raw
// memory/data images).
func (r *Reader) ReadU32LE() (uint32, error) {
	b, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24, nil
}

// ReadU64LE reads a little-endian fixed-width 64-bit unsigned integer.
func (r *Reader) ReadU64LE() (uint64, error) {
	b, err := r.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v, nil
}

// ReadF32LE reads a little-endian IEEE-754 single-precision float, bit-exact
// (no numeric cast, so NaN payloads survive).
func (r *Reader) ReadF32LE() (float32, error) {
	bits, err := r.ReadU32LE()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(bits), nil
}

// ReadF64LE reads a little-endian IEEE-754 double-precision float, bit-exact.
func (r *Reader) ReadF64LE() (float64, error) {
	bits, err := r.ReadU64LE()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(bits), nil
}

// ReadVarUint32 reads an unsigned LEB128 32-bit integer.
func (r *Reader) ReadVarUint32() (uint32, error) {
	v, n, err := leb128.LoadUint32(r.data[r.pos:])
	if err != nil {
		return 0, withOffset(err, r.Offset())
	}
	r.pos += int(n)
	return v, nil
}

// ReadVarUint64 reads an unsigned LEB128 64-bit integer.
func (r *Reader) ReadVarUint64() (uint64, error) {
	v, n, err := leb128.LoadUint64(r.data[r.pos:])
	if err != nil {
		return 0, withOffset(err, r.Offset())
	}
	r.pos += int(n)
	return v, nil
}

// ReadVarInt32 reads a signed LEB128 32-bit integer.
func (r *Reader) ReadVarInt32() (int32, error) {
	v, n, err := leb128.LoadInt32(r.data[r.pos:])
	if err != nil {
		return 0, withOffset(err, r.Offset())
	}
	r.pos += int(n)
	return v, nil
}

// ReadVarInt64 reads a signed LEB128 64-bit integer.
func (r *Reader) ReadVarInt64() (int64, error) {
	v, n, err := leb128.LoadInt64(r.data[r.pos:])
	if err != nil {
		return 0, withOffset(err, r.Offset())
	}
	r.pos += int(n)
	return v, nil
}

// ReadVarInt33AsInt64 reads a signed LEB128 33-bit block-type index.
func (r *Reader) ReadVarInt33AsInt64() (int64, error) {
	start := r.Offset()
	v, _, err := leb128.DecodeInt33AsInt64(r)
	if err != nil {
		return 0, withOffset(err, start)
	}
	return v, nil
}

func withOffset(err error, offset int64) error {
	if we, ok := err.(*werr.Error); ok {
		return we.WithOffset(offset)
	}
	return err
}

// ReadName reads a length-prefixed UTF-8 string, rejecting overlong
// encodings, surrogate code points, and values outside the Unicode range --
// utf8.Valid alone is not sufficient since Go's decoder is itself lenient
// about some of these only when fed through DecodeRune in a loop, so this
// validates rune-by-rune against utf8.RuneError.
func (r *Reader) ReadName() (string, error) {
	n, err := r.ReadVarUint32()
	if err != nil {
		return "", err
	}
	start := r.Offset()
	raw, err := r.ReadBytes(int(n))
	if err != nil {
		return "", err
	}
	if !validUTF8(raw) {
		return "", werr.New(werr.CodeInvalidUTF8Sequence, "invalid UTF-8 in name").WithOffset(start)
	}
	return string(raw), nil
}

func validUTF8(b []byte) bool {
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size <= 1 {
			return false
		}
		b = b[size:]
	}
	return true
}
