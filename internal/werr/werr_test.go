package werr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorStringForms(t *testing.T) {
	e := New(CodeInvalidMagicNumber, "invalid magic number")
	require.Equal(t, "invalid magic number", e.Error())

	withOffset := e.WithOffset(0)
	require.Equal(t, "invalid magic number (offset 0x0)", withOffset.Error())

	withBoth := withOffset.WithFuncIndex(3)
	require.Equal(t, "invalid magic number (offset 0x0, function 3)", withBoth.Error())
}

func TestCategory(t *testing.T) {
	require.Equal(t, Code(0x1000), CodeInvalidMagicNumber.Category())
	require.Equal(t, Code(0x2000), CodeTypeMismatch.Category())
	require.Equal(t, Code(0x5000), CodeDuplicateExport.Category())
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("boom")
	wrapped := Wrap(CodeUnexpectedEOF, 10, cause)
	require.ErrorIs(t, wrapped, cause)
	require.Equal(t, int64(10), wrapped.Offset)
}

func TestNewf(t *testing.T) {
	e := Newf(CodeInvalidIndex, "function index %d out of range", 7)
	require.Equal(t, "function index 7 out of range", e.Msg)
}
