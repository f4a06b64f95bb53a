package valuekernel

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestReinterpretRoundTrip checks spec.md §8 property 1: reinterpret is a
// bit-exact round trip for every 32/64-bit pattern, including NaNs.
func TestReinterpretRoundTrip(t *testing.T) {
	patterns32 := []uint32{0, 1, 0xffffffff, 0x7fc00000, 0xffc00000, 0x7f800001}
	for _, bits := range patterns32 {
		i := I32ReinterpretF32(bits)
		require.Equal(t, bits, F32ReinterpretI32(i))
	}

	patterns64 := []uint64{0, 1, 0xffffffffffffffff, 0x7ff8000000000000, 0xfff8000000000001}
	for _, bits := range patterns64 {
		i := I64ReinterpretF64(bits)
		require.Equal(t, bits, F64ReinterpretI64(i))
	}
}

// TestWrapExtendRoundTrip checks spec.md §8 property 2.
func TestWrapExtendRoundTrip(t *testing.T) {
	for _, x := range []int32{0, 1, -1, math.MinInt32, math.MaxInt32, 12345, -98765} {
		require.Equal(t, x, I32WrapI64(I64ExtendI32S(x)))
		require.Equal(t, x, I32WrapI64(I64ExtendI32U(x)))
	}
}

func TestTruncTrapsOnNaNInfAndOutOfRange(t *testing.T) {
	_, err := I32TruncF32S(float32(math.NaN()))
	require.Error(t, err)

	_, err = I32TruncF32S(float32(math.Inf(1)))
	require.Error(t, err)

	_, err = I32TruncF32S(2147483648.0) // 2^31, just out of i32 range.
	require.Error(t, err)

	v, err := I32TruncF32S(-2147483648.0) // exactly -2^31, in range.
	require.NoError(t, err)
	require.Equal(t, int32(math.MinInt32), v)
}

func TestTruncSatNeverTraps(t *testing.T) {
	require.Equal(t, int32(0), I32TruncSatF32S(float32(math.NaN())))
	require.Equal(t, int32(math.MaxInt32), I32TruncSatF32S(float32(math.Inf(1))))
	require.Equal(t, int32(math.MinInt32), I32TruncSatF32S(float32(math.Inf(-1))))
}

func TestPromoteThenDemoteIsIdentityForFiniteValues(t *testing.T) {
	for _, f := range []float32{0, 1, -1, 3.14, 1e30} {
		require.Equal(t, f, F32DemoteF64(F64PromoteF32(f)))
	}
}

func TestDivByZeroTraps(t *testing.T) {
	_, err := I32DivS(1, 0)
	require.Error(t, err)
	_, err = I32RemU(1, 0)
	require.Error(t, err)
}

func TestSignedDivOverflowTraps(t *testing.T) {
	_, err := I32DivS(math.MinInt32, -1)
	require.Error(t, err)

	v, err := I32RemS(math.MinInt32, -1)
	require.NoError(t, err)
	require.Equal(t, int32(0), v)
}

func TestSignExtension(t *testing.T) {
	require.Equal(t, int32(-1), I32Extend8S(0xff))
	require.Equal(t, int32(127), I32Extend8S(0x7f))
	require.Equal(t, int64(-1), I64Extend32S(0xffffffff))
}
