package codec

import (
	"errors"
	"math"
	"testing"

	apperrors "github.com/iwtcode/modbusAdapter/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allOrders = []ByteOrder{ABCD, BADC, CDAB, DCBA}

func TestFloat32Layout(t *testing.T) {
	// 1.0f == 0x3F800000
	cases := map[ByteOrder][]uint16{
		ABCD: {0x3F80, 0x0000},
		BADC: {0x803F, 0x0000},
		CDAB: {0x0000, 0x3F80},
		DCBA: {0x0000, 0x803F},
	}
	for order, want := range cases {
		t.Run(order.String(), func(t *testing.T) {
			words, err := FromFloat32(1.0, order)
			require.NoError(t, err)
			assert.Equal(t, want, words)

			v, err := ToFloat32(want, order)
			require.NoError(t, err)
			assert.Equal(t, float32(1.0), v)
		})
	}
}

// littleEndianLabel читает два регистра так, как это делает реализация,
// копирующая слова в байты в порядке хоста (little-endian) и переставляющая байты по метке.
func littleEndianLabel(words []uint16, label ByteOrder) uint32 {
	raw := []byte{byte(words[0]), byte(words[0] >> 8), byte(words[1]), byte(words[1] >> 8)}
	var b []byte
	switch label {
	case BADC:
		b = []byte{raw[1], raw[0], raw[3], raw[2]}
	case CDAB:
		b = []byte{raw[2], raw[3], raw[0], raw[1]}
	case DCBA:
		b = []byte{raw[3], raw[2], raw[1], raw[0]}
	default:
		b = raw
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func TestLittleEndianLabelMapping(t *testing.T) {
	words := []uint16{0x1234, 0xABCD}
	mapping := map[ByteOrder]ByteOrder{
		ABCD: CDAB,
		BADC: DCBA,
		CDAB: ABCD,
		DCBA: BADC,
	}
	for foreign, ours := range mapping {
		t.Run(foreign.String(), func(t *testing.T) {
			want := littleEndianLabel(words, foreign)
			got, err := ToUint32(words, ours)
			require.NoError(t, err)
			assert.Equal(t, want, got)

			f, err := ToFloat32(words, ours)
			require.NoError(t, err)
			assert.Equal(t, math.Float32frombits(want), f)
		})
	}
}

func TestFloatRoundTripAllOrders(t *testing.T) {
	floats := []float32{0, -1.5, 3.1415927, math.MaxFloat32, math.SmallestNonzeroFloat32}
	doubles := []float64{0, -2.25, math.Pi, math.MaxFloat64, math.SmallestNonzeroFloat64}

	for _, order := range allOrders {
		t.Run(order.String(), func(t *testing.T) {
			words, err := FromFloat32s(floats, order)
			require.NoError(t, err)
			require.Len(t, words, len(floats)*2)
			gotF, err := ToFloat32s(words, order)
			require.NoError(t, err)
			assert.Equal(t, floats, gotF)

			words, err = FromFloat64s(doubles, order)
			require.NoError(t, err)
			require.Len(t, words, len(doubles)*4)
			gotD, err := ToFloat64s(words, order)
			require.NoError(t, err)
			assert.Equal(t, doubles, gotD)
		})
	}
}

func TestIntegerRoundTrip(t *testing.T) {
	for _, order := range allOrders {
		words, err := FromInt32(-123456789, order)
		require.NoError(t, err)
		v, err := ToInt32(words, order)
		require.NoError(t, err)
		assert.Equal(t, int32(-123456789), v)

		words, err = FromUint32s([]uint32{0xDEADBEEF, 1}, order)
		require.NoError(t, err)
		u, err := ToUint32s(words, order)
		require.NoError(t, err)
		assert.Equal(t, []uint32{0xDEADBEEF, 1}, u)
	}

	assert.Equal(t, []int16{-1, 1}, ToInt16s(FromInt16s([]int16{-1, 1})))
}

func TestLengthValidation(t *testing.T) {
	_, err := ToFloat32s([]uint16{1, 2, 3}, ABCD)
	assertInvalid(t, err, "multiple of 2")

	_, err = ToFloat64s([]uint16{1, 2, 3, 4, 5, 6}, CDAB)
	assertInvalid(t, err, "multiple of 4")

	_, err = ToFloat32([]uint16{1, 2, 3, 4}, ABCD)
	assertInvalid(t, err, "exactly 2")

	_, err = ToFloat64([]uint16{1, 2}, ABCD)
	assertInvalid(t, err, "exactly 4")

	_, err = FromBitSignalsWords(make([]bool, 17))
	assertInvalid(t, err, "multiple of 16")

	_, err = FromBitSignals(make([]bool, 15))
	assertInvalid(t, err, "exactly 16")

	_, err = ToFloat32s([]uint16{1, 2}, ByteOrder(9))
	assertInvalid(t, err, "byte order")
}

func TestNoPartialConversion(t *testing.T) {
	vs, err := ToFloat64s([]uint16{0x4009, 0x21FB, 0x5444, 0x2D18, 0x0001}, ABCD)
	require.Error(t, err)
	assert.Nil(t, vs)
}

func TestBitSignals(t *testing.T) {
	bits := make([]bool, 16)
	bits[0], bits[3], bits[15] = true, true, true

	word, err := FromBitSignals(bits)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x8009), word)
	assert.Equal(t, bits, ToBitSignals(word))

	on, err := ToBitSignal(word, 3)
	require.NoError(t, err)
	assert.True(t, on)

	on, err = ToBitSignal(word, 4)
	require.NoError(t, err)
	assert.False(t, on)

	_, err = ToBitSignal(word, 16)
	assertInvalid(t, err, "out of range")
	_, err = ToBitSignal(word, -1)
	assertInvalid(t, err, "out of range")
}

func TestBitSignalsWords(t *testing.T) {
	words := []uint16{0x0001, 0x8000}
	bits := ToBitSignalsWords(words)
	require.Len(t, bits, 32)
	assert.True(t, bits[0])
	assert.True(t, bits[31])
	assert.False(t, bits[16])

	back, err := FromBitSignalsWords(bits)
	require.NoError(t, err)
	assert.Equal(t, words, back)
}

func TestSignals(t *testing.T) {
	assert.Equal(t, []bool{false, true, true}, ToSignals([]uint16{0, 1, 0xFFFF}))
	assert.Equal(t, []uint16{1, 0}, FromSignals([]bool{true, false}))
}

func TestParseByteOrder(t *testing.T) {
	for _, order := range allOrders {
		got, err := ParseByteOrder(order.String())
		require.NoError(t, err)
		assert.Equal(t, order, got)
	}

	got, err := ParseByteOrder(" cdab ")
	require.NoError(t, err)
	assert.Equal(t, CDAB, got)

	_, err = ParseByteOrder("ABDC")
	assertInvalid(t, err, "unknown byte order")
}

func assertInvalid(t *testing.T, err error, contains string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidArgument), "expected invalid argument, got %v", err)
	assert.Contains(t, err.Error(), contains)
}
