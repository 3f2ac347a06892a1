package ber

import (
	"math"
	"math/rand"
	"testing"

	"github.com/danmuck/emberctl/internal/testutil/testlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func realBytes(t *testing.T, v float64) []byte {
	t.Helper()
	w := NewWriter()
	w.WriteReal(v)
	b, err := w.Bytes()
	require.NoError(t, err)
	return b
}

func TestRealSpecialEncodings(t *testing.T) {
	testlog.Start(t)
	assert.Equal(t, []byte{0x09, 0x00}, realBytes(t, 0))
	assert.Equal(t, []byte{0x09, 0x01, 0x40}, realBytes(t, math.Inf(1)))
	assert.Equal(t, []byte{0x09, 0x01, 0x41}, realBytes(t, math.Inf(-1)))
	assert.Equal(t, []byte{0x09, 0x01, 0x42}, realBytes(t, math.NaN()))

	v, err := NewReader([]byte{0x09, 0x00}).ReadReal()
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)
	v, err = NewReader([]byte{0x09, 0x01, 0x40}).ReadReal()
	require.NoError(t, err)
	assert.True(t, math.IsInf(v, 1))
	v, err = NewReader([]byte{0x09, 0x01, 0x41}).ReadReal()
	require.NoError(t, err)
	assert.True(t, math.IsInf(v, -1))
	v, err = NewReader([]byte{0x09, 0x01, 0x42}).ReadReal()
	require.NoError(t, err)
	assert.True(t, math.IsNaN(v))
}

func TestRealKnownEncodings(t *testing.T) {
	testlog.Start(t)
	assert.Equal(t, []byte{0x09, 0x03, 0x80, 0x00, 0x01}, realBytes(t, 1.0))
	assert.Equal(t, []byte{0x09, 0x03, 0x80, 0xff, 0x01}, realBytes(t, 0.5))
	assert.Equal(t, []byte{0x09, 0x03, 0xc0, 0x01, 0x01}, realBytes(t, -2.0))
	assert.Equal(t, []byte{0x09, 0x03, 0x80, 0x01, 0x03}, realBytes(t, 3.0))
}

func TestRealRoundTripBitExact(t *testing.T) {
	testlog.Start(t)
	values := []float64{
		1, -1, 0.1, -0.1, math.Pi, -math.E, 1e300, -1e-300,
		math.MaxFloat64, math.SmallestNonzeroFloat64, 2.2250738585072014e-308,
		1e-310, 123456.789, -0.000123, float64(1 << 53), 1.0 / 3.0,
		math.Copysign(0, -1),
	}
	rng := rand.New(rand.NewSource(101))
	for i := 0; i < 5000; i++ {
		f := math.Float64frombits(rng.Uint64())
		if math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		values = append(values, f)
	}
	for _, in := range values {
		got, err := NewReader(realBytes(t, in)).ReadReal()
		require.NoError(t, err, "value %v", in)
		assert.Equal(t, math.Float64bits(in), math.Float64bits(got), "value %v", in)
	}
}

func TestRealSignificandShiftHonored(t *testing.T) {
	testlog.Start(t)
	// significand 1 shifted left by 2, exponent 0 -> still 1.0 after normalisation
	v, err := NewReader([]byte{0x09, 0x03, 0x88, 0x00, 0x01}).ReadReal()
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)
}

func TestRealMalformed(t *testing.T) {
	testlog.Start(t)
	_, err := NewReader([]byte{0x09, 0x02, 0x81, 0x00}).ReadReal()
	assert.ErrorIs(t, err, ErrTruncated)
	_, err = NewReader([]byte{0x09, 0x03, 0x80, 0x00, 0x00}).ReadReal()
	assert.ErrorIs(t, err, ErrInvalidReal)
	_, err = NewReader([]byte{0x09, 0x01, 0x47}).ReadReal()
	assert.ErrorIs(t, err, ErrInvalidReal)
	_, err = NewReader([]byte{0x09, 0x03, 0x90, 0x00, 0x01}).ReadReal()
	assert.ErrorIs(t, err, ErrInvalidReal)
	_, err = NewReader([]byte{0x09, 0x04, 0x81, 0x04, 0x00, 0x01}).ReadReal()
	assert.ErrorIs(t, err, ErrRealOutOfRange)
}
