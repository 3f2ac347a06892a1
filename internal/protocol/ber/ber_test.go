package ber

import (
	"errors"
	"strings"
	"testing"

	"github.com/danmuck/emberctl/internal/testutil/testlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteIntMinimalTwosComplement(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		in   int64
		want []byte
	}{
		{0, []byte{0x02, 0x01, 0x00}},
		{127, []byte{0x02, 0x01, 0x7f}},
		{128, []byte{0x02, 0x02, 0x00, 0x80}},
		{-1, []byte{0x02, 0x01, 0xff}},
		{-128, []byte{0x02, 0x01, 0x80}},
		{-129, []byte{0x02, 0x02, 0xff, 0x7f}},
	}
	for _, tc := range cases {
		w := NewWriter()
		w.WriteInt(tc.in)
		got, err := w.Bytes()
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "value %d", tc.in)

		v, err := NewReader(got).ReadInt()
		require.NoError(t, err)
		assert.Equal(t, tc.in, v)
	}
}

func TestIntegerExtremesRoundTrip(t *testing.T) {
	testlog.Start(t)
	for _, in := range []int64{1<<63 - 1, -1 << 63, 1 << 31, -(1 << 31)} {
		w := NewWriter()
		w.WriteInt(in)
		b, err := w.Bytes()
		require.NoError(t, err)
		got, err := NewReader(b).ReadInt()
		require.NoError(t, err)
		assert.Equal(t, in, got)
	}
}

func TestNestedSequencePatchesLengths(t *testing.T) {
	testlog.Start(t)
	w := NewWriter()
	w.StartSequence(Application(3))
	w.StartSequence(Context(0))
	w.WriteInt(5)
	require.NoError(t, w.EndSequence())
	require.NoError(t, w.EndSequence())
	got, err := w.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x63, 0x05, 0xa0, 0x03, 0x02, 0x01, 0x05}, got)

	r := NewReader(got)
	app, err := r.GetSequence(Application(3))
	require.NoError(t, err)
	assert.Equal(t, 0, r.Remaining())
	ctx, err := app.GetSequence(Context(0))
	require.NoError(t, err)
	v, err := ctx.ReadInt()
	require.NoError(t, err)
	assert.Equal(t, int64(5), v)
	assert.Equal(t, 0, ctx.Remaining())
}

func TestLongFormLength(t *testing.T) {
	testlog.Start(t)
	s := strings.Repeat("x", 300)
	w := NewWriter()
	w.StartSequence(Context(1))
	w.WriteString(s)
	require.NoError(t, w.EndSequence())
	b, err := w.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xa1, 0x82, 0x01, 0x30, 0x0c, 0x82, 0x01, 0x2c}, b[:8])

	seq, err := NewReader(b).GetSequence(Context(1))
	require.NoError(t, err)
	got, err := seq.ReadString()
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestUnbalancedSequence(t *testing.T) {
	testlog.Start(t)
	w := NewWriter()
	w.StartSequence(TagSequence)
	_, err := w.Bytes()
	assert.ErrorIs(t, err, ErrUnbalancedSequence)
	require.NoError(t, w.EndSequence())
	assert.ErrorIs(t, w.EndSequence(), ErrUnbalancedSequence)
}

func TestGetSequenceWrongTag(t *testing.T) {
	testlog.Start(t)
	_, err := NewReader([]byte{0x62, 0x00}).GetSequence(Application(3))
	var tagErr TagError
	require.True(t, errors.As(err, &tagErr))
	assert.Equal(t, byte(0x63), tagErr.Want)
	assert.Equal(t, byte(0x62), tagErr.Got)
	assert.ErrorIs(t, err, ErrUnexpectedTag)
}

func TestTruncatedContent(t *testing.T) {
	testlog.Start(t)
	_, err := NewReader([]byte{0x0c, 0x05, 'a', 'b'}).ReadString()
	assert.ErrorIs(t, err, ErrTruncated)
	_, err = NewReader([]byte{0x30, 0x80, 0x00, 0x00}).GetSequence(TagSequence)
	assert.ErrorIs(t, err, ErrIndefiniteLength)
	_, err = NewReader([]byte{0x1f, 0x01, 0x00}).Peek()
	assert.ErrorIs(t, err, ErrMultiByteTag)
}

func TestReadValueDispatch(t *testing.T) {
	testlog.Start(t)
	w := NewWriter()
	w.WriteString("gain")
	w.WriteInt(-12)
	w.WriteReal(0.25)
	w.WriteBool(true)
	w.WriteOctets([]byte{0xde, 0xad})
	require.NoError(t, w.WriteRelativeOID([]int32{1, 200, 70000}))
	b, err := w.Bytes()
	require.NoError(t, err)

	want := []Value{
		StringValue("gain"),
		IntegerValue(-12),
		RealValue(0.25),
		BooleanValue(true),
		OctetsValue([]byte{0xde, 0xad}),
		RelativeOIDValue([]int32{1, 200, 70000}),
	}
	r := NewReader(b)
	for _, expected := range want {
		got, err := r.ReadValue()
		require.NoError(t, err)
		assert.True(t, expected.Equal(got), "want %s got %s", expected.Format(), got.Format())
	}
	assert.Equal(t, 0, r.Remaining())
}

func TestReadValueUnimplementedTag(t *testing.T) {
	testlog.Start(t)
	_, err := NewReader([]byte{0x05, 0x00}).ReadValue()
	assert.ErrorIs(t, err, ErrUnimplementedType)
	var typeErr UnimplementedTypeError
	require.True(t, errors.As(err, &typeErr))
	assert.Equal(t, TagNull, typeErr.Tag)
}

func TestWriteAnyInfersTag(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		in  any
		tag byte
	}{
		{int32(4), TagInteger},
		{true, TagBoolean},
		{1.5, TagReal},
		{[]byte{1}, TagOctetString},
		{"x", TagUTF8String},
	}
	for _, tc := range cases {
		w := NewWriter()
		require.NoError(t, w.WriteAny(tc.in))
		b, err := w.Bytes()
		require.NoError(t, err)
		assert.Equal(t, tc.tag, b[0], "input %T", tc.in)
	}
	w := NewWriter()
	assert.ErrorIs(t, w.WriteAny(struct{}{}), ErrUnimplementedType)
}

func TestRelativeOIDRejectsNegativeAndUnterminated(t *testing.T) {
	testlog.Start(t)
	w := NewWriter()
	assert.ErrorIs(t, w.WriteRelativeOID([]int32{1, -2}), ErrInvalidOID)
	_, err := NewReader([]byte{0x0d, 0x02, 0x01, 0x81}).ReadRelativeOID()
	assert.ErrorIs(t, err, ErrInvalidOID)

	empty, err := NewReader([]byte{0x0d, 0x00}).ReadRelativeOID()
	require.NoError(t, err)
	assert.Empty(t, empty)
}
