package ber

import "fmt"

// maxLengthBytes bounds the long-form length prefix.
const maxLengthBytes = 4

// Reader walks a BER byte sequence. Sub-readers returned by GetSequence
// are scoped to one item's content, so decoders read until Remaining is 0.
type Reader struct {
	buf []byte
	off int
}

func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.off
}

// Offset returns the number of consumed bytes.
func (r *Reader) Offset() int {
	return r.off
}

// Peek returns the next tag without consuming it.
func (r *Reader) Peek() (byte, error) {
	if r.Remaining() < 1 {
		return 0, ErrTruncated
	}
	tag := r.buf[r.off]
	if tag&tagNumberMask == tagNumberMask {
		return 0, ErrMultiByteTag
	}
	return tag, nil
}

func (r *Reader) readTag() (byte, error) {
	tag, err := r.Peek()
	if err != nil {
		return 0, err
	}
	r.off++
	return tag, nil
}

func (r *Reader) readLength() (int, error) {
	if r.Remaining() < 1 {
		return 0, ErrTruncated
	}
	first := r.buf[r.off]
	r.off++
	if first < 0x80 {
		return int(first), nil
	}
	n := int(first & 0x7f)
	if n == 0 {
		return 0, ErrIndefiniteLength
	}
	if n > maxLengthBytes {
		return 0, ErrLengthTooLarge
	}
	if r.Remaining() < n {
		return 0, ErrTruncated
	}
	length := 0
	for i := 0; i < n; i++ {
		length = length<<8 | int(r.buf[r.off])
		r.off++
	}
	if length < 0 {
		return 0, ErrLengthTooLarge
	}
	return length, nil
}

// ReadTLV consumes the next item and returns its tag and content.
func (r *Reader) ReadTLV() (byte, []byte, error) {
	tag, err := r.readTag()
	if err != nil {
		return 0, nil, err
	}
	length, err := r.readLength()
	if err != nil {
		return 0, nil, err
	}
	if r.Remaining() < length {
		return 0, nil, fmt.Errorf("%w: tag 0x%02x wants %d bytes, %d left", ErrTruncated, tag, length, r.Remaining())
	}
	content := r.buf[r.off : r.off+length]
	r.off += length
	return tag, content, nil
}

func (r *Reader) expect(tag byte) ([]byte, error) {
	next, err := r.Peek()
	if err != nil {
		return nil, err
	}
	if next != tag {
		return nil, TagError{Want: tag, Got: next}
	}
	_, content, err := r.ReadTLV()
	return content, err
}

// GetSequence consumes the next item, which must carry tag, and returns a
// reader bounded to its content.
func (r *Reader) GetSequence(tag byte) (*Reader, error) {
	content, err := r.expect(tag)
	if err != nil {
		return nil, err
	}
	return NewReader(content), nil
}

// Skip consumes the next item whatever its tag.
func (r *Reader) Skip() error {
	_, _, err := r.ReadTLV()
	return err
}

func (r *Reader) ReadInt() (int64, error) {
	content, err := r.expect(TagInteger)
	if err != nil {
		return 0, err
	}
	return decodeInt(content)
}

func (r *Reader) ReadBool() (bool, error) {
	content, err := r.expect(TagBoolean)
	if err != nil {
		return false, err
	}
	if len(content) != 1 {
		return false, fmt.Errorf("%w: boolean of %d bytes", ErrInvalidLength, len(content))
	}
	return content[0] != 0, nil
}

func (r *Reader) ReadString() (string, error) {
	content, err := r.expect(TagUTF8String)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

func (r *Reader) ReadOctets() ([]byte, error) {
	content, err := r.expect(TagOctetString)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(content))
	copy(out, content)
	return out, nil
}

func (r *Reader) ReadReal() (float64, error) {
	content, err := r.expect(TagReal)
	if err != nil {
		return 0, err
	}
	return decodeReal(content)
}

func (r *Reader) ReadRelativeOID() ([]int32, error) {
	content, err := r.expect(TagRelativeOID)
	if err != nil {
		return nil, err
	}
	return decodeRelativeOID(content)
}

func (r *Reader) ReadNull() error {
	content, err := r.expect(TagNull)
	if err != nil {
		return err
	}
	if len(content) != 0 {
		return fmt.Errorf("%w: null of %d bytes", ErrInvalidLength, len(content))
	}
	return nil
}

// ReadValue peeks the next tag and dispatches to the matching primitive.
func (r *Reader) ReadValue() (Value, error) {
	tag, err := r.Peek()
	if err != nil {
		return Value{}, err
	}
	switch tag {
	case TagUTF8String:
		s, err := r.ReadString()
		return StringValue(s), err
	case TagInteger:
		v, err := r.ReadInt()
		return IntegerValue(v), err
	case TagReal:
		v, err := r.ReadReal()
		return RealValue(v), err
	case TagBoolean:
		v, err := r.ReadBool()
		return BooleanValue(v), err
	case TagOctetString:
		v, err := r.ReadOctets()
		return OctetsValue(v), err
	case TagRelativeOID:
		v, err := r.ReadRelativeOID()
		return RelativeOIDValue(v), err
	default:
		return Value{}, UnimplementedTypeError{Tag: tag}
	}
}

func decodeInt(b []byte) (int64, error) {
	if len(b) == 0 {
		return 0, fmt.Errorf("%w: empty integer", ErrInvalidLength)
	}
	if len(b) > 8 {
		return 0, ErrIntegerOverflow
	}
	v := int64(int8(b[0]))
	for _, c := range b[1:] {
		v = v<<8 | int64(c)
	}
	return v, nil
}

func decodeRelativeOID(b []byte) ([]int32, error) {
	out := make([]int32, 0, len(b))
	var cur uint64
	pending := false
	for _, c := range b {
		cur = cur<<7 | uint64(c&0x7f)
		if cur > 0x7fffffff {
			return nil, fmt.Errorf("%w: subidentifier overflow", ErrInvalidOID)
		}
		pending = true
		if c&0x80 == 0 {
			out = append(out, int32(cur))
			cur = 0
			pending = false
		}
	}
	if pending {
		return nil, fmt.Errorf("%w: unterminated subidentifier", ErrInvalidOID)
	}
	return out, nil
}
