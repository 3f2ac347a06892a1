package ber

import "fmt"

// Writer builds a BER byte sequence. StartSequence/EndSequence nest; the
// length of each sequence is patched in when it ends.
type Writer struct {
	buf   []byte
	stack []int
}

func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 256)}
}

// Bytes returns the encoded data. All sequences must be closed.
func (w *Writer) Bytes() ([]byte, error) {
	if len(w.stack) != 0 {
		return nil, fmt.Errorf("%w: %d open sequences", ErrUnbalancedSequence, len(w.stack))
	}
	out := make([]byte, len(w.buf))
	copy(out, w.buf)
	return out, nil
}

func (w *Writer) StartSequence(tag byte) {
	w.buf = append(w.buf, tag)
	w.stack = append(w.stack, len(w.buf))
}

func (w *Writer) EndSequence() error {
	if len(w.stack) == 0 {
		return ErrUnbalancedSequence
	}
	start := w.stack[len(w.stack)-1]
	w.stack = w.stack[:len(w.stack)-1]
	length := encodeLength(len(w.buf) - start)
	w.buf = append(w.buf, length...)
	copy(w.buf[start+len(length):], w.buf[start:len(w.buf)-len(length)])
	copy(w.buf[start:], length)
	return nil
}

// WriteTLV writes one primitive item.
func (w *Writer) WriteTLV(tag byte, content []byte) {
	w.buf = append(w.buf, tag)
	w.buf = append(w.buf, encodeLength(len(content))...)
	w.buf = append(w.buf, content...)
}

func (w *Writer) WriteInt(v int64) {
	w.WriteTLV(TagInteger, encodeInt(v))
}

func (w *Writer) WriteBool(v bool) {
	b := byte(0x00)
	if v {
		b = 0xff
	}
	w.WriteTLV(TagBoolean, []byte{b})
}

func (w *Writer) WriteString(s string) {
	w.WriteTLV(TagUTF8String, []byte(s))
}

func (w *Writer) WriteOctets(b []byte) {
	w.WriteTLV(TagOctetString, b)
}

func (w *Writer) WriteReal(v float64) {
	w.WriteTLV(TagReal, encodeReal(v))
}

func (w *Writer) WriteNull() {
	w.WriteTLV(TagNull, nil)
}

func (w *Writer) WriteRelativeOID(oid []int32) error {
	content, err := encodeRelativeOID(oid)
	if err != nil {
		return err
	}
	w.WriteTLV(TagRelativeOID, content)
	return nil
}

// WriteValue writes v with the universal tag matching its type.
func (w *Writer) WriteValue(v Value) error {
	switch v.Type {
	case ValueInteger:
		w.WriteInt(v.Integer)
	case ValueReal:
		w.WriteReal(v.Real)
	case ValueString:
		w.WriteString(v.String)
	case ValueBoolean:
		w.WriteBool(v.Boolean)
	case ValueOctets:
		w.WriteOctets(v.Octets)
	case ValueRelativeOID:
		return w.WriteRelativeOID(v.OID)
	default:
		return fmt.Errorf("%w: value type %d", ErrUnimplementedType, v.Type)
	}
	return nil
}

// WriteAny infers the tag from the runtime shape of x.
func (w *Writer) WriteAny(x any) error {
	v, err := ValueOf(x)
	if err != nil {
		return err
	}
	return w.WriteValue(v)
}

func encodeLength(n int) []byte {
	if n < 0x80 {
		return []byte{byte(n)}
	}
	var tmp [maxLengthBytes]byte
	i := len(tmp)
	for n > 0 {
		i--
		tmp[i] = byte(n)
		n >>= 8
	}
	out := make([]byte, 0, 1+len(tmp)-i)
	out = append(out, 0x80|byte(len(tmp)-i))
	return append(out, tmp[i:]...)
}

func encodeInt(v int64) []byte {
	n := 1
	for n < 8 {
		if x := v >> uint(8*n-1); x == 0 || x == -1 {
			break
		}
		n++
	}
	out := make([]byte, n)
	for i := n - 1; i >= 0; i-- {
		out[i] = byte(v)
		v >>= 8
	}
	return out
}

func encodeRelativeOID(oid []int32) ([]byte, error) {
	out := make([]byte, 0, len(oid)*2)
	for _, id := range oid {
		if id < 0 {
			return nil, fmt.Errorf("%w: negative subidentifier %d", ErrInvalidOID, id)
		}
		var tmp [5]byte
		i := len(tmp) - 1
		tmp[i] = byte(id & 0x7f)
		for v := uint32(id) >> 7; v > 0; v >>= 7 {
			i--
			tmp[i] = byte(v&0x7f) | 0x80
		}
		out = append(out, tmp[i:]...)
	}
	return out, nil
}
