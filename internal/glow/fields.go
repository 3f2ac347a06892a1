package glow

import (
	"slices"

	"github.com/danmuck/emberctl/internal/protocol/ber"
)

// fieldWriter writes optional contents fields, keeping the first error.
type fieldWriter struct {
	w   *ber.Writer
	err error
}

func (f *fieldWriter) open(n int) bool {
	if f.err != nil {
		return false
	}
	f.w.StartSequence(ctx(n))
	return true
}

func (f *fieldWriter) close() {
	if f.err == nil {
		f.err = f.w.EndSequence()
	}
}

func (f *fieldWriter) str(n int, v *string) {
	if v == nil || !f.open(n) {
		return
	}
	f.w.WriteString(*v)
	f.close()
}

func (f *fieldWriter) boolean(n int, v *bool) {
	if v == nil || !f.open(n) {
		return
	}
	f.w.WriteBool(*v)
	f.close()
}

func (f *fieldWriter) value(n int, v ber.Value) {
	if !v.IsSet() || !f.open(n) {
		return
	}
	if err := f.w.WriteValue(v); err != nil {
		f.err = err
		return
	}
	f.close()
}

func (f *fieldWriter) oid(n int, v []int32) {
	if v == nil || !f.open(n) {
		return
	}
	if err := f.w.WriteRelativeOID(v); err != nil {
		f.err = err
		return
	}
	f.close()
}

func (f *fieldWriter) nested(n int, fn func(w *ber.Writer) error) {
	if !f.open(n) {
		return
	}
	if err := fn(f.w); err != nil {
		f.err = err
		return
	}
	f.close()
}

func writeIntField[T ~int32 | ~int64](f *fieldWriter, n int, v *T) {
	if v == nil || !f.open(n) {
		return
	}
	f.w.WriteInt(int64(*v))
	f.close()
}

// writeContentsSet wraps fields in CONTEXT(1) { SET { ... } }.
func writeContentsSet(w *ber.Writer, fields func(f *fieldWriter)) error {
	w.StartSequence(ctx(fieldContents))
	w.StartSequence(ber.TagSet)
	f := &fieldWriter{w: w}
	fields(f)
	if f.err != nil {
		return f.err
	}
	if err := w.EndSequence(); err != nil {
		return err
	}
	return w.EndSequence()
}

// writeList writes SEQUENCE { CONTEXT(0) item ... }.
func writeList(w *ber.Writer, count int, item func(i int) error) error {
	w.StartSequence(ber.TagSequence)
	for i := 0; i < count; i++ {
		w.StartSequence(ctx(0))
		if err := item(i); err != nil {
			return err
		}
		if err := w.EndSequence(); err != nil {
			return err
		}
	}
	return w.EndSequence()
}

// readList walks SEQUENCE { CONTEXT(0) item ... }.
func readList(r *ber.Reader, item func(r *ber.Reader) error) error {
	seq, err := r.GetSequence(ber.TagSequence)
	if err != nil {
		return err
	}
	for seq.Remaining() > 0 {
		entry, err := seq.GetSequence(ctx(0))
		if err != nil {
			return err
		}
		if err := item(entry); err != nil {
			return err
		}
	}
	return nil
}

func readString(r *ber.Reader) (*string, error) {
	s, err := r.ReadString()
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func readBool(r *ber.Reader) (*bool, error) {
	b, err := r.ReadBool()
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func readInt[T ~int32 | ~int64](r *ber.Reader) (*T, error) {
	n, err := r.ReadInt()
	if err != nil {
		return nil, err
	}
	v := T(n)
	return &v, nil
}

// mergePtr copies a set src into dst and reports a change.
func mergePtr[T comparable](dst **T, src *T) bool {
	if src == nil {
		return false
	}
	if *dst != nil && **dst == *src {
		return false
	}
	v := *src
	*dst = &v
	return true
}

func mergeValue(dst *ber.Value, src ber.Value) bool {
	if !src.IsSet() || dst.Equal(src) {
		return false
	}
	*dst = src
	return true
}

func mergeSlice[T comparable](dst *[]T, src []T) bool {
	if src == nil {
		return false
	}
	if *dst != nil && slices.Equal(*dst, src) {
		return false
	}
	*dst = slices.Clone(src)
	return true
}
