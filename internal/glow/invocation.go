package glow

import (
	"sync/atomic"

	"github.com/danmuck/emberctl/internal/protocol/ber"
)

// Invocation carries the arguments of an invoke command.
type Invocation struct {
	ID        *int32
	Arguments []ber.Value
}

// InvocationResult answers one invocation. It travels directly under the root.
type InvocationResult struct {
	ID      int32
	Success *bool
	Result  []ber.Value
}

// Succeeded treats an absent success flag as true.
func (r *InvocationResult) Succeeded() bool {
	return r.Success == nil || *r.Success
}

// InvocationCounter hands out invocation ids for one session.
type InvocationCounter struct {
	next atomic.Int32
}

func (c *InvocationCounter) Next() int32 {
	return c.next.Add(1)
}

func encodeValues(w *ber.Writer, values []ber.Value) error {
	return writeList(w, len(values), func(i int) error { return w.WriteValue(values[i]) })
}

func decodeValues(r *ber.Reader) ([]ber.Value, error) {
	out := []ber.Value{}
	err := readList(r, func(r *ber.Reader) error {
		v, err := r.ReadValue()
		if err != nil {
			return err
		}
		out = append(out, v)
		return nil
	})
	return out, err
}

func (inv *Invocation) encode(w *ber.Writer) error {
	w.StartSequence(app(appInvocation))
	if inv.ID != nil {
		w.StartSequence(ctx(invocationID))
		w.WriteInt(int64(*inv.ID))
		if err := w.EndSequence(); err != nil {
			return err
		}
	}
	w.StartSequence(ctx(invocationArguments))
	if err := encodeValues(w, inv.Arguments); err != nil {
		return err
	}
	if err := w.EndSequence(); err != nil {
		return err
	}
	return w.EndSequence()
}

func decodeInvocation(r *ber.Reader) (*Invocation, error) {
	seq, err := r.GetSequence(app(appInvocation))
	if err != nil {
		return nil, err
	}
	inv := &Invocation{}
	for seq.Remaining() > 0 {
		tag, err := seq.Peek()
		if err != nil {
			return nil, err
		}
		field, err := seq.GetSequence(tag)
		if err != nil {
			return nil, err
		}
		switch tag {
		case ctx(invocationID):
			inv.ID, err = readInt[int32](field)
		case ctx(invocationArguments):
			inv.Arguments, err = decodeValues(field)
		default:
			err = FieldError{Element: "invocation", Tag: tag}
		}
		if err != nil {
			return nil, err
		}
	}
	return inv, nil
}

func (res *InvocationResult) encode(w *ber.Writer) error {
	w.StartSequence(app(appInvocationResult))
	w.StartSequence(ctx(resultID))
	w.WriteInt(int64(res.ID))
	if err := w.EndSequence(); err != nil {
		return err
	}
	if res.Success != nil {
		w.StartSequence(ctx(resultSuccess))
		w.WriteBool(*res.Success)
		if err := w.EndSequence(); err != nil {
			return err
		}
	}
	if res.Result != nil {
		w.StartSequence(ctx(resultValues))
		if err := encodeValues(w, res.Result); err != nil {
			return err
		}
		if err := w.EndSequence(); err != nil {
			return err
		}
	}
	return w.EndSequence()
}

// decodeInvocationResult reads the fields of an already opened result.
func decodeInvocationResult(seq *ber.Reader) (*InvocationResult, error) {
	res := &InvocationResult{}
	for seq.Remaining() > 0 {
		tag, err := seq.Peek()
		if err != nil {
			return nil, err
		}
		field, err := seq.GetSequence(tag)
		if err != nil {
			return nil, err
		}
		switch tag {
		case ctx(resultID):
			var n int64
			n, err = field.ReadInt()
			res.ID = int32(n)
		case ctx(resultSuccess):
			res.Success, err = readBool(field)
		case ctx(resultValues):
			res.Result, err = decodeValues(field)
		default:
			err = FieldError{Element: "invocation result", Tag: tag}
		}
		if err != nil {
			return nil, err
		}
	}
	return res, nil
}
