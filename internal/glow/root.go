package glow

import (
	"github.com/danmuck/emberctl/internal/protocol/ber"
)

// Root is the top of every Glow message and of every cached tree. A message
// root carries elements, stream entries or one invocation result.
type Root struct {
	treeNode
	Result  *InvocationResult
	Streams []StreamEntry
}

// StreamEntry is one value pushed for a stream identifier.
type StreamEntry struct {
	Identifier int32
	Value      ber.Value
}

func NewRoot() *Root {
	r := &Root{}
	r.self = r
	return r
}

func (r *Root) Kind() Kind { return KindRoot }

func (r *Root) SetResult(res *InvocationResult) { r.Result = res }
func (r *Root) GetResult() *InvocationResult    { return r.Result }

func (r *Root) Minimal() Element        { return NewRoot() }
func (r *Root) MinimalContent() Element { return NewRoot() }
func (r *Root) ToQualified() Element    { return r }
func (r *Root) ToElement() Element      { return r }

func (r *Root) Update(other Element) (bool, error) {
	if _, ok := other.(*Root); !ok {
		return false, ErrKindMismatch
	}
	return false, nil
}

// Encode serializes the message.
func (r *Root) Encode() ([]byte, error) {
	w := ber.NewWriter()
	if err := r.encode(w); err != nil {
		return nil, err
	}
	return w.Bytes()
}

func (r *Root) encode(w *ber.Writer) error {
	w.StartSequence(app(appRoot))
	switch {
	case r.Result != nil:
		if err := r.Result.encode(w); err != nil {
			return err
		}
	case r.Streams != nil:
		if err := encodeStreams(w, r.Streams); err != nil {
			return err
		}
	default:
		w.StartSequence(app(appRootElementCollection))
		for _, c := range r.children {
			w.StartSequence(ctx(0))
			if err := c.encode(w); err != nil {
				return err
			}
			if err := w.EndSequence(); err != nil {
				return err
			}
		}
		if err := w.EndSequence(); err != nil {
			return err
		}
	}
	return w.EndSequence()
}

// Decode parses one Glow message.
func Decode(b []byte) (*Root, error) {
	if len(b) == 0 {
		return nil, ErrEmptyMessage
	}
	seq, err := ber.NewReader(b).GetSequence(app(appRoot))
	if err != nil {
		return nil, err
	}
	root := NewRoot()
	for seq.Remaining() > 0 {
		tag, err := seq.Peek()
		if err != nil {
			return nil, err
		}
		inner, err := seq.GetSequence(tag)
		if err != nil {
			return nil, err
		}
		switch tag {
		case app(appRootElementCollection):
			for inner.Remaining() > 0 {
				item, err := inner.GetSequence(ctx(0))
				if err != nil {
					return nil, err
				}
				child, err := decodeChild(item)
				if err != nil {
					return nil, err
				}
				root.AddChild(child)
			}
		case app(appStreamCollection):
			if root.Streams, err = decodeStreams(inner); err != nil {
				return nil, err
			}
		case app(appInvocationResult):
			if root.Result, err = decodeInvocationResult(inner); err != nil {
				return nil, err
			}
		default:
			return nil, ber.UnimplementedTypeError{Tag: tag}
		}
	}
	return root, nil
}

// decodeChild dispatches one element on its application tag.
func decodeChild(r *ber.Reader) (Element, error) {
	tag, err := r.Peek()
	if err != nil {
		return nil, err
	}
	seq, err := r.GetSequence(tag)
	if err != nil {
		return nil, err
	}
	switch tag {
	case app(appParameter):
		return asElement(decodeParameter(seq, false))
	case app(appQualifiedParameter):
		return asElement(decodeParameter(seq, true))
	case app(appNode):
		return asElement(decodeNode(seq, false))
	case app(appQualifiedNode):
		return asElement(decodeNode(seq, true))
	case app(appMatrix):
		return asElement(decodeMatrix(seq, false))
	case app(appQualifiedMatrix):
		return asElement(decodeMatrix(seq, true))
	case app(appFunction):
		return asElement(decodeFunction(seq, false))
	case app(appQualifiedFunction):
		return asElement(decodeFunction(seq, true))
	case app(appTemplate):
		return asElement(decodeTemplate(seq, false))
	case app(appQualifiedTemplate):
		return asElement(decodeTemplate(seq, true))
	case app(appCommand):
		return asElement(decodeCommand(seq))
	case app(appInvocationResult):
		return nil, ErrInvocationResultAsChild
	default:
		return nil, ber.UnimplementedTypeError{Tag: tag}
	}
}

// asElement keeps a failed decode from leaking a typed nil.
func asElement[T Element](e T, err error) (Element, error) {
	if err != nil {
		return nil, err
	}
	return e, nil
}

func encodeStreams(w *ber.Writer, entries []StreamEntry) error {
	w.StartSequence(app(appStreamCollection))
	for _, e := range entries {
		w.StartSequence(ctx(0))
		w.StartSequence(app(appStreamEntry))
		w.StartSequence(ctx(streamEntryIdentifier))
		w.WriteInt(int64(e.Identifier))
		if err := w.EndSequence(); err != nil {
			return err
		}
		w.StartSequence(ctx(streamEntryValue))
		if err := w.WriteValue(e.Value); err != nil {
			return err
		}
		if err := w.EndSequence(); err != nil {
			return err
		}
		if err := w.EndSequence(); err != nil {
			return err
		}
		if err := w.EndSequence(); err != nil {
			return err
		}
	}
	return w.EndSequence()
}

// decodeStreams reads the entries of an already opened stream collection.
func decodeStreams(coll *ber.Reader) ([]StreamEntry, error) {
	out := []StreamEntry{}
	for coll.Remaining() > 0 {
		item, err := coll.GetSequence(ctx(0))
		if err != nil {
			return nil, err
		}
		seq, err := item.GetSequence(app(appStreamEntry))
		if err != nil {
			return nil, err
		}
		var e StreamEntry
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
			case ctx(streamEntryIdentifier):
				var n int64
				n, err = field.ReadInt()
				e.Identifier = int32(n)
			case ctx(streamEntryValue):
				e.Value, err = field.ReadValue()
			default:
				err = FieldError{Element: "stream entry", Tag: tag}
			}
			if err != nil {
				return nil, err
			}
		}
		out = append(out, e)
	}
	return out, nil
}
