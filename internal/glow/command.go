package glow

import (
	"fmt"

	"github.com/danmuck/emberctl/internal/protocol/ber"
)

// Command is a request attached under the element it targets, or under the
// root for the root itself. Its number is the command code.
type Command struct {
	treeNode
	Type       CommandType
	FieldFlags *FieldFlags
	Invocation *Invocation
}

// NewCommand builds a command; GetDirectory asks for all fields.
func NewCommand(t CommandType) *Command {
	c := &Command{Type: t}
	c.initNumbered(c, int32(t))
	if t == CommandGetDirectory {
		c.FieldFlags = Ptr(FieldsAll)
	}
	return c
}

func (c *Command) Kind() Kind { return KindCommand }

// Flags returns the requested field selection, FieldsDefault when absent.
func (c *Command) Flags() FieldFlags {
	if c.FieldFlags == nil {
		return FieldsDefault
	}
	return *c.FieldFlags
}

// Target returns the element the command addresses.
func (c *Command) Target() Element { return c.parent }

func (c *Command) copyCommand() *Command {
	out := &Command{Type: c.Type, FieldFlags: c.FieldFlags, Invocation: c.Invocation}
	out.initNumbered(out, int32(c.Type))
	return out
}

func (c *Command) Minimal() Element        { return c.copyCommand() }
func (c *Command) MinimalContent() Element { return c.copyCommand() }
func (c *Command) ToQualified() Element    { return c.copyCommand() }
func (c *Command) ToElement() Element      { return c.copyCommand() }

func (c *Command) Update(other Element) (bool, error) {
	if _, ok := other.(*Command); !ok {
		return false, ErrKindMismatch
	}
	return false, nil
}

func (c *Command) encode(w *ber.Writer) error {
	w.StartSequence(app(appCommand))
	w.StartSequence(ctx(commandNumber))
	w.WriteInt(int64(c.Type))
	if err := w.EndSequence(); err != nil {
		return err
	}
	if c.Type == CommandGetDirectory && c.FieldFlags != nil {
		w.StartSequence(ctx(commandFieldFlags))
		w.WriteInt(int64(*c.FieldFlags))
		if err := w.EndSequence(); err != nil {
			return err
		}
	}
	if c.Type == CommandInvoke && c.Invocation != nil {
		w.StartSequence(ctx(commandInvocation))
		if err := c.Invocation.encode(w); err != nil {
			return err
		}
		if err := w.EndSequence(); err != nil {
			return err
		}
	}
	return w.EndSequence()
}

func decodeCommand(r *ber.Reader) (*Command, error) {
	c := &Command{}
	c.self = c
	sawNumber := false
	for r.Remaining() > 0 {
		tag, err := r.Peek()
		if err != nil {
			return nil, err
		}
		seq, err := r.GetSequence(tag)
		if err != nil {
			return nil, err
		}
		switch tag {
		case ctx(commandNumber):
			n, err := seq.ReadInt()
			if err != nil {
				return nil, err
			}
			c.Type = CommandType(n)
			if !c.Type.valid() {
				return nil, fmt.Errorf("%w: %d", ErrUnknownCommand, n)
			}
			c.initNumbered(c, int32(n))
			sawNumber = true
		case ctx(commandFieldFlags):
			if c.FieldFlags, err = readInt[FieldFlags](seq); err != nil {
				return nil, err
			}
		case ctx(commandInvocation):
			if c.Invocation, err = decodeInvocation(seq); err != nil {
				return nil, err
			}
		default:
			return nil, FieldError{Element: "command", Tag: tag}
		}
	}
	if !sawNumber {
		return nil, ErrMissingNumber
	}
	return c, nil
}
