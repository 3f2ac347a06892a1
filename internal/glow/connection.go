package glow

import (
	"slices"

	"github.com/danmuck/emberctl/internal/protocol/ber"
)

// Connection is the source set of one matrix target. In a request Operation
// says how to apply Sources; in a response Disposition reports the verdict.
type Connection struct {
	Target      int32
	Sources     []int32
	Operation   *Operation
	Disposition *Disposition
	locked      bool
}

func NewConnection(target int32) *Connection {
	return &Connection{Target: target}
}

// OperationOrDefault returns the requested operation, absolute when absent.
func (c *Connection) OperationOrDefault() Operation {
	if c.Operation == nil {
		return OperationAbsolute
	}
	return *c.Operation
}

func (c *Connection) IsLocked() bool { return c.locked }
func (c *Connection) Lock()          { c.locked = true }
func (c *Connection) Unlock()        { c.locked = false }

// SetSources replaces the source set.
func (c *Connection) SetSources(sources []int32) {
	c.Sources = normalizeSources(sources)
}

// ConnectSources adds sources to the set.
func (c *Connection) ConnectSources(sources []int32) {
	c.Sources = normalizeSources(append(slices.Clone(c.Sources), sources...))
}

// DisconnectSources removes sources from the set.
func (c *Connection) DisconnectSources(sources []int32) {
	if len(c.Sources) == 0 {
		return
	}
	out := c.Sources[:0:0]
	for _, s := range c.Sources {
		if !slices.Contains(sources, s) {
			out = append(out, s)
		}
	}
	c.Sources = out
}

func (c *Connection) clone() *Connection {
	out := *c
	out.Sources = slices.Clone(c.Sources)
	return &out
}

// normalizeSources sorts and deduplicates, never returning nil.
func normalizeSources(sources []int32) []int32 {
	out := slices.Clone(sources)
	if out == nil {
		out = []int32{}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func (c *Connection) encode(w *ber.Writer) error {
	w.StartSequence(app(appConnection))
	w.StartSequence(ctx(connectionTarget))
	w.WriteInt(int64(c.Target))
	if err := w.EndSequence(); err != nil {
		return err
	}
	if c.Sources != nil {
		w.StartSequence(ctx(connectionSources))
		if err := w.WriteRelativeOID(c.Sources); err != nil {
			return err
		}
		if err := w.EndSequence(); err != nil {
			return err
		}
	}
	if c.Operation != nil {
		w.StartSequence(ctx(connectionOperation))
		w.WriteInt(int64(*c.Operation))
		if err := w.EndSequence(); err != nil {
			return err
		}
	}
	if c.Disposition != nil {
		w.StartSequence(ctx(connectionDisposition))
		w.WriteInt(int64(*c.Disposition))
		if err := w.EndSequence(); err != nil {
			return err
		}
	}
	return w.EndSequence()
}

func decodeConnection(r *ber.Reader) (*Connection, error) {
	seq, err := r.GetSequence(app(appConnection))
	if err != nil {
		return nil, err
	}
	c := &Connection{}
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
		case ctx(connectionTarget):
			var n int64
			n, err = field.ReadInt()
			c.Target = int32(n)
		case ctx(connectionSources):
			var s []int32
			if s, err = field.ReadRelativeOID(); err == nil {
				c.Sources = normalizeSources(s)
			}
		case ctx(connectionOperation):
			c.Operation, err = readInt[Operation](field)
		case ctx(connectionDisposition):
			c.Disposition, err = readInt[Disposition](field)
		default:
			err = FieldError{Element: "connection", Tag: tag}
		}
		if err != nil {
			return nil, err
		}
	}
	return c, nil
}
