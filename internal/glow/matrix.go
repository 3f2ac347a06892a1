package glow

import (
	"maps"
	"slices"

	"github.com/danmuck/emberctl/internal/protocol/ber"
)

// Matrix is a crosspoint router element. Connections are keyed by target;
// bySource and total are derived caches maintained by every mutation.
type Matrix struct {
	treeNode
	Contents *MatrixContents
	// Targets and Sources list the signal ids of a nonLinear matrix.
	Targets []int32
	Sources []int32
	// DefaultSources overrides the fallback source per target of a oneToN
	// matrix.
	DefaultSources map[int32]int32

	connections map[int32]*Connection
	bySource    map[int32]map[int32]struct{}
	total       int
}

func NewMatrix(number int32) *Matrix {
	m := &Matrix{}
	m.initNumbered(m, number)
	return m
}

func NewQualifiedMatrix(path []int32) *Matrix {
	m := &Matrix{}
	m.initQualified(m, path)
	return m
}

func (m *Matrix) Kind() Kind { return KindMatrix }

func (m *Matrix) Identifier() string {
	if m.Contents == nil {
		return ""
	}
	return deref(m.Contents.Identifier)
}

// Type returns the topology, oneToN when not declared.
func (m *Matrix) Type() MatrixType {
	if m.Contents == nil || m.Contents.Type == nil {
		return MatrixOneToN
	}
	return *m.Contents.Type
}

// SetType stores t. Without contents only the default topology is accepted,
// since it needs no field to express.
func (m *Matrix) SetType(t MatrixType) error {
	if m.Contents == nil {
		if t == MatrixOneToN {
			return nil
		}
		return ErrMissingContents
	}
	m.Contents.Type = Ptr(t)
	return nil
}

// Mode returns the addressing mode, linear when not declared.
func (m *Matrix) Mode() MatrixMode {
	if m.Contents == nil || m.Contents.Mode == nil {
		return MatrixLinear
	}
	return *m.Contents.Mode
}

func (m *Matrix) SetMode(mode MatrixMode) error {
	if m.Contents == nil {
		if mode == MatrixLinear {
			return nil
		}
		return ErrMissingContents
	}
	m.Contents.Mode = Ptr(mode)
	return nil
}

func (m *Matrix) TargetCount() int32 {
	if m.Contents == nil || m.Contents.TargetCount == nil {
		return 0
	}
	return *m.Contents.TargetCount
}

func (m *Matrix) SourceCount() int32 {
	if m.Contents == nil || m.Contents.SourceCount == nil {
		return 0
	}
	return *m.Contents.SourceCount
}

// Connection returns the record of target, or nil when it has none.
func (m *Matrix) Connection(target int32) *Connection {
	return m.connections[target]
}

// Connections returns the records ordered by target.
func (m *Matrix) Connections() []*Connection {
	keys := slices.Sorted(maps.Keys(m.connections))
	out := make([]*Connection, 0, len(keys))
	for _, k := range keys {
		out = append(out, m.connections[k])
	}
	return out
}

// SetConnection installs c as the record of its target, keeping the lock.
func (m *Matrix) SetConnection(c *Connection) {
	if c.Sources != nil {
		c.Sources = normalizeSources(c.Sources)
	}
	if old := m.connections[c.Target]; old != nil {
		m.unindex(c.Target, old.Sources)
		c.locked = c.locked || old.locked
	}
	if m.connections == nil {
		m.connections = make(map[int32]*Connection)
	}
	m.connections[c.Target] = c
	m.index(c.Target, c.Sources)
}

func (m *Matrix) connection(target int32) *Connection {
	c := m.connections[target]
	if c == nil {
		c = NewConnection(target)
		m.SetConnection(c)
	}
	return c
}

// CurrentSources returns the sources feeding target.
func (m *Matrix) CurrentSources(target int32) []int32 {
	if c := m.connections[target]; c != nil {
		return slices.Clone(c.Sources)
	}
	return nil
}

func (m *Matrix) index(target int32, sources []int32) {
	for _, s := range sources {
		if m.bySource == nil {
			m.bySource = make(map[int32]map[int32]struct{})
		}
		set := m.bySource[s]
		if set == nil {
			set = make(map[int32]struct{})
			m.bySource[s] = set
		}
		if _, ok := set[target]; !ok {
			set[target] = struct{}{}
			m.total++
		}
	}
}

func (m *Matrix) unindex(target int32, sources []int32) {
	for _, s := range sources {
		set := m.bySource[s]
		if _, ok := set[target]; !ok {
			continue
		}
		delete(set, target)
		m.total--
		if len(set) == 0 {
			delete(m.bySource, s)
		}
	}
}

// ConnectSources adds sources to target.
func (m *Matrix) ConnectSources(target int32, sources []int32) {
	m.connection(target).ConnectSources(sources)
	m.index(target, sources)
}

// DisconnectSources removes sources from target; absent sources are ignored.
func (m *Matrix) DisconnectSources(target int32, sources []int32) {
	m.connection(target).DisconnectSources(sources)
	m.unindex(target, sources)
}

// SetSources replaces the sources of target.
func (m *Matrix) SetSources(target int32, sources []int32) {
	if cur := m.CurrentSources(target); len(cur) > 0 {
		m.DisconnectSources(target, cur)
	}
	m.ConnectSources(target, sources)
}

// SourceTargets returns the targets fed by source, ascending.
func (m *Matrix) SourceTargets(source int32) []int32 {
	return slices.Sorted(maps.Keys(m.bySource[source]))
}

// TotalConnections counts active (source, target) pairs.
func (m *Matrix) TotalConnections() int {
	return m.total
}

func (m *Matrix) Lock(target int32)   { m.connection(target).Lock() }
func (m *Matrix) Unlock(target int32) { m.connection(target).Unlock() }

func (m *Matrix) IsLocked(target int32) bool {
	c := m.connections[target]
	return c != nil && c.locked
}

// ConnectRequest builds the message asking a provider to apply conns.
func (m *Matrix) ConnectRequest(conns ...*Connection) *Root {
	return m.GetTreeBranch(nil, func(e Element) {
		req := e.(*Matrix)
		for _, c := range conns {
			req.SetConnection(c.clone())
		}
	})
}

func (m *Matrix) address() *Matrix {
	if m.qualified {
		return NewQualifiedMatrix(m.path)
	}
	return NewMatrix(m.number)
}

// copyState copies contents, signal lists and a snapshot of connections.
func (m *Matrix) copyState(dst *Matrix) *Matrix {
	dst.Contents = m.Contents
	dst.Targets = slices.Clone(m.Targets)
	dst.Sources = slices.Clone(m.Sources)
	for _, c := range m.Connections() {
		dst.SetConnection(c.clone())
	}
	return dst
}

func (m *Matrix) Minimal() Element { return m.address() }

func (m *Matrix) MinimalContent() Element { return m.copyState(m.address()) }

func (m *Matrix) ToQualified() Element { return m.copyState(NewQualifiedMatrix(m.Path())) }

func (m *Matrix) ToElement() Element { return m.copyState(NewMatrix(m.number)) }

func (m *Matrix) Update(other Element) (bool, error) {
	o, ok := other.(*Matrix)
	if !ok {
		return false, ErrKindMismatch
	}
	modified := updateContents(&m.Contents, o.Contents, (*MatrixContents).merge)
	modified = mergeSlice(&m.Targets, o.Targets) || modified
	modified = mergeSlice(&m.Sources, o.Sources) || modified
	for _, c := range o.Connections() {
		if c.Sources != nil && !slices.Equal(m.CurrentSources(c.Target), c.Sources) {
			m.SetSources(c.Target, c.Sources)
			modified = true
		}
		if c.Disposition == nil {
			continue
		}
		locked := *c.Disposition == DispositionLocked
		if m.IsLocked(c.Target) != locked {
			if locked {
				m.Lock(c.Target)
			} else {
				m.Unlock(c.Target)
			}
			modified = true
		}
	}
	return modified, nil
}

func (m *Matrix) encode(w *ber.Writer) error {
	tag := appMatrix
	if m.qualified {
		tag = appQualifiedMatrix
	}
	var contents func(*ber.Writer) error
	if m.Contents != nil {
		contents = m.Contents.encode
	}
	return encodeElementBody(w, &m.treeNode, tag, contents, m.encodeSignals)
}

func (m *Matrix) encodeSignals(w *ber.Writer) error {
	if m.Targets != nil {
		if err := encodeSignalList(w, fieldMatrixTargets, appTarget, m.Targets); err != nil {
			return err
		}
	}
	if m.Sources != nil {
		if err := encodeSignalList(w, fieldMatrixSources, appSource, m.Sources); err != nil {
			return err
		}
	}
	if len(m.connections) == 0 {
		return nil
	}
	conns := m.Connections()
	w.StartSequence(ctx(fieldMatrixConnections))
	if err := writeList(w, len(conns), func(i int) error { return conns[i].encode(w) }); err != nil {
		return err
	}
	return w.EndSequence()
}

func encodeSignalList(w *ber.Writer, field, tag int, ids []int32) error {
	w.StartSequence(ctx(field))
	err := writeList(w, len(ids), func(i int) error {
		w.StartSequence(app(tag))
		w.StartSequence(ctx(signalNumber))
		w.WriteInt(int64(ids[i]))
		if err := w.EndSequence(); err != nil {
			return err
		}
		return w.EndSequence()
	})
	if err != nil {
		return err
	}
	return w.EndSequence()
}

func decodeSignalList(r *ber.Reader, tag int) ([]int32, error) {
	out := []int32{}
	err := readList(r, func(r *ber.Reader) error {
		seq, err := r.GetSequence(app(tag))
		if err != nil {
			return err
		}
		field, err := seq.GetSequence(ctx(signalNumber))
		if err != nil {
			return err
		}
		n, err := field.ReadInt()
		if err != nil {
			return err
		}
		out = append(out, int32(n))
		return nil
	})
	return out, err
}

func decodeMatrix(r *ber.Reader, qualified bool) (*Matrix, error) {
	m := &Matrix{}
	m.self = m
	m.qualified = qualified
	err := decodeElement(r, &m.treeNode, "matrix", func(tag byte, r *ber.Reader) (err error) {
		switch tag {
		case ctx(fieldContents):
			m.Contents, err = decodeMatrixContents(r)
		case ctx(fieldMatrixTargets):
			m.Targets, err = decodeSignalList(r, appTarget)
		case ctx(fieldMatrixSources):
			m.Sources, err = decodeSignalList(r, appSource)
		case ctx(fieldMatrixConnections):
			err = readList(r, func(r *ber.Reader) error {
				c, err := decodeConnection(r)
				if err != nil {
					return err
				}
				m.SetConnection(c)
				return nil
			})
		default:
			err = FieldError{Element: "matrix", Tag: tag}
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}
