package glow

import (
	"fmt"
	"slices"

	"github.com/danmuck/emberctl/internal/protocol/ber"
)

// ValidateConnection checks that target and sources exist in the matrix.
// It does not look at connection state.
func (m *Matrix) ValidateConnection(target int32, sources []int32) error {
	if target < 0 {
		return SignalError{Signal: "target", ID: target, Reason: "negative id"}
	}
	for _, s := range sources {
		if s < 0 {
			return SignalError{Signal: "source", ID: s, Reason: "negative id"}
		}
	}
	if m.Mode() == MatrixLinear {
		if target >= m.TargetCount() {
			return SignalError{Signal: "target", ID: target, Reason: "beyond target count"}
		}
		for _, s := range sources {
			if s >= m.SourceCount() {
				return SignalError{Signal: "source", ID: s, Reason: "beyond source count"}
			}
		}
		return nil
	}
	if m.Targets == nil || m.Sources == nil {
		return fmt.Errorf("%w: %s", ErrNonLinearMatrixIDs, m.PathString())
	}
	if !slices.Contains(m.Targets, target) {
		return SignalError{Signal: "target", ID: target, Reason: "not a matrix target"}
	}
	for _, s := range sources {
		if !slices.Contains(m.Sources, s) {
			return SignalError{Signal: "source", ID: s, Reason: "not a matrix source"}
		}
	}
	return nil
}

// CanConnect reports whether applying sources to target with op keeps the
// matrix inside its topology and limits. Locked targets never connect.
func (m *Matrix) CanConnect(target int32, sources []int32, op Operation) bool {
	return m.canConnect(target, sources, op, false)
}

// canConnect with release set judges the state after a routed request has
// freed the single requested source and the target's previous source. A
// source feeding a locked target is never freed.
func (m *Matrix) canConnect(target int32, sources []int32, op Operation, release bool) bool {
	if m.IsLocked(target) {
		return false
	}
	current := m.CurrentSources(target)
	next := normalizeSources(sources)
	if op == OperationConnect {
		next = normalizeSources(append(current, sources...))
	}
	switch m.Type() {
	case MatrixOneToN:
		if release && len(next) > 1 && len(normalizeSources(sources)) == 1 {
			next = normalizeSources(sources)
		}
		if m.hasLimits() {
			return false
		}
		return len(next) < 2
	case MatrixOneToOne:
		if release && len(next) > 1 && len(normalizeSources(sources)) == 1 {
			next = normalizeSources(sources)
		}
		if len(next) > 1 {
			return false
		}
		if len(next) == 0 {
			return true
		}
		// release may take the source from an unlocked target only
		for _, t := range m.SourceTargets(next[0]) {
			if t != target && (!release || m.IsLocked(t)) {
				return false
			}
		}
		return true
	default:
		c := m.Contents
		if c == nil {
			return true
		}
		if c.MaximumConnectsPerTarget != nil && len(next) > int(*c.MaximumConnectsPerTarget) {
			return false
		}
		if c.MaximumTotalConnects != nil {
			return m.total-len(current)+len(next) <= int(*c.MaximumTotalConnects)
		}
		return true
	}
}

func (m *Matrix) hasLimits() bool {
	return m.Contents != nil && (m.Contents.MaximumTotalConnects != nil || m.Contents.MaximumConnectsPerTarget != nil)
}

// DisconnectSource resolves the fallback source of a oneToN target, from
// DefaultSources or from the node numbered after the last label node, whose
// children hold one integer parameter per target.
func (m *Matrix) DisconnectSource(target int32) (int32, bool) {
	if m.DefaultSources != nil {
		s, ok := m.DefaultSources[target]
		return s, ok && s >= 0
	}
	if m.Contents == nil || len(m.Contents.Labels) == 0 {
		return 0, false
	}
	var top Element = m
	for top.Parent() != nil {
		top = top.Parent()
	}
	labels := top.GetElementByPath(m.Contents.Labels[len(m.Contents.Labels)-1].BasePath)
	if labels == nil || labels.Parent() == nil {
		return 0, false
	}
	defaults := labels.Parent().Child(labels.Number() + 1)
	if defaults == nil {
		return 0, false
	}
	children := defaults.Children()
	if target < 0 || int(target) >= len(children) {
		return 0, false
	}
	p, ok := children[target].(*Parameter)
	if !ok {
		return 0, false
	}
	v := p.Value()
	if v.Type != ber.ValueInteger || v.Integer < 0 {
		return 0, false
	}
	return int32(v.Integer), true
}

// Apply executes one requested connection and returns the response records:
// one per target whose state the request touched, the requested target last.
// Invalid signals are returned as errors and leave the matrix untouched.
func (m *Matrix) Apply(req *Connection) ([]*Connection, error) {
	target := req.Target
	if err := m.ValidateConnection(target, req.Sources); err != nil {
		return nil, err
	}
	op := req.OperationOrDefault()
	requested := normalizeSources(req.Sources)
	before := m.CurrentSources(target)
	var out []*Connection
	disposition := DispositionTally

	switch {
	case m.IsLocked(target):
		disposition = DispositionLocked

	case op == OperationDisconnect:
		if len(requested) == 0 || len(before) == 0 {
			break
		}
		m.DisconnectSources(target, requested)
		if m.Type() == MatrixOneToN && len(m.CurrentSources(target)) == 0 {
			if d, ok := m.DisconnectSource(target); ok {
				m.SetSources(target, []int32{d})
			}
		}

	case len(requested) == 0:
		if op != OperationAbsolute || len(before) == 0 {
			break
		}
		fallback := []int32{}
		if m.Type() == MatrixOneToN {
			if d, ok := m.DisconnectSource(target); ok {
				fallback = []int32{d}
			}
		}
		m.SetSources(target, fallback)

	default:
		if !m.canConnect(target, requested, op, true) {
			break
		}
		if m.Type() != MatrixNToN && len(requested) == 1 {
			s := requested[0]
			if m.Type() == MatrixOneToOne {
				for _, other := range m.SourceTargets(s) {
					if other == target {
						continue
					}
					m.DisconnectSources(other, []int32{s})
					out = append(out, m.response(other, DispositionModified))
				}
			}
			if len(before) == 1 && before[0] != s {
				m.DisconnectSources(target, before)
			}
		}
		if op == OperationConnect {
			m.ConnectSources(target, requested)
		} else {
			m.SetSources(target, requested)
		}
	}

	if disposition != DispositionLocked && !slices.Equal(before, m.CurrentSources(target)) {
		disposition = DispositionModified
	}
	return append(out, m.response(target, disposition)), nil
}

func (m *Matrix) response(target int32, d Disposition) *Connection {
	return &Connection{
		Target:      target,
		Sources:     normalizeSources(m.CurrentSources(target)),
		Disposition: Ptr(d),
	}
}
