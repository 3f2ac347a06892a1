package provider

import (
	"errors"
	"fmt"

	"github.com/danmuck/emberctl/internal/glow"
	"github.com/danmuck/emberctl/internal/observability"
)

// Connect applies connection requests to the matrix at path as a local
// change and returns the resulting records.
func (s *Server) Connect(path string, conns ...*glow.Connection) ([]*glow.Connection, error) {
	d := &dispatch{s: s}
	var records []*glow.Connection
	s.mu.Lock()
	if m, ok := s.tree.GetElementByPathString(path).(*glow.Matrix); ok {
		records = d.connect(m, conns, false)
	} else {
		d.fail(fmt.Errorf("%w: matrix %s", ErrUnknownElement, path))
	}
	s.mu.Unlock()
	d.flush()
	return records, errors.Join(d.errs...)
}

// connect applies each request in order. The requester receives every
// record, including tally and locked verdicts; subscribers only receive the
// records that changed state.
func (d *dispatch) connect(m *glow.Matrix, conns []*glow.Connection, qualified bool) []*glow.Connection {
	var records, modified []*glow.Connection
	path := m.PathString()
	for _, c := range conns {
		out, err := m.Apply(c)
		if err != nil {
			d.fail(fmt.Errorf("matrix %s: %w", path, err))
			continue
		}
		for _, r := range out {
			observability.RecordConnection(d.s.name, path, r.Disposition.String())
			if *r.Disposition == glow.DispositionModified {
				modified = append(modified, r)
				d.event(EventMatrixConnect, path, fmt.Sprintf("target=%d sources=%v", r.Target, r.Sources))
			}
		}
		records = append(records, out...)
	}
	if len(records) == 0 {
		return nil
	}
	d.reply(respond(m, qualified, fillConnections(records)))
	if len(modified) > 0 {
		d.fanOut(path, respond(m, qualified, fillConnections(modified)))
		m.UpdateSubscribers()
	}
	return records
}

func fillConnections(records []*glow.Connection) func(glow.Element) {
	return func(e glow.Element) {
		mm := e.(*glow.Matrix)
		for _, r := range records {
			mm.SetConnection(&glow.Connection{
				Target:      r.Target,
				Sources:     r.Sources,
				Disposition: r.Disposition,
			})
		}
	}
}
