package provider

import "time"

// EventKind names one applied change or request.
type EventKind string

const (
	EventGetDirectory  EventKind = "get_directory"
	EventSubscribe     EventKind = "subscribe"
	EventUnsubscribe   EventKind = "unsubscribe"
	EventInvoke        EventKind = "invoke"
	EventSetValue      EventKind = "set_value"
	EventMatrixConnect EventKind = "matrix_connect"
	EventStream        EventKind = "stream"
)

// Event describes one handled request. Client is empty for local changes.
type Event struct {
	Kind   EventKind
	Path   string
	Client string
	Detail string
	At     time.Time
}

// Listener observes events after the server lock is released.
type Listener func(Event)

// OnEvent registers l for every future event.
func (s *Server) OnEvent(l Listener) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners = append(s.listeners, l)
}

func (s *Server) emit(events []Event) {
	if len(events) == 0 {
		return
	}
	s.listenersMu.RLock()
	listeners := append([]Listener(nil), s.listeners...)
	s.listenersMu.RUnlock()
	for _, ev := range events {
		for _, l := range listeners {
			l(ev)
		}
	}
}
