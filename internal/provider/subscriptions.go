package provider

import (
	"maps"
	"slices"

	"github.com/puzpuzpuz/xsync/v3"
)

// Subscriptions maps element paths to subscribed client ids. Each path holds
// an immutable set replaced on write, so readers never lock.
type Subscriptions struct {
	byPath *xsync.MapOf[string, map[string]struct{}]
}

func NewSubscriptions() *Subscriptions {
	return &Subscriptions{byPath: xsync.NewMapOf[string, map[string]struct{}]()}
}

// Add subscribes client to path and reports whether it was new.
func (s *Subscriptions) Add(path, client string) bool {
	added := false
	s.byPath.Compute(path, func(old map[string]struct{}, _ bool) (map[string]struct{}, bool) {
		if _, ok := old[client]; ok {
			return old, false
		}
		next := maps.Clone(old)
		if next == nil {
			next = make(map[string]struct{}, 1)
		}
		next[client] = struct{}{}
		added = true
		return next, false
	})
	return added
}

// Remove drops client from path and reports whether it was subscribed.
func (s *Subscriptions) Remove(path, client string) bool {
	removed := false
	s.byPath.Compute(path, func(old map[string]struct{}, loaded bool) (map[string]struct{}, bool) {
		if _, ok := old[client]; !ok {
			return old, !loaded
		}
		next := maps.Clone(old)
		delete(next, client)
		removed = true
		return next, len(next) == 0
	})
	return removed
}

// RemoveClient drops every subscription of client.
func (s *Subscriptions) RemoveClient(client string) {
	for _, path := range s.Paths(client) {
		s.Remove(path, client)
	}
}

// Clients returns the ids subscribed to path, sorted.
func (s *Subscriptions) Clients(path string) []string {
	set, ok := s.byPath.Load(path)
	if !ok {
		return nil
	}
	return slices.Sorted(maps.Keys(set))
}

func (s *Subscriptions) Has(path, client string) bool {
	set, ok := s.byPath.Load(path)
	if !ok {
		return false
	}
	_, ok = set[client]
	return ok
}

// Paths returns the paths client is subscribed to, sorted.
func (s *Subscriptions) Paths(client string) []string {
	var out []string
	s.byPath.Range(func(path string, set map[string]struct{}) bool {
		if _, ok := set[client]; ok {
			out = append(out, path)
		}
		return true
	})
	slices.Sort(out)
	return out
}

func (s *Subscriptions) Size() int {
	return s.byPath.Size()
}
