package session

import (
	"sort"
	"sync"
	"time"

	"github.com/danmuck/emberctl/internal/glow"
)

// PendingInvocation tracks one function call awaiting its result.
type PendingInvocation struct {
	ID       int32
	Path     string
	QueuedAt time.Time
	Deadline time.Time

	done chan *glow.InvocationResult
}

// Invocations stores outstanding calls by invocation id.
type Invocations struct {
	mu    sync.Mutex
	items map[int32]*PendingInvocation
}

func NewInvocations() *Invocations {
	return &Invocations{
		items: make(map[int32]*PendingInvocation),
	}
}

// Add registers id and returns the channel that receives its result.
// The channel is closed without a value when the call expires.
func (p *Invocations) Add(id int32, path string, now time.Time, timeout time.Duration) <-chan *glow.InvocationResult {
	item := &PendingInvocation{
		ID:       id,
		Path:     path,
		QueuedAt: now,
		done:     make(chan *glow.InvocationResult, 1),
	}
	if timeout > 0 {
		item.Deadline = now.Add(timeout)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if old, ok := p.items[id]; ok {
		close(old.done)
	}
	p.items[id] = item
	return item.done
}

// Resolve delivers res to its waiter. Unknown ids report false.
func (p *Invocations) Resolve(res *glow.InvocationResult) bool {
	p.mu.Lock()
	item, ok := p.items[res.ID]
	delete(p.items, res.ID)
	p.mu.Unlock()
	if !ok {
		return false
	}
	item.done <- res
	close(item.done)
	return true
}

// Expire drops every call whose deadline is before now.
func (p *Invocations) Expire(now time.Time) []PendingInvocation {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []PendingInvocation
	for id, item := range p.items {
		if item.Deadline.IsZero() || !item.Deadline.Before(now) {
			continue
		}
		delete(p.items, id)
		close(item.done)
		out = append(out, *item)
	}
	sortPending(out)
	return out
}

func (p *Invocations) Remove(id int32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if item, ok := p.items[id]; ok {
		delete(p.items, id)
		close(item.done)
	}
}

// CancelAll releases every waiter, used when the session drops.
func (p *Invocations) CancelAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, item := range p.items {
		delete(p.items, id)
		close(item.done)
	}
}

func (p *Invocations) List() []PendingInvocation {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]PendingInvocation, 0, len(p.items))
	for _, item := range p.items {
		out = append(out, *item)
	}
	sortPending(out)
	return out
}

func sortPending(items []PendingInvocation) {
	sort.Slice(items, func(i, j int) bool {
		return items[i].ID < items[j].ID
	})
}
