package consumer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/danmuck/emberctl/internal/glow"
	"github.com/danmuck/emberctl/internal/protocol/ber"
)

type subscribable interface {
	Subscribe(cb glow.Callback) (glow.SubscriptionID, *glow.Root)
	Unsubscribe(id glow.SubscriptionID) *glow.Root
}

// GetDirectory asks the provider for the children of el, or of the root
// when el is nil, and returns the cached element once they arrived.
func (c *Client) GetDirectory(ctx context.Context, el glow.Element) (glow.Element, error) {
	path := []int32{}
	if el != nil {
		path = el.Path()
	}
	return c.getDirectory(ctx, path)
}

func (c *Client) getDirectory(ctx context.Context, path []int32) (glow.Element, error) {
	key := glow.FormatPath(path)
	err := c.request(ctx, key, func() *glow.Root {
		target := c.tree.GetElementByPath(path)
		if target == nil {
			return nil
		}
		return target.GetTreeBranch(glow.NewCommand(glow.CommandGetDirectory), nil)
	})
	if err != nil {
		return nil, err
	}
	if e := c.lookup(path); e != nil {
		return e, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
}

// Expand walks the provider tree below el, or below the root when el is
// nil, until every node has been listed.
func (c *Client) Expand(ctx context.Context, el glow.Element) error {
	got, err := c.GetDirectory(ctx, el)
	if err != nil {
		return err
	}
	c.mu.Lock()
	children := got.Children()
	c.mu.Unlock()
	for _, child := range children {
		if child.Kind() != glow.KindNode {
			continue
		}
		if err := c.Expand(ctx, child); err != nil {
			return err
		}
	}
	return nil
}

// GetElementByPath resolves path segment by segment, listing each parent
// that is not cached yet. Segments are numbers or identifiers, separated by
// "." or "/".
func (c *Client) GetElementByPath(ctx context.Context, path string) (glow.Element, error) {
	segments := strings.FieldsFunc(path, func(r rune) bool { return r == '.' || r == '/' })
	resolved := []int32{}
	for _, seg := range segments {
		next, ok := c.resolveChild(resolved, seg)
		if !ok {
			if _, err := c.getDirectory(ctx, resolved); err != nil {
				return nil, err
			}
			next, ok = c.resolveChild(resolved, seg)
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		resolved = append(resolved, next)
	}
	if e := c.lookup(resolved); e != nil {
		return e, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
}

func (c *Client) resolveChild(parent []int32, seg string) (int32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.tree.GetElementByPath(parent)
	if p == nil {
		return 0, false
	}
	if n, err := glow.ParsePath(seg); err == nil && len(n) == 1 {
		if p.Child(n[0]) != nil {
			return n[0], true
		}
		return 0, false
	}
	for _, child := range p.Children() {
		if id, ok := child.(interface{ Identifier() string }); ok && id.Identifier() == seg {
			return child.Number(), true
		}
	}
	return 0, false
}

// SetValue asks the provider to store v and returns the parameter once the
// provider reported its value.
func (c *Client) SetValue(ctx context.Context, p *glow.Parameter, v ber.Value) (*glow.Parameter, error) {
	path := p.Path()
	err := c.request(ctx, glow.FormatPath(path), func() *glow.Root {
		return p.SetValueRequest(v)
	})
	if err != nil {
		return nil, err
	}
	got, ok := c.lookup(path).(*glow.Parameter)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, glow.FormatPath(path))
	}
	return got, nil
}

// MatrixConnect adds sources to target.
func (c *Client) MatrixConnect(ctx context.Context, m *glow.Matrix, target int32, sources []int32) (*glow.Matrix, error) {
	return c.matrixRequest(ctx, m, target, sources, glow.OperationConnect)
}

// MatrixDisconnect removes sources from target.
func (c *Client) MatrixDisconnect(ctx context.Context, m *glow.Matrix, target int32, sources []int32) (*glow.Matrix, error) {
	return c.matrixRequest(ctx, m, target, sources, glow.OperationDisconnect)
}

// MatrixSetConnection replaces the sources of target.
func (c *Client) MatrixSetConnection(ctx context.Context, m *glow.Matrix, target int32, sources []int32) (*glow.Matrix, error) {
	return c.matrixRequest(ctx, m, target, sources, glow.OperationAbsolute)
}

func (c *Client) matrixRequest(ctx context.Context, m *glow.Matrix, target int32, sources []int32, op glow.Operation) (*glow.Matrix, error) {
	path := m.Path()
	conn := glow.NewConnection(target)
	conn.Sources = append([]int32{}, sources...)
	conn.Operation = glow.Ptr(op)
	err := c.request(ctx, glow.FormatPath(path), func() *glow.Root {
		return m.ConnectRequest(conn)
	})
	if err != nil {
		return nil, err
	}
	got, ok := c.lookup(path).(*glow.Matrix)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, glow.FormatPath(path))
	}
	return got, nil
}

// InvokeFunction calls fn and waits for the result correlated by
// invocation id.
func (c *Client) InvokeFunction(ctx context.Context, fn *glow.Function, args []ber.Value) (*glow.InvocationResult, error) {
	conn, done, err := c.session()
	if err != nil {
		return nil, err
	}
	id := c.counter.Next()
	c.mu.Lock()
	path := fn.PathString()
	msg := fn.Invoke(id, args)
	c.mu.Unlock()

	ch := c.invocations.Add(id, path, time.Now(), c.cfg.Session.RequestTimeout)
	if err := c.send(conn, msg); err != nil {
		c.invocations.Remove(id)
		return nil, err
	}
	select {
	case res, ok := <-ch:
		if !ok {
			select {
			case <-done:
				return nil, ErrNotConnected
			default:
				return nil, fmt.Errorf("%w: invocation %d", ErrTimeout, id)
			}
		}
		if !res.Succeeded() {
			return res, fmt.Errorf("%w: %s", ErrInvocationFailed, path)
		}
		return res, nil
	case <-ctx.Done():
		c.invocations.Remove(id)
		return nil, ctx.Err()
	}
}

// Subscribe registers cb on el and asks the provider for its changes. cb
// may be nil to subscribe without a local observer.
func (c *Client) Subscribe(ctx context.Context, el glow.Element, cb glow.Callback) (glow.SubscriptionID, error) {
	s, ok := el.(subscribable)
	if !ok || el.Kind() == glow.KindCommand {
		return 0, ErrNotSubscribable
	}
	conn, _, err := c.session()
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	id, msg := s.Subscribe(cb)
	c.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return id, c.send(conn, msg)
}

// Unsubscribe drops the callback id and tells the provider.
func (c *Client) Unsubscribe(ctx context.Context, el glow.Element, id glow.SubscriptionID) error {
	s, ok := el.(subscribable)
	if !ok || el.Kind() == glow.KindCommand {
		return ErrNotSubscribable
	}
	conn, _, err := c.session()
	if err != nil {
		return err
	}
	c.mu.Lock()
	msg := s.Unsubscribe(id)
	c.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.send(conn, msg)
}
