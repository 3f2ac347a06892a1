package consumer

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/emberctl/internal/glow"
	"github.com/danmuck/emberctl/internal/observability"
	"github.com/danmuck/emberctl/internal/protocol/ber"
	"github.com/danmuck/emberctl/internal/protocol/session"
	"github.com/rs/zerolog/log"
)

var (
	ErrAddressRequired  = errors.New("consumer: provider address required")
	ErrNotConnected     = errors.New("consumer: not connected")
	ErrTimeout          = errors.New("consumer: request timed out")
	ErrNotFound         = errors.New("consumer: element not found")
	ErrNotSubscribable  = errors.New("consumer: element cannot be subscribed")
	ErrInvocationFailed = errors.New("consumer: invocation failed")
)

type Config struct {
	Address            string
	Name               string
	Session            session.Config
	MaxConnectAttempts int
}

func DefaultConfig() Config {
	return Config{
		Name:    "consumer",
		Session: session.DefaultConfig(),
	}
}

// Client owns one provider session and the cached tree. Element callbacks
// run with the cache locked; they must not call back into the Client
// synchronously.
type Client struct {
	cfg     Config
	backoff *session.Backoff

	mu      sync.Mutex
	tree    *glow.Root
	streams map[int32][]string

	counter     glow.InvocationCounter
	invocations *session.Invocations

	waitersMu sync.Mutex
	waiters   map[string][]chan struct{}

	connMu sync.Mutex
	conn   *session.Conn
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Address) == "" {
		return nil, ErrAddressRequired
	}
	if cfg.Name == "" {
		cfg.Name = DefaultConfig().Name
	}
	return &Client{
		cfg:         cfg,
		backoff:     session.NewBackoff(cfg.Session.Backoff, rand.New(rand.NewSource(time.Now().UnixNano()))),
		tree:        glow.NewRoot(),
		streams:     make(map[int32][]string),
		invocations: session.NewInvocations(),
		waiters:     make(map[string][]chan struct{}),
	}, nil
}

// Connect dials the provider, retrying with backoff, and starts the read,
// keep-alive and invocation sweep loops.
func (c *Client) Connect(ctx context.Context) error {
	for {
		conn, err := session.Dial(ctx, c.cfg.Address, c.cfg.Session)
		if err == nil {
			c.backoff.Reset()
			c.start(conn)
			return nil
		}
		attempt := c.backoff.Attempt() + 1
		log.Warn().Str("addr", c.cfg.Address).Int("attempt", attempt).Err(err).Msg("connect failed")
		if c.cfg.MaxConnectAttempts > 0 && attempt >= c.cfg.MaxConnectAttempts {
			return err
		}
		timer := time.NewTimer(c.backoff.Next())
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (c *Client) start(conn *session.Conn) {
	ctx, cancel := context.WithCancel(context.Background())
	c.connMu.Lock()
	c.conn = conn
	c.cancel = cancel
	c.done = make(chan struct{})
	c.err = nil
	done := c.done
	c.connMu.Unlock()

	go c.readLoop(ctx, cancel, conn, done)
	go func() {
		if err := conn.KeepAlive(ctx); err != nil {
			log.Warn().Str("addr", c.cfg.Address).Err(err).Msg("keep-alive stopped")
			_ = conn.Close()
		}
	}()
	go c.sweep(ctx)
	log.Info().Str("addr", c.cfg.Address).Msg("connected")
}

// Close ends the session and releases pending requests.
func (c *Client) Close() error {
	c.connMu.Lock()
	conn, cancel, done := c.conn, c.cancel, c.done
	c.conn = nil
	c.connMu.Unlock()
	if conn == nil {
		return nil
	}
	cancel()
	err := conn.Close()
	<-done
	return err
}

// Done is closed when the session ends.
func (c *Client) Done() <-chan struct{} {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.done
}

// Err reports why the session ended.
func (c *Client) Err() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.err
}

// View runs fn with the cache locked.
func (c *Client) View(fn func(root *glow.Root)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.tree)
}

func (c *Client) session() (*session.Conn, chan struct{}, error) {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn == nil {
		return nil, nil, ErrNotConnected
	}
	return c.conn, c.done, nil
}

func (c *Client) readLoop(ctx context.Context, cancel context.CancelFunc, conn *session.Conn, done chan struct{}) {
	var err error
	defer func() {
		cancel()
		c.invocations.CancelAll()
		c.connMu.Lock()
		c.err = err
		if c.conn == conn {
			c.conn = nil
		}
		c.connMu.Unlock()
		close(done)
	}()
	for {
		var payload []byte
		payload, err = conn.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, session.ErrSessionClosed) {
				err = nil
			}
			return
		}
		msg, decodeErr := glow.Decode(payload)
		observability.RecordMessage(c.cfg.Name, "in", len(payload), decodeErr)
		if decodeErr != nil {
			log.Warn().Str("addr", c.cfg.Address).Int("bytes", len(payload)).Err(decodeErr).Msg("decode failed")
			continue
		}
		c.apply(msg)
	}
}

func (c *Client) sweep(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for _, p := range c.invocations.Expire(now) {
				log.Warn().Int32("invocation", p.ID).Str("function", p.Path).Msg("invocation expired")
			}
		}
	}
}

func (c *Client) send(conn *session.Conn, msg *glow.Root) error {
	b, err := msg.Encode()
	if err != nil {
		return err
	}
	err = conn.WriteMessage(b)
	observability.RecordMessage(c.cfg.Name, "out", len(b), err)
	return err
}

// expect registers interest in the next report of path. The returned
// release func must be called when the caller stops waiting.
func (c *Client) expect(path string) (<-chan struct{}, func()) {
	ch := make(chan struct{})
	c.waitersMu.Lock()
	c.waiters[path] = append(c.waiters[path], ch)
	c.waitersMu.Unlock()
	return ch, func() {
		c.waitersMu.Lock()
		defer c.waitersMu.Unlock()
		list := c.waiters[path]
		for i, w := range list {
			if w == ch {
				c.waiters[path] = append(list[:i], list[i+1:]...)
				break
			}
		}
		if len(c.waiters[path]) == 0 {
			delete(c.waiters, path)
		}
	}
}

func (c *Client) notify(seen map[string]struct{}) {
	c.waitersMu.Lock()
	defer c.waitersMu.Unlock()
	for path := range seen {
		for _, ch := range c.waiters[path] {
			close(ch)
		}
		delete(c.waiters, path)
	}
}

// request sends msg and waits until the provider reports path.
func (c *Client) request(ctx context.Context, path string, build func() *glow.Root) error {
	conn, done, err := c.session()
	if err != nil {
		return err
	}
	ch, release := c.expect(path)
	defer release()

	c.mu.Lock()
	msg := build()
	c.mu.Unlock()
	if msg == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err := c.send(conn, msg); err != nil {
		return err
	}
	return c.wait(ctx, ch, done, path)
}

func (c *Client) wait(ctx context.Context, ch <-chan struct{}, done chan struct{}, what string) error {
	var timeout <-chan time.Time
	if d := c.cfg.Session.RequestTimeout; d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		timeout = timer.C
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return ErrNotConnected
	case <-timeout:
		return fmt.Errorf("%w: %s", ErrTimeout, what)
	}
}

// lookup resolves path in the cache under the lock.
func (c *Client) lookup(path []int32) glow.Element {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tree.GetElementByPath(path)
}

// apply reconciles one provider message into the cache.
func (c *Client) apply(msg *glow.Root) {
	if res := msg.GetResult(); res != nil {
		if !c.invocations.Resolve(res) {
			log.Debug().Int32("invocation", res.ID).Msg("result for unknown invocation")
		}
	}
	seen := make(map[string]struct{})
	c.mu.Lock()
	var touched []glow.Element
	children := msg.Children()
	if len(children) > 0 {
		seen[""] = struct{}{}
	}
	for _, child := range children {
		c.merge(child, &touched, seen)
	}
	for _, entry := range msg.Streams {
		touched = append(touched, c.applyStream(entry)...)
	}
	for _, e := range touched {
		if n, ok := e.(interface{ UpdateSubscribers() }); ok {
			n.UpdateSubscribers()
		}
	}
	c.mu.Unlock()
	c.notify(seen)
}

func (c *Client) merge(in glow.Element, touched *[]glow.Element, seen map[string]struct{}) {
	if in.Kind() == glow.KindCommand {
		return
	}
	path := in.Path()
	if len(path) == 0 {
		return
	}
	seen[glow.FormatPath(path)] = struct{}{}
	cur := c.tree.GetElementByPath(path)
	if cur == nil || cur.Kind() != in.Kind() {
		parent := c.tree.GetElementByPath(path[:len(path)-1])
		if parent == nil {
			log.Debug().Str("path", glow.FormatPath(path)).Msg("element outside known tree")
			return
		}
		cur = in.ToElement()
		parent.AddChild(cur)
		*touched = append(*touched, cur)
	} else if changed, err := cur.Update(in); err != nil {
		log.Warn().Str("path", glow.FormatPath(path)).Err(err).Msg("merge failed")
	} else if changed {
		*touched = append(*touched, cur)
	}
	if p, ok := cur.(*glow.Parameter); ok && glow.IsStreamSubscribable(p) {
		c.indexStream(*p.Contents.StreamIdentifier, p.PathString())
	}
	for _, child := range in.Children() {
		c.merge(child, touched, seen)
	}
}

func (c *Client) indexStream(id int32, path string) {
	for _, p := range c.streams[id] {
		if p == path {
			return
		}
	}
	c.streams[id] = append(c.streams[id], path)
}

func (c *Client) applyStream(entry glow.StreamEntry) []glow.Element {
	var out []glow.Element
	for _, path := range c.streams[entry.Identifier] {
		p, ok := c.tree.GetElementByPathString(path).(*glow.Parameter)
		if !ok || p.Value().Equal(entry.Value) {
			continue
		}
		_ = p.SetValue(entry.Value)
		out = append(out, p)
	}
	return out
}

// Value returns the cached value of a parameter.
func (c *Client) Value(p *glow.Parameter) ber.Value {
	c.mu.Lock()
	defer c.mu.Unlock()
	return p.Value()
}
