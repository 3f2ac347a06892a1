package provider

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/danmuck/emberctl/internal/glow"
	"github.com/danmuck/emberctl/internal/observability"
	"github.com/danmuck/emberctl/internal/protocol/ber"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog/log"
)

// Client is one consumer session able to receive encoded Glow messages.
type Client interface {
	ID() string
	Send(payload []byte) error
}

// FunctionHandler answers an invocation. Handlers run outside the server
// lock and may call back into the Server.
type FunctionHandler func(args []ber.Value) ([]ber.Value, error)

// Server owns the live tree. Every request is applied under mu; encoded
// responses are written and events emitted after it is released.
type Server struct {
	name string

	mu        sync.Mutex
	tree      *glow.Root
	functions map[string]FunctionHandler

	subs    *Subscriptions
	clients *xsync.MapOf[string, Client]

	listenersMu sync.RWMutex
	listeners   []Listener
}

func NewServer(name string, tree *glow.Root) *Server {
	if tree == nil {
		tree = glow.NewRoot()
	}
	return &Server{
		name:      name,
		tree:      tree,
		functions: make(map[string]FunctionHandler),
		subs:      NewSubscriptions(),
		clients:   xsync.NewMapOf[string, Client](),
	}
}

func (s *Server) Name() string { return s.name }

func (s *Server) Subscriptions() *Subscriptions { return s.subs }

// View runs fn with the tree locked. fn must not retain the tree.
func (s *Server) View(fn func(root *glow.Root)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.tree)
}

// Attach makes c reachable for subscriber fan-out.
func (s *Server) Attach(c Client) {
	s.clients.Store(c.ID(), c)
}

// Detach forgets the client and all its subscriptions.
func (s *Server) Detach(id string) {
	s.clients.Delete(id)
	s.subs.RemoveClient(id)
}

// Clients returns the attached client ids, sorted.
func (s *Server) Clients() []string {
	var out []string
	s.clients.Range(func(id string, _ Client) bool {
		out = append(out, id)
		return true
	})
	slices.Sort(out)
	return out
}

// RegisterFunction binds h to the function element at path.
func (s *Server) RegisterFunction(path string, h FunctionHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	el := s.tree.GetElementByPathString(path)
	if el == nil {
		return fmt.Errorf("%w: %s", ErrUnknownElement, path)
	}
	if _, ok := el.(*glow.Function); !ok {
		return fmt.Errorf("%w: %s is a %s", ErrInvalidHandler, path, el.Kind())
	}
	s.functions[el.PathString()] = h
	return nil
}

// Handle applies every element and command of req on behalf of from.
// Failures of single elements do not stop the remaining ones.
func (s *Server) Handle(from Client, req *glow.Root) error {
	children := req.Children()
	if len(children) == 0 {
		return ErrEmptyRequest
	}
	d := &dispatch{s: s, from: from}
	s.mu.Lock()
	for _, child := range children {
		d.element(child)
	}
	s.mu.Unlock()
	d.flush()
	return errors.Join(d.errs...)
}

// SetValue changes a parameter locally and notifies its subscribers.
// Access restrictions apply to consumers only.
func (s *Server) SetValue(path string, v ber.Value) error {
	d := &dispatch{s: s}
	s.mu.Lock()
	if p, ok := s.tree.GetElementByPathString(path).(*glow.Parameter); ok {
		d.setValue(p, v, false)
	} else {
		d.fail(fmt.Errorf("%w: parameter %s", ErrUnknownElement, path))
	}
	s.mu.Unlock()
	d.flush()
	return errors.Join(d.errs...)
}

// PublishStream stores v on a stream parameter and pushes it as a stream
// entry to the parameter's subscribers.
func (s *Server) PublishStream(path string, v ber.Value) error {
	d := &dispatch{s: s}
	s.mu.Lock()
	p, ok := s.tree.GetElementByPathString(path).(*glow.Parameter)
	switch {
	case !ok:
		d.fail(fmt.Errorf("%w: parameter %s", ErrUnknownElement, path))
	case !glow.IsStreamSubscribable(p):
		d.fail(fmt.Errorf("%w: %s", ErrNotStreamTarget, path))
	default:
		_ = p.SetValue(v)
		msg := glow.NewRoot()
		msg.Streams = []glow.StreamEntry{{Identifier: *p.Contents.StreamIdentifier, Value: v}}
		d.fanOut(p.PathString(), msg)
		d.event(EventStream, p.PathString(), v.Format())
	}
	s.mu.Unlock()
	d.flush()
	return errors.Join(d.errs...)
}

type delivery struct {
	to      Client
	payload []byte
}

type call struct {
	handler FunctionHandler
	path    string
	id      int32
	args    []ber.Value
}

// dispatch collects the effects of one locked pass over the tree.
type dispatch struct {
	s          *Server
	from       Client
	deliveries []delivery
	calls      []call
	events     []Event
	errs       []error
}

func (d *dispatch) clientID() string {
	if d.from == nil {
		return ""
	}
	return d.from.ID()
}

func (d *dispatch) fail(err error) {
	log.Warn().Str("node", d.s.name).Str("client", d.clientID()).Err(err).Msg("request rejected")
	d.errs = append(d.errs, err)
}

func (d *dispatch) event(kind EventKind, path, detail string) {
	d.events = append(d.events, Event{
		Kind:   kind,
		Path:   path,
		Client: d.clientID(),
		Detail: detail,
		At:     time.Now(),
	})
}

func (d *dispatch) encode(msg *glow.Root) ([]byte, bool) {
	b, err := msg.Encode()
	if err != nil {
		d.fail(fmt.Errorf("encode response: %w", err))
		return nil, false
	}
	return b, true
}

// reply queues msg for the requesting client.
func (d *dispatch) reply(msg *glow.Root) {
	if d.from == nil {
		return
	}
	if b, ok := d.encode(msg); ok {
		d.deliveries = append(d.deliveries, delivery{to: d.from, payload: b})
	}
}

// fanOut queues msg for every subscriber of path except the requester.
func (d *dispatch) fanOut(path string, msg *glow.Root) {
	var targets []Client
	for _, id := range d.s.subs.Clients(path) {
		if id == d.clientID() {
			continue
		}
		if c, ok := d.s.clients.Load(id); ok {
			targets = append(targets, c)
		}
	}
	if len(targets) == 0 {
		return
	}
	b, ok := d.encode(msg)
	if !ok {
		return
	}
	for _, c := range targets {
		d.deliveries = append(d.deliveries, delivery{to: c, payload: b})
	}
}

func (d *dispatch) element(el glow.Element) {
	if cmd, ok := el.(*glow.Command); ok {
		d.command(cmd)
		return
	}
	target := d.s.tree.GetElementByPath(el.Path())
	if target == nil {
		d.fail(fmt.Errorf("%w: %s", ErrUnknownElement, el.PathString()))
		return
	}
	if target.Kind() != el.Kind() {
		d.fail(fmt.Errorf("%w: %s is a %s, not a %s", ErrKindMismatch, el.PathString(), target.Kind(), el.Kind()))
		return
	}
	switch req := el.(type) {
	case *glow.Parameter:
		if req.Contents != nil && req.Contents.Value.IsSet() {
			d.setValue(target.(*glow.Parameter), req.Contents.Value, req.IsQualified())
		}
	case *glow.Matrix:
		if conns := req.Connections(); len(conns) > 0 {
			d.connect(target.(*glow.Matrix), conns, req.IsQualified())
		}
	}
	for _, child := range el.Children() {
		d.element(child)
	}
}

func (d *dispatch) command(cmd *glow.Command) {
	path := []int32{}
	if t := cmd.Target(); t != nil {
		path = t.Path()
	}
	target := d.s.tree.GetElementByPath(path)
	if target == nil {
		d.fail(fmt.Errorf("%w: %s", ErrUnknownElement, glow.FormatPath(path)))
		return
	}
	switch cmd.Type {
	case glow.CommandGetDirectory:
		d.directory(target)
	case glow.CommandSubscribe:
		d.subscribe(target)
	case glow.CommandUnsubscribe:
		d.unsubscribe(target)
	case glow.CommandInvoke:
		d.invoke(target, cmd.Invocation)
	}
}

// directory answers with qualified elements. On the root each top-level
// element carries its contents and lists its children by address only;
// below the root the element lists its children with contents.
func (d *dispatch) directory(target glow.Element) {
	msg := glow.NewRoot()
	if target.Kind() == glow.KindRoot {
		for _, child := range target.Children() {
			if child.Kind() == glow.KindCommand {
				continue
			}
			q := child.ToQualified()
			for _, gc := range child.Children() {
				if gc.Kind() != glow.KindCommand {
					q.AddChild(gc.ToQualified().Minimal())
				}
			}
			msg.AddChild(q)
			d.autoSubscribe(child)
		}
	} else {
		q := target.ToQualified()
		for _, child := range target.Children() {
			if child.Kind() == glow.KindCommand {
				continue
			}
			q.AddChild(child.MinimalContent())
			d.autoSubscribe(child)
		}
		msg.AddChild(q)
		d.autoSubscribe(target)
	}
	d.reply(msg)
	d.event(EventGetDirectory, target.PathString(), "")
}

func (d *dispatch) autoSubscribe(e glow.Element) {
	if d.from != nil && glow.IsAutoSubscribable(e) {
		d.s.subs.Add(e.PathString(), d.from.ID())
	}
}

func (d *dispatch) subscribe(target glow.Element) {
	if d.from == nil {
		return
	}
	if _, isMatrix := target.(*glow.Matrix); !isMatrix && !glow.IsStreamSubscribable(target) && !glow.IsAutoSubscribable(target) {
		d.fail(fmt.Errorf("%w: %s is not subscribable", ErrKindMismatch, target.PathString()))
		return
	}
	d.s.subs.Add(target.PathString(), d.from.ID())
	d.event(EventSubscribe, target.PathString(), "")
}

func (d *dispatch) unsubscribe(target glow.Element) {
	if d.from == nil {
		return
	}
	d.s.subs.Remove(target.PathString(), d.from.ID())
	d.event(EventUnsubscribe, target.PathString(), "")
}

func (d *dispatch) invoke(target glow.Element, inv *glow.Invocation) {
	fn, ok := target.(*glow.Function)
	if !ok {
		d.fail(fmt.Errorf("%w: invoke on %s %s", ErrKindMismatch, target.Kind(), target.PathString()))
		return
	}
	c := call{
		handler: d.s.functions[fn.PathString()],
		path:    fn.PathString(),
	}
	if inv != nil {
		if inv.ID != nil {
			c.id = *inv.ID
		}
		c.args = inv.Arguments
	}
	d.calls = append(d.calls, c)
}

// respond builds the message carrying the state of target, in the
// addressing form the request used.
func respond(target glow.Element, qualified bool, fill func(glow.Element)) *glow.Root {
	if !qualified {
		return target.GetTreeBranch(nil, fill)
	}
	q := target.ToQualified().Minimal()
	fill(q)
	msg := glow.NewRoot()
	msg.AddChild(q)
	return msg
}

func (d *dispatch) setValue(p *glow.Parameter, v ber.Value, qualified bool) {
	if d.from != nil && !p.Contents.AccessOrDefault().CanWrite() {
		d.fail(fmt.Errorf("%w: %s", ErrReadOnly, p.PathString()))
		d.reply(respond(p, qualified, fillParameter(p)))
		return
	}
	if p.Contents == nil {
		p.Contents = &glow.ParameterContents{}
	}
	changed := !p.Value().Equal(v)
	_ = p.SetValue(v)

	msg := respond(p, qualified, fillParameter(p))
	d.reply(msg)
	if !changed {
		return
	}
	d.fanOut(p.PathString(), msg)
	p.UpdateSubscribers()
	d.event(EventSetValue, p.PathString(), v.Format())
}

func fillParameter(p *glow.Parameter) func(glow.Element) {
	return func(e glow.Element) {
		if p.Contents == nil {
			return
		}
		c := *p.Contents
		e.(*glow.Parameter).Contents = &c
	}
}

// flush runs deferred invocations, writes queued messages and emits events.
func (d *dispatch) flush() {
	for _, c := range d.calls {
		d.runCall(c)
	}
	for _, out := range d.deliveries {
		err := out.to.Send(out.payload)
		observability.RecordMessage(d.s.name, "out", len(out.payload), err)
		if err != nil {
			log.Warn().Str("node", d.s.name).Str("client", out.to.ID()).Err(err).Msg("send failed")
		}
	}
	d.deliveries = nil
	d.s.emit(d.events)
}

func (d *dispatch) runCall(c call) {
	res := &glow.InvocationResult{ID: c.id}
	if c.handler == nil {
		res.Success = glow.Ptr(false)
		d.fail(fmt.Errorf("%w: %s", ErrNoFunction, c.path))
	} else if out, err := c.handler(c.args); err != nil {
		res.Success = glow.Ptr(false)
		log.Warn().Str("node", d.s.name).Str("function", c.path).Int32("invocation", c.id).Err(err).Msg("invocation failed")
	} else {
		res.Success = glow.Ptr(true)
		res.Result = out
	}
	msg := glow.NewRoot()
	msg.SetResult(res)
	d.reply(msg)
	d.event(EventInvoke, c.path, fmt.Sprintf("id=%d success=%t", c.id, res.Succeeded()))
}
