package provider

import (
	"context"
	"errors"
	"net"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/danmuck/emberctl/internal/glow"
	"github.com/danmuck/emberctl/internal/observability"
	"github.com/danmuck/emberctl/internal/protocol/session"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ServiceConfig configures the provider endpoints.
type ServiceConfig struct {
	ListenAddr      string
	AdminListenAddr string
	CORSOrigins     []string
	Session         session.Config
}

func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		ListenAddr:      ":9000",
		AdminListenAddr: "",
		CORSOrigins:     []string{"http://localhost:3000"},
		Session:         session.DefaultConfig(),
	}
}

// SessionInfo describes one connected consumer.
type SessionInfo struct {
	ID            string    `json:"id"`
	RemoteAddr    string    `json:"remote_addr"`
	ConnectedAt   time.Time `json:"connected_at"`
	LastSeen      time.Time `json:"last_seen"`
	Subscriptions []string  `json:"subscriptions"`
}

// Service runs the TCP accept loop and the admin surface for one Server.
type Service struct {
	cfg     ServiceConfig
	server  *Server
	started time.Time

	connsMu sync.Mutex
	conns   map[string]*clientSession

	active atomic.Int64
}

func NewService(server *Server, cfg ServiceConfig) *Service {
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		cfg.ListenAddr = DefaultServiceConfig().ListenAddr
	}
	return &Service{
		cfg:     cfg,
		server:  server,
		started: time.Now(),
		conns:   make(map[string]*clientSession),
	}
}

func (s *Service) Server() *Server { return s.server }

// Run listens on the configured addresses and blocks until SIGINT/SIGTERM.
func (s *Service) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return err
	}
	log.Info().Str("node", s.server.Name()).Str("addr", ln.Addr().String()).Msg("provider listening")

	adminErr := make(chan error, 1)
	if addr := strings.TrimSpace(s.cfg.AdminListenAddr); addr != "" {
		go func() {
			adminErr <- s.ServeAdmin(ctx, addr)
		}()
	}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.Serve(ctx, ln)
	}()
	select {
	case err := <-serveErr:
		return err
	case err := <-adminErr:
		if err != nil {
			return err
		}
		return <-serveErr
	}
}

// Serve accepts consumer sessions on ln until ctx ends.
func (s *Service) Serve(ctx context.Context, ln net.Listener) error {
	defer ln.Close()
	go func() {
		<-ctx.Done()
		s.closeAll()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		cs := &clientSession{
			id:          uuid.NewString(),
			conn:        session.NewConn(conn, s.cfg.Session),
			connectedAt: time.Now(),
		}
		s.track(cs)
		go s.handle(ctx, cs)
	}
}

// Sessions returns the connected consumers ordered by connect time.
func (s *Service) Sessions() []SessionInfo {
	s.connsMu.Lock()
	out := make([]SessionInfo, 0, len(s.conns))
	for _, cs := range s.conns {
		out = append(out, SessionInfo{
			ID:          cs.id,
			RemoteAddr:  cs.conn.RemoteAddr(),
			ConnectedAt: cs.connectedAt,
			LastSeen:    cs.conn.LastSeen(),
		})
	}
	s.connsMu.Unlock()
	for i := range out {
		out[i].Subscriptions = s.server.Subscriptions().Paths(out[i].ID)
	}
	sortSessions(out)
	return out
}

func (s *Service) handle(ctx context.Context, cs *clientSession) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer s.untrack(cs)
	defer cs.conn.Close()

	node := s.server.Name()
	remote := cs.conn.RemoteAddr()
	active := s.active.Add(1)
	observability.SessionOpened(node)
	log.Info().Str("node", node).Str("session", cs.id).Str("remote", remote).Int64("active", active).Msg("session opened")
	defer func() {
		remaining := s.active.Add(-1)
		observability.SessionClosed(node)
		log.Info().Str("node", node).Str("session", cs.id).Int64("active", remaining).Msg("session closed")
	}()

	s.server.Attach(cs)
	defer s.server.Detach(cs.id)

	go func() {
		if err := cs.conn.KeepAlive(ctx); err != nil {
			log.Warn().Str("session", cs.id).Err(err).Msg("keep-alive stopped")
			_ = cs.conn.Close()
		}
	}()

	for {
		payload, err := cs.conn.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, session.ErrSessionClosed) {
				log.Debug().Str("session", cs.id).Err(err).Msg("read ended")
			}
			return
		}
		req, err := glow.Decode(payload)
		observability.RecordMessage(node, "in", len(payload), err)
		if err != nil {
			log.Warn().Str("session", cs.id).Int("bytes", len(payload)).Err(err).Msg("decode failed")
			continue
		}
		if err := s.server.Handle(cs, req); err != nil {
			log.Debug().Str("session", cs.id).Err(err).Msg("request partially rejected")
		}
	}
}

func (s *Service) track(cs *clientSession) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	s.conns[cs.id] = cs
}

func (s *Service) untrack(cs *clientSession) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	delete(s.conns, cs.id)
}

func (s *Service) closeAll() {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	for id, cs := range s.conns {
		_ = cs.conn.Close()
		delete(s.conns, id)
	}
}

// clientSession adapts one session.Conn to the Client interface.
type clientSession struct {
	id          string
	conn        *session.Conn
	connectedAt time.Time
}

func (c *clientSession) ID() string { return c.id }

func (c *clientSession) Send(payload []byte) error {
	return c.conn.WriteMessage(payload)
}
