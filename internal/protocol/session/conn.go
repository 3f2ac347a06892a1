package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/emberctl/internal/protocol/s101"
	"github.com/rs/zerolog/log"
)

var (
	ErrSessionDead   = errors.New("session: peer stopped answering keep-alives")
	ErrSessionClosed = errors.New("session: closed")
)

// Conn is one S101 session. Reads are owned by a single goroutine; writes
// are serialized so keep-alive responses never interleave with messages.
type Conn struct {
	conn   net.Conn
	cfg    Config
	reader *s101.Reader

	writeMu  sync.Mutex
	lastSeen atomic.Int64
	closed   atomic.Bool
}

func NewConn(c net.Conn, cfg Config) *Conn {
	s := &Conn{
		conn:   c,
		cfg:    cfg,
		reader: s101.NewReader(c, cfg.Limits),
	}
	s.touch()
	return s
}

// Dial opens a TCP session to addr within ConnectTimeout.
func Dial(ctx context.Context, addr string, cfg Config) (*Conn, error) {
	d := net.Dialer{Timeout: cfg.ConnectTimeout}
	c, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return NewConn(c, cfg), nil
}

func (s *Conn) RemoteAddr() string { return s.conn.RemoteAddr().String() }

func (s *Conn) LastSeen() time.Time { return time.Unix(0, s.lastSeen.Load()) }

// Dead reports whether the peer has been silent longer than SessionDeadAfter.
func (s *Conn) Dead(now time.Time) bool {
	return s.cfg.SessionDeadAfter > 0 && now.Sub(s.LastSeen()) > s.cfg.SessionDeadAfter
}

func (s *Conn) touch() { s.lastSeen.Store(time.Now().UnixNano()) }

// ReadMessage returns the next EmBER payload. Keep-alive requests are
// answered inline and keep-alive responses only refresh LastSeen.
func (s *Conn) ReadMessage(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stop := context.AfterFunc(ctx, func() {
		_ = s.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	for {
		if s.cfg.ReadTimeout > 0 {
			_ = s.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		}
		msg, err := s.reader.ReadMessage()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if s.closed.Load() {
				return nil, ErrSessionClosed
			}
			return nil, err
		}
		s.touch()
		switch msg.Command {
		case s101.CommandKeepAliveRequest:
			if err := s.write(func() error {
				return s101.WriteKeepAlive(s.conn, s101.CommandKeepAliveResponse)
			}); err != nil {
				return nil, err
			}
		case s101.CommandKeepAliveResponse:
		default:
			return msg.Payload, nil
		}
	}
}

// WriteMessage frames payload into S101 packets and writes them.
func (s *Conn) WriteMessage(payload []byte) error {
	return s.write(func() error {
		return s101.WriteMessage(s.conn, payload, s.cfg.Limits)
	})
}

func (s *Conn) write(fn func() error) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.cfg.WriteTimeout > 0 {
		_ = s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	}
	return fn()
}

// KeepAlive probes the peer every KeepAliveInterval until ctx ends, a write
// fails or the peer goes quiet for SessionDeadAfter.
func (s *Conn) KeepAlive(ctx context.Context) error {
	if s.cfg.KeepAliveInterval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(s.cfg.KeepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if s.Dead(now) {
				log.Warn().
					Str("remote", s.RemoteAddr()).
					Time("last_seen", s.LastSeen()).
					Msg("session dead")
				return ErrSessionDead
			}
			if err := s.write(func() error {
				return s101.WriteKeepAlive(s.conn, s101.CommandKeepAliveRequest)
			}); err != nil {
				return err
			}
		}
	}
}

func (s *Conn) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.conn.Close()
}
