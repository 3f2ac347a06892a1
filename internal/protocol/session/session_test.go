package session

import (
	"bytes"
	"context"
	"io"
	"math/rand"
	"net"
	"testing"
	"time"

	"github.com/danmuck/emberctl/internal/glow"
	"github.com/danmuck/emberctl/internal/protocol/s101"
	"github.com/danmuck/emberctl/internal/testutil/testlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.WriteTimeout = time.Second
	return cfg
}

func TestReadMessageAnswersKeepAlive(t *testing.T) {
	testlog.Start(t)
	local, peer := net.Pipe()
	defer peer.Close()
	conn := NewConn(local, testConfig())
	defer conn.Close()

	payload := []byte{0x60, 0x03, 0x6b, 0x01, 0x00}
	go func() {
		_ = s101.WriteKeepAlive(peer, s101.CommandKeepAliveRequest)
		_ = s101.WriteMessage(peer, payload, s101.DefaultLimits())
	}()
	responses := make(chan s101.Message, 1)
	go func() {
		msg, err := s101.NewReader(peer, s101.DefaultLimits()).ReadMessage()
		if err == nil {
			responses <- msg
		}
	}()

	got, err := conn.ReadMessage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	select {
	case msg := <-responses:
		assert.Equal(t, s101.CommandKeepAliveResponse, msg.Command)
	case <-time.After(time.Second):
		t.Fatal("keep-alive response not written")
	}
}

func TestWriteMessageSplitsLargePayload(t *testing.T) {
	testlog.Start(t)
	local, peer := net.Pipe()
	defer peer.Close()
	cfg := testConfig()
	cfg.Limits.MaxPacketPayload = 16
	conn := NewConn(local, cfg)
	defer conn.Close()

	payload := bytes.Repeat([]byte{0xf9, 0x01}, 40)
	errs := make(chan error, 1)
	go func() { errs <- conn.WriteMessage(payload) }()

	msg, err := s101.NewReader(peer, cfg.Limits).ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, payload, msg.Payload)
	require.NoError(t, <-errs)
}

func TestReadMessageHonoursContext(t *testing.T) {
	testlog.Start(t)
	local, peer := net.Pipe()
	defer peer.Close()
	conn := NewConn(local, testConfig())
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := conn.ReadMessage(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	ctx, cancel = context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = conn.ReadMessage(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestReadAfterCloseReportsClosed(t *testing.T) {
	testlog.Start(t)
	local, peer := net.Pipe()
	defer peer.Close()
	conn := NewConn(local, testConfig())
	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())

	_, err := conn.ReadMessage(context.Background())
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.ErrorIs(t, conn.WriteMessage([]byte{0x01}), ErrSessionClosed)
}

func TestKeepAliveDetectsSilentPeer(t *testing.T) {
	testlog.Start(t)
	local, peer := net.Pipe()
	defer peer.Close()
	go func() { _, _ = io.Copy(io.Discard, peer) }()

	cfg := testConfig()
	cfg.KeepAliveInterval = 5 * time.Millisecond
	cfg.SessionDeadAfter = 25 * time.Millisecond
	conn := NewConn(local, cfg)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.ErrorIs(t, conn.KeepAlive(ctx), ErrSessionDead)
	assert.True(t, conn.Dead(time.Now()))
}

func TestKeepAliveStopsWithContext(t *testing.T) {
	testlog.Start(t)
	local, peer := net.Pipe()
	defer peer.Close()
	conn := NewConn(local, Config{})
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, conn.KeepAlive(ctx))
	assert.False(t, conn.Dead(time.Now().Add(time.Hour)))
}

func TestNextBackoffDelay(t *testing.T) {
	testlog.Start(t)
	cfg := BackoffConfig{
		InitialDelay: 100 * time.Millisecond,
		Multiplier:   2,
		MaxDelay:     time.Second,
	}
	assert.Equal(t, 100*time.Millisecond, NextBackoffDelay(cfg, 1, nil))
	assert.Equal(t, 200*time.Millisecond, NextBackoffDelay(cfg, 2, nil))
	assert.Equal(t, 800*time.Millisecond, NextBackoffDelay(cfg, 4, nil))
	assert.Equal(t, time.Second, NextBackoffDelay(cfg, 9, nil))

	cfg.Jitter = true
	rng := rand.New(rand.NewSource(1))
	for attempt := 2; attempt < 8; attempt++ {
		d := NextBackoffDelay(cfg, attempt, rng)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 1500*time.Millisecond)
	}
}

func TestBackoffResets(t *testing.T) {
	testlog.Start(t)
	b := NewBackoff(BackoffConfig{InitialDelay: time.Millisecond, Multiplier: 3}, nil)
	assert.Equal(t, time.Millisecond, b.Next())
	assert.Equal(t, 3*time.Millisecond, b.Next())
	assert.Equal(t, 2, b.Attempt())
	b.Reset()
	assert.Equal(t, time.Millisecond, b.Next())
}

func TestInvocationsResolveAndExpire(t *testing.T) {
	testlog.Start(t)
	p := NewInvocations()
	now := time.Unix(100, 0)
	first := p.Add(1, "1.3", now, time.Second)
	second := p.Add(2, "1.4", now, 10*time.Second)
	p.Add(3, "1.5", now, 0)

	res := &glow.InvocationResult{ID: 1, Success: glow.Ptr(true)}
	assert.True(t, p.Resolve(res))
	assert.Same(t, res, <-first)
	assert.False(t, p.Resolve(res))

	expired := p.Expire(now.Add(5 * time.Second))
	assert.Empty(t, expired)
	expired = p.Expire(now.Add(11 * time.Second))
	require.Len(t, expired, 1)
	assert.Equal(t, int32(2), expired[0].ID)
	_, ok := <-second
	assert.False(t, ok)

	pending := p.List()
	require.Len(t, pending, 1)
	assert.Equal(t, "1.5", pending[0].Path)
	p.CancelAll()
	assert.Empty(t, p.List())
}
