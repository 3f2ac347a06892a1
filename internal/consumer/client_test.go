package consumer

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/danmuck/emberctl/internal/glow"
	"github.com/danmuck/emberctl/internal/loader"
	"github.com/danmuck/emberctl/internal/protocol/ber"
	"github.com/danmuck/emberctl/internal/provider"
	"github.com/danmuck/emberctl/internal/testutil/testlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const deviceYAML = `
children:
  - identifier: device
    number: 1
    children:
      - identifier: gain
        type: integer
        value: 0
        access: readWrite
      - identifier: name
        type: string
        value: studio
      - identifier: router
        type: oneToOne
        targetCount: 4
        sourceCount: 4
        connections:
          "1": [1]
      - identifier: add
        arguments:
          - {type: integer, name: a}
          - {type: integer, name: b}
        result:
          - {type: integer, name: sum}
      - identifier: meters
        children:
          - identifier: level
            type: real
            value: 0
            streamIdentifier: 7
`

func startProvider(t *testing.T) (*provider.Service, string) {
	t.Helper()
	tree, err := loader.Parse([]byte(deviceYAML))
	require.NoError(t, err)
	server := provider.NewServer("test", tree)
	require.NoError(t, server.RegisterFunction("1.3", func(args []ber.Value) ([]ber.Value, error) {
		var sum int64
		for _, a := range args {
			sum += a.Integer
		}
		return []ber.Value{ber.IntegerValue(sum)}, nil
	}))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	svc := provider.NewService(server, provider.DefaultServiceConfig())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})
	return svc, ln.Addr().String()
}

func connect(t *testing.T, addr string) *Client {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Address = addr
	cfg.Session.RequestTimeout = 3 * time.Second
	c, err := NewClient(cfg)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, c.Connect(ctx))
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestNewClientRequiresAddress(t *testing.T) {
	testlog.Start(t)
	_, err := NewClient(DefaultConfig())
	assert.ErrorIs(t, err, ErrAddressRequired)
}

func TestConnectGivesUpAfterMaxAttempts(t *testing.T) {
	testlog.Start(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	cfg := DefaultConfig()
	cfg.Address = addr
	cfg.MaxConnectAttempts = 2
	cfg.Session.Backoff.InitialDelay = 10 * time.Millisecond
	cfg.Session.Backoff.Jitter = false
	c, err := NewClient(cfg)
	require.NoError(t, err)
	assert.Error(t, c.Connect(testContext(t)))

	_, err = c.GetDirectory(testContext(t), nil)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestExpandMirrorsProviderTree(t *testing.T) {
	testlog.Start(t)
	_, addr := startProvider(t)
	c := connect(t, addr)

	require.NoError(t, c.Expand(testContext(t), nil))
	c.View(func(root *glow.Root) {
		dev, ok := root.GetElementByPath([]int32{1}).(*glow.Node)
		require.True(t, ok)
		assert.Equal(t, "device", dev.Identifier())
		assert.Len(t, dev.Children(), 5)

		gain, ok := root.GetElementByPath([]int32{1, 0}).(*glow.Parameter)
		require.True(t, ok)
		assert.Equal(t, glow.AccessReadWrite, gain.Contents.AccessOrDefault())

		router, ok := root.GetElementByPath([]int32{1, 2}).(*glow.Matrix)
		require.True(t, ok)
		assert.Equal(t, glow.MatrixOneToOne, router.Type())
		assert.Equal(t, []int32{1}, router.CurrentSources(1))

		level, ok := root.GetElementByPath([]int32{1, 4, 0}).(*glow.Parameter)
		require.True(t, ok)
		assert.Equal(t, "level", level.Identifier())
	})
}

func TestGetElementByPath(t *testing.T) {
	testlog.Start(t)
	_, addr := startProvider(t)
	c := connect(t, addr)
	ctx := testContext(t)

	el, err := c.GetElementByPath(ctx, "device/meters/level")
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 4, 0}, el.Path())

	el, err = c.GetElementByPath(ctx, "1.1")
	require.NoError(t, err)
	assert.Equal(t, "name", el.(*glow.Parameter).Identifier())

	_, err = c.GetElementByPath(ctx, "device/missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetValueNotifiesOtherConsumers(t *testing.T) {
	testlog.Start(t)
	_, addr := startProvider(t)
	writer := connect(t, addr)
	watcher := connect(t, addr)
	ctx := testContext(t)

	watched, err := watcher.GetElementByPath(ctx, "device/gain")
	require.NoError(t, err)
	changed := make(chan ber.Value, 1)
	_, err = watcher.Subscribe(ctx, watched, func(e glow.Element) {
		select {
		case changed <- e.(*glow.Parameter).Value():
		default:
		}
	})
	require.NoError(t, err)

	el, err := writer.GetElementByPath(ctx, "device/gain")
	require.NoError(t, err)
	got, err := writer.SetValue(ctx, el.(*glow.Parameter), ber.IntegerValue(12))
	require.NoError(t, err)
	assert.Equal(t, ber.IntegerValue(12), writer.Value(got))

	select {
	case v := <-changed:
		assert.Equal(t, ber.IntegerValue(12), v)
	case <-ctx.Done():
		t.Fatal("watcher saw no change")
	}
}

func TestMatrixOperations(t *testing.T) {
	testlog.Start(t)
	_, addr := startProvider(t)
	c := connect(t, addr)
	ctx := testContext(t)

	el, err := c.GetElementByPath(ctx, "device/router")
	require.NoError(t, err)
	m := el.(*glow.Matrix)

	_, err = c.MatrixSetConnection(ctx, m, 0, []int32{1})
	require.NoError(t, err)
	c.View(func(*glow.Root) {
		assert.Equal(t, []int32{1}, m.CurrentSources(0))
		assert.Empty(t, m.CurrentSources(1))
	})

	_, err = c.MatrixDisconnect(ctx, m, 0, []int32{1})
	require.NoError(t, err)
	c.View(func(*glow.Root) {
		assert.Empty(t, m.CurrentSources(0))
	})

	_, err = c.MatrixConnect(ctx, m, 2, []int32{3})
	require.NoError(t, err)
	c.View(func(*glow.Root) {
		assert.Equal(t, []int32{3}, m.CurrentSources(2))
	})
}

func TestInvokeFunction(t *testing.T) {
	testlog.Start(t)
	_, addr := startProvider(t)
	c := connect(t, addr)
	ctx := testContext(t)

	el, err := c.GetElementByPath(ctx, "device/add")
	require.NoError(t, err)
	res, err := c.InvokeFunction(ctx, el.(*glow.Function), []ber.Value{ber.IntegerValue(2), ber.IntegerValue(3)})
	require.NoError(t, err)
	assert.True(t, res.Succeeded())
	assert.Equal(t, []ber.Value{ber.IntegerValue(5)}, res.Result)
}

func TestStreamUpdatesCache(t *testing.T) {
	testlog.Start(t)
	svc, addr := startProvider(t)
	c := connect(t, addr)
	ctx := testContext(t)

	el, err := c.GetElementByPath(ctx, "device/meters/level")
	require.NoError(t, err)
	level := el.(*glow.Parameter)

	var hits atomic.Int32
	id, err := c.Subscribe(ctx, level, func(glow.Element) { hits.Add(1) })
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return len(svc.Server().Subscriptions().Clients("1.4.0")) == 1
	}, 3*time.Second, 10*time.Millisecond)

	require.NoError(t, svc.Server().PublishStream("1.4.0", ber.RealValue(-12.5)))
	require.Eventually(t, func() bool {
		return c.Value(level).Equal(ber.RealValue(-12.5))
	}, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), hits.Load())

	require.NoError(t, c.Unsubscribe(ctx, level, id))
	require.Eventually(t, func() bool {
		return len(svc.Server().Subscriptions().Clients("1.4.0")) == 0
	}, 3*time.Second, 10*time.Millisecond)
}

func TestSubscribeRejectsCommands(t *testing.T) {
	testlog.Start(t)
	c, err := NewClient(Config{Address: "127.0.0.1:1"})
	require.NoError(t, err)
	_, err = c.Subscribe(context.Background(), glow.NewCommand(glow.CommandGetDirectory), nil)
	assert.ErrorIs(t, err, ErrNotSubscribable)
}

func TestCloseEndsSession(t *testing.T) {
	testlog.Start(t)
	_, addr := startProvider(t)
	c := connect(t, addr)
	done := c.Done()
	require.NoError(t, c.Close())
	<-done
	assert.NoError(t, c.Err())
	_, err := c.GetDirectory(testContext(t), nil)
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.NoError(t, c.Close())
}
