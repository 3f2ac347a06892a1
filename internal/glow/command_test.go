package glow

import (
	"sync"
	"testing"

	"github.com/danmuck/emberctl/internal/protocol/ber"
	"github.com/danmuck/emberctl/internal/testutil/testlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandFieldFlagDefaults(t *testing.T) {
	testlog.Start(t)
	assert.Equal(t, FieldsAll, NewCommand(CommandGetDirectory).Flags())
	assert.Equal(t, FieldsDefault, NewCommand(CommandSubscribe).Flags())
	assert.Equal(t, FieldsDefault, NewCommand(CommandInvoke).Flags())
}

func TestDecodeUnknownCommand(t *testing.T) {
	testlog.Start(t)
	b := rootWith(t, func(w *ber.Writer) {
		w.StartSequence(ber.Application(2))
		w.StartSequence(ber.Context(0))
		w.WriteInt(40)
		require.NoError(t, w.EndSequence())
		require.NoError(t, w.EndSequence())
	})
	_, err := Decode(b)
	assert.ErrorIs(t, err, ErrUnknownCommand)

	b = rootWith(t, func(w *ber.Writer) {
		w.StartSequence(ber.Application(2))
		w.StartSequence(ber.Context(0))
		w.WriteInt(32)
		require.NoError(t, w.EndSequence())
		w.StartSequence(ber.Context(5))
		require.NoError(t, w.EndSequence())
		require.NoError(t, w.EndSequence())
	})
	_, err = Decode(b)
	assert.ErrorIs(t, err, ErrUnimplementedType)
}

func TestInvokeRoundTrip(t *testing.T) {
	testlog.Start(t)
	root := NewRoot()
	dev := NewNode(1)
	fn := NewFunction(3)
	fn.Contents = &FunctionContents{
		Identifier: Ptr("add"),
		Arguments: []FunctionArgument{
			{Type: ParameterInteger, Name: "a"},
			{Type: ParameterInteger, Name: "b"},
		},
		Result: []FunctionArgument{{Type: ParameterInteger, Name: "sum"}},
	}
	dev.AddChild(fn)
	root.AddChild(dev)

	var counter InvocationCounter
	id := counter.Next()
	msg := fn.Invoke(id, []ber.Value{ber.IntegerValue(1), ber.StringValue("x")})
	b, err := msg.Encode()
	require.NoError(t, err)

	decoded, err := Decode(b)
	require.NoError(t, err)
	got, ok := decoded.GetElementByPath([]int32{1, 3}).(*Function)
	require.True(t, ok)
	cmds := got.Commands()
	require.Len(t, cmds, 1)
	assert.Equal(t, CommandInvoke, cmds[0].Type)
	require.NotNil(t, cmds[0].Invocation)
	assert.Equal(t, id, *cmds[0].Invocation.ID)
	assert.Equal(t, []ber.Value{ber.IntegerValue(1), ber.StringValue("x")}, cmds[0].Invocation.Arguments)
	assert.Same(t, got, cmds[0].Target())

	full, err := root.Encode()
	require.NoError(t, err)
	decoded, err = Decode(full)
	require.NoError(t, err)
	described := decoded.GetElementByPath([]int32{1, 3}).(*Function)
	assert.Equal(t, fn.Contents.Arguments, described.Contents.Arguments)
	assert.Equal(t, fn.Contents.Result, described.Contents.Result)
}

func TestInvocationResultAtRoot(t *testing.T) {
	testlog.Start(t)
	root := NewRoot()
	root.SetResult(&InvocationResult{
		ID:      7,
		Success: Ptr(false),
		Result:  []ber.Value{ber.RealValue(0.5)},
	})
	b, err := root.Encode()
	require.NoError(t, err)

	decoded, err := Decode(b)
	require.NoError(t, err)
	res := decoded.GetResult()
	require.NotNil(t, res)
	assert.Equal(t, int32(7), res.ID)
	assert.False(t, res.Succeeded())
	assert.Equal(t, []ber.Value{ber.RealValue(0.5)}, res.Result)
	assert.Empty(t, decoded.Children())

	assert.True(t, (&InvocationResult{}).Succeeded())
}

func TestStreamCollectionRoundTrip(t *testing.T) {
	testlog.Start(t)
	root := NewRoot()
	root.Streams = []StreamEntry{
		{Identifier: 5, Value: ber.RealValue(0.25)},
		{Identifier: 6, Value: ber.IntegerValue(-3)},
	}
	b, err := root.Encode()
	require.NoError(t, err)

	decoded, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, root.Streams, decoded.Streams)
}

func TestInvocationCounterIsMonotonic(t *testing.T) {
	testlog.Start(t)
	var counter InvocationCounter
	var wg sync.WaitGroup
	seen := make(chan int32, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen <- counter.Next()
		}()
	}
	wg.Wait()
	close(seen)

	ids := map[int32]bool{}
	for id := range seen {
		ids[id] = true
	}
	assert.Len(t, ids, 100)
	assert.Equal(t, int32(101), counter.Next())
}
