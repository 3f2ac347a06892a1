package glow

import (
	"errors"
	"testing"

	"github.com/danmuck/emberctl/internal/protocol/ber"
	"github.com/danmuck/emberctl/internal/testutil/testlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTree() (*Root, *Node, *Parameter, *Parameter) {
	root := NewRoot()
	dev := NewNode(1)
	dev.Contents = &NodeContents{Identifier: Ptr("device"), IsOnline: Ptr(true)}
	gain := NewParameter(1)
	gain.Contents = &ParameterContents{
		Identifier: Ptr("gain"),
		Value:      ber.RealValue(-6.5),
		Minimum:    ber.RealValue(-96),
		Maximum:    ber.RealValue(12),
		Access:     Ptr(AccessReadWrite),
		Type:       Ptr(ParameterReal),
	}
	name := NewParameter(2)
	name.Contents = &ParameterContents{
		Identifier: Ptr("name"),
		Value:      ber.StringValue("desk"),
		EnumMap:    []EnumEntry{{Key: "a", Value: 1}},
	}
	dev.AddChild(gain)
	dev.AddChild(name)
	root.AddChild(dev)
	return root, dev, gain, name
}

func TestPathsFollowParents(t *testing.T) {
	testlog.Start(t)
	root, dev, gain, _ := sampleTree()

	assert.Equal(t, []int32{}, root.Path())
	assert.Equal(t, []int32{1}, dev.Path())
	assert.Equal(t, []int32{1, 1}, gain.Path())
	assert.Equal(t, "1.1", gain.PathString())
	assert.Same(t, dev, gain.Parent())
}

func TestGetElementByPath(t *testing.T) {
	testlog.Start(t)
	root, dev, gain, name := sampleTree()

	assert.Same(t, gain, root.GetElementByPath([]int32{1, 1}))
	assert.Same(t, name, root.GetElementByPathString("1.2"))
	assert.Same(t, root, root.GetElementByPath([]int32{}))
	assert.Same(t, dev, dev.GetElementByPath([]int32{1}))
	assert.Nil(t, root.GetElementByPathString("1.3"))
	assert.Nil(t, root.GetElementByPathString("2"))
	assert.Nil(t, root.GetElementByPathString("1.x"))
	assert.Nil(t, dev.GetElementByPath([]int32{2, 1}))
	assert.Same(t, gain, dev.Child(1))
	assert.Nil(t, dev.Child(9))
}

func TestGetElementByPathSkipsCommands(t *testing.T) {
	testlog.Start(t)
	root, dev, _, _ := sampleTree()
	dev.AddChild(NewCommand(CommandGetDirectory))

	assert.Nil(t, root.GetElementByPath([]int32{1, 32}))
	assert.Len(t, dev.Commands(), 1)
	assert.Len(t, dev.Children(), 3)
}

func TestQualifiedChildrenOfRoot(t *testing.T) {
	testlog.Start(t)
	_, _, gain, _ := sampleTree()
	q := gain.ToQualified().(*Parameter)
	assert.True(t, q.IsQualified())
	assert.Same(t, gain.Contents, q.Contents)

	root := NewRoot()
	root.AddChild(q)
	assert.Same(t, q, root.GetElementByPath([]int32{1, 1}))
	assert.Nil(t, root.GetElementByPath([]int32{1}))

	qn := NewQualifiedNode([]int32{1, 2})
	leaf := NewParameter(3)
	qn.AddChild(leaf)
	root.AddChild(qn)
	assert.Same(t, leaf, root.GetElementByPath([]int32{1, 2, 3}))
	assert.Equal(t, []int32{1, 2, 3}, leaf.Path())

	e := q.ToElement().(*Parameter)
	assert.False(t, e.IsQualified())
	assert.Equal(t, int32(1), e.Number())
}

func TestAddChildReplacesInPlace(t *testing.T) {
	testlog.Start(t)
	_, dev, gain, name := sampleTree()
	again := NewParameter(1)
	dev.AddChild(again)

	children := dev.Children()
	require.Len(t, children, 2)
	assert.Same(t, again, children[0])
	assert.Same(t, name, children[1])
	assert.Nil(t, gain.Parent())
	assert.Same(t, dev, again.Parent())
	assert.Equal(t, []int32{1}, gain.Path())
	assert.True(t, dev.RemoveChild(again))
	assert.False(t, dev.RemoveChild(gain))
	assert.Same(t, name, dev.Child(2))
}

func TestGetTreeBranchBuildsMinimalChain(t *testing.T) {
	testlog.Start(t)
	_, dev, gain, _ := sampleTree()

	branch := gain.GetTreeBranch(nil, func(e Element) {
		e.(*Parameter).Contents = &ParameterContents{Value: ber.RealValue(0)}
	})
	require.Len(t, branch.Children(), 1)
	node := branch.Children()[0].(*Node)
	assert.Nil(t, node.Contents)
	p := branch.GetElementByPath([]int32{1, 1}).(*Parameter)
	assert.Equal(t, ber.RealValue(0), p.Contents.Value)

	assert.Len(t, dev.Children(), 2)
	assert.Same(t, dev, gain.Parent())
	assert.Equal(t, ber.RealValue(-6.5), gain.Value())
}

func TestRootGetDirectoryBytes(t *testing.T) {
	testlog.Start(t)
	b, err := NewRoot().GetDirectory().Encode()
	require.NoError(t, err)
	want := []byte{
		0x60, 0x10, 0x6b, 0x0e, 0xa0, 0x0c, 0x62, 0x0a,
		0xa0, 0x03, 0x02, 0x01, 0x20,
		0xa1, 0x03, 0x02, 0x01, 0xff,
	}
	assert.Equal(t, want, b)

	msg, err := Decode(b)
	require.NoError(t, err)
	cmds := msg.Commands()
	require.Len(t, cmds, 1)
	assert.Equal(t, CommandGetDirectory, cmds[0].Type)
	assert.Equal(t, FieldsAll, cmds[0].Flags())
}

func TestTreeRoundTrip(t *testing.T) {
	testlog.Start(t)
	root, _, _, _ := sampleTree()
	b, err := root.Encode()
	require.NoError(t, err)

	decoded, err := Decode(b)
	require.NoError(t, err)
	p, ok := decoded.GetElementByPath([]int32{1, 1}).(*Parameter)
	require.True(t, ok)
	assert.Equal(t, "gain", p.Identifier())
	assert.Equal(t, ber.RealValue(-6.5), p.Value())
	assert.Equal(t, AccessReadWrite, p.Contents.AccessOrDefault())
	n := decoded.GetElementByPath([]int32{1, 2}).(*Parameter)
	assert.Equal(t, []EnumEntry{{Key: "a", Value: 1}}, n.Contents.EnumMap)

	again, err := decoded.Encode()
	require.NoError(t, err)
	assert.Equal(t, b, again)
}

func TestQualifiedRoundTrip(t *testing.T) {
	testlog.Start(t)
	_, _, gain, _ := sampleTree()
	root := NewRoot()
	root.AddChild(gain.ToQualified())
	b, err := root.Encode()
	require.NoError(t, err)

	decoded, err := Decode(b)
	require.NoError(t, err)
	p := decoded.GetElementByPath([]int32{1, 1})
	require.NotNil(t, p)
	assert.True(t, p.IsQualified())
	assert.Equal(t, "gain", p.(*Parameter).Identifier())
}

func TestUpdateMergesSetFields(t *testing.T) {
	testlog.Start(t)
	p := NewParameter(1)
	p.Contents = &ParameterContents{Identifier: Ptr("gain"), Value: ber.IntegerValue(1)}
	o := NewParameter(1)
	o.Contents = &ParameterContents{Value: ber.IntegerValue(2)}

	changed, err := p.Update(o)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "gain", p.Identifier())
	assert.Equal(t, ber.IntegerValue(2), p.Value())

	changed, err = p.Update(o)
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = NewNode(1).Update(o)
	assert.ErrorIs(t, err, ErrKindMismatch)

	empty := NewParameter(1)
	changed, err = empty.Update(o)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.NotSame(t, o.Contents, empty.Contents)
}

func TestSetValueNeedsContents(t *testing.T) {
	testlog.Start(t)
	p := NewParameter(4)
	assert.ErrorIs(t, p.SetValue(ber.IntegerValue(1)), ErrMissingContents)

	msg := p.SetValueRequest(ber.IntegerValue(9))
	got := msg.GetElementByPath([]int32{4}).(*Parameter)
	assert.Equal(t, ber.IntegerValue(9), got.Value())
}

func TestSubscribers(t *testing.T) {
	testlog.Start(t)
	_, _, gain, _ := sampleTree()
	var seen []Element
	id, msg := gain.Subscribe(func(e Element) { seen = append(seen, e) })
	assert.Equal(t, 1, gain.Subscribers())

	sub := msg.GetElementByPath([]int32{1, 1}).(*Parameter)
	require.Len(t, sub.Commands(), 1)
	assert.Equal(t, CommandSubscribe, sub.Commands()[0].Type)

	gain.UpdateSubscribers()
	require.Len(t, seen, 1)
	assert.Same(t, gain, seen[0])

	msg = gain.Unsubscribe(id)
	gain.UpdateSubscribers()
	assert.Len(t, seen, 1)
	assert.Equal(t, 0, gain.Subscribers())
	sub = msg.GetElementByPath([]int32{1, 1}).(*Parameter)
	assert.Equal(t, CommandUnsubscribe, sub.Commands()[0].Type)
}

func TestSubscribability(t *testing.T) {
	testlog.Start(t)
	_, dev, gain, _ := sampleTree()
	assert.True(t, IsAutoSubscribable(gain))
	assert.False(t, IsStreamSubscribable(gain))
	assert.False(t, IsAutoSubscribable(dev))
	assert.True(t, IsAutoSubscribable(NewMatrix(1)))

	gain.Contents.StreamIdentifier = Ptr(int32(4))
	assert.True(t, IsStreamSubscribable(gain))
	assert.False(t, IsAutoSubscribable(gain))
}

func encodeWith(t *testing.T, fn func(w *ber.Writer)) []byte {
	t.Helper()
	w := ber.NewWriter()
	fn(w)
	b, err := w.Bytes()
	require.NoError(t, err)
	return b
}

func rootWith(t *testing.T, child func(w *ber.Writer)) []byte {
	return encodeWith(t, func(w *ber.Writer) {
		w.StartSequence(ber.Application(0))
		w.StartSequence(ber.Application(11))
		w.StartSequence(ber.Context(0))
		child(w)
		require.NoError(t, w.EndSequence())
		require.NoError(t, w.EndSequence())
		require.NoError(t, w.EndSequence())
	})
}

func TestDecodeRejectsUnknownTags(t *testing.T) {
	testlog.Start(t)
	unknownElement := rootWith(t, func(w *ber.Writer) {
		w.StartSequence(ber.Application(30))
		require.NoError(t, w.EndSequence())
	})
	_, err := Decode(unknownElement)
	assert.ErrorIs(t, err, ErrUnimplementedType)

	unknownField := rootWith(t, func(w *ber.Writer) {
		w.StartSequence(ber.Application(3))
		w.StartSequence(ber.Context(0))
		w.WriteInt(1)
		require.NoError(t, w.EndSequence())
		w.StartSequence(ber.Context(9))
		require.NoError(t, w.EndSequence())
		require.NoError(t, w.EndSequence())
	})
	_, err = Decode(unknownField)
	assert.ErrorIs(t, err, ErrUnimplementedType)
	var fe FieldError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, ber.Context(9), fe.Tag)

	unknownContents := rootWith(t, func(w *ber.Writer) {
		w.StartSequence(ber.Application(3))
		w.StartSequence(ber.Context(0))
		w.WriteInt(1)
		require.NoError(t, w.EndSequence())
		w.StartSequence(ber.Context(1))
		w.StartSequence(ber.TagSet)
		w.StartSequence(ber.Context(12))
		w.WriteString("x")
		require.NoError(t, w.EndSequence())
		require.NoError(t, w.EndSequence())
		require.NoError(t, w.EndSequence())
		require.NoError(t, w.EndSequence())
	})
	_, err = Decode(unknownContents)
	assert.ErrorIs(t, err, ErrUnimplementedType)
}

func TestDecodeStructuralErrors(t *testing.T) {
	testlog.Start(t)
	_, err := Decode(nil)
	assert.ErrorIs(t, err, ErrEmptyMessage)

	noNumber := rootWith(t, func(w *ber.Writer) {
		w.StartSequence(ber.Application(3))
		require.NoError(t, w.EndSequence())
	})
	_, err = Decode(noNumber)
	assert.ErrorIs(t, err, ErrMissingNumber)

	resultAsChild := rootWith(t, func(w *ber.Writer) {
		w.StartSequence(ber.Application(23))
		require.NoError(t, w.EndSequence())
	})
	_, err = Decode(resultAsChild)
	assert.ErrorIs(t, err, ErrInvocationResultAsChild)

	_, err = Decode([]byte{0x61, 0x00})
	assert.ErrorIs(t, err, ber.ErrUnexpectedTag)
}

func TestEncodeRequiresAddress(t *testing.T) {
	testlog.Start(t)
	root := NewRoot()
	root.AddChild(NewQualifiedNode(nil))
	_, err := root.Encode()
	assert.ErrorIs(t, err, ErrMissingPath)
}

func TestTemplateRoundTrip(t *testing.T) {
	testlog.Start(t)
	tpl := NewTemplate(5)
	inner := NewParameter(1)
	inner.Contents = &ParameterContents{Identifier: Ptr("level"), Type: Ptr(ParameterInteger)}
	tpl.SetElement(inner)
	tpl.Description = Ptr("channel strip")
	root := NewRoot()
	root.AddChild(tpl)

	b, err := root.Encode()
	require.NoError(t, err)
	decoded, err := Decode(b)
	require.NoError(t, err)
	got, ok := decoded.GetElementByPath([]int32{5}).(*Template)
	require.True(t, ok)
	assert.Equal(t, "channel strip", *got.Description)
	require.IsType(t, &Parameter{}, got.Element)
	assert.Equal(t, "level", got.Element.(*Parameter).Identifier())

	q := NewQualifiedTemplate([]int32{1, 9})
	q.Description = Ptr("bare")
	root = NewRoot()
	root.AddChild(q)
	b, err = root.Encode()
	require.NoError(t, err)
	decoded, err = Decode(b)
	require.NoError(t, err)
	gotQ, ok := decoded.GetElementByPath([]int32{1, 9}).(*Template)
	require.True(t, ok)
	assert.Equal(t, "bare", *gotQ.Description)
	assert.Nil(t, gotQ.Element)
	assert.Empty(t, gotQ.Children())
}

func TestParsePath(t *testing.T) {
	testlog.Start(t)
	p, err := ParsePath("1.20.3")
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 20, 3}, p)
	assert.Equal(t, "1.20.3", FormatPath(p))

	p, err = ParsePath("")
	require.NoError(t, err)
	assert.Empty(t, p)

	_, err = ParsePath("1..2")
	assert.ErrorIs(t, err, ErrInvalidPath)
	_, err = ParsePath("-1")
	assert.ErrorIs(t, err, ErrInvalidPath)
}
