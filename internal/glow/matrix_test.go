package glow

import (
	"testing"

	"github.com/danmuck/emberctl/internal/protocol/ber"
	"github.com/danmuck/emberctl/internal/testutil/testlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linearMatrix(kind MatrixType, targets, sources int32) *Matrix {
	m := NewMatrix(1)
	m.Contents = &MatrixContents{
		Identifier:  Ptr("router"),
		Type:        Ptr(kind),
		TargetCount: Ptr(targets),
		SourceCount: Ptr(sources),
	}
	return m
}

func apply(t *testing.T, m *Matrix, c *Connection) []*Connection {
	t.Helper()
	res, err := m.Apply(c)
	require.NoError(t, err)
	require.NotEmpty(t, res)
	return res
}

func last(res []*Connection) *Connection {
	return res[len(res)-1]
}

func TestMatrixDefaults(t *testing.T) {
	testlog.Start(t)
	m := NewMatrix(1)
	assert.Equal(t, MatrixOneToN, m.Type())
	assert.Equal(t, MatrixLinear, m.Mode())
	assert.NoError(t, m.SetType(MatrixOneToN))
	assert.ErrorIs(t, m.SetType(MatrixNToN), ErrMissingContents)
	assert.NoError(t, m.SetMode(MatrixLinear))
	assert.ErrorIs(t, m.SetMode(MatrixNonLinear), ErrMissingContents)
	assert.Nil(t, m.Contents)

	m.Contents = &MatrixContents{}
	require.NoError(t, m.SetType(MatrixNToN))
	assert.Equal(t, MatrixNToN, m.Type())
}

func TestValidateConnectionLinear(t *testing.T) {
	testlog.Start(t)
	m := linearMatrix(MatrixOneToN, 4, 4)

	assert.ErrorIs(t, m.ValidateConnection(-1, nil), ErrInvalidMatrixSignal)
	assert.ErrorIs(t, m.ValidateConnection(0, []int32{-2}), ErrInvalidMatrixSignal)
	assert.ErrorIs(t, m.ValidateConnection(4, nil), ErrInvalidMatrixSignal)
	assert.ErrorIs(t, m.ValidateConnection(0, []int32{4}), ErrInvalidMatrixSignal)
	assert.NoError(t, m.ValidateConnection(3, []int32{0, 3}))
}

func TestValidateConnectionNonLinear(t *testing.T) {
	testlog.Start(t)
	m := NewMatrix(1)
	m.Contents = &MatrixContents{Mode: Ptr(MatrixNonLinear)}
	assert.ErrorIs(t, m.ValidateConnection(10, []int32{1}), ErrNonLinearMatrixIDs)

	m.Targets = []int32{10, 20}
	m.Sources = []int32{1, 2}
	assert.NoError(t, m.ValidateConnection(10, []int32{2}))
	assert.ErrorIs(t, m.ValidateConnection(11, nil), ErrInvalidMatrixSignal)
	assert.ErrorIs(t, m.ValidateConnection(20, []int32{3}), ErrInvalidMatrixSignal)
}

func TestOneToNCanConnect(t *testing.T) {
	testlog.Start(t)
	m := linearMatrix(MatrixOneToN, 4, 4)
	assert.True(t, m.CanConnect(0, []int32{1}, OperationAbsolute))
	m.SetSources(0, []int32{1})

	assert.False(t, m.CanConnect(0, []int32{2}, OperationConnect))
	assert.True(t, m.CanConnect(0, []int32{2}, OperationAbsolute))
	assert.False(t, m.CanConnect(0, []int32{1, 2}, OperationAbsolute))

	m.Contents.MaximumTotalConnects = Ptr(int32(8))
	assert.False(t, m.CanConnect(1, []int32{1}, OperationAbsolute))
}

func TestOneToNRepeatedRequestIsTally(t *testing.T) {
	testlog.Start(t)
	m := linearMatrix(MatrixOneToN, 4, 4)
	req := &Connection{Target: 0, Sources: []int32{1}}

	first := apply(t, m, req)
	require.Len(t, first, 1)
	assert.Equal(t, DispositionModified, *first[0].Disposition)
	assert.Equal(t, []int32{1}, first[0].Sources)

	second := apply(t, m, req)
	assert.Equal(t, DispositionTally, *last(second).Disposition)
	assert.Equal(t, []int32{1}, last(second).Sources)
}

func TestOneToNReplacesPreviousSource(t *testing.T) {
	testlog.Start(t)
	m := linearMatrix(MatrixOneToN, 4, 4)
	apply(t, m, &Connection{Target: 0, Sources: []int32{1}})

	res := apply(t, m, &Connection{Target: 0, Sources: []int32{2}, Operation: Ptr(OperationConnect)})
	require.Len(t, res, 1)
	assert.Equal(t, DispositionModified, *res[0].Disposition)
	assert.Equal(t, []int32{2}, res[0].Sources)
	assert.Empty(t, m.SourceTargets(1))
	assert.Equal(t, []int32{0}, m.SourceTargets(2))
	assert.Equal(t, 1, m.TotalConnections())
}

func TestOneToOneStealsSource(t *testing.T) {
	testlog.Start(t)
	m := linearMatrix(MatrixOneToOne, 4, 4)
	apply(t, m, &Connection{Target: 1, Sources: []int32{2}})
	assert.False(t, m.CanConnect(2, []int32{2}, OperationAbsolute))

	res := apply(t, m, &Connection{Target: 2, Sources: []int32{2}})
	require.Len(t, res, 2)
	assert.Equal(t, int32(1), res[0].Target)
	assert.Equal(t, DispositionModified, *res[0].Disposition)
	assert.Empty(t, res[0].Sources)
	assert.Equal(t, int32(2), res[1].Target)
	assert.Equal(t, DispositionModified, *res[1].Disposition)
	assert.Equal(t, []int32{2}, res[1].Sources)

	assert.Equal(t, []int32{2}, m.SourceTargets(2))
	assert.Empty(t, m.CurrentSources(1))
	assert.Equal(t, 1, m.TotalConnections())
	assert.False(t, m.CanConnect(2, []int32{1, 3}, OperationAbsolute))
}

func TestLockedTargetRejectsEverything(t *testing.T) {
	testlog.Start(t)
	m := linearMatrix(MatrixNToN, 4, 4)
	m.SetSources(0, []int32{1})
	m.Lock(0)

	for _, op := range []Operation{OperationAbsolute, OperationConnect, OperationDisconnect} {
		assert.False(t, m.CanConnect(0, []int32{2}, op), op.String())
		res := apply(t, m, &Connection{Target: 0, Sources: []int32{2}, Operation: Ptr(op)})
		assert.Equal(t, DispositionLocked, *last(res).Disposition)
		assert.Equal(t, []int32{1}, last(res).Sources)
	}

	m.Unlock(0)
	assert.True(t, m.CanConnect(0, []int32{2}, OperationConnect))
}

func TestOneToOneKeepsSourceOfLockedTarget(t *testing.T) {
	testlog.Start(t)
	m := linearMatrix(MatrixOneToOne, 4, 4)
	m.SetSources(0, []int32{1})
	m.Lock(0)

	assert.False(t, m.CanConnect(2, []int32{1}, OperationAbsolute))
	res := apply(t, m, &Connection{Target: 2, Sources: []int32{1}})
	require.Len(t, res, 1)
	assert.Equal(t, int32(2), res[0].Target)
	assert.Equal(t, DispositionTally, *res[0].Disposition)
	assert.Empty(t, res[0].Sources)
	assert.Equal(t, []int32{1}, m.CurrentSources(0))
	assert.True(t, m.IsLocked(0))
	assert.Equal(t, []int32{0}, m.SourceTargets(1))

	res = apply(t, m, &Connection{Target: 2, Sources: []int32{3}})
	assert.Equal(t, DispositionModified, *last(res).Disposition)

	m.Unlock(0)
	res = apply(t, m, &Connection{Target: 2, Sources: []int32{1}})
	require.Len(t, res, 2)
	assert.Equal(t, int32(0), res[0].Target)
	assert.Empty(t, m.CurrentSources(0))
	assert.Equal(t, []int32{1}, m.CurrentSources(2))
}

func TestOneToNLockedNeighbourKeepsSource(t *testing.T) {
	testlog.Start(t)
	m := linearMatrix(MatrixOneToN, 4, 4)
	m.SetSources(0, []int32{1})
	m.Lock(0)

	res := apply(t, m, &Connection{Target: 1, Sources: []int32{1}})
	require.Len(t, res, 1)
	assert.Equal(t, DispositionModified, *res[0].Disposition)
	assert.Equal(t, []int32{0, 1}, m.SourceTargets(1))

	res = apply(t, m, &Connection{Target: 1, Sources: []int32{2}, Operation: Ptr(OperationConnect)})
	require.Len(t, res, 1)
	assert.Equal(t, []int32{2}, res[0].Sources)
	assert.Equal(t, []int32{1}, m.CurrentSources(0))
}

func TestOneToNFallbackSkipsLockedTarget(t *testing.T) {
	testlog.Start(t)
	_, m := defaultSourceTree()
	apply(t, m, &Connection{Target: 0, Sources: []int32{1}})
	apply(t, m, &Connection{Target: 1, Sources: []int32{1}})
	m.Lock(0)

	res := apply(t, m, &Connection{Target: 0, Sources: []int32{1}, Operation: Ptr(OperationDisconnect)})
	assert.Equal(t, DispositionLocked, *last(res).Disposition)
	assert.Equal(t, []int32{1}, m.CurrentSources(0))

	res = apply(t, m, &Connection{Target: 1, Sources: []int32{1}, Operation: Ptr(OperationDisconnect)})
	require.Len(t, res, 1)
	assert.Equal(t, int32(1), res[0].Target)
	assert.Equal(t, []int32{3}, res[0].Sources)
	assert.Equal(t, []int32{1}, m.CurrentSources(0))
	assert.True(t, m.IsLocked(0))
}

func TestNToNLimits(t *testing.T) {
	testlog.Start(t)
	m := linearMatrix(MatrixNToN, 4, 4)
	m.Contents.MaximumConnectsPerTarget = Ptr(int32(2))
	m.Contents.MaximumTotalConnects = Ptr(int32(3))
	m.ConnectSources(0, []int32{0, 1})

	assert.False(t, m.CanConnect(0, []int32{2}, OperationConnect))
	assert.True(t, m.CanConnect(0, []int32{2, 3}, OperationAbsolute))
	assert.False(t, m.CanConnect(1, []int32{0, 1}, OperationAbsolute))
	assert.True(t, m.CanConnect(1, []int32{0}, OperationAbsolute))

	res := apply(t, m, &Connection{Target: 0, Sources: []int32{3}, Operation: Ptr(OperationConnect)})
	assert.Equal(t, DispositionTally, *last(res).Disposition)
	assert.Equal(t, []int32{0, 1}, last(res).Sources)
}

func TestReverseIndexAndTotal(t *testing.T) {
	testlog.Start(t)
	m := linearMatrix(MatrixNToN, 4, 4)
	m.ConnectSources(0, []int32{2, 1, 2})
	m.ConnectSources(1, []int32{2})
	assert.Equal(t, 3, m.TotalConnections())
	assert.Equal(t, []int32{1, 2}, m.Connection(0).Sources)
	assert.Equal(t, []int32{0, 1}, m.SourceTargets(2))

	m.DisconnectSources(0, []int32{2, 3})
	assert.Equal(t, 2, m.TotalConnections())
	assert.Equal(t, []int32{1}, m.Connection(0).Sources)
	assert.Equal(t, []int32{1}, m.SourceTargets(2))
}

func TestDisconnectRequests(t *testing.T) {
	testlog.Start(t)
	m := linearMatrix(MatrixNToN, 4, 4)
	m.ConnectSources(0, []int32{1, 2})

	res := apply(t, m, &Connection{Target: 0, Operation: Ptr(OperationDisconnect)})
	assert.Equal(t, DispositionTally, *last(res).Disposition)

	res = apply(t, m, &Connection{Target: 0, Sources: []int32{3}, Operation: Ptr(OperationDisconnect)})
	assert.Equal(t, DispositionTally, *last(res).Disposition)

	res = apply(t, m, &Connection{Target: 0, Sources: []int32{2, 3}, Operation: Ptr(OperationDisconnect)})
	assert.Equal(t, DispositionModified, *last(res).Disposition)
	assert.Equal(t, []int32{1}, last(res).Sources)

	res = apply(t, m, &Connection{Target: 0, Sources: []int32{}})
	assert.Equal(t, DispositionModified, *last(res).Disposition)
	assert.Empty(t, last(res).Sources)
	assert.Equal(t, 0, m.TotalConnections())
}

func TestApplyRejectsInvalidSignal(t *testing.T) {
	testlog.Start(t)
	m := linearMatrix(MatrixOneToN, 2, 2)
	_, err := m.Apply(&Connection{Target: 5, Sources: []int32{0}})
	assert.ErrorIs(t, err, ErrInvalidMatrixSignal)
	assert.Nil(t, m.Connection(5))
}

func defaultSourceTree() (*Root, *Matrix) {
	root := NewRoot()
	router := NewNode(1)
	m := linearMatrix(MatrixOneToN, 2, 4)
	m.Contents.Labels = []Label{{BasePath: []int32{1, 2}, Description: "primary"}}
	router.AddChild(m)
	labels := NewNode(2)
	router.AddChild(labels)
	defaults := NewNode(3)
	defaults.Contents = &NodeContents{Identifier: Ptr("disconnect sources")}
	for i := int32(0); i < 2; i++ {
		p := NewParameter(i)
		p.Contents = &ParameterContents{Value: ber.IntegerValue(3)}
		defaults.AddChild(p)
	}
	router.AddChild(defaults)
	root.AddChild(router)
	return root, m
}

func TestOneToNDisconnectFallsBackToDefaultSource(t *testing.T) {
	testlog.Start(t)
	_, m := defaultSourceTree()
	s, ok := m.DisconnectSource(0)
	require.True(t, ok)
	assert.Equal(t, int32(3), s)

	apply(t, m, &Connection{Target: 0, Sources: []int32{1}})
	res := apply(t, m, &Connection{Target: 0, Sources: []int32{1}, Operation: Ptr(OperationDisconnect)})
	assert.Equal(t, DispositionModified, *last(res).Disposition)
	assert.Equal(t, []int32{3}, last(res).Sources)

	res = apply(t, m, &Connection{Target: 0, Sources: []int32{3}, Operation: Ptr(OperationDisconnect)})
	assert.Equal(t, DispositionTally, *last(res).Disposition)

	m.DefaultSources = map[int32]int32{0: 2}
	s, ok = m.DisconnectSource(0)
	require.True(t, ok)
	assert.Equal(t, int32(2), s)
	_, ok = m.DisconnectSource(1)
	assert.False(t, ok)
}

func TestMatrixRoundTrip(t *testing.T) {
	testlog.Start(t)
	root := NewRoot()
	m := NewMatrix(7)
	m.Contents = &MatrixContents{
		Identifier:         Ptr("router"),
		Type:               Ptr(MatrixNToN),
		Mode:               Ptr(MatrixNonLinear),
		TargetCount:        Ptr(int32(2)),
		SourceCount:        Ptr(int32(2)),
		ParametersLocation: ber.RelativeOIDValue([]int32{1, 9}),
		Labels:             []Label{{BasePath: []int32{7, 1}, Description: "names"}},
	}
	m.Targets = []int32{10, 20}
	m.Sources = []int32{1, 2}
	m.ConnectSources(10, []int32{1, 2})
	m.ConnectSources(20, []int32{2})
	root.AddChild(m)

	b, err := root.Encode()
	require.NoError(t, err)
	decoded, err := Decode(b)
	require.NoError(t, err)
	got, ok := decoded.GetElementByPath([]int32{7}).(*Matrix)
	require.True(t, ok)
	assert.Equal(t, MatrixNToN, got.Type())
	assert.Equal(t, []int32{10, 20}, got.Targets)
	assert.Equal(t, []int32{1, 2}, got.Sources)
	assert.Equal(t, []int32{1, 2}, got.Connection(10).Sources)
	assert.Equal(t, 3, got.TotalConnections())
	assert.Equal(t, m.Contents.Labels, got.Contents.Labels)
	assert.Equal(t, m.Contents.ParametersLocation, got.Contents.ParametersLocation)

	again, err := decoded.Encode()
	require.NoError(t, err)
	assert.Equal(t, b, again)
}

func TestConnectRequestCarriesOperation(t *testing.T) {
	testlog.Start(t)
	_, m := defaultSourceTree()
	msg := m.ConnectRequest(&Connection{Target: 1, Sources: []int32{2}, Operation: Ptr(OperationConnect)})
	b, err := msg.Encode()
	require.NoError(t, err)

	decoded, err := Decode(b)
	require.NoError(t, err)
	req, ok := decoded.GetElementByPath([]int32{1, 1}).(*Matrix)
	require.True(t, ok)
	assert.Nil(t, req.Contents)
	c := req.Connection(1)
	require.NotNil(t, c)
	assert.Equal(t, OperationConnect, c.OperationOrDefault())
	assert.Equal(t, []int32{2}, c.Sources)
	assert.Nil(t, c.Disposition)
}

func TestMatrixUpdateFromResponse(t *testing.T) {
	testlog.Start(t)
	cached := linearMatrix(MatrixOneToN, 4, 4)
	cached.SetSources(0, []int32{1})

	resp := NewMatrix(1)
	resp.SetConnection(&Connection{Target: 0, Sources: []int32{2}, Disposition: Ptr(DispositionModified)})
	changed, err := cached.Update(resp)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []int32{2}, cached.CurrentSources(0))

	resp = NewMatrix(1)
	resp.SetConnection(&Connection{Target: 0, Sources: []int32{2}, Disposition: Ptr(DispositionLocked)})
	changed, err = cached.Update(resp)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, cached.IsLocked(0))
}
