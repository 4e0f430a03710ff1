package app

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/metrics"
	"live-quiz-service/internal/protocol"
)

type stubConn struct {
	id   string
	fail bool

	mu     sync.Mutex
	sent   [][]byte
	closed bool
}

func (c *stubConn) ID() string { return c.id }

func (c *stubConn) Send(msg []byte) error {
	if c.fail {
		return errors.New("queue full")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return nil
}

func (c *stubConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *stubConn) received() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

func TestRegistryBindings(t *testing.T) {
	r := NewRegistry()
	a, b := &stubConn{id: "a"}, &stubConn{id: "b"}
	r.Register(a)
	r.Register(a)
	r.Register(b)

	conns, sessions := r.Stats()
	require.Equal(t, 2, conns)
	require.Zero(t, sessions)

	r.Bind(a, "111111", "p1")
	r.Bind(b, "111111", domain.HostID)
	require.ElementsMatch(t, []Conn{a, b}, r.ConnectionsFor("111111"))

	// rebinding moves the connection
	r.Bind(a, "222222", "p9")
	require.Equal(t, []Conn{b}, r.ConnectionsFor("111111"))
	got, ok := r.Lookup(a)
	require.True(t, ok)
	require.Equal(t, Binding{Code: "222222", Participant: "p9"}, got)

	_, sessions = r.Stats()
	require.Equal(t, 2, sessions)

	prev, ok := r.Unbind(a)
	require.True(t, ok)
	require.Equal(t, domain.SessionCode("222222"), prev.Code)
	_, ok = r.Lookup(a)
	require.False(t, ok)
	conns, sessions = r.Stats()
	require.Equal(t, 2, conns)
	require.Equal(t, 1, sessions)

	prev, ok = r.Deregister(b)
	require.True(t, ok)
	require.True(t, prev.Participant.IsHost())
	_, ok = r.Deregister(b)
	require.False(t, ok)
	require.Empty(t, r.ConnectionsFor("111111"))
}

func TestRegistryConnectionsForIsACopy(t *testing.T) {
	r := NewRegistry()
	a := &stubConn{id: "a"}
	r.Register(a)
	r.Bind(a, "111111", "p1")

	conns := r.ConnectionsFor("111111")
	r.Deregister(a)
	require.Len(t, conns, 1)
	require.Empty(t, r.ConnectionsFor("111111"))
}

func TestRegistryBoundTracksEveryConnectionOfAnIdentity(t *testing.T) {
	r := NewRegistry()
	a, b, c := &stubConn{id: "a"}, &stubConn{id: "b"}, &stubConn{id: "c"}
	for _, conn := range []*stubConn{a, b, c} {
		r.Register(conn)
	}
	r.Bind(a, "111111", "p1")
	r.Bind(b, "111111", "p1")
	r.Bind(c, "222222", "p1")
	require.True(t, r.Bound("111111", "p1"))
	require.False(t, r.Bound("111111", "p2"))

	r.Deregister(a)
	require.True(t, r.Bound("111111", "p1"))
	r.Unbind(b)
	require.False(t, r.Bound("111111", "p1"))
	require.True(t, r.Bound("222222", "p1"))
}

func TestDispatcherSkipsAndDropsFailedConnections(t *testing.T) {
	r := NewRegistry()
	host := &stubConn{id: "host"}
	ok1 := &stubConn{id: "ok1"}
	bad := &stubConn{id: "bad", fail: true}
	ok2 := &stubConn{id: "ok2"}
	for i, c := range []*stubConn{host, ok1, bad, ok2} {
		r.Register(c)
		id := domain.ParticipantID(c.id)
		if i == 0 {
			id = domain.HostID
		}
		r.Bind(c, "111111", id)
	}
	other := &stubConn{id: "other"}
	r.Register(other)
	r.Bind(other, "999999", "p")

	var dropped []Conn
	d := NewDispatcher(r, metrics.NewNop(), func(c Conn) { dropped = append(dropped, c) })

	env := protocol.New(protocol.TypeHostLeft, protocol.HostLeft{Message: "bye", SessionCode: "111111"})
	sent := d.BroadcastExcept("111111", env, host)
	require.Equal(t, 2, sent)
	require.Zero(t, host.received())
	require.Equal(t, 1, ok1.received())
	require.Equal(t, 1, ok2.received())
	require.Zero(t, other.received())
	require.Equal(t, []Conn{bad}, dropped)

	require.Error(t, d.SendTo(bad, env))
	require.Len(t, dropped, 2)
	require.NoError(t, d.SendTo(host, env))
	require.Equal(t, 1, host.received())
}

func TestDispatcherDefaultDropCloses(t *testing.T) {
	r := NewRegistry()
	bad := &stubConn{id: "bad", fail: true}
	r.Register(bad)
	r.Bind(bad, "111111", "p1")

	d := NewDispatcher(r, metrics.NewNop(), nil)
	require.Zero(t, d.Broadcast("111111", protocol.New(protocol.TypeScoreUpdate, protocol.ScoreUpdate{})))
	require.True(t, bad.closed)
}
