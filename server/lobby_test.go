package server_test

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mesh-rooms/mesh-rooms/server"
	"github.com/mesh-rooms/mesh-rooms/server/clock"
	"github.com/mesh-rooms/mesh-rooms/server/identifiers"
	"github.com/mesh-rooms/mesh-rooms/server/message"
	"github.com/mesh-rooms/mesh-rooms/server/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testInitialDelay  = 500 * time.Millisecond
	testRetryInterval = 2 * time.Second
)

type fakeLobbyClient struct {
	*fakeMember
	closed    bool
	reasons   []string
	closeOnce sync.Once
	done      chan struct{}
}

func newFakeLobbyClient(id identifiers.ClientID) *fakeLobbyClient {
	return &fakeLobbyClient{
		fakeMember: newFakeMember(id, strings.ToUpper(string(id))),
		done:       make(chan struct{}),
	}
}

func (c *fakeLobbyClient) Close(reason string) error {
	c.closed = true
	c.reasons = append(c.reasons, reason)

	c.closeOnce.Do(func() {
		close(c.done)
	})

	return nil
}

// match waits for delivery to reach this client, then returns its match.
// Delivery runs on its own goroutine per client, so tests synchronize on the
// close that follows the match message.
func (c *fakeLobbyClient) match(t *testing.T) message.Match {
	t.Helper()

	select {
	case <-c.done:
	case <-time.After(5 * time.Second):
		require.FailNow(t, "timed out waiting for match delivery", "client %s", c.id)
	}

	matches := c.byType(message.TypeMatch)
	require.Len(t, matches, 1, "client %s should have exactly one match", c.id)

	return *matches[0].Payload.Match
}

func newTestLobby(clk clock.Clock, maxGroupSize int) *server.Lobby {
	nextRoom := 0

	return server.NewLobby(server.LobbyParams{
		Log:           test.NewLogger(),
		ID:            server.LobbyKey("study", maxGroupSize),
		MaxGroupSize:  maxGroupSize,
		Clock:         clk,
		InitialDelay:  testInitialDelay,
		RetryInterval: testRetryInterval,
		NewRoomID: func() identifiers.RoomID {
			nextRoom++

			return identifiers.RoomID(fmt.Sprintf("rand-t%07d", nextRoom))
		},
	})
}

func TestLobby_fullGroupMatchesImmediately(t *testing.T) {
	t.Parallel()

	clk := clock.NewMock()
	lobby := newTestLobby(clk, 2)

	a := newFakeLobbyClient("a")
	b := newFakeLobbyClient("b")

	lobby.Join(a)
	assert.Empty(t, a.byType(message.TypeMatch), "a single client must keep waiting")

	lobby.Join(b)

	matchA := a.match(t)
	matchB := b.match(t)

	assert.Equal(t, matchA.RoomID, matchB.RoomID)
	assert.True(t, strings.HasPrefix(string(matchA.RoomID), identifiers.RandRoomPrefix))
	assert.Equal(t, []message.Member{
		{ClientID: "a", Name: "A"},
		{ClientID: "b", Name: "B"},
	}, matchA.Members, "members must be listed in arrival order")

	assert.True(t, a.closed)
	assert.True(t, b.closed)
	assert.Equal(t, 0, lobby.Size())
}

func TestLobby_fifoGroupExtraction(t *testing.T) {
	t.Parallel()

	clk := clock.NewMock()
	lobby := newTestLobby(clk, 4)

	clients := make([]*fakeLobbyClient, 5)
	for i := range clients {
		clients[i] = newFakeLobbyClient(identifiers.ClientID(fmt.Sprintf("c%d", i)))
		lobby.Join(clients[i])
	}

	// The first four form a full group the moment the fourth arrives.
	first := clients[0].match(t)

	for _, c := range clients[:4] {
		assert.Equal(t, first.RoomID, c.match(t).RoomID)
		assert.True(t, c.closed)
	}

	assert.Empty(t, clients[4].byType(message.TypeMatch))
	assert.Equal(t, 1, lobby.Size())
}

func TestLobby_partialGroupMatchedByRetrySweep(t *testing.T) {
	t.Parallel()

	clk := clock.NewMock()
	lobby := newTestLobby(clk, 4)

	a := newFakeLobbyClient("a")
	b := newFakeLobbyClient("b")
	c := newFakeLobbyClient("c")

	lobby.Join(a)
	lobby.Join(b)
	lobby.Join(c)

	assert.Empty(t, a.byType(message.TypeMatch), "partial group must wait for the sweep")
	assert.Equal(t, 3, lobby.Size())

	clk.Add(testInitialDelay)

	match := a.match(t)
	assert.Equal(t, []message.Member{
		{ClientID: "a", Name: "A"},
		{ClientID: "b", Name: "B"},
		{ClientID: "c", Name: "C"},
	}, match.Members)

	assert.Equal(t, 0, lobby.Size())
}

func TestLobby_sweepRearmsWhileClientsRemain(t *testing.T) {
	t.Parallel()

	clk := clock.NewMock()
	lobby := newTestLobby(clk, 4)

	a := newFakeLobbyClient("a")
	lobby.Join(a)

	// A lone client never matches, so the sweep finds nothing and stops.
	clk.Add(testInitialDelay)
	assert.Empty(t, a.byType(message.TypeMatch))

	// Two more arrive. The sweep could not have stayed armed from before, so
	// this verifies the joins re-arm it.
	b := newFakeLobbyClient("b")
	c := newFakeLobbyClient("c")
	lobby.Join(b)
	lobby.Join(c)

	clk.Add(testInitialDelay)

	match := a.match(t)
	require.Len(t, match.Members, 3)

	// No duplicate matches after further time passes.
	clk.Add(10 * testRetryInterval)
	assert.Len(t, a.byType(message.TypeMatch), 1)
}

func TestLobby_leaveBeforeMatchRemovesFromQueue(t *testing.T) {
	t.Parallel()

	clk := clock.NewMock()
	lobby := newTestLobby(clk, 4)

	a := newFakeLobbyClient("a")
	b := newFakeLobbyClient("b")
	c := newFakeLobbyClient("c")

	lobby.Join(a)
	lobby.Join(b)
	lobby.Join(c)

	lobby.Leave("b")
	assert.Equal(t, 2, lobby.Size())

	clk.Add(testInitialDelay)

	match := a.match(t)
	assert.Equal(t, []message.Member{
		{ClientID: "a", Name: "A"},
		{ClientID: "c", Name: "C"},
	}, match.Members)

	assert.Empty(t, b.byType(message.TypeMatch))
	assert.False(t, b.closed)
}

// slowCloseClient blocks inside Close until released, the way a websocket
// close handshake stalls on a peer that is not reading.
type slowCloseClient struct {
	*fakeLobbyClient
	release chan struct{}
}

func (c *slowCloseClient) Close(reason string) error {
	<-c.release

	return c.fakeLobbyClient.Close(reason)
}

func TestLobby_slowCloseDoesNotBlockOtherMatches(t *testing.T) {
	t.Parallel()

	clk := clock.NewMock()
	lobby := newTestLobby(clk, 2)

	a := &slowCloseClient{
		fakeLobbyClient: newFakeLobbyClient("a"),
		release:         make(chan struct{}),
	}
	b := newFakeLobbyClient("b")

	lobby.Join(a)
	lobby.Join(b)

	// a's connection is stuck in its close handshake; b's match must still
	// arrive, and the bucket must keep serving joins meanwhile.
	matchB := b.match(t)
	assert.Equal(t, []message.Member{
		{ClientID: "a", Name: "A"},
		{ClientID: "b", Name: "B"},
	}, matchB.Members)

	c := newFakeLobbyClient("c")
	d := newFakeLobbyClient("d")
	lobby.Join(c)
	lobby.Join(d)

	matchC := c.match(t)
	assert.NotEqual(t, matchB.RoomID, matchC.RoomID)

	close(a.release)

	matchA := a.match(t)
	assert.Equal(t, matchB.RoomID, matchA.RoomID, "the stalled client still belongs to its group")
}

func TestLobby_groupSizeClamp(t *testing.T) {
	t.Parallel()

	assert.Equal(t, server.MinGroupSize, server.ClampGroupSize(0))
	assert.Equal(t, server.MinGroupSize, server.ClampGroupSize(-3))
	assert.Equal(t, 4, server.ClampGroupSize(4))
	assert.Equal(t, server.MaxGroupSize, server.ClampGroupSize(100))
}

func TestLobbyManager_refcount(t *testing.T) {
	t.Parallel()

	lobbies := server.NewLobbyManager(server.LobbyManagerParams{
		Log:           test.NewLogger(),
		Clock:         clock.NewMock(),
		InitialDelay:  testInitialDelay,
		RetryInterval: testRetryInterval,
	})

	lobby1 := lobbies.Enter("study", 4)
	lobby2 := lobbies.Enter("study", 4)
	assert.True(t, lobby1 == lobby2, "same bucket should share one lobby")

	other := lobbies.Enter("study", 3)
	assert.True(t, lobby1 != other, "different group size is a different bucket")

	lobbies.Exit("study", 4)
	lobbies.Exit("study", 4)

	lobby3 := lobbies.Enter("study", 4)
	assert.True(t, lobby1 != lobby3, "bucket should be recreated after it empties")

	// Out-of-range sizes clamp into the same bucket.
	clamped := lobbies.Enter("study", 100)
	assert.True(t, clamped == lobbies.Enter("study", server.MaxGroupSize))
}
