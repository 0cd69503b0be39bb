package server_test

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/mesh-rooms/mesh-rooms/server"
	"github.com/mesh-rooms/mesh-rooms/server/clock"
	"github.com/mesh-rooms/mesh-rooms/server/identifiers"
	"github.com/mesh-rooms/mesh-rooms/server/message"
	"github.com/mesh-rooms/mesh-rooms/server/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMember also backs the lobby fakes, whose messages arrive from delivery
// goroutines, so access to messages is locked.
type fakeMember struct {
	id   identifiers.ClientID
	name string

	mu       sync.Mutex
	messages []message.Message
	writeErr error
}

func newFakeMember(id identifiers.ClientID, name string) *fakeMember {
	return &fakeMember{id: id, name: name}
}

func (m *fakeMember) ID() identifiers.ClientID {
	return m.id
}

func (m *fakeMember) Name() string {
	return m.name
}

func (m *fakeMember) Write(msg message.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.writeErr != nil {
		return m.writeErr
	}

	m.messages = append(m.messages, msg)

	return nil
}

func (m *fakeMember) Close(reason string) error {
	return nil
}

func (m *fakeMember) byType(t message.Type) []message.Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ret []message.Message

	for _, msg := range m.messages {
		if msg.Type == t {
			ret = append(ret, msg)
		}
	}

	return ret
}

func newTestRoom(t *testing.T, roomID identifiers.RoomID) (*server.Room, *server.MemoryIndex) {
	t.Helper()

	index := server.NewMemoryIndex(clock.NewMock())

	return server.NewRoom(test.NewLogger(), roomID, index), index
}

func TestRoom_Join_sendsMembershipAndAnnounces(t *testing.T) {
	t.Parallel()

	room, _ := newTestRoom(t, "test-room")

	a := newFakeMember("a", "Ada")
	b := newFakeMember("b", "Bob")

	room.Join(a)
	room.Join(b)

	joined := a.byType(message.TypeJoined)
	require.Len(t, joined, 1)
	assert.Equal(t, identifiers.RoomID("test-room"), joined[0].Payload.Joined.RoomID)
	assert.ElementsMatch(t, []message.Member{
		{ClientID: "a", Name: "Ada"},
	}, joined[0].Payload.Joined.Members)

	joined = b.byType(message.TypeJoined)
	require.Len(t, joined, 1)
	assert.ElementsMatch(t, []message.Member{
		{ClientID: "a", Name: "Ada"},
		{ClientID: "b", Name: "Bob"},
	}, joined[0].Payload.Joined.Members)

	announced := a.byType(message.TypeMemberJoined)
	require.Len(t, announced, 1)
	assert.Equal(t, identifiers.ClientID("b"), announced[0].Payload.MemberJoined.ClientID)
	assert.Equal(t, "Bob", announced[0].Payload.MemberJoined.Name)

	assert.Empty(t, b.byType(message.TypeMemberJoined), "joiner must not receive its own announcement")
}

func TestRoom_Relay_opaquePayload(t *testing.T) {
	t.Parallel()

	room, _ := newTestRoom(t, "test-room")

	a := newFakeMember("a", "Ada")
	b := newFakeMember("b", "Bob")

	room.Join(a)
	room.Join(b)

	payload := json.RawMessage(`{"kind":"offer","sdp":{"type":"offer","sdp":"v=0"}}`)

	room.Relay("a", "b", payload)

	signals := b.byType(message.TypeSignal)
	require.Len(t, signals, 1)
	assert.Equal(t, identifiers.ClientID("a"), signals[0].Payload.Signal.From)
	assert.Equal(t, identifiers.ClientID("b"), signals[0].Payload.Signal.To)
	assert.JSONEq(t, string(payload), string(signals[0].Payload.Signal.Payload))
}

func TestRoom_Relay_absentTargetDroppedSilently(t *testing.T) {
	t.Parallel()

	room, _ := newTestRoom(t, "test-room")

	a := newFakeMember("a", "Ada")
	room.Join(a)

	room.Relay("a", "ghost", json.RawMessage(`{"kind":"ice"}`))

	assert.Empty(t, a.byType(message.TypeSignal))
	assert.Empty(t, a.byType(message.TypeError), "sender must not be told about the drop")
}

func TestRoom_Leave_broadcastsOnlyWhenPresent(t *testing.T) {
	t.Parallel()

	room, _ := newTestRoom(t, "test-room")

	a := newFakeMember("a", "Ada")
	b := newFakeMember("b", "Bob")

	room.Join(a)
	room.Join(b)

	room.Leave("b")

	left := a.byType(message.TypeMemberLeft)
	require.Len(t, left, 1)
	assert.Equal(t, identifiers.ClientID("b"), left[0].Payload.MemberLeft.ClientID)

	room.Leave("b")
	assert.Len(t, a.byType(message.TypeMemberLeft), 1, "repeated leave must not broadcast again")

	assert.Equal(t, 1, room.Size())
}

func TestRoom_Join_lastWriteWinsOnReusedClientID(t *testing.T) {
	t.Parallel()

	room, _ := newTestRoom(t, "test-room")

	first := newFakeMember("a", "Ada")
	second := newFakeMember("a", "Ada2")

	room.Join(first)
	room.Join(second)

	assert.Equal(t, 1, room.Size())

	room.Relay("b", "a", json.RawMessage(`{"kind":"ice"}`))

	assert.Empty(t, first.byType(message.TypeSignal))
	assert.Len(t, second.byType(message.TypeSignal), 1)
}

func TestRoom_Broadcast_oneFailedWriteDoesNotAbortOthers(t *testing.T) {
	t.Parallel()

	room, _ := newTestRoom(t, "test-room")

	a := newFakeMember("a", "Ada")
	b := newFakeMember("b", "Bob")
	b.writeErr = assert.AnError
	c := newFakeMember("c", "Cleo")

	room.Join(a)
	room.Join(b)
	room.Join(c)

	room.Leave("a")

	assert.Len(t, c.byType(message.TypeMemberLeft), 1)
}

func TestRoom_indexTracksMemberCount(t *testing.T) {
	t.Parallel()

	room, index := newTestRoom(t, "test-room")

	a := newFakeMember("a", "Ada")
	b := newFakeMember("b", "Bob")

	room.Join(a)
	room.Join(b)

	records, err := index.List(10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 2, records[0].MemberCount)

	room.Leave("a")
	room.Leave("b")

	records, err = index.List(10)
	require.NoError(t, err)
	assert.Empty(t, records, "empty room must be deleted from the index")
}
