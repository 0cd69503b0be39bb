package server_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mesh-rooms/mesh-rooms/server"
	"github.com/mesh-rooms/mesh-rooms/server/clock"
	"github.com/mesh-rooms/mesh-rooms/server/identifiers"
	"github.com/mesh-rooms/mesh-rooms/server/message"
	"github.com/mesh-rooms/mesh-rooms/server/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
)

const wsTimeout = 10 * time.Second

func setupSignalingServer(t *testing.T) *httptest.Server {
	t.Helper()

	log := test.NewLogger()
	clk := clock.New()
	index := server.NewMemoryIndex(clk)

	rooms := server.NewRoomManager(func(roomID identifiers.RoomID) *server.Room {
		return server.NewRoom(log, roomID, index)
	})

	lobbies := server.NewLobbyManager(server.LobbyManagerParams{
		Log:           log,
		Clock:         clk,
		InitialDelay:  10 * time.Millisecond,
		RetryInterval: 20 * time.Millisecond,
	})

	mux := server.NewMux(log, "v0.0.0", server.Config{}, rooms, lobbies, index)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func wsURL(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

func mustDialWS(t *testing.T, ctx context.Context, url string) *websocket.Conn {
	t.Helper()

	ws, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)

	return ws
}

func mustWriteWS(t *testing.T, ctx context.Context, ws *websocket.Conn, msg message.Message) {
	t.Helper()

	data, err := json.Marshal(msg)
	require.NoError(t, err)

	require.NoError(t, ws.Write(ctx, websocket.MessageText, data))
}

func mustReadWS(t *testing.T, ctx context.Context, ws *websocket.Conn) message.Message {
	t.Helper()

	messageType, data, err := ws.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, websocket.MessageText, messageType)

	var msg message.Message
	require.NoError(t, json.Unmarshal(data, &msg))

	return msg
}

// readUntil skips messages until one of the wanted type arrives. Broadcasts
// from concurrent joins make the exact interleaving nondeterministic.
func readUntil(t *testing.T, ctx context.Context, ws *websocket.Conn, want message.Type) message.Message {
	t.Helper()

	for {
		msg := mustReadWS(t, ctx, ws)
		if msg.Type == want {
			return msg
		}
	}
}

func TestWS_room_joinRelayLeave(t *testing.T) {
	srv := setupSignalingServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), wsTimeout)
	defer cancel()

	wsA := mustDialWS(t, ctx, wsURL(srv, "/ws/room/test-room?clientId=a&name=Ada"))
	defer wsA.Close(websocket.StatusNormalClosure, "")

	joined := mustReadWS(t, ctx, wsA)
	require.Equal(t, message.TypeJoined, joined.Type)
	assert.Equal(t, identifiers.RoomID("test-room"), joined.Payload.Joined.RoomID)
	assert.ElementsMatch(t, []message.Member{
		{ClientID: "a", Name: "Ada"},
	}, joined.Payload.Joined.Members)

	wsB := mustDialWS(t, ctx, wsURL(srv, "/ws/room/test-room?clientId=b&name=Bob"))

	joined = mustReadWS(t, ctx, wsB)
	require.Equal(t, message.TypeJoined, joined.Type)
	assert.ElementsMatch(t, []message.Member{
		{ClientID: "a", Name: "Ada"},
		{ClientID: "b", Name: "Bob"},
	}, joined.Payload.Joined.Members)

	memberJoined := readUntil(t, ctx, wsA, message.TypeMemberJoined)
	assert.Equal(t, identifiers.ClientID("b"), memberJoined.Payload.MemberJoined.ClientID)

	// Relay from b to a. The payload must come through untouched, with the
	// sender filled in by the server.
	payload := `{"kind":"offer","sdp":{"type":"offer","sdp":"v=0"}}`

	mustWriteWS(t, ctx, wsB, message.NewSignal("", "a", json.RawMessage(payload)))

	signal := readUntil(t, ctx, wsA, message.TypeSignal)
	assert.Equal(t, identifiers.ClientID("b"), signal.Payload.Signal.From)
	assert.Equal(t, identifiers.ClientID("a"), signal.Payload.Signal.To)
	assert.JSONEq(t, payload, string(signal.Payload.Signal.Payload))

	// Relay to an absent member must not error out the sender connection.
	mustWriteWS(t, ctx, wsB, message.NewSignal("", "ghost", json.RawMessage(`{"kind":"ice"}`)))

	// Malformed frames are dropped without killing the connection.
	require.NoError(t, wsB.Write(ctx, websocket.MessageText, []byte("{not json")))

	require.NoError(t, wsB.Close(websocket.StatusNormalClosure, ""))

	memberLeft := readUntil(t, ctx, wsA, message.TypeMemberLeft)
	assert.Equal(t, identifiers.ClientID("b"), memberLeft.Payload.MemberLeft.ClientID)
}

func TestWS_random_matchesTwoClients(t *testing.T) {
	srv := setupSignalingServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), wsTimeout)
	defer cancel()

	wsA := mustDialWS(t, ctx, wsURL(srv, "/ws/random?clientId=a&name=Ada&max=2"))
	defer wsA.Close(websocket.StatusNormalClosure, "")

	wsB := mustDialWS(t, ctx, wsURL(srv, "/ws/random?clientId=b&name=Bob&max=2"))
	defer wsB.Close(websocket.StatusNormalClosure, "")

	matchA := readUntil(t, ctx, wsA, message.TypeMatch)
	matchB := readUntil(t, ctx, wsB, message.TypeMatch)

	require.NotNil(t, matchA.Payload.Match)
	require.NotNil(t, matchB.Payload.Match)

	roomID := matchA.Payload.Match.RoomID
	assert.Equal(t, roomID, matchB.Payload.Match.RoomID)
	assert.True(t, strings.HasPrefix(string(roomID), identifiers.RandRoomPrefix))
	assert.ElementsMatch(t, []message.Member{
		{ClientID: "a", Name: "Ada"},
		{ClientID: "b", Name: "Bob"},
	}, matchA.Payload.Match.Members)

	// The lobby closes matched connections; both its clients can now join the
	// room they were pointed at.
	wsRoomA := mustDialWS(t, ctx, wsURL(srv, "/ws/room/"+string(roomID)+"?clientId=a&name=Ada"))
	defer wsRoomA.Close(websocket.StatusNormalClosure, "")

	joined := mustReadWS(t, ctx, wsRoomA)
	require.Equal(t, message.TypeJoined, joined.Type)
	assert.Equal(t, roomID, joined.Payload.Joined.RoomID)
}

func TestWS_random_partialGroupMatchesAfterDelay(t *testing.T) {
	srv := setupSignalingServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), wsTimeout)
	defer cancel()

	wsA := mustDialWS(t, ctx, wsURL(srv, "/ws/random?clientId=a&name=Ada&max=4"))
	defer wsA.Close(websocket.StatusNormalClosure, "")

	wsB := mustDialWS(t, ctx, wsURL(srv, "/ws/random?clientId=b&name=Bob&max=4"))
	defer wsB.Close(websocket.StatusNormalClosure, "")

	// Two of four: matched by the retry sweep, not immediately.
	matchA := readUntil(t, ctx, wsA, message.TypeMatch)
	require.Len(t, matchA.Payload.Match.Members, 2)
}
