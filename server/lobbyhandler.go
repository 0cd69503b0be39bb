package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/juju/errors"
	"github.com/mesh-rooms/mesh-rooms/server/identifiers"
	"github.com/mesh-rooms/mesh-rooms/server/logger"
	"nhooyr.io/websocket"
)

const defaultLobbyTopic = "study"

const defaultLobbyGroupSize = 4

type lobbyHandler struct {
	log     logger.Logger
	lobbies *LobbyManager
}

func newLobbyHandler(log logger.Logger, lobbies *LobbyManager) *lobbyHandler {
	return &lobbyHandler{
		log:     log.WithNamespaceAppended("lobby_handler"),
		lobbies: lobbies,
	}
}

func (h *lobbyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	clientID := identifiers.ClientID(r.URL.Query().Get("clientId"))
	if clientID == "" {
		http.Error(w, "clientId is required", http.StatusBadRequest)

		return
	}

	name := r.URL.Query().Get("name")

	topic := r.URL.Query().Get("topic")
	if topic == "" {
		topic = defaultLobbyTopic
	}

	maxGroupSize := defaultLobbyGroupSize

	if value, err := strconv.Atoi(r.URL.Query().Get("max")); err == nil {
		maxGroupSize = value
	}

	maxGroupSize = ClampGroupSize(maxGroupSize)

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		prometheusWSConnErrTotal.Inc()
		h.log.Error("Accept websocket", errors.Trace(err), logger.Ctx{
			"client_id": clientID,
		})

		return
	}

	prometheusWSConnTotal.Inc()
	prometheusWSConnActive.Inc()
	start := time.Now()

	defer func() {
		prometheusWSConnActive.Dec()
		prometheusWSConnDuration.Observe(time.Since(start).Seconds())
	}()

	defer conn.Close(websocket.StatusInternalError, "")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	client := NewClientWithID(conn, clientID, name)

	log := h.log.WithCtx(logger.Ctx{
		"client_id": client.ID(),
		"topic":     topic,
		"max":       maxGroupSize,
	})

	log.Info("Lobby websocket connected", nil)

	lobby := h.lobbies.Enter(topic, maxGroupSize)
	defer h.lobbies.Exit(topic, maxGroupSize)

	prometheusLobbyJoinTotal.Inc()

	lobby.Join(client)
	defer lobby.Leave(client.ID())

	NewPinger(ctx, wsPingInterval, func() {
		pingCtx, pingCancel := context.WithTimeout(ctx, wsPingTimeout)
		defer pingCancel()

		_ = conn.Ping(pingCtx)
	})

	// Waiting clients send nothing meaningful. Drain until the connection
	// ends, either because the client gave up or because a match closed it.
	for range client.Subscribe(ctx) {
	}

	if err := closeError(ctx, client.Err()); err != nil {
		log.Error("Lobby websocket closed", errors.Trace(err), nil)

		return
	}

	log.Info("Lobby websocket disconnected", nil)
}
