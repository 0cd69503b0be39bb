package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/juju/errors"
	"github.com/mesh-rooms/mesh-rooms/server/identifiers"
	"github.com/mesh-rooms/mesh-rooms/server/logger"
	"github.com/mesh-rooms/mesh-rooms/server/message"
	"github.com/mesh-rooms/mesh-rooms/server/multierr"
	"nhooyr.io/websocket"
)

const (
	wsPingInterval = 5 * time.Second
	wsPingTimeout  = 5 * time.Second
)

type roomHandler struct {
	log   logger.Logger
	rooms *RoomManager
}

func newRoomHandler(log logger.Logger, rooms *RoomManager) *roomHandler {
	return &roomHandler{
		log:   log.WithNamespaceAppended("room_handler"),
		rooms: rooms,
	}
}

func (h *roomHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	roomID := identifiers.RoomID(chi.URLParam(r, "roomID"))

	clientID := identifiers.ClientID(r.URL.Query().Get("clientId"))
	if clientID == "" {
		http.Error(w, "clientId is required", http.StatusBadRequest)

		return
	}

	name := r.URL.Query().Get("name")

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		prometheusWSConnErrTotal.Inc()
		h.log.Error("Accept websocket", errors.Trace(err), logger.Ctx{
			"room_id":   roomID,
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
		"room_id":   roomID,
		"client_id": client.ID(),
	})

	log.Info("Websocket connected", nil)

	room := h.rooms.Enter(roomID)
	defer h.rooms.Exit(roomID)

	prometheusRoomJoinTotal.Inc()

	room.Join(client)
	defer room.Leave(client.ID())

	NewPinger(ctx, wsPingInterval, func() {
		pingCtx, pingCancel := context.WithTimeout(ctx, wsPingTimeout)
		defer pingCancel()

		_ = conn.Ping(pingCtx)
	})

	for msg := range client.Subscribe(ctx) {
		if msg.Type != message.TypeSignal || msg.Payload.Signal == nil {
			continue
		}

		room.Relay(client.ID(), msg.Payload.Signal.To, msg.Payload.Signal.Payload)
	}

	if err := closeError(ctx, client.Err()); err != nil {
		log.Error("Websocket closed", errors.Trace(err), nil)

		return
	}

	log.Info("Websocket disconnected", nil)
}

// closeError filters out the errors expected during a clean disconnect.
func closeError(ctx context.Context, err error) error {
	if err == nil || multierr.Is(ctx.Err(), context.Canceled) {
		return nil
	}

	switch websocket.CloseStatus(errors.Cause(err)) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return nil
	}

	return err
}
