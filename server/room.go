package server

import (
	"encoding/json"
	"sync"

	"github.com/mesh-rooms/mesh-rooms/server/identifiers"
	"github.com/mesh-rooms/mesh-rooms/server/logger"
	"github.com/mesh-rooms/mesh-rooms/server/message"
	"github.com/mesh-rooms/mesh-rooms/server/multierr"
)

// ClientWriter is the connection handle a Room holds per member.
type ClientWriter interface {
	ID() identifiers.ClientID
	Name() string
	Write(msg message.Message) error
}

// Room owns the membership list and the message relay for exactly one room.
// All mutations are serialized by a single mutex, so no two membership
// changes for the same room ever interleave. Different rooms are fully
// independent.
type Room struct {
	log   logger.Logger
	id    identifiers.RoomID
	index RoomIndex

	mu      sync.Mutex
	members map[identifiers.ClientID]ClientWriter
}

func NewRoom(log logger.Logger, roomID identifiers.RoomID, index RoomIndex) *Room {
	return &Room{
		log: log.WithNamespaceAppended("room").WithCtx(logger.Ctx{
			"room_id": roomID,
		}),
		id:      roomID,
		index:   index,
		members: map[identifiers.ClientID]ClientWriter{},
	}
}

func (r *Room) ID() identifiers.RoomID {
	return r.id
}

// Join registers the member, sends it the current full membership list and
// announces the new member to everyone else. Last write wins when a client
// id is reused.
func (r *Room) Join(client ClientWriter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	clientID := client.ID()
	r.members[clientID] = client

	r.log.Info("Join", logger.Ctx{
		"client_id": clientID,
		"size":      len(r.members),
	})

	members := make([]message.Member, 0, len(r.members))
	for id, m := range r.members {
		members = append(members, message.Member{
			ClientID: id,
			Name:     m.Name(),
		})
	}

	if err := client.Write(message.NewJoined(r.id, members)); err != nil {
		r.log.Error("Send joined", err, logger.Ctx{
			"client_id": clientID,
		})
	}

	r.broadcast(message.NewMemberJoined(clientID, client.Name()), clientID)

	r.updateIndex()
}

// Relay forwards an opaque payload to the named member. The payload is never
// inspected. Relaying to an absent member is a silent no-op: the room is a
// best-effort delivery system, not a guaranteed-delivery bus.
func (r *Room) Relay(from, to identifiers.ClientID, payload json.RawMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()

	dest, ok := r.members[to]
	if !ok {
		prometheusRelayDroppedTotal.Inc()

		r.log.Debug("Relay to absent member dropped", logger.Ctx{
			"client_id":        from,
			"target_client_id": to,
		})

		return
	}

	prometheusRelayTotal.Inc()

	if err := dest.Write(message.NewSignal(from, to, payload)); err != nil {
		r.log.Error("Relay write", err, logger.Ctx{
			"client_id":        from,
			"target_client_id": to,
		})
	}
}

// Leave removes the member if present, announces the departure to the rest
// of the room and reports the new member count to the index.
func (r *Room) Leave(clientID identifiers.ClientID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[clientID]; !ok {
		return
	}

	delete(r.members, clientID)

	r.log.Info("Leave", logger.Ctx{
		"client_id": clientID,
		"size":      len(r.members),
	})

	r.broadcast(message.NewMemberLeft(clientID), clientID)

	r.updateIndex()
}

// Size returns the current member count.
func (r *Room) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.members)
}

// broadcast sends msg to every member except exceptID. A failed write to one
// member never aborts delivery to the others. Callers must hold r.mu.
func (r *Room) broadcast(msg message.Message, exceptID identifiers.ClientID) {
	errs := multierr.New()

	for id, member := range r.members {
		if id == exceptID {
			continue
		}

		errs.Add(member.Write(msg))
	}

	if err := errs.Err(); err != nil {
		r.log.Error("Broadcast", err, logger.Ctx{
			"message_type": msg.Type,
		})
	}
}

// updateIndex reports the current member count. Index failures are logged
// and ignored: they must never prevent join/leave processing. Callers must
// hold r.mu.
func (r *Room) updateIndex() {
	if err := r.index.Upsert(r.id, len(r.members)); err != nil {
		r.log.Warn("Index upsert failed", logger.Ctx{
			"error": err.Error(),
		})
	}
}
