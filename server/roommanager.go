package server

import (
	"sync"

	"github.com/mesh-rooms/mesh-rooms/server/identifiers"
)

// NewRoomFunc creates the room actor for roomID on first reference.
type NewRoomFunc func(roomID identifiers.RoomID) *Room

type roomCounter struct {
	count uint64
	room  *Room
}

// RoomManager maps room ids to room actors. An actor is created on first
// Enter and dropped once every Enter has been balanced by an Exit, so idle
// empty rooms do not accumulate.
type RoomManager struct {
	mu      sync.Mutex
	rooms   map[identifiers.RoomID]*roomCounter
	newRoom NewRoomFunc
}

func NewRoomManager(newRoom NewRoomFunc) *RoomManager {
	return &RoomManager{
		rooms:   map[identifiers.RoomID]*roomCounter{},
		newRoom: newRoom,
	}
}

func (m *RoomManager) Enter(roomID identifiers.RoomID) *Room {
	m.mu.Lock()
	defer m.mu.Unlock()

	rc, ok := m.rooms[roomID]
	if ok {
		rc.count++
	} else {
		rc = &roomCounter{
			count: 1,
			room:  m.newRoom(roomID),
		}
		m.rooms[roomID] = rc
	}

	return rc.room
}

func (m *RoomManager) Exit(roomID identifiers.RoomID) (isRemoved bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rc, ok := m.rooms[roomID]
	if !ok {
		return false
	}

	rc.count--

	if rc.count == 0 {
		delete(m.rooms, roomID)

		return true
	}

	return false
}
