package server

import (
	"fmt"
	"sync"
	"time"

	"github.com/mesh-rooms/mesh-rooms/server/clock"
	"github.com/mesh-rooms/mesh-rooms/server/identifiers"
	"github.com/mesh-rooms/mesh-rooms/server/logger"
)

const (
	// MinGroupSize and MaxGroupSize bound the requested matchmaking group
	// size. Requests outside the range are clamped, never rejected.
	MinGroupSize = 2
	MaxGroupSize = 6
)

// ClampGroupSize clamps max to [MinGroupSize, MaxGroupSize].
func ClampGroupSize(max int) int {
	if max < MinGroupSize {
		return MinGroupSize
	}

	if max > MaxGroupSize {
		return MaxGroupSize
	}

	return max
}

// LobbyKey derives the bucket identifier for a topic and group size. One
// lobby actor owns one bucket.
func LobbyKey(topic string, maxGroupSize int) identifiers.LobbyID {
	return identifiers.LobbyID(fmt.Sprintf("topic:%s:max:%d", topic, maxGroupSize))
}

type lobbyCounter struct {
	count uint64
	lobby *Lobby
}

// LobbyManagerParams configures the lobbies created by a LobbyManager.
type LobbyManagerParams struct {
	Log           logger.Logger
	Clock         clock.Clock
	InitialDelay  time.Duration
	RetryInterval time.Duration
}

// LobbyManager maps matchmaking buckets to lobby actors, creating them on
// first reference, with the same enter/exit refcounting as RoomManager.
type LobbyManager struct {
	params LobbyManagerParams

	mu      sync.Mutex
	lobbies map[identifiers.LobbyID]*lobbyCounter
}

func NewLobbyManager(params LobbyManagerParams) *LobbyManager {
	return &LobbyManager{
		params:  params,
		lobbies: map[identifiers.LobbyID]*lobbyCounter{},
	}
}

func (m *LobbyManager) Enter(topic string, maxGroupSize int) *Lobby {
	maxGroupSize = ClampGroupSize(maxGroupSize)
	key := LobbyKey(topic, maxGroupSize)

	m.mu.Lock()
	defer m.mu.Unlock()

	lc, ok := m.lobbies[key]
	if ok {
		lc.count++
	} else {
		lc = &lobbyCounter{
			count: 1,
			lobby: NewLobby(LobbyParams{
				Log:           m.params.Log,
				ID:            key,
				MaxGroupSize:  maxGroupSize,
				Clock:         m.params.Clock,
				InitialDelay:  m.params.InitialDelay,
				RetryInterval: m.params.RetryInterval,
			}),
		}
		m.lobbies[key] = lc
	}

	return lc.lobby
}

func (m *LobbyManager) Exit(topic string, maxGroupSize int) (isRemoved bool) {
	key := LobbyKey(topic, ClampGroupSize(maxGroupSize))

	m.mu.Lock()
	defer m.mu.Unlock()

	lc, ok := m.lobbies[key]
	if !ok {
		return false
	}

	lc.count--

	if lc.count == 0 {
		delete(m.lobbies, key)

		return true
	}

	return false
}
