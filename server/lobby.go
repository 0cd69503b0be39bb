package server

import (
	"sync"
	"time"

	"github.com/mesh-rooms/mesh-rooms/server/clock"
	"github.com/mesh-rooms/mesh-rooms/server/identifiers"
	"github.com/mesh-rooms/mesh-rooms/server/logger"
	"github.com/mesh-rooms/mesh-rooms/server/message"
	"github.com/pion/randutil"
)

// LobbyClient is the connection handle a Lobby holds per waiting client.
type LobbyClient interface {
	ID() identifiers.ClientID
	Name() string
	Write(msg message.Message) error
	Close(reason string) error
}

const randRoomIDLength = 8

const randRoomIDRunes = "abcdefghijklmnopqrstuvwxyz0123456789"

// NewRandRoomID mints a fresh matchmaking-origin room identifier.
func NewRandRoomID() identifiers.RoomID {
	suffix, err := randutil.GenerateCryptoRandomString(randRoomIDLength, randRoomIDRunes)
	if err != nil {
		suffix = randutil.NewMathRandomGenerator().GenerateString(randRoomIDLength, randRoomIDRunes)
	}

	return identifiers.RoomID(identifiers.RandRoomPrefix + suffix)
}

// Lobby batches clients waiting for the same (topic, maxGroupSize) bucket
// into freshly minted rooms. A join extracts full groups immediately; a
// delayed retry sweep guarantees progress when more than one but fewer than
// maxGroupSize clients are waiting. The queue is strictly FIFO.
//
// All state is serialized by one mutex; the retry timer callback re-enters
// the same serialized context as ordinary joins.
type Lobby struct {
	log          logger.Logger
	id           identifiers.LobbyID
	maxGroupSize int

	clk           clock.Clock
	initialDelay  time.Duration
	retryInterval time.Duration
	newRoomID     func() identifiers.RoomID

	mu         sync.Mutex
	queue      []LobbyClient
	retryTimer clock.Timer
}

// LobbyParams configures a Lobby.
type LobbyParams struct {
	Log          logger.Logger
	ID           identifiers.LobbyID
	MaxGroupSize int

	Clock         clock.Clock
	InitialDelay  time.Duration
	RetryInterval time.Duration

	// NewRoomID overrides room id minting. Defaults to NewRandRoomID.
	NewRoomID func() identifiers.RoomID
}

func NewLobby(params LobbyParams) *Lobby {
	if params.NewRoomID == nil {
		params.NewRoomID = NewRandRoomID
	}

	return &Lobby{
		log: params.Log.WithNamespaceAppended("lobby").WithCtx(logger.Ctx{
			"lobby_id": params.ID,
		}),
		id:            params.ID,
		maxGroupSize:  params.MaxGroupSize,
		clk:           params.Clock,
		initialDelay:  params.InitialDelay,
		retryInterval: params.RetryInterval,
		newRoomID:     params.NewRoomID,
	}
}

func (l *Lobby) ID() identifiers.LobbyID {
	return l.id
}

// Join appends the client to the waiting queue and immediately extracts any
// full groups. When at least two clients remain queued afterwards, a retry
// sweep is scheduled: after a bounded wait the lobby settles for a partial
// group instead of blocking forever on a full one.
func (l *Lobby) Join(client LobbyClient) {
	l.mu.Lock()

	l.queue = append(l.queue, client)

	l.log.Info("Queued", logger.Ctx{
		"client_id": client.ID(),
		"waiting":   len(l.queue),
	})

	groups := l.matchLocked(l.maxGroupSize)

	if len(l.queue) >= 2 {
		l.armRetryLocked(l.initialDelay)
	}

	l.mu.Unlock()

	l.deliver(groups)
}

// Leave removes a waiting client that disconnected before being matched.
func (l *Lobby) Leave(clientID identifiers.ClientID) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, client := range l.queue {
		if client.ID() == clientID {
			l.queue = append(l.queue[:i], l.queue[i+1:]...)

			l.log.Info("Dequeued", logger.Ctx{
				"client_id": clientID,
				"waiting":   len(l.queue),
			})

			return
		}
	}
}

// Size returns the number of waiting clients.
func (l *Lobby) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.queue)
}

// matchGroup is one extracted group awaiting delivery of its match message.
type matchGroup struct {
	msg     message.Message
	clients []LobbyClient
}

// matchLocked extracts groups of at least minSize clients, in strict arrival
// order, capped at maxGroupSize. Immediate matching passes maxGroupSize so
// only full groups leave right away; the retry sweep passes 2 to settle for
// partial groups. Extracted groups are returned for delivery rather than
// written here: callers hold l.mu, and a blocked connection must not freeze
// the bucket. Callers must hold l.mu.
func (l *Lobby) matchLocked(minSize int) []matchGroup {
	var groups []matchGroup

	for len(l.queue) >= minSize {
		take := l.maxGroupSize
		if take > len(l.queue) {
			take = len(l.queue)
		}

		group := l.queue[:take]
		l.queue = l.queue[take:]

		roomID := l.newRoomID()

		members := make([]message.Member, len(group))
		for i, client := range group {
			members[i] = message.Member{
				ClientID: client.ID(),
				Name:     client.Name(),
			}
		}

		l.log.Info("Matched group", logger.Ctx{
			"room_id": roomID,
			"size":    len(group),
		})

		prometheusLobbyMatchTotal.Inc()

		groups = append(groups, matchGroup{
			msg:     message.NewMatch(roomID, members),
			clients: append([]LobbyClient(nil), group...),
		})
	}

	return groups
}

// deliver writes the match messages and closes the matched connections,
// outside the lobby mutex. The websocket close handshake can block for
// seconds on a peer that is not reading, so every client gets its own
// goroutine and a stuck connection never delays the rest of its group.
func (l *Lobby) deliver(groups []matchGroup) {
	for _, group := range groups {
		for _, client := range group.clients {
			go l.deliverTo(client, group.msg)
		}
	}
}

func (l *Lobby) deliverTo(client LobbyClient, msg message.Message) {
	if err := client.Write(msg); err != nil {
		l.log.Error("Send match", err, logger.Ctx{
			"client_id": client.ID(),
		})
	}

	if err := client.Close("matched"); err != nil {
		l.log.Debug("Close matched client", logger.Ctx{
			"client_id": client.ID(),
			"error":     err.Error(),
		})
	}
}

// retrySweep is the timer callback. It is idempotent and re-arms itself as
// long as at least two clients remain queued.
func (l *Lobby) retrySweep() {
	l.mu.Lock()

	l.retryTimer = nil

	groups := l.matchLocked(2)

	if len(l.queue) >= 2 {
		l.armRetryLocked(l.retryInterval)
	}

	l.mu.Unlock()

	l.deliver(groups)
}

// armRetryLocked schedules a retry sweep unless one is already pending.
// Callers must hold l.mu.
func (l *Lobby) armRetryLocked(delay time.Duration) {
	if l.retryTimer != nil {
		return
	}

	l.retryTimer = l.clk.AfterFunc(delay, l.retrySweep)
}
