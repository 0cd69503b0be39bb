package identifiers

import (
	"sort"
	"strings"
)

// RoomID names one room. Rooms created by the matchmaking lobby carry the
// RandRoomPrefix; direct one-to-one calls carry the DMRoomPrefix; everything
// else is a user-named room.
type RoomID string

// ClientID is the opaque identifier the client supplied when connecting.
type ClientID string

// LobbyID names one matchmaking bucket (topic plus group size).
type LobbyID string

func (r RoomID) String() string {
	return string(r)
}

func (c ClientID) String() string {
	return string(c)
}

func (l LobbyID) String() string {
	return string(l)
}

const (
	DMRoomPrefix   = "dm-"
	RandRoomPrefix = "rand-"
)

// RoomKind classifies a room by its identifier prefix.
type RoomKind string

const (
	RoomKindDM   RoomKind = "dm"
	RoomKindRand RoomKind = "rand"
	RoomKindRoom RoomKind = "room"
)

// Kind returns the RoomKind derived from the identifier prefix.
func (r RoomID) Kind() RoomKind {
	switch {
	case strings.HasPrefix(string(r), DMRoomPrefix):
		return RoomKindDM
	case strings.HasPrefix(string(r), RandRoomPrefix):
		return RoomKindRand
	default:
		return RoomKindRoom
	}
}

type ClientIDs []ClientID

var _ sort.Interface = ClientIDs(nil)

func (c ClientIDs) Len() int {
	return len(c)
}

func (c ClientIDs) Less(i, j int) bool {
	return c[i] < c[j]
}

func (c ClientIDs) Swap(i, j int) {
	c[i], c[j] = c[j], c[i]
}
