package message

import (
	"encoding/json"

	"github.com/mesh-rooms/mesh-rooms/server/identifiers"
)

// Type tags every message exchanged over a signaling connection.
type Type string

const (
	// TypeJoined is sent to a client right after it joins a room and carries
	// the full membership list, including the client itself.
	TypeJoined Type = "joined"

	// TypeMemberJoined is broadcast to the other members of a room when a new
	// client joins.
	TypeMemberJoined Type = "member_joined"

	// TypeMemberLeft is broadcast to the remaining members of a room when a
	// client leaves.
	TypeMemberLeft Type = "member_left"

	// TypeMatch is sent to every client of a newly formed matchmaking group.
	TypeMatch Type = "match"

	// TypeSignal relays an opaque payload between two members of a room. The
	// server never interprets the payload.
	TypeSignal Type = "signal"

	// TypeError reports a server-side problem to the client.
	TypeError Type = "error"
)

// Member is one room or match participant as seen on the wire.
type Member struct {
	ClientID identifiers.ClientID `json:"clientId"`
	Name     string               `json:"name"`
}

type Joined struct {
	RoomID  identifiers.RoomID `json:"roomId"`
	Members []Member           `json:"members"`
}

type MemberJoined struct {
	ClientID identifiers.ClientID `json:"clientId"`
	Name     string               `json:"name"`
}

type MemberLeft struct {
	ClientID identifiers.ClientID `json:"clientId"`
}

type Match struct {
	RoomID  identifiers.RoomID `json:"roomId"`
	Members []Member           `json:"members"`
}

// Signal is an opaque relay envelope. From is filled in by the server on the
// way out; clients only set To and Payload.
type Signal struct {
	From    identifiers.ClientID `json:"from,omitempty"`
	To      identifiers.ClientID `json:"to"`
	Payload json.RawMessage      `json:"payload"`
}

type Error struct {
	Message string `json:"message"`
}

// Message is a single signaling message. Exactly one payload field is set,
// matching Type.
type Message struct {
	Type    Type
	Payload Payload
}

// Payload holds exactly one of the possible payloads, depending on the
// message type.
type Payload struct {
	Joined       *Joined
	MemberJoined *MemberJoined
	MemberLeft   *MemberLeft
	Match        *Match
	Signal       *Signal
	Error        *Error
}

func NewJoined(roomID identifiers.RoomID, members []Member) Message {
	return Message{
		Type: TypeJoined,
		Payload: Payload{
			Joined: &Joined{
				RoomID:  roomID,
				Members: members,
			},
		},
	}
}

func NewMemberJoined(clientID identifiers.ClientID, name string) Message {
	return Message{
		Type: TypeMemberJoined,
		Payload: Payload{
			MemberJoined: &MemberJoined{
				ClientID: clientID,
				Name:     name,
			},
		},
	}
}

func NewMemberLeft(clientID identifiers.ClientID) Message {
	return Message{
		Type: TypeMemberLeft,
		Payload: Payload{
			MemberLeft: &MemberLeft{
				ClientID: clientID,
			},
		},
	}
}

func NewMatch(roomID identifiers.RoomID, members []Member) Message {
	return Message{
		Type: TypeMatch,
		Payload: Payload{
			Match: &Match{
				RoomID:  roomID,
				Members: members,
			},
		},
	}
}

func NewSignal(from, to identifiers.ClientID, payload json.RawMessage) Message {
	return Message{
		Type: TypeSignal,
		Payload: Payload{
			Signal: &Signal{
				From:    from,
				To:      to,
				Payload: payload,
			},
		},
	}
}

func NewError(msg string) Message {
	return Message{
		Type: TypeError,
		Payload: Payload{
			Error: &Error{
				Message: msg,
			},
		},
	}
}
