package message

import (
	"encoding/json"

	"github.com/juju/errors"
)

var ErrUnknownMessageType = errors.New("unknown message type")

// Messages travel as flat JSON objects tagged by a "type" field, for example:
//
//	{"type":"member_joined","clientId":"c1","name":"Ada"}
//
// The embedded pointer in each envelope flattens the payload fields next to
// the type tag.

func (m Message) MarshalJSON() ([]byte, error) {
	type envelope struct {
		Type Type `json:"type"`
	}

	var (
		b   []byte
		err error
	)

	switch m.Type {
	case TypeJoined:
		b, err = json.Marshal(struct {
			envelope
			*Joined
		}{envelope{m.Type}, m.Payload.Joined})
	case TypeMemberJoined:
		b, err = json.Marshal(struct {
			envelope
			*MemberJoined
		}{envelope{m.Type}, m.Payload.MemberJoined})
	case TypeMemberLeft:
		b, err = json.Marshal(struct {
			envelope
			*MemberLeft
		}{envelope{m.Type}, m.Payload.MemberLeft})
	case TypeMatch:
		b, err = json.Marshal(struct {
			envelope
			*Match
		}{envelope{m.Type}, m.Payload.Match})
	case TypeSignal:
		b, err = json.Marshal(struct {
			envelope
			*Signal
		}{envelope{m.Type}, m.Payload.Signal})
	case TypeError:
		b, err = json.Marshal(struct {
			envelope
			*Error
		}{envelope{m.Type}, m.Payload.Error})
	default:
		err = errors.Annotatef(ErrUnknownMessageType, "marshal message: %+v", m)
	}

	return b, errors.Trace(err)
}

func (m *Message) UnmarshalJSON(data []byte) error {
	var head struct {
		Type Type `json:"type"`
	}

	if err := json.Unmarshal(data, &head); err != nil {
		return errors.Annotate(err, "unmarshal message type")
	}

	m.Type = head.Type
	m.Payload = Payload{}

	var err error

	switch head.Type {
	case TypeJoined:
		payload := &Joined{}
		err = json.Unmarshal(data, payload)
		m.Payload.Joined = payload
	case TypeMemberJoined:
		payload := &MemberJoined{}
		err = json.Unmarshal(data, payload)
		m.Payload.MemberJoined = payload
	case TypeMemberLeft:
		payload := &MemberLeft{}
		err = json.Unmarshal(data, payload)
		m.Payload.MemberLeft = payload
	case TypeMatch:
		payload := &Match{}
		err = json.Unmarshal(data, payload)
		m.Payload.Match = payload
	case TypeSignal:
		payload := &Signal{}
		err = json.Unmarshal(data, payload)
		m.Payload.Signal = payload
	case TypeError:
		payload := &Error{}
		err = json.Unmarshal(data, payload)
		m.Payload.Error = payload
	default:
		err = errors.Annotatef(ErrUnknownMessageType, "unmarshal message: %q", head.Type)
	}

	return errors.Trace(err)
}
