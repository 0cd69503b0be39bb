package message

import (
	"encoding/json"

	"github.com/juju/errors"
	"github.com/pion/webrtc/v3"
)

// SignalKind is the vocabulary of the opaque relay payload. The server never
// looks at it; only the mesh negotiation engine on the client side does.
type SignalKind string

const (
	SignalKindOffer  SignalKind = "offer"
	SignalKindAnswer SignalKind = "answer"
	SignalKindICE    SignalKind = "ice"

	// SignalKindNeedOffer asks the peer to create an offer. It is sent by the
	// side that lost the glare tie-break instead of racing an offer of its
	// own.
	SignalKindNeedOffer SignalKind = "need_offer"
)

// SignalPayload is the engine-level payload carried inside Signal.Payload.
type SignalPayload struct {
	Kind SignalKind `json:"kind"`

	// SDP is set for offer and answer kinds.
	SDP *webrtc.SessionDescription `json:"sdp,omitempty"`

	// Candidate is set for the ice kind.
	Candidate *webrtc.ICECandidateInit `json:"candidate,omitempty"`
}

// Encode marshals the payload for use as an opaque Signal payload.
func (p SignalPayload) Encode() (json.RawMessage, error) {
	b, err := json.Marshal(p)

	return b, errors.Annotate(err, "encode signal payload")
}

// DecodeSignalPayload parses an opaque relay payload once it has reached the
// engine.
func DecodeSignalPayload(raw json.RawMessage) (SignalPayload, error) {
	var p SignalPayload

	err := json.Unmarshal(raw, &p)

	return p, errors.Annotate(err, "decode signal payload")
}
