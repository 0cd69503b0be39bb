package client

import (
	"sync"

	"github.com/juju/errors"
	"github.com/mesh-rooms/mesh-rooms/server/identifiers"
	"github.com/mesh-rooms/mesh-rooms/server/logger"
	"github.com/pion/webrtc/v3"
)

// peer is the engine's view of one remote member: a peer connection with
// exactly one audio and one video transceiver, both created up front so later
// media changes only replace tracks and never add m-lines.
type peer struct {
	log logger.Logger
	id  identifiers.ClientID
	pc  *webrtc.PeerConnection

	audioTx *webrtc.RTPTransceiver
	videoTx *webrtc.RTPTransceiver

	// The idle tracks installed by AddTransceiverFromKind. A sender must
	// never hold a nil track once negotiation starts, so these stay in
	// place until real media is published and are swapped back in when it
	// is unpublished. They never receive samples.
	audioIdle webrtc.TrackLocal
	videoIdle webrtc.TrackLocal

	// chat is set by whichever side creates or receives the channel. Guarded
	// by the engine mutex.
	chat *webrtc.DataChannel

	remote *RemoteStream

	descriptionSent     chan struct{}
	descriptionSentOnce sync.Once

	closeCh   chan struct{}
	closeOnce sync.Once
}

func newPeer(log logger.Logger, id identifiers.ClientID, pc *webrtc.PeerConnection) (*peer, error) {
	p := &peer{
		log:             log.WithCtx(logger.Ctx{"peer_id": id}),
		id:              id,
		pc:              pc,
		remote:          NewRemoteStream(id),
		descriptionSent: make(chan struct{}),
		closeCh:         make(chan struct{}),
	}

	audioTx, err := pc.AddTransceiverFromKind(
		webrtc.RTPCodecTypeAudio,
		webrtc.RtpTransceiverInit{
			Direction: webrtc.RTPTransceiverDirectionSendrecv,
		},
	)
	if err != nil {
		return nil, errors.Annotate(err, "add audio transceiver")
	}

	videoTx, err := pc.AddTransceiverFromKind(
		webrtc.RTPCodecTypeVideo,
		webrtc.RtpTransceiverInit{
			Direction: webrtc.RTPTransceiverDirectionSendrecv,
		},
	)
	if err != nil {
		return nil, errors.Annotate(err, "add video transceiver")
	}

	p.audioTx = audioTx
	p.videoTx = videoTx
	p.audioIdle = audioTx.Sender().Track()
	p.videoIdle = videoTx.Sender().Track()

	return p, nil
}

func (p *peer) setAudio(track webrtc.TrackLocal) error {
	if track == nil {
		track = p.audioIdle
	}

	return errors.Annotate(p.audioTx.Sender().ReplaceTrack(track), "replace audio track")
}

func (p *peer) setVideo(track webrtc.TrackLocal) error {
	if track == nil {
		track = p.videoIdle
	}

	return errors.Annotate(p.videoTx.Sender().ReplaceTrack(track), "replace video track")
}

// closeDescriptionSent releases ICE candidates for sending. Candidates
// gathered before the local description went out must wait, otherwise the
// remote side receives them without context.
func (p *peer) closeDescriptionSent() {
	p.descriptionSentOnce.Do(func() {
		close(p.descriptionSent)
	})
}

// waitDescriptionSent blocks until the local description was sent or the
// peer closed. It reports false when the peer closed first.
func (p *peer) waitDescriptionSent() bool {
	select {
	case <-p.descriptionSent:
		return true
	case <-p.closeCh:
		return false
	}
}

func (p *peer) close() error {
	var err error

	p.closeOnce.Do(func() {
		close(p.closeCh)
		p.closeDescriptionSent()

		err = errors.Annotate(p.pc.Close(), "close peer connection")
	})

	return err
}
