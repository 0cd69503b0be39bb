package client

import (
	"sync"

	"github.com/juju/errors"
	"github.com/mesh-rooms/mesh-rooms/server/identifiers"
	"github.com/mesh-rooms/mesh-rooms/server/logger"
	"github.com/mesh-rooms/mesh-rooms/server/message"
	"github.com/mesh-rooms/mesh-rooms/server/pionlogger"
	"github.com/pion/interceptor"
	"github.com/pion/webrtc/v3"
)

const chatChannelLabel = "chat"

// ErrCallClosed is returned by engine operations after Close.
var ErrCallClosed = errors.New("call closed")

type MeshCallParams struct {
	Log logger.Logger

	// Me is this client's identifier. It decides negotiation roles: for each
	// peer pair the side with the smaller identifier sends the offer.
	Me identifiers.ClientID

	ICEServers []webrtc.ICEServer

	// Send relays a negotiation payload to another member through the
	// signaling connection.
	Send func(to identifiers.ClientID, payload message.SignalPayload) error

	// OnRemoteTrack is called once per new remote track. Tracks resurfacing
	// during renegotiation are suppressed.
	OnRemoteTrack func(peerID identifiers.ClientID, track RemoteTrack)

	// OnChat is called for every text message received over a chat channel.
	OnChat func(peerID identifiers.ClientID, text string)

	// OnError reports per-peer failures that do not stop the call.
	OnError func(peerID identifiers.ClientID, err error)
}

// MeshCall negotiates a full mesh of peer connections, one per remote
// member. Membership changes come from the caller via EnsurePeer and
// RemovePeer, negotiation payloads via HandleSignal.
type MeshCall struct {
	params MeshCallParams
	log    logger.Logger
	api    *webrtc.API

	mu     sync.Mutex
	peers  map[identifiers.ClientID]*peer
	media  LocalMedia
	closed bool
}

func NewMeshCall(params MeshCallParams) (*MeshCall, error) {
	log := params.Log.WithNamespaceAppended("mesh").WithCtx(logger.Ctx{
		"client_id": params.Me,
	})

	mediaEngine := &webrtc.MediaEngine{}
	if err := mediaEngine.RegisterDefaultCodecs(); err != nil {
		return nil, errors.Annotate(err, "register codecs")
	}

	interceptorRegistry := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(mediaEngine, interceptorRegistry); err != nil {
		return nil, errors.Annotate(err, "register interceptors")
	}

	settingEngine := webrtc.SettingEngine{
		LoggerFactory: pionlogger.NewFactory(log),
	}

	api := webrtc.NewAPI(
		webrtc.WithMediaEngine(mediaEngine),
		webrtc.WithSettingEngine(settingEngine),
		webrtc.WithInterceptorRegistry(interceptorRegistry),
	)

	return &MeshCall{
		params: params,
		log:    log,
		api:    api,
		peers:  map[identifiers.ClientID]*peer{},
	}, nil
}

// EnsurePeer creates the peer connection for peerID unless one exists. The
// side with the smaller client identifier opens the chat channel and sends
// the offer. The other side asks to be offered to, so both members arriving
// at once never produce colliding offers.
func (m *MeshCall) EnsurePeer(peerID identifiers.ClientID) error {
	if peerID == m.params.Me {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	_, err := m.ensurePeerLocked(peerID, true)

	return errors.Trace(err)
}

// ensurePeerLocked returns the peer for peerID, creating it on first use.
// Only membership-driven creation initiates negotiation; a peer created
// because a signal arrived first stays quiet, since the inbound payload
// already carries the negotiation forward and a spurious need_offer would
// put a second offer in flight for the pair.
func (m *MeshCall) ensurePeerLocked(peerID identifiers.ClientID, initiate bool) (*peer, error) {
	if m.closed {
		return nil, errors.Trace(ErrCallClosed)
	}

	if p, ok := m.peers[peerID]; ok {
		return p, nil
	}

	pc, err := m.api.NewPeerConnection(webrtc.Configuration{
		ICEServers: m.params.ICEServers,
	})
	if err != nil {
		return nil, errors.Annotate(err, "new peer connection")
	}

	p, err := newPeer(m.log, peerID, pc)
	if err != nil {
		pc.Close()

		return nil, errors.Trace(err)
	}

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if !p.waitDescriptionSent() || c == nil {
			return
		}

		candidate := c.ToJSON()

		m.send(p, message.SignalPayload{
			Kind:      message.SignalKindICE,
			Candidate: &candidate,
		})
	})

	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		m.handleRemoteTrack(p, track)
	})

	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		if dc.Label() != chatChannelLabel {
			return
		}

		m.mu.Lock()
		m.attachChatLocked(p, dc)
		m.mu.Unlock()
	})

	if err := m.syncMediaLocked(p); err != nil {
		pc.Close()

		return nil, errors.Trace(err)
	}

	m.peers[peerID] = p

	if m.params.Me < peerID {
		dc, err := pc.CreateDataChannel(chatChannelLabel, nil)
		if err != nil {
			m.reportError(peerID, errors.Annotate(err, "create chat channel"))
		} else {
			m.attachChatLocked(p, dc)
		}

		if initiate {
			m.makeOffer(p)
		}
	} else if initiate {
		m.send(p, message.SignalPayload{
			Kind: message.SignalKindNeedOffer,
		})
	}

	m.log.Debug("Peer created", logger.Ctx{
		"peer_id": peerID,
	})

	return p, nil
}

// HandleSignal processes a negotiation payload relayed from peerID, creating
// the peer connection first when the payload arrives before membership was
// observed.
func (m *MeshCall) HandleSignal(peerID identifiers.ClientID, payload message.SignalPayload) error {
	if peerID == m.params.Me {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.ensurePeerLocked(peerID, false)
	if err != nil {
		return errors.Trace(err)
	}

	switch payload.Kind {
	case message.SignalKindNeedOffer:
		m.makeOffer(p)

		return nil
	case message.SignalKindOffer:
		if payload.SDP == nil {
			return errors.Errorf("offer without sdp from %s", peerID)
		}

		return errors.Trace(m.handleRemoteOffer(p, *payload.SDP))
	case message.SignalKindAnswer:
		if payload.SDP == nil {
			return errors.Errorf("answer without sdp from %s", peerID)
		}

		if p.pc.SignalingState() != webrtc.SignalingStateHaveLocalOffer {
			m.log.Debug("Ignoring stale answer", logger.Ctx{
				"peer_id": peerID,
			})

			return nil
		}

		return errors.Annotate(p.pc.SetRemoteDescription(*payload.SDP), "set remote answer")
	case message.SignalKindICE:
		if payload.Candidate == nil || payload.Candidate.Candidate == "" {
			return nil
		}

		return errors.Annotate(p.pc.AddICECandidate(*payload.Candidate), "add ice candidate")
	default:
		return errors.Errorf("unexpected signal kind: %q", payload.Kind)
	}
}

func (m *MeshCall) handleRemoteOffer(p *peer, offer webrtc.SessionDescription) error {
	if err := p.pc.SetRemoteDescription(offer); err != nil {
		return errors.Annotate(err, "set remote offer")
	}

	answer, err := p.pc.CreateAnswer(nil)
	if err != nil {
		return errors.Annotate(err, "create answer")
	}

	if err := p.pc.SetLocalDescription(answer); err != nil {
		return errors.Annotate(err, "set local description")
	}

	m.send(p, message.SignalPayload{
		Kind: message.SignalKindAnswer,
		SDP:  &answer,
	})

	p.closeDescriptionSent()

	return nil
}

func (m *MeshCall) makeOffer(p *peer) {
	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		m.reportError(p.id, errors.Annotate(err, "create offer"))

		return
	}

	if err := p.pc.SetLocalDescription(offer); err != nil {
		m.reportError(p.id, errors.Annotate(err, "set local description"))

		return
	}

	m.send(p, message.SignalPayload{
		Kind: message.SignalKindOffer,
		SDP:  &offer,
	})

	p.closeDescriptionSent()
}

// SetAudioTrack publishes track to every peer, or mutes when track is nil.
func (m *MeshCall) SetAudioTrack(track webrtc.TrackLocal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return errors.Trace(ErrCallClosed)
	}

	m.media.setAudio(track)

	for _, p := range m.peers {
		if err := p.setAudio(track); err != nil {
			m.reportError(p.id, errors.Trace(err))

			continue
		}

		m.renegotiateLocked(p)
	}

	return nil
}

// SetVideoSource publishes a camera or screen track to every peer.
// VideoSourceNone with a nil track stops publishing video. Camera and screen
// replace one another since there is a single video slot per pair.
func (m *MeshCall) SetVideoSource(source VideoSource, track webrtc.TrackLocal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return errors.Trace(ErrCallClosed)
	}

	if err := m.media.setVideo(source, track); err != nil {
		return errors.Trace(err)
	}

	for _, p := range m.peers {
		if err := p.setVideo(track); err != nil {
			m.reportError(p.id, errors.Trace(err))

			continue
		}

		m.renegotiateLocked(p)
	}

	return nil
}

// SendChat delivers text to every peer with an open chat channel. Peers
// still negotiating are skipped, chat is best effort.
func (m *MeshCall) SendChat(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.peers {
		if p.chat == nil || p.chat.ReadyState() != webrtc.DataChannelStateOpen {
			m.log.Debug("Chat dropped", logger.Ctx{
				"peer_id": p.id,
			})

			continue
		}

		if err := p.chat.SendText(text); err != nil {
			m.reportError(p.id, errors.Annotate(err, "send chat"))
		}
	}
}

// RemotePeers returns the identifiers of all connected peers.
func (m *MeshCall) RemotePeers() []identifiers.ClientID {
	m.mu.Lock()
	defer m.mu.Unlock()

	peerIDs := make([]identifiers.ClientID, 0, len(m.peers))
	for peerID := range m.peers {
		peerIDs = append(peerIDs, peerID)
	}

	return peerIDs
}

// RemovePeer tears down the connection to a departed member.
func (m *MeshCall) RemovePeer(peerID identifiers.ClientID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.peers[peerID]
	if !ok {
		return
	}

	delete(m.peers, peerID)

	if err := p.close(); err != nil {
		m.reportError(peerID, errors.Trace(err))
	}
}

// Close tears down all peer connections. The engine cannot be reused.
func (m *MeshCall) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}

	m.closed = true

	for peerID, p := range m.peers {
		delete(m.peers, peerID)

		if err := p.close(); err != nil {
			m.log.Debug("Close peer", logger.Ctx{
				"peer_id": peerID,
				"error":   err.Error(),
			})
		}
	}
}

func (m *MeshCall) syncMediaLocked(p *peer) error {
	if err := p.setAudio(m.media.Audio()); err != nil {
		return errors.Trace(err)
	}

	return errors.Trace(p.setVideo(m.media.Video()))
}

// renegotiateLocked triggers a new offer exchange after a media change,
// keeping the offerer role fixed for the pair.
func (m *MeshCall) renegotiateLocked(p *peer) {
	if m.params.Me < p.id {
		m.makeOffer(p)

		return
	}

	m.send(p, message.SignalPayload{
		Kind: message.SignalKindNeedOffer,
	})
}

func (m *MeshCall) attachChatLocked(p *peer, dc *webrtc.DataChannel) {
	p.chat = dc

	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		if onChat := m.params.OnChat; onChat != nil {
			onChat(p.id, string(msg.Data))
		}
	})
}

func (m *MeshCall) handleRemoteTrack(p *peer, track *webrtc.TrackRemote) {
	if !p.remote.Add(track) {
		m.log.Debug("Duplicate remote track", logger.Ctx{
			"peer_id":  p.id,
			"track_id": track.ID(),
		})

		return
	}

	if onTrack := m.params.OnRemoteTrack; onTrack != nil {
		onTrack(p.id, track)
	}
}

func (m *MeshCall) send(p *peer, payload message.SignalPayload) {
	if err := m.params.Send(p.id, payload); err != nil {
		m.reportError(p.id, errors.Annotate(err, "send signal"))
	}
}

func (m *MeshCall) reportError(peerID identifiers.ClientID, err error) {
	m.log.Error("Peer error", err, logger.Ctx{
		"peer_id": peerID,
	})

	if onError := m.params.OnError; onError != nil {
		onError(peerID, err)
	}
}
