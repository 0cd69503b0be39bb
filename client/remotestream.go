package client

import (
	"sync"

	"github.com/mesh-rooms/mesh-rooms/server/identifiers"
	"github.com/pion/webrtc/v3"
)

// RemoteTrack is the subset of webrtc.TrackRemote the engine needs.
type RemoteTrack interface {
	ID() string
	Kind() webrtc.RTPCodecType
}

// RemoteStream collects the tracks received from one remote peer. Repeated
// negotiation can resurface a track the engine already knows about, so
// additions are deduplicated by track ID.
type RemoteStream struct {
	peerID identifiers.ClientID

	mu     sync.Mutex
	tracks map[string]RemoteTrack
}

func NewRemoteStream(peerID identifiers.ClientID) *RemoteStream {
	return &RemoteStream{
		peerID: peerID,
		tracks: map[string]RemoteTrack{},
	}
}

func (s *RemoteStream) PeerID() identifiers.ClientID {
	return s.peerID
}

// Add records a track. It reports false when a track with the same ID was
// already added.
func (s *RemoteStream) Add(track RemoteTrack) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tracks[track.ID()]; ok {
		return false
	}

	s.tracks[track.ID()] = track

	return true
}

func (s *RemoteStream) Tracks() []RemoteTrack {
	s.mu.Lock()
	defer s.mu.Unlock()

	tracks := make([]RemoteTrack, 0, len(s.tracks))
	for _, track := range s.tracks {
		tracks = append(tracks, track)
	}

	return tracks
}
