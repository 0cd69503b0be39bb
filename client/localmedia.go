package client

import (
	"github.com/juju/errors"
	"github.com/pion/webrtc/v3"
)

// VideoSource names where the local video track comes from. Camera and
// screen share occupy the same video slot, so enabling one replaces the
// other.
type VideoSource int

const (
	VideoSourceNone VideoSource = iota
	VideoSourceCamera
	VideoSourceScreen
)

func (s VideoSource) String() string {
	switch s {
	case VideoSourceCamera:
		return "camera"
	case VideoSourceScreen:
		return "screen"
	default:
		return "none"
	}
}

// LocalMedia holds the media this client currently publishes: at most one
// audio track and at most one video track.
type LocalMedia struct {
	audio       webrtc.TrackLocal
	video       webrtc.TrackLocal
	videoSource VideoSource
}

func (m *LocalMedia) Audio() webrtc.TrackLocal {
	return m.audio
}

func (m *LocalMedia) Video() webrtc.TrackLocal {
	return m.video
}

func (m *LocalMedia) VideoSource() VideoSource {
	return m.videoSource
}

func (m *LocalMedia) setAudio(track webrtc.TrackLocal) {
	m.audio = track
}

func (m *LocalMedia) setVideo(source VideoSource, track webrtc.TrackLocal) error {
	if source == VideoSourceNone && track != nil {
		return errors.Errorf("video source none cannot carry a track")
	}

	if source != VideoSourceNone && track == nil {
		return errors.Errorf("video source %s requires a track", source)
	}

	m.video = track
	m.videoSource = source

	return nil
}
