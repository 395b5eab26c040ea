package rtc

import (
	"sync/atomic"

	"github.com/pion/webrtc/v4"

	"github.com/jheehg/webrtc-learning/internal/media"
)

// RemoteTrack is a track sent by the peer. Its RTP is drained so the
// receive buffers never fill; packet and byte counts are kept for display.
type RemoteTrack struct {
	track   *webrtc.TrackRemote
	packets atomic.Uint64
	bytes   atomic.Uint64
}

func newRemoteTrack(track *webrtc.TrackRemote) *RemoteTrack {
	return &RemoteTrack{track: track}
}

func (r *RemoteTrack) ID() string       { return r.track.ID() }
func (r *RemoteTrack) StreamID() string { return r.track.StreamID() }

func (r *RemoteTrack) Kind() media.Kind {
	if r.track.Kind() == webrtc.RTPCodecTypeAudio {
		return media.KindAudio
	}
	return media.KindVideo
}

func (r *RemoteTrack) Packets() uint64 { return r.packets.Load() }
func (r *RemoteTrack) Bytes() uint64   { return r.bytes.Load() }

func (r *RemoteTrack) drain() {
	for {
		pkt, _, err := r.track.ReadRTP()
		if err != nil {
			return
		}
		r.packets.Add(1)
		r.bytes.Add(uint64(len(pkt.Payload)))
	}
}
