package media

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	pionmedia "github.com/pion/webrtc/v4/pkg/media"
)

// ErrTrackStopped is returned when writing to a stopped track.
var ErrTrackStopped = errors.New("track stopped")

// SampleTrack is a local track backed by a pion sample writer. Samples
// written while the track is disabled are discarded, which is how mute and
// hide are enforced on the wire.
type SampleTrack struct {
	kind    Kind
	local   *webrtc.TrackLocalStaticSample
	enabled atomic.Bool
	stopped atomic.Bool
}

// NewSampleTrack creates an enabled track of kind for codec mimeType.
func NewSampleTrack(kind Kind, mimeType, streamID string) (*SampleTrack, error) {
	local, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: mimeType},
		string(kind)+"-"+uuid.NewString()[:8],
		streamID,
	)
	if err != nil {
		return nil, err
	}

	t := &SampleTrack{kind: kind, local: local}
	t.enabled.Store(true)
	return t, nil
}

func (t *SampleTrack) ID() string              { return t.local.ID() }
func (t *SampleTrack) Kind() Kind              { return t.kind }
func (t *SampleTrack) Enabled() bool           { return t.enabled.Load() }
func (t *SampleTrack) SetEnabled(enabled bool) { t.enabled.Store(enabled) }
func (t *SampleTrack) Stop()                   { t.stopped.Store(true) }

// Local exposes the pion track so a PeerConnection can send it.
func (t *SampleTrack) Local() webrtc.TrackLocal {
	return t.local
}

// WriteSample forwards an encoded frame. Disabled tracks drop it silently.
func (t *SampleTrack) WriteSample(data []byte, duration time.Duration) error {
	if t.stopped.Load() {
		return ErrTrackStopped
	}
	if !t.enabled.Load() {
		return nil
	}
	return t.local.WriteSample(pionmedia.Sample{Data: data, Duration: duration})
}
