package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrMediaAcquisition means the local devices were denied or unavailable.
var ErrMediaAcquisition = errors.New("media acquisition failed")

// Endpoint owns the local stream and the remote tracks for one room
// membership. Mute and hide flags are mirrored into the enabled state of
// every track of the matching kind.
type Endpoint struct {
	source      Source
	constraints Constraints

	mu          sync.Mutex
	local       *Stream
	remote      []RemoteTrack
	audioMuted  bool
	videoHidden bool
}

// NewEndpoint creates an endpoint acquiring from source.
func NewEndpoint(source Source, constraints Constraints) *Endpoint {
	return &Endpoint{source: source, constraints: constraints}
}

// Init acquires the local stream. On failure the endpoint keeps no stream
// and the error wraps ErrMediaAcquisition.
func (e *Endpoint) Init(ctx context.Context) error {
	stream, err := e.source.Acquire(ctx, e.constraints)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMediaAcquisition, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.local != nil {
		e.local.Stop()
	}
	e.local = stream
	e.applyLocked()

	slog.Debug("local stream acquired", "stream", stream.ID(), "tracks", len(stream.Tracks()))
	return nil
}

func (e *Endpoint) applyLocked() {
	if e.local == nil {
		return
	}
	for _, t := range e.local.AudioTracks() {
		t.SetEnabled(!e.audioMuted)
	}
	for _, t := range e.local.VideoTracks() {
		t.SetEnabled(!e.videoHidden)
	}
}

// LocalStream returns the acquired stream, or nil.
func (e *Endpoint) LocalStream() *Stream {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.local
}

// SetAudioMuted mutes or unmutes local audio. It reports false when there
// is no audio track to act on.
func (e *Endpoint) SetAudioMuted(muted bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.local == nil || len(e.local.AudioTracks()) == 0 {
		return false
	}
	e.audioMuted = muted
	e.applyLocked()
	return true
}

// SetVideoHidden hides or shows local video. It reports false when there
// is no video track to act on.
func (e *Endpoint) SetVideoHidden(hidden bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.local == nil || len(e.local.VideoTracks()) == 0 {
		return false
	}
	e.videoHidden = hidden
	e.applyLocked()
	return true
}

func (e *Endpoint) AudioMuted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.audioMuted
}

func (e *Endpoint) VideoHidden() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.videoHidden
}

// AttachRemoteTrack records a track received from the peer.
func (e *Endpoint) AttachRemoteTrack(t RemoteTrack) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.remote = append(e.remote, t)
}

// RemoteTracks returns the attached remote tracks.
func (e *Endpoint) RemoteTracks() []RemoteTrack {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]RemoteTrack(nil), e.remote...)
}

// ClearRemote drops all remote tracks.
func (e *Endpoint) ClearRemote() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.remote = nil
}

// ClearLocal stops and releases the local stream.
func (e *Endpoint) ClearLocal() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.local != nil {
		e.local.Stop()
		e.local = nil
	}
}

// ClearAll releases local and remote media and resets the flags.
func (e *Endpoint) ClearAll() {
	e.ClearLocal()
	e.ClearRemote()

	e.mu.Lock()
	e.audioMuted = false
	e.videoHidden = false
	e.mu.Unlock()
}
