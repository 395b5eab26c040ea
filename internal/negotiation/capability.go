// Package negotiation drives a single offer/answer/candidate exchange over
// an externally supplied peer connection capability.
package negotiation

import (
	"context"

	"github.com/jheehg/webrtc-learning/internal/media"
)

// SessionDescription is an opaque offer or answer. The JSON shape matches
// what browsers put on the wire.
type SessionDescription struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

// ICECandidate is a network path proposed by one peer.
type ICECandidate struct {
	Candidate        string  `json:"candidate"`
	SDPMid           *string `json:"sdpMid,omitempty"`
	SDPMLineIndex    *uint16 `json:"sdpMLineIndex,omitempty"`
	UsernameFragment *string `json:"usernameFragment,omitempty"`
}

// Capability is the host's peer connection. Session holds one and never
// extends it.
type Capability interface {
	CreateOffer(ctx context.Context) (SessionDescription, error)
	CreateAnswer(ctx context.Context) (SessionDescription, error)
	SetLocalDescription(desc SessionDescription) error
	SetRemoteDescription(desc SessionDescription) error
	AddICECandidate(c ICECandidate) error
	AddTrack(track media.Track, stream *media.Stream) error

	// OnLocalCandidate registers the handler for locally gathered
	// candidates. A nil candidate signals that gathering completed.
	OnLocalCandidate(fn func(c *ICECandidate))

	// OnRemoteTrack registers the handler for tracks sent by the peer.
	OnRemoteTrack(fn func(t media.RemoteTrack))

	Close() error
}
