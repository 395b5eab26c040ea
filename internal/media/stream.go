package media

import (
	"sync"

	"github.com/google/uuid"
)

// Kind is the media type of a track.
type Kind string

const (
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
)

// Track is a local media track that can be attached to a connection.
type Track interface {
	ID() string
	Kind() Kind
	Enabled() bool
	SetEnabled(enabled bool)
	Stop()
}

// RemoteTrack is a track received from the peer.
type RemoteTrack interface {
	ID() string
	Kind() Kind
	StreamID() string
}

// Stream groups the tracks produced by one acquisition.
type Stream struct {
	id     string
	mu     sync.Mutex
	tracks []Track
}

// NewStream creates a stream holding tracks in the given order.
func NewStream(tracks ...Track) *Stream {
	return NewStreamWithID(uuid.NewString(), tracks...)
}

// NewStreamWithID is NewStream with a caller-chosen stream id.
func NewStreamWithID(id string, tracks ...Track) *Stream {
	return &Stream{id: id, tracks: tracks}
}

func (s *Stream) ID() string {
	return s.id
}

// Tracks returns all tracks in insertion order.
func (s *Stream) Tracks() []Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Track(nil), s.tracks...)
}

func (s *Stream) AudioTracks() []Track {
	return s.byKind(KindAudio)
}

func (s *Stream) VideoTracks() []Track {
	return s.byKind(KindVideo)
}

func (s *Stream) byKind(kind Kind) []Track {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Track
	for _, t := range s.tracks {
		if t.Kind() == kind {
			out = append(out, t)
		}
	}
	return out
}

// Stop stops every track.
func (s *Stream) Stop() {
	for _, t := range s.Tracks() {
		t.Stop()
	}
}
