package media

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
)

// Constraints describe what a Source should capture.
type Constraints struct {
	Video  bool
	Width  int
	Height int
	Audio  bool
}

// DefaultConstraints is 320x240 video with audio.
var DefaultConstraints = Constraints{Video: true, Width: 320, Height: 240, Audio: true}

// Source acquires a local stream. Real capture devices live outside this
// module; they plug in here.
type Source interface {
	Acquire(ctx context.Context, c Constraints) (*Stream, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, c Constraints) (*Stream, error)

func (f SourceFunc) Acquire(ctx context.Context, c Constraints) (*Stream, error) {
	return f(ctx, c)
}

// SampleSource produces VP8 and Opus sample tracks that callers feed with
// already encoded frames through SampleTrack.WriteSample.
type SampleSource struct{}

func (SampleSource) Acquire(ctx context.Context, c Constraints) (*Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !c.Video && !c.Audio {
		return nil, fmt.Errorf("no media requested")
	}

	streamID := "roomcall-" + uuid.NewString()[:8]
	var tracks []Track

	if c.Video {
		v, err := NewSampleTrack(KindVideo, webrtc.MimeTypeVP8, streamID)
		if err != nil {
			return nil, fmt.Errorf("video track: %w", err)
		}
		tracks = append(tracks, v)
	}
	if c.Audio {
		a, err := NewSampleTrack(KindAudio, webrtc.MimeTypeOpus, streamID)
		if err != nil {
			return nil, fmt.Errorf("audio track: %w", err)
		}
		tracks = append(tracks, a)
	}

	return NewStreamWithID(streamID, tracks...), nil
}
