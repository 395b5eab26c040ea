package media

import (
	"context"
	"errors"
	"time"
)

// OpusFrameDuration is the frame length used by FeedSilence.
const OpusFrameDuration = 20 * time.Millisecond

// opusSilence is a complete Opus packet decoding to 20ms of silence.
var opusSilence = []byte{0xf8, 0xff, 0xfe}

// SampleWriter is a track that accepts encoded samples.
type SampleWriter interface {
	WriteSample(data []byte, duration time.Duration) error
}

// FeedSilence writes silent Opus frames to every audio track of stream
// that accepts samples, so the peer receives audio RTP without a capture
// device. It returns when ctx is done or the tracks are stopped.
func FeedSilence(ctx context.Context, stream *Stream) error {
	var writers []SampleWriter
	for _, t := range stream.AudioTracks() {
		if w, ok := t.(SampleWriter); ok {
			writers = append(writers, w)
		}
	}
	if len(writers) == 0 {
		return nil
	}

	ticker := time.NewTicker(OpusFrameDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		live := writers[:0]
		for _, w := range writers {
			err := w.WriteSample(opusSilence, OpusFrameDuration)
			if errors.Is(err, ErrTrackStopped) {
				continue
			}
			live = append(live, w)
		}
		if len(live) == 0 {
			return nil
		}
		writers = live
	}
}
