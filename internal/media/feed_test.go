package media

import (
	"context"
	"testing"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedSilenceStopsWithTracks(t *testing.T) {
	a, err := NewSampleTrack(KindAudio, webrtc.MimeTypeOpus, "s")
	require.NoError(t, err)
	stream := NewStreamWithID("s", a)

	done := make(chan error, 1)
	go func() { done <- FeedSilence(context.Background(), stream) }()

	time.Sleep(3 * OpusFrameDuration)
	stream.Stop()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("feed did not stop with its tracks")
	}
}

func TestFeedSilenceHonoursContext(t *testing.T) {
	a, err := NewSampleTrack(KindAudio, webrtc.MimeTypeOpus, "s")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, FeedSilence(ctx, NewStreamWithID("s", a)), context.Canceled)
}

func TestFeedSilenceWithoutAudio(t *testing.T) {
	assert.NoError(t, FeedSilence(context.Background(), NewStream(&fakeTrack{id: "v", kind: KindVideo})))
}
