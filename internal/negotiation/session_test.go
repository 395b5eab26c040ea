package negotiation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jheehg/webrtc-learning/internal/media"
)

type fakePeer struct {
	mu          sync.Mutex
	local       []SessionDescription
	remote      []SessionDescription
	candidates  []string
	tracks      []string
	closed      int
	onCandidate func(*ICECandidate)
	onTrack     func(media.RemoteTrack)
	rejectCand  string
	remoteErr   error
}

func (f *fakePeer) CreateOffer(ctx context.Context) (SessionDescription, error) {
	return SessionDescription{Type: "offer", SDP: "offer-sdp"}, ctx.Err()
}

func (f *fakePeer) CreateAnswer(ctx context.Context) (SessionDescription, error) {
	return SessionDescription{Type: "answer", SDP: "answer-sdp"}, ctx.Err()
}

func (f *fakePeer) SetLocalDescription(d SessionDescription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.local = append(f.local, d)
	return nil
}

func (f *fakePeer) SetRemoteDescription(d SessionDescription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.remoteErr != nil {
		return f.remoteErr
	}
	f.remote = append(f.remote, d)
	return nil
}

func (f *fakePeer) AddICECandidate(c ICECandidate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c.Candidate == f.rejectCand {
		return errors.New("malformed candidate")
	}
	f.candidates = append(f.candidates, c.Candidate)
	return nil
}

func (f *fakePeer) AddTrack(t media.Track, _ *media.Stream) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tracks = append(f.tracks, t.ID())
	return nil
}

func (f *fakePeer) OnLocalCandidate(fn func(*ICECandidate))  { f.onCandidate = fn }
func (f *fakePeer) OnRemoteTrack(fn func(media.RemoteTrack)) { f.onTrack = fn }

func (f *fakePeer) Close() error {
	f.closed++
	return nil
}

type fakeTrack struct {
	id   string
	kind media.Kind
}

func (t fakeTrack) ID() string       { return t.id }
func (t fakeTrack) Kind() media.Kind { return t.kind }
func (t fakeTrack) Enabled() bool    { return true }
func (t fakeTrack) SetEnabled(bool)  {}
func (t fakeTrack) Stop()            {}
func (t fakeTrack) StreamID() string { return "remote" }

func TestOffererReachesConnected(t *testing.T) {
	pc := &fakePeer{}
	s := New(pc)
	ctx := context.Background()

	offer, err := s.CreateOffer(ctx)
	require.NoError(t, err)
	assert.Equal(t, "offer", offer.Type)
	assert.Equal(t, OfferCreated, s.State())

	require.NoError(t, s.ReceiveUserAnswer(SessionDescription{Type: "answer", SDP: "a"}))
	assert.Equal(t, AnswerReceived, s.State())

	pc.onTrack(fakeTrack{id: "remote-video", kind: media.KindVideo})
	assert.Equal(t, Connected, s.State())
}

func TestAnswererReachesConnected(t *testing.T) {
	pc := &fakePeer{}
	s := New(pc)

	answer, err := s.CreateUserAnswer(context.Background(), SessionDescription{Type: "offer", SDP: "o"})
	require.NoError(t, err)
	assert.Equal(t, "answer", answer.Type)
	assert.Equal(t, AnswerCreated, s.State())
	require.NotNil(t, s.RemoteDescription())
	require.NotNil(t, s.LocalDescription())

	pc.onTrack(fakeTrack{id: "remote-audio", kind: media.KindAudio})
	assert.Equal(t, Connected, s.State())
}

func TestRemoteTrackBeforeAnswerCreated(t *testing.T) {
	pc := &fakePeer{}
	s := New(pc)

	pc.onTrack(fakeTrack{id: "early", kind: media.KindVideo})
	assert.Equal(t, Idle, s.State())

	_, err := s.CreateUserAnswer(context.Background(), SessionDescription{Type: "offer", SDP: "o"})
	require.NoError(t, err)
	assert.Equal(t, Connected, s.State())
}

func TestReceiveAnswerBeforeOfferIsNoop(t *testing.T) {
	pc := &fakePeer{}
	s := New(pc)

	err := s.ReceiveUserAnswer(SessionDescription{Type: "answer", SDP: "a"})
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, Idle, s.State())
	assert.Empty(t, pc.remote)
}

func TestCreateOfferTwiceFails(t *testing.T) {
	s := New(&fakePeer{})
	_, err := s.CreateOffer(context.Background())
	require.NoError(t, err)

	_, err = s.CreateOffer(context.Background())
	var nerr *Error
	require.ErrorAs(t, err, &nerr)
	assert.Equal(t, OfferCreated, nerr.State)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCreateAnswerAfterOfferFails(t *testing.T) {
	s := New(&fakePeer{})
	_, err := s.CreateOffer(context.Background())
	require.NoError(t, err)

	_, err = s.CreateUserAnswer(context.Background(), SessionDescription{Type: "offer"})
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, OfferCreated, s.State())
}

func TestCandidatesQueuedUntilRemoteDescription(t *testing.T) {
	pc := &fakePeer{}
	s := New(pc)

	_, err := s.CreateOffer(context.Background())
	require.NoError(t, err)

	for _, c := range []string{"c1", "c2", "c3"} {
		require.NoError(t, s.AddICECandidate(ICECandidate{Candidate: c}))
	}
	assert.Equal(t, 3, s.PendingCandidates())
	assert.Empty(t, pc.candidates)

	require.NoError(t, s.ReceiveUserAnswer(SessionDescription{Type: "answer"}))
	assert.Equal(t, []string{"c1", "c2", "c3"}, pc.candidates)
	assert.Zero(t, s.PendingCandidates())

	require.NoError(t, s.AddICECandidate(ICECandidate{Candidate: "c4"}))
	assert.Equal(t, []string{"c1", "c2", "c3", "c4"}, pc.candidates)
}

func TestCandidateBeforeOfferOnAnswerer(t *testing.T) {
	pc := &fakePeer{}
	s := New(pc)

	require.NoError(t, s.AddICECandidate(ICECandidate{Candidate: "early"}))
	_, err := s.CreateUserAnswer(context.Background(), SessionDescription{Type: "offer"})
	require.NoError(t, err)

	assert.Equal(t, []string{"early"}, pc.candidates)
}

func TestMalformedCandidateTolerated(t *testing.T) {
	pc := &fakePeer{rejectCand: "bad"}
	s := New(pc)
	_, err := s.CreateUserAnswer(context.Background(), SessionDescription{Type: "offer"})
	require.NoError(t, err)

	assert.NoError(t, s.AddICECandidate(ICECandidate{Candidate: "bad"}))
	assert.NoError(t, s.AddICECandidate(ICECandidate{Candidate: "good"}))
	assert.Equal(t, []string{"good"}, pc.candidates)
	assert.Equal(t, AnswerCreated, s.State())
}

func TestRemoteDescriptionFailureKeepsState(t *testing.T) {
	pc := &fakePeer{remoteErr: errors.New("bad sdp")}
	s := New(pc)

	_, err := s.CreateUserAnswer(context.Background(), SessionDescription{Type: "offer"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, Idle, s.State())
	assert.Nil(t, s.RemoteDescription())
}

func TestCloseIsIdempotent(t *testing.T) {
	pc := &fakePeer{}
	s := New(pc)
	_, err := s.CreateOffer(context.Background())
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, Closed, s.State())
	assert.Equal(t, 1, pc.closed)

	select {
	case <-s.Done():
	default:
		t.Fatal("done not closed")
	}

	assert.ErrorIs(t, s.AddICECandidate(ICECandidate{Candidate: "late"}), ErrInvalidState)
	assert.ErrorIs(t, s.AddTracks(media.NewStream()), ErrInvalidState)
	assert.ErrorIs(t, s.ReceiveUserAnswer(SessionDescription{}), ErrInvalidState)
}

func TestAddTracksAttachesFirstOfEachKind(t *testing.T) {
	pc := &fakePeer{}
	s := New(pc)

	stream := media.NewStream(
		fakeTrack{id: "a1", kind: media.KindAudio},
		fakeTrack{id: "v1", kind: media.KindVideo},
		fakeTrack{id: "v2", kind: media.KindVideo},
		fakeTrack{id: "a2", kind: media.KindAudio},
	)
	require.NoError(t, s.AddTracks(stream))
	assert.Equal(t, []string{"v1", "a1"}, pc.tracks)

	require.NoError(t, s.AddTracks(nil))
	assert.Len(t, pc.tracks, 2)
}

func TestLocalCandidatesEmittedInOrder(t *testing.T) {
	pc := &fakePeer{}
	s := New(pc)
	_, err := s.CreateOffer(context.Background())
	require.NoError(t, err)

	pc.onCandidate(&ICECandidate{Candidate: "l1"})
	pc.onCandidate(&ICECandidate{Candidate: "l2"})
	pc.onCandidate(nil)

	var got []string
	complete := false
	for len(s.Events()) > 0 {
		ev := <-s.Events()
		switch ev.Kind {
		case EventLocalCandidate:
			got = append(got, ev.Candidate.Candidate)
		case EventGatheringComplete:
			complete = true
		}
	}
	assert.Equal(t, []string{"l1", "l2"}, got)
	assert.True(t, complete)
}

func TestRemoteTrackAfterCloseIgnored(t *testing.T) {
	pc := &fakePeer{}
	s := New(pc)
	handler := pc.onTrack
	require.NoError(t, s.Close())

	handler(fakeTrack{id: "late", kind: media.KindVideo})
	assert.Equal(t, Closed, s.State())
}
