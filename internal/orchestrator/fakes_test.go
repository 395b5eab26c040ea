package orchestrator

import (
	"context"
	"errors"
	"sync"

	"github.com/jheehg/webrtc-learning/internal/media"
	"github.com/jheehg/webrtc-learning/internal/negotiation"
	"github.com/jheehg/webrtc-learning/internal/protocol"
)

type fakeChannel struct {
	mu   sync.Mutex
	sent []*protocol.Message
	in   chan *protocol.Message
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{in: make(chan *protocol.Message, 16)}
}

func (c *fakeChannel) Send(msg *protocol.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return nil
}

func (c *fakeChannel) Incoming() <-chan *protocol.Message { return c.in }

func (c *fakeChannel) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, m := range c.sent {
		out = append(out, m.Type)
	}
	return out
}

func (c *fakeChannel) last(kind string) *protocol.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.sent) - 1; i >= 0; i-- {
		if c.sent[i].Type == kind {
			return c.sent[i]
		}
	}
	return nil
}

// fakePeer stands in for a PeerConnection. Applying a remote description
// makes the remote side's track arrive, and applying a local description
// gathers one candidate followed by end of gathering.
type fakePeer struct {
	mu          sync.Mutex
	tracks      []media.Kind
	candidates  []string
	closed      bool
	onCandidate func(*negotiation.ICECandidate)
	onTrack     func(media.RemoteTrack)
}

func (p *fakePeer) CreateOffer(ctx context.Context) (negotiation.SessionDescription, error) {
	return negotiation.SessionDescription{Type: "offer", SDP: "v=0 offer"}, ctx.Err()
}

func (p *fakePeer) CreateAnswer(ctx context.Context) (negotiation.SessionDescription, error) {
	return negotiation.SessionDescription{Type: "answer", SDP: "v=0 answer"}, ctx.Err()
}

func (p *fakePeer) SetLocalDescription(negotiation.SessionDescription) error {
	go func() {
		p.fireCandidate(&negotiation.ICECandidate{Candidate: "candidate:1 1 udp 1 127.0.0.1 5000 typ host"})
		p.fireCandidate(nil)
	}()
	return nil
}

func (p *fakePeer) SetRemoteDescription(negotiation.SessionDescription) error {
	go func() {
		p.mu.Lock()
		fn := p.onTrack
		p.mu.Unlock()
		if fn != nil {
			fn(fakeRemote{id: "remote-video"})
		}
	}()
	return nil
}

func (p *fakePeer) fireCandidate(c *negotiation.ICECandidate) {
	p.mu.Lock()
	fn := p.onCandidate
	p.mu.Unlock()
	if fn != nil {
		fn(c)
	}
}

func (p *fakePeer) AddICECandidate(c negotiation.ICECandidate) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.candidates = append(p.candidates, c.Candidate)
	return nil
}

func (p *fakePeer) AddTrack(t media.Track, _ *media.Stream) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tracks = append(p.tracks, t.Kind())
	return nil
}

func (p *fakePeer) OnLocalCandidate(fn func(*negotiation.ICECandidate)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onCandidate = fn
}

func (p *fakePeer) OnRemoteTrack(fn func(media.RemoteTrack)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onTrack = fn
}

func (p *fakePeer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePeer) trackKinds() []media.Kind {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]media.Kind(nil), p.tracks...)
}

func (p *fakePeer) received() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.candidates...)
}

type peerFactory struct {
	mu    sync.Mutex
	peers []*fakePeer
}

func (f *peerFactory) New() (negotiation.Capability, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := &fakePeer{}
	f.peers = append(f.peers, p)
	return p, nil
}

func (f *peerFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.peers)
}

func (f *peerFactory) last() *fakePeer {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.peers) == 0 {
		return nil
	}
	return f.peers[len(f.peers)-1]
}

type fakeTrack struct {
	mu      sync.Mutex
	id      string
	kind    media.Kind
	enabled bool
}

func (t *fakeTrack) ID() string       { return t.id }
func (t *fakeTrack) Kind() media.Kind { return t.kind }
func (t *fakeTrack) Stop()            {}

func (t *fakeTrack) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

func (t *fakeTrack) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
}

type fakeRemote struct{ id string }

func (r fakeRemote) ID() string       { return r.id }
func (r fakeRemote) Kind() media.Kind { return media.KindVideo }
func (r fakeRemote) StreamID() string { return "remote" }

func cameraSource() media.Source {
	return media.SourceFunc(func(context.Context, media.Constraints) (*media.Stream, error) {
		return media.NewStream(
			&fakeTrack{id: "cam", kind: media.KindVideo, enabled: true},
			&fakeTrack{id: "cam2", kind: media.KindVideo, enabled: true},
			&fakeTrack{id: "mic", kind: media.KindAudio, enabled: true},
		), nil
	})
}

var errDenied = errors.New("permission denied")

func deniedSource() media.Source {
	return media.SourceFunc(func(context.Context, media.Constraints) (*media.Stream, error) {
		return nil, errDenied
	})
}
