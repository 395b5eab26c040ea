// Package rtc adapts a pion PeerConnection to the negotiation capability.
package rtc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pion/interceptor"
	"github.com/pion/webrtc/v4"

	"github.com/jheehg/webrtc-learning/internal/media"
	"github.com/jheehg/webrtc-learning/internal/negotiation"
)

// ErrUnsupportedTrack is returned for local tracks pion cannot send.
var ErrUnsupportedTrack = errors.New("track has no pion local track")

// ICEConfig lists the discovery servers handed to the ICE agent.
type ICEConfig struct {
	STUNServers []string
	TURNServers []string
	TURNUser    string
	TURNPass    string
	ForceRelay  bool
}

// Configuration turns the ICE config into a pion configuration.
func (c ICEConfig) Configuration() webrtc.Configuration {
	var servers []webrtc.ICEServer
	if len(c.STUNServers) > 0 {
		servers = append(servers, webrtc.ICEServer{URLs: c.STUNServers})
	}
	if len(c.TURNServers) > 0 {
		servers = append(servers, webrtc.ICEServer{
			URLs:       c.TURNServers,
			Username:   c.TURNUser,
			Credential: c.TURNPass,
		})
	}

	policy := webrtc.ICETransportPolicyAll
	if len(c.TURNServers) > 0 && c.ForceRelay {
		policy = webrtc.ICETransportPolicyRelay
	}

	return webrtc.Configuration{
		ICEServers:         servers,
		ICETransportPolicy: policy,
		BundlePolicy:       webrtc.BundlePolicyMaxBundle,
	}
}

// NewAPI builds a pion API with the default codecs and the default
// interceptors (NACK, RTCP reports, TWCC).
func NewAPI() (*webrtc.API, error) {
	m := &webrtc.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("register codecs: %w", err)
	}

	i := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(m, i); err != nil {
		return nil, fmt.Errorf("register interceptors: %w", err)
	}

	return webrtc.NewAPI(webrtc.WithMediaEngine(m), webrtc.WithInterceptorRegistry(i)), nil
}

// PeerConnection implements negotiation.Capability on top of pion.
type PeerConnection struct {
	pc *webrtc.PeerConnection

	mu          sync.Mutex
	onCandidate func(*negotiation.ICECandidate)
	onTrack     func(media.RemoteTrack)
	senders     int
}

// NewPeerConnection creates a pion peer connection from api and cfg.
func NewPeerConnection(api *webrtc.API, cfg ICEConfig) (*PeerConnection, error) {
	pc, err := api.NewPeerConnection(cfg.Configuration())
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	p := &PeerConnection{pc: pc}

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		fn := p.candidateHandler()
		if fn == nil {
			return
		}
		if c == nil {
			fn(nil)
			return
		}
		fn(fromPion(c.ToJSON()))
	})

	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		remote := newRemoteTrack(track)
		slog.Info("remote track received", "kind", remote.Kind(), "codec", track.Codec().MimeType, "stream", remote.StreamID())
		go remote.drain()

		if fn := p.trackHandler(); fn != nil {
			fn(remote)
		}
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		slog.Debug("peer connection state", "state", state.String())
	})
	pc.OnICEConnectionStateChange(func(state webrtc.ICEConnectionState) {
		slog.Debug("ice connection state", "state", state.String())
	})

	return p, nil
}

func (p *PeerConnection) candidateHandler() func(*negotiation.ICECandidate) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.onCandidate
}

func (p *PeerConnection) trackHandler() func(media.RemoteTrack) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.onTrack
}

func (p *PeerConnection) OnLocalCandidate(fn func(*negotiation.ICECandidate)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onCandidate = fn
}

func (p *PeerConnection) OnRemoteTrack(fn func(media.RemoteTrack)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onTrack = fn
}

// CreateOffer creates an offer with trickle ICE. Without local tracks the
// offer still asks to receive audio and video.
func (p *PeerConnection) CreateOffer(ctx context.Context) (negotiation.SessionDescription, error) {
	if err := ctx.Err(); err != nil {
		return negotiation.SessionDescription{}, err
	}

	p.mu.Lock()
	senders := p.senders
	p.mu.Unlock()

	if senders == 0 {
		for _, kind := range []webrtc.RTPCodecType{webrtc.RTPCodecTypeAudio, webrtc.RTPCodecTypeVideo} {
			if _, err := p.pc.AddTransceiverFromKind(kind, webrtc.RTPTransceiverInit{
				Direction: webrtc.RTPTransceiverDirectionRecvonly,
			}); err != nil {
				return negotiation.SessionDescription{}, fmt.Errorf("add %s transceiver: %w", kind, err)
			}
		}
	}

	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return negotiation.SessionDescription{}, err
	}
	return negotiation.SessionDescription{Type: offer.Type.String(), SDP: offer.SDP}, nil
}

func (p *PeerConnection) CreateAnswer(ctx context.Context) (negotiation.SessionDescription, error) {
	if err := ctx.Err(); err != nil {
		return negotiation.SessionDescription{}, err
	}

	answer, err := p.pc.CreateAnswer(nil)
	if err != nil {
		return negotiation.SessionDescription{}, err
	}
	return negotiation.SessionDescription{Type: answer.Type.String(), SDP: answer.SDP}, nil
}

func (p *PeerConnection) SetLocalDescription(d negotiation.SessionDescription) error {
	return p.pc.SetLocalDescription(toPion(d))
}

func (p *PeerConnection) SetRemoteDescription(d negotiation.SessionDescription) error {
	return p.pc.SetRemoteDescription(toPion(d))
}

func (p *PeerConnection) AddICECandidate(c negotiation.ICECandidate) error {
	return p.pc.AddICECandidate(webrtc.ICECandidateInit{
		Candidate:        c.Candidate,
		SDPMid:           c.SDPMid,
		SDPMLineIndex:    c.SDPMLineIndex,
		UsernameFragment: c.UsernameFragment,
	})
}

// AddTrack sends track to the peer. The track must expose a pion local
// track, as media.SampleTrack does.
func (p *PeerConnection) AddTrack(track media.Track, _ *media.Stream) error {
	local, ok := track.(interface{ Local() webrtc.TrackLocal })
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedTrack, track.ID())
	}

	sender, err := p.pc.AddTrack(local.Local())
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.senders++
	p.mu.Unlock()

	// Incoming RTCP must be read for interceptors like NACK to work.
	go func() {
		buf := make([]byte, 1500)
		for {
			if _, _, err := sender.Read(buf); err != nil {
				return
			}
		}
	}()
	return nil
}

func (p *PeerConnection) Close() error {
	return p.pc.Close()
}

// ConnectionState exposes the pion connection state for display.
func (p *PeerConnection) ConnectionState() webrtc.PeerConnectionState {
	return p.pc.ConnectionState()
}

func toPion(d negotiation.SessionDescription) webrtc.SessionDescription {
	return webrtc.SessionDescription{Type: webrtc.NewSDPType(d.Type), SDP: d.SDP}
}

func fromPion(c webrtc.ICECandidateInit) *negotiation.ICECandidate {
	return &negotiation.ICECandidate{
		Candidate:        c.Candidate,
		SDPMid:           c.SDPMid,
		SDPMLineIndex:    c.SDPMLineIndex,
		UsernameFragment: c.UsernameFragment,
	}
}
