package negotiation

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jheehg/webrtc-learning/internal/media"
)

// EventKind tells what an Event carries.
type EventKind int

const (
	// EventLocalCandidate carries a locally gathered candidate.
	EventLocalCandidate EventKind = iota
	// EventGatheringComplete means no more local candidates will follow.
	EventGatheringComplete
	// EventRemoteTrack carries a track received from the peer.
	EventRemoteTrack
	// EventStateChange carries the state just entered.
	EventStateChange
)

// Event is one entry of the session's event stream.
type Event struct {
	Kind      EventKind
	Candidate *ICECandidate
	Track     media.RemoteTrack
	State     State
}

const eventBuffer = 256

// Session owns one negotiation attempt. It is created in Idle, moves
// forward only, and ends in Closed; it is never reused.
//
// Local descriptions and remote descriptions are set at most once each.
// Candidates received before the remote description are queued and
// applied in arrival order once it is set.
type Session struct {
	pc Capability

	mu          sync.Mutex
	state       State
	local       *SessionDescription
	remote      *SessionDescription
	pending     []ICECandidate
	remoteTrack bool

	events    chan Event
	done      chan struct{}
	closeOnce sync.Once
}

// New wraps pc in a Session in Idle.
func New(pc Capability) *Session {
	s := &Session{
		pc:     pc,
		events: make(chan Event, eventBuffer),
		done:   make(chan struct{}),
	}

	pc.OnLocalCandidate(s.handleLocalCandidate)
	pc.OnRemoteTrack(s.handleRemoteTrack)

	return s
}

// Events is the multi-fire stream of local candidates, remote tracks and
// state changes. It is never closed; select on Done as well.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Done is closed when the session is closed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LocalDescription returns the local description, or nil.
func (s *Session) LocalDescription() *SessionDescription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.local
}

// RemoteDescription returns the remote description, or nil.
func (s *Session) RemoteDescription() *SessionDescription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remote
}

// PendingCandidates is the number of queued remote candidates.
func (s *Session) PendingCandidates() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// AddTracks attaches the first video track and the first audio track of
// stream. Further tracks of either kind are ignored. A nil stream attaches
// nothing.
func (s *Session) AddTracks(stream *media.Stream) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Closed {
		return invalidState("add tracks", s.state)
	}
	if stream == nil {
		return nil
	}

	if video := stream.VideoTracks(); len(video) > 0 {
		if err := s.pc.AddTrack(video[0], stream); err != nil {
			return &Error{Op: "add video track", State: s.state, Err: err}
		}
	}
	if audio := stream.AudioTracks(); len(audio) > 0 {
		if err := s.pc.AddTrack(audio[0], stream); err != nil {
			return &Error{Op: "add audio track", State: s.state, Err: err}
		}
	}
	return nil
}

// CreateOffer produces and applies the local offer. Valid only in Idle.
// Candidate gathering starts as a side effect; candidates appear on Events.
func (s *Session) CreateOffer(ctx context.Context) (SessionDescription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Idle {
		return SessionDescription{}, invalidState("create offer", s.state)
	}

	offer, err := s.pc.CreateOffer(ctx)
	if err != nil {
		return SessionDescription{}, &Error{Op: "create offer", State: s.state, Err: err}
	}
	if err := s.pc.SetLocalDescription(offer); err != nil {
		return SessionDescription{}, &Error{Op: "set local description", State: s.state, Err: err}
	}

	s.local = &offer
	s.setStateLocked(OfferCreated)
	return offer, nil
}

// CreateUserAnswer applies the peer's offer and produces the local answer.
// Valid only in Idle, before any local description exists.
func (s *Session) CreateUserAnswer(ctx context.Context, offer SessionDescription) (SessionDescription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Idle || s.local != nil {
		return SessionDescription{}, invalidState("create answer", s.state)
	}

	if err := s.pc.SetRemoteDescription(offer); err != nil {
		return SessionDescription{}, &Error{Op: "set remote description", State: s.state, Err: err}
	}
	s.remote = &offer
	s.setStateLocked(OfferReceived)
	s.flushPendingLocked()

	answer, err := s.pc.CreateAnswer(ctx)
	if err != nil {
		return SessionDescription{}, &Error{Op: "create answer", State: s.state, Err: err}
	}
	if err := s.pc.SetLocalDescription(answer); err != nil {
		return SessionDescription{}, &Error{Op: "set local description", State: s.state, Err: err}
	}

	s.local = &answer
	s.setStateLocked(AnswerCreated)
	s.checkConnectedLocked()
	return answer, nil
}

// ReceiveUserAnswer applies the peer's answer. Valid only in OfferCreated;
// in any other state it returns ErrInvalidState and changes nothing.
func (s *Session) ReceiveUserAnswer(answer SessionDescription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != OfferCreated {
		return invalidState("receive answer", s.state)
	}

	if err := s.pc.SetRemoteDescription(answer); err != nil {
		return &Error{Op: "set remote description", State: s.state, Err: err}
	}
	s.remote = &answer
	s.setStateLocked(AnswerReceived)
	s.flushPendingLocked()
	s.checkConnectedLocked()
	return nil
}

// AddICECandidate applies a remote candidate, or queues it until the
// remote description is set. A candidate the capability rejects is logged
// and otherwise ignored.
func (s *Session) AddICECandidate(c ICECandidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Closed {
		return invalidState("add ice candidate", s.state)
	}
	if s.remote == nil {
		s.pending = append(s.pending, c)
		return nil
	}
	s.applyCandidateLocked(c)
	return nil
}

// Close releases the capability. It is safe to call any number of times.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.state = Closed
		s.pending = nil
		s.mu.Unlock()

		close(s.done)
		s.pc.OnLocalCandidate(nil)
		s.pc.OnRemoteTrack(nil)
		err = s.pc.Close()
	})
	return err
}

func (s *Session) flushPendingLocked() {
	pending := s.pending
	s.pending = nil
	for _, c := range pending {
		s.applyCandidateLocked(c)
	}
}

func (s *Session) applyCandidateLocked(c ICECandidate) {
	if err := s.pc.AddICECandidate(c); err != nil {
		slog.Warn("remote candidate rejected", "candidate", c.Candidate, "err", err)
	}
}

func (s *Session) checkConnectedLocked() {
	if s.remote != nil && s.local != nil && s.remoteTrack && s.state != Connected && s.state != Closed {
		s.setStateLocked(Connected)
	}
}

func (s *Session) setStateLocked(st State) {
	s.state = st
	slog.Debug("negotiation state", "state", st)

	// State events are informational; never block a transition on them.
	select {
	case s.events <- Event{Kind: EventStateChange, State: st}:
	default:
	}
}

func (s *Session) handleLocalCandidate(c *ICECandidate) {
	if c == nil {
		s.emit(Event{Kind: EventGatheringComplete})
		return
	}
	s.emit(Event{Kind: EventLocalCandidate, Candidate: c})
}

func (s *Session) handleRemoteTrack(t media.RemoteTrack) {
	s.mu.Lock()
	if s.state == Closed {
		s.mu.Unlock()
		return
	}
	s.remoteTrack = true
	s.checkConnectedLocked()
	s.mu.Unlock()

	s.emit(Event{Kind: EventRemoteTrack, Track: t})
}

// emit delivers e in order, giving up once the session is closed.
func (s *Session) emit(e Event) {
	select {
	case <-s.done:
		return
	default:
	}
	select {
	case s.events <- e:
	case <-s.done:
	}
}
