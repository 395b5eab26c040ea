// Package orchestrator drives one room membership on the client: it turns
// room lifecycle messages into negotiation steps and reports them to the UI.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/jheehg/webrtc-learning/internal/media"
	"github.com/jheehg/webrtc-learning/internal/negotiation"
	"github.com/jheehg/webrtc-learning/internal/protocol"
)

const noticeBuffer = 64

// MessageChannel is the ordered connection to the signaling server.
type MessageChannel interface {
	Send(msg *protocol.Message) error
	Incoming() <-chan *protocol.Message
}

// CapabilityFactory creates the negotiation capability for a new session.
type CapabilityFactory func() (negotiation.Capability, error)

// Status is a snapshot for display.
type Status struct {
	Room        string
	Creator     bool
	Negotiation string
	AudioMuted  bool
	VideoHidden bool
	Remote      []media.RemoteTrack
}

// Orchestrator owns the room membership, the current negotiation session
// and the media endpoint. Inbound messages are handled one at a time by Run;
// user actions may be called from any goroutine.
type Orchestrator struct {
	channel    MessageChannel
	newPeer    CapabilityFactory
	endpoint   *media.Endpoint
	notices    chan Notice
	sessionSet chan struct{}

	mu      sync.Mutex
	pending string
	room    string
	creator bool
	session *negotiation.Session
}

// New creates an orchestrator. All collaborators are required.
func New(channel MessageChannel, newPeer CapabilityFactory, endpoint *media.Endpoint) *Orchestrator {
	if channel == nil || newPeer == nil || endpoint == nil {
		panic("orchestrator: nil collaborator")
	}
	return &Orchestrator{
		channel:    channel,
		newPeer:    newPeer,
		endpoint:   endpoint,
		notices:    make(chan Notice, noticeBuffer),
		sessionSet: make(chan struct{}, 1),
	}
}

// Notices returns the stream of user-facing events.
func (o *Orchestrator) Notices() <-chan Notice {
	return o.notices
}

// Endpoint returns the media endpoint.
func (o *Orchestrator) Endpoint() *media.Endpoint {
	return o.endpoint
}

// Room returns the joined room, or "" before the server confirmed a join.
func (o *Orchestrator) Room() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.room
}

// Creator reports whether this client makes the next offer.
func (o *Orchestrator) Creator() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.creator
}

// Session returns the current negotiation session, if any.
func (o *Orchestrator) Session() *negotiation.Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session
}

// Status returns a snapshot of the room state.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	st := Status{Room: o.room, Creator: o.creator, Negotiation: "none"}
	if o.session != nil {
		st.Negotiation = o.session.State().String()
	}
	o.mu.Unlock()

	st.AudioMuted = o.endpoint.AudioMuted()
	st.VideoHidden = o.endpoint.VideoHidden()
	st.Remote = o.endpoint.RemoteTracks()
	return st
}

// Join asks the server for a room. Joining while in another room leaves
// it first; joining the current room again does nothing.
func (o *Orchestrator) Join(room string) error {
	if err := ValidateRoomName(room); err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.room == room {
		return nil
	}
	if o.room != "" {
		if err := o.leaveLocked(); err != nil {
			return err
		}
	}

	o.pending = room
	return o.channel.Send(protocol.JoinRoom(room))
}

// Leave clears all media, closes the session and leaves the room.
func (o *Orchestrator) Leave() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.room == "" {
		return nil
	}
	room := o.room
	err := o.leaveLocked()
	o.notify(Notice{Kind: NoticeLeft, Room: room})
	return err
}

func (o *Orchestrator) leaveLocked() error {
	room := o.room
	o.closeSessionLocked()
	o.endpoint.ClearAll()
	o.room = ""
	o.pending = ""
	o.creator = false

	slog.Info("leaving room", "room", room)
	return o.channel.Send(protocol.LeaveRoom(room))
}

// SendChat sends a text line to everyone in the room.
func (o *Orchestrator) SendChat(text string) error {
	room := o.Room()
	if room == "" {
		return ErrNotInRoom
	}
	msg, err := protocol.Chat(room, text)
	if err != nil {
		return err
	}
	return o.channel.Send(msg)
}

// ToggleMute flips the audio mute flag and returns the new value.
func (o *Orchestrator) ToggleMute() bool {
	o.endpoint.SetAudioMuted(!o.endpoint.AudioMuted())
	return o.endpoint.AudioMuted()
}

// ToggleCamera flips the video hidden flag and returns the new value.
func (o *Orchestrator) ToggleCamera() bool {
	o.endpoint.SetVideoHidden(!o.endpoint.VideoHidden())
	return o.endpoint.VideoHidden()
}

// Run handles server messages and session events until ctx is done or the
// channel closes. The session and media are released on return.
func (o *Orchestrator) Run(ctx context.Context) error {
	defer o.shutdown()

	for {
		var events <-chan negotiation.Event
		var done <-chan struct{}
		if s := o.Session(); s != nil {
			events = s.Events()
			done = s.Done()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()

		case msg, ok := <-o.channel.Incoming():
			if !ok {
				o.notify(Notice{Kind: NoticeDisconnected})
				return ErrChannelClosed
			}
			o.Handle(ctx, msg)

		case ev := <-events:
			o.handleEvent(ev)

		case <-done:
			// Session closed by a user action; pick up the next one.
		case <-o.sessionSet:
		}
	}
}

func (o *Orchestrator) shutdown() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closeSessionLocked()
	o.endpoint.ClearAll()
}

// Handle applies one server message.
func (o *Orchestrator) Handle(ctx context.Context, msg *protocol.Message) {
	o.mu.Lock()
	defer o.mu.Unlock()

	slog.Debug("signaling message", "type", msg.Type, "room", msg.Room, "user", msg.UserID)

	switch msg.Type {
	case protocol.TypeRoomCreated:
		o.enterLocked(ctx, msg.Room, true)
		o.notify(Notice{Kind: NoticeRoomCreated, Room: msg.Room})
		o.announceReadyLocked()

	case protocol.TypeRoomJoined:
		o.enterLocked(ctx, msg.Room, false)
		o.notify(Notice{Kind: NoticeRoomJoined, Room: msg.Room, UserID: msg.UserID})
		o.announceReadyLocked()

	case protocol.TypeRoomIsFull:
		o.pending = ""
		o.notify(Notice{Kind: NoticeRoomFull, Room: msg.Room, Err: ErrCapacityExceeded})

	case protocol.TypeSomeoneReady:
		if !o.inRoomLocked(msg) {
			return
		}
		o.notify(Notice{Kind: NoticePeerReady, Room: o.room, UserID: msg.UserID})
		if !o.creator {
			return
		}
		o.offerLocked(ctx)

	case protocol.TypeOffer:
		if !o.inRoomLocked(msg) {
			return
		}
		if o.creator {
			slog.Warn("offer received by creator, ignoring", "room", o.room)
			return
		}
		var offer negotiation.SessionDescription
		if err := msg.DecodePayload(&offer); err != nil {
			slog.Warn("malformed offer", "room", o.room, "error", err)
			return
		}
		o.answerLocked(ctx, offer)

	case protocol.TypeAnswer:
		if !o.inRoomLocked(msg) || o.session == nil {
			return
		}
		var answer negotiation.SessionDescription
		if err := msg.DecodePayload(&answer); err != nil {
			slog.Warn("malformed answer", "room", o.room, "error", err)
			return
		}
		if err := o.session.ReceiveUserAnswer(answer); err != nil {
			logNegotiationError("receive answer", err)
		}

	case protocol.TypeCandidate:
		if !o.inRoomLocked(msg) {
			return
		}
		if o.session == nil {
			// The server relays each sender's messages in order, so a
			// candidate always follows the offer that opened its session.
			slog.Debug("candidate without session dropped", "room", o.room, "user", msg.UserID)
			return
		}
		var c negotiation.ICECandidate
		if err := msg.DecodePayload(&c); err != nil {
			slog.Warn("malformed candidate", "room", o.room, "error", err)
			return
		}
		if err := o.session.AddICECandidate(c); err != nil {
			logNegotiationError("add candidate", err)
		}

	case protocol.TypeUserLeaved:
		if o.room == "" {
			return
		}
		o.closeSessionLocked()
		o.endpoint.ClearRemote()
		o.creator = true
		o.notify(Notice{Kind: NoticePeerLeft, Room: o.room, UserID: msg.UserID})

	case protocol.TypeSendMessage:
		if !o.inRoomLocked(msg) {
			return
		}
		var chat protocol.ChatPayload
		if err := msg.DecodePayload(&chat); err != nil {
			slog.Warn("malformed chat", "room", o.room, "error", err)
			return
		}
		o.notify(Notice{Kind: NoticeChat, Room: o.room, UserID: msg.UserID, Text: chat.Text})

	default:
		slog.Debug("unhandled message", "type", msg.Type)
	}
}

func (o *Orchestrator) enterLocked(ctx context.Context, room string, creator bool) {
	if o.pending != "" && o.pending != room {
		slog.Warn("join confirmed for unexpected room", "want", o.pending, "got", room)
	}
	o.pending = ""
	o.room = room
	o.creator = creator

	if err := o.endpoint.Init(ctx); err != nil {
		slog.Error("media acquisition failed", "room", room, "error", err)
		o.notify(Notice{Kind: NoticeMediaFailed, Room: room, Err: err})
	}
}

func (o *Orchestrator) announceReadyLocked() {
	if err := o.channel.Send(protocol.Ready(o.room)); err != nil {
		slog.Error("failed to announce ready", "room", o.room, "error", err)
	}
}

func (o *Orchestrator) inRoomLocked(msg *protocol.Message) bool {
	if o.room == "" || (msg.Room != "" && msg.Room != o.room) {
		slog.Debug("message for another room dropped", "type", msg.Type, "room", msg.Room)
		return false
	}
	return true
}

// startSessionLocked replaces any active session with a fresh one that has
// the local tracks attached.
func (o *Orchestrator) startSessionLocked() *negotiation.Session {
	o.closeSessionLocked()

	pc, err := o.newPeer()
	if err != nil {
		slog.Error("failed to create peer connection", "room", o.room, "error", err)
		return nil
	}

	s := negotiation.New(pc)
	if stream := o.endpoint.LocalStream(); stream != nil {
		if err := s.AddTracks(stream); err != nil {
			slog.Warn("failed to attach local tracks", "room", o.room, "error", err)
		}
	}
	o.session = s

	select {
	case o.sessionSet <- struct{}{}:
	default:
	}
	return s
}

func (o *Orchestrator) offerLocked(ctx context.Context) {
	s := o.startSessionLocked()
	if s == nil {
		return
	}
	offer, err := s.CreateOffer(ctx)
	if err != nil {
		logNegotiationError("create offer", err)
		return
	}
	o.sendRelayLocked(protocol.TypeOffer, offer)
}

func (o *Orchestrator) answerLocked(ctx context.Context, offer negotiation.SessionDescription) {
	s := o.startSessionLocked()
	if s == nil {
		return
	}
	answer, err := s.CreateUserAnswer(ctx, offer)
	if err != nil {
		logNegotiationError("create answer", err)
		return
	}
	o.sendRelayLocked(protocol.TypeAnswer, answer)
}

func (o *Orchestrator) sendRelayLocked(kind string, v any) {
	msg, err := protocol.NewRelay(kind, o.room, v)
	if err != nil {
		slog.Error("failed to encode relay", "type", kind, "error", err)
		return
	}
	if err := o.channel.Send(msg); err != nil {
		slog.Error("failed to send relay", "type", kind, "room", o.room, "error", err)
	}
}

func (o *Orchestrator) closeSessionLocked() {
	if o.session == nil {
		return
	}
	if err := o.session.Close(); err != nil {
		slog.Debug("session close", "error", err)
	}
	o.session = nil
}

func (o *Orchestrator) handleEvent(ev negotiation.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch ev.Kind {
	case negotiation.EventLocalCandidate:
		if o.room == "" {
			return
		}
		o.sendRelayLocked(protocol.TypeCandidate, ev.Candidate)

	case negotiation.EventGatheringComplete:
		slog.Debug("candidate gathering complete", "room", o.room)

	case negotiation.EventRemoteTrack:
		o.endpoint.AttachRemoteTrack(ev.Track)
		o.notify(Notice{Kind: NoticeRemoteTrack, Room: o.room, Text: string(ev.Track.Kind())})

	case negotiation.EventStateChange:
		if ev.State == negotiation.Connected {
			o.notify(Notice{Kind: NoticeConnected, Room: o.room})
		}
	}
}

func (o *Orchestrator) notify(n Notice) {
	select {
	case o.notices <- n:
	default:
		slog.Warn("notice dropped", "kind", n.Kind.String())
	}
}

// logNegotiationError logs out-of-order negotiation calls quietly; they are
// no-ops, not failures.
func logNegotiationError(op string, err error) {
	if errors.Is(err, negotiation.ErrInvalidState) {
		slog.Debug("negotiation step ignored", "op", op, "error", err)
		return
	}
	slog.Error("negotiation failed", "op", op, "error", err)
}
