package signaling

import (
	"context"
	"log/slog"

	"github.com/jheehg/webrtc-learning/internal/protocol"
)

// Inbound is a message read from a connection, tagged with its sender.
type Inbound struct {
	From *Conn
	Msg  *protocol.Message
}

// Router is the central brain of the signaling server. It owns the set of
// live connections and dispatches every inbound message against the room
// registry. A single goroutine (Run) processes all events, so relays from
// one sender reach every recipient's queue in the order they were sent.
type Router struct {
	registry *Registry

	// conns is only touched from the Run goroutine.
	conns map[string]*Conn

	// Register is a channel for newly accepted connections.
	Register chan *Conn

	// Unregister is a channel for connections whose transport closed.
	Unregister chan *Conn

	// Inbound carries every decoded message from every connection.
	Inbound chan Inbound

	done chan struct{}
}

// NewRouter creates a Router dispatching against registry.
func NewRouter(registry *Registry) *Router {
	return &Router{
		registry:   registry,
		conns:      make(map[string]*Conn),
		Register:   make(chan *Conn),
		Unregister: make(chan *Conn),
		Inbound:    make(chan Inbound, 256),
		done:       make(chan struct{}),
	}
}

// Registry returns the room registry the router dispatches against.
func (h *Router) Registry() *Registry {
	return h.registry
}

// Done is closed once Run has returned.
func (h *Router) Done() <-chan struct{} {
	return h.done
}

// Run processes connection lifecycle and inbound messages until ctx is
// cancelled.
func (h *Router) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case c := <-h.Register:
			h.register(c)

		case c := <-h.Unregister:
			h.unregister(c)

		case in := <-h.Inbound:
			h.Handle(in.From, in.Msg)

		case <-ctx.Done():
			for _, c := range h.conns {
				h.unregister(c)
			}
			return
		}
	}
}

func (h *Router) register(c *Conn) {
	h.conns[c.ID] = c
	slog.Debug("connection registered", "conn", c.ID)
}

// unregister treats a closed transport as leaving whatever room the
// connection was in, then stops its writer.
func (h *Router) unregister(c *Conn) {
	if _, ok := h.conns[c.ID]; !ok {
		return
	}

	if d := h.registry.Disconnect(c.ID); d != nil {
		h.announceDeparture(c.ID, d)
	}

	delete(h.conns, c.ID)
	close(c.Send)
	slog.Debug("connection unregistered", "conn", c.ID)
}

// Handle dispatches one message from sender. It never fails: anything that
// cannot be honoured is logged and dropped. Messages from a connection that
// is not registered, including ones still queued when it unregistered, are
// dropped so a closed connection never rejoins a room.
func (h *Router) Handle(sender *Conn, msg *protocol.Message) {
	if _, ok := h.conns[sender.ID]; !ok {
		slog.Debug("message from unregistered connection dropped", "type", msg.Type, "conn", sender.ID, "err", ErrTransportClosed)
		return
	}

	slog.Debug("message received", "type", msg.Type, "room", msg.Room, "conn", sender.ID)

	if msg.Room == "" {
		slog.Debug("message without room ignored", "type", msg.Type, "conn", sender.ID)
		return
	}

	switch msg.Type {
	case protocol.TypeJoinRoom:
		h.join(sender, msg.Room)

	case protocol.TypeLeaveRoom:
		if d := h.registry.Leave(sender.ID, msg.Room); d != nil {
			h.announceDeparture(sender.ID, d)
		}

	case protocol.TypeReady:
		h.toOthers(sender, msg.Room, protocol.SomeoneReady(msg.Room, sender.ID))

	case protocol.TypeOffer, protocol.TypeAnswer, protocol.TypeCandidate:
		// Payload is forwarded untouched; the router never inspects it.
		h.toOthers(sender, msg.Room, protocol.Relay(msg.Type, msg.Room, msg.Payload))

	case protocol.TypeChat:
		h.chat(sender, msg)

	default:
		slog.Warn("unknown message type", "type", msg.Type, "conn", sender.ID)
	}
}

func (h *Router) join(sender *Conn, room string) {
	result, left := h.registry.Join(sender.ID, room)
	if left != nil {
		h.announceDeparture(sender.ID, left)
	}

	switch result {
	case JoinCreated:
		slog.Info("room created", "room", room, "conn", sender.ID)
		h.deliver(sender, protocol.RoomCreated(room))
	case JoinJoined:
		slog.Info("room joined", "room", room, "conn", sender.ID)
		h.deliver(sender, protocol.RoomJoined(room, sender.ID))
	case JoinFull:
		slog.Info("room is full", "room", room, "conn", sender.ID, "capacity", h.registry.Capacity())
		h.deliver(sender, protocol.RoomIsFull(room))
	}
}

func (h *Router) announceDeparture(connID string, d *Departure) {
	slog.Info("member left room", "room", d.Room, "conn", connID, "remaining", len(d.Remaining))
	if d.Deleted {
		slog.Info("room deleted", "room", d.Room)
	}
	for _, id := range d.Remaining {
		h.deliverTo(id, protocol.UserLeaved(connID))
	}
}

// toOthers sends msg to every member of room except sender. A sender that
// is not a member of room is ignored.
func (h *Router) toOthers(sender *Conn, room string, msg *protocol.Message) {
	others, ok := h.registry.Others(sender.ID, room)
	if !ok {
		slog.Debug("sender not in room, dropping", "type", msg.Type, "room", room, "conn", sender.ID)
		return
	}
	for _, id := range others {
		h.deliverTo(id, msg)
	}
}

func (h *Router) chat(sender *Conn, msg *protocol.Message) {
	others, ok := h.registry.Others(sender.ID, msg.Room)
	if !ok {
		slog.Debug("chat from non-member dropped", "room", msg.Room, "conn", sender.ID)
		return
	}
	out := protocol.SendMessage(msg.Room, sender.ID, msg.Payload)
	h.deliver(sender, out)
	for _, id := range others {
		h.deliverTo(id, out)
	}
}

func (h *Router) deliverTo(connID string, msg *protocol.Message) {
	c, ok := h.conns[connID]
	if !ok {
		slog.Debug("recipient gone, dropping", "type", msg.Type, "conn", connID, "err", ErrTransportClosed)
		return
	}
	h.deliver(c, msg)
}

// deliver queues msg on c without blocking the router. A full queue means
// the peer is not keeping up; the message is dropped.
func (h *Router) deliver(c *Conn, msg *protocol.Message) {
	select {
	case c.Send <- msg:
	default:
		slog.Warn("outbound queue full, dropping", "type", msg.Type, "conn", c.ID)
	}
}
