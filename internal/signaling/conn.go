package signaling

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/juju/ratelimit"

	"github.com/jheehg/webrtc-learning/internal/protocol"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. SDP blobs fit comfortably.
	maxMessageSize = 64 * 1024

	// DefaultSendBuffer is the outbound queue length per connection.
	DefaultSendBuffer = 256
)

// ConnOptions tunes a single connection.
type ConnOptions struct {
	// SendBuffer is the outbound queue length. Zero means DefaultSendBuffer.
	SendBuffer int

	// RateLimit is the sustained number of inbound messages per second.
	// Zero disables limiting.
	RateLimit float64

	// RateBurst is the bucket capacity for inbound messages.
	RateBurst int64
}

// Conn is a wrapper for a single websocket connection.
type Conn struct {
	// ID is the opaque connection identifier exposed to peers as userId.
	ID string

	// Send is the ordered outbound queue drained by WritePump.
	Send chan *protocol.Message

	router  *Router
	ws      *websocket.Conn
	codec   protocol.Codec
	limiter *ratelimit.Bucket
}

// NewConn wraps an upgraded websocket for router.
func NewConn(router *Router, ws *websocket.Conn, codec protocol.Codec, opts ConnOptions) *Conn {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = DefaultSendBuffer
	}

	c := &Conn{
		ID:     uuid.NewString(),
		Send:   make(chan *protocol.Message, opts.SendBuffer),
		router: router,
		ws:     ws,
		codec:  codec,
	}

	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = int64(opts.RateLimit)
		}
		c.limiter = ratelimit.NewBucketWithRate(opts.RateLimit, burst)
	}

	return c
}

// ReadPump pumps messages from the websocket connection to the router.
//
// The application runs ReadPump in a per-connection goroutine. The
// application ensures that there is at most one reader on a connection by
// executing all reads from this goroutine.
func (c *Conn) ReadPump() {
	defer func() {
		select {
		case c.router.Unregister <- c:
		case <-c.router.Done():
		}
		c.ws.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("websocket read failed", "conn", c.ID, "err", err)
			}
			return
		}

		if c.limiter != nil && c.limiter.TakeAvailable(1) == 0 {
			slog.Warn("inbound rate exceeded, dropping message", "conn", c.ID)
			continue
		}

		var msg protocol.Message
		if err := c.codec.Unmarshal(data, &msg); err != nil {
			slog.Warn("undecodable message dropped", "conn", c.ID, "codec", c.codec.Name(), "err", err)
			continue
		}

		select {
		case c.router.Inbound <- Inbound{From: c, Msg: &msg}:
		case <-c.router.Done():
			return
		}
	}
}

// WritePump pumps messages from the router to the websocket connection.
//
// A goroutine running WritePump is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (c *Conn) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	frame := websocket.TextMessage
	if c.codec.Binary() {
		frame = websocket.BinaryMessage
	}

	for {
		select {
		case msg, ok := <-c.Send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The router closed the queue.
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := c.codec.Marshal(msg)
			if err != nil {
				slog.Error("encode outbound message", "conn", c.ID, "type", msg.Type, "err", err)
				continue
			}
			if err := c.ws.WriteMessage(frame, data); err != nil {
				slog.Warn("websocket write failed", "conn", c.ID, "err", err)
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
