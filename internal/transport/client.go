// Package transport is the client side of the signaling websocket.
package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jheehg/webrtc-learning/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	queueSize      = 64
)

// ErrClosed is returned by Send after the client was closed.
var ErrClosed = errors.New("signaling connection closed")

// Client manages the websocket connection to the signaling server.
type Client struct {
	conn      *websocket.Conn
	serverURL string
	codec     protocol.Codec
	resolver  *Resolver
	incoming  chan *protocol.Message
	outgoing  chan *protocol.Message
	done      chan struct{}
	stopped   chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewClient creates a client for serverURL speaking codec.
func NewClient(serverURL string, codec protocol.Codec) *Client {
	if codec == nil {
		codec = protocol.JSON
	}
	return &Client{
		serverURL: serverURL,
		codec:     codec,
		resolver:  DefaultResolver,
		incoming:  make(chan *protocol.Message, queueSize),
		outgoing:  make(chan *protocol.Message, queueSize),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
}

// SetResolver replaces the resolver used to find the server.
func (c *Client) SetResolver(r *Resolver) {
	c.resolver = r
}

// Endpoint returns the server URL with the codec query parameter applied.
func (c *Client) Endpoint() (string, error) {
	u, err := url.Parse(c.serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return "", fmt.Errorf("invalid server URL scheme %q", u.Scheme)
	}
	if c.codec.Name() != protocol.CodecJSON {
		q := u.Query()
		q.Set("codec", c.codec.Name())
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// Connect establishes the websocket connection and starts the pumps.
func (c *Client) Connect(ctx context.Context) error {
	endpoint, err := c.Endpoint()
	if err != nil {
		return err
	}

	dialer := *websocket.DefaultDialer
	dialer.NetDialContext = c.resolver.DialContext

	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	slog.Debug("signaling connected", "url", endpoint, "codec", c.codec.Name())

	c.conn = conn
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.readPump()
	go c.writePump()

	return nil
}

func (c *Client) readPump() {
	defer func() {
		c.conn.Close()
		close(c.incoming)
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("signaling read failed", "error", err)
			}
			return
		}

		msg := &protocol.Message{}
		if err := c.codec.Unmarshal(data, msg); err != nil {
			slog.Warn("malformed signaling message", "error", err)
			continue
		}

		select {
		case c.incoming <- msg:
		case <-c.done:
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
		close(c.stopped)
	}()

	frame := websocket.TextMessage
	if c.codec.Binary() {
		frame = websocket.BinaryMessage
	}

	for {
		select {
		case msg := <-c.outgoing:
			if err := c.write(frame, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			// Messages queued before Close, such as a final leaveRoom, go
			// out ahead of the close frame.
			if err := c.flush(frame); err != nil {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *Client) flush(frame int) error {
	for {
		select {
		case msg := <-c.outgoing:
			if err := c.write(frame, msg); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

// write encodes msg and writes it as one frame. Encoding failures are
// logged and skipped; only write errors are returned.
func (c *Client) write(frame int, msg *protocol.Message) error {
	data, err := c.codec.Marshal(msg)
	if err != nil {
		slog.Warn("failed to encode signaling message", "type", msg.Type, "error", err)
		return nil
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(frame, data)
}

// Send queues msg for the server. Messages are written in call order.
func (c *Client) Send(msg *protocol.Message) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}

	select {
	case c.outgoing <- msg:
		return nil
	case <-c.done:
		return ErrClosed
	case <-c.stopped:
		return ErrClosed
	}
}

// Incoming returns the channel of server messages. It is closed when the
// connection drops.
func (c *Client) Incoming() <-chan *protocol.Message {
	return c.incoming
}

// Close closes the connection. It is safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.done)
	return nil
}
