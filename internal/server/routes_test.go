package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jheehg/webrtc-learning/internal/protocol"
	"github.com/jheehg/webrtc-learning/internal/signaling"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type wsPeer struct {
	t     *testing.T
	conn  *websocket.Conn
	codec protocol.Codec
}

func startServer(t *testing.T, capacity int) *httptest.Server {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	router := signaling.NewRouter(signaling.NewRegistry(capacity))
	go router.Run(ctx)

	srv := httptest.NewServer(NewEngine(router, Options{}))
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-router.Done()
	})
	return srv
}

func dial(t *testing.T, srv *httptest.Server, codec protocol.Codec) *wsPeer {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?codec=" + codec.Name()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &wsPeer{t: t, conn: conn, codec: codec}
}

func (p *wsPeer) send(m *protocol.Message) {
	p.t.Helper()
	data, err := p.codec.Marshal(m)
	require.NoError(p.t, err)
	frame := websocket.TextMessage
	if p.codec.Binary() {
		frame = websocket.BinaryMessage
	}
	require.NoError(p.t, p.conn.WriteMessage(frame, data))
}

func (p *wsPeer) recv() *protocol.Message {
	p.t.Helper()
	require.NoError(p.t, p.conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, data, err := p.conn.ReadMessage()
	require.NoError(p.t, err)
	var m protocol.Message
	require.NoError(p.t, p.codec.Unmarshal(data, &m))
	return &m
}

func TestHealth(t *testing.T) {
	srv := startServer(t, 4)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "healthy")
}

func TestUnknownCodecRejected(t *testing.T) {
	srv := startServer(t, 4)

	resp, err := http.Get(srv.URL + "/ws?codec=xml")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSignalingOverWebsocket(t *testing.T) {
	srv := startServer(t, 4)

	x := dial(t, srv, protocol.JSON)
	y := dial(t, srv, protocol.Msgpack)

	x.send(protocol.JoinRoom("demo"))
	got := x.recv()
	assert.Equal(t, protocol.TypeRoomCreated, got.Type)
	assert.Equal(t, "demo", got.Room)

	y.send(protocol.JoinRoom("demo"))
	joined := y.recv()
	assert.Equal(t, protocol.TypeRoomJoined, joined.Type)
	assert.NotEmpty(t, joined.UserID)

	y.send(protocol.Ready("demo"))
	ready := x.recv()
	assert.Equal(t, protocol.TypeSomeoneReady, ready.Type)
	assert.Equal(t, joined.UserID, ready.UserID)

	offer := json.RawMessage(`{"type":"offer","sdp":"v=0"}`)
	x.send(protocol.Relay(protocol.TypeOffer, "demo", offer))
	relayed := y.recv()
	assert.Equal(t, protocol.TypeOffer, relayed.Type)
	assert.JSONEq(t, string(offer), string(relayed.Payload))

	resp, err := http.Get(srv.URL + "/rooms")
	require.NoError(t, err)
	var rooms []signaling.RoomInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rooms))
	resp.Body.Close()
	require.Len(t, rooms, 1)
	assert.Equal(t, 2, rooms[0].Members)

	// transport-level disconnect behaves as leaveRoom
	y.conn.Close()
	left := x.recv()
	assert.Equal(t, protocol.TypeUserLeaved, left.Type)
	assert.Equal(t, joined.UserID, left.UserID)
}

func TestOriginCheck(t *testing.T) {
	opts := Options{AllowedOrigins: []string{"https://call.example"}}
	assert.True(t, opts.originAllowed("https://call.example"))
	assert.True(t, opts.originAllowed(""))
	assert.False(t, opts.originAllowed("https://evil.example"))

	assert.True(t, Options{}.originAllowed("https://anything"))
}
