package orchestrator

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jheehg/webrtc-learning/internal/media"
	"github.com/jheehg/webrtc-learning/internal/negotiation"
	"github.com/jheehg/webrtc-learning/internal/protocol"
	"github.com/jheehg/webrtc-learning/internal/server"
	"github.com/jheehg/webrtc-learning/internal/signaling"
	"github.com/jheehg/webrtc-learning/internal/transport"
)

func startSignaling(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx, cancel := context.WithCancel(context.Background())
	router := signaling.NewRouter(signaling.NewRegistry(signaling.DefaultRemoteLimit + 1))
	go router.Run(ctx)

	srv := httptest.NewServer(server.NewEngine(router, server.Options{}))
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-router.Done()
	})
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

type client struct {
	orch   *Orchestrator
	peers  *peerFactory
	conn   *transport.Client
	cancel context.CancelFunc
	done   chan error
}

func startClient(t *testing.T, url string, codec protocol.Codec) *client {
	t.Helper()

	conn := transport.NewClient(url, codec)
	require.NoError(t, conn.Connect(context.Background()))

	peers := &peerFactory{}
	c := &client{
		orch:  New(conn, peers.New, media.NewEndpoint(cameraSource(), media.DefaultConstraints)),
		peers: peers,
		conn:  conn,
		done:  make(chan error, 1),
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	go func() { c.done <- c.orch.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		conn.Close()
	})
	return c
}

func waitNotice(t *testing.T, o *Orchestrator, kind NoticeKind) Notice {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case n := <-o.Notices():
			if n.Kind == kind {
				return n
			}
		case <-deadline:
			t.Fatalf("no %s notice", kind)
			return Notice{}
		}
	}
}

func sessionState(o *Orchestrator) negotiation.State {
	if s := o.Session(); s != nil {
		return s.State()
	}
	return negotiation.Closed
}

func TestTwoClientsReachConnected(t *testing.T) {
	url := startSignaling(t)
	x := startClient(t, url, protocol.JSON)
	y := startClient(t, url, protocol.Msgpack)

	require.NoError(t, x.orch.Join("demo"))
	waitNotice(t, x.orch, NoticeRoomCreated)
	assert.True(t, x.orch.Creator())

	require.NoError(t, y.orch.Join("demo"))
	joined := waitNotice(t, y.orch, NoticeRoomJoined)
	assert.NotEmpty(t, joined.UserID)
	assert.False(t, y.orch.Creator())

	ready := waitNotice(t, x.orch, NoticePeerReady)
	assert.Equal(t, joined.UserID, ready.UserID)

	waitNotice(t, x.orch, NoticeConnected)
	waitNotice(t, y.orch, NoticeConnected)
	assert.Equal(t, negotiation.Connected, sessionState(x.orch))
	assert.Equal(t, negotiation.Connected, sessionState(y.orch))

	assert.Eventually(t, func() bool {
		return len(x.peers.last().received()) > 0 && len(y.peers.last().received()) > 0
	}, 2*time.Second, 10*time.Millisecond, "candidates should cross the relay")

	require.NoError(t, y.orch.SendChat("hi there"))
	assert.Equal(t, "hi there", waitNotice(t, x.orch, NoticeChat).Text)
	assert.Equal(t, "hi there", waitNotice(t, y.orch, NoticeChat).Text)

	// Y drops off; X becomes the creator with no session.
	y.cancel()
	y.conn.Close()

	left := waitNotice(t, x.orch, NoticePeerLeft)
	assert.Equal(t, joined.UserID, left.UserID)
	assert.True(t, x.orch.Creator())
	assert.Nil(t, x.orch.Session())
}
