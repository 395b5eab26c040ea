package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/jheehg/webrtc-learning/internal/protocol"
	"github.com/jheehg/webrtc-learning/internal/signaling"
)

// Options configures the HTTP surface of the signaling server.
type Options struct {
	// AllowedOrigins lists origins allowed to open websockets and call the
	// HTTP API. Empty or containing "*" allows every origin.
	AllowedOrigins []string

	// Conn is applied to every accepted websocket.
	Conn signaling.ConnOptions
}

func (o Options) allowAll() bool {
	if len(o.AllowedOrigins) == 0 {
		return true
	}
	for _, origin := range o.AllowedOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

func (o Options) originAllowed(origin string) bool {
	if o.allowAll() || origin == "" {
		return true
	}
	for _, allowed := range o.AllowedOrigins {
		if allowed == origin {
			return true
		}
	}
	return false
}

// NewEngine builds the gin engine serving /health, /rooms and /ws.
func NewEngine(router *signaling.Router, opts Options) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if opts.allowAll() {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = opts.AllowedOrigins
	}
	engine.Use(cors.New(corsConfig))

	engine.GET("/health", healthCheckHandler)
	engine.GET("/rooms", roomsHandler(router.Registry()))
	engine.GET("/ws", ServeWs(router, opts))

	return engine
}

func healthCheckHandler(c *gin.Context) {
	c.String(http.StatusOK, "Signaling server is healthy.")
}

func roomsHandler(registry *signaling.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, registry.Snapshot())
	}
}

// ServeWs upgrades the request to a websocket, registers the connection
// with router and starts its pumps. The codec is picked with ?codec=.
func ServeWs(router *signaling.Router, opts Options) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  64 * 1024,
		WriteBufferSize: 64 * 1024,
		CheckOrigin: func(r *http.Request) bool {
			return opts.originAllowed(r.Header.Get("Origin"))
		},
	}

	return func(c *gin.Context) {
		codec, err := protocol.CodecByName(c.Query("codec"))
		if err != nil {
			c.String(http.StatusBadRequest, err.Error())
			return
		}

		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Warn("failed to upgrade connection", "err", err)
			return
		}

		conn := signaling.NewConn(router, ws, codec, opts.Conn)

		select {
		case router.Register <- conn:
		case <-router.Done():
			ws.Close()
			return
		}

		slog.Info("client connected", "conn", conn.ID, "remote", ws.RemoteAddr().String(), "codec", codec.Name())

		go conn.WritePump()
		go conn.ReadPump()
	}
}
