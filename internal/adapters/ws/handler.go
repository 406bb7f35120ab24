package ws

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/okian/feedrelay/internal/sessions"
	"github.com/okian/feedrelay/pkg/logger"
)

// Default connection tuning.
const (
	defaultSendBuffer = 32
	defaultWriteWait  = 10 * time.Second
	defaultPongWait   = 60 * time.Second
	defaultPingPeriod = 50 * time.Second
	readLimit         = 4096
)

// Handler upgrades HTTP requests to WebSocket subscriber sessions and
// ties their lifecycle to the session registry.
type Handler struct {
	registry *sessions.Registry
	upgrader websocket.Upgrader

	sendBuffer int
	writeWait  time.Duration
	pongWait   time.Duration
	pingPeriod time.Duration

	logger logger.Logger
}

// NewHandler creates a WebSocket handler bound to a registry.
func NewHandler(registry *sessions.Registry, opts ...Option) *Handler {
	h := &Handler{
		registry:   registry,
		sendBuffer: defaultSendBuffer,
		writeWait:  defaultWriteWait,
		pongWait:   defaultPongWait,
		pingPeriod: defaultPingPeriod,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = logger.Get().Named("ws")
	}
	return h
}

// ServeHTTP upgrades the connection, registers the session (which
// triggers the backlog push), and reads until the peer goes away.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}

	s := newSession(uuid.NewString(), conn, h.sendBuffer, h.writeWait, h.pingPeriod)
	go s.writePump()

	h.registry.Register(r.Context(), s)

	// Subscribers only listen; the read loop exists to notice pongs and
	// disconnects.
	conn.SetReadLimit(readLimit)
	_ = conn.SetReadDeadline(time.Now().Add(h.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.registry.Unregister(r.Context(), s)
	s.close()
}
