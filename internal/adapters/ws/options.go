package ws

import (
	"time"

	"github.com/okian/feedrelay/pkg/logger"
)

// Option applies a configuration option to the Handler.
type Option func(*Handler)

// WithSendBuffer sets how many frames may queue per session before
// sends start failing for that session.
func WithSendBuffer(n int) Option {
	return func(h *Handler) {
		if n > 0 {
			h.sendBuffer = n
		}
	}
}

// WithWriteWait bounds a single connection write.
func WithWriteWait(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.writeWait = d
		}
	}
}

// WithPingPeriod sets the keepalive ping interval. It must stay below
// the pong wait or the peer gets dropped between pings.
func WithPingPeriod(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.pingPeriod = d
		}
	}
}

// WithPongWait sets how long a silent peer is tolerated.
func WithPongWait(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.pongWait = d
		}
	}
}

// WithLogger sets a custom logger for the handler.
func WithLogger(l logger.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}
