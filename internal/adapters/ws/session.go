// Package ws adapts WebSocket connections into subscriber sessions.
package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// frame is the wire shape pushed to subscribers: a channel name and the
// payload for it.
type frame struct {
	Channel string `json:"channel"`
	Data    any    `json:"data"`
}

// session owns one WebSocket connection. All writes go through a single
// write pump; Send only queues, so a stalled peer can never block a
// broadcast.
type session struct {
	id   string
	conn *websocket.Conn

	out       chan frame
	closed    chan struct{}
	closeOnce sync.Once

	writeWait  time.Duration
	pingPeriod time.Duration
}

func newSession(id string, conn *websocket.Conn, buffer int, writeWait, pingPeriod time.Duration) *session {
	return &session{
		id:         id,
		conn:       conn,
		out:        make(chan frame, buffer),
		closed:     make(chan struct{}),
		writeWait:  writeWait,
		pingPeriod: pingPeriod,
	}
}

func (s *session) ID() string { return s.id }

// Send queues one payload for the write pump. A full queue means the
// peer is not keeping up; the send fails for this session only.
func (s *session) Send(channel string, payload any) error {
	f := frame{Channel: channel, Data: payload}
	select {
	case <-s.closed:
		return ErrSessionClosed
	default:
	}
	select {
	case s.out <- f:
		return nil
	case <-s.closed:
		return ErrSessionClosed
	default:
		return ErrSlowConsumer
	}
}

// close stops the write pump and the underlying connection. Safe to
// call more than once.
func (s *session) close() {
	s.closeOnce.Do(func() {
		close(s.closed)
		_ = s.conn.Close()
	})
}

// writePump serializes all connection writes: queued frames plus
// keepalive pings. It exits when the session closes or a write fails.
func (s *session) writePump() {
	ticker := time.NewTicker(s.pingPeriod)
	defer func() {
		ticker.Stop()
		s.close()
	}()

	for {
		select {
		case f := <-s.out:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeWait))
			if err := s.conn.WriteJSON(f); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.closed:
			return
		}
	}
}
