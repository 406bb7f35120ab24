// Package sessions tracks connected subscriber sessions, serves them a
// backlog on connect, and fans live events out to all of them.
package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/okian/feedrelay/pkg/logger"
	"github.com/okian/feedrelay/pkg/metrics"
)

// Delivery channel names pushed to subscribers.
const (
	// BacklogChannel carries the one-time snapshot of recent events sent
	// to a freshly connected session.
	BacklogChannel = "backlog"
	// EventChannel carries live broadcast events.
	EventChannel = "event"
)

// Session is one connected subscriber. Sessions are ephemeral: created
// on connect, destroyed on disconnect, owned exclusively by the
// Registry, never persisted.
type Session interface {
	ID() string
	// Send pushes one payload on a named channel. A failed send only
	// affects this session.
	Send(channel string, payload any) error
}

// BacklogFetcher supplies the recent-events snapshot for new sessions.
type BacklogFetcher interface {
	Recent(ctx context.Context) ([]map[string]any, error)
}

// Registry is the single owner of the live session set. Connect and
// disconnect mutate it; every broadcast iterates a snapshot of it, so
// the two safely interleave.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]Session

	backlog BacklogFetcher

	logger logger.Logger
}

// New creates a Registry.
func New(backlog BacklogFetcher, opts ...Option) *Registry {
	r := &Registry{
		sessions: make(map[string]Session),
		backlog:  backlog,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logger.Get().Named("sessions")
	}
	return r
}

// Register adds a session and asynchronously pushes the backlog
// snapshot to it alone. Registration happens before the snapshot is
// fetched, so a just-connected session may see an event in both the
// backlog and the live feed, but never in neither. Other sessions are
// unaffected.
func (r *Registry) Register(ctx context.Context, s Session) {
	r.mu.Lock()
	r.sessions[s.ID()] = s
	n := len(r.sessions)
	r.mu.Unlock()

	metrics.UpdateConnectedSessions(n)
	r.logger.Info(ctx, "session connected", logger.String("sessionID", s.ID()), logger.Int("sessions", n))

	go r.pushBacklog(ctx, s)
}

// Unregister removes a session; no further broadcasts reach it. A
// broadcast already holding a snapshot may still try the session once;
// that send fails silently for this one session.
func (r *Registry) Unregister(ctx context.Context, s Session) {
	r.mu.Lock()
	delete(r.sessions, s.ID())
	n := len(r.sessions)
	r.mu.Unlock()

	metrics.UpdateConnectedSessions(n)
	r.logger.Info(ctx, "session disconnected", logger.String("sessionID", s.ID()), logger.Int("sessions", n))
}

// Broadcast delivers a decoded event to every currently registered
// session. Fan-out is best-effort per session: one session's failure is
// isolated and never fails the broadcast itself. Zero sessions is a
// no-op success.
func (r *Registry) Broadcast(ctx context.Context, fields map[string]any) {
	for _, s := range r.snapshot() {
		metrics.RecordBroadcastSent()
		if err := s.Send(EventChannel, fields); err != nil {
			metrics.RecordBroadcastFailure()
			r.logger.Debug(ctx, "broadcast to session failed",
				logger.String("sessionID", s.ID()),
				logger.Error(err),
			)
		}
	}
}

// Count returns the number of registered sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) snapshot() []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// pushBacklog fetches the snapshot and sends it to one session. A
// fetch failure leaves the session connected and eligible for live
// broadcasts; it has simply missed the backlog.
func (r *Registry) pushBacklog(ctx context.Context, s Session) {
	if r.backlog == nil {
		return
	}
	start := time.Now()
	recent, err := r.backlog.Recent(ctx)
	metrics.RecordBacklogFetchLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		r.logger.Warn(ctx, "backlog fetch failed; session stays live",
			logger.String("sessionID", s.ID()),
			logger.Error(err),
		)
		return
	}
	if err := s.Send(BacklogChannel, recent); err != nil {
		r.logger.Debug(ctx, "backlog push failed",
			logger.String("sessionID", s.ID()),
			logger.Error(err),
		)
		return
	}
	metrics.RecordBacklogServed()
}
