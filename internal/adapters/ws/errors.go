package ws

import "errors"

// Sentinel kinds for session send failures. Both are per-session
// conditions; the registry isolates them from other subscribers.
var (
	ErrSessionClosed = errors.New("session closed")
	ErrSlowConsumer  = errors.New("session send queue full")
)
