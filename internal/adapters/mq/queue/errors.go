package queue

import "errors"

// Sentinel kinds for queue errors.
var (
	// ErrUnavailable marks a failed queue command. An enqueue hit by it
	// surfaces as an ingest error for that one event.
	ErrUnavailable = errors.New("relay queue unavailable")
)
