package store

import "errors"

// Sentinel kinds for store errors.
var (
	// ErrUnavailable marks a failed store command. Events hit by it count
	// as not-yet-ingested; upstream redelivery retries them.
	ErrUnavailable = errors.New("event store unavailable")
)
