package ingest

import "errors"

// Sentinel kinds for ingest errors.
var (
	// ErrMissingID marks a raw event without a usable id.
	ErrMissingID = errors.New("event has no id")

	// ErrNotRelayed marks the recognized gap where a record was persisted
	// but its relay message could not be enqueued.
	ErrNotRelayed = errors.New("event persisted but not relayed")
)
