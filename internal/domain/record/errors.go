package record

import "errors"

// Sentinel kinds for record errors.
var (
	// ErrMalformed marks a record or envelope that can never decode; the
	// relay worker drops such messages instead of retrying them.
	ErrMalformed = errors.New("malformed record")
)
