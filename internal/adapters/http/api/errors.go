package api

import "errors"

// Request validation failures.
var (
	ErrEmptyBody     = errors.New("empty request body")
	ErrMalformedBody = errors.New("malformed request body")
)
