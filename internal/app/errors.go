package service

import "errors"

// Sentinel kinds for pipeline errors.
var (
	// ErrValidation rejects malformed events before any external call.
	ErrValidation = errors.New("invalid event")
	// ErrPersist means the durable write failed; no verdict was produced.
	ErrPersist = errors.New("persist scored event")
)
