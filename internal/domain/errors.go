package domain

import "errors"

// Failure taxonomy of the session subsystem. Adapters and services wrap
// these sentinels with fmt.Errorf("...: %w") so callers can match with
// errors.Is while still seeing the underlying cause.
var (
	// ErrInvalidOwner means an empty or otherwise unusable owner identifier.
	ErrInvalidOwner = errors.New("invalid owner identifier")

	// ErrEmptyContent means a message with blank content was rejected.
	ErrEmptyContent = errors.New("empty message content")

	// ErrSessionNotFound means a mutation referenced a session that does
	// not exist. Read paths report absence as (nil, nil) instead.
	ErrSessionNotFound = errors.New("session not found")

	// ErrForbidden means the caller identity does not match the session owner.
	ErrForbidden = errors.New("caller does not own session")

	// ErrStoreUnavailable means the document store I/O failed.
	ErrStoreUnavailable = errors.New("session store unavailable")

	// ErrProviderUnavailable means the completion provider call could not
	// be completed. The core never retries; that is the caller's call.
	ErrProviderUnavailable = errors.New("completion provider unavailable")
)
