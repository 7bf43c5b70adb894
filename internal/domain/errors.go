package domain

import "errors"

var (
	// ErrInvalidSchedule is returned when the requested time is not in the future.
	ErrInvalidSchedule = errors.New("scheduled time must be in the future")
	// ErrNotFound is returned when the content or scheduled post does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is returned when the caller does not own the content.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrPostInFlight is returned when a post is being published and cannot be changed.
	ErrPostInFlight = errors.New("scheduled post is being published")
	// ErrPublishFailure wraps a failed publish attempt.
	ErrPublishFailure = errors.New("publish failed")
	// ErrTerminalFailure is recorded once retries are exhausted.
	ErrTerminalFailure = errors.New("publish retries exhausted")

	ErrContentNotFound = errors.New("content not found")
	ErrLockNotHeld     = errors.New("lock not held")
)
