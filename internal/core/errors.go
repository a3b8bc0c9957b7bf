package core

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidIdentifier is returned when a plugin id, key or user id fails sanitization.
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrNotFound is returned for absent documents, including documents that fail to parse.
	ErrNotFound = errors.New("not found")

	// ErrWriteFailed is returned when a document could not be persisted.
	ErrWriteFailed = errors.New("write failed")

	// ErrMissingUserContext is returned when an operation needs a user scope but got none.
	ErrMissingUserContext = errors.New("missing user context")

	// ErrInvalidRequest is returned for malformed request bodies or parameters.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNotConfigured is returned when a provider has no client credentials configured.
	ErrNotConfigured = errors.New("not configured")

	// ErrNotConnected matches every NotConnectedError.
	ErrNotConnected = errors.New("not connected")

	// ErrUpstream is returned when a provider answers with a non-2xx status or a malformed body.
	ErrUpstream = errors.New("upstream error")
)

// NotConnectedError means there is no usable OAuth token for an app.
// Clients use Code to offer a reconnect action.
type NotConnectedError struct {
	// App is the connection registry id ("calendar", "strava").
	App string
	// Message is the human-readable reason shown to the user.
	Message string
}

func (e *NotConnectedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("not connected to %s", e.App)
}

// Code is the machine-readable reconnect code, e.g. "calendar_not_connected".
func (e *NotConnectedError) Code() string {
	return e.App + "_not_connected"
}

func (e *NotConnectedError) Is(target error) bool {
	return target == ErrNotConnected
}

// UpstreamError describes a failed provider call.
type UpstreamError struct {
	Provider   string
	Op         string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s %s failed: %s", e.Provider, e.Op, e.Body)
	}
	return fmt.Sprintf("%s %s failed with status %d: %s", e.Provider, e.Op, e.StatusCode, e.Body)
}

func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}
