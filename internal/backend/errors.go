package backend

import (
	"fmt"
	"time"
)

// RemoteError is returned when the backend answers with a non-success
// status. The message is the response body verbatim, empty included.
type RemoteError struct {
	Status int
	Body   string
}

func (e *RemoteError) Error() string {
	return e.Body
}

// TransportError wraps a network or socket failure
type TransportError struct {
	Op   string
	Path string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ValidationError reports a required field that was missing, caught
// before anything was sent.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return e.Field + " is required"
}

// ConnectionStatus represents the backend reachability as last observed
type ConnectionStatus struct {
	Reachable bool
	LastError string
	LastSeen  time.Time
}
