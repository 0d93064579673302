package teles

import (
	"errors"
	"fmt"
)

var (
	// ErrSpaceNotFound is returned when a command references a space the
	// server does not know about.
	ErrSpaceNotFound = errors.New("space does not exist")

	// ErrObjectNotFound is returned when a command references an object
	// missing from its space.
	ErrObjectNotFound = errors.New("object does not exist")

	// ErrNotAssociated is returned by Disassociate when the GID is not
	// attached to the object.
	ErrNotAssociated = errors.New("gid not associated")

	// ErrClientClosed is returned by operations on a closed Client.
	ErrClientClosed = errors.New("client is closed")
)

// ValidationError reports arguments rejected locally, before any bytes hit
// the wire.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid argument: " + e.Reason
}

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// RemoteError reports a well-formed reply the client did not expect, such as
// a server-side failure message or a malformed block.
type RemoteError struct {
	Response string
}

func (e *RemoteError) Error() string {
	return "unexpected server response: " + e.Response
}

// ConnectionError wraps transport-level failures (dial, write, read,
// deadline) after the configured retry attempts are exhausted. Use
// errors.Unwrap or errors.As to reach the underlying net error.
type ConnectionError struct {
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("teles %s: %v", e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}
