package adapter

import (
	"errors"
)

// Normalized adapter errors. Backends wrap their transport-specific failures
// in one of these so the layers above never match on vendor error text.
var (
	// ErrNotConnected is returned for any command issued while the backend
	// link is down, and for commands in flight when the link drops.
	ErrNotConnected = errors.New("not connected")

	// ErrUnsupported is returned for operations the backend has no verb for.
	ErrUnsupported = errors.New("operation not supported by backend")

	// ErrBackend wraps an error reported by the backend itself (a non-zero
	// RPRT line, an XML-RPC fault).
	ErrBackend = errors.New("backend error")
)
