package client

import "errors"

var (
	// ErrNotConnected is returned by outbound operations attempted while the
	// connection is not open. Fire-and-forget broadcasts log it and no-op;
	// awaited operations surface it to the caller.
	ErrNotConnected = errors.New("not connected to collaboration server")

	// ErrAlreadyConnected is returned by Connect while a session is
	// established or being established.
	ErrAlreadyConnected = errors.New("collaboration session already established")

	// ErrClosed rejects pending requests when the session is torn down.
	ErrClosed = errors.New("collaboration session closed")

	// ErrRequestPending is returned when a second request is issued for a
	// logical key whose first request has not resolved yet.
	ErrRequestPending = errors.New("request already pending")

	// ErrConflictPending blocks writes to an entity with an unresolved
	// conflict. The caller must resolve the conflict first.
	ErrConflictPending = errors.New("unresolved conflict blocks writes")

	// ErrNoConflict is returned by ResolveConflict when the entity has no
	// conflict to resolve.
	ErrNoConflict = errors.New("no conflict pending")
)
