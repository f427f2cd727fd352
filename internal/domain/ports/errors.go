package ports

import "errors"

// Sentinel kinds for port topology errors.
var (
	// ErrConfiguration marks a malformed or inconsistent port topology.
	// It is fatal: an actor must not enter its cycle loop after it.
	ErrConfiguration = errors.New("invalid port configuration")
)
