package transport

import "errors"

// Sentinel kinds for transport errors.
var (
	ErrConduitClosed    = errors.New("conduit closed")
	ErrPortNotConnected = errors.New("port not connected")
)
