package topology

import "errors"

// ErrInvalidModel is returned for model documents that do not describe
// a runnable coupling.
var ErrInvalidModel = errors.New("invalid model document")
