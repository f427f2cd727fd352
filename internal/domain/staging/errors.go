package staging

import "errors"

// Sentinel kinds for staging errors.
var (
	ErrUnknownStream = errors.New("no slices staged for stream")
	ErrTimeOrder     = errors.New("timeslice out of order")
)
