package storage

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNoData        = errors.New("no timeslices stored")
	ErrUnknownMethod = errors.New("unknown retrieval method")
)
