package storage

import "time"

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithBusyTimeout sets the SQLite busy timeout.
func WithBusyTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.busyTimeout = d
		}
	}
}

// WithReadOnly opens the database read-only.
func WithReadOnly() Option {
	return func(s *Store) {
		s.readOnly = true
	}
}
