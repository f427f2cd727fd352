package accumulator

import (
	"github.com/plasmakit/coupler/internal/domain/staging"
	"github.com/plasmakit/coupler/pkg/logger"
)

// Option applies a configuration option to the Accumulator.
type Option func(*Accumulator)

// WithStoreFactory sets the staging store constructor invoked at the top
// of every cycle.
func WithStoreFactory(factory func() staging.Store) Option {
	return func(a *Accumulator) {
		if factory != nil {
			a.newStore = factory
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Accumulator) {
		if l != nil {
			a.log = l
		}
	}
}
