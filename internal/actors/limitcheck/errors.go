package limitcheck

import "errors"

var (
	// ErrLimitExceeded is returned when a check fails and halt_on_error
	// is set.
	ErrLimitExceeded = errors.New("limit check failed")

	// ErrBadRuleset is returned when a configured ruleset cannot be
	// loaded or compiled.
	ErrBadRuleset = errors.New("invalid ruleset")
)
