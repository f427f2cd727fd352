package storage

import (
	"fmt"
	"strings"
)

// Method selects how GetSlice resolves a requested time against the
// stored time base.
type Method int

const (
	// Closest returns the slice nearest to the requested time.
	Closest Method = iota
	// Previous returns the latest slice at or before the requested time.
	Previous
	// Linear interpolates between the bracketing slices when their
	// payloads are JSON numeric trees, and degrades to the nearer
	// bracket otherwise.
	Linear
)

// String returns the canonical setting spelling.
func (m Method) String() string {
	switch m {
	case Previous:
		return "PREVIOUS"
	case Linear:
		return "LINEAR"
	default:
		return "CLOSEST"
	}
}

// ParseMethod parses the interpolation_method setting.
// Empty input selects Closest, matching the original default.
func ParseMethod(s string) (Method, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "CLOSEST":
		return Closest, nil
	case "PREVIOUS":
		return Previous, nil
	case "LINEAR":
		return Linear, nil
	default:
		return Closest, fmt.Errorf("%w: interpolation_method %q", ErrUnknownMethod, s)
	}
}
