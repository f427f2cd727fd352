// Package ports derives and validates the channel topology of an actor.
//
// Channel names follow a suffix convention: data inputs are
// "<stream>_in", per-stream completion signals "<stream>_t_next", and
// outputs "<stream>_out". A single channel named exactly "t_next" acts
// as a shared completion override for every stream that has no paired
// completion channel of its own.
package ports

import (
	"fmt"
	"strings"
)

// Suffix convention for port names.
const (
	SuffixIn   = "_in"
	SuffixNext = "_t_next"
	SuffixOut  = "_out"

	// SharedNextPort is the name of the shared completion override.
	SharedNextPort = "t_next"
)

// Binding maps one stream to its channels.
type Binding struct {
	// Stream is the quantity name, e.g. "core_profiles".
	Stream string

	// DataPort is the stream's data input, "<stream>_in".
	DataPort string

	// NextPort is the stream's paired completion channel,
	// "<stream>_t_next", or empty when the shared override serves it.
	NextPort string

	// OutPort is the stream's output, "<stream>_out".
	OutPort string
}

// Bindings is the validated channel topology of one actor, derived once
// at startup before any data flows.
type Bindings struct {
	// Streams holds one binding per stream, in the order the data ports
	// were reported by the transport.
	Streams []Binding

	// SharedNext is true when the shared completion override channel is
	// connected.
	SharedNext bool
}

// InputPorts returns the cleaned list of data input ports, excluding
// completion-signal channels.
func (b Bindings) InputPorts() []string {
	names := make([]string, len(b.Streams))
	for i, s := range b.Streams {
		names[i] = s.DataPort
	}
	return names
}

// OutputPorts returns the output ports in stream order.
func (b Bindings) OutputPorts() []string {
	names := make([]string, len(b.Streams))
	for i, s := range b.Streams {
		names[i] = s.OutPort
	}
	return names
}

// Derive builds stream bindings from the connected input and output port
// names of an actor. It returns ErrConfiguration when the naming
// convention is violated, when a completion channel has no paired data
// channel, when a stream has no completion source, or when input and
// output streams are not in bijection.
func Derive(inputs, outputs []string) (Bindings, error) {
	var b Bindings
	dataStreams := make(map[string]int) // stream -> index into b.Streams
	nextStreams := make(map[string]bool)

	for _, port := range inputs {
		switch {
		case port == SharedNextPort:
			if b.SharedNext {
				return Bindings{}, fmt.Errorf("%w: duplicate port %q", ErrConfiguration, port)
			}
			b.SharedNext = true
		case strings.HasSuffix(port, SuffixNext):
			stream := strings.TrimSuffix(port, SuffixNext)
			if nextStreams[stream] {
				return Bindings{}, fmt.Errorf("%w: duplicate port %q", ErrConfiguration, port)
			}
			nextStreams[stream] = true
		case strings.HasSuffix(port, SuffixIn):
			stream := strings.TrimSuffix(port, SuffixIn)
			if _, ok := dataStreams[stream]; ok {
				return Bindings{}, fmt.Errorf("%w: duplicate port %q", ErrConfiguration, port)
			}
			dataStreams[stream] = len(b.Streams)
			b.Streams = append(b.Streams, Binding{Stream: stream, DataPort: port})
		default:
			return Bindings{}, fmt.Errorf(
				"%w: input port %q must end with %q or %q",
				ErrConfiguration, port, SuffixIn, SuffixNext)
		}
	}

	// Pair completion channels with their data streams.
	for stream := range nextStreams {
		i, ok := dataStreams[stream]
		if !ok {
			return Bindings{}, fmt.Errorf(
				"%w: completion port %q has no matching data port %q",
				ErrConfiguration, stream+SuffixNext, stream+SuffixIn)
		}
		b.Streams[i].NextPort = stream + SuffixNext
	}

	// Every stream needs exactly one completion source.
	if !b.SharedNext {
		for _, s := range b.Streams {
			if s.NextPort == "" {
				return Bindings{}, fmt.Errorf(
					"%w: stream %q has neither a %q port nor a shared %q port",
					ErrConfiguration, s.Stream, s.Stream+SuffixNext, SharedNextPort)
			}
		}
	}

	// Outputs must mirror the input streams one to one.
	outStreams := make(map[string]bool)
	for _, port := range outputs {
		if !strings.HasSuffix(port, SuffixOut) {
			return Bindings{}, fmt.Errorf(
				"%w: output port %q must end with %q", ErrConfiguration, port, SuffixOut)
		}
		stream := strings.TrimSuffix(port, SuffixOut)
		if outStreams[stream] {
			return Bindings{}, fmt.Errorf("%w: duplicate port %q", ErrConfiguration, port)
		}
		outStreams[stream] = true

		i, ok := dataStreams[stream]
		if !ok {
			return Bindings{}, fmt.Errorf(
				"%w: output stream %q has no matching input port %q",
				ErrConfiguration, stream, stream+SuffixIn)
		}
		b.Streams[i].OutPort = port
	}
	for _, s := range b.Streams {
		if s.OutPort == "" {
			return Bindings{}, fmt.Errorf(
				"%w: input stream %q has no matching output port %q",
				ErrConfiguration, s.Stream, s.Stream+SuffixOut)
		}
	}

	return b, nil
}
