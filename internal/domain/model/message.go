// Package model defines the value types exchanged between coupled actors.
package model

// Message is one unit of data delivered on a port.
//
// NextTimestamp declares whether the sender expects to produce a further
// message on the same stream: nil means this is the last timeslice, a
// non-nil value carries the timestamp of the upcoming slice.
type Message struct {
	// ID is assigned by the transport on send.
	ID string

	// Timestamp is the simulation time this message belongs to.
	Timestamp float64

	// Payload is the serialized dataset. Opaque to the transport and to
	// the accumulator protocol.
	Payload []byte

	// NextTimestamp is the announced time of the sender's next message
	// on this stream, or nil when no further message will follow.
	NextTimestamp *float64
}

// HasNext reports whether the sender announced a further message.
func (m Message) HasNext() bool {
	return m.NextTimestamp != nil
}

// Timeslice is one instant's worth of data for a stream.
type Timeslice struct {
	Time    float64 `json:"time"`
	Payload []byte  `json:"payload"`
}

// SliceOf extracts the timeslice carried by a message.
func SliceOf(m Message) Timeslice {
	return Timeslice{Time: m.Timestamp, Payload: m.Payload}
}
