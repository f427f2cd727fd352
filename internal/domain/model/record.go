package model

import (
	"encoding/json"
	"fmt"
)

// Record is the accumulated result for one stream: its timeslices in
// append order, with non-decreasing times.
type Record struct {
	Stream string      `json:"stream"`
	Slices []Timeslice `json:"slices"`
}

// First returns the first accumulated timeslice.
// The zero Timeslice is returned for an empty record.
func (r Record) First() Timeslice {
	if len(r.Slices) == 0 {
		return Timeslice{}
	}
	return r.Slices[0]
}

// Times returns the times of all accumulated slices in order.
func (r Record) Times() []float64 {
	times := make([]float64, len(r.Slices))
	for i, s := range r.Slices {
		times[i] = s.Time
	}
	return times
}

// Len returns the number of accumulated slices.
func (r Record) Len() int {
	return len(r.Slices)
}

// EncodeRecord serializes a record for transmission as a message payload.
func EncodeRecord(r Record) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode record %q: %w", r.Stream, err)
	}
	return data, nil
}

// DecodeRecord deserializes a record payload produced by EncodeRecord.
func DecodeRecord(data []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, fmt.Errorf("decode record: %w", err)
	}
	return r, nil
}

// IsRecord reports whether a payload looks like an encoded record.
// Used by sinks to decide between storing a consolidated record and a
// single raw slice.
func IsRecord(data []byte) bool {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return false
	}
	return r.Stream != "" && r.Slices != nil
}
