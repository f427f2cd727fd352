// Package staging provides the per-cycle staging store the accumulator
// appends timeslices into.
//
// A store lives for exactly one reuse cycle: it is created empty at the
// top of the cycle, filled through Put, drained through Get at emission
// time, and then discarded. Calls are sequential; implementations need
// no locking beyond that contract.
package staging

import (
	"fmt"

	"github.com/plasmakit/coupler/internal/domain/model"
)

// Store accumulates timeslices per stream.
type Store interface {
	// Put appends a timeslice to the stream's record, creating the
	// record on first use. Times must be non-decreasing per stream.
	Put(stream string, s model.Timeslice) error

	// Get returns the complete accumulated record for the stream.
	Get(stream string) (model.Record, error)

	// Len returns the number of slices staged for the stream.
	Len(stream string) int
}

// Memory is the in-memory Store used by the accumulator.
type Memory struct {
	records map[string]*model.Record
}

// NewMemory creates an empty in-memory staging store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]*model.Record)}
}

// Put appends a timeslice to the stream's record.
func (m *Memory) Put(stream string, s model.Timeslice) error {
	rec, ok := m.records[stream]
	if !ok {
		rec = &model.Record{Stream: stream}
		m.records[stream] = rec
	}
	if n := len(rec.Slices); n > 0 && s.Time < rec.Slices[n-1].Time {
		return fmt.Errorf("%w: stream %q time %v after %v",
			ErrTimeOrder, stream, s.Time, rec.Slices[n-1].Time)
	}
	rec.Slices = append(rec.Slices, s)
	return nil
}

// Get returns the accumulated record for the stream.
func (m *Memory) Get(stream string) (model.Record, error) {
	rec, ok := m.records[stream]
	if !ok {
		return model.Record{}, fmt.Errorf("%w: %q", ErrUnknownStream, stream)
	}
	return *rec, nil
}

// Len returns the number of slices staged for the stream.
func (m *Memory) Len(stream string) int {
	rec, ok := m.records[stream]
	if !ok {
		return 0
	}
	return len(rec.Slices)
}
