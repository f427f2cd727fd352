// Package accumulator implements the timeslice aggregation actor.
//
// Per quantity stream it receives timeslices on "<stream>_in", tracks
// end-of-data through the stream's "<stream>_t_next" channel (or the
// shared "t_next" override), stages everything in a per-cycle store, and
// once every stream is exhausted emits one consolidated record per
// stream on "<stream>_out".
package accumulator

import (
	"context"
	"errors"
	"fmt"

	"github.com/plasmakit/coupler/internal/adapters/transport"
	"github.com/plasmakit/coupler/internal/domain/model"
	"github.com/plasmakit/coupler/internal/domain/ports"
	"github.com/plasmakit/coupler/internal/domain/staging"
	"github.com/plasmakit/coupler/pkg/logger"
	"github.com/plasmakit/coupler/pkg/metrics"
)

// Accumulator consumes per-stream timeslice messages and emits one
// consolidated dataset per stream when all streams report completion.
type Accumulator struct {
	inst     transport.Endpoint
	newStore func() staging.Store
	log      logger.Logger
}

// New creates an accumulator bound to its transport endpoint.
func New(inst transport.Endpoint, opts ...Option) *Accumulator {
	a := &Accumulator{
		inst:     inst,
		newStore: func() staging.Store { return staging.NewMemory() },
		log:      logger.Named("accumulator"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run validates the port topology once, then executes reuse cycles until
// the transport offers no more. A topology error is fatal before any
// data flows.
func (a *Accumulator) Run(ctx context.Context) error {
	bindings, err := ports.Derive(a.inst.InPorts(), a.inst.OutPorts())
	if err != nil {
		metrics.RecordErrorByComponent("accumulator", "configuration")
		return fmt.Errorf("%s: %w", a.inst.Name(), err)
	}

	a.log.Info(ctx, "starting accumulator",
		logger.String("instance", a.inst.Name()),
		logger.Int("streams", len(bindings.Streams)),
		logger.Bool("shared_override", bindings.SharedNext))

	for a.inst.ReuseInstance() {
		if err := a.cycle(ctx, bindings); err != nil {
			return fmt.Errorf("%s: %w", a.inst.Name(), err)
		}
		metrics.RecordCycle(a.inst.Name())
	}
	return nil
}

// cycle runs one reuse cycle: drain all streams, then emit.
func (a *Accumulator) cycle(ctx context.Context, b ports.Bindings) error {
	store := a.newStore()

	more := make(map[string]bool, len(b.Streams))
	for _, s := range b.Streams {
		more[s.Stream] = true
	}

	// Streams are drained in fixed bind order: the transport has no
	// wait-on-any primitive, so a finished stream is skipped on later
	// passes while the rest continue. The first round always performs
	// one receive per stream, even if every stream immediately reports
	// completion.
	firstRound := true
	halted := false
	for !halted && (firstRound || anyExpected(more)) {
		firstRound = false
		for _, s := range b.Streams {
			if !more[s.Stream] {
				continue
			}

			msg, err := a.inst.Receive(ctx, s.DataPort)
			if err != nil {
				return fmt.Errorf("stream %q: %w", s.Stream, err)
			}
			if err := store.Put(s.Stream, model.SliceOf(msg)); err != nil {
				return fmt.Errorf("stage stream %q: %w", s.Stream, err)
			}
			metrics.UpdateStagedSlices(s.Stream, store.Len(s.Stream))

			if s.NextPort != "" {
				// The stream's own completion channel is authoritative.
				sig, err := a.inst.Receive(ctx, s.NextPort)
				if err != nil {
					return fmt.Errorf("stream %q completion: %w", s.Stream, err)
				}
				more[s.Stream] = sig.HasNext()
			} else {
				// Shared override: a no-more-data signal terminates every
				// stream at once, regardless of per-stream state.
				sig, err := a.inst.Receive(ctx, ports.SharedNextPort)
				if err != nil {
					return fmt.Errorf("shared completion: %w", err)
				}
				if !sig.HasNext() {
					for stream := range more {
						more[stream] = false
					}
					halted = true
					a.log.Debug(ctx, "shared override terminated cycle",
						logger.Float64("time", msg.Timestamp))
					break
				}
			}
			metrics.UpdateActiveStreams(countExpected(more))
		}
	}
	metrics.UpdateActiveStreams(0)

	return a.emit(ctx, b, store)
}

// emit sends one consolidated record per output stream, timestamped with
// the record's first slice.
func (a *Accumulator) emit(ctx context.Context, b ports.Bindings, store staging.Store) error {
	for _, s := range b.Streams {
		rec, err := store.Get(s.Stream)
		if errors.Is(err, staging.ErrUnknownStream) {
			// Possible when the shared override fired before this
			// stream's first receive; emit an empty record.
			rec = model.Record{Stream: s.Stream}
		} else if err != nil {
			return fmt.Errorf("collect stream %q: %w", s.Stream, err)
		}

		payload, err := model.EncodeRecord(rec)
		if err != nil {
			return err
		}
		out := model.Message{
			Timestamp: rec.First().Time,
			Payload:   payload,
		}
		if err := a.inst.Send(ctx, s.OutPort, out); err != nil {
			return fmt.Errorf("emit stream %q: %w", s.Stream, err)
		}
		a.log.Info(ctx, "emitted accumulated record",
			logger.String("stream", s.Stream),
			logger.Int("slices", rec.Len()),
			logger.Float64("time", out.Timestamp))
	}
	return nil
}

func anyExpected(more map[string]bool) bool {
	for _, v := range more {
		if v {
			return true
		}
	}
	return false
}

func countExpected(more map[string]bool) int {
	n := 0
	for _, v := range more {
		if v {
			n++
		}
	}
	return n
}
