// Package sinksource implements the actors bridging channels to the
// durable timeslice store: a sink that persists incoming messages, a
// source that replays stored slices, and the hybrid doing both.
//
// Settings: sink_uri / source_uri select the database path; t_min and
// t_max clamp the replayed time range; interpolation_method is one of
// CLOSEST, PREVIOUS, LINEAR; dd_version is recorded as store metadata;
// "<port>_occ" selects the occurrence index per port.
package sinksource

import (
	"context"
	"fmt"
	"strings"

	"github.com/plasmakit/coupler/internal/adapters/storage"
	"github.com/plasmakit/coupler/internal/adapters/transport"
	"github.com/plasmakit/coupler/internal/config"
	"github.com/plasmakit/coupler/internal/domain/model"
	"github.com/plasmakit/coupler/internal/domain/ports"
	"github.com/plasmakit/coupler/pkg/logger"
	"github.com/plasmakit/coupler/pkg/metrics"
)

// Wide-open defaults for the replayed time range.
const (
	defaultTMin = -1e20
	defaultTMax = 1e20
)

type base struct {
	inst transport.Endpoint
	log  logger.Logger
}

// Option applies a configuration option to a sink/source actor.
type Option func(*base)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(b *base) {
		if l != nil {
			b.log = l
		}
	}
}

func newBase(inst transport.Endpoint, name string, opts ...Option) base {
	b := base{inst: inst, log: logger.Named(name)}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// Sink persists every incoming message into the sink database.
type Sink struct {
	base
}

// NewSink creates a sink actor.
func NewSink(inst transport.Endpoint, opts ...Option) *Sink {
	return &Sink{base: newBase(inst, "sink", opts...)}
}

// Run opens the sink database and writes one message per input port per
// reuse cycle.
func (s *Sink) Run(ctx context.Context) error {
	ins := s.inst.InPorts()
	if err := sanityCheckPorts(ins, s.inst.OutPorts(), s.inst.Settings()); err != nil {
		return fmt.Errorf("%s: %w", s.inst.Name(), err)
	}

	uri, err := s.inst.Settings().String("sink_uri")
	if err != nil {
		return fmt.Errorf("%s: %w", s.inst.Name(), err)
	}
	db, err := storage.Open(uri)
	if err != nil {
		return fmt.Errorf("%s: %w", s.inst.Name(), err)
	}
	defer db.Close()
	if err := recordDDVersion(ctx, db, s.inst.Settings()); err != nil {
		return fmt.Errorf("%s: %w", s.inst.Name(), err)
	}

	s.log.Info(ctx, "starting sink",
		logger.String("instance", s.inst.Name()),
		logger.String("sink_uri", uri),
		logger.Int("ports", len(ins)))

	for s.inst.ReuseInstance() {
		if _, err := handleSink(ctx, s.inst, db, ins); err != nil {
			return fmt.Errorf("%s: %w", s.inst.Name(), err)
		}
		metrics.RecordCycle(s.inst.Name())
	}
	return nil
}

// Source replays stored slices onto its output ports.
type Source struct {
	base
}

// NewSource creates a source actor.
func NewSource(inst transport.Endpoint, opts ...Option) *Source {
	return &Source{base: newBase(inst, "source", opts...)}
}

// Run walks the stored time base once per reuse cycle, sending each
// slice with the following time announced as the next timestamp, nil on
// the last slice.
func (s *Source) Run(ctx context.Context) error {
	outs := s.inst.OutPorts()
	if err := sanityCheckPorts(s.inst.InPorts(), outs, s.inst.Settings()); err != nil {
		return fmt.Errorf("%s: %w", s.inst.Name(), err)
	}

	st := s.inst.Settings()
	uri, err := st.String("source_uri")
	if err != nil {
		return fmt.Errorf("%s: %w", s.inst.Name(), err)
	}
	db, err := storage.Open(uri)
	if err != nil {
		return fmt.Errorf("%s: %w", s.inst.Name(), err)
	}
	defer db.Close()

	method, err := storage.ParseMethod(st.StringOr("interpolation_method", ""))
	if err != nil {
		return fmt.Errorf("%s: %w", s.inst.Name(), err)
	}

	times, err := s.timeBase(ctx, db, outs)
	if err != nil {
		return fmt.Errorf("%s: %w", s.inst.Name(), err)
	}
	s.log.Info(ctx, "starting source",
		logger.String("instance", s.inst.Name()),
		logger.String("source_uri", uri),
		logger.Int("slices", len(times)))

	for s.inst.ReuseInstance() {
		for i, t := range times {
			var nextTS *float64
			if i+1 < len(times) {
				nextTS = &times[i+1]
			}
			for _, port := range outs {
				stream := strings.TrimSuffix(port, ports.SuffixOut)
				occ := st.IntOr(port+"_occ", 0)
				slice, err := db.GetSlice(ctx, stream, occ, t, method)
				if err != nil {
					return fmt.Errorf("%s: %w", s.inst.Name(), err)
				}
				out := model.Message{Timestamp: t, Payload: slice.Payload, NextTimestamp: nextTS}
				if err := s.inst.Send(ctx, port, out); err != nil {
					return fmt.Errorf("%s: %w", s.inst.Name(), err)
				}
			}
		}
		metrics.RecordCycle(s.inst.Name())
	}
	return nil
}

// timeBase reads the first output stream's stored times, clamped to
// [t_min, t_max].
func (s *Source) timeBase(ctx context.Context, db *storage.Store, outs []string) ([]float64, error) {
	if len(outs) == 0 {
		return nil, nil
	}
	st := s.inst.Settings()
	first := strings.TrimSuffix(outs[0], ports.SuffixOut)
	all, err := db.Times(ctx, first, st.IntOr(outs[0]+"_occ", 0))
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("%w: stream %q", storage.ErrNoData, first)
	}

	tMin := st.FloatOr("t_min", defaultTMin)
	tMax := st.FloatOr("t_max", defaultTMax)
	var times []float64
	for _, t := range all {
		if tMin <= t && t <= tMax {
			times = append(times, t)
		}
	}
	return times, nil
}

// SinkSource persists inbound messages, then replays the matching
// source slice at the sunk timestamp.
type SinkSource struct {
	base
}

// NewSinkSource creates the hybrid actor.
func NewSinkSource(inst transport.Endpoint, opts ...Option) *SinkSource {
	return &SinkSource{base: newBase(inst, "sinksource", opts...)}
}

// Run performs a sink pass then a source pass per reuse cycle.
func (s *SinkSource) Run(ctx context.Context) error {
	ins := s.inst.InPorts()
	outs := s.inst.OutPorts()
	st := s.inst.Settings()
	if err := sanityCheckPorts(ins, outs, st); err != nil {
		return fmt.Errorf("%s: %w", s.inst.Name(), err)
	}

	sourceURI, err := st.String("source_uri")
	if err != nil {
		return fmt.Errorf("%s: %w", s.inst.Name(), err)
	}
	sourceDB, err := storage.Open(sourceURI)
	if err != nil {
		return fmt.Errorf("%s: %w", s.inst.Name(), err)
	}
	defer sourceDB.Close()

	// The sink side is optional for the hybrid.
	var sinkDB *storage.Store
	if uri := st.StringOr("sink_uri", ""); uri != "" {
		sinkDB, err = storage.Open(uri)
		if err != nil {
			return fmt.Errorf("%s: %w", s.inst.Name(), err)
		}
		defer sinkDB.Close()
		if err := recordDDVersion(ctx, sinkDB, st); err != nil {
			return fmt.Errorf("%s: %w", s.inst.Name(), err)
		}
	}

	method, err := storage.ParseMethod(st.StringOr("interpolation_method", ""))
	if err != nil {
		return fmt.Errorf("%s: %w", s.inst.Name(), err)
	}

	for s.inst.ReuseInstance() {
		tCur := 0.0
		if len(ins) > 0 {
			t, err := handleSink(ctx, s.inst, sinkDB, ins)
			if err != nil {
				return fmt.Errorf("%s: %w", s.inst.Name(), err)
			}
			tCur = t
		}
		for _, port := range outs {
			stream := strings.TrimSuffix(port, ports.SuffixOut)
			occ := st.IntOr(port+"_occ", 0)
			slice, err := sourceDB.GetSlice(ctx, stream, occ, tCur, method)
			if err != nil {
				return fmt.Errorf("%s: %w", s.inst.Name(), err)
			}
			out := model.Message{Timestamp: tCur, Payload: slice.Payload}
			if err := s.inst.Send(ctx, port, out); err != nil {
				return fmt.Errorf("%s: %w", s.inst.Name(), err)
			}
		}
		metrics.RecordCycle(s.inst.Name())
	}
	return nil
}

// handleSink receives one message per input port and persists it.
// A payload that decodes as a consolidated record stores every contained
// slice; anything else is stored raw at the message timestamp. Returns
// the timestamp of the last received message. The db may be nil, in
// which case messages are drained without persisting.
func handleSink(ctx context.Context, inst transport.Endpoint, db *storage.Store, ins []string) (float64, error) {
	tCur := 0.0
	for _, port := range ins {
		stream := strings.TrimSuffix(port, ports.SuffixIn)
		occ := inst.Settings().IntOr(port+"_occ", 0)

		msg, err := inst.Receive(ctx, port)
		if err != nil {
			return 0, err
		}
		tCur = msg.Timestamp
		if db == nil {
			continue
		}
		if model.IsRecord(msg.Payload) {
			rec, err := model.DecodeRecord(msg.Payload)
			if err != nil {
				return 0, err
			}
			if err := db.PutRecord(ctx, rec, occ); err != nil {
				return 0, err
			}
		} else if err := db.PutSlice(ctx, stream, occ, model.SliceOf(msg)); err != nil {
			return 0, err
		}
	}
	return tCur, nil
}

// recordDDVersion stores the dd_version setting as database metadata.
func recordDDVersion(ctx context.Context, db *storage.Store, st *config.Settings) error {
	if v := st.StringOr("dd_version", ""); v != "" {
		return db.SetMeta(ctx, "dd_version", v)
	}
	return nil
}

// sanityCheckPorts rejects obvious topology mistakes before any data
// flows: suffix violations, and a source role without a source_uri (or
// the reverse).
func sanityCheckPorts(ins, outs []string, st *config.Settings) error {
	for _, port := range ins {
		if !strings.HasSuffix(port, ports.SuffixIn) {
			return fmt.Errorf("%w: input port %q must end with %q",
				ports.ErrConfiguration, port, ports.SuffixIn)
		}
	}
	for _, port := range outs {
		if !strings.HasSuffix(port, ports.SuffixOut) {
			return fmt.Errorf("%w: output port %q must end with %q",
				ports.ErrConfiguration, port, ports.SuffixOut)
		}
	}
	noURI := !st.Has("source_uri")
	noSourcePorts := len(outs) == 0
	if noURI != noSourcePorts {
		return fmt.Errorf(
			"%w: a component needs a source_uri exactly when it has output ports",
			ports.ErrConfiguration)
	}
	return nil
}
