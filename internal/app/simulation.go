// Package simulation assembles a coupling model into running actors:
// one conduit per wire, one transport instance per component, one
// goroutine per actor.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/plasmakit/coupler/internal/actors/accumulator"
	"github.com/plasmakit/coupler/internal/actors/limitcheck"
	"github.com/plasmakit/coupler/internal/actors/sinksource"
	"github.com/plasmakit/coupler/internal/adapters/transport"
	"github.com/plasmakit/coupler/internal/config"
	"github.com/plasmakit/coupler/internal/domain/ports"
	"github.com/plasmakit/coupler/internal/topology"
	"github.com/plasmakit/coupler/pkg/logger"
	"github.com/plasmakit/coupler/pkg/metrics"
)

// actor is the common run surface of every component kind.
type actor interface {
	Run(ctx context.Context) error
}

// Simulation holds the wired instances and conduits of one model run.
type Simulation struct {
	model    *topology.Model
	cfg      *config.Config
	log      logger.Logger
	conduits map[string]*transport.Conduit
	actors   map[string]actor
	insts    map[string]*transport.Instance
}

// Option applies a configuration option to a Simulation.
type Option func(*Simulation)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Simulation) {
		if l != nil {
			s.log = l
		}
	}
}

// New wires a validated model into instances and actors. Conduit
// capacity comes from the runtime configuration.
func New(model *topology.Model, cfg *config.Config, opts ...Option) (*Simulation, error) {
	s := &Simulation{
		model:    model,
		cfg:      cfg,
		log:      logger.Named("simulation"),
		conduits: make(map[string]*transport.Conduit),
		actors:   make(map[string]actor),
		insts:    make(map[string]*transport.Instance),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.wire(); err != nil {
		return nil, err
	}
	return s, nil
}

// wire builds one conduit per wire and binds both endpoints.
func (s *Simulation) wire() error {
	wires, err := s.model.Wires()
	if err != nil {
		return err
	}

	instOpts := make(map[string][]transport.InstanceOption, len(s.model.Components))
	for _, w := range wires {
		from, to := w[0], w[1]
		name := from.String() + "->" + to.String()
		c := transport.NewConduit(name, transport.WithCapacity(s.cfg.ConduitCapacity))
		s.conduits[name] = c
		instOpts[from.Component] = append(instOpts[from.Component],
			transport.WithOutConduit(from.Port, c))
		instOpts[to.Component] = append(instOpts[to.Component],
			transport.WithInConduit(to.Port, c))
	}

	for _, name := range s.model.ComponentNames() {
		comp := s.model.Components[name]
		settings := config.NewSettings(name, s.settingsFor(name, comp))
		inst := transport.NewInstance(name, settings, instOpts[name]...)
		s.insts[name] = inst

		switch comp.Kind {
		case topology.KindAccumulator:
			s.actors[name] = accumulator.New(inst)
		case topology.KindSink:
			s.actors[name] = sinksource.NewSink(inst)
		case topology.KindSource:
			s.actors[name] = sinksource.NewSource(inst)
		case topology.KindSinkSource:
			s.actors[name] = sinksource.NewSinkSource(inst)
		case topology.KindLimitCheck:
			s.actors[name] = limitcheck.New(inst)
		default:
			return fmt.Errorf("%w: component %q has unknown kind %q",
				topology.ErrInvalidModel, name, comp.Kind)
		}
	}
	return nil
}

// settingsFor returns the model settings for a component, with the
// runtime's report directory filled in for limit checkers that do not
// set their own.
func (s *Simulation) settingsFor(name string, comp topology.Component) map[string]interface{} {
	values := s.model.Settings
	if comp.Kind != topology.KindLimitCheck {
		return values
	}
	if _, ok := values[name+".report_dir"]; ok {
		return values
	}
	if _, ok := values["report_dir"]; ok {
		return values
	}
	merged := make(map[string]interface{}, len(values)+1)
	for k, v := range values {
		merged[k] = v
	}
	merged["report_dir"] = s.cfg.ReportDir
	return merged
}

// Run starts every actor and waits for all of them. The first actor
// error cancels the rest; an actor's outbound conduits close when it
// returns so downstream consumers do not hang.
func (s *Simulation) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	metrics.UpdateActiveStreams(s.streamCount())
	stopSampling := s.sampleConduits(ctx)
	defer stopSampling()

	s.log.Info(ctx, "starting simulation",
		logger.String("model", s.model.Name),
		logger.Int("components", len(s.actors)),
		logger.Int("conduits", len(s.conduits)))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for _, name := range s.model.ComponentNames() {
		name := name
		a := s.actors[name]
		inst := s.insts[name]
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := a.Run(ctx)
			// Closing outbound conduits lets consumers finish their
			// drain instead of blocking forever.
			if cerr := inst.Close(); err == nil {
				err = cerr
			}
			if err != nil && !errors.Is(err, transport.ErrConduitClosed) {
				s.log.Error(ctx, "actor failed",
					logger.String("component", name),
					logger.Error(err))
				metrics.RecordErrorByComponent(name, "run")
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("component %s: %w", name, err)
				}
				mu.Unlock()
				cancel()
			}
		}()
	}
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	s.log.Info(ctx, "simulation finished", logger.String("model", s.model.Name))
	return nil
}

// streamCount counts the distinct data streams named by the model's
// declared ports.
func (s *Simulation) streamCount() int {
	streams := map[string]bool{}
	for _, comp := range s.model.Components {
		for _, port := range append(append([]string{}, comp.In...), comp.Out...) {
			switch {
			case strings.HasSuffix(port, ports.SuffixNext):
			case strings.HasSuffix(port, ports.SuffixIn):
				streams[strings.TrimSuffix(port, ports.SuffixIn)] = true
			case strings.HasSuffix(port, ports.SuffixOut):
				streams[strings.TrimSuffix(port, ports.SuffixOut)] = true
			}
		}
	}
	return len(streams)
}

// sampleConduits periodically reports conduit depths until the returned
// stop function runs.
func (s *Simulation) sampleConduits(ctx context.Context) func() {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				for name, c := range s.conduits {
					metrics.UpdateConduitDepth(name, c.Len())
				}
			}
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

// ServeMetrics exposes the Prometheus registry on addr until the
// context is cancelled. It returns immediately when addr is empty.
func ServeMetrics(ctx context.Context, addr string) error {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics listener: %w", err)
	}
	return nil
}
