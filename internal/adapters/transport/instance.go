package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/plasmakit/coupler/internal/config"
	"github.com/plasmakit/coupler/internal/domain/model"
	"github.com/plasmakit/coupler/pkg/metrics"
)

// Instance is the in-process Endpoint implementation. Ports are bound to
// conduits at construction; the bind order is the port order actors see.
type Instance struct {
	name     string
	settings *config.Settings

	inOrder  []string
	outOrder []string
	recv     map[string]*Conduit
	send     map[string][]*Conduit

	cycles int
	cycle  int
}

// NewInstance creates an instance with its conduit bindings.
// The reuse-cycle budget comes from the "cycles" setting (default 1)
// unless overridden with WithCycles.
func NewInstance(name string, settings *config.Settings, opts ...InstanceOption) *Instance {
	inst := &Instance{
		name:     name,
		settings: settings,
		recv:     make(map[string]*Conduit),
		send:     make(map[string][]*Conduit),
		cycles:   settings.IntOr("cycles", 1),
	}
	for _, opt := range opts {
		opt(inst)
	}
	return inst
}

// Name returns the instance name.
func (i *Instance) Name() string {
	return i.name
}

// Settings returns the instance-scoped settings view.
func (i *Instance) Settings() *config.Settings {
	return i.settings
}

// InPorts lists connected input ports in bind order.
func (i *Instance) InPorts() []string {
	out := make([]string, len(i.inOrder))
	copy(out, i.inOrder)
	return out
}

// OutPorts lists connected output ports in bind order.
func (i *Instance) OutPorts() []string {
	out := make([]string, len(i.outOrder))
	copy(out, i.outOrder)
	return out
}

// ReuseInstance consumes one cycle from the budget.
func (i *Instance) ReuseInstance() bool {
	if i.cycle >= i.cycles {
		return false
	}
	i.cycle++
	return true
}

// Receive blocks until a message arrives on the port.
func (i *Instance) Receive(ctx context.Context, port string) (model.Message, error) {
	c, ok := i.recv[port]
	if !ok {
		return model.Message{}, fmt.Errorf("%w: %s.%s", ErrPortNotConnected, i.name, port)
	}
	start := time.Now()
	msg, err := c.Pop(ctx)
	if err != nil {
		return model.Message{}, fmt.Errorf("receive %s.%s: %w", i.name, port, err)
	}
	waitMS := float64(time.Since(start).Microseconds()) / 1e3
	metrics.RecordReceive(i.name, port, waitMS)
	return msg, nil
}

// Send delivers a message on the port. A port bound to several conduits
// fans the message out, each copy with a fresh ID.
func (i *Instance) Send(ctx context.Context, port string, msg model.Message) error {
	conduits, ok := i.send[port]
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrPortNotConnected, i.name, port)
	}
	for _, c := range conduits {
		out := msg
		out.ID = uuid.NewString()
		if err := c.Push(ctx, out); err != nil {
			return fmt.Errorf("send %s.%s: %w", i.name, port, err)
		}
	}
	metrics.RecordSend(i.name, port)
	return nil
}

// Close closes every conduit this instance sends on, signalling
// downstream consumers that no further messages will arrive.
func (i *Instance) Close() error {
	for _, conduits := range i.send {
		for _, c := range conduits {
			if err := c.Close(); err != nil {
				return err
			}
		}
	}
	return nil
}
