// Package transport provides the channel abstraction coupled actors run
// against: named ports with blocking receive and send, a reuse-cycle
// loop, and per-instance settings.
//
// The in-process implementation wires ports together with bounded
// conduits. Receive blocks until a message arrives; there is no timeout,
// so an upstream actor that never sends stalls its consumer. The runner
// softens the classic deadlock by closing a producer's conduits when it
// exits, which surfaces as ErrConduitClosed on the consumer instead of
// an indefinite hang.
package transport

import (
	"context"

	"github.com/plasmakit/coupler/internal/config"
	"github.com/plasmakit/coupler/internal/domain/model"
)

// Endpoint is the transport surface an actor runs against.
type Endpoint interface {
	// Name returns the instance name.
	Name() string

	// InPorts and OutPorts list the connected ports in bind order.
	InPorts() []string
	OutPorts() []string

	// ReuseInstance reports whether another reuse cycle should run.
	ReuseInstance() bool

	// Receive blocks until a message arrives on the port.
	Receive(ctx context.Context, port string) (model.Message, error)

	// Send delivers a message on the port.
	Send(ctx context.Context, port string, msg model.Message) error

	// Settings returns the instance-scoped settings view.
	Settings() *config.Settings
}
