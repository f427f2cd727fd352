package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/plasmakit/coupler/internal/domain/model"
	"github.com/plasmakit/coupler/pkg/metrics"
)

const defaultConduitCapacity = 1024

// Conduit is a bounded, in-process channel between one sender port and
// one receiver port. Push blocks while the buffer is full; Pop blocks
// while it is empty. Both give up when the context is done.
type Conduit struct {
	name     string
	capacity int
	msgs     chan model.Message

	mu     sync.RWMutex
	closed bool
}

// NewConduit creates a conduit with configuration options.
func NewConduit(name string, opts ...ConduitOption) *Conduit {
	c := &Conduit{
		name:     name,
		capacity: defaultConduitCapacity,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.msgs = make(chan model.Message, c.capacity)
	return c
}

// Name returns the conduit name, conventionally "sender.port->receiver.port".
func (c *Conduit) Name() string {
	return c.name
}

// Push delivers a message into the conduit, blocking while full.
func (c *Conduit) Push(ctx context.Context, msg model.Message) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		metrics.RecordConduitDrop(c.name)
		return fmt.Errorf("%w: %s", ErrConduitClosed, c.name)
	}

	select {
	case c.msgs <- msg:
		metrics.UpdateConduitDepth(c.name, len(c.msgs))
		return nil
	case <-ctx.Done():
		return fmt.Errorf("push %s: %w", c.name, ctx.Err())
	}
}

// Pop removes the next message, blocking while empty. It returns
// ErrConduitClosed once the conduit is closed and drained.
func (c *Conduit) Pop(ctx context.Context) (model.Message, error) {
	select {
	case msg, ok := <-c.msgs:
		if !ok {
			return model.Message{}, fmt.Errorf("%w: %s", ErrConduitClosed, c.name)
		}
		metrics.UpdateConduitDepth(c.name, len(c.msgs))
		return msg, nil
	case <-ctx.Done():
		return model.Message{}, fmt.Errorf("pop %s: %w", c.name, ctx.Err())
	}
}

// Len returns the number of buffered messages.
func (c *Conduit) Len() int {
	return len(c.msgs)
}

// Close marks the conduit closed. Buffered messages remain poppable.
func (c *Conduit) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	close(c.msgs)
	return nil
}
