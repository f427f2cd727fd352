package transport

// ConduitOption applies a configuration option to a Conduit.
type ConduitOption func(*Conduit)

// WithCapacity sets the conduit's buffer capacity.
func WithCapacity(capacity int) ConduitOption {
	return func(c *Conduit) {
		if capacity > 0 {
			c.capacity = capacity
		}
	}
}

// InstanceOption applies a configuration option to an Instance.
type InstanceOption func(*Instance)

// WithInConduit binds an input port to the conduit it receives from.
// Bind order is the port order actors observe.
func WithInConduit(port string, c *Conduit) InstanceOption {
	return func(i *Instance) {
		if _, dup := i.recv[port]; !dup {
			i.inOrder = append(i.inOrder, port)
		}
		i.recv[port] = c
	}
}

// WithOutConduit binds an output port to a conduit it sends on.
// Binding the same port again adds a fan-out target.
func WithOutConduit(port string, c *Conduit) InstanceOption {
	return func(i *Instance) {
		if _, dup := i.send[port]; !dup {
			i.outOrder = append(i.outOrder, port)
		}
		i.send[port] = append(i.send[port], c)
	}
}

// WithCycles overrides the reuse-cycle budget.
func WithCycles(n int) InstanceOption {
	return func(i *Instance) {
		if n >= 0 {
			i.cycles = n
		}
	}
}
