// Package topology defines the coupling model document: which actor
// components exist, which ports they expose, how conduits wire sender
// ports to receiver ports, and the settings shared by every component.
package topology

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Component kinds the runtime knows how to start.
const (
	KindAccumulator = "accumulator"
	KindSink        = "sink"
	KindSource      = "source"
	KindSinkSource  = "sinksource"
	KindLimitCheck  = "limitcheck"
)

// Component declares one actor instance and its ports.
type Component struct {
	Kind string   `yaml:"kind"`
	In   []string `yaml:"in"`
	Out  []string `yaml:"out"`
}

// Model is the parsed coupling document.
type Model struct {
	Name       string                 `yaml:"name"`
	Components map[string]Component   `yaml:"components"`
	Conduits   map[string][]string    `yaml:"conduits"`
	Settings   map[string]interface{} `yaml:"settings"`
}

// Ref is a parsed "component.port" conduit endpoint.
type Ref struct {
	Component string
	Port      string
}

func (r Ref) String() string {
	return r.Component + "." + r.Port
}

// ParseRef splits a conduit endpoint. The port itself may contain dots
// only in the component name's absence, so the first dot separates.
func ParseRef(s string) (Ref, error) {
	idx := strings.Index(s, ".")
	if idx <= 0 || idx == len(s)-1 {
		return Ref{}, fmt.Errorf("%w: endpoint %q must be component.port", ErrInvalidModel, s)
	}
	return Ref{Component: s[:idx], Port: s[idx+1:]}, nil
}

// Load reads and validates a model document from a YAML file.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a model document.
func Parse(data []byte) (*Model, error) {
	var m Model
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidModel, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// ComponentNames returns the component names in deterministic order.
func (m *Model) ComponentNames() []string {
	names := make([]string, 0, len(m.Components))
	for name := range m.Components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Wires returns the validated conduit endpoints, sender first, in
// deterministic order.
func (m *Model) Wires() ([][2]Ref, error) {
	senders := make([]string, 0, len(m.Conduits))
	for s := range m.Conduits {
		senders = append(senders, s)
	}
	sort.Strings(senders)

	var wires [][2]Ref
	for _, s := range senders {
		from, err := ParseRef(s)
		if err != nil {
			return nil, err
		}
		for _, r := range m.Conduits[s] {
			to, err := ParseRef(r)
			if err != nil {
				return nil, err
			}
			wires = append(wires, [2]Ref{from, to})
		}
	}
	return wires, nil
}

// Validate checks the document's internal consistency: a name, known
// component kinds, and conduits whose endpoints exist with the right
// direction.
func (m *Model) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("%w: model needs a name", ErrInvalidModel)
	}
	if len(m.Components) == 0 {
		return fmt.Errorf("%w: model %q has no components", ErrInvalidModel, m.Name)
	}
	for name, comp := range m.Components {
		switch comp.Kind {
		case KindAccumulator, KindSink, KindSource, KindSinkSource, KindLimitCheck:
		default:
			return fmt.Errorf("%w: component %q has unknown kind %q",
				ErrInvalidModel, name, comp.Kind)
		}
		if err := uniquePorts(name, comp); err != nil {
			return err
		}
	}

	wires, err := m.Wires()
	if err != nil {
		return err
	}
	for _, w := range wires {
		from, to := w[0], w[1]
		if !m.hasPort(from.Component, from.Port, false) {
			return fmt.Errorf("%w: conduit sender %q is not a declared output port",
				ErrInvalidModel, from)
		}
		if !m.hasPort(to.Component, to.Port, true) {
			return fmt.Errorf("%w: conduit receiver %q is not a declared input port",
				ErrInvalidModel, to)
		}
	}

	// A receiving port accepts at most one conduit.
	seen := map[string]string{}
	for _, w := range wires {
		to := w[1].String()
		if prev, dup := seen[to]; dup {
			return fmt.Errorf("%w: port %q receives from both %q and %q",
				ErrInvalidModel, to, prev, w[0])
		}
		seen[to] = w[0].String()
	}
	return nil
}

func uniquePorts(name string, comp Component) error {
	seen := map[string]bool{}
	for _, port := range append(append([]string{}, comp.In...), comp.Out...) {
		if seen[port] {
			return fmt.Errorf("%w: component %q declares port %q twice",
				ErrInvalidModel, name, port)
		}
		seen[port] = true
	}
	return nil
}

func (m *Model) hasPort(component, port string, in bool) bool {
	comp, ok := m.Components[component]
	if !ok {
		return false
	}
	list := comp.Out
	if in {
		list = comp.In
	}
	for _, p := range list {
		if p == port {
			return true
		}
	}
	return false
}
