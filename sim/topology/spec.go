package topology

import (
	"bytes"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/inference-sim/qnetsim/sim"
)

// NetworkSpec is the top-level network configuration.
// Loaded from YAML via LoadNetworkSpec(path).
type NetworkSpec struct {
	Simulation *RunSpec  `yaml:"simulation,omitempty"`
	Queues     QueueList `yaml:"queues"`
}

// RunSpec holds optional run defaults. Nil fields are left to the caller.
type RunSpec struct {
	Seed         *int64   `yaml:"seed,omitempty"`
	Events       *int64   `yaml:"events,omitempty"`
	FirstArrival *float64 `yaml:"first_arrival,omitempty"`
	Source       string   `yaml:"source,omitempty"`
	RandomBudget *int64   `yaml:"random_budget,omitempty"`
}

// QueueEntry is one queue as written in the file.
type QueueEntry struct {
	ID           string        `yaml:"-"`
	Type         string        `yaml:"type"`
	Arrival      *sim.Interval `yaml:"arrival,omitempty"`
	Service      *sim.Interval `yaml:"service"`
	FirstArrival *float64      `yaml:"first_arrival,omitempty"`
	Routing      RoutingTable  `yaml:"routing,omitempty"`
}

// QueueList keeps queues in the order they appear under `queues:`.
type QueueList []QueueEntry

// RoutingTable keeps routing entries in file order. Both a list of
// single-entry mappings and a plain mapping are accepted:
//
//	routing:            routing:
//	  - fila2: 0.7        fila2: 0.7
//	  - fila3: 0.3        fila3: 0.3
type RoutingTable []sim.Route

var validQueueKeys = map[string]bool{
	"type": true, "arrival": true, "service": true, "first_arrival": true, "routing": true,
}

var validIntervalKeys = map[string]bool{"min": true, "max": true}

// UnmarshalYAML decodes the `queues:` mapping preserving key order.
func (ql *QueueList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: queues must be a mapping of queue id to queue", value.Line)
	}
	out := make(QueueList, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		key, body := value.Content[i], value.Content[i+1]
		if body.Kind != yaml.MappingNode {
			return fmt.Errorf("line %d: queue %q must be a mapping", body.Line, key.Value)
		}
		// Node.Decode does not inherit KnownFields, so nested keys are checked here.
		for j := 0; j+1 < len(body.Content); j += 2 {
			k, v := body.Content[j], body.Content[j+1]
			if !validQueueKeys[k.Value] {
				return fmt.Errorf("line %d: field %s not found in queue %q", k.Line, k.Value, key.Value)
			}
			if (k.Value == "arrival" || k.Value == "service") && v.Kind == yaml.MappingNode {
				for m := 0; m+1 < len(v.Content); m += 2 {
					if ik := v.Content[m]; !validIntervalKeys[ik.Value] {
						return fmt.Errorf("line %d: field %s not found in %s of queue %q", ik.Line, ik.Value, k.Value, key.Value)
					}
				}
			}
		}
		var entry QueueEntry
		if err := body.Decode(&entry); err != nil {
			return fmt.Errorf("queue %q: %w", key.Value, err)
		}
		entry.ID = key.Value
		out = append(out, entry)
	}
	*ql = out
	return nil
}

// UnmarshalYAML decodes a routing table in either accepted form.
func (rt *RoutingTable) UnmarshalYAML(value *yaml.Node) error {
	var out RoutingTable
	appendPairs := func(m *yaml.Node) error {
		for i := 0; i+1 < len(m.Content); i += 2 {
			var p float64
			if err := m.Content[i+1].Decode(&p); err != nil {
				return fmt.Errorf("line %d: routing probability for %q: %w", m.Content[i+1].Line, m.Content[i].Value, err)
			}
			out = append(out, sim.Route{To: m.Content[i].Value, Probability: p})
		}
		return nil
	}
	switch value.Kind {
	case yaml.MappingNode:
		if err := appendPairs(value); err != nil {
			return err
		}
	case yaml.SequenceNode:
		for _, item := range value.Content {
			if item.Kind != yaml.MappingNode {
				return fmt.Errorf("line %d: routing entries must be `queue: probability` mappings", item.Line)
			}
			if err := appendPairs(item); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("line %d: routing must be a list or a mapping", value.Line)
	}
	*rt = out
	return nil
}

// LoadNetworkSpec reads and parses a YAML network specification file.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadNetworkSpec(path string) (*NetworkSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading network spec: %w", err)
	}
	return ParseNetworkSpec(data)
}

// ParseNetworkSpec parses YAML bytes into a NetworkSpec.
func ParseNetworkSpec(data []byte) (*NetworkSpec, error) {
	var spec NetworkSpec
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&spec); err != nil {
		return nil, fmt.Errorf("parsing network spec: %w", err)
	}
	return &spec, nil
}

// Build converts the loaded network into a validated sim.Network. firstArrival is the
// global default first-arrival time; a queue's own first_arrival wins over it.
func (s *NetworkSpec) Build(firstArrival float64) (*sim.Network, error) {
	if len(s.Queues) == 0 {
		return nil, fmt.Errorf("%w: no queues declared", sim.ErrInvalidConfig)
	}
	specs := make([]sim.QueueSpec, 0, len(s.Queues))
	for _, q := range s.Queues {
		qs, err := q.toQueueSpec(firstArrival)
		if err != nil {
			return nil, err
		}
		specs = append(specs, qs)
	}
	return sim.NewNetwork(specs...)
}

func (q *QueueEntry) toQueueSpec(firstArrival float64) (sim.QueueSpec, error) {
	tag, err := ParseTypeTag(q.Type)
	if err != nil {
		return sim.QueueSpec{}, fmt.Errorf("%w: queue %q: %v", sim.ErrInvalidConfig, q.ID, err)
	}
	if !tag.General() {
		logrus.Warnf("queue %q: type %q simulated with uniform arrival and service times", q.ID, q.Type)
	}
	if q.Service == nil {
		return sim.QueueSpec{}, fmt.Errorf("%w: queue %q: service interval is required", sim.ErrInvalidConfig, q.ID)
	}
	spec := sim.QueueSpec{
		ID:       q.ID,
		Tag:      q.Type,
		Servers:  tag.Servers,
		Capacity: tag.Capacity,
		Service:  *q.Service,
		Routing:  []sim.Route(q.Routing),
	}
	// {min: 0, max: 0} declares "no exogenous arrivals", as an absent block does.
	if q.Arrival != nil && !(q.Arrival.Min == 0 && q.Arrival.Max == 0) {
		arrival := *q.Arrival
		spec.Arrival = &arrival
		spec.FirstArrival = firstArrival
		if q.FirstArrival != nil {
			spec.FirstArrival = *q.FirstArrival
		}
	} else if q.FirstArrival != nil {
		return sim.QueueSpec{}, fmt.Errorf("%w: queue %q: first_arrival set on a queue without arrivals", sim.ErrInvalidConfig, q.ID)
	}
	return spec, nil
}
