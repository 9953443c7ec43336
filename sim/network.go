package sim

import (
	"fmt"
	"math"

	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/graph/traverse"
)

// Network is the validated, immutable set of queues and their routing.
// Order preserves the declaration order and fixes every iteration the
// engine performs, so runs do not depend on map ordering.
type Network struct {
	Order  []string
	Queues map[string]*QueueSpec
}

// NewNetwork validates specs and builds a Network. Every error wraps
// ErrInvalidConfig.
func NewNetwork(specs ...QueueSpec) (*Network, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("%w: network has no queues", ErrInvalidConfig)
	}
	n := &Network{
		Order:  make([]string, 0, len(specs)),
		Queues: make(map[string]*QueueSpec, len(specs)),
	}
	for i := range specs {
		spec := specs[i]
		if spec.ID == "" {
			return nil, fmt.Errorf("%w: queue[%d] has an empty id", ErrInvalidConfig, i)
		}
		if _, dup := n.Queues[spec.ID]; dup {
			return nil, configErrorf(spec.ID, "declared more than once")
		}
		n.Order = append(n.Order, spec.ID)
		n.Queues[spec.ID] = &spec
	}
	for _, id := range n.Order {
		if err := n.validateQueue(n.Queues[id]); err != nil {
			return nil, err
		}
	}
	return n, nil
}

func (n *Network) validateQueue(q *QueueSpec) error {
	if q.Servers < 1 {
		return configErrorf(q.ID, "server count must be >= 1, got %d", q.Servers)
	}
	if q.Capacity != Unbounded && q.Capacity < q.Servers {
		return configErrorf(q.ID, "capacity %d is less than server count %d", q.Capacity, q.Servers)
	}
	if err := validateInterval(q.Service); err != nil {
		return configErrorf(q.ID, "service %v", err)
	}
	if q.Arrival != nil {
		if err := validateInterval(*q.Arrival); err != nil {
			return configErrorf(q.ID, "arrival %v", err)
		}
		if q.Arrival.Max <= 0 {
			return configErrorf(q.ID, "arrival interval must have a positive upper bound")
		}
		if q.FirstArrival < 0 || math.IsNaN(q.FirstArrival) || math.IsInf(q.FirstArrival, 0) {
			return configErrorf(q.ID, "first arrival time must be finite and >= 0, got %g", q.FirstArrival)
		}
	}
	seen := make([]string, 0, len(q.Routing))
	for _, r := range q.Routing {
		if _, ok := n.Queues[r.To]; !ok {
			return configErrorf(q.ID, "routes to unknown queue %q", r.To)
		}
		if slices.Contains(seen, r.To) {
			return configErrorf(q.ID, "routes to %q more than once", r.To)
		}
		seen = append(seen, r.To)
		if r.Probability < 0 || r.Probability > 1 || math.IsNaN(r.Probability) {
			return configErrorf(q.ID, "routing probability to %q must be in [0, 1], got %g", r.To, r.Probability)
		}
	}
	if sum := routingSum(q.Routing); sum > 1+routeSumTolerance {
		return configErrorf(q.ID, "routing probabilities sum to %g, exceeding 1", sum)
	}
	return nil
}

func validateInterval(iv Interval) error {
	for _, v := range []float64{iv.Min, iv.Max} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("bounds must be finite, got [%g, %g]", iv.Min, iv.Max)
		}
	}
	if iv.Min < 0 {
		return fmt.Errorf("lower bound must be >= 0, got %g", iv.Min)
	}
	if iv.Max < iv.Min {
		return fmt.Errorf("upper bound %g is below lower bound %g", iv.Max, iv.Min)
	}
	return nil
}

// Sources returns the ids of source queues in network order.
func (n *Network) Sources() []string {
	var out []string
	for _, id := range n.Order {
		if n.Queues[id].IsSource() {
			out = append(out, id)
		}
	}
	return out
}

// Topology summarizes the routing graph of a Network.
type Topology struct {
	Sources     []string
	Unreachable []string // queues no client from any source can ever visit
	Cyclic      bool     // some client may revisit a queue
}

// Analyze inspects the routing graph. Only edges with positive probability count.
func (n *Network) Analyze() Topology {
	g := simple.NewDirectedGraph()
	index := make(map[string]int64, len(n.Order))
	for i, id := range n.Order {
		index[id] = int64(i)
		g.AddNode(simple.Node(i))
	}
	topology := Topology{Sources: n.Sources()}
	for _, id := range n.Order {
		for _, r := range n.Queues[id].Routing {
			if r.Probability <= 0 {
				continue
			}
			if r.To == id {
				// self-loops cannot be represented in a simple graph
				topology.Cyclic = true
				continue
			}
			g.SetEdge(g.NewEdge(simple.Node(index[id]), simple.Node(index[r.To])))
		}
	}
	if _, err := topo.Sort(g); err != nil {
		topology.Cyclic = true
	}

	reached := make(map[int64]bool, len(n.Order))
	bf := traverse.BreadthFirst{
		Visit: func(v graph.Node) { reached[v.ID()] = true },
	}
	for _, src := range topology.Sources {
		bf.Walk(g, simple.Node(index[src]), nil)
	}
	for i, id := range n.Order {
		if !reached[int64(i)] {
			topology.Unreachable = append(topology.Unreachable, id)
		}
	}
	return topology
}
