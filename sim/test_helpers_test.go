package sim

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// mustNetwork builds a Network or fails the test.
func mustNetwork(t *testing.T, specs ...QueueSpec) *Network {
	t.Helper()
	net, err := NewNetwork(specs...)
	require.NoError(t, err)
	return net
}

// newTestSimulator builds a quiet Simulator over specs.
func newTestSimulator(t *testing.T, cfg SimConfig, specs ...QueueSpec) *Simulator {
	t.Helper()
	cfg.ProgressEvery = 0
	s, err := NewSimulator(mustNetwork(t, specs...), cfg)
	require.NoError(t, err)
	return s
}

// tandemSpecs is fila1 (G/G/1) -> fila2 (G/G/2/5) -> fila3 (G/G/2/10).
func tandemSpecs() []QueueSpec {
	return []QueueSpec{
		{
			ID: "fila1", Servers: 1, Capacity: Unbounded,
			Arrival:      &Interval{Min: 2, Max: 4},
			Service:      Interval{Min: 1, Max: 2},
			Routing:      []Route{{To: "fila2", Probability: 1.0}},
			FirstArrival: DefaultFirstArrival,
		},
		{
			ID: "fila2", Servers: 2, Capacity: 5,
			Service: Interval{Min: 4, Max: 8},
			Routing: []Route{{To: "fila3", Probability: 1.0}},
		},
		{
			ID: "fila3", Servers: 2, Capacity: 10,
			Service: Interval{Min: 5, Max: 15},
		},
	}
}

// deterministicQueue is an unbounded G/G/1 source with fixed inter-arrival
// and service times; its first arrival is DefaultFirstArrival plus one
// inter-arrival time.
func deterministicQueue(interArrival, service float64) QueueSpec {
	return QueueSpec{
		ID: "q", Servers: 1, Capacity: Unbounded,
		Arrival:      &Interval{Min: interArrival, Max: interArrival},
		Service:      Interval{Min: service, Max: service},
		FirstArrival: DefaultFirstArrival,
	}
}

// config returns DefaultSimConfig with the given seed and budget.
func config(seed, events int64) SimConfig {
	cfg := DefaultSimConfig()
	cfg.Seed = seed
	cfg.EventBudget = events
	return cfg
}
