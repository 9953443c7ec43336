// Package sim provides the discrete-event simulation engine for networks of
// finite-capacity, multi-server (G/G/s/c) queues with probabilistic routing.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - event.go / event_heap.go: ARRIVAL and DEPARTURE events and the scheduler
//     that yields them by timestamp, FIFO among equal timestamps
//   - queue.go: the per-queue occupancy automaton
//   - simulator.go: the event loop, routing between queues, and finalization
//
// # Determinism
//
// A run is fixed by its network and its SimulationKey. The Simulator owns a
// single Sampler; every service time, inter-arrival time and routing draw is
// taken from it in event order. Queues are always visited in network
// declaration order, never in map order.
//
// # Statistics
//
// Before each transition the Simulator charges the time since the queue's
// previous transition to the queue's pre-transition occupancy. Finalize
// closes the last interval, so every queue's dwell times sum to the
// elapsed virtual time of the run.
//
// Sub-packages:
//   - sim/topology/: YAML network loading and "G/G/s/c" tag parsing
//   - sim/trace/: optional routing and loss decision trace
package sim
