// sim/simulator.go
package sim

import (
	"github.com/sirupsen/logrus"

	"github.com/inference-sim/qnetsim/sim/trace"
)

// StopReason tells why a run ended.
type StopReason string

const (
	// StopEventBudget: the configured number of events was processed.
	StopEventBudget StopReason = "event-budget"
	// StopExhausted: no events were left to process.
	StopExhausted StopReason = "exhausted"
	// StopRandomBudget: the configured number of random draws was consumed.
	StopRandomBudget StopReason = "random-budget"
)

// Simulator is the core object that holds simulation time, network state, and the event loop.
type Simulator struct {
	Clock   float64
	Network *Network
	// Queues holds runtime state for every queue in the network.
	Queues map[string]*Queue
	// Events has every pending arrival and departure.
	Events  *EventHeap
	Sampler *Sampler
	Config  SimConfig

	EventsProcessed int64

	seeded    bool
	finalized bool
	stop      StopReason
}

// NewSimulator creates runtime state (empty queues at t=0) for net.
func NewSimulator(net *Network, cfg SimConfig) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	src, err := NewSource(cfg.Source, NewSimulationKey(cfg.Seed))
	if err != nil {
		return nil, err
	}
	s := &Simulator{
		Network: net,
		Queues:  make(map[string]*Queue, len(net.Order)),
		Events:  NewEventHeap(),
		Sampler: NewSampler(src),
		Config:  cfg,
	}
	for _, id := range net.Order {
		s.Queues[id] = newQueue(net.Queues[id])
	}
	return s, nil
}

// Inject schedules an externally built event, e.g. a routed arrival in tests.
func (sim *Simulator) Inject(ev Event) {
	sim.Events.Schedule(ev)
}

// seedSources schedules the first exogenous arrival of every source queue
// one inter-arrival draw after its FirstArrival offset.
func (sim *Simulator) seedSources() {
	if sim.seeded {
		return
	}
	sim.seeded = true
	for _, id := range sim.Network.Order {
		if sim.Network.Queues[id].IsSource() {
			q := sim.Queues[id]
			q.scheduleNextArrival(q.Spec.FirstArrival, sim.Sampler, sim.Events)
		}
	}
}

// Run processes events until a stop condition and returns the final report.
func (sim *Simulator) Run() *Report {
	logrus.Infof("Starting simulation: %d queues, seed=%d, source=%s, event budget=%d",
		len(sim.Network.Order), sim.Config.Seed, sim.Config.Source, sim.Config.EventBudget)
	for sim.Step() {
	}
	sim.Finalize()
	logrus.Infof("[t=%.4f] Simulation ended after %d events (%s)", sim.Clock, sim.EventsProcessed, sim.stop)
	return sim.Report()
}

// Step processes a single event. It returns false once the run has stopped.
func (sim *Simulator) Step() bool {
	sim.seedSources()
	if sim.stop != "" {
		return false
	}
	if sim.EventsProcessed >= sim.Config.EventBudget {
		sim.stop = StopEventBudget
		return false
	}
	if sim.Config.RandomBudget > 0 && sim.Sampler.Draws() >= sim.Config.RandomBudget {
		sim.stop = StopRandomBudget
		return false
	}
	ev, ok := sim.Events.PopNext()
	if !ok {
		sim.stop = StopExhausted
		logrus.Warnf("No pending events after %d of %d events; reporting partial time %.4f",
			sim.EventsProcessed, sim.Config.EventBudget, sim.Clock)
		return false
	}

	sim.Clock = ev.Timestamp()
	q := sim.Queues[ev.Queue()]
	logrus.Debugf("[t=%.4f] %s at %s (n=%d, busy=%d)", sim.Clock, ev.Kind(), ev.Queue(), q.State.Occupancy, q.State.Busy)
	sim.record(q)
	sim.dispatch(q, ev)

	sim.EventsProcessed++
	if every := sim.Config.ProgressEvery; every > 0 && sim.EventsProcessed%every == 0 {
		logrus.Infof("Processed %d events. Current time: %.2f", sim.EventsProcessed, sim.Clock)
	}
	return true
}

// record charges the time since the queue's last transition to its current state.
func (sim *Simulator) record(q *Queue) {
	st := &q.State
	dt := sim.Clock - st.LastTransition
	if dt < 0 {
		panic(violationf(q.Spec.ID, "clock %g is before last transition %g", sim.Clock, st.LastTransition))
	}
	st.Stats.Record(st.Occupancy, st.Busy, dt)
	st.LastTransition = sim.Clock
}

func (sim *Simulator) dispatch(q *Queue, ev Event) {
	switch ev.Kind() {
	case Arrival:
		// the exogenous stream draws before the arriving client's service
		if ev.External() {
			q.scheduleNextArrival(sim.Clock, sim.Sampler, sim.Events)
		}
		if lost := q.arrive(sim.Clock, sim.Sampler, sim.Events); lost {
			logrus.Debugf("[t=%.4f] loss at %s (capacity %d)", sim.Clock, q.Spec.ID, q.Spec.Capacity)
			if sim.Config.Trace.Enabled() {
				sim.Config.Trace.RecordLoss(trace.LossRecord{
					Clock:     sim.Clock,
					Queue:     q.Spec.ID,
					Occupancy: q.State.Occupancy,
					External:  ev.External(),
				})
			}
		}
	case Departure:
		q.depart(sim.Clock, sim.Sampler, sim.Events)
		sim.route(q)
	}
}

// route forwards a client leaving q. Transit takes no virtual time.
func (sim *Simulator) route(q *Queue) {
	table := q.Spec.Routing
	if len(table) == 0 {
		return
	}
	u := sim.Sampler.Uniform()
	dest, exits := PickRoute(table, u)
	if sim.Config.Trace.Enabled() {
		sim.Config.Trace.RecordRouting(trace.RoutingRecord{
			Clock:  sim.Clock,
			From:   q.Spec.ID,
			To:     dest,
			Exited: exits,
			Draw:   u,
		})
	}
	if !exits {
		sim.Events.Schedule(NewArrivalEvent(sim.Clock, dest, false))
	}
}

// Finalize closes every queue's last interval at the current clock so that
// each dwell array sums to the elapsed virtual time. Safe to call twice.
func (sim *Simulator) Finalize() {
	if sim.finalized {
		return
	}
	sim.finalized = true
	for _, id := range sim.Network.Order {
		sim.record(sim.Queues[id])
	}
}

// StopReason returns why the run ended; empty while it is still running.
func (sim *Simulator) StopReason() StopReason {
	return sim.stop
}
