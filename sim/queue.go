package sim

import "fmt"

// Unbounded is the Capacity value of a queue limited only by its servers.
const Unbounded = -1

// Interval is a closed range of durations [Min, Max] in virtual time units.
type Interval struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Route is one entry of a routing table.
type Route struct {
	To          string  `json:"to" yaml:"to"`
	Probability float64 `json:"probability" yaml:"probability"`
}

// QueueSpec is the immutable description of one G/G/s/c queue.
type QueueSpec struct {
	ID       string
	Tag      string // type tag as written in the config, for display only
	Servers  int
	Capacity int // Unbounded or >= Servers
	// Arrival is the exogenous inter-arrival range; nil for non-source queues.
	Arrival *Interval
	Service Interval
	Routing []Route
	// FirstArrival offsets the first exogenous arrival, which happens one
	// inter-arrival draw after it (sources only).
	FirstArrival float64
}

// IsSource reports whether the queue receives clients from outside the network.
func (q *QueueSpec) IsSource() bool {
	return q.Arrival != nil
}

// Bounded reports whether the queue has a finite capacity.
func (q *QueueSpec) Bounded() bool {
	return q.Capacity != Unbounded
}

// DisplayTag returns Tag, or a tag rebuilt from Servers/Capacity.
func (q *QueueSpec) DisplayTag() string {
	if q.Tag != "" {
		return q.Tag
	}
	if !q.Bounded() {
		return fmt.Sprintf("G/G/%d", q.Servers)
	}
	return fmt.Sprintf("G/G/%d/%d", q.Servers, q.Capacity)
}

// QueueState is the mutable runtime state of a queue.
// Only the Queue transitions write to it.
type QueueState struct {
	Occupancy      int     // clients present, waiting + in service
	Busy           int     // servers currently serving
	LastTransition float64 // virtual time of the last recorded transition
	Losses         int64
	Arrivals       int64 // arrivals offered, accepted or lost
	Completions    int64 // services finished
	Stats          Stats
}

// Queue pairs a spec with its runtime state and implements the
// occupancy automaton.
type Queue struct {
	Spec  *QueueSpec
	State QueueState
}

func newQueue(spec *QueueSpec) *Queue {
	q := &Queue{Spec: spec}
	if spec.Bounded() {
		q.State.Stats = newStats(spec.Capacity + 1)
	} else {
		q.State.Stats = newStats(1)
	}
	return q
}

// arrive applies an ARRIVAL at time now. A free server starts the client
// immediately, drawing its service time and scheduling its departure.
// A full queue loses the client. Returns true when the client was lost.
func (q *Queue) arrive(now float64, s *Sampler, h *EventHeap) bool {
	st := &q.State
	st.Arrivals++
	if q.Spec.Bounded() && st.Occupancy >= q.Spec.Capacity {
		st.Losses++
		return true
	}
	st.Occupancy++
	if st.Busy < q.Spec.Servers {
		st.Busy++
		q.startService(now, s, h)
	}
	q.checkInvariants()
	return false
}

// depart applies a DEPARTURE at time now. If clients are waiting the freed
// server takes the next one; otherwise it goes idle.
func (q *Queue) depart(now float64, s *Sampler, h *EventHeap) {
	st := &q.State
	st.Occupancy--
	st.Completions++
	if st.Occupancy >= st.Busy {
		q.startService(now, s, h)
	} else {
		st.Busy--
	}
	q.checkInvariants()
}

// scheduleNextArrival extends the exogenous stream of a source queue.
func (q *Queue) scheduleNextArrival(now float64, s *Sampler, h *EventHeap) {
	a := q.Spec.Arrival
	h.Schedule(NewArrivalEvent(now+s.Sample(a.Min, a.Max), q.Spec.ID, true))
}

func (q *Queue) startService(now float64, s *Sampler, h *EventHeap) {
	d := s.Sample(q.Spec.Service.Min, q.Spec.Service.Max)
	h.Schedule(NewDepartureEvent(now+d, q.Spec.ID))
}

func (q *Queue) checkInvariants() {
	st := q.State
	if st.Occupancy < 0 || (q.Spec.Bounded() && st.Occupancy > q.Spec.Capacity) {
		panic(violationf(q.Spec.ID, "occupancy %d outside [0, %d]", st.Occupancy, q.Spec.Capacity))
	}
	if st.Busy < 0 || st.Busy > min(st.Occupancy, q.Spec.Servers) {
		panic(violationf(q.Spec.ID, "busy servers %d outside [0, min(%d, %d)]", st.Busy, st.Occupancy, q.Spec.Servers))
	}
}
