package sim

import "fmt"

// EventKind tags the two transitions a queue can undergo.
type EventKind int

const (
	// Arrival: a client reaches a queue.
	Arrival EventKind = iota
	// Departure: a server at a queue finishes a client.
	Departure
)

func (k EventKind) String() string {
	switch k {
	case Arrival:
		return "ARRIVAL"
	case Departure:
		return "DEPARTURE"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is a scheduled transition at a queue.
// Fields are unexported; an Event is never mutated after construction.
// seq is assigned by the EventHeap that accepts it.
type Event struct {
	kind     EventKind
	queue    string
	time     float64
	seq      uint64
	external bool
}

// NewArrivalEvent creates an arrival at queue for virtual time t.
// external marks arrivals generated by the queue's own exogenous stream.
func NewArrivalEvent(t float64, queue string, external bool) Event {
	return Event{kind: Arrival, queue: queue, time: t, external: external}
}

// NewDepartureEvent creates a service completion at queue for virtual time t.
func NewDepartureEvent(t float64, queue string) Event {
	return Event{kind: Departure, queue: queue, time: t}
}

// Kind returns the event kind.
func (e Event) Kind() EventKind { return e.kind }

// Queue returns the target queue id.
func (e Event) Queue() string { return e.queue }

// Timestamp returns the scheduled virtual time.
func (e Event) Timestamp() float64 { return e.time }

// Seq returns the insertion sequence number assigned by the scheduler.
func (e Event) Seq() uint64 { return e.seq }

// External reports whether the event belongs to a source's exogenous stream.
func (e Event) External() bool { return e.external }

func (e Event) String() string {
	return fmt.Sprintf("%s@%s t=%.4f #%d", e.kind, e.queue, e.time, e.seq)
}
