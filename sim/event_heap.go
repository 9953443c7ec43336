package sim

import "container/heap"

// EventHeap implements a priority queue with deterministic ordering.
// Ordering: timestamp → insertion sequence, so events sharing a timestamp
// come out in the order they were scheduled (FIFO).
type EventHeap struct {
	events  []Event
	nextSeq uint64
	// last yielded timestamp; nothing earlier may be scheduled or popped
	clock  float64
	popped bool
}

// NewEventHeap creates a new event heap
func NewEventHeap() *EventHeap {
	h := &EventHeap{
		events: make([]Event, 0),
	}
	heap.Init(h)
	return h
}

// Len implements heap.Interface
func (h *EventHeap) Len() int {
	return len(h.events)
}

// Less implements heap.Interface with deterministic ordering
func (h *EventHeap) Less(i, j int) bool {
	ei, ej := h.events[i], h.events[j]
	if ei.time != ej.time {
		return ei.time < ej.time
	}
	return ei.seq < ej.seq
}

// Swap implements heap.Interface
func (h *EventHeap) Swap(i, j int) {
	h.events[i], h.events[j] = h.events[j], h.events[i]
}

// Push implements heap.Interface. Use Schedule instead.
func (h *EventHeap) Push(x any) {
	h.events = append(h.events, x.(Event))
}

// Pop implements heap.Interface. Use PopNext instead.
func (h *EventHeap) Pop() any {
	old := h.events
	n := len(old)
	item := old[n-1]
	h.events = old[0 : n-1]
	return item
}

// Schedule stamps e with the next insertion sequence and adds it to the heap.
// Scheduling before the last popped timestamp is an invariant violation.
func (h *EventHeap) Schedule(e Event) Event {
	if h.popped && e.time < h.clock {
		panic(violationf(e.queue, "scheduled %s at t=%g before current time %g", e.kind, e.time, h.clock))
	}
	e.seq = h.nextSeq
	h.nextSeq++
	heap.Push(h, e)
	return e
}

// PopNext removes and returns the next event. ok is false when the heap is empty.
func (h *EventHeap) PopNext() (e Event, ok bool) {
	if h.Len() == 0 {
		return Event{}, false
	}
	e = heap.Pop(h).(Event)
	if h.popped && e.time < h.clock {
		panic(violationf(e.queue, "popped t=%g after t=%g", e.time, h.clock))
	}
	h.clock = e.time
	h.popped = true
	return e, true
}

// Peek returns the next event without removing it
func (h *EventHeap) Peek() (Event, bool) {
	if h.Len() == 0 {
		return Event{}, false
	}
	return h.events[0], true
}
