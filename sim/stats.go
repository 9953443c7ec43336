package sim

import "gonum.org/v1/gonum/stat"

// Stats accumulates time-weighted occupancy for one queue.
// Dwell[i] is the virtual time spent with exactly i clients present.
type Stats struct {
	Dwell []float64
	// BusyTime integrates the number of busy servers over time.
	BusyTime float64
}

func newStats(states int) Stats {
	return Stats{Dwell: make([]float64, states)}
}

// Record adds duration to the dwell time of state, with busy servers
// active over the whole interval. The dwell slice grows on demand for
// unbounded queues.
func (s *Stats) Record(state, busy int, duration float64) {
	if duration < 0 {
		panic(violationf("", "negative dwell %g in state %d", duration, state))
	}
	for len(s.Dwell) <= state {
		s.Dwell = append(s.Dwell, 0)
	}
	s.Dwell[state] += duration
	s.BusyTime += float64(busy) * duration
}

// Total returns the sum of all dwell times.
func (s *Stats) Total() float64 {
	total := 0.0
	for _, d := range s.Dwell {
		total += d
	}
	return total
}

// Shares returns the dwell time and percentage of total for every state,
// in state order. A zero total yields zero percentages.
func (s *Stats) Shares(total float64) []StateShare {
	shares := make([]StateShare, len(s.Dwell))
	for i, d := range s.Dwell {
		pct := 0.0
		if total > 0 {
			pct = d / total * 100
		}
		shares[i] = StateShare{State: i, Time: d, Percent: pct}
	}
	return shares
}

// MeanOccupancy is the time-weighted mean number of clients present.
func (s *Stats) MeanOccupancy() float64 {
	if s.Total() == 0 {
		return 0
	}
	states := make([]float64, len(s.Dwell))
	for i := range states {
		states[i] = float64(i)
	}
	return stat.Mean(states, s.Dwell)
}
