package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalRoutings int
	Exits         int
	TotalLosses   int
	// RouteDistribution maps source queue → destination queue → count.
	// Exits are not included.
	RouteDistribution map[string]map[string]int
	// DecisionsByQueue counts routing decisions per source queue, exits included.
	DecisionsByQueue map[string]int
	LossesByQueue    map[string]int
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		RouteDistribution: make(map[string]map[string]int),
		DecisionsByQueue:  make(map[string]int),
		LossesByQueue:     make(map[string]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalRoutings = len(st.Routings)
	for _, r := range st.Routings {
		summary.DecisionsByQueue[r.From]++
		if r.Exited {
			summary.Exits++
			continue
		}
		dests, ok := summary.RouteDistribution[r.From]
		if !ok {
			dests = make(map[string]int)
			summary.RouteDistribution[r.From] = dests
		}
		dests[r.To]++
	}

	summary.TotalLosses = len(st.Losses)
	for _, l := range st.Losses {
		summary.LossesByQueue[l.Queue]++
	}

	return summary
}

// RouteFraction returns the observed share of decisions at from that
// sent the client to to. Exits count in the denominator.
func (s *TraceSummary) RouteFraction(from, to string) float64 {
	total := s.DecisionsByQueue[from]
	if total == 0 {
		return 0
	}
	return float64(s.RouteDistribution[from][to]) / float64(total)
}
