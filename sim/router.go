package sim

import "math"

// routeSumTolerance absorbs floating error in tables that sum to one.
const routeSumTolerance = 1e-9

// PickRoute selects the destination for a client completing service at a queue
// with the given routing table. u must be a uniform draw in [0, 1).
//
// Entries are tried in table order: the first whose cumulative probability
// exceeds u wins. When u falls in the uncovered remainder the client leaves
// the network and exits is true. A table summing to one (within tolerance)
// never exits.
func PickRoute(table []Route, u float64) (dest string, exits bool) {
	cum := 0.0
	for _, r := range table {
		cum += r.Probability
		if u < cum {
			return r.To, false
		}
	}
	if len(table) > 0 && math.Abs(cum-1) <= routeSumTolerance {
		return table[len(table)-1].To, false
	}
	return "", true
}

// routingSum returns the total probability of a table.
func routingSum(table []Route) float64 {
	sum := 0.0
	for _, r := range table {
		sum += r.Probability
	}
	return sum
}
