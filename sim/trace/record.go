// Package trace provides decision-trace recording for queueing-network runs.
// This package has no dependencies on sim/. It stores pure data types.
package trace

// RoutingRecord captures where a client went after completing service.
type RoutingRecord struct {
	Clock  float64 `json:"clock" yaml:"clock"`
	From   string  `json:"from" yaml:"from"`
	To     string  `json:"to,omitempty" yaml:"to,omitempty"` // empty when Exited
	Exited bool    `json:"exited" yaml:"exited"`
	Draw   float64 `json:"draw" yaml:"draw"` // uniform value the decision was made on
}

// LossRecord captures a client rejected by a full queue.
type LossRecord struct {
	Clock     float64 `json:"clock" yaml:"clock"`
	Queue     string  `json:"queue" yaml:"queue"`
	Occupancy int     `json:"occupancy" yaml:"occupancy"`
	External  bool    `json:"external" yaml:"external"` // lost from the exogenous stream
}
