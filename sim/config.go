package sim

import (
	"fmt"

	"github.com/inference-sim/qnetsim/sim/trace"
)

const (
	// DefaultEventBudget is the number of events a run processes unless configured.
	DefaultEventBudget int64 = 100000
	// DefaultProgressEvery is the progress logging interval, in events.
	DefaultProgressEvery int64 = 10000
	// DefaultFirstArrival is the offset a source's first inter-arrival draw is added to.
	DefaultFirstArrival = 2.0
)

// SimConfig groups run parameters for NewSimulator.
type SimConfig struct {
	Seed          int64      // SimulationKey for the run
	EventBudget   int64      // events to process before stopping (must be > 0)
	Source        SourceKind // "pcg" (default) or "lcg"
	RandomBudget  int64      // stop once this many uniforms were drawn (0 = unlimited)
	ProgressEvery int64      // log progress every N events (0 = never)
	// Trace collects routing and loss records when non-nil and enabled.
	Trace *trace.SimulationTrace
}

// DefaultSimConfig returns the configuration used when nothing is overridden.
func DefaultSimConfig() SimConfig {
	return SimConfig{
		Seed:          1,
		EventBudget:   DefaultEventBudget,
		Source:        SourcePCG,
		ProgressEvery: DefaultProgressEvery,
	}
}

// Validate checks run parameters.
func (c SimConfig) Validate() error {
	if c.EventBudget <= 0 {
		return fmt.Errorf("%w: event budget must be positive, got %d", ErrInvalidConfig, c.EventBudget)
	}
	if c.RandomBudget < 0 {
		return fmt.Errorf("%w: random budget must be >= 0, got %d", ErrInvalidConfig, c.RandomBudget)
	}
	if c.ProgressEvery < 0 {
		return fmt.Errorf("%w: progress interval must be >= 0, got %d", ErrInvalidConfig, c.ProgressEvery)
	}
	if !IsValidSourceKind(string(c.Source)) {
		return fmt.Errorf("%w: unknown random source %q; valid: pcg, lcg", ErrInvalidConfig, c.Source)
	}
	return nil
}
