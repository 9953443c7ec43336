package sim

import (
	"fmt"
	"math/rand/v2"
)

// === SimulationKey ===

// SimulationKey uniquely identifies a reproducible simulation run.
// Two simulations with the same SimulationKey and identical network
// MUST produce bit-for-bit identical reports.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// === Sources ===

// Source produces uniform values in [0, 1).
// *rand.Rand satisfies it.
type Source interface {
	Float64() float64
}

// SourceKind names a Source implementation.
type SourceKind string

const (
	// SourcePCG is the math/rand/v2 PCG generator seeded with the SimulationKey.
	SourcePCG SourceKind = "pcg"
	// SourceLCG is the textbook linear congruential generator.
	SourceLCG SourceKind = "lcg"
)

var validSourceKinds = map[SourceKind]bool{
	SourcePCG: true,
	SourceLCG: true,
	"":        true, // empty defaults to pcg
}

// IsValidSourceKind returns true if name is a recognized source kind.
func IsValidSourceKind(name string) bool {
	return validSourceKinds[SourceKind(name)]
}

// NewSource builds the Source named by kind for the given key.
func NewSource(kind SourceKind, key SimulationKey) (Source, error) {
	switch kind {
	case SourcePCG, "":
		return rand.New(rand.NewPCG(uint64(key), pcgStream)), nil
	case SourceLCG:
		return NewLCG(uint64(key)), nil
	default:
		return nil, fmt.Errorf("%w: unknown random source %q; valid: pcg, lcg", ErrInvalidConfig, kind)
	}
}

// pcgStream is the fixed second PCG seed word; runs differ only by key.
const pcgStream uint64 = 0x9e3779b97f4a7c15

// LCG constants: x' = (a*x + c) mod m.
const (
	lcgA uint64 = 1664525
	lcgC uint64 = 1013904223
	lcgM uint64 = 1 << 32
)

// LCG is a linear congruential generator with the Numerical Recipes
// constants. Output is x/m, so values lie in [0, 1).
//
// Thread-safety: NOT thread-safe.
type LCG struct {
	prev uint64
}

// NewLCG seeds an LCG. Only the low 32 bits of seed are significant.
func NewLCG(seed uint64) *LCG {
	return &LCG{prev: seed % lcgM}
}

// Float64 advances the generator and returns the next value.
func (g *LCG) Float64() float64 {
	g.prev = (lcgA*g.prev + lcgC) % lcgM
	return float64(g.prev) / float64(lcgM)
}
