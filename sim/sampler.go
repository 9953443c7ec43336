package sim

// Sampler draws uniform durations from a single Source.
// One Sampler belongs to one Simulator and is threaded into every
// call site that needs randomness; draws happen in event order, so the
// draw sequence (and therefore the whole trace) is fixed by the key.
type Sampler struct {
	src   Source
	draws int64
}

// NewSampler wraps src.
func NewSampler(src Source) *Sampler {
	return &Sampler{src: src}
}

// Uniform returns the next raw value in [0, 1).
func (s *Sampler) Uniform() float64 {
	s.draws++
	return s.src.Float64()
}

// Sample returns a value uniformly drawn from [min, max).
// When min == max the draw is still consumed so that degenerate
// intervals do not shift the sequence seen by other queues.
func (s *Sampler) Sample(min, max float64) float64 {
	return min + (max-min)*s.Uniform()
}

// Draws returns how many values have been consumed so far.
func (s *Sampler) Draws() int64 {
	return s.draws
}
