package sim

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/qnetsim/sim/internal/testutil"
	"github.com/inference-sim/qnetsim/sim/trace"
)

// stepAll steps until the run stops and returns the occupancy of queue id
// after every processed event.
func stepAll(s *Simulator, id string) []int {
	var occ []int
	for s.Step() {
		occ = append(occ, s.Queues[id].State.Occupancy)
	}
	return occ
}

func TestSimulator_DeterministicUnderloadedQueue(t *testing.T) {
	// GIVEN a G/G/1 queue with arrivals every 3 and service of 1, first arrival at 2+3
	s := newTestSimulator(t, config(1, 6), deterministicQueue(3, 1))

	// WHEN 6 events are processed
	occ := stepAll(s, "q")
	s.Finalize()

	// THEN every client is served before the next one arrives
	assert.Equal(t, []int{1, 0, 1, 0, 1, 0}, occ)
	assert.Equal(t, 12.0, s.Clock)
	assert.Equal(t, []float64{9, 3}, s.Queues["q"].State.Stats.Dwell)
	assert.Equal(t, int64(3), s.Queues["q"].State.Completions)
	assert.Equal(t, StopEventBudget, s.StopReason())
}

func TestSimulator_DeterministicOverloadedQueue_FIFOTieBreak(t *testing.T) {
	// GIVEN arrivals every 2 and service of 3, so the backlog grows
	s := newTestSimulator(t, config(1, 9), deterministicQueue(2, 3))

	// WHEN 9 events are processed
	occ := stepAll(s, "q")
	s.Finalize()

	// THEN the departure at t=10, scheduled before the arrival at t=10,
	// is processed first
	assert.Equal(t, []int{1, 2, 1, 2, 1, 2, 3, 2, 3}, occ)
	assert.Equal(t, 14.0, s.Clock)
	assert.Equal(t, []float64{4, 3, 6, 1}, s.Queues["q"].State.Stats.Dwell)
}

func TestSimulator_BoundaryArrivalsAreLost(t *testing.T) {
	// GIVEN an internal G/G/1/2 queue with service of exactly 10
	spec := QueueSpec{ID: "q", Servers: 1, Capacity: 2, Service: Interval{Min: 10, Max: 10}}
	s := newTestSimulator(t, config(1, 100), spec)

	// WHEN arrivals are injected at 1, 5, 5 and 11
	s.Inject(NewArrivalEvent(1, "q", false))
	s.Inject(NewArrivalEvent(5, "q", false))
	s.Inject(NewArrivalEvent(5, "q", false))
	s.Inject(NewArrivalEvent(11, "q", false))
	occ := stepAll(s, "q")

	// THEN the second arrival at 5 finds the queue full, and the arrival at 11
	// is processed before the departure at 11 because it was scheduled first
	q := s.Queues["q"]
	assert.Equal(t, []int{1, 2, 2, 2, 1, 0}, occ)
	assert.Equal(t, int64(2), q.State.Losses)
	assert.Equal(t, int64(4), q.State.Arrivals)
	assert.Equal(t, int64(2), q.State.Completions)
	assert.Equal(t, StopExhausted, s.StopReason())
	assert.Equal(t, 21.0, s.Clock)
}

func TestSimulator_NoSources_StopsExhausted(t *testing.T) {
	spec := QueueSpec{ID: "q", Servers: 1, Capacity: Unbounded, Service: Interval{Min: 2, Max: 2}}
	s := newTestSimulator(t, config(1, 10), spec)

	r := s.Run()

	assert.Equal(t, StopExhausted, r.StopReason)
	assert.Equal(t, 0.0, r.ElapsedTime)
	assert.Equal(t, int64(0), r.EventsProcessed)
	assert.Equal(t, 0.0, r.Queue("q").PercentSum())
}

func TestSimulator_InjectedClientThenExhausted(t *testing.T) {
	spec := QueueSpec{ID: "q", Servers: 1, Capacity: Unbounded, Service: Interval{Min: 2, Max: 2}}
	s := newTestSimulator(t, config(1, 10), spec)
	s.Inject(NewArrivalEvent(1, "q", false))

	r := s.Run()

	assert.Equal(t, StopExhausted, r.StopReason)
	assert.Equal(t, int64(2), r.EventsProcessed)
	assert.Equal(t, 3.0, r.ElapsedTime)
	assert.Equal(t, []float64{1, 2}, s.Queues["q"].State.Stats.Dwell)
}

func TestSimulator_RandomBudgetStopsRun(t *testing.T) {
	// GIVEN a budget of 4 draws; seeding takes one draw and each external
	// arrival takes an inter-arrival draw and a service draw
	cfg := config(1, 100)
	cfg.RandomBudget = 4
	s := newTestSimulator(t, cfg, deterministicQueue(3, 1))

	r := s.Run()

	// THEN the run stops after the event that crossed the budget
	assert.Equal(t, StopRandomBudget, r.StopReason)
	assert.Equal(t, int64(3), r.EventsProcessed)
	assert.Equal(t, int64(5), r.RandomDraws)
}

func TestSimulator_StepAfterStopIsNoop(t *testing.T) {
	s := newTestSimulator(t, config(1, 2), deterministicQueue(3, 1))
	s.Run()
	clock := s.Clock
	assert.False(t, s.Step())
	assert.Equal(t, clock, s.Clock)
	assert.Equal(t, int64(2), s.EventsProcessed)
}

func TestSimulator_FinalizeIsIdempotent(t *testing.T) {
	s := newTestSimulator(t, config(1, 5), deterministicQueue(3, 1))
	for s.Step() {
	}
	s.Finalize()
	before := append([]float64(nil), s.Queues["q"].State.Stats.Dwell...)
	s.Finalize()
	assert.Equal(t, before, s.Queues["q"].State.Stats.Dwell)
}

func TestSimulator_RoutedArrivalsDoNotExtendSourceStream(t *testing.T) {
	// GIVEN a source that feeds back to itself half of the time
	q := deterministicQueue(5, 1)
	q.Routing = []Route{{To: "q", Probability: 0.5}}
	s := newTestSimulator(t, config(7, 2000), q)

	s.Run()

	// THEN pending exogenous arrivals never exceed one
	external := 0
	for _, e := range s.Events.events {
		if e.External() {
			external++
		}
	}
	assert.Equal(t, 1, external)
}

func TestSimulator_TandemNetwork(t *testing.T) {
	// GIVEN the three-queue tandem network
	s := newTestSimulator(t, config(42, 100000), tandemSpecs()...)

	// WHEN run to its event budget
	r := s.Run()

	// THEN
	require.Len(t, r.Queues, 3)
	assert.Equal(t, StopEventBudget, r.StopReason)
	assert.Equal(t, int64(100000), r.EventsProcessed)
	for _, q := range r.Queues {
		testutil.AssertFloat64Equal(t, q.ID+" total time", r.ElapsedTime, q.TotalTime, 1e-9)
		testutil.AssertFloat64Near(t, q.ID+" percent sum", 100, q.PercentSum(), 1e-6)
		assert.GreaterOrEqual(t, q.Utilization, 0.0)
		assert.LessOrEqual(t, q.Utilization, 1.0)
	}
	f1, f2, f3 := r.Queue("fila1"), r.Queue("fila2"), r.Queue("fila3")
	assert.Equal(t, int64(0), f1.Losses, "unbounded queue never loses")
	assert.Len(t, f2.States, 6)
	assert.Len(t, f3.States, 11)
	// routed arrivals happen at the departure instant, so at most one is
	// still pending when the budget runs out
	assert.InDelta(t, f1.Completions, f2.Arrivals, 1)
	assert.InDelta(t, f2.Completions, f3.Arrivals, 1)
	assert.LessOrEqual(t, f2.Losses, f2.Arrivals)

	// draws = seeding draw + inter-arrival draws + service starts + routing decisions
	var serviceStarts int64
	for _, id := range s.Network.Order {
		st := s.Queues[id].State
		serviceStarts += st.Arrivals - st.Losses - int64(st.Occupancy-st.Busy)
	}
	assert.Equal(t, 1+f1.Arrivals+serviceStarts+f1.Completions+f2.Completions, r.RandomDraws)
}

func TestSimulator_SameSeedSameReport(t *testing.T) {
	run := func(seed int64) []byte {
		s := newTestSimulator(t, config(seed, 20000), tandemSpecs()...)
		data, err := json.Marshal(s.Run())
		require.NoError(t, err)
		return data
	}
	assert.Equal(t, string(run(3)), string(run(3)))
	assert.NotEqual(t, string(run(3)), string(run(4)))
}

func TestSimulator_LCGSourceIsDeterministic(t *testing.T) {
	cfg := config(1, 5000)
	cfg.Source = SourceLCG
	a := newTestSimulator(t, cfg, tandemSpecs()...).Run()
	b := newTestSimulator(t, cfg, tandemSpecs()...).Run()
	assert.Equal(t, a, b)
	assert.Equal(t, SourceLCG, a.Source)
}

func TestSimulator_LossSystemLosesUnderOverload(t *testing.T) {
	// GIVEN a G/G/1/1 queue whose service outlasts every inter-arrival time
	q := deterministicQueue(1, 3)
	q.Capacity = 1
	s := newTestSimulator(t, config(1, 1000), q)

	r := s.Run()

	qr := r.Queue("q")
	assert.Greater(t, qr.Losses, int64(0))
	assert.Len(t, qr.States, 2)
	assert.InDelta(t, float64(qr.Losses)/float64(qr.Arrivals), qr.LossProbability, 1e-12)
}

func TestSimulator_TraceRecordsRoutingAndLosses(t *testing.T) {
	// GIVEN a tandem network with a small middle queue and tracing on
	specs := tandemSpecs()
	specs[1].Capacity = 2
	cfg := config(5, 20000)
	cfg.Trace = trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevelDecisions})
	s := newTestSimulator(t, cfg, specs...)

	r := s.Run()

	// THEN every departure from a queue with a table is traced
	f1, f2 := r.Queue("fila1"), r.Queue("fila2")
	assert.Len(t, cfg.Trace.Routings, int(f1.Completions+f2.Completions))
	var losses int64
	for _, q := range r.Queues {
		losses += q.Losses
	}
	assert.Len(t, cfg.Trace.Losses, int(losses))
	for _, l := range cfg.Trace.Losses {
		assert.Contains(t, []string{"fila2", "fila3"}, l.Queue)
		assert.False(t, l.External)
		assert.Equal(t, s.Network.Queues[l.Queue].Capacity, l.Occupancy)
	}
	for _, rr := range cfg.Trace.Routings {
		assert.False(t, rr.Exited)
		assert.GreaterOrEqual(t, rr.Draw, 0.0)
		assert.Less(t, rr.Draw, 1.0)
	}
}

func TestSimulator_PartialRoutingExits(t *testing.T) {
	// GIVEN a source that forwards 30% of its clients and lets the rest leave
	specs := []QueueSpec{deterministicQueue(2, 1), {ID: "sink", Servers: 1, Capacity: Unbounded, Service: Interval{Min: 0.5, Max: 0.5}}}
	specs[0].Routing = []Route{{To: "sink", Probability: 0.3}}
	cfg := config(11, 60000)
	cfg.Trace = trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevelDecisions})
	s := newTestSimulator(t, cfg, specs...)

	s.Run()

	summary := trace.Summarize(cfg.Trace)
	assert.InDelta(t, 0.3, summary.RouteFraction("q", "sink"), 0.02)
	assert.InDelta(t, 0.7, float64(summary.Exits)/float64(summary.TotalRoutings), 0.02)
}

func TestNewSimulator_RejectsInvalidConfig(t *testing.T) {
	net := mustNetwork(t, deterministicQueue(1, 1))
	cfg := config(1, 0)
	_, err := NewSimulator(net, cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSimulator_LossesOnlyGrowAtCapacity(t *testing.T) {
	// GIVEN the tandem network with a tight middle queue
	specs := tandemSpecs()
	specs[1].Capacity = 2
	s := newTestSimulator(t, config(8, 30000), specs...)
	s.seedSources()

	// WHEN stepping one event at a time
	for {
		ev, ok := s.Events.Peek()
		if !ok {
			break
		}
		q := s.Queues[ev.Queue()]
		before, full := q.State.Losses, q.Spec.Bounded() && q.State.Occupancy == q.Spec.Capacity
		if !s.Step() {
			break
		}

		// THEN a loss is counted only for an arrival that found the queue full
		switch {
		case q.State.Losses < before:
			t.Fatalf("losses at %s decreased from %d to %d", q.Spec.ID, before, q.State.Losses)
		case q.State.Losses > before:
			require.Equal(t, Arrival, ev.Kind())
			require.True(t, full, "loss at %s with n=%d < c", q.Spec.ID, q.State.Occupancy)
			require.Equal(t, before+1, q.State.Losses)
		}
	}
	assert.Greater(t, s.Queues["fila2"].State.Losses, int64(0))
}

func TestSimulator_FirstArrivalIsOffsetPlusDraw(t *testing.T) {
	// GIVEN a source with arrivals in [2,4] and the default offset of 2
	q := deterministicQueue(3, 1)
	q.Arrival = &Interval{Min: 2, Max: 4}
	cfg := config(1, 10)
	cfg.Source = SourceLCG
	s := newTestSimulator(t, cfg, q)

	// WHEN the sources are seeded
	s.seedSources()

	// THEN the first arrival is one inter-arrival draw after the offset
	first, ok := s.Events.Peek()
	require.True(t, ok)
	u := NewLCG(1).Float64()
	assert.Equal(t, DefaultFirstArrival+(2+2*u), first.Timestamp())
	assert.GreaterOrEqual(t, first.Timestamp(), 4.0)
	assert.Less(t, first.Timestamp(), 6.0)
	assert.Equal(t, int64(1), s.Sampler.Draws())
}

func TestSimulator_ExternalArrivalDrawsNextArrivalBeforeService(t *testing.T) {
	// GIVEN an LCG-driven source with distinct arrival and service ranges
	q := deterministicQueue(3, 1)
	q.Arrival = &Interval{Min: 2, Max: 4}
	q.Service = Interval{Min: 1, Max: 2}
	cfg := config(1, 10)
	cfg.Source = SourceLCG
	s := newTestSimulator(t, cfg, q)
	ref := NewLCG(1)
	u1, u2, u3 := ref.Float64(), ref.Float64(), ref.Float64()

	// WHEN the first arrival is processed
	require.True(t, s.Step())

	// THEN the second draw fixed the next arrival and the third the service
	t1 := 2 + (2 + 2*u1)
	require.Equal(t, t1, s.Clock)
	var nextArrival, departure float64
	for _, e := range s.Events.events {
		if e.Kind() == Arrival {
			nextArrival = e.Timestamp()
		} else {
			departure = e.Timestamp()
		}
	}
	assert.Equal(t, t1+(2+2*u2), nextArrival)
	assert.Equal(t, t1+(1+u3), departure)
}

func TestSimulator_RecordBackwardsClockNamesQueue(t *testing.T) {
	s := newTestSimulator(t, config(1, 10), deterministicQueue(3, 1))
	q := s.Queues["q"]
	q.State.LastTransition = 5
	s.Clock = 4

	defer func() {
		r := recover()
		require.NotNil(t, r, "expected record to panic")
		v, ok := r.(*InvariantViolation)
		require.True(t, ok, "panic value should be *InvariantViolation, got %T", r)
		assert.Equal(t, "q", v.Queue)
	}()
	s.record(q)
}
