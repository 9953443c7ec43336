package sim

// StateShare is the time a queue spent with State clients present.
type StateShare struct {
	State   int     `json:"state" yaml:"state"`
	Time    float64 `json:"time" yaml:"time"`
	Percent float64 `json:"percent" yaml:"percent"`
}

// QueueReport is the final view of one queue.
type QueueReport struct {
	ID        string `json:"id" yaml:"id"`
	Tag       string `json:"type" yaml:"type"`
	Servers   int    `json:"servers" yaml:"servers"`
	Capacity  int    `json:"capacity" yaml:"capacity"` // Unbounded (-1) when unlimited
	Unbounded bool   `json:"unbounded" yaml:"unbounded"`

	Losses      int64 `json:"losses" yaml:"losses"`
	Arrivals    int64 `json:"arrivals" yaml:"arrivals"`
	Completions int64 `json:"completions" yaml:"completions"`

	States    []StateShare `json:"states" yaml:"states"`
	TotalTime float64      `json:"total_time" yaml:"total_time"`

	MeanOccupancy   float64 `json:"mean_occupancy" yaml:"mean_occupancy"`     // L
	Utilization     float64 `json:"utilization" yaml:"utilization"`           // mean busy servers / servers
	Throughput      float64 `json:"throughput" yaml:"throughput"`             // completions per time unit
	ResponseTime    float64 `json:"response_time" yaml:"response_time"`       // W = L / throughput
	LossProbability float64 `json:"loss_probability" yaml:"loss_probability"` // losses / arrivals
}

// Report is the outcome of a simulation run. Queues follow network order.
type Report struct {
	Seed            int64         `json:"seed" yaml:"seed"`
	Source          SourceKind    `json:"source" yaml:"source"`
	ElapsedTime     float64       `json:"elapsed_time" yaml:"elapsed_time"`
	EventsProcessed int64         `json:"events_processed" yaml:"events_processed"`
	RandomDraws     int64         `json:"random_draws" yaml:"random_draws"`
	StopReason      StopReason    `json:"stop_reason" yaml:"stop_reason"`
	Queues          []QueueReport `json:"queues" yaml:"queues"`
}

// Report builds the report from the current state. Call after Finalize
// (Run does) so that the last partial interval is included.
func (sim *Simulator) Report() *Report {
	r := &Report{
		Seed:            sim.Config.Seed,
		Source:          sim.Config.Source,
		ElapsedTime:     sim.Clock,
		EventsProcessed: sim.EventsProcessed,
		RandomDraws:     sim.Sampler.Draws(),
		StopReason:      sim.stop,
		Queues:          make([]QueueReport, 0, len(sim.Network.Order)),
	}
	if r.Source == "" {
		r.Source = SourcePCG
	}
	for _, id := range sim.Network.Order {
		r.Queues = append(r.Queues, buildQueueReport(sim.Queues[id]))
	}
	return r
}

func buildQueueReport(q *Queue) QueueReport {
	st := q.State
	total := st.Stats.Total()
	qr := QueueReport{
		ID:            q.Spec.ID,
		Tag:           q.Spec.DisplayTag(),
		Servers:       q.Spec.Servers,
		Capacity:      q.Spec.Capacity,
		Unbounded:     !q.Spec.Bounded(),
		Losses:        st.Losses,
		Arrivals:      st.Arrivals,
		Completions:   st.Completions,
		States:        st.Stats.Shares(total),
		TotalTime:     total,
		MeanOccupancy: st.Stats.MeanOccupancy(),
	}
	if total > 0 {
		qr.Utilization = st.Stats.BusyTime / (total * float64(q.Spec.Servers))
		qr.Throughput = float64(st.Completions) / total
	}
	if qr.Throughput > 0 {
		qr.ResponseTime = qr.MeanOccupancy / qr.Throughput
	}
	if st.Arrivals > 0 {
		qr.LossProbability = float64(st.Losses) / float64(st.Arrivals)
	}
	return qr
}

// Queue returns the report for id, or nil.
func (r *Report) Queue(id string) *QueueReport {
	for i := range r.Queues {
		if r.Queues[i].ID == id {
			return &r.Queues[i]
		}
	}
	return nil
}

// PercentSum returns the sum of a queue's state percentages (≈100 when time elapsed).
func (qr *QueueReport) PercentSum() float64 {
	sum := 0.0
	for _, s := range qr.States {
		sum += s.Percent
	}
	return sum
}
