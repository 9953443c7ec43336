package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"

	"github.com/inference-sim/qnetsim/sim"
	"github.com/inference-sim/qnetsim/sim/trace"
)

var validFormats = map[string]bool{
	"text": true,
	"json": true,
	"yaml": true,
}

// tracedReport is the machine-readable output when a trace was collected.
type tracedReport struct {
	sim.Report `yaml:",inline"`
	Trace      *traceOutput `json:"trace,omitempty" yaml:"trace,omitempty"`
}

type traceOutput struct {
	Summary  *trace.TraceSummary   `json:"summary" yaml:"summary"`
	Routings []trace.RoutingRecord `json:"routings" yaml:"routings"`
	Losses   []trace.LossRecord    `json:"losses" yaml:"losses"`
}

// writeReport renders the report in the requested format.
func writeReport(w io.Writer, r *sim.Report, st *trace.SimulationTrace, format string, plain bool) error {
	out := tracedReport{Report: *r}
	if st != nil {
		out.Trace = &traceOutput{Summary: trace.Summarize(st), Routings: st.Routings, Losses: st.Losses}
	}
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return err
		}
		return enc.Close()
	default:
		writeText(w, r, out.Trace, plain)
		return nil
	}
}

// writeText prints the per-queue results in the classic console layout.
func writeText(w io.Writer, r *sim.Report, tr *traceOutput, plain bool) {
	header := color.New(color.FgCyan, color.Bold)
	warn := color.New(color.FgYellow)
	if plain {
		header.DisableColor()
		warn.DisableColor()
	}

	header.Fprintln(w, "Simulation Results:")
	fmt.Fprintln(w, strings.Repeat("=", 50))
	for _, q := range r.Queues {
		fmt.Fprintln(w)
		header.Fprintf(w, "Queue: %s (%s)\n", q.ID, q.Tag)
		lossLine := fmt.Sprintf("Lost clients: %d\n", q.Losses)
		if q.Losses > 0 {
			warn.Fprint(w, lossLine)
		} else {
			fmt.Fprint(w, lossLine)
		}
		fmt.Fprintln(w, "State distribution:")
		for _, s := range q.States {
			fmt.Fprintf(w, "  State %3d: %10.4f  %6.2f%%\n", s.State, s.Time, s.Percent)
		}
		fmt.Fprintf(w, "Arrivals: %d  Completions: %d  Loss probability: %.4f\n", q.Arrivals, q.Completions, q.LossProbability)
		fmt.Fprintf(w, "Mean occupancy: %.4f  Utilization: %.4f  Throughput: %.4f  Response time: %.4f\n",
			q.MeanOccupancy, q.Utilization, q.Throughput, q.ResponseTime)
	}
	fmt.Fprintln(w)
	if tr != nil {
		writeTraceSummary(w, tr.Summary, header)
	}
	fmt.Fprintf(w, "Events processed: %d (%s), random draws: %d, seed: %d (%s)\n",
		r.EventsProcessed, r.StopReason, r.RandomDraws, r.Seed, r.Source)
	header.Fprintf(w, "Total simulation time: %.2f\n", r.ElapsedTime)
}

func writeTraceSummary(w io.Writer, s *trace.TraceSummary, header *color.Color) {
	header.Fprintln(w, "Routing trace:")
	fmt.Fprintf(w, "  decisions: %d  exits: %d  losses: %d\n", s.TotalRoutings, s.Exits, s.TotalLosses)
	for _, from := range sortedKeys(s.DecisionsByQueue) {
		for _, to := range sortedKeys(s.RouteDistribution[from]) {
			fmt.Fprintf(w, "  %s -> %s: %d (%.2f%%)\n", from, to, s.RouteDistribution[from][to], s.RouteFraction(from, to)*100)
		}
	}
	fmt.Fprintln(w)
}

// writeTopology prints the result of Network.Analyze for the validate command.
func writeTopology(w io.Writer, net *sim.Network, t sim.Topology) {
	fmt.Fprintf(w, "Network OK: %d queues\n", len(net.Order))
	for _, id := range net.Order {
		q := net.Queues[id]
		role := "internal"
		if q.IsSource() {
			role = fmt.Sprintf("source, first arrival %.2f + [%g, %g]", q.FirstArrival, q.Arrival.Min, q.Arrival.Max)
		}
		fmt.Fprintf(w, "  %s (%s): %s\n", id, q.DisplayTag(), role)
		for _, r := range q.Routing {
			fmt.Fprintf(w, "    -> %s %.4f\n", r.To, r.Probability)
		}
	}
	fmt.Fprintf(w, "Sources: %s\n", strings.Join(t.Sources, ", "))
	if len(t.Unreachable) > 0 {
		fmt.Fprintf(w, "Unreachable: %s\n", strings.Join(t.Unreachable, ", "))
	}
	fmt.Fprintf(w, "Cyclic: %t\n", t.Cyclic)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
