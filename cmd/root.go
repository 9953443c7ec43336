package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inference-sim/qnetsim/sim"
	"github.com/inference-sim/qnetsim/sim/topology"
	"github.com/inference-sim/qnetsim/sim/trace"
)

// version is overridden at build time with -ldflags "-X".
var version = "dev"

var (
	// CLI flags for the run command
	networkPath   string  // Path to the YAML network definition
	seed          int64   // Seed for the random source
	eventBudget   int64   // Number of events to process
	sourceKind    string  // Random source: pcg or lcg
	randomBudget  int64   // Stop after this many random draws (0 = unlimited)
	firstArrival  float64 // Offset of the first exogenous arrival
	progressEvery int64   // Progress log interval in events
	outputFormat  string  // Report format: text, json or yaml
	traceLevel    string  // Decision trace level
	noColor       bool    // Disable coloured text output
	logLevel      string  // Log verbosity level
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "qnetsim",
	Short: "Discrete-event simulator for networks of G/G/s/c queues",
}

// runCmd executes the simulation using parameters from flags, environment and the network file
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the queueing network simulation",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()

		if networkPath == "" {
			logrus.Fatalf("Network file not provided (--network). Exiting simulation.")
		}
		spec, err := topology.LoadNetworkSpec(networkPath)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		v, err := newRunViper(cmd, spec.Simulation)
		if err != nil {
			logrus.Fatalf("unable to resolve run options: %v", err)
		}
		opts, err := resolveRunOptions(v)
		if err != nil {
			logrus.Fatalf("%v", err)
		}

		startTime := time.Now()
		report, st, err := runSimulation(spec, opts)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		logrus.Infof("Simulation wall time: %s", time.Since(startTime))

		if err := writeReport(os.Stdout, report, st, opts.Format, opts.NoColor); err != nil {
			logrus.Fatalf("writing report: %v", err)
		}
		logrus.Info("Simulation complete.")
	},
}

// validateCmd loads and checks a network without simulating it
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a network definition and report its topology",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()
		if networkPath == "" {
			logrus.Fatalf("Network file not provided (--network).")
		}
		spec, err := topology.LoadNetworkSpec(networkPath)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if err := validateNetwork(cmd, spec, os.Stdout); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

// validateNetwork builds spec with the same first-arrival layering as run
// and prints its topology.
func validateNetwork(cmd *cobra.Command, spec *topology.NetworkSpec, w io.Writer) error {
	v, err := newRunViper(cmd, spec.Simulation)
	if err != nil {
		return fmt.Errorf("unable to resolve run options: %w", err)
	}
	net, err := spec.Build(v.GetFloat64("first-arrival"))
	if err != nil {
		return err
	}
	writeTopology(w, net, net.Analyze())
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version)
	},
}

// runOptions is the fully resolved configuration of one run.
type runOptions struct {
	Sim          sim.SimConfig
	FirstArrival float64
	Format       string
	TraceLevel   trace.TraceLevel
	NoColor      bool
}

// runSimulation builds the network and runs it to completion.
func runSimulation(spec *topology.NetworkSpec, opts runOptions) (*sim.Report, *trace.SimulationTrace, error) {
	net, err := spec.Build(opts.FirstArrival)
	if err != nil {
		return nil, nil, err
	}
	topo := net.Analyze()
	if len(topo.Sources) == 0 {
		logrus.Warnf("Network has no source queues; nothing will arrive")
	}
	for _, id := range topo.Unreachable {
		logrus.Warnf("Queue %q is unreachable from every source", id)
	}
	if topo.Cyclic {
		logrus.Infof("Network routing contains cycles")
	}

	cfg := opts.Sim
	var st *trace.SimulationTrace
	if opts.TraceLevel == trace.TraceLevelDecisions {
		st = trace.NewSimulationTrace(trace.TraceConfig{Level: opts.TraceLevel})
		cfg.Trace = st
	}
	s, err := sim.NewSimulator(net, cfg)
	if err != nil {
		return nil, nil, err
	}
	return s.Run(), st, nil
}

func setupLogging() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

// newRunViper layers run options: flag > QNETSIM_* env > `simulation:` block > flag default.
func newRunViper(cmd *cobra.Command, run *topology.RunSpec) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("QNETSIM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}
	if run != nil {
		if err := v.MergeConfigMap(runSpecMap(run)); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// runSpecMap flattens the set fields of a RunSpec to flag-named keys.
func runSpecMap(run *topology.RunSpec) map[string]any {
	m := make(map[string]any)
	if run.Seed != nil {
		m["seed"] = *run.Seed
	}
	if run.Events != nil {
		m["events"] = *run.Events
	}
	if run.FirstArrival != nil {
		m["first-arrival"] = *run.FirstArrival
	}
	if run.Source != "" {
		m["source"] = run.Source
	}
	if run.RandomBudget != nil {
		m["random-budget"] = *run.RandomBudget
	}
	return m
}

// resolveRunOptions reads the layered values and validates them.
func resolveRunOptions(v *viper.Viper) (runOptions, error) {
	opts := runOptions{
		Sim: sim.SimConfig{
			Seed:          v.GetInt64("seed"),
			EventBudget:   v.GetInt64("events"),
			Source:        sim.SourceKind(v.GetString("source")),
			RandomBudget:  v.GetInt64("random-budget"),
			ProgressEvery: v.GetInt64("progress-every"),
		},
		FirstArrival: v.GetFloat64("first-arrival"),
		Format:       v.GetString("format"),
		TraceLevel:   trace.TraceLevel(v.GetString("trace")),
		NoColor:      v.GetBool("no-color"),
	}
	if err := opts.Sim.Validate(); err != nil {
		return runOptions{}, err
	}
	if !validFormats[opts.Format] {
		return runOptions{}, fmt.Errorf("unknown format %q; valid: text, json, yaml", opts.Format)
	}
	if !trace.IsValidTraceLevel(string(opts.TraceLevel)) {
		return runOptions{}, fmt.Errorf("unknown trace level %q; valid: none, decisions", opts.TraceLevel)
	}
	return opts, nil
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// registerRunFlags defines the run flags on c. Their names are also the
// viper keys read by resolveRunOptions.
func registerRunFlags(c *cobra.Command) {
	c.Flags().Int64Var(&seed, "seed", 1, "Seed for the random source")
	c.Flags().Int64Var(&eventBudget, "events", sim.DefaultEventBudget, "Number of events to process")
	c.Flags().StringVar(&sourceKind, "source", string(sim.SourcePCG), "Random source (pcg, lcg)")
	c.Flags().Int64Var(&randomBudget, "random-budget", 0, "Stop after this many random draws (0 = unlimited)")
	registerFirstArrivalFlag(c)
	c.Flags().Int64Var(&progressEvery, "progress-every", sim.DefaultProgressEvery, "Log progress every N events (0 = never)")
	c.Flags().StringVar(&outputFormat, "format", "text", "Report format (text, json, yaml)")
	c.Flags().StringVar(&traceLevel, "trace", string(trace.TraceLevelNone), "Decision trace level (none, decisions)")
	c.Flags().BoolVar(&noColor, "no-color", false, "Disable coloured text output")
}

func registerFirstArrivalFlag(c *cobra.Command) {
	c.Flags().Float64Var(&firstArrival, "first-arrival", sim.DefaultFirstArrival, "Offset added to each source's first inter-arrival draw")
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&networkPath, "network", "", "Path to the YAML network definition")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")

	registerRunFlags(runCmd)
	registerFirstArrivalFlag(validateCmd)

	// Attach subcommands to `root`
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(versionCmd)
}
