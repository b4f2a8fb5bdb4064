package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/inference-sim/queue-sim/sim"
)

var (
	// CLI flags shared by every command; they override the config file only when set
	configPath       string  // YAML config file
	seed             int64   // Master seed
	bufferSize       int     // Queue capacity S
	rho              float64 // Offered load
	interArrivalTime float64 // Mean inter-arrival time (ms)
	simTime          float64 // Horizon of time-limited runs (ms)
	runs             int     // Replications
	alpha            float64 // Significance level
	traceLevel       string  // Trace verbosity
	resultsPath      string  // File to write JSON results to
	logLevel         string  // Log verbosity level

	packets int // Completed packets per count-limited run
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "queue-sim",
	Short: "Discrete-event simulator for a single-server queue with a finite buffer",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	},
}

// runCmd executes replications of a single configuration
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the queue simulation",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := resolveConfig(cmd.Flags())
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		replications := 1
		if cmd.Flags().Changed("runs") {
			replications = cfg.Runs
		}

		logrus.Infof("Starting simulation: S=%d, rho=%g, iat=%gms, horizon=%gms, seed=%d",
			cfg.BufferSize, cfg.Rho, cfg.InterArrivalTime, cfg.SimTime, cfg.Seed)
		out, err := runSimulation(cfg, packets, replications)
		if err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}
		printRun(cmd.OutOrStdout(), out)
		if resultsPath != "" {
			if err := writeResults(resultsPath, out); err != nil {
				logrus.Fatalf("Failed to write results: %v", err)
			}
		}
		logrus.Info("Simulation complete.")
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// registerConfigFlags declares the flags that map onto sim.Config.
func registerConfigFlags(fs *pflag.FlagSet) {
	def := sim.DefaultConfig()
	fs.StringVar(&configPath, "config", "", "YAML config file (defaults apply to missing keys)")
	fs.Int64Var(&seed, "seed", def.Seed, "Master seed for all random streams")
	fs.IntVar(&bufferSize, "buffer-size", def.BufferSize, "Queue capacity S, excluding the packet in service")
	fs.Float64Var(&rho, "rho", def.Rho, "Offered load (mean service time / mean inter-arrival time)")
	fs.Float64Var(&interArrivalTime, "inter-arrival-time", def.InterArrivalTime, "Mean inter-arrival time (ms)")
	fs.Float64Var(&simTime, "sim-time", def.SimTime, "Horizon of time-limited runs (ms)")
	fs.IntVar(&runs, "runs", def.Runs, "Number of replications")
	fs.Float64Var(&alpha, "alpha", def.Alpha, "Significance level of confidence intervals and tests")
	fs.StringVar(&traceLevel, "trace-level", def.TraceLevel, "Trace verbosity (none, events)")
	fs.StringVar(&resultsPath, "results-path", "", "Write JSON results to this file")
	fs.StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
}

// resolveConfig loads the config file (or the defaults) and applies every
// flag the user set explicitly.
func resolveConfig(fs *pflag.FlagSet) (sim.Config, error) {
	cfg := sim.DefaultConfig()
	if configPath != "" {
		loaded, err := sim.LoadConfig(configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	if fs.Changed("seed") {
		cfg.Seed = seed
	}
	if fs.Changed("buffer-size") {
		cfg.BufferSize = bufferSize
	}
	if fs.Changed("rho") {
		cfg.Rho = rho
	}
	if fs.Changed("inter-arrival-time") {
		cfg.InterArrivalTime = interArrivalTime
	}
	if fs.Changed("sim-time") {
		cfg.SimTime = simTime
	}
	if fs.Changed("runs") {
		cfg.Runs = runs
	}
	if fs.Changed("alpha") {
		cfg.Alpha = alpha
	}
	if fs.Changed("trace-level") {
		cfg.TraceLevel = traceLevel
	}
	if fs.Changed("epsilon") {
		cfg.Epsilon = epsilon
	}
	if fs.Changed("max-dropped") {
		cfg.MaxDropped = maxDropped
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// init sets up CLI flags and subcommands
func init() {
	registerConfigFlags(rootCmd.PersistentFlags())
	runCmd.Flags().IntVar(&packets, "packets", 0, "Stop each run after this many completed packets instead of at the horizon")

	// Attach `run` as a subcommand to `root`
	rootCmd.AddCommand(runCmd)
}
