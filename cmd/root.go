package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/stream-select/dmgt-sim/sim"
	"github.com/stream-select/dmgt-sim/sim/experiment"
	"github.com/stream-select/dmgt-sim/sim/metrics"
)

var (
	// CLI flags for the experiment
	configPath           string    // YAML experiment file
	workloadPath         string    // YAML workload file, overrides the config's workload block
	seed                 int64     // Seed for data generation, stream shuffles and the RAND baseline
	trials               int       // Number of independent trials
	numAgents            int       // Agents contributing stream shards
	numRounds            int       // Selection rounds per trial
	budget               int       // Items accepted per tier per round
	streamSize           int       // Items each agent draws per round
	epsilon              float64   // SIEVE guess spacing
	guessFloor           float64   // SIEVE guess domain floor m
	numClasses           int       // Number of classes
	rareClasses          []int     // Rare class indices; empty means classes below numClasses/2
	coverage             string    // Coverage objective: predicted or expected
	calibrate            bool      // Fit isotonic calibration per rarity group each round
	reliability          bool      // Record binned reliability curves
	temperature          float64   // Classifier softmax temperature
	uniformThresholds    []float64 // Per-round thresholds for the uniform DMGT lineage
	increasingThresholds []float64 // Per-round thresholds for the increasing DMGT lineage
	lineages             []string  // Lineages to run; empty means all
	traceLevel           string    // Decision trace verbosity
	logLevel             string    // Log verbosity level
	metricsAddr          string    // Address serving Prometheus metrics; empty disables
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "dmgt-sim",
	Short: "Simulator for distributed budgeted class-balanced stream selection",
}

// runCmd executes the experiment using parameters from the config file and CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a selection experiment",
	Run: func(cmd *cobra.Command, args []string) {
		// Set up logging
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		cfg, err := buildConfig(cmd)
		if err != nil {
			logrus.Fatalf("Invalid configuration: %v", err)
		}

		if metricsAddr != "" {
			serveMetrics(metricsAddr)
		}

		logrus.Infof("Starting experiment: %d agents, %d rounds, budget=%d, stream=%d, lineages=%v",
			cfg.NumAgents, cfg.NumRounds, cfg.Budget, cfg.StreamSize, cfg.ActiveLineages())
		startTime := time.Now()

		o, err := experiment.New(cfg)
		if err != nil {
			if sim.IsConfigurationError(err) {
				logrus.Fatalf("Configuration error: %v", err)
			}
			logrus.Fatalf("Experiment setup failed: %v", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		res, err := o.Run(ctx)
		if err != nil {
			logrus.Fatalf("Experiment aborted: %v", err)
		}

		if err := printResults(os.Stdout, res); err != nil {
			logrus.Fatalf("Writing results: %v", err)
		}
		logrus.Infof("Experiment complete in %s.", time.Since(startTime).Round(time.Millisecond))
	},
}

// serveMetrics exposes the selection collectors on addr in the background.
func serveMetrics(addr string) {
	reg := prometheus.NewRegistry()
	if err := metrics.Register(reg); err != nil {
		logrus.Fatalf("Registering metrics: %v", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Errorf("Metrics server stopped: %v", err)
		}
	}()
	logrus.Infof("Serving metrics on %s/metrics", addr)
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// registerRunFlags binds the experiment flags of c to the package-level flag
// variables, resetting each variable to its default.
func registerRunFlags(c *cobra.Command) {
	def := experiment.DefaultConfig()

	c.Flags().StringVar(&configPath, "config", "", "YAML experiment config; explicitly set flags override it")
	c.Flags().StringVar(&workloadPath, "workload", "", "YAML workload spec; overrides the config's workload block")
	c.Flags().Int64Var(&seed, "seed", def.Seed, "Seed for data generation, stream shuffles and the random baseline")
	c.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	c.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	c.Flags().StringVar(&traceLevel, "trace-level", def.TraceLevel, "Decision trace level (none, decisions)")

	// Experiment shape
	c.Flags().IntVar(&trials, "trials", def.Trials, "Number of independent trials")
	c.Flags().IntVar(&numAgents, "num-agents", def.NumAgents, "Number of agents")
	c.Flags().IntVar(&numRounds, "rounds", def.NumRounds, "Selection rounds per trial")
	c.Flags().IntVar(&budget, "budget", def.Budget, "Maximum items accepted per selection pass")
	c.Flags().IntVar(&streamSize, "stream-size", def.StreamSize, "Items each agent draws per round")
	c.Flags().StringSliceVar(&lineages, "lineages", nil, "Comma-separated lineages (dmgt-uniform, dmgt-increasing, rand, sieve); default all")

	// Selection parameters
	c.Flags().Float64Var(&epsilon, "epsilon", def.Epsilon, "SIEVE guess spacing")
	c.Flags().Float64Var(&guessFloor, "guess-floor", def.GuessFloor, "SIEVE guess domain floor m")
	c.Flags().Float64SliceVar(&uniformThresholds, "uniform-thresholds", def.UniformThresholds, "Comma-separated per-round thresholds for dmgt-uniform")
	c.Flags().Float64SliceVar(&increasingThresholds, "increasing-thresholds", def.IncreasingThresholds, "Comma-separated per-round thresholds for dmgt-increasing")
	c.Flags().StringVar(&coverage, "coverage", def.Coverage, "Coverage objective (predicted, expected)")

	// Classes and model
	c.Flags().IntVar(&numClasses, "num-classes", def.NumClasses, "Number of classes")
	c.Flags().IntSliceVar(&rareClasses, "rare-classes", nil, "Comma-separated rare class indices; default classes below num-classes/2")
	c.Flags().BoolVar(&calibrate, "calibrate", def.Calibrate, "Fit isotonic calibration per rarity group each round")
	c.Flags().BoolVar(&reliability, "reliability", def.Reliability, "Record binned reliability curves")
	c.Flags().Float64Var(&temperature, "temperature", def.Temperature, "Classifier softmax temperature")
}

// init sets up CLI flags and subcommands
func init() {
	registerRunFlags(runCmd)

	// Attach `run` and `domain` as subcommands to `root`
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(domainCmd)
}
