package cmd

import (
	"github.com/spf13/cobra"

	"github.com/stream-select/dmgt-sim/sim/experiment"
	"github.com/stream-select/dmgt-sim/sim/workload"
)

// buildConfig layers the experiment configuration: built-in defaults, then
// the --config file, then the --workload file, then every flag the user set
// explicitly (cmd.Flags().Changed), so a flag default never overwrites a
// value from a file.
func buildConfig(cmd *cobra.Command) (experiment.Config, error) {
	cfg := experiment.DefaultConfig()
	if configPath != "" {
		loaded, err := experiment.LoadConfig(configPath, cfg)
		if err != nil {
			return cfg, err
		}
		cfg = *loaded
	}
	if workloadPath != "" {
		spec, err := workload.LoadSpec(workloadPath)
		if err != nil {
			return cfg, err
		}
		cfg.Workload = *spec
	}

	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("trials") {
		cfg.Trials = trials
	}
	if flags.Changed("num-agents") {
		cfg.NumAgents = numAgents
	}
	if flags.Changed("rounds") {
		cfg.NumRounds = numRounds
	}
	if flags.Changed("budget") {
		cfg.Budget = budget
	}
	if flags.Changed("stream-size") {
		cfg.StreamSize = streamSize
	}
	if flags.Changed("lineages") {
		cfg.Lineages = lineages
	}
	if flags.Changed("epsilon") {
		cfg.Epsilon = epsilon
	}
	if flags.Changed("guess-floor") {
		cfg.GuessFloor = guessFloor
	}
	if flags.Changed("uniform-thresholds") {
		cfg.UniformThresholds = uniformThresholds
	}
	if flags.Changed("increasing-thresholds") {
		cfg.IncreasingThresholds = increasingThresholds
	}
	if flags.Changed("coverage") {
		cfg.Coverage = coverage
	}
	if flags.Changed("num-classes") {
		cfg.NumClasses = numClasses
	}
	if flags.Changed("rare-classes") {
		cfg.RareClasses = rareClasses
	}
	if flags.Changed("calibrate") {
		cfg.Calibrate = calibrate
	}
	if flags.Changed("reliability") {
		cfg.Reliability = reliability
	}
	if flags.Changed("temperature") {
		cfg.Temperature = temperature
	}
	if flags.Changed("trace-level") {
		cfg.TraceLevel = traceLevel
	}
	return cfg, cfg.Validate()
}
