package experiment

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/stream-select/dmgt-sim/sim"
	"github.com/stream-select/dmgt-sim/sim/trace"
	"github.com/stream-select/dmgt-sim/sim/workload"
)

// Lineage names. Each lineage owns its model and calibration across rounds.
const (
	LineageDMGTUniform    = "dmgt-uniform"
	LineageDMGTIncreasing = "dmgt-increasing"
	LineageRandom         = "rand"
	LineageSieve          = "sieve"
)

// lineageOrder fixes result and trace order.
var lineageOrder = []string{LineageDMGTUniform, LineageDMGTIncreasing, LineageRandom, LineageSieve}

// validLineages maps lineage names to validity. Unexported to prevent mutation.
var validLineages = map[string]bool{
	LineageDMGTUniform:    true,
	LineageDMGTIncreasing: true,
	LineageRandom:         true,
	LineageSieve:          true,
}

// IsValidLineage returns true if name is a recognized lineage.
func IsValidLineage(name string) bool { return validLineages[name] }

// ValidLineageNames returns sorted valid lineage names.
func ValidLineageNames() []string {
	names := make([]string, 0, len(validLineages))
	for n := range validLineages {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Config is a complete experiment description.
// Loaded from YAML via LoadConfig; zero-valued optional fields take defaults.
type Config struct {
	Seed                 int64         `yaml:"seed"`
	Trials               int           `yaml:"trials"`
	NumAgents            int           `yaml:"num_agents"`
	NumRounds            int           `yaml:"num_rounds"`
	Budget               int           `yaml:"budget"`
	StreamSize           int           `yaml:"stream_size"` // items each agent draws per round
	Epsilon              float64       `yaml:"epsilon"`
	GuessFloor           float64       `yaml:"guess_floor"` // SIEVE domain floor m
	NumClasses           int           `yaml:"num_classes"`
	RareClasses          []int         `yaml:"rare_classes,omitempty"` // empty: classes below num_classes/2
	Coverage             string        `yaml:"coverage"`
	Calibrate            bool          `yaml:"calibrate"`
	Reliability          bool          `yaml:"reliability"`
	Temperature          float64       `yaml:"temperature"`
	UniformThresholds    []float64     `yaml:"uniform_thresholds"`
	IncreasingThresholds []float64     `yaml:"increasing_thresholds"`
	Lineages             []string      `yaml:"lineages,omitempty"` // empty: all four
	TraceLevel           string        `yaml:"trace_level"`
	Workload             workload.Spec `yaml:"workload"`
}

// DefaultConfig returns the configuration of the reference experiment:
// three agents with imbalances 2, 5 and 10, eight rounds, budget 250.
func DefaultConfig() Config {
	return Config{
		Seed:                 42,
		Trials:               1,
		NumAgents:            3,
		NumRounds:            8,
		Budget:               250,
		StreamSize:           500,
		Epsilon:              0.1,
		GuessFloor:           1,
		NumClasses:           10,
		Coverage:             string(sim.CoveragePredicted),
		Calibrate:            true,
		Temperature:          1,
		UniformThresholds:    sim.UniformSchedule(0.1, 8),
		IncreasingThresholds: []float64{0.1, 0.1, 0.13, 0.13, 0.15, 0.15, 0.17, 0.2},
		TraceLevel:           string(trace.TraceLevelNone),
		Workload:             workload.DefaultSpec(),
	}
}

// LoadConfig decodes a YAML experiment file over base.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadConfig(path string, base Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading experiment config: %w", err)
	}
	cfg := base
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing experiment config: %w", err)
	}
	return &cfg, nil
}

// ActiveLineages returns the configured lineages in canonical order.
func (c *Config) ActiveLineages() []string {
	if len(c.Lineages) == 0 {
		return append([]string(nil), lineageOrder...)
	}
	want := map[string]bool{}
	for _, l := range c.Lineages {
		want[l] = true
	}
	var out []string
	for _, l := range lineageOrder {
		if want[l] {
			out = append(out, l)
		}
	}
	return out
}

// Rarity builds the rare/common class partition.
func (c *Config) Rarity() (sim.Rarity, error) {
	if len(c.RareClasses) == 0 {
		return sim.DefaultRarity(c.NumClasses), nil
	}
	return sim.NewRarity(c.NumClasses, c.RareClasses)
}

// Validate checks the configuration. Errors in the budget, the threshold
// schedules or the SIEVE guess domain are *sim.ConfigurationError values, so
// a run fails before any round executes.
func (c *Config) Validate() error {
	if c.Budget <= 0 {
		return &sim.ConfigurationError{Field: "budget", Err: fmt.Errorf("%w: got %d", sim.ErrNonPositiveBudget, c.Budget)}
	}
	if c.Trials < 1 {
		return fmt.Errorf("trials must be positive, got %d", c.Trials)
	}
	if c.NumAgents < 1 {
		return fmt.Errorf("num_agents must be positive, got %d", c.NumAgents)
	}
	if c.NumRounds < 1 {
		return fmt.Errorf("num_rounds must be positive, got %d", c.NumRounds)
	}
	if c.StreamSize < 1 {
		return fmt.Errorf("stream_size must be positive, got %d", c.StreamSize)
	}
	if c.NumClasses < 1 {
		return fmt.Errorf("num_classes must be positive, got %d", c.NumClasses)
	}
	if _, err := c.Rarity(); err != nil {
		return fmt.Errorf("rare_classes: %w", err)
	}
	if !sim.IsValidCoverageMode(c.Coverage) {
		return fmt.Errorf("unknown coverage %q; valid: %v", c.Coverage, sim.ValidCoverageModes())
	}
	if !trace.IsValidTraceLevel(c.TraceLevel) {
		return fmt.Errorf("unknown trace_level %q; valid: none, decisions", c.TraceLevel)
	}
	if !(c.Temperature > 0) {
		return fmt.Errorf("temperature must be positive, got %v", c.Temperature)
	}
	for _, l := range c.Lineages {
		if !IsValidLineage(l) {
			return fmt.Errorf("unknown lineage %q; valid: %v", l, ValidLineageNames())
		}
	}
	active := map[string]bool{}
	for _, l := range c.ActiveLineages() {
		active[l] = true
	}
	if active[LineageDMGTUniform] {
		if err := sim.ThresholdSchedule(c.UniformThresholds).Validate(c.NumRounds); err != nil {
			return fmt.Errorf("uniform_thresholds: %w", err)
		}
	}
	if active[LineageDMGTIncreasing] {
		if err := sim.ThresholdSchedule(c.IncreasingThresholds).Validate(c.NumRounds); err != nil {
			return fmt.Errorf("increasing_thresholds: %w", err)
		}
	}
	if active[LineageSieve] {
		// The domain grows with stream length, so the shortest possible
		// stream decides emptiness and the longest decides size.
		longest := max(c.StreamSize, c.NumAgents*c.Budget)
		for _, n := range []int{1, longest} {
			if _, err := sim.NewGuessDomain(c.Epsilon, c.GuessFloor, n); err != nil {
				return err
			}
		}
	}
	if err := c.Workload.Validate(); err != nil {
		return fmt.Errorf("workload: %w", err)
	}
	if need := c.NumRounds * c.StreamSize; c.Workload.PoolSize < need {
		return fmt.Errorf("workload: pool_size %d cannot serve %d rounds of %d items per agent", c.Workload.PoolSize, c.NumRounds, c.StreamSize)
	}
	return nil
}
