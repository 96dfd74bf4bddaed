package workload

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Spec configures the synthetic labeled data an experiment draws from:
// Gaussian class clusters in Dim dimensions, an imbalanced stream pool per
// agent, and balanced validation and test splits.
// Loaded from YAML via LoadSpec(path) or embedded in an experiment config.
type Spec struct {
	Dim              int       `yaml:"dim"`
	Separation       float64   `yaml:"separation"`        // distance of each class centroid from the origin
	Noise            float64   `yaml:"noise"`             // per-dimension standard deviation around a centroid
	PoolSize         int       `yaml:"pool_size"`         // stream items generated per agent
	InitPoints       int       `yaml:"init_points"`       // initial training items, split across agents
	ValidationPoints int       `yaml:"validation_points"` // per rarity group
	TestPoints       int       `yaml:"test_points"`
	Imbalances       []float64 `yaml:"imbalances"` // per agent: common/rare sampling ratio
}

// DefaultSpec returns the workload used when no file overrides it.
func DefaultSpec() Spec {
	return Spec{
		Dim:              8,
		Separation:       3,
		Noise:            1.5,
		PoolSize:         4000,
		InitPoints:       100,
		ValidationPoints: 500,
		TestPoints:       1000,
		Imbalances:       []float64{2, 5, 10},
	}
}

// LoadSpec reads and parses a YAML workload specification file.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadSpec(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading workload spec: %w", err)
	}
	spec := DefaultSpec()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&spec); err != nil {
		return nil, fmt.Errorf("parsing workload spec: %w", err)
	}
	return &spec, nil
}

// Validate checks that all fields in the spec are valid.
func (s *Spec) Validate() error {
	if s.Dim < 1 {
		return fmt.Errorf("dim must be positive, got %d", s.Dim)
	}
	if err := validateFinitePositive("separation", s.Separation); err != nil {
		return err
	}
	if err := validateFinitePositive("noise", s.Noise); err != nil {
		return err
	}
	if s.PoolSize < 1 {
		return fmt.Errorf("pool_size must be positive, got %d", s.PoolSize)
	}
	if s.InitPoints < 1 {
		return fmt.Errorf("init_points must be positive, got %d", s.InitPoints)
	}
	if s.ValidationPoints < 0 {
		return fmt.Errorf("validation_points must be non-negative, got %d", s.ValidationPoints)
	}
	if s.TestPoints < 1 {
		return fmt.Errorf("test_points must be positive, got %d", s.TestPoints)
	}
	if len(s.Imbalances) == 0 {
		return fmt.Errorf("imbalances must list at least one ratio")
	}
	for i, r := range s.Imbalances {
		if err := validateFinitePositive(fmt.Sprintf("imbalances[%d]", i), r); err != nil {
			return err
		}
	}
	return nil
}

// ImbalanceFor returns agent's common/rare ratio. Agents beyond the list
// reuse it cyclically.
func (s *Spec) ImbalanceFor(agent int) float64 {
	return s.Imbalances[agent%len(s.Imbalances)]
}

func validateFinitePositive(name string, val float64) error {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return fmt.Errorf("%s must be a finite number, got %f", name, val)
	}
	if val <= 0 {
		return fmt.Errorf("%s must be positive, got %f", name, val)
	}
	return nil
}
