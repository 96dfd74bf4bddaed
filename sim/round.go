package sim

import (
	"fmt"
	"sort"
)

// CoverageMode selects how the hypothetical addition of a candidate is
// credited by the coverage objective.
type CoverageMode string

const (
	// CoveragePredicted credits only the predicted class:
	// p_ŷ·(sqrt(n_ŷ+1) − sqrt(n_ŷ)).
	CoveragePredicted CoverageMode = "predicted"
	// CoverageExpected credits every class by its probability:
	// Σ_c p_c·(sqrt(n_c+1) − sqrt(n_c)).
	CoverageExpected CoverageMode = "expected"
)

// validCoverageModes maps accepted coverage mode names. "" defaults to predicted.
var validCoverageModes = map[CoverageMode]bool{
	CoveragePredicted: true,
	CoverageExpected:  true,
	"":                true,
}

// IsValidCoverageMode returns true if name is a recognized coverage mode.
func IsValidCoverageMode(name string) bool { return validCoverageModes[CoverageMode(name)] }

// ValidCoverageModes returns sorted non-empty coverage mode names.
func ValidCoverageModes() []string {
	out := make([]string, 0, len(validCoverageModes))
	for m := range validCoverageModes {
		if m != "" {
			out = append(out, string(m))
		}
	}
	sort.Strings(out)
	return out
}

// RoundContext carries the round-external state a selection round reads.
// It is built by the orchestrator at a round boundary and shared read-only
// by every agent of one lineage; nothing in it is mutated during the round.
type RoundContext struct {
	Round       int
	NumClasses  int
	Classifier  Classifier
	Calibration *CalibrationSet // nil disables calibration
	Rarity      Rarity
	Coverage    CoverageMode
}

// Validate checks that the context can drive a selection round.
func (rc *RoundContext) Validate() error {
	if rc == nil {
		return fmt.Errorf("round context is nil")
	}
	if rc.NumClasses < 1 {
		return fmt.Errorf("num classes must be positive, got %d", rc.NumClasses)
	}
	if rc.Classifier == nil {
		return fmt.Errorf("round %d: classifier is nil", rc.Round)
	}
	if !validCoverageModes[rc.Coverage] {
		return fmt.Errorf("unknown coverage mode %q", rc.Coverage)
	}
	return nil
}
