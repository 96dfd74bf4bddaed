package sim

import (
	"math"
)

// ThresholdSchedule holds one acceptance threshold per selection round,
// indexed by round number. Immutable for the duration of an experiment.
type ThresholdSchedule []float64

// UniformSchedule returns a schedule repeating tau for rounds rounds.
func UniformSchedule(tau float64, rounds int) ThresholdSchedule {
	s := make(ThresholdSchedule, rounds)
	for i := range s {
		s[i] = tau
	}
	return s
}

// At returns the threshold for round. Rounds past the end of the schedule
// are a configuration error.
func (s ThresholdSchedule) At(round int) (float64, error) {
	if round < 0 || round >= len(s) {
		return 0, configError("thresholds", ErrScheduleTooShort, "round %d requested, schedule has %d entries", round, len(s))
	}
	return s[round], nil
}

// Validate checks the schedule covers numRounds rounds with finite values.
func (s ThresholdSchedule) Validate(numRounds int) error {
	if len(s) < numRounds {
		return configError("thresholds", ErrScheduleTooShort, "need %d entries, got %d", numRounds, len(s))
	}
	for i, tau := range s {
		if math.IsNaN(tau) || math.IsInf(tau, 0) {
			return &ConfigurationError{Field: "thresholds", Err: errNonFinite(i, tau)}
		}
	}
	return nil
}

// BalancedClassSize returns how many items of one class a DMGT scan accepts
// under threshold tau when every prediction is certain (p = 1) and correct:
// the count n at which sqrt(n+1) − sqrt(n) first drops below tau.
// Returns -1 for tau ≤ 0 (acceptance never stops) and 0 for tau > 1.
func BalancedClassSize(tau float64) int {
	if tau <= 0 {
		return -1
	}
	if tau > 1 {
		return 0
	}
	root := (1 - tau*tau) / (2 * tau)
	return int(math.Floor(root*root)) + 1
}
