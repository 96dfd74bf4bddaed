package experiment

import (
	"github.com/stream-select/dmgt-sim/sim"
	"github.com/stream-select/dmgt-sim/sim/calibration"
	"github.com/stream-select/dmgt-sim/sim/trace"
)

// RoundResult is one lineage's outcome for one round of one trial.
// Round 0 describes the initial training set and model. Round r ≥ 1 is the
// state after r selection rounds; its selection used threshold schedule
// entry r−1.
type RoundResult struct {
	Trial   int    `json:"trial"`
	Round   int    `json:"round"`
	Lineage string `json:"lineage"`

	Selected         int             `json:"selected"`
	Counts           sim.LabelCounts `json:"counts"`     // this round's selected items per class
	Cumulative       sim.LabelCounts `json:"cumulative"` // initial items plus every selection so far
	CumulativeRare   int             `json:"cumulative_rare"`
	CumulativeCommon int             `json:"cumulative_common"`
	PerAgentSelected []int           `json:"per_agent_selected,omitempty"`
	Pooled           int             `json:"pooled,omitempty"` // central candidate stream length

	Accuracy Accuracy `json:"accuracy"`

	Threshold         *float64            `json:"threshold,omitempty"`           // DMGT round threshold
	BalancedClassSize *int                `json:"balanced_class_size,omitempty"` // DMGT: accepted per class at certainty
	SieveThresholds   *sim.ThresholdRange `json:"sieve_thresholds,omitempty"`
	Guess             *sim.GuessOutcome   `json:"guess,omitempty"`

	CalibrationDiagnostics []calibration.Diagnostic `json:"calibration_diagnostics,omitempty"`
	Reliability            *calibration.Reliability `json:"reliability,omitempty"`
}

// Results is the full output of one experiment run.
type Results struct {
	Seed         int64                 `json:"seed"`
	Lineages     []string              `json:"lineages"`
	InitialSize  int                   `json:"initial_size"`
	Rounds       []RoundResult         `json:"rounds"` // ordered by trial, round, lineage
	TraceSummary *trace.TraceSummary   `json:"trace_summary,omitempty"`
	Trace        *trace.SelectionTrace `json:"-"`
}

// Final returns the last round's result of lineage in trial, or nil.
func (r *Results) Final(trial int, lineage string) *RoundResult {
	var last *RoundResult
	for i := range r.Rounds {
		rr := &r.Rounds[i]
		if rr.Trial == trial && rr.Lineage == lineage {
			last = rr
		}
	}
	return last
}
