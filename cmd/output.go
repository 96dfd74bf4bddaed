package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/stream-select/dmgt-sim/sim/experiment"
)

// printResults writes the per-lineage final summary of each trial followed by
// the full results as indented JSON.
func printResults(w io.Writer, res *experiment.Results) error {
	fmt.Fprintln(w, "=== Selection Results ===")
	fmt.Fprintf(w, "%-21s: %d\n", "Seed", res.Seed)
	fmt.Fprintf(w, "%-21s: %d\n", "Initial Set Size", res.InitialSize)

	trials := 0
	for _, r := range res.Rounds {
		if r.Trial+1 > trials {
			trials = r.Trial + 1
		}
	}
	for t := 0; t < trials; t++ {
		fmt.Fprintf(w, "--- Trial %d ---\n", t)
		for _, lineage := range res.Lineages {
			final := res.Final(t, lineage)
			if final == nil {
				continue
			}
			fmt.Fprintf(w, "%-21s: rounds=%d size=%d rare=%d common=%d acc_rare=%.4f acc_overall=%.4f\n",
				lineage, final.Round, final.CumulativeRare+final.CumulativeCommon,
				final.CumulativeRare, final.CumulativeCommon,
				final.Accuracy.Rare, final.Accuracy.Overall)
		}
	}

	if res.TraceSummary != nil {
		fmt.Fprintf(w, "%-21s: %d (accepted %d, rejected %d)\n", "Trace Decisions",
			res.TraceSummary.TotalDecisions, res.TraceSummary.AcceptedCount, res.TraceSummary.RejectedCount)
	}

	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling results: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}
