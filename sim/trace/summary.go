package trace

// TraceSummary aggregates statistics from a SelectionTrace.
type TraceSummary struct {
	TotalDecisions  int            `json:"total_decisions"`
	AcceptedCount   int            `json:"accepted_count"`
	RejectedCount   int            `json:"rejected_count"`
	ReasonCounts    map[string]int `json:"reason_counts"`
	AcceptedByLabel map[int]int    `json:"accepted_by_label"`
	MeanMarginal    float64        `json:"mean_marginal"` // over threshold tests only
	GuessesTracked  int            `json:"guesses_tracked"`
	GuessesClosed   int            `json:"guesses_closed"`
}

// Summarize computes aggregate statistics from a SelectionTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SelectionTrace) *TraceSummary {
	summary := &TraceSummary{
		ReasonCounts:    make(map[string]int),
		AcceptedByLabel: make(map[int]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalDecisions = len(st.Decisions)
	tested := 0
	totalMarginal := 0.0
	for _, d := range st.Decisions {
		summary.ReasonCounts[d.Reason]++
		if d.Accepted {
			summary.AcceptedCount++
			summary.AcceptedByLabel[d.Label]++
		} else {
			summary.RejectedCount++
		}
		if d.Reason == ReasonAccepted || d.Reason == ReasonBelowThreshold {
			tested++
			totalMarginal += d.Marginal
		}
	}
	if tested > 0 {
		summary.MeanMarginal = totalMarginal / float64(tested)
	}

	summary.GuessesTracked = len(st.Guesses)
	for _, g := range st.Guesses {
		if g.Closed {
			summary.GuessesClosed++
		}
	}
	return summary
}
