package sim

import (
	"context"

	"github.com/stream-select/dmgt-sim/sim/trace"
)

// ThresholdSelector is the threshold-gated greedy selector (DMGT).
// The first stream item is accepted unconditionally; every later item is
// accepted iff its marginal utility is ≥ the round's threshold and the set
// still has room. Items are evaluated once, in arrival order.
type ThresholdSelector struct {
	schedule ThresholdSchedule
	budget   int
}

// NewThresholdSelector creates a DMGT selector.
func NewThresholdSelector(schedule ThresholdSchedule, budget int) (*ThresholdSelector, error) {
	if err := validateBudget(budget); err != nil {
		return nil, err
	}
	return &ThresholdSelector{schedule: schedule, budget: budget}, nil
}

// Name returns AlgorithmDMGT.
func (s *ThresholdSelector) Name() string { return AlgorithmDMGT }

// Budget returns the maximum number of items one scan accepts.
func (s *ThresholdSelector) Budget() int { return s.budget }

// Select runs one DMGT scan.
func (s *ThresholdSelector) Select(ctx context.Context, rc *RoundContext, stream Stream, tr *trace.SelectionTrace) (*Selection, error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	tau, err := s.schedule.At(rc.Round)
	if err != nil {
		return nil, err
	}

	set := NewSelectedSet(s.budget, rc.NumClasses)
	sel := &Selection{Algorithm: AlgorithmDMGT, Set: set}
	if len(stream.Items) == 0 {
		return sel, nil
	}

	set.Accept(stream.Items[0])
	tr.RecordDecision(s.record(rc, stream, 0, Utility{}, tau, true, trace.ReasonBootstrap))

	est := NewUtilityEstimator(rc)
	for pos := 1; pos < len(stream.Items); pos++ {
		if set.Full() {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		item := stream.Items[pos]
		u := est.Score(set.Counts(), item)
		sel.Scored++
		if u.Marginal() >= tau && set.Accept(item) {
			tr.RecordDecision(s.record(rc, stream, pos, u, tau, true, trace.ReasonAccepted))
			continue
		}
		tr.RecordDecision(s.record(rc, stream, pos, u, tau, false, trace.ReasonBelowThreshold))
	}
	return sel, nil
}

func (s *ThresholdSelector) record(rc *RoundContext, stream Stream, pos int, u Utility, tau float64, accepted bool, reason string) trace.DecisionRecord {
	item := stream.Items[pos]
	return trace.DecisionRecord{
		Round:     rc.Round,
		Algorithm: AlgorithmDMGT,
		Tier:      stream.Tier,
		Agent:     stream.Agent,
		Position:  pos,
		ItemID:    item.ID,
		Label:     item.Label,
		Marginal:  u.Marginal(),
		Threshold: tau,
		Accepted:  accepted,
		Reason:    reason,
	}
}
