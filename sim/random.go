package sim

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/stream-select/dmgt-sim/sim/trace"
)

// RandomSelector is the random-sampling baseline: a uniform random subset of
// min(budget, len(stream)) items, in random order.
// Not thread-safe: the *rand.Rand must belong to one lineage.
type RandomSelector struct {
	rng    *rand.Rand
	budget int
}

// NewRandomSelector creates a RAND baseline selector drawing from rng.
func NewRandomSelector(rng *rand.Rand, budget int) (*RandomSelector, error) {
	if err := validateBudget(budget); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("random selector: rng is nil")
	}
	return &RandomSelector{rng: rng, budget: budget}, nil
}

// Name returns AlgorithmRandom.
func (s *RandomSelector) Name() string { return AlgorithmRandom }

// Budget returns the sample size cap.
func (s *RandomSelector) Budget() int { return s.budget }

// Select draws the baseline subset. The classifier is not consulted.
func (s *RandomSelector) Select(ctx context.Context, rc *RoundContext, stream Stream, tr *trace.SelectionTrace) (*Selection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	set := NewSelectedSet(s.budget, rc.NumClasses)
	for _, idx := range s.rng.Perm(len(stream.Items)) {
		if !set.Accept(stream.Items[idx]) {
			break
		}
		item := stream.Items[idx]
		tr.RecordDecision(trace.DecisionRecord{
			Round:     rc.Round,
			Algorithm: AlgorithmRandom,
			Tier:      stream.Tier,
			Agent:     stream.Agent,
			Position:  idx,
			ItemID:    item.ID,
			Label:     item.Label,
			Accepted:  true,
			Reason:    trace.ReasonAccepted,
		})
	}
	return &Selection{Algorithm: AlgorithmRandom, Set: set}, nil
}
