// Package cluster runs selection across several agents: every agent filters
// its own stream shard, and a central pass re-filters the pooled outputs
// under the single global budget.
package cluster

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/stream-select/dmgt-sim/sim"
	"github.com/stream-select/dmgt-sim/sim/metrics"
	"github.com/stream-select/dmgt-sim/sim/trace"
)

// Result is the outcome of one two-tier selection round.
type Result struct {
	// Final is the round's selected set, bounded by the global budget.
	Final *sim.Selection
	// PerAgent holds each agent's local selection, indexed by agent.
	PerAgent []*sim.Selection
	// Pooled is the central candidate stream: per-agent outputs concatenated
	// by ascending agent index.
	Pooled []sim.StreamItem
	// CentralPass reports whether the central re-filter ran. With a single
	// agent the local selection is already final.
	CentralPass bool
}

// Aggregator is the two-tier distributed selector. Both tiers use the same
// Selector, so its Select must be safe for concurrent use; the DMGT and SIEVE
// selectors hold only configuration and are.
type Aggregator struct {
	selector sim.Selector
}

// NewAggregator wraps selector in a two-tier aggregator.
// Panics if selector is nil.
func NewAggregator(selector sim.Selector) *Aggregator {
	if selector == nil {
		panic("Aggregator: selector is nil")
	}
	return &Aggregator{selector: selector}
}

// Name returns the wrapped selector's algorithm name.
func (a *Aggregator) Name() string { return a.selector.Name() }

// Run selects from shards, one per agent. Agents scan concurrently against
// the shared read-only round context; a failure in any agent cancels the
// others and fails the round. Agent decision traces are merged into tr in
// agent order, followed by the central pass.
func (a *Aggregator) Run(ctx context.Context, rc *sim.RoundContext, shards [][]sim.StreamItem, tr *trace.SelectionTrace) (*Result, error) {
	if len(shards) == 0 {
		return nil, fmt.Errorf("aggregator: no agent shards")
	}
	if err := rc.Validate(); err != nil {
		return nil, err
	}

	res := &Result{PerAgent: make([]*sim.Selection, len(shards))}
	forks := make([]*trace.SelectionTrace, len(shards))

	g, gCtx := errgroup.WithContext(ctx)
	for i := range shards {
		i := i // per-iteration copy (go1.22 loopvar semantics)
		forks[i] = tr.Fork()
		g.Go(func() error {
			sel, err := a.scan(gCtx, rc, sim.Stream{Items: shards[i], Agent: i, Tier: sim.TierAgent}, forks[i])
			if err != nil {
				return fmt.Errorf("agent %d: %w", i, err)
			}
			res.PerAgent[i] = sel
			logrus.Debugf("[round %d] %s agent %d selected %d of %d", rc.Round, a.Name(), i, sel.Set.Len(), len(shards[i]))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	tr.Merge(forks...)

	res.Pooled = Pool(res.PerAgent)
	if len(shards) == 1 {
		res.Final = res.PerAgent[0]
		return res, nil
	}

	final, err := a.scan(ctx, rc, sim.Stream{Items: res.Pooled, Agent: sim.AgentCentral, Tier: sim.TierCentral}, tr)
	if err != nil {
		return nil, fmt.Errorf("central pass: %w", err)
	}
	res.Final = final
	res.CentralPass = true
	logrus.Debugf("[round %d] %s central pass selected %d of %d pooled", rc.Round, a.Name(), final.Set.Len(), len(res.Pooled))
	return res, nil
}

// scan runs one selection pass. An empty stream yields an empty selection
// without consulting the selector.
func (a *Aggregator) scan(ctx context.Context, rc *sim.RoundContext, stream sim.Stream, tr *trace.SelectionTrace) (*sim.Selection, error) {
	if len(stream.Items) == 0 {
		return &sim.Selection{Algorithm: a.Name(), Set: sim.NewSelectedSet(a.selector.Budget(), rc.NumClasses)}, nil
	}
	sel, err := a.selector.Select(ctx, rc, stream, tr)
	if err != nil {
		return nil, err
	}
	closed := 0
	if sel.Guess != nil {
		closed = sel.Guess.ClosedCount
	}
	metrics.ObserveSelection(sel.Algorithm, stream.Tier, sel.Scored, sel.Set.Len(), closed)
	return sel, nil
}

// Pool concatenates the selections' items by ascending index.
func Pool(selections []*sim.Selection) []sim.StreamItem {
	n := 0
	for _, s := range selections {
		n += s.Set.Len()
	}
	pooled := make([]sim.StreamItem, 0, n)
	for _, s := range selections {
		pooled = append(pooled, s.Items()...)
	}
	return pooled
}
