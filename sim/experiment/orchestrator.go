// Package experiment drives selection experiments: trials of sequential
// rounds, each round running every algorithm lineage on the same stream draw,
// then retraining, recalibrating and evaluating each lineage's model.
package experiment

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/stream-select/dmgt-sim/sim"
	"github.com/stream-select/dmgt-sim/sim/calibration"
	"github.com/stream-select/dmgt-sim/sim/classifier"
	"github.com/stream-select/dmgt-sim/sim/cluster"
	"github.com/stream-select/dmgt-sim/sim/metrics"
	"github.com/stream-select/dmgt-sim/sim/trace"
	"github.com/stream-select/dmgt-sim/sim/workload"
)

// Orchestrator sequences selection rounds for every configured lineage.
// Rounds are sequential within a lineage; lineages run concurrently within a
// round and meet at a barrier before the next round starts.
type Orchestrator struct {
	cfg        Config
	rarity     sim.Rarity
	rng        *sim.PartitionedRNG
	data       *workload.Dataset
	validation []sim.StreamItem // rare then common validation items

	initial         sim.Classifier
	initialCal      *sim.CalibrationSet
	initialDiags    []calibration.Diagnostic
	initialCounts   sim.LabelCounts
	initialAccuracy Accuracy
}

// New validates cfg, generates the dataset and trains the initial model.
// Configuration errors are returned before any round can run.
func New(cfg Config) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rarity, err := cfg.Rarity()
	if err != nil {
		return nil, err
	}
	rng := sim.NewPartitionedRNG(cfg.Seed)
	gen, err := workload.NewGenerator(cfg.Workload, cfg.NumClasses, rarity, rng)
	if err != nil {
		return nil, err
	}
	data, err := gen.Generate(cfg.NumAgents, rng)
	if err != nil {
		return nil, err
	}

	base, err := classifier.New(cfg.NumClasses, cfg.Workload.Dim, cfg.Temperature)
	if err != nil {
		return nil, err
	}
	initial, err := base.Retrain(data.Initial)
	if err != nil {
		return nil, fmt.Errorf("training initial model: %w", err)
	}

	o := &Orchestrator{
		cfg:           cfg,
		rarity:        rarity,
		rng:           rng,
		data:          data,
		validation:    append(append([]sim.StreamItem(nil), data.RareValidation...), data.CommonValidation...),
		initial:       initial,
		initialCounts: sim.CountLabels(data.Initial, cfg.NumClasses),
	}
	if cfg.Calibrate {
		o.initialCal, o.initialDiags, err = o.recalibrate(0, initial)
		if err != nil {
			return nil, err
		}
	}
	o.initialAccuracy = Evaluate(initial, data.Test, rarity)
	logrus.Infof("Initial model trained on %d items: rare accuracy %.3f, overall %.3f",
		len(data.Initial), o.initialAccuracy.Rare, o.initialAccuracy.Overall)
	return o, nil
}

// Dataset returns the generated dataset.
func (o *Orchestrator) Dataset() *workload.Dataset { return o.data }

// lineage is one algorithm's chain of models across rounds of a trial.
// Owned by one goroutine during a round.
type lineage struct {
	name       string
	schedule   sim.ThresholdSchedule // DMGT lineages only
	agg        *cluster.Aggregator   // DMGT and SIEVE
	random     *sim.RandomSelector   // RAND
	clf        sim.Classifier
	cal        *sim.CalibrationSet
	cumulative sim.LabelCounts
}

func (o *Orchestrator) newLineages() ([]*lineage, error) {
	var out []*lineage
	for _, name := range o.cfg.ActiveLineages() {
		l := &lineage{name: name, clf: o.initial, cal: o.initialCal, cumulative: o.initialCounts.Clone()}
		sc := sim.SelectorConfig{Budget: o.cfg.Budget, Epsilon: o.cfg.Epsilon, GuessFloor: o.cfg.GuessFloor}
		switch name {
		case LineageDMGTUniform:
			sc.Algorithm, sc.Schedule = sim.AlgorithmDMGT, o.cfg.UniformThresholds
		case LineageDMGTIncreasing:
			sc.Algorithm, sc.Schedule = sim.AlgorithmDMGT, o.cfg.IncreasingThresholds
		case LineageSieve:
			sc.Algorithm = sim.AlgorithmSieve
		case LineageRandom:
			sc.Algorithm = sim.AlgorithmRandom
			sc.RNG = o.rng.Derive(sim.SubsystemBaseline)
		default:
			panic(fmt.Sprintf("unhandled lineage %q", name))
		}
		sel, err := sim.NewSelector(sc)
		if err != nil {
			return nil, fmt.Errorf("lineage %s: %w", name, err)
		}
		l.schedule = sc.Schedule
		if r, ok := sel.(*sim.RandomSelector); ok {
			l.random = r
		} else {
			l.agg = cluster.NewAggregator(sel)
		}
		out = append(out, l)
	}
	return out, nil
}

// newSources builds each agent's stream source for trial. Every trial
// reshuffles the agent pools from its own RNG subsystem.
func (o *Orchestrator) newSources(trial int) []sim.StreamSource {
	sources := make([]sim.StreamSource, len(o.data.Pools))
	for a, pool := range o.data.Pools {
		sources[a] = workload.NewShuffledSource(pool, o.cfg.StreamSize, o.rng.Derive(sim.SubsystemTrial(trial)))
	}
	return sources
}

// Run executes every trial and returns the per-round results.
func (o *Orchestrator) Run(ctx context.Context) (*Results, error) {
	res := &Results{
		Seed:        o.cfg.Seed,
		Lineages:    o.cfg.ActiveLineages(),
		InitialSize: len(o.data.Initial),
	}
	var tr *trace.SelectionTrace
	if trace.TraceLevel(o.cfg.TraceLevel) == trace.TraceLevelDecisions {
		tr = trace.NewSelectionTrace(trace.TraceConfig{Level: trace.TraceLevelDecisions})
	}

	for trial := 0; trial < o.cfg.Trials; trial++ {
		if err := o.runTrial(ctx, trial, res, tr); err != nil {
			return nil, fmt.Errorf("trial %d: %w", trial, err)
		}
	}
	if tr != nil {
		res.Trace = tr
		res.TraceSummary = trace.Summarize(tr)
	}
	return res, nil
}

func (o *Orchestrator) runTrial(ctx context.Context, trial int, res *Results, tr *trace.SelectionTrace) error {
	lineages, err := o.newLineages()
	if err != nil {
		return err
	}
	sources := o.newSources(trial)
	for _, l := range lineages {
		res.Rounds = append(res.Rounds, o.initialResult(trial, l))
	}

	for round := 0; round < o.cfg.NumRounds; round++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		shards := make([][]sim.StreamItem, len(sources))
		var raw []sim.StreamItem
		for a, src := range sources {
			batch, err := src.Next(ctx)
			if err != nil {
				return fmt.Errorf("round %d agent %d: %w", round, a, err)
			}
			shards[a] = batch
			raw = append(raw, batch...)
		}

		results := make([]RoundResult, len(lineages))
		forks := make([]*trace.SelectionTrace, len(lineages))
		g, gCtx := errgroup.WithContext(ctx)
		for i, l := range lineages {
			i, l := i, l // per-iteration copy (go1.22 loopvar semantics)
			forks[i] = tr.Fork()
			g.Go(func() error {
				start := time.Now()
				rr, err := o.step(gCtx, trial, round, l, shards, raw, forks[i])
				if err != nil {
					return fmt.Errorf("lineage %s: %w", l.name, err)
				}
				metrics.ObserveRound(l.name, time.Since(start))
				results[i] = *rr
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return fmt.Errorf("round %d: %w", round, err)
		}
		for i, l := range lineages {
			forks[i].Stamp(trial, l.name)
		}
		tr.Merge(forks...)
		res.Rounds = append(res.Rounds, results...)

		for _, rr := range results {
			logrus.Infof("[trial %d round %d] %-16s selected %3d (cumulative rare %d, common %d) accuracy rare=%.3f overall=%.3f",
				trial, rr.Round, rr.Lineage, rr.Selected, rr.CumulativeRare, rr.CumulativeCommon, rr.Accuracy.Rare, rr.Accuracy.Overall)
		}
	}
	return nil
}

// step runs one round of one lineage: select, retrain, recalibrate, evaluate.
func (o *Orchestrator) step(ctx context.Context, trial, round int, l *lineage, shards [][]sim.StreamItem, raw []sim.StreamItem, tr *trace.SelectionTrace) (*RoundResult, error) {
	rc := &sim.RoundContext{
		Round:       round,
		NumClasses:  o.cfg.NumClasses,
		Classifier:  l.clf,
		Calibration: l.cal,
		Rarity:      o.rarity,
		Coverage:    sim.CoverageMode(o.cfg.Coverage),
	}
	rr := &RoundResult{Trial: trial, Round: round + 1, Lineage: l.name}

	var sel *sim.Selection
	if l.random != nil {
		s, err := l.random.Select(ctx, rc, sim.Stream{Items: raw, Agent: sim.AgentCentral, Tier: sim.TierCentral}, tr)
		if err != nil {
			return nil, err
		}
		metrics.ObserveSelection(s.Algorithm, sim.TierCentral, s.Scored, s.Set.Len(), 0)
		sel = s
		rr.Pooled = len(raw)
	} else {
		out, err := l.agg.Run(ctx, rc, shards, tr)
		if err != nil {
			return nil, err
		}
		sel = out.Final
		rr.Pooled = len(out.Pooled)
		rr.PerAgentSelected = make([]int, len(out.PerAgent))
		for a, s := range out.PerAgent {
			rr.PerAgentSelected[a] = s.Set.Len()
		}
	}

	next, err := l.clf.Retrain(sel.Items())
	if err != nil {
		return nil, fmt.Errorf("retraining: %w", err)
	}
	l.clf = next
	if o.cfg.Calibrate {
		l.cal, rr.CalibrationDiagnostics, err = o.recalibrate(round+1, next)
		if err != nil {
			return nil, err
		}
	}

	counts := sel.Counts()
	l.cumulative = l.cumulative.Add(counts)
	rr.Selected = sel.Set.Len()
	rr.Counts = counts
	rr.Cumulative = l.cumulative.Clone()
	rr.CumulativeRare, rr.CumulativeCommon = o.rarity.Split(l.cumulative)
	rr.Accuracy = Evaluate(next, o.data.Test, o.rarity)

	if l.schedule != nil {
		tau := l.schedule[round]
		size := sim.BalancedClassSize(tau)
		rr.Threshold, rr.BalancedClassSize = &tau, &size
	}
	if sel.Thresholds != nil {
		taus := *sel.Thresholds
		rr.SieveThresholds = &taus
	}
	if sel.Guess != nil {
		guess := *sel.Guess
		rr.Guess = &guess
	}
	if o.cfg.Reliability {
		curve := calibration.ReliabilityCurve(next, l.cal, o.rarity, o.validation, calibration.DefaultNumBins)
		rr.Reliability = &curve
	}
	return rr, nil
}

func (o *Orchestrator) recalibrate(round int, clf sim.Classifier) (*sim.CalibrationSet, []calibration.Diagnostic, error) {
	cal, diags, err := calibration.FitGroups(round, clf, o.data.RareValidation, o.data.CommonValidation)
	if err != nil {
		return nil, nil, fmt.Errorf("calibration: %w", err)
	}
	for _, d := range diags {
		metrics.ObserveCalibrationSkipped(d.Group)
	}
	return cal, diags, nil
}

func (o *Orchestrator) initialResult(trial int, l *lineage) RoundResult {
	rr := RoundResult{
		Trial:                  trial,
		Round:                  0,
		Lineage:                l.name,
		Selected:               len(o.data.Initial),
		Counts:                 o.initialCounts.Clone(),
		Cumulative:             o.initialCounts.Clone(),
		Accuracy:               o.initialAccuracy,
		CalibrationDiagnostics: o.initialDiags,
	}
	rr.CumulativeRare, rr.CumulativeCommon = o.rarity.Split(o.initialCounts)
	if o.cfg.Reliability {
		curve := calibration.ReliabilityCurve(o.initial, o.initialCal, o.rarity, o.validation, calibration.DefaultNumBins)
		rr.Reliability = &curve
	}
	return rr
}
