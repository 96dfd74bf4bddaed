package sim

import (
	"context"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/stream-select/dmgt-sim/sim/trace"
)

// maxGuessDomainSize bounds the number of parallel guesses one scan may run.
const maxGuessDomainSize = 1 << 16

// GuessDomain is the geometric progression of SIEVE guesses (1+ε)^j for
// MinExp ≤ j ≤ MaxExp, the exponents with m ≤ (1+ε)^j ≤ 2·m·n.
// Values are computed on demand from the integer exponent.
type GuessDomain struct {
	Epsilon float64
	Floor   float64 // m
	MinExp  int
	MaxExp  int
}

// NewGuessDomain builds the guess domain for a stream of streamLen items.
// An empty domain is a configuration error.
func NewGuessDomain(epsilon, floor float64, streamLen int) (GuessDomain, error) {
	if !(epsilon > 0) || math.IsInf(epsilon, 0) {
		return GuessDomain{}, configError("epsilon", ErrInvalidEpsilon, "got %v", epsilon)
	}
	if !(floor > 0) || math.IsInf(floor, 0) {
		return GuessDomain{}, configError("guess_floor", ErrEmptyGuessDomain, "floor m must be a finite positive number, got %v", floor)
	}
	d := GuessDomain{Epsilon: epsilon, Floor: floor}
	upper := 2 * floor * float64(streamLen)

	// Start from the logarithm and correct for rounding in both directions.
	lo := int(math.Ceil(math.Log(floor) / math.Log1p(epsilon)))
	for d.pow(lo-1) >= floor {
		lo--
	}
	for d.pow(lo) < floor {
		lo++
	}
	if d.pow(lo) > upper {
		return GuessDomain{}, configError("guess_domain", ErrEmptyGuessDomain,
			"no j with %v <= (1+%v)^j <= %v (stream length %d)", floor, epsilon, upper, streamLen)
	}

	hi := int(math.Floor(math.Log(upper) / math.Log1p(epsilon)))
	if hi < lo {
		hi = lo
	}
	for hi > lo && d.pow(hi) > upper {
		hi--
	}
	for d.pow(hi+1) <= upper {
		hi++
	}
	d.MinExp, d.MaxExp = lo, hi
	if d.Len() > maxGuessDomainSize {
		return GuessDomain{}, configError("epsilon", ErrInvalidEpsilon,
			"epsilon %v yields %d guesses (limit %d)", epsilon, d.Len(), maxGuessDomainSize)
	}
	return d, nil
}

func (d GuessDomain) pow(j int) float64 {
	return math.Pow(1+d.Epsilon, float64(j))
}

// Len returns the number of guesses.
func (d GuessDomain) Len() int { return d.MaxExp - d.MinExp + 1 }

// Value returns the guess value for exponent j.
func (d GuessDomain) Value(j int) float64 { return d.pow(j) }

// Values returns every guess value in ascending order.
func (d GuessDomain) Values() []float64 {
	out := make([]float64, 0, d.Len())
	for j := d.MinExp; j <= d.MaxExp; j++ {
		out = append(out, d.pow(j))
	}
	return out
}

// Guess is one SIEVE candidate: a target value v, its running candidate set
// and the range of thresholds it has derived so far.
type Guess struct {
	Exponent int
	Value    float64

	set         *SelectedSet
	primed      bool
	closeLogged bool
	taus        ThresholdRange
}

// Set returns the guess's candidate set.
func (g *Guess) Set() *SelectedSet { return g.set }

// Thresholds returns the observed threshold range.
func (g *Guess) Thresholds() ThresholdRange { return g.taus }

// Closed reports whether the guess's budget is filled.
func (g *Guess) Closed() bool { return g.set.Full() }

// Threshold derives τ_v = (v/2 − without) / (budget − |set|). ok is false once
// the set is full: the denominator is zero and the guess accepts nothing more.
func (g *Guess) Threshold(without float64) (tau float64, ok bool) {
	remaining := g.set.Remaining()
	if remaining == 0 {
		return 0, false
	}
	return (g.Value/2 - without) / float64(remaining), true
}

// GuessTable runs every guess of a domain in parallel over one stream.
type GuessTable struct {
	domain  GuessDomain
	guesses []*Guess
}

// NewGuessTable creates one guess per domain exponent, each seeded with
// bootstrap. Guesses are held in ascending exponent order.
func NewGuessTable(domain GuessDomain, budget, numClasses int, bootstrap StreamItem) *GuessTable {
	t := &GuessTable{domain: domain, guesses: make([]*Guess, 0, domain.Len())}
	for j := domain.MinExp; j <= domain.MaxExp; j++ {
		set := NewSelectedSet(budget, numClasses)
		set.Accept(bootstrap)
		t.guesses = append(t.guesses, &Guess{Exponent: j, Value: domain.Value(j), set: set})
	}
	return t
}

// Guesses returns the guesses in ascending exponent order.
func (t *GuessTable) Guesses() []*Guess { return t.guesses }

// Best returns the guess whose candidate set has the largest Σ_c sqrt(count_c).
// Ties go to the smallest exponent.
func (t *GuessTable) Best() *Guess {
	var best *Guess
	bestCoverage := math.Inf(-1)
	for _, g := range t.guesses {
		if c := g.set.Counts().Coverage(); c > bestCoverage {
			best, bestCoverage = g, c
		}
	}
	return best
}

// SieveSelector is the parallel-guess streaming selector (SIEVE-Streaming).
type SieveSelector struct {
	epsilon float64
	floor   float64
	budget  int
}

// NewSieveSelector creates a SIEVE selector with guess spacing epsilon and
// domain floor m.
func NewSieveSelector(epsilon, floor float64, budget int) (*SieveSelector, error) {
	if err := validateBudget(budget); err != nil {
		return nil, err
	}
	// Probe the domain for a single-item stream so bad epsilon/floor values
	// fail at construction rather than mid-experiment.
	if _, err := NewGuessDomain(epsilon, floor, 1); err != nil {
		return nil, err
	}
	return &SieveSelector{epsilon: epsilon, floor: floor, budget: budget}, nil
}

// Name returns AlgorithmSieve.
func (s *SieveSelector) Name() string { return AlgorithmSieve }

// Budget returns the per-guess budget.
func (s *SieveSelector) Budget() int { return s.budget }

// Select runs one SIEVE scan.
//
// Every guess starts from the stream's first item. The first item after it
// primes each guess instead of being tested against a threshold, so it
// never enters any candidate set. Every later item is tested against each
// open guess: accept iff marginal ≥ τ_v and the set has room.
func (s *SieveSelector) Select(ctx context.Context, rc *RoundContext, stream Stream, tr *trace.SelectionTrace) (*Selection, error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	domain, err := NewGuessDomain(s.epsilon, s.floor, len(stream.Items))
	if err != nil {
		return nil, err
	}

	table := NewGuessTable(domain, s.budget, rc.NumClasses, stream.Items[0])
	tr.RecordDecision(s.record(rc, stream, 0, domain.MinExp, Utility{}, 0, true, trace.ReasonBootstrap))

	est := NewUtilityEstimator(rc)
	scored := 0
	for pos := 1; pos < len(stream.Items); pos++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		item := stream.Items[pos]
		var probs []float64
		var pred int
		for _, g := range table.guesses {
			if !g.primed {
				g.primed = true
				tr.RecordDecision(s.record(rc, stream, pos, g.Exponent, Utility{}, 0, false, trace.ReasonGuessPrimed))
				continue
			}
			if probs == nil {
				probs, pred = est.Distribution(item)
			}
			u := est.ScoreDistribution(g.set.Counts(), probs, pred)
			tau, ok := g.Threshold(u.Without)
			if !ok {
				if !g.closeLogged {
					g.closeLogged = true
					logrus.Debugf("sieve round %d %s agent %d: guess j=%d closed at position %d",
						rc.Round, stream.Tier, stream.Agent, g.Exponent, pos)
				}
				tr.RecordDecision(s.record(rc, stream, pos, g.Exponent, u, 0, false, trace.ReasonGuessClosed))
				continue
			}
			g.taus.observe(tau)
			scored++
			if u.Marginal() >= tau && g.set.Accept(item) {
				tr.RecordDecision(s.record(rc, stream, pos, g.Exponent, u, tau, true, trace.ReasonAccepted))
				continue
			}
			tr.RecordDecision(s.record(rc, stream, pos, g.Exponent, u, tau, false, trace.ReasonBelowThreshold))
		}
	}

	best := table.Best()
	closed := 0
	for _, g := range table.guesses {
		if g.set.Full() {
			closed++
		}
		tr.RecordGuess(trace.GuessRecord{
			Round:    rc.Round,
			Tier:     stream.Tier,
			Agent:    stream.Agent,
			Exponent: g.Exponent,
			Value:    g.Value,
			Size:     g.set.Len(),
			Coverage: g.set.Counts().Coverage(),
			Closed:   g.set.Full(),
			Chosen:   g == best,
		})
	}

	taus := best.taus
	return &Selection{
		Algorithm:  AlgorithmSieve,
		Set:        best.set,
		Scored:     scored,
		Thresholds: &taus,
		Guess: &GuessOutcome{
			Exponent:    best.Exponent,
			Value:       best.Value,
			Coverage:    best.set.Counts().Coverage(),
			DomainSize:  domain.Len(),
			ClosedCount: closed,
		},
	}, nil
}

func (s *SieveSelector) record(rc *RoundContext, stream Stream, pos, exp int, u Utility, tau float64, accepted bool, reason string) trace.DecisionRecord {
	item := stream.Items[pos]
	return trace.DecisionRecord{
		Round:     rc.Round,
		Algorithm: AlgorithmSieve,
		Tier:      stream.Tier,
		Agent:     stream.Agent,
		Position:  pos,
		ItemID:    item.ID,
		Label:     item.Label,
		Guess:     exp,
		Marginal:  u.Marginal(),
		Threshold: tau,
		Accepted:  accepted,
		Reason:    reason,
	}
}
