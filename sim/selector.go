package sim

import (
	"context"
	"fmt"
	"math/rand"
	"sort"

	"github.com/stream-select/dmgt-sim/sim/trace"
)

// Algorithm names accepted by NewSelector.
const (
	AlgorithmDMGT   = "dmgt"
	AlgorithmSieve  = "sieve"
	AlgorithmRandom = "rand"
)

// Tier names for where a scan runs.
const (
	TierAgent   = "agent"
	TierCentral = "central"
	TierDirect  = "direct"
)

// AgentCentral is the Agent value of a pooled (central) stream.
const AgentCentral = -1

// validAlgorithms maps algorithm names to validity. Unexported to prevent mutation.
var validAlgorithms = map[string]bool{
	AlgorithmDMGT:   true,
	AlgorithmSieve:  true,
	AlgorithmRandom: true,
}

// IsValidAlgorithm returns true if name is a recognized selection algorithm.
func IsValidAlgorithm(name string) bool { return validAlgorithms[name] }

// ValidAlgorithmNames returns sorted valid algorithm names.
func ValidAlgorithmNames() []string {
	names := make([]string, 0, len(validAlgorithms))
	for n := range validAlgorithms {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Stream is one ordered scan input: an agent's shard or the central pool.
type Stream struct {
	Items []StreamItem
	Agent int    // agent index, or AgentCentral
	Tier  string // TierAgent, TierCentral or TierDirect
}

// ThresholdRange is the observed min/max of a SIEVE guess's derived threshold.
type ThresholdRange struct {
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Observed int     `json:"observed"` // number of thresholds computed; 0 means Min/Max are unset
}

func (r *ThresholdRange) observe(tau float64) {
	if r.Observed == 0 || tau < r.Min {
		r.Min = tau
	}
	if r.Observed == 0 || tau > r.Max {
		r.Max = tau
	}
	r.Observed++
}

// GuessOutcome describes the SIEVE guess whose candidate set won the round.
type GuessOutcome struct {
	Exponent    int     `json:"exponent"`
	Value       float64 `json:"value"`
	Coverage    float64 `json:"coverage"`
	DomainSize  int     `json:"domain_size"`
	ClosedCount int     `json:"closed_count"` // guesses whose budget filled during the scan
}

// Selection is the frozen output of one selection scan.
type Selection struct {
	Algorithm  string
	Set        *SelectedSet
	Scored     int             // threshold tests performed
	Thresholds *ThresholdRange // SIEVE only
	Guess      *GuessOutcome   // SIEVE only
}

// Items returns the selected items in acceptance order.
func (s *Selection) Items() []StreamItem { return s.Set.Items() }

// Counts returns the per-class counts of the selected items.
func (s *Selection) Counts() LabelCounts { return s.Set.Counts().Clone() }

// Selector runs one selection scan over an ordered stream under a budget.
// Implementations never reorder the stream and never exceed the budget.
type Selector interface {
	Name() string
	Budget() int
	Select(ctx context.Context, rc *RoundContext, stream Stream, tr *trace.SelectionTrace) (*Selection, error)
}

// SelectorConfig groups the parameters NewSelector needs.
type SelectorConfig struct {
	Algorithm  string
	Budget     int
	Schedule   ThresholdSchedule // dmgt
	Epsilon    float64           // sieve
	GuessFloor float64           // sieve (m)
	RNG        *rand.Rand        // rand
}

// NewSelector creates a selector by algorithm name.
// Valid names are defined in validAlgorithms.
// Returns a ConfigurationError for an invalid budget or parameters; panics on
// unrecognized names (validation should catch this before reaching here).
func NewSelector(cfg SelectorConfig) (Selector, error) {
	if !IsValidAlgorithm(cfg.Algorithm) {
		panic(fmt.Sprintf("unknown selection algorithm %q", cfg.Algorithm))
	}
	switch cfg.Algorithm {
	case AlgorithmDMGT:
		return NewThresholdSelector(cfg.Schedule, cfg.Budget)
	case AlgorithmSieve:
		return NewSieveSelector(cfg.Epsilon, cfg.GuessFloor, cfg.Budget)
	case AlgorithmRandom:
		return NewRandomSelector(cfg.RNG, cfg.Budget)
	default:
		panic(fmt.Sprintf("unhandled selection algorithm %q", cfg.Algorithm))
	}
}

func validateBudget(budget int) error {
	if budget <= 0 {
		return configError("budget", ErrNonPositiveBudget, "got %d", budget)
	}
	return nil
}
