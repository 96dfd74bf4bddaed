package sim

import (
	"math"
)

// StreamItem is a (features, true-label) pair observed on an agent's stream.
// Immutable once observed: selectors copy items by value and never write
// through Features.
type StreamItem struct {
	ID       int       // unique within an experiment
	Agent    int       // contributing agent index
	Features []float64 // classifier input
	Label    int       // true class in [0, numClasses)
}

// LabelCounts is the per-class count vector over already-selected labels.
type LabelCounts []int

// NewLabelCounts returns a zeroed count vector for numClasses classes.
func NewLabelCounts(numClasses int) LabelCounts {
	return make(LabelCounts, numClasses)
}

// CountLabels tallies the true labels of items.
func CountLabels(items []StreamItem, numClasses int) LabelCounts {
	counts := NewLabelCounts(numClasses)
	for _, it := range items {
		counts[it.Label]++
	}
	return counts
}

// Clone returns an independent copy.
func (c LabelCounts) Clone() LabelCounts {
	out := make(LabelCounts, len(c))
	copy(out, c)
	return out
}

// Total returns the number of counted items.
func (c LabelCounts) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

// Coverage returns Σ_c sqrt(count_c), the unweighted square-root coverage
// used to rank SIEVE guesses.
func (c LabelCounts) Coverage() float64 {
	total := 0.0
	for _, v := range c {
		total += math.Sqrt(float64(v))
	}
	return total
}

// Add returns the element-wise sum of c and other. Lengths must match.
func (c LabelCounts) Add(other LabelCounts) LabelCounts {
	out := c.Clone()
	for i, v := range other {
		out[i] += v
	}
	return out
}

// SelectedSet is an ordered, capacity-bounded sequence of accepted items.
// The zero value has no capacity; build one with NewSelectedSet.
type SelectedSet struct {
	items  []StreamItem
	counts LabelCounts
	budget int
}

// NewSelectedSet creates an empty set bounded by budget over numClasses classes.
func NewSelectedSet(budget, numClasses int) *SelectedSet {
	return &SelectedSet{
		items:  make([]StreamItem, 0, budget),
		counts: NewLabelCounts(numClasses),
		budget: budget,
	}
}

// Accept appends item if the set has room. Returns false (and leaves the set
// unchanged) once len == budget.
func (s *SelectedSet) Accept(item StreamItem) bool {
	if s.Full() {
		return false
	}
	s.items = append(s.items, item)
	s.counts[item.Label]++
	return true
}

// Full reports whether the budget is exhausted.
func (s *SelectedSet) Full() bool { return len(s.items) >= s.budget }

// Len returns the number of accepted items.
func (s *SelectedSet) Len() int { return len(s.items) }

// Budget returns the capacity.
func (s *SelectedSet) Budget() int { return s.budget }

// Remaining returns budget - len.
func (s *SelectedSet) Remaining() int { return s.budget - len(s.items) }

// Counts returns the live per-class counts. Callers must not mutate it.
func (s *SelectedSet) Counts() LabelCounts { return s.counts }

// Items returns a copy of the accepted items in acceptance order.
func (s *SelectedSet) Items() []StreamItem {
	out := make([]StreamItem, len(s.items))
	copy(out, s.items)
	return out
}

// Labels returns the true labels in acceptance order.
func (s *SelectedSet) Labels() []int {
	out := make([]int, len(s.items))
	for i, it := range s.items {
		out[i] = it.Label
	}
	return out
}
