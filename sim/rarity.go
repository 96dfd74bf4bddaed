package sim

import (
	"fmt"
	"sort"
)

// Rarity partitions classes into rare (under-represented) and common groups.
type Rarity struct {
	numClasses int
	rare       map[int]bool
}

// Rarity group names used in diagnostics and metrics labels.
const (
	GroupRare   = "rare"
	GroupCommon = "common"
)

// NewRarity marks classes as rare out of numClasses. Returns an error for
// out-of-range or duplicate class indices.
func NewRarity(numClasses int, rareClasses []int) (Rarity, error) {
	r := Rarity{numClasses: numClasses, rare: make(map[int]bool, len(rareClasses))}
	for _, c := range rareClasses {
		if c < 0 || c >= numClasses {
			return Rarity{}, fmt.Errorf("rare class %d out of range [0, %d)", c, numClasses)
		}
		if r.rare[c] {
			return Rarity{}, fmt.Errorf("rare class %d listed twice", c)
		}
		r.rare[c] = true
	}
	return r, nil
}

// DefaultRarity marks the lower half of the class indices as rare
// (class c is rare iff c < numClasses/2).
func DefaultRarity(numClasses int) Rarity {
	r := Rarity{numClasses: numClasses, rare: make(map[int]bool)}
	for c := 0; 2*c < numClasses; c++ {
		r.rare[c] = true
	}
	return r
}

// IsRare reports whether class belongs to the rare group.
func (r Rarity) IsRare(class int) bool { return r.rare[class] }

// Group returns GroupRare or GroupCommon for class.
func (r Rarity) Group(class int) string {
	if r.IsRare(class) {
		return GroupRare
	}
	return GroupCommon
}

// RareClasses returns the rare class indices in ascending order.
func (r Rarity) RareClasses() []int {
	out := make([]int, 0, len(r.rare))
	for c := range r.rare {
		out = append(out, c)
	}
	sort.Ints(out)
	return out
}

// Split partitions counts into (rare total, common total).
func (r Rarity) Split(counts LabelCounts) (rare, common int) {
	for c, n := range counts {
		if r.IsRare(c) {
			rare += n
		} else {
			common += n
		}
	}
	return rare, common
}
