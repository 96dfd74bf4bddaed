package sim

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomSelector_BudgetSizedDistinctSubset(t *testing.T) {
	sel, err := NewRandomSelector(rand.New(rand.NewSource(1)), 10)
	require.NoError(t, err)
	items := labeledItems(make([]int, 50)...)

	got, err := sel.Select(bg, newTestContext(1, 1), directStream(items), nil)
	require.NoError(t, err)

	assert.Equal(t, 10, got.Set.Len())
	seen := map[int]bool{}
	for _, it := range got.Items() {
		assert.False(t, seen[it.ID], "duplicate item %d", it.ID)
		seen[it.ID] = true
	}
}

func TestRandomSelector_ShortStream_TakesAll(t *testing.T) {
	sel, err := NewRandomSelector(rand.New(rand.NewSource(1)), 10)
	require.NoError(t, err)

	got, err := sel.Select(bg, newTestContext(1, 1), directStream(labeledItems(0, 0, 0)), nil)
	require.NoError(t, err)

	assert.Equal(t, 3, got.Set.Len())
}

func TestRandomSelector_SameSeedSameSubset(t *testing.T) {
	items := labeledItems(make([]int, 40)...)
	a, _ := NewRandomSelector(rand.New(rand.NewSource(9)), 5)
	b, _ := NewRandomSelector(rand.New(rand.NewSource(9)), 5)

	ra, err := a.Select(bg, newTestContext(1, 1), directStream(items), nil)
	require.NoError(t, err)
	rb, err := b.Select(bg, newTestContext(1, 1), directStream(items), nil)
	require.NoError(t, err)

	assert.Equal(t, ra.Items(), rb.Items())
}

func TestNewSelector_ByName(t *testing.T) {
	for _, name := range ValidAlgorithmNames() {
		sel, err := NewSelector(SelectorConfig{
			Algorithm:  name,
			Budget:     5,
			Schedule:   ThresholdSchedule{0.1},
			Epsilon:    0.1,
			GuessFloor: 1,
			RNG:        rand.New(rand.NewSource(1)),
		})
		require.NoError(t, err)
		assert.Equal(t, name, sel.Name())
	}
	assert.Panics(t, func() { _, _ = NewSelector(SelectorConfig{Algorithm: "greedy"}) })
}
