package workload

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stream-select/dmgt-sim/sim"
)

func pool(n int) []sim.StreamItem {
	items := make([]sim.StreamItem, n)
	for i := range items {
		items[i] = sim.StreamItem{ID: i}
	}
	return items
}

func TestShuffledSource_BatchesThenExhausts(t *testing.T) {
	// GIVEN 7 items served in batches of 3
	src := NewShuffledSource(pool(7), 3, rand.New(rand.NewSource(1)))
	ctx := context.Background()

	var sizes []int
	seen := map[int]bool{}
	for {
		batch, err := src.Next(ctx)
		if errors.Is(err, sim.ErrStreamExhausted) {
			break
		}
		require.NoError(t, err)
		sizes = append(sizes, len(batch))
		for _, it := range batch {
			seen[it.ID] = true
		}
	}

	// THEN every item is served exactly once, the last batch short
	assert.Equal(t, []int{3, 3, 1}, sizes)
	assert.Len(t, seen, 7)
	assert.Equal(t, 0, src.Remaining())
}

func TestShuffledSource_DoesNotReorderPool(t *testing.T) {
	p := pool(5)
	NewShuffledSource(p, 5, rand.New(rand.NewSource(1)))

	for i, it := range p {
		assert.Equal(t, i, it.ID)
	}
}

func TestShuffledSource_SameSeedSameOrder(t *testing.T) {
	a := NewShuffledSource(pool(50), 50, rand.New(rand.NewSource(9)))
	b := NewShuffledSource(pool(50), 50, rand.New(rand.NewSource(9)))

	ba, _ := a.Next(context.Background())
	bb, _ := b.Next(context.Background())
	assert.Equal(t, ba, bb)
}

func TestShuffledSource_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewShuffledSource(pool(3), 1, rand.New(rand.NewSource(1))).Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
