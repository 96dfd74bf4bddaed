package workload

import (
	"context"
	"math/rand"

	"github.com/stream-select/dmgt-sim/sim"
)

// ShuffledSource serves one agent's pool as consecutive fixed-size batches in
// a shuffled order. The shuffle happens once at construction; there is no
// rewind, so each trial builds a fresh source.
type ShuffledSource struct {
	items     []sim.StreamItem
	batchSize int
	pos       int
}

// NewShuffledSource copies pool, shuffles the copy with rng, and serves it
// in batches of batchSize. The last batch may be short.
func NewShuffledSource(pool []sim.StreamItem, batchSize int, rng *rand.Rand) *ShuffledSource {
	items := append([]sim.StreamItem(nil), pool...)
	rng.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })
	return &ShuffledSource{items: items, batchSize: batchSize}
}

// Next returns the next batch, or sim.ErrStreamExhausted once the pool is used up.
func (s *ShuffledSource) Next(ctx context.Context) ([]sim.StreamItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.items) || s.batchSize <= 0 {
		return nil, sim.ErrStreamExhausted
	}
	end := s.pos + s.batchSize
	if end > len(s.items) {
		end = len(s.items)
	}
	batch := s.items[s.pos:end:end]
	s.pos = end
	return batch, nil
}

// Remaining returns how many items have not been served yet.
func (s *ShuffledSource) Remaining() int { return len(s.items) - s.pos }
