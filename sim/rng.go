package sim

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"sync"
)

// RNG subsystems. Each draws from its own stream, so adding draws to one
// (say, a longer trial) never shifts the values another sees.
const (
	// SubsystemWorkload generates centroids and the shared splits. Seeded
	// with the experiment seed itself.
	SubsystemWorkload = "workload"
	// SubsystemBaseline seeds the random-sampling baseline.
	SubsystemBaseline = "rand-baseline"
)

// SubsystemAgent names agent id's pool-generation stream.
func SubsystemAgent(id int) string { return fmt.Sprintf("agent_%d", id) }

// SubsystemTrial names the stream that shuffles agent pools in one trial.
func SubsystemTrial(trial int) string { return fmt.Sprintf("trial_%d", trial) }

// PartitionedRNG hands out one seeded generator per subsystem. A subsystem's
// seed is the experiment seed XOR the FNV-1a hash of its name, except
// SubsystemWorkload, which uses the seed unchanged.
//
// Lookups are safe for concurrent use; the returned generators are not and
// belong to a single goroutine.
type PartitionedRNG struct {
	seed int64

	mu         sync.Mutex
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates the generator set for an experiment seed.
func NewPartitionedRNG(seed int64) *PartitionedRNG {
	return &PartitionedRNG{seed: seed, subsystems: make(map[string]*rand.Rand)}
}

// Seed returns the experiment seed.
func (p *PartitionedRNG) Seed() int64 { return p.seed }

// ForSubsystem returns the generator for name, creating it on first use.
// Repeated calls return the same instance.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.subsystem(name)
}

// Derive returns a fresh generator seeded by the next draw of name's stream.
// Successive calls give distinct generators in a reproducible order, one per
// consumer (a trial's agent sources, a lineage's baseline sampler).
func (p *PartitionedRNG) Derive(name string) *rand.Rand {
	p.mu.Lock()
	defer p.mu.Unlock()
	return rand.New(rand.NewSource(p.subsystem(name).Int63()))
}

func (p *PartitionedRNG) subsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	seed := p.seed
	if name != SubsystemWorkload {
		seed ^= subsystemSalt(name)
	}
	rng := rand.New(rand.NewSource(seed))
	p.subsystems[name] = rng
	return rng
}

func subsystemSalt(name string) int64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	return int64(h.Sum64())
}
