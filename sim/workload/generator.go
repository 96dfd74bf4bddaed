package workload

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/stream-select/dmgt-sim/sim"
)

// Dataset is every labeled split one experiment uses.
type Dataset struct {
	Initial          []sim.StreamItem   // pooled initial training items
	InitialByAgent   [][]sim.StreamItem // each agent's contribution to Initial
	Pools            [][]sim.StreamItem // per-agent stream pools
	RareValidation   []sim.StreamItem   // validation items with a rare true label
	CommonValidation []sim.StreamItem   // validation items with a common true label
	Test             []sim.StreamItem   // balanced across classes
}

// Generator draws labeled items from fixed Gaussian class clusters.
// Not thread-safe.
type Generator struct {
	spec       Spec
	numClasses int
	rarity     sim.Rarity
	centroids  [][]float64
	nextID     int
}

// NewGenerator validates spec and places the class centroids using the
// workload subsystem of rng.
func NewGenerator(spec Spec, numClasses int, rarity sim.Rarity, rng *sim.PartitionedRNG) (*Generator, error) {
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid workload spec: %w", err)
	}
	if numClasses < 1 {
		return nil, fmt.Errorf("num classes must be positive, got %d", numClasses)
	}
	src := rng.ForSubsystem(sim.SubsystemWorkload)
	g := &Generator{spec: spec, numClasses: numClasses, rarity: rarity, centroids: make([][]float64, numClasses)}
	for k := range g.centroids {
		c := make([]float64, spec.Dim)
		for d := range c {
			c[d] = src.NormFloat64()
		}
		if norm := floats.Norm(c, 2); norm > 0 {
			floats.Scale(spec.Separation/norm, c)
		}
		g.centroids[k] = c
	}
	return g, nil
}

// Centroid returns a copy of class k's cluster center.
func (g *Generator) Centroid(k int) []float64 {
	return append([]float64(nil), g.centroids[k]...)
}

// Generate draws the full dataset for numAgents agents. Agent a's initial
// items and stream pool come from its own RNG subsystem and its own
// imbalance ratio; validation and test splits are class-balanced.
// Deterministic given the same spec, numClasses and rng seed.
func (g *Generator) Generate(numAgents int, rng *sim.PartitionedRNG) (*Dataset, error) {
	if numAgents < 1 {
		return nil, fmt.Errorf("num agents must be positive, got %d", numAgents)
	}
	ds := &Dataset{
		InitialByAgent: make([][]sim.StreamItem, numAgents),
		Pools:          make([][]sim.StreamItem, numAgents),
	}
	perAgentInit := int(math.Ceil(float64(g.spec.InitPoints) / float64(numAgents)))
	for a := 0; a < numAgents; a++ {
		src := rng.ForSubsystem(sim.SubsystemAgent(a))
		weights := g.classWeights(g.spec.ImbalanceFor(a))
		ds.InitialByAgent[a] = g.sampleWeighted(src, a, perAgentInit, weights)
		ds.Initial = append(ds.Initial, ds.InitialByAgent[a]...)
		ds.Pools[a] = g.sampleWeighted(src, a, g.spec.PoolSize, weights)
	}

	src := rng.ForSubsystem(sim.SubsystemWorkload)
	rare, common := g.groupClasses()
	ds.RareValidation = g.sampleBalanced(src, rare, g.spec.ValidationPoints)
	ds.CommonValidation = g.sampleBalanced(src, common, g.spec.ValidationPoints)
	all := make([]int, g.numClasses)
	for k := range all {
		all[k] = k
	}
	ds.Test = g.sampleBalanced(src, all, g.spec.TestPoints)
	return ds, nil
}

// classWeights gives common classes weight 1 and rare classes 1/imbalance.
func (g *Generator) classWeights(imbalance float64) []float64 {
	w := make([]float64, g.numClasses)
	for k := range w {
		w[k] = 1
		if g.rarity.IsRare(k) {
			w[k] = 1 / imbalance
		}
	}
	return w
}

func (g *Generator) groupClasses() (rare, common []int) {
	for k := 0; k < g.numClasses; k++ {
		if g.rarity.IsRare(k) {
			rare = append(rare, k)
		} else {
			common = append(common, k)
		}
	}
	return rare, common
}

func (g *Generator) sampleWeighted(src *rand.Rand, agent, n int, weights []float64) []sim.StreamItem {
	cum := make([]float64, len(weights))
	floats.CumSum(cum, weights)
	total := cum[len(cum)-1]
	items := make([]sim.StreamItem, n)
	for i := range items {
		label := sort.SearchFloat64s(cum, src.Float64()*total)
		if label >= g.numClasses {
			label = g.numClasses - 1
		}
		items[i] = g.sample(src, agent, label)
	}
	return items
}

// sampleBalanced draws n items cycling through classes, then shuffles them.
func (g *Generator) sampleBalanced(src *rand.Rand, classes []int, n int) []sim.StreamItem {
	if len(classes) == 0 {
		return nil
	}
	items := make([]sim.StreamItem, n)
	for i := range items {
		items[i] = g.sample(src, sim.AgentCentral, classes[i%len(classes)])
	}
	src.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })
	return items
}

func (g *Generator) sample(src *rand.Rand, agent, label int) sim.StreamItem {
	x := make([]float64, g.spec.Dim)
	for d := range x {
		x[d] = g.centroids[label][d] + g.spec.Noise*src.NormFloat64()
	}
	it := sim.StreamItem{ID: g.nextID, Agent: agent, Features: x, Label: label}
	g.nextID++
	return it
}
