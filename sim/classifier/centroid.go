// Package classifier provides a reference sim.Classifier: a nearest-centroid
// model whose class distribution is a softmax over negative squared distances.
//
// Retraining folds the new items into running per-class feature sums, so a
// retrained model keeps everything it has seen, the way fine-tuning a network
// on each round's selected set keeps its earlier weights.
package classifier

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/stream-select/dmgt-sim/sim"
)

// DefaultTemperature scales squared distances before the softmax.
const DefaultTemperature = 1.0

// Centroid is an immutable nearest-centroid classifier.
// Safe for concurrent Predict calls; Retrain returns a new value.
type Centroid struct {
	numClasses  int
	dim         int
	temperature float64
	sums        [][]float64 // per-class feature sums
	counts      []int       // per-class training items seen
}

// New returns an untrained classifier that predicts the uniform distribution
// until trained.
func New(numClasses, dim int, temperature float64) (*Centroid, error) {
	if numClasses < 1 {
		return nil, fmt.Errorf("classifier: numClasses must be >= 1, got %d", numClasses)
	}
	if dim < 1 {
		return nil, fmt.Errorf("classifier: dim must be >= 1, got %d", dim)
	}
	if !(temperature > 0) || math.IsInf(temperature, 0) {
		return nil, fmt.Errorf("classifier: temperature must be a finite positive number, got %v", temperature)
	}
	c := &Centroid{
		numClasses:  numClasses,
		dim:         dim,
		temperature: temperature,
		sums:        make([][]float64, numClasses),
		counts:      make([]int, numClasses),
	}
	for k := range c.sums {
		c.sums[k] = make([]float64, dim)
	}
	return c, nil
}

// Predict returns the softmax over −‖x − μ_c‖²/T for every trained class c.
// Classes never seen in training get probability 0.
func (c *Centroid) Predict(features []float64) []float64 {
	probs := make([]float64, c.numClasses)
	logits := make([]float64, 0, c.numClasses)
	trained := make([]int, 0, c.numClasses)
	mean := make([]float64, c.dim)
	for k, n := range c.counts {
		if n == 0 {
			continue
		}
		floats.ScaleTo(mean, 1/float64(n), c.sums[k])
		d := floats.Distance(features, mean, 2)
		logits = append(logits, -d*d/c.temperature)
		trained = append(trained, k)
	}
	if len(trained) == 0 {
		for k := range probs {
			probs[k] = 1 / float64(c.numClasses)
		}
		return probs
	}
	lse := floats.LogSumExp(logits)
	for i, k := range trained {
		probs[k] = math.Exp(logits[i] - lse)
	}
	return probs
}

// Retrain returns a new classifier that also accounts for items.
// The receiver is unchanged.
func (c *Centroid) Retrain(items []sim.StreamItem) (sim.Classifier, error) {
	next := &Centroid{
		numClasses:  c.numClasses,
		dim:         c.dim,
		temperature: c.temperature,
		sums:        make([][]float64, c.numClasses),
		counts:      append([]int(nil), c.counts...),
	}
	for k := range next.sums {
		next.sums[k] = append([]float64(nil), c.sums[k]...)
	}
	for _, it := range items {
		if it.Label < 0 || it.Label >= c.numClasses {
			return nil, fmt.Errorf("classifier: item %d label %d out of range [0,%d)", it.ID, it.Label, c.numClasses)
		}
		if len(it.Features) != c.dim {
			return nil, fmt.Errorf("classifier: item %d has %d features, want %d", it.ID, len(it.Features), c.dim)
		}
		floats.Add(next.sums[it.Label], it.Features)
		next.counts[it.Label]++
	}
	return next, nil
}

// Seen returns the number of training items per class.
func (c *Centroid) Seen() sim.LabelCounts {
	return append(sim.LabelCounts(nil), c.counts...)
}
