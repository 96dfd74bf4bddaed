// Package testutil provides shared test infrastructure for the selection
// engine. It consolidates fixed-distribution classifiers, item builders and
// assertion helpers used across the sim/ sub-package tests.
package testutil

import (
	"math"
	"testing"

	"github.com/stream-select/dmgt-sim/sim"
)

// OracleClassifier predicts the class stored in Features[0] with probability
// Confidence and spreads the remainder evenly over the other classes.
// Retrain returns the same classifier.
type OracleClassifier struct {
	NumClasses int
	Confidence float64
}

// Predict implements sim.Classifier.
func (o OracleClassifier) Predict(features []float64) []float64 {
	probs := make([]float64, o.NumClasses)
	if o.NumClasses == 1 {
		probs[0] = 1
		return probs
	}
	rest := (1 - o.Confidence) / float64(o.NumClasses-1)
	for c := range probs {
		probs[c] = rest
	}
	probs[int(features[0])] = o.Confidence
	return probs
}

// Retrain implements sim.Classifier.
func (o OracleClassifier) Retrain(_ []sim.StreamItem) (sim.Classifier, error) { return o, nil }

// CountingClassifier wraps a classifier and counts Retrain calls on the value
// chain: each retrained copy carries Generation+1.
type CountingClassifier struct {
	sim.Classifier
	Generation int
}

// Retrain implements sim.Classifier.
func (c CountingClassifier) Retrain(items []sim.StreamItem) (sim.Classifier, error) {
	next, err := c.Classifier.Retrain(items)
	if err != nil {
		return nil, err
	}
	return CountingClassifier{Classifier: next, Generation: c.Generation + 1}, nil
}

// PredictedAs builds items whose Features[0] (the oracle's predicted class)
// is pred[i] and whose true label is labels[i]. IDs start at firstID.
func PredictedAs(firstID int, pred, labels []int) []sim.StreamItem {
	items := make([]sim.StreamItem, len(labels))
	for i := range labels {
		items[i] = sim.StreamItem{ID: firstID + i, Features: []float64{float64(pred[i]), float64(i)}, Label: labels[i]}
	}
	return items
}

// Labeled builds items predicted as their own label, IDs starting at firstID.
func Labeled(firstID, agent int, labels ...int) []sim.StreamItem {
	items := PredictedAs(firstID, labels, labels)
	for i := range items {
		items[i].Agent = agent
	}
	return items
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
