package sim

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Utility holds the coverage objective evaluated with and without a candidate.
type Utility struct {
	With    float64
	Without float64
}

// Marginal returns With − Without, the quantity threshold rules compare against.
func (u Utility) Marginal() float64 { return u.With - u.Without }

// UtilityEstimator scores candidates against a per-class count vector using
// the round's classifier and (optional) calibration. It never mutates counts.
type UtilityEstimator struct {
	rc *RoundContext
}

// NewUtilityEstimator binds an estimator to a round context.
func NewUtilityEstimator(rc *RoundContext) *UtilityEstimator {
	return &UtilityEstimator{rc: rc}
}

// Score evaluates the probability-weighted square-root coverage of counts
// before and after hypothetically adding item.
func (e *UtilityEstimator) Score(counts LabelCounts, item StreamItem) Utility {
	probs, pred := e.Distribution(item)
	return e.ScoreDistribution(counts, probs, pred)
}

// ScoreDistribution is Score for an already computed class distribution and
// predicted class. SIEVE uses it to score one item against many candidate
// sets with a single classifier call.
func (e *UtilityEstimator) ScoreDistribution(counts LabelCounts, probs []float64, pred int) Utility {
	without := 0.0
	for c, p := range probs {
		without += p * math.Sqrt(float64(counts[c]))
	}

	var with float64
	switch e.rc.Coverage {
	case CoverageExpected:
		for c, p := range probs {
			with += p * math.Sqrt(float64(counts[c]+1))
		}
	default:
		n := float64(counts[pred])
		with = without + probs[pred]*(math.Sqrt(n+1)-math.Sqrt(n))
	}
	return Utility{With: with, Without: without}
}

// Distribution returns the (calibrated, if enabled) class distribution for
// item and its predicted class. The prediction is the argmax of the raw
// classifier output; calibration may lower its probability below another
// class without changing which class is credited.
// The classifier's output is copied, never modified.
func (e *UtilityEstimator) Distribution(item StreamItem) ([]float64, int) {
	raw := e.rc.Classifier.Predict(item.Features)
	probs := make([]float64, len(raw))
	copy(probs, raw)

	pred := floats.MaxIdx(probs)
	model := e.rc.Calibration.ForClass(pred, e.rc.Rarity)
	if model == nil {
		return probs, pred
	}
	return Recalibrate(probs, pred, model.Predict(probs[pred])), pred
}

// Recalibrate replaces probs[pred] with calibrated and redistributes the
// residual mass 1 − calibrated across the other classes in proportion to their
// current mass. When the other classes hold no mass (top score of 1) there is
// nothing to redistribute and only probs[pred] changes. probs is modified in
// place and returned.
func Recalibrate(probs []float64, pred int, calibrated float64) []float64 {
	residual := floats.Sum(probs) - probs[pred]
	if residual > 0 {
		scale := (1 - calibrated) / residual
		for c := range probs {
			if c != pred {
				probs[c] *= scale
			}
		}
	}
	probs[pred] = calibrated
	return probs
}
