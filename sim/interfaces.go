package sim

import (
	"context"
	"errors"
)

// Classifier predicts class-probability distributions and produces a new
// classifier when retrained on a selected set.
// Predict must be safe for concurrent use: agents share one classifier
// within a round. Retrain must not modify the receiver.
type Classifier interface {
	// Predict returns a distribution over classes that sums to 1.
	Predict(features []float64) []float64
	// Retrain returns a classifier updated with items.
	Retrain(items []StreamItem) (Classifier, error)
}

// CalibrationModel maps a raw top-class confidence to a calibrated one.
// Implementations are monotone non-decreasing and clip to [0,1].
type CalibrationModel interface {
	Predict(raw float64) float64
}

// CalibrationSet holds one CalibrationModel per rarity group.
// A nil member means that group falls back to the uncalibrated score.
type CalibrationSet struct {
	Rare   CalibrationModel
	Common CalibrationModel
}

// ForClass returns the model for the rarity group of class, or nil.
func (cs *CalibrationSet) ForClass(class int, rarity Rarity) CalibrationModel {
	if cs == nil {
		return nil
	}
	if rarity.IsRare(class) {
		return cs.Rare
	}
	return cs.Common
}

// ErrStreamExhausted is returned by StreamSource.Next when no batches remain.
var ErrStreamExhausted = errors.New("stream exhausted")

// StreamSource produces a finite, per-agent sequence of batches.
// There is no rewind: restart by constructing a new source.
type StreamSource interface {
	Next(ctx context.Context) ([]StreamItem, error)
}
