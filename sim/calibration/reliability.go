package calibration

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/stream-select/dmgt-sim/sim"
)

// DefaultNumBins is the number of reliability bins: lower edges 0.0, 0.1, …, 1.0.
const DefaultNumBins = 11

// Bin is one reliability-curve bucket.
type Bin struct {
	Lower    float64 `json:"lower"`
	Count    int     `json:"count"`
	Correct  int     `json:"correct"`
	Accuracy float64 `json:"accuracy"` // Correct/Count; 0 when Count is 0
}

// Reliability holds binned accuracy of top-class scores, split by the rarity
// group of the true label.
type Reliability struct {
	Rare   []Bin `json:"rare"`
	Common []Bin `json:"common"`
	All    []Bin `json:"all"`
}

// ReliabilityCurve bins the (calibrated, when cal has a model for the
// predicted class's group) top-class score of each item and records how often
// the prediction was correct. Rare and common rows are filed by the item's
// true label, so a misclassified rare item still counts as rare. Bin k covers scores in [k/(numBins−1), (k+1)/(numBins−1)).
func ReliabilityCurve(clf sim.Classifier, cal *sim.CalibrationSet, rarity sim.Rarity, items []sim.StreamItem, numBins int) Reliability {
	if numBins < 2 {
		numBins = DefaultNumBins
	}
	r := Reliability{Rare: newBins(numBins), Common: newBins(numBins), All: newBins(numBins)}
	for _, it := range items {
		probs := clf.Predict(it.Features)
		pred := floats.MaxIdx(probs)
		score := probs[pred]
		if model := cal.ForClass(pred, rarity); model != nil {
			score = model.Predict(score)
		}
		idx := int(math.Floor(score * float64(numBins-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= numBins {
			idx = numBins - 1
		}
		hit := pred == it.Label
		addTo(r.All, idx, hit)
		if rarity.IsRare(it.Label) {
			addTo(r.Rare, idx, hit)
		} else {
			addTo(r.Common, idx, hit)
		}
	}
	for _, bins := range [][]Bin{r.Rare, r.Common, r.All} {
		for i := range bins {
			if bins[i].Count > 0 {
				bins[i].Accuracy = float64(bins[i].Correct) / float64(bins[i].Count)
			}
		}
	}
	return r
}

func newBins(n int) []Bin {
	bins := make([]Bin, n)
	for i := range bins {
		bins[i].Lower = float64(i) / float64(n-1)
	}
	return bins
}

func addTo(bins []Bin, idx int, hit bool) {
	bins[idx].Count++
	if hit {
		bins[idx].Correct++
	}
}
