package experiment

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/stream-select/dmgt-sim/sim"
)

// Accuracy is test accuracy overall and on items with a rare true label.
type Accuracy struct {
	Rare    float64 `json:"rare"`
	Overall float64 `json:"overall"`
}

// Evaluate scores clf's argmax predictions on test items.
// An empty group scores 0.
func Evaluate(clf sim.Classifier, test []sim.StreamItem, rarity sim.Rarity) Accuracy {
	all := make([]float64, 0, len(test))
	var rare []float64
	for _, it := range test {
		hit := 0.0
		if floats.MaxIdx(clf.Predict(it.Features)) == it.Label {
			hit = 1
		}
		all = append(all, hit)
		if rarity.IsRare(it.Label) {
			rare = append(rare, hit)
		}
	}
	return Accuracy{Rare: mean(rare), Overall: mean(all)}
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}
