// Package calibration fits monotone confidence calibration maps and measures
// how well raw or calibrated top-class scores track accuracy.
//
// The selection engine consumes calibration through sim.CalibrationModel and
// sim.CalibrationSet; this package provides the isotonic-regression model,
// per-rarity-group fitting, and binned reliability curves.
package calibration

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrNoSamples is returned when a fit is attempted on an empty sample.
var ErrNoSamples = errors.New("no calibration samples")

// Isotonic is a fitted isotonic regression from raw score to the probability
// that the prediction is correct. Between knots it interpolates linearly;
// outside the fitted score range it clips to the end values.
// Immutable after FitIsotonic returns; safe for concurrent Predict calls.
type Isotonic struct {
	xs []float64 // strictly increasing knot scores
	ys []float64 // non-decreasing fitted values in [0,1]
}

// FitIsotonic fits a non-decreasing step function to (score, correct) pairs
// using pool-adjacent-violators. Equal scores are merged before pooling.
func FitIsotonic(scores []float64, correct []bool) (*Isotonic, error) {
	if len(scores) != len(correct) {
		return nil, fmt.Errorf("fit isotonic: %d scores but %d outcomes", len(scores), len(correct))
	}
	if len(scores) == 0 {
		return nil, ErrNoSamples
	}

	order := make([]int, len(scores))
	for i := range order {
		if math.IsNaN(scores[i]) {
			return nil, fmt.Errorf("fit isotonic: score %d is NaN", i)
		}
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] < scores[order[b]] })

	// Merge equal scores into weighted points.
	type point struct {
		x, sum, weight float64
	}
	var points []point
	for _, i := range order {
		y := 0.0
		if correct[i] {
			y = 1
		}
		if n := len(points); n > 0 && points[n-1].x == scores[i] {
			points[n-1].sum += y
			points[n-1].weight++
			continue
		}
		points = append(points, point{x: scores[i], sum: y, weight: 1})
	}

	// Pool adjacent violators: a block covers points[start:end].
	type block struct {
		start, end  int
		sum, weight float64
	}
	blocks := make([]block, 0, len(points))
	for i, p := range points {
		blocks = append(blocks, block{start: i, end: i + 1, sum: p.sum, weight: p.weight})
		for n := len(blocks); n > 1; n = len(blocks) {
			prev, last := blocks[n-2], blocks[n-1]
			if prev.sum/prev.weight <= last.sum/last.weight {
				break
			}
			blocks[n-2] = block{start: prev.start, end: last.end, sum: prev.sum + last.sum, weight: prev.weight + last.weight}
			blocks = blocks[:n-1]
		}
	}

	iso := &Isotonic{xs: make([]float64, len(points)), ys: make([]float64, len(points))}
	for _, b := range blocks {
		y := clip01(b.sum / b.weight)
		for i := b.start; i < b.end; i++ {
			iso.xs[i] = points[i].x
			iso.ys[i] = y
		}
	}
	return iso, nil
}

// Predict maps a raw score to its calibrated value in [0,1].
func (m *Isotonic) Predict(raw float64) float64 {
	n := len(m.xs)
	if raw <= m.xs[0] || math.IsNaN(raw) {
		return m.ys[0]
	}
	if raw >= m.xs[n-1] {
		return m.ys[n-1]
	}
	hi := sort.SearchFloat64s(m.xs, raw)
	if m.xs[hi] == raw {
		return m.ys[hi]
	}
	lo := hi - 1
	frac := (raw - m.xs[lo]) / (m.xs[hi] - m.xs[lo])
	return clip01(m.ys[lo] + frac*(m.ys[hi]-m.ys[lo]))
}

// Knots returns copies of the fitted knot scores and values.
func (m *Isotonic) Knots() (xs, ys []float64) {
	return append([]float64(nil), m.xs...), append([]float64(nil), m.ys...)
}

func clip01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
