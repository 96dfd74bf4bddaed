package sim

import (
	"context"
	"math"
)

// oracleClassifier predicts the class stored in features[0] with probability
// confidence and spreads the remainder evenly over the other classes.
type oracleClassifier struct {
	numClasses int
	confidence float64
}

func (o oracleClassifier) Predict(features []float64) []float64 {
	probs := make([]float64, o.numClasses)
	pred := int(features[0])
	if o.numClasses == 1 {
		probs[0] = 1
		return probs
	}
	rest := (1 - o.confidence) / float64(o.numClasses-1)
	for c := range probs {
		probs[c] = rest
	}
	probs[pred] = o.confidence
	return probs
}

func (o oracleClassifier) Retrain(_ []StreamItem) (Classifier, error) { return o, nil }

// tableClassifier returns dists[int(features[1])], letting a test fix the
// distribution of each item independently of its label.
type tableClassifier struct {
	dists [][]float64
}

func (t tableClassifier) Predict(features []float64) []float64 {
	return t.dists[int(features[1])]
}

func (t tableClassifier) Retrain(_ []StreamItem) (Classifier, error) { return t, nil }

// constCalibration maps every raw score to one value.
type constCalibration float64

func (c constCalibration) Predict(_ float64) float64 { return float64(c) }

// labeledItems builds items whose predicted class equals their label.
func labeledItems(labels ...int) []StreamItem {
	items := make([]StreamItem, len(labels))
	for i, l := range labels {
		items[i] = StreamItem{ID: i, Features: []float64{float64(l), float64(i)}, Label: l}
	}
	return items
}

func newTestContext(numClasses int, confidence float64) *RoundContext {
	return &RoundContext{
		NumClasses: numClasses,
		Classifier: oracleClassifier{numClasses: numClasses, confidence: confidence},
		Rarity:     DefaultRarity(numClasses),
		Coverage:   CoveragePredicted,
	}
}

func directStream(items []StreamItem) Stream {
	return Stream{Items: items, Agent: AgentCentral, Tier: TierDirect}
}

var bg = context.Background()

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

func contextWithCancel() (context.Context, context.CancelFunc) {
	return context.WithCancel(context.Background())
}
