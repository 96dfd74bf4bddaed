package experiment

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stream-select/dmgt-sim/sim"
	"github.com/stream-select/dmgt-sim/sim/internal/testutil"
)

func TestEvaluate_RareAccuracyByTrueLabel(t *testing.T) {
	// GIVEN 4 classes (rare 0,1): rare items 2/3 correct, common items 1/1
	clf := testutil.OracleClassifier{NumClasses: 4, Confidence: 0.7}
	test := testutil.PredictedAs(0, []int{0, 1, 3, 2}, []int{0, 1, 0, 2})

	acc := Evaluate(clf, test, sim.DefaultRarity(4))

	assert.InDelta(t, 2.0/3.0, acc.Rare, 1e-12)
	assert.InDelta(t, 0.75, acc.Overall, 1e-12)
}

func TestEvaluate_Empty(t *testing.T) {
	acc := Evaluate(testutil.OracleClassifier{NumClasses: 2, Confidence: 1}, nil, sim.DefaultRarity(2))
	assert.Equal(t, Accuracy{}, acc)
}
