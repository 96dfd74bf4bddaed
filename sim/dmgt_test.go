package sim

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stream-select/dmgt-sim/sim/trace"
)

// twoClassStream builds n items with random labels in {0,1} and random
// per-item confidences, so acceptance depends on both label and confidence.
func twoClassStream(seed int64, n int) ([]StreamItem, tableClassifier) {
	rng := rand.New(rand.NewSource(seed))
	items := make([]StreamItem, n)
	dists := make([][]float64, n)
	for i := range items {
		label := rng.Intn(2)
		p := 0.5 + 0.5*rng.Float64()
		dist := []float64{1 - p, p}
		if label == 0 {
			dist = []float64{p, 1 - p}
		}
		dists[i] = dist
		items[i] = StreamItem{ID: i, Features: []float64{float64(label), float64(i)}, Label: label}
	}
	return items, tableClassifier{dists: dists}
}

func TestThresholdSelector_AcceptsExactlyItemsAboveThreshold(t *testing.T) {
	// GIVEN 100 items over 2 classes, uniform threshold 0.1, budget 20
	items, clf := twoClassStream(11, 100)
	rc := &RoundContext{NumClasses: 2, Classifier: clf, Rarity: DefaultRarity(2), Coverage: CoveragePredicted}
	sel, err := NewThresholdSelector(UniformSchedule(0.1, 1), 20)
	require.NoError(t, err)

	// WHEN selected
	got, err := sel.Select(bg, rc, directStream(items), nil)
	require.NoError(t, err)

	// THEN the selection matches an independent replay of the rule:
	// bootstrap item, then every item with p_ŷ·(sqrt(n_ŷ+1)−sqrt(n_ŷ)) ≥ 0.1, stopping at 20
	wantIDs := []int{items[0].ID}
	counts := []int{0, 0}
	counts[items[0].Label]++
	for _, it := range items[1:] {
		if len(wantIDs) == 20 {
			break
		}
		dist := clf.dists[it.ID]
		pred := 0
		if dist[1] > dist[0] {
			pred = 1
		}
		n := float64(counts[pred])
		if dist[pred]*(math.Sqrt(n+1)-math.Sqrt(n)) >= 0.1 {
			wantIDs = append(wantIDs, it.ID)
			counts[it.Label]++
		}
	}
	gotIDs := make([]int, 0, got.Set.Len())
	for _, it := range got.Items() {
		gotIDs = append(gotIDs, it.ID)
	}
	if diff := cmp.Diff(wantIDs, gotIDs); diff != "" {
		t.Errorf("selected IDs mismatch (-want +got):\n%s", diff)
	}
	assert.LessOrEqual(t, got.Set.Len(), 20)
}

func TestThresholdSelector_BootstrapAcceptedUnconditionally(t *testing.T) {
	// GIVEN a threshold no item can reach
	rc := newTestContext(2, 0.9)
	sel, err := NewThresholdSelector(UniformSchedule(5, 1), 10)
	require.NoError(t, err)

	got, err := sel.Select(bg, rc, directStream(labeledItems(1, 0, 1, 0)), nil)
	require.NoError(t, err)

	// THEN only the first item is kept
	assert.Equal(t, []int{1}, got.Set.Labels())
	assert.Equal(t, 3, got.Scored)
}

func TestThresholdSelector_TieIsAccepted(t *testing.T) {
	// GIVEN certain predictions and tau exactly equal to sqrt(2)-1 (gain of the second item of a class)
	rc := newTestContext(1, 1)
	tau := math.Sqrt(2) - 1
	sel, err := NewThresholdSelector(ThresholdSchedule{tau}, 10)
	require.NoError(t, err)

	got, err := sel.Select(bg, rc, directStream(labeledItems(0, 0, 0)), nil)
	require.NoError(t, err)

	// THEN the tie is accepted, the next (smaller gain) is not
	assert.Equal(t, 2, got.Set.Len())
}

func TestThresholdSelector_BudgetNeverExceeded(t *testing.T) {
	for _, budget := range []int{1, 2, 5, 17} {
		items, clf := twoClassStream(int64(budget), 200)
		rc := &RoundContext{NumClasses: 2, Classifier: clf, Coverage: CoveragePredicted}
		tr := trace.NewSelectionTrace(trace.TraceConfig{Level: trace.TraceLevelDecisions})
		sel, err := NewThresholdSelector(UniformSchedule(0, 1), budget)
		require.NoError(t, err)

		got, err := sel.Select(bg, rc, directStream(items), tr)
		require.NoError(t, err)

		assert.Equal(t, budget, got.Set.Len(), "threshold 0 fills the budget")
		accepted := 0
		for _, d := range tr.Decisions {
			if d.Accepted {
				accepted++
			}
			require.LessOrEqual(t, accepted, budget)
		}
	}
}

func TestThresholdSelector_SameInputs_IdenticalSelections(t *testing.T) {
	items, clf := twoClassStream(3, 300)
	rc := &RoundContext{NumClasses: 2, Classifier: clf, Coverage: CoveragePredicted}
	sel, err := NewThresholdSelector(UniformSchedule(0.05, 1), 60)
	require.NoError(t, err)

	a, err := sel.Select(bg, rc, directStream(items), nil)
	require.NoError(t, err)
	b, err := sel.Select(bg, rc, directStream(items), nil)
	require.NoError(t, err)

	if diff := cmp.Diff(a.Items(), b.Items()); diff != "" {
		t.Errorf("non-deterministic selection (-a +b):\n%s", diff)
	}
}

func TestThresholdSelector_UsesRoundThreshold(t *testing.T) {
	// round 0 accepts everything, round 1 nothing but the bootstrap
	schedule := ThresholdSchedule{0, 10}
	sel, err := NewThresholdSelector(schedule, 10)
	require.NoError(t, err)
	items := labeledItems(0, 1, 0, 1)

	rc := newTestContext(2, 0.9)
	r0, err := sel.Select(bg, rc, directStream(items), nil)
	require.NoError(t, err)
	rc.Round = 1
	r1, err := sel.Select(bg, rc, directStream(items), nil)
	require.NoError(t, err)

	assert.Equal(t, 4, r0.Set.Len())
	assert.Equal(t, 1, r1.Set.Len())
}

func TestThresholdSelector_RoundPastSchedule_ConfigurationError(t *testing.T) {
	sel, err := NewThresholdSelector(ThresholdSchedule{0.1}, 10)
	require.NoError(t, err)
	rc := newTestContext(2, 0.9)
	rc.Round = 1

	_, err = sel.Select(bg, rc, directStream(labeledItems(0, 1)), nil)

	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
	assert.True(t, errors.Is(err, ErrScheduleTooShort))
}

func TestThresholdSelector_EmptyStream_EmptySelection(t *testing.T) {
	sel, err := NewThresholdSelector(ThresholdSchedule{0.1}, 10)
	require.NoError(t, err)

	got, err := sel.Select(bg, newTestContext(2, 0.9), directStream(nil), nil)

	require.NoError(t, err)
	assert.Equal(t, 0, got.Set.Len())
}

func TestNewThresholdSelector_NonPositiveBudget(t *testing.T) {
	for _, budget := range []int{0, -3} {
		_, err := NewThresholdSelector(ThresholdSchedule{0.1}, budget)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNonPositiveBudget))
	}
}

func TestThresholdSelector_CancelledContext(t *testing.T) {
	ctx, cancel := contextWithCancel()
	cancel()
	sel, err := NewThresholdSelector(ThresholdSchedule{0}, 10)
	require.NoError(t, err)

	_, err = sel.Select(ctx, newTestContext(2, 0.9), directStream(labeledItems(0, 1, 0)), nil)

	assert.Error(t, err)
}
