package experiment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stream-select/dmgt-sim/sim"
	"github.com/stream-select/dmgt-sim/sim/trace"
)

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.NumAgents = 2
	cfg.NumRounds = 2
	cfg.Budget = 10
	cfg.StreamSize = 40
	cfg.NumClasses = 4
	cfg.UniformThresholds = sim.UniformSchedule(0.1, 2)
	cfg.IncreasingThresholds = []float64{0.1, 0.2}
	cfg.Workload.Dim = 3
	cfg.Workload.PoolSize = 100
	cfg.Workload.InitPoints = 8
	cfg.Workload.ValidationPoints = 20
	cfg.Workload.TestPoints = 40
	cfg.Workload.Imbalances = []float64{2, 5}
	return cfg
}

func run(t *testing.T, cfg Config) *Results {
	t.Helper()
	o, err := New(cfg)
	require.NoError(t, err)
	res, err := o.Run(context.Background())
	require.NoError(t, err)
	return res
}

func TestNew_ConfigurationErrorBeforeAnyRound(t *testing.T) {
	cfg := smallConfig()
	cfg.Budget = 0

	o, err := New(cfg)

	assert.Nil(t, o)
	assert.True(t, sim.IsConfigurationError(err))
}

func TestRun_ResultShape(t *testing.T) {
	// GIVEN 1 trial, 2 rounds and all 4 lineages
	cfg := smallConfig()
	res := run(t, cfg)

	// THEN there is one initial record plus one per round for every lineage
	require.Len(t, res.Rounds, 3*4)
	assert.Equal(t, 8, res.InitialSize) // ceil(8/2) per agent
	for i, rr := range res.Rounds {
		assert.Equal(t, i/4, rr.Round, "records are ordered by round")
		assert.Equal(t, res.Lineages[i%4], rr.Lineage, "then by lineage")
	}
}

func TestRun_BudgetAndCumulativeCounts(t *testing.T) {
	cfg := smallConfig()
	res := run(t, cfg)

	for _, lineage := range res.Lineages {
		var cumulative sim.LabelCounts
		for _, rr := range res.Rounds {
			if rr.Lineage != lineage {
				continue
			}
			if rr.Round == 0 {
				cumulative = rr.Cumulative.Clone()
				assert.Equal(t, res.InitialSize, cumulative.Total())
				continue
			}
			// Every round respects the global budget
			assert.LessOrEqual(t, rr.Selected, cfg.Budget, "%s round %d", lineage, rr.Round)
			assert.Equal(t, rr.Selected, rr.Counts.Total())

			cumulative = cumulative.Add(rr.Counts)
			assert.Equal(t, cumulative, rr.Cumulative)
			assert.Equal(t, cumulative.Total(), rr.CumulativeRare+rr.CumulativeCommon)
			assert.GreaterOrEqual(t, rr.Accuracy.Overall, 0.0)
			assert.LessOrEqual(t, rr.Accuracy.Overall, 1.0)
		}
	}
}

func TestRun_LineageDiagnostics(t *testing.T) {
	cfg := smallConfig()
	res := run(t, cfg)

	uniform := res.Final(0, LineageDMGTUniform)
	require.NotNil(t, uniform)
	require.NotNil(t, uniform.Threshold)
	assert.Equal(t, 0.1, *uniform.Threshold)
	assert.Equal(t, sim.BalancedClassSize(0.1), *uniform.BalancedClassSize)
	assert.Len(t, uniform.PerAgentSelected, 2)

	increasing := res.Final(0, LineageDMGTIncreasing)
	require.NotNil(t, increasing.Threshold)
	assert.Equal(t, 0.2, *increasing.Threshold)

	sieve := res.Final(0, LineageSieve)
	require.NotNil(t, sieve.Guess)
	require.NotNil(t, sieve.SieveThresholds)
	assert.Nil(t, sieve.Threshold)

	// RAND samples the raw pooled stream (2 agents x 40 items)
	random := res.Final(0, LineageRandom)
	assert.Equal(t, cfg.Budget, random.Selected)
	assert.Equal(t, 80, random.Pooled)
	assert.Nil(t, random.Guess)
}

func TestRun_Deterministic(t *testing.T) {
	cfg := smallConfig()
	cfg.Trials = 2

	a := run(t, cfg)
	b := run(t, cfg)

	assert.Equal(t, a, b)
}

func TestRun_TrialsStartFromInitialModel(t *testing.T) {
	cfg := smallConfig()
	cfg.Trials = 2
	cfg.Lineages = []string{LineageRandom}
	res := run(t, cfg)

	require.Len(t, res.Rounds, 2*3)
	// Both trials start from the same initial model
	assert.Equal(t, res.Rounds[0].Accuracy, res.Rounds[3].Accuracy)
}

func TestRun_DecisionTraceStampedWithLineage(t *testing.T) {
	cfg := smallConfig()
	cfg.TraceLevel = string(trace.TraceLevelDecisions)
	res := run(t, cfg)

	require.NotNil(t, res.Trace)
	require.NotNil(t, res.TraceSummary)
	assert.Greater(t, res.TraceSummary.TotalDecisions, 0)
	assert.Greater(t, res.TraceSummary.GuessesTracked, 0)
	lineages := map[string]bool{}
	for _, d := range res.Trace.Decisions {
		lineages[d.Lineage] = true
	}
	for _, l := range res.Lineages {
		assert.True(t, lineages[l], "no decisions stamped for %s", l)
	}
	assert.False(t, lineages[""])
}

func TestRun_NoTraceByDefault(t *testing.T) {
	res := run(t, smallConfig())
	assert.Nil(t, res.Trace)
	assert.Nil(t, res.TraceSummary)
}

func TestRun_DegenerateCalibrationRecorded(t *testing.T) {
	// GIVEN no validation data at all
	cfg := smallConfig()
	cfg.Workload.ValidationPoints = 0
	cfg.Lineages = []string{LineageDMGTUniform}

	res := run(t, cfg)

	// THEN every round records both groups as skipped, and the run completes
	for _, rr := range res.Rounds {
		require.Len(t, rr.CalibrationDiagnostics, 2, "round %d", rr.Round)
		assert.Equal(t, sim.GroupRare, rr.CalibrationDiagnostics[0].Group)
		assert.Equal(t, sim.GroupCommon, rr.CalibrationDiagnostics[1].Group)
	}
}

func TestRun_CalibrationDisabled(t *testing.T) {
	cfg := smallConfig()
	cfg.Calibrate = false
	cfg.Workload.ValidationPoints = 0
	cfg.Lineages = []string{LineageSieve}

	for _, rr := range run(t, cfg).Rounds {
		assert.Empty(t, rr.CalibrationDiagnostics)
	}
}

func TestRun_ReliabilityCurves(t *testing.T) {
	cfg := smallConfig()
	cfg.Reliability = true
	cfg.Lineages = []string{LineageDMGTIncreasing}

	for _, rr := range run(t, cfg).Rounds {
		require.NotNil(t, rr.Reliability)
		total := 0
		for _, b := range rr.Reliability.All {
			total += b.Count
		}
		assert.Equal(t, 2*cfg.Workload.ValidationPoints, total)
	}
}

func TestRun_CancelledContext(t *testing.T) {
	o, err := New(smallConfig())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = o.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
