package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_Idempotent(t *testing.T) {
	reg := prometheus.NewRegistry()

	require.NoError(t, Register(reg))
	require.NoError(t, Register(reg))
}

func TestObserveSelection(t *testing.T) {
	scored := itemsScoredTotal.WithLabelValues("dmgt", "agent")
	selected := itemsSelectedTotal.WithLabelValues("dmgt", "agent")
	closed := guessesClosedTotal.WithLabelValues("agent")
	beforeScored, beforeSelected, beforeClosed := testutil.ToFloat64(scored), testutil.ToFloat64(selected), testutil.ToFloat64(closed)

	ObserveSelection("dmgt", "agent", 99, 20, 0)

	assert.Equal(t, beforeScored+99, testutil.ToFloat64(scored))
	assert.Equal(t, beforeSelected+20, testutil.ToFloat64(selected))
	assert.Equal(t, beforeClosed, testutil.ToFloat64(closed))
}

func TestObserveSelection_GuessesClosed(t *testing.T) {
	closed := guessesClosedTotal.WithLabelValues("central")
	before := testutil.ToFloat64(closed)

	ObserveSelection("sieve", "central", 10, 5, 3)

	assert.Equal(t, before+3, testutil.ToFloat64(closed))
}

func TestObserveCalibrationSkipped(t *testing.T) {
	c := calibrationSkippedTotal.WithLabelValues("rare")
	before := testutil.ToFloat64(c)

	ObserveCalibrationSkipped("rare")

	assert.Equal(t, before+1, testutil.ToFloat64(c))
}

func TestObserveRound_Exposed(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))

	ObserveRound("sieve", 3*time.Millisecond)
	ObserveRound("sieve", -time.Second)

	n, err := testutil.GatherAndCount(reg, "dmgt_sim_round_seconds")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 1)

	families, err := reg.Gather()
	require.NoError(t, err)
	var found bool
	for _, mf := range families {
		if strings.HasSuffix(mf.GetName(), "round_seconds") {
			found = true
		}
	}
	assert.True(t, found)
}
