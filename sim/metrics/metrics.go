// Package metrics exposes Prometheus collectors for selection activity.
// Collectors are package-level and only observed after Register attaches
// them to a registerer; observing unregistered collectors is harmless.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "dmgt_sim"

var (
	itemsScoredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_scored_total",
			Help:      "Stream items tested against a threshold, partitioned by algorithm and tier.",
		},
		[]string{"algorithm", "tier"},
	)

	itemsSelectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_selected_total",
			Help:      "Stream items in a finalized selected set, partitioned by algorithm and tier.",
		},
		[]string{"algorithm", "tier"},
	)

	guessesClosedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sieve_guesses_closed_total",
			Help:      "SIEVE guesses whose candidate set reached the budget during a scan.",
		},
		[]string{"tier"},
	)

	calibrationSkippedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calibration_skipped_total",
			Help:      "Calibration fits skipped for lack of validation samples, partitioned by rarity group.",
		},
		[]string{"group"},
	)

	roundDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "round_seconds",
			Help:      "Wall time of one selection round of one lineage, including retraining.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		},
		[]string{"lineage"},
	)
)

// Register attaches the selection collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		itemsScoredTotal,
		itemsSelectedTotal,
		guessesClosedTotal,
		calibrationSkippedTotal,
		roundDurationSeconds,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveSelection records one finished scan.
func ObserveSelection(algorithm, tier string, scored, selected, guessesClosed int) {
	itemsScoredTotal.WithLabelValues(algorithm, tier).Add(float64(scored))
	itemsSelectedTotal.WithLabelValues(algorithm, tier).Add(float64(selected))
	if guessesClosed > 0 {
		guessesClosedTotal.WithLabelValues(tier).Add(float64(guessesClosed))
	}
}

// ObserveCalibrationSkipped records a rarity group left uncalibrated.
func ObserveCalibrationSkipped(group string) {
	calibrationSkippedTotal.WithLabelValues(group).Inc()
}

// ObserveRound records the duration of one lineage's round.
func ObserveRound(lineage string, duration time.Duration) {
	if duration < 0 {
		duration = 0
	}
	roundDurationSeconds.WithLabelValues(lineage).Observe(duration.Seconds())
}
