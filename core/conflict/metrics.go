package conflict

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	detectionLatency prometheus.Histogram
	openConflicts    *prometheus.GaugeVec
	skippedRecords   prometheus.Counter
)

func newCollectors() (prometheus.Histogram, *prometheus.GaugeVec, prometheus.Counter) {
	lat := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "conflict_detection_duration_seconds",
		Help:    "Duration of a full conflict detection pass",
		Buckets: prometheus.DefBuckets,
	})
	open := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "conflicts_open",
			Help: "Conflicts found by the latest detection pass",
		},
		[]string{"type", "severity"},
	)
	skipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "conflict_skipped_records_total",
		Help: "Malformed records skipped during detection",
	})
	return lat, open, skipped
}

func init() {
	detectionLatency, openConflicts, skippedRecords = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers conflict metrics on reg, or on
// prometheus.DefaultRegisterer when reg is nil.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(detectionLatency, openConflicts, skippedRecords)
}

// ResetMetrics reinitializes the collectors for tests.
func ResetMetrics(reg prometheus.Registerer) {
	detectionLatency, openConflicts, skippedRecords = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}

func observe(r Report, d time.Duration) {
	detectionLatency.Observe(d.Seconds())
	skippedRecords.Add(float64(len(r.Skipped)))
	openConflicts.Reset()
	for _, c := range r.Conflicts {
		openConflicts.WithLabelValues(c.Type.String(), c.Severity.String()).Inc()
	}
}
