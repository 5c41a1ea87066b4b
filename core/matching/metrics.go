package matching

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	matchLatency       *prometheus.HistogramVec
	candidatesReturned *prometheus.CounterVec
	emptyMatches       *prometheus.CounterVec
)

func newCollectors() (*prometheus.HistogramVec, *prometheus.CounterVec, *prometheus.CounterVec) {
	lat := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "match_duration_seconds",
			Help:    "Time spent ranking candidates for a mission",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
	cand := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "match_candidates_total",
			Help: "Number of eligible candidates returned by matching",
		},
		[]string{"kind"},
	)
	empty := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "match_empty_results_total",
			Help: "Number of match calls where no resource qualified",
		},
		[]string{"kind"},
	)
	return lat, cand, empty
}

func init() {
	matchLatency, candidatesReturned, emptyMatches = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers matching metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(matchLatency, candidatesReturned, emptyMatches)
}

// ResetMetrics reinitializes the collectors for tests and registers them on
// reg if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	matchLatency, candidatesReturned, emptyMatches = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
