package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/droneops/core/metrics"
)

// PromSink exposes workflow activity as Prometheus collectors.
type PromSink struct {
	detections   prometheus.Counter
	conflicts    *prometheus.GaugeVec
	skipped      prometheus.Counter
	reassigns    *prometheus.CounterVec
	changes      prometheus.Counter
	syncItems    *prometheus.CounterVec
	syncPending  prometheus.Gauge
	syncDuration prometheus.Histogram
	matches      *prometheus.CounterVec
}

// NewPromSink registers the collectors on the default registerer. The
// /metrics endpoint is served separately by StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers the collectors on reg, reusing any that
// are already registered. A nil reg means the default registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	if s.detections, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "detection_passes_total",
		Help: "Conflict detection passes recorded",
	})); err != nil {
		return nil, err
	}
	if s.conflicts, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "detected_conflicts",
		Help: "Conflicts per severity in the latest full detection pass",
	}, []string{"severity"})); err != nil {
		return nil, err
	}
	if s.skipped, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "detection_skipped_records_total",
		Help: "Malformed records reported by detection passes",
	})); err != nil {
		return nil, err
	}
	if s.reassigns, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reassignments_total",
		Help: "Reassignment workflow steps by outcome",
	}, []string{"outcome"})); err != nil {
		return nil, err
	}
	if s.changes, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reassignment_changes_total",
		Help: "Change records produced by executed reassignments",
	})); err != nil {
		return nil, err
	}
	if s.syncItems, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_items_total",
		Help: "Change records processed by sync flushes",
	}, []string{"result"})); err != nil {
		return nil, err
	}
	if s.syncPending, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sync_queue_pending",
		Help: "Change records still queued after the latest flush",
	})); err != nil {
		return nil, err
	}
	if s.syncDuration, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sync_flush_duration_seconds",
		Help:    "Duration of sync queue flushes",
		Buckets: prometheus.DefBuckets,
	})); err != nil {
		return nil, err
	}
	if s.matches, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "match_requests_total",
		Help: "Match requests served by kind and whether any candidate qualified",
	}, []string{"kind", "empty"})); err != nil {
		return nil, err
	}
	return s, nil
}

// register adds c to reg or returns the collector already registered under
// the same descriptor.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		var zero C
		return zero, err
	}
	return c, nil
}

func (s *PromSink) RecordDetection(ev coremetrics.DetectionEvent) error {
	s.detections.Inc()
	s.skipped.Add(float64(ev.Skipped))
	for sev, n := range ev.BySeverity {
		s.conflicts.WithLabelValues(sev).Set(float64(n))
	}
	return nil
}

func (s *PromSink) RecordReassignment(ev coremetrics.ReassignmentEvent) error {
	s.reassigns.WithLabelValues(ev.Outcome).Inc()
	s.changes.Add(float64(ev.Changes))
	return nil
}

func (s *PromSink) RecordSyncFlush(ev coremetrics.SyncFlushEvent) error {
	s.syncItems.WithLabelValues("succeeded").Add(float64(ev.Succeeded))
	s.syncItems.WithLabelValues("failed").Add(float64(ev.Failed))
	s.syncPending.Set(float64(ev.Pending))
	s.syncDuration.Observe(ev.Duration.Seconds())
	return nil
}

func (s *PromSink) RecordMatch(ev coremetrics.MatchEvent) error {
	empty := "false"
	if ev.Candidates == 0 {
		empty = "true"
	}
	s.matches.WithLabelValues(ev.Kind, empty).Inc()
	return nil
}
