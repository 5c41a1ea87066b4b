package metrics

import (
	"fmt"

	"github.com/kilianp07/droneops/core/factory"
)

var sinkRegistry = factory.NewRegistry[MetricsSink]()

// RegisterMetricsSink makes a sink type available to NewMetricsSink.
func RegisterMetricsSink(name string, f factory.Factory[MetricsSink]) error {
	return sinkRegistry.Register(name, f)
}

// MetricsSinkTypes lists the registered sink types.
func MetricsSinkTypes() []string { return sinkRegistry.Types() }

// NewMetricsSink builds the configured sinks, fans them out when there are
// several and drops the streams cfg disables. No sinks yields a NopSink.
func NewMetricsSink(cfg Config) (MetricsSink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sinks := make([]MetricsSink, 0, len(cfg.Sinks))
	for _, c := range cfg.Sinks {
		s, err := sinkRegistry.Create(c)
		if err != nil {
			return nil, fmt.Errorf("metrics sink %s: %w", c.Type, err)
		}
		sinks = append(sinks, s)
	}

	var out MetricsSink
	switch len(sinks) {
	case 0:
		return NopSink{}, nil
	case 1:
		out = sinks[0]
	default:
		out = NewMultiSink(sinks...)
	}
	if len(cfg.Streams) == 0 {
		return out, nil
	}
	return &streamFilter{next: out, cfg: cfg}, nil
}

// streamFilter forwards only the enabled streams.
type streamFilter struct {
	next MetricsSink
	cfg  Config
}

func (f *streamFilter) RecordDetection(ev DetectionEvent) error {
	if !f.cfg.Enabled(StreamDetections) {
		return nil
	}
	return f.next.RecordDetection(ev)
}

func (f *streamFilter) RecordReassignment(ev ReassignmentEvent) error {
	if !f.cfg.Enabled(StreamReassignments) {
		return nil
	}
	return f.next.RecordReassignment(ev)
}

func (f *streamFilter) RecordSyncFlush(ev SyncFlushEvent) error {
	if !f.cfg.Enabled(StreamSync) {
		return nil
	}
	return f.next.RecordSyncFlush(ev)
}

func (f *streamFilter) RecordMatch(ev MatchEvent) error {
	mr, ok := f.next.(MatchRecorder)
	if !ok || !f.cfg.Enabled(StreamMatches) {
		return nil
	}
	return mr.RecordMatch(ev)
}
