package metrics

import "errors"

// MultiSink fans events out to several sinks. Every sink is called even when
// an earlier one fails; the errors are joined.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

func (m *MultiSink) RecordDetection(ev DetectionEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordDetection(ev))
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordReassignment(ev ReassignmentEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordReassignment(ev))
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordSyncFlush(ev SyncFlushEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordSyncFlush(ev))
	}
	return errors.Join(errs...)
}

// RecordMatch forwards to sinks implementing MatchRecorder.
func (m *MultiSink) RecordMatch(ev MatchEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if mr, ok := s.(MatchRecorder); ok {
			errs = append(errs, mr.RecordMatch(ev))
		}
	}
	return errors.Join(errs...)
}
