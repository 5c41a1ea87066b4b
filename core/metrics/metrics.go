package metrics

import (
	"time"
)

// MatchEvent describes one ranking call.
type MatchEvent struct {
	MissionID  string
	Kind       string
	Candidates int
	Rejected   int
	TopScore   int
	Duration   time.Duration
	Time       time.Time
}

// DetectionEvent summarises a conflict detection pass.
type DetectionEvent struct {
	Total      int
	BySeverity map[string]int
	ByType     map[string]int
	Skipped    int
	Duration   time.Duration
	Time       time.Time
}

// Reassignment outcomes.
const (
	OutcomeSuggested = "suggested"
	OutcomeExecuted  = "executed"
	OutcomeNoOp      = "noop"
	OutcomeStale     = "stale"
	OutcomeAbandoned = "abandoned"
)

// ReassignmentEvent records a step of the reassignment workflow.
type ReassignmentEvent struct {
	MissionID   string
	Actor       string
	Outcome     string
	Suggestions int
	Changes     int
	Time        time.Time
}

// SyncFlushEvent summarises a sync queue flush.
type SyncFlushEvent struct {
	Total     int
	Succeeded int
	Failed    int
	Pending   int
	Duration  time.Duration
	Time      time.Time
}

// MetricsSink records engine activity for observability purposes.
type MetricsSink interface {
	RecordDetection(ev DetectionEvent) error
	RecordReassignment(ev ReassignmentEvent) error
	RecordSyncFlush(ev SyncFlushEvent) error
}

// MatchRecorder is implemented by sinks that also record match calls.
type MatchRecorder interface {
	RecordMatch(ev MatchEvent) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordDetection(DetectionEvent) error       { return nil }
func (NopSink) RecordReassignment(ReassignmentEvent) error { return nil }
func (NopSink) RecordSyncFlush(SyncFlushEvent) error       { return nil }
func (NopSink) RecordMatch(MatchEvent) error               { return nil }
