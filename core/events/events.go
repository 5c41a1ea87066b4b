package events

import (
	"time"

	"github.com/kilianp07/droneops/core/model"
)

// ConflictsDetectedEvent is published after each detection pass. MissionID
// is empty for a pass over every mission.
type ConflictsDetectedEvent struct {
	MissionID string
	Critical  int
	Warning   int
	Info      int
	ByType    map[string]int
	Skipped   int
	Duration  time.Duration
	Time      time.Time
}

// Total returns the number of conflicts found.
func (e ConflictsDetectedEvent) Total() int { return e.Critical + e.Warning + e.Info }

// ReassignmentEvent is published for every step of a mission's reassignment.
type ReassignmentEvent struct {
	MissionID string
	Actor     string
	Outcome   string
	OldPilot  string
	NewPilot  string
	OldDrone  string
	NewDrone  string
	Time      time.Time
}

// ChangeEvent carries the change records of one mutation.
type ChangeEvent struct {
	Records []model.ChangeRecord
	Source  string
}

// SyncFlushedEvent is published after a flush of the sync queue.
type SyncFlushedEvent struct {
	Total     int
	Succeeded int
	Failed    int
	Pending   int
	Duration  time.Duration
	Time      time.Time
}
