package app

import (
	"time"

	"github.com/kilianp07/droneops/core/model"
	"github.com/kilianp07/droneops/core/reassign"
	"github.com/kilianp07/droneops/core/roster"
)

// StatusReport is the operations overview: roster capacity, fleet state,
// maintenance alerts, live assignments, conflict counts and the missions
// needing urgent reassignment.
type StatusReport struct {
	GeneratedAt       time.Time           `json:"generated_at"`
	Pilots            roster.Capacity     `json:"pilots"`
	Fleet             roster.Fleet        `json:"fleet"`
	MaintenanceAlerts []model.Drone       `json:"maintenance_alerts"`
	Assignments       []roster.Assignment `json:"assignments"`
	Conflicts         map[string]int      `json:"conflicts"`
	ConflictsByType   map[string]int      `json:"conflicts_by_type"`
	Priorities        []reassign.Urgent   `json:"priorities"`
	PendingSync       int                 `json:"pending_sync"`
}

// TotalConflicts sums the severity counts.
func (r StatusReport) TotalConflicts() int {
	n := 0
	for _, c := range r.Conflicts {
		n += c
	}
	return n
}

// StatusReport aggregates the current state. Maintenance alerts are drones
// due on or before today.
func (s *Service) StatusReport() StatusReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	rep := s.detector.DetectAll(s.state.Missions(), s.state.Pilots(), s.state.Drones())
	bySeverity := make(map[string]int, 3)
	for sev, n := range rep.Counts() {
		bySeverity[sev.String()] = n
	}
	return StatusReport{
		GeneratedAt:       now,
		Pilots:            s.state.RosterCapacity(),
		Fleet:             s.state.FleetSummary(),
		MaintenanceAlerts: s.state.MaintenanceAlerts(now),
		Assignments:       s.state.ActiveAssignments(),
		Conflicts:         bySeverity,
		ConflictsByType:   rep.CountsByType(),
		Priorities:        s.coord.Priorities(s.state),
		PendingSync:       s.queue.Len(),
	}
}
