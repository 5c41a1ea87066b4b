package conflict

import (
	"time"

	"github.com/kilianp07/droneops/core/model"
)

// Report is the result of one detection pass. Conflicts are ordered by
// severity, mission, type and resource.
type Report struct {
	Conflicts   []model.Conflict `json:"conflicts"`
	Skipped     []Skip           `json:"skipped,omitempty"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// BySeverity buckets the conflicts, keeping their order inside each bucket.
// Every severity has an entry, possibly empty.
func (r Report) BySeverity() map[model.Severity][]model.Conflict {
	out := make(map[model.Severity][]model.Conflict, 3)
	for _, s := range model.Severities() {
		out[s] = []model.Conflict{}
	}
	for _, c := range r.Conflicts {
		out[c.Severity] = append(out[c.Severity], c)
	}
	return out
}

// ForMission narrows the report to conflicts involving id, including double
// bookings where id is the other mission.
func (r Report) ForMission(id string) Report {
	out := Report{GeneratedAt: r.GeneratedAt, Conflicts: []model.Conflict{}}
	for _, c := range r.Conflicts {
		if c.Involves(id) {
			out.Conflicts = append(out.Conflicts, c)
		}
	}
	for _, s := range r.Skipped {
		if s.MissionID == id {
			out.Skipped = append(out.Skipped, s)
		}
	}
	return out
}

// Counts returns the number of conflicts per severity.
func (r Report) Counts() map[model.Severity]int {
	out := map[model.Severity]int{}
	for _, s := range model.Severities() {
		out[s] = 0
	}
	for _, c := range r.Conflicts {
		out[c.Severity]++
	}
	return out
}

// CountsByType returns the number of conflicts per type name.
func (r Report) CountsByType() map[string]int {
	out := map[string]int{}
	for _, c := range r.Conflicts {
		out[c.Type.String()]++
	}
	return out
}

// Critical reports the number of Critical conflicts involving mission id.
func (r Report) Critical(id string) int {
	n := 0
	for _, c := range r.Conflicts {
		if c.Severity == model.SeverityCritical && c.Involves(id) {
			n++
		}
	}
	return n
}

// MissionIDs lists the missions that have at least one conflict, in report
// order.
func (r Report) MissionIDs() []string {
	seen := map[string]struct{}{}
	var ids []string
	add := func(id string) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	for _, c := range r.Conflicts {
		add(c.MissionID)
		for _, rel := range c.RelatedMissionIDs {
			add(rel)
		}
	}
	return ids
}
