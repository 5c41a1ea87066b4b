package roster

import (
	"sort"
	"time"

	"github.com/kilianp07/droneops/core/eligibility"
	"github.com/kilianp07/droneops/core/model"
)

// Capacity summarises pilot availability.
type Capacity struct {
	Total       int `json:"total_pilots"`
	Available   int `json:"available"`
	Assigned    int `json:"assigned"`
	Unassigned  int `json:"unassigned"`
	OnLeave     int `json:"on_leave"`
	Unavailable int `json:"unavailable"`
}

// RosterCapacity counts pilots by status. Assigned and Unassigned only
// consider Available pilots.
func (s *State) RosterCapacity() Capacity {
	c := Capacity{Total: len(s.pilots)}
	for _, p := range s.pilots {
		switch p.Status {
		case model.PilotAvailable:
			c.Available++
			if p.Assigned() {
				c.Assigned++
			}
		case model.PilotOnLeave:
			c.OnLeave++
		case model.PilotUnavailable:
			c.Unavailable++
		}
	}
	c.Unassigned = c.Available - c.Assigned
	return c
}

// Fleet summarises drone status.
type Fleet struct {
	Total       int `json:"total_drones"`
	Active      int `json:"active"`
	Maintenance int `json:"maintenance"`
	Idle        int `json:"idle"`
	Available   int `json:"available"`
	Assigned    int `json:"assigned"`
}

// FleetSummary counts drones by status. Available means Active and not
// assigned.
func (s *State) FleetSummary() Fleet {
	f := Fleet{Total: len(s.drones)}
	for _, d := range s.drones {
		switch d.Status {
		case model.DroneActive:
			f.Active++
			if !d.Assigned() {
				f.Available++
			}
		case model.DroneMaintenance:
			f.Maintenance++
		case model.DroneIdle:
			f.Idle++
		}
		if d.Assigned() {
			f.Assigned++
		}
	}
	return f
}

// MaintenanceAlerts returns drones whose maintenance date is strictly before
// asOf, ordered by due date.
func (s *State) MaintenanceAlerts(asOf time.Time) []model.Drone {
	var out []model.Drone
	for _, d := range s.drones {
		if d.MaintenanceOverdue(asOf.AddDate(0, 0, -1)) {
			out = append(out, d.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].MaintenanceDue.Equal(out[j].MaintenanceDue) {
			return out[i].MaintenanceDue.Before(out[j].MaintenanceDue)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Assignment is a mission with its current pilot and drone.
type Assignment struct {
	MissionID string              `json:"mission_id"`
	Project   string              `json:"project"`
	Status    model.MissionStatus `json:"-"`
	PilotID   string              `json:"pilot_id,omitempty"`
	DroneID   string              `json:"drone_id,omitempty"`
	Window    model.Window        `json:"window"`
}

// ActiveAssignments lists non-closed missions holding at least one resource.
func (s *State) ActiveAssignments() []Assignment {
	var out []Assignment
	for _, m := range s.Missions() {
		if m.Status.Closed() || (m.AssignedPilot == "" && m.AssignedDrone == "") {
			continue
		}
		out = append(out, Assignment{
			MissionID: m.ID, Project: m.Project, Status: m.Status,
			PilotID: m.AssignedPilot, DroneID: m.AssignedDrone, Window: m.Window,
		})
	}
	return out
}

// PilotQuery filters available pilots. Empty fields match everything.
type PilotQuery struct {
	Skills         []string
	Certifications []string
	Location       string
}

// FindPilots returns Available pilots matching q, same location first then
// most experienced.
func (s *State) FindPilots(q PilotQuery) []model.Pilot {
	var out []model.Pilot
	for _, p := range s.Pilots() {
		if p.Status != model.PilotAvailable {
			continue
		}
		if len(eligibility.Covers(p.Skills, q.Skills)) > 0 || len(eligibility.Covers(p.Certifications, q.Certifications)) > 0 {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		li, lj := out[i].Location == q.Location, out[j].Location == q.Location
		if li != lj {
			return li
		}
		return out[i].ExperienceHours > out[j].ExperienceHours
	})
	return out
}

// DroneQuery filters available drones. Empty fields match everything.
type DroneQuery struct {
	Capabilities []string
	Weather      *model.Weather
	Location     string
}

// FindDrones returns Active unassigned drones matching q, same location
// first then cheapest.
func (s *State) FindDrones(q DroneQuery) []model.Drone {
	var out []model.Drone
	for _, d := range s.Drones() {
		if d.Status != model.DroneActive || d.Assigned() {
			continue
		}
		if len(eligibility.Covers(d.Capabilities, q.Capabilities)) > 0 {
			continue
		}
		if q.Weather != nil && !d.WeatherRating.Covers(*q.Weather) {
			continue
		}
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool {
		li, lj := out[i].Location == q.Location, out[j].Location == q.Location
		if li != lj {
			return li
		}
		return out[i].DailyRate < out[j].DailyRate
	})
	return out
}

// PilotCost is a pilot's rate card applied to a mission length.
type PilotCost struct {
	PilotID         string  `json:"pilot_id"`
	Name            string  `json:"name"`
	HourlyRate      float64 `json:"hourly_rate"`
	ExperienceHours int     `json:"experience_hours"`
	MaxMonthlyHours float64 `json:"max_monthly_hours"`
	MissionID       string  `json:"mission_id,omitempty"`
	Days            int     `json:"duration_days"`
	WorkHours       int     `json:"work_hours"`
	TotalCost       float64 `json:"total_cost"`
	// OverMonthlyHours is set when WorkHours exceeds a positive
	// MaxMonthlyHours.
	OverMonthlyHours bool `json:"over_monthly_hours"`
}

// PilotCost prices days of work for a pilot. Zero days prices the pilot's
// current assignment, or nothing when the pilot is unassigned.
func (s *State) PilotCost(id string, days int) (PilotCost, error) {
	if days < 0 {
		return PilotCost{}, model.Validationf("duration %d days is negative", days)
	}
	p, ok := s.pilots[id]
	if !ok {
		return PilotCost{}, model.Validationf("unknown pilot %s", id)
	}
	c := PilotCost{
		PilotID:         p.ID,
		Name:            p.Name,
		HourlyRate:      p.HourlyRate,
		ExperienceHours: p.ExperienceHours,
		MaxMonthlyHours: p.MaxMonthlyHours,
		Days:            days,
	}
	if days == 0 && p.Assigned() {
		if m, ok := s.missions[p.CurrentAssignment]; ok {
			c.MissionID, c.Days = m.ID, m.Days()
		}
	}
	c.WorkHours = c.Days * model.WorkdayHours
	c.TotalCost = p.MissionCost(c.Days)
	c.OverMonthlyHours = p.MaxMonthlyHours > 0 && float64(c.WorkHours) > p.MaxMonthlyHours
	return c, nil
}
