// Package conflict scans the mission set for assignment violations. A pass is
// a pure function of its inputs and the injected clock; nothing is persisted
// between passes.
package conflict

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kilianp07/droneops/core/eligibility"
	"github.com/kilianp07/droneops/core/logger"
	"github.com/kilianp07/droneops/core/model"
)

// Policy selects which missions take part in detection.
type Policy struct {
	Statuses []model.MissionStatus
}

// DefaultPolicy checks Active missions only.
func DefaultPolicy() Policy {
	return Policy{Statuses: []model.MissionStatus{model.MissionActive}}
}

// InScope reports whether missions with status s are checked.
func (p Policy) InScope(s model.MissionStatus) bool {
	for _, st := range p.Statuses {
		if st == s {
			return true
		}
	}
	return false
}

// Skip records a malformed record left out of a pass.
type Skip struct {
	MissionID string `json:"mission_id"`
	Reason    string `json:"reason"`
}

// Detector runs detection passes.
type Detector struct {
	policy Policy
	log    logger.Logger
	now    func() time.Time
}

// Option configures a Detector.
type Option func(*Detector)

func WithPolicy(p Policy) Option {
	return func(d *Detector) {
		if len(p.Statuses) > 0 {
			d.policy = p
		}
	}
}

// WithClock injects the time source used for DetectedAt.
func WithClock(now func() time.Time) Option {
	return func(d *Detector) {
		if now != nil {
			d.now = now
		}
	}
}

func WithLogger(l logger.Logger) Option {
	return func(d *Detector) { d.log = logger.OrNop(l) }
}

// NewDetector returns a detector using DefaultPolicy and time.Now unless
// overridden.
func NewDetector(opts ...Option) *Detector {
	d := &Detector{policy: DefaultPolicy(), log: logger.NopLogger{}, now: time.Now}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Policy returns the active scope policy.
func (d *Detector) Policy() Policy { return d.policy }

type pass struct {
	at        time.Time
	pilots    map[string]model.Pilot
	drones    map[string]model.Drone
	seen      map[model.ConflictKey]struct{}
	conflicts []model.Conflict
	skipped   []Skip
}

func (p *pass) add(c model.Conflict) {
	k := c.Key()
	if _, dup := p.seen[k]; dup {
		return
	}
	p.seen[k] = struct{}{}
	c.DetectedAt = p.at
	if c.SuggestedAction == "" {
		c.SuggestedAction = SuggestedAction(c.Type)
	}
	p.conflicts = append(p.conflicts, c)
}

func (p *pass) skip(missionID, format string, args ...any) {
	p.skipped = append(p.skipped, Skip{MissionID: missionID, Reason: fmt.Sprintf(format, args...)})
}

// DetectAll checks every in-scope mission. Malformed missions and unknown
// assignees are skipped and reported, never fatal.
func (d *Detector) DetectAll(missions []model.Mission, pilots []model.Pilot, drones []model.Drone) Report {
	return d.detect(missions, pilots, drones, "")
}

// DetectFor checks mission id even when its status is outside the policy.
// Other missions still follow the policy, so double bookings against them
// are found. The report is narrowed to conflicts involving id.
func (d *Detector) DetectFor(id string, missions []model.Mission, pilots []model.Pilot, drones []model.Drone) Report {
	return d.detect(missions, pilots, drones, id).ForMission(id)
}

func (d *Detector) detect(missions []model.Mission, pilots []model.Pilot, drones []model.Drone, include string) Report {
	start := time.Now()
	p := &pass{
		at:     d.now(),
		pilots: make(map[string]model.Pilot, len(pilots)),
		drones: make(map[string]model.Drone, len(drones)),
		seen:   map[model.ConflictKey]struct{}{},
	}
	for _, pl := range pilots {
		p.pilots[pl.ID] = pl
	}
	for _, dr := range drones {
		p.drones[dr.ID] = dr
	}

	scope := d.scope(p, missions, include)
	for _, m := range scope {
		d.checkMission(p, m)
	}
	d.checkDoubleBookings(p, scope)

	sortConflicts(p.conflicts)
	rep := Report{Conflicts: p.conflicts, Skipped: p.skipped, GeneratedAt: p.at}
	for _, s := range p.skipped {
		d.log.Warnf("conflict: skipped mission %s: %s", s.MissionID, s.Reason)
	}
	d.log.Debugw("conflict: detection pass", map[string]any{
		"missions":  len(scope),
		"conflicts": len(rep.Conflicts),
		"skipped":   len(rep.Skipped),
	})
	if include == "" {
		observe(rep, time.Since(start))
	}
	return rep
}

// scope returns the valid in-scope missions ordered by id.
func (d *Detector) scope(p *pass, missions []model.Mission, include string) []model.Mission {
	ids := map[string]struct{}{}
	var out []model.Mission
	for _, m := range missions {
		forced := include != "" && m.ID == include && !m.Status.Closed()
		if !forced && !d.policy.InScope(m.Status) {
			continue
		}
		if _, dup := ids[m.ID]; dup {
			p.skip(m.ID, "duplicate mission id")
			continue
		}
		ids[m.ID] = struct{}{}
		if !m.Window.Bounded() || m.Window.Validate() != nil {
			p.skip(m.ID, "invalid window %s", m.Window)
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (d *Detector) checkMission(p *pass, m model.Mission) {
	var cost float64
	var resources []string

	if m.AssignedPilot != "" {
		pl, ok := p.pilots[m.AssignedPilot]
		if !ok {
			p.skip(m.ID, "unknown pilot %s", m.AssignedPilot)
		} else {
			checkPilot(p, pl, m)
			cost += pl.MissionCost(m.Days())
			resources = append(resources, pl.ID)
		}
	}
	if m.AssignedDrone != "" {
		dr, ok := p.drones[m.AssignedDrone]
		if !ok {
			p.skip(m.ID, "unknown drone %s", m.AssignedDrone)
		} else {
			checkDrone(p, dr, m)
			cost += dr.MissionCost(m.Days())
			resources = append(resources, dr.ID)
		}
	}
	if len(resources) > 0 {
		if res := eligibility.Budget(cost, m); !res.Passed {
			p.add(model.Conflict{
				Type:        model.BudgetOverrun,
				Severity:    model.SeverityWarning,
				MissionID:   m.ID,
				ResourceIDs: resources,
				Description: fmt.Sprintf("Mission %s: %s", m.ID, res.Detail),
			})
		}
	}
}

func checkPilot(p *pass, pl model.Pilot, m model.Mission) {
	ids := []string{pl.ID}
	if pl.Status != model.PilotAvailable {
		p.add(model.Conflict{
			Type: model.ConflictPilotUnavailable, Severity: model.SeverityCritical, MissionID: m.ID, ResourceIDs: ids,
			Description: fmt.Sprintf("Pilot %s is %s but assigned to %s", pl.ID, pl.Status, m.ID),
		})
	}
	if res := eligibility.Skills(pl, m); !res.Passed {
		p.add(model.Conflict{
			Type: model.SkillMismatch, Severity: model.SeverityWarning, MissionID: m.ID, ResourceIDs: ids,
			Description: fmt.Sprintf("Pilot %s lacks required skills: %s", pl.ID, strings.Join(res.Missing, ", ")),
		})
	}
	if res := eligibility.Certifications(pl, m); !res.Passed {
		p.add(model.Conflict{
			Type: model.CertificationMismatch, Severity: model.SeverityCritical, MissionID: m.ID, ResourceIDs: ids,
			Description: fmt.Sprintf("Pilot %s lacks certifications: %s", pl.ID, strings.Join(res.Missing, ", ")),
		})
	}
	if res := eligibility.Location(pl.Location, m); !res.Passed {
		p.add(model.Conflict{
			Type: model.LocationMismatch, Severity: model.SeverityInfo, MissionID: m.ID, ResourceIDs: ids,
			Description: fmt.Sprintf("Pilot %s is in %s, mission is in %s", pl.ID, pl.Location, m.Location),
		})
	}
}

func checkDrone(p *pass, dr model.Drone, m model.Mission) {
	ids := []string{dr.ID}
	if res := eligibility.Capabilities(dr, m); !res.Passed {
		p.add(model.Conflict{
			Type: model.EquipmentMismatch, Severity: model.SeverityWarning, MissionID: m.ID, ResourceIDs: ids,
			Description: fmt.Sprintf("Drone %s lacks capabilities: %s", dr.ID, strings.Join(res.Missing, ", ")),
		})
	}
	if res := eligibility.Maintenance(dr, m); !res.Passed {
		p.add(model.Conflict{
			Type: model.MaintenanceConflict, Severity: model.SeverityCritical, MissionID: m.ID, ResourceIDs: ids,
			Description: fmt.Sprintf("Drone %s: %s", dr.ID, res.Detail),
		})
	}
	if res := eligibility.Weather(dr, m); !res.Passed {
		p.add(model.Conflict{
			Type: model.WeatherRisk, Severity: model.SeverityWarning, MissionID: m.ID, ResourceIDs: ids,
			Description: fmt.Sprintf("Drone %s (%s) not rated for %s weather", dr.ID, dr.WeatherRating, m.Forecast),
		})
	}
	if res := eligibility.Location(dr.Location, m); !res.Passed {
		p.add(model.Conflict{
			Type: model.LocationMismatch, Severity: model.SeverityInfo, MissionID: m.ID, ResourceIDs: ids,
			Description: fmt.Sprintf("Drone %s is in %s, mission is in %s", dr.ID, dr.Location, m.Location),
		})
	}
}

// checkDoubleBookings compares every pair once. scope is sorted by id so the
// reported mission is always the lower id.
func (d *Detector) checkDoubleBookings(p *pass, scope []model.Mission) {
	for i := 0; i < len(scope); i++ {
		a := scope[i]
		for j := i + 1; j < len(scope); j++ {
			b := scope[j]
			if !a.Window.Overlaps(b.Window) {
				continue
			}
			if a.AssignedPilot != "" && a.AssignedPilot == b.AssignedPilot {
				p.add(doubleBooking(model.KindPilot, a.AssignedPilot, a, b))
			}
			if a.AssignedDrone != "" && a.AssignedDrone == b.AssignedDrone {
				p.add(doubleBooking(model.KindDrone, a.AssignedDrone, a, b))
			}
		}
	}
}

func doubleBooking(kind model.ResourceKind, id string, a, b model.Mission) model.Conflict {
	return model.Conflict{
		Type:              model.DoubleBooking,
		Severity:          model.SeverityCritical,
		MissionID:         a.ID,
		RelatedMissionIDs: []string{b.ID},
		ResourceIDs:       []string{id},
		Description: fmt.Sprintf("%s %s is booked on %s (%s) and %s (%s)",
			label(kind), id, a.ID, a.Window, b.ID, b.Window),
	}
}

func label(k model.ResourceKind) string {
	if k == model.KindDrone {
		return "Drone"
	}
	return "Pilot"
}

func sortConflicts(cs []model.Conflict) {
	sort.SliceStable(cs, func(i, j int) bool {
		a, b := cs[i], cs[j]
		if a.Severity != b.Severity {
			return a.Severity < b.Severity
		}
		if a.MissionID != b.MissionID {
			return a.MissionID < b.MissionID
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		ka, kb := a.Key(), b.Key()
		if ka.Resource != kb.Resource {
			return ka.Resource < kb.Resource
		}
		return ka.Related < kb.Related
	})
}

// SuggestedAction returns the operator hint attached to each conflict type.
func SuggestedAction(t model.ConflictType) string {
	switch t {
	case model.DoubleBooking:
		return "Reassign one of the missions to another resource"
	case model.SkillMismatch:
		return "Assign a pilot with the required skills"
	case model.CertificationMismatch:
		return "Assign a certified pilot"
	case model.EquipmentMismatch:
		return "Assign a drone with the required capabilities"
	case model.MaintenanceConflict:
		return "Assign another drone or reschedule maintenance"
	case model.WeatherRisk:
		return "Assign a drone rated for the forecast or reschedule"
	case model.LocationMismatch:
		return "Plan travel or assign a local resource"
	case model.BudgetOverrun:
		return "Assign lower-cost resources or raise the budget"
	case model.ConflictPilotUnavailable:
		return "Assign an available pilot"
	}
	return ""
}
