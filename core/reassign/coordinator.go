// Package reassign drives the per-mission reassignment workflow: detect the
// conflicts on a mission, suggest replacement resources, then execute or
// abandon the change. Execution re-checks eligibility against the live state
// before touching it.
package reassign

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kilianp07/droneops/core/audit"
	"github.com/kilianp07/droneops/core/conflict"
	"github.com/kilianp07/droneops/core/eligibility"
	"github.com/kilianp07/droneops/core/logger"
	"github.com/kilianp07/droneops/core/matching"
	"github.com/kilianp07/droneops/core/metrics"
	"github.com/kilianp07/droneops/core/model"
	"github.com/kilianp07/droneops/core/roster"
)

// DefaultMaxSuggestions bounds the alternatives proposed per resource kind.
const DefaultMaxSuggestions = 3

// Phase is the workflow position of one mission.
type Phase int

const (
	PhaseNone Phase = iota
	PhaseDetected
	PhaseSuggested
	PhaseExecuted
	PhaseAbandoned
)

func (p Phase) String() string {
	switch p {
	case PhaseDetected:
		return "detected"
	case PhaseSuggested:
		return "suggested"
	case PhaseExecuted:
		return "executed"
	case PhaseAbandoned:
		return "abandoned"
	default:
		return "none"
	}
}

func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// Suggestion proposes one replacement resource.
type Suggestion struct {
	MissionID     string               `json:"mission_id"`
	Kind          model.ResourceKind   `json:"kind"`
	CurrentID     string               `json:"current_id,omitempty"`
	ResourceID    string               `json:"resource_id"`
	Name          string               `json:"name"`
	Score         int                  `json:"score"`
	EstimatedCost float64              `json:"estimated_cost"`
	LocationMatch bool                 `json:"location_match"`
	Urgency       model.Priority       `json:"urgency"`
	Reason        string               `json:"reason"`
	Conflicts     []model.ConflictType `json:"conflicts"`
}

// Plan is the outcome of Suggest. Pilots and Drones hold the matcher output,
// including rejection diagnostics, for each kind that needed a replacement.
type Plan struct {
	MissionID   string           `json:"mission_id"`
	Phase       Phase            `json:"phase"`
	Conflicts   []model.Conflict `json:"conflicts"`
	Suggestions []Suggestion     `json:"suggestions"`
	Pilots      *matching.Result `json:"pilots,omitempty"`
	Drones      *matching.Result `json:"drones,omitempty"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// Urgent is a mission carrying at least one Critical conflict.
type Urgent struct {
	MissionID     string         `json:"mission_id"`
	Project       string         `json:"project"`
	Priority      model.Priority `json:"priority"`
	Start         time.Time      `json:"start"`
	Critical      int            `json:"critical"`
	Conflicts     int            `json:"conflicts"`
	ConflictTypes []string       `json:"conflict_types"`
	Suggestions   []Suggestion   `json:"suggestions,omitempty"`
}

// Coordinator runs the workflow. Phases are tracked per mission; the roster
// state itself is passed to every call.
type Coordinator struct {
	detector       *conflict.Detector
	engine         *matching.Engine
	store          audit.Store
	sink           metrics.MetricsSink
	log            logger.Logger
	maxSuggestions int
	now            func() time.Time

	mu     sync.Mutex
	phases map[string]Phase
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithAudit sets the store receiving executed changes.
func WithAudit(s audit.Store) Option {
	return func(c *Coordinator) { c.store = s }
}

func WithMetrics(s metrics.MetricsSink) Option {
	return func(c *Coordinator) {
		if s != nil {
			c.sink = s
		}
	}
}

func WithLogger(l logger.Logger) Option {
	return func(c *Coordinator) { c.log = logger.OrNop(l) }
}

// WithMaxSuggestions caps the alternatives per resource kind.
func WithMaxSuggestions(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.maxSuggestions = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// New returns a coordinator built on the given detector and matcher.
func New(det *conflict.Detector, eng *matching.Engine, opts ...Option) *Coordinator {
	c := &Coordinator{
		detector:       det,
		engine:         eng,
		sink:           metrics.NopSink{},
		log:            logger.NopLogger{},
		maxSuggestions: DefaultMaxSuggestions,
		now:            time.Now,
		phases:         map[string]Phase{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Phase returns the workflow position of a mission.
func (c *Coordinator) Phase(missionID string) Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phases[missionID]
}

func (c *Coordinator) setPhase(missionID string, p Phase) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p == PhaseNone {
		delete(c.phases, missionID)
		return
	}
	c.phases[missionID] = p
}

// Suggest detects the conflicts on a mission and ranks replacements for the
// resources they disqualify. A mission without Critical or Warning conflicts
// yields an empty plan in PhaseNone.
func (c *Coordinator) Suggest(st *roster.State, missionID string) (Plan, error) {
	m, ok := st.Mission(missionID)
	if !ok {
		return Plan{}, model.Validationf("unknown mission %s", missionID)
	}
	if m.Status.Closed() {
		return Plan{}, model.Validationf("mission %s is %s", missionID, m.Status)
	}
	plan := c.plan(st, m, c.maxSuggestions)
	if len(plan.Conflicts) > 0 {
		c.setPhase(missionID, PhaseDetected)
	}
	if plan.Phase == PhaseSuggested {
		c.setPhase(missionID, PhaseSuggested)
	}
	c.record(missionID, "", metrics.OutcomeSuggested, len(plan.Suggestions), 0)
	c.log.Infof("reassign: %d suggestion(s) for mission %s", len(plan.Suggestions), missionID)
	return plan, nil
}

// Abandon drops a pending suggestion. Nothing is mutated.
func (c *Coordinator) Abandon(missionID string) error {
	c.mu.Lock()
	p := c.phases[missionID]
	if p != PhaseDetected && p != PhaseSuggested {
		c.mu.Unlock()
		return model.Validationf("mission %s has no pending reassignment (%s)", missionID, p)
	}
	c.phases[missionID] = PhaseAbandoned
	c.mu.Unlock()
	c.record(missionID, "", metrics.OutcomeAbandoned, 0, 0)
	c.log.Infof("reassign: abandoned suggestion for mission %s", missionID)
	return nil
}

// Priorities lists missions with Critical conflicts, most critical first,
// then by mission priority and start date. Each entry carries up to two
// suggestions.
func (c *Coordinator) Priorities(st *roster.State) []Urgent {
	rep := c.detector.DetectAll(st.Missions(), st.Pilots(), st.Drones())
	var out []Urgent
	for _, id := range rep.MissionIDs() {
		crit := rep.Critical(id)
		if crit == 0 {
			continue
		}
		m, ok := st.Mission(id)
		if !ok {
			continue
		}
		own := rep.ForMission(id)
		plan := c.plan(st, m, 2)
		out = append(out, Urgent{
			MissionID:     id,
			Project:       m.Project,
			Priority:      m.Priority,
			Start:         m.Window.Start,
			Critical:      crit,
			Conflicts:     len(own.Conflicts),
			ConflictTypes: typeNames(own.Conflicts),
			Suggestions:   plan.Suggestions,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Critical != b.Critical {
			return a.Critical > b.Critical
		}
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		return a.MissionID < b.MissionID
	})
	return out
}

// driver groups the conflicts that disqualify one assigned resource.
type driver struct {
	kind      model.ResourceKind
	current   string
	conflicts []model.Conflict
}

func (d *driver) urgency() model.Priority {
	for _, c := range d.conflicts {
		if c.Severity == model.SeverityCritical {
			return model.PriorityCritical
		}
	}
	return model.PriorityHigh
}

func (d *driver) types() []model.ConflictType {
	seen := map[model.ConflictType]struct{}{}
	var out []model.ConflictType
	for _, c := range d.conflicts {
		if _, ok := seen[c.Type]; ok {
			continue
		}
		seen[c.Type] = struct{}{}
		out = append(out, c.Type)
	}
	return out
}

func (c *Coordinator) plan(st *roster.State, m model.Mission, limit int) Plan {
	missions := st.Missions()
	rep := c.detector.DetectFor(m.ID, missions, st.Pilots(), st.Drones())
	plan := Plan{
		MissionID:   m.ID,
		Conflicts:   rep.Conflicts,
		Suggestions: []Suggestion{},
		GeneratedAt: c.now(),
	}
	pilotDrv, droneDrv := drivers(m, rep.Conflicts)
	if pilotDrv == nil && droneDrv == nil {
		return plan
	}
	plan.Phase = PhaseDetected

	if pilotDrv != nil {
		res := c.engine.MatchPilots(m, st.Pilots(), matching.Exclude(pilotDrv.current), matching.WithBookings(missions))
		plan.Pilots = &res
		failed := currentFailures(st, m, pilotDrv, missions)
		plan.Suggestions = append(plan.Suggestions, suggestions(m, pilotDrv, res, failed, limit)...)
	}
	if droneDrv != nil {
		res := c.engine.MatchDrones(m, st.Drones(), matching.Exclude(droneDrv.current), matching.WithBookings(missions))
		plan.Drones = &res
		failed := currentFailures(st, m, droneDrv, missions)
		plan.Suggestions = append(plan.Suggestions, suggestions(m, droneDrv, res, failed, limit)...)
	}
	plan.Phase = PhaseSuggested
	return plan
}

// drivers sorts the Critical and Warning conflicts of m by the resource they
// disqualify. A budget overrun puts both assigned resources in question.
func drivers(m model.Mission, conflicts []model.Conflict) (pilot, drone *driver) {
	add := func(d **driver, kind model.ResourceKind, current string, cf model.Conflict) {
		if current == "" {
			return
		}
		if *d == nil {
			*d = &driver{kind: kind, current: current}
		}
		(*d).conflicts = append((*d).conflicts, cf)
	}
	for _, cf := range conflicts {
		if cf.Severity == model.SeverityInfo {
			continue
		}
		switch cf.Type {
		case model.DoubleBooking:
			if holds(cf, m.AssignedPilot) {
				add(&pilot, model.KindPilot, m.AssignedPilot, cf)
			}
			if holds(cf, m.AssignedDrone) {
				add(&drone, model.KindDrone, m.AssignedDrone, cf)
			}
		case model.SkillMismatch, model.CertificationMismatch, model.ConflictPilotUnavailable:
			add(&pilot, model.KindPilot, m.AssignedPilot, cf)
		case model.EquipmentMismatch, model.MaintenanceConflict, model.WeatherRisk:
			add(&drone, model.KindDrone, m.AssignedDrone, cf)
		case model.BudgetOverrun:
			add(&pilot, model.KindPilot, m.AssignedPilot, cf)
			add(&drone, model.KindDrone, m.AssignedDrone, cf)
		}
	}
	return pilot, drone
}

func holds(cf model.Conflict, id string) bool {
	if id == "" {
		return false
	}
	for _, r := range cf.ResourceIDs {
		if r == id {
			return true
		}
	}
	return false
}

// currentFailures returns the rules the assigned resource fails today.
func currentFailures(st *roster.State, m model.Mission, d *driver, missions []model.Mission) []string {
	switch d.kind {
	case model.KindPilot:
		if p, ok := st.Pilot(d.current); ok {
			return eligibility.CheckPilot(p, m, missions).FailedRules()
		}
	case model.KindDrone:
		if dr, ok := st.Drone(d.current); ok {
			return eligibility.CheckDrone(dr, m, missions).FailedRules()
		}
	}
	return nil
}

func suggestions(m model.Mission, d *driver, res matching.Result, failed []string, limit int) []Suggestion {
	n := len(res.Candidates)
	if n > limit {
		n = limit
	}
	out := make([]Suggestion, 0, n)
	for _, cand := range res.Candidates[:n] {
		name := cand.Name
		if name == "" {
			name = cand.ResourceID
		}
		out = append(out, Suggestion{
			MissionID:     m.ID,
			Kind:          d.kind,
			CurrentID:     d.current,
			ResourceID:    cand.ResourceID,
			Name:          name,
			Score:         cand.Score.Total,
			EstimatedCost: cand.EstimatedCost,
			LocationMatch: cand.LocationMatch,
			Urgency:       d.urgency(),
			Reason:        reason(d, name, failed),
			Conflicts:     d.types(),
		})
	}
	return out
}

func reason(d *driver, name string, failed []string) string {
	var head string
	switch d.conflicts[0].Type {
	case model.DoubleBooking:
		if d.kind == model.KindDrone {
			head = "Drone conflict"
		} else {
			head = "Pilot conflict"
		}
	case model.MaintenanceConflict:
		head = "Drone in maintenance"
	case model.SkillMismatch:
		head = "Pilot skill mismatch"
	case model.CertificationMismatch:
		head = "Pilot certification mismatch"
	case model.ConflictPilotUnavailable:
		head = "Pilot unavailable"
	case model.EquipmentMismatch:
		head = "Drone equipment mismatch"
	case model.WeatherRisk:
		head = "Weather risk"
		name = "weather-rated " + name
	case model.BudgetOverrun:
		head = "Budget overrun"
		name = "lower-cost " + name
	}
	s := fmt.Sprintf("%s: reassign to %s", head, name)
	if len(failed) > 0 {
		s += fmt.Sprintf(" (%s fails %s)", d.current, strings.Join(failed, ", "))
	}
	return s
}

func typeNames(cs []model.Conflict) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, c := range cs {
		n := c.Type.String()
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (c *Coordinator) record(missionID, actor, outcome string, suggestions, changes int) {
	ev := metrics.ReassignmentEvent{
		MissionID:   missionID,
		Actor:       actor,
		Outcome:     outcome,
		Suggestions: suggestions,
		Changes:     changes,
		Time:        c.now(),
	}
	if err := c.sink.RecordReassignment(ev); err != nil {
		c.log.Warnf("reassign: metrics: %v", err)
	}
}
