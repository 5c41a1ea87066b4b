// Package roster holds the explicit roster, fleet and mission state passed
// to every engine operation, together with the update operations that mutate
// it. Every mutation returns the change records it produced.
package roster

import (
	"fmt"
	"sort"
	"time"

	"github.com/kilianp07/droneops/core/model"
)

// State is an in-memory snapshot of pilots, drones and missions. It is not
// safe for concurrent mutation; callers serialize writers.
type State struct {
	pilots   map[string]model.Pilot
	drones   map[string]model.Drone
	missions map[string]model.Mission
	now      func() time.Time
}

// Option configures a State.
type Option func(*State)

// WithClock sets the time source stamped on change records.
func WithClock(now func() time.Time) Option {
	return func(s *State) {
		if now != nil {
			s.now = now
		}
	}
}

// New builds a State. Duplicate ids and records failing validation are
// rejected.
func New(pilots []model.Pilot, drones []model.Drone, missions []model.Mission, opts ...Option) (*State, error) {
	s := &State{
		pilots:   make(map[string]model.Pilot, len(pilots)),
		drones:   make(map[string]model.Drone, len(drones)),
		missions: make(map[string]model.Mission, len(missions)),
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	for _, p := range pilots {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := s.pilots[p.ID]; dup {
			return nil, model.Validationf("duplicate pilot id %s", p.ID)
		}
		s.pilots[p.ID] = p.Clone()
	}
	for _, d := range drones {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if _, dup := s.drones[d.ID]; dup {
			return nil, model.Validationf("duplicate drone id %s", d.ID)
		}
		s.drones[d.ID] = d.Clone()
	}
	for _, m := range missions {
		if err := m.Validate(); err != nil {
			return nil, err
		}
		if _, dup := s.missions[m.ID]; dup {
			return nil, model.Validationf("duplicate mission id %s", m.ID)
		}
		s.missions[m.ID] = m.Clone()
	}
	return s, nil
}

// Clone returns an independent copy of s.
func (s *State) Clone() *State {
	c, _ := New(nil, nil, nil, WithClock(s.now))
	for id, p := range s.pilots {
		c.pilots[id] = p.Clone()
	}
	for id, d := range s.drones {
		c.drones[id] = d.Clone()
	}
	for id, m := range s.missions {
		c.missions[id] = m.Clone()
	}
	return c
}

// Now returns the state's clock reading.
func (s *State) Now() time.Time { return s.now() }

func (s *State) Pilot(id string) (model.Pilot, bool) {
	p, ok := s.pilots[id]
	return p.Clone(), ok
}

func (s *State) Drone(id string) (model.Drone, bool) {
	d, ok := s.drones[id]
	return d.Clone(), ok
}

func (s *State) Mission(id string) (model.Mission, bool) {
	m, ok := s.missions[id]
	return m.Clone(), ok
}

// Pilots returns copies of all pilots ordered by id.
func (s *State) Pilots() []model.Pilot {
	out := make([]model.Pilot, 0, len(s.pilots))
	for _, p := range s.pilots {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Drones returns copies of all drones ordered by id.
func (s *State) Drones() []model.Drone {
	out := make([]model.Drone, 0, len(s.drones))
	for _, d := range s.drones {
		out = append(out, d.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Missions returns copies of all missions ordered by id.
func (s *State) Missions() []model.Mission {
	out := make([]model.Mission, 0, len(s.missions))
	for _, m := range s.missions {
		out = append(out, m.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SetPilotStatus updates a pilot's status.
func (s *State) SetPilotStatus(id string, status model.PilotStatus) ([]model.ChangeRecord, error) {
	p, ok := s.pilots[id]
	if !ok {
		return nil, model.Validationf("unknown pilot %s", id)
	}
	if p.Status == status {
		return nil, nil
	}
	rec := model.NewChange(model.EntityPilot, id, model.FieldStatus, p.Status.String(), status.String(), s.now())
	p.Status = status
	s.pilots[id] = p
	return []model.ChangeRecord{rec}, nil
}

// SetDroneStatus updates a drone's status.
func (s *State) SetDroneStatus(id string, status model.DroneStatus) ([]model.ChangeRecord, error) {
	d, ok := s.drones[id]
	if !ok {
		return nil, model.Validationf("unknown drone %s", id)
	}
	if d.Status == status {
		return nil, nil
	}
	rec := model.NewChange(model.EntityDrone, id, model.FieldStatus, d.Status.String(), status.String(), s.now())
	d.Status = status
	s.drones[id] = d
	return []model.ChangeRecord{rec}, nil
}

// FlagMaintenance sets the maintenance due date and moves the drone into
// Maintenance.
func (s *State) FlagMaintenance(id string, due time.Time) ([]model.ChangeRecord, error) {
	d, ok := s.drones[id]
	if !ok {
		return nil, model.Validationf("unknown drone %s", id)
	}
	if due.IsZero() {
		return nil, model.Validationf("drone %s: maintenance date is required", id)
	}
	now := s.now()
	var recs []model.ChangeRecord
	if !d.MaintenanceDue.Equal(due) {
		recs = append(recs, model.NewChange(model.EntityDrone, id, model.FieldMaintenanceDue,
			formatDate(d.MaintenanceDue), formatDate(due), now))
		d.MaintenanceDue = due
	}
	if d.Status != model.DroneMaintenance {
		recs = append(recs, model.NewChange(model.EntityDrone, id, model.FieldStatus,
			d.Status.String(), model.DroneMaintenance.String(), now))
		d.Status = model.DroneMaintenance
	}
	s.drones[id] = d
	return recs, nil
}

// AssignPilot makes pilotID the mission's pilot. The previous pilot, if any,
// is released; an empty pilotID only releases.
func (s *State) AssignPilot(missionID, pilotID string) ([]model.ChangeRecord, error) {
	m, ok := s.missions[missionID]
	if !ok {
		return nil, model.Validationf("unknown mission %s", missionID)
	}
	if pilotID != "" {
		if _, ok := s.pilots[pilotID]; !ok {
			return nil, model.Validationf("unknown pilot %s", pilotID)
		}
	}
	if m.AssignedPilot == pilotID {
		return nil, nil
	}
	now := s.now()
	recs := []model.ChangeRecord{
		model.NewChange(model.EntityMission, missionID, model.FieldAssignedPilot, m.AssignedPilot, pilotID, now),
	}
	if old, ok := s.pilots[m.AssignedPilot]; ok && old.CurrentAssignment == missionID {
		recs = append(recs, model.NewChange(model.EntityPilot, old.ID, model.FieldCurrentAssignment, missionID, "", now))
		old.CurrentAssignment = ""
		s.pilots[old.ID] = old
	}
	if p, ok := s.pilots[pilotID]; ok {
		recs = append(recs, model.NewChange(model.EntityPilot, p.ID, model.FieldCurrentAssignment, p.CurrentAssignment, missionID, now))
		p.CurrentAssignment = missionID
		s.pilots[p.ID] = p
	}
	m.AssignedPilot = pilotID
	s.missions[missionID] = m
	return recs, nil
}

// AssignDrone makes droneID the mission's drone, releasing the previous one.
func (s *State) AssignDrone(missionID, droneID string) ([]model.ChangeRecord, error) {
	m, ok := s.missions[missionID]
	if !ok {
		return nil, model.Validationf("unknown mission %s", missionID)
	}
	if droneID != "" {
		if _, ok := s.drones[droneID]; !ok {
			return nil, model.Validationf("unknown drone %s", droneID)
		}
	}
	if m.AssignedDrone == droneID {
		return nil, nil
	}
	now := s.now()
	recs := []model.ChangeRecord{
		model.NewChange(model.EntityMission, missionID, model.FieldAssignedDrone, m.AssignedDrone, droneID, now),
	}
	if old, ok := s.drones[m.AssignedDrone]; ok && old.CurrentAssignment == missionID {
		recs = append(recs, model.NewChange(model.EntityDrone, old.ID, model.FieldCurrentAssignment, missionID, "", now))
		old.CurrentAssignment = ""
		s.drones[old.ID] = old
	}
	if d, ok := s.drones[droneID]; ok {
		recs = append(recs, model.NewChange(model.EntityDrone, d.ID, model.FieldCurrentAssignment, d.CurrentAssignment, missionID, now))
		d.CurrentAssignment = missionID
		s.drones[d.ID] = d
	}
	m.AssignedDrone = droneID
	s.missions[missionID] = m
	return recs, nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(model.DateLayout)
}

func (s *State) String() string {
	return fmt.Sprintf("roster{pilots=%d drones=%d missions=%d}", len(s.pilots), len(s.drones), len(s.missions))
}
