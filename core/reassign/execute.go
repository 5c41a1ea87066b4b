package reassign

import (
	"context"
	"fmt"

	"github.com/kilianp07/droneops/core/audit"
	"github.com/kilianp07/droneops/core/eligibility"
	"github.com/kilianp07/droneops/core/metrics"
	"github.com/kilianp07/droneops/core/model"
	"github.com/kilianp07/droneops/core/monitoring"
	"github.com/kilianp07/droneops/core/roster"
)

// Request asks for a mission's pilot and/or drone to be replaced. Empty ids
// leave that side untouched.
type Request struct {
	MissionID string `json:"mission_id"`
	PilotID   string `json:"pilot_id,omitempty"`
	DroneID   string `json:"drone_id,omitempty"`
	Actor     string `json:"actor"`
}

// Outcome describes an executed reassignment. NoOp is set when every
// requested resource was already assigned. Remaining lists the conflicts the
// mission still has after the change, such as a budget overrun when a new
// pilot and a new drone each fit the budget but together exceed it.
type Outcome struct {
	MissionID string               `json:"mission_id"`
	NoOp      bool                 `json:"noop"`
	OldPilot  string               `json:"old_pilot,omitempty"`
	NewPilot  string               `json:"new_pilot,omitempty"`
	OldDrone  string               `json:"old_drone,omitempty"`
	NewDrone  string               `json:"new_drone,omitempty"`
	Changes   []model.ChangeRecord `json:"changes"`
	Audit     []audit.Entry        `json:"audit,omitempty"`
	Remaining []model.Conflict     `json:"remaining,omitempty"`
}

// Execute applies a reassignment to st. Every new resource is re-checked
// against the current state first; if any fails, a *model.StaleStateError
// is returned and st is left untouched. Audit failures are reported but do
// not undo the applied change.
func (c *Coordinator) Execute(ctx context.Context, st *roster.State, req Request) (Outcome, error) {
	if req.PilotID == "" && req.DroneID == "" {
		return Outcome{}, model.Validationf("reassignment of %s names no resource", req.MissionID)
	}
	m, ok := st.Mission(req.MissionID)
	if !ok {
		return Outcome{}, model.Validationf("unknown mission %s", req.MissionID)
	}
	if m.Status.Closed() {
		return Outcome{}, model.Validationf("mission %s is %s", m.ID, m.Status)
	}
	if req.PilotID != "" {
		if _, ok := st.Pilot(req.PilotID); !ok {
			return Outcome{}, model.Validationf("unknown pilot %s", req.PilotID)
		}
	}
	if req.DroneID != "" {
		if _, ok := st.Drone(req.DroneID); !ok {
			return Outcome{}, model.Validationf("unknown drone %s", req.DroneID)
		}
	}

	out := Outcome{MissionID: m.ID, OldPilot: m.AssignedPilot, OldDrone: m.AssignedDrone}
	swapPilot := req.PilotID != "" && req.PilotID != m.AssignedPilot
	swapDrone := req.DroneID != "" && req.DroneID != m.AssignedDrone
	if !swapPilot && !swapDrone {
		out.NoOp = true
		out.NewPilot, out.NewDrone = m.AssignedPilot, m.AssignedDrone
		c.record(m.ID, req.Actor, metrics.OutcomeNoOp, 0, 0)
		c.log.Debugf("reassign: mission %s already holds the requested resources", m.ID)
		return out, nil
	}

	missions := st.Missions()
	if swapPilot {
		p, _ := st.Pilot(req.PilotID)
		if rep := eligibility.CheckPilot(p, m, missions); !rep.Passed() {
			return Outcome{}, c.stale(m.ID, req, model.KindPilot, p.ID, rep)
		}
	}
	if swapDrone {
		d, _ := st.Drone(req.DroneID)
		if rep := eligibility.CheckDrone(d, m, missions); !rep.Passed() {
			return Outcome{}, c.stale(m.ID, req, model.KindDrone, d.ID, rep)
		}
	}

	if swapPilot {
		recs, err := st.AssignPilot(m.ID, req.PilotID)
		if err != nil {
			return Outcome{}, fmt.Errorf("assign pilot: %w", err)
		}
		out.Changes = append(out.Changes, recs...)
	}
	if swapDrone {
		recs, err := st.AssignDrone(m.ID, req.DroneID)
		if err != nil {
			return out, fmt.Errorf("assign drone: %w", err)
		}
		out.Changes = append(out.Changes, recs...)
	}
	after, _ := st.Mission(m.ID)
	out.NewPilot, out.NewDrone = after.AssignedPilot, after.AssignedDrone
	c.setPhase(m.ID, PhaseExecuted)
	if c.detector != nil {
		rep := c.detector.DetectFor(m.ID, st.Missions(), st.Pilots(), st.Drones())
		out.Remaining = rep.ForMission(m.ID).Conflicts
		for _, cf := range out.Remaining {
			c.log.Warnf("reassign: mission %s still has %s: %s", m.ID, cf.Type, cf.Description)
		}
	}

	out.Audit = audit.FromChanges(req.Actor, audit.ActionReassign, m.ID, out.Changes)
	var auditErr error
	if c.store != nil {
		if err := c.store.Append(ctx, out.Audit...); err != nil {
			auditErr = fmt.Errorf("audit: %w", err)
			c.log.Errorf("reassign: audit append for mission %s: %v", m.ID, err)
			monitoring.Report(monitoring.Current(), "reassign", auditErr, map[string]string{"mission": m.ID})
		}
	}
	c.record(m.ID, req.Actor, metrics.OutcomeExecuted, 0, len(out.Changes))
	c.log.Infof("reassign: mission %s pilot %s->%s drone %s->%s by %s",
		m.ID, out.OldPilot, out.NewPilot, out.OldDrone, out.NewDrone, req.Actor)
	return out, auditErr
}

func (c *Coordinator) stale(missionID string, req Request, kind model.ResourceKind, id string, rep eligibility.Report) error {
	c.record(missionID, req.Actor, metrics.OutcomeStale, 0, 0)
	c.log.Warnf("reassign: %s %s rejected for mission %s: %s", kind, id, missionID, rep.Reason())
	return &model.StaleStateError{
		MissionID:  missionID,
		ResourceID: id,
		Kind:       kind,
		Failed:     rep.FailedRules(),
	}
}
