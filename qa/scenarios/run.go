package scenarios

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/droneops/app"
	"github.com/kilianp07/droneops/config"
	"github.com/kilianp07/droneops/core/audit"
	"github.com/kilianp07/droneops/core/model"
	"github.com/kilianp07/droneops/core/reassign"
	"github.com/kilianp07/droneops/core/roster"
	"github.com/kilianp07/droneops/infra/metrics"
)

// RunScenario builds a service from the scenario roster and plays its steps
// in order, checking each step's expectations.
func RunScenario(t *testing.T, sc *Scenario) {
	t.Helper()
	now := time.Now()
	if sc.Now != "" {
		var err error
		if now, err = parseDate(sc.Now); err != nil {
			t.Fatalf("now: %v", err)
		}
	}
	clock := func() time.Time { return now }

	st := buildState(t, sc, clock)
	sink, err := metrics.NewPromSinkWithRegistry(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("prom sink: %v", err)
	}
	svc, err := app.New(config.Default(), st,
		app.WithClock(clock),
		app.WithAuditStore(audit.NewMemoryStore()),
		app.WithSyncSinks(),
		app.WithMetricsSink(sink),
	)
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	defer func() { _ = svc.Close() }()

	for i, step := range sc.Steps {
		if err := runStep(svc, step); err != nil {
			t.Errorf("step %d (%s %s): %v", i+1, step.Action, step.Mission, err)
		}
	}
}

func buildState(t *testing.T, sc *Scenario, clock func() time.Time) *roster.State {
	t.Helper()
	pilots := make([]model.Pilot, 0, len(sc.Pilots))
	for _, d := range sc.Pilots {
		p, err := d.ToModel()
		if err != nil {
			t.Fatalf("pilot %s: %v", d.ID, err)
		}
		pilots = append(pilots, p)
	}
	drones := make([]model.Drone, 0, len(sc.Drones))
	for _, d := range sc.Drones {
		dr, err := d.ToModel()
		if err != nil {
			t.Fatalf("drone %s: %v", d.ID, err)
		}
		drones = append(drones, dr)
	}
	missions := make([]model.Mission, 0, len(sc.Missions))
	for _, d := range sc.Missions {
		m, err := d.ToModel()
		if err != nil {
			t.Fatalf("mission %s: %v", d.ID, err)
		}
		missions = append(missions, m)
	}
	st, err := roster.New(pilots, drones, missions, roster.WithClock(clock))
	if err != nil {
		t.Fatalf("roster: %v", err)
	}
	return st
}

func runStep(svc *app.Service, s Step) error {
	ctx := context.Background()
	var (
		res outcome
		err error
	)
	switch s.Action {
	case "detect":
		var rep conflictReport
		rep, err = svc.DetectConflicts(s.Mission)
		res.conflicts = rep.Conflicts
	case "suggest":
		var plan reassign.Plan
		plan, err = svc.SuggestReassignment(s.Mission)
		res.conflicts = plan.Conflicts
		res.suggestions = plan.Suggestions
	case "execute":
		var out reassign.Outcome
		out, err = svc.ExecuteReassignment(ctx, reassign.Request{MissionID: s.Mission, PilotID: s.Pilot, DroneID: s.Drone})
		res.noop = out.NoOp
		res.changes = len(out.Changes)
	case "priorities":
		res.urgent = svc.Priorities()
	case "pilot_status":
		var status model.PilotStatus
		if status, err = model.ParsePilotStatus(s.Status); err == nil {
			var recs []model.ChangeRecord
			recs, err = svc.UpdatePilotStatus(ctx, "qa", s.Pilot, status)
			res.changes = len(recs)
		}
	case "drone_status":
		var status model.DroneStatus
		if status, err = model.ParseDroneStatus(s.Status); err == nil {
			var recs []model.ChangeRecord
			recs, err = svc.UpdateDroneStatus(ctx, "qa", s.Drone, status)
			res.changes = len(recs)
		}
	case "maintenance":
		var due time.Time
		if due, err = parseDate(s.Date); err == nil {
			var recs []model.ChangeRecord
			recs, err = svc.FlagMaintenance(ctx, "qa", s.Drone, due)
			res.changes = len(recs)
		}
	default:
		return errUnknownAction(s.Action)
	}
	return res.check(s.Expect, err)
}
