package conflict

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/droneops/core/model"
)

var fixedNow = time.Date(2026, 2, 18, 9, 0, 0, 0, time.UTC)

func newTestDetector(opts ...Option) *Detector {
	ResetMetrics(nil)
	return NewDetector(append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)...)
}

func pilot(id string) model.Pilot {
	return model.Pilot{
		ID: id, Skills: []string{"Mapping"}, Certifications: []string{"DGCA"},
		Status: model.PilotAvailable, Location: "Bangalore", HourlyRate: 10, ExperienceHours: 300,
	}
}

func drone(id string) model.Drone {
	return model.Drone{
		ID: id, Capabilities: []string{"Mapping"}, WeatherRating: model.RatingIP45,
		Status: model.DroneActive, Location: "Bangalore", DailyRate: 10,
	}
}

func mission(id, start, end string) model.Mission {
	return model.Mission{
		ID: id, Location: "Bangalore", RequiredSkills: []string{"Mapping"}, RequiredCertifications: []string{"DGCA"},
		Window: model.MustWindow(start, end), Budget: 100000, Forecast: model.Sunny,
		Status: model.MissionActive, Priority: model.PriorityMedium,
	}
}

func TestDoubleBookingSinglePairConflict(t *testing.T) {
	a := mission("PRJ001", "2026-02-20", "2026-02-27")
	b := mission("PRJ002", "2026-02-25", "2026-03-01")
	a.AssignedPilot, b.AssignedPilot = "P001", "P001"

	rep := newTestDetector().DetectAll([]model.Mission{b, a}, []model.Pilot{pilot("P001")}, nil)
	require.Len(t, rep.Conflicts, 1)
	c := rep.Conflicts[0]
	assert.Equal(t, model.DoubleBooking, c.Type)
	assert.Equal(t, model.SeverityCritical, c.Severity)
	assert.Equal(t, "PRJ001", c.MissionID)
	assert.Equal(t, []string{"PRJ002"}, c.RelatedMissionIDs)
	assert.Equal(t, []string{"P001"}, c.ResourceIDs)
	assert.Equal(t, fixedNow, c.DetectedAt)
	assert.NotEmpty(t, c.SuggestedAction)

	assert.Len(t, rep.ForMission("PRJ002").Conflicts, 1)
	assert.Equal(t, 1, rep.Critical("PRJ002"))
}

func TestDoubleBookingPilotAndDroneAreSeparate(t *testing.T) {
	a := mission("PRJ001", "2026-02-20", "2026-02-27")
	b := mission("PRJ002", "2026-02-27", "2026-03-01")
	a.AssignedPilot, b.AssignedPilot = "P001", "P001"
	a.AssignedDrone, b.AssignedDrone = "D001", "D001"
	rep := newTestDetector().DetectAll([]model.Mission{a, b}, []model.Pilot{pilot("P001")}, []model.Drone{drone("D001")})
	assert.Equal(t, 2, rep.Counts()[model.SeverityCritical])
}

func TestNoDoubleBookingWhenDisjoint(t *testing.T) {
	a := mission("PRJ001", "2026-02-20", "2026-02-24")
	b := mission("PRJ002", "2026-02-25", "2026-03-01")
	a.AssignedPilot, b.AssignedPilot = "P001", "P001"
	rep := newTestDetector().DetectAll([]model.Mission{a, b}, []model.Pilot{pilot("P001")}, nil)
	assert.Empty(t, rep.Conflicts)
}

func TestWeatherRisk(t *testing.T) {
	d := drone("D001")
	d.WeatherRating = model.RatingIP42
	m := mission("PRJ001", "2026-02-20", "2026-02-26")
	m.AssignedDrone = "D001"

	m.Forecast = model.Stormy
	rep := newTestDetector().DetectAll([]model.Mission{m}, nil, []model.Drone{d})
	require.Len(t, rep.Conflicts, 1)
	assert.Equal(t, model.WeatherRisk, rep.Conflicts[0].Type)
	assert.Equal(t, model.SeverityWarning, rep.Conflicts[0].Severity)

	m.Forecast = model.Rainy
	rep = newTestDetector().DetectAll([]model.Mission{m}, nil, []model.Drone{d})
	assert.Empty(t, rep.Conflicts)
}

func TestBudgetOverrun(t *testing.T) {
	p := pilot("P001")
	p.HourlyRate = 75
	m := mission("PRJ001", "2026-02-20", "2026-02-26")
	m.AssignedPilot = "P001"

	m.Budget = 3000
	rep := newTestDetector().DetectAll([]model.Mission{m}, []model.Pilot{p}, nil)
	require.Len(t, rep.Conflicts, 1)
	assert.Equal(t, model.BudgetOverrun, rep.Conflicts[0].Type)
	assert.Contains(t, rep.Conflicts[0].Description, "4200.00")

	m.Budget = 5000
	rep = newTestDetector().DetectAll([]model.Mission{m}, []model.Pilot{p}, nil)
	assert.Empty(t, rep.Conflicts)
}

func TestPerMissionChecks(t *testing.T) {
	p := pilot("P001")
	p.Status = model.PilotOnLeave
	p.Skills = nil
	p.Certifications = nil
	p.Location = "Mumbai"
	d := drone("D001")
	d.Capabilities = nil
	d.MaintenanceDue = time.Date(2026, 2, 22, 0, 0, 0, 0, time.UTC)
	m := mission("PRJ001", "2026-02-20", "2026-02-26")
	m.AssignedPilot, m.AssignedDrone = "P001", "D001"

	rep := newTestDetector().DetectAll([]model.Mission{m}, []model.Pilot{p}, []model.Drone{d})
	got := rep.CountsByType()
	assert.Equal(t, map[string]int{
		"pilot_unavailable":      1,
		"skill_mismatch":         1,
		"certification_mismatch": 1,
		"location_mismatch":      1,
		"equipment_mismatch":     1,
		"maintenance_conflict":   1,
	}, got)

	// critical first
	buckets := rep.BySeverity()
	assert.Len(t, buckets[model.SeverityCritical], 3)
	assert.Len(t, buckets[model.SeverityWarning], 2)
	assert.Len(t, buckets[model.SeverityInfo], 1)
	assert.Equal(t, model.SeverityCritical, rep.Conflicts[0].Severity)
}

func TestPolicyScopesMissions(t *testing.T) {
	a := mission("PRJ001", "2026-02-20", "2026-02-27")
	b := mission("PRJ002", "2026-02-25", "2026-03-01")
	a.AssignedPilot, b.AssignedPilot = "P001", "P001"
	b.Status = model.MissionPlanned
	pilots := []model.Pilot{pilot("P001")}

	rep := newTestDetector().DetectAll([]model.Mission{a, b}, pilots, nil)
	assert.Empty(t, rep.Conflicts)

	wide := Policy{Statuses: []model.MissionStatus{model.MissionActive, model.MissionPlanned}}
	rep = newTestDetector(WithPolicy(wide)).DetectAll([]model.Mission{a, b}, pilots, nil)
	assert.Len(t, rep.Conflicts, 1)
}

func TestMalformedRecordsAreSkipped(t *testing.T) {
	bad := mission("PRJ001", "2026-02-20", "2026-02-27")
	bad.Window = model.Window{Start: bad.Window.End, End: bad.Window.Start}
	ghost := mission("PRJ002", "2026-02-20", "2026-02-27")
	ghost.AssignedPilot = "P404"
	ok := mission("PRJ003", "2026-02-20", "2026-02-27")
	ok.AssignedDrone = "D001"
	d := drone("D001")
	d.WeatherRating = model.RatingGeneric
	ok.Forecast = model.Rainy

	reg := prometheus.NewRegistry()
	det := newTestDetector()
	ResetMetrics(reg)
	rep := det.DetectAll([]model.Mission{bad, ghost, ok}, nil, []model.Drone{d})
	assert.Len(t, rep.Skipped, 2)
	require.Len(t, rep.Conflicts, 1)
	assert.Equal(t, "PRJ003", rep.Conflicts[0].MissionID)
	assert.Equal(t, 2.0, testutil.ToFloat64(skippedRecords))
	assert.Equal(t, 1.0, testutil.ToFloat64(openConflicts.WithLabelValues("weather_risk", "Warning")))
}

func TestDetectionIsDeterministic(t *testing.T) {
	var missions []model.Mission
	for _, id := range []string{"PRJ004", "PRJ001", "PRJ003", "PRJ002"} {
		m := mission(id, "2026-02-20", "2026-02-27")
		m.AssignedPilot = "P001"
		m.AssignedDrone = "D001"
		m.Forecast = model.Stormy
		missions = append(missions, m)
	}
	d := drone("D001")
	d.WeatherRating = model.RatingIP43
	pilots := []model.Pilot{pilot("P001")}
	drones := []model.Drone{d}

	first := newTestDetector().DetectAll(missions, pilots, drones)
	reversed := make([]model.Mission, len(missions))
	for i, m := range missions {
		reversed[len(missions)-1-i] = m
	}
	second := newTestDetector().DetectAll(reversed, pilots, drones)
	assert.Equal(t, first, second)
	// 6 pairs x 2 resources + 4 weather
	assert.Len(t, first.Conflicts, 16)
}

func TestDetectForIncludesOutOfScopeMission(t *testing.T) {
	a := mission("PRJ001", "2026-02-20", "2026-02-27")
	b := mission("PRJ002", "2026-02-25", "2026-03-01")
	c := mission("PRJ003", "2026-02-20", "2026-02-27")
	a.AssignedPilot, b.AssignedPilot, c.AssignedPilot = "P001", "P001", "P001"
	b.Status = model.MissionPlanned
	c.Status = model.MissionCompleted
	missions := []model.Mission{a, b, c}
	pilots := []model.Pilot{pilot("P001")}

	rep := newTestDetector().DetectFor("PRJ002", missions, pilots, nil)
	require.Len(t, rep.Conflicts, 1)
	assert.Equal(t, "PRJ001", rep.Conflicts[0].MissionID)
	assert.Equal(t, []string{"PRJ002"}, rep.Conflicts[0].RelatedMissionIDs)

	assert.Empty(t, newTestDetector().DetectFor("PRJ003", missions, pilots, nil).Conflicts)
}

func TestLocationMismatchIsCaseSensitive(t *testing.T) {
	p := pilot("P001")
	p.Location = "bangalore"
	m := mission("PRJ001", "2026-02-20", "2026-02-26")
	m.AssignedPilot = "P001"

	rep := newTestDetector().DetectAll([]model.Mission{m}, []model.Pilot{p}, nil)
	assert.Equal(t, map[string]int{"location_mismatch": 1}, rep.CountsByType())
}
