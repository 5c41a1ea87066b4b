package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeatherCoverageTable(t *testing.T) {
	cases := []struct {
		rating WeatherRating
		covers []Weather
		denies []Weather
	}{
		{RatingGeneric, []Weather{Sunny, Cloudy}, []Weather{Rainy, Stormy}},
		{RatingIP42, []Weather{Sunny, Cloudy, Rainy}, []Weather{Stormy}},
		{RatingIP43, []Weather{Sunny, Cloudy, Rainy}, []Weather{Stormy}},
		{RatingIP45, []Weather{Sunny, Cloudy, Rainy, Stormy}, nil},
	}
	for _, c := range cases {
		for _, w := range c.covers {
			assert.Truef(t, c.rating.Covers(w), "%s should cover %s", c.rating, w)
		}
		for _, w := range c.denies {
			assert.Falsef(t, c.rating.Covers(w), "%s should not cover %s", c.rating, w)
		}
	}
}

func TestParseAliases(t *testing.T) {
	s, err := ParseDroneStatus("Standby")
	require.NoError(t, err)
	assert.Equal(t, DroneIdle, s)

	ms, err := ParseMissionStatus("Scheduled")
	require.NoError(t, err)
	assert.Equal(t, MissionPlanned, ms)

	ps, err := ParsePilotStatus("On Leave")
	require.NoError(t, err)
	assert.Equal(t, PilotOnLeave, ps)

	_, err = ParseWeatherRating("IP99")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestPilotMissionCost(t *testing.T) {
	p := Pilot{ID: "P001", HourlyRate: 75}
	assert.Equal(t, 4200.0, p.MissionCost(7))
	d := Drone{ID: "D001", DailyRate: 120}
	assert.Equal(t, 840.0, d.MissionCost(7))
}

func TestMissionValidate(t *testing.T) {
	m := Mission{ID: "PRJ001", Window: MustWindow("2026-02-20", "2026-02-26"), Budget: 0}
	assert.ErrorIs(t, m.Validate(), ErrValidation)
	m.Budget = 3000
	assert.NoError(t, m.Validate())
	assert.Equal(t, 7, m.Days())
}

func TestDroneMaintenanceOverdue(t *testing.T) {
	d := Drone{ID: "D1", MaintenanceDue: time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)}
	assert.True(t, d.MaintenanceOverdue(time.Date(2026, 2, 20, 15, 0, 0, 0, time.UTC)))
	assert.False(t, d.MaintenanceOverdue(time.Date(2026, 2, 19, 0, 0, 0, 0, time.UTC)))
	assert.False(t, Drone{}.MaintenanceOverdue(time.Now()))
}

func TestConflictJSONUsesNames(t *testing.T) {
	c := Conflict{Type: WeatherRisk, Severity: SeverityWarning, MissionID: "M1", ResourceIDs: []string{"D1"}}
	b, err := json.Marshal(c)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"type":"weather_risk"`)
	assert.Contains(t, string(b), `"severity":"Warning"`)

	var back Conflict
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, c.Key(), back.Key())
}

func TestPilotUnavailableStatusAndConflictAreDistinct(t *testing.T) {
	assert.Equal(t, "Unavailable", PilotUnavailable.String())
	assert.Equal(t, "pilot_unavailable", ConflictPilotUnavailable.String())

	ct, err := ParseConflictType("pilot_unavailable")
	require.NoError(t, err)
	assert.Equal(t, ConflictPilotUnavailable, ct)
	ps, err := ParsePilotStatus("Unavailable")
	require.NoError(t, err)
	assert.Equal(t, PilotUnavailable, ps)
}

func TestStaleStateErrorUnwraps(t *testing.T) {
	var err error = &StaleStateError{MissionID: "M1", ResourceID: "P2", Kind: KindPilot, Failed: []string{"skills"}}
	assert.True(t, errors.Is(err, ErrStaleState))
	var sse *StaleStateError
	require.True(t, errors.As(err, &sse))
	assert.Equal(t, "P2", sse.ResourceID)
}
