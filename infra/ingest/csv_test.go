package ingest

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/droneops/core/logger"
	"github.com/kilianp07/droneops/core/model"
)

func TestLoadTestdata(t *testing.T) {
	ds, err := Load(PathsIn("testdata"), logger.NopLogger{})
	require.NoError(t, err)

	require.Len(t, ds.Pilots, 3)
	require.Len(t, ds.Drones, 3)
	require.Len(t, ds.Missions, 2)
	require.Len(t, ds.Errors, 2)
	assert.Equal(t, "P004", ds.Errors[0].ID)
	assert.Equal(t, 5, ds.Errors[0].Line)
	assert.Equal(t, "PRJ003", ds.Errors[1].ID)
	assert.ErrorIs(t, ds.Errors[1], model.ErrValidation)

	st, err := ds.State()
	require.NoError(t, err)
	_, ok := st.Mission("PRJ001")
	assert.True(t, ok)
}

func TestReadPilotsFields(t *testing.T) {
	ds, err := Load(PathsIn("testdata"), nil)
	require.NoError(t, err)

	arjun := ds.Pilots[0]
	assert.Equal(t, []string{"Mapping", "Survey"}, arjun.Skills)
	assert.Equal(t, []string{"DGCA", "Night Ops"}, arjun.Certifications)
	assert.Equal(t, "PRJ001", arjun.CurrentAssignment)
	assert.Equal(t, 1200, arjun.ExperienceHours)
	assert.Equal(t, "2026-01-01", arjun.Availability.Start.Format(model.DateLayout))

	neha := ds.Pilots[1]
	assert.Equal(t, []string{"Inspection", "Thermal"}, neha.Skills)
	assert.Empty(t, neha.CurrentAssignment)
	assert.Equal(t, 850, neha.ExperienceHours)
	assert.Equal(t, float64(DefaultMaxMonthlyHours), neha.MaxMonthlyHours)
	assert.False(t, neha.Availability.Bounded())

	assert.Equal(t, model.PilotOnLeave, ds.Pilots[2].Status)
}

func TestReadDronesFields(t *testing.T) {
	ds, err := Load(PathsIn("testdata"), nil)
	require.NoError(t, err)

	d1, d2, d3 := ds.Drones[0], ds.Drones[1], ds.Drones[2]
	assert.Equal(t, model.RatingIP45, d1.WeatherRating)
	assert.Equal(t, []string{"LiDAR", "RGB"}, d1.Capabilities)
	assert.Equal(t, model.DroneIdle, d2.Status)
	assert.True(t, d2.MaintenanceDue.IsZero())
	assert.Empty(t, d3.CurrentAssignment)
	assert.Equal(t, model.DroneMaintenance, d3.Status)
	assert.Equal(t, []string{"Thermal", "RGB"}, d3.Capabilities)
}

func TestReadMissionsAvailableMeansUnassigned(t *testing.T) {
	ds, err := Load(PathsIn("testdata"), nil)
	require.NoError(t, err)

	m := ds.Missions[1]
	assert.Equal(t, "PRJ002", m.ID)
	assert.Empty(t, m.AssignedPilot)
	assert.Empty(t, m.AssignedDrone)
	assert.Equal(t, model.MissionPlanned, m.Status)
	assert.Equal(t, 3, m.Days())
	assert.Equal(t, model.Rainy, ds.Missions[0].Forecast)
}

func TestReadMissionsMissingColumn(t *testing.T) {
	in := "mission_id,start_date,end_date\nPRJ001,2026-02-20,2026-02-27\n"
	_, _, err := ReadMissions(strings.NewReader(in), "missions.csv")
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrValidation)
	assert.Contains(t, err.Error(), "budget")
}

func TestReadDronesDuplicateID(t *testing.T) {
	in := "drone_id,model\nD001,M300\nd001,Mavic\nD001,Mavic\n"
	drones, rowErrs, err := ReadDrones(strings.NewReader(in), "drone_fleet.csv")
	require.NoError(t, err)
	assert.Len(t, drones, 2)
	require.Len(t, rowErrs, 1)
	assert.Equal(t, 4, rowErrs[0].Line)
}

func TestReadEmptyFile(t *testing.T) {
	_, _, err := ReadPilots(strings.NewReader(""), "pilot_roster.csv")
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(PathsIn(filepath.Join("testdata", "nope")), nil)
	assert.Error(t, err)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitList(" a; b ,c,,"))
	assert.Empty(t, splitList(""))
}
