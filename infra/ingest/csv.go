// Package ingest loads the pilot roster, drone fleet and mission CSV exports
// into validated domain records. Malformed rows are skipped and reported as
// RowErrors; a missing file or required column fails the whole load.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/droneops/core/logger"
	"github.com/kilianp07/droneops/core/model"
	"github.com/kilianp07/droneops/core/roster"
)

// Default file names inside a data directory.
const (
	PilotsFile   = "pilot_roster.csv"
	DronesFile   = "drone_fleet.csv"
	MissionsFile = "missions.csv"
)

// DefaultMaxMonthlyHours applies when the roster leaves the column blank.
const DefaultMaxMonthlyHours = 160

// Paths locates the three CSV files.
type Paths struct {
	Pilots   string `json:"pilots"`
	Drones   string `json:"drones"`
	Missions string `json:"missions"`
}

// PathsIn returns the default file locations under dir.
func PathsIn(dir string) Paths {
	return Paths{
		Pilots:   filepath.Join(dir, PilotsFile),
		Drones:   filepath.Join(dir, DronesFile),
		Missions: filepath.Join(dir, MissionsFile),
	}
}

// RowError describes a rejected CSV row. Line is 1-based and counts the
// header.
type RowError struct {
	File string
	Line int
	ID   string
	Err  error
}

func (e RowError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s:%d (%s): %v", e.File, e.Line, e.ID, e.Err)
	}
	return fmt.Sprintf("%s:%d: %v", e.File, e.Line, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

// Dataset is the result of a load.
type Dataset struct {
	Pilots   []model.Pilot
	Drones   []model.Drone
	Missions []model.Mission
	Errors   []RowError
}

// State builds the in-memory roster from the accepted records.
func (d Dataset) State(opts ...roster.Option) (*roster.State, error) {
	return roster.New(d.Pilots, d.Drones, d.Missions, opts...)
}

// Load reads all three files. Row errors are logged and returned in the
// dataset.
func Load(p Paths, log logger.Logger) (Dataset, error) {
	log = logger.OrNop(log)
	var ds Dataset
	var rowErrs []RowError
	var err error

	if ds.Pilots, rowErrs, err = readFile(p.Pilots, ReadPilots); err != nil {
		return Dataset{}, err
	}
	ds.Errors = append(ds.Errors, rowErrs...)
	if ds.Drones, rowErrs, err = readFile(p.Drones, ReadDrones); err != nil {
		return Dataset{}, err
	}
	ds.Errors = append(ds.Errors, rowErrs...)
	if ds.Missions, rowErrs, err = readFile(p.Missions, ReadMissions); err != nil {
		return Dataset{}, err
	}
	ds.Errors = append(ds.Errors, rowErrs...)

	for _, e := range ds.Errors {
		log.Warnf("ingest: skipped row %v", e)
	}
	log.Infof("ingest: loaded %d pilots, %d drones, %d missions (%d rows rejected)",
		len(ds.Pilots), len(ds.Drones), len(ds.Missions), len(ds.Errors))
	return ds, nil
}

func readFile[T any](path string, read func(io.Reader, string) ([]T, []RowError, error)) ([]T, []RowError, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return read(f, filepath.Base(path))
}

// ReadPilots parses a pilot roster export.
func ReadPilots(r io.Reader, name string) ([]model.Pilot, []RowError, error) {
	return readRows(r, name, []string{"pilot_id", "name"}, func(r row) (model.Pilot, string, error) {
		p := model.Pilot{
			ID:                r.get("pilot_id"),
			Name:              r.get("name"),
			Skills:            splitList(r.get("skills")),
			Certifications:    splitList(r.get("certifications")),
			Location:          r.get("current_location", "location"),
			CurrentAssignment: assignment(r.get("current_assignment")),
		}
		var err error
		if p.Status, err = model.ParsePilotStatus(r.get("status")); err != nil {
			return p, p.ID, err
		}
		hours, err := r.float(0, "drone_experience_hours", "experience_hours")
		if err != nil {
			return p, p.ID, err
		}
		p.ExperienceHours = int(math.Round(hours))
		if p.HourlyRate, err = r.float(0, "hourly_rate"); err != nil {
			return p, p.ID, err
		}
		if p.MaxMonthlyHours, err = r.float(DefaultMaxMonthlyHours, "max_monthly_hours"); err != nil {
			return p, p.ID, err
		}
		if p.Availability, err = model.NewWindow(r.get("availability_start_date"), r.get("availability_end_date")); err != nil {
			return p, p.ID, err
		}
		return p, p.ID, p.Validate()
	})
}

// ReadDrones parses a drone fleet export.
func ReadDrones(r io.Reader, name string) ([]model.Drone, []RowError, error) {
	return readRows(r, name, []string{"drone_id", "model"}, func(r row) (model.Drone, string, error) {
		d := model.Drone{
			ID:                r.get("drone_id"),
			Model:             r.get("model"),
			Capabilities:      splitList(r.get("capabilities")),
			Location:          r.get("current_location", "location"),
			CurrentAssignment: assignment(r.get("current_assignment")),
		}
		var err error
		if d.WeatherRating, err = model.ParseWeatherRating(r.get("weather_rating")); err != nil {
			return d, d.ID, err
		}
		if d.Status, err = model.ParseDroneStatus(r.get("status")); err != nil {
			return d, d.ID, err
		}
		if d.MaintenanceDue, err = r.date("maintenance_due_date", "maintenance_due"); err != nil {
			return d, d.ID, err
		}
		if d.DailyRate, err = r.float(0, "daily_rate"); err != nil {
			return d, d.ID, err
		}
		return d, d.ID, d.Validate()
	})
}

// ReadMissions parses a mission export. "Available" in an assignment column
// means no resource is assigned.
func ReadMissions(r io.Reader, name string) ([]model.Mission, []RowError, error) {
	required := []string{"mission_id|project_id", "start_date", "end_date", "budget"}
	return readRows(r, name, required, func(r row) (model.Mission, string, error) {
		m := model.Mission{
			ID:                     r.get("mission_id", "project_id"),
			Project:                r.get("project_name", "project"),
			Client:                 r.get("client_name", "client"),
			Location:               r.get("location"),
			RequiredSkills:         splitList(r.get("required_skills")),
			RequiredCertifications: splitList(r.get("required_certifications")),
			AssignedPilot:          assignment(r.get("assigned_pilot")),
			AssignedDrone:          assignment(r.get("assigned_drone")),
		}
		var err error
		if m.Window, err = model.NewWindow(r.get("start_date"), r.get("end_date")); err != nil {
			return m, m.ID, err
		}
		if m.Budget, err = r.float(0, "budget", "budget_inr"); err != nil {
			return m, m.ID, err
		}
		if m.Forecast, err = model.ParseWeather(r.get("weather_forecast", "forecast")); err != nil {
			return m, m.ID, err
		}
		if m.Priority, err = model.ParsePriority(r.get("priority")); err != nil {
			return m, m.ID, err
		}
		if m.Status, err = model.ParseMissionStatus(r.get("status")); err != nil {
			return m, m.ID, err
		}
		return m, m.ID, m.Validate()
	})
}

type row struct {
	cols   map[string]int
	fields []string
}

// get returns the first non-empty value among the named columns.
func (r row) get(names ...string) string {
	for _, n := range names {
		if i, ok := r.cols[n]; ok && i < len(r.fields) {
			if v := strings.TrimSpace(r.fields[i]); v != "" {
				return v
			}
		}
	}
	return ""
}

func (r row) float(def float64, names ...string) (float64, error) {
	v := r.get(names...)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", ""), 64)
	if err != nil {
		return 0, model.Validationf("%s: %q is not a number", names[0], v)
	}
	return f, nil
}

func (r row) date(names ...string) (time.Time, error) {
	v := r.get(names...)
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(model.DateLayout, v)
	if err != nil {
		return time.Time{}, model.Validationf("%s: %q is not a YYYY-MM-DD date", names[0], v)
	}
	return t, nil
}

// readRows drives a CSV reader. Each entry of required may list
// alternatives separated by "|". Duplicate ids keep the first row.
func readRows[T any](r io.Reader, name string, required []string, parse func(row) (T, string, error)) ([]T, []RowError, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, model.Validationf("%s: empty file", name)
		}
		return nil, nil, fmt.Errorf("%s: %w", name, err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		key = strings.ReplaceAll(key, " ", "_")
		if _, dup := cols[key]; !dup {
			cols[key] = i
		}
	}
	for _, req := range required {
		if !hasAny(cols, strings.Split(req, "|")) {
			return nil, nil, model.Validationf("%s: missing required column %s", name, req)
		}
	}

	var out []T
	var rowErrs []RowError
	seen := make(map[string]bool)
	for line := 2; ; line++ {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			rowErrs = append(rowErrs, RowError{File: name, Line: line, Err: err})
			continue
		}
		if blank(fields) {
			continue
		}
		rec, id, err := parse(row{cols: cols, fields: fields})
		if err == nil && seen[id] {
			err = model.Validationf("duplicate id %s", id)
		}
		if err != nil {
			rowErrs = append(rowErrs, RowError{File: name, Line: line, ID: id, Err: err})
			continue
		}
		seen[id] = true
		out = append(out, rec)
	}
	return out, rowErrs, nil
}

func hasAny(cols map[string]int, names []string) bool {
	for _, n := range names {
		if _, ok := cols[n]; ok {
			return true
		}
	}
	return false
}

func blank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// splitList splits on commas or semicolons and drops empty items.
func splitList(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// assignment normalises the placeholder values used for "no assignment".
func assignment(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "available", "none", "-", "\u2013", "n/a":
		return ""
	}
	return strings.TrimSpace(s)
}
