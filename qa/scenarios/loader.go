package scenarios

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/droneops/core/model"
)

type PilotDef struct {
	ID         string   `yaml:"id"`
	Name       string   `yaml:"name"`
	Skills     []string `yaml:"skills"`
	Certs      []string `yaml:"certs"`
	Experience int      `yaml:"experience"`
	Location   string   `yaml:"location"`
	Assignment string   `yaml:"assignment,omitempty"`
	Status     string   `yaml:"status"`
	HourlyRate float64  `yaml:"hourly_rate"`
}

func (p PilotDef) ToModel() (model.Pilot, error) {
	status, err := model.ParsePilotStatus(p.Status)
	if err != nil {
		return model.Pilot{}, err
	}
	return model.Pilot{
		ID:                p.ID,
		Name:              p.Name,
		Skills:            p.Skills,
		Certifications:    p.Certs,
		ExperienceHours:   p.Experience,
		Location:          p.Location,
		CurrentAssignment: p.Assignment,
		Status:            status,
		HourlyRate:        p.HourlyRate,
	}, nil
}

type DroneDef struct {
	ID             string   `yaml:"id"`
	Model          string   `yaml:"model"`
	Capabilities   []string `yaml:"capabilities"`
	Location       string   `yaml:"location"`
	Assignment     string   `yaml:"assignment,omitempty"`
	Status         string   `yaml:"status"`
	Rating         string   `yaml:"rating"`
	MaintenanceDue string   `yaml:"maintenance_due,omitempty"`
	DailyRate      float64  `yaml:"daily_rate"`
}

func (d DroneDef) ToModel() (model.Drone, error) {
	status, err := model.ParseDroneStatus(d.Status)
	if err != nil {
		return model.Drone{}, err
	}
	rating, err := model.ParseWeatherRating(d.Rating)
	if err != nil {
		return model.Drone{}, err
	}
	out := model.Drone{
		ID:                d.ID,
		Model:             d.Model,
		Capabilities:      d.Capabilities,
		Location:          d.Location,
		CurrentAssignment: d.Assignment,
		Status:            status,
		WeatherRating:     rating,
		DailyRate:         d.DailyRate,
	}
	if d.MaintenanceDue != "" {
		if out.MaintenanceDue, err = parseDate(d.MaintenanceDue); err != nil {
			return model.Drone{}, err
		}
	}
	return out, nil
}

type MissionDef struct {
	ID       string   `yaml:"id"`
	Project  string   `yaml:"project"`
	Location string   `yaml:"location"`
	Skills   []string `yaml:"skills"`
	Certs    []string `yaml:"certs"`
	Start    string   `yaml:"start"`
	End      string   `yaml:"end"`
	Budget   float64  `yaml:"budget"`
	Forecast string   `yaml:"forecast"`
	Pilot    string   `yaml:"pilot,omitempty"`
	Drone    string   `yaml:"drone,omitempty"`
	Priority string   `yaml:"priority"`
	Status   string   `yaml:"status"`
}

func (m MissionDef) ToModel() (model.Mission, error) {
	out := model.Mission{
		ID:                     m.ID,
		Project:                m.Project,
		Location:               m.Location,
		RequiredSkills:         m.Skills,
		RequiredCertifications: m.Certs,
		Budget:                 m.Budget,
		AssignedPilot:          m.Pilot,
		AssignedDrone:          m.Drone,
	}
	var err error
	if out.Window, err = model.NewWindow(m.Start, m.End); err != nil {
		return model.Mission{}, err
	}
	if out.Forecast, err = model.ParseWeather(m.Forecast); err != nil {
		return model.Mission{}, err
	}
	if out.Priority, err = model.ParsePriority(m.Priority); err != nil {
		return model.Mission{}, err
	}
	if out.Status, err = model.ParseMissionStatus(m.Status); err != nil {
		return model.Mission{}, err
	}
	return out, nil
}

// Step is one operator action. Expect is checked after the action runs.
type Step struct {
	Action  string   `yaml:"action"`
	Mission string   `yaml:"mission,omitempty"`
	Pilot   string   `yaml:"pilot,omitempty"`
	Drone   string   `yaml:"drone,omitempty"`
	Status  string   `yaml:"status,omitempty"`
	Date    string   `yaml:"date,omitempty"`
	Expect  Expected `yaml:"expect"`
}

type Expected struct {
	ConflictTypes []string `yaml:"conflict_types,omitempty"`
	Critical      *int     `yaml:"critical,omitempty"`
	TopPilot      string   `yaml:"top_pilot,omitempty"`
	TopDrone      string   `yaml:"top_drone,omitempty"`
	NoOp          bool     `yaml:"noop,omitempty"`
	Error         bool     `yaml:"error,omitempty"`
	Changes       *int     `yaml:"changes,omitempty"`
	Urgent        []string `yaml:"urgent,omitempty"`
}

type Scenario struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description,omitempty"`
	Now         string       `yaml:"now"`
	Pilots      []PilotDef   `yaml:"pilots"`
	Drones      []DroneDef   `yaml:"drones"`
	Missions    []MissionDef `yaml:"missions"`
	Steps       []Step       `yaml:"steps"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if sc.Name == "" {
		return nil, fmt.Errorf("%s: scenario name is required", path)
	}
	return &sc, nil
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return time.Time{}, model.Validationf("%q is not a YYYY-MM-DD date", s)
	}
	return t, nil
}
