package model

import "strings"

// Mission is a time-bound job that needs one pilot and one drone.
type Mission struct {
	ID                     string        `json:"id"`
	Project                string        `json:"project"`
	Client                 string        `json:"client"`
	Location               string        `json:"location"`
	RequiredSkills         []string      `json:"required_skills"`
	RequiredCertifications []string      `json:"required_certifications"`
	Window                 Window        `json:"window"`
	Budget                 float64       `json:"budget"`
	Forecast               Weather       `json:"forecast"`
	AssignedPilot          string        `json:"assigned_pilot,omitempty"`
	AssignedDrone          string        `json:"assigned_drone,omitempty"`
	Priority               Priority      `json:"priority"`
	Status                 MissionStatus `json:"status"`
}

// Validate checks the record invariants enforced at ingestion.
func (m Mission) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return Validationf("mission id is required")
	}
	if !m.Window.Bounded() {
		return Validationf("mission %s: start and end dates are required", m.ID)
	}
	if err := m.Window.Validate(); err != nil {
		return Validationf("mission %s: %v", m.ID, err)
	}
	if m.Budget <= 0 {
		return Validationf("mission %s: budget must be positive", m.ID)
	}
	return nil
}

// Days is the inclusive mission duration.
func (m Mission) Days() int { return m.Window.Days() }

// Clone returns a deep copy.
func (m Mission) Clone() Mission {
	m.RequiredSkills = append([]string(nil), m.RequiredSkills...)
	m.RequiredCertifications = append([]string(nil), m.RequiredCertifications...)
	return m
}
