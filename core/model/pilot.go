package model

import "strings"

// WorkdayHours converts a pilot hourly rate into a day rate.
const WorkdayHours = 8

// Pilot is a certified operator on the roster.
type Pilot struct {
	ID                string      `json:"id"`
	Name              string      `json:"name"`
	Skills            []string    `json:"skills"`
	Certifications    []string    `json:"certifications"`
	ExperienceHours   int         `json:"experience_hours"`
	Location          string      `json:"location"`
	CurrentAssignment string      `json:"current_assignment,omitempty"`
	Status            PilotStatus `json:"status"`
	Availability      Window      `json:"availability"`
	HourlyRate        float64     `json:"hourly_rate"`
	MaxMonthlyHours   float64     `json:"max_monthly_hours"`
}

// Validate checks the record invariants enforced at ingestion.
func (p Pilot) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return Validationf("pilot id is required")
	}
	if p.ExperienceHours < 0 {
		return Validationf("pilot %s: negative experience hours %d", p.ID, p.ExperienceHours)
	}
	if p.HourlyRate <= 0 {
		return Validationf("pilot %s: hourly rate must be positive", p.ID)
	}
	if err := p.Availability.Validate(); err != nil {
		return Validationf("pilot %s availability: %v", p.ID, err)
	}
	return nil
}

// MissionCost estimates the pilot cost for a mission lasting days.
func (p Pilot) MissionCost(days int) float64 {
	return p.HourlyRate * WorkdayHours * float64(days)
}

// Assigned reports whether the pilot currently holds a mission.
func (p Pilot) Assigned() bool { return p.CurrentAssignment != "" }

// Clone returns a deep copy.
func (p Pilot) Clone() Pilot {
	p.Skills = append([]string(nil), p.Skills...)
	p.Certifications = append([]string(nil), p.Certifications...)
	return p
}
