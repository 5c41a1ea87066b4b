package model

import (
	"strings"
	"time"
)

// Drone is an aircraft in the fleet inventory.
type Drone struct {
	ID                string        `json:"id"`
	Model             string        `json:"model"`
	Capabilities      []string      `json:"capabilities"`
	WeatherRating     WeatherRating `json:"weather_rating"`
	CurrentAssignment string        `json:"current_assignment,omitempty"`
	Status            DroneStatus   `json:"status"`
	Location          string        `json:"location"`
	MaintenanceDue    time.Time     `json:"maintenance_due,omitempty"`
	DailyRate         float64       `json:"daily_rate"`
}

func (d Drone) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return Validationf("drone id is required")
	}
	if d.DailyRate < 0 {
		return Validationf("drone %s: negative daily rate", d.ID)
	}
	return nil
}

// MissionCost estimates the drone cost for a mission lasting days.
func (d Drone) MissionCost(days int) float64 {
	return d.DailyRate * float64(days)
}

// MaintenanceOverdue reports whether maintenance is due on or before t.
func (d Drone) MaintenanceOverdue(t time.Time) bool {
	return !d.MaintenanceDue.IsZero() && !day(d.MaintenanceDue).After(day(t))
}

func (d Drone) Assigned() bool { return d.CurrentAssignment != "" }

// Clone returns a deep copy.
func (d Drone) Clone() Drone {
	d.Capabilities = append([]string(nil), d.Capabilities...)
	return d
}
