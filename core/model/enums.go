package model

import (
	"fmt"
	"strings"
)

// PilotStatus describes whether a pilot can take on work.
type PilotStatus int

const (
	PilotAvailable PilotStatus = iota
	PilotOnLeave
	PilotUnavailable
)

// String returns the roster spelling of the status.
func (s PilotStatus) String() string {
	switch s {
	case PilotAvailable:
		return "Available"
	case PilotOnLeave:
		return "On Leave"
	case PilotUnavailable:
		return "Unavailable"
	default:
		return "unknown"
	}
}

// ParsePilotStatus parses the roster spelling of a pilot status.
func ParsePilotStatus(s string) (PilotStatus, error) {
	switch normalize(s) {
	case "available", "":
		return PilotAvailable, nil
	case "on leave", "onleave", "on_leave", "leave":
		return PilotOnLeave, nil
	case "unavailable":
		return PilotUnavailable, nil
	}
	return 0, fmt.Errorf("%w: unknown pilot status %q", ErrValidation, s)
}

// DroneStatus describes the operational state of a drone.
type DroneStatus int

const (
	DroneActive DroneStatus = iota
	DroneMaintenance
	DroneIdle
)

func (s DroneStatus) String() string {
	switch s {
	case DroneActive:
		return "Active"
	case DroneMaintenance:
		return "Maintenance"
	case DroneIdle:
		return "Idle"
	default:
		return "unknown"
	}
}

// ParseDroneStatus accepts Active, Maintenance and Idle. Standby and
// Available are fleet-sheet aliases for Idle.
func ParseDroneStatus(s string) (DroneStatus, error) {
	switch normalize(s) {
	case "active", "":
		return DroneActive, nil
	case "maintenance", "in maintenance":
		return DroneMaintenance, nil
	case "idle", "standby", "available":
		return DroneIdle, nil
	}
	return 0, fmt.Errorf("%w: unknown drone status %q", ErrValidation, s)
}

// Weather is a mission forecast value.
type Weather int

const (
	Sunny Weather = iota
	Cloudy
	Rainy
	Stormy
)

func (w Weather) String() string {
	switch w {
	case Sunny:
		return "Sunny"
	case Cloudy:
		return "Cloudy"
	case Rainy:
		return "Rainy"
	case Stormy:
		return "Stormy"
	default:
		return "unknown"
	}
}

// ParseWeather parses a forecast. An empty value defaults to Sunny.
func ParseWeather(s string) (Weather, error) {
	switch normalize(s) {
	case "sunny", "clear", "":
		return Sunny, nil
	case "cloudy", "overcast":
		return Cloudy, nil
	case "rainy", "rain":
		return Rainy, nil
	case "stormy", "storm":
		return Stormy, nil
	}
	return 0, fmt.Errorf("%w: unknown weather %q", ErrValidation, s)
}

// WeatherRating is the ingress protection class of a drone. Higher ratings
// cover a superset of the forecasts covered by lower ones.
type WeatherRating int

const (
	RatingGeneric WeatherRating = iota
	RatingIP42
	RatingIP43
	RatingIP45
)

func (r WeatherRating) String() string {
	switch r {
	case RatingGeneric:
		return "Generic"
	case RatingIP42:
		return "IP42"
	case RatingIP43:
		return "IP43"
	case RatingIP45:
		return "IP45"
	default:
		return "unknown"
	}
}

// ParseWeatherRating parses Generic, IP42, IP43 or IP45.
func ParseWeatherRating(s string) (WeatherRating, error) {
	switch normalize(s) {
	case "generic", "none", "":
		return RatingGeneric, nil
	case "ip42":
		return RatingIP42, nil
	case "ip43":
		return RatingIP43, nil
	case "ip45":
		return RatingIP45, nil
	}
	return 0, fmt.Errorf("%w: unknown weather rating %q", ErrValidation, s)
}

// Covers reports whether a drone with this rating may fly in w.
func (r WeatherRating) Covers(w Weather) bool {
	switch w {
	case Sunny, Cloudy:
		return r >= RatingGeneric && r <= RatingIP45
	case Rainy:
		return r >= RatingIP42 && r <= RatingIP45
	case Stormy:
		return r == RatingIP45
	}
	return false
}

// Priority orders missions by business importance.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "Low"
	case PriorityMedium:
		return "Medium"
	case PriorityHigh:
		return "High"
	case PriorityCritical:
		return "Critical"
	default:
		return "unknown"
	}
}

// ParsePriority parses a mission priority. Empty defaults to Medium.
func ParsePriority(s string) (Priority, error) {
	switch normalize(s) {
	case "low":
		return PriorityLow, nil
	case "medium", "":
		return PriorityMedium, nil
	case "high":
		return PriorityHigh, nil
	case "critical", "urgent":
		return PriorityCritical, nil
	}
	return 0, fmt.Errorf("%w: unknown priority %q", ErrValidation, s)
}

// MissionStatus is the lifecycle state of a mission.
type MissionStatus int

const (
	MissionPlanned MissionStatus = iota
	MissionActive
	MissionCompleted
	MissionCancelled
)

func (s MissionStatus) String() string {
	switch s {
	case MissionPlanned:
		return "Planned"
	case MissionActive:
		return "Active"
	case MissionCompleted:
		return "Completed"
	case MissionCancelled:
		return "Cancelled"
	default:
		return "unknown"
	}
}

// Closed reports whether the mission no longer holds resources.
func (s MissionStatus) Closed() bool {
	return s == MissionCompleted || s == MissionCancelled
}

// ParseMissionStatus parses a mission status. Pending and Scheduled are
// accepted as Planned; In Progress as Active.
func ParseMissionStatus(s string) (MissionStatus, error) {
	switch normalize(s) {
	case "planned", "pending", "scheduled", "":
		return MissionPlanned, nil
	case "active", "in progress", "in_progress", "ongoing":
		return MissionActive, nil
	case "completed", "done":
		return MissionCompleted, nil
	case "cancelled", "canceled":
		return MissionCancelled, nil
	}
	return 0, fmt.Errorf("%w: unknown mission status %q", ErrValidation, s)
}

// ResourceKind distinguishes pilots from drones.
type ResourceKind int

const (
	KindPilot ResourceKind = iota
	KindDrone
)

func (k ResourceKind) String() string {
	switch k {
	case KindPilot:
		return "pilot"
	case KindDrone:
		return "drone"
	default:
		return "unknown"
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Text encodings use the display strings so JSON and YAML output stay
// readable.

func (s PilotStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *PilotStatus) UnmarshalText(b []byte) (err error) {
	*s, err = ParsePilotStatus(string(b))
	return err
}

func (s DroneStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *DroneStatus) UnmarshalText(b []byte) (err error) {
	*s, err = ParseDroneStatus(string(b))
	return err
}

func (w Weather) MarshalText() ([]byte, error) { return []byte(w.String()), nil }

func (w *Weather) UnmarshalText(b []byte) (err error) {
	*w, err = ParseWeather(string(b))
	return err
}

func (r WeatherRating) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *WeatherRating) UnmarshalText(b []byte) (err error) {
	*r, err = ParseWeatherRating(string(b))
	return err
}

func (p Priority) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Priority) UnmarshalText(b []byte) (err error) {
	*p, err = ParsePriority(string(b))
	return err
}

func (s MissionStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *MissionStatus) UnmarshalText(b []byte) (err error) {
	*s, err = ParseMissionStatus(string(b))
	return err
}

func (k ResourceKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }
