package model

import (
	"encoding/json"
	"strings"
	"time"
)

// ConflictType enumerates the assignment violations the detector reports.
type ConflictType int

const (
	DoubleBooking ConflictType = iota
	SkillMismatch
	CertificationMismatch
	EquipmentMismatch
	MaintenanceConflict
	WeatherRisk
	LocationMismatch
	BudgetOverrun
	ConflictPilotUnavailable
)

var conflictTypeNames = [...]string{
	DoubleBooking:            "double_booking",
	SkillMismatch:            "skill_mismatch",
	CertificationMismatch:    "certification_mismatch",
	EquipmentMismatch:        "equipment_mismatch",
	MaintenanceConflict:      "maintenance_conflict",
	WeatherRisk:              "weather_risk",
	LocationMismatch:         "location_mismatch",
	BudgetOverrun:            "budget_overrun",
	ConflictPilotUnavailable: "pilot_unavailable",
}

func (t ConflictType) String() string {
	if t < 0 || int(t) >= len(conflictTypeNames) {
		return "unknown"
	}
	return conflictTypeNames[t]
}

// ParseConflictType is the inverse of String.
func ParseConflictType(s string) (ConflictType, error) {
	for i, n := range conflictTypeNames {
		if n == strings.ToLower(strings.TrimSpace(s)) {
			return ConflictType(i), nil
		}
	}
	return 0, Validationf("unknown conflict type %q", s)
}

func (t ConflictType) MarshalJSON() ([]byte, error) { return json.Marshal(t.String()) }

func (t *ConflictType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseConflictType(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Severity ranks conflicts. Lower values are more severe.
type Severity int

const (
	SeverityCritical Severity = iota
	SeverityWarning
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "Critical"
	case SeverityWarning:
		return "Warning"
	case SeverityInfo:
		return "Info"
	default:
		return "unknown"
	}
}

// ParseSeverity parses Critical, Warning or Info.
func ParseSeverity(s string) (Severity, error) {
	switch normalize(s) {
	case "critical":
		return SeverityCritical, nil
	case "warning":
		return SeverityWarning, nil
	case "info":
		return SeverityInfo, nil
	}
	return 0, Validationf("unknown severity %q", s)
}

func (s Severity) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

func (s *Severity) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	v, err := ParseSeverity(str)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Severities lists all severities, most severe first.
func Severities() []Severity {
	return []Severity{SeverityCritical, SeverityWarning, SeverityInfo}
}

// Conflict is a detected violation of an assignment invariant.
type Conflict struct {
	Type              ConflictType `json:"type"`
	Severity          Severity     `json:"severity"`
	MissionID         string       `json:"mission_id"`
	RelatedMissionIDs []string     `json:"related_mission_ids,omitempty"`
	ResourceIDs       []string     `json:"resource_ids"`
	Description       string       `json:"description"`
	SuggestedAction   string       `json:"suggested_action,omitempty"`
	DetectedAt        time.Time    `json:"detected_at"`
}

// ConflictKey identifies a conflict within one detection pass. Related is
// only set for double bookings, where one mission can clash with several
// others over the same resource.
type ConflictKey struct {
	MissionID string
	Type      ConflictType
	Resource  string
	Related   string
}

// Key returns the (mission, type, resource) identity of c.
func (c Conflict) Key() ConflictKey {
	return ConflictKey{
		MissionID: c.MissionID,
		Type:      c.Type,
		Resource:  strings.Join(c.ResourceIDs, ","),
		Related:   strings.Join(c.RelatedMissionIDs, ","),
	}
}

// Involves reports whether c concerns mission id, either directly or as the
// other side of a double booking.
func (c Conflict) Involves(missionID string) bool {
	if c.MissionID == missionID {
		return true
	}
	for _, id := range c.RelatedMissionIDs {
		if id == missionID {
			return true
		}
	}
	return false
}
