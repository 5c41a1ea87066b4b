package model

import (
	"time"

	"github.com/google/uuid"
)

// EntityType names the kind of record a change applies to.
type EntityType string

const (
	EntityPilot   EntityType = "pilot"
	EntityDrone   EntityType = "drone"
	EntityMission EntityType = "mission"
)

// ChangeRecord describes one field mutation for external sync. Applying the
// same record twice must be harmless.
type ChangeRecord struct {
	ID         string     `json:"id"`
	EntityType EntityType `json:"entity_type"`
	EntityID   string     `json:"entity_id"`
	Field      string     `json:"field"`
	OldValue   string     `json:"old_value"`
	NewValue   string     `json:"new_value"`
	Timestamp  time.Time  `json:"timestamp"`
}

// NewChange builds a change record with a fresh id.
func NewChange(et EntityType, id, field, oldVal, newVal string, ts time.Time) ChangeRecord {
	return ChangeRecord{
		ID:         uuid.NewString(),
		EntityType: et,
		EntityID:   id,
		Field:      field,
		OldValue:   oldVal,
		NewValue:   newVal,
		Timestamp:  ts,
	}
}

// Field names used in change records.
const (
	FieldStatus            = "status"
	FieldCurrentAssignment = "current_assignment"
	FieldAssignedPilot     = "assigned_pilot"
	FieldAssignedDrone     = "assigned_drone"
	FieldMaintenanceDue    = "maintenance_due"
)
