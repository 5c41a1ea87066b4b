// Package audit keeps the append-only trail of applied reassignments and
// roster updates (who, what, when, old and new value).
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/droneops/core/model"
)

// Entry is one applied field mutation.
type Entry struct {
	ID         string           `json:"id"`
	Timestamp  time.Time        `json:"timestamp"`
	Actor      string           `json:"actor"`
	Action     string           `json:"action"`
	MissionID  string           `json:"mission_id,omitempty"`
	EntityType model.EntityType `json:"entity_type"`
	EntityID   string           `json:"entity_id"`
	Field      string           `json:"field"`
	Old        string           `json:"old"`
	New        string           `json:"new"`
}

// Actions recorded in the trail.
const (
	ActionReassign      = "reassign"
	ActionStatusUpdate  = "status_update"
	ActionMaintenance   = "flag_maintenance"
	ActionAssignmentSet = "assignment"
)

// FromChanges turns change records into entries attributed to actor.
func FromChanges(actor, action, missionID string, recs []model.ChangeRecord) []Entry {
	out := make([]Entry, 0, len(recs))
	for _, r := range recs {
		out = append(out, Entry{
			ID:         uuid.NewString(),
			Timestamp:  r.Timestamp,
			Actor:      actor,
			Action:     action,
			MissionID:  missionID,
			EntityType: r.EntityType,
			EntityID:   r.EntityID,
			Field:      r.Field,
			Old:        r.OldValue,
			New:        r.NewValue,
		})
	}
	return out
}

// Query filters entries. Zero fields match everything.
type Query struct {
	Start     time.Time
	End       time.Time
	MissionID string
	EntityID  string
	Actor     string
}

func (q Query) match(e Entry) bool {
	if !q.Start.IsZero() && e.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && e.Timestamp.After(q.End) {
		return false
	}
	if q.MissionID != "" && e.MissionID != q.MissionID {
		return false
	}
	if q.EntityID != "" && e.EntityID != q.EntityID {
		return false
	}
	if q.Actor != "" && e.Actor != q.Actor {
		return false
	}
	return true
}

// Store persists entries and supports querying.
type Store interface {
	Append(ctx context.Context, entries ...Entry) error
	Query(ctx context.Context, q Query) ([]Entry, error)
	Close() error
}

// Config selects a backend.
type Config struct {
	Backend    string `json:"backend" yaml:"backend"`
	Path       string `json:"path" yaml:"path"`
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `json:"max_age_days" yaml:"max_age_days"`
}

// New opens the configured backend: memory (default), jsonl, rotating or
// sqlite.
func New(cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "jsonl":
		return NewJSONLStore(cfg.Path)
	case "rotating":
		return NewRotatingJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
	case "sqlite":
		return NewSQLiteStore(cfg.Path)
	default:
		return nil, fmt.Errorf("audit: unknown backend %q", cfg.Backend)
	}
}
