package syncqueue

import (
	"context"

	"github.com/kilianp07/droneops/core/logger"
	"github.com/kilianp07/droneops/core/model"
)

// LogSink writes every change record to a logger. It never fails.
type LogSink struct {
	Log logger.Logger
}

func (LogSink) Name() string { return "log" }

func (s LogSink) Apply(_ context.Context, rec model.ChangeRecord) error {
	logger.OrNop(s.Log).Debugw("sync change", map[string]any{
		"id":     rec.ID,
		"entity": string(rec.EntityType),
		"key":    rec.EntityID,
		"field":  rec.Field,
		"old":    rec.OldValue,
		"new":    rec.NewValue,
	})
	return nil
}
