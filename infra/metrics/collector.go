package metrics

import (
	"context"

	"github.com/kilianp07/droneops/core/events"
	coremetrics "github.com/kilianp07/droneops/core/metrics"
	"github.com/kilianp07/droneops/infra/logger"
	"github.com/kilianp07/droneops/internal/eventbus"
)

// StartEventCollector subscribes to the detection and flush buses and records
// each event on sink. It stops when ctx is canceled or the buses close.
func StartEventCollector(ctx context.Context, hub *eventbus.Hub, sink coremetrics.MetricsSink, log logger.Logger) {
	if hub == nil || sink == nil {
		return
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	detections := hub.Conflicts.Subscribe()
	flushes := hub.Flushes.Subscribe()
	go func() {
		defer hub.Conflicts.Unsubscribe(detections)
		defer hub.Flushes.Unsubscribe(flushes)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-detections:
				if !ok {
					return
				}
				if err := sink.RecordDetection(detectionEvent(ev)); err != nil {
					log.Warnf("metrics: record detection: %v", err)
				}
			case ev, ok := <-flushes:
				if !ok {
					return
				}
				err := sink.RecordSyncFlush(coremetrics.SyncFlushEvent{
					Total:     ev.Total,
					Succeeded: ev.Succeeded,
					Failed:    ev.Failed,
					Pending:   ev.Pending,
					Duration:  ev.Duration,
					Time:      ev.Time,
				})
				if err != nil {
					log.Warnf("metrics: record sync flush: %v", err)
				}
			}
		}
	}()
}

func detectionEvent(ev events.ConflictsDetectedEvent) coremetrics.DetectionEvent {
	return coremetrics.DetectionEvent{
		Total: ev.Total(),
		BySeverity: map[string]int{
			"Critical": ev.Critical,
			"Warning":  ev.Warning,
			"Info":     ev.Info,
		},
		ByType:   ev.ByType,
		Skipped:  ev.Skipped,
		Duration: ev.Duration,
		Time:     ev.Time,
	}
}
