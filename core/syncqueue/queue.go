// Package syncqueue buffers change records for external sync. Delivery is
// at-least-once: a record stays queued until every sink accepted it, and a
// failed flush never rolls back local state.
package syncqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kilianp07/droneops/core/logger"
	"github.com/kilianp07/droneops/core/model"
	"github.com/kilianp07/droneops/core/monitoring"
)

// Sink applies change records to a remote system. Apply must be idempotent.
type Sink interface {
	Name() string
	Apply(ctx context.Context, rec model.ChangeRecord) error
}

// Item is a queued record with its delivery history.
type Item struct {
	Record     model.ChangeRecord `json:"record"`
	EnqueuedAt time.Time          `json:"enqueued_at"`
	Attempts   int                `json:"attempts"`
	LastError  string             `json:"last_error,omitempty"`
}

// ItemResult is the outcome of one record in a flush.
type ItemResult struct {
	RecordID   string           `json:"record_id"`
	EntityType model.EntityType `json:"entity_type"`
	EntityID   string           `json:"entity_id"`
	Field      string           `json:"field"`
	OK         bool             `json:"ok"`
	Error      string           `json:"error,omitempty"`
}

// FlushReport summarises a flush. Pending counts records still queued
// afterwards, including ones enqueued during the flush.
type FlushReport struct {
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Pending   int           `json:"pending"`
	Duration  time.Duration `json:"duration"`
	Items     []ItemResult  `json:"items"`
}

// Queue holds pending change records.
type Queue struct {
	mu       sync.Mutex
	flushMu  sync.Mutex
	items    []Item
	sinks    []Sink
	log      logger.Logger
	monitor  monitoring.Monitor
	now      func() time.Time
	maxItems int
}

// Option configures a Queue.
type Option func(*Queue)

func WithLogger(l logger.Logger) Option { return func(q *Queue) { q.log = logger.OrNop(l) } }

func WithMonitor(m monitoring.Monitor) Option {
	return func(q *Queue) {
		if m != nil {
			q.monitor = m
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(q *Queue) {
		if now != nil {
			q.now = now
		}
	}
}

// WithMaxItems caps the queue; the oldest records are dropped past the cap.
// Zero means unbounded.
func WithMaxItems(n int) Option { return func(q *Queue) { q.maxItems = n } }

// New returns a queue delivering to sinks.
func New(sinks []Sink, opts ...Option) *Queue {
	q := &Queue{sinks: sinks, log: logger.NopLogger{}, now: time.Now}
	for _, o := range opts {
		o(q)
	}
	if q.monitor == nil {
		q.monitor = monitoring.Current()
	}
	return q
}

// Sinks returns the configured sink names.
func (q *Queue) Sinks() []string {
	names := make([]string, 0, len(q.sinks))
	for _, s := range q.sinks {
		names = append(names, s.Name())
	}
	return names
}

// Enqueue appends records in order.
func (q *Queue) Enqueue(recs ...model.ChangeRecord) {
	if len(recs) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	at := q.now()
	for _, r := range recs {
		q.items = append(q.items, Item{Record: r, EnqueuedAt: at})
	}
	if q.maxItems > 0 && len(q.items) > q.maxItems {
		dropped := len(q.items) - q.maxItems
		q.items = append([]Item(nil), q.items[dropped:]...)
		q.log.Warnf("syncqueue: dropped %d oldest records, queue capped at %d", dropped, q.maxItems)
	}
}

// Len returns the number of queued records.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Pending returns a copy of the queued items.
func (q *Queue) Pending() []Item {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Item(nil), q.items...)
}

// Flush delivers every queued record to all sinks. Records any sink rejects
// stay queued for the next flush. If ctx is cancelled the remaining records
// are left untouched and not counted.
func (q *Queue) Flush(ctx context.Context) FlushReport {
	q.flushMu.Lock()
	defer q.flushMu.Unlock()
	start := time.Now()

	q.mu.Lock()
	batch := q.items
	q.items = nil
	q.mu.Unlock()

	var keep []Item
	rep := FlushReport{Items: []ItemResult{}}
	for i, it := range batch {
		if ctx.Err() != nil {
			keep = append(keep, batch[i:]...)
			break
		}
		rep.Total++
		res := ItemResult{
			RecordID:   it.Record.ID,
			EntityType: it.Record.EntityType,
			EntityID:   it.Record.EntityID,
			Field:      it.Record.Field,
		}
		it.Attempts++
		if err := q.apply(ctx, it.Record); err != nil {
			it.LastError = err.Error()
			res.Error = err.Error()
			rep.Failed++
			keep = append(keep, it)
		} else {
			res.OK = true
			rep.Succeeded++
		}
		rep.Items = append(rep.Items, res)
	}

	q.mu.Lock()
	q.items = append(keep, q.items...)
	rep.Pending = len(q.items)
	q.mu.Unlock()
	rep.Duration = time.Since(start)

	if rep.Failed > 0 {
		q.log.Warnf("syncqueue: flushed %d records, %d failed, %d pending", rep.Total, rep.Failed, rep.Pending)
	} else {
		q.log.Infof("syncqueue: flushed %d records", rep.Total)
	}
	return rep
}

func (q *Queue) apply(ctx context.Context, rec model.ChangeRecord) error {
	var errs []error
	for _, s := range q.sinks {
		if err := s.Apply(ctx, rec); err != nil {
			wrapped := fmt.Errorf("%w: %s %s/%s: %v", model.ErrSyncFailure, s.Name(), rec.EntityType, rec.EntityID, err)
			monitoring.Report(q.monitor, "syncqueue", wrapped, map[string]string{
				"sink":   s.Name(),
				"entity": string(rec.EntityType),
			})
			errs = append(errs, wrapped)
		}
	}
	return errors.Join(errs...)
}
