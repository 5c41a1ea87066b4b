package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kilianp07/droneops/config"
	"github.com/kilianp07/droneops/core/audit"
	"github.com/kilianp07/droneops/core/conflict"
	"github.com/kilianp07/droneops/core/events"
	"github.com/kilianp07/droneops/core/matching"
	coremetrics "github.com/kilianp07/droneops/core/metrics"
	"github.com/kilianp07/droneops/core/model"
	"github.com/kilianp07/droneops/core/reassign"
	"github.com/kilianp07/droneops/core/roster"
	"github.com/kilianp07/droneops/core/scoring"
	"github.com/kilianp07/droneops/core/syncqueue"
	"github.com/kilianp07/droneops/infra/logger"
	"github.com/kilianp07/droneops/infra/metrics"
	"github.com/kilianp07/droneops/internal/eventbus"

	// sync sink factories
	_ "github.com/kilianp07/droneops/infra/mqtt"
	_ "github.com/kilianp07/droneops/infra/sheets"
	_ "github.com/kilianp07/droneops/infra/webhook"
)

// Service is the query and command facade over the roster. Reads share a
// lock; mutations hold it exclusively.
type Service struct {
	mu    sync.RWMutex
	state *roster.State

	cfg      *config.Config
	detector *conflict.Detector
	engine   *matching.Engine
	coord    *reassign.Coordinator
	queue    *syncqueue.Queue
	store    audit.Store
	sink     coremetrics.MetricsSink
	hub      *eventbus.Hub
	log      logger.Logger
	now      func() time.Time

	sinks []syncqueue.Sink
}

// Option overrides a dependency built from the configuration.
type Option func(*Service)

func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithAuditStore replaces the configured audit backend.
func WithAuditStore(st audit.Store) Option { return func(s *Service) { s.store = st } }

// WithSyncSinks replaces the configured sync sinks.
func WithSyncSinks(sinks ...syncqueue.Sink) Option {
	return func(s *Service) {
		if sinks == nil {
			sinks = []syncqueue.Sink{}
		}
		s.sinks = sinks
	}
}

// WithMetricsSink replaces the configured metrics sinks.
func WithMetricsSink(m coremetrics.MetricsSink) Option { return func(s *Service) { s.sink = m } }

// New wires the engines around st.
func New(cfg *config.Config, st *roster.State, opts ...Option) (*Service, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if st == nil {
		return nil, model.Validationf("roster state is required")
	}
	s := &Service{cfg: cfg, state: st, log: logger.NopLogger{}, now: time.Now}
	for _, o := range opts {
		o(s)
	}

	var err error
	if s.store == nil {
		if s.store, err = audit.New(cfg.Audit.Store()); err != nil {
			return nil, fmt.Errorf("audit store: %w", err)
		}
	}
	if s.sinks == nil {
		if s.sinks, err = syncqueue.NewSinks(cfg.Sync.Sinks); err != nil {
			return nil, fmt.Errorf("sync sinks: %w", err)
		}
	}
	if s.sink == nil {
		if s.sink, err = coremetrics.NewMetricsSink(cfg.Metrics); err != nil {
			return nil, fmt.Errorf("metrics sink: %w", err)
		}
	}
	policy, err := cfg.Conflicts.Policy()
	if err != nil {
		return nil, err
	}

	s.hub = eventbus.NewHub()
	s.detector = conflict.NewDetector(
		conflict.WithPolicy(policy),
		conflict.WithClock(s.now),
		conflict.WithLogger(s.log),
	)
	s.engine = matching.NewEngine(scoring.New(cfg.Scoring),
		matching.WithMaxRejections(cfg.Matching.MaxRejections),
		matching.WithLogger(s.log),
	)
	s.coord = reassign.New(s.detector, s.engine,
		reassign.WithAudit(s.store),
		reassign.WithMetrics(s.sink),
		reassign.WithLogger(s.log),
		reassign.WithMaxSuggestions(cfg.Reassign.MaxSuggestions),
		reassign.WithClock(s.now),
	)
	s.queue = syncqueue.New(s.sinks,
		syncqueue.WithLogger(s.log),
		syncqueue.WithClock(s.now),
		syncqueue.WithMaxItems(cfg.Sync.MaxItems),
	)
	return s, nil
}

// Hub exposes the event buses.
func (s *Service) Hub() *eventbus.Hub { return s.hub }

// Roster returns a copy of the current state.
func (s *Service) Roster() *roster.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// AvailablePilots lists Available pilots matching q.
func (s *Service) AvailablePilots(q roster.PilotQuery) []model.Pilot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.FindPilots(q)
}

// AvailableDrones lists Active unassigned drones matching q.
func (s *Service) AvailableDrones(q roster.DroneQuery) []model.Drone {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.FindDrones(q)
}

// PilotCost prices days of work for a pilot; zero days prices the current
// assignment.
func (s *Service) PilotCost(pilotID string, days int) (roster.PilotCost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.PilotCost(pilotID, days)
}

func (s *Service) mission(id string) (model.Mission, error) {
	m, ok := s.state.Mission(id)
	if !ok {
		return model.Mission{}, model.Validationf("unknown mission %s", id)
	}
	return m, nil
}

// MatchPilots ranks every pilot for a mission. Pilots booked on an
// overlapping mission are rejected.
func (s *Service) MatchPilots(missionID string) (matching.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, err := s.mission(missionID)
	if err != nil {
		return matching.Result{}, err
	}
	start := time.Now()
	res := s.engine.MatchPilots(m, s.state.Pilots(), matching.WithBookings(s.state.Missions()))
	s.recordMatch(res, time.Since(start))
	return res, nil
}

// MatchDrones ranks every drone for a mission.
func (s *Service) MatchDrones(missionID string) (matching.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, err := s.mission(missionID)
	if err != nil {
		return matching.Result{}, err
	}
	start := time.Now()
	res := s.engine.MatchDrones(m, s.state.Drones(), matching.WithBookings(s.state.Missions()))
	s.recordMatch(res, time.Since(start))
	return res, nil
}

func (s *Service) recordMatch(res matching.Result, d time.Duration) {
	rec, ok := s.sink.(coremetrics.MatchRecorder)
	if !ok {
		return
	}
	ev := coremetrics.MatchEvent{
		MissionID:  res.MissionID,
		Kind:       res.Kind.String(),
		Candidates: len(res.Candidates),
		Rejected:   len(res.Rejections),
		Duration:   d,
		Time:       s.now(),
	}
	if top, ok := res.Top(); ok {
		ev.TopScore = top.Score.Total
	}
	if err := rec.RecordMatch(ev); err != nil {
		s.log.Warnf("service: record match: %v", err)
	}
}

// DetectConflicts runs detection over every in-scope mission, or over one
// mission when missionID is set.
func (s *Service) DetectConflicts(missionID string) (conflict.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := time.Now()
	var rep conflict.Report
	if missionID == "" {
		rep = s.detector.DetectAll(s.state.Missions(), s.state.Pilots(), s.state.Drones())
	} else {
		if _, err := s.mission(missionID); err != nil {
			return conflict.Report{}, err
		}
		rep = s.detector.DetectFor(missionID, s.state.Missions(), s.state.Pilots(), s.state.Drones())
	}
	counts := rep.Counts()
	s.hub.Conflicts.Publish(events.ConflictsDetectedEvent{
		MissionID: missionID,
		Critical:  counts[model.SeverityCritical],
		Warning:   counts[model.SeverityWarning],
		Info:      counts[model.SeverityInfo],
		ByType:    rep.CountsByType(),
		Skipped:   len(rep.Skipped),
		Duration:  time.Since(start),
		Time:      s.now(),
	})
	return rep, nil
}

// SuggestReassignment proposes replacements for the resources disqualified
// by a mission's conflicts.
func (s *Service) SuggestReassignment(missionID string) (reassign.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.coord.Suggest(s.state, missionID)
}

// Priorities lists the missions with Critical conflicts, most urgent first.
func (s *Service) Priorities() []reassign.Urgent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.coord.Priorities(s.state)
}

// ReassignmentPhase reports where a mission stands in the workflow.
func (s *Service) ReassignmentPhase(missionID string) reassign.Phase {
	return s.coord.Phase(missionID)
}

// ExecuteReassignment applies a reassignment and queues its change records
// for sync. A non-nil error together with a non-empty Outcome means the
// change was applied but not audited.
func (s *Service) ExecuteReassignment(ctx context.Context, req reassign.Request) (reassign.Outcome, error) {
	if req.Actor == "" {
		req.Actor = s.cfg.Reassign.DefaultActor
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out, err := s.coord.Execute(ctx, s.state, req)
	if len(out.Changes) > 0 {
		s.queue.Enqueue(out.Changes...)
		s.hub.Changes.Publish(events.ChangeEvent{Records: out.Changes, Source: audit.ActionReassign})
	}
	if out.MissionID != "" {
		outcome := coremetrics.OutcomeExecuted
		if out.NoOp {
			outcome = coremetrics.OutcomeNoOp
		}
		s.hub.Reassignments.Publish(events.ReassignmentEvent{
			MissionID: out.MissionID,
			Actor:     req.Actor,
			Outcome:   outcome,
			OldPilot:  out.OldPilot,
			NewPilot:  out.NewPilot,
			OldDrone:  out.OldDrone,
			NewDrone:  out.NewDrone,
			Time:      s.now(),
		})
	}
	return out, err
}

// AbandonReassignment drops a pending suggestion without touching state.
func (s *Service) AbandonReassignment(missionID string) error {
	if err := s.coord.Abandon(missionID); err != nil {
		return err
	}
	s.hub.Reassignments.Publish(events.ReassignmentEvent{
		MissionID: missionID,
		Outcome:   coremetrics.OutcomeAbandoned,
		Time:      s.now(),
	})
	return nil
}

// UpdatePilotStatus sets a pilot's status.
func (s *Service) UpdatePilotStatus(ctx context.Context, actor, pilotID string, status model.PilotStatus) ([]model.ChangeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs, err := s.state.SetPilotStatus(pilotID, status)
	if err != nil {
		return nil, err
	}
	return recs, s.commit(ctx, actor, audit.ActionStatusUpdate, recs)
}

// UpdateDroneStatus sets a drone's status.
func (s *Service) UpdateDroneStatus(ctx context.Context, actor, droneID string, status model.DroneStatus) ([]model.ChangeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs, err := s.state.SetDroneStatus(droneID, status)
	if err != nil {
		return nil, err
	}
	return recs, s.commit(ctx, actor, audit.ActionStatusUpdate, recs)
}

// FlagMaintenance schedules maintenance and moves the drone to Maintenance.
func (s *Service) FlagMaintenance(ctx context.Context, actor, droneID string, due time.Time) ([]model.ChangeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs, err := s.state.FlagMaintenance(droneID, due)
	if err != nil {
		return nil, err
	}
	return recs, s.commit(ctx, actor, audit.ActionMaintenance, recs)
}

// commit audits and queues the records of an applied mutation. The caller
// holds the write lock. Audit failures leave the mutation in place.
func (s *Service) commit(ctx context.Context, actor, action string, recs []model.ChangeRecord) error {
	if len(recs) == 0 {
		return nil
	}
	if actor == "" {
		actor = s.cfg.Reassign.DefaultActor
	}
	s.queue.Enqueue(recs...)
	s.hub.Changes.Publish(events.ChangeEvent{Records: recs, Source: action})
	if err := s.store.Append(ctx, audit.FromChanges(actor, action, "", recs)...); err != nil {
		s.log.Errorf("service: audit %s: %v", action, err)
		return fmt.Errorf("audit: %w", err)
	}
	return nil
}

// FlushSync delivers queued change records to the sync sinks.
func (s *Service) FlushSync(ctx context.Context) syncqueue.FlushReport {
	rep := s.queue.Flush(ctx)
	s.hub.Flushes.Publish(events.SyncFlushedEvent{
		Total:     rep.Total,
		Succeeded: rep.Succeeded,
		Failed:    rep.Failed,
		Pending:   rep.Pending,
		Duration:  rep.Duration,
		Time:      s.now(),
	})
	return rep
}

// SyncSinks names the sinks a flush delivers to.
func (s *Service) SyncSinks() []string { return s.queue.Sinks() }

// PendingSync returns the queued change records.
func (s *Service) PendingSync() []syncqueue.Item { return s.queue.Pending() }

// AuditTrail queries the audit store.
func (s *Service) AuditTrail(ctx context.Context, q audit.Query) ([]audit.Entry, error) {
	return s.store.Query(ctx, q)
}

// Run records bus events as metrics, serves Prometheus when configured and
// flushes the sync queue every Sync.FlushInterval. It blocks until ctx is
// canceled, then flushes once more.
func (s *Service) Run(ctx context.Context) error {
	metrics.StartEventCollector(ctx, s.hub, s.sink, s.log)
	if s.promEnabled() {
		go func() {
			if err := metrics.StartPromServer(ctx, s.cfg.Metrics.ListenAddr, s.log); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	var tick <-chan time.Time
	if d := s.cfg.Sync.FlushInterval; d > 0 {
		t := time.NewTicker(d)
		defer t.Stop()
		tick = t.C
	}
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			s.FlushSync(flushCtx)
			cancel()
			return nil
		case <-tick:
			s.FlushSync(ctx)
		}
	}
}

func (s *Service) promEnabled() bool {
	for _, m := range s.cfg.Metrics.Sinks {
		if m.Type == "prometheus" {
			return true
		}
	}
	return false
}

// Close releases the audit store, sink connections and event buses.
func (s *Service) Close() error {
	for _, sk := range s.sinks {
		if d, ok := sk.(interface{ Disconnect() }); ok {
			d.Disconnect()
		}
	}
	if c, ok := s.sink.(interface{ Close() }); ok {
		c.Close()
	}
	s.hub.Close()
	return s.store.Close()
}
