package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/droneops/core/events"
	"github.com/kilianp07/droneops/core/factory"
	coremetrics "github.com/kilianp07/droneops/core/metrics"
	"github.com/kilianp07/droneops/internal/eventbus"
)

func TestPromSinkRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, sink.RecordDetection(coremetrics.DetectionEvent{
		BySeverity: map[string]int{"Critical": 2, "Warning": 1, "Info": 0},
		Skipped:    1,
	}))
	require.NoError(t, sink.RecordReassignment(coremetrics.ReassignmentEvent{Outcome: coremetrics.OutcomeExecuted, Changes: 3}))
	require.NoError(t, sink.RecordSyncFlush(coremetrics.SyncFlushEvent{Succeeded: 2, Failed: 1, Pending: 1, Duration: time.Millisecond}))
	require.NoError(t, sink.RecordMatch(coremetrics.MatchEvent{Kind: "pilot"}))

	assert.Equal(t, 1.0, testutil.ToFloat64(sink.detections))
	assert.Equal(t, 2.0, testutil.ToFloat64(sink.conflicts.WithLabelValues("Critical")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.skipped))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.reassigns.WithLabelValues("executed")))
	assert.Equal(t, 3.0, testutil.ToFloat64(sink.changes))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.syncItems.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.syncPending))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.matches.WithLabelValues("pilot", "true")))
}

func TestPromSinkReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	second, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, second.RecordReassignment(coremetrics.ReassignmentEvent{Outcome: coremetrics.OutcomeNoOp}))
	assert.Equal(t, 1.0, testutil.ToFloat64(first.reassigns.WithLabelValues("noop")))
}

func TestHandlerServesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	require.NoError(t, sink.RecordReassignment(coremetrics.ReassignmentEvent{Outcome: coremetrics.OutcomeSuggested}))

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `reassignments_total{outcome="suggested"} 1`)
}

func TestFactoryBuildsRegisteredSinks(t *testing.T) {
	sink, err := coremetrics.NewMetricsSink(coremetrics.Config{Sinks: []factory.ModuleConfig{{Type: "nop"}}})
	require.NoError(t, err)
	assert.IsType(t, coremetrics.NopSink{}, sink)

	_, err = coremetrics.NewMetricsSink(coremetrics.Config{Sinks: []factory.ModuleConfig{{Type: "graphite"}}})
	assert.Error(t, err)
}

func TestEventCollectorForwardsBusEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	hub := eventbus.NewHub()
	defer hub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	StartEventCollector(ctx, hub, sink, nil)

	require.Eventually(t, func() bool {
		return hub.Conflicts.Subscribers() == 1 && hub.Flushes.Subscribers() == 1
	}, time.Second, 10*time.Millisecond)

	hub.Conflicts.Publish(events.ConflictsDetectedEvent{Critical: 1, Warning: 2})
	hub.Flushes.Publish(events.SyncFlushedEvent{Succeeded: 4, Pending: 2})

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(sink.detections) == 1 && testutil.ToFloat64(sink.syncPending) == 2
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 2.0, testutil.ToFloat64(sink.conflicts.WithLabelValues("Warning")))
}
