package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/droneops/core/metrics"
)

type lineRecorder struct {
	mu     sync.Mutex
	bodies []string
}

func (l *lineRecorder) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		l.mu.Lock()
		l.bodies = append(l.bodies, strings.TrimSpace(string(data)))
		l.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func line(p *write.Point) string {
	return strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
}

func TestInfluxSink_RecordDetection(t *testing.T) {
	rec := &lineRecorder{}
	srv := rec.server(t)
	sink := NewInfluxSink(InfluxConfig{URL: srv.URL, Token: "token", Org: "org", Bucket: "bucket"})
	defer sink.Close()

	now := time.Now()
	ev := coremetrics.DetectionEvent{
		Total:      3,
		BySeverity: map[string]int{"Critical": 1, "Warning": 2},
		Skipped:    1,
		Duration:   1500 * time.Microsecond,
		Time:       now,
	}
	require.NoError(t, sink.RecordDetection(ev))

	p := write.NewPointWithMeasurement("conflict_detection").
		AddTag("component", "conflict_detector").
		AddField("total", 3).
		AddField("critical", 1).
		AddField("warning", 2).
		AddField("info", 0).
		AddField("skipped", 1).
		AddField("duration_ms", 1.5).
		SetTime(now)
	assert.Equal(t, []string{line(p)}, rec.bodies)
}

func TestInfluxSink_RecordReassignment(t *testing.T) {
	rec := &lineRecorder{}
	srv := rec.server(t)
	sink := NewInfluxSink(InfluxConfig{URL: srv.URL + "/api/v2/write", Token: "token", Org: "org", Bucket: "bucket"})
	defer sink.Close()

	now := time.Now()
	ev := coremetrics.ReassignmentEvent{MissionID: "PRJ002", Actor: "ops", Outcome: coremetrics.OutcomeExecuted, Changes: 2, Time: now}
	require.NoError(t, sink.RecordReassignment(ev))

	p := write.NewPointWithMeasurement("reassignment").
		AddTag("mission_id", "PRJ002").
		AddTag("outcome", "executed").
		AddTag("component", "reassign").
		AddTag("actor", "ops").
		AddField("suggestions", 0).
		AddField("changes", 2).
		SetTime(now)
	assert.Equal(t, []string{line(p)}, rec.bodies)
}

func TestInfluxSink_RecordSyncFlush(t *testing.T) {
	rec := &lineRecorder{}
	srv := rec.server(t)
	sink := NewInfluxSink(InfluxConfig{URL: srv.URL, Token: "token", Org: "org", Bucket: "bucket"})
	defer sink.Close()

	now := time.Now()
	ev := coremetrics.SyncFlushEvent{Total: 4, Succeeded: 3, Failed: 1, Pending: 1, Duration: 2 * time.Millisecond, Time: now}
	require.NoError(t, sink.RecordSyncFlush(ev))

	p := write.NewPointWithMeasurement("sync_flush").
		AddTag("component", "sync_queue").
		AddField("total", 4).
		AddField("succeeded", 3).
		AddField("failed", 1).
		AddField("pending", 1).
		AddField("duration_ms", 2.0).
		SetTime(now)
	assert.Equal(t, []string{line(p)}, rec.bodies)
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(InfluxConfig{URL: srv.URL + "/api/v2/write", Token: "tok", Org: "org", Bucket: "bucket"})
	_, isInflux := sink.(*InfluxSink)
	assert.False(t, isInflux, "expected NopSink on failing health check")
	assert.True(t, called, "health endpoint not called")
}
