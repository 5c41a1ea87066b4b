package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/droneops/core/metrics"
	"github.com/kilianp07/droneops/infra/logger"
)

// InfluxConfig locates the InfluxDB bucket.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes workflow events to InfluxDB as points.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a sink for the given endpoint. A trailing
// /api/v2/write on the URL is accepted.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the instance and returns a NopSink when
// the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the client.
func (s *InfluxSink) Close() { s.client.Close() }

func (s *InfluxSink) write(p *write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, p)
}

func (s *InfluxSink) RecordDetection(ev coremetrics.DetectionEvent) error {
	p := write.NewPointWithMeasurement("conflict_detection").
		AddTag("component", "conflict_detector").
		AddField("total", ev.Total).
		AddField("critical", ev.BySeverity["Critical"]).
		AddField("warning", ev.BySeverity["Warning"]).
		AddField("info", ev.BySeverity["Info"]).
		AddField("skipped", ev.Skipped).
		AddField("duration_ms", round3(ev.Duration.Seconds()*1000)).
		SetTime(ev.Time)
	return s.write(p)
}

func (s *InfluxSink) RecordReassignment(ev coremetrics.ReassignmentEvent) error {
	p := write.NewPointWithMeasurement("reassignment").
		AddTag("mission_id", ev.MissionID).
		AddTag("outcome", ev.Outcome).
		AddTag("component", "reassign")
	if ev.Actor != "" {
		p = p.AddTag("actor", ev.Actor)
	}
	p = p.AddField("suggestions", ev.Suggestions).
		AddField("changes", ev.Changes).
		SetTime(ev.Time)
	return s.write(p)
}

func (s *InfluxSink) RecordSyncFlush(ev coremetrics.SyncFlushEvent) error {
	p := write.NewPointWithMeasurement("sync_flush").
		AddTag("component", "sync_queue").
		AddField("total", ev.Total).
		AddField("succeeded", ev.Succeeded).
		AddField("failed", ev.Failed).
		AddField("pending", ev.Pending).
		AddField("duration_ms", round3(ev.Duration.Seconds()*1000)).
		SetTime(ev.Time)
	return s.write(p)
}

func (s *InfluxSink) RecordMatch(ev coremetrics.MatchEvent) error {
	p := write.NewPointWithMeasurement("match").
		AddTag("mission_id", ev.MissionID).
		AddTag("kind", ev.Kind).
		AddField("candidates", ev.Candidates).
		AddField("rejected", ev.Rejected).
		AddField("top_score", ev.TopScore).
		AddField("duration_ms", round3(ev.Duration.Seconds()*1000)).
		SetTime(ev.Time)
	return s.write(p)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
