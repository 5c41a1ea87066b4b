package metrics_test

import (
	"encoding/json"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/droneops/core/factory"
	metrics "github.com/kilianp07/droneops/core/metrics"
)

// countingSink counts the events it receives per stream.
type countingSink struct {
	detections, reassignments, flushes, matches int
}

func (c *countingSink) RecordDetection(metrics.DetectionEvent) error {
	c.detections++
	return nil
}

func (c *countingSink) RecordReassignment(metrics.ReassignmentEvent) error {
	c.reassignments++
	return nil
}

func (c *countingSink) RecordSyncFlush(metrics.SyncFlushEvent) error {
	c.flushes++
	return nil
}

func (c *countingSink) RecordMatch(metrics.MatchEvent) error {
	c.matches++
	return nil
}

var lastCounting *countingSink

func init() {
	_ = metrics.RegisterMetricsSink("test-nop", func(map[string]any) (metrics.MetricsSink, error) {
		return metrics.NopSink{}, nil
	})
	_ = metrics.RegisterMetricsSink("test-counting", func(map[string]any) (metrics.MetricsSink, error) {
		lastCounting = &countingSink{}
		return lastCounting, nil
	})
}

/*
TestNewMetricsSink validates NewMetricsSink with zero, one and multiple sinks.
Cases:
  - no sinks -> NopSink
  - one sink -> the sink itself
  - two sinks -> MultiSink
  - unknown type -> error
*/
func TestNewMetricsSink(t *testing.T) {
	s, err := metrics.NewMetricsSink(metrics.Config{})
	if err != nil {
		t.Fatalf("create default: %v", err)
	}
	if _, ok := s.(metrics.NopSink); !ok {
		t.Fatalf("expected NopSink, got %T", s)
	}
	s, err = metrics.NewMetricsSink(metrics.Config{Sinks: []factory.ModuleConfig{{Type: "test-nop"}}})
	if err != nil {
		t.Fatalf("create single: %v", err)
	}
	if _, ok := s.(metrics.NopSink); !ok {
		t.Fatalf("expected NopSink, got %T", s)
	}
	s, err = metrics.NewMetricsSink(metrics.Config{Sinks: []factory.ModuleConfig{{Type: "test-nop"}, {Type: "test-nop"}}})
	if err != nil {
		t.Fatalf("create multi: %v", err)
	}
	ms, ok := s.(*metrics.MultiSink)
	if !ok || len(ms.Sinks) != 2 {
		t.Fatalf("expected MultiSink with 2 sinks, got %T", s)
	}
	if _, err := metrics.NewMetricsSink(metrics.Config{Sinks: []factory.ModuleConfig{{Type: "missing"}}}); err == nil {
		t.Fatal("expected error for unknown type")
	}
}

func TestNewMetricsSinkFiltersStreams(t *testing.T) {
	cfg := metrics.Config{
		Sinks:   []factory.ModuleConfig{{Type: "test-counting"}},
		Streams: []string{metrics.StreamDetections, metrics.StreamMatches},
	}
	s, err := metrics.NewMetricsSink(cfg)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_ = s.RecordDetection(metrics.DetectionEvent{Total: 2})
	_ = s.RecordReassignment(metrics.ReassignmentEvent{Outcome: metrics.OutcomeExecuted})
	_ = s.RecordSyncFlush(metrics.SyncFlushEvent{Total: 1})
	mr, ok := s.(metrics.MatchRecorder)
	if !ok {
		t.Fatalf("filtered sink should record matches, got %T", s)
	}
	_ = mr.RecordMatch(metrics.MatchEvent{MissionID: "PRJ001"})

	got := *lastCounting
	want := countingSink{detections: 1, matches: 1}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestConfigValidateStreams(t *testing.T) {
	if err := (metrics.Config{Streams: []string{"detections", "sync"}}).Validate(); err != nil {
		t.Fatalf("valid streams rejected: %v", err)
	}
	if err := (metrics.Config{Streams: []string{"telemetry"}}).Validate(); err == nil {
		t.Fatal("expected error for unknown stream")
	}
	if err := (metrics.Config{Sinks: []factory.ModuleConfig{{}}}).Validate(); err == nil {
		t.Fatal("expected error for sink without type")
	}
	if !(metrics.Config{}).Enabled(metrics.StreamSync) {
		t.Fatal("empty stream list should enable everything")
	}
}

// Test decoding sink lists from YAML and JSON.
func TestMetricsConfigDecode(t *testing.T) {
	var cfg metrics.Config
	data := "sinks:\n  - type: test-nop\n  - type: test-nop\nlisten_addr: \":9090\"\nstreams: [detections, reassignments]\n"
	if err := yaml.Unmarshal([]byte(data), &cfg); err != nil {
		t.Fatalf("yaml unmarshal: %v", err)
	}
	if len(cfg.Sinks) != 2 || cfg.ListenAddr != ":9090" || len(cfg.Streams) != 2 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Enabled(metrics.StreamSync) {
		t.Fatal("sync stream should be disabled")
	}
	if err := json.Unmarshal([]byte(`{"sinks":[{"type":"missing"}]}`), &cfg); err != nil {
		t.Fatalf("json unmarshal: %v", err)
	}
	if _, err := metrics.NewMetricsSink(cfg); err == nil {
		t.Fatalf("expected error for unknown type")
	}
}
