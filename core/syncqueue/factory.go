package syncqueue

import (
	"time"

	"github.com/kilianp07/droneops/core/factory"
)

// Config selects the sync sinks and queue limits.
type Config struct {
	Sinks         []factory.ModuleConfig `json:"sinks" yaml:"sinks"`
	MaxItems      int                    `json:"max_items" yaml:"max_items"`
	FlushInterval time.Duration          `json:"flush_interval" yaml:"flush_interval"`
}

var sinkRegistry = factory.NewRegistry[Sink]()

func init() {
	_ = RegisterSink("log", func(map[string]any) (Sink, error) { return LogSink{}, nil })
}

// RegisterSink adds a sync sink factory identified by name.
func RegisterSink(name string, f factory.Factory[Sink]) error {
	return sinkRegistry.Register(name, f)
}

// SinkTypes lists the registered sink names.
func SinkTypes() []string { return sinkRegistry.Types() }

// NewSinks builds every configured sink in order.
func NewSinks(cfgs []factory.ModuleConfig) ([]Sink, error) {
	return sinkRegistry.CreateAll(cfgs)
}
