package metrics

import (
	"fmt"
	"slices"

	"github.com/kilianp07/droneops/core/factory"
)

// Streams group the domain measurements a sink can receive.
const (
	StreamDetections    = "detections"
	StreamReassignments = "reassignments"
	StreamSync          = "sync"
	StreamMatches       = "matches"
)

// AllStreams lists every stream in a stable order.
var AllStreams = []string{StreamDetections, StreamReassignments, StreamSync, StreamMatches}

// Config selects the metrics sinks and which streams reach them. An empty
// Streams list records everything.
type Config struct {
	Sinks      []factory.ModuleConfig `json:"sinks" yaml:"sinks"`
	ListenAddr string                 `json:"listen_addr" yaml:"listen_addr"`
	Streams    []string               `json:"streams" yaml:"streams"`
}

// Enabled reports whether events of stream are recorded.
func (c Config) Enabled(stream string) bool {
	return len(c.Streams) == 0 || slices.Contains(c.Streams, stream)
}

// Validate rejects unknown stream names and sinks without a type.
func (c Config) Validate() error {
	for _, s := range c.Streams {
		if !slices.Contains(AllStreams, s) {
			return fmt.Errorf("unknown stream %q (want one of %v)", s, AllStreams)
		}
	}
	for i, m := range c.Sinks {
		if m.Type == "" {
			return fmt.Errorf("sink %d has no type", i)
		}
	}
	return nil
}
