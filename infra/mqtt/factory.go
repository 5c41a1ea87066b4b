package mqtt

import (
	"github.com/kilianp07/droneops/core/factory"
	"github.com/kilianp07/droneops/core/syncqueue"
)

func init() {
	_ = syncqueue.RegisterSink("mqtt", func(conf map[string]any) (syncqueue.Sink, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewChangeSink(c)
	})
}
