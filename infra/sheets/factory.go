package sheets

import (
	"context"

	"github.com/kilianp07/droneops/core/factory"
	"github.com/kilianp07/droneops/core/syncqueue"
)

func init() {
	_ = syncqueue.RegisterSink("sheets", func(conf map[string]any) (syncqueue.Sink, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return New(context.Background(), c)
	})
}
