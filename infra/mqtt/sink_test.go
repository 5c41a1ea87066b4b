package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/droneops/core/factory"
	"github.com/kilianp07/droneops/core/model"
	coremon "github.com/kilianp07/droneops/core/monitoring"
	"github.com/kilianp07/droneops/core/syncqueue"
)

type recordMonitor struct {
	err  error
	tags map[string]string
}

func (r *recordMonitor) CaptureException(err error, tags map[string]string) {
	r.err = err
	r.tags = tags
}
func (r *recordMonitor) Recover()            {}
func (r *recordMonitor) Flush(time.Duration) {}

func change() model.ChangeRecord {
	return model.NewChange(model.EntityPilot, "P001", model.FieldStatus, "Available", "On Leave",
		time.Date(2026, 2, 18, 9, 0, 0, 0, time.UTC))
}

func TestApplyPublishesRecord(t *testing.T) {
	mc := useMock(t)
	sink, err := NewChangeSink(Config{Broker: "tcp://localhost:1883", ClientID: "id", QoS: 1, Retain: true})
	require.NoError(t, err)
	assert.Equal(t, "mqtt", sink.Name())

	rec := change()
	require.NoError(t, sink.Apply(context.Background(), rec))
	require.Len(t, mc.published, 1)
	p := mc.published[0]
	assert.Equal(t, "droneops/changes/pilot/P001", p.topic)
	assert.Equal(t, byte(1), p.qos)
	assert.True(t, p.retain)

	var got model.ChangeRecord
	require.NoError(t, json.Unmarshal(p.payload, &got))
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, "On Leave", got.NewValue)
	assert.Empty(t, mc.subscribed)
}

func TestApplyRetries(t *testing.T) {
	mc := useMock(t)
	mc.publishErrs = []error{fmt.Errorf("net fail"), nil}
	sink, err := NewChangeSink(Config{Broker: "tcp://localhost:1883", ClientID: "id", MaxRetries: 1, BackoffMS: 1, TopicPrefix: "ops/"})
	require.NoError(t, err)
	require.NoError(t, sink.Apply(context.Background(), change()))
	require.Len(t, mc.published, 2)
	assert.Equal(t, "ops/pilot/P001", mc.published[1].topic)
}

func TestApplyErrorCaptured(t *testing.T) {
	mc := useMock(t)
	fail := errors.New("net fail")
	mc.publishErrs = []error{fail, fail}
	mon := &recordMonitor{}
	coremon.Init(mon)
	defer coremon.Init(coremon.NopMonitor{})

	sink, err := NewChangeSink(Config{Broker: "tcp://localhost:1883", ClientID: "id", MaxRetries: 1, BackoffMS: 1})
	require.NoError(t, err)
	rec := change()
	require.ErrorIs(t, sink.Apply(context.Background(), rec), fail)
	require.Error(t, mon.err)
	assert.Equal(t, "mqtt", mon.tags["module"])
	assert.Equal(t, "P001", mon.tags["entity_id"])
	assert.Equal(t, rec.ID, mon.tags["record_id"])
}

func TestApplyWaitsForAck(t *testing.T) {
	mc := useMock(t)
	sink, err := NewChangeSink(Config{Broker: "tcp://localhost:1883", ClientID: "id", AckTopic: "droneops/acks", AckTimeoutMS: 1000})
	require.NoError(t, err)
	assert.Equal(t, []string{"droneops/acks"}, mc.subscribed)

	mc.onPublish = func(_ string, payload []byte) {
		var rec model.ChangeRecord
		_ = json.Unmarshal(payload, &rec)
		go sink.onAck(nil, mockMessage{[]byte(fmt.Sprintf(`{"record_id":%q}`, rec.ID))})
	}
	require.NoError(t, sink.Apply(context.Background(), change()))
}

func TestApplyAckTimeout(t *testing.T) {
	useMock(t)
	sink, err := NewChangeSink(Config{Broker: "tcp://localhost:1883", ClientID: "id", AckTopic: "droneops/acks", AckTimeoutMS: 5})
	require.NoError(t, err)
	sink.onAck(nil, mockMessage{[]byte(`{"record_id":"someone-else"}`)})
	sink.onAck(nil, mockMessage{[]byte(`not json`)})
	assert.ErrorIs(t, sink.Apply(context.Background(), change()), ErrAckTimeout)
}

func TestApplyHonoursContext(t *testing.T) {
	useMock(t)
	sink, err := NewChangeSink(Config{Broker: "tcp://localhost:1883", ClientID: "id", AckTopic: "droneops/acks", AckTimeoutMS: 60000})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sink.Apply(ctx, change()), context.Canceled)
}

func TestFactoryBuildsChangeSink(t *testing.T) {
	mc := useMock(t)
	sinks, err := syncqueue.NewSinks([]factory.ModuleConfig{{
		Type: "mqtt",
		Conf: map[string]any{"broker": "tcp://localhost:1883", "client_id": "droneops", "topic_prefix": "ops/changes/", "qos": 1},
	}})
	require.NoError(t, err)
	require.Len(t, sinks, 1)
	require.NoError(t, sinks[0].Apply(context.Background(), change()))
	require.Len(t, mc.published, 1)
	assert.Equal(t, "ops/changes/pilot/P001", mc.published[0].topic)
	assert.Equal(t, byte(1), mc.published[0].qos)
}
