//go:build !no_containers

package test

import (
	"context"
	"encoding/json"
	"os/exec"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/droneops/core/model"
	"github.com/kilianp07/droneops/core/syncqueue"
	"github.com/kilianp07/droneops/infra/mqtt"
	"github.com/kilianp07/droneops/test/util"
)

// ackConsumer mimics a field tool: it records every change and acks its id.
func ackConsumer(t *testing.T, broker string) (*sync.Map, paho.Client) {
	t.Helper()
	var seen sync.Map
	cli := paho.NewClient(paho.NewClientOptions().AddBroker(broker).SetClientID("field-tool"))
	token := cli.Connect()
	token.Wait()
	if token.Error() != nil {
		t.Skipf("ack client connect: %v", token.Error())
	}
	handler := func(c paho.Client, m paho.Message) {
		var rec model.ChangeRecord
		if err := json.Unmarshal(m.Payload(), &rec); err != nil {
			return
		}
		seen.Store(rec.ID, m.Topic())
		payload, _ := json.Marshal(map[string]string{"record_id": rec.ID})
		c.Publish("droneops/acks", 1, false, payload)
	}
	if token := cli.Subscribe(mqtt.DefaultTopicPrefix+"/#", 1, handler); token.Wait() && token.Error() != nil {
		t.Fatalf("subscribe: %v", token.Error())
	}
	return &seen, cli
}

func TestChangesReachMQTTBroker(t *testing.T) {
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not installed")
	}
	ctx := context.Background()
	broker, cleanup, err := util.StartMosquitto(ctx)
	if err != nil {
		t.Skipf("mosquitto: %v", err)
	}
	defer cleanup()

	seen, consumer := ackConsumer(t, broker)
	defer consumer.Disconnect(100)

	sink, err := mqtt.NewChangeSink(mqtt.Config{
		Broker:       broker,
		ClientID:     "droneops-test",
		AckTopic:     "droneops/acks",
		AckTimeoutMS: 2000,
		QoS:          1,
	})
	require.NoError(t, err)
	defer sink.Disconnect()

	q := syncqueue.New([]syncqueue.Sink{sink})
	rec := model.NewChange(model.EntityPilot, "P002", model.FieldStatus, "Available", "On Leave", time.Now())
	q.Enqueue(rec)

	flushCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	rep := q.Flush(flushCtx)
	assert.Equal(t, 1, rep.Succeeded)
	assert.Zero(t, rep.Pending)

	topic, ok := seen.Load(rec.ID)
	require.True(t, ok)
	assert.Equal(t, mqtt.DefaultTopicPrefix+"/pilot/P002", topic)
}
