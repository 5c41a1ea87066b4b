package eventbus

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/droneops/core/events"
	"github.com/kilianp07/droneops/core/model"
)

func TestBusPublishSubscribe(t *testing.T) {
	bus := New[string]("test-pubsub")
	ch := bus.Subscribe()
	assert.Equal(t, 1, bus.Publish("hello"))
	assert.Equal(t, "hello", <-ch)
	bus.Unsubscribe(ch)
	assert.Zero(t, bus.Subscribers())
	_, ok := <-ch
	assert.False(t, ok)
}

func TestBusDropsWhenFull(t *testing.T) {
	bus := New[int]("test-drop", WithBuffer(1))
	ch := bus.Subscribe()
	before := testutil.ToFloat64(dropped.WithLabelValues("test-drop"))
	assert.Equal(t, 1, bus.Publish(1))
	assert.Equal(t, 0, bus.Publish(2))
	assert.Equal(t, before+1, testutil.ToFloat64(dropped.WithLabelValues("test-drop")))
	assert.Equal(t, 1, <-ch)
}

func TestBusClose(t *testing.T) {
	bus := New[int]("test-close")
	ch1 := bus.Subscribe()
	ch2 := bus.Subscribe()
	bus.Close()
	bus.Close()
	_, ok := <-ch1
	assert.False(t, ok)
	_, ok = <-ch2
	assert.False(t, ok)
	assert.Zero(t, bus.Publish(3))

	late := bus.Subscribe()
	_, ok = <-late
	assert.False(t, ok)
}

func TestBusUnsubscribeAfterClose(t *testing.T) {
	bus := New[float64]("test-unsub")
	ch := bus.Subscribe()
	bus.Close()
	assert.NotPanics(t, func() { bus.Unsubscribe(ch) })
}

func TestHubRoutesByType(t *testing.T) {
	hub := NewHub()
	defer hub.Close()
	changes := hub.Changes.Subscribe()
	conflicts := hub.Conflicts.Subscribe()

	hub.Changes.Publish(events.ChangeEvent{Source: "test", Records: []model.ChangeRecord{{EntityID: "P001"}}})
	ev := <-changes
	require.Len(t, ev.Records, 1)
	assert.Equal(t, "P001", ev.Records[0].EntityID)
	assert.Empty(t, conflicts)
}
