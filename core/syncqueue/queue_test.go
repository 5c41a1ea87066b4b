package syncqueue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/droneops/core/factory"
	"github.com/kilianp07/droneops/core/model"
	"github.com/kilianp07/droneops/core/monitoring"
)

type flakySink struct {
	mu      sync.Mutex
	fail    map[string]bool
	applied []string
}

func (s *flakySink) Name() string { return "flaky" }

func (s *flakySink) Apply(_ context.Context, rec model.ChangeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail[rec.EntityID] {
		return errors.New("remote rejected")
	}
	s.applied = append(s.applied, rec.EntityID)
	return nil
}

type countingMonitor struct{ n int }

func (c *countingMonitor) CaptureException(error, map[string]string) { c.n++ }
func (c *countingMonitor) Recover()                                  {}
func (c *countingMonitor) Flush(time.Duration)                       {}

var _ monitoring.Monitor = (*countingMonitor)(nil)

func rec(id string) model.ChangeRecord {
	return model.NewChange(model.EntityPilot, id, model.FieldStatus, "Available", "On Leave", time.Now())
}

func TestFlushKeepsFailedItems(t *testing.T) {
	sink := &flakySink{fail: map[string]bool{"P002": true}}
	mon := &countingMonitor{}
	q := New([]Sink{sink, LogSink{}}, WithMonitor(mon))
	q.Enqueue(rec("P001"), rec("P002"), rec("P003"))

	rep := q.Flush(context.Background())
	assert.Equal(t, 3, rep.Total)
	assert.Equal(t, 2, rep.Succeeded)
	assert.Equal(t, 1, rep.Failed)
	assert.Equal(t, 1, rep.Pending)
	assert.Equal(t, 1, mon.n)
	require.Len(t, rep.Items, 3)
	assert.False(t, rep.Items[1].OK)
	assert.Contains(t, rep.Items[1].Error, "sync failure")

	pending := q.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].Attempts)

	// remote recovers: retry succeeds
	sink.fail = nil
	rep = q.Flush(context.Background())
	assert.Equal(t, 1, rep.Succeeded)
	assert.Equal(t, 0, q.Len())
	assert.Equal(t, []string{"P001", "P003", "P002"}, sink.applied)
}

func TestFlushCancelledLeavesQueue(t *testing.T) {
	q := New([]Sink{LogSink{}})
	q.Enqueue(rec("P001"), rec("P002"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rep := q.Flush(ctx)
	assert.Equal(t, 0, rep.Total)
	assert.Equal(t, 2, rep.Pending)
}

func TestEnqueueCap(t *testing.T) {
	q := New(nil, WithMaxItems(2))
	q.Enqueue(rec("P001"), rec("P002"), rec("P003"))
	items := q.Pending()
	require.Len(t, items, 2)
	assert.Equal(t, "P002", items[0].Record.EntityID)
}

func TestFlushWithoutSinksSucceeds(t *testing.T) {
	q := New(nil)
	q.Enqueue(rec("P001"))
	rep := q.Flush(context.Background())
	assert.Equal(t, 1, rep.Succeeded)
	assert.Equal(t, 0, rep.Pending)
}

func TestNewSinksFromConfig(t *testing.T) {
	sinks, err := NewSinks([]factory.ModuleConfig{{Type: "log"}})
	require.NoError(t, err)
	require.Len(t, sinks, 1)
	assert.Equal(t, "log", sinks[0].Name())
	assert.Contains(t, SinkTypes(), "log")

	_, err = NewSinks([]factory.ModuleConfig{{Type: "carrier-pigeon"}})
	assert.Error(t, err)
}
