package monitoring

import (
	"errors"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/droneops/config"
	coremon "github.com/kilianp07/droneops/core/monitoring"
)

func TestNewSentryMonitorWithoutDSN(t *testing.T) {
	m, err := NewSentryMonitor(config.SentryConfig{})
	require.NoError(t, err)
	assert.IsType(t, coremon.NopMonitor{}, m)
}

func TestNewSentryMonitorRejectsBadDSN(t *testing.T) {
	_, err := NewSentryMonitor(config.SentryConfig{DSN: "not a dsn"})
	assert.Error(t, err)
}

func TestSentryMonitorCapture(t *testing.T) {
	m, err := NewSentryMonitor(config.SentryConfig{DSN: "https://public@example.com/1", Environment: "test"})
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		m.CaptureException(nil, nil)
		m.CaptureException(errors.New("sheets write rejected"), map[string]string{"component": "syncqueue"})
		m.Flush(10 * time.Millisecond)
	})
}

func TestFingerprint(t *testing.T) {
	cases := map[string]struct {
		tags map[string]string
		want []string
	}{
		"untagged":      {nil, nil},
		"sync failure":  {map[string]string{"component": "syncqueue", "sink": "sheets", "entity": "pilot"}, []string{"syncqueue", "sheets", "pilot"}},
		"mission audit": {map[string]string{"component": "reassign", "mission": "PRJ001"}, []string{"reassign", "{{ default }}"}},
		"component":     {map[string]string{"component": "mqtt"}, nil},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, c.want, fingerprint(c.tags))
		})
	}
}

func TestBeforeSendDropsIgnoredComponents(t *testing.T) {
	m := &sentryMonitor{ignore: []string{"syncqueue"}}
	assert.Nil(t, m.beforeSend(&sentry.Event{Tags: map[string]string{"component": "syncqueue"}}, nil))

	ev := &sentry.Event{Tags: map[string]string{"component": "reassign"}}
	assert.Same(t, ev, m.beforeSend(ev, nil))
}

func TestNewSentryMonitorKeepsIgnoreList(t *testing.T) {
	cfg := config.SentryConfig{DSN: "https://public@example.com/1", Site: "bangalore", IgnoreComponents: []string{"syncqueue"}}
	cfg.SetDefaults()
	m, err := NewSentryMonitor(cfg)
	require.NoError(t, err)
	sm, ok := m.(*sentryMonitor)
	require.True(t, ok)
	assert.Equal(t, []string{"syncqueue"}, sm.ignore)
}
