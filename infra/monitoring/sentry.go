// Package monitoring wires the error tracker behind core/monitoring.
package monitoring

import (
	"slices"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/kilianp07/droneops/config"
	coremon "github.com/kilianp07/droneops/core/monitoring"
)

// Tags that shape how droneops failures are grouped and shown.
const (
	tagComponent = "component"
	tagSink      = "sink"
	tagEntity    = "entity"
	tagMission   = "mission"
)

// NewSentryMonitor initializes Sentry and returns a Monitor. Without a DSN
// nothing is reported.
func NewSentryMonitor(cfg config.SentryConfig) (coremon.Monitor, error) {
	if cfg.DSN == "" {
		return coremon.NopMonitor{}, nil
	}
	m := &sentryMonitor{ignore: cfg.IgnoreComponents}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		TracesSampleRate: cfg.TracesSampleRate,
		Release:          cfg.Release,
		ServerName:       cfg.ServerName,
		BeforeSend:       m.beforeSend,
	})
	if err != nil {
		return nil, err
	}
	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("service", "droneops")
		if cfg.Site != "" {
			scope.SetTag("site", cfg.Site)
		}
	})
	return m, nil
}

type sentryMonitor struct {
	ignore []string
}

// CaptureException reports err with tags. Sync failures are grouped per
// sink and entity type; failures tied to a mission carry it as context.
func (s *sentryMonitor) CaptureException(err error, tags map[string]string) {
	if err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		if fp := fingerprint(tags); fp != nil {
			scope.SetFingerprint(fp)
		}
		if id := tags[tagMission]; id != "" {
			scope.SetContext("mission", sentry.Context{"id": id})
		}
		sentry.CaptureException(err)
	})
}

// beforeSend drops events from ignored components.
func (s *sentryMonitor) beforeSend(ev *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	if ev != nil && slices.Contains(s.ignore, ev.Tags[tagComponent]) {
		return nil
	}
	return ev
}

// fingerprint groups sync failures by sink and entity type and mission
// failures by component. Other events keep the default grouping.
func fingerprint(tags map[string]string) []string {
	comp := tags[tagComponent]
	switch {
	case comp == "":
		return nil
	case tags[tagSink] != "":
		return []string{comp, tags[tagSink], tags[tagEntity]}
	case tags[tagMission] != "":
		return []string{comp, "{{ default }}"}
	}
	return nil
}

func (s *sentryMonitor) Recover() {
	if r := recover(); r != nil {
		sentry.CurrentHub().Recover(r)
		sentry.Flush(2 * time.Second)
		panic(r)
	}
}

func (s *sentryMonitor) Flush(timeout time.Duration) { sentry.Flush(timeout) }
