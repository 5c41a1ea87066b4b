package monitoring

import (
	"errors"
	"testing"
	"time"
)

type captureMonitor struct {
	errs []error
	tags []map[string]string
}

func (c *captureMonitor) CaptureException(err error, tags map[string]string) {
	c.errs = append(c.errs, err)
	c.tags = append(c.tags, tags)
}
func (c *captureMonitor) Recover()            {}
func (c *captureMonitor) Flush(time.Duration) {}

func TestReportTagsComponent(t *testing.T) {
	m := &captureMonitor{}
	Report(m, "syncqueue", errors.New("boom"), map[string]string{"sink": "sheets"})
	Report(m, "syncqueue", nil, nil)
	if len(m.errs) != 1 {
		t.Fatalf("expected 1 capture got %d", len(m.errs))
	}
	if m.tags[0]["component"] != "syncqueue" || m.tags[0]["sink"] != "sheets" {
		t.Fatalf("unexpected tags %v", m.tags[0])
	}
}

func TestInitIgnoresNil(t *testing.T) {
	prev := Current()
	t.Cleanup(func() { current = prev })
	m := &captureMonitor{}
	Init(m)
	Init(nil)
	CaptureException(errors.New("x"), nil)
	if len(m.errs) != 1 {
		t.Fatalf("global monitor not used")
	}
}
