package model

import (
	"fmt"
	"time"
)

// DateLayout is the calendar format used across roster files and reports.
const DateLayout = "2006-01-02"

// Window is an inclusive date range. A zero Start or End means the window is
// unbounded on that side.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewWindow builds a window from two YYYY-MM-DD dates. Empty strings leave the
// corresponding side unbounded.
func NewWindow(start, end string) (Window, error) {
	var w Window
	var err error
	if start != "" {
		if w.Start, err = time.Parse(DateLayout, start); err != nil {
			return Window{}, fmt.Errorf("%w: start date %q: %v", ErrValidation, start, err)
		}
	}
	if end != "" {
		if w.End, err = time.Parse(DateLayout, end); err != nil {
			return Window{}, fmt.Errorf("%w: end date %q: %v", ErrValidation, end, err)
		}
	}
	return w, w.Validate()
}

// MustWindow is NewWindow for fixtures; it panics on malformed input.
func MustWindow(start, end string) Window {
	w, err := NewWindow(start, end)
	if err != nil {
		panic(err)
	}
	return w
}

// Bounded reports whether both ends are set.
func (w Window) Bounded() bool {
	return !w.Start.IsZero() && !w.End.IsZero()
}

// Validate rejects windows whose end precedes their start.
func (w Window) Validate() error {
	if w.Bounded() && w.End.Before(w.Start) {
		return fmt.Errorf("%w: window ends %s before it starts %s", ErrValidation,
			w.End.Format(DateLayout), w.Start.Format(DateLayout))
	}
	return nil
}

// Days returns the inclusive length of the window in days, or 0 when the
// window is unbounded or inverted.
func (w Window) Days() int {
	if !w.Bounded() || w.End.Before(w.Start) {
		return 0
	}
	return int(day(w.End).Sub(day(w.Start)).Hours()/24) + 1
}

// Overlaps reports whether w and o share at least one day. Bounds are
// inclusive: s1 <= e2 && s2 <= e1.
func (w Window) Overlaps(o Window) bool {
	startsBeforeOtherEnds := w.Start.IsZero() || o.End.IsZero() || !day(w.Start).After(day(o.End))
	otherStartsBeforeEnd := o.Start.IsZero() || w.End.IsZero() || !day(o.Start).After(day(w.End))
	return startsBeforeOtherEnds && otherStartsBeforeEnd
}

// Contains reports whether inner lies entirely within w.
func (w Window) Contains(inner Window) bool {
	if !w.Start.IsZero() && (inner.Start.IsZero() || day(inner.Start).Before(day(w.Start))) {
		return false
	}
	if !w.End.IsZero() && (inner.End.IsZero() || day(inner.End).After(day(w.End))) {
		return false
	}
	return true
}

// Includes reports whether t falls on one of the window's days.
func (w Window) Includes(t time.Time) bool {
	return w.Contains(Window{Start: t, End: t})
}

func (w Window) String() string {
	f := func(t time.Time) string {
		if t.IsZero() {
			return "open"
		}
		return t.Format(DateLayout)
	}
	return f(w.Start) + ".." + f(w.End)
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
