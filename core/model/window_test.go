package model

import (
	"errors"
	"testing"
)

func TestWindowDaysInclusive(t *testing.T) {
	w := MustWindow("2026-02-20", "2026-02-26")
	if d := w.Days(); d != 7 {
		t.Fatalf("expected 7 days got %d", d)
	}
	single := MustWindow("2026-03-01", "2026-03-01")
	if single.Days() != 1 {
		t.Fatalf("single day window should last 1 day")
	}
}

func TestWindowOverlapsInclusiveBounds(t *testing.T) {
	a := MustWindow("2026-02-20", "2026-02-27")
	b := MustWindow("2026-02-25", "2026-03-01")
	touch := MustWindow("2026-02-27", "2026-02-28")
	after := MustWindow("2026-02-28", "2026-03-02")

	if !a.Overlaps(b) || !b.Overlaps(a) {
		t.Fatalf("expected overlap")
	}
	if !a.Overlaps(touch) {
		t.Fatalf("shared end day must overlap")
	}
	if a.Overlaps(after) {
		t.Fatalf("disjoint windows must not overlap")
	}
}

func TestWindowContainsUnbounded(t *testing.T) {
	mission := MustWindow("2026-02-20", "2026-02-27")
	if !(Window{}).Contains(mission) {
		t.Fatalf("unbounded window contains everything")
	}
	openEnd := MustWindow("2026-02-01", "")
	if !openEnd.Contains(mission) {
		t.Fatalf("open ended window should contain mission")
	}
	late := MustWindow("2026-02-21", "2026-03-31")
	if late.Contains(mission) {
		t.Fatalf("window starting after mission must not contain it")
	}
}

func TestNewWindowRejectsInverted(t *testing.T) {
	_, err := NewWindow("2026-03-01", "2026-02-01")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error got %v", err)
	}
	if _, err := NewWindow("20-02-2026", ""); err == nil {
		t.Fatalf("expected parse error")
	}
}
