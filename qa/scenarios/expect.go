package scenarios

import (
	"fmt"
	"slices"
	"sort"

	"github.com/kilianp07/droneops/core/conflict"
	"github.com/kilianp07/droneops/core/model"
	"github.com/kilianp07/droneops/core/reassign"
)

type conflictReport = conflict.Report

type errUnknownAction string

func (e errUnknownAction) Error() string { return fmt.Sprintf("unknown action %q", string(e)) }

// outcome collects what a step produced.
type outcome struct {
	conflicts   []model.Conflict
	suggestions []reassign.Suggestion
	urgent      []reassign.Urgent
	noop        bool
	changes     int
}

func (o outcome) check(exp Expected, err error) error {
	if exp.Error {
		if err == nil {
			return fmt.Errorf("expected an error")
		}
		return nil
	}
	if err != nil {
		return err
	}
	if exp.ConflictTypes != nil {
		if got := o.types(); !slices.Equal(got, sorted(exp.ConflictTypes)) {
			return fmt.Errorf("conflict types %v, want %v", got, sorted(exp.ConflictTypes))
		}
	}
	if exp.Critical != nil {
		n := 0
		for _, c := range o.conflicts {
			if c.Severity == model.SeverityCritical {
				n++
			}
		}
		if n != *exp.Critical {
			return fmt.Errorf("%d critical conflicts, want %d", n, *exp.Critical)
		}
	}
	if exp.TopPilot != "" {
		if got := o.top(model.KindPilot); got != exp.TopPilot {
			return fmt.Errorf("top pilot %q, want %q", got, exp.TopPilot)
		}
	}
	if exp.TopDrone != "" {
		if got := o.top(model.KindDrone); got != exp.TopDrone {
			return fmt.Errorf("top drone %q, want %q", got, exp.TopDrone)
		}
	}
	if exp.NoOp != o.noop {
		return fmt.Errorf("noop %v, want %v", o.noop, exp.NoOp)
	}
	if exp.Changes != nil && *exp.Changes != o.changes {
		return fmt.Errorf("%d changes, want %d", o.changes, *exp.Changes)
	}
	if exp.Urgent != nil {
		ids := make([]string, 0, len(o.urgent))
		for _, u := range o.urgent {
			ids = append(ids, u.MissionID)
		}
		if !slices.Equal(ids, exp.Urgent) {
			return fmt.Errorf("urgent missions %v, want %v", ids, exp.Urgent)
		}
	}
	return nil
}

// types returns the distinct conflict type names, sorted.
func (o outcome) types() []string {
	seen := map[string]bool{}
	out := []string{}
	for _, c := range o.conflicts {
		if name := c.Type.String(); !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func (o outcome) top(kind model.ResourceKind) string {
	for _, s := range o.suggestions {
		if s.Kind == kind {
			return s.ResourceID
		}
	}
	return ""
}

func sorted(in []string) []string {
	out := append([]string{}, in...)
	sort.Strings(out)
	return out
}
