package eligibility

import (
	"strings"

	"github.com/kilianp07/droneops/core/model"
)

// Report bundles the results of every predicate evaluated for one resource.
type Report struct {
	ResourceID string
	Kind       model.ResourceKind
	Cost       float64
	Results    []Result
}

// Passed reports whether every hard gate passed. Location is ignored.
func (r Report) Passed() bool {
	return len(r.Failures()) == 0
}

// Failures returns the failed hard gates in evaluation order.
func (r Report) Failures() []Result {
	var out []Result
	for _, res := range r.Results {
		if !res.Passed && res.Rule != RuleLocation {
			out = append(out, res)
		}
	}
	return out
}

// FailedRules returns the names of the failed hard gates.
func (r Report) FailedRules() []string {
	var out []string
	for _, f := range r.Failures() {
		out = append(out, f.Rule)
	}
	return out
}

// Result returns the outcome of rule, if it was evaluated.
func (r Report) Result(rule string) (Result, bool) {
	for _, res := range r.Results {
		if res.Rule == rule {
			return res, true
		}
	}
	return Result{}, false
}

// LocationMatch reports whether the informational location check passed.
func (r Report) LocationMatch() bool {
	res, ok := r.Result(RuleLocation)
	return ok && res.Passed
}

// Reason joins the failure details into one line.
func (r Report) Reason() string {
	var parts []string
	for _, f := range r.Failures() {
		parts = append(parts, f.Detail)
	}
	return strings.Join(parts, "; ")
}

// CheckPilot evaluates every pilot gate for m. Booking is only evaluated when
// missions is non-nil.
func CheckPilot(p model.Pilot, m model.Mission, missions []model.Mission) Report {
	cost := p.MissionCost(m.Days())
	r := Report{ResourceID: p.ID, Kind: model.KindPilot, Cost: cost}
	r.Results = append(r.Results,
		Skills(p, m),
		Certifications(p, m),
		Availability(p, m),
		Budget(cost, m),
		Location(p.Location, m),
	)
	if missions != nil {
		r.Results = append(r.Results, Booking(p.ID, m, missions, PilotOf))
	}
	return r
}

// CheckDrone evaluates every drone gate for m. Booking is only evaluated when
// missions is non-nil.
func CheckDrone(d model.Drone, m model.Mission, missions []model.Mission) Report {
	cost := d.MissionCost(m.Days())
	r := Report{ResourceID: d.ID, Kind: model.KindDrone, Cost: cost}
	r.Results = append(r.Results,
		Capabilities(d, m),
		Maintenance(d, m),
		Weather(d, m),
		Budget(cost, m),
		Location(d.Location, m),
	)
	if missions != nil {
		r.Results = append(r.Results, Booking(d.ID, m, missions, DroneOf))
	}
	return r
}
