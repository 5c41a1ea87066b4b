package eligibility

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kilianp07/droneops/core/model"
)

// Rule names reported in results and stale-state errors.
const (
	RuleSkills         = "skills"
	RuleCertifications = "certifications"
	RuleAvailability   = "availability"
	RuleMaintenance    = "maintenance"
	RuleWeather        = "weather"
	RuleBudget         = "budget"
	RuleLocation       = "location"
	RuleBooking        = "booking"
)

// Result is the outcome of one predicate. Missing lists the unmet
// requirements when Passed is false.
type Result struct {
	Rule    string   `json:"rule"`
	Passed  bool     `json:"passed"`
	Missing []string `json:"missing,omitempty"`
	Detail  string   `json:"detail,omitempty"`
}

func pass(rule string) Result { return Result{Rule: rule, Passed: true} }

func fail(rule, detail string, missing ...string) Result {
	return Result{Rule: rule, Detail: detail, Missing: missing}
}

// Covers returns the required items absent from have. Comparison is case
// insensitive and ignores surrounding whitespace.
func Covers(have, required []string) []string {
	set := make(map[string]struct{}, len(have))
	for _, h := range have {
		set[key(h)] = struct{}{}
	}
	var missing []string
	for _, r := range required {
		if key(r) == "" {
			continue
		}
		if _, ok := set[key(r)]; !ok {
			missing = append(missing, r)
		}
	}
	sort.Strings(missing)
	return missing
}

func key(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Skills checks pilot skills against the mission requirements.
func Skills(p model.Pilot, m model.Mission) Result {
	if missing := Covers(p.Skills, m.RequiredSkills); len(missing) > 0 {
		return fail(RuleSkills, "missing skills: "+strings.Join(missing, ", "), missing...)
	}
	return pass(RuleSkills)
}

// Capabilities checks drone capabilities against the mission requirements.
func Capabilities(d model.Drone, m model.Mission) Result {
	if missing := Covers(d.Capabilities, m.RequiredSkills); len(missing) > 0 {
		return fail(RuleSkills, "missing capabilities: "+strings.Join(missing, ", "), missing...)
	}
	return pass(RuleSkills)
}

func Certifications(p model.Pilot, m model.Mission) Result {
	if missing := Covers(p.Certifications, m.RequiredCertifications); len(missing) > 0 {
		return fail(RuleCertifications, "missing certifications: "+strings.Join(missing, ", "), missing...)
	}
	return pass(RuleCertifications)
}

// Availability requires an Available pilot whose availability window contains
// the whole mission window.
func Availability(p model.Pilot, m model.Mission) Result {
	if p.Status != model.PilotAvailable {
		return fail(RuleAvailability, fmt.Sprintf("pilot status is %s", p.Status), p.Status.String())
	}
	if !p.Availability.Contains(m.Window) {
		return fail(RuleAvailability,
			fmt.Sprintf("available %s, mission runs %s", p.Availability, m.Window), m.Window.String())
	}
	return pass(RuleAvailability)
}

// Maintenance fails for drones in maintenance or whose maintenance falls due
// on or before the last mission day.
func Maintenance(d model.Drone, m model.Mission) Result {
	if d.Status == model.DroneMaintenance {
		return fail(RuleMaintenance, "drone is in maintenance", d.Status.String())
	}
	if d.MaintenanceOverdue(m.Window.End) {
		due := d.MaintenanceDue.Format(model.DateLayout)
		return fail(RuleMaintenance, "maintenance due "+due, due)
	}
	return pass(RuleMaintenance)
}

func Weather(d model.Drone, m model.Mission) Result {
	if !d.WeatherRating.Covers(m.Forecast) {
		return fail(RuleWeather,
			fmt.Sprintf("%s rating does not cover %s forecast", d.WeatherRating, m.Forecast), m.Forecast.String())
	}
	return pass(RuleWeather)
}

// Budget compares an estimated cost with the mission budget.
func Budget(cost float64, m model.Mission) Result {
	if cost > m.Budget {
		return fail(RuleBudget, fmt.Sprintf("estimated cost %.2f exceeds budget %.2f", cost, m.Budget),
			fmt.Sprintf("%.2f", cost-m.Budget))
	}
	return pass(RuleBudget)
}

// Location is informational: a mismatch is reported but never disqualifies.
// Locations must be equal byte for byte; an empty location never matches.
func Location(location string, m model.Mission) Result {
	if location == "" || location != m.Location {
		return fail(RuleLocation, fmt.Sprintf("located in %q, mission in %q", location, m.Location), m.Location)
	}
	return pass(RuleLocation)
}

// Booking fails when the resource already holds another non-closed mission
// whose window overlaps m. assigned extracts the resource id from a mission.
func Booking(resourceID string, m model.Mission, missions []model.Mission, assigned func(model.Mission) string) Result {
	var clashes []string
	for _, other := range missions {
		if other.ID == m.ID || other.Status.Closed() || assigned(other) != resourceID {
			continue
		}
		if other.Window.Overlaps(m.Window) {
			clashes = append(clashes, other.ID)
		}
	}
	if len(clashes) > 0 {
		sort.Strings(clashes)
		return fail(RuleBooking, "already booked on "+strings.Join(clashes, ", "), clashes...)
	}
	return pass(RuleBooking)
}

// PilotOf and DroneOf are assignment extractors for Booking.
func PilotOf(m model.Mission) string { return m.AssignedPilot }

func DroneOf(m model.Mission) string { return m.AssignedDrone }
