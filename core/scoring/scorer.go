// Package scoring computes bounded integer match scores for resources that
// already passed eligibility.
package scoring

import (
	"fmt"
	"math"
	"slices"

	"github.com/kilianp07/droneops/core/model"
)

// Score components that Config.Disabled can switch off.
const (
	ComponentBase       = "base"
	ComponentExperience = "experience"
	ComponentLocation   = "location"
	ComponentCost       = "cost"
)

var components = []string{ComponentBase, ComponentExperience, ComponentLocation, ComponentCost}

// Config holds the component weights. Each component is bounded by its
// maximum so the total never exceeds Base+MaxExperience+Location+MaxCost.
type Config struct {
	Base            int     `json:"base" yaml:"base"`
	MaxExperience   int     `json:"max_experience" yaml:"max_experience"`
	SaturationHours float64 `json:"saturation_hours" yaml:"saturation_hours"`
	Location        int     `json:"location" yaml:"location"`
	MaxCost         int     `json:"max_cost" yaml:"max_cost"`
	// Disabled components always score 0. A zero weight means "use the
	// default", so this is how a component is turned off.
	Disabled []string `json:"disabled" yaml:"disabled"`
}

// DefaultConfig returns the 50/20/10/20 weighting with experience
// saturating at 500 hours.
func DefaultConfig() Config {
	return Config{Base: 50, MaxExperience: 20, SaturationHours: 500, Location: 10, MaxCost: 20}
}

// SetDefaults fills zero fields with DefaultConfig values.
func (c *Config) SetDefaults() {
	d := DefaultConfig()
	if c.Base == 0 {
		c.Base = d.Base
	}
	if c.MaxExperience == 0 {
		c.MaxExperience = d.MaxExperience
	}
	if c.SaturationHours <= 0 {
		c.SaturationHours = d.SaturationHours
	}
	if c.Location == 0 {
		c.Location = d.Location
	}
	if c.MaxCost == 0 {
		c.MaxCost = d.MaxCost
	}
}

// Validate rejects negative weights and unknown disabled components.
func (c Config) Validate() error {
	for name, v := range map[string]int{
		ComponentBase: c.Base, "max_experience": c.MaxExperience,
		ComponentLocation: c.Location, "max_cost": c.MaxCost,
	} {
		if v < 0 {
			return fmt.Errorf("%s weight %d is negative", name, v)
		}
	}
	if c.SaturationHours < 0 {
		return fmt.Errorf("saturation_hours %v is negative", c.SaturationHours)
	}
	for _, d := range c.Disabled {
		if !slices.Contains(components, d) {
			return fmt.Errorf("unknown score component %q (want one of %v)", d, components)
		}
	}
	return nil
}

func (c Config) off(component string) bool { return slices.Contains(c.Disabled, component) }

// absorbs float error before flooring
const epsilon = 1e-9

// Breakdown is a score with its components.
type Breakdown struct {
	Base       int `json:"base"`
	Experience int `json:"experience"`
	Location   int `json:"location"`
	Cost       int `json:"cost"`
	Total      int `json:"total"`
}

// Scorer applies a Config.
type Scorer struct {
	cfg Config
}

// New returns a Scorer. Zero config fields take their defaults.
func New(cfg Config) Scorer {
	cfg.SetDefaults()
	return Scorer{cfg: cfg}
}

// Config returns the effective weights.
func (s Scorer) Config() Config { return s.cfg }

// Pilot scores a pilot for a mission.
func (s Scorer) Pilot(p model.Pilot, m model.Mission) Breakdown {
	return s.total(Breakdown{
		Base:       s.cfg.Base,
		Experience: s.Experience(p.ExperienceHours),
		Location:   s.location(p.Location, m.Location),
		Cost:       s.Cost(p.MissionCost(m.Days()), m.Budget),
	})
}

// Drone scores a drone for a mission. Drones carry no flight hours, so their
// experience slot rewards weather-rating headroom instead.
func (s Scorer) Drone(d model.Drone, m model.Mission) Breakdown {
	return s.total(Breakdown{
		Base:       s.cfg.Base,
		Experience: s.Headroom(d.WeatherRating),
		Location:   s.location(d.Location, m.Location),
		Cost:       s.Cost(d.MissionCost(m.Days()), m.Budget),
	})
}

// Experience is min(hours*max/saturation, max), floored. Non-decreasing in
// hours.
func (s Scorer) Experience(hours int) int {
	if hours <= 0 {
		return 0
	}
	v := float64(hours) * float64(s.cfg.MaxExperience) / s.cfg.SaturationHours
	return int(math.Min(math.Floor(v+epsilon), float64(s.cfg.MaxExperience)))
}

// Headroom maps Generic, IP42, IP43 and IP45 onto 0, 7, 14 and 20 of the
// experience slot.
func (s Scorer) Headroom(r model.WeatherRating) int {
	frac, ok := headroom[r]
	if !ok {
		return 0
	}
	return int(math.Round(frac * float64(s.cfg.MaxExperience)))
}

var headroom = map[model.WeatherRating]float64{
	model.RatingGeneric: 0,
	model.RatingIP42:    0.35,
	model.RatingIP43:    0.70,
	model.RatingIP45:    1,
}

// Cost is floor((1 - cost/budget) * max). It is 0 when cost meets or exceeds
// the budget or the budget is not positive.
func (s Scorer) Cost(cost, budget float64) int {
	if budget <= 0 || cost >= budget {
		return 0
	}
	if cost < 0 {
		cost = 0
	}
	return int(math.Floor((1-cost/budget)*float64(s.cfg.MaxCost) + epsilon))
}

func (s Scorer) location(have, want string) int {
	if have != "" && have == want {
		return s.cfg.Location
	}
	return 0
}

func (s Scorer) total(b Breakdown) Breakdown {
	if s.cfg.off(ComponentBase) {
		b.Base = 0
	}
	if s.cfg.off(ComponentExperience) {
		b.Experience = 0
	}
	if s.cfg.off(ComponentLocation) {
		b.Location = 0
	}
	if s.cfg.off(ComponentCost) {
		b.Cost = 0
	}
	b.Total = b.Base + b.Experience + b.Location + b.Cost
	return b
}
