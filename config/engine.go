package config

import (
	"fmt"

	"github.com/kilianp07/droneops/core/conflict"
	"github.com/kilianp07/droneops/core/matching"
	"github.com/kilianp07/droneops/core/model"
	"github.com/kilianp07/droneops/core/reassign"
)

// MatchingConfig tunes ranking output.
type MatchingConfig struct {
	// MaxRejections caps how many rejected resources a result reports.
	MaxRejections int `json:"max_rejections"`
}

func (c *MatchingConfig) SetDefaults() {
	if c.MaxRejections == 0 {
		c.MaxRejections = matching.DefaultMaxRejections
	}
}

func (c MatchingConfig) Validate() error {
	if c.MaxRejections < 0 {
		return fmt.Errorf("max_rejections must not be negative")
	}
	return nil
}

// ConflictsConfig lists the mission statuses checked by detection.
type ConflictsConfig struct {
	Statuses []string `json:"statuses"`
}

func (c *ConflictsConfig) SetDefaults() {
	if len(c.Statuses) == 0 {
		c.Statuses = []string{model.MissionActive.String()}
	}
}

func (c ConflictsConfig) Validate() error {
	_, err := c.Policy()
	return err
}

// Policy parses Statuses.
func (c ConflictsConfig) Policy() (conflict.Policy, error) {
	var p conflict.Policy
	for _, s := range c.Statuses {
		st, err := model.ParseMissionStatus(s)
		if err != nil {
			return conflict.Policy{}, err
		}
		p.Statuses = append(p.Statuses, st)
	}
	return p, nil
}

// ReassignConfig bounds the suggestion lists.
type ReassignConfig struct {
	MaxSuggestions int    `json:"max_suggestions"`
	DefaultActor   string `json:"default_actor"`
}

func (c *ReassignConfig) SetDefaults() {
	if c.MaxSuggestions == 0 {
		c.MaxSuggestions = reassign.DefaultMaxSuggestions
	}
	if c.DefaultActor == "" {
		c.DefaultActor = "operator"
	}
}

func (c ReassignConfig) Validate() error {
	if c.MaxSuggestions < 1 {
		return fmt.Errorf("max_suggestions must be at least 1")
	}
	return nil
}
