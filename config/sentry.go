package config

import (
	"fmt"
	"os"
)

// SentryConfig controls error reporting. Failures reported by the sync
// queue and the reassignment coordinator carry component, sink, entity and
// mission tags; Site is attached to every event so several field offices
// can share one project.
type SentryConfig struct {
	DSN              string  `json:"dsn"`
	Environment      string  `json:"environment"`
	Release          string  `json:"release"`
	ServerName       string  `json:"server_name"`
	TracesSampleRate float64 `json:"traces_sample_rate"`
	Site             string  `json:"site"`
	// IgnoreComponents drops events from the listed components, e.g.
	// "syncqueue" while a spreadsheet is known to be offline.
	IgnoreComponents []string `json:"ignore_components"`
}

func (c *SentryConfig) SetDefaults() {
	if c.Environment == "" {
		c.Environment = os.Getenv("APP_ENV")
	}
	if c.Environment == "" {
		c.Environment = "prod"
	}
	if c.Release == "" {
		c.Release = "droneops"
	}
}

func (c SentryConfig) Validate() error {
	if c.TracesSampleRate < 0 || c.TracesSampleRate > 1 {
		return fmt.Errorf("traces_sample_rate %v outside [0,1]", c.TracesSampleRate)
	}
	return nil
}
