package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/droneops/core/metrics"
	"github.com/kilianp07/droneops/core/scoring"
	"github.com/kilianp07/droneops/core/syncqueue"
)

// EnvPrefix marks environment overrides. A double underscore separates
// nesting levels: DRONEOPS_AUDIT__BACKEND=sqlite sets audit.backend.
const EnvPrefix = "DRONEOPS_"

type Config struct {
	Data      DataConfig       `json:"data"`
	Scoring   scoring.Config   `json:"scoring"`
	Matching  MatchingConfig   `json:"matching"`
	Conflicts ConflictsConfig  `json:"conflicts"`
	Reassign  ReassignConfig   `json:"reassign"`
	Audit     AuditConfig      `json:"audit"`
	Sync      syncqueue.Config `json:"sync"`
	Metrics   metrics.Config   `json:"metrics"`
	Logging   LoggingConfig    `json:"logging"`
	Sentry    SentryConfig     `json:"sentry"`
}

// Load reads the file at path, then a .env file if present, then
// DRONEOPS_ environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a validated configuration without reading any source.
func Default() *Config {
	var cfg Config
	cfg.SetDefaults()
	return &cfg
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	c.Data.SetDefaults()
	c.Scoring.SetDefaults()
	c.Matching.SetDefaults()
	c.Conflicts.SetDefaults()
	c.Reassign.SetDefaults()
	c.Audit.SetDefaults()
	c.Logging.SetDefaults()
	c.Sentry.SetDefaults()
	if len(c.Sync.Sinks) == 0 {
		c.Sync.Sinks = defaultSyncSinks()
	}
	if c.Metrics.ListenAddr == "" {
		c.Metrics.ListenAddr = ":2112"
	}
}

// Validate checks every section and stops at the first error.
func (c Config) Validate() error {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"data", c.Data.Validate},
		{"scoring", c.Scoring.Validate},
		{"matching", c.Matching.Validate},
		{"conflicts", c.Conflicts.Validate},
		{"reassign", c.Reassign.Validate},
		{"audit", c.Audit.Validate},
		{"logging", c.Logging.Validate},
		{"sentry", c.Sentry.Validate},
		{"sync", func() error { return validateModules(c.Sync.Sinks) }},
		{"metrics", c.Metrics.Validate},
	}
	for _, ch := range checks {
		if err := ch.fn(); err != nil {
			return fmt.Errorf("%s: %w", ch.name, err)
		}
	}
	if c.Sync.MaxItems < 0 {
		return fmt.Errorf("sync: max_items must not be negative")
	}
	return nil
}
