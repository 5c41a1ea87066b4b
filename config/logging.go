package config

import (
	"fmt"
	"os"
	"strings"
)

// LoggingConfig controls the process logger. The logger reads LOG_LEVEL and
// APP_ENV, so Apply exports these unless the environment already sets them.
type LoggingConfig struct {
	Level string `json:"level"`
	Env   string `json:"env"`
}

func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Env == "" {
		c.Env = "prod"
	}
}

func (c LoggingConfig) Validate() error {
	switch strings.ToLower(c.Level) {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled":
		return nil
	}
	return fmt.Errorf("unknown level %s", c.Level)
}

// Apply exports the settings for infra/logger.
func (c LoggingConfig) Apply() {
	if os.Getenv("LOG_LEVEL") == "" {
		_ = os.Setenv("LOG_LEVEL", c.Level)
	}
	if os.Getenv("APP_ENV") == "" {
		_ = os.Setenv("APP_ENV", c.Env)
	}
}
