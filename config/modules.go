package config

import (
	"fmt"

	"github.com/kilianp07/droneops/core/factory"
)

func defaultSyncSinks() []factory.ModuleConfig {
	return []factory.ModuleConfig{{Type: "log"}}
}

// validateModules only checks the shape; unknown types are reported when
// the registries build the modules.
func validateModules(mods []factory.ModuleConfig) error {
	for i, m := range mods {
		if m.Type == "" {
			return fmt.Errorf("module %d has no type", i)
		}
	}
	return nil
}
