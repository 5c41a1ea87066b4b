package config

import (
	"fmt"
	"path/filepath"

	"github.com/kilianp07/droneops/infra/ingest"
)

// DataConfig locates the roster, fleet and mission exports. Explicit file
// paths win over Dir.
type DataConfig struct {
	Dir      string `json:"dir"`
	Pilots   string `json:"pilots"`
	Drones   string `json:"drones"`
	Missions string `json:"missions"`
}

func (c *DataConfig) SetDefaults() {
	if c.Dir == "" {
		c.Dir = "data"
	}
	if c.Pilots == "" {
		c.Pilots = filepath.Join(c.Dir, ingest.PilotsFile)
	}
	if c.Drones == "" {
		c.Drones = filepath.Join(c.Dir, ingest.DronesFile)
	}
	if c.Missions == "" {
		c.Missions = filepath.Join(c.Dir, ingest.MissionsFile)
	}
}

func (c DataConfig) Validate() error {
	if c.Pilots == "" || c.Drones == "" || c.Missions == "" {
		return fmt.Errorf("pilots, drones and missions paths are required")
	}
	return nil
}

// Paths converts the section for the CSV loader.
func (c DataConfig) Paths() ingest.Paths {
	return ingest.Paths{Pilots: c.Pilots, Drones: c.Drones, Missions: c.Missions}
}
