package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/droneops/core/model"
	"github.com/kilianp07/droneops/core/roster"
)

var (
	findSkills   []string
	findCerts    []string
	findLocation string
	findWeather  string
)

var pilotCmd = &cobra.Command{
	Use:   "pilot",
	Short: "Query and update the pilot roster",
}

var pilotStatusCmd = &cobra.Command{
	Use:   "status <pilot> <status>",
	Short: "Set a pilot's status (Available, On Leave, Unavailable)",
	Args:  cobra.ExactArgs(2),
	RunE: withSession(func(cmd *cobra.Command, args []string, s *session) error {
		status, err := model.ParsePilotStatus(args[1])
		if err != nil {
			return err
		}
		recs, err := s.svc.UpdatePilotStatus(cmd.Context(), actor, args[0], status)
		return finishUpdate(cmd, s, recs, err)
	}),
}

var pilotCostCmd = &cobra.Command{
	Use:   "cost <pilot> [days]",
	Short: "Price a pilot for a number of days, or for the current assignment",
	Args:  cobra.RangeArgs(1, 2),
	RunE: withSession(func(cmd *cobra.Command, args []string, s *session) error {
		days := 0
		if len(args) == 2 {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return model.Validationf("days %q is not a number", args[1])
			}
			days = n
		}
		c, err := s.svc.PilotCost(args[0], days)
		if err != nil {
			return err
		}
		text := func(w io.Writer) error {
			fmt.Fprintf(w, "%s %s  %.2f/h  %dh experience\n", c.PilotID, c.Name, c.HourlyRate, c.ExperienceHours)
			if c.MissionID != "" {
				fmt.Fprintln(w, muted("current assignment "+c.MissionID))
			}
			fmt.Fprintf(w, "%d days, %d work hours: %.2f\n", c.Days, c.WorkHours, c.TotalCost)
			if c.OverMonthlyHours {
				fmt.Fprintln(w, fail(fmt.Sprintf("exceeds %.0f monthly hours", c.MaxMonthlyHours)))
			}
			return nil
		}
		return emit(cmd.OutOrStdout(), s, c, text, nil)
	}),
}

var droneCmd = &cobra.Command{
	Use:   "drone",
	Short: "Query and update the drone fleet",
}

var droneStatusCmd = &cobra.Command{
	Use:   "status <drone> <status>",
	Short: "Set a drone's status (Active, Maintenance, Idle)",
	Args:  cobra.ExactArgs(2),
	RunE: withSession(func(cmd *cobra.Command, args []string, s *session) error {
		status, err := model.ParseDroneStatus(args[1])
		if err != nil {
			return err
		}
		recs, err := s.svc.UpdateDroneStatus(cmd.Context(), actor, args[0], status)
		return finishUpdate(cmd, s, recs, err)
	}),
}

var droneMaintenanceCmd = &cobra.Command{
	Use:   "maintenance <drone> <YYYY-MM-DD>",
	Short: "Record a drone's next maintenance due date",
	Args:  cobra.ExactArgs(2),
	RunE: withSession(func(cmd *cobra.Command, args []string, s *session) error {
		due, err := time.Parse(model.DateLayout, args[1])
		if err != nil {
			return model.Validationf("maintenance date %q is not YYYY-MM-DD", args[1])
		}
		recs, err := s.svc.FlagMaintenance(cmd.Context(), actor, args[0], due)
		return finishUpdate(cmd, s, recs, err)
	}),
}

var pilotFindCmd = &cobra.Command{
	Use:   "find",
	Short: "List available pilots, same location first",
	Args:  cobra.NoArgs,
	RunE: withSession(func(cmd *cobra.Command, _ []string, s *session) error {
		pilots := s.svc.AvailablePilots(roster.PilotQuery{
			Skills: findSkills, Certifications: findCerts, Location: findLocation,
		})
		text := func(w io.Writer) error {
			if len(pilots) == 0 {
				fmt.Fprintln(w, muted("no available pilot matches"))
			}
			for _, p := range pilots {
				fmt.Fprintf(w, "%-6s %-20s %-12s %5dh  %s\n", p.ID, p.Name, p.Location, p.ExperienceHours, strings.Join(p.Skills, ", "))
			}
			return nil
		}
		return emit(cmd.OutOrStdout(), s, pilots, text, nil)
	}),
}

var droneFindCmd = &cobra.Command{
	Use:   "find",
	Short: "List active unassigned drones, same location first",
	Args:  cobra.NoArgs,
	RunE: withSession(func(cmd *cobra.Command, _ []string, s *session) error {
		q := roster.DroneQuery{Capabilities: findSkills, Location: findLocation}
		if findWeather != "" {
			w, err := model.ParseWeather(findWeather)
			if err != nil {
				return err
			}
			q.Weather = &w
		}
		drones := s.svc.AvailableDrones(q)
		text := func(w io.Writer) error {
			if len(drones) == 0 {
				fmt.Fprintln(w, muted("no available drone matches"))
			}
			for _, d := range drones {
				fmt.Fprintf(w, "%-6s %-16s %-12s %-7s %s\n", d.ID, d.Model, d.Location, d.WeatherRating, strings.Join(d.Capabilities, ", "))
			}
			return nil
		}
		return emit(cmd.OutOrStdout(), s, drones, text, nil)
	}),
}

func init() {
	pilotFindCmd.Flags().StringSliceVar(&findSkills, "skill", nil, "required skills")
	pilotFindCmd.Flags().StringSliceVar(&findCerts, "cert", nil, "required certifications")
	pilotFindCmd.Flags().StringVar(&findLocation, "location", "", "preferred location")
	droneFindCmd.Flags().StringSliceVar(&findSkills, "capability", nil, "required capabilities")
	droneFindCmd.Flags().StringVar(&findWeather, "weather", "", "forecast the drone must handle")
	droneFindCmd.Flags().StringVar(&findLocation, "location", "", "preferred location")

	pilotCmd.AddCommand(pilotStatusCmd, pilotFindCmd, pilotCostCmd)
	droneCmd.AddCommand(droneStatusCmd, droneMaintenanceCmd, droneFindCmd)
	rootCmd.AddCommand(pilotCmd, droneCmd)
}

// finishUpdate prints the applied changes and syncs them. Records returned
// with an error were applied but not audited.
func finishUpdate(cmd *cobra.Command, s *session, recs []model.ChangeRecord, err error) error {
	if len(recs) == 0 {
		return err
	}
	if err != nil {
		s.log.Errorf("change applied but not audited: %v", err)
	}
	text := func(w io.Writer) error {
		for _, r := range recs {
			fmt.Fprintln(w, ok(fmt.Sprintf("%s %s %s: %s -> %s", r.EntityType, r.EntityID, r.Field, orNone(r.OldValue), r.NewValue)))
		}
		return nil
	}
	if err := emit(cmd.OutOrStdout(), s, recs, text, nil); err != nil {
		return err
	}
	return syncChanges(cmd, s)
}
