package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kilianp07/droneops/core/model"
	"github.com/kilianp07/droneops/core/reassign"
	"github.com/kilianp07/droneops/pkg/export"
)

var (
	newPilot string
	newDrone string
)

var reassignCmd = &cobra.Command{
	Use:   "reassign",
	Short: "Suggest and apply replacement resources for conflicted missions",
}

var suggestCmd = &cobra.Command{
	Use:   "suggest <mission>",
	Short: "Propose replacements for the resources a mission's conflicts disqualify",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(cmd *cobra.Command, args []string, s *session) error {
		plan, err := s.svc.SuggestReassignment(args[0])
		if err != nil {
			return err
		}
		text := func(w io.Writer) error {
			fmt.Fprintf(w, "%s %s\n", category("reassignment for"), plan.MissionID)
			for _, c := range plan.Conflicts {
				fmt.Fprintf(w, "%s %s\n", severity(c.Severity), c.Description)
			}
			if len(plan.Suggestions) == 0 {
				fmt.Fprintln(w, ok("nothing to reassign"))
				return nil
			}
			fmt.Fprintln(w, muted(separator))
			printSuggestions(w, plan.Suggestions)
			return nil
		}
		return emit(cmd.OutOrStdout(), s, plan, text, func(w io.Writer) error {
			return export.WriteSuggestionsCSV(w, plan.Suggestions)
		})
	}),
}

var executeCmd = &cobra.Command{
	Use:   "execute <mission>",
	Short: "Assign a new pilot and/or drone to a mission",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(cmd *cobra.Command, args []string, s *session) error {
		if newPilot == "" && newDrone == "" {
			return model.Validationf("at least one of --pilot or --drone is required")
		}
		out, err := s.svc.ExecuteReassignment(cmd.Context(), reassign.Request{
			MissionID: args[0],
			PilotID:   newPilot,
			DroneID:   newDrone,
			Actor:     actor,
		})
		if out.MissionID == "" {
			return err
		}
		if err != nil {
			s.log.Errorf("reassign %s applied but not audited: %v", out.MissionID, err)
		}
		text := func(w io.Writer) error {
			if out.NoOp {
				fmt.Fprintln(w, muted("already assigned, nothing changed"))
				return nil
			}
			if out.NewPilot != "" {
				fmt.Fprintln(w, ok(fmt.Sprintf("pilot %s -> %s", orNone(out.OldPilot), out.NewPilot)))
			}
			if out.NewDrone != "" {
				fmt.Fprintln(w, ok(fmt.Sprintf("drone %s -> %s", orNone(out.OldDrone), out.NewDrone)))
			}
			for _, c := range out.Remaining {
				fmt.Fprintf(w, "%s %s\n", severity(c.Severity), c.Description)
			}
			return nil
		}
		if err := emit(cmd.OutOrStdout(), s, out, text, nil); err != nil {
			return err
		}
		return syncChanges(cmd, s)
	}),
}

var prioritiesCmd = &cobra.Command{
	Use:   "priorities",
	Short: "List missions with Critical conflicts, most urgent first",
	Args:  cobra.NoArgs,
	RunE: withSession(func(cmd *cobra.Command, args []string, s *session) error {
		urgent := s.svc.Priorities()
		text := func(w io.Writer) error {
			if len(urgent) == 0 {
				fmt.Fprintln(w, ok("no urgent missions"))
			}
			for _, u := range urgent {
				fmt.Fprintf(w, "%s %-8s %-24s %s  %s\n", failStyle.Render(u.Priority.String()), u.MissionID, u.Project,
					u.Start.Format(model.DateLayout), muted(strings.Join(u.ConflictTypes, ", ")))
				printSuggestions(w, u.Suggestions)
			}
			return nil
		}
		return emit(cmd.OutOrStdout(), s, urgent, text, nil)
	}),
}

func init() {
	executeCmd.Flags().StringVar(&newPilot, "pilot", "", "replacement pilot id")
	executeCmd.Flags().StringVar(&newDrone, "drone", "", "replacement drone id")
	reassignCmd.AddCommand(suggestCmd, executeCmd, prioritiesCmd)
	rootCmd.AddCommand(reassignCmd)
}

func printSuggestions(w io.Writer, ss []reassign.Suggestion) {
	for _, sg := range ss {
		fmt.Fprintf(w, "   %-5s %s -> %-6s score %3d  %s\n", sg.Kind, orNone(sg.CurrentID), sg.ResourceID, sg.Score, muted(sg.Reason))
	}
}

func orNone(id string) string {
	if id == "" {
		return "(none)"
	}
	return id
}
