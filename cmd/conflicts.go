package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kilianp07/droneops/core/conflict"
	"github.com/kilianp07/droneops/pkg/export"
)

var conflictsCmd = &cobra.Command{
	Use:   "conflicts [mission]",
	Short: "Detect conflicts across in-scope missions or for one mission",
	Args:  cobra.MaximumNArgs(1),
	RunE: withSession(func(cmd *cobra.Command, args []string, s *session) error {
		var id string
		if len(args) == 1 {
			id = args[0]
		}
		rep, err := s.svc.DetectConflicts(id)
		if err != nil {
			return err
		}
		return printConflicts(cmd.OutOrStdout(), s, rep)
	}),
}

func init() {
	rootCmd.AddCommand(conflictsCmd)
}

func printConflicts(w io.Writer, s *session, rep conflict.Report) error {
	text := func(w io.Writer) error {
		if len(rep.Conflicts) == 0 {
			fmt.Fprintln(w, ok("no conflicts"))
		}
		for _, c := range rep.Conflicts {
			fmt.Fprintf(w, "%s %-8s %s\n", severity(c.Severity), c.MissionID, c.Description)
			if c.SuggestedAction != "" {
				fmt.Fprintf(w, "   %s\n", muted("└─ "+c.SuggestedAction))
			}
		}
		for _, sk := range rep.Skipped {
			fmt.Fprintf(w, "%s\n", muted(fmt.Sprintf("skipped %s: %s", sk.MissionID, sk.Reason)))
		}
		return nil
	}
	return emit(w, s, rep, text, func(w io.Writer) error { return export.WriteConflictsCSV(w, rep.Conflicts) })
}
