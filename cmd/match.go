package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kilianp07/droneops/core/matching"
	"github.com/kilianp07/droneops/pkg/export"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Rank eligible resources for a mission",
}

var matchPilotsCmd = &cobra.Command{
	Use:   "pilots <mission>",
	Short: "Rank pilots for a mission",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(cmd *cobra.Command, args []string, s *session) error {
		res, err := s.svc.MatchPilots(args[0])
		if err != nil {
			return err
		}
		return printMatch(cmd.OutOrStdout(), s, res)
	}),
}

var matchDronesCmd = &cobra.Command{
	Use:   "drones <mission>",
	Short: "Rank drones for a mission",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(cmd *cobra.Command, args []string, s *session) error {
		res, err := s.svc.MatchDrones(args[0])
		if err != nil {
			return err
		}
		return printMatch(cmd.OutOrStdout(), s, res)
	}),
}

func init() {
	matchCmd.AddCommand(matchPilotsCmd, matchDronesCmd)
	rootCmd.AddCommand(matchCmd)
}

func printMatch(w io.Writer, s *session, res matching.Result) error {
	text := func(w io.Writer) error {
		fmt.Fprintf(w, "%s %s\n", category(res.Kind.String()+"s for"), res.MissionID)
		if res.Empty() {
			fmt.Fprintln(w, fail("no eligible "+res.Kind.String()))
		}
		for i, c := range res.Candidates {
			loc := ""
			if c.LocationMatch {
				loc = muted(" (on site)")
			}
			fmt.Fprintf(w, "%2d. %-6s %-20s score %3d  cost %10.2f%s\n",
				i+1, c.ResourceID, c.Name, c.Score.Total, c.EstimatedCost, loc)
		}
		if len(res.Rejections) > 0 {
			fmt.Fprintln(w, muted(separator))
			for _, r := range res.Rejections {
				fmt.Fprintf(w, "%s %s\n", muted(r.ResourceID), muted(r.Reason))
			}
		}
		return nil
	}
	return emit(w, s, res, text, func(w io.Writer) error { return export.WriteCandidatesCSV(w, res) })
}
