package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kilianp07/droneops/core/audit"
	"github.com/kilianp07/droneops/pkg/export"
)

var auditQuery audit.Query

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query the audit trail",
	Args:  cobra.NoArgs,
	RunE: withSession(func(cmd *cobra.Command, args []string, s *session) error {
		entries, err := s.svc.AuditTrail(cmd.Context(), auditQuery)
		if err != nil {
			return err
		}
		text := func(w io.Writer) error {
			if len(entries) == 0 {
				fmt.Fprintln(w, muted("no entries"))
			}
			for _, e := range entries {
				fmt.Fprintf(w, "%s %-10s %-16s %s %s %s: %s -> %s\n", muted(e.Timestamp.Format("2006-01-02 15:04:05")),
					e.Actor, e.Action, e.EntityType, e.EntityID, e.Field, orNone(e.Old), e.New)
			}
			return nil
		}
		return emit(cmd.OutOrStdout(), s, entries, text, func(w io.Writer) error { return export.WriteAuditCSV(w, entries) })
	}),
}

func init() {
	auditCmd.Flags().StringVar(&auditQuery.MissionID, "mission", "", "only entries for this mission")
	auditCmd.Flags().StringVar(&auditQuery.EntityID, "entity", "", "only entries touching this pilot, drone or mission")
	auditCmd.Flags().StringVar(&auditQuery.Actor, "by", "", "only entries recorded by this actor")
	rootCmd.AddCommand(auditCmd)
}
