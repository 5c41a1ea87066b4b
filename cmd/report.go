package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/kilianp07/droneops/app"
	"github.com/kilianp07/droneops/core/model"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show the operations overview",
	Args:  cobra.NoArgs,
	RunE: withSession(func(cmd *cobra.Command, args []string, s *session) error {
		rep := s.svc.StatusReport()
		return emit(cmd.OutOrStdout(), s, rep, func(w io.Writer) error {
			_, err := fmt.Fprintln(w, renderReport(rep))
			return err
		}, nil)
	}),
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

func renderReport(r app.StatusReport) string {
	p, f := r.Pilots, r.Fleet
	pilots := boxStyle.Render(fmt.Sprintf("%s\n%d total\n%d available (%d assigned)\n%d on leave\n%d unavailable",
		category("pilots"), p.Total, p.Available, p.Assigned, p.OnLeave, p.Unavailable))
	fleet := boxStyle.Render(fmt.Sprintf("%s\n%d total\n%d active (%d free)\n%d maintenance\n%d idle",
		category("fleet"), f.Total, f.Active, f.Available, f.Maintenance, f.Idle))
	conflicts := boxStyle.Render(fmt.Sprintf("%s\n%s %d\n%s %d\n%s %d",
		category("conflicts"),
		severity(model.SeverityCritical), r.Conflicts[model.SeverityCritical.String()],
		severity(model.SeverityWarning), r.Conflicts[model.SeverityWarning.String()],
		severity(model.SeverityInfo), r.Conflicts[model.SeverityInfo.String()]))

	var b strings.Builder
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, pilots, " ", fleet, " ", conflicts))
	b.WriteString("\n")

	if len(r.MaintenanceAlerts) > 0 {
		b.WriteString("\n" + category("maintenance due") + "\n")
		for _, d := range r.MaintenanceAlerts {
			fmt.Fprintf(&b, "%s %-6s %-16s %s\n", warnStyle.Render("⚠"), d.ID, d.Model, d.MaintenanceDue.Format(model.DateLayout))
		}
	}
	if len(r.Assignments) > 0 {
		b.WriteString("\n" + category("assignments") + "\n")
		for _, a := range r.Assignments {
			fmt.Fprintf(&b, "%-8s %-24s pilot %-6s drone %-6s %s\n", a.MissionID, a.Project, orNone(a.PilotID), orNone(a.DroneID), muted(a.Window.String()))
		}
	}
	if len(r.Priorities) > 0 {
		b.WriteString("\n" + category("urgent") + "\n")
		for _, u := range r.Priorities {
			fmt.Fprintf(&b, "%s %-8s %d critical  %s\n", fail(u.Priority.String()), u.MissionID, u.Critical, muted(strings.Join(u.ConflictTypes, ", ")))
		}
	}
	b.WriteString(muted(separator) + "\n")
	b.WriteString(muted(fmt.Sprintf("%d changes pending sync  generated %s", r.PendingSync, r.GeneratedAt.Format("2006-01-02 15:04"))))
	return b.String()
}
