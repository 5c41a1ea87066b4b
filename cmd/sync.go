package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kilianp07/droneops/core/syncqueue"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Inspect change sync sinks",
}

var syncSinksCmd = &cobra.Command{
	Use:   "sinks",
	Short: "List the registered sink types and the configured sinks",
	Args:  cobra.NoArgs,
	RunE: withSession(func(cmd *cobra.Command, args []string, s *session) error {
		out := struct {
			Registered []string `json:"registered"`
			Configured []string `json:"configured"`
		}{syncqueue.SinkTypes(), s.svc.SyncSinks()}
		return emit(cmd.OutOrStdout(), s, out, func(w io.Writer) error {
			fmt.Fprintf(w, "%s %s\n", category("registered"), strings.Join(out.Registered, ", "))
			fmt.Fprintf(w, "%s %s\n", category("configured"), strings.Join(out.Configured, ", "))
			return nil
		}, nil)
	}),
}

func init() {
	syncCmd.AddCommand(syncSinksCmd)
	rootCmd.AddCommand(syncCmd)
}
