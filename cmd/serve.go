package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the service: metrics, event collection and periodic sync",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()
	s.log.Infof("serving with sync sinks %v", s.cfg.Sync.Sinks)
	return s.svc.Run(ctx)
}
