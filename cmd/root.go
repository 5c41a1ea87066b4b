package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/droneops/app"
	"github.com/kilianp07/droneops/config"
	coremon "github.com/kilianp07/droneops/core/monitoring"
	"github.com/kilianp07/droneops/infra/ingest"
	"github.com/kilianp07/droneops/infra/logger"
	"github.com/kilianp07/droneops/infra/monitoring"
	"github.com/kilianp07/droneops/pkg/export"

	// metrics sink factories
	_ "github.com/kilianp07/droneops/infra/metrics"
)

var (
	cfgPath   string
	dataDir   string
	outFormat string
	actor     string
	noSync    bool
)

var rootCmd = &cobra.Command{
	Use:          "droneops",
	Short:        "Pilot and drone matching, conflict detection and reassignment",
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (yaml or json)")
	rootCmd.PersistentFlags().StringVarP(&dataDir, "data", "d", "", "directory holding the roster CSV files")
	rootCmd.PersistentFlags().StringVarP(&outFormat, "format", "o", "text", "output format: text, json or csv")
	rootCmd.PersistentFlags().StringVar(&actor, "actor", "", "name recorded in the audit trail")
	rootCmd.PersistentFlags().BoolVar(&noSync, "no-sync", false, "leave changes queued instead of pushing them to the sync sinks")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

// session bundles what a command needs.
type session struct {
	cfg    *config.Config
	svc    *app.Service
	log    logger.Logger
	format export.Format
}

func (s *session) Close() {
	coremon.Flush(2 * time.Second)
	if err := s.svc.Close(); err != nil {
		s.log.Errorf("service close: %v", err)
	}
}

func openSession() (*session, error) {
	format, err := export.ParseFormat(outFormat)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if dataDir != "" {
		cfg.Data = config.DataConfig{Dir: dataDir}
		cfg.Data.SetDefaults()
	}
	cfg.Logging.Apply()
	log := logger.New("droneops")

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		log.Warnf("sentry disabled: %v", err)
	} else {
		coremon.Init(mon)
	}

	ds, err := ingest.Load(cfg.Data.Paths(), log)
	if err != nil {
		return nil, fmt.Errorf("load data: %w", err)
	}
	st, err := ds.State()
	if err != nil {
		return nil, fmt.Errorf("build roster: %w", err)
	}
	svc, err := app.New(cfg, st, app.WithLogger(log))
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, svc: svc, log: log, format: format}, nil
}

// withSession opens a session around fn.
func withSession(fn func(cmd *cobra.Command, args []string, s *session) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()
		return fn(cmd, args, s)
	}
}

// syncChanges pushes queued changes to the configured sinks before a
// one-shot command exits.
func syncChanges(cmd *cobra.Command, s *session) error {
	if noSync || len(s.svc.PendingSync()) == 0 {
		return nil
	}
	rep := s.svc.FlushSync(cmd.Context())
	if rep.Failed > 0 {
		return fmt.Errorf("sync: %d of %d changes failed, %d still pending", rep.Failed, rep.Total, rep.Pending)
	}
	s.log.Infof("sync: pushed %d changes", rep.Succeeded)
	return nil
}

// emit writes v in the session format. csvFn handles csv; text falls back
// to JSON when textFn is nil.
func emit(w io.Writer, s *session, v any, textFn func(io.Writer) error, csvFn func(io.Writer) error) error {
	switch s.format {
	case export.FormatJSON:
		return export.WriteJSON(w, v)
	case export.FormatCSV:
		if csvFn == nil {
			return fmt.Errorf("csv output is not supported by this command")
		}
		return csvFn(w)
	default:
		if textFn == nil {
			return export.WriteJSON(w, v)
		}
		return textFn(w)
	}
}
