// Package main provides the CLI entry point for the workbook tool.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/ukaji3/workbook-go/pkg/workbook/client"
	"github.com/ukaji3/workbook-go/pkg/workbook/config"
	"github.com/ukaji3/workbook-go/pkg/workbook/session"
)

var (
	configPath string
	endpoint   string
	projectID  int
	logLevel   string
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfg *config.Config
	log *slog.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:   "workbook",
		Short: "Edit, merge and sync project workbooks",
		Long: `workbook manages the sheets of a project workbook stored by the
persistence service: import and export Excel files, edit sheets, merge
tables, and run a file-backed service.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Config file (default: workbook.yaml, configs/workbook.yaml, ~/.config/workbook/config.yaml)")
	flags.StringVar(&endpoint, "endpoint", "", "Persistence service endpoint, e.g. http://localhost:8080/data")
	flags.IntVar(&projectID, "project", 0, "Project ID")
	flags.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(
		newShowCmd(a),
		newExportCmd(a),
		newImportCmd(a),
		newEditCmd(a),
		newMergeCmd(a),
		newServeCmd(a),
		newWatchCmd(a),
		newConfigCmd(a),
	)
	return rootCmd
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("endpoint") {
		cfg.Client.Endpoint = endpoint
	}
	if cmd.Flags().Changed("project") {
		cfg.Client.ProjectID = projectID
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = logLevel
	}

	a.cfg = cfg
	a.log = cfg.Log.NewLogger(os.Stderr)
	slog.SetDefault(a.log)
	if cfg.ConfigPath != "" {
		a.log.Debug("config loaded", "path", cfg.ConfigPath)
	}
	return nil
}

func (a *app) client() (*client.Client, error) {
	if a.cfg.Client.ProjectID <= 0 {
		return nil, fmt.Errorf("invalid project id %d: set --project or client.project_id", a.cfg.Client.ProjectID)
	}
	return client.FromConfig(a.cfg.Client, client.WithLogger(a.log)), nil
}

// session returns a session whose notifications are printed to stderr.
func (a *app) session() (*session.Session, error) {
	c, err := a.client()
	if err != nil {
		return nil, err
	}
	return session.New(c,
		session.WithLogger(a.log),
		session.WithNotifier(newPrinter(os.Stderr)),
	), nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
