package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tradingstack/sentinel"
)

func main() {
	if err := buildRoot().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// RunFlags holds flags for the run command.
type RunFlags struct {
	ConfigPath string
	Daemonize  bool
	PIDFile    string
	LogFile    string
}

// ClientFlags holds flags for commands that talk to a running watchdog.
type ClientFlags struct {
	APIUrl     string
	APITimeout time.Duration
	Limit      int
}

func buildRoot() *cobra.Command {
	root := &cobra.Command{
		Use:           "sentinel",
		Short:         "Supervisory watchdog for a backend/frontend service pair",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		createRunCommand(),
		createStatusCommand(),
		createEventsCommand(),
	)
	return root
}

func createRunCommand() *cobra.Command {
	flags := &RunFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start supervising the configured services",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runWatchdog(flags)
		},
	}
	cmd.Flags().StringVarP(&flags.ConfigPath, "config", "c", "sentinel.toml", "path to TOML config file")
	cmd.Flags().BoolVar(&flags.Daemonize, "daemonize", false, "run in the background")
	cmd.Flags().StringVar(&flags.PIDFile, "pidfile", "", "write the daemon PID to this file")
	cmd.Flags().StringVar(&flags.LogFile, "logfile", "", "daemon stdout/stderr destination")
	return cmd
}

func runWatchdog(flags *RunFlags) error {
	if flags.Daemonize {
		if err := daemonize(flags.PIDFile, flags.LogFile); err != nil {
			return err
		}
	}

	cfg, err := sentinel.LoadConfig(flags.ConfigPath)
	if err != nil {
		return err
	}
	if err := sentinel.SetupLogging(cfg); err != nil {
		return err
	}

	var store sentinel.HistoryStore
	if cfg.History.Enabled {
		store, err = sentinel.NewHistorySink(cfg.History.DSN)
		if err != nil {
			return fmt.Errorf("open event journal: %w", err)
		}
	}
	sup := sentinel.New(cfg, store)
	defer func() { _ = sup.Close() }()

	if !sup.RuntimeAvailable() {
		return errors.New("docker CLI not found in PATH")
	}

	if cfg.Metrics.Enabled {
		if err := sentinel.RegisterMetricsDefault(); err != nil {
			return err
		}
		go func() {
			if err := sentinel.ServeMetrics(cfg.Metrics.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server stopped", "error", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sup.Bootstrap(ctx); err != nil {
		return err
	}

	var api *http.Server
	if cfg.Server.Listen != "" {
		api, err = sentinel.NewHTTPServer(cfg.Server.Listen, cfg.Server.BasePath, sup)
		if err != nil {
			return err
		}
		slog.Info("status API listening", "addr", cfg.Server.Listen, "base_path", cfg.Server.BasePath)
	}

	sup.Run(ctx)

	if api != nil {
		shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = api.Shutdown(shCtx)
	}
	if flags.PIDFile != "" {
		_ = removePidFile(flags.PIDFile)
	}
	return nil
}

func createStatusCommand() *cobra.Command {
	flags := &ClientFlags{}
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the last snapshot from a running watchdog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client := newAPIClient(flags.APIUrl, flags.APITimeout)
			snap, err := client.Status()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), snap)
		},
	}
	addClientFlags(cmd, flags)
	return cmd
}

func createEventsCommand() *cobra.Command {
	flags := &ClientFlags{}
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List recent watchdog events (restarts, diagnoses, transitions)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client := newAPIClient(flags.APIUrl, flags.APITimeout)
			events, err := client.Events(flags.Limit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), events)
		},
	}
	addClientFlags(cmd, flags)
	cmd.Flags().IntVar(&flags.Limit, "limit", 50, "maximum number of events")
	return cmd
}

func addClientFlags(cmd *cobra.Command, flags *ClientFlags) {
	cmd.Flags().StringVar(&flags.APIUrl, "api-url", defaultAPIURL, "base URL of the watchdog status API")
	cmd.Flags().DurationVar(&flags.APITimeout, "api-timeout", sentinel.DefaultAPITimeout, "API request timeout")
}
