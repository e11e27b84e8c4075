package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"squill/internal/logging"
	"squill/internal/server"
	"squill/internal/transport"
	"squill/internal/version"
	"squill/internal/workspace"
)

// daemonSource tags every log record produced by the daemon itself so the
// source filter can distinguish it from dependency noise.
const daemonSource = version.Tool + "/daemon"

func newRunServerCommand(ctx *commandContext) *cobra.Command {
	var (
		logDir           string
		logPrefix        string
		stopOnDisconnect bool
	)

	cmd := &cobra.Command{
		Use:    "run-server",
		Short:  "Run the daemon in the foreground",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.config()
			if err != nil {
				return err
			}
			if logDir == "" {
				logDir = cfg.Logging.Dir
			}
			if logDir == "" {
				logDir = logging.DefaultLogDir()
			}
			if logPrefix == "" {
				logPrefix = cfg.Logging.FilePrefix
			}

			sink, err := logging.NewRollingWriter(logDir, logPrefix, cfg.Logging.MaxFiles)
			if err != nil {
				return err
			}
			defer sink.Close()

			logger, err := logging.New(logging.Options{
				Level:  cfg.Logging.Level,
				Format: cfg.Logging.Format,
				Writer: sink,
				Filter: logging.NewSourceFilter(logging.Development),
			})
			if err != nil {
				return err
			}
			logger = logging.WithSource(logger, daemonSource)

			return runDaemon(cmd.Context(), logger, runDaemonOptions{
				socketPath:       ctx.socketPath(),
				stopOnDisconnect: stopOnDisconnect || cfg.Daemon.StopOnDisconnect,
			})
		},
	}

	cmd.Flags().StringVar(&logDir, "log-path", "", "directory for daemon log files")
	cmd.Flags().StringVar(&logPrefix, "log-prefix", "", "file name prefix for daemon log files")
	cmd.Flags().BoolVar(&stopOnDisconnect, "stop-on-disconnect", false, "stop once the last client disconnects")
	return cmd
}

type runDaemonOptions struct {
	socketPath       string
	stopOnDisconnect bool
}

// runDaemon assembles the canceller, control service, and accept loop, and
// blocks until cancellation. Losing a startup race to another daemon is a
// clean exit, not a failure.
func runDaemon(ctx context.Context, logger *slog.Logger, opts runDaemonOptions) error {
	canceller := server.NewCanceller()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		sig, ok := <-sigs
		if !ok {
			return
		}
		logger.Info("signal received", logging.String("signal", sig.String()))
		canceller.Cancel()
	}()

	service := workspace.NewService(logger, canceller, opts.socketPath)
	runtime, err := server.NewRuntime(server.Options{
		SocketPath:       opts.socketPath,
		StopOnDisconnect: opts.stopOnDisconnect,
	}, workspace.NewHandler(service), logger, canceller)
	if err != nil {
		return err
	}
	service.SetSessionCounter(runtime.ActiveSessions)

	logger.Info("daemon starting",
		logging.String("version", version.Version),
		logging.Int("pid", os.Getpid()))

	if err := runtime.Serve(ctx); err != nil {
		if errors.Is(err, transport.ErrAddressInUse) {
			logger.Info("another daemon already owns the socket; exiting")
			return nil
		}
		logger.Error("daemon failed", logging.Error(err))
		return err
	}
	logger.Info("daemon stopped")
	return nil
}
